package glyph

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"pafoverlay/internal/models"
	"pafoverlay/pkg/decimate"
)

const tolerance = 1e-9

// singleTile builds a 1x1 grid by hand
func singleTile(dx, dy, ax, ay float64, factor int, scale float64) *decimate.Grid {
	return &decimate.Grid{
		Rows: 1, Cols: 1,
		Factor:  factor,
		Scale:   scale,
		AnchorX: mat.NewDense(1, 1, []float64{ax}),
		AnchorY: mat.NewDense(1, 1, []float64{ay}),
		DX:      mat.NewDense(1, 1, []float64{dx}),
		DY:      mat.NewDense(1, 1, []float64{dy}),
	}
}

func TestBuildThreeFourFive(t *testing.T) {
	glyphs := Build(singleTile(3, 4, 0, 0, 1, 1), Options{})
	if len(glyphs) != 1 {
		t.Fatalf("Expected 1 glyph, got %d", len(glyphs))
	}
	a := glyphs[0]
	if a.X1 != 0 || a.Y1 != 0 {
		t.Errorf("Expected tail (0,0), got (%f,%f)", a.X1, a.Y1)
	}
	if a.X2 != 3 || a.Y2 != 4 {
		t.Errorf("Expected head (3,4), got (%f,%f)", a.X2, a.Y2)
	}

	// head size 1.25, unit (0.6, 0.8)
	wantP1x := 3 - 0.6*1.25 - 0.8*1.25
	wantP1y := 4 - 0.8*1.25 + 0.6*1.25
	wantP2x := 3 - 0.6*1.25 + 0.8*1.25
	wantP2y := 4 - 0.8*1.25 - 0.6*1.25
	if math.Abs(a.P1X-wantP1x) > tolerance || math.Abs(a.P1Y-wantP1y) > tolerance {
		t.Errorf("Expected p1 (%f,%f), got (%f,%f)", wantP1x, wantP1y, a.P1X, a.P1Y)
	}
	if math.Abs(a.P2X-wantP2x) > tolerance || math.Abs(a.P2Y-wantP2y) > tolerance {
		t.Errorf("Expected p2 (%f,%f), got (%f,%f)", wantP2x, wantP2y, a.P2X, a.P2Y)
	}

	d1 := math.Hypot(a.P1X-a.X2, a.P1Y-a.Y2)
	d2 := math.Hypot(a.P2X-a.X2, a.P2Y-a.Y2)
	if math.Abs(d1-d2) > tolerance {
		t.Errorf("Expected symmetric wings, got %f and %f", d1, d2)
	}
	// each wing is the head size rotated by 45°: length h·√2
	if math.Abs(d1-1.25*math.Sqrt2) > tolerance {
		t.Errorf("Expected wing length %f, got %f", 1.25*math.Sqrt2, d1)
	}
}

func TestHelpers(t *testing.T) {
	if HeadSize(5) != 1.25 {
		t.Errorf("Expected head size 1.25, got %f", HeadSize(5))
	}
	u, v := UnitVector(3, 4, 5)
	if math.Abs(u-0.6) > tolerance || math.Abs(v-0.8) > tolerance {
		t.Errorf("Expected unit (0.6,0.8), got (%f,%f)", u, v)
	}
	u, v = UnitVector(0, 0, 0)
	if u != 0 || v != 0 || math.IsNaN(u) {
		t.Errorf("Expected zero unit vector, got (%f,%f)", u, v)
	}
}

func TestBuildFactorRescalesShaftNotHead(t *testing.T) {
	glyphs := Build(singleTile(0.3, 0.4, 2, 2, 4, 1), Options{})
	if len(glyphs) != 1 {
		t.Fatalf("Expected 1 glyph, got %d", len(glyphs))
	}
	a := glyphs[0]
	if math.Abs(a.X2-3.2) > tolerance || math.Abs(a.Y2-3.6) > tolerance {
		t.Errorf("Expected head (3.2,3.6), got (%f,%f)", a.X2, a.Y2)
	}
	// head size comes from the unscaled length 0.5
	d := math.Hypot(a.P1X-a.X2, a.P1Y-a.Y2)
	if math.Abs(d-0.125*math.Sqrt2) > tolerance {
		t.Errorf("Expected wing length %f, got %f", 0.125*math.Sqrt2, d)
	}
}

func TestBuildMinLength(t *testing.T) {
	tests := []struct {
		dx, dy float64
		opts   Options
		want   int
	}{
		{0, 0, Options{}, 0},
		{0.01, 0, Options{}, 0}, // equal to threshold
		{0.011, 0, Options{}, 1},
		{0.3, 0.4, Options{MinLength: 0.6}, 0},
		{0.3, 0.41, Options{MinLength: 0.5}, 1},
	}
	for _, tt := range tests {
		got := Build(singleTile(tt.dx, tt.dy, 0, 0, 1, 1), tt.opts)
		if len(got) != tt.want {
			t.Errorf("(%f,%f) min=%f: expected %d glyphs, got %d",
				tt.dx, tt.dy, tt.opts.MinLength, tt.want, len(got))
		}
	}
}

func TestBuildAllZeroField(t *testing.T) {
	vf := models.VectorField{X: mat.NewDense(12, 12, nil), Y: mat.NewDense(12, 12, nil)}
	for _, b := range []int{1, 2, 3, 5, 12, 20} {
		g, err := decimate.Decimate(vf, b, 1)
		if err != nil {
			t.Fatalf("Decimate failed: %v", err)
		}
		if got := Build(g, Options{}); len(got) != 0 {
			t.Errorf("B=%d: expected no glyphs, got %d", b, len(got))
		}
	}
}

func TestBuildScaleInvariance(t *testing.T) {
	const s = 2.5
	ref := Build(singleTile(0.7, -0.2, 6, 9, 3, 1), Options{})
	got := Build(singleTile(0.7, -0.2, 6/s, 9/s, 3, s), Options{})
	if len(ref) != 1 || len(got) != 1 {
		t.Fatalf("Expected one glyph each, got %d and %d", len(ref), len(got))
	}
	r, g := ref[0], got[0]
	pairs := [][2]float64{
		{r.X1 / s, g.X1}, {r.Y1 / s, g.Y1},
		{r.X2 / s, g.X2}, {r.Y2 / s, g.Y2},
		{r.P1X / s, g.P1X}, {r.P1Y / s, g.P1Y},
		{r.P2X / s, g.P2X}, {r.P2Y / s, g.P2Y},
	}
	for i, p := range pairs {
		if math.Abs(p[0]-p[1]) > tolerance {
			t.Errorf("Coordinate %d: expected %f, got %f", i, p[0], p[1])
		}
	}
}

func TestBuildEmptyGrid(t *testing.T) {
	if got := Build(&decimate.Grid{Factor: 2, Scale: 1}, Options{}); got != nil {
		t.Errorf("Expected nil for empty grid, got %d glyphs", len(got))
	}
	if got := Build(nil, Options{}); got != nil {
		t.Error("Expected nil for nil grid")
	}
}

func TestPenWidth(t *testing.T) {
	tests := []struct {
		factor int
		want   float64
	}{
		{1, 0.1},
		{2, math.Log(2) / math.Log(20)},
		{20, 1},
		{400, 2},
		{1 << 30, 4},
	}
	for _, tt := range tests {
		if got := PenWidth(tt.factor); math.Abs(got-tt.want) > tolerance {
			t.Errorf("PenWidth(%d): expected %f, got %f", tt.factor, tt.want, got)
		}
	}
}
