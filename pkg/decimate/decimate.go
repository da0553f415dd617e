// Package decimate reduces a vector field to one averaged vector per
// B×B tile and reports where each tile's arrow should be anchored.
package decimate

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"pafoverlay/internal/models"
)

// Grid is the decimated field. All four matrices are Rows × Cols and are
// nil when the grid is empty. Anchors are in display coordinates; deltas
// are the averaged field components, still in field units.
type Grid struct {
	Rows, Cols int

	// Factor is the decimation factor B the grid was built with
	Factor int

	// Scale is the display scale the anchors were divided by
	Scale float64

	AnchorX *mat.Dense
	AnchorY *mat.Dense
	DX      *mat.Dense
	DY      *mat.Dense
}

// Empty reports whether the grid has no tiles
func (g *Grid) Empty() bool {
	return g.Rows == 0 || g.Cols == 0
}

// CheckParams validates a decimation factor and display scale
func CheckParams(factor int, scale float64) error {
	if factor <= 0 {
		return fmt.Errorf("%w: decimation factor %d must be >= 1", models.ErrInvalidParameter, factor)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: scale %v must be > 0", models.ErrInvalidParameter, scale)
	}
	return nil
}

// newGrid validates the inputs and allocates the output matrices
func newGrid(vf models.VectorField, factor int, scale float64) (*Grid, error) {
	if err := CheckParams(factor, scale); err != nil {
		return nil, err
	}
	if err := vf.Validate(); err != nil {
		return nil, fmt.Errorf("decimate: %w", err)
	}

	h, w := vf.Dims()
	g := &Grid{
		Rows:   h / factor,
		Cols:   w / factor,
		Factor: factor,
		Scale:  scale,
	}
	if g.Empty() {
		g.Rows, g.Cols = 0, 0
		return g, nil
	}
	g.AnchorX = mat.NewDense(g.Rows, g.Cols, nil)
	g.AnchorY = mat.NewDense(g.Rows, g.Cols, nil)
	g.DX = mat.NewDense(g.Rows, g.Cols, nil)
	g.DY = mat.NewDense(g.Rows, g.Cols, nil)
	return g, nil
}

// Decimate averages vf over non-overlapping factor×factor tiles.
//
// Rows and columns that do not fill a whole tile at the bottom and right
// edges are dropped. With factor 1 every pixel is its own tile and the
// components are copied unchanged. With factor > 1 anchors move from the
// tile corner by factor/2 pixels on both axes. Anchors are finally
// multiplied by 1/scale.
func Decimate(vf models.VectorField, factor int, scale float64) (*Grid, error) {
	g, err := newGrid(vf, factor, scale)
	if err != nil {
		return nil, err
	}
	if g.Empty() {
		return g, nil
	}
	fillRows(vf, g, 0, g.Rows, make([]float64, factor*factor))
	return g, nil
}

// DecimateParallel is Decimate with tile rows spread across workers.
// The result is identical to Decimate.
func DecimateParallel(ctx context.Context, vf models.VectorField, factor int, scale float64, workers int) (*Grid, error) {
	g, err := newGrid(vf, factor, scale)
	if err != nil {
		return nil, err
	}
	if g.Empty() {
		return g, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > g.Rows {
		workers = g.Rows
	}

	rowsPerWorker := (g.Rows + workers - 1) / workers
	eg, ctx := errgroup.WithContext(ctx)
	for start := 0; start < g.Rows; start += rowsPerWorker {
		end := min(start+rowsPerWorker, g.Rows)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// each worker writes a disjoint band of rows
			fillRows(vf, g, start, end, make([]float64, factor*factor))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

// fillRows computes tile rows [start, end) of g. buf holds one tile and
// is reused for every tile in the band.
func fillRows(vf models.VectorField, g *Grid, start, end int, buf []float64) {
	b := g.Factor
	inv := 1 / g.Scale
	shift := 0
	if b > 1 {
		shift = b / 2
	}

	for i := start; i < end; i++ {
		for j := 0; j < g.Cols; j++ {
			y0, x0 := i*b, j*b

			var dx, dy float64
			if b == 1 {
				dx, dy = vf.X.At(y0, x0), vf.Y.At(y0, x0)
			} else {
				dx = tileMean(vf.X, y0, x0, b, buf)
				dy = tileMean(vf.Y, y0, x0, b, buf)
			}

			g.AnchorX.Set(i, j, float64(x0+shift)*inv)
			g.AnchorY.Set(i, j, float64(y0+shift)*inv)
			g.DX.Set(i, j, dx)
			g.DY.Set(i, j, dy)
		}
	}
}

// tileMean averages the b×b block of m whose top-left pixel is (y0, x0).
// The block is walked in (row, column) order through the matrix accessor.
func tileMean(m mat.Matrix, y0, x0, b int, buf []float64) float64 {
	n := 0
	for y := y0; y < y0+b; y++ {
		for x := x0; x < x0+b; x++ {
			buf[n] = m.At(y, x)
			n++
		}
	}
	return stat.Mean(buf[:n], nil)
}
