// Package glyph turns a decimated vector grid into arrow geometry: a shaft
// plus a fixed ±45° arrowhead per tile, in display coordinates.
package glyph

import (
	"math"

	"pafoverlay/internal/models"
	"pafoverlay/pkg/decimate"
)

// DefaultMinLength is the vector length at or below which no arrow is drawn
const DefaultMinLength = 0.01

// Options controls glyph generation
type Options struct {
	// MinLength filters short vectors; zero selects DefaultMinLength
	MinLength float64
}

func (o Options) minLength() float64 {
	if o.MinLength > 0 {
		return o.MinLength
	}
	return DefaultMinLength
}

// HeadSize is the arrowhead wing length for a vector of length l
func HeadSize(l float64) float64 {
	return l / 4
}

// UnitVector returns (dx, dy)/l, or zero when l is zero
func UnitVector(dx, dy, l float64) (float64, float64) {
	if l == 0 {
		return 0, 0
	}
	return dx / l, dy / l
}

// Wings returns the two arrowhead points for a head at (x2, y2) pointing
// along the unit vector (u, v) with wing length h.
func Wings(x2, y2, u, v, h float64) (p1x, p1y, p2x, p2y float64) {
	p1x = x2 - u*h - v*h
	p1y = y2 - v*h + u*h
	p2x = x2 - u*h + v*h
	p2y = y2 - v*h - u*h
	return p1x, p1y, p2x, p2y
}

// Build emits one arrow per tile of g whose vector is longer than the
// minimum length, in row-major tile order.
//
// The shaft runs from the tile anchor to anchor + delta·B, so arrow length
// reflects the motion across the whole tile. The head size comes from the
// averaged vector before that rescale. Offsets are divided by the grid's
// scale the same way its anchors were.
func Build(g *decimate.Grid, opts Options) []models.ArrowGlyph {
	if g == nil || g.Empty() {
		return nil
	}
	minLen := opts.minLength()
	inv := 1 / g.Scale
	b := float64(g.Factor)

	glyphs := make([]models.ArrowGlyph, 0, g.Rows*g.Cols)
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			dx, dy := g.DX.At(i, j), g.DY.At(i, j)
			l := math.Hypot(dx, dy)
			if !(l > minLen) {
				continue
			}

			x1, y1 := g.AnchorX.At(i, j), g.AnchorY.At(i, j)
			x2 := x1 + dx*b*inv
			y2 := y1 + dy*b*inv
			h := HeadSize(l) * inv
			u, v := UnitVector(dx, dy, l)
			p1x, p1y, p2x, p2y := Wings(x2, y2, u, v, h)

			glyphs = append(glyphs, models.ArrowGlyph{
				X1: x1, Y1: y1,
				X2: x2, Y2: y2,
				P1X: p1x, P1Y: p1y,
				P2X: p2x, P2Y: p2y,
			})
		}
	}
	return glyphs
}

// PenWidth is the line width used for a decimation factor:
// log base 20 of the factor, clamped to [0.1, 4].
func PenWidth(factor int) float64 {
	w := math.Log(float64(factor)) / math.Log(20)
	return math.Min(4, math.Max(0.1, w))
}
