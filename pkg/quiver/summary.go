package quiver

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pafoverlay/internal/models"
)

// GroupStats summarizes one glyph group
type GroupStats struct {
	Channel int
	Count   int

	// MeanLength is the average shaft length in display pixels
	MeanLength float64

	// MaxLength is the longest shaft in display pixels
	MaxLength float64
}

// Summary reports arrow counts and lengths per group, in group order
func Summary(groups []models.GlyphGroup) []GroupStats {
	out := make([]GroupStats, len(groups))
	for i, g := range groups {
		out[i] = GroupStats{Channel: g.Channel, Count: len(g.Glyphs)}
		if len(g.Glyphs) == 0 {
			continue
		}
		lengths := make([]float64, len(g.Glyphs))
		for j, a := range g.Glyphs {
			lengths[j] = math.Hypot(a.X2-a.X1, a.Y2-a.Y1)
			out[i].MaxLength = math.Max(out[i].MaxLength, lengths[j])
		}
		out[i].MeanLength = stat.Mean(lengths, nil)
	}
	return out
}
