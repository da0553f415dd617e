package field

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"pafoverlay/internal/models"
)

// Channel is one extracted vector field and the index it was taken from
type Channel struct {
	Index int
	Field models.VectorField
}

// AllChannels returns the indices [0, C) for f
func AllChannels(f *models.MultiChannelField) []int {
	n := f.FieldCount()
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Extract slices the selected logical channels out of f. A nil selection
// means every channel. Indices with no complete (x, y) pair are skipped
// silently; the remaining ones keep their selection order.
func Extract(f *models.MultiChannelField, selection []int) ([]Channel, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("extract channels: %w", err)
	}
	if selection == nil {
		selection = AllChannels(f)
	}

	out := make([]Channel, 0, len(selection))
	for _, k := range selection {
		if k < 0 || 2*k+1 >= f.Channels {
			continue
		}
		out = append(out, Channel{Index: k, Field: extractPair(f, k)})
	}
	return out, nil
}

// extractPair copies channels 2k and 2k+1 into row-major matrices,
// reading through the field accessor so any storage layout works.
func extractPair(f *models.MultiChannelField, k int) models.VectorField {
	x := mat.NewDense(f.Height, f.Width, nil)
	y := mat.NewDense(f.Height, f.Width, nil)
	for r := 0; r < f.Height; r++ {
		for c := 0; c < f.Width; c++ {
			x.Set(r, c, f.At(r, c, 2*k))
			y.Set(r, c, f.At(r, c, 2*k+1))
		}
	}
	return models.VectorField{X: x, Y: y}
}
