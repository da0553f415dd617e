package framestore

import (
	"math"

	"pafoverlay/internal/models"
)

// SyntheticOptions shapes a generated frame sequence
type SyntheticOptions struct {
	Height, Width int

	// Fields is the number of vector fields; the frame has 2*Fields channels
	Fields int

	Layout models.Layout

	// ByteEncoded multiplies components by 255 the way quantized
	// prediction dumps are stored
	ByteEncoded bool
}

// Synthetic builds frame number t of a demo sequence. Field k is a unit
// vector field pointing toward a center that orbits the image, rotated by
// k·π/Fields, so consecutive frames and channels are visibly different.
func Synthetic(t int, opts SyntheticOptions) *models.MultiChannelField {
	f := models.NewMultiChannelField(opts.Height, opts.Width, 2*opts.Fields, opts.Layout)

	phase := float64(t) * math.Pi / 16
	cx := float64(opts.Width) * (0.5 + 0.25*math.Cos(phase))
	cy := float64(opts.Height) * (0.5 + 0.25*math.Sin(phase))

	gain := 1.0
	if opts.ByteEncoded {
		gain = 255
	}

	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			dx, dy := cx-float64(x), cy-float64(y)
			d := math.Hypot(dx, dy)
			if d == 0 {
				continue
			}
			// fade out far from the center like a limb-local affinity field
			w := math.Exp(-d / float64(max(opts.Width, opts.Height)))
			ux, uy := dx/d, dy/d
			for k := 0; k < opts.Fields; k++ {
				a := float64(k) * math.Pi / float64(opts.Fields)
				sin, cos := math.Sincos(a)
				f.Set(y, x, 2*k, gain*w*(ux*cos-uy*sin))
				f.Set(y, x, 2*k+1, gain*w*(ux*sin+uy*cos))
			}
		}
	}
	return f
}
