// Package field prepares raw affinity field frames for decimation: it
// detects byte-encoded data and splits multi-channel frames into
// per-channel vector fields.
package field

import (
	"gonum.org/v1/gonum/floats"

	"pafoverlay/internal/models"
)

const (
	// ByteRangeThreshold is the value range above which data is treated as
	// byte encoded. Normalized components span at most [-1, 1].
	ByteRangeThreshold = 4.0

	// ByteScale is the divisor applied to byte encoded data
	ByteScale = 255.0
)

// valueRange returns max - min of data, or 0 for an empty slice
func valueRange(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Max(data) - floats.Min(data)
}

// IsByteEncoded reports whether data looks like byte-quantized components
func IsByteEncoded(data []float64) bool {
	return valueRange(data) > ByteRangeThreshold
}

// Normalize returns f rescaled to the normalized range when its values
// look byte encoded. Otherwise f itself is returned. The input is never
// modified.
func Normalize(f *models.MultiChannelField) *models.MultiChannelField {
	if f == nil || !IsByteEncoded(f.Data) {
		return f
	}
	out := f.Clone()
	floats.Scale(1/ByteScale, out.Data)
	return out
}
