package models

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Errors shared by every stage of the overlay pipeline. Callers match them
// with errors.Is; stages wrap them with the offending values.
var (
	// ErrInvalidShape is returned when a field array has the wrong rank,
	// mismatched components or an odd channel dimension.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrInvalidParameter is returned for a decimation factor or scale
	// that is not strictly positive.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Layout describes how a MultiChannelField is stored in memory
type Layout int

const (
	// ChannelsLast is row-major (H, W, C): channel varies fastest.
	ChannelsLast Layout = iota

	// ChannelsFirst is row-major (C, H, W): each channel is a contiguous plane.
	ChannelsFirst

	// ColumnMajor is Fortran order of (H, W, C): row index varies fastest.
	// This is how HDF5 datasets written from column-major tools arrive.
	ColumnMajor
)

// String returns the name used in config files and on the command line
func (l Layout) String() string {
	switch l {
	case ChannelsLast:
		return "channels_last"
	case ChannelsFirst:
		return "channels_first"
	case ColumnMajor:
		return "column_major"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout converts a layout name into a Layout
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "channels_last", "last":
		return ChannelsLast, nil
	case "channels_first", "first":
		return ChannelsFirst, nil
	case "column_major", "fortran":
		return ColumnMajor, nil
	default:
		return 0, fmt.Errorf("unknown layout %q", name)
	}
}

// MultiChannelField is one frame of part affinity fields.
//
// Logical shape is (Height, Width, Channels) where channel pair (2k, 2k+1)
// holds the x and y components of field k. Data is read only through At,
// so the storage order never leaks into the tiling code.
type MultiChannelField struct {
	// Height and Width are the spatial dimensions in field pixels
	Height int
	Width  int

	// Channels is the size of the last logical dimension (2 per field)
	Channels int

	// Layout selects how Data is indexed
	Layout Layout

	// Data holds Height*Width*Channels values
	Data []float64
}

// NewMultiChannelField allocates a zeroed field with the given layout
func NewMultiChannelField(height, width, channels int, layout Layout) *MultiChannelField {
	return &MultiChannelField{
		Height:   height,
		Width:    width,
		Channels: channels,
		Layout:   layout,
		Data:     make([]float64, height*width*channels),
	}
}

// index maps a logical (y, x, c) coordinate to the storage offset
func (f *MultiChannelField) index(y, x, c int) int {
	switch f.Layout {
	case ChannelsFirst:
		return (c*f.Height+y)*f.Width + x
	case ColumnMajor:
		return (c*f.Width+x)*f.Height + y
	default:
		return (y*f.Width+x)*f.Channels + c
	}
}

// At returns the value at row y, column x, channel c
func (f *MultiChannelField) At(y, x, c int) float64 {
	return f.Data[f.index(y, x, c)]
}

// Set stores v at row y, column x, channel c
func (f *MultiChannelField) Set(y, x, c int, v float64) {
	f.Data[f.index(y, x, c)] = v
}

// FieldCount is the number of logical vector fields (Channels / 2)
func (f *MultiChannelField) FieldCount() int {
	return f.Channels / 2
}

// Validate checks the dimensions and the backing slice length
func (f *MultiChannelField) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil field", ErrInvalidShape)
	}
	if f.Height <= 0 || f.Width <= 0 || f.Channels < 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidShape, f.Height, f.Width, f.Channels)
	}
	if f.Channels%2 != 0 {
		return fmt.Errorf("%w: channel dimension %d is odd", ErrInvalidShape, f.Channels)
	}
	if len(f.Data) != f.Height*f.Width*f.Channels {
		return fmt.Errorf("%w: data length %d does not match %dx%dx%d",
			ErrInvalidShape, len(f.Data), f.Height, f.Width, f.Channels)
	}
	return nil
}

// Clone returns a deep copy of the field
func (f *MultiChannelField) Clone() *MultiChannelField {
	out := *f
	out.Data = make([]float64, len(f.Data))
	copy(out.Data, f.Data)
	return &out
}

// VectorField is a single (x, y) component pair of shape (H, W)
type VectorField struct {
	X *mat.Dense
	Y *mat.Dense
}

// NewVectorField builds a VectorField from row-major component slices
func NewVectorField(height, width int, x, y []float64) (VectorField, error) {
	if height <= 0 || width <= 0 {
		return VectorField{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidShape, height, width)
	}
	if len(x) != height*width || len(y) != height*width {
		return VectorField{}, fmt.Errorf("%w: component lengths %d and %d, want %d",
			ErrInvalidShape, len(x), len(y), height*width)
	}
	return VectorField{
		X: mat.NewDense(height, width, x),
		Y: mat.NewDense(height, width, y),
	}, nil
}

// Dims returns the (H, W) shape of the field
func (v VectorField) Dims() (int, int) {
	if v.X == nil {
		return 0, 0
	}
	return v.X.Dims()
}

// Validate checks that both components exist and share one shape
func (v VectorField) Validate() error {
	if v.X == nil || v.Y == nil {
		return fmt.Errorf("%w: missing component", ErrInvalidShape)
	}
	hx, wx := v.X.Dims()
	hy, wy := v.Y.Dims()
	if hx != hy || wx != wy {
		return fmt.Errorf("%w: x is %dx%d, y is %dx%d", ErrInvalidShape, hx, wx, hy, wy)
	}
	return nil
}

// RGB is a display color with 8-bit components
type RGB struct {
	R, G, B uint8
}

// ArrowGlyph is one arrow in display coordinates: a shaft from
// (X1, Y1) to (X2, Y2) and two wing points sharing the head.
type ArrowGlyph struct {
	X1, Y1   float64
	X2, Y2   float64
	P1X, P1Y float64
	P2X, P2Y float64
}

// Segment is a two point line
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Segments returns tail→head, head→p1 and head→p2
func (a ArrowGlyph) Segments() [3]Segment {
	return [3]Segment{
		{a.X1, a.Y1, a.X2, a.Y2},
		{a.X2, a.Y2, a.P1X, a.P1Y},
		{a.X2, a.Y2, a.P2X, a.P2Y},
	}
}

// GlyphGroup holds the arrows of one channel together with how they
// should be drawn. A group is built once per (frame, channel, decimation)
// and never modified afterwards.
type GlyphGroup struct {
	// Channel is the logical field index the glyphs came from
	Channel int

	// Color is the pen color assigned from the palette
	Color RGB

	// Width is the pen width, clamp(log20(decimation), 0.1, 4)
	Width float64

	// Bounds is the display rectangle covered by the field
	Bounds image.Rectangle

	// Glyphs are ordered row-major by tile
	Glyphs []ArrowGlyph
}

// Lines flattens every glyph into independent two point segments
func (g GlyphGroup) Lines() []Segment {
	lines := make([]Segment, 0, len(g.Glyphs)*3)
	for _, glyph := range g.Glyphs {
		s := glyph.Segments()
		lines = append(lines, s[:]...)
	}
	return lines
}
