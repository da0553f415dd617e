// Package quiver assembles the arrow overlay for one frame: it runs
// normalization, channel extraction, decimation and glyph building for
// every selected channel and returns one GlyphGroup per channel.
package quiver

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"pafoverlay/internal/models"
	"pafoverlay/pkg/decimate"
	"pafoverlay/pkg/field"
	"pafoverlay/pkg/glyph"
)

const (
	// DefaultDecimation is the tile size used when none is configured
	DefaultDecimation = 2

	// DefaultScale maps field pixels one to one onto display pixels
	DefaultScale = 1.0
)

// Renderer draws finished glyph groups. Implementations own the paint
// surface; the assembler never holds a reference to one.
type Renderer interface {
	Render(groups []models.GlyphGroup) error
}

// Params configures an Assembler
type Params struct {
	// Palette is the channel color table; empty selects DefaultPalette()
	Palette []models.RGB

	// MinLength filters short vectors; zero selects glyph.DefaultMinLength
	MinLength float64

	// Workers bounds how many channels are processed at once.
	// Zero uses runtime.NumCPU().
	Workers int

	// Logger receives debug output; nil discards it
	Logger *slog.Logger
}

// Request is one render request for a frame
type Request struct {
	// Channels lists the fields to draw, in order. Nil means all fields.
	Channels []int

	// Decimation is the tile size B, >= 1
	Decimation int

	// Scale relates field pixels to display pixels, > 0
	Scale float64
}

// DefaultRequest draws every channel at the default decimation and scale
func DefaultRequest() Request {
	return Request{Decimation: DefaultDecimation, Scale: DefaultScale}
}

// Assembler builds glyph groups for frames. It keeps no per-frame state
// and is safe for concurrent use.
type Assembler struct {
	palette   []models.RGB
	minLength float64
	workers   int
	logger    *slog.Logger
}

// NewAssembler creates an Assembler from params
func NewAssembler(params Params) *Assembler {
	palette := params.Palette
	if len(palette) == 0 {
		palette = DefaultPalette()
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{
		palette:   append([]models.RGB(nil), palette...),
		minLength: params.MinLength,
		workers:   workers,
		logger:    logger,
	}
}

// Assemble computes the glyph groups for frame. Groups come back in the
// order of req.Channels regardless of how work was scheduled. On error no
// groups are returned.
func (a *Assembler) Assemble(ctx context.Context, frame *models.MultiChannelField, req Request) ([]models.GlyphGroup, error) {
	if err := decimate.CheckParams(req.Decimation, req.Scale); err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", models.ErrInvalidShape)
	}
	if frame.Channels < 2 {
		return []models.GlyphGroup{}, nil
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	frame = field.Normalize(frame)
	channels, err := field.Extract(frame, req.Channels)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return []models.GlyphGroup{}, nil
	}

	bounds := image.Rect(0, 0,
		int(float64(frame.Width)/req.Scale),
		int(float64(frame.Height)/req.Scale))
	width := glyph.PenWidth(req.Decimation)

	// spare workers go to tile rows when there are few channels
	rowWorkers := max(1, a.workers/len(channels))

	groups := make([]models.GlyphGroup, len(channels))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i, ch := range channels {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			grid, err := decimate.DecimateParallel(ctx, ch.Field, req.Decimation, req.Scale, rowWorkers)
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch.Index, err)
			}
			groups[i] = models.GlyphGroup{
				Channel: ch.Index,
				Color:   colorFor(a.palette, ch.Index),
				Width:   width,
				Bounds:  bounds,
				Glyphs:  glyph.Build(grid, glyph.Options{MinLength: a.minLength}),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug("assembled quiver overlay",
		"channels", len(groups),
		"decimation", req.Decimation,
		"rowWorkers", rowWorkers,
		"scale", req.Scale)
	return groups, nil
}

// Draw assembles frame and hands the groups to r
func (a *Assembler) Draw(ctx context.Context, frame *models.MultiChannelField, req Request, r Renderer) error {
	groups, err := a.Assemble(ctx, frame, req)
	if err != nil {
		return err
	}
	return r.Render(groups)
}
