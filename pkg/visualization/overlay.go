// Package visualization draws quiver overlays onto video frames and saves
// them as PNG sequences.
package visualization

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"

	"pafoverlay/internal/models"
	"pafoverlay/pkg/quiver"
)

// Overlay is a paint surface for glyph groups. It implements
// quiver.Renderer.
type Overlay struct {
	dc *gg.Context
}

var _ quiver.Renderer = (*Overlay)(nil)

// NewOverlay creates a surface of the given display size. When background
// is non-nil the arrows are drawn over it and its size wins.
func NewOverlay(width, height int, background image.Image) *Overlay {
	if background != nil {
		return &Overlay{dc: gg.NewContextForImage(background)}
	}
	dc := gg.NewContext(width, height)
	dc.ClearWithColor(gg.Black)
	return &Overlay{dc: dc}
}

// Render strokes every glyph group with its own color and pen width.
// Each group is drawn as one batch of independent line segments.
func (o *Overlay) Render(groups []models.GlyphGroup) error {
	for _, g := range groups {
		if len(g.Glyphs) == 0 {
			continue
		}
		o.dc.SetRGB(float64(g.Color.R)/255, float64(g.Color.G)/255, float64(g.Color.B)/255)
		o.dc.SetLineWidth(g.Width)
		for _, s := range g.Lines() {
			o.dc.DrawLine(s.X1, s.Y1, s.X2, s.Y2)
		}
		if err := o.dc.Stroke(); err != nil {
			return fmt.Errorf("failed to stroke channel %d: %w", g.Channel, err)
		}
	}
	return nil
}

// Image returns the rendered surface
func (o *Overlay) Image() image.Image {
	return o.dc.Image()
}

// SavePNG writes the surface to path
func (o *Overlay) SavePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return o.dc.SavePNG(path)
}

// Close releases the drawing context
func (o *Overlay) Close() error {
	return o.dc.Close()
}

// LoadImage decodes a PNG or JPEG background frame
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// FrameSource supplies frames by index
type FrameSource interface {
	Frames() int
	Frame(i int) (*models.MultiChannelField, error)
}

// SequenceOptions controls RenderSequence
type SequenceOptions struct {
	// First and Last bound the frame range (inclusive). Last < 0 means the
	// final frame.
	First, Last int

	// Background, when set, is drawn under every frame
	Background image.Image

	// OnFrame is called after each frame is written
	OnFrame func(index int, path string, groups []models.GlyphGroup)
}

// RenderSequence draws frames [First, Last] of src into dir as
// frame_NNNN.png and returns the number of files written.
func RenderSequence(ctx context.Context, src FrameSource, a *quiver.Assembler, req quiver.Request, dir string, opts SequenceOptions) (int, error) {
	last := opts.Last
	if last < 0 || last >= src.Frames() {
		last = src.Frames() - 1
	}
	if opts.First < 0 || opts.First > last {
		return 0, fmt.Errorf("frame range [%d, %d] is empty", opts.First, last)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := 0
	for i := opts.First; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		frame, err := src.Frame(i)
		if err != nil {
			return written, fmt.Errorf("failed to read frame %d: %w", i, err)
		}
		groups, err := a.Assemble(ctx, frame, req)
		if err != nil {
			return written, fmt.Errorf("failed to assemble frame %d: %w", i, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		if err := renderFrame(groups, frame, req.Scale, opts.Background, path); err != nil {
			return written, err
		}
		written++
		if opts.OnFrame != nil {
			opts.OnFrame(i, path, groups)
		}
	}
	return written, nil
}

// renderFrame draws one frame's groups and saves it
func renderFrame(groups []models.GlyphGroup, frame *models.MultiChannelField, scale float64, background image.Image, path string) error {
	w := int(float64(frame.Width) / scale)
	h := int(float64(frame.Height) / scale)
	overlay := NewOverlay(max(w, 1), max(h, 1), background)
	defer overlay.Close()

	if err := overlay.Render(groups); err != nil {
		return err
	}
	if err := overlay.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
