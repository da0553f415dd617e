package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pafoverlay/internal/models"
	"pafoverlay/pkg/config"
	"pafoverlay/pkg/framestore"
	"pafoverlay/pkg/quiver"
	"pafoverlay/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "pafoverlay.yaml", "YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	inputPath := flag.String("input", "", "Frame archive to render (overrides input.path)")
	frameIdx := flag.Int("frame", 0, "First frame to render")
	allFrames := flag.Bool("all-frames", false, "Render every frame from -frame to the end")
	channels := flag.String("channels", "", "Comma separated field indices to draw (default: all)")
	decimation := flag.Int("decimation", 0, "Tile size averaged into one arrow (overrides render.decimation)")
	scale := flag.Float64("scale", 0, "Field to display scale (overrides render.scale)")
	background := flag.String("background", "", "PNG or JPEG frame to draw under the arrows")
	outputDir := flag.String("output", "", "Directory for rendered PNGs (overrides output.dir)")
	synthetic := flag.Int("synthetic", 0, "Write a synthetic archive with this many frames to -input and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	// Command line flags win over the config file
	if *inputPath != "" {
		cfg.Input.Path = *inputPath
	}
	if *decimation != 0 {
		cfg.Render.Decimation = *decimation
	}
	if *scale != 0 {
		cfg.Render.Scale = *scale
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *channels != "" {
		sel, err := parseChannels(*channels)
		if err != nil {
			logger.Error("invalid -channels", "err", err)
			os.Exit(1)
		}
		cfg.Render.Channels = sel
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.Input.Path == "" {
		flag.Usage()
		os.Exit(1)
	}

	if *synthetic > 0 {
		if err := writeSynthetic(cfg, *synthetic); err != nil {
			logger.Error("failed to write synthetic archive", "err", err)
			os.Exit(1)
		}
		logger.Info("synthetic archive written", "path", cfg.Input.Path, "frames", *synthetic)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, *frameIdx, *allFrames, *background); err != nil {
		logger.Error("rendering failed", "err", err)
		os.Exit(1)
	}
}

// run renders the requested frames of the configured archive
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, first int, all bool, backgroundPath string) error {
	reader, err := framestore.Open(cfg.Input.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	h := reader.Header()
	logger.Info("opened frame archive",
		"path", cfg.Input.Path,
		"frames", reader.Frames(),
		"height", h.Height,
		"width", h.Width,
		"fields", h.Channels/2,
		"layout", h.Layout.String())

	opts := visualization.SequenceOptions{First: first, Last: first}
	if all {
		opts.Last = -1
	}
	if backgroundPath != "" {
		opts.Background, err = visualization.LoadImage(backgroundPath)
		if err != nil {
			return err
		}
	}
	opts.OnFrame = func(index int, path string, groups []models.GlyphGroup) {
		for _, s := range quiver.Summary(groups) {
			logger.Debug("channel glyphs",
				"frame", index,
				"channel", s.Channel,
				"arrows", s.Count,
				"meanLength", s.MeanLength,
				"maxLength", s.MaxLength)
		}
		logger.Info("frame rendered", "frame", index, "path", path, "groups", len(groups))
	}

	assembler := quiver.NewAssembler(quiver.Params{
		Palette:   cfg.Colors(),
		MinLength: cfg.Render.MinLength,
		Workers:   cfg.Render.Workers,
		Logger:    logger,
	})
	req := quiver.Request{
		Channels:   cfg.ChannelSelection(),
		Decimation: cfg.Render.Decimation,
		Scale:      cfg.Render.Scale,
	}

	start := time.Now()
	n, err := visualization.RenderSequence(ctx, reader, assembler, req, cfg.Output.Dir, opts)
	if err != nil {
		return err
	}
	logger.Info("done",
		"frames", n,
		"output", filepath.Clean(cfg.Output.Dir),
		"elapsed", time.Since(start).String())
	return nil
}

// writeSynthetic fills cfg.Input.Path with a generated sequence
func writeSynthetic(cfg *config.Config, frames int) error {
	layout, err := models.ParseLayout(cfg.Input.Layout)
	if err != nil {
		return err
	}
	opts := framestore.SyntheticOptions{Height: 96, Width: 128, Fields: 4, Layout: layout}
	w, err := framestore.Create(cfg.Input.Path, framestore.Header{
		Height:     opts.Height,
		Width:      opts.Width,
		Channels:   2 * opts.Fields,
		Layout:     layout,
		Compressed: cfg.Output.Compress,
	})
	if err != nil {
		return err
	}
	for t := 0; t < frames; t++ {
		if err := w.WriteFrame(framestore.Synthetic(t, opts)); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// parseChannels reads a list like "2,0,5"
func parseChannels(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", p, err)
		}
		out = append(out, k)
	}
	return out, nil
}
