package main

import (
	"context"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"pafoverlay/pkg/config"
)

func TestParseChannels(t *testing.T) {
	got, err := parseChannels(" 2, 0,,5 ")
	if err != nil {
		t.Fatalf("parseChannels failed: %v", err)
	}
	want := []int{2, 0, 5}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
	if _, err := parseChannels("1,x"); err == nil {
		t.Error("Expected error for non-numeric channel")
	}
}

func TestSyntheticRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Input.Path = filepath.Join(dir, "demo.pafz")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Render.Decimation = 8
	cfg.Render.Channels = []int{3, 1}

	if err := writeSynthetic(cfg, 3); err != nil {
		t.Fatalf("writeSynthetic failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), cfg, logger, 1, true, ""); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, name := range []string{"frame_0001.png", "frame_0002.png"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}

func TestRunEmptyChannelListDrawsAllFields(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Input.Path = filepath.Join(dir, "demo.pafz")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Render.Decimation = 8
	cfg.Render.Channels = []int{}

	if err := writeSynthetic(cfg, 1); err != nil {
		t.Fatalf("writeSynthetic failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), cfg, logger, 0, false, ""); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	file, err := os.Open(filepath.Join(cfg.Output.Dir, "frame_0000.png"))
	if err != nil {
		t.Fatalf("Expected frame_0000.png: %v", err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}

	// the canvas is black; any lit pixel means arrows were drawn
	lit := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r|g|bl != 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("Expected arrows for an empty channel list, got a blank frame")
	}
}
