// Package config provides configuration loading and management for pafoverlay.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"pafoverlay/internal/models"
	"pafoverlay/pkg/quiver"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Render parameters
	Render struct {
		// Decimation is the tile size averaged into one arrow
		Decimation int `yaml:"decimation"`

		// Scale relates field pixels to display pixels (display = field / scale)
		Scale float64 `yaml:"scale"`

		// Channels lists the fields to draw; empty or missing draws all of them
		Channels []int `yaml:"channels"`

		// MinLength is the vector length at or below which no arrow is drawn
		MinLength float64 `yaml:"minLength"`

		// Workers bounds parallel channel processing
		Workers int `yaml:"workers"`
	} `yaml:"render"`

	// Palette holds the channel colors as [r, g, b] triples in 0-255
	Palette [][3]int `yaml:"palette"`

	// Input parameters
	Input struct {
		// Path is the frame archive to read
		Path string `yaml:"path"`

		// Layout is used when writing synthetic archives
		Layout string `yaml:"layout"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Dir is where rendered overlays are written
		Dir string `yaml:"dir"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// Compress selects zstd payloads for archives written by the tool
		Compress bool `yaml:"compress"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Render.Decimation = 2
	cfg.Render.Scale = 1.0
	cfg.Render.MinLength = 0.01
	cfg.Render.Workers = runtime.NumCPU()

	for _, c := range quiver.DefaultPalette() {
		cfg.Palette = append(cfg.Palette, [3]int{int(c.R), int(c.G), int(c.B)})
	}

	cfg.Input.Layout = models.ChannelsLast.String()

	cfg.Output.Dir = "overlays"
	cfg.Output.Verbose = false
	cfg.Output.Compress = true

	return cfg
}

// Validate checks values that would make every render call fail
func (c *Config) Validate() error {
	if c.Render.Decimation < 1 {
		return fmt.Errorf("render.decimation must be >= 1, got %d", c.Render.Decimation)
	}
	if !(c.Render.Scale > 0) || math.IsInf(c.Render.Scale, 0) {
		return fmt.Errorf("render.scale must be > 0, got %v", c.Render.Scale)
	}
	if c.Render.MinLength < 0 {
		return fmt.Errorf("render.minLength must not be negative, got %v", c.Render.MinLength)
	}
	for i, p := range c.Palette {
		for _, v := range p {
			if v < 0 || v > 255 {
				return fmt.Errorf("palette[%d] component %d outside 0-255", i, v)
			}
		}
	}
	if _, err := models.ParseLayout(c.Input.Layout); err != nil {
		return fmt.Errorf("input.layout: %w", err)
	}
	return nil
}

// ChannelSelection returns the configured fields to draw. An empty list
// selects every field, so it maps to nil.
func (c *Config) ChannelSelection() []int {
	if len(c.Render.Channels) == 0 {
		return nil
	}
	return c.Render.Channels
}

// Colors converts the palette to display colors
func (c *Config) Colors() []models.RGB {
	out := make([]models.RGB, len(c.Palette))
	for i, p := range c.Palette {
		out[i] = models.RGB{R: uint8(p[0]), G: uint8(p[1]), B: uint8(p[2])}
	}
	return out
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
