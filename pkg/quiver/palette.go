package quiver

import "pafoverlay/internal/models"

// defaultPalette is the channel color table. Channel k is drawn with
// entry k % len; colors alternate between a bright and a dark shade of
// each hue.
var defaultPalette = [...]models.RGB{
	{204, 81, 81},
	{127, 51, 51},
	{81, 204, 204},
	{51, 127, 127},
	{142, 204, 81},
	{89, 127, 51},
	{142, 81, 204},
	{89, 51, 127},
	{204, 173, 81},
	{127, 108, 51},
	{81, 204, 112},
	{51, 127, 70},
	{81, 112, 204},
	{51, 70, 127},
	{204, 81, 173},
	{127, 51, 108},
}

// DefaultPalette returns a copy of the built-in channel colors
func DefaultPalette() []models.RGB {
	p := defaultPalette
	return p[:]
}

// colorFor picks the palette entry for a channel index
func colorFor(palette []models.RGB, channel int) models.RGB {
	return palette[channel%len(palette)]
}
