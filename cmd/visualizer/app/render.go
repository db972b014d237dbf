package app

import (
	"fmt"
	"image"
	"image/color"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

// Figure sizes in inches
const (
	standardWidth  = 6.4
	standardHeight = 4.8
	wideWidth      = 8.0
	wideHeight     = 4.5
	polarSide      = 8.0
)

// FrameRenderer produces one video frame per dataset frame. Every frame has
// the same size and the returned image is only valid until the next call.
type FrameRenderer interface {
	Size() image.Point
	Render(frame int) (*image.RGBA, error)
}

// RenderConfig holds the options shared by the renderers
type RenderConfig struct {
	DPI       float64
	Wide      bool
	NoTitle   bool
	NoLabels  bool
	NoBorders bool
	LogScale  bool
	LineColor *color.RGBA // nil selects the theme colour
	Theme     Theme
	BarTheme  ColorTheme
	Axis      spectrum.AxisRange
}

func newRenderConfig(c *Config, axis spectrum.AxisRange) (RenderConfig, error) {
	rc := RenderConfig{
		DPI:       c.DPI,
		Wide:      c.Wide,
		NoTitle:   c.NoTitle,
		NoLabels:  c.NoLabels,
		NoBorders: c.NoBorders,
		LogScale:  c.LogScale,
		Theme:     c.Theme,
		BarTheme:  c.BarTheme,
		Axis:      axis,
	}

	if c.LineColor != "" {
		lc, err := parseColor(c.LineColor)
		if err != nil {
			return RenderConfig{}, err
		}
		rc.LineColor = &lc
	}
	return rc, nil
}

// NewFrameRenderer creates the renderer for mode.
func NewFrameRenderer(mode spectrum.Mode, d *spectrum.Dataset, est *spectrum.Estimator, config RenderConfig) (FrameRenderer, error) {
	switch mode {
	case spectrum.ModePolar:
		return NewPolarRenderer(d, est, config)
	case spectrum.ModeLine:
		return NewLineRenderer(d, est, config)
	default:
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}
}

// figureSize converts inches to pixels. Both sides are rounded down to even
// values as required by yuv420p encoding.
func figureSize(widthIn, heightIn, dpi float64) image.Point {
	even := func(v float64) int {
		n := int(v) &^ 1
		return max(n, 2)
	}
	return image.Pt(even(widthIn*dpi), even(heightIn*dpi))
}

func frameTitle(d *spectrum.Dataset, frame int) string {
	return fmt.Sprintf("Sample %s", d.Channel1[frame].Begin)
}
