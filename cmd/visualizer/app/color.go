package app

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme is a colour scheme for bar heights normalised to [0, 1].
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Dark grey to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white
	EnhancedTheme  ColorTheme = "enhanced"  // Multi stage blue, cyan, yellow, red

	DefaultBarTheme     = ClassicTheme
	DefaultColorMapSize = 256
)

var validBarThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
	EnhancedTheme:  {},
}

// ColorMapper maps a value within [min, max] to a pre-computed theme colour.
type ColorMapper struct {
	colorMap      []color.RGBA
	size          int
	boundsMin     float64
	valuePerIndex float64
}

// NewColorMapper creates a mapper for values in [minValue, maxValue].
func NewColorMapper(theme ColorTheme, minValue, maxValue float64) *ColorMapper {
	return NewColorMapperWithSize(theme, minValue, maxValue, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a mapper with size pre-computed colours.
func NewColorMapperWithSize(theme ColorTheme, minValue, maxValue float64, size int) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}

	fn := getColorTheme(theme)
	cm := &ColorMapper{
		colorMap:  make([]color.RGBA, size),
		size:      size,
		boundsMin: minValue,
	}
	for i := range cm.colorMap {
		cm.colorMap[i] = toRGBA(fn(float64(i) / float64(size-1)))
	}

	cm.valuePerIndex = (maxValue - minValue) / float64(size-1)
	return cm
}

// Color returns the colour of value, clamped to the mapper bounds.
func (cm *ColorMapper) Color(value float64) color.RGBA {
	if cm.valuePerIndex <= 0 || math.IsNaN(value) {
		return cm.colorMap[cm.size-1]
	}

	index := int((value - cm.boundsMin) / cm.valuePerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

func getColorTheme(theme ColorTheme) func(float64) colorful.Color {
	switch theme {
	case GrayscaleTheme:
		return func(v float64) colorful.Color {
			g := 0.25 + math.Pow(v, 0.7)*0.75
			return colorful.Color{R: g, G: g, B: g}
		}

	case JungleTheme:
		return func(v float64) colorful.Color {
			return colorful.Hsv(120-(v*60), 1.0, 0.3+(math.Pow(v, 0.6)*0.7))
		}

	case ThermalTheme:
		return func(v float64) colorful.Color {
			switch {
			case v < 0.33:
				return colorful.Color{R: v * 3}
			case v < 0.66:
				return colorful.Color{R: 1, G: (v - 0.33) * 3}
			default:
				return colorful.Color{R: 1, G: 1, B: math.Min(1, (v-0.66)*3)}
			}
		}

	case MarineTheme:
		return func(v float64) colorful.Color {
			return colorful.Hsv(240-(v*60), 1.0-(v*0.8), 0.3+(math.Pow(v, 0.6)*0.7))
		}

	case EnhancedTheme:
		return func(v float64) colorful.Color {
			enhanced := math.Pow(v, 0.7)

			switch {
			case v < 0.25:
				return colorful.Hsv(240, 1.0, math.Min(1, enhanced*4))
			case v < 0.5:
				return colorful.Hsv(240-((v-0.25)*240), 1.0, math.Min(1, enhanced*1.5))
			case v < 0.75:
				return colorful.Hsv(180-((v-0.5)*4*120), 1.0, math.Min(1, enhanced*1.5))
			default:
				return colorful.Hsv(60-((v-0.75)*4*60), 1.0, 1.0)
			}
		}

	default: // classic
		return func(v float64) colorful.Color {
			return colorful.Hsv(240-(v*240), 0.9+(v*0.1), 0.35+math.Pow(v, 0.7)*0.65)
		}
	}
}

// named colours accepted by -color besides #rrggbb
var namedColors = map[string]string{
	"white":   "#ffffff",
	"black":   "#000000",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
	"lime":    "#00ff00",
	"pink":    "#ffc0cb",
}

func parseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour '%s': %w", s, err)
	}
	return toRGBA(c), nil
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
