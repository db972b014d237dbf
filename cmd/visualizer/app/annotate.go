package app

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const titleFontSize = 12.0 // points

var loadFont = sync.OnceValues(func() (*truetype.Font, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return f, nil
})

// annotator draws text onto frames
type annotator struct {
	context  *freetype.Context
	fontFace font.Face
}

func newAnnotator(dpi, size float64, c color.Color) (*annotator, error) {
	parsedFont, err := loadFont()
	if err != nil {
		return nil, err
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.NewUniform(c))

	return &annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingFull,
		}),
	}, nil
}

// lineHeight returns the height of a text line in pixels
func (a *annotator) lineHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

// drawCentered draws label horizontally centred on x with its baseline at y.
func (a *annotator) drawCentered(img *image.RGBA, label string, x, y int) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	width := font.MeasureString(a.fontFace, label)
	pt := freetype.Pt(x-width.Round()/2, y)
	if _, err := a.context.DrawString(label, pt); err != nil {
		return fmt.Errorf("drawing label '%s': %w", label, err)
	}
	return nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}
