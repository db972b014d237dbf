package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

const (
	barBottom       = 0.1  // Radial offset every bar starts from
	polarRadiusFrac = 0.385 // Plot radius as a fraction of the figure side
	arcStep         = math.Pi / 90
)

var (
	polarBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	polarForeground = color.RGBA{A: 0xff}
)

// PolarRenderer draws the scaled leading magnitudes of a frame as bars
// arranged around a circle.
type PolarRenderer struct {
	dataset   *spectrum.Dataset
	estimator *spectrum.Estimator
	config    RenderConfig

	size   image.Point
	center struct{ X, Y float32 }
	radius float64

	img        *image.RGBA
	rasterizer *vector.Rasterizer
	annotator  *annotator
}

// NewPolarRenderer creates a polar bar renderer on a square figure.
func NewPolarRenderer(d *spectrum.Dataset, est *spectrum.Estimator, config RenderConfig) (*PolarRenderer, error) {
	size := figureSize(polarSide, polarSide, config.DPI)

	ann, err := newAnnotator(config.DPI, titleFontSize, polarForeground)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}

	r := &PolarRenderer{
		dataset:    d,
		estimator:  est,
		config:     config,
		size:       size,
		radius:     float64(size.X) * polarRadiusFrac,
		img:        image.NewRGBA(image.Rectangle{Max: size}),
		rasterizer: vector.NewRasterizer(0, 0),
		annotator:  ann,
	}
	r.center.X = float32(size.X) / 2
	r.center.Y = float32(size.Y) / 2
	return r, nil
}

func (r *PolarRenderer) Size() image.Point {
	return r.size
}

func (r *PolarRenderer) Render(frame int) (*image.RGBA, error) {
	bars, err := r.estimator.BarSeries(r.dataset, frame)
	if err != nil {
		return nil, err
	}

	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(polarBackground), image.Point{}, draw.Src)

	var peak float64
	for _, h := range bars {
		peak = math.Max(peak, math.Abs(h))
	}
	scale := r.radius / (barBottom + peak)
	colors := NewColorMapper(r.config.BarTheme, 0, peak)

	n := len(bars)
	width := 2 * math.Pi / float64(n)
	for i, h := range bars {
		theta := barAngle(i, n)
		r.fillWedge(theta-width/2, theta+width/2, barBottom*scale, (barBottom+math.Abs(h))*scale, colors.Color(math.Abs(h)))
	}

	if !r.config.NoBorders {
		r.fillRing(r.radius, max(1, r.config.DPI/100), polarForeground)
	}

	if !r.config.NoTitle {
		top := int(r.center.Y) - int(r.radius)
		if err = r.annotator.drawCentered(r.img, frameTitle(r.dataset, frame), int(r.center.X), top-r.annotator.lineHeight()/2); err != nil {
			return nil, fmt.Errorf("drawing title: %w", err)
		}
	}

	return r.img, nil
}

// barAngle places n bars evenly over [0, 2π] with both ends included.
func barAngle(i, n int) float64 {
	if n < 2 {
		return 0
	}
	return 2 * math.Pi * float64(i) / float64(n-1)
}

// polar converts a polar coordinate to image space, 0 rad pointing right
// and angles growing counter clockwise.
func (r *PolarRenderer) polar(theta, radius float64) (float32, float32) {
	return r.center.X + float32(radius*math.Cos(theta)), r.center.Y - float32(radius*math.Sin(theta))
}

// fillWedge fills the annular sector between the two angles and radii.
func (r *PolarRenderer) fillWedge(from, to, inner, outer float64, c color.Color) {
	if outer-inner < 0.5 {
		return
	}

	path := make([][2]float32, 0, 16)
	for a := from; a < to; a += arcStep {
		x, y := r.polar(a, outer)
		path = append(path, [2]float32{x, y})
	}
	x, y := r.polar(to, outer)
	path = append(path, [2]float32{x, y})
	for a := to; a > from; a -= arcStep {
		x, y = r.polar(a, inner)
		path = append(path, [2]float32{x, y})
	}
	x, y = r.polar(from, inner)
	path = append(path, [2]float32{x, y})

	r.fillPath(c, path)
}

// fillRing strokes a circle of the given radius.
func (r *PolarRenderer) fillRing(radius, thickness float64, c color.Color) {
	path := make([][2]float32, 0, 400)
	for a := 0.0; a < 2*math.Pi; a += arcStep {
		x, y := r.polar(a, radius)
		path = append(path, [2]float32{x, y})
	}
	outer := len(path)
	for a := 2 * math.Pi; a > 0; a -= arcStep {
		x, y := r.polar(a, radius-thickness)
		path = append(path, [2]float32{x, y})
	}

	r.fillPath(c, path[:outer], path[outer:])
}

// fillPath rasterizes closed polygons within their bounding box. Opposite
// windings cancel out.
func (r *PolarRenderer) fillPath(c color.Color, polygons ...[][2]float32) {
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	var maxX, maxY float32
	for _, polygon := range polygons {
		for _, p := range polygon {
			minX, minY = min(minX, p[0]), min(minY, p[1])
			maxX, maxY = max(maxX, p[0]), max(maxY, p[1])
		}
	}

	bounds := image.Rect(int(minX), int(minY), int(math.Ceil(float64(maxX)))+1, int(math.Ceil(float64(maxY)))+1).
		Intersect(r.img.Bounds())
	if bounds.Empty() {
		return
	}

	z := r.rasterizer
	z.Reset(bounds.Dx(), bounds.Dy())
	ox, oy := float32(bounds.Min.X), float32(bounds.Min.Y)
	for _, polygon := range polygons {
		z.MoveTo(polygon[0][0]-ox, polygon[0][1]-oy)
		for _, p := range polygon[1:] {
			z.LineTo(p[0]-ox, p[1]-oy)
		}
		z.ClosePath()
	}
	z.Draw(r.img, bounds, image.NewUniform(c), image.Point{})
}
