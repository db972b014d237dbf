package app

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

const (
	axisNameFrequency = "Frequency [Hz]"
	axisNameMagnitude = "Magnitude"
)

type lineTheme struct {
	background drawing.Color
	foreground drawing.Color
	line       drawing.Color
}

var lineThemes = map[Theme]lineTheme{
	DarkTheme: {
		background: drawing.ColorBlack,
		foreground: drawing.ColorWhite,
		line:       drawing.ColorWhite,
	},
	LightTheme: {
		background: drawing.ColorWhite,
		foreground: drawing.ColorBlack,
		line:       drawing.Color{B: 0xff, A: 0xff},
	},
}

// LineRenderer draws the spectrum of a frame and its mirror image around the
// frequency axis.
type LineRenderer struct {
	dataset   *spectrum.Dataset
	estimator *spectrum.Estimator
	config    RenderConfig
	theme     lineTheme

	size   image.Point
	xRange chart.ContinuousRange
	yRange chart.ContinuousRange
	xTicks []chart.Tick

	buf bytes.Buffer
	img *image.RGBA
}

// NewLineRenderer creates a line chart renderer with a 4:3 or 16:9 figure.
func NewLineRenderer(d *spectrum.Dataset, est *spectrum.Estimator, config RenderConfig) (*LineRenderer, error) {
	theme, ok := lineThemes[config.Theme]
	if !ok {
		theme = lineThemes[DarkTheme]
	}
	if config.LineColor != nil {
		lc := config.LineColor
		theme.line = drawing.Color{R: lc.R, G: lc.G, B: lc.B, A: lc.A}
	}

	size := figureSize(standardWidth, standardHeight, config.DPI)
	if config.Wide {
		size = figureSize(wideWidth, wideHeight, config.DPI)
	}

	r := &LineRenderer{
		dataset:   d,
		estimator: est,
		config:    config,
		theme:     theme,
		size:      size,
		img:       image.NewRGBA(image.Rectangle{Max: size}),
	}

	xMin, xMax := config.Axis.FreqMin, config.Axis.FreqMax
	if config.LogScale {
		xMin, xMax = logAxisBounds(d.Freqs, xMin, xMax)
		r.xTicks = log2Ticks(xMin, xMax)
	}
	xMin, xMax = nonEmptyRange(xMin, xMax)
	r.xRange = chart.ContinuousRange{Min: xMin, Max: xMax}

	yMin, yMax := nonEmptyRange(config.Axis.MagMin, config.Axis.MagMax)
	r.yRange = chart.ContinuousRange{Min: yMin, Max: yMax}

	return r, nil
}

func (r *LineRenderer) Size() image.Point {
	return r.size
}

func (r *LineRenderer) Render(frame int) (*image.RGBA, error) {
	series, err := r.estimator.FrameSeries(r.dataset, frame)
	if err != nil {
		return nil, err
	}

	xs, ys := r.points(series)
	_, mirrored := r.points(series.Mirror())

	font, err := loadFont()
	if err != nil {
		return nil, err
	}

	lineStyle := chart.Style{StrokeColor: r.theme.line, StrokeWidth: 1}
	axisStyle := chart.Style{
		StrokeColor: r.theme.foreground,
		FontColor:   r.theme.foreground,
		FontSize:    10,
	}
	canvas := chart.Style{FillColor: r.theme.background}
	if r.config.NoBorders {
		axisStyle.StrokeColor = drawing.ColorTransparent
	} else {
		canvas.StrokeColor = r.theme.foreground
		canvas.StrokeWidth = 1
	}
	nameStyle := chart.Style{FontColor: r.theme.foreground, FontSize: 10}

	ch := chart.Chart{
		Width:      r.size.X,
		Height:     r.size.Y,
		DPI:        r.config.DPI,
		Font:       font,
		Background: chart.Style{FillColor: r.theme.background, Padding: chart.Box{Top: 20, Left: 16, Right: 24, Bottom: 12}},
		Canvas:     canvas,
		XAxis: chart.XAxis{
			NameStyle:      nameStyle,
			Style:          axisStyle,
			Range:          &r.xRange,
			Ticks:          r.xTicks,
			ValueFormatter: r.formatFrequency,
		},
		YAxis: chart.YAxis{
			NameStyle:      nameStyle,
			Style:          axisStyle,
			Range:          &r.yRange,
			ValueFormatter: formatMagnitude,
		},
		Series: r.series(xs, ys, mirrored, lineStyle),
	}

	if !r.config.NoTitle {
		ch.Title = frameTitle(r.dataset, frame)
		ch.TitleStyle = chart.Style{FontColor: r.theme.foreground, FontSize: titleFontSize}
	}
	if !r.config.NoLabels {
		ch.XAxis.Name = axisNameFrequency
		ch.YAxis.Name = axisNameMagnitude
	}

	r.buf.Reset()
	if err = ch.Render(chart.PNG, &r.buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}

	img, err := png.Decode(&r.buf)
	if err != nil {
		return nil, fmt.Errorf("decoding chart: %w", err)
	}

	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.theme.background), image.Point{}, draw.Src)
	draw.Draw(r.img, r.img.Bounds(), img, img.Bounds().Min, draw.Src)
	return r.img, nil
}

// points maps the series into axis space. Non-positive frequencies have no
// place on a log axis and are dropped.
func (r *LineRenderer) points(s spectrum.Series) (xs, ys []float64) {
	n := min(len(s.Freqs), len(s.Magnitudes))
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)

	for i := 0; i < n; i++ {
		x := s.Freqs[i]
		if r.config.LogScale {
			if x <= 0 {
				continue
			}
			x = math.Log2(x)
		}
		xs = append(xs, x)
		ys = append(ys, s.Magnitudes[i])
	}
	return xs, ys
}

// series clips both traces to the axis ranges. The chart draws lines past
// its canvas, so every visible run of a trace becomes its own series.
func (r *LineRenderer) series(xs, ys, mirrored []float64, style chart.Style) []chart.Series {
	var out []chart.Series
	for _, values := range [][]float64{ys, mirrored} {
		for _, t := range clipPolyline(xs, values, r.xRange, r.yRange) {
			out = append(out, chart.ContinuousSeries{XValues: t.xs, YValues: t.ys, Style: style})
		}
	}

	if len(out) == 0 {
		// the chart needs at least one series to lay out the axes
		out = append(out, chart.ContinuousSeries{
			XValues: []float64{r.xRange.Min, r.xRange.Max},
			YValues: []float64{r.yRange.Min, r.yRange.Min},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1},
		})
	}
	return out
}

type trace struct {
	xs, ys []float64
}

// clipPolyline cuts a polyline at the edges of the box. Segments leaving the
// box end on its edge and the polyline resumes where it re-enters.
func clipPolyline(xs, ys []float64, xr, yr chart.ContinuousRange) []trace {
	var traces []trace
	open := false

	for i := 1; i < min(len(xs), len(ys)); i++ {
		x0, y0, x1, y1 := xs[i-1], ys[i-1], xs[i], ys[i]
		t0, t1, ok := clipSegment(x0, y0, x1, y1, xr, yr)
		if !ok {
			open = false
			continue
		}

		if !open || t0 > 0 {
			traces = append(traces, trace{
				xs: []float64{x0 + t0*(x1-x0)},
				ys: []float64{y0 + t0*(y1-y0)},
			})
			open = true
		}
		t := &traces[len(traces)-1]
		t.xs = append(t.xs, x0+t1*(x1-x0))
		t.ys = append(t.ys, y0+t1*(y1-y0))

		if t1 < 1 {
			open = false
		}
	}
	return traces
}

// clipSegment returns the parameter interval of the segment inside the box
// (Liang-Barsky).
func clipSegment(x0, y0, x1, y1 float64, xr, yr chart.ContinuousRange) (t0, t1 float64, ok bool) {
	t0, t1 = 0, 1
	dx, dy := x1-x0, y1-y0

	for _, edge := range [4][2]float64{
		{-dx, x0 - xr.Min},
		{dx, xr.Max - x0},
		{-dy, y0 - yr.Min},
		{dy, yr.Max - y0},
	} {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}

		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, false
			}
			t1 = min(t1, t)
		}
	}
	return t0, t1, true
}

func (r *LineRenderer) formatFrequency(v any) string {
	hz, ok := v.(float64)
	if !ok {
		return ""
	}
	if r.config.LogScale {
		hz = math.Exp2(hz)
	}
	return humanHz(hz)
}

func formatMagnitude(v any) string {
	if f, ok := v.(float64); ok {
		return humanize.FtoaWithDigits(f, 2)
	}
	return ""
}

func humanHz(hz float64) string {
	value, prefix := humanize.ComputeSI(hz)
	return humanize.FtoaWithDigits(value, 1) + " " + prefix + "Hz"
}

// logAxisBounds returns the log2 frequency bounds. The lower bound is raised
// to the lowest positive frequency when the linear range starts at or below 0.
func logAxisBounds(freqs []float64, minFreq, maxFreq float64) (float64, float64) {
	if minFreq <= 0 {
		minFreq = math.Inf(1)
		for _, f := range freqs {
			if f > 0 {
				minFreq = math.Min(minFreq, f)
			}
		}
		if math.IsInf(minFreq, 1) {
			minFreq = 1
		}
	}
	if maxFreq <= minFreq {
		maxFreq = minFreq * 2
	}
	return math.Log2(minFreq), math.Log2(maxFreq)
}

// log2Ticks places a tick on every power of two within [lo, hi].
func log2Ticks(lo, hi float64) []chart.Tick {
	var ticks []chart.Tick
	for e := math.Ceil(lo); e <= math.Floor(hi); e++ {
		ticks = append(ticks, chart.Tick{Value: e, Label: humanHz(math.Exp2(e))})
	}
	if len(ticks) < 2 {
		ticks = []chart.Tick{
			{Value: lo, Label: humanHz(math.Exp2(lo))},
			{Value: hi, Label: humanHz(math.Exp2(hi))},
		}
	}
	return ticks
}

func nonEmptyRange(lo, hi float64) (float64, float64) {
	if math.IsNaN(lo) || math.IsInf(lo, 0) {
		lo = 0
	}
	if math.IsNaN(hi) || math.IsInf(hi, 0) || hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}
