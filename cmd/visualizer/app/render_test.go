package app

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

func testDataset() *spectrum.Dataset {
	return &spectrum.Dataset{
		Freqs: []float64{0, 100, 200, 400, 800},
		Channel1: []spectrum.Frame{
			{Begin: "0", Spectrum: []float64{1, 0, 0, 0, 0}},
			{Begin: "50", Spectrum: []float64{0.5, 2, -1, 0.1, 0}},
		},
	}
}

func TestFigureSize(t *testing.T) {
	testCases := []struct {
		name          string
		width, height float64
		dpi           float64
		expected      image.Point
	}{
		{"standard", standardWidth, standardHeight, 80, image.Pt(512, 384)},
		{"wide", wideWidth, wideHeight, 80, image.Pt(640, 360)},
		{"polar", polarSide, polarSide, 100, image.Pt(800, 800)},
		{"odd sizes are rounded down to even", standardWidth, standardHeight, 75, image.Pt(480, 360)},
		{"tiny", 0.01, 0.01, 10, image.Pt(2, 2)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, figureSize(tc.width, tc.height, tc.dpi))
		})
	}
}

func TestPolarRenderer(t *testing.T) {
	d := testDataset()
	est := spectrum.NewEstimator(spectrum.EstimatorConfig{})

	r, err := NewFrameRenderer(spectrum.ModePolar, d, est, RenderConfig{DPI: 50, BarTheme: ClassicTheme})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 400), r.Size())

	img, err := r.Render(0)
	require.NoError(t, err)
	assert.Equal(t, r.Size(), img.Bounds().Size())

	pr := r.(*PolarRenderer)
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	// the only non-zero bar points right, bars start off the centre
	cx, cy := int(pr.center.X), int(pr.center.Y)
	assert.Equal(t, white, img.RGBAAt(cx-3, cy))
	assert.NotEqual(t, white, img.RGBAAt(cx+int(pr.radius/2), cy))
	assert.Equal(t, white, img.RGBAAt(cx-int(pr.radius/2), cy))

	_, err = r.Render(len(d.Channel1))
	assert.ErrorIs(t, err, spectrum.ErrIndexOutOfRange)
}

func TestLineRenderer(t *testing.T) {
	d := testDataset()
	est := spectrum.NewEstimator(spectrum.EstimatorConfig{})
	axis, err := est.ResolveAxisRange(d, spectrum.ModeLine, nil, nil)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		config     RenderConfig
		size       image.Point
		background color.RGBA
	}{
		{
			name:       "dark",
			config:     RenderConfig{DPI: 80, Theme: DarkTheme, Axis: axis},
			size:       image.Pt(512, 384),
			background: color.RGBA{A: 0xff},
		},
		{
			name:       "light wide",
			config:     RenderConfig{DPI: 80, Wide: true, Theme: LightTheme, Axis: axis},
			size:       image.Pt(640, 360),
			background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		},
		{
			name:       "log scale without decorations",
			config:     RenderConfig{DPI: 80, Theme: DarkTheme, LogScale: true, NoTitle: true, NoLabels: true, NoBorders: true, Axis: axis},
			size:       image.Pt(512, 384),
			background: color.RGBA{A: 0xff},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewFrameRenderer(spectrum.ModeLine, d, est, tc.config)
			require.NoError(t, err)
			assert.Equal(t, tc.size, r.Size())

			for i := range d.Channel1 {
				img, err := r.Render(i)
				require.NoError(t, err)
				assert.Equal(t, tc.size, img.Bounds().Size())
				assert.Equal(t, tc.background, img.RGBAAt(0, 0))
			}
		})
	}
}

func TestLineRenderer_Points(t *testing.T) {
	s := spectrum.Series{Freqs: []float64{0, 2, 4}, Magnitudes: []float64{9, -1, 3}}

	linear := &LineRenderer{}
	xs, ys := linear.points(s)
	assert.Equal(t, []float64{0, 2, 4}, xs)
	assert.Equal(t, []float64{9, -1, 3}, ys, "magnitudes are not clamped")

	logScale := &LineRenderer{config: RenderConfig{LogScale: true}}
	xs, ys = logScale.points(s.Mirror())
	assert.Equal(t, []float64{1, 2}, xs)
	assert.Equal(t, []float64{1, -3}, ys)
}

func TestClipPolyline(t *testing.T) {
	xr := chart.ContinuousRange{Min: 0, Max: 3}
	yr := chart.ContinuousRange{Min: -2, Max: 2}

	t.Run("peak leaves the plot", func(t *testing.T) {
		traces := clipPolyline([]float64{0, 1, 2, 3}, []float64{0, 4, 0, 0}, xr, yr)
		require.Len(t, traces, 2)
		assert.Equal(t, []float64{0, 0.5}, traces[0].xs)
		assert.Equal(t, []float64{0, 2}, traces[0].ys)
		assert.Equal(t, []float64{1.5, 2, 3}, traces[1].xs)
		assert.Equal(t, []float64{2, 0, 0}, traces[1].ys)
	})

	t.Run("trace runs to the axis edge", func(t *testing.T) {
		traces := clipPolyline([]float64{-1, 1, 5}, []float64{0, 0, 0}, xr, yr)
		require.Len(t, traces, 1)
		assert.Equal(t, []float64{0, 1, 3}, traces[0].xs)
		assert.Equal(t, []float64{0, 0, 0}, traces[0].ys)
	})

	t.Run("outside", func(t *testing.T) {
		assert.Empty(t, clipPolyline([]float64{0, 1}, []float64{5, 6}, xr, yr))
		assert.Empty(t, clipPolyline([]float64{1}, []float64{0}, xr, yr))
	})
}

func TestLog2Ticks(t *testing.T) {
	ticks := log2Ticks(6.5, 10)
	require.Len(t, ticks, 4)
	assert.Equal(t, 7.0, ticks[0].Value)
	assert.Equal(t, "128 Hz", ticks[0].Label)
	assert.Equal(t, "1 kHz", ticks[3].Label)

	ticks = log2Ticks(3.1, 3.9)
	assert.Len(t, ticks, 2, "narrow ranges fall back to the bounds")
}

func TestLogAxisBounds(t *testing.T) {
	lo, hi := logAxisBounds([]float64{0, 2, 4, 8}, -1, 8)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 3.0, hi)

	lo, hi = logAxisBounds(nil, 0, 0)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestNonEmptyRange(t *testing.T) {
	lo, hi := nonEmptyRange(0, 0)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = nonEmptyRange(-2, 3)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 3.0, hi)
}
