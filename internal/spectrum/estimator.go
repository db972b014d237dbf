package spectrum

import (
	"fmt"
	"math"
)

const (
	DefaultMagnitudeHeadroom = 1.1
	DefaultNoiseThreshold    = 0.15 // Fraction of the magnitude bound
	DefaultFrequencyHeadroom = 1.01
	DefaultFrequencyMargin   = 0.01 // Left padding of the line chart frequency axis
	DefaultBarScale          = 40
	DefaultBarCap            = 500
)

// EstimatorConfig holds the constants of the range heuristics. Zero values
// fall back to the defaults. NoiseThreshold and FrequencyMargin accept an
// explicit 0, so only nil selects their defaults.
type EstimatorConfig struct {
	MagnitudeHeadroom float64  `yaml:"magnitudeHeadroom"`
	NoiseThreshold    *float64 `yaml:"noiseThreshold"`
	FrequencyHeadroom float64  `yaml:"frequencyHeadroom"`
	FrequencyMargin   *float64 `yaml:"frequencyMargin"`
	BarScale          float64 `yaml:"barScale"`
	BarCap            int     `yaml:"barCap"`

	// SkipRangeValidation lets inverted or degenerate user ranges through
	// unchanged instead of failing with ErrInvalidRange.
	SkipRangeValidation bool `yaml:"skipRangeValidation"`
}

// Estimator computes display ranges and per-frame series for a dataset.
// It keeps no state besides its configuration and is safe for concurrent use.
type Estimator struct {
	config EstimatorConfig

	noiseThreshold  float64
	frequencyMargin float64
}

// NewEstimator creates an estimator, filling unset config fields with defaults.
func NewEstimator(config EstimatorConfig) *Estimator {
	if config.MagnitudeHeadroom == 0 {
		config.MagnitudeHeadroom = DefaultMagnitudeHeadroom
	}
	if config.NoiseThreshold == nil {
		threshold := DefaultNoiseThreshold
		config.NoiseThreshold = &threshold
	}
	if config.FrequencyHeadroom == 0 {
		config.FrequencyHeadroom = DefaultFrequencyHeadroom
	}
	if config.FrequencyMargin == nil {
		margin := DefaultFrequencyMargin
		config.FrequencyMargin = &margin
	}
	if config.BarScale == 0 {
		config.BarScale = DefaultBarScale
	}
	if config.BarCap == 0 {
		config.BarCap = DefaultBarCap
	}

	return &Estimator{
		config:          config,
		noiseThreshold:  *config.NoiseThreshold,
		frequencyMargin: *config.FrequencyMargin,
	}
}

// Config returns the effective configuration.
func (e *Estimator) Config() EstimatorConfig {
	return e.config
}

// MagnitudeBound returns the headroom scaled maximum absolute magnitude of the
// whole dataset.
func (e *Estimator) MagnitudeBound(d *Dataset) (float64, error) {
	peak, found := 0.0, false
	for _, frame := range d.Channel1 {
		for _, v := range frame.Spectrum {
			peak = math.Max(peak, math.Abs(v))
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("computing magnitude bound: %w", ErrEmptyDataset)
	}

	return peak * e.config.MagnitudeHeadroom, nil
}

// FrequencyBound returns the headroom scaled highest frequency whose magnitude
// exceeds the noise threshold in any frame, or 0 when no bin does. The last
// bin is never considered.
func (e *Estimator) FrequencyBound(d *Dataset, magnitudeBound float64) float64 {
	threshold := magnitudeBound * e.noiseThreshold
	bins := scannedBins(d)

	var highest float64
	var found bool
	for _, frame := range d.Channel1 {
		for bin, v := range frame.Spectrum[:min(len(frame.Spectrum), bins)] {
			if math.Abs(v) <= threshold {
				continue
			}
			if !found || d.Freqs[bin] > highest {
				highest = d.Freqs[bin]
				found = true
			}
		}
	}
	if !found {
		return 0
	}

	return highest * e.config.FrequencyHeadroom
}

// PeakProfile returns the maximum absolute magnitude of every bin across all
// frames. Both bounds can be derived from it without a second dataset scan.
func (e *Estimator) PeakProfile(d *Dataset) ([]float64, error) {
	if len(d.Channel1) == 0 || len(d.Freqs) == 0 {
		return nil, fmt.Errorf("computing peak profile: %w", ErrEmptyDataset)
	}

	profile := make([]float64, len(d.Freqs))
	for _, frame := range d.Channel1 {
		for bin, v := range frame.Spectrum[:min(len(frame.Spectrum), len(profile))] {
			profile[bin] = math.Max(profile[bin], math.Abs(v))
		}
	}
	return profile, nil
}

// Bounds derives the magnitude and frequency bounds in a single dataset pass.
// The results equal MagnitudeBound and FrequencyBound.
func (e *Estimator) Bounds(d *Dataset) (magnitudeBound, frequencyBound float64, err error) {
	profile, err := e.PeakProfile(d)
	if err != nil {
		return 0, 0, err
	}

	var peak float64
	for _, v := range profile {
		peak = math.Max(peak, v)
	}
	magnitudeBound = peak * e.config.MagnitudeHeadroom

	threshold := magnitudeBound * e.noiseThreshold

	var highest float64
	var found bool
	for bin, v := range profile[:scannedBins(d)] {
		if v <= threshold {
			continue
		}
		if !found || d.Freqs[bin] > highest {
			highest = d.Freqs[bin]
			found = true
		}
	}
	if found {
		frequencyBound = highest * e.config.FrequencyHeadroom
	}

	return magnitudeBound, frequencyBound, nil
}

// ResolveAxisRange returns the axis extents used for rendering. Explicit user
// ranges are used as given, missing ones are estimated from the dataset.
func (e *Estimator) ResolveAxisRange(d *Dataset, mode Mode, userFreq, userMag *Range) (AxisRange, error) {
	for _, r := range []struct {
		name  string
		value *Range
	}{
		{"frequency", userFreq},
		{"magnitude", userMag},
	} {
		if r.value == nil || e.config.SkipRangeValidation {
			continue
		}
		if r.value.Min >= r.value.Max {
			return AxisRange{}, fmt.Errorf("%w: %s range min %g >= max %g", ErrInvalidRange, r.name, r.value.Min, r.value.Max)
		}
	}

	if userFreq != nil && userMag != nil {
		return AxisRange{
			FreqMin: userFreq.Min,
			FreqMax: userFreq.Max,
			MagMin:  userMag.Min,
			MagMax:  userMag.Max,
		}, nil
	}

	magBound, freqBound, err := e.Bounds(d)
	if err != nil {
		return AxisRange{}, fmt.Errorf("resolving axis range: %w", err)
	}

	var ar AxisRange
	if userMag != nil {
		ar.MagMin, ar.MagMax = userMag.Min, userMag.Max
	} else {
		ar.MagMin, ar.MagMax = -magBound, magBound
	}

	switch {
	case userFreq != nil:
		ar.FreqMin, ar.FreqMax = userFreq.Min, userFreq.Max
	case mode == ModeLine:
		ar.FreqMin, ar.FreqMax = -freqBound*e.frequencyMargin, freqBound
	default:
		ar.FreqMin, ar.FreqMax = 0, freqBound
	}

	return ar, nil
}

// FrameSeries returns the frequency axis and the spectrum of frame i, both
// shared with the dataset and therefore read only.
func (e *Estimator) FrameSeries(d *Dataset, i int) (Series, error) {
	if err := checkFrameIndex(d, i); err != nil {
		return Series{}, err
	}
	return Series{Freqs: d.Freqs, Magnitudes: d.Channel1[i].Spectrum}, nil
}

// BarSeries returns the first BarCap magnitudes of frame i multiplied by BarScale.
func (e *Estimator) BarSeries(d *Dataset, i int) ([]float64, error) {
	if err := checkFrameIndex(d, i); err != nil {
		return nil, err
	}

	spectrum := d.Channel1[i].Spectrum
	bars := make([]float64, min(e.config.BarCap, len(spectrum)))
	for j := range bars {
		bars[j] = spectrum[j] * e.config.BarScale
	}
	return bars, nil
}

// scannedBins is the number of leading bins the frequency bound looks at.
// The top bin is excluded.
func scannedBins(d *Dataset) int {
	return max(0, len(d.Freqs)-1)
}

func checkFrameIndex(d *Dataset, i int) error {
	if i < 0 || i >= len(d.Channel1) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(d.Channel1))
	}
	return nil
}
