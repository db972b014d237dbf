package spectrum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Mode selects how the spectrum is visualised. It also decides the cosmetic
// left margin of the automatically resolved frequency axis.
type Mode string

const (
	ModePolar Mode = "polar" // Bar heights arranged around a circle
	ModeLine  Mode = "line"  // Spectrum line mirrored around the frequency axis
)

func (m Mode) String() string {
	return string(m)
}

// Label is a frame timestamp as it appears in the dataset. The producer emits
// either a number (milliseconds) or a preformatted string, the textual form is
// kept verbatim for titles.
type Label string

func (l *Label) UnmarshalJSON(p []byte) error {
	p = bytes.TrimSpace(p)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		*l = ""
		return nil
	}

	if p[0] == '"' {
		var s string
		if err := json.Unmarshal(p, &s); err != nil {
			return fmt.Errorf("spectrum.Label: %w", err)
		}
		*l = Label(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(p, &n); err != nil {
		return fmt.Errorf("spectrum.Label: %w", err)
	}
	*l = Label(n.String())
	return nil
}

// MarshalJSON writes labels that are JSON numbers verbatim and quotes the rest.
func (l Label) MarshalJSON() ([]byte, error) {
	if isJSONNumber(l) {
		return []byte(l), nil
	}
	return json.Marshal(string(l))
}

func isJSONNumber(l Label) bool {
	if l == "" || (l[0] != '-' && (l[0] < '0' || l[0] > '9')) {
		return false
	}
	if !json.Valid([]byte(l)) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(l), &n) == nil
}

func (l Label) String() string {
	return string(l)
}

// Frame is a single time window of the analysed audio.
type Frame struct {
	Begin    Label     `json:"begin"`    // Start of the window
	Spectrum []float64 `json:"spectrum"` // Magnitude per frequency bin, may be signed
}

// Dataset is the whole parsed spectrum document. Index i of every frame's
// spectrum corresponds to Freqs[i]. A Dataset is never mutated after load.
type Dataset struct {
	Freqs    []float64 `json:"freqs"`     // Shared frequency axis in Hz
	Channel1 []Frame   `json:"channel_1"` // Time ordered frames
}

// FrameCount returns the number of frames in the dataset.
func (d *Dataset) FrameCount() int {
	return len(d.Channel1)
}

// BinCount returns the number of frequency bins.
func (d *Dataset) BinCount() int {
	return len(d.Freqs)
}

// Validate checks that every frame spectrum matches the frequency axis.
func (d *Dataset) Validate() error {
	if d.Freqs == nil {
		return fmt.Errorf("%w: missing key 'freqs'", ErrMalformedDataset)
	}
	if d.Channel1 == nil {
		return fmt.Errorf("%w: missing key 'channel_1'", ErrMalformedDataset)
	}

	for i, frame := range d.Channel1 {
		if frame.Spectrum == nil {
			return fmt.Errorf("%w: frame %d: missing key 'spectrum'", ErrMalformedDataset, i)
		}
		if len(frame.Spectrum) != len(d.Freqs) {
			return &MalformedFrameError{Index: i, Got: len(frame.Spectrum), Want: len(d.Freqs)}
		}
	}
	return nil
}

// Range is an explicit axis range supplied by the user.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) String() string {
	return fmt.Sprintf("%g,%g", r.Min, r.Max)
}

// AxisRange holds the resolved plot extents.
type AxisRange struct {
	FreqMin float64
	FreqMax float64
	MagMin  float64
	MagMax  float64
}

// Series is an (x, y) trace for one frame.
type Series struct {
	Freqs      []float64
	Magnitudes []float64
}

// Mirror returns the series reflected around the frequency axis.
func (s Series) Mirror() Series {
	mirrored := make([]float64, len(s.Magnitudes))
	for i, v := range s.Magnitudes {
		mirrored[i] = -v
	}
	return Series{Freqs: s.Freqs, Magnitudes: mirrored}
}

// Load decodes and validates a dataset document.
func Load(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrMalformedDataset, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFile opens and loads the dataset stored at path.
func LoadFile(path string) (d *Dataset, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return Load(f)
}
