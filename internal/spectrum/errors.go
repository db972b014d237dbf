package spectrum

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when an automatic bound is requested for a
	// dataset without any magnitude values.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrIndexOutOfRange is returned when a frame index is outside [0, frameCount).
	ErrIndexOutOfRange = errors.New("frame index out of range")

	// ErrMalformedDataset is returned when required keys are missing or a frame
	// spectrum does not match the frequency axis.
	ErrMalformedDataset = errors.New("malformed dataset")

	// ErrInvalidRange is returned for a user supplied range with min >= max.
	ErrInvalidRange = errors.New("invalid range")
)

// MalformedFrameError reports a frame whose spectrum length differs from the
// frequency axis.
type MalformedFrameError struct {
	Index int // Frame index
	Got   int // Spectrum length
	Want  int // Frequency axis length
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("%s: frame %d: spectrum has %d bins, expected %d", ErrMalformedDataset, e.Index, e.Got, e.Want)
}

func (e *MalformedFrameError) Unwrap() error {
	return ErrMalformedDataset
}
