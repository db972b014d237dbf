package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

// ErrNoSession is returned when a session ID is not present in the database.
var ErrNoSession = errors.New("session not found")

// FrameIterator provides row by row iteration over the frames of a session
type FrameIterator struct {
	rows    *sql.Rows
	current spectrum.Frame
	index   int
	err     error
}

func newFrameIterator(ctx context.Context, db *sql.DB, sessionID int64) (*FrameIterator, error) {
	rows, err := db.QueryContext(ctx, selectFramesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	return &FrameIterator{rows: rows, index: -1}, nil
}

// Next advances to the next frame
func (fi *FrameIterator) Next(ctx context.Context) bool {
	if fi.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		fi.err = err
		return false
	}
	if !fi.rows.Next() {
		return false
	}

	var data frameData
	if err := fi.rows.Scan(&data.FrameIndex, &data.Begin, &data.Spectrum); err != nil {
		fi.err = fmt.Errorf("scanning frame: %w", err)
		return false
	}

	// frame indexes are dense, a gap means rows were removed behind our back
	if data.FrameIndex != fi.index+1 {
		fi.err = fmt.Errorf("%w: frame index %d follows %d", spectrum.ErrMalformedDataset, data.FrameIndex, fi.index)
		return false
	}

	frame := spectrum.Frame{Begin: spectrum.Label(data.Begin)}
	if err := json.Unmarshal([]byte(data.Spectrum), &frame.Spectrum); err != nil {
		fi.err = fmt.Errorf("decoding frame %d: %w", data.FrameIndex, err)
		return false
	}

	fi.index = data.FrameIndex
	fi.current = frame
	return true
}

// Current returns the current frame
func (fi *FrameIterator) Current() spectrum.Frame {
	return fi.current
}

// Error returns any error that occurred during iteration
func (fi *FrameIterator) Error() error {
	if fi.err != nil {
		return fi.err
	}
	return fi.rows.Err()
}

// Close releases the database resources
func (fi *FrameIterator) Close() error {
	return fi.rows.Close()
}
