package storage

import (
	"context"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

// Store provides an interface for persisting spectrum datasets as sessions.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateSession registers a new dataset session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - name: Human-readable session name, usually the audio file name
	//   - source: Where the dataset came from, e.g. the JSON file path
	//   - freqs: Frequency axis shared by every frame of the session
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, name, source string, freqs []float64) (sessionID int64, err error)

	// Session retrieves a specific session by its ID.
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all sessions stored in the database ordered by ID.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreFrames appends frames to a session. Frames are numbered after the
	// ones already stored and written in a single transaction.
	StoreFrames(ctx context.Context, sessionID int64, frames []spectrum.Frame) error

	// ReadDataset loads a complete session back into a validated dataset.
	ReadDataset(ctx context.Context, sessionID int64) (*spectrum.Dataset, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)

// ImportDataset stores d as a new session and returns its ID.
func ImportDataset(ctx context.Context, s Store, name, source string, d *spectrum.Dataset) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}

	sessionID, err := s.CreateSession(ctx, name, source, d.Freqs)
	if err != nil {
		return 0, err
	}

	if err = s.StoreFrames(ctx, sessionID, d.Channel1); err != nil {
		return 0, err
	}
	return sessionID, nil
}
