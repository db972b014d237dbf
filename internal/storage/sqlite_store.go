package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

const maxBatchSize = 100

// WithMaxBatchSize sets the maximum number of frames inserted by a single statement.
func WithMaxBatchSize(size int) func(*SqliteStore) {
	return func(s *SqliteStore) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath       string
	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily, the schema is created on first write.
func NewSqliteStore(dbPath string, options ...func(*SqliteStore)) *SqliteStore {
	s := &SqliteStore{dbPath: dbPath, maxBatchSize: maxBatchSize}
	for _, option := range options {
		option(s)
	}
	return s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) && *err == nil {
		*err = rErr
	}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, name, source string, freqs []float64) (sessionID int64, err error) {
	if freqs == nil {
		return 0, fmt.Errorf("%w: missing frequency axis", spectrum.ErrMalformedDataset)
	}

	p, err := json.Marshal(freqs)
	if err != nil {
		return 0, fmt.Errorf("marshaling frequencies: %w", err)
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), name, source, string(p))
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	data, err := querySession(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return data.toSession()
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data sessionData
		if err = rows.Scan(&data.ID, &data.CreatedAt, &data.Name, &data.Source, &data.Freqs, &data.FrameCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		var sess *Session
		if sess, err = data.toSession(); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func (s *SqliteStore) StoreFrames(ctx context.Context, sessionID int64, frames []spectrum.Frame) (err error) {
	if len(frames) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	data, err := querySession(ctx, db, sessionID)
	if err != nil {
		return err
	}

	var freqs []float64
	if err = json.Unmarshal([]byte(data.Freqs), &freqs); err != nil {
		return fmt.Errorf("decoding session frequencies: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	var next int
	if err = tx.QueryRowContext(ctx, selectNextFrameIndexSQL, sessionID).Scan(&next); err != nil {
		return fmt.Errorf("querying next frame index: %w", err)
	}

	for chunk := range slices.Chunk(frames, s.maxBatchSize) {
		values := make([]any, 0, len(chunk)*4)

		var sb strings.Builder
		sb.WriteString(insertFrameSQL)

		for i, frame := range chunk {
			if len(frame.Spectrum) != len(freqs) {
				return &spectrum.MalformedFrameError{Index: next, Got: len(frame.Spectrum), Want: len(freqs)}
			}

			row, mErr := toFrameData(sessionID, next, frame)
			if mErr != nil {
				return mErr
			}
			values = append(values, row.SessionID, row.FrameIndex, row.Begin, row.Spectrum)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?)")
			next++
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting frames: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ReadDataset loads all frames of a session ordered by frame index.
func (s *SqliteStore) ReadDataset(ctx context.Context, sessionID int64) (*spectrum.Dataset, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	data, err := querySession(ctx, db, sessionID)
	if err != nil {
		return nil, err
	}

	var d spectrum.Dataset
	if err = json.Unmarshal([]byte(data.Freqs), &d.Freqs); err != nil {
		return nil, fmt.Errorf("decoding session frequencies: %w", err)
	}
	d.Channel1 = make([]spectrum.Frame, 0, data.FrameCount)

	iter, err := newFrameIterator(ctx, db, sessionID)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.Next(ctx) {
		d.Channel1 = append(d.Channel1, iter.Current())
	}
	if err = iter.Error(); err != nil {
		return nil, err
	}

	if err = d.Validate(); err != nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, err)
	}
	return &d, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func querySession(ctx context.Context, db queryRower, id int64) (*sessionData, error) {
	var data sessionData
	err := db.QueryRowContext(ctx, selectSessionSQL, id).
		Scan(&data.ID, &data.CreatedAt, &data.Name, &data.Source, &data.Freqs, &data.FrameCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNoSession)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &data, nil
}

func (d *sessionData) toSession() (*Session, error) {
	var freqs []float64
	if err := json.Unmarshal([]byte(d.Freqs), &freqs); err != nil {
		return nil, fmt.Errorf("decoding session frequencies: %w", err)
	}

	return &Session{
		ID:         d.ID,
		CreatedAt:  d.CreatedAt,
		Name:       d.Name,
		Source:     d.Source,
		BinCount:   len(freqs),
		FrameCount: d.FrameCount,
	}, nil
}

func toFrameData(sessionID int64, index int, f spectrum.Frame) (*frameData, error) {
	p, err := json.Marshal(f.Spectrum)
	if err != nil {
		return nil, fmt.Errorf("marshaling frame %d: %w", index, err)
	}

	return &frameData{
		SessionID:  sessionID,
		FrameIndex: index,
		Begin:      f.Begin.String(),
		Spectrum:   string(p),
	}, nil
}
