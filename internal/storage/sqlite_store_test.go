package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

func newTestStore(t *testing.T, options ...func(*SqliteStore)) *SqliteStore {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "spectrum.db"), options...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDataset() *spectrum.Dataset {
	return &spectrum.Dataset{
		Freqs: []float64{0, 50, 100},
		Channel1: []spectrum.Frame{
			{Begin: "0", Spectrum: []float64{1, -5, 2}},
			{Begin: "50", Spectrum: []float64{0.2, 3, 0.1}},
			{Begin: "00:00.100", Spectrum: []float64{4, 0, -1.5}},
		},
	}
}

func TestSqliteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithMaxBatchSize(2))

	id, err := ImportDataset(ctx, s, "song", "song.json", testDataset())
	require.NoError(t, err)

	d, err := s.ReadDataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testDataset(), d)

	sess, err := s.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "song", sess.Name)
	assert.Equal(t, "song.json", sess.Source)
	assert.Equal(t, 3, sess.BinCount)
	assert.Equal(t, 3, sess.FrameCount)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestSqliteStore_AppendNumbersFramesAfterExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	src := testDataset()
	id, err := s.CreateSession(ctx, "song", "song.json", src.Freqs)
	require.NoError(t, err)

	require.NoError(t, s.StoreFrames(ctx, id, src.Channel1[:1]))
	require.NoError(t, s.StoreFrames(ctx, id, src.Channel1[1:]))
	require.NoError(t, s.StoreFrames(ctx, id, nil))

	d, err := s.ReadDataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, src.Channel1, d.Channel1)
}

func TestSqliteStore_StoreFramesRejectsMismatchedBins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "song", "song.json", []float64{0, 1})
	require.NoError(t, err)

	err = s.StoreFrames(ctx, id, []spectrum.Frame{
		{Begin: "0", Spectrum: []float64{1, 2}},
		{Begin: "1", Spectrum: []float64{1}},
	})
	var frameErr *spectrum.MalformedFrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, 1, frameErr.Index)

	// the transaction is rolled back as a whole
	sess, err := s.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.FrameCount)
}

func TestSqliteStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := ImportDataset(ctx, s, "first", "a.json", testDataset())
	require.NoError(t, err)
	second, err := s.CreateSession(ctx, "second", "b.json", []float64{1})
	require.NoError(t, err)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, 3, sessions[0].FrameCount)
	assert.Equal(t, second, sessions[1].ID)
	assert.Equal(t, 1, sessions[1].BinCount)
	assert.Equal(t, 0, sessions[1].FrameCount)
}

func TestSqliteStore_UnknownSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateSession(ctx, "song", "song.json", []float64{1})
	require.NoError(t, err)

	_, err = s.Session(ctx, 42)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.ReadDataset(ctx, 42)
	assert.ErrorIs(t, err, ErrNoSession)

	err = s.StoreFrames(ctx, 42, testDataset().Channel1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestImportDataset_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	d := testDataset()
	d.Channel1[1].Spectrum = d.Channel1[1].Spectrum[:2]

	_, err := ImportDataset(context.Background(), s, "song", "song.json", d)
	assert.ErrorIs(t, err, spectrum.ErrMalformedDataset)
}

func TestSqliteStore_CloseIsIdempotent(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "spectrum.db"))

	_, err := s.CreateSession(context.Background(), "song", "song.json", []float64{1})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
