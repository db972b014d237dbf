package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
	"github.com/roman-kulish/spectralyze/internal/storage"
)

const validDataset = `{
  "freqs": [0, 10, 20],
  "channel_1": [
    {"begin": 0, "spectrum": [1, 2, 3]},
    {"begin": 50, "spectrum": [3, 2, 1]}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImporter_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := writeFile(t, dir, "first.json", validDataset)
	broken := writeFile(t, dir, "broken.json", `{"freqs": [0, 1], "channel_1": [{"begin": 0, "spectrum": [1]}]}`)
	second := writeFile(t, dir, "second.song.json", validDataset)

	store := storage.NewSqliteStore(filepath.Join(dir, "spectra.sqlite"))
	t.Cleanup(func() { _ = store.Close() })

	imported, err := NewImporter(store, discardLogger()).Run(ctx, []string{first, broken, second})
	require.ErrorIs(t, err, spectrum.ErrMalformedDataset)
	assert.Contains(t, err.Error(), "broken.json")

	require.Len(t, imported, 2)
	assert.Equal(t, first, imported[0].Source)
	assert.Equal(t, second, imported[1].Source)
	assert.Equal(t, 2, imported[0].Frames)
	assert.Equal(t, 3, imported[0].Bins)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	names := []string{sessions[0].Name, sessions[1].Name}
	assert.ElementsMatch(t, []string{"first", "second.song"}, names)

	d, err := store.ReadDataset(ctx, imported[1].SessionID)
	require.NoError(t, err)
	assert.Equal(t, spectrum.Label("50"), d.Channel1[1].Begin)
}

func TestImporter_SessionName(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := writeFile(t, dir, "dataset.json", validDataset)

	store := storage.NewSqliteStore(filepath.Join(dir, "spectra.sqlite"))
	t.Cleanup(func() { _ = store.Close() })

	imported, err := NewImporter(store, discardLogger(), WithSessionName("concert")).Run(ctx, []string{file})
	require.NoError(t, err)
	require.Len(t, imported, 1)

	sess, err := store.Session(ctx, imported[0].SessionID)
	require.NoError(t, err)
	assert.Equal(t, "concert", sess.Name)
	assert.Equal(t, file, sess.Source)
}

func TestImporter_MissingFile(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewSqliteStore(filepath.Join(dir, "spectra.sqlite"))
	t.Cleanup(func() { _ = store.Close() })

	imported, err := NewImporter(store, discardLogger()).Run(context.Background(), []string{filepath.Join(dir, "nope.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, imported)
}

func TestRun_ImportThenList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := writeFile(t, dir, "song.json", validDataset)
	db := filepath.Join(dir, "spectra.sqlite")

	var out bytes.Buffer
	config := &Config{DBPath: db, Files: []string{file}, Output: &out}
	require.NoError(t, Run(ctx, config, discardLogger()))
	assert.Contains(t, out.String(), "1\t"+file)

	out.Reset()
	config = &Config{DBPath: db, List: true, Output: &out}
	require.NoError(t, Run(ctx, config, discardLogger()))
	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), "song")
	assert.Contains(t, out.String(), file)
}

func TestNewConfigFromArgs(t *testing.T) {
	c, err := NewConfigFromArgs([]string{"-db", "x.sqlite", "-name", "live", "-batch", "50", "-verbose", "a.json"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "x.sqlite", c.DBPath)
	assert.Equal(t, "live", c.Name)
	assert.Equal(t, 50, c.MaxBatchSize)
	assert.Equal(t, []string{"a.json"}, c.Files)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)

	c, err = NewConfigFromArgs([]string{"-db", "x.sqlite", "-list"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, c.List)

	invalid := [][]string{
		{"a.json"},
		{"-db", "x.sqlite"},
		{"-db", "x.sqlite", "-list", "a.json"},
		{"-db", "x.sqlite", "-name", "n", "a.json", "b.json"},
		{"-db", "x.sqlite", "-batch", "-1", "a.json"},
	}
	for _, args := range invalid {
		_, err = NewConfigFromArgs(args, io.Discard)
		assert.Error(t, err, "%v", args)
	}
}
