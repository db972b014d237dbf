package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectralyze/internal/spectrum"
	"github.com/roman-kulish/spectralyze/internal/storage"
)

// WithSessionName overrides the session name derived from the file name.
// Only meaningful when importing a single file.
func WithSessionName(name string) func(*Importer) {
	return func(i *Importer) {
		i.name = name
	}
}

// Imported describes a dataset file stored as a session
type Imported struct {
	Source    string
	SessionID int64
	Frames    int
	Bins      int
}

type loadedDataset struct {
	index   int
	source  string
	dataset *spectrum.Dataset
}

// Importer decodes dataset files concurrently and stores them through a
// single writer, one session per file.
type Importer struct {
	store  storage.Store
	logger *slog.Logger
	name   string

	wg sync.WaitGroup
}

// NewImporter creates a new Importer
func NewImporter(store storage.Store, logger *slog.Logger, options ...func(*Importer)) *Importer {
	i := Importer{
		store:  store,
		logger: logger,
	}

	for _, option := range options {
		option(&i)
	}

	return &i
}

// Run imports files and returns the created sessions in file order. Files
// that fail to load or store are reported in the joined error.
func (i *Importer) Run(ctx context.Context, files []string) ([]Imported, error) {
	if len(files) == 0 {
		return nil, errors.New("no dataset files to import")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loaded := make(chan loadedDataset, len(files))
	errs := make([]error, len(files))

	for index, file := range files {
		i.wg.Add(1)
		go i.load(ctx, index, file, loaded, errs)
	}

	go func() {
		i.wg.Wait()
		close(loaded) // all loaders are done
	}()

	results := make([]*Imported, len(files))
	for ld := range loaded {
		sessionID, err := storage.ImportDataset(ctx, i.store, i.sessionName(ld.source), ld.source, ld.dataset)
		if err != nil {
			errs[ld.index] = fmt.Errorf("importing '%s': %w", ld.source, err)
			continue
		}

		i.logger.Info("dataset imported",
			slog.String("source", ld.source),
			slog.Int64("session", sessionID),
			slog.Int("frames", ld.dataset.FrameCount()),
			slog.Int("bins", ld.dataset.BinCount()))

		results[ld.index] = &Imported{
			Source:    ld.source,
			SessionID: sessionID,
			Frames:    ld.dataset.FrameCount(),
			Bins:      ld.dataset.BinCount(),
		}
	}

	var imported []Imported
	for _, r := range results {
		if r != nil {
			imported = append(imported, *r)
		}
	}
	return imported, errors.Join(errs...)
}

func (i *Importer) load(ctx context.Context, index int, file string, loaded chan<- loadedDataset, errs []error) {
	defer i.wg.Done()

	if err := ctx.Err(); err != nil {
		errs[index] = err
		return
	}

	stat, err := os.Stat(file)
	if err != nil {
		errs[index] = fmt.Errorf("dataset file '%s': %w", file, err)
		return
	}

	i.logger.Debug("loading dataset", slog.String("source", file), slog.String("size", humanize.Bytes(uint64(stat.Size()))))

	d, err := spectrum.LoadFile(file)
	if err != nil {
		errs[index] = fmt.Errorf("loading '%s': %w", file, err)
		return
	}

	loaded <- loadedDataset{index: index, source: file, dataset: d}
}

func (i *Importer) sessionName(source string) string {
	if i.name != "" {
		return i.name
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
