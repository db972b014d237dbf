package app

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectralyze/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	var options []func(*storage.SqliteStore)
	if config.MaxBatchSize > 0 {
		options = append(options, storage.WithMaxBatchSize(config.MaxBatchSize))
	}

	store := storage.NewSqliteStore(config.DBPath, options...)
	defer store.Close()

	if config.List {
		return listSessions(ctx, store, config)
	}

	var importerOptions []func(*Importer)
	if config.Name != "" {
		importerOptions = append(importerOptions, WithSessionName(config.Name))
	}

	imported, err := NewImporter(store, logger, importerOptions...).Run(ctx, config.Files)
	for _, im := range imported {
		fmt.Fprintf(config.Output, "%d\t%s\n", im.SessionID, im.Source)
	}
	return err
}

func listSessions(ctx context.Context, store storage.Store, config *Config) (err error) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	w := tabwriter.NewWriter(config.Output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFRAMES\tBINS\tCREATED\tSOURCE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Name,
			humanize.Comma(int64(s.FrameCount)),
			humanize.Comma(int64(s.BinCount)),
			humanize.Time(s.CreatedAt),
			s.Source)
	}
	return w.Flush()
}
