package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress reports rendered frames
type progress interface {
	Frame(index int, took time.Duration)
	Done(success bool)
}

type barProgress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newBarProgress(ctx context.Context, total int, output io.Writer) *barProgress {
	p := mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(output))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Rendering: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &barProgress{p: p, bar: bar}
}

func (b *barProgress) Frame(_ int, took time.Duration) {
	b.bar.EwmaIncrement(took)
}

func (b *barProgress) Done(success bool) {
	if !success {
		b.bar.Abort(false)
	}
	b.p.Wait()
}

// logProgress logs every frame at debug level
type logProgress struct {
	logger *slog.Logger
	total  int
}

func (l *logProgress) Frame(index int, took time.Duration) {
	l.logger.Debug("frame rendered",
		slog.Int("frame", index+1),
		slog.Int("total", l.total),
		slog.Duration("took", took))
}

func (l *logProgress) Done(bool) {}
