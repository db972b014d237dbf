package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectralyze/internal/ffmpeg"
	"github.com/roman-kulish/spectralyze/internal/spectrum"
	"github.com/roman-kulish/spectralyze/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	runtime, err := ffmpeg.FindRuntime(config.FFmpegPath)
	if err != nil {
		return fmt.Errorf("locating ffmpeg: %w", err)
	}
	if _, err = os.Stat(config.AudioPath); err != nil {
		return fmt.Errorf("audio file '%s': %w", config.AudioPath, err)
	}

	d, err := loadDataset(ctx, config, logger)
	if err != nil {
		return err
	}

	est := spectrum.NewEstimator(config.Estimator)
	axis, err := est.ResolveAxisRange(d, config.Mode, config.FreqRange, config.MagRange)
	if err != nil {
		return err
	}

	logger.Info("resolved axis range",
		slog.String("mode", config.Mode.String()),
		slog.Group("frequency",
			slog.String("min", humanHz(axis.FreqMin)),
			slog.String("max", humanHz(axis.FreqMax))),
		slog.Group("magnitude",
			slog.Float64("min", axis.MagMin),
			slog.Float64("max", axis.MagMax)))

	rc, err := newRenderConfig(config, axis)
	if err != nil {
		return err
	}
	renderer, err := NewFrameRenderer(config.Mode, d, est, rc)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	outputs := ffmpeg.OutputPaths(config.AudioPath)
	runner := ffmpeg.New(runtime, append([]func(*ffmpeg.Runner){ffmpeg.WithLogger(logger)}, config.runnerOptions...)...)

	if err = renderVideo(ctx, runner, renderer, d.FrameCount(), outputs.Video, config, logger); err != nil {
		return err
	}

	if outputs.Transcode {
		logger.Info("transcoding audio", slog.String("source", config.AudioPath), slog.String("destination", outputs.Audio))
		if err = runner.Transcode(ctx, config.AudioPath, outputs.Audio); err != nil {
			return err
		}
	}

	logger.Info("muxing audio and video", slog.String("destination", outputs.Final))
	if err = runner.Mux(ctx, outputs.Video, outputs.Audio, outputs.Final); err != nil {
		return err
	}

	if !config.Keep {
		if err = os.Remove(outputs.Video); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("removing intermediate video", slog.String("path", outputs.Video), slog.String("error", err.Error()))
		}
	}

	attrs := []any{slog.String("path", outputs.Final)}
	if stat, sErr := os.Stat(outputs.Final); sErr == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(stat.Size()))))
	}
	logger.Info("video created", attrs...)
	return nil
}

func loadDataset(ctx context.Context, config *Config, logger *slog.Logger) (*spectrum.Dataset, error) {
	var d *spectrum.Dataset
	var err error

	if config.DBPath != "" {
		if _, err = os.Stat(config.DBPath); err != nil {
			return nil, fmt.Errorf("database file '%s': %w", config.DBPath, err)
		}

		store := storage.NewSqliteStore(config.DBPath)
		defer store.Close()

		if d, err = store.ReadDataset(ctx, config.SessionID); err != nil {
			return nil, fmt.Errorf("reading session %d: %w", config.SessionID, err)
		}
		logger.Info("loaded dataset", slog.String("database", config.DBPath), slog.Int64("session", config.SessionID),
			slog.Int("frames", d.FrameCount()), slog.Int("bins", d.BinCount()))
		return d, nil
	}

	stat, err := os.Stat(config.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("dataset file '%s': %w", config.DatasetPath, err)
	}

	if d, err = spectrum.LoadFile(config.DatasetPath); err != nil {
		return nil, fmt.Errorf("loading '%s': %w", config.DatasetPath, err)
	}
	logger.Info("loaded dataset", slog.String("path", config.DatasetPath), slog.String("size", humanize.Bytes(uint64(stat.Size()))),
		slog.Int("frames", d.FrameCount()), slog.Int("bins", d.BinCount()))
	return d, nil
}

func renderVideo(ctx context.Context, runner *ffmpeg.Runner, renderer FrameRenderer, frames int, output string, config *Config, logger *slog.Logger) (err error) {
	size := renderer.Size()

	logger.Info("rendering frames",
		slog.Group("video",
			slog.String("destination", output),
			slog.Int("width", size.X),
			slog.Int("height", size.Y),
			slog.Int("fps", config.FPS),
			slog.Int("frames", frames),
			slog.Duration("duration", time.Duration(frames)*time.Second/time.Duration(config.FPS))))

	enc, err := runner.StartEncoder(ctx, ffmpeg.EncoderConfig{
		Width:  size.X,
		Height: size.Y,
		FPS:    config.FPS,
		Output: output,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cErr := enc.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	var prog progress = &logProgress{logger: logger, total: frames}
	if config.Progress {
		prog = newBarProgress(ctx, frames, os.Stderr)
	}

	success := false
	defer func() { prog.Done(success) }()

	for i := 0; i < frames; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		img, rErr := renderer.Render(i)
		if rErr != nil {
			return fmt.Errorf("rendering frame %d: %w", i, rErr)
		}
		if err = enc.WriteFrame(img); err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
		prog.Frame(i, time.Since(start))
	}

	success = true
	return nil
}
