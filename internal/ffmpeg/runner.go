// Package ffmpeg wraps the ffmpeg binary for encoding rendered frames,
// transcoding audio and muxing the final video.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

const (
	// DefaultRuntime is the ffmpeg binary name looked up on PATH
	DefaultRuntime = "ffmpeg"

	// StderrTailSize is the number of stderr lines kept for error reports
	StderrTailSize = 10
)

var (
	// ErrProcess is returned when ffmpeg exits with an error
	ErrProcess = errors.New("ffmpeg process failed")

	// ErrBrokenPipe is returned when there's an error reading from stderr
	ErrBrokenPipe = errors.New("broken pipe")

	defaultGlobalArgs = []string{"-hide_banner", "-loglevel", "error"}
)

// FindRuntime returns the absolute path of the named executable.
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		return "", fmt.Errorf("finding %s runtime: %w", runtime, err)
	}
	return binPath, nil
}

// WithLogger sets the logger receiving ffmpeg stderr output
func WithLogger(logger *slog.Logger) func(r *Runner) {
	return func(r *Runner) {
		r.logger = logger.With(slog.String("runtime", r.path))
	}
}

// WithGlobalArgs replaces the arguments placed before every command
func WithGlobalArgs(args ...string) func(r *Runner) {
	return func(r *Runner) {
		r.globalArgs = args
	}
}

// WithEnv sets extra environment variables for the spawned processes
func WithEnv(env ...string) func(r *Runner) {
	return func(r *Runner) {
		r.env = env
	}
}

// Runner spawns ffmpeg processes
type Runner struct {
	path       string
	globalArgs []string
	env        []string
	logger     *slog.Logger
}

// New creates a Runner for the ffmpeg binary at path with a discard logger
func New(path string, options ...func(r *Runner)) *Runner {
	r := Runner{
		path:       path,
		globalArgs: defaultGlobalArgs,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Path returns the ffmpeg binary path
func (r *Runner) Path() string {
	return r.path
}

func (r *Runner) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.path, append(append([]string{}, r.globalArgs...), args...)...)
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	return cmd
}

// Run executes ffmpeg with args and waits for it to exit
func (r *Runner) Run(ctx context.Context, args ...string) error {
	p, err := r.start(ctx, args, nil)
	if err != nil {
		return err
	}
	return p.wait()
}

// process is a started ffmpeg command with its stderr being drained
type process struct {
	cmd    *exec.Cmd
	tail   *lineTail
	logger *slog.Logger

	stderrDone chan error
}

func (r *Runner) start(ctx context.Context, args []string, stdin *io.WriteCloser) (*process, error) {
	cmd := r.command(ctx, args)

	if stdin != nil {
		w, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("error creating stdin pipe: %w", err)
		}
		*stdin = w
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stderr pipe: %w", err)
	}

	r.logger.Debug("starting ffmpeg", slog.String("args", strings.Join(cmd.Args[1:], " ")))

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting command: %w", err)
	}

	p := &process{
		cmd:        cmd,
		tail:       newLineTail(StderrTailSize),
		logger:     r.logger,
		stderrDone: make(chan error, 1),
	}
	go p.handleStderr(stderr)

	return p, nil
}

// handleStderr reads from stderr, logs each line and keeps the last ones
func (p *process) handleStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		p.tail.Add(line)
		p.logger.Debug(fmt.Sprintf("ffmpeg >> %s", line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		p.stderrDone <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	p.stderrDone <- nil
}

// wait must only be called after stdin, if any, was closed. Stderr is drained
// before cmd.Wait as required by exec.Cmd.StderrPipe.
func (p *process) wait() error {
	stderrErr := <-p.stderrDone

	if err := p.cmd.Wait(); err != nil {
		if tail := p.tail.String(); tail != "" {
			return fmt.Errorf("%w: %w: %s", ErrProcess, err, tail)
		}
		return fmt.Errorf("%w: %w", ErrProcess, err)
	}

	return stderrErr
}

// lineTail keeps the last n lines written to it
type lineTail struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func newLineTail(size int) *lineTail {
	return &lineTail{size: size}
}

func (t *lineTail) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines, line)
	if len(t.lines) > t.size {
		t.lines = t.lines[len(t.lines)-t.size:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return strings.Join(t.lines, "; ")
}
