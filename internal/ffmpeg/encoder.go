package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
)

var (
	// DefaultVideoCodec encodes H.264 playable by most players
	DefaultVideoCodec = []string{"libx264", "-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p"}

	// ErrFrameSize is returned when a frame does not match the encoder dimensions
	ErrFrameSize = errors.New("frame size mismatch")
)

// EncoderConfig describes the rendered frame stream and the video output
type EncoderConfig struct {
	Width  int
	Height int
	FPS    int
	Codec  []string // Video codec followed by its options, DefaultVideoCodec when empty
	Output string
}

// EncodeArgs builds the ffmpeg arguments reading raw RGBA frames from stdin
func EncodeArgs(c EncoderConfig) []string {
	codec := c.Codec
	if len(codec) == 0 {
		codec = DefaultVideoCodec
	}

	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-r", strconv.Itoa(c.FPS),
		"-i", "-",
		"-an",
		"-c:v",
	}
	args = append(args, codec...)
	return append(args, "-y", c.Output)
}

// Encoder is an ffmpeg process encoding the frames written to it
type Encoder struct {
	config EncoderConfig
	proc   *process
	stdin  io.WriteCloser
	frames int
	closed bool
}

// StartEncoder spawns ffmpeg and returns an Encoder ready to accept frames
func (r *Runner) StartEncoder(ctx context.Context, c EncoderConfig) (*Encoder, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", c.FPS)
	}
	if c.Output == "" {
		return nil, errors.New("output file is required")
	}

	var stdin io.WriteCloser
	p, err := r.start(ctx, EncodeArgs(c), &stdin)
	if err != nil {
		return nil, fmt.Errorf("starting encoder: %w", err)
	}

	return &Encoder{config: c, proc: p, stdin: stdin}, nil
}

// WriteFrame sends the pixels of img to ffmpeg. It blocks until ffmpeg has
// consumed the frame, so img may be reused once it returns.
func (e *Encoder) WriteFrame(img *image.RGBA) error {
	if e.closed {
		return errors.New("encoder is closed")
	}

	size := img.Rect.Size()
	if size.X != e.config.Width || size.Y != e.config.Height {
		return fmt.Errorf("%w: got %dx%d, expected %dx%d", ErrFrameSize, size.X, size.Y, e.config.Width, e.config.Height)
	}

	rowLen := size.X * 4
	if img.Stride == rowLen {
		if _, err := e.stdin.Write(img.Pix[:rowLen*size.Y]); err != nil {
			return e.writeError(err)
		}
	} else {
		for y := 0; y < size.Y; y++ {
			offset := y * img.Stride
			if _, err := e.stdin.Write(img.Pix[offset : offset+rowLen]); err != nil {
				return e.writeError(err)
			}
		}
	}

	e.frames++
	return nil
}

// a failed write usually means ffmpeg exited, its exit status explains why
func (e *Encoder) writeError(err error) error {
	e.closed = true
	_ = e.stdin.Close()
	if wErr := e.proc.wait(); wErr != nil {
		return fmt.Errorf("writing frame %d: %w", e.frames, wErr)
	}
	return fmt.Errorf("writing frame %d: %w", e.frames, err)
}

// Frames returns the number of frames written so far
func (e *Encoder) Frames() int {
	return e.frames
}

// Close signals the end of the stream and waits for ffmpeg to finish
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.stdin.Close(); err != nil {
		_ = e.proc.wait()
		return fmt.Errorf("closing encoder input: %w", err)
	}
	return e.proc.wait()
}
