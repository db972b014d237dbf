package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	transcodeSampleRate = "44100"
	transcodeChannels   = "2"
	transcodeBitrate    = "192k"
)

// TranscodeArgs builds the arguments converting any audio input to mp3
func TranscodeArgs(in, out string) []string {
	return []string{
		"-i", in,
		"-vn",
		"-ar", transcodeSampleRate,
		"-ac", transcodeChannels,
		"-b:a", transcodeBitrate,
		"-y", out,
	}
}

// MuxArgs builds the arguments combining the video stream of video and the
// audio stream of audio without re-encoding either
func MuxArgs(video, audio, out string) []string {
	return []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "copy",
		"-y", out,
	}
}

// Transcode converts the audio file in to an mp3 file out
func (r *Runner) Transcode(ctx context.Context, in, out string) error {
	if err := r.Run(ctx, TranscodeArgs(in, out)...); err != nil {
		return fmt.Errorf("transcoding '%s': %w", in, err)
	}
	return nil
}

// Mux combines a silent video and an audio file into out
func (r *Runner) Mux(ctx context.Context, video, audio, out string) error {
	if err := r.Run(ctx, MuxArgs(video, audio, out)...); err != nil {
		return fmt.Errorf("muxing '%s' and '%s': %w", video, audio, err)
	}
	return nil
}

// Outputs holds the files produced for one audio input
type Outputs struct {
	Video     string // Encoded visualisation without audio
	Audio     string // mp3 audio stream used for muxing
	Final     string // Muxed result
	Transcode bool   // Audio must be converted to mp3 first
}

// OutputPaths derives the output files from the audio input path. Files are
// placed next to the input, named after its base name without extension.
func OutputPaths(audioPath string) Outputs {
	dir := filepath.Dir(audioPath)
	ext := filepath.Ext(audioPath)
	name := strings.TrimSuffix(filepath.Base(audioPath), ext)

	o := Outputs{
		Video: filepath.Join(dir, fmt.Sprintf("spectrum_%s.mp4", name)),
		Audio: audioPath,
		Final: filepath.Join(dir, fmt.Sprintf("final_%s.mp4", name)),
	}

	if !strings.EqualFold(ext, ".mp3") {
		o.Audio = filepath.Join(dir, name+".mp3")
		o.Transcode = true
	}

	return o
}
