// Package ffmpeg invokes the external ffmpeg binary for the media steps
// of the dubbing pipeline: audio extraction, ambience mixing, and the
// final remux.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner shells out to ffmpeg. The zero Bin defaults to "ffmpeg" on PATH.
type Runner struct {
	logger *slog.Logger
	bin    string
}

// NewRunner creates a Runner. bin may be empty to use "ffmpeg" from PATH.
func NewRunner(logger *slog.Logger, bin string) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{
		logger: logger,
		bin:    bin,
	}
}

// ExtractAudio pulls a normalized mono 16kHz PCM track out of the video,
// suitable for transcription.
func (r *Runner) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	return r.run(ctx, extractAudioArgs(videoPath, audioPath))
}

// ExtractBackgroundAudio pulls the original audio track at 10% volume for
// use as background ambience. Fails when the source has no audio track.
func (r *Runner) ExtractBackgroundAudio(ctx context.Context, videoPath, audioPath string) error {
	return r.run(ctx, extractBackgroundArgs(videoPath, audioPath))
}

// MixAudio mixes the dubbed speech with the background track, extending
// to the longer of the two streams.
func (r *Runner) MixAudio(ctx context.Context, dubbedPath, backgroundPath, outputPath string) error {
	return r.run(ctx, mixArgs(dubbedPath, backgroundPath, outputPath))
}

// Remux combines the original video stream (copied, not re-encoded) with
// the new audio track, trimming to the shorter of the two.
func (r *Runner) Remux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	return r.run(ctx, remuxArgs(videoPath, audioPath, outputPath))
}

func extractAudioArgs(videoPath, audioPath string) []string {
	return []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", audioPath,
	}
}

func extractBackgroundArgs(videoPath, audioPath string) []string {
	return []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-filter:a", "volume=0.1",
		"-y", audioPath,
	}
}

func mixArgs(dubbedPath, backgroundPath, outputPath string) []string {
	return []string{
		"-i", dubbedPath,
		"-i", backgroundPath,
		"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=longest",
		"-y", outputPath,
	}
}

func remuxArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v",
		"-map", "1:a",
		"-shortest",
		"-y", outputPath,
	}
}

func (r *Runner) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("Running ffmpeg",
		slog.String("args", strings.Join(args, " ")),
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// lastLine returns the final non-empty stderr line, which is where ffmpeg
// reports the actual failure.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
