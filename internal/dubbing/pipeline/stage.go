// Package pipeline contains the dubbing pipeline: the five stage
// implementations, the per-job scheduler, and the cancellation/cleanup
// coordinator.
package pipeline

import (
	"context"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

// MediaRunner is the external media tool contract the stages need.
// Satisfied by ffmpeg.Runner.
type MediaRunner interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
	ExtractBackgroundAudio(ctx context.Context, videoPath, audioPath string) error
	MixAudio(ctx context.Context, dubbedPath, backgroundPath, outputPath string) error
	Remux(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// Output carries the artifacts a stage produced. The scheduler applies
// the non-zero fields to the job record through the store.
type Output struct {
	ExtractedAudioPath string
	AudioPath          string
	OutputPath         string
	Transcript         string
	Translation        string
}

// Stage is one unit of pipeline work. Execute receives a snapshot of the
// job taken at the stage boundary; it must not write to the store itself.
type Stage interface {
	Name() domain.StageName
	Execute(ctx context.Context, job *domain.Job) (*Output, error)
}
