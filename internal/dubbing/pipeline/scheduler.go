package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
	"github.com/msayyed72/videodubber-be/internal/dubbing/store"
)

// stageEntryProgress is the job-level progress checkpoint recorded when a
// stage begins. Progress reaches 100 only on overall completion.
var stageEntryProgress = map[domain.StageName]int{
	domain.StageExtracting:   10,
	domain.StageTranscribing: 20,
	domain.StageTranslating:  40,
	domain.StageGenerating:   60,
	domain.StageMerging:      80,
}

var stageEntryMessage = map[domain.StageName]string{
	domain.StageExtracting:   "Extracting audio from video...",
	domain.StageTranscribing: "Transcribing audio to text...",
	domain.StageTranslating:  "Translating transcript...",
	domain.StageGenerating:   "Generating speech from translation...",
	domain.StageMerging:      "Merging audio with video...",
}

// Scheduler drives one job through the pipeline stages in order, writing
// all state through the store. One Run per job, on its own goroutine.
type Scheduler struct {
	logger      *slog.Logger
	store       store.Store
	stages      []Stage
	coordinator *Coordinator
}

// NewScheduler creates a scheduler over the given stages.
func NewScheduler(logger *slog.Logger, st store.Store, stages []Stage, coordinator *Coordinator) *Scheduler {
	return &Scheduler{
		logger:      logger,
		store:       st,
		stages:      stages,
		coordinator: coordinator,
	}
}

// Run executes the pipeline for jobID. It never panics and never returns
// an error: every failure is converted into job state, so a broken job
// cannot take down the worker process or other jobs.
func (s *Scheduler) Run(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in pipeline, failing job",
				slog.String("job_id", jobID),
				slog.Any("panic", r),
			)
			s.fail(ctx, jobID, "", errors.New("internal processing error"))
		}
	}()

	s.logger.Info("Starting video processing",
		slog.String("job_id", jobID),
	)

	err := s.store.UpdateJob(ctx, jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusProcessing
		j.Progress = 0
		j.Message = "Processing started"
	})
	if err != nil {
		// Cancelled before the pipeline began, or the job is unknown.
		s.logger.Warn("Not starting pipeline",
			slog.String("job_id", jobID),
			slog.String("reason", err.Error()),
		)
		return
	}

	for _, stage := range s.stages {
		job, err := s.store.Get(ctx, jobID)
		if err != nil {
			s.logger.Error("Failed to read job at stage boundary",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			return
		}
		if job.Status.Terminal() {
			// Cooperative cancellation point: stop without touching state.
			s.logger.Info("Halting pipeline, job reached terminal state",
				slog.String("job_id", jobID),
				slog.String("status", string(job.Status)),
			)
			return
		}

		if halted := s.beginStage(ctx, jobID, stage.Name()); halted {
			return
		}

		output, err := stage.Execute(ctx, job)
		if err != nil {
			s.fail(ctx, jobID, stage.Name(), err)
			return
		}

		if halted := s.completeStage(ctx, jobID, stage.Name(), output); halted {
			return
		}
	}

	err = s.store.UpdateJob(ctx, jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.Message = "Processing completed successfully"
	})
	if err != nil {
		s.logger.Warn("Could not record job completion",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("Video processing completed",
		slog.String("job_id", jobID),
	)
}

// beginStage marks the stage processing and advances the job progress
// checkpoint. Reports true when the job went terminal underneath us.
func (s *Scheduler) beginStage(ctx context.Context, jobID string, name domain.StageName) bool {
	err := s.store.UpdateStage(ctx, jobID, name, func(st *domain.Stage) {
		st.Status = domain.StageStatusProcessing
		if st.StartedAt == nil {
			now := time.Now().UTC()
			st.StartedAt = &now
		}
	})
	if err != nil {
		return s.halted(jobID, name, err)
	}

	err = s.store.UpdateJob(ctx, jobID, func(j *domain.Job) {
		j.Progress = stageEntryProgress[name]
		j.Message = stageEntryMessage[name]
	})
	if err != nil {
		return s.halted(jobID, name, err)
	}
	return false
}

// completeStage applies the stage's outputs to the job and marks the
// stage completed. A terminal job discards the result.
func (s *Scheduler) completeStage(ctx context.Context, jobID string, name domain.StageName, output *Output) bool {
	if output != nil {
		err := s.store.UpdateJob(ctx, jobID, applyOutput(output))
		if err != nil {
			return s.halted(jobID, name, err)
		}
	}

	err := s.store.UpdateStage(ctx, jobID, name, func(st *domain.Stage) {
		st.Status = domain.StageStatusCompleted
		st.Progress = 100
		now := time.Now().UTC()
		st.CompletedAt = &now
	})
	if err != nil {
		return s.halted(jobID, name, err)
	}
	return false
}

// halted interprets a store error during stage bookkeeping. ErrJobTerminal
// means the job was cancelled mid-flight and the stage result is dropped.
func (s *Scheduler) halted(jobID string, name domain.StageName, err error) bool {
	if errors.Is(err, domain.ErrJobTerminal) {
		s.logger.Info("Discarding stage result, job already terminal",
			slog.String("job_id", jobID),
			slog.String("stage", string(name)),
		)
	} else {
		s.logger.Error("Stage bookkeeping failed, halting pipeline",
			slog.String("job_id", jobID),
			slog.String("stage", string(name)),
			slog.String("error", err.Error()),
		)
	}
	return true
}

// fail records a stage failure, fails the job, and cleans up the job's
// temporary artifacts. No further stages run.
func (s *Scheduler) fail(ctx context.Context, jobID string, name domain.StageName, cause error) {
	s.logger.Error("Pipeline stage failed",
		slog.String("job_id", jobID),
		slog.String("stage", string(name)),
		slog.String("error", cause.Error()),
	)

	if name != "" {
		if err := s.store.UpdateStage(ctx, jobID, name, failStage(cause)); err != nil &&
			!errors.Is(err, domain.ErrJobTerminal) {
			s.logger.Error("Failed to record stage failure",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}

	// Defensive: normally only one stage can be processing, but never
	// leave a stale processing stage behind on a failed job.
	if stages, err := s.store.ListStages(ctx, jobID); err == nil {
		for _, st := range stages {
			if st.Status == domain.StageStatusProcessing && st.Name != name {
				_ = s.store.UpdateStage(ctx, jobID, st.Name, failStage(cause))
			}
		}
	}

	err := s.store.UpdateJob(ctx, jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.Message = "Processing failed: " + cause.Error()
	})
	if err != nil && !errors.Is(err, domain.ErrJobTerminal) {
		s.logger.Error("Failed to record job failure",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	s.coordinator.Cleanup(jobID)
}

func failStage(cause error) store.StageMutator {
	return func(st *domain.Stage) {
		st.Status = domain.StageStatusFailed
		st.Message = cause.Error()
		now := time.Now().UTC()
		st.CompletedAt = &now
	}
}

func applyOutput(output *Output) store.JobMutator {
	return func(j *domain.Job) {
		if output.ExtractedAudioPath != "" {
			j.ExtractedAudioPath = output.ExtractedAudioPath
		}
		if output.AudioPath != "" {
			j.AudioPath = output.AudioPath
		}
		if output.OutputPath != "" {
			j.OutputPath = output.OutputPath
		}
		if output.Transcript != "" {
			transcript := output.Transcript
			j.Transcript = &transcript
		}
		if output.Translation != "" {
			translation := output.Translation
			j.Translation = &translation
		}
	}
}
