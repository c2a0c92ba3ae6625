package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
	"github.com/msayyed72/videodubber-be/internal/dubbing/store"
)

// Coordinator handles cancellation requests and temp-artifact cleanup.
// Cancellation is cooperative: it only flips the job status in the
// store; the scheduler observes it at the next stage boundary.
type Coordinator struct {
	logger    *slog.Logger
	store     store.Store
	uploadDir string
}

// NewCoordinator creates a coordinator over the shared upload directory.
func NewCoordinator(logger *slog.Logger, st store.Store, uploadDir string) *Coordinator {
	return &Coordinator{
		logger:    logger,
		store:     st,
		uploadDir: uploadDir,
	}
}

// Cancel marks the job cancelled and removes its temporary artifacts.
// Returns domain.ErrJobTerminal when the job already finished, and
// domain.ErrJobNotFound for an unknown id.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	err := c.store.UpdateJob(ctx, jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusCancelled
		j.Message = "Processing cancelled by user"
	})
	if err != nil {
		return err
	}

	c.logger.Info("Job cancelled",
		slog.String("job_id", jobID),
	)

	c.Cleanup(jobID)
	return nil
}

// Cleanup deletes every file in the upload directory whose name is
// prefixed by the job id. Best effort: failures are logged, never
// raised, and job status is unaffected. All artifact names carry the
// job-id prefix, so no other job's files can match.
func (c *Coordinator) Cleanup(jobID string) {
	entries, err := os.ReadDir(c.uploadDir)
	if err != nil {
		c.logger.Warn("Could not read upload directory for cleanup",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), jobID) {
			continue
		}
		path := filepath.Join(c.uploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			c.logger.Warn("Failed to remove temp file",
				slog.String("job_id", jobID),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.logger.Debug("Removed temp file",
			slog.String("job_id", jobID),
			slog.String("path", path),
		)
	}
}
