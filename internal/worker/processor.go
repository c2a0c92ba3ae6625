package worker

import (
	"context"
	"log/slog"
	"time"
)

// processJob runs one dubbing job through the pipeline under the
// configured job timeout.
func (w *Worker) processJob(ctx context.Context, msg *jobMessage) {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	w.runner.Run(jobCtx, msg.JobID)

	w.logger.Info("Job run finished",
		slog.String("job_id", msg.JobID),
		slog.Duration("duration", time.Since(start)),
	)
}
