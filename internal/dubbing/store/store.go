package store

import (
	"context"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

// JobMutator mutates a job's fields inside an atomic update. The store
// applies it only while holding the record's lock (or row lock).
type JobMutator func(*domain.Job)

// StageMutator mutates a stage's fields inside an atomic update.
type StageMutator func(*domain.Stage)

// Store owns job and stage records and is the only component permitted
// to mutate job state. Every update is atomic per record, and every
// write against a job already in a terminal status is refused with
// domain.ErrJobTerminal - including stage writes, so a cancelled job can
// never be resurrected by a stale scheduler update.
type Store interface {
	// Create inserts a job with its stages in a single atomic operation.
	// Returns domain.ErrDuplicateJob if the job id already exists.
	Create(ctx context.Context, job *domain.Job, stages []*domain.Stage) error

	// Get returns a consistent snapshot of the job, or domain.ErrJobNotFound.
	Get(ctx context.Context, jobID string) (*domain.Job, error)

	// List returns job snapshots, newest first, optionally filtered by status.
	List(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error)

	// ListStages returns the job's stages in pipeline (creation) order.
	ListStages(ctx context.Context, jobID string) ([]*domain.Stage, error)

	// UpdateJob applies fn atomically and refreshes UpdatedAt. Returns
	// domain.ErrJobTerminal without applying fn if the job is terminal.
	UpdateJob(ctx context.Context, jobID string, fn JobMutator) error

	// UpdateStage applies fn atomically to one stage. Returns
	// domain.ErrJobTerminal if the owning job is terminal.
	UpdateStage(ctx context.Context, jobID string, name domain.StageName, fn StageMutator) error
}
