package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

// PostgresStore implements Store on PostgreSQL. Atomicity comes from
// SELECT ... FOR UPDATE read-modify-write transactions, so the terminal
// guard holds across concurrent API and worker processes.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a store on an existing sqlx connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const jobColumns = `
	job_id, original_filename, status, progress, message, target_language,
	video_path, extracted_audio_path, audio_path, output_path,
	transcript, translation, created_at, updated_at
`

const stageColumns = `
	job_id, stage_name, status, progress, message, started_at, completed_at
`

func (s *PostgresStore) Create(ctx context.Context, job *domain.Job, stages []*domain.Stage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertJob := `
		INSERT INTO dubbing_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.ExecContext(ctx, insertJob,
		job.ID, job.OriginalFilename, job.Status, job.Progress, job.Message,
		job.TargetLanguage, job.VideoPath, job.ExtractedAudioPath, job.AudioPath,
		job.OutputPath, job.Transcript, job.Translation, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrDuplicateJob
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	insertStage := `
		INSERT INTO dubbing_stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, st := range stages {
		_, err = tx.ExecContext(ctx, insertStage,
			st.JobID, st.Name, st.Status, st.Progress, st.Message,
			st.StartedAt, st.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create stage %s: %w", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job creation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM dubbing_jobs WHERE job_id = $1`

	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *PostgresStore) List(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM dubbing_jobs`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, job_id DESC`

	var jobs []*domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) ListStages(ctx context.Context, jobID string) ([]*domain.Stage, error) {
	// Verify the job exists so an unknown id is a NotFound, not an empty list.
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + stageColumns + `
		FROM dubbing_stages
		WHERE job_id = $1
		ORDER BY id ASC
	`
	var stages []*domain.Stage
	if err := s.db.SelectContext(ctx, &stages, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return stages, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, jobID string, fn JobMutator) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	job, err := lockJob(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}

	fn(job)
	job.UpdatedAt = time.Now().UTC()

	update := `
		UPDATE dubbing_jobs
		SET status = $1, progress = $2, message = $3,
		    video_path = $4, extracted_audio_path = $5, audio_path = $6,
		    output_path = $7, transcript = $8, translation = $9,
		    updated_at = $10
		WHERE job_id = $11
	`
	_, err = tx.ExecContext(ctx, update,
		job.Status, job.Progress, job.Message,
		job.VideoPath, job.ExtractedAudioPath, job.AudioPath,
		job.OutputPath, job.Transcript, job.Translation,
		job.UpdatedAt, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job update: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStage(ctx context.Context, jobID string, name domain.StageName, fn StageMutator) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the owning job first: stage writes against a terminal job are
	// refused, and the lock serializes against a concurrent cancel.
	job, err := lockJob(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}

	var stage domain.Stage
	selectStage := `
		SELECT ` + stageColumns + `
		FROM dubbing_stages
		WHERE job_id = $1 AND stage_name = $2
		FOR UPDATE
	`
	if err := tx.GetContext(ctx, &stage, selectStage, jobID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrStageNotFound
		}
		return fmt.Errorf("failed to get stage: %w", err)
	}

	fn(&stage)

	update := `
		UPDATE dubbing_stages
		SET status = $1, progress = $2, message = $3, started_at = $4, completed_at = $5
		WHERE job_id = $6 AND stage_name = $7
	`
	_, err = tx.ExecContext(ctx, update,
		stage.Status, stage.Progress, stage.Message,
		stage.StartedAt, stage.CompletedAt, jobID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}

	touch := `UPDATE dubbing_jobs SET updated_at = $1 WHERE job_id = $2`
	if _, err := tx.ExecContext(ctx, touch, time.Now().UTC(), jobID); err != nil {
		return fmt.Errorf("failed to touch job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stage update: %w", err)
	}
	return nil
}

func lockJob(ctx context.Context, tx *sqlx.Tx, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM dubbing_jobs WHERE job_id = $1 FOR UPDATE`

	if err := tx.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to lock job: %w", err)
	}
	return &job, nil
}
