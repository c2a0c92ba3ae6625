package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

func newTestJob(t *testing.T) (*MemoryStore, *domain.Job) {
	t.Helper()
	s := NewMemoryStore()
	job := domain.NewJob("clip.mp4", "es")
	require.NoError(t, s.Create(context.Background(), job, domain.NewStages(job.ID)))
	return s, job
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, "clip.mp4", got.OriginalFilename)
	assert.Equal(t, "es", got.TargetLanguage)
	assert.Nil(t, got.Transcript)
	assert.Nil(t, got.Translation)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	err := s.Create(ctx, job, domain.NewStages(job.ID))
	assert.ErrorIs(t, err, domain.ErrDuplicateJob)
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestMemoryStore_ListStagesOrder(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	stages, err := s.ListStages(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, stages, len(domain.StageOrder))

	for i, st := range stages {
		assert.Equal(t, domain.StageOrder[i], st.Name)
		assert.Equal(t, domain.StageStatusPending, st.Status)
		assert.Equal(t, job.ID, st.JobID)
	}
}

func TestMemoryStore_UpdateJob(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	before, err := s.Get(ctx, job.ID)
	require.NoError(t, err)

	err = s.UpdateJob(ctx, job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusProcessing
		j.Progress = 10
		j.Message = "Extracting audio from video..."
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
	assert.Equal(t, 10, got.Progress)
	assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))
}

func TestMemoryStore_UpdateJob_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	snapshot, err := s.Get(ctx, job.ID)
	require.NoError(t, err)

	// Mutating a snapshot must not leak into the store.
	snapshot.Status = domain.JobStatusFailed

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
}

func TestMemoryStore_TerminalGuard(t *testing.T) {
	tests := []struct {
		name     string
		terminal domain.JobStatus
	}{
		{name: "completed job", terminal: domain.JobStatusCompleted},
		{name: "failed job", terminal: domain.JobStatusFailed},
		{name: "cancelled job", terminal: domain.JobStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, job := newTestJob(t)

			require.NoError(t, s.UpdateJob(ctx, job.ID, func(j *domain.Job) {
				j.Status = tt.terminal
				j.Progress = 42
			}))

			// A stale scheduler write must be rejected, not applied.
			err := s.UpdateJob(ctx, job.ID, func(j *domain.Job) {
				j.Status = domain.JobStatusProcessing
				j.Progress = 99
			})
			assert.ErrorIs(t, err, domain.ErrJobTerminal)

			err = s.UpdateStage(ctx, job.ID, domain.StageMerging, func(st *domain.Stage) {
				st.Status = domain.StageStatusCompleted
			})
			assert.ErrorIs(t, err, domain.ErrJobTerminal)

			got, err := s.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.terminal, got.Status)
			assert.Equal(t, 42, got.Progress)

			stages, err := s.ListStages(ctx, job.ID)
			require.NoError(t, err)
			for _, st := range stages {
				assert.Equal(t, domain.StageStatusPending, st.Status)
			}
		})
	}
}

func TestMemoryStore_UpdateStage(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	started := time.Now().UTC()
	err := s.UpdateStage(ctx, job.ID, domain.StageExtracting, func(st *domain.Stage) {
		st.Status = domain.StageStatusProcessing
		st.StartedAt = &started
	})
	require.NoError(t, err)

	stages, err := s.ListStages(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusProcessing, stages[0].Status)
	require.NotNil(t, stages[0].StartedAt)
	assert.Equal(t, started, *stages[0].StartedAt)

	// Other stages untouched.
	for _, st := range stages[1:] {
		assert.Equal(t, domain.StageStatusPending, st.Status)
	}
}

func TestMemoryStore_UpdateStage_UnknownStage(t *testing.T) {
	ctx := context.Background()
	s, job := newTestJob(t)

	err := s.UpdateStage(ctx, job.ID, domain.StageName("uploading"), func(st *domain.Stage) {})
	assert.ErrorIs(t, err, domain.ErrStageNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := domain.NewJob("a.mp4", "es")
	first.CreatedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, s.Create(ctx, first, domain.NewStages(first.ID)))

	second := domain.NewJob("b.mp4", "fr")
	require.NoError(t, s.Create(ctx, second, domain.NewStages(second.ID)))
	require.NoError(t, s.UpdateJob(ctx, second.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusProcessing
	}))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	processing, err := s.List(ctx, domain.JobStatusProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, second.ID, processing[0].ID)
}
