package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

// record bundles a job with its stages. Stages keep creation order,
// which is pipeline order.
type record struct {
	job    domain.Job
	stages []domain.Stage
}

// MemoryStore is an in-process Store backed by a mutex-guarded map.
// It backs tests and single-process deployments; the Postgres store
// provides the same contract for the two-service setup.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*record),
	}
}

func (s *MemoryStore) Create(ctx context.Context, job *domain.Job, stages []*domain.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return domain.ErrDuplicateJob
	}

	rec := &record{job: *job}
	for _, st := range stages {
		rec.stages = append(rec.stages, *st)
	}
	s.jobs[job.ID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	job := rec.job
	return &job, nil
}

func (s *MemoryStore) List(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*domain.Job
	for _, rec := range s.jobs {
		if status != "" && rec.job.Status != status {
			continue
		}
		job := rec.job
		jobs = append(jobs, &job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (s *MemoryStore) ListStages(ctx context.Context, jobID string) ([]*domain.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	stages := make([]*domain.Stage, 0, len(rec.stages))
	for i := range rec.stages {
		st := rec.stages[i]
		stages = append(stages, &st)
	}
	return stages, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, jobID string, fn JobMutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if rec.job.Status.Terminal() {
		return domain.ErrJobTerminal
	}

	fn(&rec.job)
	rec.job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateStage(ctx context.Context, jobID string, name domain.StageName, fn StageMutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if rec.job.Status.Terminal() {
		return domain.ErrJobTerminal
	}

	for i := range rec.stages {
		if rec.stages[i].Name == name {
			fn(&rec.stages[i])
			rec.job.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrStageNotFound
}
