package dto

import (
	"time"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

// JobResponse is the wire representation of a dubbing job.
type JobResponse struct {
	ID               string  `json:"id"`
	OriginalFilename string  `json:"original_filename"`
	Status           string  `json:"status"`
	Progress         int     `json:"progress"`
	Message          string  `json:"message"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	TargetLanguage   string  `json:"target_language"`
	HasOutput        bool    `json:"has_output"`
	Transcript       *string `json:"transcript"`
	Translation      *string `json:"translation"`
}

// StageResponse is the wire representation of one pipeline stage.
type StageResponse struct {
	JobID       string  `json:"job_id"`
	StageName   string  `json:"stage_name"`
	Status      string  `json:"status"`
	Progress    int     `json:"progress"`
	Message     string  `json:"message"`
	StartedAt   *string `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
}

// CreateJobResponse acknowledges an accepted upload.
type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobStatusResponse is the job detail payload: the job plus its stages.
type JobStatusResponse struct {
	Job    JobResponse     `json:"job"`
	Stages []StageResponse `json:"stages"`
}

// ListJobsResponse wraps the job listing.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// LanguagesResponse lists the supported target languages.
type LanguagesResponse struct {
	Languages map[string]string `json:"languages"`
}

// FromJob converts a domain job to its wire representation.
func FromJob(job *domain.Job) JobResponse {
	return JobResponse{
		ID:               job.ID,
		OriginalFilename: job.OriginalFilename,
		Status:           string(job.Status),
		Progress:         job.Progress,
		Message:          job.Message,
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        job.UpdatedAt.Format(time.RFC3339),
		TargetLanguage:   job.TargetLanguage,
		HasOutput:        job.OutputPath != "",
		Transcript:       job.Transcript,
		Translation:      job.Translation,
	}
}

// FromStage converts a domain stage to its wire representation.
func FromStage(stage *domain.Stage) StageResponse {
	return StageResponse{
		JobID:       stage.JobID,
		StageName:   string(stage.Name),
		Status:      string(stage.Status),
		Progress:    stage.Progress,
		Message:     stage.Message,
		StartedAt:   formatTime(stage.StartedAt),
		CompletedAt: formatTime(stage.CompletedAt),
	}
}

// FromStages converts a stage list, preserving pipeline order.
func FromStages(stages []*domain.Stage) []StageResponse {
	out := make([]StageResponse, len(stages))
	for i, st := range stages {
		out[i] = FromStage(st)
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
