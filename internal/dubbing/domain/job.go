package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a dubbing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further status transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// StageStatus represents the lifecycle state of a single pipeline stage.
// Stages have no cancelled state - a cancelled job simply stops updating them.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusProcessing StageStatus = "processing"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusFailed     StageStatus = "failed"
)

// StageName identifies a stage's position in the fixed pipeline order.
type StageName string

const (
	StageExtracting   StageName = "extracting"
	StageTranscribing StageName = "transcribing"
	StageTranslating  StageName = "translating"
	StageGenerating   StageName = "generating"
	StageMerging      StageName = "merging"
)

// StageOrder is the fixed pipeline order. Stage N+1 never starts before
// stage N completed.
var StageOrder = []StageName{
	StageExtracting,
	StageTranscribing,
	StageTranslating,
	StageGenerating,
	StageMerging,
}

// Job represents one end-to-end video dubbing request.
type Job struct {
	ID                 string    `db:"job_id"`
	OriginalFilename   string    `db:"original_filename"`
	Status             JobStatus `db:"status"`
	Progress           int       `db:"progress"`
	Message            string    `db:"message"`
	TargetLanguage     string    `db:"target_language"`
	VideoPath          string    `db:"video_path"`
	ExtractedAudioPath string    `db:"extracted_audio_path"`
	AudioPath          string    `db:"audio_path"`
	OutputPath         string    `db:"output_path"`
	Transcript         *string   `db:"transcript"`
	Translation        *string   `db:"translation"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// Stage tracks one unit of pipeline work within a job.
type Stage struct {
	JobID       string      `db:"job_id"`
	Name        StageName   `db:"stage_name"`
	Status      StageStatus `db:"status"`
	Progress    int         `db:"progress"`
	Message     string      `db:"message"`
	StartedAt   *time.Time  `db:"started_at"`
	CompletedAt *time.Time  `db:"completed_at"`
}

// NewJob creates a pending job with a generated id.
func NewJob(originalFilename, targetLanguage string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:               uuid.New().String(),
		OriginalFilename: originalFilename,
		Status:           JobStatusPending,
		Progress:         0,
		TargetLanguage:   targetLanguage,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// stageMessages holds the initial human-readable description per stage.
var stageMessages = map[StageName]string{
	StageExtracting:   "Extracting audio from video",
	StageTranscribing: "Transcribing audio to text",
	StageTranslating:  "Translating text",
	StageGenerating:   "Generating speech from translation",
	StageMerging:      "Merging audio with video",
}

// NewStages creates the five pipeline stages for a job, in pipeline order,
// all pending.
func NewStages(jobID string) []*Stage {
	stages := make([]*Stage, 0, len(StageOrder))
	for _, name := range StageOrder {
		stages = append(stages, &Stage{
			JobID:   jobID,
			Name:    name,
			Status:  StageStatusPending,
			Message: stageMessages[name],
		})
	}
	return stages
}

// SupportedLanguages maps target language codes to display names.
var SupportedLanguages = map[string]string{
	"en":    "English",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"it":    "Italian",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"zh-CN": "Chinese (Simplified)",
}

// LanguageSupported reports whether code is a valid target language.
func LanguageSupported(code string) bool {
	_, ok := SupportedLanguages[code]
	return ok
}

// allowedExtensions is the media-container whitelist for uploads.
var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".mkv":  {},
}

// AllowedFile reports whether the filename carries a whitelisted
// media-container extension.
func AllowedFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}
