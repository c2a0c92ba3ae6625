package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job id is unknown to the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrStageNotFound is returned when a stage name does not exist for a job.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDuplicateJob is returned when creating a job whose id already exists.
	ErrDuplicateJob = errors.New("job already exists")

	// ErrJobTerminal is returned when an update targets a job that already
	// reached a terminal status. The store never applies such writes.
	ErrJobTerminal = errors.New("job is in a terminal state")
)

// Stage failure taxonomy. Stage errors are converted to a failed job at
// the scheduler boundary and are never surfaced to clients raw.
var (
	ErrExternalTool    = errors.New("external media tool failed")
	ErrTranscription   = errors.New("transcription failed")
	ErrTranslation     = errors.New("translation failed")
	ErrSpeechSynthesis = errors.New("speech synthesis failed")
	ErrMerge           = errors.New("merging audio with video failed")
)

// Upload validation errors, surfaced synchronously to the submitter.
var (
	ErrDisallowedExtension = errors.New("file type not allowed")
	ErrUnsupportedLanguage = errors.New("unsupported target language")
	ErrFileTooLarge        = errors.New("file exceeds maximum upload size")
)
