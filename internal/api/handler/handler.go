package handler

import (
	"context"
	"log/slog"

	"github.com/msayyed72/videodubber-be/internal/dubbing/pipeline"
	"github.com/msayyed72/videodubber-be/internal/dubbing/store"
)

// Publisher hands a job off to the worker queue.
// Satisfied by rabbitmq.Client.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        store.Store
	Publisher    Publisher
	Coordinator  *pipeline.Coordinator
	UploadDir    string
	ProcessedDir string
	MaxUpload    int64 // bytes

	// Health reports backing-service readiness. Optional.
	Health func(ctx context.Context) error
}

// JobHandler handles dubbing-job HTTP requests
type JobHandler struct {
	logger       *slog.Logger
	store        store.Store
	publisher    Publisher
	coordinator  *pipeline.Coordinator
	uploadDir    string
	processedDir string
	maxUpload    int64
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		publisher:    deps.Publisher,
		coordinator:  deps.Coordinator,
		uploadDir:    deps.UploadDir,
		processedDir: deps.ProcessedDir,
		maxUpload:    deps.MaxUpload,
	}
}
