package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/msayyed72/videodubber-be/internal/api/dto"
	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
)

// jobMessage is the payload published to the worker queue.
type jobMessage struct {
	JobID string `json:"job_id"`
}

// CreateJob handles POST /api/v1/jobs
// Accepts a multipart video upload and queues it for dubbing.
func (h *JobHandler) CreateJob(c *gin.Context) {
	h.logger.Info("CreateJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No video file provided",
		})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No selected file",
		})
		return
	}

	if !domain.AllowedFile(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File type not allowed",
		})
		return
	}

	language := c.DefaultPostForm("language", "en")
	if !domain.LanguageSupported(language) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported target language",
		})
		return
	}

	if file.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "File exceeds maximum upload size",
		})
		return
	}

	ctx := c.Request.Context()

	job := domain.NewJob(sanitizeFilename(file.Filename), language)
	job.Message = "Queued for processing"

	if err := h.store.Create(ctx, job, domain.NewStages(job.ID)); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	// Uploaded artifacts carry the job id prefix so cleanup can find them.
	videoPath := filepath.Join(h.uploadDir, job.ID+"_"+job.OriginalFilename)
	if err := c.SaveUploadedFile(file, videoPath); err != nil {
		h.logger.Error("Failed to save upload",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		h.failJob(c, job.ID, "Failed to store uploaded video")
		return
	}

	if err := h.store.UpdateJob(ctx, job.ID, func(j *domain.Job) {
		j.VideoPath = videoPath
	}); err != nil {
		h.logger.Error("Failed to record video path",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		h.failJob(c, job.ID, "Failed to create job")
		return
	}

	body, _ := json.Marshal(jobMessage{JobID: job.ID})
	if err := h.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		h.logger.Error("Failed to queue job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		h.failJob(c, job.ID, "Failed to queue job for processing")
		return
	}

	h.logger.Info("Job queued",
		slog.String("job_id", job.ID),
		slog.String("filename", job.OriginalFilename),
		slog.String("language", language),
	)

	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		JobID:   job.ID,
		Status:  string(domain.JobStatusPending),
		Message: job.Message,
	})
}

// failJob marks the job failed after a submission error and answers 500.
// The coordinator removes whatever was already written to disk.
func (h *JobHandler) failJob(c *gin.Context, jobID, message string) {
	err := h.store.UpdateJob(c.Request.Context(), jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.Message = message
	})
	if err != nil {
		h.logger.Error("Failed to mark job failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
	h.coordinator.Cleanup(jobID)

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": message,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the job with its pipeline stages.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	ctx := c.Request.Context()

	job, err := h.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	stages, err := h.store.ListStages(ctx, jobID)
	if err != nil {
		h.logger.Error("Failed to list stages",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.JobStatusResponse{
		Job:    dto.FromJob(job),
		Stages: dto.FromStages(stages),
	})
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs newest first, optionally filtered by status.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var status domain.JobStatus
	if s := c.Query("status"); s != "" {
		status = domain.JobStatus(s)
		switch status {
		case domain.JobStatusPending, domain.JobStatusProcessing,
			domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid status filter",
			})
			return
		}
	}

	jobs, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	out := make([]dto.JobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = dto.FromJob(job)
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: out})
}

// DownloadJob handles GET /api/v1/jobs/:job_id/download
// Streams the dubbed video as an attachment.
func (h *JobHandler) DownloadJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	if job.Status != domain.JobStatusCompleted || job.OutputPath == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Output not available",
		})
		return
	}

	// The output must live inside the processed directory. Anything else
	// means a corrupted record, and is not served.
	if filepath.Dir(filepath.Clean(job.OutputPath)) != filepath.Clean(h.processedDir) {
		h.logger.Error("Output path outside processed directory",
			slog.String("job_id", jobID),
			slog.String("path", job.OutputPath),
		)
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Output not available",
		})
		return
	}

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.FileAttachment(job.OutputPath, "dubbed_"+job.OriginalFilename)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
// Cancels a pending or running job.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	err := h.coordinator.Cancel(c.Request.Context(), jobID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message": "Job cancelled successfully",
		})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
	case errors.Is(err, domain.ErrJobTerminal):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Job already finished",
		})
	default:
		h.logger.Error("Failed to cancel job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel job",
		})
	}
}

// Languages handles GET /api/v1/languages
func (h *JobHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, dto.LanguagesResponse{
		Languages: domain.SupportedLanguages,
	})
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeFilename strips path components and characters that are unsafe
// in a filesystem name. Never returns an empty string.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}
