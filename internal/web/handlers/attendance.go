package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-attend/internal/recognition"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// AttendanceHandler serves the async attendance session endpoints.
type AttendanceHandler struct {
	engine     *recognition.Engine
	jobManager *JobManager
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(engine *recognition.Engine, jobManager *JobManager) *AttendanceHandler {
	return &AttendanceHandler{engine: engine, jobManager: jobManager}
}

type attendanceRequest struct {
	Session   string   `json:"session,omitempty"` // free-form label, e.g. "math-101 monday"
	Images    []string `json:"images"`
	Threshold float64  `json:"threshold"` // optional override, must be in (0, 1)
}

// Start handles POST /api/v1/attendance: creates a job and processes the
// images in the background.
func (h *AttendanceHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Images) == 0 {
		respondError(w, http.StatusBadRequest, "images are required")
		return
	}

	images := make([][]byte, len(req.Images))
	for i, encoded := range req.Images {
		data, err := vision.DecodeBase64Bytes(encoded)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid base64 image in batch")
			return
		}
		images[i] = data
	}

	// The cancel func must be in place before the job becomes visible to
	// DELETE handlers, so it is wired through CreateJob.
	ctx, cancel := context.WithCancel(context.Background())
	job := h.jobManager.CreateJob(uuid.New().String(), req.Session, len(images), cancel)

	go h.runJob(ctx, job, images, h.engine.ResolveThreshold(req.Threshold))

	log.Infof("started attendance job %s with %d images", job.ID, len(images))
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// runJob processes the images one by one so listeners get per-image progress.
func (h *AttendanceHandler) runJob(ctx context.Context, job *AttendanceJob, images [][]byte, threshold float64) {
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()

	results := make([]recognition.Result, 0, len(images))
	for i, data := range images {
		if ctx.Err() != nil {
			// Cancel() already set the status and notified listeners.
			return
		}

		result := h.engine.RecognizeWithThreshold(ctx, data, threshold)
		results = append(results, result)

		job.mu.Lock()
		job.ProcessedImages = i + 1
		job.Results = results
		job.mu.Unlock()

		job.SendEvent(JobEvent{
			Type:    "progress",
			Message: "image processed",
			Data: map[string]any{
				"processed": i + 1,
				"total":     len(images),
				"result":    result,
			},
		})
	}

	attendance := recognition.MergeAttendance(results)
	now := time.Now()

	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Attendance = attendance
	job.CompletedAt = &now
	job.mu.Unlock()

	job.SendEvent(JobEvent{
		Type:    "completed",
		Message: "attendance session finished",
		Data:    map[string]any{"attendance": attendance},
	})
}

// Status handles GET /api/v1/attendance/{jobId}.
func (h *AttendanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.mu.RLock()
	defer job.mu.RUnlock()
	respondJSON(w, http.StatusOK, job)
}

// Events handles GET /api/v1/attendance/{jobId}/events (SSE stream).
func (h *AttendanceHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			if job := h.jobManager.GetJob(id); job != nil {
				return job
			}
			return nil
		},
		func(j SSEJob) any {
			job := j.(*AttendanceJob)
			job.mu.RLock()
			defer job.mu.RUnlock()
			return job
		},
	)
}

// Cancel handles DELETE /api/v1/attendance/{jobId}.
func (h *AttendanceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	log.Infof("cancelled attendance job %s", job.ID)
	respondJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": string(JobStatusCancelled)})
}
