package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/recognition"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// StudentsHandler serves enrollment and registry management endpoints.
type StudentsHandler struct {
	engine   *recognition.Engine
	registry store.Registry
	metrics  *Metrics
}

// NewStudentsHandler creates a students handler.
func NewStudentsHandler(engine *recognition.Engine, registry store.Registry, metrics *Metrics) *StudentsHandler {
	return &StudentsHandler{engine: engine, registry: registry, metrics: metrics}
}

type enrollRequest struct {
	StudentID string   `json:"student_id"`
	Name      string   `json:"name"`
	Images    []string `json:"images"` // base64 face samples
}

// Enroll handles POST /api/v1/students.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	images := make([][]byte, len(req.Images))
	for i, encoded := range req.Images {
		data, err := vision.DecodeBase64Bytes(encoded)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid base64 image")
			return
		}
		images[i] = data
	}

	err := h.engine.Enroll(r.Context(), req.StudentID, req.Name, images)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInvalidStudentID), errors.Is(err, recognition.ErrInvalidName):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, recognition.ErrNotEnoughSamples):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, store.ErrPersistence):
		log.Errorf("enrollment persistence failed: %v", err)
		respondError(w, http.StatusInternalServerError, "could not persist enrollment")
		return
	default:
		log.Errorf("enrollment failed: %v", err)
		respondError(w, http.StatusInternalServerError, "enrollment failed")
		return
	}

	h.metrics.RecordEnrollment()
	normalized, _ := store.ValidateStudentID(req.StudentID)
	log.Infof("enrolled student %s", sanitizeForLog(normalized))

	respondJSON(w, http.StatusCreated, map[string]any{
		"student_id": normalized,
		"name":       req.Name,
	})
}

// List handles GET /api/v1/students. An optional q parameter filters by name
// (diacritics-insensitive) or student ID.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.registry.List(r.Context())
	if err != nil {
		log.Errorf("listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "could not list students")
		return
	}

	query := r.URL.Query().Get("q")
	filtered := make([]store.IdentitySummary, 0, len(summaries))
	for _, s := range summaries {
		if store.MatchesQuery(s, query) {
			filtered = append(filtered, s)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"students": filtered,
		"total":    len(filtered),
	})
}

// Remove handles DELETE /api/v1/students/{studentId}.
func (h *StudentsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	studentID := store.NormalizeStudentID(chi.URLParam(r, "studentId"))

	err := h.registry.Remove(r.Context(), studentID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "student not found")
		return
	default:
		log.Errorf("removing student %s failed: %v", sanitizeForLog(studentID), err)
		respondError(w, http.StatusInternalServerError, "could not remove student")
		return
	}

	log.Infof("removed student %s", sanitizeForLog(studentID))
	respondJSON(w, http.StatusOK, map[string]string{"student_id": studentID})
}

// Duplicates handles GET /api/v1/students/duplicates: an audit for the same
// person enrolled under multiple IDs.
func (h *StudentsHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	pairs, err := store.FindDuplicates(r.Context(), h.registry, constants.DuplicateAuditDistance)
	if err != nil {
		log.Errorf("duplicate audit failed: %v", err)
		respondError(w, http.StatusInternalServerError, "could not run duplicate audit")
		return
	}
	if pairs == nil {
		pairs = []store.DuplicatePair{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"duplicates": pairs,
		"total":      len(pairs),
	})
}
