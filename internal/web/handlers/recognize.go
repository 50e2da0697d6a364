package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/recognition"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// RecognizeHandler serves the recognition endpoints.
type RecognizeHandler struct {
	engine  *recognition.Engine
	metrics *Metrics
}

// NewRecognizeHandler creates a recognize handler.
func NewRecognizeHandler(engine *recognition.Engine, metrics *Metrics) *RecognizeHandler {
	return &RecognizeHandler{engine: engine, metrics: metrics}
}

type recognizeRequest struct {
	Image     string  `json:"image"`     // base64, data-URL prefix tolerated
	Threshold float64 `json:"threshold"` // optional override, must be in (0, 1)
}

type recognizeBatchRequest struct {
	Images    []string `json:"images"`
	Threshold float64  `json:"threshold"` // optional override, must be in (0, 1)
}

// Recognize handles POST /api/v1/recognize. Pipeline problems (undecodable
// image, unreachable model service) come back as HTTP 200 with a degraded
// result body; only malformed requests are HTTP errors.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	result := h.engine.RecognizeBase64WithThreshold(r.Context(), req.Image, h.engine.ResolveThreshold(req.Threshold))
	h.metrics.RecordRecognition(result.Success, result.FacesDetected)

	respondJSON(w, http.StatusOK, result)
}

// RecognizeBatch handles POST /api/v1/recognize/batch.
func (h *RecognizeHandler) RecognizeBatch(w http.ResponseWriter, r *http.Request) {
	var req recognizeBatchRequest
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

	batch := h.engine.RecognizeBatchWithThreshold(r.Context(), images, h.engine.ResolveThreshold(req.Threshold))
	for _, res := range batch.Results {
		h.metrics.RecordRecognition(res.Success, res.FacesDetected)
	}

	respondJSON(w, http.StatusOK, batch)
}
