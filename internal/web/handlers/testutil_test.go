package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/recognition"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// fakeDetector returns canned detections.
type fakeDetector struct {
	detections []vision.Detection
	err        error
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte) ([]vision.Detection, error) {
	return f.detections, f.err
}

// fakeEmbedder returns canned embeddings in rotation.
type fakeEmbedder struct {
	embeddings [][]float32
	err        error
	calls      int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	e := f.embeddings[f.calls%len(f.embeddings)]
	f.calls++
	return e, nil
}

// testRegistry creates a file store in a temp directory.
func testRegistry(t *testing.T) *store.FileStore {
	t.Helper()
	dir := t.TempDir()
	return store.NewFileStore(
		filepath.Join(dir, "face_encodings.gob"),
		filepath.Join(dir, "student_metadata.json"),
		"Facenet512",
	)
}

// testEngine wires an engine with fakes around the given registry.
func testEngine(registry store.Registry, embedding []float32) *recognition.Engine {
	return recognition.NewEngine(
		&fakeDetector{detections: []vision.Detection{
			{X: 50, Y: 50, Width: 120, Height: 120, Confidence: 0.99},
		}},
		&fakeEmbedder{embeddings: [][]float32{embedding}},
		registry,
		0.6,
	)
}

// enrollDirect registers a record bypassing the pipeline.
func enrollDirect(t *testing.T, registry store.Registry, id, name string, embedding []float32) {
	t.Helper()
	err := registry.Register(context.Background(), store.IdentityRecord{
		StudentID:    id,
		Name:         name,
		Embedding:    embedding,
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

// testImageBase64 returns a base64-encoded JPEG test image.
func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := range 480 {
		for x := range 640 {
			v := uint8((x*3 + y*7) % 256)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}
