package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Image == "" {
			t.Error("expected base64 image in request")
		}
		json.NewEncoder(w).Encode([]detectResponse{
			{Box: []float64{10, 20, 110, 140}, Score: 0.99, Kps: [][]float64{{30, 50}, {80, 50}}},
			{Box: []float64{200, 30}, Score: 0.97}, // malformed box, should be dropped
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "Facenet512")

	detections, err := client.Detect(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	if len(detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(detections))
	}

	d := detections[0]
	if d.X != 10 || d.Y != 20 || d.Width != 100 || d.Height != 120 {
		t.Errorf("unexpected box (%d,%d,%d,%d)", d.X, d.Y, d.Width, d.Height)
	}
	if d.Confidence != 0.99 {
		t.Errorf("expected confidence 0.99, got %f", d.Confidence)
	}
	if len(d.Landmarks) != 2 {
		t.Errorf("expected 2 landmarks, got %d", len(d.Landmarks))
	}
}

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "Facenet512" {
			t.Errorf("expected model Facenet512, got '%s'", req.Model)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "Facenet512")

	embedding, err := client.Embed(context.Background(), []byte("crop-bytes"))
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if len(embedding) != 3 {
		t.Errorf("expected 3 components, got %d", len(embedding))
	}
}

func TestClient_EmbedNoEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "Facenet512")

	_, err := client.Embed(context.Background(), []byte("crop-bytes"))
	if !errors.Is(err, ErrNoEmbedding) {
		t.Errorf("expected ErrNoEmbedding, got %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "Facenet512")

	if _, err := client.Detect(context.Background(), []byte("jpeg")); err == nil {
		t.Error("expected error for 503 response")
	}

	if _, err := client.Embed(context.Background(), []byte("jpeg")); err == nil {
		t.Error("expected error for 503 response")
	}
}
