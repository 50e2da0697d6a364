package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to an InsightFace-style model service over HTTP. The same
// service usually exposes both detection and embedding, but separate base
// URLs are supported so the two models can be scaled independently.
type Client struct {
	detectorURL string
	embedderURL string
	model       string
	httpClient  *http.Client
}

// NewClient creates a model service client. embedderURL may equal detectorURL.
func NewClient(detectorURL, embedderURL, model string) *Client {
	return &Client{
		detectorURL: detectorURL,
		embedderURL: embedderURL,
		model:       model,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Model returns the embedding model identifier the client requests.
func (c *Client) Model() string {
	return c.model
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Box   []float64   `json:"bbox"`
	Score float64     `json:"det_score"`
	Kps   [][]float64 `json:"kps"`
}

type embedRequest struct {
	Image string `json:"image"`
	Model string `json:"model"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Detect submits a JPEG image to the detection endpoint and converts the
// service's corner-format boxes to (x, y, w, h).
func (c *Client) Detect(ctx context.Context, imageJPEG []byte) ([]Detection, error) {
	var raw []detectResponse
	if err := c.postJSON(ctx, c.detectorURL+"/detect", detectRequest{
		Image: base64.StdEncoding.EncodeToString(imageJPEG),
	}, &raw); err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}

	detections := make([]Detection, 0, len(raw))
	for _, r := range raw {
		if len(r.Box) != 4 {
			continue
		}
		d := Detection{
			X:          int(r.Box[0]),
			Y:          int(r.Box[1]),
			Width:      int(r.Box[2] - r.Box[0]),
			Height:     int(r.Box[3] - r.Box[1]),
			Confidence: r.Score,
		}
		for _, kp := range r.Kps {
			if len(kp) == 2 {
				d.Landmarks = append(d.Landmarks, Point{X: int(kp[0]), Y: int(kp[1])})
			}
		}
		detections = append(detections, d)
	}

	log.Debugf("vision: detector returned %d faces", len(detections))

	return detections, nil
}

// Embed submits a JPEG face crop to the embedding endpoint.
func (c *Client) Embed(ctx context.Context, faceJPEG []byte) ([]float32, error) {
	var resp embedResponse
	if err := c.postJSON(ctx, c.embedderURL+"/embed", embedRequest{
		Image: base64.StdEncoding.EncodeToString(faceJPEG),
		Model: c.model,
	}, &resp); err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, ErrNoEmbedding
	}

	return resp.Embedding, nil
}

// postJSON performs a POST request with a JSON body and unmarshals the JSON
// response into result.
func (c *Client) postJSON(ctx context.Context, url string, requestBody, result any) error {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("could not marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}

	return nil
}
