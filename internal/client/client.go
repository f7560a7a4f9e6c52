// Package client is the Go client for the salescoach HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"salescoach/internal/coach"
	"salescoach/models"
)

// Client talks to one salescoach API server on behalf of one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// UploadAudio uploads a recording and returns the created row.
func (c *Client) UploadAudio(ctx context.Context, title, filename, contentType string, audio io.Reader) (*models.Recording, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if title != "" {
		if err := w.WriteField("title", title); err != nil {
			return nil, fmt.Errorf("failed to build upload body: %w", err)
		}
	}
	w.Close()

	var out struct {
		Recording models.Recording `json:"recording"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/upload-audio", w.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return &out.Recording, nil
}

// Transcribe enqueues transcription for a recording. apiKey is an optional
// per-request credential override.
func (c *Client) Transcribe(ctx context.Context, recordingID uuid.UUID, apiKey string) error {
	payload := map[string]string{"recordingId": recordingID.String()}
	if apiKey != "" {
		payload["apiKey"] = apiKey
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/transcribe-audio", payload, nil)
}

// Analyze asks a coaching question about a transcribed recording.
func (c *Client) Analyze(ctx context.Context, recordingID uuid.UUID, question string) (*coach.Analysis, error) {
	var out struct {
		Analysis coach.Analysis `json:"analysis"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/analyze-conversation", map[string]string{
		"recordingId": recordingID.String(),
		"question":    question,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Analysis, nil
}

// ListRecordings returns the caller's recordings, newest first.
func (c *Client) ListRecordings(ctx context.Context) ([]models.Recording, error) {
	var out struct {
		Data []models.Recording `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/recordings", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetRecording fetches one recording.
func (c *Client) GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	var out struct {
		Data models.Recording `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/recordings/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GetTranscript fetches a recording's transcript.
func (c *Client) GetTranscript(ctx context.Context, id uuid.UUID) (*models.Transcript, error) {
	var out struct {
		Data models.Transcript `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/recordings/"+id.String()+"/transcript", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil {
			apiErr.Message = detail.Error
			apiErr.Code = detail.Code
		}
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
