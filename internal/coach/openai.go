package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemInstruction = `You are an experienced sales coach reviewing a recorded sales call.
You are given the full timestamped transcript and a question from the rep.
Respond with a single JSON object with these keys:
"summary" (string), "objections" (array of strings), "improvements" (array of strings),
"timestamps" (array of {"time":"HH:MM:SS","text":string,"context":string}),
"followUpTemplates" (array of strings), "answer" (string answering the question directly).
Do not wrap the JSON in markdown fences.`

// OpenAIClient calls an OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewOpenAIClient(endpoint, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Analyze(ctx context.Context, transcript, question string) (*Analysis, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: fmt.Sprintf("Transcript:\n%s\nQuestion: %s", transcript, question)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var parsed chatResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil {
			return nil, fmt.Errorf("chat completion status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("chat completion status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return ParseAnalysis(parsed.Choices[0].Message.Content), nil
}

// ParseAnalysis decodes the model's reply into the structured result. A reply
// that is not valid JSON of the expected shape degrades to the raw-text
// fallback instead of failing the request.
func ParseAnalysis(content string) *Analysis {
	trimmed := strings.TrimSpace(content)
	// Models occasionally fence the JSON despite instructions.
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var analysis Analysis
	if err := json.Unmarshal([]byte(trimmed), &analysis); err != nil {
		return FallbackAnalysis(content)
	}
	if analysis.Answer == "" && analysis.Summary == "" {
		// Valid JSON but not our shape (e.g. a bare array or unrelated object).
		return FallbackAnalysis(content)
	}
	analysis.normalize()
	return &analysis
}
