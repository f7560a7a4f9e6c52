// Package emailer sends transactional email through an HTTP email provider.
package emailer

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

// Message is a single outbound email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Emailer delivers messages.
type Emailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPEmailer posts messages to a Resend-style JSON endpoint.
type HTTPEmailer struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewHTTPEmailer(baseURL, apiKey, from string) *HTTPEmailer {
	return &HTTPEmailer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *HTTPEmailer) Send(ctx context.Context, msg Message) error {
	payload := struct {
		From string `json:"from"`
		Message
	}{From: e.from, Message: msg}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// InvitationMessage builds the group invitation email.
func InvitationMessage(to, inviterEmail, groupName, joinURL string) Message {
	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("%s invited you to join %q", inviterEmail, groupName),
		HTML: fmt.Sprintf(
			"<p>%s has invited you to collaborate in the group <strong>%s</strong>.</p><p><a href=%q>Join the group</a></p>",
			inviterEmail, groupName, joinURL,
		),
	}
}
