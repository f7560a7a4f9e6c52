// Package billing creates checkout sessions with a Stripe-style payment
// provider.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CheckoutParams describes the session to create.
type CheckoutParams struct {
	CustomerEmail string
	PriceID       string
	SuccessURL    string
	CancelURL     string
	ClientRefID   string
}

// CheckoutSession is the provider's created session; the caller redirects the
// user to URL.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Billing opens checkout sessions.
type Billing interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// HTTPBilling talks to a Stripe-compatible form-encoded API.
type HTTPBilling struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPBilling(baseURL, apiKey string) *HTTPBilling {
	return &HTTPBilling{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *HTTPBilling) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	if params.ClientRefID != "" {
		form.Set("client_reference_id", params.ClientRefID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("payment provider returned no checkout url")
	}
	return &session, nil
}
