package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"salescoach/internal/billing"
	"salescoach/internal/emailer"
	"salescoach/models"
)

type fakeEmailer struct {
	sent []emailer.Message
	err  error
}

func (f *fakeEmailer) Send(ctx context.Context, msg emailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeBilling struct {
	params  billing.CheckoutParams
	session *billing.CheckoutSession
}

func (f *fakeBilling) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	f.params = params
	return f.session, nil
}

func TestSendInvitationUsesCallerProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	em := &fakeEmailer{}
	env.handler.Emailer = em

	if err := env.store.UpsertProfile(context.Background(), models.Profile{
		ID:    env.userID,
		Email: "lead@example.com",
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	env.app.Post("/api/v1/invitations", env.handler.SendInvitationHandler)
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/invitations", map[string]string{
		"email":     "rep@example.com",
		"groupName": "Q3 Pipeline",
		"joinUrl":   "https://app.example.com/join/abc",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(em.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(em.sent))
	}
	if !strings.Contains(em.sent[0].Subject, "lead@example.com") {
		t.Fatalf("inviter must come from the caller's profile, got subject %q", em.sent[0].Subject)
	}
}

func TestSendInvitationValidatesRecipient(t *testing.T) {
	env := newTestEnv(t, nil)
	em := &fakeEmailer{}
	env.handler.Emailer = em

	env.app.Post("/api/v1/invitations", env.handler.SendInvitationHandler)
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/invitations", map[string]string{
		"email":     "not-an-address",
		"groupName": "Q3 Pipeline",
		"joinUrl":   "https://app.example.com/join/abc",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if len(em.sent) != 0 {
		t.Fatal("invalid request must not send email")
	}
}

func TestCreateCheckoutSessionForwardsCallerReference(t *testing.T) {
	env := newTestEnv(t, nil)
	bi := &fakeBilling{session: &billing.CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}}
	env.handler.Billing = bi

	env.app.Post("/api/v1/checkout-session", env.handler.CreateCheckoutSessionHandler)
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout-session", map[string]string{
		"priceId":    "price_pro",
		"email":      "rep@example.com",
		"successUrl": "https://app.example.com/done",
		"cancelUrl":  "https://app.example.com/cancel",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if bi.params.ClientRefID != env.userID.String() {
		t.Fatalf("caller id not forwarded as client reference, got %q", bi.params.ClientRefID)
	}
	out := parseJSON(t, resp)
	data := out["data"].(map[string]interface{})
	if data["url"] != "https://pay.example.com/cs_1" {
		t.Fatalf("checkout url not returned, got %v", data["url"])
	}
}
