package emailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendPostsResendShapedPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer re-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewHTTPEmailer(srv.URL, "re-key", "coach@example.com")
	err := e.Send(context.Background(), Message{
		To:      []string{"rep@example.com"},
		Subject: "hello",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if got["from"] != "coach@example.com" {
		t.Fatalf("expected from address, got %v", got["from"])
	}
	if got["subject"] != "hello" {
		t.Fatalf("expected subject, got %v", got["subject"])
	}
}

func TestSendSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid recipient"}`))
	}))
	defer srv.Close()

	e := NewHTTPEmailer(srv.URL, "re-key", "coach@example.com")
	err := e.Send(context.Background(), Message{To: []string{"not-an-address"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("error should carry status and detail, got %v", err)
	}
}

func TestInvitationMessage(t *testing.T) {
	msg := InvitationMessage("rep@example.com", "lead@example.com", "Q3 Pipeline", "https://app.example.com/join/abc")
	if len(msg.To) != 1 || msg.To[0] != "rep@example.com" {
		t.Fatalf("unexpected recipients %v", msg.To)
	}
	if !strings.Contains(msg.Subject, "lead@example.com") || !strings.Contains(msg.Subject, "Q3 Pipeline") {
		t.Fatalf("subject missing inviter or group: %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "https://app.example.com/join/abc") {
		t.Fatalf("body missing join link: %q", msg.HTML)
	}
}
