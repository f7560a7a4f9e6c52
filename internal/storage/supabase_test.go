package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUploadSendsBytesWithAuth(t *testing.T) {
	var gotPath, gotAuth, gotType, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSupabaseStorage(server.URL, "service-key", "call-recordings")
	err := s.Upload(context.Background(), "user-1/1700-abc.wav", "audio/wav", []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if gotPath != "/storage/v1/object/call-recordings/user-1/1700-abc.wav" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotType != "audio/wav" {
		t.Fatalf("unexpected content type: %s", gotType)
	}
	if gotBody != "RIFFdata" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestUploadNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bucket not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	s := NewSupabaseStorage(server.URL, "k", "missing")
	err := s.Upload(context.Background(), "a/b.wav", "audio/wav", []byte("x"))
	if err == nil {
		t.Fatal("expected error for non-2xx upload")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/call-recordings/u/f.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("mp3bytes"))
	}))
	defer server.Close()

	s := NewSupabaseStorage(server.URL, "k", "call-recordings")
	data, err := s.Download(context.Background(), "u/f.mp3")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if string(data) != "mp3bytes" {
		t.Fatalf("unexpected data: %q", data)
	}

	if _, err := s.Download(context.Background(), "u/missing.mp3"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestObjectKeyScopedAndUnique(t *testing.T) {
	owner := uuid.New()
	now := time.Now()

	key1 := ObjectKey(owner, "call.wav", now)
	key2 := ObjectKey(owner, "call.wav", now)

	if !strings.HasPrefix(key1, owner.String()+"/") {
		t.Fatalf("key not scoped to owner: %s", key1)
	}
	if !strings.HasSuffix(key1, ".wav") {
		t.Fatalf("key lost extension: %s", key1)
	}
	if key1 == key2 {
		t.Fatalf("two keys for the same instant collided: %s", key1)
	}
}
