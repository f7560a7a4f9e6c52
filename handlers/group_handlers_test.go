package handlers

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salescoach/config"
	"salescoach/internal/store"
	"salescoach/models"
)

// groupEnv routes group endpoints with a switchable caller identity.
type groupEnv struct {
	app     *fiber.App
	store   *store.MemoryStore
	current uuid.UUID
}

func newGroupEnv(t *testing.T) *groupEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &groupEnv{store: store.NewMemoryStore(), current: uuid.New()}
	h := NewApplicationHandler(env.store, &countingStorage{}, &fakeCoach{}, nil, nil, log, &config.Config{})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", env.current)
		return c.Next()
	})
	app.Post("/api/v1/groups", h.CreateGroupHandler)
	app.Get("/api/v1/groups", h.ListGroupsHandler)
	app.Post("/api/v1/groups/:id/join", h.JoinGroupHandler)
	app.Post("/api/v1/groups/:id/messages", h.PostGroupMessageHandler)
	app.Get("/api/v1/groups/:id/messages", h.ListGroupMessagesHandler)
	env.app = app
	return env
}

func TestGroupShareRecordingFlow(t *testing.T) {
	env := newGroupEnv(t)
	owner := env.current

	// Owner creates a group.
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups", map[string]string{"name": "East Region"}))
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	out := parseJSON(t, resp)
	groupID := out["data"].(map[string]interface{})["id"].(string)

	rec, err := env.store.CreateRecording(context.Background(), models.Recording{
		OwnerID:       owner,
		Title:         "call",
		AudioFilename: owner.String() + "/1-call.mp3",
		Status:        models.RecordingStatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed recording: %v", err)
	}

	// Owner shares the recording into the group.
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups/"+groupID+"/messages", map[string]string{
		"content":     "listen to the pricing discussion",
		"recordingId": rec.ID.String(),
	}))
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// A second user joins and can read the message.
	env.current = uuid.New()
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups/"+groupID+"/join", nil))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on join, got %d", resp.StatusCode)
	}

	req := jsonRequest(http.MethodGet, "/api/v1/groups/"+groupID+"/messages", nil)
	resp, err = env.app.Test(req)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	msgs := parseJSON(t, resp)["data"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0].(map[string]interface{})
	if msg["recording_id"] != rec.ID.String() {
		t.Fatalf("shared recording id missing, got %v", msg["recording_id"])
	}
}

func TestGroupMessagesRequireMembership(t *testing.T) {
	env := newGroupEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups", map[string]string{"name": "West Region"}))
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	groupID := parseJSON(t, resp)["data"].(map[string]interface{})["id"].(string)

	// A stranger can neither post nor read.
	env.current = uuid.New()
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups/"+groupID+"/messages", map[string]string{"content": "hi"}))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 posting as non-member, got %d", resp.StatusCode)
	}
	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/api/v1/groups/"+groupID+"/messages", nil))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 listing as non-member, got %d", resp.StatusCode)
	}
}

func TestShareForeignRecordingRejected(t *testing.T) {
	env := newGroupEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups", map[string]string{"name": "North"}))
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	groupID := parseJSON(t, resp)["data"].(map[string]interface{})["id"].(string)

	other := uuid.New()
	foreign, err := env.store.CreateRecording(context.Background(), models.Recording{
		OwnerID:       other,
		Title:         "not yours",
		AudioFilename: other.String() + "/1-x.mp3",
		Status:        models.RecordingStatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/api/v1/groups/"+groupID+"/messages", map[string]string{
		"recordingId": foreign.ID.String(),
	}))
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("sharing someone else's recording must 404, got %d", resp.StatusCode)
	}
	msgs, _ := env.store.ListMessages(context.Background(), uuid.MustParse(groupID))
	if len(msgs) != 0 {
		t.Fatalf("no message should be created, got %d", len(msgs))
	}
}
