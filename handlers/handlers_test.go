package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salescoach/config"
	"salescoach/internal/coach"
	"salescoach/internal/store"
	"salescoach/models"
)

type countingStorage struct {
	uploads   int
	downloads int
	objects   map[string][]byte
}

func (s *countingStorage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	s.uploads++
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return nil
}

func (s *countingStorage) Download(ctx context.Context, key string) ([]byte, error) {
	s.downloads++
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *countingStorage) PublicURL(key string) string { return "https://storage.test/" + key }

type fakeCoach struct {
	calls    int
	analysis *coach.Analysis
	err      error
}

func (f *fakeCoach) Analyze(ctx context.Context, transcript, question string) (*coach.Analysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type testEnv struct {
	app     *fiber.App
	store   *store.MemoryStore
	storage *countingStorage
	coach   *fakeCoach
	handler *ApplicationHandler
	userID  uuid.UUID
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{TranscriptionAPIKey: "sk-server"}
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		store:   store.NewMemoryStore(),
		storage: &countingStorage{},
		coach:   &fakeCoach{analysis: coach.FallbackAnalysis("ok")},
		userID:  uuid.New(),
	}
	env.handler = NewApplicationHandler(env.store, env.storage, env.coach, nil, nil, log, cfg)

	app := fiber.New(fiber.Config{BodyLimit: MaxUploadBytes + (1 << 20)})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", env.userID)
		return c.Next()
	})
	app.Post("/api/v1/upload-audio", env.handler.UploadAudioHandler)
	app.Post("/api/v1/transcribe-audio", env.handler.TranscribeAudioHandler)
	app.Post("/api/v1/analyze-conversation", env.handler.AnalyzeConversationHandler)
	app.Get("/api/v1/recordings", env.handler.ListRecordingsHandler)
	app.Get("/api/v1/recordings/:id", env.handler.GetRecordingHandler)
	app.Patch("/api/v1/recordings/:id", env.handler.RenameRecordingHandler)
	app.Delete("/api/v1/recordings/:id", env.handler.DeleteRecordingHandler)
	app.Get("/api/v1/recordings/:id/transcript", env.handler.GetTranscriptHandler)
	app.Get("/api/v1/recordings/:id/notes", env.handler.ListNotesHandler)
	env.app = app
	return env
}

func multipartAudio(t *testing.T, filename, contentType string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="audio"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(bytes.Repeat([]byte("a"), size))
	w.Close()
	return &buf, w.FormDataContentType()
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func (e *testEnv) seedRecording(t *testing.T, status string) *models.Recording {
	t.Helper()
	rec, err := e.store.CreateRecording(context.Background(), models.Recording{
		OwnerID:       e.userID,
		Title:         "weekly pipeline call",
		AudioFilename: e.userID.String() + "/1-call.mp3",
		Status:        status,
	})
	if err != nil {
		t.Fatalf("seed recording: %v", err)
	}
	return rec
}

func TestUploadAudioSuccess(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartAudio(t, "call.mp3", "audio/mpeg", 64)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-audio", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if env.storage.uploads != 1 {
		t.Fatalf("expected 1 storage upload, got %d", env.storage.uploads)
	}

	out := parseJSON(t, resp)
	rec := out["recording"].(map[string]interface{})
	if rec["status"] != models.RecordingStatusUploaded {
		t.Fatalf("expected uploaded status, got %v", rec["status"])
	}
	if rec["title"] != "call" {
		t.Fatalf("title should default to filename stem, got %v", rec["title"])
	}
	key := rec["audio_filename"].(string)
	if !strings.HasPrefix(key, env.userID.String()+"/") {
		t.Fatalf("storage key not namespaced by owner: %q", key)
	}
}

func TestUploadAudioRejectsWithoutNetworkCalls(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		size        int
	}{
		{"unsupported type", "video/mp4", 64},
		{"oversized file", "audio/mpeg", MaxUploadBytes + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			body, contentType := multipartAudio(t, "call.bin", tc.contentType, tc.size)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-audio", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := env.app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if env.storage.uploads != 0 {
				t.Fatalf("rejected upload must not reach storage, got %d calls", env.storage.uploads)
			}
			recs, _ := env.store.ListRecordings(context.Background(), env.userID)
			if len(recs) != 0 {
				t.Fatalf("rejected upload must not create a recording, got %d", len(recs))
			}
		})
	}
}

func TestTranscribeAudioEnqueuesJob(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.seedRecording(t, models.RecordingStatusUploaded)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/transcribe-audio",
		map[string]string{"recordingId": rec.ID.String()}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	job, err := env.store.ClaimNextJob(context.Background())
	if err != nil {
		t.Fatalf("expected a pending job: %v", err)
	}
	if job.RecordingID != rec.ID || job.OwnerID != env.userID {
		t.Fatalf("job has wrong identity: %+v", job)
	}
	if len(job.Metadata) != 0 {
		t.Fatalf("no override expected, got metadata %s", job.Metadata)
	}
}

func TestTranscribeAudioErrorCodes(t *testing.T) {
	env := newTestEnv(t, nil)
	completed := env.seedRecording(t, models.RecordingStatusCompleted)

	cases := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"missing id", map[string]string{}, http.StatusBadRequest, "MISSING_RECORDING_ID"},
		{"malformed id", map[string]string{"recordingId": "not-a-uuid"}, http.StatusBadRequest, "MISSING_RECORDING_ID"},
		{"unknown recording", map[string]string{"recordingId": uuid.NewString()}, http.StatusNotFound, "NOT_FOUND"},
		{"already processed", map[string]string{"recordingId": completed.ID.String()}, http.StatusConflict, "ALREADY_PROCESSED"},
		{"malformed override key", map[string]string{"recordingId": completed.ID.String(), "apiKey": "pk-wrong"}, http.StatusBadRequest, "SERVER_API_KEY_MISSING"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/transcribe-audio", tc.body))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			out := parseJSON(t, resp)
			if out["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, out["code"])
			}
		})
	}
}

func TestTranscribeAudioWithoutServerKey(t *testing.T) {
	env := newTestEnv(t, &config.Config{})
	rec := env.seedRecording(t, models.RecordingStatusUploaded)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/transcribe-audio",
		map[string]string{"recordingId": rec.ID.String()}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if out := parseJSON(t, resp); out["code"] != "SERVER_API_KEY_MISSING" {
		t.Fatalf("expected SERVER_API_KEY_MISSING, got %v", out["code"])
	}

	// A valid client override makes the same request succeed.
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/api/v1/transcribe-audio",
		map[string]string{"recordingId": rec.ID.String(), "apiKey": "sk-client"}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 with override, got %d", resp.StatusCode)
	}
	job, err := env.store.ClaimNextJob(context.Background())
	if err != nil {
		t.Fatalf("expected a job: %v", err)
	}
	var meta models.JobMetadata
	if err := json.Unmarshal(job.Metadata, &meta); err != nil || meta.APIKeyOverride != "sk-client" {
		t.Fatalf("override not carried in metadata: %s", job.Metadata)
	}
}

func TestForeignRecordingIsInvisible(t *testing.T) {
	env := newTestEnv(t, nil)
	other := uuid.New()
	rec, err := env.store.CreateRecording(context.Background(), models.Recording{
		OwnerID:       other,
		Title:         "someone else's call",
		AudioFilename: other.String() + "/1-x.mp3",
		Status:        models.RecordingStatusUploaded,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/recordings/" + rec.ID.String()},
		{http.MethodDelete, "/api/v1/recordings/" + rec.ID.String()},
		{http.MethodGet, "/api/v1/recordings/" + rec.ID.String() + "/transcript"},
	} {
		req := httptest.NewRequest(target.method, target.path, nil)
		resp, err := env.app.Test(req)
		if err != nil {
			t.Fatalf("request %s %s: %v", target.method, target.path, err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", target.method, target.path, resp.StatusCode)
		}
	}

	// Still there for its real owner.
	if _, err := env.store.GetRecording(context.Background(), other, rec.ID); err != nil {
		t.Fatalf("foreign delete must not remove the row: %v", err)
	}
}

func TestAnalyzeConversationRequiresTranscript(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.seedRecording(t, models.RecordingStatusUploaded)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/analyze-conversation",
		map[string]string{"recordingId": rec.ID.String(), "question": "how did I handle objections?"}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without transcript, got %d", resp.StatusCode)
	}
	if env.coach.calls != 0 {
		t.Fatal("coach must not be called without a transcript")
	}
}

func TestAnalyzeConversationCachesByQuestion(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.seedRecording(t, models.RecordingStatusCompleted)
	if _, err := env.store.CreateTranscript(context.Background(), models.Transcript{
		RecordingID: rec.ID,
		Text:        "hello there",
		Segments: []models.TranscriptSegment{
			{StartTime: 0, EndTime: 2, Text: "hello there", Speaker: "Speaker 1"},
		},
	}); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	env.coach.analysis = &coach.Analysis{
		Summary:           "short call",
		Objections:        []string{"price"},
		Improvements:      []string{},
		Timestamps:        []coach.AnalysisTimestamp{},
		FollowUpTemplates: []string{},
		Answer:            "you opened well",
	}

	ask := func() map[string]interface{} {
		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/analyze-conversation",
			map[string]string{"recordingId": rec.ID.String(), "question": "how was my opening?"}))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		return parseJSON(t, resp)
	}

	first := ask()
	if env.coach.calls != 1 {
		t.Fatalf("expected 1 coach call, got %d", env.coach.calls)
	}
	analysis := first["analysis"].(map[string]interface{})
	if analysis["answer"] != "you opened well" {
		t.Fatalf("unexpected answer %v", analysis["answer"])
	}

	second := ask()
	if env.coach.calls != 1 {
		t.Fatalf("repeat question must hit the note cache, got %d coach calls", env.coach.calls)
	}
	if second["cached"] != true {
		t.Fatalf("expected cached flag on repeat answer, got %v", second["cached"])
	}

	notes, _ := env.store.ListNotesByRecording(context.Background(), rec.ID)
	if len(notes) != 1 {
		t.Fatalf("expected exactly one cached note, got %d", len(notes))
	}
}

func TestRenameRecordingValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.seedRecording(t, models.RecordingStatusUploaded)

	resp, err := env.app.Test(jsonRequest(http.MethodPatch, "/api/v1/recordings/"+rec.ID.String(),
		map[string]string{"title": "   "}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank title must fail validation, got %d", resp.StatusCode)
	}

	resp, err = env.app.Test(jsonRequest(http.MethodPatch, "/api/v1/recordings/"+rec.ID.String(),
		map[string]string{"title": "  renamed call  "}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got, _ := env.store.GetRecording(context.Background(), env.userID, rec.ID)
	if got.Title != "renamed call" {
		t.Fatalf("title not trimmed and saved, got %q", got.Title)
	}
}

func TestDeleteRecordingCascades(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.seedRecording(t, models.RecordingStatusCompleted)
	if _, err := env.store.CreateTranscript(context.Background(), models.Transcript{RecordingID: rec.ID, Text: "x"}); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	if _, err := env.store.CreateNote(context.Background(), models.ConversationNote{
		RecordingID: rec.ID, Question: "q", Answer: json.RawMessage(`{}`),
	}); err != nil {
		t.Fatalf("seed note: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/recordings/"+rec.ID.String(), nil)
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	if _, err := env.store.GetRecording(context.Background(), env.userID, rec.ID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("recording should be gone, got %v", err)
	}
	if _, err := env.store.GetTranscriptByRecording(context.Background(), rec.ID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("transcript should be gone, got %v", err)
	}
	notes, _ := env.store.ListNotesByRecording(context.Background(), rec.ID)
	if len(notes) != 0 {
		t.Fatalf("notes should be gone, got %d", len(notes))
	}
}
