package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestStartStopProducesClip(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'RIFFaudio'\nsleep 5\n")
	rec := NewRecorder(Options{Command: script})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if rec.Elapsed() <= 0 {
		t.Fatal("elapsed should advance while recording")
	}

	clip, err := rec.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if string(clip.Data) != "RIFFaudio" {
		t.Fatalf("unexpected clip bytes: %q", clip.Data)
	}
	if clip.ContentType != "audio/wav" {
		t.Fatalf("unexpected content type %q", clip.ContentType)
	}
	if clip.Duration <= 0 {
		t.Fatal("clip duration should be positive")
	}
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(Options{Command: "/bin/false"})
	clip, err := rec.Stop()
	if clip != nil || err != nil {
		t.Fatalf("idle stop should be a no-op, got clip=%v err=%v", clip, err)
	}
}

func TestStartRejectsConcurrentCapture(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'RIFF'\nsleep 5\n")
	rec := NewRecorder(Options{Command: script})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer rec.Stop()

	if err := rec.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
}

func TestStartMapsPermissionDenied(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "denied.sh", "#!/usr/bin/env bash\necho 'default: Permission denied' 1>&2\nexit 1\n")
	rec := NewRecorder(Options{Command: script})

	err := rec.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if rec.Elapsed() != 0 {
		t.Fatal("failed start must leave the recorder idle")
	}
}

func TestStartMapsDeviceNotFound(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "missing.sh", "#!/usr/bin/env bash\necho 'hw:9: No such device' 1>&2\nexit 1\n")
	rec := NewRecorder(Options{Command: script})

	err := rec.Start(context.Background())
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestRecorderIsReusableAfterStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'RIFF'\nsleep 5\n")
	rec := NewRecorder(Options{Command: script})

	for i := 0; i < 2; i++ {
		if err := rec.Start(context.Background()); err != nil {
			t.Fatalf("start %d failed: %v", i, err)
		}
		time.Sleep(50 * time.Millisecond)
		if _, err := rec.Stop(); err != nil {
			t.Fatalf("stop %d failed: %v", i, err)
		}
	}
}
