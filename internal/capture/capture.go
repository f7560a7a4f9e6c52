// Package capture records microphone audio through an ffmpeg subprocess.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrPermissionDenied means the OS refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceNotFound means the requested input device does not exist.
	ErrDeviceNotFound = errors.New("audio input device not found")
	// ErrAlreadyRecording means Start was called while a capture is running.
	ErrAlreadyRecording = errors.New("recording already in progress")
)

// Options configures the capture subprocess.
type Options struct {
	Command     string // ffmpeg binary, defaults to "ffmpeg"
	InputFormat string // e.g. "pulse", "alsa", "avfoundation"
	InputDevice string
	SampleRate  int
	Channels    int
}

// Clip is one finished recording.
type Clip struct {
	Data        []byte
	ContentType string
	Duration    time.Duration
}

// Recorder runs at most one capture at a time. Audio is encoded as WAV on
// the ffmpeg side and buffered in memory until Stop.
type Recorder struct {
	opts Options

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	process   *os.Process
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	waitErr   <-chan error
}

func NewRecorder(opts Options) *Recorder {
	if opts.Command == "" {
		opts.Command = "ffmpeg"
	}
	if opts.InputFormat == "" {
		opts.InputFormat = "pulse"
	}
	if opts.InputDevice == "" {
		opts.InputDevice = "default"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	return &Recorder{opts: opts}
}

// Start launches the capture subprocess. Failures to acquire the device are
// mapped to ErrPermissionDenied or ErrDeviceNotFound so callers can tell the
// user what went wrong.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRecording
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", r.opts.InputFormat,
		"-i", r.opts.InputDevice,
		"-ac", strconv.Itoa(r.opts.Channels),
		"-ar", strconv.Itoa(r.opts.SampleRate),
		"-f", "wav",
		"-",
	}

	cmd := exec.CommandContext(ctx, r.opts.Command, args...)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start capture process: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// Give the process a moment to fail on device acquisition.
	select {
	case err := <-waitErr:
		return classifyStartFailure(err, stderr.String())
	case <-time.After(250 * time.Millisecond):
	}

	r.running = true
	r.startedAt = time.Now()
	r.process = cmd.Process
	r.stdout = stdout
	r.stderr = stderr
	r.waitErr = waitErr
	return nil
}

// Elapsed reports how long the current capture has been running, zero when
// idle.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return 0
	}
	return time.Since(r.startedAt)
}

// Stop finalizes the capture and returns the recorded clip. Stopping an idle
// recorder is a no-op. The subprocess is always released, even when it has
// to be killed.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil, nil
	}
	r.running = false

	if r.process != nil {
		_ = r.process.Signal(os.Interrupt)
	}
	select {
	case <-r.waitErr:
	case <-time.After(1200 * time.Millisecond):
		if r.process != nil {
			_ = r.process.Kill()
		}
		<-r.waitErr
	}

	clip := &Clip{
		Data:        r.stdout.Bytes(),
		ContentType: "audio/wav",
		Duration:    time.Since(r.startedAt),
	}
	r.process = nil
	r.stdout = nil
	r.stderr = nil
	r.waitErr = nil

	if len(clip.Data) == 0 {
		return nil, errors.New("capture produced no audio")
	}
	return clip, nil
}

func classifyStartFailure(waitErr error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "access denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
	case strings.Contains(lower, "no such device"), strings.Contains(lower, "device not found"),
		strings.Contains(lower, "no such file"):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, detail)
	case waitErr != nil:
		return fmt.Errorf("capture process exited before recording started: %w: %s", waitErr, detail)
	default:
		return fmt.Errorf("capture process exited before recording started: %s", detail)
	}
}
