// recordctl is a command line client for the salescoach API: record audio
// from the microphone, upload it, follow transcription progress and ask
// coaching questions about the result.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"salescoach/config"
	"salescoach/internal/capture"
	"salescoach/internal/client"
	"salescoach/internal/watch"
	"salescoach/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "record":
		err = runRecord(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "transcribe":
		err = runTranscribe(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "recordctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: recordctl <command> [flags]

Commands:
  record      capture microphone audio, upload it and start transcription
  list        list your recordings
  transcribe  queue transcription for an uploaded recording
  analyze     ask a coaching question about a transcribed recording
  watch       follow a recording until transcription finishes`)
}

func apiFlags(fs *flag.FlagSet) (*string, *string) {
	server := fs.String("server", envOr("SALESCOACH_SERVER", "http://localhost:8080"), "API server base URL (or SALESCOACH_SERVER)")
	token := fs.String("token", os.Getenv("SALESCOACH_TOKEN"), "Access token (or SALESCOACH_TOKEN)")
	return server, token
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient(server, token string) (*client.Client, error) {
	if token == "" {
		return nil, errors.New("no access token; set SALESCOACH_TOKEN or pass -token")
	}
	return client.New(server, token), nil
}

func runRecord(args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	server, token := apiFlags(fs)
	title := fs.String("title", "", "Recording title")
	device := fs.String("device", "", "Audio input device")
	format := fs.String("format", "", "ffmpeg input format (pulse, alsa, avfoundation)")
	ffmpeg := fs.String("ffmpeg", "", "Path to the ffmpeg binary")
	fs.Parse(args)

	api, err := newClient(*server, *token)
	if err != nil {
		return err
	}

	rec := capture.NewRecorder(capture.Options{
		Command:     *ffmpeg,
		InputFormat: *format,
		InputDevice: *device,
	})
	ctx := context.Background()
	if err := rec.Start(ctx); err != nil {
		return err
	}

	fmt.Println("Recording... press Ctrl-C to stop.")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ticker.C:
			fmt.Printf("\r%s ", rec.Elapsed().Round(time.Second))
		}
	}
	fmt.Println()

	clip, err := rec.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("Captured %s of audio (%d bytes)\n", clip.Duration.Round(time.Second), len(clip.Data))

	name := *title
	if name == "" {
		name = "Recording " + time.Now().Format("2006-01-02 15:04")
	}
	recording, err := api.UploadAudio(ctx, name, "capture.wav", clip.ContentType, bytes.NewReader(clip.Data))
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded recording %s\n", recording.ID)

	if err := api.Transcribe(ctx, recording.ID, ""); err != nil {
		return err
	}
	fmt.Println("Transcription queued")
	return followRecording(ctx, api, recording.ID)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	server, token := apiFlags(fs)
	fs.Parse(args)

	api, err := newClient(*server, *token)
	if err != nil {
		return err
	}
	recordings, err := api.ListRecordings(context.Background())
	if err != nil {
		return err
	}
	for _, rec := range recordings {
		duration := "-"
		if rec.DurationSeconds != nil {
			duration = (time.Duration(*rec.DurationSeconds) * time.Second).String()
		}
		fmt.Printf("%s  %-12s  %-8s  %s\n", rec.ID, rec.Status, duration, rec.Title)
	}
	return nil
}

func runTranscribe(args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	server, token := apiFlags(fs)
	id := fs.String("id", "", "Recording ID")
	apiKey := fs.String("api-key", "", "Use this transcription API key instead of the server's")
	fs.Parse(args)

	recordingID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("-id must be a recording id: %w", err)
	}
	api, err := newClient(*server, *token)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := api.Transcribe(ctx, recordingID, *apiKey); err != nil {
		return err
	}
	fmt.Println("Transcription queued")
	return followRecording(ctx, api, recordingID)
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	server, token := apiFlags(fs)
	id := fs.String("id", "", "Recording ID")
	question := fs.String("question", "", "Coaching question to ask")
	fs.Parse(args)

	recordingID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("-id must be a recording id: %w", err)
	}
	if *question == "" {
		return errors.New("-question is required")
	}
	api, err := newClient(*server, *token)
	if err != nil {
		return err
	}

	analysis, err := api.Analyze(context.Background(), recordingID, *question)
	if err != nil {
		return err
	}
	if analysis.Summary != "" {
		fmt.Printf("Summary: %s\n\n", analysis.Summary)
	}
	fmt.Println(analysis.Answer)
	if len(analysis.Improvements) > 0 {
		fmt.Println("\nImprovements:")
		for _, item := range analysis.Improvements {
			fmt.Printf("  - %s\n", item)
		}
	}
	for _, ts := range analysis.Timestamps {
		fmt.Printf("  [%s] %s\n", ts.Time, ts.Text)
	}
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	server, token := apiFlags(fs)
	id := fs.String("id", "", "Recording ID")
	fs.Parse(args)

	recordingID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("-id must be a recording id: %w", err)
	}
	api, err := newClient(*server, *token)
	if err != nil {
		return err
	}
	return followRecording(context.Background(), api, recordingID)
}

// followRecording refetches the recording on realtime change events and on a
// steady interval until it reaches a final status.
func followRecording(ctx context.Context, api *client.Client, recordingID uuid.UUID) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := config.NewLogger(envOr("LOG_LEVEL", "warning"))

	var feed watch.ChangeFeed
	if supabaseURL := os.Getenv("SUPABASE_URL"); supabaseURL != "" {
		realtime, err := watch.DialRealtime(ctx, supabaseURL, os.Getenv("SUPABASE_ANON_KEY"),
			[]string{"recordings", "transcripts"}, logger)
		if err != nil {
			logger.WithError(err).Warn("Realtime unavailable, polling only")
			feed = noFeed{}
		} else {
			feed = realtime
		}
	} else {
		feed = noFeed{}
	}

	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	refresh := func(ctx context.Context) {
		rec, err := api.GetRecording(ctx, recordingID)
		if err != nil {
			return
		}
		fmt.Printf("status: %s\n", rec.Status)
		switch rec.Status {
		case models.RecordingStatusCompleted:
			finish(nil)
		case models.RecordingStatusError:
			msg := "transcription failed"
			if rec.ErrorMessage != nil {
				msg = *rec.ErrorMessage
			}
			finish(errors.New(msg))
		}
	}

	watcher := watch.NewWatcher(feed, watch.DefaultInterval, refresh, logger)
	watcher.Start(ctx)
	defer watcher.Close()

	refresh(ctx)
	select {
	case err := <-done:
		if err != nil {
			return err
		}
		transcript, terr := api.GetTranscript(ctx, recordingID)
		if terr != nil {
			return terr
		}
		fmt.Printf("Transcript (%d segments):\n%s\n", len(transcript.Segments), transcript.Text)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// noFeed is the polling-only fallback when realtime is not configured.
type noFeed struct{}

func (noFeed) Events() <-chan watch.Event { return nil }
func (noFeed) Close() error               { return nil }
