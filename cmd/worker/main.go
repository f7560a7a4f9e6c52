package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"salescoach/config"
	"salescoach/internal/jobs"
	"salescoach/internal/queue"
	"salescoach/internal/storage"
	"salescoach/internal/store"
	"salescoach/internal/transcriber"
	"salescoach/internal/worker"
	"salescoach/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	supaClient, err := config.NewSupabaseClient(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize Supabase: %v", err)
	}

	dataStore := store.NewSupabaseStore(supaClient)
	objStorage := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)
	speech := transcriber.NewOpenAIClient(cfg.TranscriptionAPIURL, cfg.TranscriptionAPIKey, cfg.TranscriptionModel)

	deps := jobs.Deps{
		Store:       dataStore,
		Storage:     objStorage,
		Transcriber: speech,
		OverrideTranscriber: func(apiKey string) transcriber.Transcriber {
			return speech.WithAPIKey(apiKey)
		},
		Log: logger,
	}

	dispatcher := worker.NewDispatcher(cfg.WorkerCount, cfg.JobQueueSize, logger)
	dispatcher.Run()

	poller := queue.NewPoller(dataStore, dispatcher, func(job models.TranscriptionJob) worker.Job {
		return jobs.NewTranscribeRecordingJob(job, deps)
	}, cfg.JobPollInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info("Shutting down worker")
		cancel()
	}()

	logger.WithField("workers", cfg.WorkerCount).Info("Transcription worker started")
	poller.Run(ctx)
	dispatcher.Stop()
	logger.Info("Worker stopped")
}
