package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment surface of the API and the worker.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SupabaseURL        string `env:"SUPABASE_URL,required"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY,required"`
	StorageBucket      string `env:"STORAGE_BUCKET" envDefault:"call-recordings"`

	TranscriptionAPIURL string `env:"TRANSCRIPTION_API_URL" envDefault:"https://api.openai.com/v1/audio/transcriptions"`
	TranscriptionAPIKey string `env:"TRANSCRIPTION_API_KEY"`
	TranscriptionModel  string `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`

	CoachAPIURL string `env:"COACH_API_URL" envDefault:"https://api.openai.com/v1/chat/completions"`
	CoachAPIKey string `env:"COACH_API_KEY"`
	CoachModel  string `env:"COACH_MODEL" envDefault:"gpt-4o-mini"`

	EmailAPIURL string `env:"EMAIL_API_URL" envDefault:"https://api.resend.com"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailFrom   string `env:"EMAIL_FROM" envDefault:"team@salescoach.app"`

	CheckoutAPIURL string `env:"CHECKOUT_API_URL" envDefault:"https://api.stripe.com"`
	CheckoutAPIKey string `env:"CHECKOUT_API_KEY"`

	WorkerCount     int           `env:"WORKER_COUNT" envDefault:"4"`
	JobQueueSize    int           `env:"JOB_QUEUE_SIZE" envDefault:"64"`
	JobPollInterval time.Duration `env:"JOB_POLL_INTERVAL" envDefault:"3s"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.SupabaseURL, "http") {
		return fmt.Errorf("SUPABASE_URL must be an absolute URL, got %q", c.SupabaseURL)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive, got %d", c.JobQueueSize)
	}
	if c.JobPollInterval <= 0 {
		return fmt.Errorf("JOB_POLL_INTERVAL must be positive, got %s", c.JobPollInterval)
	}
	return nil
}

// HasTranscriptionKey reports whether a server-side transcription credential
// is configured. When it is absent, the transcribe endpoint only accepts
// requests carrying a valid client-supplied override.
func (c *Config) HasTranscriptionKey() bool {
	return c.TranscriptionAPIKey != ""
}
