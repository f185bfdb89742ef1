package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs. All values come from env (or a
// .env file loaded first); no business logic reads raw environment variables.
type Config struct {
	Telnyx        TelnyxConfig
	OpenAI        OpenAIConfig
	Webhook       WebhookConfig
	Output        OutputConfig
	Calls         CallsConfig
	Transcription TranscriptionConfig

	// DatabaseURL enables the Postgres call history log when set.
	DatabaseURL string
	// RedisAddr enables Redis-backed webhook event dedupe when set.
	RedisAddr string
}

type TelnyxConfig struct {
	APIKey       string
	ConnectionID string
	FromNumber   string
}

type OpenAIConfig struct {
	APIKey string
}

type WebhookConfig struct {
	Host string
	Port int
}

type OutputConfig struct {
	File   string
	Format string
}

type CallsConfig struct {
	AudioURL          string
	RecordingFormat   string
	RecordingChannels string
	Workers           int
}

type TranscriptionConfig struct {
	Workers         int
	MaxRetries      int
	RetryDelay      time.Duration
	DownloadTimeout time.Duration
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (Config, error) {
	// Missing .env is fine; explicit env always wins.
	_ = godotenv.Load()

	c := Config{}

	c.Telnyx.APIKey = os.Getenv("TELNYX_API_KEY")
	c.Telnyx.ConnectionID = strings.TrimSpace(os.Getenv("TELNYX_CONNECTION_ID"))
	c.Telnyx.FromNumber = strings.TrimSpace(os.Getenv("TELNYX_FROM_NUMBER"))
	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")

	c.Webhook.Host = envOr("WEBHOOK_HOST", "0.0.0.0")
	c.Webhook.Port = envIntOr("WEBHOOK_PORT", 5000)

	c.Output.File = envOr("OUTPUT_FILE", "results.tsv")
	c.Output.Format = envOr("OUTPUT_FORMAT", "tsv")

	c.Calls.AudioURL = strings.TrimSpace(os.Getenv("AUDIO_URL"))
	c.Calls.RecordingFormat = envOr("RECORDING_FORMAT", "mp3")
	c.Calls.RecordingChannels = envOr("RECORDING_CHANNELS", "single")
	c.Calls.Workers = envIntOr("CALL_WORKERS", 5)

	c.Transcription.Workers = envIntOr("TRANSCRIBE_WORKERS", 3)
	c.Transcription.MaxRetries = envIntOr("MAX_RETRIES", 10)
	c.Transcription.RetryDelay = envSecondsOr("RETRY_DELAY", 2*time.Second)
	c.Transcription.DownloadTimeout = envSecondsOr("DOWNLOAD_TIMEOUT", 60*time.Second)

	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	return c, nil
}

// Validate checks everything the call-and-transcribe mode needs. Errors are
// accumulated so the operator sees the full list at once, before any network
// activity.
func (c Config) Validate() error {
	var errs []error

	if c.Telnyx.APIKey == "" {
		errs = append(errs, errors.New("TELNYX_API_KEY is required"))
	}
	if c.Telnyx.ConnectionID == "" {
		errs = append(errs, errors.New("TELNYX_CONNECTION_ID is required"))
	}
	if c.Telnyx.FromNumber == "" {
		errs = append(errs, errors.New("TELNYX_FROM_NUMBER is required"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Calls.AudioURL == "" {
		errs = append(errs, errors.New("AUDIO_URL is required for call playback"))
	}
	if c.Webhook.Port <= 0 || c.Webhook.Port > 65535 {
		errs = append(errs, fmt.Errorf("WEBHOOK_PORT must be a valid port, got %d", c.Webhook.Port))
	}

	return joinErrors(errs)
}

// ValidateTranscribeOnly checks the standalone transcription mode, which
// needs no telephony credentials.
func (c Config) ValidateTranscribeOnly() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Webhook.Host, c.Webhook.Port)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// envSecondsOr parses a float number of seconds, e.g. RETRY_DELAY=2.0.
func envSecondsOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
