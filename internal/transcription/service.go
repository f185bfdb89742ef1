package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// supportedFormats are the container formats the speech-to-text backend
// accepts. Admission happens before any network attempt.
var supportedFormats = map[string]struct{}{
	".mp3": {}, ".mp4": {}, ".mpeg": {}, ".mpga": {}, ".m4a": {},
	".wav": {}, ".webm": {}, ".ogg": {}, ".flac": {},
}

// IsAudioFile reports whether the path carries a supported audio extension.
func IsAudioFile(path string) bool {
	_, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Service transcribes audio sources with bounded retries.
//
// Failures are data at this boundary: every Transcribe* method returns a
// Result, never an error, so one bad source can never interrupt a sibling in
// a batch. Only TranscribeDirectory can fail eagerly, and only on the
// synchronous directory check.
type Service struct {
	transcriber Transcriber
	download    *http.Client

	maxRetries int
	retryDelay time.Duration
	workers    int

	log *slog.Logger
}

type ServiceConfig struct {
	MaxRetries      int
	RetryDelay      time.Duration
	Workers         int
	DownloadTimeout time.Duration
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	out := c
	if out.MaxRetries <= 0 {
		out.MaxRetries = 10
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 2 * time.Second
	}
	if out.Workers <= 0 {
		out.Workers = 3
	}
	if out.DownloadTimeout <= 0 {
		out.DownloadTimeout = 60 * time.Second
	}
	return out
}

func NewService(t Transcriber, cfg ServiceConfig, log *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		transcriber: t,
		download:    &http.Client{Timeout: cfg.DownloadTimeout},
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		workers:     cfg.Workers,
		log:         log,
	}
}

// retrySchedule yields delays of retryDelay * 2^k before attempt k+1.
// No jitter and no interval cap; the attempt count alone bounds the loop.
func (s *Service) retrySchedule() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = math.MaxInt64
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithMaxRetries(bo, uint64(s.maxRetries-1))
}

// TranscribeFile transcribes a local audio file.
func (s *Service) TranscribeFile(ctx context.Context, path, language string) Result {
	if _, err := os.Stat(path); err != nil {
		return Failure(path, fmt.Sprintf("file not found: %s", path))
	}
	if !IsAudioFile(path) {
		return Failure(path, fmt.Sprintf("unsupported audio format: %s", filepath.Ext(path)))
	}

	var text string
	attempt := 0
	op := func() error {
		attempt++
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		out, err := s.transcriber.Transcribe(ctx, f, filepath.Base(path), language)
		if err != nil {
			s.log.Warn("transcription attempt failed",
				"source", path, "attempt", attempt, "max_retries", s.maxRetries, "err", err)
			return err
		}
		text = out
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.retrySchedule(), ctx)); err != nil {
		msg := fmt.Sprintf("transcription failed after %d attempts: %v", s.maxRetries, err)
		s.log.Error("transcription exhausted retries", "source", path, "err", err)
		return Failure(path, msg)
	}
	return Success(path, text, 0, language)
}

// TranscribeURL downloads a remote recording and transcribes it. name is the
// synthesized source identifier; when empty the last URL path segment is
// used. Sources with a recognized-but-unsupported extension are rejected
// before any network attempt.
func (s *Service) TranscribeURL(ctx context.Context, rawURL, name, language string) Result {
	if name == "" {
		name = sourceNameFromURL(rawURL)
	}
	if ext := filepath.Ext(name); ext != "" && !IsAudioFile(name) {
		return Failure(name, fmt.Sprintf("unsupported audio format: %s", ext))
	}

	var text string
	attempt := 0
	op := func() error {
		attempt++
		audio, err := s.downloadAudio(ctx, rawURL)
		if err != nil {
			s.log.Warn("recording download failed",
				"source", name, "url", rawURL, "attempt", attempt, "err", err)
			return err
		}

		out, err := s.transcriber.Transcribe(ctx, bytes.NewReader(audio), name, language)
		if err != nil {
			s.log.Warn("transcription attempt failed",
				"source", name, "attempt", attempt, "max_retries", s.maxRetries, "err", err)
			return err
		}
		text = out
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.retrySchedule(), ctx)); err != nil {
		msg := fmt.Sprintf("transcription failed after %d attempts: %v", s.maxRetries, err)
		s.log.Error("transcription exhausted retries", "source", name, "url", rawURL, "err", err)
		return Failure(name, msg)
	}
	return Success(name, text, 0, language)
}

func (s *Service) downloadAudio(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.download.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func sourceNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if base := filepath.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return "recording"
}
