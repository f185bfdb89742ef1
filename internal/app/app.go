// Package app is the composition root: it builds every service from Config
// and owns their shutdown order. No globals; collaborators are injected.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"callscribe/internal/calls"
	"callscribe/internal/config"
	"callscribe/internal/history"
	"callscribe/internal/output"
	"callscribe/internal/telephony"
	"callscribe/internal/transcription"
	"callscribe/internal/webhook"
	"callscribe/pkg/logger"
	"callscribe/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Registry    *calls.Registry
	Provider    telephony.Provider
	Transcriber *transcription.Service
	Sink        *output.Sink
	Dispatcher  *calls.Dispatcher
	Router      *webhook.Router

	db  *sql.DB
	rdb *redis.Client
}

// New wires the full call-and-transcribe stack. The optional Postgres history
// log and Redis dedupe attach only when their settings are present.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	sink, err := output.NewSink(cfg.Output.File, format, log)
	if err != nil {
		return nil, err
	}

	registry := calls.NewRegistry(log)
	provider := telephony.NewTelnyxClient(cfg.Telnyx.APIKey, cfg.Telnyx.ConnectionID, log)
	dispatcher := calls.NewDispatcher(registry, provider, cfg.Telnyx.FromNumber, cfg.Calls.Workers, log)

	whisper := transcription.NewWhisperTranscriber(cfg.OpenAI.APIKey)
	transcriber := transcription.NewService(whisper, transcription.ServiceConfig{
		MaxRetries:      cfg.Transcription.MaxRetries,
		RetryDelay:      cfg.Transcription.RetryDelay,
		Workers:         cfg.Transcription.Workers,
		DownloadTimeout: cfg.Transcription.DownloadTimeout,
	}, log)

	a := &App{
		Config:      cfg,
		Log:         log,
		Registry:    registry,
		Provider:    provider,
		Transcriber: transcriber,
		Sink:        sink,
		Dispatcher:  dispatcher,
	}

	var hist *history.Store
	if cfg.DatabaseURL != "" {
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.DatabaseURL, utils.PostgresPoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("history db: %w", err)
		}
		a.db = db
		hist = history.NewStore(db, log)
		if err := hist.Init(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("call history log enabled")
	}

	var deduper webhook.Deduper = webhook.NewMemoryDeduper(0)
	if cfg.RedisAddr != "" {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, fmt.Errorf("dedupe redis: %w", err)
		}
		a.rdb = rdb
		deduper = webhook.NewRedisDeduper(rdb, 0)
		log.Info("redis event dedupe enabled", "addr", cfg.RedisAddr)
	}

	a.Router = webhook.NewRouter(registry, provider, transcriber, sink, webhook.RouterConfig{
		AudioURL: cfg.Calls.AudioURL,
		Record: telephony.RecordOptions{
			Format:   cfg.Calls.RecordingFormat,
			Channels: cfg.Calls.RecordingChannels,
		},
		History: hist,
		Deduper: deduper,
	}, log)

	return a, nil
}

// HTTPHandler builds the gin engine carrying the webhook contract.
func (a *App) HTTPHandler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(a.Log))

	h := webhook.Handlers{Router: a.Router, Registry: a.Registry}
	h.Register(r)
	return r
}

// RunHTTP serves the webhook endpoints until ctx is canceled, then drains
// in-flight requests before returning.
func (a *App) RunHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.HTTPAddr(),
		Handler:           a.HTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("webhook server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

// Close finalizes the sink and releases external connections. Call exactly
// once on orderly shutdown, after the HTTP server has drained.
func (a *App) Close() error {
	err := a.Sink.Finalize()
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return err
}
