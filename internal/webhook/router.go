package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"callscribe/internal/calls"
	"callscribe/internal/history"
	"callscribe/internal/output"
	"callscribe/internal/telephony"
	"callscribe/internal/transcription"
)

// Ack is the structured acknowledgement returned for every routed event.
// Status is one of ok, error, ignored. Reactions never propagate errors to
// the HTTP layer; failures are folded into an error-shaped Ack.
type Ack struct {
	Status              string `json:"status"`
	Event               string `json:"event,omitempty"`
	EventType           string `json:"event_type,omitempty"`
	Message             string `json:"message,omitempty"`
	TranscriptionLength int    `json:"transcription_length,omitempty"`
}

func ackOK(event string) Ack  { return Ack{Status: "ok", Event: event} }
func ackError(msg string) Ack { return Ack{Status: "error", Message: msg} }
func ackIgnored(eventType string) Ack {
	return Ack{Status: "ignored", EventType: eventType}
}

// Router reacts to provider lifecycle events, composing the call registry,
// the telephony provider, the transcription pipeline, and the result sink.
//
// All registry mutation for a call after initiation happens here, so within
// one call the reactions are causally ordered: recording-saved only proceeds
// once the registry knows the call.
type Router struct {
	registry    *calls.Registry
	provider    telephony.Provider
	transcriber *transcription.Service
	sink        *output.Sink

	// history and deduper are optional; nil disables them.
	history *history.Store
	deduper Deduper

	audioURL string
	record   telephony.RecordOptions

	log *slog.Logger
}

type RouterConfig struct {
	AudioURL string
	Record   telephony.RecordOptions
	History  *history.Store
	Deduper  Deduper
}

func NewRouter(
	registry *calls.Registry,
	provider telephony.Provider,
	transcriber *transcription.Service,
	sink *output.Sink,
	cfg RouterConfig,
	log *slog.Logger,
) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		registry:    registry,
		provider:    provider,
		transcriber: transcriber,
		sink:        sink,
		history:     cfg.History,
		deduper:     cfg.Deduper,
		audioURL:    cfg.AudioURL,
		record:      cfg.Record,
		log:         log,
	}
}

// Handle routes one envelope to its reaction and returns the acknowledgement.
func (r *Router) Handle(ctx context.Context, env Envelope) Ack {
	kind := ParseKind(env.Data.EventType)
	r.log.Info("webhook event received", "event_type", env.Data.EventType)

	if kind == KindUnhandled {
		r.log.Debug("unhandled event type", "event_type", env.Data.EventType)
		return ackIgnored(env.Data.EventType)
	}

	if r.deduper != nil && env.Data.ID != "" {
		seen, err := r.deduper.Seen(ctx, env.Data.ID)
		if err != nil {
			// Dedupe is best-effort; a broken deduper must not drop events.
			r.log.Warn("event dedupe check failed", "event_id", env.Data.ID, "err", err)
		} else if seen {
			r.log.Info("duplicate event suppressed", "event_id", env.Data.ID, "event_type", env.Data.EventType)
			return Ack{Status: "ignored", EventType: env.Data.EventType, Message: "duplicate event"}
		}
	}

	ack := r.dispatch(ctx, kind, env)

	// Mark only after a successful reaction. An error ack leaves the event
	// unmarked so the provider's redelivery retries the whole reaction.
	if r.deduper != nil && env.Data.ID != "" && ack.Status != "error" {
		if err := r.deduper.Mark(ctx, env.Data.ID); err != nil {
			r.log.Warn("event dedupe mark failed", "event_id", env.Data.ID, "err", err)
		}
	}
	return ack
}

func (r *Router) dispatch(ctx context.Context, kind EventKind, env Envelope) Ack {
	switch kind {
	case KindCallInitiated:
		return r.handleInitiated(env.Data.Payload)
	case KindCallAnswered:
		return r.handleAnswered(ctx, env.Data.Payload)
	case KindCallHangup:
		return r.handleHangup(env.Data.Payload)
	case KindRecordingSaved:
		return r.handleRecordingSaved(ctx, env.Data.Payload)
	default:
		return ackIgnored(env.Data.EventType)
	}
}

// handleInitiated acknowledges only; the dispatcher already registered the
// call at initiation time.
func (r *Router) handleInitiated(raw json.RawMessage) Ack {
	var p callPayload
	_ = json.Unmarshal(raw, &p)
	r.log.Info("call initiated event", "call_control_id", p.CallControlID)
	return ackOK(eventCallInitiated)
}

// handleAnswered applies the answered transition, then synchronously starts
// playback and recording. A provider failure after the transition is logged
// and reported but the transition is not reverted.
func (r *Router) handleAnswered(ctx context.Context, raw json.RawMessage) Ack {
	var p callPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.CallControlID == "" {
		r.log.Warn("call.answered event without call_control_id")
		return ackError("Missing call_control_id")
	}

	if _, err := r.registry.Apply(p.CallControlID, calls.Answered()); err != nil {
		r.log.Warn("answered event for unknown call", "call_control_id", p.CallControlID)
		return ackError("Call not found")
	}

	if err := r.provider.PlaybackStart(ctx, p.CallControlID, r.audioURL); err != nil {
		r.log.Error("playback start failed", "call_control_id", p.CallControlID, "err", err)
		return ackError(err.Error())
	}
	if err := r.provider.RecordStart(ctx, p.CallControlID, r.record); err != nil {
		r.log.Error("record start failed", "call_control_id", p.CallControlID, "err", err)
		return ackError(err.Error())
	}
	if _, err := r.registry.Apply(p.CallControlID, calls.RecordingStarted()); err != nil {
		r.log.Warn("recording transition failed", "call_control_id", p.CallControlID, "err", err)
	}

	r.log.Info("playback and recording started", "call_control_id", p.CallControlID)
	return ackOK(eventCallAnswered)
}

func (r *Router) handleHangup(raw json.RawMessage) Ack {
	var p callPayload
	_ = json.Unmarshal(raw, &p)

	if p.CallControlID != "" {
		call, err := r.registry.Apply(p.CallControlID, calls.Hangup(p.DurationSeconds))
		if err != nil {
			r.log.Warn("hangup event for unknown call", "call_control_id", p.CallControlID)
		} else {
			r.log.Info("call completed",
				"call_control_id", p.CallControlID,
				"duration_seconds", call.DurationSeconds)
		}
	}
	return ackOK(eventCallHangup)
}

// handleRecordingSaved runs the terminal reaction: set the recording URL,
// transcribe it synchronously, persist the merged record, and evict the call.
// On transcription failure the call stays in the registry unchanged and the
// failure is reported in the Ack; the pipeline already retried internally.
func (r *Router) handleRecordingSaved(ctx context.Context, raw json.RawMessage) Ack {
	var p recordingSavedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ackError("Missing required fields")
	}
	recordingURL := p.recordingURL()
	if p.CallControlID == "" || recordingURL == "" {
		r.log.Warn("recording.saved event missing call_control_id or recording url")
		return ackError("Missing required fields")
	}

	if _, err := r.registry.Get(p.CallControlID); err != nil {
		r.log.Warn("recording for unknown call", "call_control_id", p.CallControlID)
		return ackError("Call not found")
	}

	if _, err := r.registry.Apply(p.CallControlID, calls.RecordingURLSet(recordingURL)); err != nil {
		return ackError("Call not found")
	}

	r.log.Info("transcribing recording", "call_control_id", p.CallControlID, "url", recordingURL)
	name := fmt.Sprintf("call_%s.mp3", p.CallControlID)
	res := r.transcriber.TranscribeURL(ctx, recordingURL, name, "")
	if !res.IsSuccess() {
		r.log.Error("recording transcription failed",
			"call_control_id", p.CallControlID, "err", res.ErrorMessage)
		return ackError(res.ErrorMessage)
	}

	call, err := r.registry.Apply(p.CallControlID, calls.Transcribed(res.Text))
	if err != nil {
		return ackError("Call not found")
	}

	rec := output.CallRecord{
		FromNumber:      call.FromNumber,
		ToNumber:        call.ToNumber,
		Transcription:   res.Text,
		DurationSeconds: call.DurationSeconds,
		CallControlID:   call.CallControlID,
		CreatedAt:       time.Now(),
	}
	if err := r.sink.Write(rec); err != nil {
		r.log.Error("result write failed", "call_control_id", p.CallControlID, "err", err)
		return ackError(err.Error())
	}
	if r.history != nil {
		entry := history.Record{
			CallControlID:   call.CallControlID,
			FromNumber:      call.FromNumber,
			ToNumber:        call.ToNumber,
			Transcription:   res.Text,
			DurationSeconds: call.DurationSeconds,
			CreatedAt:       rec.CreatedAt,
		}
		if err := r.history.Insert(ctx, entry); err != nil {
			// The sink write is the durable contract; history is advisory.
			r.log.Warn("history insert failed", "call_control_id", p.CallControlID, "err", err)
		}
	}

	if _, err := r.registry.Remove(p.CallControlID); err != nil && !errors.Is(err, calls.ErrCallNotFound) {
		r.log.Warn("call eviction failed", "call_control_id", p.CallControlID, "err", err)
	}

	r.log.Info("transcription complete",
		"call_control_id", p.CallControlID, "chars", len(res.Text))
	return Ack{
		Status:              "ok",
		Event:               "recording.transcribed",
		TranscriptionLength: len(res.Text),
	}
}
