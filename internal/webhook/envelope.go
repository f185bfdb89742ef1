package webhook

import (
	"encoding/json"
	"errors"
)

// ErrMalformedEnvelope means the inbound body could not be parsed as the
// provider's event envelope. This is the only webhook failure that reaches
// the HTTP layer as an error; everything else becomes an Ack.
var ErrMalformedEnvelope = errors.New("webhook: malformed event envelope")

// Envelope is the outer JSON structure wrapping every provider event.
type Envelope struct {
	Data EventData `json:"data"`
}

type EventData struct {
	// ID identifies one delivery; used for duplicate suppression when the
	// provider redelivers (delivery is at-least-once).
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// ParseEnvelope decodes a raw webhook body.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}
	return env, nil
}

// EventKind is the closed set of provider events this service reacts to.
// Anything else maps to KindUnhandled and is acknowledged as ignored, since
// the provider's event surface grows over time.
type EventKind int

const (
	KindUnhandled EventKind = iota
	KindCallInitiated
	KindCallAnswered
	KindCallHangup
	KindRecordingSaved
)

const (
	eventCallInitiated  = "call.initiated"
	eventCallAnswered   = "call.answered"
	eventCallHangup     = "call.hangup"
	eventRecordingSaved = "call.recording.saved"
)

func ParseKind(eventType string) EventKind {
	switch eventType {
	case eventCallInitiated:
		return KindCallInitiated
	case eventCallAnswered:
		return KindCallAnswered
	case eventCallHangup:
		return KindCallHangup
	case eventRecordingSaved:
		return KindRecordingSaved
	default:
		return KindUnhandled
	}
}

// callPayload carries the subset of call.answered / call.initiated /
// call.hangup fields the router reads.
type callPayload struct {
	CallControlID   string   `json:"call_control_id"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// recordingSavedPayload carries the recording location by encoding.
// mp3 is preferred over wav when both are present.
type recordingSavedPayload struct {
	CallControlID       string            `json:"call_control_id"`
	PublicRecordingURLs map[string]string `json:"public_recording_urls"`
}

func (p recordingSavedPayload) recordingURL() string {
	if u := p.PublicRecordingURLs["mp3"]; u != "" {
		return u
	}
	return p.PublicRecordingURLs["wav"]
}
