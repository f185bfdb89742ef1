package calls

import "time"

// Call represents one outbound call attempt, keyed by the provider-assigned
// call control ID.
//
// Lifecycle invariant: Status only moves forward along the transition graph
// (see apply); terminal statuses admit no further transitions.
//
// NOTE: This is a domain model only. Provider wire payloads stay in the
// telephony and webhook packages; nothing provider-specific lands here beyond
// the opaque CallControlID.
type Call struct {
	CallControlID string `json:"call_control_id"`

	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number"`

	Status CallStatus `json:"status"`

	InitiatedAt time.Time  `json:"initiated_at"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	// DurationSeconds is either reported by the provider on hangup or
	// computed as EndedAt - AnsweredAt. Never negative.
	DurationSeconds float64 `json:"duration_seconds"`

	RecordingURL  string `json:"recording_url,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type CallStatus string

const (
	StatusPending      CallStatus = "pending"
	StatusInitiated    CallStatus = "initiated"
	StatusRinging      CallStatus = "ringing"
	StatusAnswered     CallStatus = "answered"
	StatusRecording    CallStatus = "recording"
	StatusCompleted    CallStatus = "completed"
	StatusFailed       CallStatus = "failed"
	StatusTranscribing CallStatus = "transcribing"
	StatusTranscribed  CallStatus = "transcribed"
)

// Terminal reports whether no further transition is valid from s.
func (s CallStatus) Terminal() bool {
	return s == StatusFailed || s == StatusTranscribed
}

// Active reports whether the call still has provider-side work pending.
func (s CallStatus) Active() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTranscribed:
		return false
	default:
		return true
	}
}

// Event is one lifecycle mutation applied to a Call. Construct events with
// the factory functions below; the zero Event is invalid.
type Event struct {
	kind eventKind

	// duration accompanies Hangup when the provider reports one.
	duration *float64
	// reason accompanies Failed.
	reason string
	// url accompanies RecordingURLSet.
	url string
	// text accompanies Transcribed.
	text string
}

type eventKind int

const (
	eventInvalid eventKind = iota
	eventAnswered
	eventRecordingStarted
	eventHangup
	eventFailed
	eventRecordingURLSet
	eventTranscribed
)

func Answered() Event                { return Event{kind: eventAnswered} }
func RecordingStarted() Event        { return Event{kind: eventRecordingStarted} }
func Hangup(duration *float64) Event { return Event{kind: eventHangup, duration: duration} }
func Failed(reason string) Event     { return Event{kind: eventFailed, reason: reason} }
func RecordingURLSet(url string) Event {
	return Event{kind: eventRecordingURLSet, url: url}
}
func Transcribed(text string) Event { return Event{kind: eventTranscribed, text: text} }

// Name returns a stable identifier for logging.
func (e Event) Name() string {
	switch e.kind {
	case eventAnswered:
		return "answered"
	case eventRecordingStarted:
		return "recording_started"
	case eventHangup:
		return "hangup"
	case eventFailed:
		return "failed"
	case eventRecordingURLSet:
		return "recording_url_set"
	case eventTranscribed:
		return "transcribed"
	default:
		return "invalid"
	}
}

// apply mutates c according to e if the transition is valid from the current
// status. It returns false for transitions outside the graph; the caller
// decides how to report those (the registry logs a warning). Duplicate and
// out-of-order provider events are expected, so an invalid transition is a
// no-op, never an error.
func (c *Call) apply(e Event, now time.Time) bool {
	if c.Status.Terminal() {
		return false
	}

	switch e.kind {
	case eventAnswered:
		switch c.Status {
		case StatusPending, StatusInitiated, StatusRinging:
			c.Status = StatusAnswered
			t := now
			c.AnsweredAt = &t
			return true
		}
	case eventRecordingStarted:
		if c.Status == StatusAnswered {
			c.Status = StatusRecording
			return true
		}
	case eventHangup:
		switch c.Status {
		case StatusInitiated, StatusRinging, StatusAnswered, StatusRecording:
			c.Status = StatusCompleted
			t := now
			c.EndedAt = &t
			if e.duration != nil {
				c.DurationSeconds = *e.duration
			} else if c.AnsweredAt != nil {
				d := t.Sub(*c.AnsweredAt).Seconds()
				if d > 0 {
					c.DurationSeconds = d
				}
			}
			return true
		}
	case eventFailed:
		c.Status = StatusFailed
		t := now
		c.EndedAt = &t
		c.ErrorMessage = e.reason
		return true
	case eventRecordingURLSet:
		switch c.Status {
		case StatusAnswered, StatusRecording, StatusCompleted:
			c.RecordingURL = e.url
			return true
		}
	case eventTranscribed:
		switch c.Status {
		case StatusCompleted, StatusTranscribing:
			c.Status = StatusTranscribed
			c.Transcription = e.text
			return true
		}
	}
	return false
}
