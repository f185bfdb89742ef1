package telephony

import "context"

// Provider defines the provider-agnostic call-control surface used by
// business logic.
//
// Rules:
// - No provider SDK or wire types outside this package.
// - Every operation takes a context and carries an explicit deadline via the
//   underlying HTTP client.
type Provider interface {
	Name() string

	// Dial places an outbound call and returns the provider-assigned call
	// control ID. That ID is the registry key for the call's whole lifetime.
	Dial(ctx context.Context, req DialRequest) (DialResult, error)

	// PlaybackStart plays an audio URL into an answered call.
	PlaybackStart(ctx context.Context, callControlID, audioURL string) error

	// RecordStart begins recording an answered call.
	RecordStart(ctx context.Context, callControlID string, opts RecordOptions) error
}

type DialRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
}

type DialResult struct {
	CallControlID string `json:"call_control_id"`
}

// RecordOptions mirror the provider's recording knobs. Zero values fall back
// to mp3/single, matching the provider defaults.
type RecordOptions struct {
	Format   string `json:"format"`
	Channels string `json:"channels"`
}

func (o RecordOptions) withDefaults() RecordOptions {
	out := o
	if out.Format == "" {
		out.Format = "mp3"
	}
	if out.Channels == "" {
		out.Channels = "single"
	}
	return out
}
