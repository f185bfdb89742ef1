package calls

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrDuplicateCall is returned by Register when the call control ID is
	// already present.
	ErrDuplicateCall = errors.New("calls: duplicate call control id")

	// ErrCallNotFound is returned when an operation references an unknown
	// call control ID.
	ErrCallNotFound = errors.New("calls: call not found")
)

// Registry owns every in-flight Call for its lifetime and serializes all
// mutation behind a single mutex. The lock guards map access only; no
// network work ever happens under it.
//
// Provider event delivery is at-least-once, so Apply and Remove are both
// safe under redelivery: duplicate events degrade to logged no-ops.
type Registry struct {
	mu    sync.Mutex
	calls map[string]*Call

	log *slog.Logger
	now func() time.Time
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		calls: make(map[string]*Call),
		log:   log,
		now:   time.Now,
	}
}

// Register inserts a new call. The call control ID is the sole key and is
// immutable once registered.
func (r *Registry) Register(c Call) error {
	if c.CallControlID == "" {
		return fmt.Errorf("%w: empty call control id", ErrCallNotFound)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calls[c.CallControlID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCall, c.CallControlID)
	}
	stored := c
	r.calls[c.CallControlID] = &stored
	return nil
}

// Get returns a copy of the call, or ErrCallNotFound.
func (r *Registry) Get(id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.calls[id]
	if !ok {
		return Call{}, fmt.Errorf("%w: %s", ErrCallNotFound, id)
	}
	return *c, nil
}

// All returns a point-in-time copy of every registered call, not a live view.
func (r *Registry) All() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, *c)
	}
	return out
}

// Len returns the number of in-flight calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Apply runs one lifecycle event against the identified call and returns the
// post-event snapshot. Transitions that are invalid from the current status
// leave the call unchanged and log a warning; only an unknown ID is an error.
func (r *Registry) Apply(id string, e Event) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.calls[id]
	if !ok {
		return Call{}, fmt.Errorf("%w: %s", ErrCallNotFound, id)
	}
	if !c.apply(e, r.now()) {
		r.log.Warn("rejected call transition",
			"call_control_id", id,
			"status", string(c.Status),
			"event", e.Name())
	}
	return *c, nil
}

// Remove evicts a call. Removing an already-evicted call returns
// ErrCallNotFound rather than failing loudly; eviction is idempotent because
// the recording-saved event can be redelivered after the first eviction.
func (r *Registry) Remove(id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.calls[id]
	if !ok {
		return Call{}, fmt.Errorf("%w: %s", ErrCallNotFound, id)
	}
	delete(r.calls, id)
	return *c, nil
}
