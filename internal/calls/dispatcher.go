package calls

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"callscribe/internal/telephony"
)

// Dispatcher fans call initiation out across a bounded worker pool.
//
// Per-item failures surface only through OnFailed and a log entry; one
// number's failure never cancels or delays its siblings, and this layer does
// no retrying of its own (unlike the transcription pipeline).
type Dispatcher struct {
	registry *Registry
	provider telephony.Provider

	fromNumber string
	workers    int

	log *slog.Logger
}

func NewDispatcher(registry *Registry, provider telephony.Provider, fromNumber string, workers int, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry:   registry,
		provider:   provider,
		fromNumber: fromNumber,
		workers:    workers,
		log:        log,
	}
}

// BatchCallbacks are the optional per-item hooks for InitiateBatch.
type BatchCallbacks struct {
	OnInitiated func(Call)
	OnFailed    func(number string, err error)
}

// InitiateBatch dials every number and registers the successful calls.
// The returned slice is in completion order, not input order; callers that
// need input order must re-sort by number. The pool drains fully before
// returning, so no in-flight dial is abandoned.
func (d *Dispatcher) InitiateBatch(ctx context.Context, numbers []string, cb BatchCallbacks) []Call {
	results := make(chan Call, len(numbers))
	sem := make(chan struct{}, d.workers)

	var cbMu sync.Mutex
	var wg sync.WaitGroup
	for _, number := range numbers {
		wg.Add(1)
		go func(number string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			call, err := d.initiate(ctx, number)
			if err != nil {
				d.log.Error("call initiation failed", "to", number, "err", err)
				if cb.OnFailed != nil {
					cbMu.Lock()
					cb.OnFailed(number, err)
					cbMu.Unlock()
				}
				return
			}
			if cb.OnInitiated != nil {
				cbMu.Lock()
				cb.OnInitiated(call)
				cbMu.Unlock()
			}
			results <- call
		}(number)
	}
	wg.Wait()
	close(results)

	initiated := make([]Call, 0, len(numbers))
	for call := range results {
		initiated = append(initiated, call)
	}
	d.log.Info("batch initiation complete", "initiated", len(initiated), "total", len(numbers))
	return initiated
}

func (d *Dispatcher) initiate(ctx context.Context, number string) (Call, error) {
	res, err := d.provider.Dial(ctx, telephony.DialRequest{To: number, From: d.fromNumber})
	if err != nil {
		return Call{}, err
	}

	call := Call{
		CallControlID: res.CallControlID,
		ToNumber:      number,
		FromNumber:    d.fromNumber,
		Status:        StatusInitiated,
		InitiatedAt:   time.Now(),
	}
	if err := d.registry.Register(call); err != nil {
		return Call{}, err
	}
	return call, nil
}
