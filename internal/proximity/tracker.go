package proximity

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned by Start on a running tracker.
var ErrAlreadyRunning = errors.New("tracking already started")

// Source produces location samples until ctx is done.
type Source interface {
	Samples(ctx context.Context) (<-chan Sample, error)
}

// Tracker wires a Source through FilterMoves into a Notifier.
type Tracker struct {
	source   Source
	notifier *Notifier
	minMoveM float64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker returns a stopped tracker.
func NewTracker(source Source, notifier *Notifier, minMoveM float64) *Tracker {
	return &Tracker{source: source, notifier: notifier, minMoveM: minMoveM}
}

// Start begins tracking in the background.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	samples, err := t.source.Samples(runCtx)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.notifier.Run(runCtx, FilterMoves(runCtx, samples, t.minMoveM))
	}()

	t.cancel = cancel
	t.done = done
	return nil
}

// Running reports whether Start has been called without a matching Stop.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Done is closed when the current run ends. Nil when never started.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Stop halts tracking and waits for the loop to exit. Safe to call when not
// running and safe to call twice.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
