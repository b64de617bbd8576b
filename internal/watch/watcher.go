// Package watch drives the scan polling loop: a scan is re-fetched on a
// fixed interval while its status is non-terminal, and polling stops at the
// first terminal observation or fetch error.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/securescan/securescan-cli/internal/api"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 3 * time.Second

// FetchFunc retrieves the current state of the watched scan.
type FetchFunc func(ctx context.Context) (*api.Scan, error)

// Watcher polls a scan until it reaches a terminal status. A fetch error
// stops the loop and surfaces to the caller; there is no automatic retry
// at this layer (the API client's 401 handling is invisible here).
type Watcher struct {
	fetch    FetchFunc
	interval time.Duration
	onUpdate func(*api.Scan)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the poll interval. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnUpdate registers a callback invoked for every observed scan state,
// including the terminal one.
func WithOnUpdate(fn func(*api.Scan)) Option {
	return func(w *Watcher) { w.onUpdate = fn }
}

// New creates a Watcher around fetch.
func New(fetch FetchFunc, opts ...Option) *Watcher {
	w := &Watcher{
		fetch:    fetch,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the scan reaches a terminal status, the fetch fails, or
// ctx is cancelled. It fetches immediately, then on each interval tick.
// The terminal scan state is returned; polling never resumes after it.
func (w *Watcher) Run(ctx context.Context) (*api.Scan, error) {
	if w.fetch == nil {
		return nil, errors.New("watch: nil fetch func")
	}

	scan, err := w.observe(ctx)
	if err != nil {
		return nil, err
	}
	if scan.Status.Terminal() {
		return scan, nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			scan, err := w.observe(ctx)
			if err != nil {
				return nil, err
			}
			if scan.Status.Terminal() {
				return scan, nil
			}
		}
	}
}

// observe performs one fetch and fires the update callback.
func (w *Watcher) observe(ctx context.Context) (*api.Scan, error) {
	scan, err := w.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if w.onUpdate != nil {
		w.onUpdate(scan)
	}
	return scan, nil
}

// Handle is a cancellable, running watch. It is bound to the caller that
// started it: Stop must be called (or the parent context cancelled) before
// the result is abandoned, so no timer outlives its consumer.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	scan *api.Scan
	err  error
}

// Start launches Run in the background and returns a cancellation handle.
func (w *Watcher) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()
		h.scan, h.err = w.Run(ctx)
	}()

	return h
}

// Stop cancels the watch. It is safe to call multiple times and after
// completion.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed once the watch has finished, whether by terminal status,
// error, or cancellation.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the terminal scan state or the error that ended the watch.
// It blocks until the watch has finished.
func (h *Handle) Result() (*api.Scan, error) {
	<-h.done
	return h.scan, h.err
}
