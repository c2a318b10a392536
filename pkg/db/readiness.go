package db

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

// PrepareFunc brings the schema up to date. It must be safe to call again
// after a failure.
type PrepareFunc func(ctx context.Context) error

// Readiness gates data-dependent work on a reachable, migrated store. A failed
// preparation is retried on the next check rather than in the background.
type Readiness struct {
	pinger  Pinger
	prepare PrepareFunc
	timeout time.Duration

	mu       sync.Mutex
	prepared bool
	lastErr  error
}

// NewReadiness builds a readiness check. prepare may be nil when the schema is
// managed out of band.
func NewReadiness(pinger Pinger, prepare PrepareFunc, timeout time.Duration) *Readiness {
	return &Readiness{pinger: pinger, prepare: prepare, timeout: timeout}
}

// Check pings the store and, until it succeeds once, runs the schema prepare step.
func (r *Readiness) Check(ctx context.Context) error {
	if r == nil || r.pinger == nil {
		return pkgerrors.New(pkgerrors.CodeStoreUnavailable, "store not configured")
	}

	pingCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := r.pinger.Ping(pingCtx); err != nil {
		r.record(err)
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "ping store")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prepared || r.prepare == nil {
		r.prepared = true
		r.lastErr = nil
		return nil
	}
	if err := r.prepare(ctx); err != nil {
		r.lastErr = err
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "prepare schema")
	}
	r.prepared = true
	r.lastErr = nil
	return nil
}

// Prepared reports whether the schema step has completed.
func (r *Readiness) Prepared() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prepared
}

// LastError returns the most recent readiness failure, if any.
func (r *Readiness) LastError() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Readiness) record(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// WaitReady retries Check with a fixed backoff until it passes or attempts run out.
func (r *Readiness) WaitReady(ctx context.Context, attempts int, backoff time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = r.Check(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

// Ensure returns at once after the first successful Check; until then it runs
// Check. Later connectivity loss surfaces through classified query errors.
func (r *Readiness) Ensure(ctx context.Context) error {
	if r.Prepared() {
		return nil
	}
	return r.Check(ctx)
}
