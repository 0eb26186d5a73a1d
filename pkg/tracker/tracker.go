// Package tracker runs one tool slot's request lifecycle:
// Idle → Pending → Succeeded | Failed, with at most one request in flight.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dyike/FinDocHub/models"
)

// Prepare validates a request and returns the normalized copy to send.
type Prepare[Req any] func(Req) (Req, error)

// Call performs the remote operation for a prepared request.
type Call[Req, Res any] func(ctx context.Context, req Req) (Res, error)

type Tracker[Req, Res any] struct {
	name     string
	prepare  Prepare[Req]
	call     Call[Req, Res]
	// notifyMu orders transitions together with their observer calls. It is
	// always taken before mu.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    State[Res]
	seq      uint64
	observer func(State[Res])
	inflight sync.WaitGroup
}

// New returns an Idle tracker. prepare may be nil when requests need no checks.
func New[Req, Res any](name string, prepare Prepare[Req], call Call[Req, Res]) *Tracker[Req, Res] {
	if prepare == nil {
		prepare = func(r Req) (Req, error) { return r, nil }
	}
	return &Tracker[Req, Res]{
		name:    name,
		prepare: prepare,
		call:    call,
		state:   idle[Res](),
	}
}

func (t *Tracker[Req, Res]) Name() string { return t.name }

// SetObserver registers fn to be called after every transition. Calls are
// delivered one at a time in transition order; fn may read Snapshot but must
// not start or reset the same tracker.
func (t *Tracker[Req, Res]) SetObserver(fn func(State[Res])) {
	t.mu.Lock()
	t.observer = fn
	t.mu.Unlock()
}

// Snapshot returns the current state without waiting on the remote call.
func (t *Tracker[Req, Res]) Snapshot() State[Res] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Trigger runs the whole lifecycle and returns the outcome. Invalid input and
// re-entry while Pending are rejected without touching the state.
func (t *Tracker[Req, Res]) Trigger(ctx context.Context, req Req) (Res, error) {
	prepared, seq, err := t.begin(req)
	if err != nil {
		var zero Res
		return zero, err
	}
	return t.run(ctx, prepared, seq)
}

// Start is Trigger with the remote call moved to a goroutine. The returned
// error only reports local rejections; the outcome lands in the state.
func (t *Tracker[Req, Res]) Start(ctx context.Context, req Req) error {
	prepared, seq, err := t.begin(req)
	if err != nil {
		return err
	}
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		_, _ = t.run(ctx, prepared, seq)
	}()
	return nil
}

// Wait blocks until every call started with Start has completed.
func (t *Tracker[Req, Res]) Wait() {
	t.inflight.Wait()
}

// Reset returns a settled slot to Idle.
func (t *Tracker[Req, Res]) Reset() error {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.state.phase == Pending {
		t.mu.Unlock()
		return t.alreadyInFlight()
	}
	t.state = idle[Res]()
	st, fn := t.state, t.observer
	t.mu.Unlock()

	if fn != nil {
		fn(st)
	}
	return nil
}

func (t *Tracker[Req, Res]) begin(req Req) (Req, uint64, error) {
	prepared, err := t.prepare(req)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidInput) {
			err = &models.Error{Kind: models.KindInvalidInput, Err: err}
		}
		return prepared, 0, fmt.Errorf("%s: %w", t.name, err)
	}

	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.state.phase == Pending {
		t.mu.Unlock()
		return prepared, 0, t.alreadyInFlight()
	}
	t.seq++
	seq := t.seq
	t.state = pending[Res](seq)
	st, fn := t.state, t.observer
	t.mu.Unlock()

	if fn != nil {
		fn(st)
	}
	return prepared, seq, nil
}

func (t *Tracker[Req, Res]) run(ctx context.Context, req Req, seq uint64) (Res, error) {
	res, err := t.call(ctx, req)
	if err != nil {
		t.finish(failed[Res](seq, err))
		return res, fmt.Errorf("%s: %w", t.name, err)
	}
	t.finish(succeeded(seq, res))
	return res, nil
}

// finish applies a completion only to the request that is still Pending.
func (t *Tracker[Req, Res]) finish(next State[Res]) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.state.phase != Pending || t.state.seq != next.seq {
		t.mu.Unlock()
		return
	}
	t.state = next
	fn := t.observer
	t.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}

func (t *Tracker[Req, Res]) alreadyInFlight() error {
	return fmt.Errorf("%s: %w", t.name, &models.Error{Kind: models.KindAlreadyInFlight, Detail: "a request is already pending"})
}
