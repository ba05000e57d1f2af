// Package pipeline keeps the navigation ordering current as the store changes.
//
// A Pipeline subscribes to every key the ordering depends on. Any change
// moves it from Idle to Recomputing; changes that arrive while a pass is
// pending or running are folded into a single follow-up pass. Each pass
// reads one consistent snapshot, so the last published ordering always
// reflects the latest committed store state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/lhn/internal/lhn"
	"github.com/rcliao/lhn/internal/store"
)

// State is the pipeline's recomputation state.
type State int

const (
	Idle State = iota
	Recomputing
)

func (s State) String() string {
	if s == Recomputing {
		return "recomputing"
	}
	return "idle"
}

// Options configures a Pipeline.
type Options struct {
	Logger          *slog.Logger
	Metrics         *Metrics
	StrictChatTypes bool
}

// Pipeline derives the ordered report list from the store.
type Pipeline struct {
	store   store.Store
	publish func(lhn.Ordering)
	log     *slog.Logger
	metrics *Metrics
	strict  bool

	// wake holds at most one pending pass.
	wake chan struct{}

	mu        sync.Mutex
	state     State
	running   bool
	requested uint64
	completed uint64
	last      *lhn.Ordering
	passDone  chan struct{}
	stopped   chan struct{}
	err       error
}

// New creates a pipeline that calls publish with every new ordering.
func New(s store.Store, publish func(lhn.Ordering), opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if publish == nil {
		publish = func(lhn.Ordering) {}
	}
	p := &Pipeline{
		store:    s,
		publish:  publish,
		log:      logger.With("component", "pipeline"),
		metrics:  metrics,
		strict:   opts.StrictChatTypes,
		wake:     make(chan struct{}, 1),
		passDone: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	// The initial pass covers whatever the store already holds.
	p.requested = 1
	p.wake <- struct{}{}
	return p
}

// State returns whether a pass is in flight.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the last published ordering.
func (p *Pipeline) Current() (lhn.Ordering, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return lhn.Ordering{}, false
	}
	return *p.last, true
}

// Run subscribes to the store and recomputes until ctx is done or a store
// read fails. Store failures are returned, never retried.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("pipeline already running")
	}
	p.running = true
	p.mu.Unlock()

	var subs []*store.Subscription
	for _, k := range append(append([]string{}, Keys...), Prefixes...) {
		subs = append(subs, p.store.Subscribe(k, p.onChange))
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	err := p.loop(ctx)

	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.stopped)
	return err
}

func (p *Pipeline) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.wake:
			if err := p.pass(ctx); err != nil {
				p.log.Error("recompute_failed", "error", err)
				return err
			}
		}
	}
}

func (p *Pipeline) onChange(c store.Change) {
	p.log.Debug("store_change", "version", c.Version, "keys", len(c.Keys))
	p.notify()
}

func (p *Pipeline) notify() {
	p.mu.Lock()
	p.requested++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
		p.metrics.Coalesced.Inc()
	}
}

func (p *Pipeline) pass(ctx context.Context) error {
	p.mu.Lock()
	p.state = Recomputing
	target := p.requested
	p.mu.Unlock()

	ord, err := p.Recompute(ctx)
	if err != nil {
		p.mu.Lock()
		p.state = Idle
		p.mu.Unlock()
		return err
	}
	p.metrics.Passes.Inc()
	p.metrics.Visible.Set(float64(len(ord.ReportIDs)))

	p.mu.Lock()
	changed := p.last == nil || !p.last.Equal(ord)
	if changed {
		p.last = &ord
	}
	p.mu.Unlock()

	if changed {
		p.log.Debug("publish", "reports", len(ord.ReportIDs), "unread", ord.UnreadCount)
		p.publish(ord)
		p.metrics.Publications.Inc()
	} else {
		p.metrics.Skipped.Inc()
	}

	p.mu.Lock()
	p.state = Idle
	p.completed = target
	done := p.passDone
	p.passDone = make(chan struct{})
	p.mu.Unlock()
	close(done)
	return nil
}

// Load reads one snapshot and decodes it.
func (p *Pipeline) Load(ctx context.Context) (lhn.State, error) {
	snap, err := p.store.Snapshot(ctx, Keys, Prefixes)
	if err != nil {
		return lhn.State{}, fmt.Errorf("snapshot: %w", err)
	}
	st := Decode(snap, p.log)
	st.StrictChatTypes = p.strict
	return st, nil
}

// Recompute computes the ordering of the current store state without
// publishing it.
func (p *Pipeline) Recompute(ctx context.Context) (lhn.Ordering, error) {
	st, err := p.Load(ctx)
	if err != nil {
		return lhn.Ordering{}, err
	}
	return lhn.Compute(st), nil
}

// Sync waits until every change observed before the call has been covered
// by a finished pass.
func (p *Pipeline) Sync(ctx context.Context) error {
	p.mu.Lock()
	target := p.requested
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.completed >= target {
			p.mu.Unlock()
			return nil
		}
		done := p.passDone
		p.mu.Unlock()

		select {
		case <-done:
		case <-p.stopped:
			p.mu.Lock()
			err := p.err
			p.mu.Unlock()
			if err == nil {
				err = errors.New("pipeline stopped")
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
