// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package typeahead turns a stream of raw search queries into a stream of
// search states for an incremental search widget.
//
// Every subscription runs one event loop that debounces input, drops a
// settled query equal to the previous one, and performs one lookup per
// remaining query. Lookups carry the generation number current when they
// were issued; the loop applies an outcome only while that generation is
// still the newest, so a slow response to an old query never reaches the
// output.
package typeahead

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is the quiet interval a query must survive before it is
// looked up.
const DefaultDebounce = 300 * time.Millisecond

// State is one snapshot of the widget's search status.
type State[E any] struct {
	// Searching is true while the lookup for the latest accepted query is
	// outstanding.
	Searching bool `json:"searching"`

	// Failed is true when the most recent lookup ended in error.
	Failed bool `json:"failed"`

	// Results is the most recently accepted result set. Never nil once a
	// lookup has resolved.
	Results []E `json:"results"`
}

// Lookup resolves a non-empty query to a list of entities.
type Lookup[E any] interface {
	Lookup(ctx context.Context, query string) ([]E, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc[E any] func(ctx context.Context, query string) ([]E, error)

// Lookup calls f.
func (f LookupFunc[E]) Lookup(ctx context.Context, query string) ([]E, error) {
	return f(ctx, query)
}

// Options configure a Pipeline.
type Options struct {
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// Logger receives debug and warn events. Nil disables logging.
	Logger *zap.Logger
}

// Pipeline creates independent search subscriptions over one Lookup.
type Pipeline[E any] struct {
	lookup   Lookup[E]
	debounce time.Duration
	logger   *zap.Logger
}

// New returns a Pipeline that resolves queries through lookup.
func New[E any](lookup Lookup[E], opts Options) *Pipeline[E] {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline[E]{
		lookup:   lookup,
		debounce: debounce,
		logger:   logger,
	}
}

// Debounce returns the effective quiet interval.
func (p *Pipeline[E]) Debounce() time.Duration { return p.debounce }

// Subscription is one running pipeline instance.
type Subscription[E any] struct {
	states <-chan State[E]
	cancel context.CancelFunc
	done   chan struct{}
}

// States returns the output stream. It is closed after teardown, or after
// the query stream closes and every pending query has been resolved and
// delivered.
func (s *Subscription[E]) States() <-chan State[E] { return s.states }

// Done is closed once the event loop has exited.
func (s *Subscription[E]) Done() <-chan struct{} { return s.done }

// Close tears the subscription down and waits for its event loop to exit.
// No state is delivered after Close returns; timers and lookups that fire
// later are ignored. Close is safe to call more than once.
func (s *Subscription[E]) Close() {
	s.cancel()
	<-s.done
}

// Subscribe starts a new pipeline instance reading queries until the channel
// closes or ctx is cancelled. Each call has its own state and debounce timer.
func (p *Pipeline[E]) Subscribe(ctx context.Context, queries <-chan string) *Subscription[E] {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan State[E])
	sub := &Subscription[E]{
		states: out,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	l := &loop[E]{
		lookup:   p.lookup,
		debounce: p.debounce,
		logger:   p.logger,
		out:      out,
		outcomes: make(chan outcome[E]),
	}
	go func() {
		defer close(sub.done)
		defer cancel()
		l.run(ctx, queries)
	}()
	return sub
}

// outcome is a finished lookup reported back to the event loop.
type outcome[E any] struct {
	generation uint64
	query      string
	results    []E
	err        error
}

// loop holds the state of one subscription. Only the run goroutine touches it.
type loop[E any] struct {
	lookup   Lookup[E]
	debounce time.Duration
	logger   *zap.Logger
	out      chan<- State[E]

	state   State[E]
	backlog []State[E]

	pending string
	timer   *time.Timer

	last     string
	accepted bool

	generation uint64
	inflight   context.CancelFunc
	outcomes   chan outcome[E]
}

func (l *loop[E]) run(ctx context.Context, queries <-chan string) {
	defer close(l.out)
	defer l.stopTimer()
	defer l.cancelInflight()

	for {
		if ctx.Err() != nil {
			return
		}
		if queries == nil && l.timer == nil && l.inflight == nil && len(l.backlog) == 0 {
			return
		}

		// Nil channels disable their cases: nothing to send, no timer armed.
		var (
			send chan<- State[E]
			next State[E]
			fire <-chan time.Time
		)
		if len(l.backlog) > 0 {
			send = l.out
			next = l.backlog[0]
		}
		if l.timer != nil {
			fire = l.timer.C
		}

		select {
		case <-ctx.Done():
			return

		case send <- next:
			l.backlog[0] = State[E]{}
			l.backlog = l.backlog[1:]

		case q, ok := <-queries:
			if !ok {
				queries = nil
				if l.timer != nil {
					l.stopTimer()
					l.settle(ctx)
				}
				continue
			}
			l.schedule(q)

		case <-fire:
			l.timer = nil
			l.settle(ctx)

		case o := <-l.outcomes:
			l.resolve(o)
		}
	}
}

// schedule restarts the quiet interval for q, discarding any pending query.
func (l *loop[E]) schedule(q string) {
	l.stopTimer()
	l.pending = q
	l.timer = time.NewTimer(l.debounce)
}

// settle handles a query that survived the quiet interval.
func (l *loop[E]) settle(ctx context.Context) {
	q := l.pending
	l.pending = ""

	if l.accepted && q == l.last {
		l.logger.Debug("duplicate query suppressed", zap.String("query", q))
		return
	}
	l.accepted = true
	l.last = q

	l.generation++
	l.cancelInflight()

	// Results stay visible under the pending indicator; a new lookup clears
	// the previous failure.
	l.state.Searching = true
	l.state.Failed = false
	l.emit(l.state)

	if q == "" {
		l.state = State[E]{Results: []E{}}
		l.emit(l.state)
		return
	}

	gen := l.generation
	lctx, cancel := context.WithCancel(ctx)
	l.inflight = cancel
	l.logger.Debug("lookup started", zap.String("query", q), zap.Uint64("generation", gen))

	go func() {
		results, err := l.lookup.Lookup(lctx, q)
		select {
		case l.outcomes <- outcome[E]{generation: gen, query: q, results: results, err: err}:
		case <-lctx.Done():
		}
	}()
}

// resolve applies a lookup outcome if it belongs to the newest generation.
func (l *loop[E]) resolve(o outcome[E]) {
	if o.generation != l.generation {
		l.logger.Debug("stale lookup discarded",
			zap.String("query", o.query),
			zap.Uint64("generation", o.generation),
			zap.Uint64("current", l.generation))
		return
	}
	l.cancelInflight()

	if o.err != nil {
		l.logger.Warn("lookup failed", zap.String("query", o.query), zap.Error(o.err))
		l.state = State[E]{Failed: true, Results: []E{}}
		l.emit(l.state)
		return
	}

	results := o.results
	if results == nil {
		results = []E{}
	}
	l.state = State[E]{Results: results}
	l.emit(l.state)
}

func (l *loop[E]) emit(s State[E]) {
	l.backlog = append(l.backlog, s)
}

func (l *loop[E]) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *loop[E]) cancelInflight() {
	if l.inflight != nil {
		l.inflight()
		l.inflight = nil
	}
}
