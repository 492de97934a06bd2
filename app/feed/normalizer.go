package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// ErrAllAdaptersExhausted is returned when no registered adapter could
// interpret the input.
var ErrAllAdaptersExhausted = errors.New("no feed adapter could parse the input")

// ParseFailure records why a single adapter gave up. It never leaves the
// Normalizer: the next adapter is tried instead.
type ParseFailure struct {
	Adapter string
	Err     error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("adapter %s failed: %v", e.Adapter, e.Err)
}

func (e *ParseFailure) Unwrap() error {
	return e.Err
}

// Adapter wraps one underlying feed parser.
//
// Attempt returns the parsed document as a Tree or an error; Mappings and
// Extract turn a Tree produced by the same adapter into a Feed. Lower
// priorities are attempted first.
type Adapter interface {
	Name() string
	Priority() int
	Attempt(ctx context.Context, raw []byte) (*Tree, error)
	Mappings() Mappings
	Extract(tree *Tree, f *Feed)
}

type Normalizer struct {
	adapters       []Adapter
	attemptTimeout time.Duration
	mu             sync.RWMutex
}

type Option func(*Normalizer)

// WithAttemptTimeout bounds every adapter attempt. An attempt that runs past
// the deadline counts as a failed one.
func WithAttemptTimeout(d time.Duration) Option {
	return func(n *Normalizer) {
		n.attemptTimeout = d
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) Register(adapters ...Adapter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.adapters = append(n.adapters, adapters...)
}

// Adapters returns the registered adapters in attempt order: ascending
// priority, registration order among equal priorities.
func (n *Normalizer) Adapters() []Adapter {
	n.mu.RLock()
	ordered := slices.Clone(n.adapters)
	n.mu.RUnlock()

	slices.SortStableFunc(ordered, func(a, b Adapter) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return ordered
}

// Run normalizes raw feed text with the first adapter that accepts it.
func (n *Normalizer) Run(ctx context.Context, raw []byte) (*Feed, error) {
	adapters := n.Adapters()

	for i, adapter := range adapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := n.attempt(ctx, adapter, raw)
		if err != nil {
			slog.Debug("Feed adapter failed, trying next", "adapter", adapter.Name(), "priority", adapter.Priority(), "error", err)
			continue
		}

		slog.Debug("Feed normalized", "adapter", adapter.Name(), "attempt", i+1, "entries", len(f.Entries))
		return f, nil
	}

	return nil, fmt.Errorf("%w (%d adapters attempted)", ErrAllAdaptersExhausted, len(adapters))
}

func (n *Normalizer) attempt(ctx context.Context, adapter Adapter, raw []byte) (*Feed, error) {
	if n.attemptTimeout <= 0 {
		return build(ctx, adapter, raw)
	}

	ctx, cancel := context.WithTimeout(ctx, n.attemptTimeout)
	defer cancel()

	type result struct {
		feed *Feed
		err  error
	}
	done := make(chan result, 1)
	go func() {
		f, err := build(ctx, adapter, raw)
		done <- result{feed: f, err: err}
	}()

	select {
	case r := <-done:
		return r.feed, r.err
	case <-ctx.Done():
		return nil, &ParseFailure{Adapter: adapter.Name(), Err: ctx.Err()}
	}
}

// build runs one adapter end to end. Panics from the wrapped parser or from
// extraction are turned into a ParseFailure.
func build(ctx context.Context, adapter Adapter, raw []byte) (f *Feed, err error) {
	defer func() {
		if r := recover(); r != nil {
			f = nil
			err = &ParseFailure{Adapter: adapter.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	tree, err := adapter.Attempt(ctx, raw)
	if err != nil {
		return nil, &ParseFailure{Adapter: adapter.Name(), Err: err}
	}
	if tree == nil {
		return nil, &ParseFailure{Adapter: adapter.Name(), Err: errors.New("empty result")}
	}

	mappings := adapter.Mappings()

	f = NewFeed(adapter.Name())
	Map(tree.Channel, mappings.Feed, f)

	for _, item := range tree.Items {
		entry := NewEntry()
		Map(item, mappings.Entry, &entry)
		f.Entries = append(f.Entries, entry)
	}

	adapter.Extract(tree, f)

	return f, nil
}
