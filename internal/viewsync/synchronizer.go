// Package viewsync keeps an in-memory view of a remote collection current:
// an initial fetch plus a change subscription, where every matching change
// triggers a re-fetch rather than a local patch.
package viewsync

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"matchday/internal/collection"
	"matchday/internal/realtime"
)

// Phase is the synchronizer lifecycle state.
type Phase int

const (
	// Fetching means the initial load has not resolved yet.
	Fetching Phase = iota
	// Synced means the view holds the latest resolved fetch.
	Synced
)

// Snapshot is one resolved view of the collection.
type Snapshot[T any] struct {
	Phase   Phase
	Records []T
}

// Synchronizer keeps one filtered, ordered collection view in sync.
type Synchronizer[T any] struct {
	client *collection.Client
	sub    *realtime.Subscriber
	name   string
	filter collection.Filter
	order  collection.Order

	onChange func(Snapshot[T])

	gen atomic.Uint64

	mu      sync.RWMutex
	phase   Phase
	records []T
	subID   string
	closed  bool
}

// New starts a synchronizer: it subscribes to the collection's changes, then
// performs the initial fetch. A nil subscriber yields a static view that
// fetches once and never updates.
//
// onChange, when non-nil, is invoked after every applied snapshot. A failed
// initial fetch degrades to an empty synced view rather than an error; a
// failed re-fetch keeps the previous records.
func New[T any](ctx context.Context, client *collection.Client, sub *realtime.Subscriber,
	name string, filter collection.Filter, order collection.Order,
	onChange func(Snapshot[T])) (*Synchronizer[T], error) {

	s := &Synchronizer[T]{
		client:   client,
		sub:      sub,
		name:     name,
		filter:   filter,
		order:    order,
		onChange: onChange,
		phase:    Fetching,
		records:  []T{},
	}

	if sub != nil {
		subID, err := sub.Subscribe(ctx, name, []string{realtime.EventAny}, filter.Encode(),
			func(realtime.ChangeEvent) {
				// Handlers must not block the read loop.
				go s.refetch(ctx)
			})
		if err != nil {
			return nil, err
		}
		s.subID = subID
	}

	s.refetch(ctx)
	return s, nil
}

// Snapshot returns the current view. The record slice is shared; callers
// must not mutate it.
func (s *Synchronizer[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot[T]{Phase: s.phase, Records: s.records}
}

// Refetch forces a reload outside of any change event, e.g. after a local
// mutation the caller wants reflected immediately.
func (s *Synchronizer[T]) Refetch(ctx context.Context) {
	s.refetch(ctx)
}

// Close releases the change subscription. The last snapshot stays readable.
func (s *Synchronizer[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subID := s.subID
	s.mu.Unlock()

	if s.sub != nil && subID != "" {
		s.sub.Unsubscribe(subID)
	}
}

// refetch loads the collection and applies the result unless a newer fetch
// resolved meanwhile. The newest resolver wins regardless of start order.
func (s *Synchronizer[T]) refetch(ctx context.Context) {
	gen := s.gen.Add(1)

	records, err := collection.Fetch[T](ctx, s.client, s.name, s.filter, s.order)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.gen.Load() != gen {
		return
	}

	if err != nil {
		log.Printf("viewsync: fetch %s failed: %v", s.name, err)
		if s.phase == Fetching {
			// Degrade to an empty view instead of surfacing the error.
			s.phase = Synced
			s.records = []T{}
			s.notifyLocked()
		}
		return
	}

	s.phase = Synced
	s.records = records
	s.notifyLocked()
}

func (s *Synchronizer[T]) notifyLocked() {
	if s.onChange == nil {
		return
	}
	snap := Snapshot[T]{Phase: s.phase, Records: s.records}
	go s.onChange(snap)
}
