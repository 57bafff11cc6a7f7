package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pubtrivia/tally/pkg/metrics"
)

// Subscription is one registered change-feed observer. Snapshots arrive on C
// until Cancel is called, the owning store closes, or the registration
// context ends.
type Subscription struct {
	ID         string
	Collection string
	C          <-chan Snapshot

	cancel func()
}

// Cancel unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.cancel()
}

// feedHub fans committed snapshots out to subscribers. Delivery is
// best-effort per subscriber: a full channel drops the send rather than
// blocking the committer, and the subscriber catches up on the next commit.
type feedHub struct {
	mu         sync.Mutex
	subs       map[string]*feedSub
	bufferSize int
	closed     bool
}

type feedSub struct {
	collection string
	ch         chan Snapshot
	done       chan struct{}
}

func newFeedHub(bufferSize int) *feedHub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &feedHub{
		subs:       make(map[string]*feedSub),
		bufferSize: bufferSize,
	}
}

func (h *feedHub) subscribe(ctx context.Context, collection string) (*Subscription, error) {
	switch collection {
	case CollectionToday, CollectionStandings, CollectionProfiles:
	default:
		return nil, ErrUnknownCollection
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrStoreClosed
	}

	id := uuid.NewString()
	sub := &feedSub{
		collection: collection,
		ch:         make(chan Snapshot, h.bufferSize),
		done:       make(chan struct{}),
	}
	h.subs[id] = sub
	metrics.UpdateWatchSubscribers(len(h.subs))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if s, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(s.done)
				close(s.ch)
				metrics.UpdateWatchSubscribers(len(h.subs))
			}
		})
	}

	// Tie the subscription to the caller's context so an abandoned watcher
	// does not leak its channel.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return &Subscription{ID: id, Collection: collection, C: sub.ch, cancel: cancel}, nil
}

func (h *feedHub) publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		if sub.collection != snap.Collection {
			continue
		}
		select {
		case sub.ch <- snap:
			metrics.RecordWatchSnapshot()
		default:
			metrics.RecordWatchDroppedSend()
		}
	}
}

func (h *feedHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.done)
		close(sub.ch)
	}
	metrics.UpdateWatchSubscribers(0)
}
