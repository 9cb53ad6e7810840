package realtime

import (
	"context"
	"iter"
	"sync"

	"babytrack-go/pkg/logger"
)

const DefaultBufferSize = 32

// Source feeds changes into a sink until ctx is done.
type Source interface {
	Run(ctx context.Context, sink func(Change)) error
}

// Hub fans changes out to subscriptions by baby id. It is safe for
// concurrent use.
type Hub struct {
	log    logger.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewHub(log logger.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Hub{
		log:    log,
		buffer: buffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in changes of babyID, optionally limited to
// the given tables. On a closed hub the subscription is already ended.
func (h *Hub) Subscribe(babyID string, tables ...string) *Subscription {
	sub := &Subscription{
		hub:    h,
		babyID: babyID,
		ch:     make(chan Change, h.buffer),
		done:   make(chan struct{}),
	}
	if len(tables) > 0 {
		sub.tables = make(map[string]struct{}, len(tables))
		for _, table := range tables {
			sub.tables[table] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.end()
		return sub
	}
	if h.subs[babyID] == nil {
		h.subs[babyID] = make(map[*Subscription]struct{})
	}
	h.subs[babyID][sub] = struct{}{}
	return sub
}

// Publish delivers change to every matching subscription without blocking.
// A subscription whose buffer is full misses this change; it still has
// undelivered ones queued, which is enough to trigger a refetch.
func (h *Hub) Publish(change Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[change.BabyID] {
		if !sub.wants(change.Table) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.log.Debug("realtime.publish: subscriber buffer full, dropping change", "baby_id", change.BabyID, "table", change.Table)
		}
	}
}

// Run pumps source into the hub until ctx is done or the source fails.
func (h *Hub) Run(ctx context.Context, source Source) error {
	return source.Run(ctx, h.Publish)
}

// Close ends every subscription. Later subscriptions end immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for babyID, subs := range h.subs {
		for sub := range subs {
			sub.end()
		}
		delete(h.subs, babyID)
	}
}

func (h *Hub) subscribers(babyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[babyID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.babyID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.babyID)
		}
	}
}

type Subscription struct {
	hub    *Hub
	babyID string
	tables map[string]struct{}
	ch     chan Change

	once sync.Once
	done chan struct{}
}

func (s *Subscription) BabyID() string {
	return s.babyID
}

// Changes yields queued and future changes until ctx is done, the consumer
// stops, or the subscription ends. Ranging again after breaking out resumes
// where the previous range stopped.
func (s *Subscription) Changes(ctx context.Context) iter.Seq[Change] {
	return func(yield func(Change) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case change := <-s.ch:
				if !yield(change) {
					return
				}
			}
		}
	}
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe ends the subscription. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.hub.remove(s)
	s.end()
}

func (s *Subscription) end() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) wants(table string) bool {
	if s.tables == nil {
		return true
	}
	_, ok := s.tables[table]
	return ok
}
