package realtime

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event is one message on an auction topic. Payload contents are decided by
// the emitter; sealed-live auctions must never put bid amounts or bidder
// identities in here.
type Event struct {
	Type    string         `json:"type"`
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload"`
	SentAt  time.Time      `json:"sent_at"`
}

func AuctionTopic(auctionID uint64) string {
	return fmt.Sprintf("auction:%d", auctionID)
}

// Hub fans events out to per-topic subscribers. Emit never blocks: a slow
// subscriber has events dropped rather than holding up the caller, which
// runs on the post-commit path of the bid ledger.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan Event
	nextID uint64

	buffer  int
	logger  *zap.Logger
	dropped uint64
}

func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		subs:   map[string]map[uint64]chan Event{},
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a listener on a topic and returns the event channel
// plus a cancel func that must be called when the listener goes away.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[topic] == nil {
		h.subs[topic] = map[uint64]chan Event{}
	}
	h.subs[topic][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[topic]; ok {
			if _, ok := set[id]; ok {
				delete(set, id)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, topic)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Emit(topic string, event Event) {
	if h == nil {
		return
	}
	event.Topic = topic
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[topic] {
		select {
		case ch <- event:
		default:
			// Drop when the subscriber is slow; the hub must not block.
			if n := atomic.AddUint64(&h.dropped, 1); n%100 == 1 && h.logger != nil {
				h.logger.Warn("realtime hub dropping events",
					zap.String("topic", topic),
					zap.Uint64("dropped_total", n),
				)
			}
		}
	}
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
