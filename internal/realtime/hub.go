package realtime

import (
	"sync"

	"github.com/gatherhall/server/internal/metrics"
	"github.com/rs/zerolog"
)

// subscriberQueueSize bounds the per-subscriber backlog. A subscriber
// that falls further behind than this loses messages rather than
// blocking publishers (best-effort, at-most-once delivery).
const subscriberQueueSize = 32

// Subscriber is one connected observer of the events channel.
type Subscriber struct {
	queue chan Message
}

// Messages returns the subscriber's delivery queue. The channel is
// closed when the subscriber is removed from the hub.
func (s *Subscriber) Messages() <-chan Message {
	return s.queue
}

// Hub is the single logical broadcast channel. The subscriber set is
// mutated by connect/disconnect and read during publish, all under one
// mutex; enqueueing to a buffered channel under the lock keeps Publish
// from ever racing a close in Unsubscribe.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	logger      zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger.With().Str("component", "realtime").Logger(),
	}
}

// Subscribe registers a new observer. Delivery begins with the next
// Publish call; there is no replay of earlier messages.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{queue: make(chan Message, subscriberQueueSize)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Set(float64(count))
	h.logger.Debug().Int("subscribers", count).Msg("subscriber connected")
	return sub
}

// Unsubscribe removes the observer and closes its queue. After return
// the hub holds no reference to the subscriber. Safe to call more than
// once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, present := h.subscribers[sub]
	if present {
		delete(h.subscribers, sub)
		close(sub.queue)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if present {
		metrics.RealtimeSubscribers.Set(float64(count))
		h.logger.Debug().Int("subscribers", count).Msg("subscriber disconnected")
	}
}

// Publish delivers the message to every currently subscribed observer.
// Per-subscriber queues are FIFO, so messages published from a single
// mutation arrive in publish order. A subscriber with a full queue
// drops the message; there is no retry.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	for sub := range h.subscribers {
		select {
		case sub.queue <- msg:
		default:
			metrics.RealtimeMessagesDropped.Inc()
		}
	}
	h.mu.Unlock()

	metrics.RealtimeMessagesPublished.WithLabelValues(string(msg.Type)).Inc()
}

// Len reports the current number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
