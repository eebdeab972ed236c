package notes

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mind-scribe/internal/logger"

	"github.com/oklog/ulid/v2"
)

// Subscriber represents a connection that can receive note events
type Subscriber struct {
	Email string
	Ch    chan NoteEvent
	Done  chan struct{}
}

// ConnInfo holds connection metadata
type ConnInfo struct {
	ID          ulid.ULID
	ConnectedAt time.Time
	Subscriber  *Subscriber
}

// emailSubs holds the live connections of one account
type emailSubs struct {
	mu sync.RWMutex
	m  map[ulid.ULID]ConnInfo
}

// Hub fans note events out to every connection of every recipient email.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*emailSubs
	connIndex   map[ulid.ULID]string
	bufferSize  int
	dropped     uint64
}

// NewHub creates a new event hub with configurable buffer size
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[string]*emailSubs),
		connIndex:   make(map[ulid.ULID]string),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a connection for the account identified by email.
func (h *Hub) Subscribe(connULID ulid.ULID, email string) (*Subscriber, func()) {
	log := logger.L()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("subscribing connection", "conn_id", connULID.String(), "email", email)
	}

	sub := &Subscriber{
		Email: email,
		Ch:    make(chan NoteEvent, h.bufferSize),
		Done:  make(chan struct{}),
	}

	h.mu.Lock()
	bucket, exists := h.subscribers[email]
	if !exists {
		bucket = &emailSubs{m: make(map[ulid.ULID]ConnInfo)}
		h.subscribers[email] = bucket
	}
	h.connIndex[connULID] = email
	bucket.mu.Lock()
	bucket.m[connULID] = ConnInfo{ID: connULID, ConnectedAt: time.Now(), Subscriber: sub}
	bucket.mu.Unlock()
	h.mu.Unlock()

	return sub, func() { h.Unsubscribe(connULID) }
}

// Unsubscribe removes a subscriber from the hub and closes its channels.
// Calling it twice is harmless.
func (h *Hub) Unsubscribe(connULID ulid.ULID) {
	log := logger.L()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("unsubscribing connection", "conn_id", connULID.String())
	}

	h.mu.Lock()
	email, ok := h.connIndex[connULID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connIndex, connULID)

	bucket := h.subscribers[email]
	if bucket == nil {
		h.mu.Unlock()
		return
	}

	bucket.mu.Lock()
	info, exists := bucket.m[connULID]
	delete(bucket.m, connULID)
	if len(bucket.m) == 0 {
		delete(h.subscribers, email)
	}
	bucket.mu.Unlock()
	h.mu.Unlock()

	if exists {
		close(info.Subscriber.Ch)
		close(info.Subscriber.Done)
	}
}

// Broadcast delivers ev to every connection of each distinct recipient.
func (h *Hub) Broadcast(_ context.Context, ev NoteEvent) {
	if ev.Note == nil {
		return
	}

	log := logger.L()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("broadcasting event", "note_id", ev.Note.ID.Hex(), "event_type", ev.Type, "recipients", len(ev.Recipients))
	}

	seen := make(map[string]struct{}, len(ev.Recipients))
	for _, email := range ev.Recipients {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		bucket := h.bucket(email)
		if bucket == nil {
			continue
		}

		bucket.mu.RLock()
		for _, info := range bucket.m {
			sendOrDrop(info.Subscriber.Ch, ev, func() {
				atomic.AddUint64(&h.dropped, 1)
				log.Warn("outbox full, dropping event", "conn_id", info.ID.String(), "email", email, "event_type", ev.Type)
			})
		}
		bucket.mu.RUnlock()
	}
}

// GetSubscriberCount returns the current number of subscribers
func (h *Hub) GetSubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, bucket := range h.subscribers {
		bucket.mu.RLock()
		total += len(bucket.m)
		bucket.mu.RUnlock()
	}
	return total
}

// sendOrDrop is the only place that can decide to drop an event.
func sendOrDrop(ch chan NoteEvent, ev NoteEvent, onDrop func()) {
	select {
	case ch <- ev:
	default:
		onDrop()
	}
}

// Stats returns current counters for observability / tests.
func (h *Hub) Stats() (subscribers int, dropped uint64) {
	return h.GetSubscriberCount(), atomic.LoadUint64(&h.dropped)
}

func (h *Hub) bucket(email string) *emailSubs {
	h.mu.RLock()
	b := h.subscribers[email]
	h.mu.RUnlock()
	return b
}
