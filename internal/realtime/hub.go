package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
)

const heartbeatInterval = 30 * time.Second

// Subscriber is one open SSE connection for one user. A user may hold
// several subscribers at once (multiple tabs); each gets its own buffered
// outbound channel.
type Subscriber struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Outbound  chan Notification
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Hub routes notifications to the in-process subscribers of each user.
// Slow subscribers are evicted rather than blocking the publisher.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[uuid.UUID]map[*Subscriber]bool
	closed        bool
	heartbeat     time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "Hub"),
		subscriptions: make(map[uuid.UUID]map[*Subscriber]bool),
		heartbeat:     heartbeatInterval,
	}
}

// Subscribe registers a new connection for the user. The first message
// on the returned subscriber's channel is a connected acknowledgment.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan Notification, 16),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub
	}
	subs, ok := h.subscriptions[userID]
	if !ok {
		subs = make(map[*Subscriber]bool)
		h.subscriptions[userID] = subs
	}
	subs[sub] = true
	h.mu.Unlock()

	sub.Outbound <- NewNotification(userID, NotificationConnected, "Connected", "Notification stream established", map[string]any{
		"subscriber_id": sub.ID.String(),
	})
	h.log.Debug("subscriber registered", "subscriber_id", sub.ID, "user_id", userID)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	h.removeLocked(sub)
	h.mu.Unlock()
	sub.close()
	h.log.Debug("subscriber removed", "subscriber_id", sub.ID, "user_id", sub.UserID)
}

func (h *Hub) removeLocked(sub *Subscriber) {
	if subs, ok := h.subscriptions[sub.UserID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscriptions, sub.UserID)
		}
	}
}

// Publish delivers the notification to every live subscriber of its
// user and returns the number of deliveries. Subscribers whose buffers
// are full are evicted.
func (h *Hub) Publish(n Notification) int {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, 2)
	for sub := range h.subscriptions[n.UserID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case sub.Outbound <- n:
			delivered++
		default:
			h.log.Warn("dropping slow subscriber; outbound buffer full", "subscriber_id", sub.ID, "user_id", sub.UserID)
			h.Unsubscribe(sub)
		}
	}
	return delivered
}

// Broadcast sends a copy of the notification to every connected user.
func (h *Hub) Broadcast(n Notification) int {
	h.mu.RLock()
	users := make([]uuid.UUID, 0, len(h.subscriptions))
	for userID := range h.subscriptions {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, userID := range users {
		copied := n
		copied.UserID = userID
		delivered += h.Publish(copied)
	}
	return delivered
}

// SubscriberCount reports the number of live connections for a user.
func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[userID])
}

// ServeHTTP drains the subscriber onto an SSE response until the client
// disconnects or the hub shuts down. Heartbeats are written on a fixed
// interval to keep intermediaries from closing idle streams.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, sub *Subscriber) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("subscriber context done", "subscriber_id", sub.ID, "err", ctx.Err())
			return
		case <-sub.done:
			return
		case <-heartbeat.C:
			ping := NewNotification(sub.UserID, NotificationHeartbeat, "", "", nil)
			if err := writeEvent(w, ping); err != nil {
				h.log.Debug("heartbeat write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
			flusher.Flush()
		case n, ok := <-sub.Outbound:
			if !ok {
				return
			}
			if err := writeEvent(w, n); err != nil {
				h.log.Debug("notification write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", n.Type); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", raw)
	return err
}

// Shutdown closes every subscriber and rejects new subscriptions.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0)
	for _, userSubs := range h.subscriptions {
		for sub := range userSubs {
			subs = append(subs, sub)
		}
	}
	h.subscriptions = make(map[uuid.UUID]map[*Subscriber]bool)
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
