package broadcast

import (
	"encoding/json"
	"sync"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Envelope is one marshaled event as delivered to a session.
type Envelope struct {
	EventType string
	Payload   []byte
}

// Session is one connected client. Events are pushed to its channel by the
// hub; the transport layer (SSE handler, websocket gateway, ...) drains it.
type Session struct {
	ID     string
	UserID int64
	Role   string

	ch chan Envelope
}

// NewSession creates a session for a connected user with the given delivery
// buffer. A full buffer means the consumer is too slow and events are
// dropped (delivery is at-most-once, best-effort).
func NewSession(userID int64, role string, buffer int) *Session {
	if buffer <= 0 {
		buffer = 32
	}
	return &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		Role:   role,
		ch:     make(chan Envelope, buffer),
	}
}

// Events returns the session's delivery channel.
func (s *Session) Events() <-chan Envelope {
	return s.ch
}

// wants reports whether the event's targeting matches this session.
func (s *Session) wants(base *models.BaseEvent) bool {
	if base.TargetUserID != 0 && base.TargetUserID != s.UserID {
		return false
	}
	if base.TargetRole != "" && base.TargetRole != s.Role {
		return false
	}
	return true
}

// SessionRegistry tracks connected sessions. The in-memory implementation
// below serves a single instance; the Kafka relay worker keeps multiple
// instances' hubs converged, so a distributed registry is not required.
type SessionRegistry interface {
	Add(s *Session)
	Remove(id string)
	Snapshot() []*Session
}

// MemoryRegistry is the process-local SessionRegistry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]*Session)}
}

// Add registers a session on connect.
func (r *MemoryRegistry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	util.SessionsConnected.Inc()
}

// Remove deregisters a session on disconnect. The channel is left open: a
// concurrent Deliver may still hold a snapshot containing this session, and
// sends to a removed session are simply never drained.
func (r *MemoryRegistry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		util.SessionsConnected.Dec()
	}
}

// Snapshot returns the currently connected sessions.
func (r *MemoryRegistry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Hub fans domain events out to every connected session whose identity
// matches the event's targeting. Delivery never blocks the publisher.
type Hub struct {
	registry SessionRegistry
	logger   *zap.Logger
}

// NewHub creates a hub over the given registry.
func NewHub(registry SessionRegistry) *Hub {
	return &Hub{
		registry: registry,
		logger:   util.GetLogger(),
	}
}

// Connect registers a session.
func (h *Hub) Connect(s *Session) {
	h.registry.Add(s)
	h.logger.Info("Session connected",
		zap.String("session_id", s.ID),
		zap.Int64("user_id", s.UserID),
		zap.String("role", s.Role))
}

// Disconnect removes a session.
func (h *Hub) Disconnect(id string) {
	h.registry.Remove(id)
	h.logger.Info("Session disconnected", zap.String("session_id", id))
}

// Deliver pushes one event to all matching sessions. The event is marshaled
// once; a session whose buffer is full loses the event rather than stalling
// everyone else.
func (h *Hub) Deliver(event models.DomainEvent) {
	base := event.Base()

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event for broadcast",
			zap.String("event_type", base.EventType),
			zap.Error(err))
		return
	}

	env := Envelope{EventType: base.EventType, Payload: payload}
	for _, s := range h.registry.Snapshot() {
		if !s.wants(base) {
			continue
		}
		select {
		case s.ch <- env:
			util.BroadcastsSentTotal.WithLabelValues(base.EventType).Inc()
		default:
			util.BroadcastsDroppedTotal.Inc()
		}
	}
}
