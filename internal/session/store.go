package session

import (
	"context"
	"time"

	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/events"
)

// TTLs below this floor are raised to it.
const minTTL = 60 * time.Second

const probeTimeout = 5 * time.Second

// State is the mutable per-visitor conversation state. It must round-trip
// through JSON because the Redis backend only stores text.
type State struct {
	CreatedAt         time.Time      `json:"created_at"`
	History           []chat.Message `json:"history"`
	RequestTimestamps []time.Time    `json:"request_timestamps"`
	LastInteraction   time.Time      `json:"last_interaction"`
}

// NewState initializes the state for a first-time visitor.
func NewState(now time.Time) *State {
	return &State{
		CreatedAt:         now,
		History:           []chat.Message{},
		RequestTimestamps: []time.Time{},
		LastInteraction:   now,
	}
}

// normalize applies required defaults after a load, so absent fields in an
// older stored payload never surface as nil.
func (s *State) normalize() {
	if s.History == nil {
		s.History = []chat.Message{}
	}
	if s.RequestTimestamps == nil {
		s.RequestTimestamps = []time.Time{}
	}
}

// Health describes a session backend's availability.
type Health struct {
	Status         string `json:"status"`
	Backend        string `json:"backend"`
	Error          string `json:"error,omitempty"`
	ActiveSessions int    `json:"active_sessions,omitempty"`
}

// Store keeps per-visitor conversation state with TTL expiry. Get returns
// (nil, nil) for an absent or expired session and renews the TTL as a side
// effect when the session exists. Deleting a nonexistent id is a no-op.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Set(ctx context.Context, id string, state *State) error
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
	Health(ctx context.Context) Health
}

// New selects the session backend once at startup: Redis when configured and
// reachable, otherwise the in-process cache for the rest of the process
// lifetime. There is no runtime reconnection.
func New(redisURL string, ttl time.Duration, logger *events.Logger) Store {
	if ttl < minTTL {
		ttl = minTTL
	}

	if redisURL == "" {
		logger.Event("session_store_in_memory", "reason", "missing_redis_url")
		return NewMemoryStore(ttl)
	}

	store, err := NewRedisStore(redisURL, ttl)
	if err != nil {
		logger.Event("session_store_error", "error", err.Error())
		logger.Event("session_store_fallback", "reason", "redis_connection_failed")
		logger.Event("session_store_in_memory", "reason", "redis_connection_failed")
		return NewMemoryStore(ttl)
	}
	logger.Event("session_store_ready", "backend", "redis")
	return store
}
