package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback used when Redis is not available.
// Entries carry their own expiry and expired ones are purged lazily on each
// access; there is no background sweeper. Payloads are stored serialized so
// neither reads nor writes alias caller-held state.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) purgeExpired() {
	now := s.now()
	for id, entry := range s.entries {
		if entry.expires.Before(now) {
			delete(s.entries, id)
		}
	}
}

// Get loads a session and renews its expiry, mirroring the Redis backend's
// read-renews-lease behavior.
func (s *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	entry.expires = s.now().Add(s.ttl)

	var state State
	if err := json.Unmarshal(entry.payload, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	state.normalize()
	return &state, nil
}

// Set stores a serialized copy of the state and refreshes its expiry.
func (s *MemoryStore) Set(ctx context.Context, id string, state *State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()
	s.entries[id] = &memoryEntry{payload: payload, expires: s.now().Add(s.ttl)}
	return nil
}

// Delete removes a session. Unknown ids are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Touch extends the expiry without altering the payload.
func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()
	if entry, ok := s.entries[id]; ok {
		entry.expires = s.now().Add(s.ttl)
	}
	return nil
}

// Health reports the number of live sessions.
func (s *MemoryStore) Health(ctx context.Context) Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()
	return Health{Status: "in_memory", Backend: "memory", ActiveSessions: len(s.entries)}
}
