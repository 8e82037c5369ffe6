package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds bounded per-session conversation history. All state lives in
// process memory; restarting loses every session.
//
// Two locking scopes: the store mutex guards the session map, and each
// session owns an exchange mutex so one chat exchange's read-call-append
// sequence never interleaves with another's for the same session id.
// Different session ids never block each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionHistory
	capacity int
}

type sessionHistory struct {
	exchangeMu sync.Mutex

	mu         sync.Mutex
	turns      []Turn
	lastActive time.Time
}

// NewStore creates a store retaining at most capacity turns per session.
// capacity 0 is legal and means no context is ever retained.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		sessions: make(map[string]*sessionHistory),
		capacity: capacity,
	}
}

// Capacity returns the per-session turn limit.
func (s *Store) Capacity() int { return s.capacity }

// NewTurn builds an immutable turn with a fresh id and timestamp.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Store) getOrCreate(sessionID string) *sessionHistory {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[sessionID]; ok {
		return h
	}
	h = &sessionHistory{lastActive: time.Now().UTC()}
	s.sessions[sessionID] = h
	return h
}

// History returns a snapshot of the session's turns in insertion order.
// Unknown session ids yield an empty history, never an error.
func (s *Store) History(sessionID string) []Turn {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Append records turns for the session, evicting the oldest past capacity.
func (s *Store) Append(sessionID string, turns ...Turn) {
	h := s.getOrCreate(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.append(s.capacity, turns...)
}

func (h *sessionHistory) append(capacity int, turns ...Turn) {
	h.lastActive = time.Now().UTC()
	if capacity == 0 {
		return
	}
	h.turns = append(h.turns, turns...)
	if excess := len(h.turns) - capacity; excess > 0 {
		h.turns = append(h.turns[:0], h.turns[excess:]...)
	}
}

// ExchangeFn runs one chat exchange against a history snapshot and returns
// the turns to commit. Returning an error commits nothing.
type ExchangeFn func(history []Turn) ([]Turn, error)

// Exchange serializes a full read-provider-append exchange for one session.
// The snapshot passed to fn is the caller's to keep; mutations never reach
// the store. Turns returned by fn are appended atomically, and only when fn
// succeeds and the context is still live.
func (s *Store) Exchange(ctx context.Context, sessionID string, fn ExchangeFn) error {
	h := s.getOrCreate(sessionID)

	h.exchangeMu.Lock()
	defer h.exchangeMu.Unlock()

	h.mu.Lock()
	snapshot := make([]Turn, len(h.turns))
	copy(snapshot, h.turns)
	h.mu.Unlock()

	turns, err := fn(snapshot)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		// Abandoned request: discard the provider's work, mutate nothing.
		return err
	}

	h.mu.Lock()
	h.append(s.capacity, turns...)
	h.mu.Unlock()
	return nil
}

// SessionCount reports how many sessions currently hold history.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor evicts sessions idle longer than ttl. A ttl of zero disables
// expiry and the janitor never starts.
func (s *Store) StartJanitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle(ttl)
			}
		}
	}()
}

func (s *Store) evictIdle(ttl time.Duration) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.sessions {
		h.mu.Lock()
		idle := now.Sub(h.lastActive) >= ttl
		h.mu.Unlock()
		if idle {
			delete(s.sessions, id)
		}
	}
}
