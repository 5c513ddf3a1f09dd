package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

// ErrSessionNotFound is returned when a conversation has no stored session.
var ErrSessionNotFound = errors.New("conversation: session not found")

// Session is the per-conversation mutable state: the scratchpad, the single
// authoritative state machine, and bookkeeping. It is serialized per
// conversation by the engine's keyed lock; no two conversations share one.
type Session struct {
	ConversationID   string             `json:"conversation_id"`
	Turn             int                `json:"turn"`
	Pad              *booking.Scratchpad `json:"pad"`
	Machine          *booking.Machine   `json:"machine"`
	LastSummary      string             `json:"last_summary,omitempty"`
	ServiceRequestID string             `json:"service_request_id,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewSession creates a fresh session at the greeting stage.
func NewSession(conversationID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ConversationID: conversationID,
		Pad:            booking.NewScratchpad(conversationID),
		Machine:        booking.NewMachine(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// SessionStore persists sessions between turns.
type SessionStore interface {
	Get(ctx context.Context, conversationID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, conversationID string) error
}

// MemorySessionStore is a SessionStore backed by a map, used for tests and
// local development.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, conversationID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[conversationID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ConversationID] = session
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, conversationID)
	return nil
}
