package hub

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/fault"
)

// SessionStore manages conversation sessions in memory. All mutation happens
// under the store lock, which serializes message appends per session and
// keeps timestamps monotone non-decreasing within a session.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	clock    clockutil.Clock
}

// NewSessionStore creates an empty session store.
func NewSessionStore(clock clockutil.Clock) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		clock:    clock,
	}
}

// Create opens a new active session bound to an agent and feature.
func (s *SessionStore) Create(agentID, featureID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	session := &Session{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		FeatureID: featureID,
		Status:    SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session
	return copySession(session)
}

// Get returns a session by ID.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fault.New(fault.SessionNotFound, "session %s not found", id)
	}
	return copySession(session), nil
}

// Exists reports whether the session is known and still active.
func (s *SessionStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return ok && session.Status == SessionActive
}

// AddMessage appends a message to an active session. Closed sessions reject
// the append; timestamps never run backwards within a session.
func (s *SessionStore) AddMessage(id string, role MessageRole, content string, metadata map[string]interface{}) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fault.New(fault.SessionNotFound, "session %s not found", id)
	}
	if session.Status == SessionClosed {
		return nil, fault.New(fault.SessionClosed, "session %s is closed", id)
	}

	now := s.clock.Now()
	if n := len(session.Messages); n > 0 && now.Before(session.Messages[n-1].Timestamp) {
		now = session.Messages[n-1].Timestamp
	}

	message := Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  metadata,
	}
	session.Messages = append(session.Messages, message)
	session.UpdatedAt = now
	return &message, nil
}

// Close marks a session closed. Closing twice is a no-op.
func (s *SessionStore) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fault.New(fault.SessionNotFound, "session %s not found", id)
	}
	session.Status = SessionClosed
	session.UpdatedAt = s.clock.Now()
	return nil
}

// ByFeature returns all sessions for a feature, oldest first.
func (s *SessionStore) ByFeature(featureID string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Session
	for _, session := range s.sessions {
		if session.FeatureID == featureID {
			out = append(out, copySession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// copySession returns a defensive copy so callers cannot mutate store state.
func copySession(s *Session) *Session {
	copied := *s
	copied.Messages = append([]Message(nil), s.Messages...)
	return &copied
}
