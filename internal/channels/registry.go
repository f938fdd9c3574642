package channels

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession reports that a push reached no live session.
var ErrNoSession = errors.New("no connected session")

// Session is a live connection that accepts encoded push frames.
type Session interface {
	Send(ctx context.Context, frame []byte) error
}

// Registry resolves the live sessions of a user. Implementations must return
// a snapshot that stays valid while sessions connect and disconnect.
type Registry interface {
	SessionsFor(userID string) []Session
}

// Hub is an in-memory Registry fed by connect/disconnect events.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Session
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[string]Session)}
}

// Register attaches a session to a user, replacing any session with the same id.
func (h *Hub) Register(userID, sessionID string, session Session) {
	if userID == "" || sessionID == "" || session == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	byID, ok := h.sessions[userID]
	if !ok {
		byID = make(map[string]Session)
		h.sessions[userID] = byID
	}
	byID[sessionID] = session
}

// Unregister detaches a session; unknown ids are ignored.
func (h *Hub) Unregister(userID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byID, ok := h.sessions[userID]
	if !ok {
		return
	}
	delete(byID, sessionID)
	if len(byID) == 0 {
		delete(h.sessions, userID)
	}
}

// SessionsFor copies the user's sessions under the read lock.
func (h *Hub) SessionsFor(userID string) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	byID := h.sessions[userID]
	out := make([]Session, 0, len(byID))
	for _, session := range byID {
		out = append(out, session)
	}
	return out
}

// Count returns how many sessions the user has open.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
