package room

import (
	"sync"

	"TalkGate/logger"
	"TalkGate/tools/errs"
)

// Room is a concurrency-safe session pool scoped to one room id. Callers
// never touch the member map directly; all mutation goes through these
// methods.
type Room struct {
	id       string
	mu       sync.RWMutex
	sessions map[string]*Session // session_id -> session
}

func NewRoom(id string) *Room {
	return &Room{
		id:       id,
		sessions: make(map[string]*Session),
	}
}

func (r *Room) ID() string { return r.id }

// Add inserts or replaces the entry for the session id. A second add with
// the same id overwrites, which is the reconnect policy, not an error.
func (r *Room) Add(sessionID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = s
}

func (r *Room) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Remove deletes and returns the removed session; closing the connection is
// the caller's responsibility.
func (r *Room) Remove(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sessionID)
	return s, true
}

// RemoveAndClose removes the session and closes its connection. The session
// is being torn down anyway, so a close failure is logged, never escalated.
// Returns whether a session was actually removed.
func (r *Room) RemoveAndClose(sessionID string) bool {
	s, ok := r.Remove(sessionID)
	if !ok {
		return false
	}
	if err := s.Conn.Close(); err != nil {
		logger.Infof("[Room] close session error room=%s session=%s err=%v", r.id, sessionID, err)
	}
	return true
}

// Unicast sends text to one session. ErrSessionNotFound when the id is
// absent, ErrTransport when the write itself fails.
func (r *Room) Unicast(sessionID, text string) error {
	s, ok := r.Get(sessionID)
	if !ok {
		return errs.ErrSessionNotFound.WrapMsg("", "room_id", r.id, "session_id", sessionID)
	}
	if err := s.Conn.WriteText(text); err != nil {
		return errs.ErrTransport.WrapMsg(err.Error(), "room_id", r.id, "session_id", sessionID)
	}
	return nil
}

// Broadcast sends text to every current member. Iteration runs over a
// snapshot, so membership changes during the fan-out may or may not be
// reached: at-most-once per current member is the contract. A failed send to
// one recipient never stops the rest.
func (r *Room) Broadcast(text string) {
	for _, s := range r.snapshot() {
		if err := s.Conn.WriteText(text); err != nil {
			logger.Infof("[Room] broadcast send failed room=%s session=%s err=%v", r.id, s.SessionID, err)
		}
	}
}

func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshot copies the member list under RLock so sends happen off the lock.
func (r *Room) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
