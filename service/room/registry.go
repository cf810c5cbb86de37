package room

import (
	"sync"
	"sync/atomic"

	"TalkGate/logger"
)

// connectedAck is pushed to a session right after admission.
const connectedAck = "connected"

// Registry owns the room pool and the online counter. It is an explicit
// object, not package state: handlers and the push API hold a reference, and
// tests construct isolated instances.
//
// The mutex makes admission and deletion-on-empty mutually exclusive per
// registry, so a room observed empty cannot be deleted while a concurrent
// admit is repopulating it.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room // room_id -> room
	online atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Admit fetches-or-creates the room, adds the session, and bumps the online
// counter. The "connected" ack goes out after the maps are consistent; an
// ack send failure is logged but does not undo the admission.
func (g *Registry) Admit(roomID, sessionID string, s *Session) {
	g.mu.Lock()
	rm := g.rooms[roomID]
	if rm == nil {
		rm = NewRoom(roomID)
		g.rooms[roomID] = rm
	}
	rm.Add(sessionID, s)
	g.mu.Unlock()

	n := g.online.Add(1)
	logger.Infof("[Registry] session admitted room=%s session=%s online=%d", roomID, sessionID, n)

	if err := rm.Unicast(sessionID, connectedAck); err != nil {
		logger.Infof("[Registry] connected ack failed room=%s session=%s err=%v", roomID, sessionID, err)
	}
}

// Withdraw removes the session from its room, closes the connection, and
// decrements the counter. Absent room or session makes it a no-op, so a
// double withdraw never double-decrements. An emptied room is deleted in the
// same critical section.
func (g *Registry) Withdraw(roomID, sessionID string) {
	g.mu.Lock()
	removed := false
	if rm := g.rooms[roomID]; rm != nil {
		removed = rm.RemoveAndClose(sessionID)
		if rm.Size() == 0 {
			delete(g.rooms, roomID)
		}
	}
	g.mu.Unlock()

	if removed {
		n := g.online.Add(-1)
		logger.Infof("[Registry] session withdrawn room=%s session=%s online=%d", roomID, sessionID, n)
	}
}

// DeleteRoomIfEmpty drops the room iff it has no members at the time of the
// check. The check-and-delete runs under the registry lock; a size read
// outside it must never be used to delete.
func (g *Registry) DeleteRoomIfEmpty(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rm := g.rooms[roomID]; rm != nil && rm.Size() == 0 {
		delete(g.rooms, roomID)
	}
}

func (g *Registry) GetRoom(roomID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rm, ok := g.rooms[roomID]
	return rm, ok
}

func (g *Registry) GetSession(roomID, sessionID string) (*Session, bool) {
	rm, ok := g.GetRoom(roomID)
	if !ok {
		return nil, false
	}
	return rm.Get(sessionID)
}

// BroadcastAll fans text out to every session in every room. Rooms are
// snapshotted first so no registry lock is held during network writes;
// per-room failures are already contained inside Room.Broadcast.
func (g *Registry) BroadcastAll(text string) {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, rm := range g.rooms {
		rooms = append(rooms, rm)
	}
	g.mu.RUnlock()

	for _, rm := range rooms {
		rm.Broadcast(text)
	}
}

// Online returns the approximate live-session count. It is a monitoring
// signal: exact when calls are serialized, allowed to drift slightly under
// concurrent churn of the same room.
func (g *Registry) Online() int64 {
	return g.online.Load()
}

func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
