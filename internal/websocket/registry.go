package chatws

import (
	"sync"

	"github.com/Nagell/chat-nest/internal/models"
)

// Registry tracks which live connections belong to which chat session room.
// It is the only shared mutable state in the realtime core; all methods are
// safe for concurrent use. A connection belongs to at most one room, and a
// room with zero members is pruned immediately.
type Registry struct {
	mu      sync.Mutex
	rooms   map[int64]map[string]struct{}
	members map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[int64]map[string]struct{}),
		members: make(map[string]int64),
	}
}

// Join adds the connection to the room for sessionID, removing it from any
// previous room first. Re-joining the current room does not double count.
// Returns the room's member count after the join.
func (r *Registry) Join(connID string, sessionID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, joined := r.members[connID]; joined {
		if current == sessionID {
			return len(r.rooms[sessionID])
		}
		r.removeLocked(connID, current)
	}

	room, ok := r.rooms[sessionID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[sessionID] = room
	}
	room[connID] = struct{}{}
	r.members[connID] = sessionID

	return len(room)
}

// Leave removes the connection from its current room, if any, and returns
// the room it left together with the remaining member count. ok is false
// when the connection had no room.
func (r *Registry) Leave(connID string) (sessionID int64, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, ok = r.members[connID]
	if !ok {
		return 0, 0, false
	}

	r.removeLocked(connID, sessionID)
	return sessionID, len(r.rooms[sessionID]), true
}

func (r *Registry) RoomOf(connID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, ok := r.members[connID]
	return sessionID, ok
}

func (r *Registry) ActiveCount(sessionID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms[sessionID])
}

// Members returns a snapshot of the connection ids currently in the room.
func (r *Registry) Members(sessionID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[sessionID]
	ids := make([]string, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Stats() models.ConnectionStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	withMembers := 0
	for _, room := range r.rooms {
		if len(room) > 0 {
			withMembers++
		}
	}

	return models.ConnectionStats{
		TotalConnections:  len(r.members),
		ActiveSessions:    len(r.rooms),
		SessionsWithUsers: withMembers,
	}
}

// removeLocked drops the connection from the given room and prunes the room
// entry when it becomes empty. Callers must hold r.mu.
func (r *Registry) removeLocked(connID string, sessionID int64) {
	if room, ok := r.rooms[sessionID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, sessionID)
		}
	}
	delete(r.members, connID)
}
