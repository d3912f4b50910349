package memory

import (
	"sync"

	"quizroom-service/internal/app"
)

// RoomRegistry is the in-memory implementation of app.RoomRegistry.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*app.Room),
	}
}

// Put stores the room under its code, refusing codes already in use so the
// caller can regenerate.
func (r *RoomRegistry) Put(code string, room *app.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.rooms[code]; taken {
		return false
	}
	r.rooms[code] = room
	return true
}

func (r *RoomRegistry) Get(code string) (*app.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *RoomRegistry) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}
