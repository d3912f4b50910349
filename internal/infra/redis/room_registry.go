package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/app"
)

// RoomRegistry is a Redis-aware implementation of app.RoomRegistry.
// Notes:
//   - Rooms themselves stay in a local in-memory map: they hold timers and
//     the in-process broadcast wiring, which cannot round-trip through Redis.
//   - Redis holds liveness markers per room code (and could be extended to
//     share snapshots or route cross-instance pub/sub).
//   - For true distribution you'd pair this with a pub/sub projector that
//     fans out room events across instances.
type RoomRegistry struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomRegistry(client *redis.Client, ttl time.Duration) *RoomRegistry {
	return &RoomRegistry{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (r *RoomRegistry) Put(code string, room *app.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.rooms[code]; taken {
		return false
	}
	r.rooms[code] = room
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(code), "1", r.ttl).Err()
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
	if _, ok := r.rooms[code]; !ok {
		return
	}
	delete(r.rooms, code)
	_ = r.client.Del(context.Background(), r.key(code)).Err()
}

func (r *RoomRegistry) key(code string) string {
	return "room:session:" + code
}
