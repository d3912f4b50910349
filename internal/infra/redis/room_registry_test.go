package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRoomRegistrySetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewRoomRegistry(client, time.Minute)

	if !registry.Put("AB12", nil) {
		t.Fatalf("expected fresh code to be accepted")
	}
	if !mr.Exists("room:session:AB12") {
		t.Fatalf("expected redis key to be set")
	}
	if registry.Put("AB12", nil) {
		t.Fatalf("expected duplicate code to be refused")
	}

	registry.Delete("AB12")
	if mr.Exists("room:session:AB12") {
		t.Fatalf("expected redis key to be removed")
	}
}
