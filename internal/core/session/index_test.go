package session

import (
	"context"
	"os"
	"testing"
	"time"

	"meal-planner/internal/infrastructure/config"
)

func TestNewIndex(t *testing.T) {
	for _, backend := range []string{config.SessionBackendMemory, ""} {
		cfg := testConfig()
		cfg.Session.Backend = backend
		idx, err := NewIndex(cfg)
		if err != nil {
			t.Fatalf("Backend %q: unexpected error %v", backend, err)
		}
		if _, ok := idx.(*MemoryIndex); !ok {
			t.Errorf("Backend %q: expected memory index, got %T", backend, idx)
		}
	}

	cfg := testConfig()
	cfg.Session.Backend = "etcd"
	if _, err := NewIndex(cfg); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestRedisIndexUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Backend = config.SessionBackendRedis
	cfg.Redis = config.RedisConfig{Addr: "127.0.0.1:1", KeyPrefix: "test:"}

	if idx, err := NewIndex(cfg); err == nil {
		idx.Close()
		t.Fatal("Expected connection error for unreachable Redis")
	}
}

// 需要可連線的 Redis：REDIS_ADDR=localhost:6379 go test ./internal/core/session/
func TestRedisIndexRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	idx, err := NewRedisIndex(&config.RedisConfig{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		KeyPrefix: "meal-planner:test:" + time.Now().Format("150405.000") + ":",
	})
	if err != nil {
		t.Fatalf("NewRedisIndex failed: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := idx.Touch(ctx, Record{ID: "s1", UserID: "u1", CreatedAt: now, LastAccess: now}, time.Minute); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if ok, err := idx.Exists(ctx, "s1"); err != nil || !ok {
		t.Fatalf("Expected record to exist, got ok=%v err=%v", ok, err)
	}
	if ok, _ := idx.Exists(ctx, "s2"); ok {
		t.Error("Expected unknown id to be absent")
	}

	if err := idx.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := idx.Exists(ctx, "s1"); ok {
		t.Error("Expected record to be deleted")
	}
	if err := idx.Delete(ctx, "s1"); err != nil {
		t.Errorf("Deleting a missing record should succeed, got %v", err)
	}
}
