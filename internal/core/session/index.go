package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"meal-planner/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// Record 工作階段索引資料，用於重啟後辨識既有的工作階段識別碼
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// Index 工作階段索引
type Index interface {
	Touch(ctx context.Context, rec Record, ttl time.Duration) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// NewIndex 依設定建立索引
func NewIndex(cfg *config.Config) (Index, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		return NewRedisIndex(&cfg.Redis)
	case config.SessionBackendMemory, "":
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// MemoryIndex 單機使用的記憶體索引
type MemoryIndex struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

// NewMemoryIndex 創建記憶體索引
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (m *MemoryIndex) Touch(ctx context.Context, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = memoryRecord{rec: rec, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryIndex) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.records[id]
	if !ok {
		return false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.records, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *MemoryIndex) Ping(ctx context.Context) error { return nil }

func (m *MemoryIndex) Close() error { return nil }

// RedisIndex 多個實例共用的 Redis 索引
type RedisIndex struct {
	client *redis.Client
	prefix string
}

// NewRedisIndex 創建 Redis 索引
func NewRedisIndex(cfg *config.RedisConfig) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIndex{
		client: client,
		prefix: cfg.KeyPrefix,
	}, nil
}

func (r *RedisIndex) key(id string) string {
	return r.prefix + id
}

func (r *RedisIndex) Touch(ctx context.Context, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := r.client.Set(ctx, r.key(rec.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session record: %w", err)
	}
	return nil
}

func (r *RedisIndex) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session record: %w", err)
	}
	return n > 0, nil
}

func (r *RedisIndex) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisIndex) Close() error {
	return r.client.Close()
}
