package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionLimit 工作階段已滿且無法淘汰
var ErrSessionLimit = errors.New("session limit reached")

// Manager 工作階段管理器：過期清理與 LRU 淘汰
type Manager struct {
	config *config.Config
	gw     *gateway.Gateway
	index  Index
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	stats    managerStats

	stop     chan struct{}
	stopOnce sync.Once
}

// sessionEntry 工作階段條目
type sessionEntry struct {
	store       *Store
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// managerStats 管理器統計
type managerStats struct {
	created   int64
	resumed   int64
	hits      int64
	evictions int64
}

// NewManager 創建新的工作階段管理器
func NewManager(cfg *config.Config, gw *gateway.Gateway, index Index) *Manager {
	if index == nil {
		index = NewMemoryIndex()
	}

	m := &Manager{
		config:   cfg,
		gw:       gw,
		index:    index,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
		stop:     make(chan struct{}),
	}

	// 啟動清理過期工作階段的協程
	go m.startCleanup()

	common.LogInfo("工作階段管理員已初始化",
		zap.Int("最大容量", cfg.Session.MaxSessions),
		zap.Duration("存活時間", cfg.Session.TTL),
		zap.Duration("清理間隔", cfg.Session.CleanupInterval),
		zap.Bool("demo_only", cfg.DemoOnly()),
	)

	return m
}

// Acquire 取得工作階段。id 為空或未知時建立新的工作階段；
// 索引中仍存在的識別碼（例如服務重啟後）沿用原識別碼重新建立。
func (m *Manager) Acquire(ctx context.Context, id string) (*Store, bool, error) {
	now := m.now()

	if id != "" {
		m.mu.Lock()
		if entry, ok := m.sessions[id]; ok {
			if now.Sub(entry.lastAccess) <= m.config.Session.TTL {
				entry.lastAccess = now
				entry.accessCount++
				m.stats.hits++
				store := entry.store
				m.mu.Unlock()
				m.touchIndex(ctx, store, entry.createdAt, now)
				return store, false, nil
			}
			m.removeLocked(id)
		}
		m.mu.Unlock()
	}

	resume := false
	if id != "" && isSessionID(id) {
		exists, err := m.index.Exists(ctx, id)
		if err != nil {
			common.LogWarn("工作階段索引查詢失敗", zap.Error(err))
		}
		resume = exists
	}
	if !resume {
		id = uuid.New().String()
	}

	store, err := m.create(id, now)
	if err != nil {
		return nil, false, err
	}
	m.touchIndex(ctx, store, now, now)

	if resume {
		m.mu.Lock()
		m.stats.resumed++
		m.mu.Unlock()
		common.LogInfo("沿用既有工作階段識別碼", zap.String("session_id", id))
	}
	return store, true, nil
}

func (m *Manager) create(id string, now time.Time) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.sessions[id]; ok {
		return entry.store, nil
	}

	// 檢查容量
	if len(m.sessions) >= m.config.Session.MaxSessions {
		evicted := m.cleanupLocked(now)
		if evicted > 0 {
			common.LogInfo("工作階段清理執行", zap.Int("清理數量", evicted))
		}
		if len(m.sessions) >= m.config.Session.MaxSessions {
			m.evictLRULocked()
		}
		if len(m.sessions) >= m.config.Session.MaxSessions {
			common.LogWarn("工作階段已滿", zap.Int("目前容量", len(m.sessions)))
			return nil, ErrSessionLimit
		}
	}

	store := NewStore(id, m.gw, NewBus(m.config.Session.EventBuffer), m.config.DemoOnly())
	m.sessions[id] = &sessionEntry{
		store:      store,
		createdAt:  now,
		lastAccess: now,
	}
	m.stats.created++
	return store, nil
}

// Get 取得已存在的工作階段
func (m *Manager) Get(id string) (*Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return entry.store, true
}

// Remove 結束工作階段
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	m.removeLocked(id)
	m.mu.Unlock()

	if err := m.index.Delete(ctx, id); err != nil {
		common.LogWarn("工作階段索引刪除失敗", zap.Error(err))
	}
}

func (m *Manager) removeLocked(id string) {
	if entry, ok := m.sessions[id]; ok {
		entry.store.Bus().Close()
		delete(m.sessions, id)
	}
}

func (m *Manager) touchIndex(ctx context.Context, store *Store, createdAt, now time.Time) {
	rec := Record{
		ID:         store.ID(),
		UserID:     store.UserID(),
		CreatedAt:  createdAt,
		LastAccess: now,
	}
	if err := m.index.Touch(ctx, rec, m.config.Session.TTL); err != nil {
		common.LogWarn("工作階段索引更新失敗",
			zap.String("session_id", rec.ID),
			zap.Error(err),
		)
	}
}

// startCleanup 啟動清理過期工作階段的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Session.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stop:
			return
		}
	}
}

// Cleanup 清理閒置超過存活時間的工作階段
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked(m.now())
}

func (m *Manager) cleanupLocked(now time.Time) int {
	count := 0
	for id, entry := range m.sessions {
		if now.Sub(entry.lastAccess) > m.config.Session.TTL {
			m.removeLocked(id)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogInfo("Cleaned up expired sessions",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.sessions)),
		)
	}
	return count
}

// evictLRULocked 淘汰最少使用的工作階段
func (m *Manager) evictLRULocked() {
	var oldestID string
	var oldestAccess time.Time
	var lowestAccessCount int

	for id, entry := range m.sessions {
		if oldestID == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestID = id
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestID != "" {
		m.removeLocked(oldestID)
		m.stats.evictions++
		common.LogInfo("工作階段已淘汰(LRU)", zap.String("session_id", oldestID))
	}
}

// Ping 檢查索引後端
func (m *Manager) Ping(ctx context.Context) error {
	return m.index.Ping(ctx)
}

// Len 目前的工作階段數量
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetStats 獲取統計信息
func (m *Manager) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"size":      len(m.sessions),
		"max_size":  m.config.Session.MaxSessions,
		"created":   m.stats.created,
		"resumed":   m.stats.resumed,
		"hits":      m.stats.hits,
		"evictions": m.stats.evictions,
		"demo_only": m.config.DemoOnly(),
	}
}

// Close 關閉管理器
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	for id := range m.sessions {
		m.removeLocked(id)
	}
	common.LogInfo("工作階段管理員已關閉",
		zap.Int64("建立次數", m.stats.created),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	m.mu.Unlock()

	return m.index.Close()
}

func isSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
