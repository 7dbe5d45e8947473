package session

import (
	"sync"
	"time"

	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// 事件種類
const (
	EventInitialized        = "session.initialized"
	EventSavedChanged       = "meal.saved_changed"
	EventCalendarAdded      = "calendar.entry_added"
	EventCalendarRemoved    = "calendar.entry_removed"
	EventPantryChanged      = "pantry.changed"
	EventPreferencesChanged = "preferences.changed"
	EventProfileChanged     = "profile.changed"
	// EventOpenCalendarModal 要求前端開啟「加入行事曆」視窗
	EventOpenCalendarModal = "ui.open_add_to_calendar"
)

// Event 工作階段事件
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Bus 單一工作階段的事件匯流排。發佈不會阻塞，訂閱者跟不上時丟棄事件。
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	buffer      int
	closed      bool
}

// NewBus 創建事件匯流排
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subscribers: make(map[int]chan Event),
		buffer:      buffer,
	}
}

// Subscribe 訂閱事件，回傳的 cancel 必須呼叫以釋放資源
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish 發佈事件
func (b *Bus) Publish(eventType string, payload interface{}) {
	event := Event{Type: eventType, Payload: payload, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			common.LogDebug("事件佇列已滿，丟棄事件",
				zap.Int("subscriber", id),
				zap.String("type", eventType),
			)
		}
	}
}

// Subscribers 目前的訂閱者數量
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close 關閉所有訂閱
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
