package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 單一工作階段的記憶體狀態。
// mu 只在讀寫記憶體時持有，不會跨越閘道呼叫；initMu 讓初始化依序執行。
type Store struct {
	id       string
	gw       *gateway.Gateway
	bus      *Bus
	demoOnly bool

	initMu sync.Mutex

	mu           sync.RWMutex
	userID       string
	initialized  bool
	loading      bool
	generation   int
	meals        []meal.Meal
	saved        map[string]bool
	calendar     []meal.CalendarEntry
	pantry       []meal.PantryItem
	pantryLoaded bool
	preferences  meal.Preferences
	prefsLoaded  bool
	profile      *meal.Profile

	// pendingAdds 尚在等待後端確認的行事曆暫時項目；值為 true 表示確認前已被使用者刪除
	pendingAdds map[string]bool
}

// Snapshot 工作階段狀態快照
type Snapshot struct {
	SessionID   string               `json:"sessionId"`
	UserID      string               `json:"userId,omitempty"`
	Demo        bool                 `json:"demo"`
	Loading     bool                 `json:"loading"`
	Meals       []meal.Meal          `json:"meals"`
	SavedMeals  []string             `json:"savedMeals"`
	Calendar    []meal.CalendarEntry `json:"calendarEntries"`
	Pantry      []meal.PantryItem    `json:"pantry,omitempty"`
	Preferences *meal.Preferences    `json:"preferences,omitempty"`
}

// NewStore 創建工作階段狀態；demoOnly 表示後端未設定，所有操作都不呼叫閘道
func NewStore(id string, gw *gateway.Gateway, bus *Bus, demoOnly bool) *Store {
	if bus == nil {
		bus = NewBus(0)
	}
	return &Store{
		id:       id,
		gw:       gw,
		bus:      bus,
		demoOnly:    demoOnly || gw == nil,
		saved:       make(map[string]bool),
		pendingAdds: make(map[string]bool),
	}
}

// ID 工作階段識別碼
func (s *Store) ID() string { return s.id }

// Bus 工作階段事件匯流排
func (s *Store) Bus() *Bus { return s.bus }

// UserID 目前的使用者
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// IsDemo 未登入或後端未設定時為示範模式
func (s *Store) IsDemo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isDemoLocked()
}

func (s *Store) isDemoLocked() bool {
	return s.demoOnly || s.userID == ""
}

// EnsureIdentity 第一次使用或使用者變更時重新初始化
func (s *Store) EnsureIdentity(ctx context.Context, userID string) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.initialized && s.userID == userID {
		s.mu.Unlock()
		return
	}
	if s.userID != userID {
		common.LogInfo("工作階段使用者變更，重新初始化",
			zap.String("session_id", s.id),
			zap.Bool("authenticated", userID != ""),
		)
	}
	s.userID = userID
	s.resetLocked()
	s.mu.Unlock()

	s.initLocked(ctx)
}

// Refresh 重新執行初始化流程
func (s *Store) Refresh(ctx context.Context) {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	s.initLocked(ctx)
}

func (s *Store) resetLocked() {
	s.meals = nil
	s.saved = make(map[string]bool)
	s.calendar = nil
	s.pantry = nil
	s.pantryLoaded = false
	s.preferences = meal.Preferences{}
	s.prefsLoaded = false
	s.profile = nil
	s.initialized = false
}

// initState 初始化流程的中間結果，全部成功才提交
type initState struct {
	meals    []meal.Meal
	saved    map[string]bool
	calendar []meal.CalendarEntry
}

// initLocked 初始化流程；呼叫端需持有 initMu
func (s *Store) initLocked(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.generation++
	generation := s.generation
	userID := s.userID
	demo := s.isDemoLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	state, err := s.load(ctx, userID, demo)
	if err != nil {
		common.LogWarn("初始化失敗，改用示範資料",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		state = fallbackState()
	}

	s.mu.Lock()
	if generation == s.generation {
		s.meals = state.meals
		s.saved = state.saved
		s.calendar = state.calendar
		s.applySavedFlagsLocked()
		s.initialized = true
	}
	s.mu.Unlock()

	s.bus.Publish(EventInitialized, map[string]interface{}{
		"demo":  demo,
		"meals": len(state.meals),
	})
}

// load 依序讀取餐點、收藏與行事曆；任何失敗或 panic 都回傳錯誤，部分結果一律捨棄
func (s *Store) load(ctx context.Context, userID string, demo bool) (state initState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialization: %v", r)
		}
	}()

	state = initState{saved: make(map[string]bool), calendar: []meal.CalendarEntry{}}

	if s.demoOnly {
		state.meals = meal.SeedMeals()
	} else {
		res := s.gw.ListMeals(ctx)
		switch {
		case res.IsFailed():
			return initState{}, fmt.Errorf("fetch meals: %w", res.Err)
		case res.IsEmpty():
			state.meals = meal.SeedMeals()
		default:
			state.meals = res.Value
		}
	}

	if demo {
		state.saved[meal.DemoSavedMealID] = true
		return state, nil
	}

	savedRes := s.gw.ListSavedMealIDs(ctx, userID)
	if savedRes.IsFailed() {
		return initState{}, fmt.Errorf("fetch saved meals: %w", savedRes.Err)
	}
	for _, id := range savedRes.Value {
		state.saved[id] = true
	}

	calRes := s.gw.ListCalendarEntries(ctx, userID)
	if calRes.IsFailed() {
		return initState{}, fmt.Errorf("fetch calendar entries: %w", calRes.Err)
	}
	if calRes.IsOK() {
		state.calendar = calRes.Value
	}

	return state, nil
}

func fallbackState() initState {
	return initState{
		meals:    meal.SeedMeals(),
		saved:    map[string]bool{meal.DemoSavedMealID: true},
		calendar: []meal.CalendarEntry{},
	}
}

func (s *Store) applySavedFlagsLocked() {
	for i := range s.meals {
		s.meals[i].IsSaved = s.saved[s.meals[i].ID]
	}
}

// Snapshot 取得目前狀態的複本
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:  s.id,
		UserID:     s.userID,
		Demo:       s.isDemoLocked(),
		Loading:    s.loading,
		Meals:      cloneMeals(s.meals),
		SavedMeals: s.savedIDsLocked(),
		Calendar:   append([]meal.CalendarEntry{}, s.calendar...),
	}
	if s.pantryLoaded {
		snap.Pantry = append([]meal.PantryItem{}, s.pantry...)
	}
	if s.prefsLoaded {
		prefs := s.preferences
		snap.Preferences = &prefs
	}
	return snap
}

// Loading 初始化是否進行中
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) savedIDsLocked() []string {
	ids := make([]string, 0, len(s.saved))
	for id, ok := range s.saved {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func cloneMeals(meals []meal.Meal) []meal.Meal {
	out := make([]meal.Meal, 0, len(meals))
	for _, m := range meals {
		out = append(out, m.Clone())
	}
	return out
}

// ---------------- 餐點 ----------------

// Meals 目前的餐點清單
func (s *Store) Meals() []meal.Meal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMeals(s.meals)
}

// SavedMeals 已收藏的餐點
func (s *Store) SavedMeals() []meal.Meal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []meal.Meal{}
	for _, m := range s.meals {
		if s.saved[m.ID] {
			out = append(out, m.Clone())
		}
	}
	return out
}

// SavedMealIDs 已收藏的餐點識別碼
func (s *Store) SavedMealIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savedIDsLocked()
}

// Meal 先查記憶體，找不到時（已登入）再向後端查詢
func (s *Store) Meal(ctx context.Context, id string) (meal.Meal, bool) {
	s.mu.RLock()
	for _, m := range s.meals {
		if m.ID == id {
			found := m.Clone()
			s.mu.RUnlock()
			return found, true
		}
	}
	demo := s.isDemoLocked()
	s.mu.RUnlock()

	if demo {
		return meal.Meal{}, false
	}
	res := s.gw.GetMeal(ctx, id)
	if !res.IsOK() {
		return meal.Meal{}, false
	}
	found := res.Value
	found.IsSaved = s.isSaved(id)
	return found, true
}

func (s *Store) isSaved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved[id]
}

// ToggleSaved 切換收藏：先更新記憶體，再採用閘道回傳的實際狀態，失敗時還原
func (s *Store) ToggleSaved(ctx context.Context, mealID string) bool {
	s.mu.Lock()
	previous := s.saved[mealID]
	desired := !previous
	s.setSavedLocked(mealID, desired)
	userID := s.userID
	demo := s.isDemoLocked()
	s.mu.Unlock()

	if demo {
		s.bus.Publish(EventSavedChanged, savedPayload(mealID, desired))
		return desired
	}

	res := s.gw.SetSaved(ctx, mealID, userID, desired)
	actual := res.Value
	if res.IsFailed() {
		actual = previous
		common.LogWarn("收藏狀態更新失敗，還原",
			zap.String("session_id", s.id),
			zap.String("meal_id", mealID),
			zap.Error(res.Err),
		)
	}

	s.mu.Lock()
	s.setSavedLocked(mealID, actual)
	s.mu.Unlock()

	s.bus.Publish(EventSavedChanged, savedPayload(mealID, actual))
	return actual
}

func (s *Store) setSavedLocked(mealID string, saved bool) {
	if saved {
		s.saved[mealID] = true
	} else {
		delete(s.saved, mealID)
	}
	for i := range s.meals {
		if s.meals[i].ID == mealID {
			s.meals[i].IsSaved = saved
		}
	}
}

func savedPayload(mealID string, saved bool) map[string]interface{} {
	return map[string]interface{}{"mealId": mealID, "isSaved": saved}
}

// FilterMeals 已登入時由後端篩選；示範模式在記憶體中篩選。結果不取代目前的餐點清單。
func (s *Store) FilterMeals(ctx context.Context, filters meal.Filters) []meal.Meal {
	s.mu.RLock()
	demo := s.isDemoLocked()
	local := cloneMeals(s.meals)
	s.mu.RUnlock()

	if demo {
		return meal.FilterMeals(local, filters)
	}

	res := s.gw.FilterMeals(ctx, filters)
	var out []meal.Meal
	switch {
	case res.IsOK():
		out = res.Value
	case res.IsEmpty():
		out = []meal.Meal{}
	default:
		out = meal.FilterMeals(local, filters)
	}

	s.mu.RLock()
	for i := range out {
		out[i].IsSaved = s.saved[out[i].ID]
	}
	s.mu.RUnlock()
	return out
}

// ---------------- 行事曆 ----------------

// CalendarEntries 目前的行事曆
func (s *Store) CalendarEntries() []meal.CalendarEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]meal.CalendarEntry{}, s.calendar...)
}

// AddCalendarEntry 先以暫時識別碼寫入記憶體，再以後端確認的識別碼取代；失敗時保留暫時項目
func (s *Store) AddCalendarEntry(ctx context.Context, mealID string, date time.Time, mealType string) meal.CalendarEntry {
	title := s.mealTitle(ctx, mealID)

	s.mu.Lock()
	temp := meal.CalendarEntry{
		ID:       common.NewTempID(),
		MealID:   mealID,
		Date:     date,
		MealType: mealType,
		Title:    title,
		UserID:   s.userID,
	}
	s.calendar = append(s.calendar, temp)
	userID := s.userID
	demo := s.isDemoLocked()
	if !demo {
		s.pendingAdds[temp.ID] = false
	}
	s.mu.Unlock()

	if demo {
		s.bus.Publish(EventCalendarAdded, temp)
		return temp
	}

	res := s.gw.AddCalendarEntry(ctx, mealID, date, mealType, title, userID)
	if res.IsFailed() {
		s.mu.Lock()
		delete(s.pendingAdds, temp.ID)
		s.mu.Unlock()
		common.LogWarn("行事曆項目未寫入後端，保留暫時項目",
			zap.String("session_id", s.id),
			zap.String("entry_id", temp.ID),
			zap.Error(res.Err),
		)
		s.bus.Publish(EventCalendarAdded, temp)
		return temp
	}

	confirmed := res.Value
	if confirmed.Title == "" {
		confirmed.Title = title
	}

	s.mu.Lock()
	removed := s.pendingAdds[temp.ID]
	delete(s.pendingAdds, temp.ID)
	outcome := s.reconcileCalendarLocked(temp.ID, confirmed, removed)
	s.mu.Unlock()

	switch outcome {
	case reconcileRemoved:
		// 使用者在確認前刪除了暫時項目，後端的資料列也一併刪除
		s.gw.RemoveCalendarEntry(ctx, confirmed.ID)
		return temp
	case reconcileStale:
		common.LogDebug("行事曆已重新載入，略過暫時項目的取代",
			zap.String("session_id", s.id),
			zap.String("entry_id", confirmed.ID),
		)
		return confirmed
	}

	s.bus.Publish(EventCalendarAdded, confirmed)
	return confirmed
}

type reconcileOutcome int

const (
	reconcileReplaced reconcileOutcome = iota
	reconcileRemoved
	reconcileStale
)

// reconcileCalendarLocked 以確認後的項目取代暫時項目；呼叫端需持有 mu。
// 只有使用者明確刪除暫時項目時才回報 reconcileRemoved，重新載入造成的消失一律視為 stale。
func (s *Store) reconcileCalendarLocked(tempID string, confirmed meal.CalendarEntry, removed bool) reconcileOutcome {
	if removed {
		return reconcileRemoved
	}
	tempAt, present := -1, false
	for i := range s.calendar {
		switch s.calendar[i].ID {
		case tempID:
			tempAt = i
		case confirmed.ID:
			present = true
		}
	}
	if tempAt < 0 {
		return reconcileStale
	}
	if present {
		s.calendar = append(s.calendar[:tempAt], s.calendar[tempAt+1:]...)
		return reconcileReplaced
	}
	s.calendar[tempAt] = confirmed
	return reconcileReplaced
}

// mealTitle 行事曆項目的標題；記憶體中沒有該餐點時向後端查詢
func (s *Store) mealTitle(ctx context.Context, mealID string) string {
	m, ok := s.Meal(ctx, mealID)
	if !ok {
		return ""
	}
	return m.Title
}

// RemoveCalendarEntry 從記憶體移除；不論後端結果如何都維持移除
func (s *Store) RemoveCalendarEntry(ctx context.Context, id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.calendar {
		if s.calendar[i].ID == id {
			s.calendar = append(s.calendar[:i], s.calendar[i+1:]...)
			found = true
			break
		}
	}
	if _, pending := s.pendingAdds[id]; found && pending {
		s.pendingAdds[id] = true
	}
	demo := s.isDemoLocked()
	s.mu.Unlock()

	if !found {
		return false
	}

	if !demo {
		if res := s.gw.RemoveCalendarEntry(ctx, id); res.IsFailed() {
			common.LogWarn("行事曆項目刪除失敗，僅從畫面移除",
				zap.String("session_id", s.id),
				zap.String("entry_id", id),
				zap.Error(res.Err),
			)
		}
	}

	s.bus.Publish(EventCalendarRemoved, map[string]string{"id": id})
	return true
}

// ---------------- 庫存 ----------------

// LoadPantry 讀取庫存。示範模式使用示範資料；後端失敗時使用備援資料。
func (s *Store) LoadPantry(ctx context.Context) []meal.PantryItem {
	s.mu.Lock()
	demo := s.isDemoLocked()
	if demo {
		if !s.pantryLoaded {
			s.pantry = meal.DemoPantry()
			s.pantryLoaded = true
		}
		items := append([]meal.PantryItem{}, s.pantry...)
		s.mu.Unlock()
		return items
	}
	userID := s.userID
	s.mu.Unlock()

	res := s.gw.ListPantry(ctx, userID)
	var items []meal.PantryItem
	switch {
	case res.IsOK():
		items = res.Value
	case res.IsEmpty():
		items = []meal.PantryItem{}
	default:
		items = meal.FallbackPantry()
	}

	s.mu.Lock()
	// 保留尚未被後端確認的暫時項目
	for _, item := range s.pantry {
		if common.IsTempID(item.ID) {
			items = append(items, item)
		}
	}
	s.pantry = items
	s.pantryLoaded = true
	out := append([]meal.PantryItem{}, s.pantry...)
	s.mu.Unlock()
	return out
}

// AddPantryItem 新增庫存食材，數量先夾在 0 以上
func (s *Store) AddPantryItem(ctx context.Context, item meal.PantryItem) meal.PantryItem {
	item.Name = strings.TrimSpace(item.Name)
	item.Quantity = clampQuantity(item.Quantity)
	item.ID = common.NewTempID()

	s.mu.Lock()
	s.ensurePantryLocked()
	s.pantry = append(s.pantry, item)
	userID := s.userID
	demo := s.isDemoLocked()
	s.mu.Unlock()

	if demo {
		s.bus.Publish(EventPantryChanged, item)
		return item
	}

	res := s.gw.AddPantryItem(ctx, item, userID)
	if res.IsFailed() {
		s.bus.Publish(EventPantryChanged, item)
		return item
	}

	confirmed := res.Value
	s.mu.Lock()
	s.reconcilePantryLocked(item.ID, confirmed)
	s.mu.Unlock()

	s.bus.Publish(EventPantryChanged, confirmed)
	return confirmed
}

// reconcilePantryLocked 以確認後的項目取代暫時項目；重新載入已帶回同一筆資料時直接丟棄暫時項目
func (s *Store) reconcilePantryLocked(tempID string, confirmed meal.PantryItem) {
	tempAt, present := -1, false
	for i := range s.pantry {
		switch s.pantry[i].ID {
		case tempID:
			tempAt = i
		case confirmed.ID:
			present = true
		}
	}
	if tempAt < 0 {
		return
	}
	if present {
		s.pantry = append(s.pantry[:tempAt], s.pantry[tempAt+1:]...)
		return
	}
	s.pantry[tempAt] = confirmed
}

// UpdatePantryQuantity 更新庫存數量，負數夾為 0
func (s *Store) UpdatePantryQuantity(ctx context.Context, id string, quantity int) (meal.PantryItem, bool) {
	quantity = clampQuantity(quantity)

	s.mu.Lock()
	var updated meal.PantryItem
	found := false
	for i := range s.pantry {
		if s.pantry[i].ID == id {
			s.pantry[i].Quantity = quantity
			updated = s.pantry[i]
			found = true
			break
		}
	}
	demo := s.isDemoLocked()
	s.mu.Unlock()

	if !found {
		return meal.PantryItem{}, false
	}

	if !demo {
		if res := s.gw.UpdatePantryQuantity(ctx, id, quantity); res.IsFailed() {
			common.LogWarn("庫存數量更新失敗",
				zap.String("session_id", s.id),
				zap.String("item_id", id),
				zap.Error(res.Err),
			)
		}
	}

	s.bus.Publish(EventPantryChanged, updated)
	return updated, true
}

// RemovePantryItem 刪除庫存食材；不論後端結果如何都維持移除
func (s *Store) RemovePantryItem(ctx context.Context, id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.pantry {
		if s.pantry[i].ID == id {
			s.pantry = append(s.pantry[:i], s.pantry[i+1:]...)
			found = true
			break
		}
	}
	demo := s.isDemoLocked()
	s.mu.Unlock()

	if !found {
		return false
	}

	if !demo {
		if res := s.gw.RemovePantryItem(ctx, id); res.IsFailed() {
			common.LogWarn("庫存食材刪除失敗，僅從畫面移除",
				zap.String("session_id", s.id),
				zap.String("item_id", id),
				zap.Error(res.Err),
			)
		}
	}

	s.bus.Publish(EventPantryChanged, map[string]string{"removed": id})
	return true
}

// ensurePantryLocked 尚未讀取時：示範模式先放入示範資料；
// 已登入時保持未載入，下次 LoadPantry 仍會向後端讀取
func (s *Store) ensurePantryLocked() {
	if s.pantryLoaded {
		return
	}
	if s.isDemoLocked() {
		s.pantry = meal.DemoPantry()
		s.pantryLoaded = true
		return
	}
	if s.pantry == nil {
		s.pantry = []meal.PantryItem{}
	}
}

func clampQuantity(quantity int) int {
	if quantity < 0 {
		return 0
	}
	return quantity
}

// ---------------- 偏好與基本資料 ----------------

// LoadPreferences 讀取偏好設定；沒有資料列時回傳空白預設值
func (s *Store) LoadPreferences(ctx context.Context) meal.Preferences {
	s.mu.Lock()
	if s.isDemoLocked() || s.prefsLoaded {
		if !s.prefsLoaded {
			s.preferences = defaultPreferences(s.userID)
			s.prefsLoaded = true
		}
		prefs := s.preferences
		s.mu.Unlock()
		return prefs
	}
	userID := s.userID
	s.mu.Unlock()

	res := s.gw.GetPreferences(ctx, userID)
	prefs := defaultPreferences(userID)
	if res.IsOK() {
		prefs = res.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.IsFailed() {
		// 後端失敗不標記為已載入，下次再試
		return prefs
	}
	s.preferences = prefs
	s.prefsLoaded = true
	return prefs
}

// SavePreferences 先寫入記憶體，再由閘道決定新增或更新
func (s *Store) SavePreferences(ctx context.Context, prefs meal.Preferences) meal.Preferences {
	s.mu.Lock()
	prefs.UserID = s.userID
	if prefs.ID == "" && s.prefsLoaded {
		prefs.ID = s.preferences.ID
	}
	prefs.DietaryRestrictions = nonNil(prefs.DietaryRestrictions)
	prefs.MealPreferences = nonNil(prefs.MealPreferences)
	prefs.CuisinePreferences = nonNil(prefs.CuisinePreferences)
	prefs.UpdatedAt = time.Now().UTC()
	s.preferences = prefs
	s.prefsLoaded = true
	demo := s.isDemoLocked()
	s.mu.Unlock()

	if demo {
		s.bus.Publish(EventPreferencesChanged, prefs)
		return prefs
	}

	res := s.gw.SavePreferences(ctx, prefs)
	if res.IsFailed() {
		common.LogWarn("偏好設定儲存失敗",
			zap.String("session_id", s.id),
			zap.Error(res.Err),
		)
		s.bus.Publish(EventPreferencesChanged, prefs)
		return prefs
	}

	saved := res.Value
	s.mu.Lock()
	s.preferences = saved
	s.mu.Unlock()

	s.bus.Publish(EventPreferencesChanged, saved)
	return saved
}

func defaultPreferences(userID string) meal.Preferences {
	return meal.Preferences{
		UserID:              userID,
		DietaryRestrictions: []string{},
		MealPreferences:     []string{},
		CuisinePreferences:  []string{},
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Profile 讀取基本資料；示範模式只存在記憶體
func (s *Store) Profile(ctx context.Context) meal.Profile {
	s.mu.RLock()
	demo := s.isDemoLocked()
	userID := s.userID
	cached := s.profile
	s.mu.RUnlock()

	if demo {
		if cached != nil {
			return *cached
		}
		return meal.Profile{ID: userID}
	}

	res := s.gw.GetProfile(ctx, userID)
	if !res.IsOK() {
		if cached != nil {
			return *cached
		}
		return meal.Profile{ID: userID}
	}

	profile := res.Value
	s.mu.Lock()
	s.profile = &profile
	s.mu.Unlock()
	return profile
}

// UpdateProfileName 更新顯示名稱
func (s *Store) UpdateProfileName(ctx context.Context, name string) meal.Profile {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	profile := meal.Profile{ID: s.userID, Name: name}
	s.profile = &profile
	demo := s.isDemoLocked()
	userID := s.userID
	s.mu.Unlock()

	if !demo {
		if res := s.gw.UpdateProfileName(ctx, userID, name); res.IsFailed() {
			common.LogWarn("顯示名稱更新失敗",
				zap.String("session_id", s.id),
				zap.Error(res.Err),
			)
		}
	}

	s.bus.Publish(EventProfileChanged, profile)
	return profile
}

// ---------------- 介面事件 ----------------

// OpenCalendarModal 要求前端為指定餐點開啟「加入行事曆」視窗
func (s *Store) OpenCalendarModal(mealID string) {
	s.bus.Publish(EventOpenCalendarModal, map[string]string{"mealId": mealID})
}
