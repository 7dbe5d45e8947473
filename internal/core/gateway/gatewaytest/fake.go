// Package gatewaytest 提供記憶體內的後端實作，供閘道與工作階段測試使用。
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"meal-planner/internal/core/meal"
)

// FakeBackend 記憶體內的後端，可針對個別方法注入錯誤或 panic
type FakeBackend struct {
	mu sync.Mutex

	Meals       []meal.MealRow
	Saved       map[string]map[string]bool // user_id -> meal_id
	Calendar    []meal.CalendarEntryRow
	Pantry      []meal.PantryRow
	Preferences []meal.PreferencesRow
	Profiles    map[string]*string

	// NoReturn 讓新增操作成功但不回傳資料列
	NoReturn bool

	fail   map[string]error
	panics map[string]bool
	calls  map[string]int
	after  map[string]func()
	nextID int
}

// New 建立空的假後端
func New() *FakeBackend {
	return &FakeBackend{
		Saved:    make(map[string]map[string]bool),
		Profiles: make(map[string]*string),
		fail:     make(map[string]error),
		panics:   make(map[string]bool),
		calls:    make(map[string]int),
		after:    make(map[string]func()),
	}
}

// FailOn 讓指定方法回傳錯誤；err 為 nil 時解除
func (f *FakeBackend) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, method)
		return
	}
	f.fail[method] = err
}

// PanicOn 讓指定方法 panic
func (f *FakeBackend) PanicOn(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics[method] = true
}

// After 在指定方法寫入資料後、回傳前執行 fn（不持有鎖），用來模擬請求交錯
func (f *FakeBackend) After(method string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fn == nil {
		delete(f.after, method)
		return
	}
	f.after[method] = fn
}

// Calls 指定方法被呼叫的次數
func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls 所有資料方法的呼叫次數
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// SetSaved 直接設定收藏狀態（測試準備用，不計入呼叫次數）
func (f *FakeBackend) SetSaved(userID, mealID string, saved bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Saved[userID] == nil {
		f.Saved[userID] = make(map[string]bool)
	}
	if saved {
		f.Saved[userID][mealID] = true
	} else {
		delete(f.Saved[userID], mealID)
	}
}

// enter 記錄呼叫並套用注入的錯誤；呼叫端需持有鎖
func (f *FakeBackend) enter(method string) error {
	f.calls[method]++
	if f.panics[method] {
		panic(fmt.Sprintf("injected panic in %s", method))
	}
	return f.fail[method]
}

func (f *FakeBackend) runAfter(method string) {
	f.mu.Lock()
	fn := f.after[method]
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *FakeBackend) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *FakeBackend) Name() string { return "fake" }
func (f *FakeBackend) Ping(ctx context.Context) error { return f.call("Ping") }
func (f *FakeBackend) Close() error { return nil }

func (f *FakeBackend) call(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter(method)
}

func (f *FakeBackend) ListMeals(ctx context.Context) ([]meal.MealRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMeals"); err != nil {
		return nil, err
	}
	return append([]meal.MealRow{}, f.Meals...), nil
}

func (f *FakeBackend) GetMeal(ctx context.Context, id string) (*meal.MealRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetMeal"); err != nil {
		return nil, err
	}
	for _, row := range f.Meals {
		if row.ID == id {
			found := row
			return &found, nil
		}
	}
	return nil, nil
}

func (f *FakeBackend) FilterMeals(ctx context.Context, dietaryTags []string) ([]meal.MealRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FilterMeals"); err != nil {
		return nil, err
	}
	rows := []meal.MealRow{}
	for _, row := range f.Meals {
		if overlaps(row.DietaryTags, dietaryTags) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *FakeBackend) ListSavedMealIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListSavedMealIDs"); err != nil {
		return nil, err
	}
	ids := []string{}
	for _, row := range f.Meals {
		if f.Saved[userID][row.ID] {
			ids = append(ids, row.ID)
		}
	}
	for id := range f.Saved[userID] {
		if !containsMeal(f.Meals, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *FakeBackend) IsMealSaved(ctx context.Context, userID, mealID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("IsMealSaved"); err != nil {
		return false, err
	}
	return f.Saved[userID][mealID], nil
}

func (f *FakeBackend) InsertSavedMeal(ctx context.Context, userID, mealID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertSavedMeal"); err != nil {
		return err
	}
	if f.Saved[userID] == nil {
		f.Saved[userID] = make(map[string]bool)
	}
	f.Saved[userID][mealID] = true
	return nil
}

func (f *FakeBackend) DeleteSavedMeal(ctx context.Context, userID, mealID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteSavedMeal"); err != nil {
		return err
	}
	delete(f.Saved[userID], mealID)
	return nil
}

func (f *FakeBackend) ListCalendarEntries(ctx context.Context, userID string) ([]meal.CalendarEntryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListCalendarEntries"); err != nil {
		return nil, err
	}
	rows := []meal.CalendarEntryRow{}
	for _, row := range f.Calendar {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *FakeBackend) InsertCalendarEntry(ctx context.Context, row meal.CalendarEntryRow) (*meal.CalendarEntryRow, error) {
	noReturn, err := func() (bool, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.enter("InsertCalendarEntry"); err != nil {
			return false, err
		}
		row.ID = f.newID("cal")
		f.Calendar = append(f.Calendar, row)
		return f.NoReturn, nil
	}()
	if err != nil {
		return nil, err
	}

	f.runAfter("InsertCalendarEntry")
	if noReturn {
		return nil, nil
	}
	return &row, nil
}

func (f *FakeBackend) DeleteCalendarEntry(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteCalendarEntry"); err != nil {
		return err
	}
	for i, row := range f.Calendar {
		if row.ID == id {
			f.Calendar = append(f.Calendar[:i], f.Calendar[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeBackend) ListPantry(ctx context.Context, userID string) ([]meal.PantryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListPantry"); err != nil {
		return nil, err
	}
	rows := []meal.PantryRow{}
	for _, row := range f.Pantry {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *FakeBackend) InsertPantryItem(ctx context.Context, row meal.PantryRow) (*meal.PantryRow, error) {
	noReturn, err := func() (bool, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.enter("InsertPantryItem"); err != nil {
			return false, err
		}
		row.ID = f.newID("pantry")
		f.Pantry = append(f.Pantry, row)
		return f.NoReturn, nil
	}()
	if err != nil {
		return nil, err
	}

	f.runAfter("InsertPantryItem")
	if noReturn {
		return nil, nil
	}
	return &row, nil
}

func (f *FakeBackend) UpdatePantryQuantity(ctx context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdatePantryQuantity"); err != nil {
		return err
	}
	for i := range f.Pantry {
		if f.Pantry[i].ID == id {
			f.Pantry[i].Quantity = quantity
		}
	}
	return nil
}

func (f *FakeBackend) DeletePantryItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeletePantryItem"); err != nil {
		return err
	}
	for i, row := range f.Pantry {
		if row.ID == id {
			f.Pantry = append(f.Pantry[:i], f.Pantry[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeBackend) GetPreferences(ctx context.Context, userID string) (*meal.PreferencesRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetPreferences"); err != nil {
		return nil, err
	}
	for _, row := range f.Preferences {
		if row.UserID == userID {
			found := row
			return &found, nil
		}
	}
	return nil, nil
}

func (f *FakeBackend) InsertPreferences(ctx context.Context, row meal.PreferencesRow) (*meal.PreferencesRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertPreferences"); err != nil {
		return nil, err
	}
	row.ID = f.newID("prefs")
	f.Preferences = append(f.Preferences, row)
	return &row, nil
}

func (f *FakeBackend) UpdatePreferences(ctx context.Context, id string, row meal.PreferencesRow) (*meal.PreferencesRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdatePreferences"); err != nil {
		return nil, err
	}
	for i := range f.Preferences {
		if f.Preferences[i].ID == id {
			row.ID = id
			f.Preferences[i] = row
			return &row, nil
		}
	}
	return nil, nil
}

func (f *FakeBackend) GetProfile(ctx context.Context, userID string) (*meal.ProfileRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetProfile"); err != nil {
		return nil, err
	}
	name, ok := f.Profiles[userID]
	if !ok {
		return nil, nil
	}
	return &meal.ProfileRow{ID: userID, Name: name}, nil
}

func (f *FakeBackend) UpdateProfileName(ctx context.Context, userID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateProfileName"); err != nil {
		return err
	}
	f.Profiles[userID] = &name
	return nil
}

func overlaps(tags, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

func containsMeal(rows []meal.MealRow, id string) bool {
	for _, row := range rows {
		if row.ID == id {
			return true
		}
	}
	return false
}
