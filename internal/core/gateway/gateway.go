package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Gateway 遠端資料閘道。所有錯誤都在這裡攔截並記錄，
// 呼叫端只會拿到標記結果，不會收到 error。
type Gateway struct {
	backend Backend
	now     func() time.Time
}

// New 創建新的資料閘道
func New(backend Backend) *Gateway {
	return &Gateway{
		backend: backend,
		now:     time.Now,
	}
}

// BackendName 目前使用的後端名稱
func (g *Gateway) BackendName() string {
	return g.backend.Name()
}

// Ping 檢查後端是否可用
func (g *Gateway) Ping(ctx context.Context) Result[bool] {
	if err := g.call(ctx, "ping", func(ctx context.Context) error {
		return g.backend.Ping(ctx)
	}); err != nil {
		return Failed(err, false)
	}
	return OK(true)
}

// Close 關閉後端連線
func (g *Gateway) Close() error {
	return g.backend.Close()
}

// ListMeals 讀取所有餐點；零筆為 Empty
func (g *Gateway) ListMeals(ctx context.Context) Result[[]meal.Meal] {
	var rows []meal.MealRow
	err := g.call(ctx, "list_meals", func(ctx context.Context) (err error) {
		rows, err = g.backend.ListMeals(ctx)
		return err
	})
	if err != nil {
		return Failed[[]meal.Meal](err, []meal.Meal{})
	}
	if len(rows) == 0 {
		return Empty[[]meal.Meal]()
	}

	common.LogInfo("成功讀取餐點", zap.Int("count", len(rows)))
	return OK(meal.MealsFromRows(rows))
}

// GetMeal 讀取單一餐點；找不到為 Empty 而非失敗
func (g *Gateway) GetMeal(ctx context.Context, id string) Result[meal.Meal] {
	var row *meal.MealRow
	err := g.call(ctx, "get_meal", func(ctx context.Context) (err error) {
		row, err = g.backend.GetMeal(ctx, id)
		return err
	})
	if err != nil {
		return Failed(err, meal.Meal{})
	}
	if row == nil {
		return Empty[meal.Meal]()
	}
	return OK(meal.MealFromRow(*row))
}

// FilterMeals 依飲食標籤（集合交集）在後端篩選；條件為空時回傳全部
func (g *Gateway) FilterMeals(ctx context.Context, filters meal.Filters) Result[[]meal.Meal] {
	if len(filters.DietaryRestrictions) == 0 {
		return g.ListMeals(ctx)
	}

	var rows []meal.MealRow
	err := g.call(ctx, "filter_meals", func(ctx context.Context) (err error) {
		rows, err = g.backend.FilterMeals(ctx, filters.DietaryRestrictions)
		return err
	})
	if err != nil {
		return Failed[[]meal.Meal](err, []meal.Meal{})
	}
	if len(rows) == 0 {
		return Empty[[]meal.Meal]()
	}
	return OK(meal.MealsFromRows(rows))
}

// ListSavedMealIDs 讀取使用者已收藏的餐點識別碼
func (g *Gateway) ListSavedMealIDs(ctx context.Context, userID string) Result[[]string] {
	var ids []string
	err := g.call(ctx, "list_saved_meals", func(ctx context.Context) (err error) {
		ids, err = g.backend.ListSavedMealIDs(ctx, userID)
		return err
	})
	if err != nil {
		return Failed(err, []string{})
	}
	if len(ids) == 0 {
		return Empty[[]string]()
	}
	return OK(ids)
}

// SetSaved 讓收藏狀態成為 desired：先查目前狀態，只在需要時新增或刪除，
// 回傳實際的收藏狀態而不是假設成功。
func (g *Gateway) SetSaved(ctx context.Context, mealID, userID string, desired bool) Result[bool] {
	var current bool
	err := g.call(ctx, "check_saved_meal", func(ctx context.Context) (err error) {
		current, err = g.backend.IsMealSaved(ctx, userID, mealID)
		return err
	})
	if err != nil {
		return Failed(err, false)
	}
	if current == desired {
		return OK(current)
	}

	if desired {
		err = g.call(ctx, "insert_saved_meal", func(ctx context.Context) error {
			return g.backend.InsertSavedMeal(ctx, userID, mealID)
		})
	} else {
		err = g.call(ctx, "delete_saved_meal", func(ctx context.Context) error {
			return g.backend.DeleteSavedMeal(ctx, userID, mealID)
		})
	}
	if err != nil {
		return Failed(err, current)
	}

	common.LogInfo("收藏狀態已更新",
		zap.String("meal_id", mealID),
		zap.Bool("saved", desired),
	)
	return OK(desired)
}

// ListCalendarEntries 讀取使用者的行事曆
func (g *Gateway) ListCalendarEntries(ctx context.Context, userID string) Result[[]meal.CalendarEntry] {
	var rows []meal.CalendarEntryRow
	err := g.call(ctx, "list_calendar_entries", func(ctx context.Context) (err error) {
		rows, err = g.backend.ListCalendarEntries(ctx, userID)
		return err
	})
	if err != nil {
		return Failed[[]meal.CalendarEntry](err, []meal.CalendarEntry{})
	}
	if len(rows) == 0 {
		return Empty[[]meal.CalendarEntry]()
	}

	entries := make([]meal.CalendarEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, meal.CalendarEntryFromRow(row))
	}
	return OK(entries)
}

// AddCalendarEntry 新增行事曆項目。任何失敗（包含資料表不存在）都回傳 Failed，
// 並在 Value 中附上暫時識別碼的本地項目，讓畫面仍能反映這個動作。
func (g *Gateway) AddCalendarEntry(ctx context.Context, mealID string, date time.Time, mealType, title, userID string) Result[meal.CalendarEntry] {
	entry := meal.CalendarEntry{
		MealID:   mealID,
		Date:     date,
		MealType: mealType,
		Title:    title,
		UserID:   userID,
	}

	var created *meal.CalendarEntryRow
	err := g.call(ctx, "insert_calendar_entry", func(ctx context.Context) (err error) {
		created, err = g.backend.InsertCalendarEntry(ctx, meal.CalendarEntryToRow(entry))
		return err
	})
	if err == nil && (created == nil || created.ID == "") {
		err = errors.New("insert returned no row")
	}
	if err != nil {
		if errors.Is(err, ErrTableMissing) {
			common.LogWarn("行事曆資料表可能不存在，改用暫時項目", zap.Error(err))
		}
		entry.ID = common.NewTempID()
		return Failed(err, entry)
	}

	confirmed := meal.CalendarEntryFromRow(*created)
	if confirmed.Date.IsZero() {
		confirmed.Date = date
	}
	return OK(confirmed)
}

// RemoveCalendarEntry 刪除行事曆項目；暫時識別碼直接視為已刪除
func (g *Gateway) RemoveCalendarEntry(ctx context.Context, id string) Result[bool] {
	if common.IsTempID(id) {
		return OK(true)
	}
	if err := g.call(ctx, "delete_calendar_entry", func(ctx context.Context) error {
		return g.backend.DeleteCalendarEntry(ctx, id)
	}); err != nil {
		return Failed(err, false)
	}
	return OK(true)
}

// ListPantry 讀取使用者的庫存
func (g *Gateway) ListPantry(ctx context.Context, userID string) Result[[]meal.PantryItem] {
	var rows []meal.PantryRow
	err := g.call(ctx, "list_pantry", func(ctx context.Context) (err error) {
		rows, err = g.backend.ListPantry(ctx, userID)
		return err
	})
	if err != nil {
		return Failed[[]meal.PantryItem](err, []meal.PantryItem{})
	}
	if len(rows) == 0 {
		return Empty[[]meal.PantryItem]()
	}

	items := make([]meal.PantryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, meal.PantryItemFromRow(row))
	}
	return OK(items)
}

// AddPantryItem 新增庫存食材；失敗時附上暫時識別碼的本地項目
func (g *Gateway) AddPantryItem(ctx context.Context, item meal.PantryItem, userID string) Result[meal.PantryItem] {
	var created *meal.PantryRow
	err := g.call(ctx, "insert_pantry_item", func(ctx context.Context) (err error) {
		created, err = g.backend.InsertPantryItem(ctx, meal.PantryItemToRow(item, userID))
		return err
	})
	if err == nil && (created == nil || created.ID == "") {
		err = errors.New("insert returned no row")
	}
	if err != nil {
		item.ID = common.NewTempID()
		return Failed(err, item)
	}
	return OK(meal.PantryItemFromRow(*created))
}

// UpdatePantryQuantity 更新庫存數量；數量由呼叫端先行夾在 0 以上
func (g *Gateway) UpdatePantryQuantity(ctx context.Context, id string, quantity int) Result[bool] {
	if common.IsTempID(id) {
		return OK(true)
	}
	if err := g.call(ctx, "update_pantry_quantity", func(ctx context.Context) error {
		return g.backend.UpdatePantryQuantity(ctx, id, quantity)
	}); err != nil {
		return Failed(err, false)
	}
	return OK(true)
}

// RemovePantryItem 刪除庫存食材
func (g *Gateway) RemovePantryItem(ctx context.Context, id string) Result[bool] {
	if common.IsTempID(id) {
		return OK(true)
	}
	if err := g.call(ctx, "delete_pantry_item", func(ctx context.Context) error {
		return g.backend.DeletePantryItem(ctx, id)
	}); err != nil {
		return Failed(err, false)
	}
	return OK(true)
}

// GetPreferences 讀取偏好設定；沒有資料列為 Empty
func (g *Gateway) GetPreferences(ctx context.Context, userID string) Result[meal.Preferences] {
	var row *meal.PreferencesRow
	err := g.call(ctx, "get_preferences", func(ctx context.Context) (err error) {
		row, err = g.backend.GetPreferences(ctx, userID)
		return err
	})
	if err != nil {
		return Failed(err, meal.Preferences{})
	}
	if row == nil {
		return Empty[meal.Preferences]()
	}
	return OK(meal.PreferencesFromRow(*row))
}

// SavePreferences 每位使用者最多一筆：先查既有識別碼，再決定更新或新增
func (g *Gateway) SavePreferences(ctx context.Context, prefs meal.Preferences) Result[meal.Preferences] {
	existingID := prefs.ID
	if existingID == "" {
		existing := g.GetPreferences(ctx, prefs.UserID)
		if existing.IsFailed() {
			return Failed(existing.Err, prefs)
		}
		if existing.IsOK() {
			existingID = existing.Value.ID
		}
	}

	prefs.UpdatedAt = g.now().UTC()
	row := meal.PreferencesToRow(prefs)

	var saved *meal.PreferencesRow
	var err error
	if existingID != "" {
		err = g.call(ctx, "update_preferences", func(ctx context.Context) (err error) {
			saved, err = g.backend.UpdatePreferences(ctx, existingID, row)
			return err
		})
	} else {
		err = g.call(ctx, "insert_preferences", func(ctx context.Context) (err error) {
			saved, err = g.backend.InsertPreferences(ctx, row)
			return err
		})
	}
	if err != nil {
		return Failed(err, prefs)
	}

	if saved == nil {
		prefs.ID = existingID
		return OK(prefs)
	}
	result := meal.PreferencesFromRow(*saved)
	if result.ID == "" {
		result.ID = existingID
	}
	return OK(result)
}

// GetProfile 讀取使用者基本資料
func (g *Gateway) GetProfile(ctx context.Context, userID string) Result[meal.Profile] {
	var row *meal.ProfileRow
	err := g.call(ctx, "get_profile", func(ctx context.Context) (err error) {
		row, err = g.backend.GetProfile(ctx, userID)
		return err
	})
	if err != nil {
		return Failed(err, meal.Profile{ID: userID})
	}
	if row == nil {
		return Empty[meal.Profile]()
	}
	return OK(meal.ProfileFromRow(*row))
}

// UpdateProfileName 更新顯示名稱
func (g *Gateway) UpdateProfileName(ctx context.Context, userID, name string) Result[meal.Profile] {
	name = strings.TrimSpace(name)
	profile := meal.Profile{ID: userID, Name: name}
	if err := g.call(ctx, "update_profile", func(ctx context.Context) error {
		return g.backend.UpdateProfileName(ctx, userID, name)
	}); err != nil {
		return Failed(err, profile)
	}
	return OK(profile)
}

// call 執行一次後端呼叫，記錄耗時並把 panic 轉為錯誤
func (g *Gateway) call(ctx context.Context, operation string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("backend panic")
			common.LogError("Backend panic recovered",
				zap.String("operation", operation),
				zap.Any("panic", r),
			)
		}
		common.LogBackendCall(operation, time.Since(start), err)
	}()
	return fn(ctx)
}
