package gateway

import (
	"context"
	"errors"
	"fmt"

	"meal-planner/internal/core/meal"
)

// 資料表名稱
const (
	TableMeals           = "meals"
	TableSavedMeals      = "saved_meals"
	TableCalendarEntries = "calendar_entries"
	TablePantry          = "ingredients"
	TablePreferences     = "user_preferences"
	TableUsers           = "users"
)

// ErrTableMissing 資料表不存在
var ErrTableMissing = errors.New("table not present")

// APIError 後端回傳的錯誤
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// Is 讓 errors.Is(err, ErrTableMissing) 對「relation does not exist」生效
func (e *APIError) Is(target error) bool {
	return target == ErrTableMissing && (e.Code == "42P01" || e.Code == "PGRST205")
}

// Backend 遠端資料存取。實作可以回傳錯誤，由 Gateway 統一攔截。
// 單筆查詢找不到資料時回傳 nil, nil。
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	ListMeals(ctx context.Context) ([]meal.MealRow, error)
	GetMeal(ctx context.Context, id string) (*meal.MealRow, error)
	FilterMeals(ctx context.Context, dietaryTags []string) ([]meal.MealRow, error)

	ListSavedMealIDs(ctx context.Context, userID string) ([]string, error)
	IsMealSaved(ctx context.Context, userID, mealID string) (bool, error)
	InsertSavedMeal(ctx context.Context, userID, mealID string) error
	DeleteSavedMeal(ctx context.Context, userID, mealID string) error

	ListCalendarEntries(ctx context.Context, userID string) ([]meal.CalendarEntryRow, error)
	InsertCalendarEntry(ctx context.Context, row meal.CalendarEntryRow) (*meal.CalendarEntryRow, error)
	DeleteCalendarEntry(ctx context.Context, id string) error

	ListPantry(ctx context.Context, userID string) ([]meal.PantryRow, error)
	InsertPantryItem(ctx context.Context, row meal.PantryRow) (*meal.PantryRow, error)
	UpdatePantryQuantity(ctx context.Context, id string, quantity int) error
	DeletePantryItem(ctx context.Context, id string) error

	GetPreferences(ctx context.Context, userID string) (*meal.PreferencesRow, error)
	InsertPreferences(ctx context.Context, row meal.PreferencesRow) (*meal.PreferencesRow, error)
	UpdatePreferences(ctx context.Context, id string, row meal.PreferencesRow) (*meal.PreferencesRow, error)

	GetProfile(ctx context.Context, userID string) (*meal.ProfileRow, error)
	UpdateProfileName(ctx context.Context, userID, name string) error
}

type accessTokenKey struct{}

// WithAccessToken 將使用者的存取權杖放入 context，後端據此套用資料列權限
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken 取出 context 中的存取權杖
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
