package meal

import (
	"encoding/json"
	"time"
)

// 餐別
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

// ValidMealType 檢查餐別，只在 API 邊界驗證
func ValidMealType(mealType string) bool {
	switch mealType {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// Ingredient 食譜中的食材
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"` // 允許 "to taste" 這類非數值
	Unit   string `json:"unit"`
}

// Meal 餐點
type Meal struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Image           string       `json:"image"`
	PrepTime        int          `json:"prepTime"`
	CookTime        int          `json:"cookTime"`
	IngredientCount int          `json:"ingredientCount"`
	Servings        int          `json:"servings"`
	IsSaved         bool         `json:"isSaved"`
	DietaryTags     []string     `json:"dietaryTags"`
	Ingredients     []Ingredient `json:"ingredients"`
	Instructions    []string     `json:"instructions"`
}

// Clone 深拷貝，避免呼叫端修改工作階段內的切片
func (m Meal) Clone() Meal {
	c := m
	c.DietaryTags = append([]string{}, m.DietaryTags...)
	c.Ingredients = append([]Ingredient{}, m.Ingredients...)
	c.Instructions = append([]string{}, m.Instructions...)
	return c
}

// CalendarEntry 行事曆項目
type CalendarEntry struct {
	ID       string    `json:"id"`
	MealID   string    `json:"mealId"`
	Date     time.Time `json:"date"`
	MealType string    `json:"mealType"`
	Title    string    `json:"title"` // 新增時複製的餐點標題，之後不隨餐點變更
	UserID   string    `json:"userId,omitempty"`
}

// PantryItem 庫存食材
type PantryItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Unit       string  `json:"unit"`
	ExpiryDate *string `json:"expiryDate,omitempty"`
}

// Preferences 使用者偏好
type Preferences struct {
	ID                  string    `json:"id,omitempty"`
	UserID              string    `json:"userId"`
	DietaryRestrictions []string  `json:"dietaryRestrictions"`
	MealPreferences     []string  `json:"mealPreferences"`
	CuisinePreferences  []string  `json:"cuisinePreferences"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Profile 使用者基本資料
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Filters 餐點篩選條件
type Filters struct {
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	MealTypes           []string `json:"mealTypes"` // 資料表沒有對應欄位，接受但不套用
}

// IsEmpty 沒有任何條件時回傳 true
func (f Filters) IsEmpty() bool {
	return len(f.DietaryRestrictions) == 0 && len(f.MealTypes) == 0
}

// ---------------- 儲存層資料列（snake_case） ----------------

// MealRow meals 資料列；ingredients / instructions 可能是陣列、JSON 字串或缺漏
type MealRow struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Image           string          `json:"image"`
	PrepTime        int             `json:"prep_time"`
	CookTime        int             `json:"cook_time"`
	IngredientCount int             `json:"ingredient_count"`
	Servings        int             `json:"servings"`
	DietaryTags     []string        `json:"dietary_tags"`
	Ingredients     json.RawMessage `json:"ingredients"`
	Instructions    json.RawMessage `json:"instructions"`
	CreatedAt       string          `json:"created_at,omitempty"`
}

// SavedMealRow saved_meals 資料列
type SavedMealRow struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	MealID    string `json:"meal_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CalendarEntryRow calendar_entries 資料列
type CalendarEntryRow struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	MealID    string `json:"meal_id"`
	Date      string `json:"date"`
	MealType  string `json:"meal_type"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
}

// PantryRow ingredients（庫存）資料列
type PantryRow struct {
	ID         string  `json:"id,omitempty"`
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Unit       string  `json:"unit"`
	ExpiryDate *string `json:"expiry_date"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// PreferencesRow user_preferences 資料列
type PreferencesRow struct {
	ID                  string   `json:"id,omitempty"`
	UserID              string   `json:"user_id"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	MealPreferences     []string `json:"meal_preferences"`
	CuisinePreferences  []string `json:"cuisine_preferences"`
	UpdatedAt           string   `json:"updated_at,omitempty"`
}

// ProfileRow users 資料列
type ProfileRow struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}
