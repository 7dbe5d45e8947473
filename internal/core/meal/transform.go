package meal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// 行事曆日期可接受的格式
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate 解析儲存層或請求中的日期
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// FormatDate 以 RFC3339 寫入儲存層
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ingredientRow 儲存層中的食材，amount 可能是字串或數字
type ingredientRow struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
	Unit   string          `json:"unit"`
}

// MealFromRow 將 meals 資料列轉為餐點，不修改輸入
func MealFromRow(row MealRow) Meal {
	rawIngredients := decodeLenientArray[ingredientRow]("ingredients", row.ID, row.Ingredients)
	ingredients := make([]Ingredient, 0, len(rawIngredients))
	for _, ing := range rawIngredients {
		ingredients = append(ingredients, Ingredient{
			Name:   ing.Name,
			Amount: amountString(ing.Amount),
			Unit:   ing.Unit,
		})
	}

	return Meal{
		ID:              row.ID,
		Title:           row.Title,
		Image:           row.Image,
		PrepTime:        row.PrepTime,
		CookTime:        row.CookTime,
		IngredientCount: row.IngredientCount,
		Servings:        row.Servings,
		IsSaved:         false, // 由工作階段依已收藏清單設定
		DietaryTags:     copyStrings(row.DietaryTags),
		Ingredients:     ingredients,
		Instructions:    decodeLenientArray[string]("instructions", row.ID, row.Instructions),
	}
}

// MealsFromRows 批次轉換
func MealsFromRows(rows []MealRow) []Meal {
	meals := make([]Meal, 0, len(rows))
	for _, row := range rows {
		meals = append(meals, MealFromRow(row))
	}
	return meals
}

// CalendarEntryFromRow 將 calendar_entries 資料列轉為行事曆項目
func CalendarEntryFromRow(row CalendarEntryRow) CalendarEntry {
	date, err := ParseDate(row.Date)
	if err != nil {
		common.LogWarn("行事曆日期解析失敗",
			zap.String("entry_id", row.ID),
			zap.Error(err),
		)
	}
	return CalendarEntry{
		ID:       row.ID,
		MealID:   row.MealID,
		Date:     date,
		MealType: row.MealType,
		Title:    row.Title,
		UserID:   row.UserID,
	}
}

// CalendarEntryToRow 準備寫入的資料列（不含 id）
func CalendarEntryToRow(entry CalendarEntry) CalendarEntryRow {
	return CalendarEntryRow{
		UserID:   entry.UserID,
		MealID:   entry.MealID,
		Date:     FormatDate(entry.Date),
		MealType: entry.MealType,
		Title:    entry.Title,
	}
}

// PantryItemFromRow 將庫存資料列轉為庫存食材
func PantryItemFromRow(row PantryRow) PantryItem {
	item := PantryItem{
		ID:       row.ID,
		Name:     row.Name,
		Quantity: row.Quantity,
		Unit:     row.Unit,
	}
	if row.ExpiryDate != nil && *row.ExpiryDate != "" {
		expiry := *row.ExpiryDate
		item.ExpiryDate = &expiry
	}
	return item
}

// PantryItemToRow 準備寫入的資料列（不含 id）
func PantryItemToRow(item PantryItem, userID string) PantryRow {
	row := PantryRow{
		UserID:   userID,
		Name:     item.Name,
		Quantity: item.Quantity,
		Unit:     item.Unit,
	}
	if item.ExpiryDate != nil && *item.ExpiryDate != "" {
		expiry := *item.ExpiryDate
		row.ExpiryDate = &expiry
	}
	return row
}

// PreferencesFromRow 將偏好資料列轉為偏好設定，缺漏的集合補成空集合
func PreferencesFromRow(row PreferencesRow) Preferences {
	prefs := Preferences{
		ID:                  row.ID,
		UserID:              row.UserID,
		DietaryRestrictions: copyStrings(row.DietaryRestrictions),
		MealPreferences:     copyStrings(row.MealPreferences),
		CuisinePreferences:  copyStrings(row.CuisinePreferences),
	}
	if row.UpdatedAt != "" {
		if t, err := ParseDate(row.UpdatedAt); err == nil {
			prefs.UpdatedAt = t
		}
	}
	return prefs
}

// PreferencesToRow 準備寫入的資料列
func PreferencesToRow(prefs Preferences) PreferencesRow {
	row := PreferencesRow{
		UserID:              prefs.UserID,
		DietaryRestrictions: copyStrings(prefs.DietaryRestrictions),
		MealPreferences:     copyStrings(prefs.MealPreferences),
		CuisinePreferences:  copyStrings(prefs.CuisinePreferences),
	}
	if !prefs.UpdatedAt.IsZero() {
		row.UpdatedAt = FormatDate(prefs.UpdatedAt)
	}
	return row
}

// ProfileFromRow 將 users 資料列轉為基本資料
func ProfileFromRow(row ProfileRow) Profile {
	profile := Profile{ID: row.ID}
	if row.Name != nil {
		profile.Name = *row.Name
	}
	return profile
}

// decodeLenientArray 解析可能是陣列、JSON 字串或缺漏的欄位，失敗時回傳空陣列
func decodeLenientArray[T any](field, mealID string, raw json.RawMessage) []T {
	result := []T{}
	if common.IsJSONNull(raw) {
		return result
	}

	payload := bytes.TrimSpace(raw)
	if payload[0] == '"' {
		var encoded string
		if err := json.Unmarshal(payload, &encoded); err != nil {
			logDecodeFailure(field, mealID, err)
			return result
		}
		payload = bytes.TrimSpace([]byte(encoded))
		if len(payload) == 0 {
			return result
		}
	}

	if payload[0] != '[' {
		logDecodeFailure(field, mealID, fmt.Errorf("expected JSON array"))
		return result
	}

	var decoded []T
	if err := common.ParseJSONBytes(payload, &decoded); err != nil {
		logDecodeFailure(field, mealID, err)
		return result
	}
	if decoded == nil {
		return result
	}
	return decoded
}

func logDecodeFailure(field, mealID string, err error) {
	common.LogError("解析餐點欄位失敗",
		zap.String("field", field),
		zap.String("meal_id", mealID),
		zap.Error(err),
	)
}

// amountString 將字串或數字形式的份量統一為字串
func amountString(raw json.RawMessage) string {
	if common.IsJSONNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func copyStrings(in []string) []string {
	return append([]string{}, in...)
}
