package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// RESTBackend 透過後端即服務的 REST 介面（PostgREST）存取資料
type RESTBackend struct {
	client  *resty.Client
	anonKey string
}

// NewRESTBackend 創建 REST 後端
func NewRESTBackend(cfg *config.Config) *RESTBackend {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Supabase.URL, "/")+"/rest/v1").
		SetHeader("apikey", cfg.Supabase.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Supabase.Timeout).
		SetRetryCount(cfg.Supabase.RetryCount)

	return &RESTBackend{
		client:  client,
		anonKey: cfg.Supabase.AnonKey,
	}
}

// Name 後端名稱
func (b *RESTBackend) Name() string { return config.DriverREST }

// Close 關閉閒置連線
func (b *RESTBackend) Close() error {
	b.client.GetClient().CloseIdleConnections()
	return nil
}

// request 建立帶有使用者權杖（或匿名金鑰）的請求
func (b *RESTBackend) request(ctx context.Context) *resty.Request {
	token := AccessToken(ctx)
	if token == "" {
		token = b.anonKey
	}
	return b.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token)
}

// do 發送請求並把錯誤狀態碼轉為 APIError
func (b *RESTBackend) do(req *resty.Request, method, path string) (*resty.Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to backend: %w", err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode()}
		if jsonErr := json.Unmarshal(resp.Body(), apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(resp.String())
		}
		return nil, apiErr
	}
	return resp, nil
}

// decodeRows 解析回應中的資料列陣列
func decodeRows[T any](resp *resty.Response) ([]T, error) {
	rows := []T{}
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse backend response: %w", err)
	}
	return rows, nil
}

// first 取第一筆資料列，沒有資料時回傳 nil
func first[T any](rows []T) *T {
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

// Ping 以最小查詢確認後端可用
func (b *RESTBackend) Ping(ctx context.Context) error {
	_, err := b.do(b.request(ctx).
		SetQueryParam("select", "id").
		SetQueryParam("limit", "1"), http.MethodGet, "/"+TableMeals)
	return err
}

// ListMeals 讀取所有餐點
func (b *RESTBackend) ListMeals(ctx context.Context) ([]meal.MealRow, error) {
	resp, err := b.do(b.request(ctx).SetQueryParam("select", "*"), http.MethodGet, "/"+TableMeals)
	if err != nil {
		return nil, err
	}
	return decodeRows[meal.MealRow](resp)
}

// GetMeal 讀取單一餐點
func (b *RESTBackend) GetMeal(ctx context.Context, id string) (*meal.MealRow, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("id", eq(id)).
		SetQueryParam("limit", "1"), http.MethodGet, "/"+TableMeals)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.MealRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// FilterMeals 以陣列交集（overlaps）篩選飲食標籤
func (b *RESTBackend) FilterMeals(ctx context.Context, dietaryTags []string) ([]meal.MealRow, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("dietary_tags", "ov."+PGArrayLiteral(dietaryTags)), http.MethodGet, "/"+TableMeals)
	if err != nil {
		return nil, err
	}
	return decodeRows[meal.MealRow](resp)
}

// ListSavedMealIDs 讀取已收藏的餐點識別碼
func (b *RESTBackend) ListSavedMealIDs(ctx context.Context, userID string) ([]string, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "meal_id").
		SetQueryParam("user_id", eq(userID)), http.MethodGet, "/"+TableSavedMeals)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.SavedMealRow](resp)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.MealID)
	}
	return ids, nil
}

// IsMealSaved 檢查收藏關聯是否存在
func (b *RESTBackend) IsMealSaved(ctx context.Context, userID, mealID string) (bool, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "meal_id").
		SetQueryParam("user_id", eq(userID)).
		SetQueryParam("meal_id", eq(mealID)), http.MethodGet, "/"+TableSavedMeals)
	if err != nil {
		return false, err
	}
	rows, err := decodeRows[meal.SavedMealRow](resp)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// InsertSavedMeal 新增收藏關聯
func (b *RESTBackend) InsertSavedMeal(ctx context.Context, userID, mealID string) error {
	_, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody([]meal.SavedMealRow{{UserID: userID, MealID: mealID}}), http.MethodPost, "/"+TableSavedMeals)
	return err
}

// DeleteSavedMeal 刪除收藏關聯
func (b *RESTBackend) DeleteSavedMeal(ctx context.Context, userID, mealID string) error {
	_, err := b.do(b.request(ctx).
		SetQueryParam("user_id", eq(userID)).
		SetQueryParam("meal_id", eq(mealID)), http.MethodDelete, "/"+TableSavedMeals)
	return err
}

// ListCalendarEntries 讀取行事曆
func (b *RESTBackend) ListCalendarEntries(ctx context.Context, userID string) ([]meal.CalendarEntryRow, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("user_id", eq(userID)), http.MethodGet, "/"+TableCalendarEntries)
	if err != nil {
		return nil, err
	}
	return decodeRows[meal.CalendarEntryRow](resp)
}

// InsertCalendarEntry 新增行事曆項目並取回資料列
func (b *RESTBackend) InsertCalendarEntry(ctx context.Context, row meal.CalendarEntryRow) (*meal.CalendarEntryRow, error) {
	resp, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]meal.CalendarEntryRow{row}), http.MethodPost, "/"+TableCalendarEntries)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.CalendarEntryRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// DeleteCalendarEntry 刪除行事曆項目
func (b *RESTBackend) DeleteCalendarEntry(ctx context.Context, id string) error {
	_, err := b.do(b.request(ctx).SetQueryParam("id", eq(id)), http.MethodDelete, "/"+TableCalendarEntries)
	return err
}

// ListPantry 讀取庫存
func (b *RESTBackend) ListPantry(ctx context.Context, userID string) ([]meal.PantryRow, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("user_id", eq(userID)), http.MethodGet, "/"+TablePantry)
	if err != nil {
		return nil, err
	}
	return decodeRows[meal.PantryRow](resp)
}

// InsertPantryItem 新增庫存食材並取回資料列
func (b *RESTBackend) InsertPantryItem(ctx context.Context, row meal.PantryRow) (*meal.PantryRow, error) {
	resp, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]meal.PantryRow{row}), http.MethodPost, "/"+TablePantry)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.PantryRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// UpdatePantryQuantity 更新庫存數量
func (b *RESTBackend) UpdatePantryQuantity(ctx context.Context, id string, quantity int) error {
	_, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParam("id", eq(id)).
		SetBody(map[string]int{"quantity": quantity}), http.MethodPatch, "/"+TablePantry)
	return err
}

// DeletePantryItem 刪除庫存食材
func (b *RESTBackend) DeletePantryItem(ctx context.Context, id string) error {
	_, err := b.do(b.request(ctx).SetQueryParam("id", eq(id)), http.MethodDelete, "/"+TablePantry)
	return err
}

// GetPreferences 讀取偏好設定
func (b *RESTBackend) GetPreferences(ctx context.Context, userID string) (*meal.PreferencesRow, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("user_id", eq(userID)).
		SetQueryParam("limit", "1"), http.MethodGet, "/"+TablePreferences)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.PreferencesRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// InsertPreferences 新增偏好設定
func (b *RESTBackend) InsertPreferences(ctx context.Context, row meal.PreferencesRow) (*meal.PreferencesRow, error) {
	resp, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]meal.PreferencesRow{row}), http.MethodPost, "/"+TablePreferences)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.PreferencesRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// UpdatePreferences 更新既有偏好設定
func (b *RESTBackend) UpdatePreferences(ctx context.Context, id string, row meal.PreferencesRow) (*meal.PreferencesRow, error) {
	body := map[string]interface{}{
		"dietary_restrictions": row.DietaryRestrictions,
		"meal_preferences":     row.MealPreferences,
		"cuisine_preferences":  row.CuisinePreferences,
		"updated_at":           row.UpdatedAt,
	}
	resp, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", eq(id)).
		SetBody(body), http.MethodPatch, "/"+TablePreferences)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.PreferencesRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// GetProfile 讀取使用者基本資料
func (b *RESTBackend) GetProfile(ctx context.Context, userID string) (*meal.ProfileRow, error) {
	resp, err := b.do(b.request(ctx).
		SetQueryParam("select", "id,name").
		SetQueryParam("id", eq(userID)).
		SetQueryParam("limit", "1"), http.MethodGet, "/"+TableUsers)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[meal.ProfileRow](resp)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// UpdateProfileName 更新顯示名稱
func (b *RESTBackend) UpdateProfileName(ctx context.Context, userID, name string) error {
	_, err := b.do(b.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParam("id", eq(userID)).
		SetBody(map[string]string{"name": name}), http.MethodPatch, "/"+TableUsers)
	return err
}

func eq(value string) string {
	return "eq." + value
}

// PGArrayLiteral 轉為 Postgres 陣列字面值，例如 {"Vegan","Gluten-Free"}
func PGArrayLiteral(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		quoted = append(quoted, `"`+v+`"`)
	}
	return "{" + strings.Join(quoted, ",") + "}"
}
