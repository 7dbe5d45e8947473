package gateway

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// PostgresBackend 直接連線到後端的 Postgres 資料庫
type PostgresBackend struct {
	db *gorm.DB
}

// NewPostgresBackend 創建 Postgres 後端
func NewPostgresBackend(cfg *config.Config) (*PostgresBackend, error) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.Postgres.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	return &PostgresBackend{db: db}, nil
}

// Name 後端名稱
func (b *PostgresBackend) Name() string { return config.DriverPostgres }

// Ping 檢查資料庫連線
func (b *PostgresBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線池
func (b *PostgresBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// rawJSON 接收 to_jsonb(...) 的結果，不論驅動回傳 []byte 或 string
type rawJSON []byte

func (r *rawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = rawJSON(v)
	default:
		return fmt.Errorf("unsupported json source %T", src)
	}
	return nil
}

func (r rawJSON) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return []byte(r), nil
}

// strings 解析文字陣列欄位；格式錯誤時記錄並回傳空陣列
func (r rawJSON) strings(column string) []string {
	values := []string{}
	if len(r) == 0 {
		return values
	}
	if err := json.Unmarshal(r, &values); err != nil {
		common.LogError("解析陣列欄位失敗",
			zap.String("column", column),
			zap.Error(err),
		)
		return []string{}
	}
	return values
}

// 時間欄位一律轉為 ISO 8601 字串，交由轉換器解析
const (
	mealColumns = `id::text AS id, title, image, prep_time, cook_time, ingredient_count, servings,
		to_jsonb(dietary_tags) AS dietary_tags, to_jsonb(ingredients) AS ingredients,
		to_jsonb(instructions) AS instructions, to_jsonb(created_at) #>> '{}' AS created_at`
	calendarColumns = `id::text AS id, user_id::text AS user_id, meal_id::text AS meal_id,
		to_jsonb(date) #>> '{}' AS date, meal_type, title, to_jsonb(created_at) #>> '{}' AS created_at`
	pantryColumns = `id::text AS id, user_id::text AS user_id, name, quantity, unit,
		expiry_date::text AS expiry_date, to_jsonb(created_at) #>> '{}' AS created_at`
	preferencesColumns = `id::text AS id, user_id::text AS user_id,
		to_jsonb(dietary_restrictions) AS dietary_restrictions, to_jsonb(meal_preferences) AS meal_preferences,
		to_jsonb(cuisine_preferences) AS cuisine_preferences, to_jsonb(updated_at) #>> '{}' AS updated_at`
)

type mealRecord struct {
	ID              string  `gorm:"column:id"`
	Title           string  `gorm:"column:title"`
	Image           string  `gorm:"column:image"`
	PrepTime        int     `gorm:"column:prep_time"`
	CookTime        int     `gorm:"column:cook_time"`
	IngredientCount int     `gorm:"column:ingredient_count"`
	Servings        int     `gorm:"column:servings"`
	DietaryTags     rawJSON `gorm:"column:dietary_tags"`
	Ingredients     rawJSON `gorm:"column:ingredients"`
	Instructions    rawJSON `gorm:"column:instructions"`
	CreatedAt       *string `gorm:"column:created_at"`
}

func (r mealRecord) row() meal.MealRow {
	return meal.MealRow{
		ID:              r.ID,
		Title:           r.Title,
		Image:           r.Image,
		PrepTime:        r.PrepTime,
		CookTime:        r.CookTime,
		IngredientCount: r.IngredientCount,
		Servings:        r.Servings,
		DietaryTags:     r.DietaryTags.strings("dietary_tags"),
		Ingredients:     json.RawMessage(r.Ingredients),
		Instructions:    json.RawMessage(r.Instructions),
		CreatedAt:       deref(r.CreatedAt),
	}
}

type calendarRecord struct {
	ID        string  `gorm:"column:id"`
	UserID    string  `gorm:"column:user_id"`
	MealID    string  `gorm:"column:meal_id"`
	Date      *string `gorm:"column:date"`
	MealType  string  `gorm:"column:meal_type"`
	Title     *string `gorm:"column:title"`
	CreatedAt *string `gorm:"column:created_at"`
}

func (r calendarRecord) row() meal.CalendarEntryRow {
	return meal.CalendarEntryRow{
		ID:        r.ID,
		UserID:    r.UserID,
		MealID:    r.MealID,
		Date:      deref(r.Date),
		MealType:  r.MealType,
		Title:     deref(r.Title),
		CreatedAt: deref(r.CreatedAt),
	}
}

type pantryRecord struct {
	ID         string  `gorm:"column:id"`
	UserID     string  `gorm:"column:user_id"`
	Name       string  `gorm:"column:name"`
	Quantity   int     `gorm:"column:quantity"`
	Unit       *string `gorm:"column:unit"`
	ExpiryDate *string `gorm:"column:expiry_date"`
	CreatedAt  *string `gorm:"column:created_at"`
}

func (r pantryRecord) row() meal.PantryRow {
	return meal.PantryRow{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Quantity:   r.Quantity,
		Unit:       deref(r.Unit),
		ExpiryDate: r.ExpiryDate,
		CreatedAt:  deref(r.CreatedAt),
	}
}

type preferencesRecord struct {
	ID                  string  `gorm:"column:id"`
	UserID              string  `gorm:"column:user_id"`
	DietaryRestrictions rawJSON `gorm:"column:dietary_restrictions"`
	MealPreferences     rawJSON `gorm:"column:meal_preferences"`
	CuisinePreferences  rawJSON `gorm:"column:cuisine_preferences"`
	UpdatedAt           *string `gorm:"column:updated_at"`
}

func (r preferencesRecord) row() meal.PreferencesRow {
	return meal.PreferencesRow{
		ID:                  r.ID,
		UserID:              r.UserID,
		DietaryRestrictions: r.DietaryRestrictions.strings("dietary_restrictions"),
		MealPreferences:     r.MealPreferences.strings("meal_preferences"),
		CuisinePreferences:  r.CuisinePreferences.strings("cuisine_preferences"),
		UpdatedAt:           deref(r.UpdatedAt),
	}
}

type profileRecord struct {
	ID   string  `gorm:"column:id"`
	Name *string `gorm:"column:name"`
}

// ListMeals 讀取所有餐點
func (b *PostgresBackend) ListMeals(ctx context.Context) ([]meal.MealRow, error) {
	var records []mealRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT " + mealColumns + " FROM " + TableMeals).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	return mealRows(records), nil
}

// GetMeal 讀取單一餐點
func (b *PostgresBackend) GetMeal(ctx context.Context, id string) (*meal.MealRow, error) {
	var records []mealRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT "+mealColumns+" FROM "+TableMeals+" WHERE id::text = ? LIMIT 1", id).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	return first(mealRows(records)), nil
}

// FilterMeals 以陣列交集（&&）篩選飲食標籤
func (b *PostgresBackend) FilterMeals(ctx context.Context, dietaryTags []string) ([]meal.MealRow, error) {
	var records []mealRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT "+mealColumns+" FROM "+TableMeals+" WHERE dietary_tags && ?::text[]", PGArrayLiteral(dietaryTags)).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	return mealRows(records), nil
}

// ListSavedMealIDs 讀取已收藏的餐點識別碼
func (b *PostgresBackend) ListSavedMealIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	if err := b.db.WithContext(ctx).
		Raw("SELECT meal_id::text FROM "+TableSavedMeals+" WHERE user_id::text = ?", userID).
		Scan(&ids).Error; err != nil {
		return nil, wrapPgError(err)
	}
	return ids, nil
}

// IsMealSaved 檢查收藏關聯是否存在
func (b *PostgresBackend) IsMealSaved(ctx context.Context, userID, mealID string) (bool, error) {
	var count int64
	if err := b.db.WithContext(ctx).
		Raw("SELECT count(*) FROM "+TableSavedMeals+" WHERE user_id::text = ? AND meal_id::text = ?", userID, mealID).
		Scan(&count).Error; err != nil {
		return false, wrapPgError(err)
	}
	return count > 0, nil
}

// InsertSavedMeal 新增收藏關聯
func (b *PostgresBackend) InsertSavedMeal(ctx context.Context, userID, mealID string) error {
	return wrapPgError(b.db.WithContext(ctx).
		Exec("INSERT INTO "+TableSavedMeals+" (user_id, meal_id) VALUES (?, ?)", userID, mealID).Error)
}

// DeleteSavedMeal 刪除收藏關聯
func (b *PostgresBackend) DeleteSavedMeal(ctx context.Context, userID, mealID string) error {
	return wrapPgError(b.db.WithContext(ctx).
		Exec("DELETE FROM "+TableSavedMeals+" WHERE user_id::text = ? AND meal_id::text = ?", userID, mealID).Error)
}

// ListCalendarEntries 讀取行事曆
func (b *PostgresBackend) ListCalendarEntries(ctx context.Context, userID string) ([]meal.CalendarEntryRow, error) {
	var records []calendarRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT "+calendarColumns+" FROM "+TableCalendarEntries+" WHERE user_id::text = ?", userID).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	rows := make([]meal.CalendarEntryRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.row())
	}
	return rows, nil
}

// InsertCalendarEntry 新增行事曆項目並取回資料列
func (b *PostgresBackend) InsertCalendarEntry(ctx context.Context, row meal.CalendarEntryRow) (*meal.CalendarEntryRow, error) {
	var records []calendarRecord
	if err := b.db.WithContext(ctx).
		Raw("INSERT INTO "+TableCalendarEntries+" (user_id, meal_id, date, meal_type, title) VALUES (?, ?, ?::timestamptz, ?, ?) RETURNING "+calendarColumns,
			row.UserID, row.MealID, row.Date, row.MealType, row.Title).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	created := records[0].row()
	return &created, nil
}

// DeleteCalendarEntry 刪除行事曆項目
func (b *PostgresBackend) DeleteCalendarEntry(ctx context.Context, id string) error {
	return wrapPgError(b.db.WithContext(ctx).
		Exec("DELETE FROM "+TableCalendarEntries+" WHERE id::text = ?", id).Error)
}

// ListPantry 讀取庫存
func (b *PostgresBackend) ListPantry(ctx context.Context, userID string) ([]meal.PantryRow, error) {
	var records []pantryRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT "+pantryColumns+" FROM "+TablePantry+" WHERE user_id::text = ?", userID).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	rows := make([]meal.PantryRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.row())
	}
	return rows, nil
}

// InsertPantryItem 新增庫存食材並取回資料列
func (b *PostgresBackend) InsertPantryItem(ctx context.Context, row meal.PantryRow) (*meal.PantryRow, error) {
	var records []pantryRecord
	if err := b.db.WithContext(ctx).
		Raw("INSERT INTO "+TablePantry+" (user_id, name, quantity, unit, expiry_date) VALUES (?, ?, ?, ?, ?::date) RETURNING "+pantryColumns,
			row.UserID, row.Name, row.Quantity, row.Unit, row.ExpiryDate).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	created := records[0].row()
	return &created, nil
}

// UpdatePantryQuantity 更新庫存數量
func (b *PostgresBackend) UpdatePantryQuantity(ctx context.Context, id string, quantity int) error {
	return wrapPgError(b.db.WithContext(ctx).
		Exec("UPDATE "+TablePantry+" SET quantity = ? WHERE id::text = ?", quantity, id).Error)
}

// DeletePantryItem 刪除庫存食材
func (b *PostgresBackend) DeletePantryItem(ctx context.Context, id string) error {
	return wrapPgError(b.db.WithContext(ctx).
		Exec("DELETE FROM "+TablePantry+" WHERE id::text = ?", id).Error)
}

// GetPreferences 讀取偏好設定
func (b *PostgresBackend) GetPreferences(ctx context.Context, userID string) (*meal.PreferencesRow, error) {
	var records []preferencesRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT "+preferencesColumns+" FROM "+TablePreferences+" WHERE user_id::text = ? LIMIT 1", userID).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	row := records[0].row()
	return &row, nil
}

// InsertPreferences 新增偏好設定
func (b *PostgresBackend) InsertPreferences(ctx context.Context, row meal.PreferencesRow) (*meal.PreferencesRow, error) {
	var records []preferencesRecord
	if err := b.db.WithContext(ctx).
		Raw("INSERT INTO "+TablePreferences+" (user_id, dietary_restrictions, meal_preferences, cuisine_preferences, updated_at) VALUES (?, ?::text[], ?::text[], ?::text[], ?::timestamptz) RETURNING "+preferencesColumns,
			row.UserID,
			PGArrayLiteral(row.DietaryRestrictions),
			PGArrayLiteral(row.MealPreferences),
			PGArrayLiteral(row.CuisinePreferences),
			row.UpdatedAt).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	saved := records[0].row()
	return &saved, nil
}

// UpdatePreferences 更新既有偏好設定
func (b *PostgresBackend) UpdatePreferences(ctx context.Context, id string, row meal.PreferencesRow) (*meal.PreferencesRow, error) {
	var records []preferencesRecord
	if err := b.db.WithContext(ctx).
		Raw("UPDATE "+TablePreferences+" SET dietary_restrictions = ?::text[], meal_preferences = ?::text[], cuisine_preferences = ?::text[], updated_at = ?::timestamptz WHERE id::text = ? RETURNING "+preferencesColumns,
			PGArrayLiteral(row.DietaryRestrictions),
			PGArrayLiteral(row.MealPreferences),
			PGArrayLiteral(row.CuisinePreferences),
			row.UpdatedAt,
			id).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	saved := records[0].row()
	return &saved, nil
}

// GetProfile 讀取使用者基本資料
func (b *PostgresBackend) GetProfile(ctx context.Context, userID string) (*meal.ProfileRow, error) {
	var records []profileRecord
	if err := b.db.WithContext(ctx).
		Raw("SELECT id::text AS id, name FROM "+TableUsers+" WHERE id::text = ? LIMIT 1", userID).
		Scan(&records).Error; err != nil {
		return nil, wrapPgError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &meal.ProfileRow{ID: records[0].ID, Name: records[0].Name}, nil
}

// UpdateProfileName 更新顯示名稱
func (b *PostgresBackend) UpdateProfileName(ctx context.Context, userID, name string) error {
	return wrapPgError(b.db.WithContext(ctx).
		Exec("UPDATE "+TableUsers+" SET name = ? WHERE id::text = ?", name, userID).Error)
}

func mealRows(records []mealRecord) []meal.MealRow {
	rows := make([]meal.MealRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.row())
	}
	return rows
}

// wrapPgError 把資料庫錯誤轉為 APIError，保留 SQLSTATE 讓 ErrTableMissing 判斷生效
func wrapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &APIError{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	return fmt.Errorf("database error: %w", err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
