package gateway

import (
	"errors"
	"reflect"
	"testing"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapPgError(t *testing.T) {
	t.Run("UndefinedTable", func(t *testing.T) {
		err := wrapPgError(&pgconn.PgError{Code: "42P01", Message: `relation "pantry" does not exist`})
		if !errors.Is(err, ErrTableMissing) {
			t.Fatalf("Expected ErrTableMissing, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Code != "42P01" {
			t.Errorf("Expected APIError with SQLSTATE, got %#v", err)
		}
	})

	t.Run("WrappedByDriver", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42P01"}
		err := wrapPgError(errors.Join(errors.New("scan failed"), pgErr))
		if !errors.Is(err, ErrTableMissing) {
			t.Errorf("Expected ErrTableMissing through wrapping, got %v", err)
		}
	})

	t.Run("OtherSQLState", func(t *testing.T) {
		err := wrapPgError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
		if errors.Is(err, ErrTableMissing) {
			t.Errorf("Unique violation must not read as missing table: %v", err)
		}
	})

	t.Run("NonPostgres", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := wrapPgError(cause)
		if !errors.Is(err, cause) || errors.Is(err, ErrTableMissing) {
			t.Errorf("Expected wrapped cause, got %v", err)
		}
	})

	if wrapPgError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestRawJSONScan(t *testing.T) {
	tests := []struct {
		name string
		src  interface{}
		want []string
	}{
		{"Nil", nil, []string{}},
		{"Bytes", []byte(`["Vegan","Gluten-Free"]`), []string{"Vegan", "Gluten-Free"}},
		{"String", `["Keto"]`, []string{"Keto"}},
		{"JSONNull", []byte(`null`), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r rawJSON
			if err := r.Scan(tt.src); err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			got := r.strings("dietary_tags")
			if got == nil {
				got = []string{}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		var r rawJSON
		if err := r.Scan(42); err == nil {
			t.Error("Expected error for int source")
		}
	})

	t.Run("ScanCopiesBuffer", func(t *testing.T) {
		src := []byte(`["a"]`)
		var r rawJSON
		if err := r.Scan(src); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		src[2] = 'b'
		if got := r.strings("tags"); len(got) != 1 || got[0] != "a" {
			t.Errorf("Expected scanned value independent of driver buffer, got %v", got)
		}
	})
}

func TestRawJSONStringsLogsDecodeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := common.Logger
	common.Logger = zap.New(core)
	t.Cleanup(func() { common.Logger = previous })

	got := rawJSON(`{"not":"an array"}`).strings("meal_preferences")
	if len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}

	entries := logs.FilterField(zap.String("column", "meal_preferences")).All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("Expected one error log for the column, got %+v", logs.All())
	}
}

func TestMealRecordRow(t *testing.T) {
	created := "2024-03-01T10:00:00.123456+00:00"
	rec := mealRecord{
		ID:           "meal-1",
		Title:        "Quinoa Bowl",
		Servings:     2,
		DietaryTags:  rawJSON(`["Vegetarian","Gluten-Free"]`),
		Ingredients:  rawJSON(`[{"name":"Quinoa","amount":1,"unit":"cup"},{"name":"Salt","amount":"to taste"}]`),
		Instructions: rawJSON(`["Rinse","Simmer"]`),
		CreatedAt:    &created,
	}

	row := rec.row()
	if !reflect.DeepEqual(row.DietaryTags, []string{"Vegetarian", "Gluten-Free"}) {
		t.Errorf("Unexpected dietary tags %v", row.DietaryTags)
	}
	if row.CreatedAt != created {
		t.Errorf("Expected created_at %q, got %q", created, row.CreatedAt)
	}

	m := meal.MealFromRow(row)
	want := []meal.Ingredient{
		{Name: "Quinoa", Amount: "1", Unit: "cup"},
		{Name: "Salt", Amount: "to taste"},
	}
	if !reflect.DeepEqual(m.Ingredients, want) {
		t.Errorf("Expected ingredients %+v, got %+v", want, m.Ingredients)
	}
	if !reflect.DeepEqual(m.Instructions, []string{"Rinse", "Simmer"}) {
		t.Errorf("Unexpected instructions %v", m.Instructions)
	}
}

func TestRecordRowsTrimNullableColumns(t *testing.T) {
	date := "2024-03-04T00:00:00+00:00"
	unit := " kg "
	expiry := "2024-04-01"

	cal := calendarRecord{ID: "cal-1", UserID: "u1", MealID: "meal-1", Date: &date, MealType: "dinner"}.row()
	if cal.Date != date || cal.Title != "" {
		t.Errorf("Unexpected calendar row %+v", cal)
	}

	pantry := pantryRecord{ID: "p-1", UserID: "u1", Name: "Rice", Quantity: 2, Unit: &unit, ExpiryDate: &expiry}.row()
	if pantry.Unit != "kg" || pantry.ExpiryDate == nil || *pantry.ExpiryDate != expiry {
		t.Errorf("Unexpected pantry row %+v", pantry)
	}

	prefs := preferencesRecord{
		ID:                  "prefs-1",
		UserID:              "u1",
		DietaryRestrictions: rawJSON(`["Vegan"]`),
	}.row()
	if !reflect.DeepEqual(prefs.DietaryRestrictions, []string{"Vegan"}) ||
		len(prefs.MealPreferences) != 0 || prefs.CuisinePreferences == nil {
		t.Errorf("Unexpected preferences row %+v", prefs)
	}
}
