package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/infrastructure/config"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *RESTBackend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Supabase: config.SupabaseConfig{
			URL:     server.URL,
			AnonKey: "anon-key",
			Timeout: 2 * time.Second,
		},
	}
	return NewRESTBackend(cfg)
}

func TestRESTListMeals(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rest/v1/meals" {
				t.Errorf("Expected path /rest/v1/meals, got %s", r.URL.Path)
			}
			if r.Header.Get("apikey") != "anon-key" {
				t.Errorf("Expected apikey header, got %q", r.Header.Get("apikey"))
			}
			if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
				t.Errorf("Expected user bearer token, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintln(w, `[
				{"id":"m1","title":"Salad","prep_time":5,"cook_time":0,"servings":2,"dietary_tags":["Vegan"],
				 "ingredients":"[{\"name\":\"Lettuce\",\"amount\":\"1\",\"unit\":\"head\"}]","instructions":["Toss"],
				 "created_at":"2024-01-01T00:00:00.123456"}
			]`)
		})

		ctx := WithAccessToken(context.Background(), "user-token")
		rows, err := backend.ListMeals(ctx)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("Expected 1 row, got %d", len(rows))
		}
		m := meal.MealFromRow(rows[0])
		if len(m.Ingredients) != 1 || m.Ingredients[0].Name != "Lettuce" {
			t.Errorf("Expected JSON-string ingredients to decode, got %#v", m.Ingredients)
		}
	})

	t.Run("AnonFallback", func(t *testing.T) {
		backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
				t.Errorf("Expected anon bearer token, got %q", got)
			}
			fmt.Fprintln(w, `[]`)
		})
		rows, err := backend.ListMeals(context.Background())
		if err != nil || len(rows) != 0 {
			t.Fatalf("Expected empty rows, got %d (%v)", len(rows), err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		if _, err := backend.ListMeals(context.Background()); err == nil {
			t.Fatal("Expected an error for 500 status, got nil")
		}
	})
}

func TestRESTFilterMeals(t *testing.T) {
	backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		want := `ov.{"Vegan","Gluten-Free"}`
		if got := r.URL.Query().Get("dietary_tags"); got != want {
			t.Errorf("Expected filter %s, got %s", want, got)
		}
		fmt.Fprintln(w, `[{"id":"m1","title":"Salad","dietary_tags":["Vegan"]}]`)
	})

	rows, err := backend.FilterMeals(context.Background(), []string{"Vegan", "Gluten-Free"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(rows))
	}
}

func TestRESTInsertCalendarEntry(t *testing.T) {
	t.Run("ReturnsRow", func(t *testing.T) {
		backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			if r.Header.Get("Prefer") != "return=representation" {
				t.Errorf("Expected representation preference, got %q", r.Header.Get("Prefer"))
			}
			body, _ := io.ReadAll(r.Body)
			var rows []meal.CalendarEntryRow
			if err := json.Unmarshal(body, &rows); err != nil || len(rows) != 1 {
				t.Errorf("Expected one row in body, got %s", body)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if rows[0].ID != "" {
				t.Errorf("Expected insert without id, got %q", rows[0].ID)
			}
			rows[0].ID = "11111111-2222-3333-4444-555555555555"
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(rows)
		})

		created, err := backend.InsertCalendarEntry(context.Background(), meal.CalendarEntryRow{
			UserID: "u1", MealID: "m1", Date: "2024-03-04T00:00:00Z", MealType: "dinner", Title: "Salad",
		})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if created == nil || created.ID == "" {
			t.Fatalf("Expected created row with id, got %+v", created)
		}
	})

	t.Run("TableMissing", func(t *testing.T) {
		backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"code":"42P01","message":"relation \"public.calendar_entries\" does not exist"}`)
		})

		_, err := backend.InsertCalendarEntry(context.Background(), meal.CalendarEntryRow{UserID: "u1", MealID: "m1"})
		if !errors.Is(err, ErrTableMissing) {
			t.Fatalf("Expected ErrTableMissing, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
			t.Errorf("Expected APIError with status 404, got %v", err)
		}
	})
}

func TestRESTSavedMeals(t *testing.T) {
	backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user_id") != "eq.u1" {
			t.Errorf("Expected user filter, got %q", q.Get("user_id"))
		}
		switch r.Method {
		case http.MethodGet:
			if q.Get("meal_id") == "eq.m2" {
				fmt.Fprintln(w, `[{"meal_id":"m2"}]`)
				return
			}
			fmt.Fprintln(w, `[{"meal_id":"m2"},{"meal_id":"m3"}]`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("Unexpected method %s", r.Method)
		}
	})

	ctx := context.Background()
	ids, err := backend.ListSavedMealIDs(ctx, "u1")
	if err != nil || len(ids) != 2 || ids[0] != "m2" {
		t.Fatalf("Expected [m2 m3], got %v (%v)", ids, err)
	}
	saved, err := backend.IsMealSaved(ctx, "u1", "m2")
	if err != nil || !saved {
		t.Fatalf("Expected m2 saved, got %v (%v)", saved, err)
	}
	if err := backend.DeleteSavedMeal(ctx, "u1", "m2"); err != nil {
		t.Errorf("Expected no error on delete, got %v", err)
	}
}

func TestRESTUpdatePantryQuantity(t *testing.T) {
	backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH, got %s", r.Method)
		}
		if r.URL.Query().Get("id") != "eq.p1" {
			t.Errorf("Expected id filter, got %q", r.URL.Query().Get("id"))
		}
		var body map[string]int
		json.NewDecoder(r.Body).Decode(&body)
		if body["quantity"] != 3 {
			t.Errorf("Expected quantity 3, got %v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := backend.UpdatePantryQuantity(context.Background(), "p1", 3); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestRESTGetPreferences(t *testing.T) {
	backend := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("Expected limit=1")
		}
		fmt.Fprintln(w, `[]`)
	})

	row, err := backend.GetPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if row != nil {
		t.Errorf("Expected nil row when none exists, got %+v", row)
	}
}

func TestPGArrayLiteral(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "{}"},
		{[]string{"Vegan"}, `{"Vegan"}`},
		{[]string{"Low Carb", `Say "hi"`}, `{"Low Carb","Say \"hi\""}`},
	}
	for _, tt := range tests {
		if got := PGArrayLiteral(tt.in); got != tt.want {
			t.Errorf("PGArrayLiteral(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
