package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"meal-planner/internal/core/gateway/gatewaytest"
	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"
)

func seedRows() []meal.MealRow {
	return []meal.MealRow{
		{ID: "m1", Title: "Salad", Servings: 2, DietaryTags: []string{"Vegan"}, Ingredients: json.RawMessage(`[]`)},
		{ID: "m2", Title: "Steak", Servings: 1, DietaryTags: []string{"Keto"}, Instructions: json.RawMessage(`"[\"Grill\"]"`)},
		{ID: "m3", Title: "Toast", Servings: 1},
	}
}

func TestListMeals(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		gw := New(gatewaytest.New())
		res := gw.ListMeals(ctx)
		if !res.IsEmpty() {
			t.Fatalf("Expected Empty, got %s", res.Status)
		}
	})

	t.Run("Failed", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.FailOn("ListMeals", errors.New("connection refused"))
		res := New(fake).ListMeals(ctx)
		if !res.IsFailed() || res.Err == nil {
			t.Fatalf("Expected Failed with reason, got %s", res.Status)
		}
		if res.Value == nil || len(res.Value) != 0 {
			t.Errorf("Expected empty fallback slice, got %#v", res.Value)
		}
	})

	t.Run("Transforms", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.Meals = seedRows()
		res := New(fake).ListMeals(ctx)
		if !res.IsOK() {
			t.Fatalf("Expected OK, got %s", res.Status)
		}
		if len(res.Value) != 3 {
			t.Fatalf("Expected 3 meals, got %d", len(res.Value))
		}
		if got := res.Value[1].Instructions; len(got) != 1 || got[0] != "Grill" {
			t.Errorf("Expected JSON-string instructions to decode, got %#v", got)
		}
		if res.Value[2].DietaryTags == nil {
			t.Error("Expected non-nil dietary tags")
		}
	})

	t.Run("PanicBecomesFailed", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.PanicOn("ListMeals")
		res := New(fake).ListMeals(ctx)
		if !res.IsFailed() {
			t.Fatalf("Expected Failed after panic, got %s", res.Status)
		}
	})
}

func TestGetMeal(t *testing.T) {
	fake := gatewaytest.New()
	fake.Meals = seedRows()
	gw := New(fake)

	if res := gw.GetMeal(context.Background(), "m2"); !res.IsOK() || res.Value.Title != "Steak" {
		t.Errorf("Expected Steak, got %s %+v", res.Status, res.Value)
	}
	if res := gw.GetMeal(context.Background(), "missing"); !res.IsEmpty() {
		t.Errorf("Expected Empty for unknown id, got %s", res.Status)
	}
}

func TestFilterMeals(t *testing.T) {
	ctx := context.Background()
	fake := gatewaytest.New()
	fake.Meals = seedRows()
	gw := New(fake)

	res := gw.FilterMeals(ctx, meal.Filters{MealTypes: []string{"dinner"}})
	if !res.IsOK() || len(res.Value) != 3 {
		t.Fatalf("Expected all meals for empty diet criteria, got %s %d", res.Status, len(res.Value))
	}
	if fake.Calls("FilterMeals") != 0 {
		t.Errorf("Expected no filter query for empty criteria")
	}

	res = gw.FilterMeals(ctx, meal.Filters{DietaryRestrictions: []string{"Vegan", "Paleo"}})
	if !res.IsOK() || len(res.Value) != 1 || res.Value[0].ID != "m1" {
		t.Fatalf("Expected only m1, got %s %+v", res.Status, res.Value)
	}

	res = gw.FilterMeals(ctx, meal.Filters{DietaryRestrictions: []string{"Paleo"}})
	if !res.IsEmpty() {
		t.Errorf("Expected Empty when nothing overlaps, got %s", res.Status)
	}
}

func TestSetSaved(t *testing.T) {
	ctx := context.Background()

	t.Run("AlreadyInDesiredState", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.SetSaved("u1", "m1", true)
		res := New(fake).SetSaved(ctx, "m1", "u1", true)
		if !res.IsOK() || !res.Value {
			t.Fatalf("Expected OK(true), got %s %v", res.Status, res.Value)
		}
		if fake.Calls("InsertSavedMeal") != 0 {
			t.Error("Expected no insert when already saved")
		}
	})

	t.Run("InsertAndDelete", func(t *testing.T) {
		fake := gatewaytest.New()
		gw := New(fake)
		if res := gw.SetSaved(ctx, "m1", "u1", true); !res.IsOK() || !res.Value {
			t.Fatalf("Expected OK(true), got %s %v", res.Status, res.Value)
		}
		if !fake.Saved["u1"]["m1"] {
			t.Fatal("Expected link to exist")
		}
		if res := gw.SetSaved(ctx, "m1", "u1", false); !res.IsOK() || res.Value {
			t.Fatalf("Expected OK(false), got %s %v", res.Status, res.Value)
		}
		if fake.Saved["u1"]["m1"] {
			t.Error("Expected link to be removed")
		}
	})

	t.Run("WriteFailureReportsCurrent", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.FailOn("InsertSavedMeal", errors.New("rls violation"))
		res := New(fake).SetSaved(ctx, "m1", "u1", true)
		if !res.IsFailed() || res.Value {
			t.Fatalf("Expected Failed(false), got %s %v", res.Status, res.Value)
		}
	})
}

func TestAddCalendarEntry(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	t.Run("Confirmed", func(t *testing.T) {
		fake := gatewaytest.New()
		res := New(fake).AddCalendarEntry(ctx, "m1", date, meal.MealTypeDinner, "Salad", "u1")
		if !res.IsOK() {
			t.Fatalf("Expected OK, got %s (%v)", res.Status, res.Err)
		}
		if res.Value.ID == "" || common.IsTempID(res.Value.ID) {
			t.Errorf("Expected confirmed id, got %q", res.Value.ID)
		}
		if !res.Value.Date.Equal(date) {
			t.Errorf("Expected date %v, got %v", date, res.Value.Date)
		}
	})

	t.Run("TableMissing", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.FailOn("InsertCalendarEntry", &APIError{Status: 404, Code: "42P01", Message: `relation "calendar_entries" does not exist`})
		res := New(fake).AddCalendarEntry(ctx, "m1", date, meal.MealTypeLunch, "Salad", "u1")
		if !res.IsFailed() {
			t.Fatalf("Expected Failed, got %s", res.Status)
		}
		if !errors.Is(res.Err, ErrTableMissing) {
			t.Errorf("Expected ErrTableMissing, got %v", res.Err)
		}
		if !common.IsTempID(res.Value.ID) {
			t.Errorf("Expected temp id stand-in, got %q", res.Value.ID)
		}
		if res.Value.MealID != "m1" || res.Value.Title != "Salad" || res.Value.MealType != meal.MealTypeLunch {
			t.Errorf("Unexpected stand-in %+v", res.Value)
		}
	})

	t.Run("NoRowReturned", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.NoReturn = true
		res := New(fake).AddCalendarEntry(ctx, "m1", date, meal.MealTypeSnack, "Salad", "u1")
		if !res.IsFailed() || !common.IsTempID(res.Value.ID) {
			t.Fatalf("Expected Failed with temp id, got %s %q", res.Status, res.Value.ID)
		}
	})
}

func TestRemoveCalendarEntry(t *testing.T) {
	ctx := context.Background()
	fake := gatewaytest.New()
	gw := New(fake)

	if res := gw.RemoveCalendarEntry(ctx, common.NewTempID()); !res.IsOK() {
		t.Fatalf("Expected OK for temp id, got %s", res.Status)
	}
	if fake.Calls("DeleteCalendarEntry") != 0 {
		t.Error("Expected no remote call for temp id")
	}

	fake.FailOn("DeleteCalendarEntry", errors.New("timeout"))
	if res := gw.RemoveCalendarEntry(ctx, "cal-1"); !res.IsFailed() {
		t.Errorf("Expected Failed, got %s", res.Status)
	}
}

func TestPantry(t *testing.T) {
	ctx := context.Background()
	fake := gatewaytest.New()
	gw := New(fake)

	added := gw.AddPantryItem(ctx, meal.PantryItem{Name: "Rice", Quantity: 2, Unit: "kg"}, "u1")
	if !added.IsOK() || common.IsTempID(added.Value.ID) {
		t.Fatalf("Expected confirmed pantry item, got %s %+v", added.Status, added.Value)
	}

	if res := gw.UpdatePantryQuantity(ctx, added.Value.ID, 5); !res.IsOK() {
		t.Fatalf("Expected OK update, got %s", res.Status)
	}
	if fake.Pantry[0].Quantity != 5 {
		t.Errorf("Expected quantity 5, got %d", fake.Pantry[0].Quantity)
	}

	list := gw.ListPantry(ctx, "u1")
	if !list.IsOK() || len(list.Value) != 1 {
		t.Fatalf("Expected 1 pantry item, got %s %d", list.Status, len(list.Value))
	}

	fake.FailOn("InsertPantryItem", errors.New("boom"))
	failed := gw.AddPantryItem(ctx, meal.PantryItem{Name: "Beans"}, "u1")
	if !failed.IsFailed() || !common.IsTempID(failed.Value.ID) || failed.Value.Name != "Beans" {
		t.Errorf("Expected temp stand-in, got %s %+v", failed.Status, failed.Value)
	}

	if res := gw.RemovePantryItem(ctx, added.Value.ID); !res.IsOK() || len(fake.Pantry) != 0 {
		t.Errorf("Expected item removed, got %s", res.Status)
	}
}

func TestSavePreferences(t *testing.T) {
	ctx := context.Background()
	fake := gatewaytest.New()
	gw := New(fake)
	gw.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	if res := gw.GetPreferences(ctx, "u1"); !res.IsEmpty() {
		t.Fatalf("Expected Empty before save, got %s", res.Status)
	}

	first := gw.SavePreferences(ctx, meal.Preferences{UserID: "u1", DietaryRestrictions: []string{"Vegan"}})
	if !first.IsOK() || first.Value.ID == "" {
		t.Fatalf("Expected inserted preferences, got %s %+v", first.Status, first.Value)
	}
	if fake.Calls("InsertPreferences") != 1 || fake.Calls("UpdatePreferences") != 0 {
		t.Fatalf("Expected insert on first save")
	}

	second := gw.SavePreferences(ctx, meal.Preferences{UserID: "u1", CuisinePreferences: []string{"Thai"}})
	if !second.IsOK() || second.Value.ID != first.Value.ID {
		t.Fatalf("Expected update of existing row, got %s %+v", second.Status, second.Value)
	}
	if fake.Calls("UpdatePreferences") != 1 || len(fake.Preferences) != 1 {
		t.Errorf("Expected a single row updated in place")
	}
	if !second.Value.UpdatedAt.Equal(gw.now()) {
		t.Errorf("Expected updatedAt to be stamped, got %v", second.Value.UpdatedAt)
	}

	fake.FailOn("GetPreferences", errors.New("down"))
	if res := gw.SavePreferences(ctx, meal.Preferences{UserID: "u1"}); !res.IsFailed() {
		t.Errorf("Expected Failed when lookup fails, got %s", res.Status)
	}
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	fake := gatewaytest.New()
	gw := New(fake)

	if res := gw.GetProfile(ctx, "u1"); !res.IsEmpty() {
		t.Fatalf("Expected Empty for unknown user, got %s", res.Status)
	}
	if res := gw.UpdateProfileName(ctx, "u1", "  Ada  "); !res.IsOK() || res.Value.Name != "Ada" {
		t.Fatalf("Expected trimmed name, got %s %+v", res.Status, res.Value)
	}
	if res := gw.GetProfile(ctx, "u1"); !res.IsOK() || res.Value.Name != "Ada" {
		t.Errorf("Expected Ada, got %s %+v", res.Status, res.Value)
	}
}
