package meal

import "testing"

func TestFilterMeals(t *testing.T) {
	meals := SeedMeals()

	t.Run("EmptyCriteria", func(t *testing.T) {
		got := FilterMeals(meals, Filters{})
		if len(got) != len(meals) {
			t.Errorf("Expected %d meals, got %d", len(meals), len(got))
		}
	})

	t.Run("Overlap", func(t *testing.T) {
		restrictions := []string{"Gluten-Free", "High-Protein"}
		got := FilterMeals(meals, Filters{DietaryRestrictions: restrictions})
		if len(got) != 2 {
			t.Fatalf("Expected 2 meals, got %d", len(got))
		}
		for _, m := range got {
			if !MatchesDiet(m, restrictions) {
				t.Errorf("Meal %s has no tag in %v", m.ID, restrictions)
			}
		}
	})

	t.Run("MealTypesIgnored", func(t *testing.T) {
		got := FilterMeals(meals, Filters{MealTypes: []string{MealTypeBreakfast}})
		if len(got) != len(meals) {
			t.Errorf("Expected meal types to be ignored, got %d meals", len(got))
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		got := FilterMeals(meals, Filters{DietaryRestrictions: []string{"Keto"}})
		if len(got) != 0 {
			t.Errorf("Expected no meals, got %d", len(got))
		}
	})
}

func TestSeedMeals(t *testing.T) {
	a := SeedMeals()
	b := SeedMeals()
	a[0].Title = "changed"
	if b[0].Title == "changed" {
		t.Error("Expected independent seed copies")
	}

	found := false
	for _, m := range a {
		if m.ID == DemoSavedMealID {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected demo saved meal %s in seed set", DemoSavedMealID)
	}
}

func TestValidMealType(t *testing.T) {
	if !ValidMealType(MealTypeSnack) {
		t.Error("Expected snack to be valid")
	}
	if ValidMealType("brunch") {
		t.Error("Expected brunch to be invalid")
	}
}
