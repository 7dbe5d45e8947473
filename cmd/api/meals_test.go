package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/core/gateway/gatewaytest"
	"meal-planner/internal/core/meal"
)

func TestFetchMeals(t *testing.T) {
	ctx := context.Background()

	t.Run("TagsCallFilterOnly", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.Meals = []meal.MealRow{
			{ID: "m1", Title: "Lentil Soup", DietaryTags: []string{"Vegan"}},
			{ID: "m2", Title: "Steak", DietaryTags: []string{"High-Protein"}},
		}

		meals, err := fetchMeals(ctx, gateway.New(fake), []string{"Vegan"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(meals) != 1 || meals[0].ID != "m1" {
			t.Errorf("Expected only m1, got %+v", meals)
		}
		if fake.Calls("ListMeals") != 0 || fake.Calls("FilterMeals") != 1 {
			t.Errorf("Expected a single filter call, got list=%d filter=%d",
				fake.Calls("ListMeals"), fake.Calls("FilterMeals"))
		}
	})

	t.Run("EmptyPrintsArray", func(t *testing.T) {
		fake := gatewaytest.New()

		meals, err := fetchMeals(ctx, gateway.New(fake), nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if fake.TotalCalls() != 1 {
			t.Errorf("Expected 1 backend call, got %d", fake.TotalCalls())
		}

		var buf bytes.Buffer
		if err := writeMeals(&buf, meals); err != nil {
			t.Fatalf("writeMeals failed: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != "[]" {
			t.Errorf("Expected [], got %q", got)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		fake := gatewaytest.New()
		fake.FailOn("ListMeals", errors.New("offline"))

		if _, err := fetchMeals(ctx, gateway.New(fake), nil); err == nil {
			t.Error("Expected error when backend fails")
		}
	})
}
