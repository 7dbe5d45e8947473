package meal

// DemoSavedMealID 示範模式下預設已收藏的餐點
const DemoSavedMealID = "meal-2"

// SeedMeals 內建示範餐點；遠端回傳空資料、失敗或未登入時使用。
// 每次呼叫都回傳新的切片。
func SeedMeals() []Meal {
	return []Meal{
		{
			ID:              "meal-1",
			Title:           "Quinoa Bowl with Roasted Vegetables",
			Image:           "https://images.unsplash.com/photo-1512621776951-a57141f2eefd?w=500&q=80",
			PrepTime:        25,
			CookTime:        20,
			IngredientCount: 8,
			Servings:        4,
			DietaryTags:     []string{"Vegetarian", "Gluten-Free"},
			Ingredients: []Ingredient{
				{Name: "Quinoa", Amount: "1", Unit: "cup"},
				{Name: "Bell Peppers", Amount: "2", Unit: "whole"},
				{Name: "Zucchini", Amount: "1", Unit: "whole"},
				{Name: "Red Onion", Amount: "1", Unit: "whole"},
				{Name: "Olive Oil", Amount: "2", Unit: "tbsp"},
				{Name: "Lemon Juice", Amount: "1", Unit: "tbsp"},
				{Name: "Salt", Amount: "to taste", Unit: ""},
				{Name: "Pepper", Amount: "to taste", Unit: ""},
			},
			Instructions: []string{
				"Rinse quinoa under cold water",
				"Cook quinoa according to package instructions",
				"Chop vegetables into bite-sized pieces",
				"Toss vegetables with olive oil, salt, and pepper",
				"Roast vegetables at 425°F for 20 minutes",
				"Mix cooked quinoa with roasted vegetables",
				"Drizzle with lemon juice and serve",
			},
		},
		{
			ID:              "meal-2",
			Title:           "Avocado Toast with Poached Eggs",
			Image:           "https://images.unsplash.com/photo-1525351484163-7529414344d8?w=500&q=80",
			PrepTime:        15,
			CookTime:        10,
			IngredientCount: 5,
			Servings:        2,
			DietaryTags:     []string{"Vegetarian"},
			Ingredients: []Ingredient{
				{Name: "Whole Grain Bread", Amount: "2", Unit: "slices"},
				{Name: "Avocado", Amount: "1", Unit: "whole"},
				{Name: "Eggs", Amount: "2", Unit: "whole"},
				{Name: "Salt", Amount: "to taste", Unit: ""},
				{Name: "Pepper", Amount: "to taste", Unit: ""},
			},
			Instructions: []string{
				"Toast bread until golden brown",
				"Mash avocado and spread on toast",
				"Bring water to a simmer in a small pot",
				"Crack eggs into simmering water and cook for 3-4 minutes",
				"Remove eggs with a slotted spoon and place on avocado toast",
				"Season with salt and pepper",
			},
		},
		{
			ID:              "meal-3",
			Title:           "Chicken and Vegetable Stir Fry",
			Image:           "https://images.unsplash.com/photo-1512058564366-18510be2db19?w=500&q=80",
			PrepTime:        20,
			CookTime:        15,
			IngredientCount: 10,
			Servings:        4,
			DietaryTags:     []string{"High-Protein"},
			Ingredients: []Ingredient{
				{Name: "Chicken Breast", Amount: "1", Unit: "lb"},
				{Name: "Broccoli", Amount: "2", Unit: "cups"},
				{Name: "Carrots", Amount: "2", Unit: "whole"},
				{Name: "Bell Peppers", Amount: "1", Unit: "whole"},
				{Name: "Soy Sauce", Amount: "3", Unit: "tbsp"},
				{Name: "Garlic", Amount: "3", Unit: "cloves"},
				{Name: "Ginger", Amount: "1", Unit: "tbsp"},
				{Name: "Vegetable Oil", Amount: "2", Unit: "tbsp"},
				{Name: "Cornstarch", Amount: "1", Unit: "tsp"},
				{Name: "Rice", Amount: "2", Unit: "cups"},
			},
			Instructions: []string{
				"Cut chicken into bite-sized pieces",
				"Chop all vegetables",
				"Mix soy sauce, minced garlic, ginger, and cornstarch",
				"Heat oil in a wok or large pan",
				"Cook chicken until no longer pink",
				"Add vegetables and stir-fry until tender-crisp",
				"Pour sauce over and cook until thickened",
				"Serve over cooked rice",
			},
		},
	}
}

// DemoPantry 未登入時的示範庫存
func DemoPantry() []PantryItem {
	expiry := "2023-05-30"
	return []PantryItem{
		{ID: "1", Name: "Quinoa", Quantity: 2, Unit: "cups"},
		{ID: "2", Name: "Bell Peppers", Quantity: 3, Unit: "whole"},
		{ID: "3", Name: "Chicken Breast", Quantity: 1, Unit: "lb", ExpiryDate: &expiry},
	}
}

// FallbackPantry 已登入但讀取庫存失敗時的示範資料
func FallbackPantry() []PantryItem {
	return []PantryItem{
		{ID: "1", Name: "Quinoa", Quantity: 2, Unit: "cups"},
		{ID: "2", Name: "Bell Peppers", Quantity: 3, Unit: "whole"},
	}
}
