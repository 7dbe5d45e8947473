package meal

// MatchesDiet 餐點標籤與條件至少有一個交集即符合；條件為空時全部符合
func MatchesDiet(m Meal, restrictions []string) bool {
	if len(restrictions) == 0 {
		return true
	}
	wanted := make(map[string]struct{}, len(restrictions))
	for _, r := range restrictions {
		wanted[r] = struct{}{}
	}
	for _, tag := range m.DietaryTags {
		if _, ok := wanted[tag]; ok {
			return true
		}
	}
	return false
}

// FilterMeals 在記憶體中套用篩選條件，回傳新的切片
func FilterMeals(meals []Meal, filters Filters) []Meal {
	result := make([]Meal, 0, len(meals))
	for _, m := range meals {
		if MatchesDiet(m, filters.DietaryRestrictions) {
			result = append(result, m.Clone())
		}
	}
	return result
}
