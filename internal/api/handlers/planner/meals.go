package planner

import (
	"net/http"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListMeals 目前工作階段的餐點清單
func (h *Handler) ListMeals(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meals":   store.Meals(),
		"loading": store.Loading(),
	})
}

// GetMeal 單一餐點
func (h *Handler) GetMeal(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	found, ok := store.Meal(c.Request.Context(), c.Param("id"))
	if !ok {
		h.fail(c, common.ErrMealNotFound)
		return
	}
	c.JSON(http.StatusOK, found)
}

// FilterMeals 依飲食限制篩選餐點
func (h *Handler) FilterMeals(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var filters meal.Filters
	if !h.bind(c, &filters) {
		return
	}
	meals := store.FilterMeals(c.Request.Context(), filters)
	common.LogDebug("餐點篩選完成",
		zap.Strings("dietary_restrictions", filters.DietaryRestrictions),
		zap.Int("count", len(meals)),
	)
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// ToggleSaved 切換收藏狀態
func (h *Handler) ToggleSaved(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	mealID := c.Param("id")
	saved := store.ToggleSaved(c.Request.Context(), mealID)
	c.JSON(http.StatusOK, gin.H{
		"mealId":  mealID,
		"isSaved": saved,
	})
}

// SavedMeals 已收藏的餐點
func (h *Handler) SavedMeals(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meals":   store.SavedMeals(),
		"mealIds": store.SavedMealIDs(),
	})
}
