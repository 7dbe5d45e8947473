package planner

import (
	"net/http"
	"strings"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// PreferencesRequest 更新偏好
type PreferencesRequest struct {
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	MealPreferences     []string `json:"mealPreferences"`
	CuisinePreferences  []string `json:"cuisinePreferences"`
}

// ProfileRequest 更新名稱
type ProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetPreferences 使用者偏好
func (h *Handler) GetPreferences(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.LoadPreferences(c.Request.Context()))
}

// SavePreferences 儲存偏好，後端已有資料列時更新，否則新增
func (h *Handler) SavePreferences(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req PreferencesRequest
	if !h.bind(c, &req) {
		return
	}
	saved := store.SavePreferences(c.Request.Context(), meal.Preferences{
		DietaryRestrictions: req.DietaryRestrictions,
		MealPreferences:     req.MealPreferences,
		CuisinePreferences:  req.CuisinePreferences,
	})
	c.JSON(http.StatusOK, saved)
}

// GetProfile 使用者基本資料
func (h *Handler) GetProfile(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.Profile(c.Request.Context()))
}

// UpdateProfile 更新名稱
func (h *Handler) UpdateProfile(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if !h.bind(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, common.NewValidationError("name is required"))
		return
	}
	c.JSON(http.StatusOK, store.UpdateProfileName(c.Request.Context(), name))
}
