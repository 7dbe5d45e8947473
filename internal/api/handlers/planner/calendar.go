package planner

import (
	"fmt"
	"net/http"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddCalendarRequest 新增行事曆項目
type AddCalendarRequest struct {
	MealID   string `json:"mealId" binding:"required"`
	Date     string `json:"date" binding:"required"`
	MealType string `json:"mealType" binding:"required"`
}

// ListCalendar 目前的行事曆
func (h *Handler) ListCalendar(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": store.CalendarEntries()})
}

// AddCalendarEntry 新增行事曆項目；餐別只在這裡驗證
func (h *Handler) AddCalendarEntry(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req AddCalendarRequest
	if !h.bind(c, &req) {
		return
	}
	if !meal.ValidMealType(req.MealType) {
		h.fail(c, common.ErrInvalidMealType.Wrap(fmt.Errorf("meal type %q", req.MealType)))
		return
	}
	date, err := meal.ParseDate(req.Date)
	if err != nil {
		h.fail(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	entry := store.AddCalendarEntry(c.Request.Context(), req.MealID, date, req.MealType)
	common.LogInfo("行事曆項目已新增",
		zap.String("session_id", store.ID()),
		zap.String("entry_id", entry.ID),
		zap.Bool("temporary", common.IsTempID(entry.ID)),
	)
	c.JSON(http.StatusCreated, entry)
}

// RemoveCalendarEntry 刪除行事曆項目
func (h *Handler) RemoveCalendarEntry(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	if !store.RemoveCalendarEntry(c.Request.Context(), c.Param("id")) {
		h.fail(c, common.ErrEntryNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
