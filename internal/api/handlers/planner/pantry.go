package planner

import (
	"net/http"
	"strings"

	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// PantryItemRequest 新增庫存食材
type PantryItemRequest struct {
	Name       string  `json:"name" binding:"required"`
	Quantity   int     `json:"quantity"`
	Unit       string  `json:"unit"`
	ExpiryDate *string `json:"expiryDate"`
}

// QuantityRequest 更新數量
type QuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// ListPantry 庫存清單
func (h *Handler) ListPantry(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": store.LoadPantry(c.Request.Context())})
}

// AddPantryItem 新增庫存食材
func (h *Handler) AddPantryItem(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req PantryItemRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.fail(c, common.NewValidationError("name is required"))
		return
	}
	item := store.AddPantryItem(c.Request.Context(), meal.PantryItem{
		Name:       req.Name,
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		ExpiryDate: req.ExpiryDate,
	})
	c.JSON(http.StatusCreated, item)
}

// UpdatePantryQuantity 更新數量，負數視為 0
func (h *Handler) UpdatePantryQuantity(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req QuantityRequest
	if !h.bind(c, &req) {
		return
	}
	item, found := store.UpdatePantryQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if !found {
		h.fail(c, common.ErrPantryNotFound)
		return
	}
	c.JSON(http.StatusOK, item)
}

// RemovePantryItem 刪除庫存食材
func (h *Handler) RemovePantryItem(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	if !store.RemovePantryItem(c.Request.Context(), c.Param("id")) {
		h.fail(c, common.ErrPantryNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
