package planner

import (
	"net/http"

	"meal-planner/internal/api/middleware"
	"meal-planner/internal/core/session"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 餐點規劃處理程序。後端失敗不會讓請求失敗，
// 工作階段會回傳備援或樂觀更新後的狀態；只有請求格式錯誤回 4xx。
type Handler struct {
	config *config.Config
}

// NewHandler 創建新的餐點規劃處理程序
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{config: cfg}
}

// store 取出工作階段，找不到時直接回應 500
func (h *Handler) store(c *gin.Context) (*session.Store, bool) {
	store := middleware.Store(c)
	if store == nil {
		common.LogError("Session not found in context", zap.String("path", c.Request.URL.Path))
		h.fail(c, common.ErrInternalError)
		return nil, false
	}
	return store, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, err, h.config.App.Debug)
}

// bind 解析請求體，失敗時回應 400
func (h *Handler) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		common.LogWarn("請求格式無效",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		h.fail(c, common.ErrInvalidRequest.Wrap(err))
		return false
	}
	return true
}

// GetSession 工作階段快照
func (h *Handler) GetSession(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.Snapshot())
}

// RefreshSession 重新執行初始化流程
func (h *Handler) RefreshSession(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	store.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, store.Snapshot())
}

// CalendarModalRequest 開啟「加入行事曆」視窗
type CalendarModalRequest struct {
	MealID string `json:"mealId" binding:"required"`
}

// OpenCalendarModal 發布開啟「加入行事曆」視窗的介面事件
func (h *Handler) OpenCalendarModal(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req CalendarModalRequest
	if !h.bind(c, &req) {
		return
	}
	store.OpenCalendarModal(req.MealID)
	c.JSON(http.StatusAccepted, gin.H{"mealId": req.MealID})
}
