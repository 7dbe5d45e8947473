package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readyTimeout = 3 * time.Second

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Backend   string                 `json:"backend"`
	DemoOnly  bool                   `json:"demo_only"`
	Runtime   map[string]interface{} `json:"runtime"`
	Sessions  map[string]interface{} `json:"sessions"`
}

// SessionStats 工作階段管理器的統計與連線檢查
type SessionStats interface {
	GetStats() map[string]interface{}
	Ping(ctx context.Context) error
}

// Handler 健康檢查處理程序
type Handler struct {
	config   *config.Config
	gateway  *gateway.Gateway
	sessions SessionStats
}

// NewHandler 創建健康檢查處理程序
func NewHandler(cfg *config.Config, gw *gateway.Gateway, sessions SessionStats) *Handler {
	return &Handler{config: cfg, gateway: gw, sessions: sessions}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	backend := "demo"
	if h.gateway != nil {
		backend = h.gateway.BackendName()
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.config.App.Version,
		Backend:   backend,
		DemoOnly:  h.config.DemoOnly(),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Sessions: h.sessions.GetStats(),
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：工作階段索引與資料後端都可用。
// 示範模式不檢查資料後端。
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	checks := gin.H{}
	ready := true

	if err := h.sessions.Ping(ctx); err != nil {
		checks["sessions"] = err.Error()
		ready = false
	} else {
		checks["sessions"] = "ok"
	}

	switch {
	case h.config.DemoOnly() || h.gateway == nil:
		checks["backend"] = "demo"
	default:
		if res := h.gateway.Ping(ctx); res.IsFailed() {
			checks["backend"] = res.Err.Error()
			ready = false
		} else {
			checks["backend"] = "ok"
		}
	}

	if !ready {
		common.LogWarn("就緒檢查失敗", zap.Any("checks", checks))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"code":   common.ErrCodeServiceUnavailable,
			"checks": checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
