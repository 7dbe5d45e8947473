package api

import (
	"fmt"
	"time"

	"meal-planner/internal/api/handlers/events"
	"meal-planner/internal/api/handlers/health"
	"meal-planner/internal/api/handlers/planner"
	"meal-planner/internal/api/middleware"
	"meal-planner/internal/core/gateway"
	"meal-planner/internal/core/session"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 不做去重的路由：連續切換收藏是合法操作，篩選與重新整理不會改變資料
var dedupSkipPaths = []string{
	"/api/v1/meals/:id/toggle-save",
	"/api/v1/meals/filter",
	"/api/v1/session/refresh",
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, manager *session.Manager, gw *gateway.Gateway) (*gin.Engine, error) {
	if manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("demo_only", cfg.DemoOnly()),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodySize))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, gw, manager)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組：身分 → 限流 → 超時 → 工作階段
	api := router.Group("/api/v1")
	api.Use(middleware.Identity(cfg))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	api.Use(middleware.Session(manager, cfg.App.Debug))

	api.GET("/session/events", events.Stream)

	h := planner.NewHandler(cfg)
	rest := api.Group("")
	rest.Use(middleware.Deduplication(cfg.DedupWindow, dedupSkipPaths...))
	{
		sessionGroup := rest.Group("/session")
		{
			sessionGroup.GET("", h.GetSession)
			sessionGroup.POST("/refresh", h.RefreshSession)
			sessionGroup.POST("/ui/calendar-modal", h.OpenCalendarModal)
		}

		mealGroup := rest.Group("/meals")
		{
			mealGroup.GET("", h.ListMeals)
			mealGroup.GET("/saved", h.SavedMeals)
			mealGroup.POST("/filter", h.FilterMeals)
			mealGroup.GET("/:id", h.GetMeal)
			mealGroup.POST("/:id/toggle-save", h.ToggleSaved)
		}

		calendarGroup := rest.Group("/calendar")
		{
			calendarGroup.GET("", h.ListCalendar)
			calendarGroup.POST("", h.AddCalendarEntry)
			calendarGroup.DELETE("/:id", h.RemoveCalendarEntry)
		}

		pantryGroup := rest.Group("/pantry")
		{
			pantryGroup.GET("", h.ListPantry)
			pantryGroup.POST("", h.AddPantryItem)
			pantryGroup.PATCH("/:id", h.UpdatePantryQuantity)
			pantryGroup.DELETE("/:id", h.RemovePantryItem)
		}

		rest.GET("/preferences", h.GetPreferences)
		rest.PUT("/preferences", h.SavePreferences)
		rest.GET("/profile", h.GetProfile)
		rest.PUT("/profile", h.UpdateProfile)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Int64("max_body_size", cfg.Server.MaxBodySize),
	)

	return router, nil
}
