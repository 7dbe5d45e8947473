package middleware

import (
	"errors"

	"meal-planner/internal/core/session"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHeader 工作階段識別碼標頭
const SessionHeader = "X-Session-ID"

// Session 取得或建立工作階段，並依目前身分初始化。必須放在 Identity 之後。
func Session(manager *session.Manager, debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id = c.Query("session_id") // 瀏覽器 websocket 無法自訂標頭
		}

		store, created, err := manager.Acquire(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, session.ErrSessionLimit) {
				AbortWithError(c, common.ErrServiceUnavailable.Wrap(err), debug)
				return
			}
			AbortWithError(c, err, debug)
			return
		}
		if created {
			common.LogDebug("工作階段已建立", zap.String("session_id", store.ID()))
		}

		c.Header(SessionHeader, store.ID())
		store.EnsureIdentity(c.Request.Context(), UserID(c))
		c.Set(ContextSession, store)

		c.Next()
	}
}

// Store 取出目前請求的工作階段
func Store(c *gin.Context) *session.Store {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	store, _ := v.(*session.Store)
	return store
}
