package middleware

import (
	"errors"
	"strings"
	"time"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// gin context 鍵
const (
	ContextUserID  = "user_id"
	ContextSession = "session"
)

// Identity 從 Authorization: Bearer 取出使用者身分。
// 沒有權杖時視為未登入（示範模式）；權杖無效時回傳 401。
// 設定 JWT 密鑰時驗證簽章，否則只解析 sub，權杖照原樣轉交後端，由後端驗證。
func Identity(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.Supabase.JWTSecret)
	if len(secret) == 0 {
		common.LogWarn("未設定 SUPABASE_JWT_SECRET，存取權杖僅解析不驗證簽章")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			AbortWithError(c, common.ErrInvalidToken, cfg.App.Debug)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		userID, err := subject(parser, tokenString, secret)
		if err != nil {
			common.LogWarn("存取權杖無效",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			AbortWithError(c, common.ErrInvalidToken.Wrap(err), cfg.App.Debug)
			return
		}

		c.Set(ContextUserID, userID)
		c.Request = c.Request.WithContext(gateway.WithAccessToken(c.Request.Context(), tokenString))
		c.Next()
	}
}

func subject(parser *jwt.Parser, tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	if len(secret) > 0 {
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil {
			return "", err
		}
		if !token.Valid {
			return "", errors.New("invalid token")
		}
	} else {
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return "", err
		}
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			return "", jwt.ErrTokenExpired
		}
	}

	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// UserID 目前請求的使用者，未登入為空字串
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
