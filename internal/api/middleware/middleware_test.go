package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// identityRouter 回傳使用者與轉交給後端的權杖
func identityRouter(secret string) *gin.Engine {
	cfg := &config.Config{Supabase: config.SupabaseConfig{JWTSecret: secret}}
	r := gin.New()
	r.Use(Identity(cfg))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":  UserID(c),
			"token": gateway.AccessToken(c.Request.Context()),
		})
	})
	return r
}

func TestIdentity(t *testing.T) {
	secret := "test-secret"
	valid := signToken(t, secret, "user-1", time.Now().Add(time.Hour))

	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"anonymous", secret, "", http.StatusOK, ""},
		{"verified", secret, "Bearer " + valid, http.StatusOK, "user-1"},
		{"wrong secret", "other-secret", "Bearer " + valid, http.StatusUnauthorized, ""},
		{"unverified without secret", "", "Bearer " + valid, http.StatusOK, "user-1"},
		{"expired", secret, "Bearer " + signToken(t, secret, "user-1", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"expired without secret", "", "Bearer " + signToken(t, secret, "user-1", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"no subject", secret, "Bearer " + signToken(t, secret, "", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
		{"not bearer", secret, "Basic abc", http.StatusUnauthorized, ""},
		{"garbage", "", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			identityRouter(tt.secret).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if !strings.Contains(w.Body.String(), "INVALID_TOKEN") {
					t.Errorf("Expected INVALID_TOKEN code, got %s", w.Body.String())
				}
				return
			}
			if !strings.Contains(w.Body.String(), `"user":"`+tt.wantUser+`"`) {
				t.Errorf("Expected user %q, got %s", tt.wantUser, w.Body.String())
			}
			if tt.wantUser != "" && !strings.Contains(w.Body.String(), valid) {
				t.Error("Expected access token forwarded in request context")
			}
		})
	}
}

func TestClientLimiter(t *testing.T) {
	now := time.Now()
	cl := NewClientLimiter(2, time.Minute)
	cl.now = func() time.Time { return now }

	if !cl.Allow("a") || !cl.Allow("a") {
		t.Fatal("Expected first two requests allowed")
	}
	if cl.Allow("a") {
		t.Error("Expected third request limited")
	}
	if !cl.Allow("b") {
		t.Error("Expected other client to have its own bucket")
	}

	now = now.Add(30 * time.Second)
	if !cl.Allow("a") {
		t.Error("Expected token refilled after half a window")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(session string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(SessionHeader, session)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("s1"); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if code := send("s1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", code)
	}
	if code := send("s2"); code != http.StatusOK {
		t.Errorf("Expected separate session allowed, got %d", code)
	}
}

func TestDeduplication(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header(SessionHeader, c.GetHeader(SessionHeader))
		c.Next()
	})
	r.Use(Deduplication(time.Minute, "/toggle/:id"))
	r.POST("/calendar", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/toggle/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(path, session, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set(SessionHeader, session)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	body := `{"mealId":"meal-1","date":"2024-03-04","mealType":"lunch"}`
	if code := send("/calendar", "s1", body); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}
	if code := send("/calendar", "s1", body); code != http.StatusTooManyRequests {
		t.Errorf("Expected duplicate rejected, got %d", code)
	}
	if code := send("/calendar", "s2", body); code != http.StatusCreated {
		t.Errorf("Expected other session accepted, got %d", code)
	}
	if code := send("/calendar", "s1", `{"mealId":"meal-2"}`); code != http.StatusCreated {
		t.Errorf("Expected different body accepted, got %d", code)
	}

	for i := 0; i < 3; i++ {
		if code := send("/toggle/meal-1", "s1", ""); code != http.StatusOK {
			t.Fatalf("Expected toggles never deduplicated, got %d", code)
		}
	}
}

func TestDeduplicatorWindow(t *testing.T) {
	now := time.Now()
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	if d.Seen("x") {
		t.Fatal("Expected first request unseen")
	}
	if !d.Seen("x") {
		t.Error("Expected repeat inside window seen")
	}
	now = now.Add(2 * time.Second)
	if d.Seen("x") {
		t.Error("Expected repeat after window unseen")
	}
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/ws", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected 504, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected websocket upgrade without deadline, got %d", w.Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
}
