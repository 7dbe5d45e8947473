package events

import (
	"net/http"
	"time"

	"meal-planner/internal/api/middleware"
	"meal-planner/internal/core/session"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // 由 CORS 設定把關
}

// Stream 以 websocket 推送工作階段事件，連線在工作階段被淘汰時結束
func Stream(c *gin.Context) {
	store := middleware.Store(c)
	if store == nil {
		middleware.AbortWithError(c, common.ErrInternalError, false)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		common.LogWarn("websocket 升級失敗", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := store.Bus().Subscribe()
	defer cancel()

	common.LogInfo("事件串流已連線",
		zap.String("session_id", store.ID()),
		zap.Int("subscribers", store.Bus().Subscribers()),
	)

	// 讀取迴圈只用來偵測用戶端關閉
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := write(conn, ev); err != nil {
				common.LogDebug("事件推送失敗", zap.String("session_id", store.ID()), zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			common.LogInfo("事件串流已中斷", zap.String("session_id", store.ID()))
			return
		}
	}
}

func write(conn *websocket.Conn, ev session.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
