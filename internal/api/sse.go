package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/websocket"
)

// sseHeartbeatInterval 心跳间隔
var sseHeartbeatInterval = 30 * time.Second

// ClaimLookup 根据追踪令牌查找报销单
type ClaimLookup interface {
	GetByToken(token string) (*model.Claim, error)
}

// SSEHandler 报销单状态 SSE 推送
// 订阅 topic 为报销单的追踪令牌,连接建立时先推送当前状态
func SSEHandler(hub *websocket.Hub, claims ClaimLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		claim, err := claims.GetByToken(token)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			Error(c, http.StatusInternalServerError, "streaming not supported", "")
			return
		}

		client := websocket.NewClient(uuid.New().String(), []string{token}, hub, nil)
		if err := hub.Register(client); err != nil {
			Error(c, http.StatusServiceUnavailable, "realtime notifications unavailable", err.Error())
			return
		}
		defer hub.Unregister(client)

		// 设置 SSE 响应头
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲
		c.Status(http.StatusOK)

		// 发送当前状态
		if err := writeSSEEvent(c.Writer, "snapshot", mustJSON(claim)); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case <-ticker.C:
				if _, err := io.WriteString(c.Writer, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case message, ok := <-client.Send:
				if !ok {
					return
				}
				if err := writeSSEEvent(c.Writer, "status", message); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// writeSSEEvent 发送 SSE 消息
func writeSSEEvent(w io.Writer, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
