package websocket

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = gorillaWS.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由 CORS 中间件控制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ParseTopics 解析 topic 查询参数,支持重复参数和逗号分隔
func ParseTopics(values []string) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			topics = append(topics, t)
		}
	}
	return topics
}

// WebSocketHandler WebSocket 处理器
// 客户端通过 ?topic=coordinators 或 ?topic=<tracking_token> 订阅
func WebSocketHandler(hub *Hub, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 解析订阅的 topic
		topics := ParseTopics(c.QueryArray("topic"))
		if len(topics) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one topic is required"})
			return
		}

		// 2. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithError(err).Warn("failed to upgrade websocket connection")
			return
		}

		// 3. 创建并注册客户端
		client := NewClient(uuid.New().String(), topics, hub, conn)
		if err := hub.Register(client); err != nil {
			conn.Close()
			return
		}

		logger.WithFields(logrus.Fields{
			"client_id": client.ID,
			"topics":    topics,
		}).Debug("websocket client connected")

		// 4. 启动 readPump 和 writePump
		go client.WritePump()
		go client.ReadPump(logger)
	}
}
