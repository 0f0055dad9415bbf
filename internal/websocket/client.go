package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 读超时时间
	pongWait = 60 * time.Second

	// ping 周期 (必须小于 pongWait)
	pingPeriod = (pongWait * 9) / 10

	// 客户端只发送控制帧,限制读取大小
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// Client 订阅者
// Conn 为 nil 时表示 SSE 订阅,由 HTTP 处理器直接消费 Send。
type Client struct {
	ID     string
	Topics []string

	Hub  *Hub
	Conn *websocket.Conn

	// Send 发送消息的 channel,注销时由 Hub 关闭
	Send chan []byte
}

// NewClient 创建新的客户端
func NewClient(id string, topics []string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		Topics: topics,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump 从 WebSocket 连接读取消息,连接断开时注销
func (c *Client) ReadPump(logger logrus.FieldLogger) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithError(err).WithField("client_id", c.ID).Warn("websocket read error")
			}
			return
		}
	}
}

// WritePump 向 WebSocket 连接写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了 channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 每条消息单独一帧,客户端按 JSON 解析
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
