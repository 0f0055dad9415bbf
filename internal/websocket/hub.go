package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mautops/claims-gin/internal/notify"
)

// ErrHubClosed Hub 已停止
var ErrHubClosed = errors.New("websocket hub closed")

// Message 推送给客户端的消息
type Message struct {
	Topic string       `json:"topic"`
	Event notify.Event `json:"event"`
}

type broadcast struct {
	topic   string
	payload []byte
}

// Hub 按 topic 分组管理连接
// 协调员订阅 "coordinators",讲师订阅自己报销单的追踪令牌。
type Hub struct {
	// topic → 客户端
	topics map[string]map[*Client]bool

	// 已注册的客户端
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	stopOnce   sync.Once

	// 互斥锁,保护 clients/topics 的并发读取
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 256),
		done:       make(chan struct{}),
	}
}

// Name 投递目标名称
func (h *Hub) Name() string { return "websocket" }

// Run 运行 Hub,直到 Stop 被调用
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for _, topic := range client.Topics {
				if h.topics[topic] == nil {
					h.topics[topic] = make(map[*Client]bool)
				}
				h.topics[topic][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.topics[msg.topic] {
				select {
				case client.Send <- msg.payload:
				default:
					// 客户端消费过慢,断开
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止 Hub 并关闭所有客户端
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register 注册客户端
func (h *Hub) Register(client *Client) error {
	if h.closed() {
		return ErrHubClosed
	}
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish 向 topic 下的所有客户端推送事件
func (h *Hub) Publish(ctx context.Context, topic string, evt notify.Event) error {
	payload, err := json.Marshal(Message{Topic: topic, Event: evt})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if h.closed() {
		return ErrHubClosed
	}
	select {
	case h.broadcast <- broadcast{topic: topic, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// remove 调用方需持有写锁
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for _, topic := range client.Topics {
		if group, ok := h.topics[topic]; ok {
			delete(group, client)
			if len(group) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	close(client.Send)
}

// HasClient 检查客户端是否存在
func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// TopicSize 获取 topic 下的客户端数量
func (h *Hub) TopicSize(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}
