package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/claims-gin/internal/logging"
	"github.com/mautops/claims-gin/internal/notify"
	"github.com/mautops/claims-gin/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *websocket.Hub {
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, client *websocket.Client) websocket.Message {
	t.Helper()
	select {
	case payload, ok := <-client.Send:
		require.True(t, ok, "send channel closed")
		var msg websocket.Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return websocket.Message{}
}

func registered(hub *websocket.Hub, id string) func() bool {
	return func() bool { return hub.HasClient(id) }
}

// TestHub_Register 测试 Hub 注册客户端
func TestHub_Register(t *testing.T) {
	hub := startHub(t)
	client := websocket.NewClient("client-001", []string{notify.TopicCoordinators}, hub, nil)

	require.NoError(t, hub.Register(client))
	assert.Eventually(t, registered(hub, "client-001"), time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())
	assert.Equal(t, 1, hub.TopicSize(notify.TopicCoordinators))
}

// TestHub_Unregister 测试 Hub 注销客户端
func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	client := websocket.NewClient("client-001", []string{"a", "b"}, hub, nil)
	require.NoError(t, hub.Register(client))
	assert.Eventually(t, registered(hub, "client-001"), time.Second, 10*time.Millisecond)

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return !hub.HasClient("client-001") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.TopicSize("a"))

	// Send 已关闭
	_, ok := <-client.Send
	assert.False(t, ok)
}

// TestHub_PublishByTopic 测试只推送给订阅了 topic 的客户端
func TestHub_PublishByTopic(t *testing.T) {
	hub := startHub(t)
	coordinator := websocket.NewClient("coordinator", []string{notify.TopicCoordinators}, hub, nil)
	lecturer := websocket.NewClient("lecturer", []string{"token-1"}, hub, nil)
	require.NoError(t, hub.Register(coordinator))
	require.NoError(t, hub.Register(lecturer))
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, 10*time.Millisecond)

	evt := notify.Event{Type: notify.EventStatusUpdated, ClaimID: 1, TrackingToken: "token-1", Status: "approved"}
	require.NoError(t, hub.Publish(context.Background(), "token-1", evt))

	msg := receive(t, lecturer)
	assert.Equal(t, "token-1", msg.Topic)
	assert.Equal(t, "approved", msg.Event.Status)

	select {
	case <-coordinator.Send:
		t.Fatal("coordinator should not receive lecturer event")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHub_Stop 测试停止后拒绝注册和推送
func TestHub_Stop(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()
	client := websocket.NewClient("client-001", []string{"a"}, hub, nil)
	require.NoError(t, hub.Register(client))

	hub.Stop()
	hub.Stop()

	assert.ErrorIs(t, hub.Register(websocket.NewClient("late", []string{"a"}, hub, nil)), websocket.ErrHubClosed)
	assert.ErrorIs(t, hub.Publish(context.Background(), "a", notify.Event{}), websocket.ErrHubClosed)
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

// TestParseTopics 测试解析 topic 参数
func TestParseTopics(t *testing.T) {
	assert.Equal(t, []string{"coordinators", "t1", "t2"}, websocket.ParseTopics([]string{"coordinators", " t1 , t2", "t1", ""}))
	assert.Empty(t, websocket.ParseTopics(nil))
}

// TestWebSocketHandler_RequiresTopic 测试缺少 topic
func TestWebSocketHandler_RequiresTopic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	router := gin.New()
	router.GET("/ws", websocket.WebSocketHandler(hub, logging.Discard()))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestWebSocketHandler_ReceivesEvents 测试通过 WebSocket 接收事件
func TestWebSocketHandler_ReceivesEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	router := gin.New()
	router.GET("/ws", websocket.WebSocketHandler(hub, logging.Discard()))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?topic=coordinators"
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.TopicSize(notify.TopicCoordinators) == 1 }, time.Second, 10*time.Millisecond)

	evt := notify.Event{Type: notify.EventNewClaimSubmitted, ClaimID: 9, LecturerName: "Dr. WS"}
	require.NoError(t, hub.Publish(context.Background(), notify.TopicCoordinators, evt))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, notify.TopicCoordinators, msg.Topic)
	assert.Equal(t, int64(9), msg.Event.ClaimID)
	assert.Equal(t, "Dr. WS", msg.Event.LecturerName)
}
