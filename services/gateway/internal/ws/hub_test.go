package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func fakeClient(hub *Hub, roomID string, buffer int) *Client {
	return &Client{hub: hub, roomID: roomID, userID: "u-" + roomID, send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) ([]byte, bool) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		return data, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil, false
	}
}

func TestHub_BroadcastOnlyReachesRoom(t *testing.T) {
	hub, _ := startHub(t)

	a1 := fakeClient(hub, "a", 4)
	a2 := fakeClient(hub, "a", 4)
	b := fakeClient(hub, "b", 4)
	for _, c := range []*Client{a1, a2, b} {
		require.True(t, hub.Register(c))
	}
	require.Eventually(t, func() bool { return hub.ClientCount("a") == 2 && hub.ClientCount("b") == 1 }, time.Second, 10*time.Millisecond)

	require.True(t, hub.Broadcast("a", []byte("hello")))

	for _, c := range []*Client{a1, a2} {
		data, ok := receive(t, c)
		require.True(t, ok)
		assert.Equal(t, "hello", string(data))
	}
	assert.Empty(t, b.send)
}

func TestHub_UnregisterEmptiesRoom(t *testing.T) {
	hub, _ := startHub(t)

	c := fakeClient(hub, "a", 1)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.RoomCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.RoomCount() == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-c.send
	assert.False(t, ok, "send channel is closed")
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := fakeClient(hub, "a", 0)
	fast := fakeClient(hub, "a", 4)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))
	require.Eventually(t, func() bool { return hub.ClientCount("a") == 2 }, time.Second, 10*time.Millisecond)

	require.True(t, hub.Broadcast("a", []byte("x")))

	_, ok := receive(t, fast)
	assert.True(t, ok)
	require.Eventually(t, func() bool { return hub.ClientCount("a") == 1 }, time.Second, 10*time.Millisecond)
	_, ok = <-slow.send
	assert.False(t, ok)
}

func TestHub_RelayRoutesByChannel(t *testing.T) {
	hub, _ := startHub(t)

	c := fakeClient(hub, "room-1", 4)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.ClientCount("room-1") == 1 }, time.Second, 10*time.Millisecond)

	ch := make(chan *redis.Message, 4)
	ch <- &redis.Message{Channel: "unrelated", Payload: `{"type":"file.saved"}`}
	ch <- &redis.Message{Channel: events.Channel("room-1"), Payload: `not json`}
	ch <- &redis.Message{Channel: events.Channel("room-1"), Payload: `{"type":"file.saved","room_id":"room-1"}`}
	ch <- &redis.Message{Channel: events.Channel("room-1"), Payload: `{"type":"room.deleted","room_id":"room-1"}`}
	close(ch)

	hub.relay(context.Background(), ch)

	data, ok := receive(t, c)
	require.True(t, ok)
	assert.Contains(t, string(data), "file.saved")

	data, ok = receive(t, c)
	require.True(t, ok)
	assert.Contains(t, string(data), "room.deleted")

	_, ok = receive(t, c)
	assert.False(t, ok, "a deleted room closes its sockets")
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	c := fakeClient(hub, "a", 1)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.RoomCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	_, ok := receive(t, c)
	assert.False(t, ok)
	assert.False(t, hub.Register(fakeClient(hub, "a", 1)))
	assert.False(t, hub.Broadcast("a", []byte("late")))
}

func TestServeWs_StreamsRoomEvents(t *testing.T) {
	hub, cancel := startHub(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, "room-1", "alice")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("room-1") == 1 }, 2*time.Second, 10*time.Millisecond)
	require.True(t, hub.Broadcast("room-1", []byte(`{"type":"message.created"}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"type":"message.created"}`, string(data))

	cancel()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)
}
