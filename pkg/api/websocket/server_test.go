package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg := Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = data
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func subscribe(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, "subscribe", SubscribeRequest{Type: SubscribeShowUpserted})
	resp := read(t, conn)
	require.Equal(t, "success", resp.Type)
}

func testEvent(id uint64) eventbus.ShowUpserted {
	return eventbus.ShowUpserted{
		ShowID:   u256.FromUint64(id),
		Status:   "ACTIVE",
		IsActive: true,
		At:       time.Unix(1735689600, 0).UTC(),
	}
}

// ---- Server ----

func TestServer_ConnectAndPing(t *testing.T) {
	server := NewServer(zap.NewNop())
	defer server.Stop()
	conn := dial(t, server)

	send(t, conn, "ping", nil)
	assert.Equal(t, "pong", read(t, conn).Type)
	assert.Equal(t, 1, server.Hub().ClientCount())
}

func TestServer_BroadcastToSubscribers(t *testing.T) {
	server := NewServer(zap.NewNop())
	defer server.Stop()
	conn := dial(t, server)
	subscribe(t, conn)

	server.Hub().BroadcastShowUpserted(testEvent(7))

	msg := read(t, conn)
	require.Equal(t, "event", msg.Type)

	var got struct {
		Type SubscriptionType      `json:"type"`
		Data eventbus.ShowUpserted `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, SubscribeShowUpserted, got.Type)
	assert.Equal(t, "7", got.Data.ShowID.String())
	assert.Equal(t, "ACTIVE", got.Data.Status)
}

func TestServer_ConsumeLocalBus(t *testing.T) {
	server := NewServer(zap.NewNop())
	defer server.Stop()
	conn := dial(t, server)
	subscribe(t, conn)

	bus := eventbus.NewLocalBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Consume(ctx, bus.Subscribe(0))

	require.NoError(t, bus.Publish(ctx, testEvent(42)))

	msg := read(t, conn)
	require.Equal(t, "event", msg.Type)
	assert.Contains(t, string(msg.Payload), `"show_id":"42"`)
}

func TestServer_ErrorReplies(t *testing.T) {
	server := NewServer(zap.NewNop())
	defer server.Stop()
	conn := dial(t, server)

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"not json", "{nope", "invalid message format"},
		{"unknown type", `{"type":"dance"}`, "unknown message type: dance"},
		{"bad subscription", `{"type":"subscribe","payload":{"type":"newBlock"}}`, "invalid subscription type"},
		{"bad payload", `{"type":"subscribe","payload":"x"}`, "invalid subscribe request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
			msg := read(t, conn)
			require.Equal(t, "error", msg.Type)
			var payload ErrorMessage
			require.NoError(t, json.Unmarshal(msg.Payload, &payload))
			assert.Equal(t, tt.wantErr, payload.Error)
		})
	}
}

// ---- Hub ----

func TestHub_OnlySubscribedClientsReceive(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	subscribed := NewClient(hub, nil, zap.NewNop())
	idle := NewClient(hub, nil, zap.NewNop())
	require.True(t, hub.Register(subscribed))
	require.True(t, hub.Register(idle))
	subscribed.Subscribe(SubscribeShowUpserted)

	hub.BroadcastShowUpserted(testEvent(1))

	select {
	case msg := <-subscribed.send:
		assert.Contains(t, string(msg), `"type":"event"`)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribed client received nothing")
	}
	assert.Empty(t, idle.send)
}

func TestHub_MaxClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.maxClients = 1
	go hub.Run()
	defer hub.Stop()

	assert.True(t, hub.Register(NewClient(hub, nil, zap.NewNop())))
	assert.False(t, hub.Register(NewClient(hub, nil, zap.NewNop())))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	c := NewClient(hub, nil, zap.NewNop())
	require.True(t, hub.Register(c))
	hub.Stop()
	hub.Stop()

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.Register(NewClient(hub, nil, zap.NewNop())))
}

func TestClient_Subscriptions(t *testing.T) {
	c := NewClient(NewHub(zap.NewNop()), nil, zap.NewNop())
	assert.False(t, c.IsSubscribed(SubscribeShowUpserted))
	c.Subscribe(SubscribeShowUpserted)
	assert.True(t, c.IsSubscribed(SubscribeShowUpserted))
	c.Unsubscribe(SubscribeShowUpserted)
	assert.False(t, c.IsSubscribed(SubscribeShowUpserted))
}
