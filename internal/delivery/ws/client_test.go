package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// === CLIENT TESTS ===

func TestNewClient(t *testing.T) {
	h := NewHub(Options{ServerID: "C", SendBufferSize: 8})
	limiter := rate.NewLimiter(1, 1)

	client := NewClient(h, nil, limiter)

	_, err := uuid.Parse(client.ID)
	assert.NoError(t, err)
	assert.Same(t, h, client.hub)
	assert.Same(t, limiter, client.limiter)
	assert.Equal(t, "C", client.room)
	assert.Equal(t, 8, cap(client.send))

	_, bound := client.UserID()
	assert.False(t, bound)
}

func TestClient_Enqueue(t *testing.T) {
	h := NewHub(Options{})
	client := newMockClient(h, 2)

	assert.True(t, client.enqueue([]byte("msg1")))
	assert.True(t, client.enqueue([]byte("msg2")))
	// Buffer full: dropped without blocking
	assert.False(t, client.enqueue([]byte("msg3")))

	assert.Equal(t, "msg1", string(<-client.send))
	assert.Equal(t, "msg2", string(<-client.send))
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	h := NewHub(Options{})
	client := newMockClient(h, 2)

	client.close()
	client.close()

	assert.True(t, client.closed)
	assert.False(t, client.enqueue([]byte("late")))
	_, open := <-client.send
	assert.False(t, open)
}

// startPumpServer runs a hub and serves a websocket endpoint that wires each
// connection through the real pumps
func startPumpServer(t *testing.T, limiter func() *rate.Limiter) (*Hub, string) {
	t.Helper()
	// pumps may log after the test returns, so no test logger here
	h := NewHub(Options{ServerID: "C", Logger: zap.NewNop()})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn, limiter())
		if !h.Register(c) {
			conn.Close()
			return
		}
		go c.WritePump()
		go c.ReadPump()
	}))
	t.Cleanup(srv.Close)

	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEnvelope(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var r received
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func TestClient_Pumps(t *testing.T) {
	h, url := startPumpServer(t, func() *rate.Limiter { return nil })

	a, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer a.Close()
	b, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.WriteMessage(websocket.TextMessage, frame(domain.MessageTypeJoinLobby, 1, "")))
	assert.Equal(t, domain.MessageTypeLobbyState, readEnvelope(t, a).Type)

	require.NoError(t, b.WriteMessage(websocket.TextMessage, frame(domain.MessageTypeJoinLobby, 2, "")))
	assert.Equal(t, domain.MessageTypeLobbyState, readEnvelope(t, b).Type)
	assert.Equal(t, domain.MessageTypePlayerJoined, readEnvelope(t, a).Type)

	// closing b's socket ends its read pump and a hears about it
	require.NoError(t, b.Close())
	left := readEnvelope(t, a)
	assert.Equal(t, domain.MessageTypePlayerLeft, left.Type)
	assert.Equal(t, 2, left.UserID)

	require.Eventually(t, func() bool {
		s, err := h.Stats(context.Background())
		return err == nil && s.Online == 1 && s.Connections == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReadPumpRateLimit(t *testing.T) {
	_, url := startPumpServer(t, func() *rate.Limiter { return rate.NewLimiter(rate.Every(time.Hour), 1) })

	a, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.WriteMessage(websocket.TextMessage, frame(domain.MessageTypeJoinLobby, 1, "")))
	assert.Equal(t, domain.MessageTypeLobbyState, readEnvelope(t, a).Type)

	// the burst is spent, so this update is dropped before reaching the hub
	require.NoError(t, a.WriteMessage(websocket.TextMessage, frame(domain.MessageTypePetStateUpdate, 1, `{"energy":5}`)))

	require.NoError(t, a.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = a.ReadMessage()
	assert.Error(t, err)
}
