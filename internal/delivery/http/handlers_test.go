package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/pet-lobby/internal/config"
	"github.com/mmuslimabdulj/pet-lobby/internal/delivery/ws"
	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestHandler starts a hub and returns a handler bound to it
func setupTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	hub := ws.NewHub(ws.Options{ServerID: cfg.ServerID, Logger: zap.NewNop()})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return NewHandler(hub, cfg, zap.NewNop())
}

func newTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.HandleHealth)
	mux.HandleFunc("/stats", h.HandleStats)
	mux.HandleFunc("/ws/", h.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleHealth(t *testing.T) {
	h := setupTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"wsC server running","server_id":"C"}`, w.Body.String())
}

func TestHandleHealth_NotFound(t *testing.T) {
	h := setupTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleHealth_InvalidMethod(t *testing.T) {
	h := setupTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleStats(t *testing.T) {
	h := setupTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	h.HandleStats(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connections":0,"online":0,"battles":0,"chat_pairs":0}`, w.Body.String())
}

func TestHandleWebSocket_PlainRequest(t *testing.T) {
	h := setupTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws/", nil)
	w := httptest.NewRecorder()
	h.HandleWebSocket(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebSocket_OriginRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowedOrigins = []string{"http://good.example"}
	srv := newTestServer(t, setupTestHandler(t, cfg))
	url := wsURL(srv)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://good.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"
}

type envelope struct {
	Type    domain.MessageType `json:"type"`
	UserID  int                `json:"user_id"`
	Payload json.RawMessage    `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, msgType domain.MessageType, userID int, payload string) {
	t.Helper()
	data := fmt.Sprintf(`{"type":%q,"server_id":"C","user_id":%d,"payload":%s}`, msgType, userID, payload)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// expect reads frames until one of the wanted type arrives
func expect(t *testing.T, conn *websocket.Conn, want domain.MessageType) envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == want {
			return env
		}
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLobby_EndToEnd(t *testing.T) {
	h := setupTestHandler(t, nil)
	srv := newTestServer(t, h)

	a := dial(t, srv)
	b := dial(t, srv)

	send(t, a, domain.MessageTypeJoinLobby, 1, `{"display_name":"Ann","energy":90}`)
	expect(t, a, domain.MessageTypeLobbyState)
	send(t, b, domain.MessageTypeJoinLobby, 2, `{"display_name":"Bob","energy":90}`)
	state := expect(t, b, domain.MessageTypeLobbyState)

	var lobby domain.LobbyStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &lobby))
	assert.Len(t, lobby.Players, 2)
	expect(t, a, domain.MessageTypePlayerJoined)

	// chat handshake
	send(t, a, domain.MessageTypeChatRequest, 1, `{"to_user_id":2}`)
	expect(t, b, domain.MessageTypeChatRequest)
	send(t, b, domain.MessageTypeChatRequestAccept, 2, `{"from_user_id":1}`)
	expect(t, a, domain.MessageTypeChatApproved)
	expect(t, b, domain.MessageTypeChatApproved)
	send(t, a, domain.MessageTypeChatMessage, 1, `{"to_user_id":2,"content":"ready?"}`)
	msg := expect(t, b, domain.MessageTypeChatMessage)
	assert.Contains(t, string(msg.Payload), "ready?")

	// battle
	send(t, a, domain.MessageTypeBattleInvite, 1, `{"to_user_id":2}`)
	expect(t, b, domain.MessageTypeBattleInvite)
	send(t, b, domain.MessageTypeBattleAccept, 2, `{"from_user_id":1}`)
	start := expect(t, a, domain.MessageTypeBattleStart)
	expect(t, b, domain.MessageTypeBattleStart)

	var started domain.BattleStartPayload
	require.NoError(t, json.Unmarshal(start.Payload, &started))
	battle := fmt.Sprintf(`{"battle_id":%q`, started.BattleID)

	send(t, a, domain.MessageTypeBattleReady, 1, battle+`}`)
	send(t, b, domain.MessageTypeBattleReady, 2, battle+`}`)
	expect(t, a, domain.MessageTypeBattleAllReady)
	expect(t, b, domain.MessageTypeBattleAllReady)

	send(t, b, domain.MessageTypeBattleUpdate, 2, battle+`,"score":2,"state":"running"}`)
	expect(t, a, domain.MessageTypeBattleUpdate)
	send(t, a, domain.MessageTypeBattleResult, 1, battle+`,"score":3}`)

	res := expect(t, b, domain.MessageTypeBattleResult)
	var result domain.BattleResultPayload
	require.NoError(t, json.Unmarshal(res.Payload, &result))
	assert.Equal(t, 1, result.WinnerUserID)
	assert.Equal(t, 3, result.Player1Score)
	assert.Equal(t, 2, result.Player2Score)

	// disconnect
	require.NoError(t, b.Close())
	left := expect(t, a, domain.MessageTypePlayerLeft)
	assert.Equal(t, 2, left.UserID)

	stats, err := h.hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Battles)
	assert.Equal(t, 1, stats.ChatPairs)
	assert.Equal(t, 1, stats.Online)
}
