package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/pet-lobby/internal/config"
	"github.com/mmuslimabdulj/pet-lobby/internal/delivery/ws"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Handler struct {
	hub      *ws.Hub
	cfg      *config.Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *ws.Hub, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.OriginAllowed(r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

// HandleHealth serves the static liveness payload
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   h.cfg.ServerName + " server running",
		"server_id": h.hub.ServerID(),
	})
}

// HandleStats reports live connection and battle counts
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.hub.Stats(r.Context())
	if err != nil {
		http.Error(w, "Hub unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleWebSocket upgrades HTTP to WebSocket and hands the connection to the
// hub. Identity is bound later by the first join_lobby frame.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed",
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err),
		)
		return
	}

	limiter := rate.NewLimiter(h.cfg.RateLimitMsg, h.cfg.RateLimitMsgBurst)
	client := ws.NewClient(h.hub, conn, limiter)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	// Start read/write pumps in goroutines
	go client.WritePump()
	go client.ReadPump()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
