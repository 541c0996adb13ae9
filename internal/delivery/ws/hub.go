package ws

import (
	"context"
	"time"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/mmuslimabdulj/pet-lobby/internal/events"
	"github.com/mmuslimabdulj/pet-lobby/internal/usecase"
	"go.uber.org/zap"
)

// Options configures a Hub. Zero values fall back to defaults.
type Options struct {
	ServerID       string
	SendBufferSize int
	MaxMessageSize int64
	Presence       *usecase.PresenceBuilder
	Events         events.Publisher
	Logger         *zap.Logger
	Now            func() time.Time
}

// Stats is a point-in-time view of the hub
type Stats struct {
	Connections int `json:"connections"`
	Online      int `json:"online"`
	Battles     int `json:"battles"`
	ChatPairs   int `json:"chat_pairs"`
}

// inboundFrame is one entry of the hub's inbound queue: a raw frame, or the
// end of the connection when leave is set. Both share one FIFO so a
// disconnect is handled only after every frame the connection sent before it.
type inboundFrame struct {
	client *Client
	data   []byte
	leave  bool
}

// Hub owns every piece of shared lobby state. All of it is touched only from
// the Run loop, so register, inbound frames and unregister are serialized and
// each connection's frames are handled in arrival order.
type Hub struct {
	serverID       string
	sendBuffer     int
	maxMessageSize int64
	logger         *zap.Logger
	events         events.Publisher

	// conns holds every upgraded connection, bound or not
	conns map[*Client]struct{}
	// online is the connection registry: room -> user id -> live client
	online map[string]map[int]*Client

	presence *usecase.Directory
	builder  *usecase.PresenceBuilder
	chats    *usecase.ChatPairs
	battles  *usecase.BattleTable

	register chan *Client
	inbound  chan inboundFrame
	stats    chan chan Stats
	done     chan struct{}
}

// NewHub creates a new Hub
func NewHub(opts Options) *Hub {
	if opts.ServerID == "" {
		opts.ServerID = domain.DefaultServerID
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = domain.SendBufferSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = domain.MaxMessageSize
	}
	if opts.Presence == nil {
		opts.Presence = usecase.NewPresenceBuilder(domain.WorldWidth, domain.WorldHeight)
	}
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Hub{
		serverID:       opts.ServerID,
		sendBuffer:     opts.SendBufferSize,
		maxMessageSize: opts.MaxMessageSize,
		logger:         opts.Logger.With(zap.String("server_id", opts.ServerID)),
		events:         opts.Events,
		conns:          make(map[*Client]struct{}),
		online:         make(map[string]map[int]*Client),
		presence:       usecase.NewDirectory(),
		builder:        opts.Presence,
		chats:          usecase.NewChatPairs(),
		battles:        usecase.NewBattleTable(opts.Now),
		register:       make(chan *Client),
		inbound:        make(chan inboundFrame, 256),
		stats:          make(chan chan Stats),
		done:           make(chan struct{}),
	}
}

// ServerID returns the room this hub serves
func (h *Hub) ServerID() string {
	return h.serverID
}

// Run starts the hub's main event loop. It returns when ctx is cancelled,
// after closing every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case f := <-h.inbound:
			if f.leave {
				h.handleUnregister(f.client)
			} else {
				h.handleFrame(f.client, f.data)
			}

		case reply := <-h.stats:
			reply <- h.snapshot()
		}
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) handleRegister(c *Client) {
	h.conns[c] = struct{}{}
	c.logger.Debug("connection registered", zap.Int("connections", len(h.conns)))
}

// handleUnregister purges a closed connection. Battle resolution runs before
// the identity leaves the registry. A connection that was superseded by a
// newer one for the same identity only drops its own bookkeeping.
func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	defer c.close()

	if !c.bound {
		c.logger.Debug("unbound connection closed")
		return
	}
	if !h.isCurrent(c) {
		c.logger.Debug("superseded connection closed", zap.Int("user_id", c.userID))
		return
	}

	h.logger.Info("player disconnected", zap.Int("user_id", c.userID))
	h.resolveBattleDisconnect(c.room, c.userID)
	h.disconnect(c.room, c.userID)
}

func (h *Hub) shutdown() {
	h.logger.Info("hub stopping", zap.Int("connections", len(h.conns)))
	for c := range h.conns {
		c.close()
		delete(h.conns, c)
	}
	h.online = make(map[string]map[int]*Client)
}

func (h *Hub) snapshot() Stats {
	online := 0
	for _, users := range h.online {
		online += len(users)
	}
	return Stats{
		Connections: len(h.conns),
		Online:      online,
		Battles:     h.battles.Count(),
		ChatPairs:   h.chats.Count(),
	}
}

func (h *Hub) publish(t domain.MessageType, userID int, payload any) {
	if err := h.events.Publish(h.serverID, t, userID, payload); err != nil {
		h.logger.Warn("event publish failed",
			zap.String("type", string(t)),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
}
