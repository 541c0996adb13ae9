package ws

import (
	"errors"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"go.uber.org/zap"
)

// handleFrame decodes one inbound frame, enforces the connection's identity
// binding and dispatches the typed message. Every failure drops the frame and
// keeps the connection open.
func (h *Hub) handleFrame(c *Client, data []byte) {
	if _, ok := h.conns[c]; !ok || c.closed {
		return
	}

	frame, err := domain.ParseFrame(data)
	if err != nil {
		c.logger.Debug("dropping malformed frame", zap.Error(err))
		return
	}
	log := c.logger.With(zap.String("type", string(frame.Type)))

	if frame.Type == domain.MessageTypeJoinLobby {
		if !frame.HasUserID {
			log.Warn("join without a valid user_id, dropping")
			return
		}
		if c.bound && frame.UserID != c.userID {
			log.Warn("join with a different identity, dropping",
				zap.Int("bound_user_id", c.userID),
				zap.Int("claimed_user_id", frame.UserID),
			)
			return
		}
	} else {
		if !c.bound {
			log.Debug("message before join, dropping")
			return
		}
		if frame.HasUserID && frame.UserID != c.userID {
			log.Warn("identity mismatch, dropping",
				zap.Int("bound_user_id", c.userID),
				zap.Int("claimed_user_id", frame.UserID),
			)
			return
		}
		if !h.isCurrent(c) {
			log.Debug("message from superseded connection, dropping")
			return
		}
	}

	msg, err := domain.DecodePayload(frame.Type, frame.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownType) {
			log.Debug("unknown message type, dropping")
		} else {
			log.Warn("invalid payload, dropping", zap.Error(err))
		}
		return
	}

	if !c.bound {
		c.userID = frame.UserID
		c.bound = true
		c.logger = c.logger.With(zap.Int("user_id", c.userID))
		c.logger.Info("connection bound")
	}

	h.dispatch(c, msg)
}

// dispatch routes a validated message. Room and identity always come from the
// connection, never from the frame.
func (h *Hub) dispatch(c *Client, msg domain.Inbound) {
	room, uid := c.room, c.userID

	switch m := msg.(type) {
	case domain.JoinLobby:
		h.handleJoin(c, m)
	case domain.PetStateUpdate:
		h.handlePetStateUpdate(room, uid, m)
	case domain.UpdatePosition:
		h.handleUpdatePosition(room, uid, m)
	case domain.ChatRequest:
		h.handleChatRequest(room, uid, m)
	case domain.ChatRequestAccept:
		h.handleChatAccept(room, uid, m)
	case domain.ChatMessage:
		h.handleChatMessage(room, uid, m)
	case domain.BattleInvite:
		h.handleBattleInvite(room, uid, m)
	case domain.BattleAccept:
		h.handleBattleAccept(room, uid, m)
	case domain.BattleReady:
		h.handleBattleReady(room, uid, m)
	case domain.BattleUpdate:
		h.handleBattleUpdate(room, uid, m)
	case domain.BattleResult:
		h.handleBattleResult(room, uid, m)
	default:
		c.logger.Warn("no handler for message", zap.String("type", string(msg.Kind())))
	}
}
