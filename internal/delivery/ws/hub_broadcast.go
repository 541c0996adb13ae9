package ws

import (
	"errors"
	"slices"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"go.uber.org/zap"
)

// ErrHubStopped is returned by calls made after Run has returned
var ErrHubStopped = errors.New("hub stopped")

// ==== Connection registry ====
//
// Everything below runs on the hub loop.

// connect binds (room, userID) to c. A previous live connection for the same
// identity is closed; its later unregister is ignored.
func (h *Hub) connect(room string, userID int, c *Client) {
	users, ok := h.online[room]
	if !ok {
		users = make(map[int]*Client)
		h.online[room] = users
	}

	if prev, ok := users[userID]; ok && prev != c {
		h.logger.Warn("identity reconnected, closing previous connection",
			zap.Int("user_id", userID),
			zap.String("previous_conn_id", prev.ID),
			zap.String("conn_id", c.ID),
		)
		prev.close()
	}
	users[userID] = c
}

// disconnect removes the identity from the registry and the presence
// directory, then tells the rest of the room
func (h *Hub) disconnect(room string, userID int) {
	if users, ok := h.online[room]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.online, room)
		}
	}
	h.presence.Remove(room, userID)

	h.broadcast(room, domain.MessageTypePlayerLeft, userID, domain.PlayerLeftPayload{UserID: userID}, userID)
	h.publish(domain.MessageTypePlayerLeft, userID, domain.PlayerLeftPayload{UserID: userID})
}

// isCurrent reports whether c is the live connection for its bound identity
func (h *Hub) isCurrent(c *Client) bool {
	return c.bound && h.online[c.room][c.userID] == c
}

func (h *Hub) isOnline(room string, userID int) bool {
	_, ok := h.online[room][userID]
	return ok
}

// send delivers one message to one identity. An offline recipient is a no-op.
func (h *Hub) send(room string, to int, t domain.MessageType, envelopeUserID int, payload any) {
	c, ok := h.online[room][to]
	if !ok {
		h.logger.Debug("recipient offline, message not delivered",
			zap.String("type", string(t)),
			zap.Int("to_user_id", to),
		)
		return
	}

	data, err := domain.Encode(t, room, envelopeUserID, payload)
	if err != nil {
		h.logger.Error("encode outbound message", zap.Error(err))
		return
	}
	h.deliver(c, to, t, data)
}

// broadcast delivers one message to every online identity in the room except
// the excluded ones
func (h *Hub) broadcast(room string, t domain.MessageType, envelopeUserID int, payload any, exclude ...int) {
	users := h.online[room]
	if len(users) == 0 {
		return
	}

	data, err := domain.Encode(t, room, envelopeUserID, payload)
	if err != nil {
		h.logger.Error("encode outbound message", zap.Error(err))
		return
	}

	for uid, c := range users {
		if slices.Contains(exclude, uid) {
			continue
		}
		h.deliver(c, uid, t, data)
	}
}

// deliver enqueues without blocking. A full or closed queue drops the message
// for this recipient only.
func (h *Hub) deliver(c *Client, to int, t domain.MessageType, data []byte) {
	if !c.enqueue(data) {
		h.logger.Warn("send queue unavailable, dropping message",
			zap.String("type", string(t)),
			zap.Int("to_user_id", to),
			zap.String("conn_id", c.ID),
		)
	}
}
