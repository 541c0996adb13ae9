package ws

import (
	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"go.uber.org/zap"
)

// handleJoin registers the connection under its identity, stores a fresh
// presence snapshot, replies with the lobby and announces the newcomer
func (h *Hub) handleJoin(c *Client, m domain.JoinLobby) {
	room, uid := c.room, c.userID
	h.connect(room, uid, c)

	p := h.builder.Join(uid, m.Presence)
	h.presence.Upsert(room, uid, p)
	h.logger.Info("player joined lobby",
		zap.Int("user_id", uid),
		zap.String("display_name", p.DisplayName),
		zap.Int("players", h.presence.Count(room)),
	)

	h.send(room, uid, domain.MessageTypeLobbyState, uid, domain.LobbyStatePayload{Players: h.presence.List(room)})

	entry := domain.PlayerEntry{UserID: uid, Player: p}
	h.broadcast(room, domain.MessageTypePlayerJoined, uid, domain.PlayerJoinedPayload{Player: entry}, uid)
	h.publish(domain.MessageTypePlayerJoined, uid, entry)
}

// handlePetStateUpdate merges the patch over the stored snapshot and sends
// the new lobby state to everyone, the updater included
func (h *Hub) handlePetStateUpdate(room string, uid int, m domain.PetStateUpdate) {
	var prev *domain.Player
	if p, ok := h.presence.Get(room, uid); ok {
		prev = &p
	}

	p := h.builder.Merge(uid, prev, m.Presence)
	h.presence.Upsert(room, uid, p)
	h.logger.Debug("pet state updated",
		zap.Int("user_id", uid),
		zap.Int("energy", p.Energy),
		zap.String("status", p.Status),
	)

	h.broadcast(room, domain.MessageTypeLobbyState, uid, domain.LobbyStatePayload{Players: h.presence.List(room)})
}

// handleUpdatePosition stores a new position and tells everyone else
func (h *Hub) handleUpdatePosition(room string, uid int, m domain.UpdatePosition) {
	p, ok := h.presence.Get(room, uid)
	if !ok {
		h.logger.Debug("position update without presence, dropping", zap.Int("user_id", uid))
		return
	}

	p.X, p.Y = m.X, m.Y
	h.presence.Upsert(room, uid, p)

	h.broadcast(room, domain.MessageTypePlayerMoved, uid, domain.PlayerMovedPayload{
		UserID: uid,
		X:      m.X,
		Y:      m.Y,
	}, uid)
}
