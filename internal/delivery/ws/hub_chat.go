package ws

import (
	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/mmuslimabdulj/pet-lobby/internal/usecase"
	"go.uber.org/zap"
)

const (
	msgChatLowEnergy   = "Your pet is resting and cannot chat right now."
	msgChatNotApproved = "The other player has not accepted your chat request yet."
)

func (h *Hub) handleChatRequest(room string, uid int, m domain.ChatRequest) {
	if !h.chatAllowed(room, uid, m.ToUserID) {
		return
	}

	h.logger.Debug("chat request", zap.Int("from_user_id", uid), zap.Int("to_user_id", m.ToUserID))
	h.send(room, m.ToUserID, domain.MessageTypeChatRequest, uid, domain.ChatRequestPayload{
		FromUserID: uid,
		ToUserID:   m.ToUserID,
	})
}

// handleChatAccept records the pair and notifies both sides with the same
// pair ids. Acceptance is not energy gated.
func (h *Hub) handleChatAccept(room string, uid int, m domain.ChatRequestAccept) {
	h.chats.Approve(m.FromUserID, uid)
	h.logger.Info("chat approved", zap.Int("from_user_id", m.FromUserID), zap.Int("accepted_by", uid))

	payload := domain.ChatApprovedPayload{UserID1: m.FromUserID, UserID2: uid}
	for _, to := range []int{uid, m.FromUserID} {
		h.send(room, to, domain.MessageTypeChatApproved, to, payload)
	}
}

func (h *Hub) handleChatMessage(room string, uid int, m domain.ChatMessage) {
	if !h.chatAllowed(room, uid, m.ToUserID) {
		return
	}
	if !h.chats.Approved(uid, m.ToUserID) {
		h.logger.Debug("chat not approved", zap.Int("from_user_id", uid), zap.Int("to_user_id", m.ToUserID))
		h.rejectChat(room, uid, domain.ReasonChatNotApproved, msgChatNotApproved)
		return
	}

	h.send(room, m.ToUserID, domain.MessageTypeChatMessage, uid, domain.ChatMessagePayload{
		FromUserID: uid,
		ToUserID:   m.ToUserID,
		Content:    m.Content,
	})
}

// chatAllowed applies the energy gate and rejects the sender when it fails
func (h *Hub) chatAllowed(room string, uid, to int) bool {
	energy, known := h.presence.Energy(room, uid)
	if usecase.ChatAllowed(energy, known) {
		return true
	}

	h.logger.Debug("chat blocked by low energy",
		zap.Int("from_user_id", uid),
		zap.Int("to_user_id", to),
		zap.Int("energy", energy),
	)
	h.rejectChat(room, uid, domain.ReasonLowEnergy, msgChatLowEnergy)
	return false
}

func (h *Hub) rejectChat(room string, uid int, reason, text string) {
	h.send(room, uid, domain.MessageTypeChatNotAllowed, uid, domain.RejectionPayload{
		Reason:  reason,
		Message: text,
	})
}
