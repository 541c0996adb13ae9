package ws

import (
	"errors"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/mmuslimabdulj/pet-lobby/internal/usecase"
	"go.uber.org/zap"
)

const (
	msgInviteLowEnergy = "Energy must be at least 70 to send a battle invite."
	msgAcceptLowEnergy = "Both players need at least 70 energy to start a battle."
	msgTargetOffline   = "That player is not online."
)

// handleBattleInvite forwards an invite. No battle exists until it is
// accepted.
func (h *Hub) handleBattleInvite(room string, uid int, m domain.BattleInvite) {
	if m.ToUserID == uid {
		h.logger.Debug("self invite, dropping", zap.Int("user_id", uid))
		return
	}

	energy, known := h.presence.Energy(room, uid)
	if !usecase.BattleAllowed(energy, known) {
		h.logger.Debug("battle invite blocked by low energy", zap.Int("user_id", uid), zap.Int("energy", energy))
		h.rejectBattle(room, uid, domain.ReasonLowEnergy, msgInviteLowEnergy)
		return
	}
	if !h.isOnline(room, m.ToUserID) {
		h.logger.Debug("battle invite target offline", zap.Int("user_id", uid), zap.Int("to_user_id", m.ToUserID))
		h.rejectBattle(room, uid, domain.ReasonTargetOffline, msgTargetOffline)
		return
	}

	h.send(room, m.ToUserID, domain.MessageTypeBattleInvite, uid, domain.BattleInvitePayload{
		FromUserID: uid,
		ToUserID:   m.ToUserID,
	})
}

// handleBattleAccept creates the battle when both players have the energy.
// The inviter becomes player 1.
func (h *Hub) handleBattleAccept(room string, uid int, m domain.BattleAccept) {
	inviter := m.FromUserID
	ie, iknown := h.presence.Energy(room, inviter)
	ae, aknown := h.presence.Energy(room, uid)
	if !usecase.BattleAllowed(ie, iknown) || !usecase.BattleAllowed(ae, aknown) {
		h.logger.Debug("battle accept blocked by low energy",
			zap.Int("inviter", inviter),
			zap.Int("accepter", uid),
		)
		h.rejectBattle(room, inviter, domain.ReasonLowEnergy, msgAcceptLowEnergy)
		h.rejectBattle(room, uid, domain.ReasonLowEnergy, msgAcceptLowEnergy)
		return
	}

	b, err := h.battles.Create(room, inviter, uid)
	if err != nil {
		h.logger.Warn("battle not created", zap.Int("inviter", inviter), zap.Int("accepter", uid), zap.Error(err))
		return
	}
	h.logger.Info("battle created",
		zap.String("battle_id", b.ID),
		zap.Int("player1_id", b.Player1ID),
		zap.Int("player2_id", b.Player2ID),
	)

	payload := domain.BattleStartPayload{
		BattleID:  b.ID,
		Player1ID: b.Player1ID,
		Player2ID: b.Player2ID,
	}
	for _, pid := range []int{b.Player1ID, b.Player2ID} {
		h.send(room, pid, domain.MessageTypeBattleStart, pid, payload)
	}
}

// handleBattleReady announces the start exactly once, on the ready signal
// that completes the pair
func (h *Hub) handleBattleReady(room string, uid int, m domain.BattleReady) {
	b, started, err := h.battles.MarkReady(m.BattleID, uid)
	if err != nil {
		h.logBattleError("battle ready ignored", m.BattleID, uid, err)
		return
	}
	if !started {
		return
	}

	h.logger.Info("battle running", zap.String("battle_id", b.ID))
	payload := domain.BattleStartPayload{
		BattleID:  b.ID,
		Player1ID: b.Player1ID,
		Player2ID: b.Player2ID,
	}
	h.send(room, b.Player1ID, domain.MessageTypeBattleAllReady, 0, payload)
	h.send(room, b.Player2ID, domain.MessageTypeBattleAllReady, 0, payload)
}

// handleBattleUpdate stores the live score and relays the merged score map to
// both participants. The sender does not have to be one of them.
func (h *Hub) handleBattleUpdate(room string, uid int, m domain.BattleUpdate) {
	b, err := h.battles.Update(m.BattleID, uid, m.Score, m.State)
	if err != nil {
		h.logBattleError("battle update ignored", m.BattleID, uid, err)
		return
	}

	payload := domain.BattleUpdatePayload{
		BattleID: b.ID,
		Scores:   b.ScoresSnapshot(),
		State:    b.State,
	}
	h.send(room, b.Player1ID, domain.MessageTypeBattleUpdate, uid, payload)
	h.send(room, b.Player2ID, domain.MessageTypeBattleUpdate, uid, payload)
}

// handleBattleResult finalizes on the first report. The winner's lobby score
// goes up by one; a draw changes nothing.
func (h *Hub) handleBattleResult(room string, uid int, m domain.BattleResult) {
	b, res, err := h.battles.Finish(m.BattleID, uid, m.Score)
	if err != nil {
		h.logBattleError("battle result ignored", m.BattleID, uid, err)
		return
	}

	if res.WinnerUserID != domain.NoWinner {
		if p, ok := h.presence.AwardWin(room, res.WinnerUserID); ok {
			h.logger.Debug("win awarded", zap.Int("user_id", res.WinnerUserID), zap.Int("score", p.Score))
		}
	}

	h.logger.Info("battle finished",
		zap.String("battle_id", b.ID),
		zap.Int("winner_user_id", res.WinnerUserID),
		zap.Int("player1_score", res.Player1Score),
		zap.Int("player2_score", res.Player2Score),
	)
	h.emitResult(room, b, res)
}

// resolveBattleDisconnect settles the battle of a leaving player. A battle
// still waiting is dropped silently; otherwise the opponent wins by forfeit.
func (h *Hub) resolveBattleDisconnect(room string, uid int) {
	b, res, found := h.battles.ResolveDisconnect(room, uid)
	if !found {
		return
	}
	if res == nil {
		h.logger.Info("battle dropped before start", zap.String("battle_id", b.ID), zap.Int("user_id", uid))
		return
	}

	h.logger.Info("battle forfeited",
		zap.String("battle_id", b.ID),
		zap.Int("user_id", uid),
		zap.Int("winner_user_id", res.WinnerUserID),
	)
	h.emitResult(room, b, *res)
}

func (h *Hub) emitResult(room string, b *usecase.Battle, res domain.BattleResultPayload) {
	h.send(room, b.Player1ID, domain.MessageTypeBattleResult, res.WinnerUserID, res)
	h.send(room, b.Player2ID, domain.MessageTypeBattleResult, res.WinnerUserID, res)
	h.publish(domain.MessageTypeBattleResult, res.WinnerUserID, res)
}

func (h *Hub) rejectBattle(room string, uid int, reason, text string) {
	h.send(room, uid, domain.MessageTypeBattleNotAllowed, uid, domain.RejectionPayload{
		Reason:  reason,
		Message: text,
	})
}

// logBattleError logs stale battle ids at debug and anything else at warn
func (h *Hub) logBattleError(msg, battleID string, uid int, err error) {
	fields := []zap.Field{zap.String("battle_id", battleID), zap.Int("user_id", uid), zap.Error(err)}
	if errors.Is(err, usecase.ErrBattleNotFound) {
		h.logger.Debug(msg, fields...)
		return
	}
	h.logger.Warn(msg, fields...)
}
