package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType defines the type of message being sent
type MessageType string

// Inbound message types
const (
	MessageTypeJoinLobby         MessageType = "join_lobby"
	MessageTypePetStateUpdate    MessageType = "pet_state_update"
	MessageTypeUpdatePosition    MessageType = "update_position"
	MessageTypeChatRequest       MessageType = "chat_request"
	MessageTypeChatRequestAccept MessageType = "chat_request_accept"
	MessageTypeChatMessage       MessageType = "chat_message"
	MessageTypeBattleInvite      MessageType = "battle_invite"
	MessageTypeBattleAccept      MessageType = "battle_accept"
	MessageTypeBattleReady       MessageType = "battle_ready"
	MessageTypeBattleUpdate      MessageType = "battle_update"
	MessageTypeBattleResult      MessageType = "battle_result"
)

// Outbound-only message types. chat_request, chat_message, battle_invite,
// battle_update and battle_result are reused in both directions.
const (
	MessageTypeLobbyState       MessageType = "lobby_state"
	MessageTypePlayerJoined     MessageType = "player_joined"
	MessageTypePlayerLeft       MessageType = "player_left"
	MessageTypePlayerMoved      MessageType = "player_moved"
	MessageTypeChatApproved     MessageType = "chat_approved"
	MessageTypeChatNotAllowed   MessageType = "chat_not_allowed"
	MessageTypeBattleNotAllowed MessageType = "battle_not_allowed"
	MessageTypeBattleStart      MessageType = "battle_start"
	MessageTypeBattleAllReady   MessageType = "battle_all_ready"
)

// Rejection reasons
const (
	ReasonLowEnergy       = "LOW_ENERGY"
	ReasonChatNotApproved = "CHAT_NOT_APPROVED"
	ReasonTargetOffline   = "TARGET_OFFLINE"
)

// Envelope is the wire shape of every outbound message
type Envelope struct {
	Type     MessageType `json:"type"`
	ServerID string      `json:"server_id"`
	UserID   int         `json:"user_id"`
	Payload  any         `json:"payload,omitempty"`
}

// Encode marshals an outbound envelope
func Encode(t MessageType, serverID string, userID int, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		Type:     t,
		ServerID: serverID,
		UserID:   userID,
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return data, nil
}

// Frame is a parsed inbound envelope whose payload is still raw
type Frame struct {
	Type      MessageType
	UserID    int
	HasUserID bool
	Payload   json.RawMessage
}

// ParseFrame decodes the envelope of an inbound frame. server_id is ignored:
// the room is always taken from the connection.
func ParseFrame(data []byte) (Frame, error) {
	var raw struct {
		Type    *string         `json:"type"`
		UserID  json.RawMessage `json:"user_id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if raw.Type == nil {
		return Frame{}, fmt.Errorf("%w: type", ErrMalformedEnvelope)
	}

	f := Frame{
		Type:    MessageType(*raw.Type),
		Payload: raw.Payload,
	}

	// An unparseable user_id is treated like a missing one
	if id, ok, err := parseInt(raw.UserID); err == nil && ok {
		f.UserID = id
		f.HasUserID = true
	}
	return f, nil
}

// ==== Outbound payloads ====

// LobbyStatePayload is the full lobby snapshot
type LobbyStatePayload struct {
	Players []PlayerEntry `json:"players"`
}

// PlayerJoinedPayload announces a new lobby member
type PlayerJoinedPayload struct {
	Player PlayerEntry `json:"player"`
}

// PlayerLeftPayload announces a departed lobby member
type PlayerLeftPayload struct {
	UserID int `json:"user_id"`
}

// PlayerMovedPayload is a position delta
type PlayerMovedPayload struct {
	UserID int     `json:"user_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ChatRequestPayload is forwarded to the chat target
type ChatRequestPayload struct {
	FromUserID int `json:"from_user_id"`
	ToUserID   int `json:"to_user_id"`
}

// ChatApprovedPayload is sent to both sides of an approved pair
type ChatApprovedPayload struct {
	UserID1 int `json:"user_id_1"`
	UserID2 int `json:"user_id_2"`
}

// ChatMessagePayload is a relayed private message
type ChatMessagePayload struct {
	FromUserID int    `json:"from_user_id"`
	ToUserID   int    `json:"to_user_id"`
	Content    string `json:"content"`
}

// RejectionPayload explains a policy rejection
type RejectionPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// BattleInvitePayload is forwarded to the invited player
type BattleInvitePayload struct {
	FromUserID int `json:"from_user_id"`
	ToUserID   int `json:"to_user_id"`
}

// BattleStartPayload is used by battle_start and battle_all_ready
type BattleStartPayload struct {
	BattleID  string `json:"battle_id"`
	Player1ID int    `json:"player1_id"`
	Player2ID int    `json:"player2_id"`
}

// BattleUpdatePayload carries the merged live scores
type BattleUpdatePayload struct {
	BattleID string      `json:"battle_id"`
	Scores   map[int]int `json:"scores"`
	State    string      `json:"state"`
}

// BattleResultPayload is identical for both participants
type BattleResultPayload struct {
	BattleID     string `json:"battle_id"`
	WinnerUserID int    `json:"winner_user_id"`
	Player1ID    int    `json:"player1_id"`
	Player2ID    int    `json:"player2_id"`
	Player1Score int    `json:"player1_score"`
	Player2Score int    `json:"player2_score"`
}
