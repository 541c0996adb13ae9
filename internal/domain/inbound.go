package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Inbound is a validated client command. Exactly one concrete type exists per
// inbound message type.
type Inbound interface {
	Kind() MessageType
}

// JoinLobby binds the connection identity and enters the lobby
type JoinLobby struct {
	Presence PresencePatch
}

// PetStateUpdate merges presence fields into the stored snapshot
type PetStateUpdate struct {
	Presence PresencePatch
}

// UpdatePosition moves the player
type UpdatePosition struct {
	X float64
	Y float64
}

// ChatRequest asks another player for a private chat
type ChatRequest struct {
	ToUserID int
}

// ChatRequestAccept approves a pending chat request
type ChatRequestAccept struct {
	FromUserID int
}

// ChatMessage is a private message to an approved partner
type ChatMessage struct {
	ToUserID int
	Content  string
}

// BattleInvite challenges another player
type BattleInvite struct {
	ToUserID int
}

// BattleAccept accepts a challenge from FromUserID
type BattleAccept struct {
	FromUserID int
}

// BattleReady signals readiness for a battle
type BattleReady struct {
	BattleID string
}

// BattleUpdate reports a live score and an opaque state label
type BattleUpdate struct {
	BattleID string
	Score    int
	State    string
}

// BattleResult reports the sender's final score
type BattleResult struct {
	BattleID string
	Score    int
}

func (JoinLobby) Kind() MessageType         { return MessageTypeJoinLobby }
func (PetStateUpdate) Kind() MessageType    { return MessageTypePetStateUpdate }
func (UpdatePosition) Kind() MessageType    { return MessageTypeUpdatePosition }
func (ChatRequest) Kind() MessageType       { return MessageTypeChatRequest }
func (ChatRequestAccept) Kind() MessageType { return MessageTypeChatRequestAccept }
func (ChatMessage) Kind() MessageType       { return MessageTypeChatMessage }
func (BattleInvite) Kind() MessageType      { return MessageTypeBattleInvite }
func (BattleAccept) Kind() MessageType      { return MessageTypeBattleAccept }
func (BattleReady) Kind() MessageType       { return MessageTypeBattleReady }
func (BattleUpdate) Kind() MessageType      { return MessageTypeBattleUpdate }
func (BattleResult) Kind() MessageType      { return MessageTypeBattleResult }

// DecodePayload validates the payload of a frame against its message type
func DecodePayload(t MessageType, payload json.RawMessage) (Inbound, error) {
	f, err := newFields(payload)
	if err != nil {
		return nil, err
	}

	switch t {
	case MessageTypeJoinLobby:
		p, err := f.presence()
		if err != nil {
			return nil, err
		}
		return JoinLobby{Presence: p}, nil

	case MessageTypePetStateUpdate:
		p, err := f.presence()
		if err != nil {
			return nil, err
		}
		return PetStateUpdate{Presence: p}, nil

	case MessageTypeUpdatePosition:
		x, err := f.requireFloat("x")
		if err != nil {
			return nil, err
		}
		y, err := f.requireFloat("y")
		if err != nil {
			return nil, err
		}
		return UpdatePosition{X: x, Y: y}, nil

	case MessageTypeChatRequest:
		to, err := f.requireInt("to_user_id")
		if err != nil {
			return nil, err
		}
		return ChatRequest{ToUserID: to}, nil

	case MessageTypeChatRequestAccept:
		from, err := f.requireInt("from_user_id")
		if err != nil {
			return nil, err
		}
		return ChatRequestAccept{FromUserID: from}, nil

	case MessageTypeChatMessage:
		to, err := f.requireInt("to_user_id")
		if err != nil {
			return nil, err
		}
		content, err := f.requireString("content")
		if err != nil {
			return nil, err
		}
		return ChatMessage{ToUserID: to, Content: content}, nil

	case MessageTypeBattleInvite:
		to, err := f.requireInt("to_user_id")
		if err != nil {
			return nil, err
		}
		return BattleInvite{ToUserID: to}, nil

	case MessageTypeBattleAccept:
		from, err := f.requireInt("from_user_id")
		if err != nil {
			return nil, err
		}
		return BattleAccept{FromUserID: from}, nil

	case MessageTypeBattleReady:
		id, err := f.requireString("battle_id")
		if err != nil {
			return nil, err
		}
		return BattleReady{BattleID: id}, nil

	case MessageTypeBattleUpdate:
		id, err := f.requireString("battle_id")
		if err != nil {
			return nil, err
		}
		score, err := f.requireInt("score")
		if err != nil {
			return nil, err
		}
		state, err := f.requireString("state")
		if err != nil {
			return nil, err
		}
		return BattleUpdate{BattleID: id, Score: score, State: state}, nil

	case MessageTypeBattleResult:
		id, err := f.requireString("battle_id")
		if err != nil {
			return nil, err
		}
		score, err := f.requireInt("score")
		if err != nil {
			return nil, err
		}
		return BattleResult{BattleID: id, Score: score}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

// fields is a payload object keyed by field name
type fields map[string]json.RawMessage

func newFields(payload json.RawMessage) (fields, error) {
	if isNull(payload) {
		return fields{}, nil
	}
	var f fields
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrInvalidField)
	}
	return f, nil
}

func (f fields) presence() (PresencePatch, error) {
	var p PresencePatch
	var err error

	if p.DisplayName, err = f.optString("display_name"); err != nil {
		return p, err
	}
	if p.PetID, err = f.optInt("pet_id"); err != nil {
		return p, err
	}
	if p.PetName, err = f.optString("pet_name"); err != nil {
		return p, err
	}
	if p.Energy, err = f.optInt("energy"); err != nil {
		return p, err
	}
	if p.Status, err = f.optString("status"); err != nil {
		return p, err
	}
	if p.Score, err = f.optInt("score"); err != nil {
		return p, err
	}
	if p.X, err = f.optFloat("x"); err != nil {
		return p, err
	}
	if p.Y, err = f.optFloat("y"); err != nil {
		return p, err
	}
	return p, nil
}

func (f fields) requireInt(name string) (int, error) {
	v, err := f.optInt(name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return *v, nil
}

func (f fields) optInt(name string) (*int, error) {
	v, ok, err := parseInt(f[name])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f fields) requireFloat(name string) (float64, error) {
	v, err := f.optFloat(name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return *v, nil
}

func (f fields) optFloat(name string) (*float64, error) {
	v, ok, err := parseFloat(f[name])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f fields) requireString(name string) (string, error) {
	v := f.optStringValue(name)
	if v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return *v, nil
}

func (f fields) optString(name string) (*string, error) {
	return f.optStringValue(name), nil
}

// optStringValue accepts JSON strings as-is and renders any other scalar by
// its literal text, so numeric battle ids and labels still work
func (f fields) optStringValue(name string) *string {
	raw := f[name]
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = string(bytes.TrimSpace(raw))
	return &s
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseInt accepts JSON numbers and numeric strings. Fractions are truncated
// toward zero; values outside the int range are rejected.
func parseInt(raw json.RawMessage) (int, bool, error) {
	f, ok, err := parseFloat(raw)
	if err != nil || !ok {
		return 0, ok, err
	}
	// Prefer the exact integer form when there is one
	text := numericText(raw)
	if n, err := strconv.ParseInt(text, 10, strconv.IntSize); err == nil {
		return int(n), true, nil
	}

	t := math.Trunc(f)
	// float64(math.MaxInt) rounds up to 2^63, which is already out of range
	if t >= float64(math.MaxInt) || t < float64(math.MinInt) {
		return 0, false, fmt.Errorf("out of range: %s", raw)
	}
	return int(t), true, nil
}

// parseFloat accepts JSON numbers and numeric strings
func parseFloat(raw json.RawMessage) (float64, bool, error) {
	if isNull(raw) {
		return 0, false, nil
	}
	text := numericText(raw)
	if text == "" {
		return 0, false, fmt.Errorf("not a number: %s", raw)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not a number: %s", raw)
	}
	return f, true, nil
}

func numericText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	if len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')) {
		return string(trimmed)
	}
	return ""
}
