package domain

// Player is the public presence snapshot of one lobby member
type Player struct {
	DisplayName string  `json:"display_name"`
	PetID       int     `json:"pet_id"`
	PetName     string  `json:"pet_name"`
	Energy      int     `json:"energy"`
	Status      string  `json:"status"`
	Score       int     `json:"score"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// PlayerEntry is a Player tagged with its user id, as sent to clients
type PlayerEntry struct {
	UserID int `json:"user_id"`
	Player
}

// PresencePatch carries the optional presence fields of join_lobby and
// pet_state_update. Nil means the client did not send the field.
type PresencePatch struct {
	DisplayName *string
	PetID       *int
	PetName     *string
	Energy      *int
	Status      *string
	Score       *int
	X           *float64
	Y           *float64
}
