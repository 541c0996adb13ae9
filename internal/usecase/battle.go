package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
)

var (
	ErrBattleNotFound  = errors.New("battle not found")
	ErrNotParticipant  = errors.New("user is not a battle participant")
	ErrSamePlayer      = errors.New("battle needs two distinct players")
	ErrDuplicateBattle = errors.New("battle id already in use")
	ErrPlayerInBattle  = errors.New("player is already in a battle")
)

// Battle is one two-player contest
type Battle struct {
	ID        string
	RoomID    string
	Player1ID int
	Player2ID int

	// State is "waiting", "running" or whatever label the last
	// battle_update carried
	State string

	Scores  map[int]int  // last live score per user
	Ready   map[int]bool // readiness per participant
	Results map[int]int  // final scores, filled at finish time

	started bool
}

// HasPlayer reports whether userID is one of the two participants
func (b *Battle) HasPlayer(userID int) bool {
	return userID == b.Player1ID || userID == b.Player2ID
}

// Opponent returns the other participant
func (b *Battle) Opponent(userID int) int {
	if userID == b.Player1ID {
		return b.Player2ID
	}
	return b.Player1ID
}

// ScoresSnapshot copies the live score map for broadcasting
func (b *Battle) ScoresSnapshot() map[int]int {
	out := make(map[int]int, len(b.Scores))
	for id, s := range b.Scores {
		out[id] = s
	}
	return out
}

func (b *Battle) result(p1Score, p2Score int) domain.BattleResultPayload {
	winner := domain.NoWinner
	switch {
	case p1Score > p2Score:
		winner = b.Player1ID
	case p2Score > p1Score:
		winner = b.Player2ID
	}
	return domain.BattleResultPayload{
		BattleID:     b.ID,
		WinnerUserID: winner,
		Player1ID:    b.Player1ID,
		Player2ID:    b.Player2ID,
		Player1Score: p1Score,
		Player2Score: p2Score,
	}
}

// BattleTable owns every active battle. Not safe for concurrent use; the hub
// loop owns it.
type BattleTable struct {
	battles map[string]*Battle
	order   []string // creation order, for deterministic lookups by user
	now     func() time.Time
}

// NewBattleTable creates an empty table. now may be nil.
func NewBattleTable(now func() time.Time) *BattleTable {
	if now == nil {
		now = time.Now
	}
	return &BattleTable{
		battles: make(map[string]*Battle),
		now:     now,
	}
}

// Create opens a battle in the waiting state. The id is derived from the
// creation time and both participants; a collision is reported, not avoided.
// A player takes part in at most one battle per room.
func (t *BattleTable) Create(room string, player1ID, player2ID int) (*Battle, error) {
	if player1ID == player2ID {
		return nil, ErrSamePlayer
	}

	id := fmt.Sprintf("%d-%d-%d", t.now().UnixMilli(), player1ID, player2ID)
	if _, exists := t.battles[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateBattle, id)
	}
	for _, uid := range []int{player1ID, player2ID} {
		if b, busy := t.FindByUser(room, uid); busy {
			return nil, fmt.Errorf("%w: user %d in %s", ErrPlayerInBattle, uid, b.ID)
		}
	}

	b := &Battle{
		ID:        id,
		RoomID:    room,
		Player1ID: player1ID,
		Player2ID: player2ID,
		State:     domain.BattleStateWaiting,
		Scores:    make(map[int]int),
		Ready:     make(map[int]bool),
		Results:   make(map[int]int),
	}
	t.battles[id] = b
	t.order = append(t.order, id)
	return b, nil
}

// Get returns an active battle
func (t *BattleTable) Get(id string) (*Battle, bool) {
	b, ok := t.battles[id]
	return b, ok
}

// Remove deletes a battle. It reports false if the battle was already gone.
func (t *BattleTable) Remove(id string) bool {
	if _, ok := t.battles[id]; !ok {
		return false
	}
	delete(t.battles, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// FindByUser returns the oldest active battle in room that userID plays in
func (t *BattleTable) FindByUser(room string, userID int) (*Battle, bool) {
	for _, id := range t.order {
		b := t.battles[id]
		if b.RoomID == room && b.HasPlayer(userID) {
			return b, true
		}
	}
	return nil, false
}

// Count returns the number of active battles
func (t *BattleTable) Count() int {
	return len(t.battles)
}

// MarkReady records readiness. started is true exactly once per battle: on
// the call that completes the two-party handshake.
func (t *BattleTable) MarkReady(id string, userID int) (b *Battle, started bool, err error) {
	b, ok := t.battles[id]
	if !ok {
		return nil, false, ErrBattleNotFound
	}
	if !b.HasPlayer(userID) {
		return b, false, ErrNotParticipant
	}

	b.Ready[userID] = true
	if b.started || !b.Ready[b.Player1ID] || !b.Ready[b.Player2ID] {
		return b, false, nil
	}

	b.started = true
	b.State = domain.BattleStateRunning
	return b, true, nil
}

// Update stores a live score for userID and overwrites the state label. Any
// user may report; membership is not checked.
func (t *BattleTable) Update(id string, userID, score int, state string) (*Battle, error) {
	b, ok := t.battles[id]
	if !ok {
		return nil, ErrBattleNotFound
	}
	b.Scores[userID] = score
	b.State = state
	return b, nil
}

// Finish records userID's final score and finalizes the battle right away.
// A participant that has not reported yet gets its last live score (0 when it
// never sent one). The battle is removed.
func (t *BattleTable) Finish(id string, userID, score int) (*Battle, domain.BattleResultPayload, error) {
	b, ok := t.battles[id]
	if !ok {
		return nil, domain.BattleResultPayload{}, ErrBattleNotFound
	}
	if !b.HasPlayer(userID) {
		return b, domain.BattleResultPayload{}, ErrNotParticipant
	}

	b.Results[userID] = score
	b.Scores[userID] = score

	other := b.Opponent(userID)
	if _, reported := b.Results[other]; !reported {
		b.Results[other] = b.Scores[other]
	}

	res := b.result(b.Results[b.Player1ID], b.Results[b.Player2ID])
	t.Remove(id)
	return b, res, nil
}

// ResolveDisconnect settles the battle userID was in when their connection
// ended. A waiting battle is dropped without a result; any other state is a
// forfeit won by the opponent with the last live scores. found is false when
// the user had no battle.
func (t *BattleTable) ResolveDisconnect(room string, userID int) (b *Battle, res *domain.BattleResultPayload, found bool) {
	b, ok := t.FindByUser(room, userID)
	if !ok {
		return nil, nil, false
	}
	t.Remove(b.ID)

	if b.State == domain.BattleStateWaiting {
		return b, nil, true
	}

	r := b.result(b.Scores[b.Player1ID], b.Scores[b.Player2ID])
	r.WinnerUserID = b.Opponent(userID)
	return b, &r, true
}
