package usecase

import (
	"sort"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
)

// Directory stores the presence snapshot of every lobby member, per room.
// Not safe for concurrent use; the hub loop owns it.
type Directory struct {
	rooms map[string]map[int]domain.Player
}

// NewDirectory creates an empty presence directory
func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]map[int]domain.Player),
	}
}

// Upsert replaces the stored snapshot wholesale
func (d *Directory) Upsert(room string, userID int, p domain.Player) {
	players, ok := d.rooms[room]
	if !ok {
		players = make(map[int]domain.Player)
		d.rooms[room] = players
	}
	players[userID] = p
}

// Get returns the snapshot for a user
func (d *Directory) Get(room string, userID int) (domain.Player, bool) {
	p, ok := d.rooms[room][userID]
	return p, ok
}

// List returns every snapshot in the room tagged with its user id, sorted by
// user id
func (d *Directory) List(room string) []domain.PlayerEntry {
	players := d.rooms[room]
	entries := make([]domain.PlayerEntry, 0, len(players))
	for id, p := range players {
		entries = append(entries, domain.PlayerEntry{UserID: id, Player: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// Energy returns the user's energy, or false when the user has no snapshot
func (d *Directory) Energy(room string, userID int) (int, bool) {
	p, ok := d.Get(room, userID)
	if !ok {
		return 0, false
	}
	return p.Energy, true
}

// Remove deletes the user's snapshot
func (d *Directory) Remove(room string, userID int) {
	players, ok := d.rooms[room]
	if !ok {
		return
	}
	delete(players, userID)
	if len(players) == 0 {
		delete(d.rooms, room)
	}
}

// AwardWin adds one to the user's cumulative score through the upsert path.
// Users without a snapshot are skipped.
func (d *Directory) AwardWin(room string, userID int) (domain.Player, bool) {
	p, ok := d.Get(room, userID)
	if !ok {
		return domain.Player{}, false
	}
	p.Score++
	d.Upsert(room, userID, p)
	return p, true
}

// Count returns the number of players in a room
func (d *Directory) Count(room string) int {
	return len(d.rooms[room])
}
