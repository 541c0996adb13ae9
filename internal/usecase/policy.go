package usecase

import "github.com/mmuslimabdulj/pet-lobby/internal/domain"

// ChatAllowed reports whether a sender may start or send a chat. Unknown
// energy passes.
func ChatAllowed(energy int, known bool) bool {
	return !known || energy > domain.ChatEnergyFloor
}

// BattleAllowed reports whether a player may invite to or start a battle.
// Unknown energy passes.
func BattleAllowed(energy int, known bool) bool {
	return !known || energy >= domain.BattleEnergyMin
}
