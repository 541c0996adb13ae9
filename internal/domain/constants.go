package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096

// SendBufferSize is the default outbound queue length per connection
const SendBufferSize = 256

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitWS is the default rate limit for WebSocket upgrades (req/sec)
	DefaultRateLimitWS = 5

	// DefaultRateLimitMsg is the default inbound frame rate per connection
	DefaultRateLimitMsg = 50
)

// ==== Lobby Constants ====

const (
	// DefaultServerID is the room served when none is configured
	DefaultServerID = "C"

	// WorldWidth and WorldHeight bound the random spawn position
	WorldWidth  = 200
	WorldHeight = 200
)

// ==== Policy Thresholds ====

const (
	// ChatEnergyFloor blocks chat actions at or below this energy
	ChatEnergyFloor = 30

	// BattleEnergyMin is the minimum energy to invite or start a battle
	BattleEnergyMin = 70
)

// ==== Presence Defaults ====
//
// Applied when a field is absent from a join or update and there is no
// previous value to keep.

const (
	DefaultEnergy  = 100
	DefaultScore   = 0
	DefaultStatus  = "ACTIVE"
	DefaultPetID   = 0
	DefaultPetName = "MyPet"

	// MaxNameLength caps display and pet names (runes)
	MaxNameLength = 50
)

// ==== Battle Constants ====

const (
	BattleStateWaiting = "waiting"
	BattleStateRunning = "running"

	// NoWinner marks a draw in battle results
	NoWinner = 0
)

// ==== Timing Constants ====

const (
	// WriteWait is the time allowed to write a message to the peer
	WriteWait = 10 * time.Second

	// PongWait is the time allowed to read the next pong message from the peer
	PongWait = 60 * time.Second

	// ShutdownGracePeriod bounds graceful HTTP shutdown
	ShutdownGracePeriod = 30 * time.Second
)
