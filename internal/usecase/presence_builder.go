package usecase

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
)

var (
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// PresenceBuilder turns join/update patches into full presence snapshots.
//
// Default table, used when a field is absent and there is no previous value:
//
//	display_name  "Player<id>"
//	pet_id        0
//	pet_name      "MyPet"
//	energy        100
//	status        "ACTIVE"
//	score         0
//	x, y          uniform random integer position inside the world bounds
//
// Empty text fields and a zero pet_id count as absent.
type PresenceBuilder struct {
	mu     sync.Mutex
	rng    *rand.Rand
	width  int
	height int
}

// NewPresenceBuilder creates a builder spawning players inside width x height
func NewPresenceBuilder(width, height int) *PresenceBuilder {
	return NewPresenceBuilderWithRand(width, height, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewPresenceBuilderWithRand is NewPresenceBuilder with a caller supplied
// random source
func NewPresenceBuilderWithRand(width, height int, rng *rand.Rand) *PresenceBuilder {
	if width <= 0 {
		width = domain.WorldWidth
	}
	if height <= 0 {
		height = domain.WorldHeight
	}
	return &PresenceBuilder{
		rng:    rng,
		width:  width,
		height: height,
	}
}

// Join builds a fresh snapshot. Previous state is ignored on join.
func (b *PresenceBuilder) Join(userID int, patch domain.PresencePatch) domain.Player {
	return b.Merge(userID, nil, patch)
}

// Merge applies patch over prev. Fields missing from the patch keep prev's
// value; with no prev the default table applies.
func (b *PresenceBuilder) Merge(userID int, prev *domain.Player, patch domain.PresencePatch) domain.Player {
	base := domain.Player{
		DisplayName: fmt.Sprintf("Player%d", userID),
		PetID:       domain.DefaultPetID,
		PetName:     domain.DefaultPetName,
		Energy:      domain.DefaultEnergy,
		Status:      domain.DefaultStatus,
		Score:       domain.DefaultScore,
	}
	if prev != nil {
		base = *prev
	}

	p := base
	if name := sanitizeName(patch.DisplayName); name != "" {
		p.DisplayName = name
	}
	if patch.PetID != nil && *patch.PetID != 0 {
		p.PetID = *patch.PetID
	}
	if name := sanitizeName(patch.PetName); name != "" {
		p.PetName = name
	}
	if patch.Energy != nil {
		p.Energy = *patch.Energy
	}
	if patch.Status != nil && *patch.Status != "" {
		p.Status = *patch.Status
	}
	if patch.Score != nil {
		p.Score = *patch.Score
	}

	switch {
	case patch.X != nil && patch.Y != nil:
		p.X, p.Y = *patch.X, *patch.Y
	case prev != nil:
		if patch.X != nil {
			p.X = *patch.X
		}
		if patch.Y != nil {
			p.Y = *patch.Y
		}
	default:
		p.X, p.Y = b.RandomPosition()
	}

	return p
}

// RandomPosition returns a uniform random integer position within the world
func (b *PresenceBuilder) RandomPosition() (float64, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.rng.Intn(b.width + 1)), float64(b.rng.Intn(b.height + 1))
}

// sanitizeName cleans display and pet names. Empty means "not provided".
func sanitizeName(raw *string) string {
	if raw == nil {
		return ""
	}
	name := strings.TrimSpace(*raw)

	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		runes := []rune(name)
		name = string(runes[:domain.MaxNameLength])
	}

	name = htmlTagRegex.ReplaceAllString(name, "")
	name = controlCharRegex.ReplaceAllString(name, "")

	return strings.TrimSpace(name)
}
