package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
)

// LoreUnlocker runs the shared unlock checks. Unlocks just granted are
// returned fully resolved; the masked-placeholder rule only applies to
// entries a player has not earned.
type LoreUnlocker struct {
	lore repositories.LoreRepository
	rng  func() float64
}

func NewLoreUnlocker(lore repositories.LoreRepository) *LoreUnlocker {
	return &LoreUnlocker{
		lore: lore,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())).Float64,
	}
}

// WithRNG replaces the drop-chance roll source; used by tests.
func (u *LoreUnlocker) WithRNG(rng func() float64) *LoreUnlocker {
	u.rng = rng
	return u
}

// CheckSource rolls drop-chance entries keyed by (sourceType,
// sourceKey), e.g. (MAP_DISCOVERY, tile type) or (DUNGEON_DROP,
// dungeon id).
func (u *LoreUnlocker) CheckSource(ctx context.Context, playerID int64, sourceType, sourceKey string) ([]LoreView, error) {
	entries, err := u.lore.GetBySource(ctx, sourceType, sourceKey)
	if err != nil {
		return nil, err
	}

	var unlocked []LoreView
	now := time.Now()
	for _, e := range entries {
		if e.DropChance < 1 && u.rng() >= e.DropChance {
			continue
		}
		fresh, err := u.lore.Unlock(ctx, playerID, e.ID)
		if err != nil {
			return unlocked, err
		}
		if fresh {
			unlocked = append(unlocked, ResolveLore(e, now))
		}
	}
	return unlocked, nil
}

// CheckThreshold unlocks every entry of a source type whose threshold
// the player's total now meets.
func (u *LoreUnlocker) CheckThreshold(ctx context.Context, playerID int64, sourceType string, total int64) ([]LoreView, error) {
	entries, err := u.lore.GetThresholdEntries(ctx, sourceType, total)
	if err != nil {
		return nil, err
	}

	var unlocked []LoreView
	now := time.Now()
	for _, e := range entries {
		fresh, err := u.lore.Unlock(ctx, playerID, e.ID)
		if err != nil {
			return unlocked, err
		}
		if fresh {
			unlocked = append(unlocked, ResolveLore(e, now))
		}
	}
	return unlocked, nil
}
