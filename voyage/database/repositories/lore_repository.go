package repositories

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type LoreRepository interface {
	GetAll(ctx context.Context) ([]*models.LoreEntry, error)
	GetBySource(ctx context.Context, sourceType, sourceKey string) ([]*models.LoreEntry, error)
	GetThresholdEntries(ctx context.Context, sourceType string, threshold int64) ([]*models.LoreEntry, error)
	// GetUnlocked maps unlocked lore ids to their unlock timestamps.
	GetUnlocked(ctx context.Context, playerID int64) (map[int64]time.Time, error)
	// Unlock inserts the join row; a racing duplicate is a no-op and
	// reports false.
	Unlock(ctx context.Context, playerID, loreID int64) (bool, error)
}

type loreRepository struct {
	db *bun.DB
}

func NewLoreRepository(db *bun.DB) LoreRepository {
	return &loreRepository{db: db}
}

func (r *loreRepository) GetAll(ctx context.Context) ([]*models.LoreEntry, error) {
	var entries []*models.LoreEntry
	err := r.db.NewSelect().
		Model(&entries).
		Order("id ASC").
		Scan(ctx)
	return entries, err
}

func (r *loreRepository) GetBySource(ctx context.Context, sourceType, sourceKey string) ([]*models.LoreEntry, error) {
	var entries []*models.LoreEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("source_type = ? AND source_key = ?", sourceType, sourceKey).
		Scan(ctx)
	return entries, err
}

func (r *loreRepository) GetThresholdEntries(ctx context.Context, sourceType string, threshold int64) ([]*models.LoreEntry, error) {
	var entries []*models.LoreEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("source_type = ? AND unlock_threshold <= ?", sourceType, threshold).
		Scan(ctx)
	return entries, err
}

func (r *loreRepository) GetUnlocked(ctx context.Context, playerID int64) (map[int64]time.Time, error) {
	var unlocks []*models.PlayerLore
	err := r.db.NewSelect().
		Model(&unlocks).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[int64]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlocked[u.LoreID] = u.UnlockedAt
	}
	return unlocked, nil
}

func (r *loreRepository) Unlock(ctx context.Context, playerID, loreID int64) (bool, error) {
	unlock := &models.PlayerLore{
		PlayerID:   playerID,
		LoreID:     loreID,
		UnlockedAt: time.Now(),
	}
	res, err := r.db.NewInsert().
		Model(unlock).
		On("CONFLICT (player_id, lore_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
