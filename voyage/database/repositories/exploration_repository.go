package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type ExplorationRepository interface {
	Get(ctx context.Context, playerID int64, q, r int) (*models.Exploration, error)
	// RecordVisit increments visit_count on the caller's transaction,
	// inserting the row on first visit, and returns the resulting
	// count.
	RecordVisit(ctx context.Context, db bun.IDB, playerID int64, q, r int) (int, error)
	GetChunk(ctx context.Context, q, r int) (*models.MapChunk, error)
	UpsertBeacon(ctx context.Context, q, r int, playerID int64, text string) error
}

type explorationRepository struct {
	db *bun.DB
}

func NewExplorationRepository(db *bun.DB) ExplorationRepository {
	return &explorationRepository{db: db}
}

func (r *explorationRepository) Get(ctx context.Context, playerID int64, q, r2 int) (*models.Exploration, error) {
	exp := new(models.Exploration)
	err := r.db.NewSelect().
		Model(exp).
		Where("player_id = ? AND q = ? AND r = ?", playerID, q, r2).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return exp, nil
}

func (r *explorationRepository) RecordVisit(ctx context.Context, db bun.IDB, playerID int64, q, r2 int) (int, error) {
	exp := &models.Exploration{
		PlayerID:   playerID,
		Q:          q,
		R:          r2,
		VisitedAt:  time.Now(),
		VisitCount: 1,
	}
	err := db.NewInsert().
		Model(exp).
		On("CONFLICT (player_id, q, r) DO UPDATE").
		Set("visit_count = ex.visit_count + 1").
		Set("visited_at = EXCLUDED.visited_at").
		Returning("visit_count").
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return exp.VisitCount, nil
}

func (r *explorationRepository) GetChunk(ctx context.Context, q, r2 int) (*models.MapChunk, error) {
	chunk := new(models.MapChunk)
	err := r.db.NewSelect().
		Model(chunk).
		Where("q = ? AND r = ?", q, r2).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return chunk, nil
}

func (r *explorationRepository) UpsertBeacon(ctx context.Context, q, r2 int, playerID int64, text string) error {
	chunk := &models.MapChunk{
		Q:            q,
		R:            r2,
		BeaconText:   text,
		BeaconPlayer: playerID,
		UpdatedAt:    time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(chunk).
		On("CONFLICT (q, r) DO UPDATE").
		Set("beacon_text = EXCLUDED.beacon_text").
		Set("beacon_player = EXCLUDED.beacon_player").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
