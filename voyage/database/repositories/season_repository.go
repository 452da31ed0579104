package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

var ErrNoActiveSeason = errors.New("no active season")

type SeasonRepository interface {
	GetActive(ctx context.Context) (*models.Season, error)
	GetContrib(ctx context.Context, seasonID, playerID int64) (int64, error)
	// Leaderboard returns the top contributors, ties broken by
	// insertion order.
	Leaderboard(ctx context.Context, seasonID int64, limit int) ([]*models.SeasonContrib, error)
	// AddProgress increments the season pool on the caller's
	// transaction.
	AddProgress(ctx context.Context, db bun.IDB, seasonID int64, amount int64) error
	// UpsertContrib applies the insert-or-increment merge for a
	// player's per-season total on the caller's transaction.
	UpsertContrib(ctx context.Context, db bun.IDB, seasonID, playerID int64, amount int64) error
}

type seasonRepository struct {
	db *bun.DB
}

func NewSeasonRepository(db *bun.DB) SeasonRepository {
	return &seasonRepository{db: db}
}

func (r *seasonRepository) GetActive(ctx context.Context) (*models.Season, error) {
	season := new(models.Season)
	err := r.db.NewSelect().
		Model(season).
		Where("status = ?", models.SeasonStatusActive).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSeason
		}
		return nil, err
	}
	return season, nil
}

func (r *seasonRepository) GetContrib(ctx context.Context, seasonID, playerID int64) (int64, error) {
	var contrib models.SeasonContrib
	err := r.db.NewSelect().
		Model(&contrib).
		Where("season_id = ? AND player_id = ?", seasonID, playerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return contrib.Amount, nil
}

func (r *seasonRepository) Leaderboard(ctx context.Context, seasonID int64, limit int) ([]*models.SeasonContrib, error) {
	var contribs []*models.SeasonContrib
	err := r.db.NewSelect().
		Model(&contribs).
		Where("season_id = ?", seasonID).
		OrderExpr("amount DESC, id ASC").
		Limit(limit).
		Scan(ctx)
	return contribs, err
}

func (r *seasonRepository) AddProgress(ctx context.Context, db bun.IDB, seasonID int64, amount int64) error {
	_, err := db.NewUpdate().
		Model((*models.Season)(nil)).
		Set("current_progress = current_progress + ?", amount).
		Where("id = ?", seasonID).
		Exec(ctx)
	return err
}

func (r *seasonRepository) UpsertContrib(ctx context.Context, db bun.IDB, seasonID, playerID int64, amount int64) error {
	contrib := &models.SeasonContrib{
		SeasonID:  seasonID,
		PlayerID:  playerID,
		Amount:    amount,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err := db.NewInsert().
		Model(contrib).
		On("CONFLICT (season_id, player_id) DO UPDATE").
		Set("amount = sc.amount + EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
