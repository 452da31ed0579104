package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type TravelRepository interface {
	GetActiveByPlayer(ctx context.Context, playerID int64) (*models.TravelState, error)
	// Create inserts the travel row on the caller's transaction so the
	// departure charge and the voyage commit or roll back together.
	Create(ctx context.Context, db bun.IDB, travel *models.TravelState) error
	// MarkArrived transitions ACTIVE -> ARRIVED; returns false when the
	// row was already claimed by a racing request.
	MarkArrived(ctx context.Context, db bun.IDB, id int64) (bool, error)
}

type travelRepository struct {
	db *bun.DB
}

func NewTravelRepository(db *bun.DB) TravelRepository {
	return &travelRepository{db: db}
}

func (r *travelRepository) GetActiveByPlayer(ctx context.Context, playerID int64) (*models.TravelState, error) {
	travel := new(models.TravelState)
	err := r.db.NewSelect().
		Model(travel).
		Where("player_id = ? AND status = ?", playerID, models.TravelStatusActive).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return travel, nil
}

func (r *travelRepository) Create(ctx context.Context, db bun.IDB, travel *models.TravelState) error {
	travel.CreatedAt = time.Now()
	_, err := db.NewInsert().Model(travel).Exec(ctx)
	return err
}

func (r *travelRepository) MarkArrived(ctx context.Context, db bun.IDB, id int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.TravelState)(nil)).
		Set("status = ?", models.TravelStatusArrived).
		Where("id = ? AND status = ?", id, models.TravelStatusActive).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
