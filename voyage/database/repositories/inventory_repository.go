package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type InventoryRepository interface {
	GetByPlayer(ctx context.Context, playerID int64) ([]*models.InventoryItem, error)
	GetItem(ctx context.Context, playerID, goodID int64) (*models.InventoryItem, error)
	TotalQuantity(ctx context.Context, playerID int64) (int, error)
}

type inventoryRepository struct {
	db *bun.DB
}

func NewInventoryRepository(db *bun.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetByPlayer(ctx context.Context, playerID int64) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	err := r.db.NewSelect().
		Model(&items).
		Relation("Good").
		Where("player_id = ?", playerID).
		Order("good_id ASC").
		Scan(ctx)
	return items, err
}

func (r *inventoryRepository) GetItem(ctx context.Context, playerID, goodID int64) (*models.InventoryItem, error) {
	item := new(models.InventoryItem)
	err := r.db.NewSelect().
		Model(item).
		Where("player_id = ? AND good_id = ?", playerID, goodID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// TotalQuantity sums held units for cargo-capacity checks.
func (r *inventoryRepository) TotalQuantity(ctx context.Context, playerID int64) (int, error) {
	var total int
	err := r.db.NewSelect().
		Model((*models.InventoryItem)(nil)).
		ColumnExpr("COALESCE(SUM(quantity), 0)").
		Where("player_id = ?", playerID).
		Scan(ctx, &total)
	return total, err
}
