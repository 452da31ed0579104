package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type MarketRepository interface {
	GetPort(ctx context.Context, id int64) (*models.Port, error)
	GetPorts(ctx context.Context) ([]*models.Port, error)
	GetGoods(ctx context.Context) ([]*models.Good, error)
	GetItemsByPort(ctx context.Context, portID int64) ([]*models.MarketItem, error)
	OldestUpdatedAt(ctx context.Context, portID int64) (time.Time, bool, error)
	InsertItems(ctx context.Context, items []*models.MarketItem) error
	UpdateItem(ctx context.Context, item *models.MarketItem) error
}

type marketRepository struct {
	db *bun.DB
}

func NewMarketRepository(db *bun.DB) MarketRepository {
	return &marketRepository{db: db}
}

func (r *marketRepository) GetPort(ctx context.Context, id int64) (*models.Port, error) {
	port := new(models.Port)
	err := r.db.NewSelect().
		Model(port).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return port, nil
}

func (r *marketRepository) GetPorts(ctx context.Context) ([]*models.Port, error) {
	var ports []*models.Port
	err := r.db.NewSelect().
		Model(&ports).
		Order("id ASC").
		Scan(ctx)
	return ports, err
}

func (r *marketRepository) GetGoods(ctx context.Context) ([]*models.Good, error) {
	var goods []*models.Good
	err := r.db.NewSelect().
		Model(&goods).
		Order("id ASC").
		Scan(ctx)
	return goods, err
}

func (r *marketRepository) GetItemsByPort(ctx context.Context, portID int64) ([]*models.MarketItem, error) {
	var items []*models.MarketItem
	err := r.db.NewSelect().
		Model(&items).
		Relation("Good").
		Where("port_id = ?", portID).
		Order("good_id ASC").
		Scan(ctx)
	return items, err
}

// OldestUpdatedAt reports the stalest refresh time for a port; the
// bool is false when the port has no market rows yet.
func (r *marketRepository) OldestUpdatedAt(ctx context.Context, portID int64) (time.Time, bool, error) {
	var item models.MarketItem
	err := r.db.NewSelect().
		Model(&item).
		Column("updated_at").
		Where("port_id = ?", portID).
		Order("updated_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return item.UpdatedAt, true, nil
}

func (r *marketRepository) InsertItems(ctx context.Context, items []*models.MarketItem) error {
	if len(items) == 0 {
		return nil
	}
	// Seeding races with other first-callers; the unique (port, good)
	// index makes losers a no-op instead of a duplicate.
	_, err := r.db.NewInsert().
		Model(&items).
		On("CONFLICT (port_id, good_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *marketRepository) UpdateItem(ctx context.Context, item *models.MarketItem) error {
	_, err := r.db.NewUpdate().
		Model(item).
		Column("price", "stock", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}
