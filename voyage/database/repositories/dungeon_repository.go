package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

var ErrDungeonNotFound = errors.New("dungeon not found")

type DungeonRepository interface {
	GetDef(ctx context.Context, id int64) (*models.DungeonDef, error)
	GetDefs(ctx context.Context) ([]*models.DungeonDef, error)
	GetActiveByPlayer(ctx context.Context, playerID int64) (*models.DungeonState, error)
	// CreateState inserts the session on the caller's transaction so
	// the entry charge and the session commit or roll back together.
	CreateState(ctx context.Context, db bun.IDB, state *models.DungeonState) error
	UpdateState(ctx context.Context, state *models.DungeonState) error
}

type dungeonRepository struct {
	db *bun.DB
}

func NewDungeonRepository(db *bun.DB) DungeonRepository {
	return &dungeonRepository{db: db}
}

func (r *dungeonRepository) GetDef(ctx context.Context, id int64) (*models.DungeonDef, error) {
	def := new(models.DungeonDef)
	err := r.db.NewSelect().
		Model(def).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDungeonNotFound
		}
		return nil, err
	}
	return def, nil
}

func (r *dungeonRepository) GetDefs(ctx context.Context) ([]*models.DungeonDef, error) {
	var defs []*models.DungeonDef
	err := r.db.NewSelect().
		Model(&defs).
		Order("id ASC").
		Scan(ctx)
	return defs, err
}

func (r *dungeonRepository) GetActiveByPlayer(ctx context.Context, playerID int64) (*models.DungeonState, error) {
	state := new(models.DungeonState)
	err := r.db.NewSelect().
		Model(state).
		Where("player_id = ? AND status = ?", playerID, models.DungeonStatusActive).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return state, nil
}

func (r *dungeonRepository) CreateState(ctx context.Context, db bun.IDB, state *models.DungeonState) error {
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()
	_, err := db.NewInsert().Model(state).Exec(ctx)
	return err
}

// UpdateState writes the whole session row in one statement per action.
func (r *dungeonRepository) UpdateState(ctx context.Context, state *models.DungeonState) error {
	state.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(state).
		Column("current_depth", "room_desc", "sanity", "health", "status", "last_action", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}
