package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByPlayerID(ctx context.Context, playerID string) (*models.Player, error)
	GetByID(ctx context.Context, id int64) (*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	// The positional and money writes run on the caller's transaction
	// so one action's mutations commit or roll back as a unit.
	UpdatePosition(ctx context.Context, db bun.IDB, id int64, q, r int) error
	SetPort(ctx context.Context, db bun.IDB, id int64, portID int64) error
	AddMoney(ctx context.Context, db bun.IDB, id int64, amount int64) error
}

type playerRepository struct {
	db *bun.DB
}

func NewPlayerRepository(db *bun.DB) PlayerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) Create(ctx context.Context, player *models.Player) error {
	player.CreatedAt = time.Now()
	player.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(player).Exec(ctx)
	return err
}

func (r *playerRepository) GetByPlayerID(ctx context.Context, playerID string) (*models.Player, error) {
	player := new(models.Player)
	err := r.db.NewSelect().
		Model(player).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		slog.Error("Database error when getting player",
			slog.String("type", "db"),
			slog.String("operation", "GetByPlayerID"),
			slog.String("player_id", playerID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return player, nil
}

func (r *playerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	player := new(models.Player)
	err := r.db.NewSelect().
		Model(player).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func (r *playerRepository) Update(ctx context.Context, player *models.Player) error {
	player.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(player).
		WherePK().
		Exec(ctx)
	return err
}

func (r *playerRepository) UpdatePosition(ctx context.Context, db bun.IDB, id int64, q, r2 int) error {
	_, err := db.NewUpdate().
		Model((*models.Player)(nil)).
		Set("hex_q = ?", q).
		Set("hex_r = ?", r2).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *playerRepository) SetPort(ctx context.Context, db bun.IDB, id int64, portID int64) error {
	_, err := db.NewUpdate().
		Model((*models.Player)(nil)).
		Set("current_port = ?", portID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *playerRepository) AddMoney(ctx context.Context, db bun.IDB, id int64, amount int64) error {
	res, err := db.NewUpdate().
		Model((*models.Player)(nil)).
		Set("money = money + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update money: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}
