// Package season implements the shared seasonal progress pool, the
// contribution sink for the fragment resource, and the lore collection
// view.
package season

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
)

type Engine struct {
	tx        engine.Transactor
	players   repositories.PlayerRepository
	inventory repositories.InventoryRepository
	seasons   repositories.SeasonRepository
	loreRepo  repositories.LoreRepository
	lore      *engine.LoreUnlocker
	cfg       *gameconfig.Resolver
}

func New(
	tx engine.Transactor,
	players repositories.PlayerRepository,
	inventory repositories.InventoryRepository,
	seasons repositories.SeasonRepository,
	loreRepo repositories.LoreRepository,
	lore *engine.LoreUnlocker,
	cfg *gameconfig.Resolver,
) *Engine {
	return &Engine{
		tx:        tx,
		players:   players,
		inventory: inventory,
		seasons:   seasons,
		loreRepo:  loreRepo,
		lore:      lore,
		cfg:       cfg,
	}
}

// ContributeView reports the player's running total alongside the pool.
type ContributeView struct {
	engine.Result
	SeasonID       int64 `json:"season_id"`
	PlayerTotal    int64 `json:"player_total"`
	GlobalProgress int64 `json:"global_progress"`
	GlobalTarget   int64 `json:"global_target"`
}

// Contribute burns fragments into the season pool. The decrement,
// pool increment, per-player upsert and money credit commit together;
// threshold lore unlocks run after the commit so a failed unlock never
// rolls back a contribution.
func (e *Engine) Contribute(ctx context.Context, player *models.Player, amount int) (*ContributeView, error) {
	if amount <= 0 {
		return nil, engine.Validation("amount must be positive")
	}

	season, err := e.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNoActiveSeason) {
			return nil, engine.Conflict("no active season")
		}
		return nil, err
	}

	goodID := e.cfg.Int64(ctx, "season.contrib_good_id", 7, 1, 1_000_000)
	item, err := e.inventory.GetItem(ctx, player.ID, goodID)
	if err != nil {
		return nil, fmt.Errorf("failed to check inventory: %w", err)
	}
	if item == nil || item.Quantity < amount {
		return nil, engine.ErrInsufficientInventory
	}

	credit := int64(amount) * e.cfg.Int64(ctx, "season.credit_per_unit", 10, 0, 1_000_000)

	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := e.tx.RemoveFromInventory(ctx, tx, player.ID, goodID, amount); err != nil {
			return err
		}
		if err := e.seasons.AddProgress(ctx, tx, season.ID, int64(amount)); err != nil {
			return err
		}
		if err := e.seasons.UpsertContrib(ctx, tx, season.ID, player.ID, int64(amount)); err != nil {
			return err
		}
		if credit > 0 {
			return e.tx.CreditMoney(ctx, tx, player.ID, credit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total, err := e.seasons.GetContrib(ctx, season.ID, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read contribution total: %w", err)
	}

	unlocks, err := e.lore.CheckThreshold(ctx, player.ID, models.LoreSourceSeasonProgress, total)
	if err != nil {
		slog.Error("Lore check failed",
			slog.String("type", "error"),
			slog.Any("error", err))
	}

	slog.Info("Season contribution",
		slog.String("type", "action"),
		slog.String("action", "season_contribute"),
		slog.Int64("player_id", player.ID),
		slog.Int64("season_id", season.ID),
		slog.Int("amount", amount))

	return &ContributeView{
		Result: engine.Result{
			Success:    true,
			Message:    fmt.Sprintf("Contributed %d fragments to %s.", amount, season.Name),
			NewUnlocks: unlocks,
			Delta: engine.Delta{
				Money:        engine.Int64p(credit),
				Inventory:    []engine.InventoryDelta{{GoodID: goodID, Delta: -amount}},
				Contribution: engine.Int64p(int64(amount)),
			},
		},
		SeasonID:       season.ID,
		PlayerTotal:    total,
		GlobalProgress: season.CurrentProgress + int64(amount),
		GlobalTarget:   season.GlobalTarget,
	}, nil
}

// LeaderboardEntry exposes the public player id, never the internal
// row id.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Amount   int64  `json:"amount"`
}

type LeaderboardView struct {
	SeasonID       int64              `json:"season_id"`
	SeasonName     string             `json:"season_name"`
	GlobalProgress int64              `json:"global_progress"`
	GlobalTarget   int64              `json:"global_target"`
	Entries        []LeaderboardEntry `json:"entries"`
}

func (e *Engine) Leaderboard(ctx context.Context, limit int) (*LeaderboardView, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	season, err := e.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNoActiveSeason) {
			return nil, engine.Conflict("no active season")
		}
		return nil, err
	}

	contribs, err := e.seasons.Leaderboard(ctx, season.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	view := &LeaderboardView{
		SeasonID:       season.ID,
		SeasonName:     season.Name,
		GlobalProgress: season.CurrentProgress,
		GlobalTarget:   season.GlobalTarget,
		Entries:        make([]LeaderboardEntry, 0, len(contribs)),
	}
	for i, c := range contribs {
		entry := LeaderboardEntry{Rank: i + 1, Amount: c.Amount}
		if p, err := e.players.GetByID(ctx, c.PlayerID); err == nil {
			entry.PlayerID = p.PlayerID
		}
		view.Entries = append(view.Entries, entry)
	}
	return view, nil
}

// LoreCollection returns the full catalog with locked entries masked.
func (e *Engine) LoreCollection(ctx context.Context, player *models.Player) ([]engine.LoreView, error) {
	entries, err := e.loreRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lore entries: %w", err)
	}
	unlocked, err := e.loreRepo.GetUnlocked(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocks: %w", err)
	}

	views := make([]engine.LoreView, 0, len(entries))
	for _, entry := range entries {
		if at, ok := unlocked[entry.ID]; ok {
			views = append(views, engine.ResolveLore(entry, at))
		} else {
			views = append(views, engine.MaskedLore(entry.ID, entry.Category))
		}
	}
	return views, nil
}
