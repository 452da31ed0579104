package travel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/world"
)

// MoveView augments the result with the resolved tile.
type MoveView struct {
	engine.Result
	TileType   string `json:"tile_type"`
	VisitCount int    `json:"visit_count"`
	Beacon     string `json:"beacon,omitempty"`
}

// Move steps the player to an adjacent hex, rolling events, anomaly
// fragments, and lore on arrival.
func (e *Engine) Move(ctx context.Context, player *models.Player, q, r int) (*MoveView, error) {
	from := world.Coord{Q: player.HexQ, R: player.HexR}
	dest := world.Coord{Q: q, R: r}
	if !world.IsAdjacent(from, dest) {
		return nil, engine.Validation("destination must be exactly one hex away")
	}

	cost := e.cfg.Int64(ctx, "explore.move_cost_base", 5, 0, 1_000_000) +
		e.cfg.Int64(ctx, "explore.move_cost_per_level", 2, 0, 1_000_000)*int64(player.ShipLevel-1)

	tileType, beacon, err := e.resolveTile(ctx, dest)
	if err != nil {
		return nil, err
	}

	eventCfg := MoveEventConfig{
		PositiveChance: e.cfg.Float(ctx, "explore.event_positive_chance", 0.15, 0, 1),
		NegativeChance: e.cfg.Float(ctx, "explore.event_negative_chance", 0.15, 0, 1),
		FlavorChance:   e.cfg.Float(ctx, "explore.event_flavor_chance", 0.25, 0, 1),
		RewardMax:      int(e.cfg.Int64(ctx, "explore.event_reward_max", 60, 0, 1_000_000)),
		PenaltyMax:     int(e.cfg.Int64(ctx, "explore.event_penalty_max", 40, 0, 1_000_000)),
	}
	revisitDrops := e.cfg.Bool(ctx, "explore.revisit_drops", false)
	fragMin := int(e.cfg.Int64(ctx, "explore.fragment_min", 1, 0, 1000))
	fragMax := int(e.cfg.Int64(ctx, "explore.fragment_max", 2, 1, 1000))
	fragGood := e.cfg.Int64(ctx, "explore.fragment_good_id", 7, 1, 1_000_000)

	var (
		visitCount int
		event      MoveEvent
		moneyDelta int64
		invDeltas  []engine.InventoryDelta
	)
	// Every mutation of the step shares one transaction; a failure on
	// any write rolls back the charge with it.
	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := e.tx.DebitMoney(ctx, tx, player.ID, cost); err != nil {
			return err
		}

		// Visit count increments unconditionally, whatever the rolls
		// say.
		vc, err := e.explorations.RecordVisit(ctx, tx, player.ID, q, r)
		if err != nil {
			return fmt.Errorf("failed to record visit: %w", err)
		}
		visitCount = vc

		event = RollMoveEvent(e.rng.Float64(), e.rng.Intn, eventCfg, visitCount > 1)

		moneyDelta = -cost
		if event.Delta != 0 {
			applied := event.Delta
			if remaining := player.Money - cost; applied < 0 && remaining+applied < 0 {
				applied = -remaining
			}
			if applied != 0 {
				if err := e.players.AddMoney(ctx, tx, player.ID, applied); err != nil {
					return fmt.Errorf("failed to apply move event: %w", err)
				}
				moneyDelta += applied
			}
		}

		if tileType == world.TileAnomaly && (visitCount == 1 || revisitDrops) {
			qty := fragMin
			if fragMax > fragMin {
				qty = fragMin + e.rng.Intn(fragMax-fragMin+1)
			}
			if qty > 0 {
				if err := e.tx.AddToInventory(ctx, tx, player.ID, fragGood, qty, 0); err != nil {
					return fmt.Errorf("failed to grant fragments: %w", err)
				}
				invDeltas = append(invDeltas, engine.InventoryDelta{GoodID: fragGood, Delta: qty})
			}
		}

		if err := e.players.UpdatePosition(ctx, tx, player.ID, q, r); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	unlocks, err := e.lore.CheckSource(ctx, player.ID, models.LoreSourceMapDiscovery, tileType)
	if err != nil {
		slog.Error("Lore check failed",
			slog.String("type", "error"),
			slog.Any("error", err))
	}

	view := &MoveView{
		Result: engine.Result{
			Success:    true,
			Message:    fmt.Sprintf("Moved to (%d, %d): %s", q, r, strings.ToLower(tileType)),
			Event:      event.Text,
			NewUnlocks: unlocks,
			Delta: engine.Delta{
				Money:     engine.Int64p(moneyDelta),
				Position:  &dest,
				Inventory: invDeltas,
			},
		},
		TileType:   tileType,
		VisitCount: visitCount,
		Beacon:     beacon,
	}
	return view, nil
}

// resolveTile checks for an override row before consulting the
// deterministic generator.
func (e *Engine) resolveTile(ctx context.Context, c world.Coord) (tileType, beacon string, err error) {
	chunk, err := e.explorations.GetChunk(ctx, c.Q, c.R)
	if err != nil {
		return "", "", fmt.Errorf("failed to load map chunk: %w", err)
	}
	if chunk != nil {
		beacon = chunk.BeaconText
		if chunk.TileType != "" {
			return chunk.TileType, beacon, nil
		}
	}

	weights := world.DefaultWeights
	e.cfg.JSON(ctx, "world.tile_weights", &weights)
	return world.TileType(c, weights), beacon, nil
}

// PlaceBeacon leaves a message on a hex the player has explored.
func (e *Engine) PlaceBeacon(ctx context.Context, player *models.Player, q, r int, text string) (*engine.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, engine.Validation("beacon text required")
	}
	if max := int(e.cfg.Int64(ctx, "explore.beacon_max_len", 140, 1, 2000)); len(text) > max {
		return nil, engine.Validation("beacon text too long")
	}

	visited, err := e.explorations.Get(ctx, player.ID, q, r)
	if err != nil {
		return nil, fmt.Errorf("failed to check exploration: %w", err)
	}
	if visited == nil {
		return nil, engine.Conflict("tile not yet explored")
	}

	if err := e.explorations.UpsertBeacon(ctx, q, r, player.ID, text); err != nil {
		return nil, fmt.Errorf("failed to place beacon: %w", err)
	}

	return &engine.Result{
		Success: true,
		Message: fmt.Sprintf("Beacon placed at (%d, %d)", q, r),
	}, nil
}

// UpgradeShip raises ship level and cargo capacity for a config-priced
// fee.
func (e *Engine) UpgradeShip(ctx context.Context, player *models.Player) (*engine.Result, error) {
	maxLevel := int(e.cfg.Int64(ctx, "ship.max_level", 5, 1, 100))
	if player.ShipLevel >= maxLevel {
		return nil, engine.Conflict("ship already at maximum level")
	}

	cost := UpgradeCost(player.ShipLevel,
		e.cfg.Int64(ctx, "ship.upgrade_cost_base", 500, 0, 100_000_000),
		e.cfg.Float(ctx, "ship.upgrade_cost_growth", 2.0, 1, 10))
	capacityGain := int(e.cfg.Int64(ctx, "ship.capacity_per_level", 25, 0, 100000))

	err := e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := e.tx.DebitMoney(ctx, tx, player.ID, cost); err != nil {
			return err
		}
		res, err := tx.NewUpdate().
			Model((*models.Player)(nil)).
			Set("ship_level = ship_level + 1").
			Set("cargo_capacity = cargo_capacity + ?", capacityGain).
			Set("updated_at = ?", time.Now()).
			Where("id = ? AND ship_level = ?", player.ID, player.ShipLevel).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upgrade ship: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return engine.Conflict("ship level changed, retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &engine.Result{
		Success: true,
		Message: fmt.Sprintf("Ship upgraded to level %d", player.ShipLevel+1),
		Delta:   engine.Delta{Money: engine.Int64p(-cost)},
	}, nil
}

// UpgradeCost grows geometrically with current level.
func UpgradeCost(currentLevel int, base int64, growth float64) int64 {
	cost := float64(base)
	for i := 1; i < currentLevel; i++ {
		cost *= growth
	}
	return int64(cost)
}
