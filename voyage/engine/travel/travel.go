// Package travel implements the two movement modes: bounded-duration
// inter-port sailing and instantaneous hex-grid exploration.
package travel

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/uptrace/bun"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
	"github.com/voyagelabs/voyage-server/voyage/world"
)

type Engine struct {
	tx           engine.Transactor
	players      repositories.PlayerRepository
	markets      repositories.MarketRepository
	travels      repositories.TravelRepository
	explorations repositories.ExplorationRepository
	lore         *engine.LoreUnlocker
	cfg          *gameconfig.Resolver
	rng          *rand.Rand
}

func New(
	tx engine.Transactor,
	players repositories.PlayerRepository,
	markets repositories.MarketRepository,
	travels repositories.TravelRepository,
	explorations repositories.ExplorationRepository,
	lore *engine.LoreUnlocker,
	cfg *gameconfig.Resolver,
) *Engine {
	return &Engine{
		tx:           tx,
		players:      players,
		markets:      markets,
		travels:      travels,
		explorations: explorations,
		lore:         lore,
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SailView augments the result envelope with the voyage schedule.
type SailView struct {
	engine.Result
	TravelID int64     `json:"travel_id"`
	ToPort   int64     `json:"to_port"`
	ArriveAt time.Time `json:"arrive_at"`
}

// Sail departs for another port. The encounter is rolled here, stored
// with the travel row, and applied unchanged at claim time.
func (e *Engine) Sail(ctx context.Context, player *models.Player, toPortID int64) (*SailView, error) {
	if toPortID == player.CurrentPort {
		return nil, engine.Validation("already docked at this port")
	}

	active, err := e.travels.GetActiveByPlayer(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active travel: %w", err)
	}
	if active != nil {
		return nil, engine.Conflict("already traveling")
	}

	toPort, err := e.markets.GetPort(ctx, toPortID)
	if err != nil {
		return nil, engine.Validation("unknown destination port")
	}
	if toPort.UnlockLevel > player.ShipLevel {
		return nil, engine.Conflict("ship level too low for this port")
	}

	fromPort, err := e.markets.GetPort(ctx, player.CurrentPort)
	if err != nil {
		return nil, fmt.Errorf("failed to load current port: %w", err)
	}

	dist := world.ManhattanDistance(fromPort.Q, fromPort.R, toPort.Q, toPort.R)
	cost, duration := SailQuote(dist, player.ShipLevel, QuoteConfig{
		CostBase:        e.cfg.Int64(ctx, "travel.cost_base", 50, 0, 1_000_000),
		CostPerDistance: e.cfg.Int64(ctx, "travel.cost_per_distance", 25, 0, 1_000_000),
		CostPerLevel:    e.cfg.Int64(ctx, "travel.cost_per_level", 20, 0, 1_000_000),
		SecPerDistance:  e.cfg.Int64(ctx, "travel.seconds_per_distance", 60, 1, 86400),
		MinSeconds:      e.cfg.Int64(ctx, "travel.min_seconds", 30, 0, 86400),
	})

	eventText, eventDelta := RollEncounter(e.rng.Float64(), e.rng.Intn, EncounterConfig{
		Chance:     e.cfg.Float(ctx, "travel.encounter_chance", 0.35, 0, 1),
		RewardMax:  int(e.cfg.Int64(ctx, "travel.encounter_reward_max", 150, 0, 1_000_000)),
		PenaltyMax: int(e.cfg.Int64(ctx, "travel.encounter_penalty_max", 100, 0, 1_000_000)),
	})

	now := time.Now()
	travel := &models.TravelState{
		PlayerID:   player.ID,
		FromPort:   player.CurrentPort,
		ToPort:     toPortID,
		DepartAt:   now,
		ArriveAt:   now.Add(duration),
		Cost:       cost,
		EventText:  eventText,
		EventDelta: eventDelta,
		Status:     models.TravelStatusActive,
	}

	// Charge and voyage row land in one transaction; losing the race
	// on the single-active-travel index rolls the charge back too.
	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := e.tx.DebitMoney(ctx, tx, player.ID, cost); err != nil {
			return err
		}
		if err := e.travels.Create(ctx, tx, travel); err != nil {
			return fmt.Errorf("failed to create travel: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Voyage departed",
		slog.String("type", "action"),
		slog.String("action", "sail"),
		slog.String("player_id", player.PlayerID),
		slog.Int64("to_port", toPortID),
		slog.Int("distance", dist))

	return &SailView{
		Result: engine.Result{
			Success: true,
			Message: fmt.Sprintf("Departed for %s, arriving in %s", toPort.Name, duration.Round(time.Second)),
			Delta:   engine.Delta{Money: engine.Int64p(-cost)},
		},
		TravelID: travel.ID,
		ToPort:   toPortID,
		ArriveAt: travel.ArriveAt,
	}, nil
}

// Claim completes an arrived voyage: exactly-once ACTIVE -> ARRIVED,
// then the pre-rolled encounter is applied with the money floored
// at zero.
func (e *Engine) Claim(ctx context.Context, player *models.Player) (*engine.Result, error) {
	active, err := e.travels.GetActiveByPlayer(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load travel: %w", err)
	}
	if active == nil {
		return nil, engine.Conflict("no active travel")
	}

	if remaining := time.Until(active.ArriveAt); remaining > 0 {
		return nil, engine.Contention("not arrived yet", remaining)
	}

	applied := active.EventDelta
	if applied < 0 && player.Money+applied < 0 {
		applied = -player.Money
	}

	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		claimed, err := e.travels.MarkArrived(ctx, tx, active.ID)
		if err != nil {
			return fmt.Errorf("failed to claim travel: %w", err)
		}
		if !claimed {
			// A racing claim got there first.
			return engine.Conflict("no active travel")
		}
		if err := e.players.SetPort(ctx, tx, player.ID, active.ToPort); err != nil {
			return fmt.Errorf("failed to move player: %w", err)
		}
		if applied != 0 {
			if err := e.players.AddMoney(ctx, tx, player.ID, applied); err != nil {
				return fmt.Errorf("failed to apply encounter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	toPort, err := e.markets.GetPort(ctx, active.ToPort)
	if err != nil {
		return nil, fmt.Errorf("failed to load destination: %w", err)
	}

	result := &engine.Result{
		Success: true,
		Message: fmt.Sprintf("Arrived at %s", toPort.Name),
		Event:   active.EventText,
		Delta: engine.Delta{
			Position: &world.Coord{Q: toPort.Q, R: toPort.R},
		},
	}
	if applied != 0 {
		result.Delta.Money = engine.Int64p(applied)
	}
	return result, nil
}
