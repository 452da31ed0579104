// Package dungeon implements the crawl state machine: one ACTIVE
// session per player, LLM-narrated actions with deterministic
// fallbacks, and server-authoritative sanity/health accounting.
package dungeon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
	"github.com/voyagelabs/voyage-server/voyage/llm"
)

const (
	ActionMove    = "MOVE"
	ActionSearch  = "SEARCH"
	ActionAttack  = "ATTACK"
	ActionRetreat = "RETREAT"
)

const narratorSystemPrompt = `You narrate a grim deep-space salvage crawl. ` +
	`Respond with a single JSON object: {"narration": string (2-3 sentences), ` +
	`"next_room": string (only when the action is MOVE), ` +
	`"sanity_delta": integer, "health_delta": integer}. ` +
	`Deltas must stay between -10 and 10. No text outside the JSON.`

type Engine struct {
	tx       engine.Transactor
	players  repositories.PlayerRepository
	dungeons repositories.DungeonRepository
	seasons  repositories.SeasonRepository
	lore     *engine.LoreUnlocker
	cfg      *gameconfig.Resolver
	narrator llm.Generator
	rng      *rand.Rand
}

func New(
	tx engine.Transactor,
	players repositories.PlayerRepository,
	dungeons repositories.DungeonRepository,
	seasons repositories.SeasonRepository,
	lore *engine.LoreUnlocker,
	cfg *gameconfig.Resolver,
	narrator llm.Generator,
) *Engine {
	return &Engine{
		tx:       tx,
		players:  players,
		dungeons: dungeons,
		seasons:  seasons,
		lore:     lore,
		cfg:      cfg,
		narrator: narrator,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// View is the session snapshot returned with every dungeon response.
type View struct {
	engine.Result
	SessionID int64  `json:"session_id"`
	DungeonID int64  `json:"dungeon_id"`
	Depth     int    `json:"depth"`
	MaxDepth  int    `json:"max_depth"`
	Sanity    int    `json:"sanity"`
	Health    int    `json:"health"`
	Status    string `json:"status"`
	RoomDesc  string `json:"room_desc"`
}

func (e *Engine) view(state *models.DungeonState, def *models.DungeonDef, res engine.Result) *View {
	return &View{
		Result:    res,
		SessionID: state.ID,
		DungeonID: state.DungeonID,
		Depth:     state.CurrentDepth,
		MaxDepth:  def.MaxDepth,
		Sanity:    state.Sanity,
		Health:    state.Health,
		Status:    state.Status,
		RoomDesc:  state.RoomDesc,
	}
}

// Enter starts a crawl session. An existing ACTIVE session is returned
// as-is so a retried request never double-charges the entry cost.
func (e *Engine) Enter(ctx context.Context, player *models.Player, dungeonID int64) (*View, error) {
	if active, err := e.dungeons.GetActiveByPlayer(ctx, player.ID); err != nil {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	} else if active != nil {
		def, err := e.dungeons.GetDef(ctx, active.DungeonID)
		if err != nil {
			return nil, fmt.Errorf("failed to load dungeon: %w", err)
		}
		return e.view(active, def, engine.Result{
			Success: true,
			Message: "Resuming your active expedition.",
		}), nil
	}

	def, err := e.dungeons.GetDef(ctx, dungeonID)
	if err != nil {
		if errors.Is(err, repositories.ErrDungeonNotFound) {
			return nil, engine.Validation("unknown dungeon")
		}
		return nil, err
	}

	state := &models.DungeonState{
		PlayerID:     player.ID,
		DungeonID:    def.ID,
		CurrentDepth: 0,
		RoomDesc:     fmt.Sprintf("The airlock of %s seals behind you.", def.Name),
		Sanity:       100,
		Health:       100,
		Status:       models.DungeonStatusActive,
	}
	// Entry charge and session row share one transaction; losing the
	// race on the single-active-session index rolls the charge back.
	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if def.EntryCost > 0 {
			if err := e.tx.DebitMoney(ctx, tx, player.ID, def.EntryCost); err != nil {
				return err
			}
		}
		if err := e.dungeons.CreateState(ctx, tx, state); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Dungeon entered",
		slog.String("type", "action"),
		slog.String("action", "dungeon_enter"),
		slog.Int64("player_id", player.ID),
		slog.Int64("dungeon_id", def.ID))

	return e.view(state, def, engine.Result{
		Success: true,
		Message: fmt.Sprintf("You enter %s.", def.Name),
		Delta:   engine.Delta{Money: engine.Int64p(-def.EntryCost)},
	}), nil
}

// Action resolves one crawl step. Terminal checks run after the deltas
// land; a session that hits zero sanity or health fails even when the
// same step would have completed it.
func (e *Engine) Action(ctx context.Context, player *models.Player, action string) (*View, error) {
	action = strings.ToUpper(strings.TrimSpace(action))
	switch action {
	case ActionMove, ActionSearch, ActionAttack, ActionRetreat:
	default:
		return nil, engine.Validation("action must be MOVE, SEARCH, ATTACK or RETREAT")
	}

	state, err := e.dungeons.GetActiveByPlayer(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		return nil, engine.Conflict("no active dungeon session")
	}
	def, err := e.dungeons.GetDef(ctx, state.DungeonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dungeon: %w", err)
	}

	if action == ActionRetreat {
		state.Status = models.DungeonStatusFailed
		state.LastAction = ActionRetreat
		if err := e.dungeons.UpdateState(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		return e.view(state, def, engine.Result{
			Success: true,
			Message: "You retreat to the surface. The expedition is over.",
		}), nil
	}

	proposal := e.propose(ctx, action, def, state)

	clampMax := int(e.cfg.Int64(ctx, "dungeon.delta_clamp", 25, 1, 100))
	costCfg := CostConfig{
		Base: int(e.cfg.Int64(ctx, "dungeon.cost_base", 1, 0, 100)),
		PerAction: map[string]int{
			ActionMove:   int(e.cfg.Int64(ctx, "dungeon.cost_move", 1, 0, 100)),
			ActionSearch: int(e.cfg.Int64(ctx, "dungeon.cost_search", 0, 0, 100)),
			ActionAttack: int(e.cfg.Int64(ctx, "dungeon.cost_attack", 2, 0, 100)),
		},
		PerDifficulty: int(e.cfg.Int64(ctx, "dungeon.cost_per_difficulty", 1, 0, 100)),
		PerDepth:      int(e.cfg.Int64(ctx, "dungeon.cost_per_depth", 1, 0, 100)),
	}
	fixedCost := ActionCost(costCfg, action, def.Difficulty, state.CurrentDepth)

	sanityDelta := CombineAndClamp(proposal.SanityDelta, fixedCost, clampMax)
	healthDelta := CombineAndClamp(proposal.HealthDelta, fixedCost, clampMax)

	oldSanity, oldHealth := state.Sanity, state.Health
	state.Sanity = clampStat(state.Sanity + sanityDelta)
	state.Health = clampStat(state.Health + healthDelta)
	state.LastAction = action

	var (
		moneyGain    int64
		contribution int64
		items        []engine.InventoryDelta
		unlocks      []engine.LoreView
		depthDelta   int
	)

	if action == ActionSearch {
		money, found := RollLoot(e.searchTable(ctx, def), e.rng.Float64, e.rng.Intn)
		moneyGain += money
		items = append(items, found...)

		fresh, err := e.lore.CheckSource(ctx, player.ID, models.LoreSourceDungeonDrop, strconv.FormatInt(def.ID, 10))
		if err != nil {
			slog.Error("Lore check failed",
				slog.String("type", "error"),
				slog.Any("error", err))
		}
		unlocks = append(unlocks, fresh...)
	}

	if action == ActionMove {
		state.CurrentDepth++
		depthDelta = 1
		if proposal.NextRoom != "" {
			state.RoomDesc = proposal.NextRoom
		}
	}

	completed := action == ActionMove && state.CurrentDepth >= def.MaxDepth
	failed := state.Sanity == 0 || state.Health == 0

	switch {
	case failed:
		state.Status = models.DungeonStatusFailed
	case completed:
		state.Status = models.DungeonStatusCompleted
		reward := int64(def.Difficulty) * e.cfg.Int64(ctx, "dungeon.completion_money_per_difficulty", 200, 0, 1_000_000)
		contribution = int64(def.Difficulty) * e.cfg.Int64(ctx, "dungeon.completion_contrib_per_difficulty", 25, 0, 1_000_000)
		moneyGain += reward

		money, found := RollLoot(def.CompletionLoot, e.rng.Float64, e.rng.Intn)
		moneyGain += money
		items = append(items, found...)
	}

	if moneyGain > 0 || len(items) > 0 || contribution > 0 {
		err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
			if moneyGain > 0 {
				if err := e.tx.CreditMoney(ctx, tx, player.ID, moneyGain); err != nil {
					return err
				}
			}
			for _, it := range items {
				if err := e.tx.AddToInventory(ctx, tx, player.ID, it.GoodID, it.Delta, 0); err != nil {
					return err
				}
			}
			if contribution > 0 {
				season, err := e.seasons.GetActive(ctx)
				if err != nil {
					if errors.Is(err, repositories.ErrNoActiveSeason) {
						return nil
					}
					return err
				}
				if err := e.seasons.AddProgress(ctx, tx, season.ID, contribution); err != nil {
					return err
				}
				return e.seasons.UpsertContrib(ctx, tx, season.ID, player.ID, contribution)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err := e.dungeons.UpdateState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	message := proposal.Narration
	switch {
	case failed:
		message += " Your expedition ends in failure."
	case completed:
		message += fmt.Sprintf(" You have cleared %s.", def.Name)
	}

	res := engine.Result{
		Success:    true,
		Message:    message,
		NewUnlocks: unlocks,
		Delta: engine.Delta{
			Sanity:    engine.Intp(state.Sanity - oldSanity),
			Health:    engine.Intp(state.Health - oldHealth),
			Inventory: items,
		},
	}
	if moneyGain > 0 {
		res.Delta.Money = engine.Int64p(moneyGain)
	}
	if depthDelta > 0 {
		res.Delta.Depth = engine.Intp(depthDelta)
	}
	if contribution > 0 {
		res.Delta.Contribution = engine.Int64p(contribution)
	}
	return e.view(state, def, res), nil
}

// propose asks the narrator for the step resolution, falling back to
// fixed values when the collaborator is down or returns garbage.
func (e *Engine) propose(ctx context.Context, action string, def *models.DungeonDef, state *models.DungeonState) Proposal {
	bound := int(e.cfg.Int64(ctx, "dungeon.proposal_bound", 10, 1, 100))

	if e.narrator == nil {
		return BoundProposal(FallbackProposal(action, state.CurrentDepth), bound)
	}

	userPrompt := fmt.Sprintf(
		"Dungeon: %s (difficulty %d). Depth %d of %d. Sanity %d, health %d.\nCurrent room: %s\nAction: %s",
		def.Name, def.Difficulty, state.CurrentDepth, def.MaxDepth,
		state.Sanity, state.Health, state.RoomDesc, action)

	raw, err := e.narrator.Generate(ctx, narratorSystemPrompt, userPrompt)
	if err != nil {
		slog.Warn("Narrator unavailable, using fallback",
			slog.String("type", "system"),
			slog.Any("error", err))
		return BoundProposal(FallbackProposal(action, state.CurrentDepth), bound)
	}

	p, err := ParseProposal(raw)
	if err != nil {
		slog.Warn("Narrator response unusable, using fallback",
			slog.String("type", "system"),
			slog.Any("error", err))
		return BoundProposal(FallbackProposal(action, state.CurrentDepth), bound)
	}
	return BoundProposal(p, bound)
}

// searchTable prefers the per-dungeon loot table, then the globally
// configured default.
func (e *Engine) searchTable(ctx context.Context, def *models.DungeonDef) []models.LootEntry {
	if len(def.SearchLoot) > 0 {
		return def.SearchLoot
	}
	var table []models.LootEntry
	if e.cfg.JSON(ctx, "dungeon.default_search_loot", &table) {
		return table
	}
	return nil
}
