package dungeon

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
)

// fakeTransactor journals mutations and discards everything recorded
// inside a closure that returns an error, mirroring a rollback.
type fakeTransactor struct {
	debits  []int64
	credits []int64
	items   []engine.InventoryDelta
}

func (f *fakeTransactor) WithTransaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	nd, nc, ni := len(f.debits), len(f.credits), len(f.items)
	if err := fn(ctx, bun.Tx{}); err != nil {
		f.debits = f.debits[:nd]
		f.credits = f.credits[:nc]
		f.items = f.items[:ni]
		return err
	}
	return nil
}

func (f *fakeTransactor) DebitMoney(ctx context.Context, tx bun.Tx, playerID int64, amount int64) error {
	f.debits = append(f.debits, amount)
	return nil
}

func (f *fakeTransactor) CreditMoney(ctx context.Context, tx bun.Tx, playerID int64, amount int64) error {
	f.credits = append(f.credits, amount)
	return nil
}

func (f *fakeTransactor) DebitStock(ctx context.Context, tx bun.Tx, itemID int64, quantity int) error {
	return nil
}

func (f *fakeTransactor) CreditStock(ctx context.Context, tx bun.Tx, itemID int64, quantity int) error {
	return nil
}

func (f *fakeTransactor) AddToInventory(ctx context.Context, tx bun.Tx, playerID, goodID int64, quantity int, unitCost float64) error {
	f.items = append(f.items, engine.InventoryDelta{GoodID: goodID, Delta: quantity})
	return nil
}

func (f *fakeTransactor) RemoveFromInventory(ctx context.Context, tx bun.Tx, playerID, goodID int64, quantity int) error {
	return nil
}

type fakeDungeonRepo struct {
	defs      map[int64]*models.DungeonDef
	state     *models.DungeonState
	createErr error
}

func (f *fakeDungeonRepo) GetDef(ctx context.Context, id int64) (*models.DungeonDef, error) {
	if d, ok := f.defs[id]; ok {
		return d, nil
	}
	return nil, repositories.ErrDungeonNotFound
}

func (f *fakeDungeonRepo) GetDefs(ctx context.Context) ([]*models.DungeonDef, error) {
	return nil, nil
}

func (f *fakeDungeonRepo) GetActiveByPlayer(ctx context.Context, playerID int64) (*models.DungeonState, error) {
	if f.state != nil && f.state.PlayerID == playerID && f.state.Status == models.DungeonStatusActive {
		return f.state, nil
	}
	return nil, nil
}

func (f *fakeDungeonRepo) CreateState(ctx context.Context, db bun.IDB, state *models.DungeonState) error {
	if f.createErr != nil {
		return f.createErr
	}
	state.ID = 1
	f.state = state
	return nil
}

func (f *fakeDungeonRepo) UpdateState(ctx context.Context, state *models.DungeonState) error {
	f.state = state
	return nil
}

type fakeSeasonRepo struct {
	season   *models.Season
	progress []int64
	contribs map[int64]int64
}

func (f *fakeSeasonRepo) GetActive(ctx context.Context) (*models.Season, error) {
	if f.season == nil {
		return nil, repositories.ErrNoActiveSeason
	}
	return f.season, nil
}

func (f *fakeSeasonRepo) GetContrib(ctx context.Context, seasonID, playerID int64) (int64, error) {
	return f.contribs[playerID], nil
}

func (f *fakeSeasonRepo) Leaderboard(ctx context.Context, seasonID int64, limit int) ([]*models.SeasonContrib, error) {
	return nil, nil
}

func (f *fakeSeasonRepo) AddProgress(ctx context.Context, db bun.IDB, seasonID int64, amount int64) error {
	f.progress = append(f.progress, amount)
	return nil
}

func (f *fakeSeasonRepo) UpsertContrib(ctx context.Context, db bun.IDB, seasonID, playerID int64, amount int64) error {
	if f.contribs == nil {
		f.contribs = make(map[int64]int64)
	}
	f.contribs[playerID] += amount
	return nil
}

type fakeConfigRepo struct{}

func (f *fakeConfigRepo) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *fakeConfigRepo) Set(ctx context.Context, key, value string) error { return nil }

func testEngine(dungeons *fakeDungeonRepo, seasons *fakeSeasonRepo, ftx *fakeTransactor) *Engine {
	return &Engine{
		tx:       ftx,
		dungeons: dungeons,
		seasons:  seasons,
		cfg:      gameconfig.NewResolver(&fakeConfigRepo{}, time.Minute),
		rng:      rand.New(rand.NewSource(1)),
	}
}

func wreckDef() *models.DungeonDef {
	return &models.DungeonDef{
		ID:         2,
		Name:       "Hollow Carrier",
		Difficulty: 1,
		MaxDepth:   5,
		EntryCost:  50,
		CompletionLoot: []models.LootEntry{
			{Type: LootTypeMoney, Chance: 1, Min: 50, Max: 50},
			{Type: LootTypeItem, GoodID: 6, Chance: 1, Min: 1, Max: 1},
		},
	}
}

func TestActionMoveAtFinalDepthCompletes(t *testing.T) {
	dungeons := &fakeDungeonRepo{
		defs: map[int64]*models.DungeonDef{2: wreckDef()},
		state: &models.DungeonState{
			ID:           1,
			PlayerID:     1,
			DungeonID:    2,
			CurrentDepth: 4,
			Sanity:       80,
			Health:       80,
			Status:       models.DungeonStatusActive,
		},
	}
	seasons := &fakeSeasonRepo{season: &models.Season{ID: 1, Status: models.SeasonStatusActive}}
	ftx := &fakeTransactor{}
	e := testEngine(dungeons, seasons, ftx)

	view, err := e.Action(context.Background(), &models.Player{ID: 1}, ActionMove)
	if err != nil {
		t.Fatalf("action failed: %v", err)
	}

	if view.Status != models.DungeonStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", view.Status)
	}
	if view.Depth != 5 {
		t.Errorf("depth = %d, want 5", view.Depth)
	}
	// Difficulty 1: 200 completion reward plus the guaranteed 50 drop.
	if len(ftx.credits) != 1 || ftx.credits[0] != 250 {
		t.Errorf("credits = %v, want [250]", ftx.credits)
	}
	if len(ftx.items) != 1 || ftx.items[0].GoodID != 6 || ftx.items[0].Delta != 1 {
		t.Errorf("items = %v, want the guaranteed completion drop", ftx.items)
	}
	if len(seasons.progress) != 1 || seasons.progress[0] != 25 {
		t.Errorf("season progress = %v, want [25]", seasons.progress)
	}
	if seasons.contribs[1] != 25 {
		t.Errorf("player contribution = %d, want 25", seasons.contribs[1])
	}
	if view.Delta.Contribution == nil || *view.Delta.Contribution != 25 {
		t.Errorf("contribution delta = %v, want 25", view.Delta.Contribution)
	}
}

func TestActionFailureOutranksCompletion(t *testing.T) {
	dungeons := &fakeDungeonRepo{
		defs: map[int64]*models.DungeonDef{2: wreckDef()},
		state: &models.DungeonState{
			ID:           1,
			PlayerID:     1,
			DungeonID:    2,
			CurrentDepth: 4,
			Sanity:       5,
			Health:       80,
			Status:       models.DungeonStatusActive,
		},
	}
	seasons := &fakeSeasonRepo{season: &models.Season{ID: 1, Status: models.SeasonStatusActive}}
	ftx := &fakeTransactor{}
	e := testEngine(dungeons, seasons, ftx)

	view, err := e.Action(context.Background(), &models.Player{ID: 1}, ActionMove)
	if err != nil {
		t.Fatalf("action failed: %v", err)
	}

	if view.Status != models.DungeonStatusFailed {
		t.Fatalf("status = %s, want FAILED even at final depth", view.Status)
	}
	if view.Sanity != 0 {
		t.Errorf("sanity = %d, want 0", view.Sanity)
	}
	if len(ftx.credits) != 0 {
		t.Errorf("failed run must not pay out, credits = %v", ftx.credits)
	}
	if len(seasons.progress) != 0 {
		t.Errorf("failed run must not contribute, progress = %v", seasons.progress)
	}
	if !strings.Contains(view.Message, "failure") {
		t.Errorf("message should report the failure: %q", view.Message)
	}
}

func TestEnterChargeRollsBackWithSession(t *testing.T) {
	dungeons := &fakeDungeonRepo{
		defs:      map[int64]*models.DungeonDef{2: wreckDef()},
		createErr: errors.New("duplicate key value violates unique constraint"),
	}
	ftx := &fakeTransactor{}
	e := testEngine(dungeons, &fakeSeasonRepo{}, ftx)

	_, err := e.Enter(context.Background(), &models.Player{ID: 1, Money: 500}, 2)
	if err == nil {
		t.Fatal("expected the session insert failure to surface")
	}
	if len(ftx.debits) != 0 {
		t.Fatalf("entry charge must roll back with the session row, debits = %v", ftx.debits)
	}
}

func TestEnterChargesAndCreatesTogether(t *testing.T) {
	dungeons := &fakeDungeonRepo{defs: map[int64]*models.DungeonDef{2: wreckDef()}}
	ftx := &fakeTransactor{}
	e := testEngine(dungeons, &fakeSeasonRepo{}, ftx)

	view, err := e.Enter(context.Background(), &models.Player{ID: 1, Money: 500}, 2)
	if err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	if len(ftx.debits) != 1 || ftx.debits[0] != 50 {
		t.Errorf("debits = %v, want [50]", ftx.debits)
	}
	if dungeons.state == nil || dungeons.state.Status != models.DungeonStatusActive {
		t.Fatalf("session not created: %+v", dungeons.state)
	}
	if view.Sanity != 100 || view.Health != 100 || view.Depth != 0 {
		t.Errorf("fresh session view = %+v", view)
	}
}
