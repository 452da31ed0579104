package travel

import (
	"context"
	"errors"
	"math/rand"
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

type fakeTravelRepo struct {
	travel    *models.TravelState
	createErr error
	stolen    bool
}

func (f *fakeTravelRepo) GetActiveByPlayer(ctx context.Context, playerID int64) (*models.TravelState, error) {
	if f.travel != nil && f.travel.PlayerID == playerID && f.travel.Status == models.TravelStatusActive {
		return f.travel, nil
	}
	return nil, nil
}

func (f *fakeTravelRepo) Create(ctx context.Context, db bun.IDB, travel *models.TravelState) error {
	if f.createErr != nil {
		return f.createErr
	}
	travel.ID = 1
	f.travel = travel
	return nil
}

func (f *fakeTravelRepo) MarkArrived(ctx context.Context, db bun.IDB, id int64) (bool, error) {
	if f.stolen {
		return false, nil
	}
	if f.travel != nil && f.travel.ID == id && f.travel.Status == models.TravelStatusActive {
		f.travel.Status = models.TravelStatusArrived
		return true, nil
	}
	return false, nil
}

type fakePlayerRepo struct {
	port       int64
	posQ, posR int
	money      []int64
}

func (f *fakePlayerRepo) Create(ctx context.Context, player *models.Player) error { return nil }

func (f *fakePlayerRepo) GetByPlayerID(ctx context.Context, playerID string) (*models.Player, error) {
	return nil, repositories.ErrPlayerNotFound
}

func (f *fakePlayerRepo) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	return nil, repositories.ErrPlayerNotFound
}

func (f *fakePlayerRepo) Update(ctx context.Context, player *models.Player) error { return nil }

func (f *fakePlayerRepo) UpdatePosition(ctx context.Context, db bun.IDB, id int64, q, r int) error {
	f.posQ, f.posR = q, r
	return nil
}

func (f *fakePlayerRepo) SetPort(ctx context.Context, db bun.IDB, id int64, portID int64) error {
	f.port = portID
	return nil
}

func (f *fakePlayerRepo) AddMoney(ctx context.Context, db bun.IDB, id int64, amount int64) error {
	f.money = append(f.money, amount)
	return nil
}

type fakeMarketRepo struct {
	ports map[int64]*models.Port
}

func (f *fakeMarketRepo) GetPort(ctx context.Context, id int64) (*models.Port, error) {
	if p, ok := f.ports[id]; ok {
		return p, nil
	}
	return nil, errors.New("port not found")
}

func (f *fakeMarketRepo) GetPorts(ctx context.Context) ([]*models.Port, error) { return nil, nil }
func (f *fakeMarketRepo) GetGoods(ctx context.Context) ([]*models.Good, error) { return nil, nil }
func (f *fakeMarketRepo) GetItemsByPort(ctx context.Context, portID int64) ([]*models.MarketItem, error) {
	return nil, nil
}
func (f *fakeMarketRepo) OldestUpdatedAt(ctx context.Context, portID int64) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeMarketRepo) InsertItems(ctx context.Context, items []*models.MarketItem) error {
	return nil
}
func (f *fakeMarketRepo) UpdateItem(ctx context.Context, item *models.MarketItem) error { return nil }

type fakeConfigRepo struct {
	values map[string]string
}

func (f *fakeConfigRepo) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) Set(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func testResolver() *gameconfig.Resolver {
	return gameconfig.NewResolver(&fakeConfigRepo{values: map[string]string{}}, time.Minute)
}

func testPorts() map[int64]*models.Port {
	return map[int64]*models.Port{
		1: {ID: 1, Name: "Haven Station", Q: 0, R: 0, UnlockLevel: 1},
		2: {ID: 2, Name: "Drift Anchorage", Q: 4, R: -2, UnlockLevel: 1},
	}
}

func TestClaimExactlyOnce(t *testing.T) {
	travels := &fakeTravelRepo{travel: &models.TravelState{
		ID:         7,
		PlayerID:   1,
		FromPort:   1,
		ToPort:     2,
		ArriveAt:   time.Now().Add(time.Minute),
		EventText:  "You salvage a drifting cargo pod.",
		EventDelta: 40,
		Status:     models.TravelStatusActive,
	}}
	players := &fakePlayerRepo{}
	e := &Engine{
		tx:      &fakeTransactor{},
		players: players,
		markets: &fakeMarketRepo{ports: testPorts()},
		travels: travels,
	}
	player := &models.Player{ID: 1, Money: 500, CurrentPort: 1, ShipLevel: 1}

	_, err := e.Claim(context.Background(), player)
	de, ok := engine.AsDomain(err)
	if !ok || de.Kind != engine.KindContention || de.RetryAfter <= 0 {
		t.Fatalf("claim before arrival should report contention with retry guidance, got %v", err)
	}

	travels.travel.ArriveAt = time.Now().Add(-time.Second)
	res, err := e.Claim(context.Background(), player)
	if err != nil {
		t.Fatalf("claim after arrival failed: %v", err)
	}
	if players.port != 2 {
		t.Errorf("player port = %d, want destination 2", players.port)
	}
	if len(players.money) != 1 || players.money[0] != 40 {
		t.Errorf("encounter delta applied as %v, want [40]", players.money)
	}
	if res.Event != "You salvage a drifting cargo pod." {
		t.Errorf("encounter text missing from result: %+v", res)
	}

	_, err = e.Claim(context.Background(), player)
	if de, ok := engine.AsDomain(err); !ok || de.Kind != engine.KindConflict {
		t.Fatalf("second claim should conflict, got %v", err)
	}
}

func TestClaimLostRace(t *testing.T) {
	travels := &fakeTravelRepo{
		stolen: true,
		travel: &models.TravelState{
			ID:       7,
			PlayerID: 1,
			ToPort:   2,
			ArriveAt: time.Now().Add(-time.Second),
			Status:   models.TravelStatusActive,
		},
	}
	players := &fakePlayerRepo{}
	e := &Engine{
		tx:      &fakeTransactor{},
		players: players,
		markets: &fakeMarketRepo{ports: testPorts()},
		travels: travels,
	}

	_, err := e.Claim(context.Background(), &models.Player{ID: 1, Money: 100})
	if de, ok := engine.AsDomain(err); !ok || de.Kind != engine.KindConflict {
		t.Fatalf("losing the claim race should conflict, got %v", err)
	}
	if players.port != 0 {
		t.Errorf("loser must not move the player, port = %d", players.port)
	}
	if len(players.money) != 0 {
		t.Errorf("loser must not apply the encounter, money = %v", players.money)
	}
}

func TestSailChargeRollsBackWithVoyageRow(t *testing.T) {
	ftx := &fakeTransactor{}
	e := &Engine{
		tx:      ftx,
		players: &fakePlayerRepo{},
		markets: &fakeMarketRepo{ports: testPorts()},
		travels: &fakeTravelRepo{createErr: errors.New("duplicate key value violates unique constraint")},
		cfg:     testResolver(),
		rng:     rand.New(rand.NewSource(1)),
	}

	_, err := e.Sail(context.Background(), &models.Player{ID: 1, Money: 5000, CurrentPort: 1, ShipLevel: 1}, 2)
	if err == nil {
		t.Fatal("expected the voyage insert failure to surface")
	}
	if len(ftx.debits) != 0 {
		t.Fatalf("departure charge must roll back with the voyage row, debits = %v", ftx.debits)
	}
}

func TestSailChargesAndCreatesTogether(t *testing.T) {
	ftx := &fakeTransactor{}
	travels := &fakeTravelRepo{}
	e := &Engine{
		tx:      ftx,
		players: &fakePlayerRepo{},
		markets: &fakeMarketRepo{ports: testPorts()},
		travels: travels,
		cfg:     testResolver(),
		rng:     rand.New(rand.NewSource(1)),
	}

	view, err := e.Sail(context.Background(), &models.Player{ID: 1, Money: 5000, CurrentPort: 1, ShipLevel: 1}, 2)
	if err != nil {
		t.Fatalf("sail failed: %v", err)
	}
	// Distance Haven (0,0) -> Drift (4,-2) is 4 hexes.
	wantCost := int64(50 + 25*4)
	if len(ftx.debits) != 1 || ftx.debits[0] != wantCost {
		t.Errorf("debits = %v, want [%d]", ftx.debits, wantCost)
	}
	if travels.travel == nil || travels.travel.Cost != wantCost || travels.travel.ToPort != 2 {
		t.Errorf("voyage row not created as expected: %+v", travels.travel)
	}
	if view.ToPort != 2 || !view.ArriveAt.After(time.Now()) {
		t.Errorf("view = %+v", view)
	}
}
