// Package market implements per-port pricing, lazy seeding, TTL-based
// refresh, and the buy/sell transaction paths.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/uptrace/bun"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
	"github.com/voyagelabs/voyage-server/voyage/kvstate"
)

const refreshLockTTL = 10 * time.Second

type Engine struct {
	tx        engine.Transactor
	markets   repositories.MarketRepository
	inventory repositories.InventoryRepository
	cfg       *gameconfig.Resolver
	locks     kvstate.Store
	rng       *rand.Rand
}

func New(tx engine.Transactor, markets repositories.MarketRepository, inventory repositories.InventoryRepository, cfg *gameconfig.Resolver, locks kvstate.Store) *Engine {
	return &Engine{
		tx:        tx,
		markets:   markets,
		inventory: inventory,
		cfg:       cfg,
		locks:     locks,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// View is the market snapshot returned to clients. Refreshing reports
// that another request holds the refresh lock and the data is served
// stale rather than blocking.
type View struct {
	PortID     int64                `json:"port_id"`
	Items      []*models.MarketItem `json:"items"`
	Refreshing bool                 `json:"refreshing"`
}

// GetMarket seeds the port's market on first access and re-rolls it
// once the oldest row exceeds the configured TTL.
func (e *Engine) GetMarket(ctx context.Context, player *models.Player) (*View, error) {
	portID := player.CurrentPort
	entity := fmt.Sprintf("port%d", portID)

	items, err := e.markets.GetItemsByPort(ctx, portID)
	if err != nil {
		return nil, fmt.Errorf("failed to load market: %w", err)
	}

	if len(items) == 0 {
		if err := e.seedPort(ctx, portID, entity); err != nil {
			return nil, err
		}
		items, err = e.markets.GetItemsByPort(ctx, portID)
		if err != nil {
			return nil, fmt.Errorf("failed to load market after seed: %w", err)
		}
		return &View{PortID: portID, Items: items}, nil
	}

	ttl := time.Duration(e.cfg.Int64For(ctx, "market.refresh_ttl_seconds", entity, 600, 30, 86400)) * time.Second
	oldest, ok, err := e.markets.OldestUpdatedAt(ctx, portID)
	if err != nil {
		return nil, fmt.Errorf("failed to check market staleness: %w", err)
	}

	view := &View{PortID: portID, Items: items}
	if ok && time.Since(oldest) > ttl {
		lockKey := fmt.Sprintf("market:refresh:%d", portID)
		if e.locks.TryAcquire(lockKey, refreshLockTTL) {
			defer e.locks.Release(lockKey)
			if err := e.refreshPort(ctx, items, entity); err != nil {
				return nil, err
			}
			view.Items, err = e.markets.GetItemsByPort(ctx, portID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload market: %w", err)
			}
		} else {
			// Another caller is refreshing; serve stale data.
			view.Refreshing = true
		}
	}

	return view, nil
}

// seedPort is the one-time initialization for a port's market; racing
// seeds collapse via the unique index.
func (e *Engine) seedPort(ctx context.Context, portID int64, entity string) error {
	goods, err := e.markets.GetGoods(ctx)
	if err != nil {
		return fmt.Errorf("failed to load goods: %w", err)
	}

	variation := e.cfg.FloatFor(ctx, "market.init_variation", entity, 0.25, 0, 1)
	stockMin := int(e.cfg.Int64For(ctx, "market.stock_min", entity, 10, 0, 1_000_000))
	stockMax := int(e.cfg.Int64For(ctx, "market.stock_max", entity, 120, 1, 1_000_000))

	now := time.Now()
	items := make([]*models.MarketItem, 0, len(goods))
	for _, g := range goods {
		items = append(items, &models.MarketItem{
			PortID:    portID,
			GoodID:    g.ID,
			Price:     RollPrice(g.BasePrice, g.Volatility, variation, e.rng.Float64()),
			Stock:     RollStock(stockMin, stockMax, e.rng.Intn),
			UpdatedAt: now,
		})
	}

	if err := e.markets.InsertItems(ctx, items); err != nil {
		return fmt.Errorf("failed to seed market: %w", err)
	}

	slog.Info("Market seeded",
		slog.String("type", "db"),
		slog.Int64("port_id", portID),
		slog.Int("items", len(items)))
	return nil
}

// refreshPort re-rolls every item from base_price, not current price,
// so prices never drift.
func (e *Engine) refreshPort(ctx context.Context, items []*models.MarketItem, entity string) error {
	variation := e.cfg.FloatFor(ctx, "market.refresh_variation", entity, 0.35, 0, 1)
	stockMin := int(e.cfg.Int64For(ctx, "market.stock_min", entity, 10, 0, 1_000_000))
	stockMax := int(e.cfg.Int64For(ctx, "market.stock_max", entity, 120, 1, 1_000_000))

	now := time.Now()
	for _, item := range items {
		if item.Good == nil {
			continue
		}
		item.Price = RollPrice(item.Good.BasePrice, item.Good.Volatility, variation, e.rng.Float64())
		item.Stock = RollStock(stockMin, stockMax, e.rng.Intn)
		item.UpdatedAt = now
		if err := e.markets.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to refresh market item: %w", err)
		}
	}
	return nil
}

// Buy purchases quantity units of a good at the player's current port.
func (e *Engine) Buy(ctx context.Context, player *models.Player, goodID int64, quantity int) (*engine.Result, error) {
	if quantity <= 0 {
		return nil, engine.Validation("quantity must be positive")
	}

	item, err := e.portItem(ctx, player.CurrentPort, goodID)
	if err != nil {
		return nil, err
	}

	entity := fmt.Sprintf("port%d", player.CurrentPort)
	taxRate := e.cfg.FloatFor(ctx, "market.tax_rate", entity, 0.02, 0, 1)
	taxMin := e.cfg.Int64For(ctx, "market.tax_min", entity, 1, 0, 1_000_000)

	subtotal := item.Price * int64(quantity)
	tax := ComputeTax(subtotal, taxRate, taxMin)
	cost := subtotal + tax

	held, err := e.inventory.TotalQuantity(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check cargo: %w", err)
	}
	if held+quantity > player.CargoCapacity {
		return nil, engine.Conflict("cargo capacity exceeded")
	}

	unitCost := float64(cost) / float64(quantity)
	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := e.tx.DebitMoney(ctx, tx, player.ID, cost); err != nil {
			return err
		}
		if err := e.tx.DebitStock(ctx, tx, item.ID, quantity); err != nil {
			return err
		}
		return e.tx.AddToInventory(ctx, tx, player.ID, goodID, quantity, unitCost)
	})
	if err != nil {
		return nil, err
	}

	return &engine.Result{
		Success: true,
		Message: fmt.Sprintf("Bought %d units for %d (tax %d)", quantity, cost, tax),
		Delta: engine.Delta{
			Money:     engine.Int64p(-cost),
			Tax:       engine.Int64p(tax),
			Inventory: []engine.InventoryDelta{{GoodID: goodID, Delta: quantity}},
		},
	}, nil
}

// Sell liquidates quantity units at the current port price.
func (e *Engine) Sell(ctx context.Context, player *models.Player, goodID int64, quantity int) (*engine.Result, error) {
	if quantity <= 0 {
		return nil, engine.Validation("quantity must be positive")
	}

	item, err := e.portItem(ctx, player.CurrentPort, goodID)
	if err != nil {
		return nil, err
	}

	entity := fmt.Sprintf("port%d", player.CurrentPort)
	taxRate := e.cfg.FloatFor(ctx, "market.tax_rate", entity, 0.02, 0, 1)
	taxMin := e.cfg.Int64For(ctx, "market.tax_min", entity, 1, 0, 1_000_000)

	subtotal := item.Price * int64(quantity)
	tax := ComputeTax(subtotal, taxRate, taxMin)
	proceeds := subtotal - tax
	if proceeds < 0 {
		proceeds = 0
	}

	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := e.tx.RemoveFromInventory(ctx, tx, player.ID, goodID, quantity); err != nil {
			return err
		}
		if err := e.tx.CreditStock(ctx, tx, item.ID, quantity); err != nil {
			return err
		}
		return e.tx.CreditMoney(ctx, tx, player.ID, proceeds)
	})
	if err != nil {
		return nil, err
	}

	return &engine.Result{
		Success: true,
		Message: fmt.Sprintf("Sold %d units for %d (tax %d)", quantity, proceeds, tax),
		Delta: engine.Delta{
			Money:     engine.Int64p(proceeds),
			Tax:       engine.Int64p(tax),
			Inventory: []engine.InventoryDelta{{GoodID: goodID, Delta: -quantity}},
		},
	}, nil
}

func (e *Engine) portItem(ctx context.Context, portID, goodID int64) (*models.MarketItem, error) {
	items, err := e.markets.GetItemsByPort(ctx, portID)
	if err != nil {
		return nil, fmt.Errorf("failed to load market: %w", err)
	}
	for _, item := range items {
		if item.GoodID == goodID {
			return item, nil
		}
	}
	return nil, engine.Validation("good not traded at this port")
}

// ComputeTax applies max(taxMin, ceil(rate * subtotal)).
func ComputeTax(subtotal int64, rate float64, taxMin int64) int64 {
	tax := int64(math.Ceil(rate * float64(subtotal)))
	if tax < taxMin {
		return taxMin
	}
	return tax
}

// RollPrice perturbs the base price within a volatility-scaled band;
// roll is uniform in [0, 1).
func RollPrice(base int64, volatility, variation, roll float64) int64 {
	band := volatility * variation
	price := int64(math.Round(float64(base) * (1 + (roll*2-1)*band)))
	if price < 1 {
		return 1
	}
	return price
}

// RollStock picks a uniform stock in [min, max].
func RollStock(min, max int, intn func(int) int) int {
	if max <= min {
		return min
	}
	return min + intn(max-min+1)
}
