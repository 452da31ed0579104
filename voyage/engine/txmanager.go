package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

const defaultTxTimeout = 30 * time.Second

// Transactor is the transaction surface the engines depend on. Tests
// substitute an in-memory implementation; TxManager is the production
// one.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error
	DebitMoney(ctx context.Context, tx bun.Tx, playerID int64, amount int64) error
	CreditMoney(ctx context.Context, tx bun.Tx, playerID int64, amount int64) error
	DebitStock(ctx context.Context, tx bun.Tx, itemID int64, quantity int) error
	CreditStock(ctx context.Context, tx bun.Tx, itemID int64, quantity int) error
	AddToInventory(ctx context.Context, tx bun.Tx, playerID, goodID int64, quantity int, unitCost float64) error
	RemoveFromInventory(ctx context.Context, tx bun.Tx, playerID, goodID int64, quantity int) error
}

// TxManager provides the guarded-transaction utilities shared by every
// economic action. All mutations run inside one transaction; a failed
// guard rolls back the whole action so no partial charge is ever
// committed.
type TxManager struct {
	db *bun.DB
}

func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTransaction executes fn within a database transaction.
func (tm *TxManager) WithTransaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, defaultTxTimeout)
	defer cancel()

	tx, err := tm.db.BeginTx(timeoutCtx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(timeoutCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DebitMoney deducts with the precondition re-checked atomically in
// the WHERE clause; two racing debits cannot overspend the balance.
func (tm *TxManager) DebitMoney(ctx context.Context, tx bun.Tx, playerID int64, amount int64) error {
	res, err := tx.NewUpdate().
		Model((*models.Player)(nil)).
		Set("money = money - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND money >= ?", playerID, amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit money: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (tm *TxManager) CreditMoney(ctx context.Context, tx bun.Tx, playerID int64, amount int64) error {
	res, err := tx.NewUpdate().
		Model((*models.Player)(nil)).
		Set("money = money + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", playerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit money: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("player not found when crediting money")
	}
	return nil
}

// DebitStock reserves market stock under the same guarded pattern.
func (tm *TxManager) DebitStock(ctx context.Context, tx bun.Tx, itemID int64, quantity int) error {
	res, err := tx.NewUpdate().
		Model((*models.MarketItem)(nil)).
		Set("stock = stock - ?", quantity).
		Where("id = ? AND stock >= ?", itemID, quantity).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit stock: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (tm *TxManager) CreditStock(ctx context.Context, tx bun.Tx, itemID int64, quantity int) error {
	_, err := tx.NewUpdate().
		Model((*models.MarketItem)(nil)).
		Set("stock = stock + ?", quantity).
		Where("id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit stock: %w", err)
	}
	return nil
}

// AddToInventory upserts a holding and recomputes the weighted-average
// cost basis across the prior lot and the new one.
func (tm *TxManager) AddToInventory(ctx context.Context, tx bun.Tx, playerID, goodID int64, quantity int, unitCost float64) error {
	var item models.InventoryItem
	err := tx.NewSelect().
		Model(&item).
		Where("player_id = ? AND good_id = ?", playerID, goodID).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get inventory item: %w", err)
		}
		_, err = tx.NewInsert().
			Model(&models.InventoryItem{
				PlayerID:  playerID,
				GoodID:    goodID,
				Quantity:  quantity,
				AvgCost:   unitCost,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert inventory item: %w", err)
		}
		return nil
	}

	newQty := item.Quantity + quantity
	newAvg := WeightedAverageCost(item.Quantity, item.AvgCost, quantity, unitCost)

	_, err = tx.NewUpdate().
		Model((*models.InventoryItem)(nil)).
		Set("quantity = ?", newQty).
		Set("avg_cost = ?", newAvg).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", item.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	return nil
}

// RemoveFromInventory validates the holding under lock, deleting the
// row when it is exhausted.
func (tm *TxManager) RemoveFromInventory(ctx context.Context, tx bun.Tx, playerID, goodID int64, quantity int) error {
	var item models.InventoryItem
	err := tx.NewSelect().
		Model(&item).
		Where("player_id = ? AND good_id = ?", playerID, goodID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInsufficientInventory
		}
		return fmt.Errorf("failed to get inventory item: %w", err)
	}

	if item.Quantity < quantity {
		return ErrInsufficientInventory
	}

	if item.Quantity == quantity {
		res, err := tx.NewDelete().
			Model((*models.InventoryItem)(nil)).
			Where("id = ?", item.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete inventory item: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrInsufficientInventory
		}
		return nil
	}

	res, err := tx.NewUpdate().
		Model((*models.InventoryItem)(nil)).
		Set("quantity = quantity - ?", quantity).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND quantity >= ?", item.ID, quantity).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInsufficientInventory
	}
	return nil
}

// WeightedAverageCost merges a prior holding with a new lot.
func WeightedAverageCost(oldQty int, oldAvg float64, newQty int, unitCost float64) float64 {
	total := oldQty + newQty
	if total <= 0 {
		return 0
	}
	return (float64(oldQty)*oldAvg + float64(newQty)*unitCost) / float64(total)
}
