package models

import (
	"time"

	"github.com/uptrace/bun"
)

type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory_items,alias:inv"`

	ID       int64 `bun:"id,pk,autoincrement"`
	PlayerID int64 `bun:"player_id,notnull"`
	GoodID   int64 `bun:"good_id,notnull"`
	Quantity int   `bun:"quantity,notnull"`
	// AvgCost is the weighted-average acquisition cost, recomputed on
	// every buy. Rows are deleted when quantity reaches zero.
	AvgCost float64 `bun:"avg_cost,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	Good *Good `bun:"rel:belongs-to,join:good_id=id"`
}
