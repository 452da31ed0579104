package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MarketItem struct {
	bun.BaseModel `bun:"table:market_items,alias:mi"`

	ID     int64 `bun:"id,pk,autoincrement"`
	PortID int64 `bun:"port_id,notnull"`
	GoodID int64 `bun:"good_id,notnull"`
	Price  int64 `bun:"price,notnull"`
	Stock  int   `bun:"stock,notnull"`

	UpdatedAt time.Time `bun:"updated_at,notnull"`

	Good *Good `bun:"rel:belongs-to,join:good_id=id"`
}
