package models

import "github.com/uptrace/bun"

type Good struct {
	bun.BaseModel `bun:"table:goods,alias:g"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Name      string `bun:"name,notnull,unique"`
	BasePrice int64  `bun:"base_price,notnull"`
	// Volatility scales the random price band, 0 (stable) to 2 (wild).
	Volatility float64 `bun:"volatility,notnull,default:0.5"`
}
