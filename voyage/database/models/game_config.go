package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GameConfig holds one tunable economic constant. Per-entity overrides
// use a "key:entity" row that wins over the bare "key" row.
type GameConfig struct {
	bun.BaseModel `bun:"table:game_configs,alias:gc"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Key   string `bun:"key,notnull,unique"`
	Value string `bun:"value,notnull"`

	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
