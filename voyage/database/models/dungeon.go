package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	DungeonStatusActive    = "ACTIVE"
	DungeonStatusCompleted = "COMPLETED"
	DungeonStatusFailed    = "FAILED"
)

// LootEntry is one row of a dungeon loot table. Money entries credit
// the balance directly; item entries upsert inventory.
type LootEntry struct {
	Type   string  `json:"type"` // "money" or "item"
	GoodID int64   `json:"good_id,omitempty"`
	Chance float64 `json:"chance"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

type DungeonDef struct {
	bun.BaseModel `bun:"table:dungeon_defs,alias:dd"`

	ID         int64  `bun:"id,pk,autoincrement"`
	Name       string `bun:"name,notnull"`
	Difficulty int    `bun:"difficulty,notnull,default:1"`
	MaxDepth   int    `bun:"max_depth,notnull,default:5"`
	EntryCost  int64  `bun:"entry_cost,notnull,default:0"`

	SearchLoot     []LootEntry `bun:"search_loot,type:jsonb"`
	CompletionLoot []LootEntry `bun:"completion_loot,type:jsonb"`
}

type DungeonState struct {
	bun.BaseModel `bun:"table:dungeon_states,alias:ds"`

	ID        int64 `bun:"id,pk,autoincrement"`
	PlayerID  int64 `bun:"player_id,notnull"`
	DungeonID int64 `bun:"dungeon_id,notnull"`

	CurrentDepth int    `bun:"current_depth,notnull,default:0"`
	RoomDesc     string `bun:"room_desc"`

	// Both clamped to [0,100]; hitting 0 fails the session.
	Sanity int `bun:"sanity,notnull,default:100"`
	Health int `bun:"health,notnull,default:100"`

	Status     string    `bun:"status,notnull,default:'ACTIVE'"`
	LastAction string    `bun:"last_action"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}
