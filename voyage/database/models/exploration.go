package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Exploration struct {
	bun.BaseModel `bun:"table:explorations,alias:ex"`

	ID       int64 `bun:"id,pk,autoincrement"`
	PlayerID int64 `bun:"player_id,notnull"`
	Q        int   `bun:"q,notnull"`
	R        int   `bun:"r,notnull"`

	VisitedAt  time.Time `bun:"visited_at,notnull"`
	VisitCount int       `bun:"visit_count,notnull,default:1"`
}

// MapChunk overrides the generated tile type and optionally carries a
// player-authored beacon message.
type MapChunk struct {
	bun.BaseModel `bun:"table:map_chunks,alias:mc"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Q        int    `bun:"q,notnull"`
	R        int    `bun:"r,notnull"`
	TileType string `bun:"tile_type"`

	BeaconText   string `bun:"beacon_text"`
	BeaconPlayer int64  `bun:"beacon_player"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
