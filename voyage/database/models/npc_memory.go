package models

import (
	"time"

	"github.com/uptrace/bun"
)

// NPCMessage is one (message, response) exchange; only the most recent
// N per (player, npc) are kept.
type NPCMessage struct {
	bun.BaseModel `bun:"table:npc_messages,alias:nm"`

	ID       int64  `bun:"id,pk,autoincrement"`
	PlayerID int64  `bun:"player_id,notnull"`
	NPCID    string `bun:"npc_id,notnull"`
	Message  string `bun:"message,notnull"`
	Response string `bun:"response,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// NPCRelation carries the periodically resummarized relationship blob
// that bounds prompt size regardless of history length.
type NPCRelation struct {
	bun.BaseModel `bun:"table:npc_relations,alias:nr"`

	ID               int64  `bun:"id,pk,autoincrement"`
	PlayerID         int64  `bun:"player_id,notnull"`
	NPCID            string `bun:"npc_id,notnull"`
	Summary          string `bun:"summary"`
	InteractionCount int    `bun:"interaction_count,notnull,default:0"`

	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
