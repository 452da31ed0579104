package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID       int64  `bun:"id,pk,autoincrement"`
	PlayerID string `bun:"player_id,notnull,unique"`

	Money         int64 `bun:"money,notnull,default:0"`
	CurrentPort   int64 `bun:"current_port,notnull,default:1"`
	ShipLevel     int   `bun:"ship_level,notnull,default:1"`
	CargoCapacity int   `bun:"cargo_capacity,notnull,default:50"`

	// Axial hex position
	HexQ int `bun:"hex_q,notnull,default:0"`
	HexR int `bun:"hex_r,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
