package models

import (
	"time"

	"github.com/uptrace/bun"
)

const SeasonStatusActive = "ACTIVE"

type Season struct {
	bun.BaseModel `bun:"table:seasons,alias:s"`

	ID              int64  `bun:"id,pk,autoincrement"`
	Name            string `bun:"name,notnull"`
	Status          string `bun:"status,notnull,default:'ACTIVE'"`
	GlobalTarget    int64  `bun:"global_target,notnull"`
	CurrentProgress int64  `bun:"current_progress,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type SeasonContrib struct {
	bun.BaseModel `bun:"table:season_contribs,alias:sc"`

	ID       int64 `bun:"id,pk,autoincrement"`
	SeasonID int64 `bun:"season_id,notnull"`
	PlayerID int64 `bun:"player_id,notnull"`
	Amount   int64 `bun:"amount,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
