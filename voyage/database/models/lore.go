package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Lore unlock sources.
const (
	LoreSourceSeasonProgress = "SEASON_PROGRESS"
	LoreSourceMapDiscovery   = "MAP_DISCOVERY"
	LoreSourceDungeonDrop    = "DUNGEON_DROP"
)

type LoreEntry struct {
	bun.BaseModel `bun:"table:lore_entries,alias:le"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Title    string `bun:"title,notnull"`
	Content  string `bun:"content,notnull"`
	Category string `bun:"category,notnull"`

	// SourceType plus SourceKey scope when an unlock check applies,
	// e.g. (MAP_DISCOVERY, "ANOMALY") or (DUNGEON_DROP, "3").
	SourceType      string  `bun:"source_type,notnull"`
	SourceKey       string  `bun:"source_key"`
	UnlockThreshold int64   `bun:"unlock_threshold,notnull,default:0"`
	DropChance      float64 `bun:"drop_chance,notnull,default:1"`
}

// PlayerLore records an unlock; absence means locked and clients only
// ever see a masked placeholder.
type PlayerLore struct {
	bun.BaseModel `bun:"table:player_lores,alias:pl"`

	ID         int64     `bun:"id,pk,autoincrement"`
	PlayerID   int64     `bun:"player_id,notnull"`
	LoreID     int64     `bun:"lore_id,notnull"`
	UnlockedAt time.Time `bun:"unlocked_at,notnull"`
}
