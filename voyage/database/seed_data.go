package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

// SeedGameData inserts static game definitions (ports, goods, dungeons,
// lore entries, the active season) when the tables are empty.
func (db *DB) SeedGameData(ctx context.Context) error {
	var portCount int
	err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ports").Scan(&portCount)
	if err == nil && portCount > 0 {
		slog.Info("Game data already seeded, skipping",
			slog.Int("existing_ports", portCount))
		return nil
	}

	slog.Info("Seeding game definitions...")

	ports := []models.Port{
		{Name: "Haven Station", Q: 0, R: 0, UnlockLevel: 1},
		{Name: "Drift Anchorage", Q: 4, R: -2, UnlockLevel: 1},
		{Name: "Cinder Reach", Q: -3, R: 5, UnlockLevel: 2},
		{Name: "Pale Meridian", Q: 7, R: 1, UnlockLevel: 3},
		{Name: "The Last Quay", Q: -6, R: -4, UnlockLevel: 4},
	}

	goods := []models.Good{
		{Name: "water_ice", BasePrice: 20, Volatility: 0.2},
		{Name: "rations", BasePrice: 45, Volatility: 0.3},
		{Name: "scrap_alloy", BasePrice: 80, Volatility: 0.6},
		{Name: "medgel", BasePrice: 150, Volatility: 0.8},
		{Name: "dark_silk", BasePrice: 320, Volatility: 1.2},
		{Name: "void_opals", BasePrice: 700, Volatility: 1.8},
		{Name: "signal_fragment", BasePrice: 250, Volatility: 1.0},
	}

	dungeons := []models.DungeonDef{
		{
			Name: "Sunken Relay", Difficulty: 1, MaxDepth: 5, EntryCost: 50,
			SearchLoot: []models.LootEntry{
				{Type: "money", Chance: 0.5, Min: 10, Max: 60},
				{Type: "item", GoodID: 3, Chance: 0.25, Min: 1, Max: 2},
			},
			CompletionLoot: []models.LootEntry{
				{Type: "money", Chance: 1, Min: 100, Max: 250},
				{Type: "item", GoodID: 7, Chance: 0.4, Min: 1, Max: 1},
			},
		},
		{
			Name: "Hollow Carrier", Difficulty: 2, MaxDepth: 7, EntryCost: 150,
			SearchLoot: []models.LootEntry{
				{Type: "money", Chance: 0.45, Min: 30, Max: 120},
				{Type: "item", GoodID: 4, Chance: 0.2, Min: 1, Max: 2},
				{Type: "item", GoodID: 7, Chance: 0.1, Min: 1, Max: 1},
			},
			CompletionLoot: []models.LootEntry{
				{Type: "money", Chance: 1, Min: 300, Max: 700},
				{Type: "item", GoodID: 6, Chance: 0.3, Min: 1, Max: 1},
			},
		},
		{
			Name: "The Chorus Below", Difficulty: 3, MaxDepth: 9, EntryCost: 400,
			SearchLoot: []models.LootEntry{
				{Type: "money", Chance: 0.4, Min: 80, Max: 300},
				{Type: "item", GoodID: 5, Chance: 0.2, Min: 1, Max: 3},
				{Type: "item", GoodID: 7, Chance: 0.15, Min: 1, Max: 2},
			},
			CompletionLoot: []models.LootEntry{
				{Type: "money", Chance: 1, Min: 900, Max: 1800},
				{Type: "item", GoodID: 6, Chance: 0.75, Min: 1, Max: 2},
			},
		},
	}

	lore := []models.LoreEntry{
		{
			Title: "The First Crossing", Category: "history",
			Content:         "Before the lanes were charted, the first crews sailed blind between beacons of their own making.",
			SourceType:      models.LoreSourceSeasonProgress,
			UnlockThreshold: 10,
		},
		{
			Title: "Tithes of the Meridian", Category: "history",
			Content:         "Every port keeps a ledger of what the void has taken. None keep a ledger of what it returned.",
			SourceType:      models.LoreSourceSeasonProgress,
			UnlockThreshold: 100,
		},
		{
			Title: "Signal in the Static", Category: "anomaly",
			Content:    "The fragments sing at 4.7 kHz. Nobody transmits at 4.7 kHz.",
			SourceType: models.LoreSourceMapDiscovery,
			SourceKey:  "ANOMALY",
			DropChance: 0.35,
		},
		{
			Title: "Nebula Charts, Annotated", Category: "navigation",
			Content:    "The margins of the old charts warn: the cloud remembers every hull that entered it.",
			SourceType: models.LoreSourceMapDiscovery,
			SourceKey:  "NEBULA",
			DropChance: 0.2,
		},
		{
			Title: "Manifest of the Hollow Carrier", Category: "dungeon",
			Content:    "Cargo: none. Crew: none. Course: holding steady for thirty years.",
			SourceType: models.LoreSourceDungeonDrop,
			SourceKey:  "2",
			DropChance: 0.25,
		},
		{
			Title: "What the Chorus Sings", Category: "dungeon",
			Content:    "The survivors all hum the same seven notes. They have never met each other.",
			SourceType: models.LoreSourceDungeonDrop,
			SourceKey:  "3",
			DropChance: 0.15,
		},
	}

	season := models.Season{
		Name:         "Season of the Long Signal",
		Status:       models.SeasonStatusActive,
		GlobalTarget: 100000,
	}

	if _, err := db.bunDB.NewInsert().Model(&ports).Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed ports: %w", err)
	}
	if _, err := db.bunDB.NewInsert().Model(&goods).Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed goods: %w", err)
	}
	if _, err := db.bunDB.NewInsert().Model(&dungeons).Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed dungeons: %w", err)
	}
	if _, err := db.bunDB.NewInsert().Model(&lore).Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed lore entries: %w", err)
	}
	if _, err := db.bunDB.NewInsert().Model(&season).Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed season: %w", err)
	}

	slog.Info("Game definitions seeded",
		slog.Int("ports", len(ports)),
		slog.Int("goods", len(goods)),
		slog.Int("dungeons", len(dungeons)),
		slog.Int("lore_entries", len(lore)),
		slog.Time("seeded_at", time.Now()))

	return nil
}
