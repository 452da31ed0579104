package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	var conn net.Conn
	var err error

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	defer conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{pool: pool, bunDB: newBunDB(pool)}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pool.Config().ConnConfig.User,
		pool.Config().ConnConfig.Password,
		pool.Config().ConnConfig.Host,
		pool.Config().ConnConfig.Port,
		pool.Config().ConnConfig.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// InitializeSchema creates all required tables and indexes, then seeds
// static game data (ports, goods, dungeons, lore, the active season).
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.Player)(nil),
		(*models.Port)(nil),
		(*models.Good)(nil),
		(*models.MarketItem)(nil),
		(*models.InventoryItem)(nil),
		(*models.TravelState)(nil),
		(*models.Exploration)(nil),
		(*models.MapChunk)(nil),
		(*models.DungeonDef)(nil),
		(*models.DungeonState)(nil),
		(*models.Season)(nil),
		(*models.SeasonContrib)(nil),
		(*models.LoreEntry)(nil),
		(*models.PlayerLore)(nil),
		(*models.ShipMintRecord)(nil),
		(*models.GameConfig)(nil),
		(*models.NPCMessage)(nil),
		(*models.NPCRelation)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_players_player_id ON players(player_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_market_items_port_good ON market_items(port_id, good_id);",
		"CREATE INDEX IF NOT EXISTS idx_market_items_port_updated ON market_items(port_id, updated_at);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_player_good ON inventory_items(player_id, good_id);",
		"CREATE INDEX IF NOT EXISTS idx_travel_states_player_status ON travel_states(player_id, status);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_travel_states_one_active ON travel_states(player_id) WHERE status = 'ACTIVE';",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_explorations_player_tile ON explorations(player_id, q, r);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_map_chunks_tile ON map_chunks(q, r);",
		"CREATE INDEX IF NOT EXISTS idx_dungeon_states_player_status ON dungeon_states(player_id, status);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_dungeon_states_one_active ON dungeon_states(player_id) WHERE status = 'ACTIVE';",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_season_contribs_pair ON season_contribs(season_id, player_id);",
		"CREATE INDEX IF NOT EXISTS idx_season_contribs_top ON season_contribs(season_id, amount DESC, id ASC);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_player_lore_pair ON player_lores(player_id, lore_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_records_wallet ON ship_mint_records(wallet);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_game_configs_key ON game_configs(key);",
		"CREATE INDEX IF NOT EXISTS idx_npc_messages_pair ON npc_messages(player_id, npc_id, created_at DESC);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_npc_relations_pair ON npc_relations(player_id, npc_id);",
	}

	for _, idx := range indexes {
		if _, err := db.pool.Exec(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := db.SeedGameData(ctx); err != nil {
		return fmt.Errorf("failed to seed game data: %w", err)
	}

	return nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}
