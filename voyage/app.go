package voyage

import (
	"context"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/chain"
	"github.com/voyagelabs/voyage-server/voyage/database"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/engine/dungeon"
	"github.com/voyagelabs/voyage-server/voyage/engine/market"
	"github.com/voyagelabs/voyage-server/voyage/engine/mint"
	"github.com/voyagelabs/voyage-server/voyage/engine/npc"
	"github.com/voyagelabs/voyage-server/voyage/engine/season"
	"github.com/voyagelabs/voyage-server/voyage/engine/travel"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
	"github.com/voyagelabs/voyage-server/voyage/handlers"
	"github.com/voyagelabs/voyage-server/voyage/kvstate"
	"github.com/voyagelabs/voyage-server/voyage/llm"
	"github.com/voyagelabs/voyage-server/voyage/search"
	"github.com/voyagelabs/voyage-server/voyage/storage"
)

// App owns every long-lived dependency: database, repositories,
// engines and the HTTP server wiring.
type App struct {
	Cfg     Config
	DB      *database.DB
	KV      *kvstate.MemoryStore
	Server  *handlers.Server
	Markets *market.Scheduler
	Version string
	Commit  string
}

// New assembles the dependency graph over an initialized database.
func New(cfg Config, db *database.DB, version, commit string) (*App, error) {
	bunDB := db.BunDB()

	players := repositories.NewPlayerRepository(bunDB)
	markets := repositories.NewMarketRepository(bunDB)
	inventory := repositories.NewInventoryRepository(bunDB)
	travels := repositories.NewTravelRepository(bunDB)
	explorations := repositories.NewExplorationRepository(bunDB)
	dungeons := repositories.NewDungeonRepository(bunDB)
	seasons := repositories.NewSeasonRepository(bunDB)
	loreRepo := repositories.NewLoreRepository(bunDB)
	mints := repositories.NewMintRepository(bunDB)
	npcs := repositories.NewNPCRepository(bunDB)
	configs := repositories.NewConfigRepository(bunDB)

	tx := engine.NewTxManager(bunDB)
	kv := kvstate.NewMemoryStore()
	resolver := gameconfig.NewResolver(configs, 30*time.Second)
	unlocker := engine.NewLoreUnlocker(loreRepo)

	var generator llm.Generator
	if cfg.LLM.BaseURL != "" {
		generator = llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	}

	var indexer chain.Indexer
	if cfg.Chain.RPCURL != "" {
		indexer = chain.NewRPCClient(cfg.Chain.RPCURL)
	}

	var uploader mint.Uploader
	if cfg.Spaces.Bucket != "" {
		spaces, err := storage.NewSpacesService(cfg.Spaces.Key, cfg.Spaces.Secret,
			cfg.Spaces.Region, cfg.Spaces.Bucket, cfg.Spaces.MetadataRoot)
		if err != nil {
			return nil, err
		}
		uploader = spaces
	}

	marketEngine := market.New(tx, markets, inventory, resolver, kv)
	travelEngine := travel.New(tx, players, markets, travels, explorations, unlocker, resolver)
	dungeonEngine := dungeon.New(tx, players, dungeons, seasons, unlocker, resolver, generator)
	seasonEngine := season.New(tx, players, inventory, seasons, loreRepo, unlocker, resolver)
	npcEngine := npc.New(npcs, generator, resolver, kv)
	mintEngine := mint.New(mints, kv, indexer, uploader, mintOptions(cfg))

	app := &App{
		Cfg:     cfg,
		DB:      db,
		KV:      kv,
		Markets: market.NewScheduler(marketEngine, 5*time.Minute),
		Version: version,
		Commit:  commit,
		Server: &handlers.Server{
			Players: players,
			Configs: configs,
			Cfg:     resolver,
			Market:  marketEngine,
			Travel:  travelEngine,
			Dungeon: dungeonEngine,
			Season:  seasonEngine,
			Mint:    mintEngine,
			NPC:     npcEngine,
			Search:  search.NewService(markets),
		},
	}
	return app, nil
}

func mintOptions(cfg Config) mint.Options {
	opts := mint.Options{
		Enabled:        cfg.Mint.Enabled,
		Collection:     cfg.Chain.Collection,
		Soulbound:      cfg.Chain.Soulbound,
		IPCooldown:     time.Duration(cfg.Mint.IPCooldownS) * time.Second,
		WalletCooldown: time.Duration(cfg.Mint.WalletCooldownS) * time.Second,
		TxCacheTTL:     time.Duration(cfg.Mint.TxCacheS) * time.Second,
		LockTTL:        time.Duration(cfg.Mint.LockTTLS) * time.Second,
	}
	if cfg.Mint.StartAt != "" {
		if at, err := time.Parse(time.RFC3339, cfg.Mint.StartAt); err == nil {
			opts.StartAt = at
		}
	}
	return opts
}

// Start launches the background loops: advisory-state cleanup and the
// market refresh sweep.
func (a *App) Start(ctx context.Context) {
	a.KV.StartCleanupRoutine(ctx)
	a.Markets.Start(ctx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
