package voyage

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	HTTP   HTTPConfig   `toml:"http"`
	DB     DBConfig     `toml:"db"`
	LLM    LLMConfig    `toml:"llm"`
	Chain  ChainConfig  `toml:"chain"`
	Mint   MintConfig   `toml:"mint"`
	Spaces SpacesConfig `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type LLMConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	// TimeoutSeconds bounds every generation call; expired calls fall
	// back to deterministic narration.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type ChainConfig struct {
	RPCURL     string `toml:"rpc_url"`
	Collection string `toml:"collection"`
	// Soulbound switches eligibility to on-chain verification via the
	// DAS indexer instead of trusting server records alone.
	Soulbound bool `toml:"soulbound"`
}

type MintConfig struct {
	Enabled         bool   `toml:"enabled"`
	StartAt         string `toml:"start_at"` // RFC3339, empty = immediately
	WalletCooldownS int    `toml:"wallet_cooldown_seconds"`
	IPCooldownS     int    `toml:"ip_cooldown_seconds"`
	TxCacheS        int    `toml:"tx_cache_seconds"`
	LockTTLS        int    `toml:"lock_ttl_seconds"`
}

type SpacesConfig struct {
	Key          string `toml:"key"`
	Secret       string `toml:"secret"`
	Region       string `toml:"region"`
	Bucket       string `toml:"bucket"`
	MetadataRoot string `toml:"metadata_root"`
}
