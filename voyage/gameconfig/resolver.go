// Package gameconfig resolves economic tuning values from the
// game_configs table through a read-through cache. Engines never
// hard-code constants; every cost, chance, and range comes from here
// so the simulation is re-tunable without redeploying logic.
package gameconfig

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
)

const cacheSize = 2048

type cachedValue struct {
	raw      string
	found    bool
	storedAt time.Time
}

type Resolver struct {
	repo     repositories.ConfigRepository
	cache    *lru.Cache
	group    singleflight.Group
	cacheTTL time.Duration
}

func NewResolver(repo repositories.ConfigRepository, cacheTTL time.Duration) *Resolver {
	cache, _ := lru.New(cacheSize)
	return &Resolver{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// raw fetches one key through the cache; concurrent misses for the
// same key collapse into a single query.
func (r *Resolver) raw(ctx context.Context, key string) (string, bool) {
	if v, ok := r.cache.Get(key); ok {
		cv := v.(cachedValue)
		if time.Since(cv.storedAt) <= r.cacheTTL {
			return cv.raw, cv.found
		}
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		values, err := r.repo.GetMany(ctx, []string{key})
		if err != nil {
			return nil, err
		}
		raw, found := values[key]
		cv := cachedValue{raw: raw, found: found, storedAt: time.Now()}
		r.cache.Add(key, cv)
		return cv, nil
	})
	if err != nil {
		slog.Warn("Config lookup failed, using default",
			slog.String("type", "db"),
			slog.String("key", key),
			slog.Any("error", err))
		return "", false
	}
	cv := v.(cachedValue)
	return cv.raw, cv.found
}

// rawFor resolves with per-entity override: "key:entity" wins over
// the bare "key" row.
func (r *Resolver) rawFor(ctx context.Context, key, entity string) (string, bool) {
	if entity != "" {
		if raw, ok := r.raw(ctx, key+":"+entity); ok {
			return raw, true
		}
	}
	return r.raw(ctx, key)
}

func (r *Resolver) Int64(ctx context.Context, key string, def, min, max int64) int64 {
	return r.Int64For(ctx, key, "", def, min, max)
}

func (r *Resolver) Int64For(ctx context.Context, key, entity string, def, min, max int64) int64 {
	raw, ok := r.rawFor(ctx, key, entity)
	if !ok {
		return clampInt64(def, min, max)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return clampInt64(def, min, max)
	}
	return clampInt64(n, min, max)
}

func (r *Resolver) Float(ctx context.Context, key string, def, min, max float64) float64 {
	return r.FloatFor(ctx, key, "", def, min, max)
}

func (r *Resolver) FloatFor(ctx context.Context, key, entity string, def, min, max float64) float64 {
	raw, ok := r.rawFor(ctx, key, entity)
	if !ok {
		return clampFloat(def, min, max)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return clampFloat(def, min, max)
	}
	return clampFloat(f, min, max)
}

func (r *Resolver) Bool(ctx context.Context, key string, def bool) bool {
	raw, ok := r.raw(ctx, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// JSON decodes a structured value into dest, reporting whether the key
// existed and parsed.
func (r *Resolver) JSON(ctx context.Context, key string, dest any) bool {
	raw, ok := r.raw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		slog.Warn("Config JSON value malformed",
			slog.String("key", key),
			slog.Any("error", err))
		return false
	}
	return true
}

// Invalidate drops a cached key, forcing a re-read on next access.
func (r *Resolver) Invalidate(key string) {
	r.cache.Remove(key)
}

func clampInt64(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
