package gameconfig

import (
	"context"
	"testing"
	"time"
)

type fakeConfigRepo struct {
	values map[string]string
	calls  int
}

func (f *fakeConfigRepo) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	f.calls++
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func TestInt64(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{
		"market.tax_rate_bp":     "200",
		"market.stock_max":       "9999999",
		"dungeon.base_cost":      "not-a-number",
		"travel.cost_base:port2": "75",
		"travel.cost_base":       "50",
	}}
	r := NewResolver(repo, time.Minute)
	ctx := context.Background()

	tests := []struct {
		name   string
		key    string
		entity string
		def    int64
		min    int64
		max    int64
		want   int64
	}{
		{name: "present value", key: "market.tax_rate_bp", def: 100, min: 0, max: 10000, want: 200},
		{name: "missing key uses default", key: "market.nope", def: 42, min: 0, max: 100, want: 42},
		{name: "value clamped to max", key: "market.stock_max", def: 100, min: 1, max: 500, want: 500},
		{name: "malformed value uses default", key: "dungeon.base_cost", def: 5, min: 0, max: 100, want: 5},
		{name: "entity override wins", key: "travel.cost_base", entity: "port2", def: 10, min: 0, max: 1000, want: 75},
		{name: "no override falls back", key: "travel.cost_base", entity: "port9", def: 10, min: 0, max: 1000, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Int64For(ctx, tt.key, tt.entity, tt.def, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("Int64For(%q, %q) = %d, want %d", tt.key, tt.entity, got, tt.want)
			}
		})
	}
}

func TestCaching(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{"k": "7"}}
	r := NewResolver(repo, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if got := r.Int64(ctx, "k", 0, 0, 100); got != 7 {
			t.Fatalf("Int64() = %d, want 7", got)
		}
	}
	if repo.calls != 1 {
		t.Errorf("expected 1 repo call through the cache, got %d", repo.calls)
	}

	r.Invalidate("k")
	repo.values["k"] = "9"
	if got := r.Int64(ctx, "k", 0, 0, 100); got != 9 {
		t.Fatalf("Int64() after invalidate = %d, want 9", got)
	}
	if repo.calls != 2 {
		t.Errorf("expected lookup after invalidate, got %d calls", repo.calls)
	}
}

func TestJSONAndBool(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{
		"world.tile_weights": `{"VOID":0.3,"ASTEROID":0.35,"NEBULA":0.2,"ANOMALY":0.15}`,
		"mint.enabled":       "true",
	}}
	r := NewResolver(repo, time.Minute)
	ctx := context.Background()

	var weights map[string]float64
	if !r.JSON(ctx, "world.tile_weights", &weights) {
		t.Fatal("expected JSON key to resolve")
	}
	if weights["ANOMALY"] != 0.15 {
		t.Errorf("ANOMALY weight = %v, want 0.15", weights["ANOMALY"])
	}

	if !r.Bool(ctx, "mint.enabled", false) {
		t.Error("expected mint.enabled = true")
	}
	if r.Bool(ctx, "mint.missing", false) {
		t.Error("expected default false for missing key")
	}
}
