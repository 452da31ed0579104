package engine

import (
	"context"
	"testing"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type fakeLoreRepo struct {
	entries  []*models.LoreEntry
	unlocked map[int64]time.Time
}

func newFakeLoreRepo(entries ...*models.LoreEntry) *fakeLoreRepo {
	return &fakeLoreRepo{entries: entries, unlocked: make(map[int64]time.Time)}
}

func (f *fakeLoreRepo) GetAll(ctx context.Context) ([]*models.LoreEntry, error) {
	return f.entries, nil
}

func (f *fakeLoreRepo) GetBySource(ctx context.Context, sourceType, sourceKey string) ([]*models.LoreEntry, error) {
	var out []*models.LoreEntry
	for _, e := range f.entries {
		if e.SourceType == sourceType && e.SourceKey == sourceKey {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLoreRepo) GetThresholdEntries(ctx context.Context, sourceType string, threshold int64) ([]*models.LoreEntry, error) {
	var out []*models.LoreEntry
	for _, e := range f.entries {
		if e.SourceType == sourceType && e.UnlockThreshold <= threshold {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLoreRepo) GetUnlocked(ctx context.Context, playerID int64) (map[int64]time.Time, error) {
	return f.unlocked, nil
}

func (f *fakeLoreRepo) Unlock(ctx context.Context, playerID, loreID int64) (bool, error) {
	if _, ok := f.unlocked[loreID]; ok {
		return false, nil
	}
	f.unlocked[loreID] = time.Now()
	return true, nil
}

func TestCheckSourceDropChance(t *testing.T) {
	repo := newFakeLoreRepo(
		&models.LoreEntry{ID: 1, Title: "Signal Zero", Category: "signals", SourceType: models.LoreSourceMapDiscovery, SourceKey: "ANOMALY", DropChance: 0.3},
		&models.LoreEntry{ID: 2, Title: "Charts", Category: "charts", SourceType: models.LoreSourceMapDiscovery, SourceKey: "NEBULA", DropChance: 1.0},
	)
	u := NewLoreUnlocker(repo).WithRNG(func() float64 { return 0.9 })

	// Roll above drop chance: nothing unlocks.
	got, err := u.CheckSource(context.Background(), 1, models.LoreSourceMapDiscovery, "ANOMALY")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d unlocks, want 0", len(got))
	}

	// Roll under drop chance: entry unlocks fully resolved.
	u.WithRNG(func() float64 { return 0.1 })
	got, err = u.CheckSource(context.Background(), 1, models.LoreSourceMapDiscovery, "ANOMALY")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Signal Zero" || got[0].Locked {
		t.Fatalf("got %+v, want resolved Signal Zero", got)
	}

	// Second hit is not fresh.
	got, _ = u.CheckSource(context.Background(), 1, models.LoreSourceMapDiscovery, "ANOMALY")
	if len(got) != 0 {
		t.Errorf("repeat unlock reported %d fresh entries, want 0", len(got))
	}
}

func TestCheckThreshold(t *testing.T) {
	repo := newFakeLoreRepo(
		&models.LoreEntry{ID: 1, Title: "First Light", SourceType: models.LoreSourceSeasonProgress, UnlockThreshold: 10},
		&models.LoreEntry{ID: 2, Title: "Deep Hum", SourceType: models.LoreSourceSeasonProgress, UnlockThreshold: 100},
	)
	u := NewLoreUnlocker(repo)

	got, err := u.CheckThreshold(context.Background(), 1, models.LoreSourceSeasonProgress, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "First Light" {
		t.Fatalf("got %+v, want only First Light", got)
	}

	got, _ = u.CheckThreshold(context.Background(), 1, models.LoreSourceSeasonProgress, 150)
	if len(got) != 1 || got[0].Title != "Deep Hum" {
		t.Fatalf("got %+v, want only the fresh Deep Hum", got)
	}
}

func TestMaskedLore(t *testing.T) {
	v := MaskedLore(7, "signals")
	if v.Title != "???" || v.Content != "???" || !v.Locked || v.Category != "signals" {
		t.Errorf("masked view leaks data: %+v", v)
	}
}
