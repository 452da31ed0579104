package season

import (
	"context"
	"testing"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type stubLoreRepo struct {
	entries  []*models.LoreEntry
	unlocked map[int64]time.Time
}

func (s *stubLoreRepo) GetAll(ctx context.Context) ([]*models.LoreEntry, error) {
	return s.entries, nil
}

func (s *stubLoreRepo) GetBySource(ctx context.Context, sourceType, sourceKey string) ([]*models.LoreEntry, error) {
	return nil, nil
}

func (s *stubLoreRepo) GetThresholdEntries(ctx context.Context, sourceType string, threshold int64) ([]*models.LoreEntry, error) {
	return nil, nil
}

func (s *stubLoreRepo) GetUnlocked(ctx context.Context, playerID int64) (map[int64]time.Time, error) {
	return s.unlocked, nil
}

func (s *stubLoreRepo) Unlock(ctx context.Context, playerID, loreID int64) (bool, error) {
	return false, nil
}

func TestLoreCollectionMasksLockedEntries(t *testing.T) {
	unlockedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubLoreRepo{
		entries: []*models.LoreEntry{
			{ID: 1, Title: "The Long Signal", Content: "It repeats every 47 hours.", Category: "signals"},
			{ID: 2, Title: "Hidden Berth", Content: "Coordinates burned into the log.", Category: "charts"},
		},
		unlocked: map[int64]time.Time{1: unlockedAt},
	}
	e := &Engine{loreRepo: repo}

	views, err := e.LoreCollection(context.Background(), &models.Player{ID: 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}

	if views[0].Title != "The Long Signal" || views[0].Locked {
		t.Errorf("unlocked entry masked: %+v", views[0])
	}
	if !views[0].UnlockedAt.Equal(unlockedAt) {
		t.Errorf("unlocked_at = %v, want %v", views[0].UnlockedAt, unlockedAt)
	}
	if views[1].Title != "???" || views[1].Content != "???" || !views[1].Locked {
		t.Errorf("locked entry leaked: %+v", views[1])
	}
	if views[1].Category != "charts" {
		t.Errorf("locked entry should keep its category, got %q", views[1].Category)
	}
}
