package npc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
	"github.com/voyagelabs/voyage-server/voyage/kvstate"
)

type fakeNPCRepo struct {
	messages  []*models.NPCMessage
	relations map[string]*models.NPCRelation
}

func newFakeNPCRepo() *fakeNPCRepo {
	return &fakeNPCRepo{relations: make(map[string]*models.NPCRelation)}
}

func (f *fakeNPCRepo) GetRecent(ctx context.Context, playerID int64, npcID string, limit int) ([]*models.NPCMessage, error) {
	var out []*models.NPCMessage
	for _, m := range f.messages {
		if m.PlayerID == playerID && m.NPCID == npcID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeNPCRepo) Append(ctx context.Context, msg *models.NPCMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeNPCRepo) PruneOld(ctx context.Context, playerID int64, npcID string, keep int) error {
	return nil
}

func (f *fakeNPCRepo) GetRelation(ctx context.Context, playerID int64, npcID string) (*models.NPCRelation, error) {
	return f.relations[npcID], nil
}

func (f *fakeNPCRepo) BumpRelation(ctx context.Context, playerID int64, npcID string) (int, error) {
	rel, ok := f.relations[npcID]
	if !ok {
		rel = &models.NPCRelation{PlayerID: playerID, NPCID: npcID}
		f.relations[npcID] = rel
	}
	rel.InteractionCount++
	return rel.InteractionCount, nil
}

func (f *fakeNPCRepo) SetSummary(ctx context.Context, playerID int64, npcID string, summary string) error {
	if rel, ok := f.relations[npcID]; ok {
		rel.Summary = summary
	}
	return nil
}

type fakeConfigRepo struct {
	values map[string]string
}

func (f *fakeConfigRepo) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) Set(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func TestInteractFixedWindowLimit(t *testing.T) {
	cfg := gameconfig.NewResolver(&fakeConfigRepo{values: map[string]string{
		"npc.messages_per_minute": "2",
	}}, time.Minute)
	e := New(newFakeNPCRepo(), nil, cfg, kvstate.NewMemoryStore())
	player := &models.Player{ID: 1, PlayerID: "p1"}

	for i := 0; i < 2; i++ {
		if _, err := e.Interact(context.Background(), player, "Vesna", "hello"); err != nil {
			t.Fatalf("turn %d: unexpected error %v", i+1, err)
		}
	}

	_, err := e.Interact(context.Background(), player, "Vesna", "hello again")
	de, ok := engine.AsDomain(err)
	if !ok || de.Kind != engine.KindContention {
		t.Fatalf("third turn in the window should hit contention, got %v", err)
	}
	if de.RetryAfter <= 0 || de.RetryAfter > time.Minute {
		t.Fatalf("retry guidance %v should be within the window", de.RetryAfter)
	}

	// A different player counts against its own window.
	if _, err := e.Interact(context.Background(), &models.Player{ID: 2, PlayerID: "p2"}, "Vesna", "hello"); err != nil {
		t.Fatalf("second player should not be limited, got %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	recent := []*models.NPCMessage{
		{Message: "Any work going?", Response: "Check the board."},
		{Message: "Done. What now?", Response: "Now you wait."},
	}

	got := BuildPrompt("They owe Vesna forty credits.", recent, "About that debt...")

	if !strings.HasPrefix(got, "Relationship so far: They owe Vesna forty credits.") {
		t.Errorf("summary not leading the prompt:\n%s", got)
	}
	first := strings.Index(got, "Any work going?")
	second := strings.Index(got, "Done. What now?")
	last := strings.Index(got, "About that debt...")
	if first < 0 || second < 0 || last < 0 || first > second || second > last {
		t.Errorf("exchanges out of order:\n%s", got)
	}
	if !strings.HasSuffix(got, "Player: About that debt...") {
		t.Errorf("new message not last:\n%s", got)
	}
}

func TestBuildPromptNoSummary(t *testing.T) {
	got := BuildPrompt("", nil, "Hello?")
	if strings.Contains(got, "Relationship so far") {
		t.Errorf("empty summary should be omitted:\n%s", got)
	}
	if got != "Player: Hello?" {
		t.Errorf("got %q", got)
	}
}

func TestFallbackLineMentionsNPC(t *testing.T) {
	if got := fallbackLine("Vesna"); !strings.Contains(got, "Vesna") {
		t.Errorf("fallback does not name the npc: %q", got)
	}
}
