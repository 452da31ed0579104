// Package engine holds the pieces shared by every game engine: the
// normalized action-result envelope, the domain error taxonomy, and
// the guarded-transaction helpers.
package engine

import (
	"time"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/world"
)

// InventoryDelta is one inventory line of an action's change set.
type InventoryDelta struct {
	GoodID int64 `json:"good_id"`
	Delta  int   `json:"delta"`
}

// Delta is the flat change map returned with every action for
// client-side optimistic reconciliation.
type Delta struct {
	Money        *int64           `json:"money,omitempty"`
	Tax          *int64           `json:"tax,omitempty"`
	Inventory    []InventoryDelta `json:"inventory,omitempty"`
	Sanity       *int             `json:"sanity,omitempty"`
	Health       *int             `json:"health,omitempty"`
	Depth        *int             `json:"depth,omitempty"`
	Position     *world.Coord     `json:"position,omitempty"`
	Contribution *int64           `json:"contribution,omitempty"`
}

// LoreView is a fully-resolved lore entry; only returned for entries
// the player has actually unlocked.
type LoreView struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	UnlockedAt time.Time `json:"unlocked_at,omitempty"`
	Locked     bool      `json:"locked,omitempty"`
}

// MaskedLore is the placeholder clients see for locked entries; real
// titles and content never leave the server before an unlock.
func MaskedLore(id int64, category string) LoreView {
	return LoreView{
		ID:       id,
		Title:    "???",
		Content:  "???",
		Category: category,
		Locked:   true,
	}
}

func ResolveLore(e *models.LoreEntry, unlockedAt time.Time) LoreView {
	return LoreView{
		ID:         e.ID,
		Title:      e.Title,
		Content:    e.Content,
		Category:   e.Category,
		UnlockedAt: unlockedAt,
	}
}

// Result is the envelope every action returns.
type Result struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Event      string     `json:"event,omitempty"`
	Delta      Delta      `json:"delta"`
	NewUnlocks []LoreView `json:"new_unlocks"`
}

func Int64p(v int64) *int64 { return &v }
func Intp(v int) *int       { return &v }
