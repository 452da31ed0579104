package dungeon

import (
	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/engine"
)

const (
	LootTypeMoney = "money"
	LootTypeItem  = "item"
)

// RollLoot rolls every entry of a loot table independently. Money
// entries accumulate into a single credit; item entries merge by good.
func RollLoot(entries []models.LootEntry, roll func() float64, intn func(int) int) (money int64, items []engine.InventoryDelta) {
	byGood := make(map[int64]int)
	var order []int64

	for _, e := range entries {
		if e.Chance <= 0 || roll() >= e.Chance {
			continue
		}
		qty := e.Min
		if e.Max > e.Min {
			qty = e.Min + intn(e.Max-e.Min+1)
		}
		if qty <= 0 {
			continue
		}
		switch e.Type {
		case LootTypeMoney:
			money += int64(qty)
		case LootTypeItem:
			if e.GoodID <= 0 {
				continue
			}
			if _, seen := byGood[e.GoodID]; !seen {
				order = append(order, e.GoodID)
			}
			byGood[e.GoodID] += qty
		}
	}

	for _, id := range order {
		items = append(items, engine.InventoryDelta{GoodID: id, Delta: byGood[id]})
	}
	return money, items
}
