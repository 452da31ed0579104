// Package search provides fuzzy name lookup across ports and goods.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
)

const (
	KindPort = "port"
	KindGood = "good"
)

// Match is one scored search hit.
type Match struct {
	Kind  string `json:"kind"`
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// catalogItems implements fuzzy.Source over the combined catalog.
type catalogItems []Match

func (c catalogItems) String(i int) string { return strings.ToLower(c[i].Name) }
func (c catalogItems) Len() int            { return len(c) }

type Service struct {
	markets repositories.MarketRepository
}

func NewService(markets repositories.MarketRepository) *Service {
	return &Service{markets: markets}
}

// Query matches the query against all port and good names, best score
// first.
func (s *Service) Query(ctx context.Context, query string, limit int) ([]Match, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	ports, err := s.markets.GetPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ports: %w", err)
	}
	goods, err := s.markets.GetGoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load goods: %w", err)
	}

	items := make(catalogItems, 0, len(ports)+len(goods))
	for _, p := range ports {
		items = append(items, Match{Kind: KindPort, ID: p.ID, Name: p.Name})
	}
	for _, g := range goods {
		items = append(items, Match{Kind: KindGood, ID: g.ID, Name: g.Name})
	}

	matches := fuzzy.FindFrom(query, items)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Match, 0, len(matches))
	for _, m := range matches {
		hit := items[m.Index]
		hit.Score = m.Score
		results = append(results, hit)
	}
	return results, nil
}
