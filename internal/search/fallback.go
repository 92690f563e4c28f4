package search

import (
	"context"
	"strings"

	"github.com/knc219-a11y/pension-list/internal/model"
)

type itemSearcher interface {
	SearchItems(ctx context.Context, collection, query string, limit int) ([]model.Item, error)
}

// StoreSearch answers queries from the item store with a substring match.
type StoreSearch struct {
	items itemSearcher
}

func NewStoreSearch(items itemSearcher) *StoreSearch {
	return &StoreSearch{items: items}
}

// Healthy always returns true; if the store is down the whole API is down.
func (s *StoreSearch) Healthy() bool {
	return true
}

func (s *StoreSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	items, err := s.items.SearchItems(context.Background(), q.Collection, strings.TrimSpace(q.Text), q.Limit)
	if err != nil {
		return nil, 0, err
	}
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, resultFromItem(item))
	}
	return results, len(results), nil
}
