package search

import (
	"log"

	"github.com/knc219-a11y/pension-list/internal/model"
)

type indexer interface {
	Searcher
	IndexItems(records []ItemRecord) error
	DeleteItems(ids []string) error
}

// Service tries the index first and falls back to the store.
type Service struct {
	index    indexer
	fallback Searcher
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, fallback Searcher) *Service {
	s := &Service{fallback: fallback}
	if meili != nil {
		s.index = meili
	}
	return s
}

func (s *Service) Search(q Query) Response {
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to store: %v", err)
	}

	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: store search error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexItems pushes items to the index (fire-and-forget).
func (s *Service) IndexItems(collection string, items []model.Item) {
	if s.index == nil || !s.index.Healthy() || len(items) == 0 {
		return
	}
	records := make([]ItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, RecordFor(collection, item))
	}
	go func() {
		if err := s.index.IndexItems(records); err != nil {
			log.Printf("search: index %d items in %s: %v", len(records), collection, err)
		}
	}()
}

// DeleteItems removes ids from the index (fire-and-forget).
func (s *Service) DeleteItems(ids []string) {
	if s.index == nil || !s.index.Healthy() || len(ids) == 0 {
		return
	}
	go func() {
		if err := s.index.DeleteItems(ids); err != nil {
			log.Printf("search: delete %d items: %v", len(ids), err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
