package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/util"
)

// MemoryStore keeps collections in process memory. It serves local runs
// without Postgres and backs the service tests. A single lock makes every
// batch atomic to readers.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]model.Item
	newID       func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]model.Item),
		newID:       func() string { return util.NewID("") },
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) ListItems(_ context.Context, collection string) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordered(collection), nil
}

func (s *MemoryStore) InsertItem(_ context.Context, collection string, item model.NewItem) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(collection, item), nil
}

func (s *MemoryStore) PatchItem(_ context.Context, collection, id string, patch model.Patch) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.collections[collection]
	item, ok := items[id]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	item = patch.Apply(item)
	items[id] = item
	return item, nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) ApplyBatch(_ context.Context, collection string, batch model.Batch) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range batch.Deletes {
		delete(s.collections[collection], id)
	}
	created := make([]model.Item, 0, len(batch.Creates))
	for _, n := range batch.Creates {
		created = append(created, s.insert(collection, n))
	}
	return created, nil
}

func (s *MemoryStore) SearchItems(_ context.Context, collection, query string, limit int) ([]model.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(query)
	matches := make([]model.Item, 0)
	for _, item := range s.ordered(collection) {
		if strings.Contains(strings.ToLower(item.Text), needle) {
			matches = append(matches, item)
		}
	}
	model.Sort(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemoryStore) insert(collection string, n model.NewItem) model.Item {
	items, ok := s.collections[collection]
	if !ok {
		items = make(map[string]model.Item)
		s.collections[collection] = items
	}
	item := model.Item{
		ID:       s.newID(),
		Text:     n.Text,
		Category: n.Category,
		Checked:  n.Checked,
		Created:  n.Created,
	}
	items[item.ID] = item
	return item
}

// ordered returns the collection sorted by created then id, matching the
// Postgres snapshot order. Callers hold the lock.
func (s *MemoryStore) ordered(collection string) []model.Item {
	items := s.collections[collection]
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created != out[j].Created {
			return out[i].Created < out[j].Created
		}
		return out[i].ID < out[j].ID
	})
	return out
}
