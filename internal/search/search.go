// Package search finds items in a collection by text. Meilisearch serves
// queries when it is configured and healthy; the item store answers otherwise.
package search

import "github.com/knc219-a11y/pension-list/internal/model"

// Result is a single search hit returned to the caller.
type Result struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Category model.Category `json:"category"`
	Checked  bool           `json:"checked"`
	Snippet  string         `json:"snippet"`
}

// Query describes a search request scoped to one collection.
type Query struct {
	Collection string
	Text       string
	Limit      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ItemRecord is the data we index for an item. Item ids are UUIDs, unique
// across collections, so they double as the index primary key.
type ItemRecord struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Checked    bool   `json:"checked"`
}

func RecordFor(collection string, item model.Item) ItemRecord {
	return ItemRecord{
		ID:         item.ID,
		Collection: collection,
		Text:       item.Text,
		Category:   string(item.Category),
		Checked:    item.Checked,
	}
}

func resultFromItem(item model.Item) Result {
	return Result{
		ID:       item.ID,
		Text:     item.Text,
		Category: item.Category,
		Checked:  item.Checked,
		Snippet:  item.Text,
	}
}
