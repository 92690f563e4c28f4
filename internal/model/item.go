// Package model holds the shopping list item and the small set of pure
// operations every other package agrees on: category validation, filtering
// and the snapshot sort order.
package model

import (
	"sort"
	"strings"
)

// Item is one entry of a room's shopping list.
type Item struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Checked  bool     `json:"checked"`
	Created  int64    `json:"created"` // unix millis, tie-break ordering only
}

// NewItem is the payload for creating an item. The store assigns the ID.
type NewItem struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Checked  bool     `json:"checked"`
	Created  int64    `json:"created"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Text     *string   `json:"text,omitempty"`
	Category *Category `json:"category,omitempty"`
	Checked  *bool     `json:"checked,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.Category == nil && p.Checked == nil
}

// Batch is applied all-or-nothing: every delete and every create, or none.
type Batch struct {
	Deletes []string  `json:"deletes,omitempty"`
	Creates []NewItem `json:"creates,omitempty"`
}

// MaxBatchWrites caps one batch. A reset deletes every item and recreates the
// catalog in one batch, so rooms above MaxBatchWrites minus the catalog size
// cannot be reset.
const MaxBatchWrites = 500

// Empty reports whether the batch has no operations.
func (b Batch) Empty() bool {
	return len(b.Deletes) == 0 && len(b.Creates) == 0
}

// Size counts the writes in the batch.
func (b Batch) Size() int {
	return len(b.Deletes) + len(b.Creates)
}

// Validate checks a create payload.
func (n NewItem) Validate() error {
	if strings.TrimSpace(n.Text) == "" {
		return ErrEmptyText
	}
	if !n.Category.Valid() {
		return ErrUnknownCategory
	}
	return nil
}

// Validate checks a patch payload.
func (p Patch) Validate() error {
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return ErrEmptyText
	}
	if p.Category != nil && !p.Category.Valid() {
		return ErrUnknownCategory
	}
	return nil
}

// Apply returns item with the patch applied.
func (p Patch) Apply(item Item) Item {
	if p.Text != nil {
		item.Text = *p.Text
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Checked != nil {
		item.Checked = *p.Checked
	}
	return item
}

// Sort orders items in place: unchecked before checked, then by created
// ascending. The sort is stable so equal keys keep their snapshot order.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Checked != items[j].Checked {
			return !items[i].Checked
		}
		return items[i].Created < items[j].Created
	})
}

// Sorted returns a sorted copy, leaving items untouched.
func Sorted(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	Sort(out)
	return out
}

// Progress returns the checked count and the completion percentage.
func Progress(items []Item) (checked int, percent float64) {
	if len(items) == 0 {
		return 0, 0
	}
	for _, it := range items {
		if it.Checked {
			checked++
		}
	}
	return checked, float64(checked) / float64(len(items)) * 100
}
