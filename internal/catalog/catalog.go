// Package catalog holds the starter list used to seed empty rooms and the
// presentation metadata for each category tab.
package catalog

import (
	"github.com/knc219-a11y/pension-list/internal/model"
)

// Entry is one starter item.
type Entry struct {
	Text     string
	Category model.Category
}

var defaults = []Entry{
	{Text: "삼겹살/목살", Category: model.CategoryMeat},
	{Text: "소시지", Category: model.CategoryMeat},
	{Text: "쌈장/고추장", Category: model.CategoryMeat},
	{Text: "상추/깻잎", Category: model.CategoryVeg},
	{Text: "마늘/고추", Category: model.CategoryVeg},
	{Text: "버섯", Category: model.CategoryVeg},
	{Text: "소주/맥주", Category: model.CategoryDrink},
	{Text: "생수 (2L)", Category: model.CategoryDrink},
	{Text: "라면", Category: model.CategorySnack},
	{Text: "햇반", Category: model.CategorySnack},
	{Text: "과자", Category: model.CategorySnack},
	{Text: "일회용 접시/컵", Category: model.CategoryEtc},
	{Text: "나무젓가락", Category: model.CategoryEtc},
	{Text: "휴지/물티슈", Category: model.CategoryEtc},
}

// Defaults returns a copy of the starter list in catalog order.
func Defaults() []Entry {
	out := make([]Entry, len(defaults))
	copy(out, defaults)
	return out
}

// Len is the number of starter items.
func Len() int { return len(defaults) }

// Items expands the catalog into create payloads. Each entry gets its own
// timestamp, nowMillis plus its index, so the created order matches the
// catalog order even when the clock has not advanced.
func Items(nowMillis int64) []model.NewItem {
	out := make([]model.NewItem, 0, len(defaults))
	for i, entry := range defaults {
		out = append(out, model.NewItem{
			Text:     entry.Text,
			Category: entry.Category,
			Checked:  false,
			Created:  nowMillis + int64(i),
		})
	}
	return out
}
