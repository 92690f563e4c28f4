package model

import "errors"

var (
	ErrEmptyText       = errors.New("item text is empty")
	ErrUnknownCategory = errors.New("unknown category")
)

// Category is the closed set of item categories.
type Category string

const (
	CategoryMeat  Category = "meat"
	CategoryVeg   Category = "veg"
	CategoryDrink Category = "drink"
	CategorySnack Category = "snack"
	CategoryEtc   Category = "etc"
)

// Categories lists every item category in display order.
var Categories = []Category{CategoryMeat, CategoryVeg, CategoryDrink, CategorySnack, CategoryEtc}

func (c Category) Valid() bool {
	switch c {
	case CategoryMeat, CategoryVeg, CategoryDrink, CategorySnack, CategoryEtc:
		return true
	default:
		return false
	}
}

// Filter is a category tab: any Category plus FilterAll.
type Filter string

const FilterAll Filter = "all"

// Filters lists every tab in display order.
var Filters = []Filter{
	FilterAll,
	Filter(CategoryMeat),
	Filter(CategoryVeg),
	Filter(CategoryDrink),
	Filter(CategorySnack),
	Filter(CategoryEtc),
}

func (f Filter) Valid() bool {
	return f == FilterAll || Category(f).Valid()
}

// Category returns the category new items get while this filter is active.
// Adding under "all" files the item under etc.
func (f Filter) Category() Category {
	if f == FilterAll || !Category(f).Valid() {
		return CategoryEtc
	}
	return Category(f)
}

// Apply returns the items visible under the filter, preserving order.
func (f Filter) Apply(items []Item) []Item {
	if f == FilterAll {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Category == Category(f) {
			out = append(out, it)
		}
	}
	return out
}
