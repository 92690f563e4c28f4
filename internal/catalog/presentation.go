package catalog

import "github.com/knc219-a11y/pension-list/internal/model"

// Presentation is how a category tab is labelled.
type Presentation struct {
	Label string
	Icon  string
}

// PresentationFor returns the tab label and icon for a filter. The switch is
// exhaustive over model.Filters; unknown values fall back to the etc tab.
func PresentationFor(f model.Filter) Presentation {
	switch f {
	case model.FilterAll:
		return Presentation{Label: "전체", Icon: "📋"}
	case model.Filter(model.CategoryMeat):
		return Presentation{Label: "고기/구이", Icon: "🍖"}
	case model.Filter(model.CategoryVeg):
		return Presentation{Label: "채소/과일", Icon: "🥕"}
	case model.Filter(model.CategoryDrink):
		return Presentation{Label: "술/음료", Icon: "🍺"}
	case model.Filter(model.CategorySnack):
		return Presentation{Label: "간식/라면", Icon: "🍪"}
	case model.Filter(model.CategoryEtc):
		return Presentation{Label: "기타/일회용", Icon: "📦"}
	default:
		return Presentation{Label: "기타/일회용", Icon: "📦"}
	}
}
