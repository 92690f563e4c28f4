package export

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/knc219-a11y/pension-list/internal/catalog"
	"github.com/knc219-a11y/pension-list/internal/model"
)

// ItemSource defines the interface for data access
type ItemSource interface {
	ListItems(ctx context.Context, collection string) ([]model.Item, error)
}

// Archiver keeps a copy of an export and returns a download link for it.
type Archiver interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Service provides list export functionality
type Service struct {
	items     ItemSource
	archive   Archiver
	renderPDF func(ctx context.Context, html, title string) (*Result, error)
	now       func() time.Time
}

// NewService creates a new export service. archive may be nil.
func NewService(items ItemSource, archive Archiver) *Service {
	return &Service{
		items:     items,
		archive:   archive,
		renderPDF: exportPDF,
		now:       time.Now,
	}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if req.Format == "" {
		req.Format = FormatHTML
	}
	if req.Format != FormatHTML && req.Format != FormatPDF {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	items, err := s.items.ListItems(ctx, req.Collection)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if req.Filter != "" && req.Filter.Valid() {
		items = req.Filter.Apply(items)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = RoomFromCollection(req.Collection)
	}
	generatedAt := s.now()

	html, err := RenderListHTML(buildTemplateData(title, items, generatedAt))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var result *Result
	switch req.Format {
	case FormatPDF:
		result, err = s.renderPDF(ctx, html, title)
		if err != nil {
			return nil, err
		}
	default:
		result = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	}

	if s.archive != nil {
		key := path.Join(sanitizeFilename(title), generatedAt.UTC().Format("20060102T150405Z")+"-"+result.Filename)
		url, err := s.archive.Store(ctx, key, result.Data, result.MimeType)
		if err != nil {
			return nil, fmt.Errorf("archive export: %w", err)
		}
		result.URL = url
	}
	return result, nil
}

func buildTemplateData(title string, items []model.Item, generatedAt time.Time) TemplateData {
	checked, percent := model.Progress(items)
	data := TemplateData{
		Title:       title,
		GeneratedAt: generatedAt,
		Checked:     checked,
		Total:       len(items),
		Percent:     percent,
	}

	sorted := model.Sorted(items)
	for _, category := range model.Categories {
		group := TemplateGroup{}
		for _, item := range sorted {
			if item.Category == category {
				group.Items = append(group.Items, TemplateItem{Text: item.Text, Checked: item.Checked})
			}
		}
		if len(group.Items) == 0 {
			continue
		}
		p := catalog.PresentationFor(model.Filter(category))
		group.Label, group.Icon = p.Label, p.Icon
		data.Groups = append(data.Groups, group)
	}
	return data
}

// RoomFromCollection recovers the room code from a collection location.
func RoomFromCollection(collection string) string {
	name := path.Base(collection)
	if code, ok := strings.CutPrefix(name, "pension_list_"); ok && code != "" {
		return code
	}
	return name
}
