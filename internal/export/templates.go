package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var listTemplate = template.Must(
	template.New("list.html").Funcs(template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"percent": func(p float64) string {
			return fmt.Sprintf("%.0f%%", p)
		},
	}).ParseFS(templateFS, "templates/list.html"),
)

// TemplateData holds data for list template rendering
type TemplateData struct {
	Title       string
	GeneratedAt time.Time
	Checked     int
	Total       int
	Percent     float64
	Groups      []TemplateGroup
}

// TemplateGroup is one category section. Empty categories are omitted.
type TemplateGroup struct {
	Label string
	Icon  string
	Items []TemplateItem
}

type TemplateItem struct {
	Text    string
	Checked bool
}

// RenderListHTML renders the list template with provided data
func RenderListHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := listTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
