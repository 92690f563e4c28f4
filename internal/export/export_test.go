package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/knc219-a11y/pension-list/internal/model"
)

type fakeItems struct {
	items []model.Item
	err   error
	seen  string
}

func (f *fakeItems) ListItems(_ context.Context, collection string) ([]model.Item, error) {
	f.seen = collection
	return f.items, f.err
}

type fakeArchive struct {
	key, contentType string
	data             []byte
	err              error
}

func (f *fakeArchive) Store(_ context.Context, key string, data []byte, contentType string) (string, error) {
	f.key, f.data, f.contentType = key, data, contentType
	if f.err != nil {
		return "", f.err
	}
	return "https://files.example/" + key, nil
}

func sampleItems() []model.Item {
	return []model.Item{
		{ID: "1", Text: "삼겹살/목살", Category: model.CategoryMeat, Checked: true, Created: 1},
		{ID: "2", Text: "쌈채소", Category: model.CategoryVeg, Created: 2},
		{ID: "3", Text: "소주/맥주", Category: model.CategoryDrink, Created: 3},
		{ID: "4", Text: "<script>", Category: model.CategoryEtc, Created: 4},
	}
}

func fixedService(items *fakeItems, archive Archiver) *Service {
	s := NewService(items, archive)
	s.now = func() time.Time { return time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestExportHTMLGroupsByCategory(t *testing.T) {
	items := &fakeItems{items: sampleItems()}
	res, err := fixedService(items, nil).Export(context.Background(), Request{Collection: "team/pension_list_A1"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if items.seen != "team/pension_list_A1" {
		t.Fatalf("wrong collection read: %s", items.seen)
	}
	if res.Filename != "A1.html" || !strings.HasPrefix(res.MimeType, "text/html") {
		t.Fatalf("unexpected result meta %+v", res)
	}

	html := string(res.Data)
	meat := strings.Index(html, "고기/구이")
	veg := strings.Index(html, "채소/과일")
	etc := strings.Index(html, "기타/일회용")
	if meat < 0 || veg < 0 || etc < 0 || !(meat < veg && veg < etc) {
		t.Fatalf("expected category sections in catalog order, got %s", html)
	}
	if strings.Contains(html, "간식/라면") {
		t.Error("empty category should be omitted")
	}
	if !strings.Contains(html, "1 / 4 (25%)") {
		t.Error("progress line missing")
	}
	if strings.Contains(html, "<script>") {
		t.Error("item text must be escaped")
	}
}

func TestExportFilterLimitsItems(t *testing.T) {
	res, err := fixedService(&fakeItems{items: sampleItems()}, nil).Export(context.Background(), Request{
		Collection: "pension_list_A1",
		Filter:     model.Filter("drink"),
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	html := string(res.Data)
	if !strings.Contains(html, "소주/맥주") || strings.Contains(html, "쌈채소") {
		t.Fatalf("filter not applied: %s", html)
	}
}

func TestExportEmptyList(t *testing.T) {
	res, err := fixedService(&fakeItems{}, nil).Export(context.Background(), Request{Collection: "pension_list_B"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(string(res.Data), "목록이 비어있어요") {
		t.Fatal("expected empty state text")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := fixedService(&fakeItems{}, nil).Export(context.Background(), Request{Collection: "c", Format: "docx"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportPropagatesStoreError(t *testing.T) {
	_, err := fixedService(&fakeItems{err: errors.New("down")}, nil).Export(context.Background(), Request{Collection: "c"})
	if err == nil || !strings.Contains(err.Error(), "list items") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestExportPDFUsesRenderer(t *testing.T) {
	s := fixedService(&fakeItems{items: sampleItems()}, nil)
	var gotHTML, gotTitle string
	s.renderPDF = func(_ context.Context, html, title string) (*Result, error) {
		gotHTML, gotTitle = html, title
		return &Result{Data: []byte("%PDF"), Filename: sanitizeFilename(title) + ".pdf", MimeType: "application/pdf"}, nil
	}
	res, err := s.Export(context.Background(), Request{Collection: "pension_list_A1", Title: "우리 펜션", Format: FormatPDF})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if gotTitle != "우리 펜션" || !strings.Contains(gotHTML, "우리 펜션") {
		t.Fatalf("renderer got title %q", gotTitle)
	}
	if res.Filename != "우리-펜션.pdf" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
}

func TestExportPDFDependencyMissing(t *testing.T) {
	s := fixedService(&fakeItems{}, nil)
	s.renderPDF = func(context.Context, string, string) (*Result, error) {
		return nil, ErrPDFDependencyMissing
	}
	if _, err := s.Export(context.Background(), Request{Collection: "c", Format: FormatPDF}); !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestExportArchivesResult(t *testing.T) {
	archive := &fakeArchive{}
	res, err := fixedService(&fakeItems{items: sampleItems()}, archive).Export(context.Background(), Request{Collection: "pension_list_A1"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if archive.key != "A1/20260701T093000Z-A1.html" {
		t.Fatalf("unexpected archive key %q", archive.key)
	}
	if res.URL != "https://files.example/A1/20260701T093000Z-A1.html" {
		t.Fatalf("unexpected url %q", res.URL)
	}
	if string(archive.data) != string(res.Data) {
		t.Fatal("archived bytes differ from result")
	}
}

func TestExportArchiveFailure(t *testing.T) {
	archive := &fakeArchive{err: errors.New("bucket gone")}
	if _, err := fixedService(&fakeItems{}, archive).Export(context.Background(), Request{Collection: "c"}); err == nil {
		t.Fatal("expected archive error")
	}
}

func TestRoomFromCollection(t *testing.T) {
	tests := map[string]string{
		"pension_list_A1":        "A1",
		"tenant/pension_list_바다": "바다",
		"other":                  "other",
	}
	for in, want := range tests {
		if got := RoomFromCollection(in); got != want {
			t.Errorf("RoomFromCollection(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"강릉 펜션", "강릉-펜션"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "pension-list"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"한", "%ED%95%9C"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
