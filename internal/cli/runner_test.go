package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/knc219-a11y/pension-list/internal/app"
	"github.com/knc219-a11y/pension-list/internal/catalog"
	"github.com/knc219-a11y/pension-list/internal/client"
	"github.com/knc219-a11y/pension-list/internal/config"
	"github.com/knc219-a11y/pension-list/internal/feed"
	"github.com/knc219-a11y/pension-list/internal/location"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/session"
	"github.com/knc219-a11y/pension-list/internal/store"
)

type harness struct {
	env    Env
	out    *bytes.Buffer
	errOut *bytes.Buffer
	client *client.Client
	store  *store.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	items := store.NewMemoryStore()
	cfg := config.Config{JWTSecret: "cli-test", IdentityTTL: time.Hour, CORSOrigin: "*"}
	svc := app.New(cfg, items, feed.NewLocal(), session.NewMemoryStore())
	srv := httptest.NewServer(app.NewHTTPServer(svc, "*").Handler())
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, nil)
	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, client: c, store: items}
	h.env = Env{
		Backend:  c,
		Resolver: location.Resolver{},
		Authenticate: func(ctx context.Context) error {
			sess, err := c.SignInAnonymous(ctx)
			if err != nil {
				return err
			}
			c.SetToken(sess.Token)
			return nil
		},
		Out: h.out,
		Err: h.errOut,
	}
	return h
}

func (h *harness) run(args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	return Run(context.Background(), args, h.env)
}

func TestAddListCheckRemove(t *testing.T) {
	h := newHarness(t)

	if code := h.run("add", "A1", "라면"); code != 0 {
		t.Fatalf("add exit %d: %s", code, h.errOut)
	}
	if code := h.run("add", "A1", "-category", "veg", "깻잎"); code != 0 {
		t.Fatalf("add exit %d: %s", code, h.errOut)
	}

	items, _ := h.store.ListItems(context.Background(), "pension_list_A1")
	categories := map[string]model.Category{}
	for _, it := range items {
		categories[it.Text] = it.Category
	}
	if len(items) != 2 || categories["라면"] != model.CategoryEtc || categories["깻잎"] != model.CategoryVeg {
		t.Fatalf("unexpected stored items %+v", items)
	}
	first := model.Sorted(items)[0]

	if code := h.run("ls", "A1"); code != 0 {
		t.Fatalf("ls exit %d: %s", code, h.errOut)
	}
	if !strings.Contains(h.out.String(), "라면") || !strings.Contains(h.out.String(), "0 / 2") {
		t.Fatalf("unexpected ls output:\n%s", h.out)
	}

	if code := h.run("check", "A1", "1"); code != 0 {
		t.Fatalf("check exit %d: %s", code, h.errOut)
	}
	items, _ = h.store.ListItems(context.Background(), "pension_list_A1")
	for _, it := range items {
		if it.Checked != (it.ID == first.ID) {
			t.Fatalf("expected only %s checked, got %+v", first.Text, items)
		}
	}

	if code := h.run("rm", "A1", "-y", "2"); code != 0 {
		t.Fatalf("rm exit %d: %s", code, h.errOut)
	}
	items, _ = h.store.ListItems(context.Background(), "pension_list_A1")
	if len(items) != 1 {
		t.Fatalf("expected one item left, got %+v", items)
	}
}

func TestListFilter(t *testing.T) {
	h := newHarness(t)
	_, _ = h.store.ApplyBatch(context.Background(), "pension_list_A1", model.Batch{Creates: catalog.Items(1)})

	if code := h.run("ls", "A1", "-filter", "drink"); code != 0 {
		t.Fatalf("ls exit %d: %s", code, h.errOut)
	}
	out := h.out.String()
	if !strings.Contains(out, "소주/맥주") || strings.Contains(out, "라면") {
		t.Fatalf("filter not applied:\n%s", out)
	}

	if code := h.run("ls", "A1", "-filter", "fuel"); code != 2 {
		t.Fatalf("expected usage exit for unknown filter, got %d", code)
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"add", "A1"},
		{"check", "A1"},
		{"check", "A1", "two"},
		{"rm", "A1"},
		{"rm", "A1", "-y"},
		{"reset", "A1", "extra"},
		{"share"},
		{"nope"},
	} {
		if code := h.run(args...); code != 2 {
			t.Errorf("%v: expected exit 2, got %d", args, code)
		}
	}
}

func TestIndexOutOfRange(t *testing.T) {
	h := newHarness(t)
	if code := h.run("rm", "A1", "3"); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(h.errOut.String(), "index out of range") {
		t.Fatalf("unexpected stderr %q", h.errOut)
	}
}

func TestResetReplacesList(t *testing.T) {
	h := newHarness(t)
	_ = h.run("add", "A1", "숯")

	if code := h.run("reset", "A1", "-y"); code != 0 {
		t.Fatalf("reset exit %d: %s", code, h.errOut)
	}
	items, _ := h.store.ListItems(context.Background(), "pension_list_A1")
	if len(items) != catalog.Len() {
		t.Fatalf("expected %d items, got %d", catalog.Len(), len(items))
	}
	for _, it := range items {
		if it.Text == "숯" {
			t.Fatal("reset kept an old item")
		}
	}
}

func TestRemoveAsksFirst(t *testing.T) {
	h := newHarness(t)
	_ = h.run("add", "A1", "라면")

	tests := []struct {
		name   string
		answer string
		code   int
		left   int
	}{
		{name: "declined", answer: "n\n", code: 1, left: 1},
		{name: "no answer", answer: "", code: 1, left: 1},
		{name: "confirmed", answer: "y\n", code: 0, left: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.env.In = strings.NewReader(tt.answer)
			if code := h.run("rm", "A1", "1"); code != tt.code {
				t.Fatalf("rm exit %d, want %d: %s", code, tt.code, h.errOut)
			}
			if !strings.Contains(h.errOut.String(), "\"라면\" 정말 삭제할까요? [y/N]") {
				t.Fatalf("missing prompt in %q", h.errOut)
			}
			items, _ := h.store.ListItems(context.Background(), "pension_list_A1")
			if len(items) != tt.left {
				t.Fatalf("expected %d items left, got %+v", tt.left, items)
			}
		})
	}
}

func TestResetAsksFirst(t *testing.T) {
	h := newHarness(t)
	_ = h.run("add", "A1", "숯")

	h.env.In = strings.NewReader("no\n")
	if code := h.run("reset", "A1"); code != 1 {
		t.Fatalf("declined reset exit %d: %s", code, h.errOut)
	}
	if !strings.Contains(h.errOut.String(), "1개 항목을 지우고 초기화할까요?") || !strings.Contains(h.errOut.String(), "nothing changed") {
		t.Fatalf("unexpected stderr %q", h.errOut)
	}
	items, _ := h.store.ListItems(context.Background(), "pension_list_A1")
	if len(items) != 1 || items[0].Text != "숯" {
		t.Fatalf("declined reset changed the list: %+v", items)
	}

	h.env.In = strings.NewReader("Y\n")
	if code := h.run("reset", "A1"); code != 0 {
		t.Fatalf("confirmed reset exit %d: %s", code, h.errOut)
	}
	items, _ = h.store.ListItems(context.Background(), "pension_list_A1")
	if len(items) != catalog.Len() {
		t.Fatalf("expected %d items, got %d", catalog.Len(), len(items))
	}
}

func TestSearchAndShare(t *testing.T) {
	h := newHarness(t)
	_, _ = h.store.ApplyBatch(context.Background(), "pension_list_A1", model.Batch{Creates: catalog.Items(1)})

	if code := h.run("search", "A1", "물티슈"); code != 0 {
		t.Fatalf("search exit %d: %s", code, h.errOut)
	}
	if !strings.Contains(h.out.String(), "휴지/물티슈") {
		t.Fatalf("unexpected search output:\n%s", h.out)
	}

	if code := h.run("share", "A1"); code != 0 {
		t.Fatalf("share exit %d", code)
	}
	if got := strings.TrimSpace(h.out.String()); got != "🏕️ 펜션 장보기 - 방 이름: [A1]" {
		t.Fatalf("unexpected share text %q", got)
	}
}

func TestExportWritesFile(t *testing.T) {
	h := newHarness(t)
	_, _ = h.store.ApplyBatch(context.Background(), "pension_list_A1", model.Batch{Creates: catalog.Items(1)})
	path := filepath.Join(t.TempDir(), "list.html")

	if code := h.run("export", "A1", "-o", path); code != 0 {
		t.Fatalf("export exit %d: %s", code, h.errOut)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "삼겹살/목살") {
		t.Fatal("export missing items")
	}
}

func TestSignInFailureStopsCommand(t *testing.T) {
	h := newHarness(t)
	h.env.Authenticate = func(context.Context) error { return errors.New("backend down") }
	if code := h.run("ls", "A1"); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(h.errOut.String(), "backend down") {
		t.Fatalf("unexpected stderr %q", h.errOut)
	}
}

func TestNoArgsRunsInteractive(t *testing.T) {
	h := newHarness(t)
	called := false
	h.env.Interactive = func(context.Context) error { called = true; return nil }
	if code := h.run(); code != 0 || !called {
		t.Fatalf("expected interactive run, code=%d called=%v", code, called)
	}
}
