package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/knc219-a11y/pension-list/internal/app"
	"github.com/knc219-a11y/pension-list/internal/catalog"
	"github.com/knc219-a11y/pension-list/internal/config"
	"github.com/knc219-a11y/pension-list/internal/feed"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/session"
	"github.com/knc219-a11y/pension-list/internal/store"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{JWTSecret: "client-test", IdentityTTL: time.Hour, CORSOrigin: "*"}
	svc := app.New(cfg, store.NewMemoryStore(), feed.NewLocal(), session.NewMemoryStore())
	srv := httptest.NewServer(app.NewHTTPServer(svc, "*").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func signedIn(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := New(baseURL, nil)
	sess, err := c.SignInAnonymous(context.Background())
	if err != nil {
		t.Fatalf("SignInAnonymous() error = %v", err)
	}
	c.SetToken(sess.Token)
	return c
}

func TestSignInAndDescribe(t *testing.T) {
	srv := newBackend(t)
	c := New(srv.URL, nil)
	ctx := context.Background()

	sess, err := c.SignInAnonymous(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymous() error = %v", err)
	}
	if sess.Token == "" || !strings.HasPrefix(sess.UserID, "guest_") {
		t.Fatalf("unexpected session %+v", sess)
	}

	described, err := c.DescribeSession(ctx, sess.Token)
	if err != nil {
		t.Fatalf("DescribeSession() error = %v", err)
	}
	if described.UserID != sess.UserID {
		t.Fatalf("expected %s, got %s", sess.UserID, described.UserID)
	}

	if _, err := c.DescribeSession(ctx, "bogus"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestItemRoundTrip(t *testing.T) {
	srv := newBackend(t)
	c := signedIn(t, srv.URL)
	ctx := context.Background()
	loc := "team/pension_list_A1"

	created, err := c.CreateItem(ctx, loc, model.NewItem{Text: "라면", Category: model.CategoryEtc, Created: 1})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	checked := true
	if _, err := c.PatchItem(ctx, loc, created.ID, model.Patch{Checked: &checked}); err != nil {
		t.Fatalf("PatchItem() error = %v", err)
	}

	items, err := c.ListItems(ctx, loc)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 || !items[0].Checked {
		t.Fatalf("unexpected items %+v", items)
	}

	if err := c.DeleteItem(ctx, loc, created.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	items, _ = c.ListItems(ctx, loc)
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %+v", items)
	}
}

func TestAPIErrorsAreDecoded(t *testing.T) {
	srv := newBackend(t)
	c := signedIn(t, srv.URL)

	_, err := c.CreateItem(context.Background(), "pension_list_A1", model.NewItem{Text: "x", Category: "fuel"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	anon := New(srv.URL, nil)
	if _, err := anon.ListItems(context.Background(), "pension_list_A1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBatchSearchAndExport(t *testing.T) {
	srv := newBackend(t)
	c := signedIn(t, srv.URL)
	ctx := context.Background()

	created, err := c.CommitBatch(ctx, "pension_list_A1", model.Batch{Creates: catalog.Items(1)})
	if err != nil {
		t.Fatalf("CommitBatch() error = %v", err)
	}
	if len(created) != catalog.Len() {
		t.Fatalf("expected %d created, got %d", catalog.Len(), len(created))
	}

	resp, err := c.Search(ctx, "pension_list_A1", "버섯", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Text != "버섯" {
		t.Fatalf("unexpected search response %+v", resp)
	}

	exported, err := c.Export(ctx, "pension_list_A1", "html", model.Filter(model.CategoryVeg), "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if exported.Filename != "A1.html" {
		t.Fatalf("unexpected filename %q", exported.Filename)
	}
	body := string(exported.Data)
	if !strings.Contains(body, "버섯") || strings.Contains(body, "라면") {
		t.Fatal("export did not apply the veg filter")
	}
}

func TestWatchPropagatesBetweenClients(t *testing.T) {
	srv := newBackend(t)
	first := signedIn(t, srv.URL)
	second := signedIn(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item, err := first.CreateItem(ctx, "pension_list_A1", model.NewItem{Text: "숯", Category: model.CategoryEtc})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	snapshots := make(chan []model.Item, 8)
	done := make(chan error, 1)
	go func() {
		done <- second.Watch(ctx, "pension_list_A1", func(items []model.Item) { snapshots <- items })
	}()

	initial := receive(t, snapshots)
	if len(initial) != 1 || initial[0].Checked {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	checked := true
	if _, err := first.PatchItem(ctx, "pension_list_A1", item.ID, model.Patch{Checked: &checked}); err != nil {
		t.Fatalf("PatchItem() error = %v", err)
	}
	next := receive(t, snapshots)
	if len(next) != 1 || !next[0].Checked {
		t.Fatalf("expected checked item, got %+v", next)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() after cancel = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchRejectsMissingToken(t *testing.T) {
	srv := newBackend(t)
	err := New(srv.URL, nil).Watch(context.Background(), "pension_list_A1", func([]model.Item) {})
	if err == nil {
		t.Fatal("expected dial error without token")
	}
}

func TestCollectionPathEscapesLocation(t *testing.T) {
	got := collectionPath("team/pension_list_A 1", "items", "x")
	want := "/api/collections/team%2Fpension_list_A%201/items/x"
	if got != want {
		t.Fatalf("collectionPath() = %q, want %q", got, want)
	}
}

func TestStreamURLScheme(t *testing.T) {
	for base, want := range map[string]string{
		"http://localhost:8787":   "ws://localhost:8787/api/collections/pension_list_A1/stream",
		"https://pension.example": "wss://pension.example/api/collections/pension_list_A1/stream",
	} {
		if got := New(base, nil).streamURL("pension_list_A1"); got != want {
			t.Errorf("streamURL(%s) = %q, want %q", base, got, want)
		}
	}
}

func receive(t *testing.T, ch <-chan []model.Item) []model.Item {
	t.Helper()
	select {
	case items := <-ch:
		return items
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
