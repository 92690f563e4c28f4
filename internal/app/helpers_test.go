package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/knc219-a11y/pension-list/internal/config"
	"github.com/knc219-a11y/pension-list/internal/feed"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/session"
	"github.com/knc219-a11y/pension-list/internal/store"
)

// fakeStore wraps the memory store so single methods can be overridden.
type fakeStore struct {
	*store.MemoryStore
	pingFn       func(context.Context) error
	listItemsFn  func(context.Context, string) ([]model.Item, error)
	applyBatchFn func(context.Context, string, model.Batch) ([]model.Item, error)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) ListItems(ctx context.Context, collection string) ([]model.Item, error) {
	if f.listItemsFn != nil {
		return f.listItemsFn(ctx, collection)
	}
	return f.MemoryStore.ListItems(ctx, collection)
}

func (f *fakeStore) ApplyBatch(ctx context.Context, collection string, batch model.Batch) ([]model.Item, error) {
	if f.applyBatchFn != nil {
		return f.applyBatchFn(ctx, collection, batch)
	}
	return f.MemoryStore.ApplyBatch(ctx, collection, batch)
}

func testConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", IdentityTTL: time.Hour, CORSOrigin: "*"}
}

func newTestService(fs *fakeStore) *Service {
	if fs.MemoryStore == nil {
		fs.MemoryStore = store.NewMemoryStore()
	}
	return New(testConfig(), fs, feed.NewLocal(), session.NewMemoryStore())
}

func signIn(t *testing.T, svc *Service) string {
	t.Helper()
	sess, err := svc.SignInAnonymous(context.Background())
	if err != nil {
		t.Fatalf("SignInAnonymous() error = %v", err)
	}
	return sess.Token
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
}
