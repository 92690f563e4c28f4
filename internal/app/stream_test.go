package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/knc219-a11y/pension-list/internal/model"
)

type streamClient struct {
	conn net.Conn
	rw   io.ReadWriter
}

func dialStream(t *testing.T, serverURL, location, token string) *streamClient {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http") +
		"/api/collections/" + url.PathEscape(location) + "/stream?token=" + url.QueryEscape(token)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, br, _, err := ws.Dial(ctx, u)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	client := &streamClient{conn: conn, rw: conn}
	if br != nil {
		client.rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
	}
	return client
}

func (c *streamClient) next(t *testing.T) snapshotFrame {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	payload, err := wsutil.ReadServerText(c.rw)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame snapshotFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func TestStreamPropagatesChangesBetweenClients(t *testing.T) {
	svc := newTestService(&fakeStore{})
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer srv.Close()

	tokenA := signIn(t, svc)
	tokenB := signIn(t, svc)

	created, err := svc.CreateItem(context.Background(), "team/pension_list_A1", model.NewItem{Text: "숯", Category: model.CategoryEtc})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	first := dialStream(t, srv.URL, "team/pension_list_A1", tokenA)
	second := dialStream(t, srv.URL, "team/pension_list_A1", tokenB)

	for _, c := range []*streamClient{first, second} {
		frame := c.next(t)
		if frame.Location != "team/pension_list_A1" || len(frame.Items) != 1 || frame.Items[0].Checked {
			t.Fatalf("unexpected initial frame %+v", frame)
		}
	}

	checked := true
	if _, err := svc.PatchItem(context.Background(), "team/pension_list_A1", created.ID, model.Patch{Checked: &checked}); err != nil {
		t.Fatalf("PatchItem() error = %v", err)
	}

	frame := second.next(t)
	if len(frame.Items) != 1 || !frame.Items[0].Checked {
		t.Fatalf("expected checked item on second client, got %+v", frame)
	}
}

func TestStreamRejectsMissingToken(t *testing.T) {
	srv := httptest.NewServer(NewHTTPServer(newTestService(&fakeStore{}), "*").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/collections/pension_list_A1/stream")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStreamAnswersPing(t *testing.T) {
	svc := newTestService(&fakeStore{})
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer srv.Close()

	c := dialStream(t, srv.URL, "pension_list_A1", signIn(t, svc))
	c.next(t)

	if err := wsutil.WriteClientMessage(c.conn, ws.OpPing, []byte("hi")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	header, err := ws.ReadHeader(c.rw)
	if err != nil {
		t.Fatalf("read pong header: %v", err)
	}
	if header.OpCode != ws.OpPong {
		t.Fatalf("expected pong, got opcode %v", header.OpCode)
	}
}
