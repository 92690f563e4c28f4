package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/knc219-a11y/pension-list/internal/model"
)

// Watch opens the live stream for location and calls onSnapshot with every
// full snapshot the backend sends. It blocks until ctx ends (returning nil)
// or the stream fails.
func (c *Client) Watch(ctx context.Context, location string, onSnapshot func([]model.Item)) error {
	header := http.Header{}
	if token := c.currentToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	dialer := ws.Dialer{Header: ws.HandshakeHeaderHTTP(header)}

	conn, br, _, err := dialer.Dial(ctx, c.streamURL(location))
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	var rw io.ReadWriter = conn
	if br != nil {
		rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
		defer ws.PutReader(br)
	}

	// Unblock the read below once the caller is done.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		payload, err := wsutil.ReadServerText(rw)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		var frame snapshotFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.logger.Printf("client: bad stream frame for %s: %v", location, err)
			continue
		}
		onSnapshot(frame.Items)
	}
}

func (c *Client) streamURL(location string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + collectionPath(location, "stream")
}
