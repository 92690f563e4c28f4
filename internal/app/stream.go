package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/knc219-a11y/pension-list/internal/model"
)

// snapshotFrame is the body of GET .../items and of every stream message.
type snapshotFrame struct {
	Location string       `json:"location"`
	Items    []model.Item `json:"items"`
}

// streamConn serializes writes: snapshots come from the watch loop while
// pong and close replies come from the read loop.
type streamConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *streamConn) writeText(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return wsutil.WriteServerText(c.conn, payload)
}

func (c *streamConn) control(h ws.Header, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.ControlFrameHandler(c.conn, ws.StateServerSide)(h, r)
}

// readLoop answers control frames and discards client data until the peer
// goes away.
func (c *streamConn) readLoop() error {
	rd := &wsutil.Reader{
		Source:         c.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: c.control,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return err
		}
		if hdr.OpCode.IsControl() {
			if err := c.control(hdr, rd); err != nil {
				return err
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return err
		}
	}
}

func (s *HTTPServer) handleStream(w http.ResponseWriter, r *http.Request, location string) {
	if err := validateLocation(location); err != nil {
		writeMappedError(w, err)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("stream: upgrade %s: %v", location, err)
		return
	}
	defer conn.Close()
	// Clear the deadlines net/http armed for the original request.
	_ = conn.SetDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sc := &streamConn{conn: conn}
	go func() {
		defer cancel()
		_ = sc.readLoop()
	}()

	err = s.service.Watch(ctx, location, func(items []model.Item) error {
		payload, err := json.Marshal(snapshotFrame{Location: location, Items: items})
		if err != nil {
			return err
		}
		return sc.writeText(payload)
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("stream: watch %s: %v", location, err)
		_, _, message, _ := mapError(err)
		sc.mu.Lock()
		_ = ws.WriteFrame(conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusInternalServerError, message)))
		sc.mu.Unlock()
	}
}
