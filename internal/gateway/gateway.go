// Package gateway turns user actions into backend writes for the active
// room. It never touches the local item projection: the next snapshot is
// the truth.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/knc219-a11y/pension-list/internal/catalog"
	"github.com/knc219-a11y/pension-list/internal/location"
	"github.com/knc219-a11y/pension-list/internal/model"
)

var (
	ErrNotJoined = errors.New("not in a room")
	// ErrResetTooLarge means the room holds more items than one atomic
	// reset can replace.
	ErrResetTooLarge = errors.New("too many items to reset at once")
)

// Writer is the mutation half of the backend client.
type Writer interface {
	CreateItem(ctx context.Context, location string, item model.NewItem) (model.Item, error)
	PatchItem(ctx context.Context, location, id string, patch model.Patch) (model.Item, error)
	DeleteItem(ctx context.Context, location, id string) error
	CommitBatch(ctx context.Context, location string, batch model.Batch) ([]model.Item, error)
}

// RoomSource reports the active room code, "" when not joined.
type RoomSource func() string

type Gateway struct {
	backend  Writer
	resolver location.Resolver
	room     RoomSource
	logger   *log.Logger
	now      func() time.Time
}

func New(backend Writer, resolver location.Resolver, room RoomSource, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Gateway{backend: backend, resolver: resolver, room: room, logger: logger, now: time.Now}
}

func (g *Gateway) target() (string, error) {
	loc := g.resolver.Resolve(g.room())
	if loc == "" {
		return "", ErrNotJoined
	}
	return loc, nil
}

// AddItem files text under the filter's category, or etc under "all".
// Blank text fails with model.ErrEmptyText before any backend call.
func (g *Gateway) AddItem(ctx context.Context, text string, filter model.Filter) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ErrEmptyText
	}
	loc, err := g.target()
	if err != nil {
		return err
	}
	_, err = g.backend.CreateItem(ctx, loc, model.NewItem{
		Text:     text,
		Category: filter.Category(),
		Checked:  false,
		Created:  g.now().UnixMilli(),
	})
	return g.failed("add item", err)
}

// ToggleItem writes the opposite of current, the checked state the caller
// last saw.
func (g *Gateway) ToggleItem(ctx context.Context, id string, current bool) error {
	loc, err := g.target()
	if err != nil {
		return err
	}
	checked := !current
	_, err = g.backend.PatchItem(ctx, loc, id, model.Patch{Checked: &checked})
	return g.failed("toggle item", err)
}

func (g *Gateway) DeleteItem(ctx context.Context, id string) error {
	loc, err := g.target()
	if err != nil {
		return err
	}
	return g.failed("delete item", g.backend.DeleteItem(ctx, loc, id))
}

// ResetRoom replaces current with the starter list in one atomic batch.
func (g *Gateway) ResetRoom(ctx context.Context, current []model.Item) error {
	loc, err := g.target()
	if err != nil {
		return err
	}
	deletes := make([]string, 0, len(current))
	for _, it := range current {
		deletes = append(deletes, it.ID)
	}
	batch := model.Batch{
		Deletes: deletes,
		Creates: catalog.Items(g.now().UnixMilli()),
	}
	if batch.Size() > model.MaxBatchWrites {
		return g.failed("reset room", fmt.Errorf("%w: %d items, limit %d", ErrResetTooLarge, len(current), model.MaxBatchWrites-catalog.Len()))
	}
	_, err = g.backend.CommitBatch(ctx, loc, batch)
	return g.failed("reset room", err)
}

// SeedDefaults writes the starter list into location in one atomic batch.
// It takes the location explicitly so the syncer can seed the collection
// it is subscribed to.
func (g *Gateway) SeedDefaults(ctx context.Context, location string) error {
	if location == "" {
		return ErrNotJoined
	}
	_, err := g.backend.CommitBatch(ctx, location, model.Batch{Creates: catalog.Items(g.now().UnixMilli())})
	return g.failed("seed defaults", err)
}

func (g *Gateway) failed(op string, err error) error {
	if err == nil {
		return nil
	}
	g.logger.Printf("gateway: %s: %v", op, err)
	return fmt.Errorf("%s: %w", op, err)
}
