// Package itemsync keeps a live, sorted projection of the joined room's
// items and seeds a brand new room with the starter list.
package itemsync

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/knc219-a11y/pension-list/internal/identity"
	"github.com/knc219-a11y/pension-list/internal/location"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/room"
)

// Watcher streams full snapshots of a location until ctx ends.
type Watcher interface {
	Watch(ctx context.Context, location string, onSnapshot func([]model.Item)) error
}

// Seeder writes the starter list into a location.
type Seeder interface {
	SeedDefaults(ctx context.Context, location string) error
}

// Syncer runs at most one subscription at a time. It is idle until it has
// an identity and an active room.
//
// Each join gets one chance to seed: the first snapshot after a join
// disarms the latch, and if that snapshot is empty the starter list is
// written instead of publishing it. Later empty snapshots in the same join
// are published as they are. Resubscribing for a new identity keeps the
// latch state.
type Syncer struct {
	backend  Watcher
	seeder   Seeder
	resolver location.Resolver
	logger   *log.Logger

	// lifecycle serializes restarts so teardown of one subscription
	// finishes before the next starts.
	lifecycle sync.Mutex

	mu          sync.Mutex
	identityKey string
	room        room.State
	location    string
	items       []model.Item
	loading     bool
	gen         uint64
	latchedJoin uint64
	cancel      context.CancelFunc
	done        chan struct{}
	closed      bool
	listeners   map[int]func()
	nextID      int
}

func New(backend Watcher, seeder Seeder, resolver location.Resolver, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Syncer{
		backend:   backend,
		seeder:    seeder,
		resolver:  resolver,
		logger:    logger,
		listeners: map[int]func(){},
	}
}

// SetIdentity updates the identity and resubscribes if it changed.
func (s *Syncer) SetIdentity(id *identity.Identity) {
	key := ""
	if id != nil {
		key = id.UID + "\x00" + id.Token
	}
	s.mu.Lock()
	changed := key != s.identityKey
	s.identityKey = key
	s.mu.Unlock()
	if changed {
		s.restart()
	}
}

// SetRoom updates the room and resubscribes if it changed.
func (s *Syncer) SetRoom(st room.State) {
	s.mu.Lock()
	changed := st != s.room
	s.room = st
	s.mu.Unlock()
	if changed {
		s.restart()
	}
}

// Close stops the subscription. The syncer stays idle afterwards.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.restart()
}

// Items returns a copy of the sorted projection.
func (s *Syncer) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Syncer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Location is the collection currently subscribed to, "" when idle.
func (s *Syncer) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// OnChange registers cb for projection and loading changes and returns a
// function that removes it. Callbacks run on the syncer's goroutines.
func (s *Syncer) OnChange(cb func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Syncer) restart() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	prevCancel, prevDone := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.gen++
	gen := s.gen
	loc := ""
	if !s.closed && s.identityKey != "" && s.room.Active() {
		loc = s.resolver.Resolve(s.room.RoomCode)
	}
	joinGen := s.room.Generation
	if loc != s.location {
		s.items = nil
	}
	s.location = loc
	s.loading = loc != ""
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	if loc != "" {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s.mu.Lock()
		s.cancel, s.done = cancel, done
		s.mu.Unlock()
		go s.run(ctx, gen, joinGen, loc, done)
	}
	s.notify()
}

func (s *Syncer) run(ctx context.Context, gen, joinGen uint64, loc string, done chan struct{}) {
	defer close(done)
	err := s.backend.Watch(ctx, loc, func(items []model.Item) {
		s.handleSnapshot(ctx, gen, joinGen, loc, items)
	})
	if err == nil || ctx.Err() != nil {
		return
	}
	s.logger.Printf("itemsync: subscription to %s failed: %v", loc, err)
	s.mu.Lock()
	current := s.gen == gen
	if current {
		s.loading = false
	}
	s.mu.Unlock()
	if current {
		s.notify()
	}
}

func (s *Syncer) handleSnapshot(ctx context.Context, gen, joinGen uint64, loc string, items []model.Item) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	armed := s.latchedJoin != joinGen
	s.latchedJoin = joinGen
	seed := armed && len(items) == 0
	if !seed {
		s.items = model.Sorted(items)
	}
	s.mu.Unlock()
	s.notify()

	if seed {
		if err := s.seeder.SeedDefaults(ctx, loc); err != nil {
			s.logger.Printf("itemsync: seed %s: %v", loc, err)
		}
	}
}

func (s *Syncer) notify() {
	s.mu.Lock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, cb := range s.listeners {
		listeners = append(listeners, cb)
	}
	s.mu.Unlock()
	for _, cb := range listeners {
		cb()
	}
}
