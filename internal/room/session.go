// Package room tracks which room the client has joined.
package room

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/knc219-a11y/pension-list/internal/localstate"
)

// Persister keeps the last joined room across restarts.
type Persister interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// State is a snapshot of the session. Generation increases on every
// successful Join so each join can be told apart, even a rejoin of the
// same code.
type State struct {
	RoomCode   string
	Joined     bool
	Generation uint64
}

// Active reports whether there is a room to sync.
func (s State) Active() bool {
	return s.Joined && s.RoomCode != ""
}

type Session struct {
	store  Persister
	logger *log.Logger

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewSession(store Persister, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{store: store, logger: logger, listeners: map[int]func(State){}}
}

// Join enters the room named by code. A blank code is ignored and Join
// returns false. A failed persist is logged and does not block the join.
func (s *Session) Join(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	s.mu.Lock()
	s.state = State{RoomCode: code, Joined: true, Generation: s.state.Generation + 1}
	st := s.state
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Set(localstate.LastRoomKey, code); err != nil {
			s.logger.Printf("room: remember %q: %v", code, err)
		}
	}
	s.notify(st)
	return true
}

// Leave exits the room and forgets it. The room's items are untouched.
func (s *Session) Leave() {
	s.mu.Lock()
	s.state = State{Generation: s.state.Generation}
	st := s.state
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(localstate.LastRoomKey); err != nil {
			s.logger.Printf("room: forget last room: %v", err)
		}
	}
	s.notify(st)
}

// Suggestion returns the remembered room while not joined, for pre-filling
// the join prompt. It never joins by itself.
func (s *Session) Suggestion() string {
	s.mu.Lock()
	joined := s.state.Joined
	s.mu.Unlock()
	if joined || s.store == nil {
		return ""
	}
	code, ok, err := s.store.Get(localstate.LastRoomKey)
	if err != nil {
		s.logger.Printf("room: read last room: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return code
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnChange registers cb for join and leave events and returns a function
// that removes it.
func (s *Session) OnChange(cb func(State)) func() {
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

func (s *Session) notify(st State) {
	s.mu.Lock()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, cb := range s.listeners {
		listeners = append(listeners, cb)
	}
	s.mu.Unlock()
	for _, cb := range listeners {
		cb(st)
	}
}

// ShareText is the message users paste into a group chat to invite others.
func ShareText(code string) string {
	return fmt.Sprintf("🏕️ 펜션 장보기 - 방 이름: [%s]", strings.TrimSpace(code))
}
