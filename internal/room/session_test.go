package room

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/knc219-a11y/pension-list/internal/localstate"
)

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Set(string, string) error         { return errors.New("disk gone") }
func (failingStore) Delete(string) error              { return errors.New("disk gone") }

func TestJoinTrimsAndPersists(t *testing.T) {
	store := localstate.Open(filepath.Join(t.TempDir(), "state.json"))
	s := NewSession(store, nil)

	var seen []State
	s.OnChange(func(st State) { seen = append(seen, st) })

	if !s.Join("  A1 ") {
		t.Fatal("Join() returned false")
	}
	st := s.State()
	if st.RoomCode != "A1" || !st.Joined || st.Generation != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	if v, ok, _ := store.Get(localstate.LastRoomKey); !ok || v != "A1" {
		t.Fatalf("room not persisted: %q %v", v, ok)
	}
	if len(seen) != 1 || seen[0] != st {
		t.Fatalf("unexpected notifications %+v", seen)
	}
}

func TestJoinBlankIsNoop(t *testing.T) {
	s := NewSession(nil, nil)
	notified := false
	s.OnChange(func(State) { notified = true })

	for _, code := range []string{"", "   ", "\t\n"} {
		if s.Join(code) {
			t.Fatalf("Join(%q) returned true", code)
		}
	}
	if s.State() != (State{}) || notified {
		t.Fatalf("blank join changed state: %+v", s.State())
	}
}

func TestRejoinBumpsGeneration(t *testing.T) {
	s := NewSession(nil, nil)
	s.Join("A1")
	s.Leave()
	s.Join("A1")
	if got := s.State().Generation; got != 2 {
		t.Fatalf("expected generation 2, got %d", got)
	}
}

func TestLeaveClearsStateAndSuggestion(t *testing.T) {
	store := localstate.Open(filepath.Join(t.TempDir(), "state.json"))
	s := NewSession(store, nil)
	s.Join("A1")
	s.Leave()

	st := s.State()
	if st.Joined || st.RoomCode != "" || st.Active() {
		t.Fatalf("unexpected state after leave %+v", st)
	}
	if got := s.Suggestion(); got != "" {
		t.Fatalf("expected no suggestion after leave, got %q", got)
	}
}

func TestSuggestionOnlyWhileNotJoined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_ = localstate.Open(path).Set(localstate.LastRoomKey, "B2")

	s := NewSession(localstate.Open(path), nil)
	if got := s.Suggestion(); got != "B2" {
		t.Fatalf("expected suggestion B2, got %q", got)
	}
	if s.State().Joined {
		t.Fatal("suggestion must not auto-join")
	}
	s.Join("C3")
	if got := s.Suggestion(); got != "" {
		t.Fatalf("expected no suggestion while joined, got %q", got)
	}
}

func TestPersistFailureDoesNotBlockJoin(t *testing.T) {
	s := NewSession(failingStore{}, nil)
	if !s.Join("A1") || !s.State().Joined {
		t.Fatal("join should succeed despite persist failure")
	}
	s.Leave()
	if s.State().Joined {
		t.Fatal("leave should succeed despite persist failure")
	}
}

func TestShareText(t *testing.T) {
	if got, want := ShareText(" A1 "), "🏕️ 펜션 장보기 - 방 이름: [A1]"; got != want {
		t.Fatalf("ShareText() = %q, want %q", got, want)
	}
}
