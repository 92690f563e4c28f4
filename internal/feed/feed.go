// Package feed announces that a collection changed. Payloads carry no data;
// a subscriber re-reads the collection on each notification, so a burst of
// writes collapses into one pending signal.
package feed

import (
	"context"
	"sync"
)

// Notifier is implemented by Local and Redis.
type Notifier interface {
	Publish(ctx context.Context, collection string) error
	// Subscribe returns a channel that receives a value after each change.
	// The channel is closed once cancel is called or ctx ends.
	Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}

// signal does a non-blocking send into a one-slot channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

type localSub struct {
	ch chan struct{}
}

// Local fans out changes within one process.
type Local struct {
	mu   sync.Mutex
	subs map[string]map[*localSub]struct{}
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[*localSub]struct{})}
}

func (l *Local) Publish(_ context.Context, collection string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sub := range l.subs[collection] {
		signal(sub.ch)
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	sub := &localSub{ch: make(chan struct{}, 1)}

	l.mu.Lock()
	if l.subs[collection] == nil {
		l.subs[collection] = make(map[*localSub]struct{})
	}
	l.subs[collection][sub] = struct{}{}
	l.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs[collection], sub)
			if len(l.subs[collection]) == 0 {
				delete(l.subs, collection)
			}
			close(sub.ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return sub.ch, cancel, nil
}

func (l *Local) subscribers(collection string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[collection])
}
