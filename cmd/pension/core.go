package main

import (
	"log"

	"github.com/knc219-a11y/pension-list/internal/client"
	"github.com/knc219-a11y/pension-list/internal/gateway"
	"github.com/knc219-a11y/pension-list/internal/identity"
	"github.com/knc219-a11y/pension-list/internal/itemsync"
	"github.com/knc219-a11y/pension-list/internal/location"
	"github.com/knc219-a11y/pension-list/internal/room"
)

// core is the client state behind the terminal UI: room session, mutation
// gateway and item syncer, following the provider's identity.
type core struct {
	session *room.Session
	gateway *gateway.Gateway
	syncer  *itemsync.Syncer
	unbind  []func()
}

// newCore wires the client state. The provider's token listener must already
// be registered so the client is authenticated before the syncer dials.
func newCore(state room.Persister, backend *client.Client, resolver location.Resolver, provider *identity.Provider, logger *log.Logger) *core {
	session := room.NewSession(state, logger)
	gw := gateway.New(backend, resolver, func() string { return session.State().RoomCode }, logger)
	syncer := itemsync.New(backend, gw, resolver, logger)

	c := &core{session: session, gateway: gw, syncer: syncer}
	c.unbind = append(c.unbind,
		provider.OnChange(syncer.SetIdentity),
		session.OnChange(syncer.SetRoom),
	)
	// Start may have finished before the listener was registered.
	syncer.SetIdentity(provider.Current())
	return c
}

func (c *core) Close() {
	for _, stop := range c.unbind {
		stop()
	}
	c.syncer.Close()
}
