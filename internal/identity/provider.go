// Package identity resolves who the client is to the backend: a pre-issued
// token from the environment or the credentials file, or a fresh anonymous
// identity.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/knc219-a11y/pension-list/internal/client"
)

// Identity is the signed-in principal.
type Identity struct {
	UID    string
	Token  string
	Kind   string
	Source string // "env" | "file" | "anonymous"
}

// Backend is the part of the client the provider needs.
type Backend interface {
	SignInAnonymous(ctx context.Context) (client.Session, error)
	DescribeSession(ctx context.Context, token string) (client.Session, error)
}

type Options struct {
	// Token is a pre-issued token, usually PENSION_TOKEN. It wins over the
	// credentials file.
	Token string
	// CredentialsPath is where anonymous identities are remembered.
	CredentialsPath string
}

type Provider struct {
	backend Backend
	opts    Options
	logger  *log.Logger

	mu        sync.Mutex
	current   *Identity
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	cb func(*Identity)
}

func NewProvider(backend Backend, opts Options, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Provider{
		backend: backend,
		opts:    opts,
		logger:  logger,
	}
}

// Current returns a copy of the identity, or nil before Start succeeds.
func (p *Provider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	id := *p.current
	return &id
}

// OnChange registers cb for identity changes and returns a function that
// removes it. Listeners run in registration order.
func (p *Provider) OnChange(cb func(*Identity)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, listener{id: id, cb: cb})
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Start resolves the identity once. On failure the error is logged and
// returned, and Current stays nil; there is no retry loop.
func (p *Provider) Start(ctx context.Context) error {
	id, err := p.resolve(ctx)
	if err != nil {
		p.logger.Printf("identity: %v", err)
		return err
	}
	p.set(id)
	return nil
}

func (p *Provider) resolve(ctx context.Context) (*Identity, error) {
	if token := stripBearer(p.opts.Token); token != "" {
		sess, err := p.backend.DescribeSession(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("token from environment rejected: %w", err)
		}
		return &Identity{UID: sess.UserID, Token: token, Kind: sess.Kind, Source: "env"}, nil
	}

	if p.opts.CredentialsPath != "" {
		creds, err := LoadCredentials(p.opts.CredentialsPath)
		if err != nil {
			p.logger.Printf("identity: ignoring credentials file: %v", err)
		}
		if creds != nil && creds.Token != "" {
			sess, err := p.backend.DescribeSession(ctx, creds.Token)
			if err == nil {
				return &Identity{UID: sess.UserID, Token: creds.Token, Kind: sess.Kind, Source: "file"}, nil
			}
			if !errors.Is(err, client.ErrUnauthorized) {
				return nil, fmt.Errorf("check stored token: %w", err)
			}
			p.logger.Printf("identity: stored token no longer valid, signing in again")
		}
	}

	sess, err := p.backend.SignInAnonymous(ctx)
	if err != nil {
		return nil, fmt.Errorf("anonymous sign-in: %w", err)
	}
	if p.opts.CredentialsPath != "" {
		expires := sess.ExpiresAt
		err := SaveCredentials(p.opts.CredentialsPath, Credentials{
			Token:     sess.Token,
			UserID:    sess.UserID,
			Source:    "anonymous",
			CreatedAt: time.Now().UTC(),
			ExpiresAt: &expires,
		})
		if err != nil {
			p.logger.Printf("identity: save credentials: %v", err)
		}
	}
	return &Identity{UID: sess.UserID, Token: sess.Token, Kind: sess.Kind, Source: "anonymous"}, nil
}

// Set replaces the identity and notifies listeners. nil signs out.
func (p *Provider) Set(id *Identity) {
	p.set(id)
}

func (p *Provider) set(id *Identity) {
	p.mu.Lock()
	if id != nil {
		copied := *id
		copied.Token = strings.TrimSpace(copied.Token)
		id = &copied
	}
	p.current = id
	listeners := make([]func(*Identity), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l.cb)
	}
	p.mu.Unlock()

	for _, cb := range listeners {
		if id == nil {
			cb(nil)
			continue
		}
		copied := *id
		cb(&copied)
	}
}
