package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/knc219-a11y/pension-list/internal/auth"
	"github.com/knc219-a11y/pension-list/internal/config"
	"github.com/knc219-a11y/pension-list/internal/export"
	"github.com/knc219-a11y/pension-list/internal/feed"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/search"
	"github.com/knc219-a11y/pension-list/internal/session"
	"github.com/knc219-a11y/pension-list/internal/util"
)

const (
	maxLocationBytes = 200
	maxSearchLimit   = 100
)

type Session struct {
	Token     string
	UserID    string
	Kind      string
	JTI       string
	ExpiresAt time.Time
}

// ItemStore is implemented by store.PostgresStore and store.MemoryStore.
type ItemStore interface {
	ListItems(ctx context.Context, collection string) ([]model.Item, error)
	InsertItem(ctx context.Context, collection string, item model.NewItem) (model.Item, error)
	PatchItem(ctx context.Context, collection, id string, patch model.Patch) (model.Item, error)
	DeleteItem(ctx context.Context, collection, id string) error
	ApplyBatch(ctx context.Context, collection string, batch model.Batch) ([]model.Item, error)
	SearchItems(ctx context.Context, collection, query string, limit int) ([]model.Item, error)
	Ping(ctx context.Context) error
}

// SessionStore is implemented by session.RedisStore and session.MemoryStore.
type SessionStore interface {
	SaveIdentity(ctx context.Context, tokenHash string, identity session.Identity, expiresAt time.Time) error
	LookupIdentity(ctx context.Context, tokenHash string) (session.Identity, error)
	RevokeIdentity(ctx context.Context, tokenHash string) error
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexItems(collection string, items []model.Item)
	DeleteItems(ids []string)
}

type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Service struct {
	cfg      config.Config
	store    ItemStore
	feed     feed.Notifier
	sessions SessionStore
	search   searchService
	exporter exporter
	now      func() time.Time
}

// New wires the service. Search falls back to the item store and exports
// are not archived until UseSearch and UseExporter say otherwise.
func New(cfg config.Config, items ItemStore, notifier feed.Notifier, sessions SessionStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    items,
		feed:     notifier,
		sessions: sessions,
		search:   search.NewService(nil, search.NewStoreSearch(items)),
		exporter: export.NewService(items, nil),
		now:      time.Now,
	}
}

func (s *Service) UseSearch(svc *search.Service) {
	s.search = svc
}

func (s *Service) UseExporter(svc *export.Service) {
	s.exporter = svc
}

// Ping checks the health of service dependencies.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignInAnonymous(ctx context.Context) (Session, error) {
	now := s.now()
	ttl := s.cfg.IdentityTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	expiresAt := now.Add(ttl)
	userID := util.NewID("guest")
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  userID,
		Kind: auth.KindAnonymous,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	identity := session.Identity{UID: userID, Kind: auth.KindAnonymous, CreatedAt: now.UTC()}
	if err := s.sessions.SaveIdentity(ctx, auth.HashToken(token), identity, expiresAt); err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    userID,
		Kind:      auth.KindAnonymous,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken accepts a token only while it is validly signed,
// unexpired and still registered.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	identity, err := s.sessions.LookupIdentity(ctx, auth.HashToken(token))
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if identity.UID != claims.Sub {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		Kind:      claims.Kind,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.sessions.RevokeIdentity(ctx, auth.HashToken(token))
}

func (s *Service) Snapshot(ctx context.Context, location string) ([]model.Item, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, location)
}

func (s *Service) CreateItem(ctx context.Context, location string, input model.NewItem) (model.Item, error) {
	if err := validateLocation(location); err != nil {
		return model.Item{}, err
	}
	input, err := s.normalizeNewItem(input)
	if err != nil {
		return model.Item{}, err
	}

	created, err := s.store.InsertItem(ctx, location, input)
	if err != nil {
		return model.Item{}, err
	}
	s.changed(ctx, location)
	s.search.IndexItems(location, []model.Item{created})
	return created, nil
}

func (s *Service) PatchItem(ctx context.Context, location, id string, patch model.Patch) (model.Item, error) {
	if err := validateLocation(location); err != nil {
		return model.Item{}, err
	}
	if strings.TrimSpace(id) == "" {
		return model.Item{}, invalid("item id is required")
	}
	if patch.Empty() {
		return model.Item{}, invalid("patch changes nothing")
	}
	if err := patch.Validate(); err != nil {
		return model.Item{}, validationError(err)
	}
	if patch.Text != nil {
		trimmed := strings.TrimSpace(*patch.Text)
		patch.Text = &trimmed
	}

	updated, err := s.store.PatchItem(ctx, location, id, patch)
	if err != nil {
		return model.Item{}, err
	}
	s.changed(ctx, location)
	s.search.IndexItems(location, []model.Item{updated})
	return updated, nil
}

// DeleteItem is idempotent: deleting a missing id still succeeds.
func (s *Service) DeleteItem(ctx context.Context, location, id string) error {
	if err := validateLocation(location); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, location, id); err != nil {
		return err
	}
	s.changed(ctx, location)
	s.search.DeleteItems([]string{id})
	return nil
}

// CommitBatch applies every delete and create atomically. Subscribers see
// either the old list or the new one, never a mix.
func (s *Service) CommitBatch(ctx context.Context, location string, batch model.Batch) ([]model.Item, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}
	if batch.Empty() {
		return nil, invalid("batch is empty")
	}
	if batch.Size() > model.MaxBatchWrites {
		return nil, invalid(fmt.Sprintf("batch exceeds %d writes", model.MaxBatchWrites))
	}
	creates := make([]model.NewItem, 0, len(batch.Creates))
	for i, input := range batch.Creates {
		normalized, err := s.normalizeNewItem(input)
		if err != nil {
			return nil, invalidBatchItem(i, err)
		}
		creates = append(creates, normalized)
	}
	batch.Creates = creates

	created, err := s.store.ApplyBatch(ctx, location, batch)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, location)
	s.search.DeleteItems(batch.Deletes)
	s.search.IndexItems(location, created)
	return created, nil
}

// Watch calls emit with the current snapshot and again after every change
// until ctx ends or emit fails. The feed subscription is taken before the
// first read so no write between the two is missed.
func (s *Service) Watch(ctx context.Context, location string, emit func([]model.Item) error) error {
	if err := validateLocation(location); err != nil {
		return err
	}

	changes, cancel, err := s.feed.Subscribe(ctx, location)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()

	for {
		items, err := s.store.ListItems(ctx, location)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := emit(items); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}
	}
}

func (s *Service) Search(ctx context.Context, location, query string, limit int) (search.Response, error) {
	if err := validateLocation(location); err != nil {
		return search.Response{}, err
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = 20
	}
	return s.search.Search(search.Query{Collection: location, Text: strings.TrimSpace(query), Limit: limit}), nil
}

func (s *Service) Export(ctx context.Context, location string, req export.Request) (*export.Result, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}
	if req.Filter != "" && !req.Filter.Valid() {
		return nil, invalid("unknown filter")
	}
	req.Collection = location
	return s.exporter.Export(ctx, req)
}

func (s *Service) normalizeNewItem(input model.NewItem) (model.NewItem, error) {
	input.Text = strings.TrimSpace(input.Text)
	if err := input.Validate(); err != nil {
		return model.NewItem{}, validationError(err)
	}
	if input.Created == 0 {
		input.Created = s.now().UnixMilli()
	}
	return input, nil
}

func (s *Service) changed(ctx context.Context, location string) {
	// The write is already committed; a failed publish is only logged.
	if err := s.feed.Publish(context.WithoutCancel(ctx), location); err != nil {
		log.Printf("feed: publish %s: %v", location, err)
	}
}

func validateLocation(location string) error {
	switch {
	case strings.TrimSpace(location) == "":
		return invalid("location is required")
	case len(location) > maxLocationBytes:
		return invalid("location is too long")
	case strings.Contains(location, ".."):
		return invalid("location must not contain ..")
	}
	return nil
}
