// Package client talks to the pension-list sync backend over HTTP and
// WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/search"
)

// ErrUnauthorized is returned for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response decoded from the backend error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Session is an identity issued or described by the backend.
type Session struct {
	Token     string
	UserID    string
	Kind      string
	ExpiresAt time.Time
}

// ExportResult is a rendered export downloaded from the backend.
type ExportResult struct {
	Data     []byte
	Filename string
	MimeType string
	URL      string
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SignInAnonymous(ctx context.Context) (Session, error) {
	var body struct {
		Token     string `json:"token"`
		UserID    string `json:"userId"`
		Kind      string `json:"kind"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/session/anonymous", "", nil, &body); err != nil {
		return Session{}, err
	}
	return Session{
		Token:     body.Token,
		UserID:    body.UserID,
		Kind:      body.Kind,
		ExpiresAt: time.Unix(body.ExpiresAt, 0),
	}, nil
}

// DescribeSession asks the backend who token belongs to. An unknown or
// expired token yields ErrUnauthorized.
func (c *Client) DescribeSession(ctx context.Context, token string) (Session, error) {
	var body struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId"`
		Kind          string `json:"kind"`
		ExpiresAt     int64  `json:"expiresAt"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/session", token, nil, &body); err != nil {
		return Session{}, err
	}
	if !body.Authenticated {
		return Session{}, ErrUnauthorized
	}
	return Session{
		Token:     token,
		UserID:    body.UserID,
		Kind:      body.Kind,
		ExpiresAt: time.Unix(body.ExpiresAt, 0),
	}, nil
}

func (c *Client) ListItems(ctx context.Context, location string) ([]model.Item, error) {
	var frame snapshotFrame
	if err := c.doJSON(ctx, http.MethodGet, collectionPath(location, "items"), c.currentToken(), nil, &frame); err != nil {
		return nil, err
	}
	return frame.Items, nil
}

func (c *Client) CreateItem(ctx context.Context, location string, item model.NewItem) (model.Item, error) {
	var created model.Item
	err := c.doJSON(ctx, http.MethodPost, collectionPath(location, "items"), c.currentToken(), item, &created)
	return created, err
}

func (c *Client) PatchItem(ctx context.Context, location, id string, patch model.Patch) (model.Item, error) {
	var updated model.Item
	err := c.doJSON(ctx, http.MethodPatch, collectionPath(location, "items", id), c.currentToken(), patch, &updated)
	return updated, err
}

func (c *Client) DeleteItem(ctx context.Context, location, id string) error {
	return c.doJSON(ctx, http.MethodDelete, collectionPath(location, "items", id), c.currentToken(), nil, nil)
}

// CommitBatch applies deletes and creates atomically on the backend.
func (c *Client) CommitBatch(ctx context.Context, location string, batch model.Batch) ([]model.Item, error) {
	var body struct {
		Created []model.Item `json:"created"`
	}
	if err := c.doJSON(ctx, http.MethodPost, collectionPath(location, "batch"), c.currentToken(), batch, &body); err != nil {
		return nil, err
	}
	return body.Created, nil
}

func (c *Client) Search(ctx context.Context, location, query string, limit int) (search.Response, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp search.Response
	err := c.doJSON(ctx, http.MethodGet, collectionPath(location, "search")+"?"+params.Encode(), c.currentToken(), nil, &resp)
	return resp, err
}

// Export asks the backend to render the list. format is "html" or "pdf";
// an empty filter exports every category.
func (c *Client) Export(ctx context.Context, location, format string, filter model.Filter, title string) (*ExportResult, error) {
	payload := map[string]string{"format": format, "filter": string(filter), "title": title}
	resp, err := c.send(ctx, http.MethodPost, collectionPath(location, "export"), c.currentToken(), payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	result := &ExportResult{
		Data:     data,
		MimeType: resp.Header.Get("Content-Type"),
		URL:      resp.Header.Get("X-Export-URL"),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		result.Filename = params["filename"]
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	resp, err := c.send(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return nil, apiErr
}

type snapshotFrame struct {
	Location string       `json:"location"`
	Items    []model.Item `json:"items"`
}

// collectionPath escapes the location as a single segment so a namespaced
// location keeps its slash.
func collectionPath(location string, rest ...string) string {
	parts := []string{"/api/collections", url.PathEscape(location)}
	for _, r := range rest {
		parts = append(parts, url.PathEscape(r))
	}
	return strings.Join(parts, "/")
}
