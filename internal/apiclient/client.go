// Package apiclient talks to the gridcal backend over its JSON API and
// implements core.EventStore for the terminal UI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
)

// SessionCookie is the name of the backend session cookie.
const SessionCookie = "mc_session"

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	session string
	log     *zap.Logger

	mu        sync.Mutex
	completed map[string]bool
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a client for the backend at baseURL using the session token.
func New(baseURL, session string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: 15 * time.Second},
		session:   session,
		log:       zap.NewNop(),
		completed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.session})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return core.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, core.ErrNotFound)
	case resp.StatusCode >= 300:
		var e apiError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &out)
	return out.User, err
}

// Logout ends the session on the server.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	if errors.Is(err, core.ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) ListRange(ctx context.Context, start, end time.Time) ([]core.Event, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	var out struct {
		Events []core.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/events", q, nil, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	for _, e := range out.Events {
		c.completed[e.ID] = e.Completed
	}
	c.mu.Unlock()

	core.SortByStart(out.Events)
	return out.Events, nil
}

func (c *Client) Create(ctx context.Context, p core.EventPayload) (core.Event, error) {
	var out struct {
		Event core.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/events", nil, p, &out); err != nil {
		return out.Event, err
	}
	c.mu.Lock()
	c.completed[out.Event.ID] = out.Event.Completed
	c.mu.Unlock()
	return out.Event, nil
}

func (c *Client) Update(ctx context.Context, eventID string, p core.EventPayload) (core.Event, error) {
	var out struct {
		Event core.Event `json:"event"`
	}
	err := c.do(ctx, http.MethodPatch, "/api/events/"+eventID, nil, p, &out)
	if err == nil {
		c.mu.Lock()
		out.Event.Completed = c.completed[eventID]
		c.mu.Unlock()
	}
	return out.Event, err
}

func (c *Client) Delete(ctx context.Context, eventID string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/events/"+eventID, nil, nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.completed, eventID)
	c.mu.Unlock()
	return nil
}

// ToggleComplete flips the flag last seen for eventID. Events the client has
// never listed yield nil.
func (c *Client) ToggleComplete(ctx context.Context, eventID string) (*core.Event, error) {
	c.mu.Lock()
	current, ok := c.completed[eventID]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}

	body := map[string]any{"eventId": eventID, "completed": !current}
	if err := c.do(ctx, http.MethodPost, "/api/event-status", nil, body, nil); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.completed[eventID] = !current
	c.mu.Unlock()
	return &core.Event{ID: eventID, Completed: !current}, nil
}

func (c *Client) Colors(ctx context.Context) (core.Palette, error) {
	var out struct {
		Colors core.Palette `json:"colors"`
	}
	err := c.do(ctx, http.MethodGet, "/api/colors", nil, nil, &out)
	return out.Colors, err
}
