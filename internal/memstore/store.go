// Package memstore is an offline event store. Events live in memory and are
// mirrored to a YAML file that expires after CacheTTL, after which the
// sample week is seeded again.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/theakshaypant/gridcal/internal/core"
)

// CacheTTL is how long the cache file stays valid after a write.
const CacheTTL = 12 * time.Hour

type cacheFile struct {
	ExpiresAt time.Time     `yaml:"expiresAt"`
	Events    []cachedEvent `yaml:"events"`
}

type cachedEvent struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Start       time.Time `yaml:"start"`
	End         time.Time `yaml:"end"`
	CalendarID  string    `yaml:"calendarId"`
	ColorID     string    `yaml:"colorId,omitempty"`
	Color       string    `yaml:"color,omitempty"`
	Completed   bool      `yaml:"completed"`
}

// Options configure a Store.
type Options struct {
	// Path of the cache file; empty keeps everything in memory.
	Path   string
	Now    func() time.Time
	Logger *zap.Logger
}

// Store implements core.EventStore.
type Store struct {
	mu     sync.Mutex
	events []core.Event
	path   string
	now    func() time.Time
	log    *zap.Logger
}

// Open loads the cache at opts.Path, seeding sample events when it is
// missing, unreadable or expired.
func Open(opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Store{path: opts.Path, now: opts.Now, log: opts.Logger}

	events, ok := s.load()
	if !ok {
		events = Seed(s.now())
		s.events = events
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.events = events
	return s, nil
}

func (s *Store) load() ([]core.Event, bool) {
	if s.path == "" {
		return nil, false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("read event cache", zap.String("path", s.path), zap.Error(err))
		}
		return nil, false
	}
	var f cacheFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		s.log.Warn("corrupt event cache, reseeding", zap.String("path", s.path), zap.Error(err))
		return nil, false
	}
	if f.ExpiresAt.IsZero() || s.now().After(f.ExpiresAt) {
		return nil, false
	}
	events := make([]core.Event, len(f.Events))
	for i, c := range f.Events {
		events[i] = core.Event(c)
	}
	return events, true
}

// save must be called with mu held (or before the store is shared).
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	f := cacheFile{ExpiresAt: s.now().Add(CacheTTL), Events: make([]cachedEvent, len(s.events))}
	for i, e := range s.events {
		f.Events[i] = cachedEvent(e)
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode event cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write event cache: %w", err)
	}
	return nil
}

// Clear removes the cache file.
func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove event cache: %w", err)
	}
	return nil
}

func (s *Store) ListRange(_ context.Context, start, end time.Time) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Event
	for _, e := range s.events {
		if core.Overlaps(e, start, end) {
			out = append(out, e)
		}
	}
	core.SortByStart(out)
	return out, nil
}

func (s *Store) Create(_ context.Context, p core.EventPayload) (core.Event, error) {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" || p.Start == nil || p.End == nil {
		return core.Event{}, core.ErrInvalidPayload
	}
	e := p.Apply(core.Event{ID: "local-" + uuid.NewString(), CalendarID: "local"})
	e.Color = resolveColor(e.ColorID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return e, s.save()
}

func (s *Store) Update(_ context.Context, eventID string, p core.EventPayload) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(eventID)
	if i < 0 {
		return core.Event{}, fmt.Errorf("update %s: %w", eventID, core.ErrNotFound)
	}
	e := p.Apply(s.events[i])
	if p.ColorID != nil {
		e.Color = resolveColor(e.ColorID)
	}
	s.events[i] = e
	return e, s.save()
}

func (s *Store) ToggleComplete(_ context.Context, eventID string) (*core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(eventID)
	if i < 0 {
		return nil, nil
	}
	s.events[i].Completed = !s.events[i].Completed
	e := s.events[i]
	return &e, s.save()
}

func (s *Store) Delete(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(eventID)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", eventID, core.ErrNotFound)
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return s.save()
}

func (s *Store) Colors(context.Context) (core.Palette, error) {
	return Palette(), nil
}

func (s *Store) indexOf(id string) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}
