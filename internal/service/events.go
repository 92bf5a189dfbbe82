// Package service binds a calendar provider, the per-user completion flags
// and an optional range cache into a core.EventStore.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
)

// RangeCache memoises provider listings. Misses and failures are the same
// to the caller.
type RangeCache interface {
	Get(ctx context.Context, userID, calendarID string, start, end time.Time) ([]core.Event, bool)
	Put(ctx context.Context, userID, calendarID string, start, end time.Time, events []core.Event)
	Invalidate(ctx context.Context, userID string)
}

// Events is the EventStore of a single user.
type Events struct {
	provider    core.Provider
	completions core.CompletionStore
	cache       RangeCache
	userID      string
	calendarID  string
	log         *zap.Logger
}

type Option func(*Events)

func WithCache(c RangeCache) Option {
	return func(e *Events) { e.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Events) { e.log = l.Named("event_service") }
}

// WithCalendar selects the calendar used for listing and new events.
// Defaults to the provider's primary calendar.
func WithCalendar(id string) Option {
	return func(e *Events) { e.calendarID = id }
}

func New(provider core.Provider, completions core.CompletionStore, userID string, opts ...Option) *Events {
	e := &Events{
		provider:    provider,
		completions: completions,
		userID:      userID,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Events) ListRange(ctx context.Context, start, end time.Time) ([]core.Event, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range end before start", core.ErrInvalidPayload)
	}

	events, hit := e.cachedRange(ctx, start, end)
	if !hit {
		var err error
		events, err = e.provider.ListRange(ctx, e.calendarID, start, end)
		if err != nil {
			return nil, fmt.Errorf("list %s events: %w", e.provider.ID(), err)
		}
		if e.cache != nil {
			e.cache.Put(ctx, e.userID, e.calendarID, start, end, events)
		}
	}

	if err := e.mergeCompletions(ctx, events); err != nil {
		return nil, err
	}
	e.log.Debug("listed range",
		zap.String("user", e.userID),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("count", len(events)),
		zap.Bool("cached", hit),
	)
	return events, nil
}

func (e *Events) cachedRange(ctx context.Context, start, end time.Time) ([]core.Event, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(ctx, e.userID, e.calendarID, start, end)
}

func (e *Events) mergeCompletions(ctx context.Context, events []core.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	done, err := e.completions.CompletionMap(ctx, e.userID, ids)
	if err != nil {
		return fmt.Errorf("load completion flags: %w", err)
	}
	for i := range events {
		events[i].Completed = done[events[i].ID]
	}
	return nil
}

func (e *Events) Create(ctx context.Context, p core.EventPayload) (core.Event, error) {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" || p.Start == nil || p.End == nil {
		return core.Event{}, core.ErrInvalidPayload
	}
	calendarID := e.calendarID
	if p.CalendarID != nil && *p.CalendarID != "" {
		calendarID = *p.CalendarID
	}
	created, err := e.provider.Create(ctx, calendarID, p)
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}
	e.invalidate(ctx)
	e.log.Info("event created", zap.String("user", e.userID), zap.String("id", created.ID))
	return created, nil
}

func (e *Events) Update(ctx context.Context, eventID string, p core.EventPayload) (core.Event, error) {
	calendarID := e.calendarID
	if p.CalendarID != nil && *p.CalendarID != "" {
		calendarID = *p.CalendarID
	}
	updated, err := e.provider.Update(ctx, calendarID, eventID, p)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event %s: %w", eventID, err)
	}
	e.invalidate(ctx)

	events := []core.Event{updated}
	if err := e.mergeCompletions(ctx, events); err != nil {
		return core.Event{}, err
	}
	return events[0], nil
}

// ToggleComplete flips the stored flag. The provider is not consulted, so
// the returned event only carries the id and the new flag.
func (e *Events) ToggleComplete(ctx context.Context, eventID string) (*core.Event, error) {
	if eventID == "" {
		return nil, nil
	}
	done, err := e.completions.CompletionMap(ctx, e.userID, []string{eventID})
	if err != nil {
		return nil, fmt.Errorf("load completion flag: %w", err)
	}
	completed := !done[eventID]
	if err := e.completions.SetCompleted(ctx, e.userID, eventID, completed); err != nil {
		return nil, fmt.Errorf("store completion flag: %w", err)
	}
	return &core.Event{ID: eventID, Completed: completed}, nil
}

func (e *Events) Delete(ctx context.Context, eventID string) error {
	if err := e.provider.Delete(ctx, e.calendarID, eventID); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	e.invalidate(ctx)
	e.log.Info("event deleted", zap.String("user", e.userID), zap.String("id", eventID))
	return nil
}

func (e *Events) Colors(ctx context.Context) (core.Palette, error) {
	palette, err := e.provider.Colors(ctx)
	if err != nil {
		return core.Palette{}, fmt.Errorf("load colors: %w", err)
	}
	return palette, nil
}

func (e *Events) invalidate(ctx context.Context) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, e.userID)
	}
}
