package core

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrUnauthorized means the session is gone; callers must force a re-login.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for unknown event ids.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidPayload is returned when a create lacks title, start or end.
	ErrInvalidPayload = errors.New("invalid payload")
)

// EventStore is the collaborator that owns events. Implemented by the HTTP
// client (talking to the backend), the in-memory store and, on the backend,
// by the provider adapters.
type EventStore interface {
	// ListRange returns events overlapping [start, end], sorted by start.
	ListRange(ctx context.Context, start, end time.Time) ([]Event, error)
	Create(ctx context.Context, payload EventPayload) (Event, error)
	// Update applies a partial payload.
	Update(ctx context.Context, eventID string, payload EventPayload) (Event, error)
	// ToggleComplete flips the completion flag. A nil event means the id is unknown.
	ToggleComplete(ctx context.Context, eventID string) (*Event, error)
	Delete(ctx context.Context, eventID string) error
	Colors(ctx context.Context) (Palette, error)
}

// Provider is a calendar source used by the backend (Google, Outlook).
// Completion flags are not part of the provider; the backend merges them in.
type Provider interface {
	// ID returns the unique identifier from the config (e.g. "google")
	ID() string
	// Name returns a human-readable label (e.g. "Google Calendar")
	Name() string
	ListRange(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error)
	Create(ctx context.Context, calendarID string, payload EventPayload) (Event, error)
	Update(ctx context.Context, calendarID, eventID string, payload EventPayload) (Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
	Colors(ctx context.Context) (Palette, error)
}

// CompletionStore persists the per-user completed flag.
type CompletionStore interface {
	CompletionMap(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error)
	SetCompleted(ctx context.Context, userID, eventID string, completed bool) error
}

// Overlaps reports whether e intersects [start, end] (inclusive).
func Overlaps(e Event, start, end time.Time) bool {
	return !e.End.Before(start) && !e.Start.After(end)
}

// SortByStart orders events by start time, keeping ties stable.
func SortByStart(events []Event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Start.Before(events[j-1].Start); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
