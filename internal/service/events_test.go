package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
)

type fakeProvider struct {
	events    []core.Event
	lists     int
	lastCal   string
	deleted   []string
	listErr   error
	createdAt string
}

func (f *fakeProvider) ID() string   { return "fake" }
func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) ListRange(ctx context.Context, calendarID string, start, end time.Time) ([]core.Event, error) {
	f.lists++
	f.lastCal = calendarID
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]core.Event, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeProvider) Create(ctx context.Context, calendarID string, p core.EventPayload) (core.Event, error) {
	f.createdAt = calendarID
	return core.Event{ID: "new", Title: *p.Title, Start: *p.Start, End: *p.End, CalendarID: calendarID}, nil
}

func (f *fakeProvider) Update(ctx context.Context, calendarID, eventID string, p core.EventPayload) (core.Event, error) {
	for _, ev := range f.events {
		if ev.ID == eventID {
			return p.Apply(ev), nil
		}
	}
	return core.Event{}, core.ErrNotFound
}

func (f *fakeProvider) Delete(ctx context.Context, calendarID, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeProvider) Colors(ctx context.Context) (core.Palette, error) {
	return core.Palette{Event: map[string]core.Color{"1": {Background: "#a4bdfc"}}}, nil
}

type fakeCompletions map[string]bool

func (f fakeCompletions) CompletionMap(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if f[userID+"/"+id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f fakeCompletions) SetCompleted(ctx context.Context, userID, eventID string, completed bool) error {
	f[userID+"/"+eventID] = completed
	return nil
}

type fakeCache struct {
	entries     map[string][]core.Event
	invalidated int
}

func (c *fakeCache) key(user, cal string, start, end time.Time) string {
	return user + cal + start.String() + end.String()
}

func (c *fakeCache) Get(ctx context.Context, user, cal string, start, end time.Time) ([]core.Event, bool) {
	ev, ok := c.entries[c.key(user, cal, start, end)]
	return ev, ok
}

func (c *fakeCache) Put(ctx context.Context, user, cal string, start, end time.Time, events []core.Event) {
	c.entries[c.key(user, cal, start, end)] = events
}

func (c *fakeCache) Invalidate(ctx context.Context, user string) {
	c.invalidated++
	c.entries = map[string][]core.Event{}
}

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func sample() []core.Event {
	return []core.Event{
		{ID: "a", Title: "Standup", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
		{ID: "b", Title: "Review", Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour)},
	}
}

func TestListRangeMergesCompletion(t *testing.T) {
	ctx := context.Background()
	done := fakeCompletions{"u1/b": true, "u2/a": true}
	svc := New(&fakeProvider{events: sample()}, done, "u1", WithCalendar("primary"))

	events, err := svc.ListRange(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if events[0].Completed || !events[1].Completed {
		t.Fatalf("completion=%v/%v, want false/true", events[0].Completed, events[1].Completed)
	}

	if _, err := svc.ListRange(ctx, day, day.Add(-time.Hour)); !errors.Is(err, core.ErrInvalidPayload) {
		t.Fatalf("inverted range err=%v", err)
	}
}

func TestListRangeCache(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{events: sample()}
	cache := &fakeCache{entries: map[string][]core.Event{}}
	done := fakeCompletions{}
	svc := New(provider, done, "u1", WithCache(cache))

	for i := 0; i < 2; i++ {
		if _, err := svc.ListRange(ctx, day, day.Add(24*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	if provider.lists != 1 {
		t.Fatalf("provider lists=%d, want 1", provider.lists)
	}

	// Completion flags are never served stale from the cache.
	done["u1/a"] = true
	events, _ := svc.ListRange(ctx, day, day.Add(24*time.Hour))
	if !events[0].Completed {
		t.Fatal("cached listing missed a fresh completion flag")
	}

	title := "Lunch"
	start, end := day.Add(12*time.Hour), day.Add(13*time.Hour)
	if _, err := svc.Create(ctx, core.EventPayload{Title: &title, Start: &start, End: &end}); err != nil {
		t.Fatal(err)
	}
	if cache.invalidated != 1 {
		t.Fatalf("invalidated=%d, want 1", cache.invalidated)
	}
	svc.ListRange(ctx, day, day.Add(24*time.Hour))
	if provider.lists != 2 {
		t.Fatalf("provider lists=%d, want 2 after a write", provider.lists)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc := New(provider, fakeCompletions{}, "u1")

	blank := "  "
	start, end := day, day.Add(time.Hour)
	if _, err := svc.Create(ctx, core.EventPayload{Title: &blank, Start: &start, End: &end}); !errors.Is(err, core.ErrInvalidPayload) {
		t.Fatalf("blank title err=%v", err)
	}
	title := "Gym"
	if _, err := svc.Create(ctx, core.EventPayload{Title: &title, Start: &start}); !errors.Is(err, core.ErrInvalidPayload) {
		t.Fatalf("missing end err=%v", err)
	}

	cal := "work"
	if _, err := svc.Create(ctx, core.EventPayload{Title: &title, Start: &start, End: &end, CalendarID: &cal}); err != nil {
		t.Fatal(err)
	}
	if provider.createdAt != "work" {
		t.Fatalf("calendar=%q, want work", provider.createdAt)
	}
}

func TestUpdateAndToggle(t *testing.T) {
	ctx := context.Background()
	done := fakeCompletions{}
	svc := New(&fakeProvider{events: sample()}, done, "u1")

	ev, err := svc.ToggleComplete(ctx, "a")
	if err != nil || ev == nil || !ev.Completed {
		t.Fatalf("toggle=%+v err=%v", ev, err)
	}
	ev, _ = svc.ToggleComplete(ctx, "a")
	if ev.Completed {
		t.Fatal("second toggle did not clear the flag")
	}
	svc.ToggleComplete(ctx, "a")

	start, end := day.Add(11*time.Hour), day.Add(12*time.Hour)
	updated, err := svc.Update(ctx, "a", core.TimePayload(start, end))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Start.Equal(start) || !updated.Completed || updated.Title != "Standup" {
		t.Fatalf("updated=%+v", updated)
	}

	if _, err := svc.Update(ctx, "zzz", core.TimePayload(start, end)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown update err=%v", err)
	}
}

func TestProviderErrorsPropagate(t *testing.T) {
	svc := New(&fakeProvider{listErr: core.ErrUnauthorized}, fakeCompletions{}, "u1")
	if _, err := svc.ListRange(context.Background(), day, day.Add(time.Hour)); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("err=%v, want unauthorized", err)
	}
}
