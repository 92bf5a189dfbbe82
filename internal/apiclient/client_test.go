package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "token-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestListRangeSendsSessionAndRange(t *testing.T) {
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 11, 23, 59, 59, 0, time.UTC)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if ck, err := r.Cookie(SessionCookie); err != nil || ck.Value != "token-1" {
			t.Errorf("cookie=%v err=%v", ck, err)
		}
		if got := r.URL.Query().Get("start"); got != "2026-03-09T00:00:00Z" {
			t.Errorf("start=%s", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"events": []core.Event{
			{ID: "b", Title: "later", Start: end.Add(-time.Hour), End: end},
			{ID: "a", Title: "earlier", Start: start, End: start.Add(time.Hour), Completed: true},
		}})
	})

	events, err := c.ListRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(events) != 2 || events[0].ID != "a" {
		t.Fatalf("events=%+v, want sorted by start", events)
	}
}

func TestUnauthorized(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	})
	_, err := c.ListRange(context.Background(), time.Now(), time.Now())
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("err=%v, want unauthorized", err)
	}
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout with dead session: %v", err)
	}
}

func TestErrorEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"title, start, end required"}`))
	})
	title := "x"
	_, err := c.Create(context.Background(), core.EventPayload{Title: &title})
	if err == nil || err.Error() != "POST /api/events: title, start, end required" {
		t.Fatalf("err=%v", err)
	}
}

func TestToggleUsesLastSeenState(t *testing.T) {
	var posted map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/events":
			json.NewEncoder(w).Encode(map[string]any{"events": []core.Event{{ID: "a", Completed: false}}})
		case "/api/event-status":
			json.NewDecoder(r.Body).Decode(&posted)
			w.Write([]byte(`{"ok":true}`))
		}
	})
	ctx := context.Background()
	if ev, err := c.ToggleComplete(ctx, "a"); ev != nil || err != nil {
		t.Fatalf("toggle before list=%+v err=%v", ev, err)
	}
	if _, err := c.ListRange(ctx, time.Now(), time.Now()); err != nil {
		t.Fatal(err)
	}
	ev, err := c.ToggleComplete(ctx, "a")
	if err != nil || ev == nil || !ev.Completed {
		t.Fatalf("toggle=%+v err=%v", ev, err)
	}
	if posted["eventId"] != "a" || posted["completed"] != true {
		t.Fatalf("posted=%v", posted)
	}
}

func TestToggleAfterCreate(t *testing.T) {
	posts := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/events":
			var p core.EventPayload
			json.NewDecoder(r.Body).Decode(&p)
			json.NewEncoder(w).Encode(map[string]any{"event": p.Apply(core.Event{ID: "new-1"})})
		case "/api/event-status":
			posts++
			w.Write([]byte(`{"ok":true}`))
		}
	})
	ctx := context.Background()
	title := "Lunch"
	created, err := c.Create(ctx, core.EventPayload{Title: &title})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ev, err := c.ToggleComplete(ctx, created.ID)
	if err != nil || ev == nil || !ev.Completed {
		t.Fatalf("toggle=%+v err=%v", ev, err)
	}
	if posts != 1 {
		t.Fatalf("status posts=%d, want 1", posts)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/events/ev 1":
			var p core.EventPayload
			json.NewDecoder(r.Body).Decode(&p)
			json.NewEncoder(w).Encode(map[string]any{"event": p.Apply(core.Event{ID: "ev 1"})})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()
	color := "3"
	ev, err := c.Update(ctx, "ev 1", core.EventPayload{ColorID: &color})
	if err != nil || ev.ColorID != "3" {
		t.Fatalf("update=%+v err=%v", ev, err)
	}
	if err := c.Delete(ctx, "gone"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete err=%v", err)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:4000", ""); err == nil {
		t.Fatal("relative url accepted")
	}
}

func TestSessionFile(t *testing.T) {
	path := t.TempDir() + "/nested/session"
	if _, err := LoadSession(path); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err=%v, want ErrNoSession", err)
	}
	if err := SaveSession(path, "abc"); err != nil {
		t.Fatal(err)
	}
	if tok, err := LoadSession(path); err != nil || tok != "abc" {
		t.Fatalf("tok=%q err=%v", tok, err)
	}
	if err := ClearSession(path); err != nil {
		t.Fatal(err)
	}
	if err := ClearSession(path); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
