package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// UntitledEvent is shown for events without a summary.
const UntitledEvent = "(No title)"

// Scopes requested for calendar access. Events are read and written.
var Scopes = []string{calendar.CalendarReadonlyScope, calendar.CalendarEventsScope}

type GoogleAdapter struct {
	id        string
	name      string
	client    *http.Client
	service   *calendar.Service
	config    *oauth2.Config
	credsFile string
	tokenFile string
	calendars map[string]string
}

func NewGoogleAdapter(id, name, credsFile, tokenFile string) *GoogleAdapter {
	return &GoogleAdapter{
		id:        id,
		name:      name,
		credsFile: credsFile,
		tokenFile: tokenFile,
		calendars: make(map[string]string),
	}
}

// NewWithClient builds an adapter around an already authorised client, as
// the backend does for each signed-in user.
func NewWithClient(ctx context.Context, id, name string, client *http.Client) (*GoogleAdapter, error) {
	g := NewGoogleAdapter(id, name, "", "")
	g.client = client
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	g.service = svc
	return g, nil
}

func (g *GoogleAdapter) ID() string   { return g.id }
func (g *GoogleAdapter) Name() string { return g.name }

// Login loads credentials and token, then initializes the Calendar service.
// Run `gridcal auth` first to generate the token file.
func (g *GoogleAdapter) Login(ctx context.Context) error {
	b, err := os.ReadFile(g.credsFile)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}
	g.config = config

	tok, err := tokenFromFile(g.tokenFile)
	if err != nil {
		return fmt.Errorf("read token file (run gridcal auth first): %w", err)
	}

	g.client = g.config.Client(ctx, tok)
	g.service, err = calendar.NewService(ctx, option.WithHTTPClient(g.client))
	if err != nil {
		return err
	}

	// Fetch calendar list to get names for all calendars
	if err := g.loadCalendarList(ctx); err != nil {
		return fmt.Errorf("load calendar list: %w", err)
	}

	return nil
}

// loadCalendarList fetches all calendars the user has access to.
func (g *GoogleAdapter) loadCalendarList(ctx context.Context) error {
	calList, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}

	for _, cal := range calList.Items {
		g.calendars[cal.Id] = cal.Summary
	}
	return nil
}

// Calendars returns a list of available calendars (ID -> Name).
func (g *GoogleAdapter) Calendars() map[string]string {
	return g.calendars
}

// tokenFromFile reads an OAuth token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// ListRange returns the single (expanded) events of calendarID that overlap
// [start, end], following every result page.
func (g *GoogleAdapter) ListRange(ctx context.Context, calendarID string, start, end time.Time) ([]core.Event, error) {
	calendarID = orPrimary(calendarID)
	var results []core.Event
	pageToken := ""

	for {
		req := g.service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			OrderBy("startTime").
			Context(ctx)

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		eventsResult, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("list events for calendar %s: %w", calendarID, mapError(err))
		}

		for _, item := range eventsResult.Items {
			event, ok := parseEvent(item, calendarID)
			if !ok {
				continue
			}
			results = append(results, event)
		}

		pageToken = eventsResult.NextPageToken
		if pageToken == "" {
			break
		}
	}

	core.SortByStart(results)
	return results, nil
}

func (g *GoogleAdapter) Create(ctx context.Context, calendarID string, p core.EventPayload) (core.Event, error) {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" || p.Start == nil || p.End == nil {
		return core.Event{}, core.ErrInvalidPayload
	}
	calendarID = orPrimary(calendarID)
	created, err := g.service.Events.Insert(calendarID, toGoogleEvent(p)).Context(ctx).Do()
	if err != nil {
		return core.Event{}, fmt.Errorf("insert event: %w", mapError(err))
	}
	event, ok := parseEvent(created, calendarID)
	if !ok {
		return core.Event{}, fmt.Errorf("insert event: provider returned an event without dates")
	}
	return event, nil
}

// Update patches only the fields present in p.
func (g *GoogleAdapter) Update(ctx context.Context, calendarID, eventID string, p core.EventPayload) (core.Event, error) {
	calendarID = orPrimary(calendarID)
	updated, err := g.service.Events.Patch(calendarID, eventID, toGoogleEvent(p)).Context(ctx).Do()
	if err != nil {
		return core.Event{}, fmt.Errorf("patch event %s: %w", eventID, mapError(err))
	}
	event, ok := parseEvent(updated, calendarID)
	if !ok {
		return core.Event{}, fmt.Errorf("patch event %s: provider returned an event without dates", eventID)
	}
	return event, nil
}

func (g *GoogleAdapter) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := g.service.Events.Delete(orPrimary(calendarID), eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, mapError(err))
	}
	return nil
}

// Colors returns the account's event and calendar palettes.
func (g *GoogleAdapter) Colors(ctx context.Context) (core.Palette, error) {
	colors, err := g.service.Colors.Get().Context(ctx).Do()
	if err != nil {
		return core.Palette{}, fmt.Errorf("get colors: %w", mapError(err))
	}
	return core.Palette{
		Event:    convertColors(colors.Event),
		Calendar: convertColors(colors.Calendar),
	}, nil
}

func convertColors(in map[string]calendar.ColorDefinition) map[string]core.Color {
	out := make(map[string]core.Color, len(in))
	for id, c := range in {
		out[id] = core.Color{Background: c.Background, Foreground: c.Foreground}
	}
	return out
}

func toGoogleEvent(p core.EventPayload) *calendar.Event {
	ev := &calendar.Event{}
	if p.Title != nil {
		ev.Summary = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		ev.Description = *p.Description
		ev.ForceSendFields = append(ev.ForceSendFields, "Description")
	}
	if p.Start != nil {
		ev.Start = &calendar.EventDateTime{DateTime: p.Start.Format(time.RFC3339), TimeZone: p.TimeZone}
	}
	if p.End != nil {
		ev.End = &calendar.EventDateTime{DateTime: p.End.Format(time.RFC3339), TimeZone: p.TimeZone}
	}
	if p.ColorID != nil {
		// An empty id resets the event to the calendar colour.
		ev.ColorId = *p.ColorID
		ev.ForceSendFields = append(ev.ForceSendFields, "ColorId")
	}
	return ev
}

// parseEvent converts a Google Calendar event to our unified Event type.
// All-day end dates are exclusive, so they are pulled back into the last day.
func parseEvent(item *calendar.Event, calendarID string) (core.Event, bool) {
	start, ok := parseDate(item.Start, false)
	if !ok {
		return core.Event{}, false
	}
	end, ok := parseDate(item.End, true)
	if !ok {
		return core.Event{}, false
	}

	title := item.Summary
	if title == "" {
		title = UntitledEvent
	}
	owner := calendarID
	if item.Organizer != nil && item.Organizer.Email != "" {
		owner = item.Organizer.Email
	}

	return core.Event{
		ID:          item.Id,
		Title:       title,
		Description: item.Description,
		Start:       start,
		End:         end,
		CalendarID:  owner,
		ColorID:     item.ColorId,
	}, true
}

func parseDate(d *calendar.EventDateTime, isEnd bool) (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	if d.DateTime != "" {
		t, err := time.Parse(time.RFC3339, d.DateTime)
		return t, err == nil
	}
	if d.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", d.Date, time.Local)
		if err != nil {
			return time.Time{}, false
		}
		if isEnd {
			t = t.Add(-time.Millisecond)
		}
		return t, true
	}
	return time.Time{}, false
}

func orPrimary(calendarID string) string {
	if calendarID == "" {
		return "primary"
	}
	return calendarID
}

// mapError turns API status codes into the core sentinel errors.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", core.ErrUnauthorized, gerr.Message)
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %s", core.ErrNotFound, gerr.Message)
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %v", core.ErrUnauthorized, rerr)
	}
	return err
}
