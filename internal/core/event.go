package core

import (
	"strings"
	"time"
)

// DraftIDPrefix marks drafts that have never been persisted.
const DraftIDPrefix = "draft-"

// Color is one entry of the provider colour palette.
type Color struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// Palette maps colour ids to their rendering colours.
type Palette struct {
	Event    map[string]Color `json:"event"`
	Calendar map[string]Color `json:"calendar,omitempty"`
}

// Resolve returns the palette entry for colorID, if any.
func (p Palette) Resolve(colorID string) (Color, bool) {
	if colorID == "" || p.Event == nil {
		return Color{}, false
	}
	c, ok := p.Event[colorID]
	return c, ok
}

// All adapters (Google, Outlook, the HTTP client) convert their data to this format.
type Event struct {
	// Unique ID (provided by the source)
	ID    string `json:"id"`
	Title string `json:"title"`
	// Optional free text, may contain HTML when it comes from Google
	Description string `json:"description,omitempty"`
	// Timing
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Which calendar this event belongs to
	CalendarID string `json:"calendarId"`
	// Visual tag, resolved through a Palette
	ColorID string `json:"colorId,omitempty"`
	Color   string `json:"color,omitempty"`
	// Completion flag, persisted by the backend independently of the provider
	Completed bool `json:"completed"`
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// InProgress checks if the event is happening right now.
func (e Event) InProgress(now time.Time) bool {
	return !now.Before(e.Start) && !now.After(e.End)
}

// EventDraft is an uncommitted event held by the UI until it is saved.
type EventDraft struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	CalendarID  string
	ColorID     string
	// Existing is true when the draft edits an event the store already knows.
	Existing bool
}

// NewDraftID synthesizes an id for a brand-new draft.
func NewDraftID(now time.Time) string {
	return DraftIDPrefix + formatMillis(now.UnixMilli())
}

// IsDraftID reports whether id was synthesized by NewDraftID.
func IsDraftID(id string) bool {
	return strings.HasPrefix(id, DraftIDPrefix)
}

// Event projects the draft onto an Event, used for optimistic rendering.
func (d EventDraft) Event() Event {
	return Event{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Start:       d.Start,
		End:         d.End,
		CalendarID:  d.CalendarID,
		ColorID:     d.ColorID,
	}
}

// Payload builds the create or update payload for the draft. Edits always
// carry description and colour so clearing either reaches the store.
func (d EventDraft) Payload(timeZone string) EventPayload {
	title := strings.TrimSpace(d.Title)
	p := EventPayload{
		Title:    &title,
		Start:    timePtr(d.Start),
		End:      timePtr(d.End),
		TimeZone: timeZone,
	}
	if d.Description != "" || d.Existing {
		desc := d.Description
		p.Description = &desc
	}
	if d.CalendarID != "" {
		cal := d.CalendarID
		p.CalendarID = &cal
	}
	if d.ColorID != "" || d.Existing {
		color := d.ColorID
		p.ColorID = &color
	}
	return p
}

// DraftFromEvent opens an existing event for editing.
func DraftFromEvent(e Event) EventDraft {
	return EventDraft{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Start,
		End:         e.End,
		CalendarID:  e.CalendarID,
		ColorID:     e.ColorID,
		Existing:    !IsDraftID(e.ID),
	}
}

// EventPayload is the body of create and update calls. Nil fields are left
// untouched by update.
type EventPayload struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	CalendarID  *string    `json:"calendarId,omitempty"`
	ColorID     *string    `json:"colorId,omitempty"`
	TimeZone    string     `json:"timeZone,omitempty"`
}

// TimePayload is the partial payload sent by a drag or resize commit.
func TimePayload(start, end time.Time) EventPayload {
	return EventPayload{Start: timePtr(start), End: timePtr(end)}
}

// ColorPayload is the partial payload sent by a recolor. An empty colorID
// resets the event to the calendar default.
func ColorPayload(colorID string) EventPayload {
	return EventPayload{ColorID: &colorID}
}

// Apply merges the non-nil fields of p into e.
func (p EventPayload) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.CalendarID != nil {
		e.CalendarID = *p.CalendarID
	}
	if p.ColorID != nil {
		e.ColorID = *p.ColorID
	}
	return e
}

func timePtr(t time.Time) *time.Time {
	return &t
}
