package outlook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"golang.org/x/oauth2"

	"github.com/theakshaypant/gridcal/internal/core"
)

// DefaultCalendar addresses /me/events rather than a named calendar.
const DefaultCalendar = "default"

// graphLayout is the wall-clock layout Graph uses inside DateTimeTimeZone.
const graphLayout = "2006-01-02T15:04:05"

// ListRange returns the calendar view of calendarID for [start, end], paging
// through every result.
func (o *Adapter) ListRange(ctx context.Context, calendarID string, start, end time.Time) ([]core.Event, error) {
	calendarID = orDefault(calendarID)
	startStr := start.UTC().Format(time.RFC3339)
	endStr := end.UTC().Format(time.RFC3339)
	selectFields := []string{"id", "subject", "body", "start", "end", "isAllDay", "isCancelled", "categories"}
	orderBy := []string{"start/dateTime"}
	top := int32(100)

	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)
	headers.Add("Prefer", `outlook.body-content-type="text"`)

	var result models.EventCollectionResponseable
	var err error

	if calendarID == DefaultCalendar {
		config := &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		}
		result, err = o.client.Me().CalendarView().Get(ctx, config)
	} else {
		config := &users.ItemCalendarsItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarsItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		}
		result, err = o.client.Me().Calendars().ByCalendarId(calendarID).CalendarView().Get(ctx, config)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch calendar view: %w", mapError(err))
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Eventable](
		result,
		o.client.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("create page iterator: %w", err)
	}

	var results []core.Event
	err = pageIterator.Iterate(ctx, func(item models.Eventable) bool {
		if derefBool(item.GetIsCancelled()) {
			return true
		}
		results = append(results, parseGraphEvent(item, calendarID))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", mapError(err))
	}

	core.SortByStart(results)
	return results, nil
}

func (o *Adapter) Create(ctx context.Context, calendarID string, p core.EventPayload) (core.Event, error) {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" || p.Start == nil || p.End == nil {
		return core.Event{}, core.ErrInvalidPayload
	}
	calendarID = orDefault(calendarID)
	body := toGraphEvent(p)

	var created models.Eventable
	var err error
	if calendarID == DefaultCalendar {
		created, err = o.client.Me().Events().Post(ctx, body, nil)
	} else {
		created, err = o.client.Me().Calendars().ByCalendarId(calendarID).Events().Post(ctx, body, nil)
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", mapError(err))
	}
	return parseGraphEvent(created, calendarID), nil
}

// Update patches the event. Event ids are unique per mailbox, so the
// calendar is only used to label the result.
func (o *Adapter) Update(ctx context.Context, calendarID, eventID string, p core.EventPayload) (core.Event, error) {
	updated, err := o.client.Me().Events().ByEventId(eventID).Patch(ctx, toGraphEvent(p), nil)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event %s: %w", eventID, mapError(err))
	}
	return parseGraphEvent(updated, orDefault(calendarID)), nil
}

func (o *Adapter) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := o.client.Me().Events().ByEventId(eventID).Delete(ctx, nil); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, mapError(err))
	}
	return nil
}

// Colors returns an empty palette: Outlook tags events with categories,
// which have no colour ids.
func (o *Adapter) Colors(ctx context.Context) (core.Palette, error) {
	return core.Palette{Event: map[string]core.Color{}}, nil
}

// toGraphEvent builds a Graph event carrying only the fields present in p.
func toGraphEvent(p core.EventPayload) models.Eventable {
	ev := models.NewEvent()
	if p.Title != nil {
		subject := strings.TrimSpace(*p.Title)
		ev.SetSubject(&subject)
	}
	if p.Description != nil {
		body := models.NewItemBody()
		contentType := models.TEXT_BODYTYPE
		body.SetContentType(&contentType)
		content := *p.Description
		body.SetContent(&content)
		ev.SetBody(body)
	}
	if p.Start != nil {
		ev.SetStart(graphDateTime(*p.Start))
	}
	if p.End != nil {
		ev.SetEnd(graphDateTime(*p.End))
	}
	return ev
}

func graphDateTime(t time.Time) models.DateTimeTimeZoneable {
	dt := models.NewDateTimeTimeZone()
	value := t.UTC().Format(graphLayout)
	zone := "UTC"
	dt.SetDateTime(&value)
	dt.SetTimeZone(&zone)
	return dt
}

// parseGraphEvent converts a Graph SDK event into our unified core.Event.
func parseGraphEvent(item models.Eventable, calendarID string) core.Event {
	description := ""
	if body := item.GetBody(); body != nil {
		description = derefStr(body.GetContent())
	}

	title := derefStr(item.GetSubject())
	if title == "" {
		title = UntitledEvent
	}

	end := parseSDKDateTime(item.GetEnd())
	if derefBool(item.GetIsAllDay()) && !end.IsZero() {
		end = end.Add(-time.Millisecond)
	}

	return core.Event{
		ID:          derefStr(item.GetId()),
		Title:       title,
		Description: strings.TrimSpace(description),
		Start:       parseSDKDateTime(item.GetStart()),
		End:         end,
		CalendarID:  calendarID,
	}
}

// parseSDKDateTime converts a Graph SDK DateTimeTimeZone to time.Time.
// Times are in UTC because we set the Prefer: outlook.timezone="UTC" header.
func parseSDKDateTime(dt models.DateTimeTimeZoneable) time.Time {
	if dt == nil {
		return time.Time{}
	}
	dateTimeStr := dt.GetDateTime()
	if dateTimeStr == nil {
		return time.Time{}
	}
	layouts := []string{
		"2006-01-02T15:04:05.0000000",
		graphLayout,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, *dateTimeStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// mapError turns Graph status codes into the core sentinel errors.
func mapError(err error) error {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		switch odataErr.ResponseStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", core.ErrNotFound, err)
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	return err
}
