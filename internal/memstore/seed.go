package memstore

import (
	"strconv"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

var baseColors = []string{"#f97316", "#0ea5e9", "#22c55e", "#f43f5e"}

// eventColors mirrors the Google Calendar event palette.
var eventColors = map[string]core.Color{
	"1":  {Background: "#a4bdfc", Foreground: "#1d1d1d"},
	"2":  {Background: "#7ae7bf", Foreground: "#1d1d1d"},
	"3":  {Background: "#dbadff", Foreground: "#1d1d1d"},
	"4":  {Background: "#ff887c", Foreground: "#1d1d1d"},
	"5":  {Background: "#fbd75b", Foreground: "#1d1d1d"},
	"6":  {Background: "#ffb878", Foreground: "#1d1d1d"},
	"7":  {Background: "#46d6db", Foreground: "#1d1d1d"},
	"8":  {Background: "#e1e1e1", Foreground: "#1d1d1d"},
	"9":  {Background: "#5484ed", Foreground: "#1d1d1d"},
	"10": {Background: "#51b749", Foreground: "#1d1d1d"},
	"11": {Background: "#dc2127", Foreground: "#1d1d1d"},
}

// Palette returns a copy of the local colour palette.
func Palette() core.Palette {
	p := core.Palette{Event: make(map[string]core.Color, len(eventColors))}
	for id, c := range eventColors {
		p.Event[id] = c
	}
	return p
}

func resolveColor(colorID string) string {
	if c, ok := eventColors[colorID]; ok {
		return c.Background
	}
	return ""
}

// Seed builds a sample agenda around now: two events yesterday, three today
// and three tomorrow.
func Seed(now time.Time) []core.Event {
	today := timegrid.StartOfDay(now)
	yesterday := timegrid.AddDays(today, -1)
	tomorrow := timegrid.AddDays(today, 1)

	build := func(day time.Time, offset, duration int, title, desc, calendarID, color string) core.Event {
		start := timegrid.AtMinutes(day, offset)
		return core.Event{
			ID:          calendarID + "-" + day.Format("20060102") + "-" + strconv.Itoa(offset),
			Title:       title,
			Description: desc,
			Start:       start,
			End:         timegrid.AddMinutes(start, duration),
			CalendarID:  calendarID,
			Color:       color,
		}
	}

	return []core.Event{
		build(yesterday, 9*60, 60, "Sprint review", "Go over open items and priorities with the team.", "work", baseColors[0]),
		build(yesterday, 14*60+30, 45, "Design follow-up", "Check the event creation flow and visual hierarchy.", "work", baseColors[1]),
		build(today, 8*60, 45, "Morning routine", "Light workout and plan the day.", "personal", baseColors[2]),
		build(today, 11*60, 90, "Focus block", "Build the focus view against the sample data.", "work", baseColors[0]),
		build(today, 16*60, 60, "Backlog update", "Sort feedback and the next experiments.", "work", baseColors[1]),
		build(tomorrow, 9*60+15, 45, "Product sync", "Discuss the backend integration.", "work", baseColors[3]),
		build(tomorrow, 13*60, 60, "Personal time", "Rest and recharge.", "personal", baseColors[2]),
		build(tomorrow, 19*60, 60, "Weekly planning", "Review goals and next steps.", "personal", baseColors[0]),
	}
}
