package grid

import (
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// Variant selects which days a surface shows.
type Variant int

const (
	Focus Variant = iota
	Week
	Month
)

func (v Variant) String() string {
	switch v {
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return "focus"
	}
}

// ParseVariant maps a config or flag value to a Variant.
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "focus", "":
		return Focus, true
	case "week":
		return Week, true
	case "month":
		return Month, true
	}
	return Focus, false
}

// Day is one column of a time grid.
type Day struct {
	Date  time.Time
	Label string
}

// Days lists the columns of a time-grid variant around ref. Focus shows
// yesterday, today and tomorrow; Week shows Sunday through Saturday.
func Days(v Variant, ref time.Time) []Day {
	today := timegrid.StartOfDay(ref)
	switch v {
	case Week:
		start := timegrid.AddDays(today, -int(today.Weekday()))
		days := make([]Day, 7)
		for i := range days {
			d := timegrid.AddDays(start, i)
			days[i] = Day{Date: d, Label: d.Format("Mon 02")}
		}
		return days
	case Focus:
		return []Day{
			{Date: timegrid.AddDays(today, -1), Label: "Yesterday"},
			{Date: today, Label: "Today"},
			{Date: timegrid.AddDays(today, 1), Label: "Tomorrow"},
		}
	}
	return nil
}

// Range is the [start, end] window to list for v around ref.
func Range(v Variant, ref time.Time) (time.Time, time.Time) {
	if v == Month {
		cells := MonthCells(ref)
		return cells[0], timegrid.EndOfDay(cells[len(cells)-1])
	}
	days := Days(v, ref)
	return days[0].Date, timegrid.EndOfDay(days[len(days)-1].Date)
}

// Step moves ref by one page of v in direction dir (-1 or 1).
func Step(v Variant, ref time.Time, dir int) time.Time {
	switch v {
	case Week:
		return timegrid.AddDays(ref, 7*dir)
	case Month:
		// From the first so the 31st never spills into the month after.
		return time.Date(ref.Year(), ref.Month()+time.Month(dir), 1, 0, 0, 0, 0, ref.Location())
	default:
		return timegrid.AddDays(ref, dir)
	}
}

// MonthCells returns the whole weeks covering ref's month, Sunday first.
func MonthCells(ref time.Time) []time.Time {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	last := first.AddDate(0, 1, -1)
	offset := int(first.Weekday())
	total := (offset + last.Day() + 6) / 7 * 7
	cells := make([]time.Time, total)
	for i := range cells {
		cells[i] = timegrid.AddDays(first, i-offset)
	}
	return cells
}

// EventsOn returns the events that start on day, in start order.
func EventsOn(day time.Time, events []core.Event) []core.Event {
	var out []core.Event
	for _, e := range events {
		if timegrid.IsSameDay(e.Start, day) {
			out = append(out, e)
		}
	}
	core.SortByStart(out)
	return out
}
