package grid

import (
	"math"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/placement"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// Layout is the on-screen geometry of a time grid, in viewport pixels.
type Layout struct {
	// Left and Top locate the first column's midnight row when not scrolled.
	Left float64
	Top  float64

	ColumnWidth float64
	ColumnGap   float64
	// CardInset pads cards inside their column.
	CardInset float64
	// HandleSize is the height of the resize zones at both ends of a card.
	HandleSize float64

	Viewport  placement.Size
	ScrollTop float64
}

// DefaultLayout is a desktop-like layout.
func DefaultLayout() Layout {
	return Layout{
		Left:        56,
		Top:         48,
		ColumnWidth: 220,
		ColumnGap:   8,
		CardInset:   4,
		HandleSize:  6,
		Viewport:    placement.Size{Width: 1280, Height: 800},
	}
}

// VisibleHeight is the scrollable height of the grid body.
func (l Layout) VisibleHeight() float64 {
	return math.Max(0, l.Viewport.Height-l.Top)
}

// MaxScroll is the largest useful ScrollTop.
func (l Layout) MaxScroll() float64 {
	return math.Max(0, timegrid.DayHeight-l.VisibleHeight())
}

func (l Layout) clampScroll(v float64) float64 {
	return math.Max(0, math.Min(v, l.MaxScroll()))
}

// Columns lays out one column per day.
func (l Layout) Columns(days []Day) []gesture.Column {
	cols := make([]gesture.Column, len(days))
	for i, d := range days {
		cols[i] = gesture.Column{
			Day: d.Date,
			Rect: gesture.Rect{
				Left:   l.Left + float64(i)*(l.ColumnWidth+l.ColumnGap),
				Top:    l.Top - l.ScrollTop,
				Width:  l.ColumnWidth,
				Height: timegrid.DayHeight,
			},
		}
	}
	return cols
}

// Card is one positioned event.
type Card struct {
	Event  core.Event
	Column int
	Rect   gesture.Rect
	Tier   timegrid.Tier

	Draft       bool
	Selected    bool
	Highlighted bool
	// Dragging marks the source card of an active gesture.
	Dragging bool
	Active   bool
}

// CardRect places an event inside col. Events running past midnight are cut
// at the end of the column.
func (l Layout) CardRect(col gesture.Column, start, end time.Time) gesture.Rect {
	startMinutes := timegrid.MinutesSinceStart(start)
	duration := timegrid.DurationMinutes(start, end)
	if startMinutes+duration > timegrid.MinutesPerDay {
		duration = timegrid.MinutesPerDay - startMinutes
	}
	height := math.Max(timegrid.MinCardHeight, timegrid.PixelOffset(float64(duration)))
	return gesture.Rect{
		Left:   col.Rect.Left + l.CardInset,
		Top:    col.Rect.Top + timegrid.PixelOffset(float64(startMinutes)),
		Width:  math.Max(0, col.Rect.Width-2*l.CardInset),
		Height: height,
	}
}

// HitKind classifies a pointer position.
type HitKind int

const (
	HitNone HitKind = iota
	HitEmpty
	HitBody
	HitHandleStart
	HitHandleEnd
	HitPopover
	HitForm
	HitMenu
)

func (k HitKind) String() string {
	return [...]string{"none", "empty", "body", "handle-start", "handle-end", "popover", "form", "menu"}[k]
}

// Hit is the result of a hit test.
type Hit struct {
	Kind    HitKind
	Column  int
	EventID string
	Draft   bool
	// Minutes is the unsnapped pointer position within the column's day.
	Minutes float64
}

// hitCard tests the cards back to front so the topmost wins.
func (l Layout) hitCard(cards []Card, p gesture.Point) (Card, HitKind, bool) {
	for i := len(cards) - 1; i >= 0; i-- {
		c := cards[i]
		if !c.Rect.Contains(p) {
			continue
		}
		if l.HandleSize > 0 && c.Rect.Height >= 3*l.HandleSize {
			switch {
			case p.Y < c.Rect.Top+l.HandleSize:
				return c, HitHandleStart, true
			case p.Y >= c.Rect.Bottom()-l.HandleSize:
				return c, HitHandleEnd, true
			}
		}
		return c, HitBody, true
	}
	return Card{}, HitNone, false
}

func columnAt(cols []gesture.Column, x float64) int {
	for i, c := range cols {
		if c.Rect.ContainsX(x) {
			return i
		}
	}
	return -1
}

func pointerMinutes(col gesture.Column, y float64) float64 {
	offset := math.Min(math.Max(0, y-col.Rect.Top), col.Rect.Height)
	return timegrid.MinutesAt(offset)
}

func rectOf(p placement.Placement, height float64) gesture.Rect {
	return gesture.Rect{Left: p.Left, Top: p.Top, Width: p.Width, Height: math.Min(height, p.MaxHeight)}
}
