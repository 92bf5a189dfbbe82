// Package timegrid maps between wall-clock times and pixel offsets on a
// vertical day axis. Every grid shares the same density so dragging across
// columns lines up.
package timegrid

import (
	"fmt"
	"math"
	"time"
)

const (
	MinutesPerDay   = 24 * 60
	PixelsPerMinute = 1.1
	DayHeight       = MinutesPerDay * PixelsPerMinute

	// DragStep is the snapping granularity applied to every pointer sample.
	DragStep = 5
	// MinDurationMinutes is never violated by a resize candidate.
	MinDurationMinutes = 15
	// DefaultDraftMinutes is the length of a click-created draft.
	DefaultDraftMinutes = 60

	// MinCardHeight keeps very short events clickable.
	MinCardHeight = 36.0

	// nowScrollRatio places the now indicator this far down the viewport.
	nowScrollRatio = 0.35
)

// Tier classifies an event by duration. It only drives card layout.
type Tier int

const (
	TierShort Tier = iota
	TierMedium
	TierLong
)

func (t Tier) String() string {
	switch t {
	case TierShort:
		return "short"
	case TierMedium:
		return "medium"
	default:
		return "long"
	}
}

// DensityTier buckets a duration in minutes: short <20, medium <45, long otherwise.
func DensityTier(minutes int) Tier {
	switch {
	case minutes < 20:
		return TierShort
	case minutes < 45:
		return TierMedium
	default:
		return TierLong
	}
}

// MinutesSinceStart returns minutes past local midnight, in [0, 1440).
func MinutesSinceStart(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// PixelOffset converts minutes into a vertical offset.
func PixelOffset(minutes float64) float64 {
	return minutes * PixelsPerMinute
}

// MinutesAt is the inverse of PixelOffset.
func MinutesAt(px float64) float64 {
	return px / PixelsPerMinute
}

// Snap rounds minutes to the nearest multiple of step. Halves round up.
func Snap(minutes, step int) int {
	return SnapFloat(float64(minutes), step)
}

// SnapFloat rounds a fractional minute value to the nearest multiple of step.
func SnapFloat(minutes float64, step int) int {
	if step <= 1 {
		return int(math.Round(minutes))
	}
	s := float64(step)
	return int(math.Floor(minutes/s+0.5)) * step
}

// ClampMinutes bounds m to [lo, hi].
func ClampMinutes(m, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// IsSameDay compares calendar fields only.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddDays moves t by whole calendar days, keeping the wall-clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMinutes moves t by n minutes.
func AddMinutes(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Minute)
}

// AtMinutes rebuilds an instant from a day and minutes past its midnight.
// 1440 yields the following midnight.
func AtMinutes(day time.Time, minutes int) time.Time {
	d := StartOfDay(day)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, minutes, 0, 0, d.Location())
}

// DurationMinutes returns the whole-minute length between two instants.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// FormatClock renders 24-hour zero-padded HH:MM.
func FormatClock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// FormatRange renders "HH:MM - HH:MM".
func FormatRange(start, end time.Time) string {
	return FormatClock(start) + " - " + FormatClock(end)
}

// FormatMinutes renders minutes past midnight as HH:MM; 1440 is "24:00".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// NowOffset is the pixel offset of the now indicator.
func NowOffset(now time.Time) float64 {
	return PixelOffset(float64(MinutesSinceStart(now)))
}

// AutoScrollOffset returns the scroll position that puts the now indicator
// roughly 35% down a viewport of the given height.
func AutoScrollOffset(now time.Time, viewportHeight float64) float64 {
	return math.Max(0, NowOffset(now)-viewportHeight*nowScrollRatio)
}
