package gesture

import "time"

// Point is a pointer position in viewport pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box in viewport pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// ContainsX reports whether x falls within the horizontal bounds (inclusive).
func (r Rect) ContainsX(x float64) bool {
	return x >= r.Left && x <= r.Right()
}

// Contains reports whether p falls inside r (inclusive).
func (r Rect) Contains(p Point) bool {
	return r.ContainsX(p.X) && p.Y >= r.Top && p.Y <= r.Bottom()
}

// Column is a day grid as laid out on screen. Rect.Top is the pixel row of
// local midnight, so it moves with scrolling.
type Column struct {
	Day  time.Time
	Rect Rect
}

// Range is a candidate or committed (start, end) pair.
type Range struct {
	Start time.Time
	End   time.Time
}

// Equal compares instants, ignoring location.
func (r Range) Equal(o Range) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}
