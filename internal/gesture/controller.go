// Package gesture turns a stream of pointer samples into a live candidate
// time range for one event, and a single commit on release.
package gesture

import (
	"math"
	"time"

	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// Phase of the active gesture slot.
type Phase int

const (
	Idle Phase = iota
	// Pending waits for the pointer to travel past the drag threshold so a
	// click on a card body can still select it.
	Pending
	Active
)

// Mode of an active gesture.
type Mode int

const (
	Move Mode = iota
	ResizeStart
	ResizeEnd
)

func (m Mode) String() string {
	switch m {
	case ResizeStart:
		return "resize-start"
	case ResizeEnd:
		return "resize-end"
	default:
		return "move"
	}
}

// Edge selects a resize handle.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

const (
	DefaultThreshold = 6.0

	// Ghost card insets inside the target column.
	ghostInsetLeft  = 36.0
	ghostInsetRight = 10.0
	ghostMinWidth   = 140.0
	ghostMinHeight  = 24.0
)

// Target identifies what is being manipulated.
type Target struct {
	ID    string
	Title string
	Range Range
	// Draft targets write back into the draft instead of the store.
	Draft bool
}

// OutcomeKind says what a release or cancel produced.
type OutcomeKind int

const (
	// None: nothing to do (cancelled, or no gesture in progress).
	None OutcomeKind = iota
	// Click: the body was released before the drag threshold.
	Click
	// Commit: the last candidate should be written.
	Commit
)

// Outcome is emitted once per gesture.
type Outcome struct {
	Kind   OutcomeKind
	Target Target
	Range  Range
	// Changed is false when the committed range equals the original one.
	Changed bool
}

// Ghost is the floating drag layer that follows the candidate.
type Ghost struct {
	Rect  Rect
	Title string
	Label string
}

// Options tune the controller.
type Options struct {
	Threshold   float64
	Step        int
	ResizeStep  int
	MinDuration int
}

// DefaultOptions mirror the grid constants.
func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		Step:        timegrid.DragStep,
		ResizeStep:  timegrid.DragStep,
		MinDuration: timegrid.MinDurationMinutes,
	}
}

// Controller owns the single gesture slot of a view.
type Controller struct {
	opts Options

	phase  Phase
	mode   Mode
	target Target

	columns    []Column
	lastColumn int

	press      Point
	moved      bool
	grabOffset float64
	duration   int

	candidate    Range
	hasCandidate bool
	ghost        Ghost
}

// NewController builds a controller; zero option fields take defaults.
func NewController(opts Options) *Controller {
	def := DefaultOptions()
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.Step <= 0 {
		opts.Step = def.Step
	}
	if opts.ResizeStep <= 0 {
		opts.ResizeStep = def.ResizeStep
	}
	if opts.MinDuration <= 0 {
		opts.MinDuration = def.MinDuration
	}
	return &Controller{opts: opts}
}

func (c *Controller) Phase() Phase    { return c.phase }
func (c *Controller) Mode() Mode      { return c.mode }
func (c *Controller) Target() Target  { return c.target }
func (c *Controller) Active() bool    { return c.phase == Active }
func (c *Controller) Busy() bool      { return c.phase != Idle }
func (c *Controller) Options() Options { return c.opts }

// Candidate returns the live range while Active.
func (c *Controller) Candidate() (Range, bool) {
	return c.candidate, c.phase == Active && c.hasCandidate
}

// Ghost returns the drag layer while Active.
func (c *Controller) Ghost() (Ghost, bool) {
	return c.ghost, c.phase == Active && c.hasCandidate
}

// SetColumns refreshes the on-screen column bounds (after resize or scroll).
func (c *Controller) SetColumns(cols []Column) {
	c.columns = append(c.columns[:0], cols...)
	if c.lastColumn >= len(c.columns) {
		c.lastColumn = 0
	}
}

// PressBody starts a gesture from a card body. It is ignored while another
// gesture holds the slot.
func (c *Controller) PressBody(t Target, p Point, column int) bool {
	if c.phase != Idle {
		return false
	}
	c.begin(t, p, column)
	c.mode = Move
	c.phase = Pending
	startMinutes := float64(timegrid.MinutesSinceStart(t.Range.Start))
	c.grabOffset = c.pointerMinutes(c.columnAt(column), p.Y) - startMinutes
	return true
}

// PressHandle starts a resize straight away; handles skip the threshold.
// The candidate stays at the original range until the first move.
func (c *Controller) PressHandle(t Target, edge Edge, p Point, column int) bool {
	if c.phase != Idle {
		return false
	}
	c.begin(t, p, column)
	c.grabOffset = 0
	if edge == EdgeStart {
		c.mode = ResizeStart
	} else {
		c.mode = ResizeEnd
	}
	c.phase = Active
	c.seed(column)
	return true
}

// seed shows the original range until the pointer moves.
func (c *Controller) seed(column int) {
	startMinutes := timegrid.MinutesSinceStart(c.target.Range.Start)
	c.candidate = c.target.Range
	c.hasCandidate = true
	c.ghost = c.ghostFor(c.columnAt(column), startMinutes, startMinutes+c.duration)
}

func (c *Controller) begin(t Target, p Point, column int) {
	c.target = t
	c.press = p
	c.lastColumn = column
	c.duration = durationOf(t.Range)
	c.hasCandidate = false
	c.moved = false
}

// Move feeds one pointer sample. It reports whether the candidate changed.
func (c *Controller) Move(p Point) bool {
	switch c.phase {
	case Pending:
		if math.Hypot(p.X-c.press.X, p.Y-c.press.Y) <= c.opts.Threshold {
			return false
		}
		c.phase = Active
	case Active:
		// A release on the press point leaves a handle gesture untouched.
		if !c.moved && p == c.press {
			return false
		}
	default:
		return false
	}
	c.moved = true
	before, had := c.candidate, c.hasCandidate
	c.update(p)
	return !had || !before.Equal(c.candidate)
}

// Release ends the gesture on pointer-up.
func (c *Controller) Release() Outcome {
	defer c.reset()
	switch c.phase {
	case Pending:
		return Outcome{Kind: Click, Target: c.target, Range: c.target.Range}
	case Active:
		if !c.hasCandidate {
			return Outcome{Kind: None, Target: c.target, Range: c.target.Range}
		}
		return Outcome{
			Kind:    Commit,
			Target:  c.target,
			Range:   c.candidate,
			Changed: !c.candidate.Equal(c.target.Range),
		}
	default:
		return Outcome{}
	}
}

// Cancel discards the candidate and restores the original range.
func (c *Controller) Cancel() Outcome {
	if c.phase == Idle {
		return Outcome{}
	}
	out := Outcome{Kind: None, Target: c.target, Range: c.target.Range}
	c.reset()
	return out
}

func (c *Controller) reset() {
	c.phase = Idle
	c.target = Target{}
	c.hasCandidate = false
	c.candidate = Range{}
	c.ghost = Ghost{}
	c.grabOffset = 0
	c.duration = 0
	c.moved = false
}

func (c *Controller) update(p Point) {
	idx := c.targetColumn(p.X)
	col := c.columnAt(idx)
	pointer := c.pointerMinutes(col, p.Y)

	orig := c.target.Range
	startMinutes := timegrid.MinutesSinceStart(orig.Start)
	endMinutes := timegrid.ClampMinutes(startMinutes+c.duration, 0, timegrid.MinutesPerDay)
	day := timegrid.StartOfDay(orig.Start)

	var nextStart, nextEnd int
	switch c.mode {
	case Move:
		nextStart = timegrid.SnapFloat(pointer-c.grabOffset, c.opts.Step)
		nextStart = timegrid.ClampMinutes(nextStart, 0, timegrid.MinutesPerDay-c.duration)
		nextEnd = nextStart + c.duration
		if !col.Day.IsZero() {
			day = timegrid.StartOfDay(col.Day)
		}
	case ResizeStart:
		if endMinutes < c.opts.MinDuration {
			endMinutes = c.opts.MinDuration
		}
		snapped := timegrid.SnapFloat(pointer, c.opts.ResizeStep)
		nextStart = timegrid.ClampMinutes(snapped, 0, endMinutes-c.opts.MinDuration)
		nextEnd = endMinutes
	case ResizeEnd:
		if startMinutes > timegrid.MinutesPerDay-c.opts.MinDuration {
			startMinutes = timegrid.MinutesPerDay - c.opts.MinDuration
		}
		snapped := timegrid.SnapFloat(pointer, c.opts.ResizeStep)
		nextStart = startMinutes
		nextEnd = timegrid.ClampMinutes(snapped, startMinutes+c.opts.MinDuration, timegrid.MinutesPerDay)
	}

	c.candidate = Range{
		Start: timegrid.AtMinutes(day, nextStart),
		End:   timegrid.AtMinutes(day, nextEnd),
	}
	c.hasCandidate = true
	c.ghost = c.ghostFor(col, nextStart, nextEnd)
}

// targetColumn finds the column under x, keeping the last valid one when the
// pointer leaves every column.
func (c *Controller) targetColumn(x float64) int {
	if c.mode == Move {
		for i, col := range c.columns {
			if col.Rect.ContainsX(x) {
				c.lastColumn = i
				return i
			}
		}
	}
	return c.lastColumn
}

func (c *Controller) columnAt(i int) Column {
	if i >= 0 && i < len(c.columns) {
		return c.columns[i]
	}
	return Column{Rect: Rect{Height: timegrid.DayHeight}}
}

// pointerMinutes maps a y coordinate to fractional minutes inside col.
func (c *Controller) pointerMinutes(col Column, y float64) float64 {
	height := col.Rect.Height
	if height <= 0 {
		height = timegrid.DayHeight
	}
	offset := math.Min(math.Max(0, y-col.Rect.Top), height)
	return timegrid.MinutesAt(offset)
}

func (c *Controller) ghostFor(col Column, startMinutes, endMinutes int) Ghost {
	width := math.Max(ghostMinWidth, col.Rect.Width-ghostInsetLeft-ghostInsetRight)
	return Ghost{
		Rect: Rect{
			Left:   col.Rect.Left + ghostInsetLeft,
			Top:    col.Rect.Top + timegrid.PixelOffset(float64(startMinutes)),
			Width:  width,
			Height: math.Max(ghostMinHeight, timegrid.PixelOffset(float64(endMinutes-startMinutes))),
		},
		Title: c.target.Title,
		Label: timegrid.FormatRange(c.candidate.Start, c.candidate.End),
	}
}

// durationOf clamps degenerate ranges into something draggable.
func durationOf(r Range) int {
	d := timegrid.DurationMinutes(r.Start, r.End)
	if d <= 0 {
		return timegrid.MinDurationMinutes
	}
	if d > timegrid.MinutesPerDay {
		return timegrid.MinutesPerDay
	}
	return d
}

// Duration returns the fixed length held during a move.
func (c *Controller) Duration() time.Duration {
	return time.Duration(c.duration) * time.Minute
}
