// Package grid is the editing surface shared by the focus and week views. A
// Surface owns every piece of interaction state of one open view: the single
// gesture slot, the single draft, the selected event and its popover, the
// quick menu, the mount highlight and the set of global inputs it listens to.
// Renderers read it and feed it input; store writes come back as Effects.
package grid

import (
	"time"

	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/draft"
	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/placement"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// HighlightDuration is how long the running event pulses after mount.
const HighlightDuration = 1600 * time.Millisecond

// Options configure a Surface.
type Options struct {
	Layout  Layout
	Gesture gesture.Options
	Now     func() time.Time
	Logger  *zap.Logger
	// TimeZone is sent with create and update payloads.
	TimeZone string
	// CalendarID is the calendar new drafts are created in.
	CalendarID string
}

// Menu is the open quick menu.
type Menu struct {
	EventID    string
	At         gesture.Point
	WithColors bool
}

// Panel is a floating panel ready to render.
type Panel struct {
	Placement placement.Placement
	Closing   bool
}

// Surface is the view-level controller of a time grid.
type Surface struct {
	variant Variant
	ref     time.Time
	days    []Day
	layout  Layout

	now        func() time.Time
	log        *zap.Logger
	timeZone   string
	calendarID string

	events  []core.Event
	palette core.Palette

	gesture *gesture.Controller
	frames  gesture.Coalescer[gesture.Point]

	drafts     *draft.Machine
	form       *placement.Tracker
	formHeight float64

	selected   string
	popover    placement.Popover
	popTrack   *placement.Tracker
	popHeight  float64
	menu       *Menu
	highlight  string
	pulseUntil time.Time

	listeners Listeners
}

// New builds a surface for variant v around ref.
func New(v Variant, ref time.Time, opts Options) *Surface {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Layout.ColumnWidth <= 0 {
		opts.Layout = DefaultLayout()
	}
	s := &Surface{
		variant:    v,
		layout:     opts.Layout,
		now:        opts.Now,
		log:        opts.Logger,
		timeZone:   opts.TimeZone,
		calendarID: opts.CalendarID,
		gesture:    gesture.NewController(opts.Gesture),
		drafts:     draft.New(opts.Now),
		form:       placement.NewTracker(placement.Right),
		popTrack:   placement.NewTracker(placement.Right),
	}
	s.setReference(ref)
	return s
}

func (s *Surface) Variant() Variant       { return s.variant }
func (s *Surface) Reference() time.Time   { return s.ref }
func (s *Surface) Days() []Day            { return s.days }
func (s *Surface) Layout() Layout         { return s.layout }
func (s *Surface) Palette() core.Palette  { return s.palette }
func (s *Surface) Listeners() *Listeners  { return &s.listeners }
func (s *Surface) Gesture() gesture.Phase { return s.gesture.Phase() }

func (s *Surface) Columns() []gesture.Column {
	return s.layout.Columns(s.days)
}

// Range is the window the surface needs listed.
func (s *Surface) Range() (time.Time, time.Time) {
	return Range(s.variant, s.ref)
}

// SetReference moves the surface to another page. Open state is dropped.
func (s *Surface) SetReference(ref time.Time) {
	s.Close()
	s.setReference(ref)
}

func (s *Surface) setReference(ref time.Time) {
	s.ref = timegrid.StartOfDay(ref)
	s.days = Days(s.variant, s.ref)
	s.gesture.SetColumns(s.Columns())
}

// Events returns the local event list, optimistic changes included.
func (s *Surface) Events() []core.Event { return s.events }

// SetEvents replaces the local list after a load.
func (s *Surface) SetEvents(events []core.Event) {
	s.events = append([]core.Event(nil), events...)
	core.SortByStart(s.events)
	if s.selected != "" && s.indexOf(s.selected) < 0 {
		s.dropPopover()
	}
	if s.menu != nil && s.indexOf(s.menu.EventID) < 0 {
		s.menu = nil
	}
	s.refreshHighlight()
	s.syncListeners()
}

func (s *Surface) SetPalette(p core.Palette) { s.palette = p }

// Mount scrolls today's now line into view and starts the highlight pulse.
func (s *Surface) Mount() {
	if s.todayColumn() >= 0 {
		s.layout.ScrollTop = s.layout.clampScroll(
			timegrid.AutoScrollOffset(s.now(), s.layout.VisibleHeight()))
		s.gesture.SetColumns(s.Columns())
	}
	s.refreshHighlight()
}

func (s *Surface) refreshHighlight() {
	now := s.now()
	s.highlight = ""
	for _, e := range s.events {
		if timegrid.IsSameDay(e.Start, s.ref) && e.InProgress(now) {
			s.highlight = e.ID
			s.pulseUntil = now.Add(HighlightDuration)
			return
		}
	}
}

// Close releases everything the surface holds: the gesture is cancelled,
// the draft discarded and every overlay removed.
func (s *Surface) Close() {
	s.gesture.Cancel()
	s.frames.Reset()
	if s.drafts.Discard(draft.ReasonReplaced) {
		s.form.Unmount()
	}
	s.dropPopover()
	s.menu = nil
	s.listeners.Release()
}

// Cards lays out every visible event and the draft.
func (s *Surface) Cards() []Card {
	now := s.now()
	cols := s.Columns()
	d, hasDraft := s.drafts.Draft()
	dragging := ""
	if s.gesture.Active() {
		dragging = s.gesture.Target().ID
	}
	var cards []Card
	for i, col := range cols {
		for _, e := range EventsOn(col.Day, s.events) {
			if hasDraft && e.ID == d.ID {
				continue
			}
			cards = append(cards, Card{
				Event:       e,
				Column:      i,
				Rect:        s.layout.CardRect(col, e.Start, e.End),
				Tier:        timegrid.DensityTier(timegrid.DurationMinutes(e.Start, e.End)),
				Selected:    e.ID == s.selected,
				Highlighted: e.ID == s.highlight && now.Before(s.pulseUntil),
				Dragging:    e.ID == dragging,
				Active:      e.InProgress(now),
			})
		}
		if hasDraft && timegrid.IsSameDay(d.Start, col.Day) {
			ev := d.Event()
			cards = append(cards, Card{
				Event:    ev,
				Column:   i,
				Rect:     s.layout.CardRect(col, d.Start, d.End),
				Tier:     timegrid.DensityTier(timegrid.DurationMinutes(d.Start, d.End)),
				Draft:    true,
				Dragging: ev.ID == dragging,
			})
		}
	}
	return cards
}

// HitTest classifies p against overlays, cards and columns.
func (s *Surface) HitTest(p gesture.Point) Hit {
	if s.menu != nil && s.menuRect().Contains(p) {
		return Hit{Kind: HitMenu, EventID: s.menu.EventID, Column: -1}
	}
	if s.drafts.Open() && s.form.Mounted() && rectOf(s.form.Placement(), s.formHeight).Contains(p) {
		return Hit{Kind: HitForm, Column: -1}
	}
	if s.popover.Visible() && !s.popover.Closing() && rectOf(s.popTrack.Placement(), s.popHeight).Contains(p) {
		return Hit{Kind: HitPopover, EventID: s.selected, Column: -1}
	}
	if p.Y < s.layout.Top || p.Y > s.layout.Viewport.Height {
		return Hit{Kind: HitNone, Column: -1}
	}
	if c, kind, ok := s.layout.hitCard(s.Cards(), p); ok {
		col := s.Columns()[c.Column]
		return Hit{Kind: kind, Column: c.Column, EventID: c.Event.ID, Draft: c.Draft, Minutes: pointerMinutes(col, p.Y)}
	}
	cols := s.Columns()
	if i := columnAt(cols, p.X); i >= 0 {
		return Hit{Kind: HitEmpty, Column: i, Minutes: pointerMinutes(cols[i], p.Y)}
	}
	return Hit{Kind: HitNone, Column: -1}
}

// PointerDown handles a primary-button press.
func (s *Surface) PointerDown(p gesture.Point) {
	defer s.syncListeners()
	if s.gesture.Busy() {
		return
	}
	hit := s.HitTest(p)
	if hit.Kind == HitMenu {
		return
	}
	s.menu = nil

	onCard := hit.Kind == HitBody || hit.Kind == HitHandleStart || hit.Kind == HitHandleEnd
	if s.drafts.OutsidePointer(onCard && hit.Draft, hit.Kind == HitForm) {
		s.form.Unmount()
	}
	if s.popover.Visible() && hit.Kind != HitPopover && !(onCard && hit.EventID == s.selected) {
		s.closePopover()
	}

	switch hit.Kind {
	case HitEmpty:
		s.createDraft(hit)
	case HitBody:
		if t, ok := s.target(hit); ok {
			s.gesture.PressBody(t, p, hit.Column)
		}
	case HitHandleStart, HitHandleEnd:
		edge := gesture.EdgeStart
		if hit.Kind == HitHandleEnd {
			edge = gesture.EdgeEnd
		}
		if t, ok := s.target(hit); ok {
			s.gesture.PressHandle(t, edge, p, hit.Column)
		}
	}
}

func (s *Surface) createDraft(hit Hit) {
	day := s.days[hit.Column].Date
	d := s.drafts.Create(day, hit.Minutes, s.calendarID)
	s.log.Debug("draft created", zap.String("id", d.ID), zap.Time("start", d.Start))
	s.mountForm()
}

func (s *Surface) target(hit Hit) (gesture.Target, bool) {
	if hit.Draft {
		d, ok := s.drafts.Draft()
		if !ok {
			return gesture.Target{}, false
		}
		return gesture.Target{ID: d.ID, Title: d.Title, Range: gesture.Range{Start: d.Start, End: d.End}, Draft: true}, true
	}
	i := s.indexOf(hit.EventID)
	if i < 0 {
		return gesture.Target{}, false
	}
	e := s.events[i]
	return gesture.Target{ID: e.ID, Title: e.Title, Range: gesture.Range{Start: e.Start, End: e.End}}, true
}

// PointerMove queues a sample. It reports whether a frame must be scheduled;
// samples arriving before that frame replace the queued one.
func (s *Surface) PointerMove(p gesture.Point) bool {
	if !s.gesture.Busy() {
		return false
	}
	return s.frames.Push(p)
}

// Frame drains the queued sample and repositions the floating panels. It
// reports whether anything visible changed.
func (s *Surface) Frame() bool {
	changed := false
	if p, ok := s.frames.Drain(); ok {
		changed = s.gesture.Move(p)
	}
	if _, moved := s.form.Frame(); moved {
		changed = true
	}
	if _, moved := s.popTrack.Frame(); moved {
		changed = true
	}
	return changed
}

// Ghost is the drag layer of the active gesture.
func (s *Surface) Ghost() (gesture.Ghost, bool) { return s.gesture.Ghost() }

// PointerUp ends the gesture. A release below the drag threshold toggles
// the selection; a changed commit updates the event (or the draft).
func (s *Surface) PointerUp(p gesture.Point) []Effect {
	if !s.gesture.Busy() {
		return nil
	}
	defer s.syncListeners()
	s.frames.Reset()
	s.gesture.Move(p)
	mode := s.gesture.Mode()
	out := s.gesture.Release()

	switch out.Kind {
	case gesture.Click:
		if !out.Target.Draft {
			s.toggleSelection(out.Target.ID)
		}
	case gesture.Commit:
		if !out.Changed {
			return nil
		}
		if out.Target.Draft {
			s.drafts.SetRange(out.Range.Start, out.Range.End)
			s.reanchorForm()
			return nil
		}
		s.log.Debug("gesture commit",
			zap.String("event", out.Target.ID),
			zap.Stringer("mode", mode),
			zap.Time("start", out.Range.Start),
			zap.Time("end", out.Range.End))
		return s.update(out.Target.ID, core.TimePayload(out.Range.Start, out.Range.End))
	}
	return nil
}

// KeyEscape unwinds the innermost open state.
func (s *Surface) KeyEscape() bool {
	defer s.syncListeners()
	switch {
	case s.gesture.Busy():
		s.gesture.Cancel()
		s.frames.Reset()
	case s.menu != nil:
		s.menu = nil
	case s.drafts.Open():
		s.drafts.Discard(draft.ReasonEscape)
		s.form.Unmount()
	case s.popover.Visible() && !s.popover.Closing():
		s.closePopover()
	default:
		return false
	}
	return true
}

// ContextMenu opens the quick menu for the event under p.
func (s *Surface) ContextMenu(p gesture.Point) bool {
	defer s.syncListeners()
	if s.gesture.Busy() {
		return false
	}
	hit := s.HitTest(p)
	switch hit.Kind {
	case HitBody, HitHandleStart, HitHandleEnd:
	default:
		s.menu = nil
		return false
	}
	if hit.Draft {
		return false
	}
	s.closePopover()
	withColors := len(s.palette.Event) > 0
	s.menu = &Menu{
		EventID:    hit.EventID,
		At:         placement.ClampPoint(p, s.layout.Viewport, withColors),
		WithColors: withColors,
	}
	return true
}

// Menu returns the open quick menu.
func (s *Surface) Menu() (Menu, bool) {
	if s.menu == nil {
		return Menu{}, false
	}
	return *s.menu, true
}

func (s *Surface) CloseMenu() {
	s.menu = nil
	s.syncListeners()
}

func (s *Surface) menuRect() gesture.Rect {
	h := placement.MenuHeight
	if s.menu.WithColors {
		h = placement.MenuHeightWithColors
	}
	return gesture.Rect{Left: s.menu.At.X, Top: s.menu.At.Y, Width: placement.MenuWidth, Height: h}
}

// Resize reacts to a viewport change.
func (s *Surface) Resize(viewport placement.Size) {
	s.layout.Viewport = viewport
	s.layout.ScrollTop = s.layout.clampScroll(s.layout.ScrollTop)
	s.gesture.SetColumns(s.Columns())
	s.form.Resize(viewport)
	s.popTrack.Resize(viewport)
	if s.menu != nil {
		s.menu.At = placement.ClampPoint(s.menu.At, viewport, s.menu.WithColors)
	}
}

// SetLayout replaces the geometry after the renderer changed size. The
// scroll position is kept.
func (s *Surface) SetLayout(l Layout) {
	l.ScrollTop = s.layout.ScrollTop
	s.layout = l
	s.Resize(l.Viewport)
}

// Scroll moves the grid body by dy pixels.
func (s *Surface) Scroll(dy float64) {
	next := s.layout.clampScroll(s.layout.ScrollTop + dy)
	delta := next - s.layout.ScrollTop
	if delta == 0 {
		return
	}
	s.layout.ScrollTop = next
	s.gesture.SetColumns(s.Columns())
	s.form.Scroll(0, delta)
	s.popTrack.Scroll(0, delta)
}

// Tick advances timed transitions. It reports whether a repaint is needed.
func (s *Surface) Tick(now time.Time) bool {
	changed := false
	if s.highlight != "" && !now.Before(s.pulseUntil) {
		s.highlight = ""
		changed = true
	}
	if s.popover.Tick(now) {
		s.selected = ""
		s.popTrack.Unmount()
		changed = true
	}
	s.syncListeners()
	return changed
}

// Animating reports whether Tick still has work to do.
func (s *Surface) Animating() bool {
	return s.highlight != "" || s.popover.Closing()
}

// NowLine returns today's column and the y of the now indicator.
func (s *Surface) NowLine() (int, float64, bool) {
	i := s.todayColumn()
	if i < 0 {
		return -1, 0, false
	}
	return i, s.Columns()[i].Rect.Top + timegrid.NowOffset(s.now()), true
}

func (s *Surface) todayColumn() int {
	now := s.now()
	for i, d := range s.days {
		if timegrid.IsSameDay(d.Date, now) {
			return i
		}
	}
	return -1
}

func (s *Surface) syncListeners() {
	var in Input
	if s.gesture.Busy() {
		in |= InputPointerMove | InputPointerUp | InputKeyDown
	}
	if s.drafts.Open() || s.menu != nil || s.popover.Visible() {
		in |= InputKeyDown | InputResize | InputScroll
	}
	s.listeners.Set(in)
}

func (s *Surface) indexOf(id string) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Surface) cardRect(id string) (gesture.Rect, bool) {
	for _, c := range s.Cards() {
		if c.Event.ID == id {
			return c.Rect, true
		}
	}
	return gesture.Rect{}, false
}
