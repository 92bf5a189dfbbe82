package grid

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/draft"
	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/placement"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// 2026-03-10 is a Tuesday.
var (
	fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	today    = time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
)

func newSurface(events ...core.Event) *Surface {
	s := New(Focus, fixedNow, Options{Now: func() time.Time { return fixedNow }})
	s.SetEvents(events)
	return s
}

func event(id string, day time.Time, startMinutes, endMinutes int) core.Event {
	return core.Event{
		ID:    id,
		Title: id,
		Start: timegrid.AtMinutes(day, startMinutes),
		End:   timegrid.AtMinutes(day, endMinutes),
	}
}

// pt is the centre x of column col at minute m, with the default layout.
func pt(col int, m float64) gesture.Point {
	l := DefaultLayout()
	return gesture.Point{
		X: l.Left + float64(col)*(l.ColumnWidth+l.ColumnGap) + l.ColumnWidth/2,
		Y: l.Top + m*timegrid.PixelsPerMinute,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestDays(t *testing.T) {
	focus := Days(Focus, fixedNow)
	if len(focus) != 3 || !focus[0].Date.Equal(timegrid.AddDays(today, -1)) || !focus[1].Date.Equal(today) {
		t.Fatalf("focus days=%v", focus)
	}
	week := Days(Week, fixedNow)
	if len(week) != 7 || week[0].Date.Weekday() != time.Sunday || week[0].Date.Day() != 8 {
		t.Fatalf("week starts %v, want Sunday 8", week[0].Date)
	}
	cells := MonthCells(fixedNow)
	if len(cells) != 35 || cells[0].Day() != 1 {
		t.Fatalf("month cells=%d first=%v", len(cells), cells[0])
	}
	start, end := Range(Week, fixedNow)
	if !start.Equal(week[0].Date) || !timegrid.IsSameDay(end, week[6].Date) {
		t.Fatalf("range=%v..%v", start, end)
	}
}

func TestStepMonthFromLastDay(t *testing.T) {
	cases := []struct {
		ref  time.Time
		dir  int
		want time.Month
	}{
		{time.Date(2026, 1, 31, 0, 0, 0, 0, time.Local), 1, time.February},
		{time.Date(2026, 3, 31, 0, 0, 0, 0, time.Local), -1, time.February},
		{time.Date(2026, 12, 30, 0, 0, 0, 0, time.Local), 1, time.January},
		{time.Date(2026, 5, 29, 0, 0, 0, 0, time.Local), 1, time.June},
	}
	for _, c := range cases {
		if got := Step(Month, c.ref, c.dir); got.Month() != c.want {
			t.Errorf("Step(Month, %s, %+d) = %s, want %s", c.ref.Format("2006-01-02"), c.dir, got.Format("2006-01-02"), c.want)
		}
	}
}

func TestCardGeometry(t *testing.T) {
	l := DefaultLayout()
	col := l.Columns(Days(Focus, fixedNow))[1]
	r := l.CardRect(col, timegrid.AtMinutes(today, 540), timegrid.AtMinutes(today, 600))
	if !approx(r.Top-col.Rect.Top, 594) || !approx(r.Height, 66) {
		t.Fatalf("top=%v height=%v, want 594 66", r.Top-col.Rect.Top, r.Height)
	}
	short := l.CardRect(col, timegrid.AtMinutes(today, 540), timegrid.AtMinutes(today, 550))
	if short.Height != timegrid.MinCardHeight {
		t.Fatalf("short height=%v, want %v", short.Height, timegrid.MinCardHeight)
	}
	late := l.CardRect(col, timegrid.AtMinutes(today, 1380), timegrid.AtMinutes(today, 1500))
	if !approx(late.Bottom(), col.Rect.Bottom()) {
		t.Fatalf("late card bottom=%v, want column bottom %v", late.Bottom(), col.Rect.Bottom())
	}
}

func TestDragCommitsSnappedMove(t *testing.T) {
	s := newSurface(event("a", today, 60, 120))

	s.PointerDown(pt(1, 70))
	if !s.Listeners().Has(InputPointerMove) {
		t.Fatal("pointer listeners not acquired")
	}
	if !s.PointerMove(pt(1, 100)) {
		t.Fatal("first sample did not request a frame")
	}
	if s.PointerMove(pt(1, 101)) {
		t.Fatal("second sample requested another frame")
	}
	if !s.Frame() {
		t.Fatal("frame reported no change")
	}
	g, ok := s.Ghost()
	if !ok || g.Label != "01:30 - 02:30" {
		t.Fatalf("ghost=%+v ok=%v", g, ok)
	}

	effects := s.PointerUp(pt(1, 100))
	if len(effects) != 1 || effects[0].Kind != EffectUpdate || effects[0].EventID != "a" {
		t.Fatalf("effects=%+v", effects)
	}
	p := effects[0].Payload
	if !p.Start.Equal(timegrid.AtMinutes(today, 90)) || !p.End.Equal(timegrid.AtMinutes(today, 150)) {
		t.Fatalf("payload %v..%v, want 01:30..02:30", p.Start, p.End)
	}
	if got := s.Events()[0]; !got.Start.Equal(*p.Start) {
		t.Fatalf("local event not updated: %v", got.Start)
	}
	if s.Listeners().Has(InputPointerMove) {
		t.Fatal("pointer listeners still held after release")
	}
}

func TestDragToAnotherDay(t *testing.T) {
	s := newSurface(event("a", today, 600, 660))
	s.PointerDown(pt(1, 610))
	s.PointerMove(pt(2, 700))
	s.Frame()
	effects := s.PointerUp(pt(2, 700))
	if len(effects) != 1 {
		t.Fatalf("effects=%+v", effects)
	}
	tomorrow := timegrid.AddDays(today, 1)
	if got := *effects[0].Payload.Start; !got.Equal(timegrid.AtMinutes(tomorrow, 690)) {
		t.Fatalf("start=%v, want tomorrow 11:30", got)
	}
}

func TestResizeEndClamp(t *testing.T) {
	s := newSurface(event("a", today, 480, 540))
	card, ok := s.cardRect("a")
	if !ok {
		t.Fatal("card not laid out")
	}
	s.PointerDown(gesture.Point{X: card.Left + 10, Y: card.Bottom() - 2})
	if s.Gesture() != gesture.Active {
		t.Fatalf("phase=%v, want active", s.Gesture())
	}
	s.PointerMove(pt(1, 5))
	s.Frame()
	effects := s.PointerUp(pt(1, 5))
	if len(effects) != 1 || !effects[0].Payload.End.Equal(timegrid.AtMinutes(today, 495)) {
		t.Fatalf("effects=%+v, want end 08:15", effects)
	}
}

func TestHandleClickDoesNotWrite(t *testing.T) {
	s := newSurface(event("a", today, 660, 750))
	card, ok := s.cardRect("a")
	if !ok {
		t.Fatal("card not laid out")
	}
	p := gesture.Point{X: card.Left + 10, Y: card.Top + 2}
	s.PointerDown(p)
	if s.Gesture() != gesture.Active {
		t.Fatalf("phase=%v, want active", s.Gesture())
	}
	if effects := s.PointerUp(p); effects != nil {
		t.Fatalf("click on handle produced %+v", effects)
	}
	got := s.Events()[0]
	if !got.Start.Equal(timegrid.AtMinutes(today, 660)) || !got.End.Equal(timegrid.AtMinutes(today, 750)) {
		t.Fatalf("event moved to %v..%v", got.Start, got.End)
	}
}

func TestEscapeCancelsDrag(t *testing.T) {
	orig := event("a", today, 840, 900)
	s := newSurface(orig)
	s.PointerDown(pt(1, 850))
	s.PointerMove(pt(1, 1000))
	s.Frame()
	if !s.KeyEscape() {
		t.Fatal("escape not handled")
	}
	if effects := s.PointerUp(pt(1, 1000)); effects != nil {
		t.Fatalf("release after escape produced %+v", effects)
	}
	got := s.Events()[0]
	if !got.Start.Equal(orig.Start) || !got.End.Equal(orig.End) {
		t.Fatalf("event moved to %v..%v", got.Start, got.End)
	}
	if !s.Listeners().Empty() {
		t.Fatal("listeners held after cancel")
	}
}

func TestDraftLifecycle(t *testing.T) {
	s := newSurface()
	s.PointerDown(pt(1, 602))
	d, ok := s.Draft()
	if !ok || s.DraftState() != draft.Creating {
		t.Fatalf("draft=%+v ok=%v", d, ok)
	}
	if !d.Start.Equal(timegrid.AtMinutes(today, 600)) || !d.End.Equal(timegrid.AtMinutes(today, 660)) {
		t.Fatalf("draft range %v..%v", d.Start, d.End)
	}
	if _, ok := s.Form(); !ok {
		t.Fatal("form not mounted")
	}
	if !s.Listeners().Has(InputKeyDown) || !s.Listeners().Has(InputResize) {
		t.Fatal("draft listeners not acquired")
	}

	if effects := s.SaveDraft(); effects != nil {
		t.Fatalf("blank save produced %+v", effects)
	}
	if _, ok := s.Draft(); !ok {
		t.Fatal("blank save closed the draft")
	}

	s.UpdateDraft(func(m *draft.Machine) { m.SetTitle("Lunch") })
	effects := s.SaveDraft()
	if len(effects) != 1 || effects[0].Kind != EffectCreate || effects[0].EventID != d.ID {
		t.Fatalf("effects=%+v", effects)
	}
	if _, ok := s.Draft(); ok {
		t.Fatal("draft open after save")
	}
	if len(s.Events()) != 1 || s.Events()[0].ID != d.ID {
		t.Fatalf("optimistic events=%+v", s.Events())
	}

	store := &fakeStore{}
	res, err := Apply(context.Background(), store, effects[0])
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s.Reconcile(res)
	if got := s.Events()[0]; got.ID != "stored-1" || got.Title != "Lunch" {
		t.Fatalf("reconciled=%+v", got)
	}
	if !s.Listeners().Empty() {
		t.Fatal("listeners held after save")
	}
}

func TestDraftDragUpdatesDraftOnly(t *testing.T) {
	s := newSurface()
	s.PointerDown(pt(0, 300))
	s.PointerDown(pt(0, 310))
	s.PointerMove(pt(0, 400))
	s.Frame()
	if effects := s.PointerUp(pt(0, 400)); effects != nil {
		t.Fatalf("draft drag produced %+v", effects)
	}
	d, _ := s.Draft()
	if !d.Start.Equal(timegrid.AtMinutes(timegrid.AddDays(today, -1), 390)) {
		t.Fatalf("draft start=%v, want 06:30 yesterday", d.Start)
	}
	if s.DraftState() != draft.Editing {
		t.Fatalf("state=%v, want editing", s.DraftState())
	}
}

func TestOutsidePointerDiscardsDraft(t *testing.T) {
	s := newSurface()
	s.PointerDown(pt(1, 600))
	s.PointerDown(gesture.Point{X: 10, Y: 10})
	if _, ok := s.Draft(); ok {
		t.Fatal("outside pointer kept the draft")
	}
	if _, ok := s.Form(); ok {
		t.Fatal("form still mounted")
	}
}

func TestEscapeDiscardsDraft(t *testing.T) {
	s := newSurface()
	s.PointerDown(pt(2, 60))
	if !s.KeyEscape() {
		t.Fatal("escape not handled")
	}
	if _, ok := s.Draft(); ok {
		t.Fatal("escape kept the draft")
	}
	if s.KeyEscape() {
		t.Fatal("escape with nothing open reported handled")
	}
}

func TestSelectionPopover(t *testing.T) {
	s := newSurface(event("a", today, 600, 660))
	s.PointerDown(pt(1, 620))
	if effects := s.PointerUp(pt(1, 621)); effects != nil {
		t.Fatalf("click produced %+v", effects)
	}
	if ev, ok := s.Selected(); !ok || ev.ID != "a" {
		t.Fatalf("selected=%+v ok=%v", ev, ok)
	}
	pop, ok := s.Popover()
	if !ok || pop.Closing || pop.Placement.Side != placement.Right {
		t.Fatalf("popover=%+v ok=%v", pop, ok)
	}

	s.PointerDown(pt(0, 100))
	pop, _ = s.Popover()
	if !pop.Closing {
		t.Fatal("outside pointer did not start closing")
	}
	s.KeyEscape()
	if s.Tick(fixedNow.Add(100 * time.Millisecond)) {
		t.Fatal("popover removed before the close delay")
	}
	s.Tick(fixedNow.Add(placement.CloseDelay))
	if _, ok := s.Popover(); ok {
		t.Fatal("popover not removed")
	}
}

func TestQuickMenu(t *testing.T) {
	s := newSurface(event("a", today, 600, 660))
	s.SetPalette(core.Palette{Event: map[string]core.Color{"5": {Background: "#fbd75b"}}})
	if !s.ContextMenu(pt(1, 620)) {
		t.Fatal("menu did not open")
	}
	m, ok := s.Menu()
	if !ok || m.EventID != "a" || !m.WithColors {
		t.Fatalf("menu=%+v", m)
	}
	if s.HitTest(m.At).Kind != HitMenu {
		t.Fatal("menu not hit at its own origin")
	}
	effects := s.Recolor("a", "5")
	if len(effects) != 1 || *effects[0].Payload.ColorID != "5" {
		t.Fatalf("effects=%+v", effects)
	}
	if got := s.Events()[0]; got.Color != "#fbd75b" {
		t.Fatalf("color=%q", got.Color)
	}
	if _, ok := s.Menu(); ok {
		t.Fatal("menu open after recolor")
	}
}

func TestEditDeleteToggle(t *testing.T) {
	s := newSurface(event("a", today, 600, 660), event("b", today, 700, 760))
	if !s.EditEvent("a") || s.DraftState() != draft.Editing {
		t.Fatal("edit did not open the form")
	}
	for _, c := range s.Cards() {
		if c.Event.ID == "a" && !c.Draft {
			t.Fatal("edited event rendered twice")
		}
	}
	s.UpdateDraft(func(m *draft.Machine) { m.SetTitle("renamed") })
	effects := s.SaveDraft()
	if len(effects) != 1 || effects[0].Kind != EffectUpdate || *effects[0].Payload.Title != "renamed" {
		t.Fatalf("effects=%+v", effects)
	}

	effects = s.ToggleComplete("b")
	if len(effects) != 1 || effects[0].Kind != EffectToggle || !s.Events()[1].Completed {
		t.Fatalf("toggle effects=%+v", effects)
	}
	effects = s.DeleteEvent("b")
	if len(effects) != 1 || effects[0].Kind != EffectDelete || len(s.Events()) != 1 {
		t.Fatalf("delete effects=%+v", effects)
	}
}

func TestToggleUnknownToStoreIsUndone(t *testing.T) {
	s := newSurface(event("a", today, 600, 660))
	effects := s.ToggleComplete("a")
	if len(effects) != 1 || !s.Events()[0].Completed {
		t.Fatalf("effects=%+v", effects)
	}
	s.Reconcile(Result{Effect: effects[0]})
	if s.Events()[0].Completed {
		t.Fatal("local flip kept after the store returned no event")
	}
}

func TestSaveClearsDescriptionAndColor(t *testing.T) {
	e := event("a", today, 600, 660)
	e.Description = "old notes"
	e.ColorID = "5"
	s := newSurface(e)
	s.EditEvent("a")
	s.UpdateDraft(func(m *draft.Machine) {
		m.SetDescription("")
		m.SetColor("")
	})
	effects := s.SaveDraft()
	if len(effects) != 1 {
		t.Fatalf("effects=%+v", effects)
	}
	p := effects[0].Payload
	if p.Description == nil || p.ColorID == nil {
		t.Fatalf("payload Description nil=%v ColorID nil=%v", p.Description == nil, p.ColorID == nil)
	}
	if got := s.Events()[0]; got.Description != "" || got.ColorID != "" {
		t.Errorf("local desc=%q color=%q", got.Description, got.ColorID)
	}
}

func TestHighlightAndMount(t *testing.T) {
	s := newSurface(event("now", today, 690, 750))
	s.Mount()
	if !approx(s.Layout().ScrollTop, 792-752*0.35) {
		t.Fatalf("scroll=%v", s.Layout().ScrollTop)
	}
	col, y, ok := s.NowLine()
	if !ok || col != 1 || !approx(y, 48-s.Layout().ScrollTop+792) {
		t.Fatalf("now line col=%d y=%v", col, y)
	}
	highlighted := false
	for _, c := range s.Cards() {
		highlighted = highlighted || c.Highlighted
	}
	if !highlighted || !s.Animating() {
		t.Fatal("running event not highlighted")
	}
	if !s.Tick(fixedNow.Add(HighlightDuration)) || s.Animating() {
		t.Fatal("highlight did not expire")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	s := newSurface(event("a", today, 600, 660))
	s.PointerDown(pt(1, 300))
	s.Close()
	if !s.Listeners().Empty() {
		t.Fatal("listeners held after close")
	}
	if _, ok := s.Draft(); ok {
		t.Fatal("draft survived close")
	}
}

func TestApplyPropagatesUnauthorized(t *testing.T) {
	store := &fakeStore{err: core.ErrUnauthorized}
	_, err := Apply(context.Background(), store, Effect{Kind: EffectDelete, EventID: "a"})
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("err=%v, want unauthorized", err)
	}
}

type fakeStore struct {
	calls int
	err   error
}

func (f *fakeStore) ListRange(context.Context, time.Time, time.Time) ([]core.Event, error) {
	return nil, f.err
}

func (f *fakeStore) Create(_ context.Context, p core.EventPayload) (core.Event, error) {
	f.calls++
	if f.err != nil {
		return core.Event{}, f.err
	}
	return p.Apply(core.Event{ID: "stored-1"}), nil
}

func (f *fakeStore) Update(_ context.Context, id string, p core.EventPayload) (core.Event, error) {
	f.calls++
	return p.Apply(core.Event{ID: id}), f.err
}

func (f *fakeStore) ToggleComplete(_ context.Context, id string) (*core.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.Event{ID: id, Completed: true}, nil
}

func (f *fakeStore) Delete(context.Context, string) error {
	f.calls++
	return f.err
}

func (f *fakeStore) Colors(context.Context) (core.Palette, error) {
	return core.Palette{}, f.err
}
