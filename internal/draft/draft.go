// Package draft owns the single uncommitted event of a view, from the
// click that creates it (or the "edit" action that opens it) until it is
// saved or discarded.
package draft

import (
	"strings"
	"time"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// State of the draft slot.
type State int

const (
	None State = iota
	Creating
	Editing
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "none"
	}
}

// Reason a draft was discarded.
type Reason int

const (
	ReasonCancel Reason = iota
	ReasonEscape
	ReasonOutside
	ReasonReplaced
)

func (r Reason) String() string {
	switch r {
	case ReasonEscape:
		return "escape"
	case ReasonOutside:
		return "outside"
	case ReasonReplaced:
		return "replaced"
	default:
		return "cancel"
	}
}

// Op is the store call a save produces.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
)

// Save is the result of a successful Save: the write to issue and the
// event to show optimistically until it resolves.
type Save struct {
	Op      Op
	DraftID string
	EventID string
	Payload core.EventPayload
	Event   core.Event
}

// Machine holds at most one draft.
type Machine struct {
	state State
	draft core.EventDraft
	now   func() time.Time
	step  int
}

// New builds an empty machine. now may be nil.
func New(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now, step: timegrid.DragStep}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Open() bool   { return m.state != None }

// Draft returns the current draft.
func (m *Machine) Draft() (core.EventDraft, bool) {
	return m.draft, m.state != None
}

// Create spawns a draft from a click on empty grid space. minutes is the raw
// pointer position in the clicked day; it is snapped and the default
// duration is kept inside the day.
func (m *Machine) Create(day time.Time, minutes float64, calendarID string) core.EventDraft {
	start := timegrid.SnapFloat(minutes, m.step)
	start = timegrid.ClampMinutes(start, 0, timegrid.MinutesPerDay-timegrid.DefaultDraftMinutes)
	m.draft = core.EventDraft{
		ID:         core.NewDraftID(m.now()),
		Start:      timegrid.AtMinutes(day, start),
		End:        timegrid.AtMinutes(day, start+timegrid.DefaultDraftMinutes),
		CalendarID: calendarID,
	}
	m.state = Creating
	return m.draft
}

// Edit opens an existing event in the form.
func (m *Machine) Edit(e core.Event) core.EventDraft {
	m.draft = core.DraftFromEvent(e)
	m.state = Editing
	return m.draft
}

func (m *Machine) SetTitle(title string) {
	m.mutate(func(d *core.EventDraft) { d.Title = title })
}

func (m *Machine) SetDescription(desc string) {
	m.mutate(func(d *core.EventDraft) { d.Description = desc })
}

func (m *Machine) SetStart(t time.Time) {
	m.mutate(func(d *core.EventDraft) { d.Start = t })
}

func (m *Machine) SetEnd(t time.Time) {
	m.mutate(func(d *core.EventDraft) { d.End = t })
}

func (m *Machine) SetColor(colorID string) {
	m.mutate(func(d *core.EventDraft) { d.ColorID = colorID })
}

// SetRange stores the result of a drag or resize of the draft card.
func (m *Machine) SetRange(start, end time.Time) {
	m.mutate(func(d *core.EventDraft) {
		d.Start = start
		d.End = end
	})
}

func (m *Machine) mutate(fn func(*core.EventDraft)) {
	if m.state == None {
		return
	}
	fn(&m.draft)
	m.state = Editing
}

// Save turns the draft into a store write. A title that is empty after
// trimming blocks the save: ok is false and the draft stays open.
func (m *Machine) Save(timeZone string) (Save, bool) {
	if m.state == None || strings.TrimSpace(m.draft.Title) == "" {
		return Save{}, false
	}
	d := m.draft
	payload := d.Payload(timeZone)
	s := Save{
		DraftID: d.ID,
		Payload: payload,
		Event:   payload.Apply(d.Event()),
	}
	if d.Existing {
		s.Op = OpUpdate
		s.EventID = d.ID
	} else {
		s.Op = OpCreate
	}
	m.clear()
	return s, true
}

// Discard drops the draft without any store call.
func (m *Machine) Discard(Reason) bool {
	if m.state == None {
		return false
	}
	m.clear()
	return true
}

// OutsidePointer discards the draft when a pointer-down lands on neither the
// draft card nor its form.
func (m *Machine) OutsidePointer(onDraft, onForm bool) bool {
	if m.state == None || onDraft || onForm {
		return false
	}
	return m.Discard(ReasonOutside)
}

func (m *Machine) clear() {
	m.state = None
	m.draft = core.EventDraft{}
}
