package grid

import (
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/draft"
	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/placement"
)

// Selected returns the event whose popover is open.
func (s *Surface) Selected() (core.Event, bool) {
	if s.selected == "" {
		return core.Event{}, false
	}
	i := s.indexOf(s.selected)
	if i < 0 {
		return core.Event{}, false
	}
	return s.events[i], true
}

// Select opens the popover of id, or closes it when id is already selected.
func (s *Surface) Select(id string) {
	s.toggleSelection(id)
	s.syncListeners()
}

func (s *Surface) toggleSelection(id string) {
	if s.selected == id && !s.popover.Closing() {
		s.closePopover()
		return
	}
	anchor, ok := s.cardRect(id)
	if !ok {
		return
	}
	s.selected = id
	s.popover.Open(id)
	s.popTrack.Mount(anchor, s.layout.Viewport)
	s.popHeight = placement.DefaultHeight
}

// Popover returns the placement of the selected event's popover.
func (s *Surface) Popover() (Panel, bool) {
	if !s.popover.Visible() {
		return Panel{}, false
	}
	return Panel{Placement: s.popTrack.Placement(), Closing: s.popover.Closing()}, true
}

// MeasurePopover reports the rendered popover size (second placement pass).
func (s *Surface) MeasurePopover(size placement.Size) {
	if s.popTrack.Mounted() {
		s.popHeight = size.Height
		s.popTrack.Measured(size)
	}
}

// ClosePopover starts the closing transition of the popover.
func (s *Surface) ClosePopover() {
	s.closePopover()
	s.syncListeners()
}

func (s *Surface) closePopover() {
	if s.popover.Visible() {
		s.popover.Close(s.now())
	}
}

func (s *Surface) dropPopover() {
	s.selected = ""
	s.popover = placement.Popover{}
	s.popTrack.Unmount()
}

// EditSelected opens the form for the event in the quick menu or popover.
func (s *Surface) EditSelected() bool {
	id := s.selected
	if s.menu != nil {
		id = s.menu.EventID
	}
	if id == "" {
		return false
	}
	return s.EditEvent(id)
}

// EditEvent opens the form for id, replacing any open draft.
func (s *Surface) EditEvent(id string) bool {
	defer s.syncListeners()
	i := s.indexOf(id)
	if i < 0 || s.gesture.Busy() {
		return false
	}
	s.menu = nil
	s.dropPopover()
	s.drafts.Discard(draft.ReasonReplaced)
	s.drafts.Edit(s.events[i])
	s.mountForm()
	return true
}

// UpdateDraft applies form edits to the draft and moves the form with it.
func (s *Surface) UpdateDraft(fn func(*draft.Machine)) {
	if !s.drafts.Open() {
		return
	}
	fn(s.drafts)
	s.reanchorForm()
}

// Draft returns the open draft.
func (s *Surface) Draft() (core.EventDraft, bool) { return s.drafts.Draft() }

// DraftState is the draft machine state.
func (s *Surface) DraftState() draft.State { return s.drafts.State() }

// Form returns the placement of the draft form.
func (s *Surface) Form() (Panel, bool) {
	if !s.drafts.Open() || !s.form.Mounted() {
		return Panel{}, false
	}
	return Panel{Placement: s.form.Placement()}, true
}

// MeasureForm reports the rendered form size (second placement pass).
func (s *Surface) MeasureForm(size placement.Size) {
	if s.form.Mounted() {
		s.formHeight = size.Height
		s.form.Measured(size)
	}
}

func (s *Surface) mountForm() {
	d, ok := s.drafts.Draft()
	if !ok {
		return
	}
	anchor, ok := s.cardRect(d.ID)
	if !ok {
		anchor = gesture.Rect{Left: s.layout.Left, Top: s.layout.Top}
	}
	s.formHeight = placement.DefaultHeight
	s.form.Mount(anchor, s.layout.Viewport)
}

func (s *Surface) reanchorForm() {
	d, ok := s.drafts.Draft()
	if !ok || !s.form.Mounted() {
		return
	}
	if anchor, ok := s.cardRect(d.ID); ok {
		s.form.Anchor(anchor)
	}
}

// SaveDraft turns the draft into a create or update. A blank title blocks
// the save and leaves the form open.
func (s *Surface) SaveDraft() []Effect {
	defer s.syncListeners()
	saved, ok := s.drafts.Save(s.timeZone)
	if !ok {
		return nil
	}
	s.form.Unmount()
	switch saved.Op {
	case draft.OpUpdate:
		return s.update(saved.EventID, saved.Payload)
	default:
		s.events = append(s.events, saved.Event)
		core.SortByStart(s.events)
		s.log.Debug("draft saved", zap.String("draft", saved.DraftID))
		return []Effect{{Kind: EffectCreate, EventID: saved.DraftID, Payload: saved.Payload}}
	}
}

// CancelDraft discards the draft without a store call.
func (s *Surface) CancelDraft() {
	if s.drafts.Discard(draft.ReasonCancel) {
		s.form.Unmount()
	}
	s.syncListeners()
}

// DeleteEvent removes id locally and returns the delete. Events that were
// never stored are only removed.
func (s *Surface) DeleteEvent(id string) []Effect {
	defer s.syncListeners()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	if s.selected == id {
		s.dropPopover()
	}
	if s.menu != nil && s.menu.EventID == id {
		s.menu = nil
	}
	if d, ok := s.drafts.Draft(); ok && d.ID == id {
		s.drafts.Discard(draft.ReasonReplaced)
		s.form.Unmount()
	}
	if core.IsDraftID(id) {
		return nil
	}
	return []Effect{{Kind: EffectDelete, EventID: id}}
}

// ToggleComplete flips the completion flag of id.
func (s *Surface) ToggleComplete(id string) []Effect {
	i := s.indexOf(id)
	if i < 0 || core.IsDraftID(id) {
		return nil
	}
	s.events[i].Completed = !s.events[i].Completed
	return []Effect{{Kind: EffectToggle, EventID: id}}
}

// Recolor sets the colour of id; an empty colorID restores the calendar
// default.
func (s *Surface) Recolor(id, colorID string) []Effect {
	defer s.syncListeners()
	s.menu = nil
	if core.IsDraftID(id) {
		return nil
	}
	return s.update(id, core.ColorPayload(colorID))
}

func (s *Surface) update(id string, payload core.EventPayload) []Effect {
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	e := payload.Apply(s.events[i])
	if payload.ColorID != nil {
		e.Color = ""
		if c, ok := s.palette.Resolve(*payload.ColorID); ok {
			e.Color = c.Background
		}
	}
	s.events[i] = e
	core.SortByStart(s.events)
	if s.selected == id && s.popTrack.Mounted() {
		if anchor, ok := s.cardRect(id); ok {
			s.popTrack.Anchor(anchor)
		}
	}
	return []Effect{{Kind: EffectUpdate, EventID: id, Payload: payload}}
}

// Reconcile folds a completed effect back into the local list. Creates swap
// the draft id for the stored event.
func (s *Surface) Reconcile(res Result) {
	switch res.Effect.Kind {
	case EffectCreate:
		i := s.indexOf(res.Effect.EventID)
		if i < 0 || res.Event == nil {
			return
		}
		s.events[i] = *res.Event
		if s.selected == res.Effect.EventID {
			s.selected = res.Event.ID
			s.popover.ID = res.Event.ID
		}
	case EffectUpdate:
		i := s.indexOf(res.Effect.EventID)
		if i < 0 || res.Event == nil {
			return
		}
		s.events[i] = *res.Event
	case EffectToggle:
		i := s.indexOf(res.Effect.EventID)
		if i < 0 {
			return
		}
		if res.Event == nil {
			// The store did not know the event; take back the local flip.
			s.events[i].Completed = !s.events[i].Completed
			return
		}
		s.events[i].Completed = res.Event.Completed
	case EffectDelete:
		if i := s.indexOf(res.Effect.EventID); i >= 0 {
			s.events = append(s.events[:i], s.events[i+1:]...)
		}
	}
	core.SortByStart(s.events)
}
