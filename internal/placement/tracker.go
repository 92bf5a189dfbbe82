package placement

import (
	"time"

	"github.com/theakshaypant/gridcal/internal/gesture"
)

// Tracker keeps one panel positioned against its anchor. The first pass uses
// the default size; once the rendered size is reported the panel is placed
// again. Resize and scroll only mark it dirty so the repositioning happens
// once per frame.
type Tracker struct {
	preferred Side
	anchor    gesture.Rect
	viewport  Size
	measured  Size
	hasSize   bool
	mounted   bool
	dirty     bool
	current   Placement
}

func NewTracker(preferred Side) *Tracker {
	return &Tracker{preferred: preferred}
}

// Mount attaches the panel to an anchor and returns the first-pass placement.
func (t *Tracker) Mount(anchor gesture.Rect, viewport Size) Placement {
	t.anchor = anchor
	t.viewport = viewport
	t.mounted = true
	t.hasSize = false
	t.measured = Size{}
	return t.place()
}

// Measured reports the panel's real size and repositions it.
func (t *Tracker) Measured(size Size) Placement {
	if !t.mounted {
		return Placement{}
	}
	t.measured = size
	t.hasSize = true
	return t.place()
}

// Anchor moves the anchor, for example while a draft card is dragged.
func (t *Tracker) Anchor(anchor gesture.Rect) {
	if !t.mounted {
		return
	}
	t.anchor = anchor
	t.dirty = true
}

func (t *Tracker) Resize(viewport Size) {
	if !t.mounted {
		return
	}
	t.viewport = viewport
	t.dirty = true
}

// Scroll shifts the anchor by the scroll delta of its container.
func (t *Tracker) Scroll(dx, dy float64) {
	if !t.mounted {
		return
	}
	t.anchor.Left -= dx
	t.anchor.Top -= dy
	t.dirty = true
}

// Frame applies pending changes; ok is false when nothing moved.
func (t *Tracker) Frame() (Placement, bool) {
	if !t.mounted || !t.dirty {
		return t.current, false
	}
	return t.place(), true
}

func (t *Tracker) Unmount() {
	*t = Tracker{preferred: t.preferred}
}

func (t *Tracker) Mounted() bool        { return t.mounted }
func (t *Tracker) Measuring() bool      { return t.mounted && !t.hasSize }
func (t *Tracker) Placement() Placement { return t.current }

func (t *Tracker) place() Placement {
	t.dirty = false
	t.current = Place(t.anchor, t.measured, t.viewport, t.preferred)
	return t.current
}

// Popover is a detail panel with a deferred close.
type Popover struct {
	ID        string
	closingAt time.Time
	closing   bool
}

// Open shows id, cancelling any pending close.
func (p *Popover) Open(id string) {
	p.ID = id
	p.closing = false
	p.closingAt = time.Time{}
}

// Close starts the closing transition.
func (p *Popover) Close(now time.Time) {
	if p.ID == "" || p.closing {
		return
	}
	p.closing = true
	p.closingAt = now
}

// Tick removes the popover once the closing transition has elapsed.
func (p *Popover) Tick(now time.Time) bool {
	if !p.closing || now.Sub(p.closingAt) < CloseDelay {
		return false
	}
	*p = Popover{}
	return true
}

func (p *Popover) Visible() bool { return p.ID != "" }
func (p *Popover) Closing() bool { return p.closing }
