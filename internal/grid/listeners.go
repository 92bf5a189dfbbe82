package grid

// Input is a global input source a surface can subscribe to.
type Input uint8

const (
	InputPointerMove Input = 1 << iota
	InputPointerUp
	InputKeyDown
	InputResize
	InputScroll
)

func (in Input) String() string {
	switch in {
	case InputPointerMove:
		return "pointermove"
	case InputPointerUp:
		return "pointerup"
	case InputKeyDown:
		return "keydown"
	case InputResize:
		return "resize"
	case InputScroll:
		return "scroll"
	}
	return "inputs"
}

// Listeners is the set of global inputs held by a surface. The set is
// recomputed after every input so each subscription lives exactly as long as
// the gesture or overlay that needs it.
type Listeners struct {
	held    Input
	changed bool
}

// Has reports whether in is subscribed.
func (l *Listeners) Has(in Input) bool { return l.held&in != 0 }

// Empty reports whether nothing is subscribed.
func (l *Listeners) Empty() bool { return l.held == 0 }

// Set replaces the subscribed set.
func (l *Listeners) Set(in Input) {
	if in != l.held {
		l.held = in
		l.changed = true
	}
}

// Release drops every subscription.
func (l *Listeners) Release() { l.Set(0) }

// Changed reports and clears whether the set changed since the last call.
func (l *Listeners) Changed() bool {
	c := l.changed
	l.changed = false
	return c
}
