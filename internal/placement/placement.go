// Package placement positions floating panels (the event form, detail
// popovers and the quick menu) next to an anchor without leaving the
// viewport.
package placement

import (
	"math"
	"time"

	"github.com/theakshaypant/gridcal/internal/gesture"
)

const (
	Gap    = 16.0
	Margin = 12.0

	DefaultWidth  = 280.0
	DefaultHeight = 320.0

	// CloseDelay is how long a popover renders as closing before removal.
	CloseDelay = 180 * time.Millisecond

	MenuWidth            = 320.0
	MenuHeightWithColors = 220.0
	MenuHeight           = 150.0
)

// Side of the anchor a panel sits on.
type Side int

const (
	Right Side = iota
	Left
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

func (s Side) opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Size of a panel or viewport.
type Size struct {
	Width  float64
	Height float64
}

// Placement is where a panel goes.
type Placement struct {
	Left      float64
	Top       float64
	Width     float64
	MaxHeight float64
	Side      Side
}

// Place computes a panel position beside anchor. The preferred side wins if
// the panel fits there, then the opposite side, then whichever side has more
// room.
func Place(anchor gesture.Rect, panel, viewport Size, preferred Side) Placement {
	if panel.Width <= 0 {
		panel.Width = DefaultWidth
	}
	if panel.Height <= 0 {
		panel.Height = DefaultHeight
	}

	side := preferred
	switch {
	case fits(anchor, panel, viewport, preferred):
	case fits(anchor, panel, viewport, preferred.opposite()):
		side = preferred.opposite()
	default:
		if space(anchor, viewport, Left) > space(anchor, viewport, Right) {
			side = Left
		} else {
			side = Right
		}
	}

	left := anchor.Right() + Gap
	if side == Left {
		left = anchor.Left - Gap - panel.Width
	}
	left = math.Max(Margin, math.Min(left, viewport.Width-panel.Width-Margin))

	top := math.Min(
		math.Max(Margin, anchor.Top),
		math.Max(Margin, viewport.Height-panel.Height-Margin),
	)

	return Placement{
		Left:      left,
		Top:       top,
		Width:     panel.Width,
		MaxHeight: math.Max(0, viewport.Height-2*Margin),
		Side:      side,
	}
}

func fits(anchor gesture.Rect, panel, viewport Size, side Side) bool {
	return space(anchor, viewport, side) >= panel.Width
}

func space(anchor gesture.Rect, viewport Size, side Side) float64 {
	if side == Left {
		return anchor.Left - Gap
	}
	return viewport.Width - anchor.Right() - Gap
}

// ClampPoint keeps a quick menu opened at p inside the viewport, using the
// menu's estimated size.
func ClampPoint(p gesture.Point, viewport Size, withColors bool) gesture.Point {
	h := MenuHeight
	if withColors {
		h = MenuHeightWithColors
	}
	return gesture.Point{
		X: math.Max(Margin, math.Min(p.X, viewport.Width-MenuWidth-Margin)),
		Y: math.Max(Margin, math.Min(p.Y, viewport.Height-h-Margin)),
	}
}
