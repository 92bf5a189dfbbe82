package placement

import (
	"testing"
	"time"

	"github.com/theakshaypant/gridcal/internal/gesture"
)

func TestPlaceNearRightEdge(t *testing.T) {
	anchor := gesture.Rect{Left: 700, Top: 200, Width: 100, Height: 40}
	got := Place(anchor, Size{Width: 280, Height: 300}, Size{Width: 1000, Height: 800}, Right)
	if got.Side != Left {
		t.Fatalf("side=%v, want left", got.Side)
	}
	if got.Left != 404 {
		t.Fatalf("left=%v, want 404", got.Left)
	}
	if got.Top != 200 {
		t.Fatalf("top=%v, want 200", got.Top)
	}
}

func TestPlaceCases(t *testing.T) {
	viewport := Size{Width: 1000, Height: 800}
	tests := []struct {
		name     string
		anchor   gesture.Rect
		panel    Size
		pref     Side
		wantSide Side
		wantLeft float64
		wantTop  float64
	}{
		{"right fits", gesture.Rect{Left: 100, Top: 100, Width: 100, Height: 40}, Size{280, 300}, Right, Right, 216, 100},
		{"left preferred fits", gesture.Rect{Left: 500, Top: 100, Width: 100, Height: 40}, Size{280, 300}, Left, Left, 204, 100},
		{"left preferred falls back", gesture.Rect{Left: 100, Top: 100, Width: 100, Height: 40}, Size{280, 300}, Left, Right, 216, 100},
		{"neither fits takes wider side", gesture.Rect{Left: 300, Top: 100, Width: 500, Height: 40}, Size{400, 300}, Right, Left, 12, 100},
		{"bottom clamp", gesture.Rect{Left: 100, Top: 700, Width: 100, Height: 40}, Size{280, 300}, Right, Right, 216, 488},
		{"top clamp", gesture.Rect{Left: 100, Top: -50, Width: 100, Height: 40}, Size{280, 300}, Right, Right, 216, 12},
		{"unmeasured uses default", gesture.Rect{Left: 100, Top: 100, Width: 100, Height: 40}, Size{}, Right, Right, 216, 100},
	}
	for _, tt := range tests {
		got := Place(tt.anchor, tt.panel, viewport, tt.pref)
		if got.Side != tt.wantSide || got.Left != tt.wantLeft || got.Top != tt.wantTop {
			t.Fatalf("%s: got=%+v, want side=%v left=%v top=%v", tt.name, got, tt.wantSide, tt.wantLeft, tt.wantTop)
		}
		if got.MaxHeight != 776 {
			t.Fatalf("%s: maxHeight=%v, want 776", tt.name, got.MaxHeight)
		}
	}
}

func TestPlaceStaysInViewport(t *testing.T) {
	viewport := Size{Width: 640, Height: 480}
	panel := Size{Width: 280, Height: 320}
	for x := -100.0; x <= 740; x += 37 {
		for y := -100.0; y <= 580; y += 41 {
			p := Place(gesture.Rect{Left: x, Top: y, Width: 60, Height: 30}, panel, viewport, Right)
			if p.Left < Margin || p.Left+p.Width > viewport.Width-Margin {
				t.Fatalf("anchor (%v,%v): left=%v out of viewport", x, y, p.Left)
			}
			if p.Top < Margin || p.Top+panel.Height > viewport.Height-Margin {
				t.Fatalf("anchor (%v,%v): top=%v out of viewport", x, y, p.Top)
			}
		}
	}
}

func TestClampPoint(t *testing.T) {
	vp := Size{Width: 800, Height: 600}
	if got := ClampPoint(gesture.Point{X: 790, Y: 590}, vp, true); got.X != 468 || got.Y != 368 {
		t.Fatalf("got=%+v, want (468,368)", got)
	}
	if got := ClampPoint(gesture.Point{X: 790, Y: 590}, vp, false); got.Y != 438 {
		t.Fatalf("y=%v, want 438", got.Y)
	}
	if got := ClampPoint(gesture.Point{X: -5, Y: 3}, vp, false); got.X != 12 || got.Y != 12 {
		t.Fatalf("got=%+v, want (12,12)", got)
	}
}

func TestTrackerTwoPass(t *testing.T) {
	tr := NewTracker(Right)
	vp := Size{Width: 1000, Height: 800}
	first := tr.Mount(gesture.Rect{Left: 100, Top: 600, Width: 100, Height: 40}, vp)
	if !tr.Measuring() || first.Top != 468 {
		t.Fatalf("first pass=%+v measuring=%v", first, tr.Measuring())
	}
	second := tr.Measured(Size{Width: 280, Height: 150})
	if tr.Measuring() || second.Top != 600 {
		t.Fatalf("second pass=%+v", second)
	}
	if _, ok := tr.Frame(); ok {
		t.Fatal("frame moved a clean panel")
	}
	tr.Scroll(0, 100)
	tr.Resize(Size{Width: 1000, Height: 700})
	p, ok := tr.Frame()
	if !ok || p.Top != 500 {
		t.Fatalf("after scroll=%+v ok=%v, want top 500", p, ok)
	}
	tr.Unmount()
	if tr.Mounted() {
		t.Fatal("still mounted")
	}
}

func TestPopoverClosing(t *testing.T) {
	var p Popover
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p.Open("a")
	p.Close(start)
	if !p.Visible() || !p.Closing() {
		t.Fatal("popover not rendering as closing")
	}
	if p.Tick(start.Add(100 * time.Millisecond)) {
		t.Fatal("removed before delay")
	}
	if !p.Tick(start.Add(CloseDelay)) || p.Visible() {
		t.Fatal("not removed after delay")
	}

	p.Open("b")
	p.Close(start)
	p.Open("c")
	if p.Closing() || p.Tick(start.Add(time.Second)) {
		t.Fatal("reopen did not cancel close")
	}
}
