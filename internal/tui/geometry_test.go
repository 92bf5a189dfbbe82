package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/grid"
)

func TestLayoutFor(t *testing.T) {
	l := layoutFor(120, 40, 7)
	if l.Left != gutterCells*cellWidth {
		t.Errorf("Left=%v", l.Left)
	}
	if l.Top != 2*cellHeight {
		t.Errorf("Top=%v", l.Top)
	}
	// (120 - 6 gutter - 6 gaps) / 7 = 15 cells
	if l.ColumnWidth != 15*cellWidth {
		t.Errorf("ColumnWidth=%v, want %v", l.ColumnWidth, 15*cellWidth)
	}
	if l.Viewport.Height != 39*cellHeight {
		t.Errorf("viewport height=%v", l.Viewport.Height)
	}

	narrow := layoutFor(20, 10, 7)
	if narrow.ColumnWidth != minColumnCells*cellWidth {
		t.Errorf("narrow ColumnWidth=%v", narrow.ColumnWidth)
	}
}

func TestRowsAreQuarterHours(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	l := layoutFor(120, 40, 3)
	cols := l.Columns([]grid.Day{{Date: day}})
	r := l.CardRect(cols[0], day.Add(9*time.Hour), day.Add(10*time.Hour))

	x0, y0, x1, y1 := cellBox(r)
	// Two header rows, then 36 quarter hours to 09:00.
	if y0 != 38 || y1 != 42 {
		t.Errorf("rows=[%d,%d), want [38,42)", y0, y1)
	}
	if x0 != gutterCells || x1-x0 != int(l.ColumnWidth/cellWidth) {
		t.Errorf("cols=[%d,%d)", x0, x1)
	}
}

func TestToPointHitsCell(t *testing.T) {
	p := toPoint(10, 5)
	if colOf(p.X) != 10 || rowOf(p.Y) != 5 {
		t.Errorf("round trip: %v -> (%d,%d)", p, colOf(p.X), rowOf(p.Y))
	}
	r := gesture.Rect{Left: 80, Top: 5 * cellHeight, Width: 8, Height: cellHeight}
	if !r.Contains(p) {
		t.Error("cell centre outside its own box")
	}
}

func TestAlignedScroll(t *testing.T) {
	if got := alignedScroll(330.8); got != 20*cellHeight {
		t.Errorf("alignedScroll=%v", got)
	}
}

func TestCanvasText(t *testing.T) {
	c := newCanvas(8, 2)
	c.text(0, 0, 8, "hello", "")
	c.text(2, 1, 4, "truncated", "")
	lines := c.lines()
	if lines[0] != "hello   " {
		t.Errorf("line 0 = %q", lines[0])
	}
	if got := ansi.Strip(lines[1]); got != "  tru…  " {
		t.Errorf("line 1 = %q", got)
	}
}

func TestCanvasWideRunes(t *testing.T) {
	c := newCanvas(6, 1)
	n := c.text(0, 0, 6, "日本", "")
	if n != 4 {
		t.Errorf("wrote %d cells, want 4", n)
	}
	if got := c.lines()[0]; got != "日本  " {
		t.Errorf("line = %q", got)
	}
}

func TestCanvasFillClips(t *testing.T) {
	c := newCanvas(4, 2)
	key := c.use("x", GhostStyle)
	c.fill(-2, -1, 10, 10, key)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if c.styleAt(x, y) != key {
				t.Fatalf("cell (%d,%d) not filled", x, y)
			}
		}
	}
	if c.styleAt(4, 0) != "" {
		t.Error("styleAt outside the canvas should be empty")
	}
}

func TestOverlay(t *testing.T) {
	base := []string{"abcdefghij", "0123456789", "short"}
	out := overlay(base, "XY\nZW", 3, 1)
	want := []string{"abcdefghij", "012XY56789", "shoZW"}
	for i := range want {
		if got := ansi.Strip(out[i]); got != want[i] {
			t.Errorf("row %d = %q, want %q", i, got, want[i])
		}
	}

	padded := overlay([]string{"ab"}, "Z", 4, 0)
	if got := ansi.Strip(padded[0]); got != "ab  Z" {
		t.Errorf("padded row = %q", got)
	}
}

func TestMonthCellAt(t *testing.T) {
	// 70 wide, 5 weeks over rows 2..36.
	i, ok := monthCellAt(25, 2+7*2+1, 70, 38, 5)
	if !ok || i != 2*7+2 {
		t.Errorf("cell=%d ok=%v, want 16", i, ok)
	}
	if _, ok := monthCellAt(5, 1, 70, 38, 5); ok {
		t.Error("weekday row should not hit a day")
	}
	if _, ok := monthCellAt(75, 5, 70, 38, 5); ok {
		t.Error("right of the grid should not hit a day")
	}
}

func TestCropPanel(t *testing.T) {
	box := strings.Repeat("line\n", 9) + "line"
	got := cropPanel(box, 4*cellHeight)
	if n := len(strings.Split(got, "\n")); n != 4 {
		t.Errorf("rows=%d, want 4", n)
	}
	if cropPanel("a\nb", 100*cellHeight) != "a\nb" {
		t.Error("short panel should be untouched")
	}
}
