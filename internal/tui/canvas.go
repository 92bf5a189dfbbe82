package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// cell is one terminal cell. A zero rune marks the right half of a wide
// character.
type cell struct {
	ch    rune
	style string
}

// canvas is a grid of styled cells. Cards and the ghost are painted in
// pixel order, then each row is rendered as runs of equal style.
type canvas struct {
	width, height int
	cells         [][]cell
	styles        map[string]lipgloss.Style
}

func newCanvas(width, height int) *canvas {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c := &canvas{width: width, height: height, styles: map[string]lipgloss.Style{}}
	c.cells = make([][]cell, height)
	for y := range c.cells {
		row := make([]cell, width)
		for x := range row {
			row[x] = cell{ch: ' '}
		}
		c.cells[y] = row
	}
	return c
}

// use registers st under key and returns the key.
func (c *canvas) use(key string, st lipgloss.Style) string {
	if _, ok := c.styles[key]; !ok {
		c.styles[key] = st
	}
	return key
}

func (c *canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

func (c *canvas) set(x, y int, ch rune, style string) {
	if c.inside(x, y) {
		c.cells[y][x] = cell{ch: ch, style: style}
	}
}

func (c *canvas) styleAt(x, y int) string {
	if !c.inside(x, y) {
		return ""
	}
	return c.cells[y][x].style
}

// fill paints the half-open box [x0,x1) x [y0,y1) with blanks.
func (c *canvas) fill(x0, y0, x1, y1 int, style string) {
	for y := max(y0, 0); y < min(y1, c.height); y++ {
		for x := max(x0, 0); x < min(x1, c.width); x++ {
			c.cells[y][x] = cell{ch: ' ', style: style}
		}
	}
}

// text writes s at (x, y), cut to limit cells with an ellipsis. It returns
// the number of cells written.
func (c *canvas) text(x, y, limit int, s, style string) int {
	if limit <= 0 || y < 0 || y >= c.height {
		return 0
	}
	if ansi.StringWidth(s) > limit {
		s = ansi.Truncate(s, limit, "…")
	}
	col := x
	for _, r := range s {
		w := ansi.StringWidth(string(r))
		if w == 0 {
			continue
		}
		if col+w > x+limit {
			break
		}
		c.set(col, y, r, style)
		if w == 2 {
			c.set(col+1, y, 0, style)
		}
		col += w
	}
	return col - x
}

// lines renders every row.
func (c *canvas) lines() []string {
	out := make([]string, c.height)
	var b, run strings.Builder
	for y, row := range c.cells {
		b.Reset()
		current := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if st, ok := c.styles[current]; ok && current != "" {
				b.WriteString(st.Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			run.Reset()
		}
		for _, cl := range row {
			if cl.style != current {
				flush()
				current = cl.style
			}
			if cl.ch != 0 {
				run.WriteRune(cl.ch)
			}
		}
		flush()
		out[y] = b.String()
	}
	return out
}

// overlay splices box into base with its top-left corner at (x, y).
func overlay(base []string, box string, x, y int) []string {
	if x < 0 {
		x = 0
	}
	for i, line := range strings.Split(box, "\n") {
		row := y + i
		if row < 0 || row >= len(base) {
			continue
		}
		under := base[row]
		left := ansi.Truncate(under, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ansi.TruncateLeft(under, x+ansi.StringWidth(line), "")
		base[row] = left + line + right
	}
	return base
}
