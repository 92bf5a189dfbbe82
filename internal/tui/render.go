package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/grid"
	"github.com/theakshaypant/gridcal/internal/timegrid"
	"github.com/theakshaypant/gridcal/internal/util"
)

// monthTitles is how many event titles a month cell lists before "+N".
const monthTitles = 2

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.unauthorized {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center,
				ErrorStyle.Render("Your session has expired."),
				"",
				StatusStyle.Render("Run `gridcal login`, then start gridcal again."),
				"",
				HelpStyle.Render(HelpKeyStyle.Render("q")+" quit"),
			))
	}
	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderHelpPanel())
	}

	var lines []string
	if m.variant == grid.Month {
		lines = m.renderMonth()
	} else {
		lines = m.renderGrid()
		lines = m.renderOverlays(lines)
	}
	if len(lines) > 0 {
		lines[0] = m.renderHeader()
	}
	lines = append(lines, m.renderHelp())
	return strings.Join(lines, "\n")
}

func (m Model) renderHeader() string {
	parts := []string{HeaderStyle.Render("gridcal"), HeaderRangeStyle.Render(m.rangeLabel())}
	if m.opts.Source != "" {
		parts = append(parts, StatusStyle.Render(m.opts.Source))
	}
	switch {
	case m.err != nil:
		parts = append(parts, ErrorStyle.Render("Error: "+m.err.Error()))
	case m.status != "":
		parts = append(parts, StatusStyle.Render(m.status))
	case m.loading:
		parts = append(parts, StatusStyle.Render("Loading…"))
	}
	return ansi.Truncate(" "+strings.Join(parts, "  "), m.width, "…")
}

func (m Model) rangeLabel() string {
	switch m.variant {
	case grid.Month:
		return m.ref.Format("January 2006")
	case grid.Week:
		days := m.surface.Days()
		first, last := days[0].Date, days[len(days)-1].Date
		return first.Format("Jan 2") + " - " + last.Format("Jan 2, 2006")
	default:
		return m.ref.Format("Monday, January 2 2006")
	}
}

// renderGrid paints the columns, cards, drag ghost and now line.
func (m Model) renderGrid() []string {
	c := newCanvas(m.width, m.height-footerRows)
	s := m.surface
	cols := s.Columns()
	days := s.Days()
	now := m.now()
	top, bottom := headerRows, c.height

	dayKey := c.use("day", DayLabelStyle)
	todayKey := c.use("today", TodayLabelStyle)
	gutterKey := c.use("gutter", GutterStyle)
	hourKey := c.use("hour", HourLineStyle)

	for i, col := range cols {
		x0, _, x1, _ := cellBox(col.Rect)
		label := days[i].Label
		if s.Variant() == grid.Focus {
			label += " · " + col.Day.Format("Mon Jan 2")
		}
		st := dayKey
		if timegrid.IsSameDay(col.Day, now) {
			st = todayKey
		}
		c.text(x0, 1, x1-x0, label, st)
	}

	if len(cols) > 0 {
		colTop := cols[0].Rect.Top
		for y := top; y < bottom; y++ {
			start := rowMinutes(y, colTop)
			if start < 0 || start >= timegrid.MinutesPerDay {
				continue
			}
			h := int(math.Ceil(start/60 - epsilon))
			if h >= 24 || float64(h*60) >= start+15-epsilon {
				continue
			}
			c.text(0, y, gutterCells-1, fmt.Sprintf("%02d:00", h), gutterKey)
			for _, col := range cols {
				x0, _, x1, _ := cellBox(col.Rect)
				for x := x0; x < x1; x++ {
					c.set(x, y, '┈', hourKey)
				}
			}
		}
	}

	for _, card := range s.Cards() {
		m.paintCard(c, card, top, bottom)
	}

	if g, ok := s.Ghost(); ok {
		key := c.use("ghost", GhostStyle)
		x0, y0, x1, y1 := cellBox(g.Rect)
		c.fill(x0, max(y0, top), x1, min(y1, bottom), key)
		lines := []string{g.Title, g.Label}
		if y1-y0 < 2 {
			lines = []string{g.Label + " " + g.Title}
		}
		for i, line := range lines {
			if y := y0 + i; y >= top && y < min(y1, bottom) {
				c.text(x0+1, y, x1-x0-1, line, key)
			}
		}
	}

	if i, y, ok := s.NowLine(); ok {
		row := rowOf(y)
		if row >= top && row < bottom {
			key := c.use("now", NowLineStyle)
			x0, _, x1, _ := cellBox(cols[i].Rect)
			for x := x0; x < x1; x++ {
				if st := c.styleAt(x, row); st == "" || st == hourKey {
					c.set(x, row, '─', key)
				}
			}
			c.text(0, row, gutterCells-1, timegrid.FormatClock(now), key)
		}
	}
	return c.lines()
}

func (m Model) paintCard(c *canvas, card grid.Card, top, bottom int) {
	x0, y0, x1, y1 := cellBox(card.Rect)
	if max(y0, top) >= min(y1, bottom) {
		return
	}
	e := card.Event
	var key string
	if card.Draft {
		key = c.use("draft", DraftCardStyle)
	} else {
		bg, fg := m.cardColors(e)
		flags := cardFlags{
			selected:    card.Selected,
			highlighted: card.Highlighted,
			dragging:    card.Dragging,
			completed:   e.Completed,
		}
		key = c.use(fmt.Sprintf("card:%s:%s:%v", bg, fg, flags), cardStyle(bg, fg, flags))
	}
	c.fill(x0, max(y0, top), x1, min(y1, bottom), key)

	title := e.Title
	if title == "" {
		title = "(No title)"
	}
	if e.Completed {
		title = "✓ " + title
	} else if card.Active {
		title = "● " + title
	}
	lines := []string{title}
	if y1-y0 >= 2 {
		lines = append(lines, timegrid.FormatRange(e.Start, e.End))
	} else {
		lines[0] = timegrid.FormatClock(e.Start) + " " + title
	}
	if card.Tier == timegrid.TierLong && y1-y0 >= 4 && e.Description != "" {
		desc := util.PlainText(e.Description)
		first, _, _ := strings.Cut(desc, "\n")
		lines = append(lines, first)
	}
	for i, line := range lines {
		y := y0 + i
		if y >= y1 {
			break
		}
		if y < top || y >= bottom {
			continue
		}
		c.text(x0+1, y, x1-x0-1, line, key)
	}
}

// cardColors resolves the background and text colour of an event.
func (m Model) cardColors(e core.Event) (string, string) {
	if c, ok := m.palette.Resolve(e.ColorID); ok {
		fg := c.Foreground
		if fg == "" {
			fg = string(cardTextColor)
		}
		return c.Background, fg
	}
	if e.Color != "" {
		return e.Color, string(cardTextColor)
	}
	return string(primaryColor), string(fgColor)
}

// renderOverlays splices the form, popover and quick menu onto the grid.
func (m Model) renderOverlays(lines []string) []string {
	s := m.surface
	if pop, ok := s.Popover(); ok && m.popover.box != "" {
		box := cropPanel(m.popover.box, pop.Placement.MaxHeight)
		if pop.Closing {
			box = ClosingStyle.Render(ansi.Strip(box))
		}
		lines = overlay(lines, box, colOf(pop.Placement.Left), rowOf(pop.Placement.Top))
	}
	if form, ok := s.Form(); ok && m.form != nil {
		box := m.form.view(cellsOf(form.Placement.Width, cellWidth), m.palette, m.status)
		lines = overlay(lines, cropPanel(box, form.Placement.MaxHeight), colOf(form.Placement.Left), rowOf(form.Placement.Top))
	}
	if mn, ok := s.Menu(); ok && m.menu.box != "" {
		lines = overlay(lines, m.menu.box, colOf(mn.At.X), rowOf(mn.At.Y))
	}
	return lines
}

// cropPanel cuts a panel to the rows that fit in maxHeight pixels.
func cropPanel(box string, maxHeight float64) string {
	rows := cellsOf(maxHeight, cellHeight)
	lines := strings.Split(box, "\n")
	if rows <= 0 || len(lines) <= rows {
		return box
	}
	return strings.Join(lines[:rows], "\n")
}

// renderMonth draws the month grid with up to monthTitles events per day.
func (m Model) renderMonth() []string {
	c := newCanvas(m.width, m.height-footerRows)
	cells := grid.MonthCells(m.ref)
	weeks := len(cells) / 7
	colW, rowH := monthCellSize(m.width, m.height, weeks)
	events := m.surface.Events()
	now := m.now()

	labelKey := c.use("day", DayLabelStyle)
	for i := 0; i < 7; i++ {
		c.text(i*colW+1, 1, colW-1, cells[i].Format("Mon"), labelKey)
	}
	if colW < 2 || rowH < 1 {
		return c.lines()
	}

	dayKey := c.use("mday", MonthDayStyle)
	outKey := c.use("mout", MonthOutsideStyle)
	todayKey := c.use("mtoday", MonthTodayStyle)
	moreKey := c.use("more", MonthMoreStyle)
	lineKey := c.use("hour", HourLineStyle)

	for i, day := range cells {
		x := (i % 7) * colW
		y := monthTop + (i/7)*rowH
		for dx := 0; dx < colW; dx++ {
			c.set(x+dx, y, '─', lineKey)
		}
		numKey := dayKey
		switch {
		case timegrid.IsSameDay(day, now):
			numKey = todayKey
		case day.Month() != m.ref.Month():
			numKey = outKey
		}
		c.text(x+1, y, 3, strconv.Itoa(day.Day()), numKey)

		dayEvents := grid.EventsOn(day, events)
		for j, e := range dayEvents {
			row := y + 1 + j
			if row >= y+rowH {
				break
			}
			if j == monthTitles && len(dayEvents) > monthTitles {
				c.text(x+1, row, colW-2, fmt.Sprintf("+%d more", len(dayEvents)-monthTitles), moreKey)
				break
			}
			bg, fg := m.cardColors(e)
			key := c.use("mev:"+bg+fg, MonthEventStyle.Background(lipgloss.Color(bg)).Foreground(lipgloss.Color(fg)))
			title := e.Title
			if title == "" {
				title = "(No title)"
			}
			c.text(x+1, row, colW-2, timegrid.FormatClock(e.Start)+" "+title, key)
		}
	}
	return c.lines()
}

func (m Model) renderHelp() string {
	keys := []string{
		HelpKeyStyle.Render("←/→") + " page",
		HelpKeyStyle.Render("t") + " today",
		HelpKeyStyle.Render("1/2/3") + " view",
		HelpKeyStyle.Render("n") + " new",
		HelpKeyStyle.Render("e") + " edit",
		HelpKeyStyle.Render("d") + " delete",
		HelpKeyStyle.Render("c") + " complete",
		HelpKeyStyle.Render("r") + " refresh",
		HelpKeyStyle.Render("q") + " quit",
	}
	if m.form != nil {
		keys = []string{
			HelpKeyStyle.Render("enter") + " save",
			HelpKeyStyle.Render("tab") + " next field",
			HelpKeyStyle.Render("ctrl+o") + " colour",
			HelpKeyStyle.Render("esc") + " cancel",
		}
	}

	fullLine := " " + strings.Join(keys, "  •  ")
	if lipgloss.Width(fullLine) > m.width {
		return HelpStyle.Render(" " + HelpKeyStyle.Render("?") + " help")
	}
	return HelpStyle.Render(fullLine)
}

func (m Model) renderHelpPanel() string {
	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Keyboard Shortcuts")

	lines := []string{
		"",
		HelpKeyStyle.Render("  ← / →      ") + " Previous / next page",
		HelpKeyStyle.Render("  t          ") + " Jump to today",
		HelpKeyStyle.Render("  1 / 2 / 3  ") + " Focus, week or month view",
		HelpKeyStyle.Render("  ↑ / ↓      ") + " Scroll the day",
		HelpKeyStyle.Render("  n          ") + " New event",
		HelpKeyStyle.Render("  e / enter  ") + " Edit selected event",
		HelpKeyStyle.Render("  d          ") + " Delete selected event",
		HelpKeyStyle.Render("  c          ") + " Toggle completed",
		HelpKeyStyle.Render("  esc        ") + " Cancel drag, close panel",
		HelpKeyStyle.Render("  r          ") + " Refresh events",
		HelpKeyStyle.Render("  q / ctrl+c ") + " Quit",
		"",
		HelpKeyStyle.Render("  click      ") + " Select, or create on empty space",
		HelpKeyStyle.Render("  drag       ") + " Move; drag the top or bottom row to resize",
		HelpKeyStyle.Render("  right click") + " Quick menu",
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render("  Press any key to close"),
	}

	return HelpPanel.Render(lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")))
}
