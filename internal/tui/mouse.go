package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/theakshaypant/gridcal/internal/grid"
)

// handleMouse translates terminal mouse events into surface pointer input.
// Motion samples are queued on the surface and drained once per frame.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	p := toPoint(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.scroll(-wheelRows)
		case tea.MouseButtonWheelDown:
			return m.scroll(wheelRows)
		case tea.MouseButtonRight:
			if m.surface.ContextMenu(p) {
				m.menuIndex = 0
			}
			return nil
		case tea.MouseButtonLeft:
			return m.press(msg.X, msg.Y)
		}
	case tea.MouseActionMotion:
		if m.surface.PointerMove(p) {
			return m.requestFrame()
		}
	case tea.MouseActionRelease:
		return m.runEffects(m.surface.PointerUp(p))
	}
	return nil
}

// press routes a primary click. Clicks on the menu and popover actions are
// handled here; everything else goes to the surface.
func (m *Model) press(x, y int) tea.Cmd {
	p := toPoint(x, y)
	hit := m.surface.HitTest(p)
	switch hit.Kind {
	case grid.HitMenu:
		mn, ok := m.surface.Menu()
		if !ok {
			return nil
		}
		s, ok := m.menu.at(x-colOf(mn.At.X), y-rowOf(mn.At.Y))
		if !ok {
			return nil
		}
		if i := menuIndex(m.menuItems, s); i >= 0 {
			m.menuIndex = i
			return m.chooseMenu(m.menuItems[i])
		}
		return nil
	case grid.HitPopover:
		if pop, ok := m.surface.Popover(); ok {
			rx, ry := x-colOf(pop.Placement.Left), y-rowOf(pop.Placement.Top)
			if s, ok := m.popover.at(rx, ry); ok {
				return m.popoverAction(s.action)
			}
		}
	case grid.HitForm:
		if form, ok := m.surface.Form(); ok && m.form != nil {
			// Fields start below the border, the heading and a blank row.
			if field := y - rowOf(form.Placement.Top) - 3; field >= 0 && field < fieldCount {
				m.surface.PointerDown(p)
				return m.form.move(field - m.form.focus)
			}
		}
	}
	m.surface.PointerDown(p)
	return nil
}

// handleMonthMouse opens the focus view on the clicked day.
func (m *Model) handleMonthMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	cells := grid.MonthCells(m.ref)
	i, ok := monthCellAt(msg.X, msg.Y, m.width, m.height, len(cells)/7)
	if !ok {
		return nil
	}
	m.ref = cells[i]
	return m.switchVariant(grid.Focus)
}

// monthCellAt maps a terminal cell to a month grid index.
func monthCellAt(x, y, width, height, weeks int) (int, bool) {
	colW, rowH := monthCellSize(width, height, weeks)
	if weeks == 0 || y < monthTop || x < 0 || colW == 0 || rowH == 0 {
		return 0, false
	}
	col, row := x/colW, (y-monthTop)/rowH
	if col >= 7 || row >= weeks {
		return 0, false
	}
	return row*7 + col, true
}

// monthTop is the first row of the month grid, below the header and the
// weekday labels.
const monthTop = headerRows

func monthCellSize(width, height, weeks int) (int, int) {
	if weeks == 0 {
		return 0, 0
	}
	return width / 7, (height - monthTop - footerRows) / weeks
}
