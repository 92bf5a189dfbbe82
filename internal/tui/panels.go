package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/timegrid"
	"github.com/theakshaypant/gridcal/internal/util"
)

// maxPopoverNotes caps the description lines shown in the popover.
const maxPopoverNotes = 6

type action int

const (
	actionNone action = iota
	actionEdit
	actionDelete
	actionComplete
	actionColor
)

// span is a clickable run of cells inside a panel, relative to its origin.
type span struct {
	row, x0, x1 int
	action      action
	colorID     string
}

// panel is a rendered floating box and its clickable spans.
type panel struct {
	box   string
	spans []span
}

func (p panel) width() int  { return lipgloss.Width(p.box) }
func (p panel) height() int { return lipgloss.Height(p.box) }

// at returns the span under the cell (x, y) relative to the panel.
func (p panel) at(x, y int) (span, bool) {
	for _, s := range p.spans {
		if s.row == y && x >= s.x0 && x < s.x1 {
			return s, true
		}
	}
	return span{}, false
}

// popoverPanel renders the details of the selected event.
func popoverPanel(e core.Event, cells int) panel {
	inner := cells - 4
	if inner < 16 {
		inner = 16
	}
	var lines []string
	for _, l := range strings.Split(ansi.Wordwrap(e.Title, inner, ""), "\n") {
		lines = append(lines, TitleStyle.Render(l))
	}
	lines = append(lines, ValueStyle.Render(e.Start.Format("Mon, Jan 2")+" · "+timegrid.FormatRange(e.Start, e.End)))
	if e.Completed {
		lines = append(lines, CompletedStyle.Render("✓ Completed"))
	} else {
		lines = append(lines, PendingStyle.Render("○ Not completed"))
	}
	if desc := util.HTMLToText(e.Description, inner); desc != "" {
		notes := strings.Split(ansi.Wordwrap(desc, inner, ""), "\n")
		if len(notes) > maxPopoverNotes {
			notes = append(notes[:maxPopoverNotes-1], "…")
		}
		lines = append(lines, "")
		lines = append(lines, notes...)
	}
	lines = append(lines, "")

	toggle := "Complete"
	if e.Completed {
		toggle = "Reopen"
	}
	entries := []struct {
		key, label string
		action     action
	}{
		{"e", "Edit", actionEdit},
		{"c", toggle, actionComplete},
		{"d", "Delete", actionDelete},
	}
	// Spans are offset by the top border and the left border plus padding.
	row := len(lines) + 1
	x := 2
	var spans []span
	var parts []string
	for i, en := range entries {
		text := HelpKeyStyle.Render(en.key) + " " + en.label
		w := ansi.StringWidth(en.key + " " + en.label)
		spans = append(spans, span{row: row, x0: x, x1: x + w, action: en.action})
		parts = append(parts, text)
		x += w
		if i < len(entries)-1 {
			x += 2
		}
	}
	lines = append(lines, strings.Join(parts, "  "))

	style := PanelStyle.Width(inner + 2)
	return panel{box: style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)), spans: spans}
}

// menuItem is one choosable entry of the quick menu.
type menuItem struct {
	label   string
	action  action
	colorID string
}

func menuItems(e core.Event, p core.Palette, withColors bool) []menuItem {
	toggle := "Mark complete"
	if e.Completed {
		toggle = "Mark not complete"
	}
	items := []menuItem{
		{label: "Edit", action: actionEdit},
		{label: "Delete", action: actionDelete},
		{label: toggle, action: actionComplete},
	}
	if !withColors {
		return items
	}
	items = append(items, menuItem{label: "Default color", action: actionColor})
	for _, id := range colorIDs(p) {
		items = append(items, menuItem{label: id, action: actionColor, colorID: id})
	}
	return items
}

// menuPanel renders the quick menu. Text entries take one row each; the
// palette swatches share the last row.
func menuPanel(items []menuItem, active, cells int, p core.Palette) panel {
	inner := cells - 2
	var lines []string
	var spans []span
	var swatches []string
	x := 1
	for i, it := range items {
		if it.action == actionColor && it.colorID != "" {
			c, _ := p.Resolve(it.colorID)
			st := lipgloss.NewStyle().Background(lipgloss.Color(c.Background))
			if i == active {
				st = st.Foreground(fgColor).Bold(true)
				swatches = append(swatches, st.Render("▸ "))
			} else {
				swatches = append(swatches, st.Render("  "))
			}
			continue
		}
		st := MenuItemStyle
		if i == active {
			st = MenuActiveStyle
		}
		lines = append(lines, st.Width(inner).Render(it.label))
		spans = append(spans, span{row: len(lines), x0: 1, x1: 1 + inner, action: it.action, colorID: it.colorID})
	}
	if len(swatches) > 0 {
		row := len(lines) + 1
		for _, it := range items {
			if it.action == actionColor && it.colorID != "" {
				spans = append(spans, span{row: row, x0: x + 1, x1: x + 3, action: actionColor, colorID: it.colorID})
				x += 3
			}
		}
		lines = append(lines, " "+strings.Join(swatches, " "))
	}
	return panel{box: MenuStyle.Width(inner).Render(strings.Join(lines, "\n")), spans: spans}
}

// menuIndex maps a span back to its item.
func menuIndex(items []menuItem, s span) int {
	for i, it := range items {
		if it.action == s.action && it.colorID == s.colorID {
			return i
		}
	}
	return -1
}
