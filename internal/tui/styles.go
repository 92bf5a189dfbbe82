package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	bgColor        = lipgloss.Color("#1F2937") // Dark gray
	fgColor        = lipgloss.Color("#F9FAFB") // Light
	lineColor      = lipgloss.Color("#374151")
	cardTextColor  = lipgloss.Color("#1D1D1D")

	// Header row
	HeaderStyle      = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	HeaderRangeStyle = lipgloss.NewStyle().Foreground(fgColor)
	StatusStyle      = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	ErrorStyle       = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	// Day labels and gutter
	DayLabelStyle   = lipgloss.NewStyle().Foreground(mutedColor).Bold(true)
	TodayLabelStyle = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	GutterStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	HourLineStyle   = lipgloss.NewStyle().Foreground(lineColor)
	NowLineStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	// Cards
	DraftCardStyle = lipgloss.NewStyle().Background(accentColor).Foreground(cardTextColor).Italic(true)
	GhostStyle     = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)

	// A popover in its closing transition is drawn faded.
	ClosingStyle = lipgloss.NewStyle().Foreground(mutedColor).Faint(true)

	// Floating panels
	PanelStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(0, 1).Background(bgColor)
	FormStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1).Background(bgColor)
	MenuStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Background(bgColor)
	TitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	LabelStyle      = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Width(7)
	ValueStyle      = lipgloss.NewStyle().Foreground(fgColor)
	MenuItemStyle   = lipgloss.NewStyle().Foreground(fgColor).Padding(0, 1)
	MenuActiveStyle = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)
	CompletedStyle  = lipgloss.NewStyle().Foreground(secondaryColor)
	PendingStyle    = lipgloss.NewStyle().Foreground(mutedColor)

	// Month view
	MonthDayStyle     = lipgloss.NewStyle().Foreground(fgColor).Bold(true)
	MonthOutsideStyle = lipgloss.NewStyle().Foreground(lineColor)
	MonthTodayStyle   = lipgloss.NewStyle().Background(secondaryColor).Foreground(fgColor).Bold(true)
	MonthEventStyle   = lipgloss.NewStyle().Foreground(fgColor)
	MonthMoreStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	// Help bar
	HelpStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	HelpPanel    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(1, 2)
)

// cardStyle builds the style of an event card from its palette colours.
func cardStyle(bg, fg string, c cardFlags) lipgloss.Style {
	st := lipgloss.NewStyle().Background(lipgloss.Color(bg)).Foreground(lipgloss.Color(fg))
	if c.selected {
		st = st.Bold(true).Underline(true)
	}
	if c.highlighted {
		st = st.Background(secondaryColor).Foreground(fgColor).Bold(true)
	}
	if c.dragging {
		st = st.Faint(true)
	}
	if c.completed {
		st = st.Strikethrough(true)
	}
	return st
}

type cardFlags struct {
	selected, highlighted, dragging, completed bool
}
