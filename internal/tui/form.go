package tui

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/draft"
	"github.com/theakshaypant/gridcal/internal/util"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldStart
	fieldEnd
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Notes", "Start", "End"}

// draftForm edits the open draft. Title and notes are pushed to the draft on
// every keystroke; the start and end fields are parsed on save.
type draftForm struct {
	id       string
	existing bool
	inputs   [fieldCount]textinput.Model
	focus    int

	// start and end are the values the time fields were last synced from.
	start, end time.Time
	colorID    string
	// notesEdited is set once the notes field itself changed; until then the
	// stored description is left alone.
	notesEdited bool

	keys FormKeyMap
}

func newDraftForm(d core.EventDraft) *draftForm {
	f := &draftForm{id: d.ID, existing: d.Existing, keys: DefaultFormKeyMap}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		f.inputs[i] = ti
	}
	f.inputs[fieldTitle].Placeholder = "Add title"
	f.inputs[fieldDescription].Placeholder = "Add description"
	f.inputs[fieldStart].Placeholder = draft.LocalInputLayout
	f.inputs[fieldEnd].Placeholder = draft.LocalInputLayout
	f.inputs[fieldStart].CharLimit = len(draft.LocalInputLayout)
	f.inputs[fieldEnd].CharLimit = len(draft.LocalInputLayout)
	f.inputs[fieldDescription].CharLimit = 0

	f.inputs[fieldTitle].SetValue(d.Title)
	f.inputs[fieldDescription].SetValue(strings.Join(strings.Fields(util.PlainText(d.Description)), " "))
	f.sync(d)
	return f
}

// focusCmd focuses the current field.
func (f *draftForm) focusCmd() tea.Cmd {
	return f.inputs[f.focus].Focus()
}

// sync refreshes the time fields after the draft card was dragged.
func (f *draftForm) sync(d core.EventDraft) {
	f.colorID = d.ColorID
	if d.Start.Equal(f.start) && d.End.Equal(f.end) {
		return
	}
	f.start, f.end = d.Start, d.End
	f.inputs[fieldStart].SetValue(draft.FormatLocalInput(d.Start))
	f.inputs[fieldEnd].SetValue(draft.FormatLocalInput(d.End))
}

func (f *draftForm) move(dir int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + dir + fieldCount) % fieldCount
	return f.focusCmd()
}

// update forwards a message to the focused field.
func (f *draftForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	before := f.inputs[f.focus].Value()
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if f.focus == fieldDescription && f.inputs[f.focus].Value() != before {
		f.notesEdited = true
	}
	return cmd
}

func (f *draftForm) title() string { return f.inputs[fieldTitle].Value() }

// pushText copies the free-text fields into the draft.
func (f *draftForm) pushText(m *draft.Machine) {
	m.SetTitle(f.title())
	if f.notesEdited {
		m.SetDescription(f.inputs[fieldDescription].Value())
	}
}

// pushTimes parses the time fields into the draft. An end at or before the
// start keeps the previous duration.
func (f *draftForm) pushTimes(m *draft.Machine, loc *time.Location, now time.Time) {
	start := draft.ParseLocalInput(f.inputs[fieldStart].Value(), loc, now)
	end := draft.ParseLocalInput(f.inputs[fieldEnd].Value(), loc, now)
	if !end.After(start) {
		end = start.Add(f.end.Sub(f.start))
	}
	if start.Equal(f.start) && end.Equal(f.end) {
		return
	}
	m.SetRange(start, end)
}

// nextColor cycles through the palette, ending on the calendar default.
func (f *draftForm) nextColor(p core.Palette) string {
	ids := append(colorIDs(p), "")
	for i, id := range ids {
		if id == f.colorID {
			return ids[(i+1)%len(ids)]
		}
	}
	return ids[0]
}

// view renders the form cells wide.
func (f *draftForm) view(cells int, palette core.Palette, status string) string {
	inner := cells - 4
	if inner < 16 {
		inner = 16
	}
	heading := "New event"
	if f.existing {
		heading = "Edit event"
	}
	lines := []string{TitleStyle.Render(heading), ""}
	for i := range f.inputs {
		f.inputs[i].Width = inner - 8
		lines = append(lines, LabelStyle.Render(fieldLabels[i])+" "+f.inputs[i].View())
	}
	lines = append(lines, LabelStyle.Render("Color")+" "+swatch(palette, f.colorID))
	if status != "" {
		lines = append(lines, "", ErrorStyle.Render(status))
	}
	lines = append(lines, "", HelpStyle.Render("enter save · esc cancel · tab next · ctrl+o colour"))
	return FormStyle.Width(inner + 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// swatch renders a colour sample with its id.
func swatch(p core.Palette, colorID string) string {
	c, ok := p.Resolve(colorID)
	if !ok {
		return PendingStyle.Render("default")
	}
	block := lipgloss.NewStyle().Background(lipgloss.Color(c.Background)).Render("   ")
	return block + " " + ValueStyle.Render(colorID)
}

// colorIDs lists the palette ids in numeric order.
func colorIDs(p core.Palette) []string {
	ids := make([]string, 0, len(p.Event))
	for id := range p.Event {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}
