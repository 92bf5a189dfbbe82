package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/draft"
	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/grid"
	"github.com/theakshaypant/gridcal/internal/placement"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

const (
	// requestTimeout bounds a single store call.
	requestTimeout = 15 * time.Second
	frameInterval  = 16 * time.Millisecond
	animInterval   = 50 * time.Millisecond

	titleRequired = "Title is required"
)

// Options configure the TUI.
type Options struct {
	Variant    grid.Variant
	Reference  time.Time
	Now        func() time.Time
	Logger     *zap.Logger
	TimeZone   string
	CalendarID string
	// Source names the event store in the header, e.g. "google".
	Source string
}

// Model is the Bubble Tea model for the TUI
type Model struct {
	store core.EventStore
	opts  Options
	log   *zap.Logger
	keys  KeyMap
	loc   *time.Location

	surface *grid.Surface
	variant grid.Variant
	ref     time.Time
	palette core.Palette

	width   int
	height  int
	ready   bool
	loading bool
	loadSeq int
	mounted bool
	err     error
	status  string

	unauthorized bool
	showHelp     bool

	form      *draftForm
	popover   panel
	menu      panel
	menuFor   string
	menuItems []menuItem
	menuIndex int

	frameQueued bool
	animating   bool
}

type eventsLoadedMsg struct {
	seq    int
	events []core.Event
	err    error
}

type paletteLoadedMsg struct {
	palette core.Palette
	err     error
}

type effectDoneMsg struct {
	result grid.Result
	err    error
}

type frameMsg struct{}

type animTickMsg time.Time

type tickMsg time.Time

// NewModel creates a new TUI model
func NewModel(store core.EventStore, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Reference.IsZero() {
		opts.Reference = opts.Now()
	}
	loc := time.Local
	if opts.TimeZone != "" {
		if l, err := time.LoadLocation(opts.TimeZone); err == nil {
			loc = l
		}
	}
	m := Model{
		store:   store,
		opts:    opts,
		log:     opts.Logger.Named("tui"),
		keys:    DefaultKeyMap,
		loc:     loc,
		variant: opts.Variant,
		ref:     timegrid.StartOfDay(opts.Reference),
		loading: true,
		loadSeq: 1,
	}
	m.surface = m.newSurface()
	return m
}

func (m *Model) newSurface() *grid.Surface {
	s := grid.New(m.variant, m.ref, grid.Options{
		Layout:     layoutFor(m.width, m.height, len(grid.Days(m.variant, m.ref))),
		Gesture:    gesture.DefaultOptions(),
		Now:        m.opts.Now,
		Logger:     m.log,
		TimeZone:   m.opts.TimeZone,
		CalendarID: m.opts.CalendarID,
	})
	s.SetPalette(m.palette)
	return s
}

func (m Model) now() time.Time { return m.opts.Now() }

func (m Model) loadEvents() tea.Cmd {
	seq, store := m.loadSeq, m.store
	start, end := m.surface.Range()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		events, err := store.ListRange(ctx, start, end)
		return eventsLoadedMsg{seq: seq, events: events, err: err}
	}
}

func (m Model) loadPalette() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		p, err := store.Colors(ctx)
		return paletteLoadedMsg{palette: p, err: err}
	}
}

func applyEffect(store core.EventStore, eff grid.Effect) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := grid.Apply(ctx, store, eff)
		return effectDoneMsg{result: res, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

func animCmd() tea.Cmd {
	return tea.Tick(animInterval, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

// Init loads the first page and the palette.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadEvents(), m.loadPalette(), tickCmd())
}

// Update handles one message and then brings the overlays and global input
// subscriptions in line with the surface.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, tea.Batch(cmd, m.settle())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.surface.SetLayout(layoutFor(m.width, m.height, len(m.surface.Days())))
		if !m.loading && m.err == nil {
			m.mount()
		}
		return m.requestFrame()

	case eventsLoadedMsg:
		if msg.seq != m.loadSeq {
			return nil
		}
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.err = nil
		m.surface.SetEvents(msg.events)
		if m.ready {
			m.mount()
		}
		return nil

	case paletteLoadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, core.ErrUnauthorized) {
				return m.fail(msg.err)
			}
			m.log.Warn("failed to load colors", zap.Error(msg.err))
			return nil
		}
		m.palette = msg.palette
		m.surface.SetPalette(msg.palette)
		return nil

	case effectDoneMsg:
		if msg.err != nil {
			m.log.Warn("store write failed",
				zap.Stringer("kind", msg.result.Effect.Kind),
				zap.String("event", msg.result.Effect.EventID),
				zap.Error(msg.err))
			if errors.Is(msg.err, core.ErrUnauthorized) {
				return m.fail(msg.err)
			}
			m.status = "Could not save changes, reloading"
			return m.reload()
		}
		m.surface.Reconcile(msg.result)
		return nil

	case frameMsg:
		m.frameQueued = false
		m.surface.Frame()
		return nil

	case animTickMsg:
		m.animating = false
		m.surface.Tick(time.Time(msg))
		return nil

	case tickMsg:
		return tickCmd()

	case tea.MouseMsg:
		if m.unauthorized || m.showHelp {
			return nil
		}
		if m.variant == grid.Month {
			return m.handleMonthMouse(msg)
		}
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.form != nil {
		return m.form.update(msg)
	}
	return nil
}

// fail records a store error. A lost session stops the editor until the
// user logs in again.
func (m *Model) fail(err error) tea.Cmd {
	if errors.Is(err, core.ErrUnauthorized) {
		m.log.Warn("session rejected", zap.Error(err))
		m.unauthorized = true
		m.surface.Close()
		m.form = nil
		return nil
	}
	m.log.Error("failed to load events", zap.Error(err))
	m.err = err
	return nil
}

func (m *Model) reload() tea.Cmd {
	m.loadSeq++
	m.loading = true
	return m.loadEvents()
}

func (m *Model) requestFrame() tea.Cmd {
	if m.frameQueued {
		return nil
	}
	m.frameQueued = true
	return frameCmd()
}

// mount runs once per surface, after both its first load and the first
// window size are known.
func (m *Model) mount() {
	if m.mounted {
		return
	}
	m.mounted = true
	m.surface.Mount()
	m.alignScroll()
}

// alignScroll snaps the scroll offset to whole rows so cards start on a row.
func (m *Model) alignScroll() {
	l := m.surface.Layout()
	m.surface.Scroll(alignedScroll(l.ScrollTop) - l.ScrollTop)
}

func (m *Model) scroll(rows int) tea.Cmd {
	m.surface.Scroll(float64(rows) * cellHeight)
	m.alignScroll()
	return m.requestFrame()
}

func (m *Model) navigate(ref time.Time) tea.Cmd {
	m.ref = timegrid.StartOfDay(ref)
	m.surface.SetReference(m.ref)
	m.status = ""
	return m.reload()
}

func (m *Model) switchVariant(v grid.Variant) tea.Cmd {
	if v == m.variant {
		return nil
	}
	m.surface.Close()
	m.variant = v
	m.surface = m.newSurface()
	m.mounted = false
	m.status = ""
	return m.reload()
}

func (m *Model) runEffects(effs []grid.Effect) tea.Cmd {
	if len(effs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, len(effs))
	for i, eff := range effs {
		m.log.Debug("store write", zap.Stringer("kind", eff.Kind), zap.String("event", eff.EventID))
		cmds[i] = applyEffect(m.store, eff)
	}
	if len(cmds) == 1 {
		return cmds[0]
	}
	return tea.Sequence(cmds...)
}

// settle syncs the form, re-measures the floating panels, switches the mouse
// reporting mode when the surface's subscriptions changed and keeps the
// animation tick running while something is timed.
func (m *Model) settle() tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, m.syncForm())
	m.syncPanels()
	if m.surface.Listeners().Changed() {
		if m.surface.Listeners().Has(grid.InputPointerMove) {
			cmds = append(cmds, tea.EnableMouseAllMotion)
		} else {
			cmds = append(cmds, tea.EnableMouseCellMotion)
		}
	}
	if !m.animating && m.surface.Animating() {
		m.animating = true
		cmds = append(cmds, animCmd())
	}
	return tea.Batch(cmds...)
}

func (m *Model) syncForm() tea.Cmd {
	d, open := m.surface.Draft()
	switch {
	case !open:
		if m.form != nil && m.status == titleRequired {
			m.status = ""
		}
		m.form = nil
	case m.form == nil || m.form.id != d.ID:
		m.form = newDraftForm(d)
		return m.form.focusCmd()
	default:
		m.form.sync(d)
	}
	return nil
}

// syncPanels renders the popover, form and menu and reports their real size
// back to the surface for the second placement pass.
func (m *Model) syncPanels() {
	if p, ok := m.surface.Popover(); ok {
		if e, ok := m.surface.Selected(); ok {
			m.popover = popoverPanel(e, cellsOf(p.Placement.Width, cellWidth))
			m.surface.MeasurePopover(sizeOf(m.popover))
		}
	}
	if m.form != nil {
		if p, ok := m.surface.Form(); ok {
			box := m.form.view(cellsOf(p.Placement.Width, cellWidth), m.palette, m.status)
			m.surface.MeasureForm(sizeOf(panel{box: box}))
		}
	}
	mn, ok := m.surface.Menu()
	if !ok {
		m.menuFor = ""
		return
	}
	e, found := m.eventByID(mn.EventID)
	if !found {
		return
	}
	if m.menuFor != mn.EventID {
		m.menuFor = mn.EventID
		m.menuIndex = 0
	}
	m.menuItems = menuItems(e, m.palette, mn.WithColors)
	m.menu = menuPanel(m.menuItems, m.menuIndex, cellsOf(placement.MenuWidth, cellWidth), m.palette)
}

func sizeOf(p panel) placement.Size {
	return placement.Size{
		Width:  float64(p.width()) * cellWidth,
		Height: float64(p.height()) * cellHeight,
	}
}

func (m Model) eventByID(id string) (core.Event, bool) {
	for _, e := range m.surface.Events() {
		if e.ID == id {
			return e, true
		}
	}
	return core.Event{}, false
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.unauthorized {
		if key.Matches(msg, m.keys.Quit) {
			return tea.Quit
		}
		return nil
	}
	if m.showHelp {
		m.showHelp = false
		return nil
	}
	if m.form != nil {
		return m.formKey(msg)
	}
	if _, ok := m.surface.Menu(); ok {
		return m.menuKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.surface.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Escape):
		m.surface.KeyEscape()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Next):
		return m.navigate(grid.Step(m.variant, m.ref, 1))
	case key.Matches(msg, m.keys.Prev):
		return m.navigate(grid.Step(m.variant, m.ref, -1))
	case key.Matches(msg, m.keys.Today):
		return m.navigate(m.now())
	case key.Matches(msg, m.keys.Focus):
		return m.switchVariant(grid.Focus)
	case key.Matches(msg, m.keys.Week):
		return m.switchVariant(grid.Week)
	case key.Matches(msg, m.keys.Month):
		return m.switchVariant(grid.Month)
	case key.Matches(msg, m.keys.Refresh):
		m.status = ""
		return tea.Batch(m.reload(), m.loadPalette())
	case key.Matches(msg, m.keys.Up):
		return m.scroll(-wheelRows)
	case key.Matches(msg, m.keys.Down):
		return m.scroll(wheelRows)
	case key.Matches(msg, m.keys.PageUp):
		return m.scroll(-m.bodyRows())
	case key.Matches(msg, m.keys.PageDown):
		return m.scroll(m.bodyRows())
	case key.Matches(msg, m.keys.New):
		m.newDraft()
	case key.Matches(msg, m.keys.Edit):
		m.surface.EditSelected()
	case key.Matches(msg, m.keys.Delete):
		if e, ok := m.surface.Selected(); ok {
			return m.runEffects(m.surface.DeleteEvent(e.ID))
		}
	case key.Matches(msg, m.keys.Complete):
		if e, ok := m.surface.Selected(); ok {
			return m.runEffects(m.surface.ToggleComplete(e.ID))
		}
	}
	return nil
}

func (m *Model) formKey(msg tea.KeyMsg) tea.Cmd {
	f := m.form
	switch {
	case key.Matches(msg, f.keys.Quit):
		m.surface.Close()
		return tea.Quit
	case key.Matches(msg, f.keys.Cancel):
		m.status = ""
		m.surface.KeyEscape()
		return nil
	case key.Matches(msg, f.keys.Next):
		return f.move(1)
	case key.Matches(msg, f.keys.Prev):
		return f.move(-1)
	case key.Matches(msg, f.keys.Color):
		id := f.nextColor(m.palette)
		m.surface.UpdateDraft(func(d *draft.Machine) { d.SetColor(id) })
		f.colorID = id
		return nil
	case key.Matches(msg, f.keys.Save):
		return m.saveForm()
	}
	cmd := f.update(msg)
	if f.focus == fieldTitle || f.focus == fieldDescription {
		m.surface.UpdateDraft(f.pushText)
	}
	return cmd
}

// saveForm commits the form. A blank title keeps it open.
func (m *Model) saveForm() tea.Cmd {
	f := m.form
	now := m.now()
	m.surface.UpdateDraft(func(d *draft.Machine) {
		f.pushText(d)
		f.pushTimes(d, m.loc, now)
	})
	if strings.TrimSpace(f.title()) == "" {
		m.status = titleRequired
		if f.focus != fieldTitle {
			return f.move(fieldTitle - f.focus)
		}
		return nil
	}
	m.status = ""
	return m.runEffects(m.surface.SaveDraft())
}

func (m *Model) menuKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.surface.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Escape):
		m.surface.KeyEscape()
	case key.Matches(msg, m.keys.Up, m.keys.Prev):
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case key.Matches(msg, m.keys.Down, m.keys.Next):
		if m.menuIndex < len(m.menuItems)-1 {
			m.menuIndex++
		}
	case msg.Type == tea.KeyEnter:
		if m.menuIndex < len(m.menuItems) {
			return m.chooseMenu(m.menuItems[m.menuIndex])
		}
	}
	return nil
}

func (m *Model) chooseMenu(it menuItem) tea.Cmd {
	mn, ok := m.surface.Menu()
	if !ok {
		return nil
	}
	id := mn.EventID
	m.surface.CloseMenu()
	switch it.action {
	case actionEdit:
		m.surface.EditEvent(id)
	case actionDelete:
		return m.runEffects(m.surface.DeleteEvent(id))
	case actionComplete:
		return m.runEffects(m.surface.ToggleComplete(id))
	case actionColor:
		return m.runEffects(m.surface.Recolor(id, it.colorID))
	}
	return nil
}

func (m *Model) popoverAction(a action) tea.Cmd {
	e, ok := m.surface.Selected()
	if !ok {
		return nil
	}
	switch a {
	case actionEdit:
		m.surface.EditSelected()
	case actionDelete:
		return m.runEffects(m.surface.DeleteEvent(e.ID))
	case actionComplete:
		return m.runEffects(m.surface.ToggleComplete(e.ID))
	}
	return nil
}

// newDraft opens a draft in the first free quarter hour visible in today's
// column, or the first column when today is not shown.
func (m *Model) newDraft() {
	if m.variant == grid.Month || m.surface.Gesture() != gesture.Idle {
		return
	}
	cols := m.surface.Columns()
	if len(cols) == 0 {
		return
	}
	col := cols[0]
	for _, c := range cols {
		if timegrid.IsSameDay(c.Day, m.now()) {
			col = c
		}
	}
	x := colOf(col.Rect.Left + col.Rect.Width/2)
	for y := headerRows; y < m.height-footerRows; y++ {
		p := toPoint(x, y)
		if m.surface.HitTest(p).Kind == grid.HitEmpty {
			m.surface.PointerDown(p)
			return
		}
	}
}

func (m Model) bodyRows() int {
	if rows := m.height - headerRows - footerRows; rows > 1 {
		return rows
	}
	return 1
}
