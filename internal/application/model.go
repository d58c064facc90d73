// Package application is the terminal frontend of the editor. It drives the
// same core.Service as the web server through a single local session.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/debounce"
	"github.com/JonMunkholm/custedit/internal/records"
)

type mode int

const (
	modeTable mode = iota
	modeSearch
	modeForm
	modeConfirm
	modeMenu
	modeImport
	modeSend
)

// Options configures the terminal editor.
type Options struct {
	File        string        // CSV loaded on start, optional
	OutDir      string        // export directory
	SearchDelay time.Duration // quiet period before a search applies
	Logger      *slog.Logger
}

// Model is the bubbletea model of the editor.
type Model struct {
	svc     *core.Service
	sid     string
	opts    Options
	styles  Styles
	deliver *FileDeliverer
	log     *slog.Logger

	mode    mode
	cursor  int
	status  string
	failed  bool
	busy    bool
	width   int
	search  textinput.Model
	path    textinput.Model
	form    recordForm
	confirm *records.Row
	sendTo  []string

	menu       *Menu
	menuCursor int

	searcher *searcher
}

// searcher turns debounced keystrokes into searchMsg values.
type searcher struct {
	ch   chan string
	done chan struct{}
	once sync.Once
	deb  *debounce.Debouncer[string]
}

func newSearcher(delay time.Duration) *searcher {
	s := &searcher{
		ch:   make(chan string, 1),
		done: make(chan struct{}),
	}
	s.deb = debounce.New(delay, s.publish)
	return s
}

// publish keeps only the newest term when the UI has not caught up.
func (s *searcher) publish(term string) {
	for {
		select {
		case s.ch <- term:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *searcher) listen() tea.Cmd {
	return waitForSearch(s.ch, s.done)
}

func (s *searcher) close() {
	s.once.Do(func() {
		s.deb.Stop()
		close(s.done)
	})
}

// New returns an editor bound to a fresh session of svc.
func New(svc *core.Service, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	sid, _ := svc.EnsureSession("")

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"
	search.CharLimit = 256

	path := textinput.New()
	path.Prompt = "file: "
	path.Placeholder = "customers.csv"
	path.Width = 60

	return Model{
		svc:      svc,
		sid:      sid,
		opts:     opts,
		styles:   DefaultStyles(),
		deliver:  NewFileDeliverer(opts.OutDir),
		log:      opts.Logger.With("session", sid),
		search:   search,
		path:     path,
		menu:     buildMenuTree(),
		searcher: newSearcher(opts.SearchDelay),
	}
}

// Close releases the search debouncer. It is safe to call more than once.
func (m Model) Close() {
	m.searcher.close()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.searcher.listen()}
	if m.opts.File != "" {
		cmds = append(cmds, importFile(m.svc, m.sid, m.opts.File))
	}
	return tea.Batch(cmds...)
}

func (m Model) view() records.View {
	return m.svc.View(m.sid)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case searchMsg:
		m = m.applySearch(string(msg))
		return m, m.searcher.listen()

	case DoneMsg:
		m.busy = false
		m.cursor = 0
		m.setStatus(string(msg))
		m.log.Info(string(msg))
		return m, nil

	case ErrMsg:
		m.busy = false
		m.setError(msg.Err)
		return m, nil

	case actionMsg:
		m.mode = modeTable
		return m.runAction(action(msg))

	case pageSizeMsg:
		m.mode = modeTable
		return m.setPageSize(int(msg)), nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeMenu:
			return m.updateMenu(msg)
		case modeImport:
			return m.updateImport(msg)
		case modeSend:
			if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter || msg.String() == "q" {
				m.mode = modeTable
			}
			return m, nil
		default:
			return m.updateTable(msg)
		}
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.Close()
	return m, tea.Quit
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(err error) {
	m.status = core.FormatUserError(err)
	m.failed = true
	m.log.Warn("operation failed", "error", err)
}

/* ----------------------------------------
	TABLE
---------------------------------------- */

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view()

	switch msg.String() {
	case "q":
		return m.quit()
	case "j", "down":
		if m.cursor < len(v.Rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n", "right", "pgdown":
		if v.HasNext() {
			m = m.navigate(core.Navigation{Page: ptr(v.Page + 1)})
		}
	case "p", "left", "pgup":
		if v.HasPrev() {
			m = m.navigate(core.Navigation{Page: ptr(v.PrevPage())})
		}
	case " ", "space":
		if row, ok := m.current(v); ok {
			if _, err := m.svc.ToggleSelect(m.sid, row.ID); err != nil {
				m.setError(err)
			} else {
				m.follow(row.ID)
			}
		}
	case "a":
		return m.runAction(actionTogglePage)
	case "c":
		return m.runAction(actionClearSelection)
	case "/":
		m.mode = modeSearch
		m.search.SetValue(v.Search)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case "esc":
		if v.Search != "" {
			m.search.SetValue("")
			m = m.applySearch("")
		}
	case "i", "+":
		return m.runAction(actionAdd)
	case "e", "enter":
		if row, ok := m.current(v); ok {
			m.form = newRecordForm("Edit entry", v.Headers, row.Record)
			m.form.rowID = row.ID
			m.mode = modeForm
		}
	case "d", "delete":
		if row, ok := m.current(v); ok {
			m.confirm = &row
			m.mode = modeConfirm
		}
	case "x":
		return m.runAction(actionExport)
	case "s":
		return m.runAction(actionSend)
	case "o":
		return m.runAction(actionImport)
	case "z":
		i := slices.Index(records.PageSizes, v.PageSize)
		m = m.setPageSize(records.PageSizes[(i+1)%len(records.PageSizes)])
	case "m":
		m.mode = modeMenu
		m.menu = buildMenuTree()
		m.menuCursor = 0
	}

	return m, nil
}

func (m Model) current(v records.View) (records.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(v.Rows) {
		return records.Row{}, false
	}
	return v.Rows[m.cursor], true
}

// follow moves the cursor onto id after the page was reordered.
func (m *Model) follow(id records.RowID) {
	v := m.view()
	for i, row := range v.Rows {
		if row.ID == id {
			m.cursor = i
			return
		}
	}
	m.clampCursor(v)
}

func (m *Model) clampCursor(v records.View) {
	if m.cursor >= len(v.Rows) {
		m.cursor = len(v.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) navigate(nav core.Navigation) Model {
	v, err := m.svc.Navigate(m.sid, nav)
	if err != nil {
		m.setError(err)
		return m
	}
	m.cursor = 0
	m.clampCursor(v)
	return m
}

func (m Model) setPageSize(n int) Model {
	m = m.navigate(core.Navigation{PageSize: &n})
	if !m.failed {
		m.setStatus(fmt.Sprintf("Showing %d rows per page", n))
	}
	return m
}

func (m Model) applySearch(term string) Model {
	if term == m.view().Search {
		return m
	}
	return m.navigate(core.Navigation{Search: &term})
}

func (m Model) runAction(a action) (tea.Model, tea.Cmd) {
	v := m.view()

	switch a {
	case actionImport:
		m.mode = modeImport
		m.path.SetValue("")
		cmd := m.path.Focus()
		return m, cmd

	case actionAdd:
		if len(v.Headers) == 0 {
			m.setError(records.ErrNoDataset)
			return m, nil
		}
		m.form = newRecordForm("Add entry", v.Headers, nil)
		m.mode = modeForm

	case actionTogglePage:
		m.svc.TogglePageSelection(m.sid)

	case actionClearSelection:
		m.svc.ClearSelection(m.sid)
		m.setStatus("Selection cleared")

	case actionExport:
		if v.SelectedCount == 0 {
			m.setError(records.ErrEmptySelection)
			return m, nil
		}
		m.busy = true
		return m, exportSelection(m.svc, m.sid, m.deliver)

	case actionSend:
		list, err := m.svc.Send(context.Background(), m.sid)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.sendTo = list
		m.mode = modeSend

	case actionQuit:
		return m.quit()
	}

	return m, nil
}

/* ----------------------------------------
	SEARCH
---------------------------------------- */

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searcher.deb.Cancel()
		m = m.applySearch(m.search.Value())
		m.mode = modeTable
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.mode = modeTable
		m.search.Blur()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := m.search.Value(); after != before {
		m.searcher.deb.Trigger(after)
	}
	return m, cmd
}

/* ----------------------------------------
	FORMS AND DIALOGS
---------------------------------------- */

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeTable
		return m, nil
	case tea.KeyEnter:
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	ctx := context.Background()
	rec := m.form.record()

	var (
		row records.Row
		err error
	)
	if m.form.rowID == 0 {
		row, err = m.svc.Add(ctx, m.sid, rec)
	} else {
		row, err = m.svc.Edit(ctx, m.sid, m.form.rowID, rec)
	}
	if err != nil {
		if m.form.setErrors(err) {
			return m, nil
		}
		m.mode = modeTable
		m.setError(err)
		return m, nil
	}

	if m.form.rowID == 0 {
		m.setStatus(fmt.Sprintf("Added row %s", row.ID))
	} else {
		m.setStatus(fmt.Sprintf("Saved row %s", row.ID))
	}
	m.mode = modeTable
	m.follow(row.ID)
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		row, err := m.svc.Delete(context.Background(), m.sid, m.confirm.ID, true)
		if err != nil {
			m.setError(err)
		} else {
			m.setStatus(fmt.Sprintf("Deleted row %s", row.ID))
		}
		m.confirm = nil
		m.mode = modeTable
		m.clampCursor(m.view())
	case "n", "N", "esc", "q":
		m.confirm = nil
		m.mode = modeTable
	}
	return m, nil
}

func (m Model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeTable
		m.path.Blur()
		return m, nil
	case tea.KeyEnter:
		p := strings.TrimSpace(m.path.Value())
		m.mode = modeTable
		m.path.Blur()
		if p == "" {
			m.setError(core.ErrNoFile)
			return m, nil
		}
		m.busy = true
		m.setStatus("Importing " + p + "...")
		return m, importFile(m.svc, m.sid, p)
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case "down", "j":
		if m.menuCursor < len(m.menu.Items)-1 {
			m.menuCursor++
		}
	case "esc":
		if m.menu.Parent != nil {
			m.menu = m.menu.Parent
		} else {
			m.mode = modeTable
		}
		m.menuCursor = 0
	case "q":
		m.mode = modeTable
	case "enter", " ", "space":
		item := m.menu.Items[m.menuCursor]
		if item.Submenu != nil {
			m.menu = item.Submenu
			m.menuCursor = 0
			return m, nil
		}
		if item.Label == "Back" {
			m.mode = modeTable
			return m, nil
		}
		if item.Action != nil {
			return m, item.Action()
		}
	}
	return m, nil
}

/* ----------------------------------------
	VIEW
---------------------------------------- */

func (m Model) View() string {
	var b strings.Builder
	v := m.view()

	b.WriteString(m.styles.Title.Render("Customer records"))
	b.WriteString("\n\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.form.view(m.styles))
	case modeConfirm:
		b.WriteString(m.viewConfirm(v))
	case modeMenu:
		b.WriteString(m.viewMenu())
	case modeImport:
		b.WriteString(m.styles.Panel.Render("Import CSV file\n\n" + m.path.View() +
			"\n\n" + m.styles.Muted.Render("enter import • esc cancel")))
	case modeSend:
		b.WriteString(m.viewSend())
	default:
		b.WriteString(m.viewTable(v))
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.failed {
			b.WriteString(m.styles.Error.Render(m.status))
		} else {
			b.WriteString(m.styles.Notice.Render(m.status))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewTable(v records.View) string {
	var b strings.Builder

	if m.mode == modeSearch {
		b.WriteString(m.search.View())
	} else if v.Search != "" {
		b.WriteString(m.styles.Muted.Render("/ " + v.Search))
	}
	b.WriteString("\n")

	if len(v.Headers) == 0 {
		b.WriteString(m.styles.Muted.Render("Import a CSV file to get started. Press o to open one or m for the menu."))
		b.WriteString("\n")
		return b.String()
	}

	widths := columnWidths(v, m.columnLimit(len(v.Headers)))
	cells := make([]string, len(v.Headers))
	for i, h := range v.Headers {
		cells[i] = pad(h, widths[i])
	}
	b.WriteString("    ")
	b.WriteString(m.styles.Header.Render(strings.Join(cells, "  ")))
	b.WriteString("\n")

	if len(v.Rows) == 0 {
		b.WriteString(m.styles.Muted.Render("No rows match."))
		b.WriteString("\n")
	}
	for i, row := range v.Rows {
		mark := "[ ] "
		if v.Selected[row.ID] {
			mark = "[x] "
		}
		for j, h := range v.Headers {
			shown, _ := records.TruncateCell(row.Record[h])
			cells[j] = m.highlight(pad(shown, widths[j]), v.Search)
		}
		line := mark + strings.Join(cells, "  ")
		switch {
		case i == m.cursor:
			line = m.styles.Cursor.Render(line)
		case v.Selected[row.ID]:
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(m.viewDetail(v, widths))

	footer := fmt.Sprintf("Page %d of %d • %d rows", v.Page+1, max(v.PageCount, 1), v.Total)
	if v.PastEnd() {
		footer = fmt.Sprintf("Past the last page (%d) • p goes back • %d rows", max(v.PageCount, 1), v.Total)
	}
	if v.Total != v.DatasetSize {
		footer += fmt.Sprintf(" (filtered from %d)", v.DatasetSize)
	}
	footer += fmt.Sprintf(" • %d selected • %d per page", v.SelectedCount, v.PageSize)
	if m.busy {
		footer += " • working..."
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(footer))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("space select • a page • / search • i add • e edit • d delete • x export • s send • m menu • q quit"))
	b.WriteString("\n")
	return b.String()
}

// viewDetail spells out the cursor row's values that its columns cut short.
func (m Model) viewDetail(v records.View, widths []int) string {
	if m.cursor < 0 || m.cursor >= len(v.Rows) {
		return ""
	}
	row := v.Rows[m.cursor]
	var b strings.Builder
	for i, h := range v.Headers {
		value := row.Record[h]
		shown, cut := records.TruncateCell(value)
		if !cut && lipgloss.Width(shown) <= widths[i] {
			continue
		}
		b.WriteString(m.styles.Label.Render(h))
		b.WriteString(value)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n" + b.String()
}

func (m Model) highlight(text, term string) string {
	var b strings.Builder
	for _, seg := range records.Highlight(text, term) {
		if seg.Match {
			b.WriteString(m.styles.Match.Render(seg.Text))
		} else {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

func (m Model) viewConfirm(v records.View) string {
	var b strings.Builder
	b.WriteString("Delete this row?\n\n")
	for _, h := range v.Headers {
		b.WriteString(m.styles.Label.Render(h))
		b.WriteString(m.confirm.Record[h])
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("y delete • n cancel"))
	return m.styles.Panel.Render(b.String())
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.menu.Title))
	b.WriteString("\n\n")
	for i, item := range m.menu.Items {
		if i == m.menuCursor {
			b.WriteString(m.styles.Cursor.Render("> " + item.Label))
		} else {
			b.WriteString("  " + item.Label)
		}
		b.WriteString("\n")
	}
	return m.styles.Panel.Render(b.String())
}

func (m Model) viewSend() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Send to %d recipients (%s)\n\n", len(m.sendTo), m.svc.SendField())
	for _, s := range m.sendTo {
		if s == "" {
			s = m.styles.Muted.Render("(empty)")
		}
		b.WriteString("  " + s + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("enter close"))
	return m.styles.Panel.Render(b.String())
}

// maxColumnWidth caps a column so wide cells do not push others off screen.
const maxColumnWidth = 32

// columnLimit shares the terminal width between n columns.
func (m Model) columnLimit(n int) int {
	if m.width <= 0 || n == 0 {
		return maxColumnWidth
	}
	return min(maxColumnWidth, max(4, (m.width-4)/n-2))
}

func columnWidths(v records.View, limit int) []int {
	widths := make([]int, len(v.Headers))
	for i, h := range v.Headers {
		widths[i] = lipgloss.Width(h)
		for _, row := range v.Rows {
			shown, _ := records.TruncateCell(row.Record[h])
			widths[i] = max(widths[i], lipgloss.Width(shown))
		}
		widths[i] = min(widths[i], limit)
	}
	return widths
}

func pad(s string, width int) string {
	if lipgloss.Width(s) > width {
		r := []rune(s)
		if width > 1 && len(r) > width-1 {
			s = string(r[:width-1]) + "…"
		}
	}
	if gap := width - lipgloss.Width(s); gap > 0 {
		s += strings.Repeat(" ", gap)
	}
	return s
}

func ptr[T any](v T) *T { return &v }
