package application

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/records"
)

const customersCSV = "Name,Primary Email\n" +
	"Alice,alice@example.com\n" +
	"Bob,bob@example.com\n" +
	"Carol,carol@example.com\n"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	svc := core.NewService(core.Options{MaxFileSize: 1 << 20}, core.NewMemoryAudit(16))
	m := New(svc, Options{
		OutDir:      t.TempDir(),
		SearchDelay: 10 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(m.Close)
	return m
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	m := newTestModel(t)
	_, err := m.svc.Import(context.Background(), m.sid, "customers.csv", strings.NewReader(customersCSV))
	require.NoError(t, err)
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press feeds keys to m and returns the model with the last command.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

// typeText sends s one rune at a time.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestEmptyStatePromptsForImport(t *testing.T) {
	m := newTestModel(t)

	assert.Contains(t, m.View(), "Import a CSV file to get started.")

	m, _ = press(t, m, "i")
	assert.Equal(t, modeTable, m.mode)
	assert.True(t, m.failed)
	assert.Contains(t, m.status, "ROW003")
}

func TestSelectMovesRowToTop(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "j", "j", "space")

	v := m.view()
	assert.Equal(t, 1, v.SelectedCount)
	assert.Equal(t, "Carol", v.Rows[0].Record["Name"])
	assert.Equal(t, 0, m.cursor, "cursor follows the selected row")
	assert.Contains(t, m.View(), "[x] Carol")
}

func TestTogglePageAndClear(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "a")
	assert.Equal(t, 3, m.view().SelectedCount)

	m, _ = press(t, m, "a")
	assert.Equal(t, 0, m.view().SelectedCount)

	m, _ = press(t, m, "a", "c")
	assert.Equal(t, 0, m.view().SelectedCount)
	assert.Equal(t, "Selection cleared", m.status)
}

func TestAddFormValidates(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "i")
	require.Equal(t, modeForm, m.mode)

	m = typeText(t, m, "Dave")
	m, _ = press(t, m, "enter")
	assert.Equal(t, modeForm, m.mode, "invalid record keeps the form open")
	assert.Equal(t, records.RequiredMessage, m.form.errors["Primary Email"])
	assert.Equal(t, 1, m.form.focus, "focus jumps to the first invalid field")
	assert.Equal(t, 3, m.view().DatasetSize)

	m = typeText(t, m, "dave@example.com")
	m, _ = press(t, m, "enter")
	assert.Equal(t, modeTable, m.mode)
	assert.Equal(t, 4, m.view().DatasetSize)
	assert.Equal(t, "Added row 4", m.status)
}

func TestEditKeepsPosition(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "j", "e")
	require.Equal(t, modeForm, m.mode)
	assert.Equal(t, records.RowID(2), m.form.rowID)
	assert.Equal(t, "Bob", m.form.inputs[0].Value())

	m = typeText(t, m, "by")
	m, _ = press(t, m, "enter")

	v := m.view()
	assert.Equal(t, "Bobby", v.Rows[1].Record["Name"])
	assert.Equal(t, 1, m.cursor)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "d")
	require.Equal(t, modeConfirm, m.mode)
	assert.Contains(t, m.View(), "Delete this row?")

	m, _ = press(t, m, "n")
	assert.Equal(t, 3, m.view().DatasetSize)

	m, _ = press(t, m, "j", "j", "d", "y")
	assert.Equal(t, 2, m.view().DatasetSize)
	assert.Equal(t, "Deleted row 3", m.status)
	assert.Equal(t, 1, m.cursor, "cursor clamps to the last row")
}

func TestSearchIsDebounced(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "/")
	require.Equal(t, modeSearch, m.mode)
	m = typeText(t, m, "bo")

	assert.Equal(t, "", m.view().Search, "nothing applies before the delay")

	msg := m.searcher.listen()()
	require.Equal(t, searchMsg("bo"), msg)

	m, cmd := send(t, m, msg)
	assert.NotNil(t, cmd, "listening resumes")
	v := m.view()
	assert.Equal(t, "bo", v.Search)
	assert.Equal(t, 1, v.Total)
}

func TestSearchEnterAppliesImmediately(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "/")
	m = typeText(t, m, "carol")
	m, _ = press(t, m, "enter")

	assert.Equal(t, modeTable, m.mode)
	assert.Equal(t, 1, m.view().Total)
	assert.Contains(t, m.View(), "(filtered from 3)")

	m, _ = press(t, m, "esc")
	assert.Equal(t, "", m.view().Search)
	assert.Equal(t, 3, m.view().Total)
}

func TestCloseStopsListener(t *testing.T) {
	m := newTestModel(t)
	m.Close()
	m.Close()

	assert.Nil(t, m.searcher.listen()())
}

func TestMenuSetsPageSize(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "m")
	require.Equal(t, modeMenu, m.mode)
	assert.Contains(t, m.View(), "Actions")

	m, _ = press(t, m, "down", "down", "down", "down", "enter")
	require.Equal(t, "Rows per page", m.menu.Title)

	m, cmd := press(t, m, "down", "enter")
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, pageSizeMsg(25), msg)

	m, _ = send(t, m, msg)
	assert.Equal(t, modeTable, m.mode)
	assert.Equal(t, 25, m.view().PageSize)
}

func TestMenuBackReturnsToParent(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "m", "down", "down", "enter")
	require.Equal(t, "Selection", m.menu.Title)

	m, _ = press(t, m, "esc")
	assert.Equal(t, "Actions", m.menu.Title)
	assert.Nil(t, m.menu.Parent)
}

func TestCyclePageSize(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "z")
	assert.Equal(t, 25, m.view().PageSize)
	m, _ = press(t, m, "z", "z")
	assert.Equal(t, 10, m.view().PageSize)
}

func TestExportWritesFile(t *testing.T) {
	m := loadedModel(t)

	_, cmd := press(t, m, "x")
	assert.Nil(t, cmd)

	m, _ = press(t, m, "j", "space")
	m, cmd = press(t, m, "x")
	require.NotNil(t, cmd)

	msg := cmd()
	require.IsType(t, DoneMsg(""), msg)
	m, _ = send(t, m, msg)
	assert.False(t, m.failed)

	data, err := os.ReadFile(filepath.Join(m.deliver.Dir, records.ExportFileName))
	require.NoError(t, err)
	assert.Equal(t, "Name,Primary Email\n\"Bob\",\"bob@example.com\"", string(data))
}

func TestSendShowsList(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(t, m, "s")
	assert.Equal(t, modeTable, m.mode)
	assert.Contains(t, m.status, "ROW004")

	m, _ = press(t, m, "a", "s")
	require.Equal(t, modeSend, m.mode)
	view := m.View()
	assert.Contains(t, view, "alice@example.com")
	assert.Contains(t, view, "Send to 3 recipients")

	m, _ = press(t, m, "enter")
	assert.Equal(t, modeTable, m.mode)
}

func TestImportFromPrompt(t *testing.T) {
	m := newTestModel(t)
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(customersCSV), 0o644))

	m, _ = press(t, m, "o")
	require.Equal(t, modeImport, m.mode)
	m = typeText(t, m, path)
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)

	m, _ = send(t, m, cmd())
	assert.Equal(t, "Imported 3 rows from people.csv", m.status)
	assert.Equal(t, 3, m.view().DatasetSize)
}

func TestImportRejectsNonCSV(t *testing.T) {
	m := newTestModel(t)

	msg := importFile(m.svc, m.sid, "/tmp/people.txt")()
	m, _ = send(t, m, msg)

	assert.True(t, m.failed)
	assert.Contains(t, m.status, "FILE003")
}

func TestLongValuesShownInDetail(t *testing.T) {
	m := newTestModel(t)
	long := strings.Repeat("x", records.MaxCellLength+50)
	csv := "Name,Primary Email\n" + long + ",long@example.com\nBob,bob@example.com\n"
	_, err := m.svc.Import(context.Background(), m.sid, "long.csv", strings.NewReader(csv))
	require.NoError(t, err)

	out := m.View()
	assert.Contains(t, out, "…", "table cell is cut")
	assert.Contains(t, out, long, "cursor row spells out the full value")

	m, _ = press(t, m, "j")
	assert.NotContains(t, m.View(), long)
}

func TestPreviousFromPastTheEnd(t *testing.T) {
	m := loadedModel(t)
	_, err := m.svc.Navigate(m.sid, core.Navigation{Page: ptr(1 << 40)})
	require.NoError(t, err)

	v := m.view()
	assert.True(t, v.PastEnd())
	assert.Contains(t, m.View(), "Past the last page")

	m, _ = press(t, m, "p")
	assert.Equal(t, 0, m.view().Page)
	assert.Contains(t, m.View(), "Alice")
}
