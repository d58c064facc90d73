package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/records"
)

// ImportTimeout bounds reading a CSV file from disk.
var ImportTimeout = 2 * time.Minute

// DoneMsg reports a finished background command.
type DoneMsg string

// ErrMsg reports a failed background command.
type ErrMsg struct {
	Err error
}

// searchMsg carries a debounced search term.
type searchMsg string

// FileDeliverer writes exports into a directory.
type FileDeliverer struct {
	Dir string
}

// NewFileDeliverer returns a deliverer writing into dir, or the working
// directory when dir is empty.
func NewFileDeliverer(dir string) *FileDeliverer {
	if dir == "" {
		dir = "."
	}
	return &FileDeliverer{Dir: dir}
}

// Deliver writes data to Dir/name, replacing an existing file.
func (d *FileDeliverer) Deliver(_ context.Context, name, _ string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Path returns where an export named name lands.
func (d *FileDeliverer) Path(name string) string {
	return filepath.Join(d.Dir, name)
}

// importFile loads path into session sid off the UI goroutine.
func importFile(svc *core.Service, sid, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ImportTimeout)
		defer cancel()

		name := filepath.Base(path)
		if !records.IsCSVName(name) {
			return ErrMsg{Err: records.ErrNotCSV}
		}

		f, err := os.Open(path)
		if err != nil {
			return ErrMsg{Err: fmt.Errorf("open %s: %w", name, err)}
		}
		defer f.Close()

		res, err := svc.Import(ctx, sid, name, f)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrMsg{Err: fmt.Errorf("import timed out after %v", ImportTimeout)}
			}
			return ErrMsg{Err: err}
		}
		return DoneMsg(fmt.Sprintf("Imported %d rows from %s", res.Rows, res.FileName))
	}
}

// exportSelection writes the selected rows of session sid through d.
func exportSelection(svc *core.Service, sid string, d *FileDeliverer) tea.Cmd {
	return func() tea.Msg {
		n := len(svc.State(sid).Selection())
		if err := svc.Export(context.Background(), sid, d); err != nil {
			return ErrMsg{Err: err}
		}
		return DoneMsg(fmt.Sprintf("Exported %d rows to %s", n, d.Path(records.ExportFileName)))
	}
}

// waitForSearch blocks until the debouncer publishes a term or done closes.
func waitForSearch(ch <-chan string, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case term := <-ch:
			return searchMsg(term)
		case <-done:
			return nil
		}
	}
}
