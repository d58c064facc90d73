package application

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/custedit/internal/records"
)

// recordForm edits one record, one text input per column.
type recordForm struct {
	title   string
	rowID   records.RowID // zero when adding
	headers []string
	inputs  []textinput.Model
	focus   int
	errors  map[string]string
}

func newRecordForm(title string, headers []string, values records.Record) recordForm {
	f := recordForm{
		title:   title,
		headers: headers,
		inputs:  make([]textinput.Model, len(headers)),
	}
	for i, h := range headers {
		ti := textinput.New()
		ti.Placeholder = h
		ti.CharLimit = 512
		ti.Width = 40
		ti.SetValue(values[h])
		f.inputs[i] = ti
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// record returns the current input values keyed by header.
func (f recordForm) record() records.Record {
	rec := make(records.Record, len(f.headers))
	for i, h := range f.headers {
		rec[h] = f.inputs[i].Value()
	}
	return rec
}

// setErrors maps a validation failure onto the fields. Other errors are
// left to the caller.
func (f *recordForm) setErrors(err error) bool {
	var verrs records.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	f.errors = verrs.ByField()
	for i, h := range f.headers {
		if _, bad := f.errors[h]; bad {
			f.setFocus(i)
			break
		}
	}
	return true
}

func (f *recordForm) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f recordForm) update(msg tea.Msg) (recordForm, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return f, nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return f, nil
		}
	}
	if len(f.inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f recordForm) view(st Styles) string {
	var b strings.Builder
	b.WriteString(st.Title.Render(f.title))
	b.WriteString("\n\n")
	for i, h := range f.headers {
		b.WriteString(st.Label.Render(h))
		b.WriteString(f.inputs[i].View())
		if msg, bad := f.errors[h]; bad {
			b.WriteString(" ")
			b.WriteString(st.Error.Render(msg))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(st.Muted.Render("tab/shift+tab move • enter save • esc cancel"))
	return st.Panel.Render(b.String())
}
