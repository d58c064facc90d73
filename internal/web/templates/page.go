// Package templates renders the editor's HTML. Components live in page.templ;
// run templ generate after editing it.
package templates

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/custedit/internal/records"
)

// Form field names are prefixed so a column called "confirm" cannot collide
// with control fields.
const FieldPrefix = "f."

// PageData is everything the editor page shows.
type PageData struct {
	View        records.View
	Alert       *Alert
	Notice      string
	Add         Form
	AddOpen     bool
	Edit        *EditForm
	Confirm     *records.Row
	Send        *SendDialog
	DebounceMS  int64
	MaxFileSize int64
}

// Alert is a user-facing error with its support code.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// Form holds submitted values and per-field errors.
type Form struct {
	Values records.Record
	Errors map[string]string
}

// EditForm is the open edit dialog of one row.
type EditForm struct {
	ID records.RowID
	Form
}

// SendDialog lists the send field of the selected rows.
type SendDialog struct {
	Field  string
	Values []string
}

func rowAction(id records.RowID, action string) templ.SafeURL {
	return templ.SafeURL("/rows/" + id.String() + "/" + action)
}

func editHref(id records.RowID) templ.SafeURL {
	return templ.SafeURL("/?edit=" + id.String())
}

func deleteHref(id records.RowID) templ.SafeURL {
	return templ.SafeURL("/?delete=" + id.String())
}

func pageHref(page int) templ.SafeURL {
	return templ.SafeURL("/?page=" + strconv.Itoa(page))
}

func fieldID(i int) string {
	return "field-" + strconv.Itoa(i)
}

// pageLabel names the current page. Past the end there is nothing to count.
func pageLabel(v records.View) string {
	if v.PastEnd() {
		return "Past the last page"
	}
	return fmt.Sprintf("Page %d of %d", v.Page+1, max(v.PageCount, 1))
}

// rangeLabel describes which rows of the matching set are on screen.
func rangeLabel(v records.View) string {
	first, last := 0, 0
	if len(v.Rows) > 0 {
		first = v.Page*v.PageSize + 1
		last = v.Page*v.PageSize + len(v.Rows)
	}
	label := fmt.Sprintf("%d–%d of %d", first, last, v.Total)
	if v.Total != v.DatasetSize {
		label += fmt.Sprintf(" (filtered from %d)", v.DatasetSize)
	}
	return label
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return strconv.FormatInt(n>>30, 10) + " GB"
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + " MB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + " KB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

const pageCSS = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1d2330}
main{max-width:1200px;margin:0 auto;padding:1.5rem}
header{display:flex;justify-content:space-between;align-items:center;gap:1rem;flex-wrap:wrap}
h1{font-size:1.4rem;margin:0}
form{display:inline}
.toolbar{display:flex;gap:.75rem;align-items:center;margin:1rem 0;flex-wrap:wrap}
.toolbar .search input{min-width:16rem;padding:.35rem .5rem}
.count{color:#555}
table{width:100%;border-collapse:collapse;background:#fff}
th,td{padding:.4rem .6rem;border-bottom:1px solid #e3e6ea;text-align:left;vertical-align:top}
tr.selected{background:#eef5ff}
td.select,th.select{width:2rem}
td.actions{white-space:nowrap}
mark{background:#ffe58a;padding:0}
.button,button{display:inline-block;padding:.35rem .75rem;border:1px solid #9aa3af;border-radius:4px;background:#fff;color:inherit;text-decoration:none;cursor:pointer;font:inherit}
.disabled{opacity:.45;cursor:not-allowed}
.danger{background:#c62828;border-color:#c62828;color:#fff}
.pagination{display:flex;gap:.5rem;align-items:center;margin:1rem 0}
.alert{background:#fdecea;border:1px solid #f5c2c0;padding:.75rem 1rem;margin:1rem 0;border-radius:4px}
.alert code{float:right;color:#8a1c1c}
.notice{background:#e8f5e9;border:1px solid #b9dfbc;padding:.75rem 1rem;margin:1rem 0;border-radius:4px}
.empty{color:#666;text-align:center;padding:2rem}
dialog.panel{position:fixed;top:10vh;max-width:32rem;width:90%;border:1px solid #9aa3af;border-radius:6px;box-shadow:0 10px 30px rgba(0,0,0,.2)}
dialog.panel form{display:block}
dialog.panel label{display:block;margin-top:.6rem;font-weight:600}
dialog.panel input{width:100%;box-sizing:border-box;padding:.35rem .5rem}
.field-error{color:#c62828;font-size:.85rem}
.buttons{margin-top:1rem;display:flex;gap:.75rem;align-items:center}
`

const pageJS = `
(function () {
  document.querySelectorAll('[data-autosubmit]').forEach(function (el) {
    el.addEventListener('change', function () { el.form.submit(); });
  });
  var input = document.getElementById('search');
  if (!input) { return; }
  var delay = parseInt(input.dataset.debounce, 10) || 1000;
  var timer = null;
  input.addEventListener('input', function () {
    if (timer) { clearTimeout(timer); }
    timer = setTimeout(function () { timer = null; input.form.submit(); }, delay);
  });
  window.addEventListener('pagehide', function () {
    if (timer) { clearTimeout(timer); timer = null; }
  });
  if (input.value) {
    input.focus();
    input.setSelectionRange(input.value.length, input.value.length);
  }
})();
`
