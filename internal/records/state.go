package records

import (
	"errors"
	"slices"
)

var (
	// ErrNoDataset is returned when rows are added before any import.
	ErrNoDataset = errors.New("no dataset loaded: import a CSV file first")

	// ErrRowNotFound is returned when an ID names no row.
	ErrRowNotFound = errors.New("row not found")

	// ErrNotConfirmed is returned when a delete was not confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")

	// ErrInvalidPageSize is returned for page sizes outside PageSizes.
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrEmptySelection is returned when exporting with nothing selected.
	ErrEmptySelection = errors.New("no rows selected")
)

// DefaultSendField is the column listed by the send action.
const DefaultSendField = "Primary Email"

// State is the complete editing state of one workspace.
//
// State is a value: transitions return a new State and never modify the
// receiver, so a caller holding an older State keeps a consistent snapshot.
// The zero value is an empty workspace with the default page size.
type State struct {
	headers   []string
	rows      []Row
	lastID    RowID
	selection []RowID
	search    string
	page      int
	pageSize  int
}

// NewState returns an empty workspace.
func NewState() State {
	return State{pageSize: DefaultPageSize}
}

// Headers returns the column names of the loaded dataset.
func (s State) Headers() []string { return slices.Clone(s.headers) }

// Rows returns the dataset in insertion order.
func (s State) Rows() []Row { return slices.Clone(s.rows) }

// Len returns the number of rows in the dataset.
func (s State) Len() int { return len(s.rows) }

// Loaded reports whether a dataset has been imported.
func (s State) Loaded() bool { return len(s.headers) > 0 }

// Search returns the active search term.
func (s State) Search() string { return s.search }

// Page returns the zero-based page index.
func (s State) Page() int { return s.page }

// PageSize returns the number of rows per page.
func (s State) PageSize() int {
	if s.pageSize == 0 {
		return DefaultPageSize
	}
	return s.pageSize
}

// Selection returns the selected row IDs in selection order.
func (s State) Selection() []RowID { return slices.Clone(s.selection) }

// IsSelected reports whether id is selected.
func (s State) IsSelected(id RowID) bool {
	return slices.Contains(s.selection, id)
}

// Row returns the row with the given ID.
func (s State) Row(id RowID) (Row, bool) {
	i := indexOf(s.rows, id)
	if i < 0 {
		return Row{}, false
	}
	return s.rows[i], true
}

// Import replaces the dataset. IDs keep increasing across imports, so IDs
// held by a stale client never address a row of the new dataset. The
// selection is cleared and the page reset; the search term is kept.
func (s State) Import(headers []string, recs []Record) State {
	next := s
	next.headers = slices.Clone(headers)
	next.rows = make([]Row, len(recs))
	for i, rec := range recs {
		next.lastID++
		next.rows[i] = Row{ID: next.lastID, Record: rec.Project(headers)}
	}
	next.selection = nil
	next.page = 0
	return next
}

// Add appends rec as a new row. The record must carry a non-empty value for
// every header; otherwise the ValidationErrors are returned and s is returned
// unchanged.
func (s State) Add(rec Record) (State, Row, error) {
	if !s.Loaded() {
		return s, Row{}, ErrNoDataset
	}
	if err := Validate(s.headers, rec); err != nil {
		return s, Row{}, err
	}

	next := s
	next.lastID++
	row := Row{ID: next.lastID, Record: rec.Project(s.headers)}
	next.rows = append(slices.Clone(s.rows), row)
	return next, row, nil
}

// Edit replaces the record of row id, keeping its ID, position and selection.
// It returns the previous row.
func (s State) Edit(id RowID, rec Record) (State, Row, error) {
	i := indexOf(s.rows, id)
	if i < 0 {
		return s, Row{}, ErrRowNotFound
	}
	if err := Validate(s.headers, rec); err != nil {
		return s, Row{}, err
	}

	old := s.rows[i]
	next := s
	next.rows = slices.Clone(s.rows)
	next.rows[i] = Row{ID: id, Record: rec.Project(s.headers)}
	return next, old, nil
}

// Delete removes row id once confirmed and drops it from the selection.
func (s State) Delete(id RowID, confirmed bool) (State, Row, error) {
	i := indexOf(s.rows, id)
	if i < 0 {
		return s, Row{}, ErrRowNotFound
	}
	if !confirmed {
		return s, Row{}, ErrNotConfirmed
	}

	old := s.rows[i]
	next := s
	next.rows = slices.Delete(slices.Clone(s.rows), i, i+1)
	next.selection = removeID(s.selection, id)
	return next, old, nil
}

// DeleteMatching removes every row whose record Equal(target, row) holds and
// returns the number removed. Rows that merely share the target's values are
// removed too: the match carries no identity.
func (s State) DeleteMatching(target Record) (State, int) {
	next := s
	next.rows = make([]Row, 0, len(s.rows))
	next.selection = slices.Clone(s.selection)

	removed := 0
	for _, row := range s.rows {
		if Equal(target, row.Record) {
			next.selection = removeID(next.selection, row.ID)
			removed++
			continue
		}
		next.rows = append(next.rows, row)
	}
	if removed == 0 {
		return s, 0
	}
	return next, removed
}

// ToggleSelect selects row id, or unselects it when already selected.
func (s State) ToggleSelect(id RowID) (State, error) {
	if indexOf(s.rows, id) < 0 {
		return s, ErrRowNotFound
	}
	next := s
	if s.IsSelected(id) {
		next.selection = removeID(s.selection, id)
	} else {
		next.selection = append(slices.Clone(s.selection), id)
	}
	return next, nil
}

// TogglePageSelection acts as the "select all" checkbox of the current page:
// when every row on the page is selected they are all unselected, otherwise
// the unselected ones are appended to the selection.
func (s State) TogglePageSelection() State {
	page := s.View().Rows
	if len(page) == 0 {
		return s
	}

	allSelected := true
	for _, row := range page {
		if !s.IsSelected(row.ID) {
			allSelected = false
			break
		}
	}

	next := s
	next.selection = slices.Clone(s.selection)
	for _, row := range page {
		if allSelected {
			next.selection = removeID(next.selection, row.ID)
		} else if !slices.Contains(next.selection, row.ID) {
			next.selection = append(next.selection, row.ID)
		}
	}
	return next
}

// ClearSelection unselects every row.
func (s State) ClearSelection() State {
	next := s
	next.selection = nil
	return next
}

// SetSearch sets the search term. A changed term resets the page to 0.
func (s State) SetSearch(term string) State {
	if term == s.search {
		return s
	}
	next := s
	next.search = term
	next.page = 0
	return next
}

// SetPage moves to page p. Negative pages are clamped to 0. Pages past the
// end render empty but are bounded by the first page after the dataset.
func (s State) SetPage(p int) State {
	if p < 0 {
		p = 0
	}
	if last := PageCount(len(s.rows), s.PageSize()); p > last {
		p = last
	}
	next := s
	next.page = p
	return next
}

// SetPageSize changes the page size and resets the page to 0.
func (s State) SetPageSize(n int) (State, error) {
	if !ValidPageSize(n) {
		return s, ErrInvalidPageSize
	}
	next := s
	next.pageSize = n
	next.page = 0
	return next, nil
}

// Selected returns the selected rows in selection order.
func (s State) Selected() []Row {
	out := make([]Row, 0, len(s.selection))
	for _, id := range s.selection {
		if row, ok := s.Row(id); ok {
			out = append(out, row)
		}
	}
	return out
}

// Export serializes the selected rows. It fails with ErrEmptySelection when
// nothing is selected.
func (s State) Export() ([]byte, error) {
	selected := s.Selected()
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}
	return ExportCSV(s.headers, Records(selected)), nil
}

// SendList returns field of every selected row, in selection order.
func (s State) SendList(field string) []string {
	if field == "" {
		field = DefaultSendField
	}
	selected := s.Selected()
	out := make([]string, len(selected))
	for i, row := range selected {
		out[i] = row.Record[field]
	}
	return out
}

// View is what a frontend renders for the current state.
type View struct {
	Headers       []string
	Rows          []Row // rows of the current page
	Selected      map[RowID]bool
	Search        string
	Page          int
	PageSize      int
	PageCount     int
	Total         int // rows after filtering and ordering
	DatasetSize   int
	SelectedCount int
	PageSelected  int // selected rows on the current page
}

// AllOnPageSelected reports whether every row of the page is selected.
func (v View) AllOnPageSelected() bool {
	return len(v.Rows) > 0 && v.PageSelected == len(v.Rows)
}

// HasPrev reports whether a previous page exists.
func (v View) HasPrev() bool { return v.Page > 0 }

// HasNext reports whether a following page exists.
func (v View) HasNext() bool { return v.Page+1 < v.PageCount }

// PastEnd reports whether the current page lies beyond the last page.
func (v View) PastEnd() bool { return v.Page > 0 && v.Page >= v.PageCount }

// PrevPage is the page Previous leads to. Past the end it is the last page.
func (v View) PrevPage() int {
	return max(min(v.Page, v.PageCount)-1, 0)
}

// View computes the rendered window: search, selection ordering, then
// pagination.
func (s State) View() View {
	ordered := Order(s.rows, s.search, s.selection)
	size := s.PageSize()
	page := Paginate(ordered, s.page, size)

	selected := make(map[RowID]bool, len(s.selection))
	for _, id := range s.selection {
		selected[id] = true
	}
	onPage := 0
	for _, row := range page {
		if selected[row.ID] {
			onPage++
		}
	}

	return View{
		Headers:       s.Headers(),
		Rows:          page,
		Selected:      selected,
		Search:        s.search,
		Page:          s.page,
		PageSize:      size,
		PageCount:     PageCount(len(ordered), size),
		Total:         len(ordered),
		DatasetSize:   len(s.rows),
		SelectedCount: len(s.selection),
		PageSelected:  onPage,
	}
}

func removeID(ids []RowID, id RowID) []RowID {
	out := make([]RowID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
