// Package records holds the in-memory customer dataset and the pure logic
// applied to it: matching, search, selection ordering, pagination, CSV import
// and export, and the state transitions driven by the UI.
//
// Nothing in this package performs I/O beyond the io.Reader handed to
// ParseCSV. Every State transition returns a new State, so callers can keep or
// discard results without locking concerns leaking into this package.
package records

import "strconv"

// Record maps a column name to a cell value.
type Record map[string]string

// RowID identifies a row for the lifetime of a State. IDs are assigned on
// import and add and are never reused.
type RowID int64

// String returns the decimal form used in URLs and form values.
func (id RowID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseRowID parses the decimal form produced by RowID.String.
func ParseRowID(s string) (RowID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return RowID(n), nil
}

// Row is a record together with its stable identifier.
type Row struct {
	ID     RowID  `json:"id"`
	Record Record `json:"record"`
}

// Equal reports whether every key of a has the same value in b.
//
// The comparison only walks a's keys: a record with fewer keys matches any
// superset record that agrees on them.
func Equal(a, b Record) bool {
	for key, value := range a {
		other, ok := b[key]
		if !ok || other != value {
			return false
		}
	}
	return true
}

// Clone returns a copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a record holding exactly the given headers. Missing values
// become empty strings and keys outside headers are dropped.
func (r Record) Project(headers []string) Record {
	out := make(Record, len(headers))
	for _, h := range headers {
		out[h] = r[h]
	}
	return out
}

// Values returns the cell values in header order.
func (r Record) Values(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = r[h]
	}
	return out
}

// Records strips the identifiers from rows.
func Records(rows []Row) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = row.Record
	}
	return out
}

func indexOf(rows []Row, id RowID) int {
	for i, row := range rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}
