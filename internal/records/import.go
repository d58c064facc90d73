package records

// import.go turns an uploaded CSV file into a header list and records.
//
// The first line is the header. Blank lines are skipped by the tokenizer, short
// rows are padded with empty values and surplus fields are dropped, so every
// record ends up with exactly the header keys.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrNotCSV is returned for files without a .csv extension.
	ErrNotCSV = errors.New("invalid file type: please upload a CSV file")

	// ErrEmptyCSV is returned when a file holds no data rows.
	ErrEmptyCSV = errors.New("empty file: the CSV has no data rows")
)

// ParseError wraps a tokenizer failure with the line it occurred on.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsCSVName reports whether name carries a .csv extension.
func IsCSVName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// ParseCSV reads a CSV file with a header row.
// name is only used for the extension check.
func ParseCSV(name string, r io.Reader) ([]string, []Record, error) {
	if !IsCSVName(name) {
		return nil, nil, ErrNotCSV
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, toParseError(err)
	}
	headers := uniqueHeaders(header)

	var recs []Record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, toParseError(err)
		}

		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(fields) {
				rec[h] = fields[i]
			} else {
				rec[h] = ""
			}
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil, nil, ErrEmptyCSV
	}
	return headers, recs, nil
}

func toParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

// uniqueHeaders renames repeated names to name_1, name_2, ... and blank
// names to column_N so every column keeps its own key.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
