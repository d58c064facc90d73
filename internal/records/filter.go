package records

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Filter returns the rows with at least one field containing term,
// compared case-insensitively. A blank term returns rows unchanged.
func Filter(rows []Row, term string) []Row {
	if isBlank(term) {
		return rows
	}

	needle := strings.ToLower(term)
	var out []Row
	for _, row := range rows {
		if containsFold(row.Record, needle) {
			out = append(out, row)
		}
	}
	return out
}

func containsFold(r Record, lowerNeedle string) bool {
	for _, value := range r {
		if strings.Contains(strings.ToLower(value), lowerNeedle) {
			return true
		}
	}
	return false
}

func isBlank(term string) bool {
	return strings.TrimSpace(term) == ""
}

// Segment is a piece of a cell value, flagged when it matched the search term.
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits text around case-insensitive occurrences of term.
// The term is quoted before it is compiled, so regex metacharacters typed by
// the user are matched literally.
func Highlight(text, term string) []Segment {
	if isBlank(term) || text == "" {
		return []Segment{{Text: text}}
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Segment{{Text: text}}
	}

	segments := make([]Segment, 0, 2*len(locs)+1)
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			segments = append(segments, Segment{Text: text[last:loc[0]]})
		}
		segments = append(segments, Segment{Text: text[loc[0]:loc[1]], Match: true})
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

// MaxCellLength is how many characters of a value a table cell shows.
const MaxCellLength = 100

// Ellipsis marks a value cut short for display.
const Ellipsis = "…"

// TruncateCell cuts text to MaxCellLength characters and appends Ellipsis.
// cut reports whether anything was removed.
func TruncateCell(text string) (shown string, cut bool) {
	if utf8.RuneCountInString(text) <= MaxCellLength {
		return text, false
	}
	r := []rune(text)
	return string(r[:MaxCellLength]) + Ellipsis, true
}
