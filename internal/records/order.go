package records

// Order arranges rows for display so that selected rows stay visible.
//
// With a blank term the result is the selected rows in selection order
// followed by every other row in dataset order. With an active term the
// result is, in order: selected rows the term does not match (selection
// order), selected rows it does match (dataset order), then the remaining
// matching rows. Selection IDs with no row in rows are ignored.
func Order(rows []Row, term string, selection []RowID) []Row {
	if len(selection) == 0 {
		return Filter(rows, term)
	}

	selected := make(map[RowID]bool, len(selection))
	for _, id := range selection {
		selected[id] = true
	}

	byID := make(map[RowID]Row, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]Row, 0, len(rows))

	if isBlank(term) {
		for _, id := range selection {
			if row, ok := byID[id]; ok {
				out = append(out, row)
			}
		}
		for _, row := range rows {
			if !selected[row.ID] {
				out = append(out, row)
			}
		}
		return out
	}

	matching := Filter(rows, term)
	inMatching := make(map[RowID]bool, len(matching))
	for _, row := range matching {
		inMatching[row.ID] = true
	}

	for _, id := range selection {
		if row, ok := byID[id]; ok && !inMatching[id] {
			out = append(out, row)
		}
	}
	for _, row := range matching {
		if selected[row.ID] {
			out = append(out, row)
		}
	}
	for _, row := range matching {
		if !selected[row.ID] {
			out = append(out, row)
		}
	}
	return out
}
