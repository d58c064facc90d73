package records

// PageSizes lists the page sizes offered to the user.
var PageSizes = []int{10, 25, 100}

// DefaultPageSize is the page size of a fresh State.
const DefaultPageSize = 10

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, size := range PageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// Paginate returns rows[page*size : page*size+size] clipped to bounds.
// Out-of-range pages and non-positive sizes yield an empty slice.
func Paginate[T any](rows []T, page, size int) []T {
	if page < 0 || size <= 0 || page >= PageCount(len(rows), size) {
		return []T{}
	}
	start := page * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// PageCount returns how many pages of size hold total items.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
