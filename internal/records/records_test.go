package records

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(recs ...Record) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{ID: RowID(i + 1), Record: r}
	}
	return rows
}

func ids(rows []Row) []RowID {
	out := make([]RowID, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Record
		want bool
	}{
		{"identical", Record{"A": "1", "B": "2"}, Record{"A": "1", "B": "2"}, true},
		{"value differs", Record{"A": "1"}, Record{"A": "2"}, false},
		{"case sensitive", Record{"A": "x"}, Record{"A": "X"}, false},
		{"subset of b matches", Record{"A": "1"}, Record{"A": "1", "B": "2"}, true},
		{"superset of b does not", Record{"A": "1", "B": "2"}, Record{"A": "1"}, false},
		{"empty a matches anything", Record{}, Record{"A": "1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestRecord_Project(t *testing.T) {
	got := Record{"A": "1", "Z": "extra"}.Project([]string{"A", "B"})
	assert.Equal(t, Record{"A": "1", "B": ""}, got)
}

func TestParseRowID(t *testing.T) {
	id, err := ParseRowID(RowID(42).String())
	require.NoError(t, err)
	assert.Equal(t, RowID(42), id)

	_, err = ParseRowID("abc")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	rows := rowsOf(Record{"Name": "Anna"}, Record{"Name": "Bob"})

	t.Run("empty term returns rows unchanged", func(t *testing.T) {
		assert.Equal(t, rows, Filter(rows, ""))
	})

	t.Run("whitespace term returns rows unchanged", func(t *testing.T) {
		assert.Equal(t, rows, Filter(rows, "   "))
	})

	t.Run("case-insensitive substring", func(t *testing.T) {
		got := Filter(rows, "an")
		if diff := cmp.Diff([]Row{rows[0]}, got); diff != "" {
			t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("matches any field", func(t *testing.T) {
		rows := rowsOf(
			Record{"Name": "Anna", "Email": "a@x.io"},
			Record{"Name": "Bob", "Email": "BOB@Example.com"},
		)
		assert.Equal(t, []RowID{2}, ids(Filter(rows, "example")))
	})

	t.Run("metacharacters are literal", func(t *testing.T) {
		rows := rowsOf(Record{"Phone": "(555) 123"}, Record{"Phone": "555 123"})
		assert.Equal(t, []RowID{1}, ids(Filter(rows, "(555")))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Filter(rows, "zzz"))
	})
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want []Segment
	}{
		{
			name: "blank term",
			text: "Anna",
			term: "",
			want: []Segment{{Text: "Anna"}},
		},
		{
			name: "every occurrence case-insensitive",
			text: "Anna Banana",
			term: "an",
			want: []Segment{
				{Text: "An", Match: true},
				{Text: "na B"},
				{Text: "an", Match: true},
				{Text: "an", Match: true},
				{Text: "a"},
			},
		},
		{
			name: "regex metacharacters escaped",
			text: "a+b (c)",
			term: "+b (",
			want: []Segment{{Text: "a"}, {Text: "+b (", Match: true}, {Text: "c)"}},
		},
		{
			name: "no match",
			text: "Bob",
			term: "x",
			want: []Segment{{Text: "Bob"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.text, tt.term))
		})
	}
}

func TestTruncateCell(t *testing.T) {
	exact := strings.Repeat("a", MaxCellLength)
	shown, cut := TruncateCell(exact)
	assert.Equal(t, exact, shown)
	assert.False(t, cut)

	long := strings.Repeat("é", MaxCellLength) + "tail"
	shown, cut = TruncateCell(long)
	assert.True(t, cut)
	assert.Equal(t, strings.Repeat("é", MaxCellLength)+Ellipsis, shown, "cuts on characters, not bytes")
}

func TestViewPrevPage(t *testing.T) {
	tests := []struct {
		name        string
		page, count int
		wantPrev    int
		wantPastEnd bool
	}{
		{"first page", 0, 3, 0, false},
		{"middle page", 2, 3, 1, false},
		{"one past the end", 3, 3, 2, true},
		{"far past the end", 40, 3, 2, true},
		{"no matches", 5, 0, 0, true},
		{"empty", 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := View{Page: tt.page, PageCount: tt.count}
			assert.Equal(t, tt.wantPrev, v.PrevPage())
			assert.Equal(t, tt.wantPastEnd, v.PastEnd())
		})
	}
}

func TestOrder(t *testing.T) {
	a := Record{"Name": "Anna"}
	b := Record{"Name": "Bob"}
	c := Record{"Name": "Carl"}
	d := Record{"Name": "Dana"}
	rows := rowsOf(a, b, c, d)

	tests := []struct {
		name      string
		term      string
		selection []RowID
		want      []RowID
	}{
		{"no selection no term", "", nil, []RowID{1, 2, 3, 4}},
		{"selected row floats to front", "", []RowID{3}, []RowID{3, 1, 2, 4}},
		{"selection order kept", "", []RowID{4, 2}, []RowID{4, 2, 1, 3}},
		{"unknown selection ignored", "", []RowID{99, 2}, []RowID{2, 1, 3, 4}},
		{"term without selection filters", "an", nil, []RowID{1, 4}},
		{
			name:      "selected but filtered out comes first",
			term:      "an",
			selection: []RowID{2},
			want:      []RowID{2, 1, 4},
		},
		{
			name:      "three groups",
			term:      "an",
			selection: []RowID{4, 3},
			want:      []RowID{3, 4, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Order(rows, tt.term, tt.selection)))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name       string
		page, size int
		want       []int
	}{
		{"first page", 0, 2, []int{1, 2}},
		{"last partial page", 2, 2, []int{5}},
		{"exactly past end", 1, 5, []int{}},
		{"far past end", 10, 10, []int{}},
		{"negative page", -1, 2, []int{}},
		{"zero size", 0, 0, []int{}},
		{"page that overflows the offset", math.MaxInt/10 + 1, 10, []int{}},
		{"max page", math.MaxInt, 100, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(items, tt.page, tt.size))
		})
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 0, PageCount(5, 0))
}

func TestValidPageSize(t *testing.T) {
	for _, n := range PageSizes {
		assert.True(t, ValidPageSize(n), "size %d", n)
	}
	assert.False(t, ValidPageSize(7))
}

func TestExportCSV(t *testing.T) {
	t.Run("quotes and commas", func(t *testing.T) {
		got := ExportCSV([]string{"A", "B"}, []Record{{"A": "x,y", "B": `z"w`}})
		assert.Equal(t, "A,B\n\"x,y\",\"z\"\"w\"", string(got))
	})

	t.Run("header order and missing fields", func(t *testing.T) {
		got := ExportCSV([]string{"B", "A"}, []Record{{"A": "1"}, {"A": "2", "B": "3"}})
		assert.Equal(t, "B,A\n\"\",\"1\"\n\"3\",\"2\"", string(got))
	})

	t.Run("newlines are kept inside quotes", func(t *testing.T) {
		got := ExportCSV([]string{"Note"}, []Record{{"Note": "a\nb"}})
		assert.Equal(t, "Note\n\"a\nb\"", string(got))
	})

	t.Run("no rows", func(t *testing.T) {
		assert.Equal(t, "A,B", string(ExportCSV([]string{"A", "B"}, nil)))
	})
}

func TestValidate(t *testing.T) {
	headers := []string{"Name", "Email", "Phone"}

	t.Run("complete record", func(t *testing.T) {
		assert.NoError(t, Validate(headers, Record{"Name": "a", "Email": "b", "Phone": "c"}))
	})

	t.Run("reports every empty field", func(t *testing.T) {
		err := Validate(headers, Record{"Name": "a", "Email": ""})
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, map[string]string{
			"Email": RequiredMessage,
			"Phone": RequiredMessage,
		}, verrs.ByField())
		assert.Len(t, verrs, 2)
	})

	t.Run("whitespace counts as a value", func(t *testing.T) {
		assert.NoError(t, Validate([]string{"Name"}, Record{"Name": " "}))
	})
}
