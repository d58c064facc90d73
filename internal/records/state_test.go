package records

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeaders = []string{"Name", "Primary Email"}

func loadedState(t *testing.T, n int) State {
	t.Helper()
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Record{
			"Name":          fmt.Sprintf("Customer %02d", i+1),
			"Primary Email": fmt.Sprintf("c%02d@example.com", i+1),
		}
	}
	return NewState().Import(testHeaders, recs)
}

func TestState_Import(t *testing.T) {
	s := loadedState(t, 3)
	s, err := s.ToggleSelect(1)
	require.NoError(t, err)
	s = s.SetPage(2)

	next := s.Import([]string{"X"}, []Record{{"X": "1", "Y": "dropped"}})

	assert.Equal(t, []string{"X"}, next.Headers())
	assert.Equal(t, []Row{{ID: 4, Record: Record{"X": "1"}}}, next.Rows())
	assert.Empty(t, next.Selection(), "selection cleared")
	assert.Equal(t, 0, next.Page())
	assert.Equal(t, 3, s.Len(), "receiver untouched")
}

func TestState_Add(t *testing.T) {
	t.Run("valid record appended", func(t *testing.T) {
		s := loadedState(t, 2)
		rec := Record{"Name": "New", "Primary Email": "new@example.com"}

		next, row, err := s.Add(rec)
		require.NoError(t, err)
		assert.Equal(t, RowID(3), row.ID)
		assert.Equal(t, 3, next.Len())
		got, ok := next.Row(row.ID)
		require.True(t, ok)
		assert.Equal(t, rec, got.Record)
		assert.Equal(t, 2, s.Len(), "receiver untouched")
	})

	t.Run("empty field rejected without change", func(t *testing.T) {
		s := loadedState(t, 2)
		next, _, err := s.Add(Record{"Name": "New", "Primary Email": ""})

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, map[string]string{"Primary Email": RequiredMessage}, verrs.ByField())
		assert.Equal(t, s.Rows(), next.Rows())
	})

	t.Run("no dataset", func(t *testing.T) {
		_, _, err := NewState().Add(Record{"Name": "x"})
		assert.ErrorIs(t, err, ErrNoDataset)
	})

	t.Run("ids never reused after delete", func(t *testing.T) {
		s := loadedState(t, 2)
		s, _, err := s.Delete(2, true)
		require.NoError(t, err)
		_, row, err := s.Add(Record{"Name": "a", "Primary Email": "b"})
		require.NoError(t, err)
		assert.Equal(t, RowID(3), row.ID)
	})
}

func TestState_Edit(t *testing.T) {
	s := loadedState(t, 3)
	s, err := s.ToggleSelect(2)
	require.NoError(t, err)

	rec := Record{"Name": "Renamed", "Primary Email": "r@example.com"}
	next, old, err := s.Edit(2, rec)
	require.NoError(t, err)

	assert.Equal(t, "Customer 02", old.Record["Name"])
	assert.Equal(t, []RowID{1, 2, 3}, ids(next.Rows()), "position kept")
	got, _ := next.Row(2)
	assert.Equal(t, rec, got.Record)
	assert.True(t, next.IsSelected(2), "still selected after edit")

	_, _, err = s.Edit(99, rec)
	assert.ErrorIs(t, err, ErrRowNotFound)

	_, _, err = s.Edit(1, Record{"Name": ""})
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestState_Delete(t *testing.T) {
	s := loadedState(t, 3)
	s, err := s.ToggleSelect(2)
	require.NoError(t, err)

	t.Run("requires confirmation", func(t *testing.T) {
		next, _, err := s.Delete(2, false)
		assert.ErrorIs(t, err, ErrNotConfirmed)
		assert.Equal(t, 3, next.Len())
	})

	t.Run("removes row and prunes selection", func(t *testing.T) {
		next, old, err := s.Delete(2, true)
		require.NoError(t, err)
		assert.Equal(t, RowID(2), old.ID)
		assert.Equal(t, []RowID{1, 3}, ids(next.Rows()))
		assert.Empty(t, next.Selection())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := s.Delete(42, true)
		assert.ErrorIs(t, err, ErrRowNotFound)
	})

	t.Run("only the addressed duplicate is removed", func(t *testing.T) {
		dup := Record{"Name": "Same", "Primary Email": "same@example.com"}
		s := NewState().Import(testHeaders, []Record{dup, dup})
		next, _, err := s.Delete(1, true)
		require.NoError(t, err)
		assert.Equal(t, []RowID{2}, ids(next.Rows()))
	})
}

func TestState_DeleteMatching(t *testing.T) {
	dup := Record{"Name": "Same", "Primary Email": "same@example.com"}
	other := Record{"Name": "Other", "Primary Email": "o@example.com"}
	s := NewState().Import(testHeaders, []Record{dup, other, dup})
	s, err := s.ToggleSelect(3)
	require.NoError(t, err)

	next, removed := s.DeleteMatching(dup.Clone())
	assert.Equal(t, 2, removed, "value-identical rows are both removed")
	assert.Equal(t, []RowID{2}, ids(next.Rows()))
	assert.Empty(t, next.Selection())

	t.Run("partial target over-matches", func(t *testing.T) {
		_, removed := s.DeleteMatching(Record{"Name": "Same"})
		assert.Equal(t, 2, removed)
	})

	t.Run("no match leaves state", func(t *testing.T) {
		same, removed := s.DeleteMatching(Record{"Name": "nobody"})
		assert.Zero(t, removed)
		assert.Equal(t, s.Rows(), same.Rows())
	})
}

func TestState_Selection(t *testing.T) {
	s := loadedState(t, 3)

	s, err := s.ToggleSelect(3)
	require.NoError(t, err)
	s, err = s.ToggleSelect(1)
	require.NoError(t, err)
	assert.Equal(t, []RowID{3, 1}, s.Selection())

	s, err = s.ToggleSelect(3)
	require.NoError(t, err)
	assert.Equal(t, []RowID{1}, s.Selection())

	_, err = s.ToggleSelect(77)
	assert.ErrorIs(t, err, ErrRowNotFound)

	assert.Empty(t, s.ClearSelection().Selection())
}

func TestState_TogglePageSelection(t *testing.T) {
	s := loadedState(t, 15)

	s = s.TogglePageSelection()
	assert.Len(t, s.Selection(), 10)
	v := s.View()
	assert.True(t, v.AllOnPageSelected())

	s = s.TogglePageSelection()
	assert.Empty(t, s.Selection(), "second toggle unselects the page")

	// a partially selected page gets completed
	s, err := s.ToggleSelect(3)
	require.NoError(t, err)
	s = s.TogglePageSelection()
	assert.Len(t, s.Selection(), 10)
	assert.Equal(t, RowID(3), s.Selection()[0])
}

func TestState_SearchResetsPage(t *testing.T) {
	s := loadedState(t, 30).SetPage(2)
	assert.Equal(t, 2, s.Page())

	s = s.SetSearch("customer 1")
	assert.Equal(t, 0, s.Page())
	assert.Equal(t, "customer 1", s.Search())

	s = s.SetPage(1).SetSearch("customer 1")
	assert.Equal(t, 1, s.Page(), "unchanged term keeps the page")
}

func TestState_SetPageBounded(t *testing.T) {
	s := loadedState(t, 30)

	assert.Equal(t, 0, s.SetPage(-4).Page())
	assert.Equal(t, 2, s.SetPage(2).Page())
	assert.Equal(t, 3, s.SetPage(3).Page(), "first page past the end is kept")
	assert.Equal(t, 3, s.SetPage(math.MaxInt/10+1).Page())
	assert.Empty(t, s.SetPage(math.MaxInt).View().Rows)
	assert.Equal(t, 0, NewState().SetPage(7).Page())
}

func TestState_SetPageSize(t *testing.T) {
	s := loadedState(t, 30).SetPage(2)

	next, err := s.SetPageSize(25)
	require.NoError(t, err)
	assert.Equal(t, 25, next.PageSize())
	assert.Equal(t, 0, next.Page())

	_, err = s.SetPageSize(13)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestState_View(t *testing.T) {
	s := loadedState(t, 23)
	s, err := s.ToggleSelect(23)
	require.NoError(t, err)

	v := s.View()
	assert.Equal(t, 23, v.Total)
	assert.Equal(t, 3, v.PageCount)
	require.Len(t, v.Rows, 10)
	assert.Equal(t, RowID(23), v.Rows[0].ID, "selected row first")
	assert.Equal(t, 1, v.PageSelected)
	assert.False(t, v.HasPrev())
	assert.True(t, v.HasNext())

	v = s.SetSearch("customer 0").View()
	// Customer 01..09 match; 23 is selected and surfaced first.
	assert.Equal(t, 10, v.Total)
	assert.Equal(t, RowID(23), v.Rows[0].ID)

	assert.Empty(t, s.SetPage(5).View().Rows, "out-of-range page renders empty")
}

func TestState_ExportAndSend(t *testing.T) {
	s := loadedState(t, 3)

	_, err := s.Export()
	assert.ErrorIs(t, err, ErrEmptySelection)

	s, err = s.ToggleSelect(2)
	require.NoError(t, err)
	s, err = s.ToggleSelect(1)
	require.NoError(t, err)

	data, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t,
		"Name,Primary Email\n\"Customer 02\",\"c02@example.com\"\n\"Customer 01\",\"c01@example.com\"",
		string(data))

	assert.Equal(t, []string{"c02@example.com", "c01@example.com"}, s.SendList(""))
	assert.Equal(t, []string{"Customer 02", "Customer 01"}, s.SendList("Name"))
}
