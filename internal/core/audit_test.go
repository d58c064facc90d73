package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custedit/internal/records"
)

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		action AuditAction
		want   AuditSeverity
	}{
		{ActionImport, SeverityHigh},
		{ActionRowDelete, SeverityHigh},
		{ActionDeleteMatching, SeverityHigh},
		{ActionRowAdd, SeverityMedium},
		{ActionRowEdit, SeverityMedium},
		{ActionExport, SeverityLow},
		{ActionSend, SeverityLow},
	}
	for _, tt := range tests {
		if got := determineSeverity(tt.action); got != tt.want {
			t.Errorf("determineSeverity(%s) = %s, want %s", tt.action, got, tt.want)
		}
	}
}

func TestMemoryAudit_Ring(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAudit(3)

	got, err := m.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Record(ctx, AuditEntry{ID: fmt.Sprint(i)}))
	}

	got, err = m.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4", "3"}, auditIDs(got), "oldest entries overwritten")

	got, err = m.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4"}, auditIDs(got))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, clampLimit(0))
	assert.Equal(t, MaxHistoryLimit, clampLimit(MaxHistoryLimit+1))
	assert.Equal(t, 7, clampLimit(7))
}

func auditIDs(entries []AuditEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

// fakeDB records Exec calls and serves canned rows to Query.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execErr  error
	rows     [][]any
	queryArg []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	f.queryArg = args
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func TestPostgresAudit_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPostgresAudit(db).EnsureSchema(context.Background()))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS record_audit_log")

	db.execErr = errors.New("permission denied")
	err := NewPostgresAudit(db).EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "create audit schema")
}

func TestPostgresAudit_Record(t *testing.T) {
	db := &fakeDB{}
	sink := NewPostgresAudit(db)
	entry := NewAuditEntry(context.Background(), AuditLogParams{
		Action:    ActionRowEdit,
		SessionID: "sess-1",
		RowID:     42,
		OldRecord: records.Record{"Name": "Ada"},
		NewRecord: records.Record{"Name": "Ada L."},
	})

	require.NoError(t, sink.Record(context.Background(), entry))
	require.Len(t, db.execArgs, 1)
	args := db.execArgs[0]
	require.Len(t, args, 12)

	assert.True(t, strings.HasPrefix(strings.TrimSpace(db.execSQL[0]), "INSERT INTO record_audit_log"))
	assert.Equal(t, toPgUUID(entry.ID), args[0])
	assert.Equal(t, "row_edit", args[1])
	assert.Equal(t, "medium", args[2])
	assert.Equal(t, pgtype.Int8{Int64: 42, Valid: true}, args[4])
	assert.JSONEq(t, `{"Name":"Ada"}`, string(args[5].([]byte)))
	assert.Equal(t, pgtype.Text{}, args[8], "empty file name stored as NULL")
}

func TestPostgresAudit_Recent(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{{
		pgtype.UUID{Bytes: id, Valid: true},
		"import",
		"high",
		"sess-9",
		pgtype.Int8{},
		[]byte(nil),
		[]byte(nil),
		pgtype.Int4{Int32: 120, Valid: true},
		pgtype.Text{String: "customers.csv", Valid: true},
		pgtype.Text{String: "192.0.2.1", Valid: true},
		pgtype.Text{},
		at,
	}}}

	got, err := NewPostgresAudit(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []any{DefaultHistoryLimit}, db.queryArg)

	want := []AuditEntry{{
		ID:           id.String(),
		Action:       ActionImport,
		Severity:     SeverityHigh,
		SessionID:    "sess-9",
		RowsAffected: 120,
		FileName:     "customers.csv",
		IPAddress:    "192.0.2.1",
		CreatedAt:    at,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recent() mismatch (-want +got):\n%s", diff)
	}
}
