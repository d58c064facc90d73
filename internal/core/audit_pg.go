package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/custedit/internal/records"
)

// DBTX is the subset of *pgxpool.Pool used by PostgresAudit.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS record_audit_log (
    id            UUID PRIMARY KEY,
    action        TEXT NOT NULL,
    severity      TEXT NOT NULL,
    session_id    TEXT NOT NULL,
    row_id        BIGINT,
    old_record    JSONB,
    new_record    JSONB,
    rows_affected INTEGER,
    file_name     TEXT,
    ip_address    TEXT,
    user_agent    TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS record_audit_log_created_at_idx ON record_audit_log (created_at DESC)`

const insertAuditSQL = `
INSERT INTO record_audit_log
    (id, action, severity, session_id, row_id, old_record, new_record,
     rows_affected, file_name, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const recentAuditSQL = `
SELECT id, action, severity, session_id, row_id, old_record, new_record,
       rows_affected, file_name, ip_address, user_agent, created_at
FROM record_audit_log
ORDER BY created_at DESC
LIMIT $1`

// PostgresAudit stores audit entries in the record_audit_log table. Only the
// audit trail is written; datasets stay in memory.
type PostgresAudit struct {
	db DBTX
}

// NewPostgresAudit returns a sink writing through db.
func NewPostgresAudit(db DBTX) *PostgresAudit {
	return &PostgresAudit{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (p *PostgresAudit) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Record inserts e.
func (p *PostgresAudit) Record(ctx context.Context, e AuditEntry) error {
	oldJSON, err := recordJSON(e.OldRecord)
	if err != nil {
		return err
	}
	newJSON, err := recordJSON(e.NewRecord)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, insertAuditSQL,
		toPgUUID(e.ID),
		string(e.Action),
		string(e.Severity),
		e.SessionID,
		toPgInt8(int64(e.RowID)),
		oldJSON,
		newJSON,
		toPgInt4(e.RowsAffected),
		toPgText(e.FileName),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *PostgresAudit) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := p.db.Query(ctx, recentAuditSQL, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanAuditEntry)
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(row pgx.CollectableRow) (AuditEntry, error) {
	var (
		e                       AuditEntry
		id                      pgtype.UUID
		action, severity        string
		rowID                   pgtype.Int8
		oldJSON, newJSON        []byte
		rowsAffected            pgtype.Int4
		fileName, ip, userAgent pgtype.Text
	)
	err := row.Scan(&id, &action, &severity, &e.SessionID, &rowID, &oldJSON, &newJSON,
		&rowsAffected, &fileName, &ip, &userAgent, &e.CreatedAt)
	if err != nil {
		return AuditEntry{}, err
	}

	e.ID = uuidToString(id)
	e.Action = AuditAction(action)
	e.Severity = AuditSeverity(severity)
	e.RowID = records.RowID(rowID.Int64)
	e.RowsAffected = int(rowsAffected.Int32)
	e.FileName = fileName.String
	e.IPAddress = ip.String
	e.UserAgent = userAgent.String
	if e.OldRecord, err = parseRecordJSON(oldJSON); err != nil {
		return AuditEntry{}, err
	}
	if e.NewRecord, err = parseRecordJSON(newJSON); err != nil {
		return AuditEntry{}, err
	}
	return e, nil
}

func recordJSON(r records.Record) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode audit record: %w", err)
	}
	return b, nil
}

func parseRecordJSON(b []byte) (records.Record, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var r records.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode audit record: %w", err)
	}
	return r, nil
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toPgInt4(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: i != 0}
}

func toPgInt8(i int64) pgtype.Int8 {
	return pgtype.Int8{Int64: i, Valid: i != 0}
}

func toPgUUID(s string) pgtype.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: u, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
