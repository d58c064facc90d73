package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/custedit/internal/records"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImport         AuditAction = "import"
	ActionRowAdd         AuditAction = "row_add"
	ActionRowEdit        AuditAction = "row_edit"
	ActionRowDelete      AuditAction = "row_delete"
	ActionDeleteMatching AuditAction = "row_delete_matching"
	ActionExport         AuditAction = "export"
	ActionSend           AuditAction = "send"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

const (
	// DefaultAuditCapacity is the number of entries the memory sink keeps.
	DefaultAuditCapacity = 1000

	// DefaultHistoryLimit is the number of entries returned when no limit is given.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps a single audit query.
	MaxHistoryLimit = 500
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	Severity     AuditSeverity  `json:"severity"`
	SessionID    string         `json:"sessionId"`
	RowID        records.RowID  `json:"rowId,omitempty"`
	OldRecord    records.Record `json:"oldRecord,omitempty"`
	NewRecord    records.Record `json:"newRecord,omitempty"`
	RowsAffected int            `json:"rowsAffected,omitempty"`
	FileName     string         `json:"fileName,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	SessionID    string
	RowID        records.RowID
	OldRecord    records.Record
	NewRecord    records.Record
	RowsAffected int
	FileName     string
}

// AuditSink stores audit entries.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImport, ActionRowDelete, ActionDeleteMatching:
		return SeverityHigh
	case ActionExport, ActionSend:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// NewAuditEntry builds an entry from params, taking the client metadata
// from ctx.
func NewAuditEntry(ctx context.Context, params AuditLogParams) AuditEntry {
	return AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		SessionID:    params.SessionID,
		RowID:        params.RowID,
		OldRecord:    params.OldRecord,
		NewRecord:    params.NewRecord,
		RowsAffected: params.RowsAffected,
		FileName:     params.FileName,
		IPAddress:    IPAddressFromContext(ctx),
		UserAgent:    UserAgentFromContext(ctx),
		CreatedAt:    time.Now().UTC(),
	}
}

// clampLimit applies DefaultHistoryLimit and MaxHistoryLimit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// MemoryAudit keeps the most recent entries in a fixed-size ring.
type MemoryAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
}

// NewMemoryAudit returns a ring holding up to capacity entries.
func NewMemoryAudit(capacity int) *MemoryAudit {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &MemoryAudit{entries: make([]AuditEntry, capacity)}
}

// Record stores e, overwriting the oldest entry once the ring is full.
func (m *MemoryAudit) Record(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryAudit) Recent(_ context.Context, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = len(m.entries)
	}
	limit = min(clampLimit(limit), size)

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}
