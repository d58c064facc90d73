// Package core provides the service layer of the customer record editor.
//
// The pure dataset logic lives in package records; this package owns
// everything around it that a running frontend needs, independent of any UI
// or transport. It can be used by the web handlers, the terminal UI, or tests
// without modification.
//
// # Workspaces
//
// Each browser session gets its own [records.State], held in memory by the
// [Service] and guarded by a per-session mutex. Sessions idle for longer than
// the configured timeout are dropped by the sweeper started with
// [Service.StartSessionSweeper]. Datasets are never persisted.
//
// # Import
//
// [Service.Import] streams an uploaded file through the BOM-skipping and UTF-8
// sanitizing readers, enforces the size limit, and parses it with
// [records.ParseCSV]. The number of imports parsed at once is bounded by an
// [ImportLimiter]; callers wait up to the configured time for a slot.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: File errors (size, format, type, missing, empty)
//   - VAL001: Field validation errors
//   - ROW001-ROW005: Row and selection errors
//   - UPL002-UPL005: Import slot and request errors
//   - RATE001: Throttling
//
// # Audit Logging
//
// Every import, add, edit, delete, export and send is recorded through an
// [AuditSink]: an in-memory ring by default, or the record_audit_log table in
// PostgreSQL when a database is configured.
package core
