package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/custedit/internal/config"
	"github.com/JonMunkholm/custedit/internal/logging"
	"github.com/JonMunkholm/custedit/internal/records"
)

// ErrNoFile is returned when an import carries no file.
var ErrNoFile = errors.New("no file provided")

// DefaultImportTimeout bounds a single import, including the wait for a slot.
const DefaultImportTimeout = 2 * time.Minute

// DefaultSessionIdle is how long an untouched workspace is kept.
const DefaultSessionIdle = 30 * time.Minute

// Options configures a Service.
type Options struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	ImportTimeout time.Duration
	SessionIdle   time.Duration
	SendField     string
}

// OptionsFromConfig extracts the service settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWaitTime:   cfg.Upload.MaxWaitTime,
		ImportTimeout: cfg.Upload.Timeout,
		SessionIdle:   cfg.Session.IdleTimeout,
		SendField:     cfg.Table.SendField,
	}
}

// Service owns the in-memory workspaces of all sessions.
type Service struct {
	opts    Options
	audit   AuditSink
	limiter *ImportLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu       sync.Mutex
	state    records.State
	lastSeen time.Time
}

// NewService creates a Service. A nil audit sink selects an in-memory ring.
func NewService(opts Options, audit AuditSink) *Service {
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = DefaultImportTimeout
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = DefaultSessionIdle
	}
	if opts.SendField == "" {
		opts.SendField = records.DefaultSendField
	}
	if audit == nil {
		audit = NewMemoryAudit(DefaultAuditCapacity)
	}
	return &Service{
		opts:     opts,
		audit:    audit,
		limiter:  NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// EnsureSession returns id when it names a live session and refreshes its
// idle timer. Otherwise a new empty session is created and its ID returned
// with created set.
func (s *Service) EnsureSession(id string) (sid string, created bool) {
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			sess.mu.Lock()
			sess.lastSeen = s.now()
			sess.mu.Unlock()
			return id, false
		}
	}

	sid = uuid.NewString()
	s.mu.Lock()
	s.sessions[sid] = &session{state: records.NewState(), lastSeen: s.now()}
	s.mu.Unlock()
	return sid, true
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// State returns the current state of session id. Unknown sessions read as
// an empty workspace.
func (s *Service) State(id string) records.State {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return records.NewState()
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// View returns what the frontend renders for session id.
func (s *Service) View(id string) records.View {
	return s.State(id).View()
}

// update applies fn to the state of session id under the session lock. The
// state is stored only when fn succeeds.
func (s *Service) update(id string, fn func(records.State) (records.State, error)) (records.State, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{state: records.NewState()}
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	next, err := fn(sess.state)
	if err != nil {
		return sess.state, err
	}
	sess.state = next
	return next, nil
}

// ImportResult summarizes a successful import.
type ImportResult struct {
	FileName string        `json:"fileName"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// Import parses a CSV file and replaces the dataset of session id. The
// selection is cleared and the page reset; the search term is kept. On any
// error the previous dataset stays in place.
func (s *Service) Import(ctx context.Context, id, fileName string, r io.Reader) (ImportResult, error) {
	if r == nil || fileName == "" {
		return ImportResult{}, ErrNoFile
	}
	if !records.IsCSVName(fileName) {
		return ImportResult{}, records.ErrNotCSV
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ImportTimeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "file", fileName)
	start := time.Now()

	src, counter := WrapForImport(r, s.opts.MaxFileSize)
	headers, recs, err := records.ParseCSV(fileName, contextReader{ctx: ctx, r: src})
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return ImportResult{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.opts.MaxFileSize)
		case ctx.Err() != nil:
			return ImportResult{}, ctx.Err()
		}
		log.Info("import rejected", "error", err)
		return ImportResult{}, err
	}

	_, _ = s.update(id, func(st records.State) (records.State, error) {
		return st.Import(headers, recs), nil
	})

	res := ImportResult{
		FileName: fileName,
		Rows:     len(recs),
		Columns:  len(headers),
		Bytes:    counter.BytesRead(),
		Duration: time.Since(start),
	}
	log.Info("import completed",
		"rows", res.Rows,
		"columns", res.Columns,
		"bytes", res.Bytes,
		"duration_ms", res.Duration.Milliseconds(),
	)
	s.logAudit(ctx, AuditLogParams{
		Action:       ActionImport,
		SessionID:    id,
		RowsAffected: res.Rows,
		FileName:     fileName,
	})
	return res, nil
}

// Add appends rec to the dataset of session id.
func (s *Service) Add(ctx context.Context, id string, rec records.Record) (records.Row, error) {
	var row records.Row
	_, err := s.update(id, func(st records.State) (records.State, error) {
		next, r, err := st.Add(rec)
		row = r
		return next, err
	})
	if err != nil {
		return records.Row{}, err
	}
	s.logAudit(ctx, AuditLogParams{
		Action:       ActionRowAdd,
		SessionID:    id,
		RowID:        row.ID,
		NewRecord:    row.Record,
		RowsAffected: 1,
	})
	return row, nil
}

// Edit replaces the record of row rowID and returns the updated row.
func (s *Service) Edit(ctx context.Context, id string, rowID records.RowID, rec records.Record) (records.Row, error) {
	var old, updated records.Row
	_, err := s.update(id, func(st records.State) (records.State, error) {
		next, o, err := st.Edit(rowID, rec)
		if err != nil {
			return st, err
		}
		old = o
		updated, _ = next.Row(rowID)
		return next, nil
	})
	if err != nil {
		return records.Row{}, err
	}
	s.logAudit(ctx, AuditLogParams{
		Action:       ActionRowEdit,
		SessionID:    id,
		RowID:        rowID,
		OldRecord:    old.Record,
		NewRecord:    updated.Record,
		RowsAffected: 1,
	})
	return updated, nil
}

// Delete removes row rowID once confirmed.
func (s *Service) Delete(ctx context.Context, id string, rowID records.RowID, confirmed bool) (records.Row, error) {
	var old records.Row
	_, err := s.update(id, func(st records.State) (records.State, error) {
		next, o, err := st.Delete(rowID, confirmed)
		old = o
		return next, err
	})
	if err != nil {
		return records.Row{}, err
	}
	s.logAudit(ctx, AuditLogParams{
		Action:       ActionRowDelete,
		SessionID:    id,
		RowID:        rowID,
		OldRecord:    old.Record,
		RowsAffected: 1,
	})
	return old, nil
}

// DeleteMatching removes every row whose values match target and returns
// the number removed.
func (s *Service) DeleteMatching(ctx context.Context, id string, target records.Record) int {
	var removed int
	_, _ = s.update(id, func(st records.State) (records.State, error) {
		next, n := st.DeleteMatching(target)
		removed = n
		return next, nil
	})
	if removed > 0 {
		s.logAudit(ctx, AuditLogParams{
			Action:       ActionDeleteMatching,
			SessionID:    id,
			OldRecord:    target,
			RowsAffected: removed,
		})
	}
	return removed
}

// ToggleSelect flips the selection of row rowID.
func (s *Service) ToggleSelect(id string, rowID records.RowID) (records.View, error) {
	st, err := s.update(id, func(st records.State) (records.State, error) {
		return st.ToggleSelect(rowID)
	})
	return st.View(), err
}

// TogglePageSelection acts as the select-all checkbox of the current page.
func (s *Service) TogglePageSelection(id string) records.View {
	st, _ := s.update(id, func(st records.State) (records.State, error) {
		return st.TogglePageSelection(), nil
	})
	return st.View()
}

// ClearSelection unselects every row.
func (s *Service) ClearSelection(id string) records.View {
	st, _ := s.update(id, func(st records.State) (records.State, error) {
		return st.ClearSelection(), nil
	})
	return st.View()
}

// Navigation changes what part of the dataset is shown. Nil fields are left
// as they are. The page size is applied first, then the search term, then
// the page, so a request carrying all three lands on the requested page.
type Navigation struct {
	Search   *string
	Page     *int
	PageSize *int
}

// Navigate applies nav to session id and returns the resulting view. An
// invalid page size rejects the whole request.
func (s *Service) Navigate(id string, nav Navigation) (records.View, error) {
	st, err := s.update(id, func(st records.State) (records.State, error) {
		if nav.PageSize != nil && *nav.PageSize != st.PageSize() {
			var err error
			if st, err = st.SetPageSize(*nav.PageSize); err != nil {
				return st, err
			}
		}
		if nav.Search != nil {
			st = st.SetSearch(*nav.Search)
		}
		if nav.Page != nil {
			st = st.SetPage(*nav.Page)
		}
		return st, nil
	})
	return st.View(), err
}

// Export serializes the selected rows of session id and hands them to d.
func (s *Service) Export(ctx context.Context, id string, d records.Deliverer) error {
	st := s.State(id)
	data, err := st.Export()
	if err != nil {
		return err
	}
	if err := d.Deliver(ctx, records.ExportFileName, records.ExportMIMEType, data); err != nil {
		return fmt.Errorf("deliver export: %w", err)
	}
	s.logAudit(ctx, AuditLogParams{
		Action:       ActionExport,
		SessionID:    id,
		RowsAffected: len(st.Selection()),
		FileName:     records.ExportFileName,
	})
	return nil
}

// Send returns the send field of every selected row. Nothing is transmitted.
func (s *Service) Send(ctx context.Context, id string) ([]string, error) {
	st := s.State(id)
	if len(st.Selection()) == 0 {
		return nil, records.ErrEmptySelection
	}
	list := st.SendList(s.opts.SendField)
	s.logAudit(ctx, AuditLogParams{
		Action:       ActionSend,
		SessionID:    id,
		RowsAffected: len(list),
	})
	return list, nil
}

// SendField returns the column listed by Send.
func (s *Service) SendField() string {
	return s.opts.SendField
}

// MaxFileSize returns the import size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// AuditLog returns up to limit recent audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	return s.audit.Recent(ctx, limit)
}

// ImportStatus reports the import limiter state.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// logAudit records an entry. Failures are logged and never fail the
// operation being audited.
func (s *Service) logAudit(ctx context.Context, params AuditLogParams) {
	entry := NewAuditEntry(ctx, params)
	if err := s.audit.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit log write failed",
			"action", entry.Action,
			"error", err,
		)
	}
}

// contextReader fails reads once ctx is done so a stalled upload stops at
// the import timeout.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
