package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/custedit/internal/core"
)

// handleImportAPI imports a multipart CSV upload and returns the new view.
func (s *Server) handleImportAPI(w http.ResponseWriter, r *http.Request) {
	res, err := s.importFromRequest(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toImportResponse(res, s.service.View(sessionID(r))))
}

// handleImportStatus returns the current state of the import limiter.
// Used for monitoring and to check if the system can accept more imports.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ImportStatus())
}

// handleListRows navigates with search, page and size and returns the view.
func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	nav, err := navigationFromQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	view, err := s.service.Navigate(sessionID(r), nav)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewResponse(view))
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var req rowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	row, err := s.service.Add(r.Context(), sessionID(r), req.Record)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rowResponse{ID: row.ID, Record: row.Record})
}

func (s *Server) handleEditRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req rowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	sid := sessionID(r)
	row, err := s.service.Edit(r.Context(), sid, id, req.Record)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{
		ID:       row.ID,
		Record:   row.Record,
		Selected: s.service.State(sid).IsSelected(row.ID),
	})
}

// handleDeleteRow removes one row. The call must carry confirm=true.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	row, err := s.service.Delete(r.Context(), sessionID(r), id, confirmed)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{ID: row.ID, Record: row.Record})
}

// handleDeleteMatching removes every row whose values equal the posted record.
func (s *Server) handleDeleteMatching(w http.ResponseWriter, r *http.Request) {
	var req rowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(req.Record) == 0 {
		// An empty record would match every row.
		s.respondError(w, r, fmt.Errorf("%w: record is empty", errBadRequest))
		return
	}
	removed := s.service.DeleteMatching(r.Context(), sessionID(r), req.Record)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleSelectRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	view, err := s.service.ToggleSelect(sessionID(r), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewResponse(view))
}

func (s *Server) handleSelectPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toViewResponse(s.service.TogglePageSelection(sessionID(r))))
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toViewResponse(s.service.ClearSelection(sessionID(r))))
}

// sendResponse lists the send field of the selected rows.
type sendResponse struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	values, err := s.service.Send(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Field: s.service.SendField(), Values: values})
}

// handleAuditLog returns recent audit entries, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := core.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, r, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}

	entries, err := s.service.AuditLog(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
