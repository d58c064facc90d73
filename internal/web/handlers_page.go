package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/custedit/internal/logging"
	"github.com/JonMunkholm/custedit/internal/records"
	"github.com/JonMunkholm/custedit/internal/web/templates"
)

// renderPage writes the editor page. A zero View is filled from the
// request's workspace.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data templates.PageData) {
	if data.View.PageSize == 0 {
		data.View = s.service.View(sessionID(r))
	}
	data.DebounceMS = s.cfg.Table.SearchDebounce.Milliseconds()
	data.MaxFileSize = s.service.MaxFileSize()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Page(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// redirectHome finishes a form post so a reload does not resubmit it.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleIndex renders the editor. Query parameters search, page and size
// navigate; edit, delete and add open the matching dialog.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nav, err := navigationFromQuery(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	view, err := s.service.Navigate(sessionID(r), nav)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := templates.PageData{View: view, AddOpen: q.Has("add")}
	if raw := q.Get("edit"); raw != "" {
		row, err := s.lookupRow(r, raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		data.Edit = &templates.EditForm{ID: row.ID, Form: templates.Form{Values: row.Record}}
	}
	if raw := q.Get("delete"); raw != "" {
		row, err := s.lookupRow(r, raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		data.Confirm = &row
	}
	s.renderPage(w, r, http.StatusOK, data)
}

func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.importFromRequest(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sid := sessionID(r)
	rec := recordFromForm(r, s.service.State(sid).Headers())

	if _, err := s.service.Add(r.Context(), sid, rec); err != nil {
		var verrs records.ValidationErrors
		if errors.As(err, &verrs) {
			s.renderPage(w, r, http.StatusUnprocessableEntity, templates.PageData{
				Alert:   alertFor(err),
				Add:     templates.Form{Values: rec, Errors: verrs.ByField()},
				AddOpen: true,
			})
			return
		}
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sid := sessionID(r)
	rec := recordFromForm(r, s.service.State(sid).Headers())

	if _, err := s.service.Edit(r.Context(), sid, id, rec); err != nil {
		var verrs records.ValidationErrors
		if errors.As(err, &verrs) {
			s.renderPage(w, r, http.StatusUnprocessableEntity, templates.PageData{
				Alert: alertFor(err),
				Edit: &templates.EditForm{
					ID:   id,
					Form: templates.Form{Values: rec, Errors: verrs.ByField()},
				},
			})
			return
		}
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	confirmed := r.PostFormValue("confirm") == "yes"
	if _, err := s.service.Delete(r.Context(), sessionID(r), id, confirmed); err != nil {
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleSelectForm(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.service.ToggleSelect(sessionID(r), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleSelectPageForm(w http.ResponseWriter, r *http.Request) {
	s.service.TogglePageSelection(sessionID(r))
	redirectHome(w, r)
}

func (s *Server) handleClearSelectionForm(w http.ResponseWriter, r *http.Request) {
	s.service.ClearSelection(sessionID(r))
	redirectHome(w, r)
}

// handleExport downloads the selected rows as CSV. Shared by the page and
// the API.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	d := &attachment{w: w}
	if err := s.service.Export(r.Context(), sessionID(r), d); err != nil {
		if d.written {
			// Headers are gone; the client sees a truncated download.
			logging.FromContext(r.Context()).Error("export write failed", "error", err)
			return
		}
		s.respondError(w, r, err)
	}
}

func (s *Server) handleSendPage(w http.ResponseWriter, r *http.Request) {
	values, err := s.service.Send(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, templates.PageData{
		Send: &templates.SendDialog{Field: s.service.SendField(), Values: values},
	})
}
