package web

// handlers.go holds the request parsing and response shapes shared by the
// page handlers and the JSON API.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/records"
	"github.com/JonMunkholm/custedit/internal/web/templates"
)

const (
	// multipartMemory is the part of an upload kept in memory; the rest
	// spills to temporary files.
	multipartMemory = 8 << 20

	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 64 << 10

	// maxJSONBody bounds API request bodies.
	maxJSONBody = 1 << 20
)

// importFromRequest reads the multipart "file" field and imports it into the
// request's workspace.
func (s *Server) importFromRequest(w http.ResponseWriter, r *http.Request) (core.ImportResult, error) {
	maxSize := s.service.MaxFileSize()
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.ImportResult{}, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return core.ImportResult{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return core.ImportResult{}, core.ErrNoFile
		}
		return core.ImportResult{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer file.Close()

	return s.service.Import(r.Context(), sessionID(r), header.Filename, file)
}

// rowIDParam parses the {id} path value.
func rowIDParam(r *http.Request) (records.RowID, error) {
	raw := chi.URLParam(r, "id")
	id, err := records.ParseRowID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: row id %q", errBadRequest, raw)
	}
	return id, nil
}

// lookupRow finds a row of the request's workspace by its decimal ID.
func (s *Server) lookupRow(r *http.Request, raw string) (records.Row, error) {
	id, err := records.ParseRowID(raw)
	if err != nil {
		return records.Row{}, fmt.Errorf("%w: row id %q", errBadRequest, raw)
	}
	row, ok := s.service.State(sessionID(r)).Row(id)
	if !ok {
		return records.Row{}, records.ErrRowNotFound
	}
	return row, nil
}

// navigationFromQuery reads search, page and size. Absent parameters leave
// the current value untouched.
func navigationFromQuery(q url.Values) (core.Navigation, error) {
	var nav core.Navigation
	if q.Has("search") {
		term := q.Get("search")
		nav.Search = &term
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nav, fmt.Errorf("%w: page %q", errBadRequest, raw)
		}
		nav.Page = &page
	}
	if raw := q.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return nav, fmt.Errorf("%w: %q", records.ErrInvalidPageSize, raw)
		}
		nav.PageSize = &size
	}
	return nav, nil
}

// recordFromForm collects one value per header from the posted form.
func recordFromForm(r *http.Request, headers []string) records.Record {
	rec := make(records.Record, len(headers))
	for _, h := range headers {
		rec[h] = r.PostFormValue(templates.FieldPrefix + h)
	}
	return rec
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// alertFor turns an error into the page alert.
func alertFor(err error) *templates.Alert {
	msg := core.MapError(err)
	return &templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// rowRequest is the body of add, edit and delete-matching calls.
type rowRequest struct {
	Record records.Record `json:"record"`
}

// rowResponse is one row as returned by the API.
type rowResponse struct {
	ID       records.RowID  `json:"id"`
	Record   records.Record `json:"record"`
	Selected bool           `json:"selected"`
}

// viewResponse is the visible window of a workspace.
type viewResponse struct {
	Headers           []string      `json:"headers"`
	Rows              []rowResponse `json:"rows"`
	Search            string        `json:"search"`
	Page              int           `json:"page"`
	PageSize          int           `json:"pageSize"`
	PageCount         int           `json:"pageCount"`
	Total             int           `json:"total"`
	DatasetSize       int           `json:"datasetSize"`
	SelectedCount     int           `json:"selectedCount"`
	AllOnPageSelected bool          `json:"allOnPageSelected"`
}

func toViewResponse(v records.View) viewResponse {
	rows := make([]rowResponse, len(v.Rows))
	for i, row := range v.Rows {
		rows[i] = rowResponse{ID: row.ID, Record: row.Record, Selected: v.Selected[row.ID]}
	}
	headers := v.Headers
	if headers == nil {
		headers = []string{}
	}
	return viewResponse{
		Headers:           headers,
		Rows:              rows,
		Search:            v.Search,
		Page:              v.Page,
		PageSize:          v.PageSize,
		PageCount:         v.PageCount,
		Total:             v.Total,
		DatasetSize:       v.DatasetSize,
		SelectedCount:     v.SelectedCount,
		AllOnPageSelected: v.AllOnPageSelected(),
	}
}

// importResponse wraps an import result for JSON encoding.
type importResponse struct {
	FileName string       `json:"fileName"`
	Rows     int          `json:"rows"`
	Columns  int          `json:"columns"`
	Bytes    int64        `json:"bytes"`
	Duration string       `json:"duration"`
	View     viewResponse `json:"view"`
}

// toImportResponse converts an ImportResult to a JSON-friendly format.
func toImportResponse(res core.ImportResult, v records.View) importResponse {
	return importResponse{
		FileName: res.FileName,
		Rows:     res.Rows,
		Columns:  res.Columns,
		Bytes:    res.Bytes,
		Duration: res.Duration.String(),
		View:     toViewResponse(v),
	}
}
