package web

import (
	"context"
	"mime"
	"net/http"
)

// attachment delivers an export as a file download.
type attachment struct {
	w       http.ResponseWriter
	written bool
}

// Deliver writes data with headers that make browsers save it as name.
func (a *attachment) Deliver(_ context.Context, name, mimeType string, data []byte) error {
	h := a.w.Header()
	h.Set("Content-Type", mimeType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Set("Cache-Control", "no-store")
	a.w.WriteHeader(http.StatusOK)
	a.written = true

	_, err := a.w.Write(data)
	return err
}
