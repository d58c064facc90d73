package records

import (
	"bytes"
	"context"
	"strings"
)

const (
	// ExportFileName is the name offered for exported files.
	ExportFileName = "exported_data.csv"

	// ExportMIMEType is the content type of exported files.
	ExportMIMEType = "text/csv;charset=utf-8"
)

// Deliverer hands exported bytes to the user: an HTTP download, a file on
// disk, or anything else the frontend offers.
type Deliverer interface {
	Deliver(ctx context.Context, name, mimeType string, data []byte) error
}

// ExportCSV serializes rows in header order.
//
// The header line is the header names joined by commas. Each row field is
// wrapped in double quotes with embedded quotes doubled. Lines are joined by
// "\n" with no trailing newline.
func ExportCSV(headers []string, rows []Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(headers, ","))

	for _, row := range rows {
		buf.WriteByte('\n')
		for i, h := range headers {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(row[h], `"`, `""`))
			buf.WriteByte('"')
		}
	}
	return buf.Bytes()
}
