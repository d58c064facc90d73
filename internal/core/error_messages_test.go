package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/custedit/internal/records"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "file too large", err: ErrFileTooLarge, wantCode: "FILE001"},
		{
			name:     "csv parse error",
			err:      &records.ParseError{Line: 3, Err: errors.New(`bare " in non-quoted field`)},
			wantCode: "FILE002",
		},
		{name: "wrong extension", err: records.ErrNotCSV, wantCode: "FILE003"},
		{name: "no file", err: ErrNoFile, wantCode: "FILE004"},
		{name: "header only", err: records.ErrEmptyCSV, wantCode: "FILE005"},
		{
			name:     "validation errors",
			err:      records.ValidationErrors{{Field: "Name", Message: records.RequiredMessage}},
			wantCode: "VAL001",
		},
		{name: "row not found", err: records.ErrRowNotFound, wantCode: "ROW001"},
		{name: "not confirmed", err: records.ErrNotConfirmed, wantCode: "ROW002"},
		{name: "no dataset", err: records.ErrNoDataset, wantCode: "ROW003"},
		{name: "empty selection", err: records.ErrEmptySelection, wantCode: "ROW004"},
		{name: "page size", err: records.ErrInvalidPageSize, wantCode: "ROW005"},
		{name: "busy", err: ErrTooManyImports, wantCode: "UPL002"},
		{name: "wrapped cancel", err: fmt.Errorf("import: %w", context.Canceled), wantCode: "UPL004"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "UPL005"},
		{name: "rate limit", err: errors.New("Rate limit exceeded"), wantCode: "RATE001"},
		{name: "bad request body", err: errors.New("invalid request: unexpected EOF"), wantCode: "REQ001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(records.ErrRowNotFound)
	want := "That row no longer exists (Code: ROW001). Reload the page to see the current data"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(records.ErrEmptySelection) {
		t.Error("empty selection should be user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unknown error should not be user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
}
