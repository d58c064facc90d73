package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Error Codes Reference
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum import size
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: File could not be parsed as CSV
//	          Action: Check quoting on the reported line
//	          Patterns: "invalid csv"
//
//	FILE003 - Wrong type: The selected file is not a CSV file
//	          Action: Choose a file with a .csv extension
//	          Patterns: "invalid file type"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to import
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The file has a header but no data rows
//	          Action: Please import a CSV file with data rows
//	          Patterns: "empty file"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Required field: One or more fields are empty
//	         Action: Fill in every field before saving
//	         Patterns: "required field"
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Not found: The row no longer exists
//	ROW002 - Not confirmed: A delete was submitted without confirmation
//	ROW003 - No dataset: Rows were added before any import
//	ROW004 - Empty selection: Export or send with nothing selected
//	ROW005 - Page size: Page size is not one of the offered values
//
// # Import Errors (UPL002-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Request Errors (REQ001)
//
//	REQ001 - Malformed request: an API body or row ID could not be read
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check application logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum import size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File could not be parsed as CSV",
			Action:  "Check the quoting on the reported line",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "The selected file is not a CSV file",
			Action:  "Choose a file with a .csv extension",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Please import a CSV file with a header and at least one row",
			Code:    "FILE005",
		},
	},

	// Validation
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Every field must have a value",
			Action:  "Fill in the highlighted fields and save again",
			Code:    "VAL001",
		},
	},

	// Rows and selection
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "That row no longer exists",
			Action:  "Reload the page to see the current data",
			Code:    "ROW001",
		},
	},
	{
		pattern: "delete not confirmed",
		msg: UserMessage{
			Message: "Delete was not confirmed",
			Action:  "Confirm the delete to remove the row",
			Code:    "ROW002",
		},
	},
	{
		pattern: "no dataset loaded",
		msg: UserMessage{
			Message: "No data has been imported yet",
			Action:  "Import a CSV file first",
			Code:    "ROW003",
		},
	},
	{
		pattern: "no rows selected",
		msg: UserMessage{
			Message: "No rows are selected",
			Action:  "Tick the rows you want and try again",
			Code:    "ROW004",
		},
	},
	{
		pattern: "invalid page size",
		msg: UserMessage{
			Message: "Unsupported page size",
			Action:  "Choose 10, 25 or 100 rows per page",
			Code:    "ROW005",
		},
	},

	// Import slots and request lifecycle
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// Requests
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and row ID",
			Code:    "REQ001",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
