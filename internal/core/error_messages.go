package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support staff look it up here.
//
// Import failures (EXC001-EXC005) already carry a localized message and are
// passed through unchanged. Everything else is matched case-insensitively
// against errorPatterns; the first match wins, so specific patterns come
// before general ones.
//
//	EXC001-EXC005  exchange file rejected by the import pipeline
//	DB001-DB006    database constraint and connectivity errors
//	FILE001-FILE002 upload handling errors
//	IMP001-IMP004  import scheduling and exchange state errors
//	REQ001         malformed request parameters or body
//	RATE001        request throttling
//	ERR000         fallback, check the logs for the technical error

import (
	"errors"
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
	// Database constraints
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this number already exists",
			Action:  "Check the file for entries that were already imported",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Make sure journals and accounts exist before importing",
			Code:    "DB002",
		},
	},

	// Database connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},

	// Upload handling
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the exchange into smaller periods",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE002",
		},
	},

	// Import scheduling and exchange state
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "import already in progress",
		msg: UserMessage{
			Message: "Another import is running for this financial year",
			Action:  "Wait for it to finish before submitting a new file",
			Code:    "IMP002",
		},
	},
	{
		pattern: "exchange is closed",
		msg: UserMessage{
			Message: "This exchange is closed",
			Action:  "Open a new exchange for the financial year",
			Code:    "IMP003",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "Record not found",
			Action:  "Verify the identifier is correct",
			Code:    "IMP004",
		},
	},

	// Request handling
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is malformed",
			Action:  "Check the request parameters and try again",
			Code:    "REQ001",
		},
	},

	// Throttling
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

// MapError converts an error to a user-friendly message.
// Import failures keep their localized message; other errors are matched
// against the pattern table and fall back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var invalid *InvalidFile
	if errors.As(err, &invalid) {
		return UserMessage{
			Message: invalid.Message,
			Action:  "Correct the file and submit it again",
			Code:    invalid.Code(),
		}
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

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
