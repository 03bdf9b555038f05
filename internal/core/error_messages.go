package core

// error_messages.go maps technical load errors to user-facing messages with
// codes for support reference.
//
// # Reference Errors (REF001-REF002)
//
//	REF001 - No sheet ID could be extracted from the input
//	         Action: Use a docs/drive link or a raw sheet ID
//	         Match: errors.Is(err, ErrReferenceParse)
//
//	REF002 - The input was blank
//	         Patterns: "no sheet source"
//
// # Source Errors (SRC001-SRC003)
//
//	SRC001 - Every retrieval strategy failed
//	         Action: Confirm the sheet is shared for public viewing
//	         Match: errors.As(err, *CompositeRetrievalError)
//
//	SRC002 - A strategy answered but the sheet had no columns
//	         Action: Ensure the first row contains column headers
//	         Match: errors.Is(err, ErrEmptyDataset)
//
//	SRC003 - A newer load replaced this one
//	         Action: None; the newer load's result is shown
//	         Patterns: "load superseded"
//
// # Request Errors (REQ001-REQ002)
//
//	REQ001 - Request cancelled          Patterns: "context canceled"
//	REQ002 - Request timed out          Patterns: "context deadline exceeded", "timeout"
//
// # Other
//
//	RATE001 - Too many requests         Patterns: "rate limit"
//	RATE002 - Too many loads in flight  Patterns: "too many concurrent loads"
//	EXP001  - Unsupported export format Patterns: "unsupported export format"
//	SES001  - No data loaded            Patterns: "no data loaded"
//	SES002  - Nothing saved to reload   Patterns: "no saved source"
//	ERR000  - Fallback; check the logs for the technical error
//
// Typed errors are checked first, then patterns are matched
// case-insensitively with strings.Contains. The first match wins.

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

var (
	referenceMessage = UserMessage{
		Message: "Could not extract a Google Sheet ID",
		Action:  "Use a docs/drive link or a raw sheet ID",
		Code:    "REF001",
	}
	allStrategiesMessage = UserMessage{
		Message: "Unable to load this sheet",
		Action:  "Confirm the sheet is shared for public viewing and the link/ID is correct",
		Code:    "SRC001",
	}
	emptyDatasetMessage = UserMessage{
		Message: "Sheet was loaded but no columns were found",
		Action:  "Ensure the first row contains column headers",
		Code:    "SRC002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered: specific patterns before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "no sheet source",
		msg: UserMessage{
			Message: "Please enter a Google Sheets link or sheet ID",
			Action:  "Paste a docs/drive link or a raw sheet ID",
			Code:    "REF002",
		},
	},
	{
		pattern: "load superseded",
		msg: UserMessage{
			Message: "A newer load replaced this one",
			Action:  "The most recent load's result is shown",
			Code:    "SRC003",
		},
	},
	{
		pattern: "no data loaded",
		msg: UserMessage{
			Message: "No sheet is loaded",
			Action:  "Paste a Google Sheet and click View Data",
			Code:    "SES001",
		},
	},
	{
		pattern: "no saved source",
		msg: UserMessage{
			Message: "There is no saved sheet to reload",
			Action:  "Paste a Google Sheet and click View Data",
			Code:    "SES002",
		},
	},
	{
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "Export format is not supported",
			Action:  "Choose csv or xlsx",
			Code:    "EXP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Check your connection and try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Check your connection and try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: "The server is busy loading other sheets",
			Action:  "Please try again in a few seconds",
			Code:    "RATE002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var composite *CompositeRetrievalError
	switch {
	case errors.Is(err, ErrReferenceParse):
		return referenceMessage
	case errors.Is(err, ErrEmptyDataset):
		return emptyDatasetMessage
	case errors.As(err, &composite):
		return allStrategiesMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	return formatUserMessage(MapError(err))
}

func formatUserMessage(msg UserMessage) string {
	if msg.Action == "" {
		return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

// Error renders the user message in the FormatUserError layout.
func (e *UserError) Error() string {
	return formatUserMessage(e.User)
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
