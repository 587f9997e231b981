package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseError indicates a file could not be parsed at all (per-file, non-fatal)
	ParseError ErrorCode = "PARSE_ERROR"
	// ExtractionError indicates a symbol or edge could not be normalized (non-fatal)
	ExtractionError ErrorCode = "EXTRACTION_ERROR"
	// MigrationError indicates a migration attempt failed and was discarded
	MigrationError ErrorCode = "MIGRATION_ERROR"
	// ValidationError indicates malformed query input
	ValidationError ErrorCode = "VALIDATION_ERROR"
	// NotFound indicates the requested id or resource is absent
	NotFound ErrorCode = "NOT_FOUND"
	// StoreUnavailable indicates lock contention or an I/O failure on the store
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// Retry suggests retrying the same request later
	Retry FixActionType = "retry"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// CixError is an error with a stable code, a message and optional details.
type CixError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a CixError with the default suggested fixes for its code.
func New(code ErrorCode, message string, cause error) *CixError {
	return &CixError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *CixError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CixError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CixError) WithDetails(details interface{}) *CixError {
	e.Details = details
	return e
}

// Is matches two CixErrors by code so errors.Is(err, errors.New(NotFound, "", nil)) works.
func (e *CixError) Is(target error) bool {
	t, ok := target.(*CixError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ParseFailure describes a file that produced nothing at all.
type ParseFailure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// NewParseError builds the per-file parse error.
func NewParseError(file, reason string) *CixError {
	return New(ParseError, fmt.Sprintf("cannot parse %s", file), nil).
		WithDetails(ParseFailure{File: file, Reason: reason})
}

// NewExtractionError builds a per-symbol or per-edge extraction error.
func NewExtractionError(file, message string) *CixError {
	return New(ExtractionError, message, nil).WithDetails(map[string]string{"file": file})
}

// NewMigrationError builds the fatal migration error with diagnostics.
func NewMigrationError(message string, cause error, diagnostics interface{}) *CixError {
	e := New(MigrationError, message, cause)
	if diagnostics != nil {
		e.Details = diagnostics
	}
	return e
}

// NewValidationError reports a malformed parameter.
func NewValidationError(field, message string) *CixError {
	return New(ValidationError, message, nil).WithDetails(map[string]string{"field": field})
}

// NewNotFoundError reports a missing id or resource.
func NewNotFoundError(kind, id string) *CixError {
	return New(NotFound, fmt.Sprintf("%s not found: %s", kind, id), nil).
		WithDetails(map[string]string{"kind": kind, "id": id})
}

// NewStoreUnavailableError reports lock contention or store I/O failure.
func NewStoreUnavailableError(message string, cause error) *CixError {
	return New(StoreUnavailable, message, cause)
}

// CodeOf returns the code of the first CixError in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var ce *CixError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return InternalError
}

// As returns the first CixError in err's chain, wrapping unknown errors as InternalError.
func As(err error) *CixError {
	if err == nil {
		return nil
	}
	var ce *CixError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(InternalError, err.Error(), err)
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var ce *CixError
	return stderrors.As(err, &ce) && ce.Code == code
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return Is(err, StoreUnavailable)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	StoreUnavailable: {
		{
			Type:        Retry,
			Safe:        true,
			Description: "Another index run may hold the store; retry with backoff",
		},
	},
	MigrationError: {
		{
			Type:        RunCommand,
			Command:     "cix migrate --from <legacy-dir> --sample 0",
			Safe:        true,
			Description: "Re-run migration with a full verification pass",
		},
		{
			Type:        RunCommand,
			Command:     "cix stats --legacy",
			Safe:        true,
			Description: "Serve queries from the legacy records until migration succeeds",
		},
	},
	NotFound: {
		{
			Type:        RunCommand,
			Command:     "cix search <name>",
			Safe:        true,
			Description: "Look up the symbol id by name",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if actions, ok := ErrorActions[code]; ok {
		return actions
	}
	return nil
}
