// Package errors provides the coded error kinds shared by the catalog layers.
//
// Storage, service and exchange code return *Error values; the presentation
// layers (CLI, HTTP) map the code to an exit status or HTTP status:
//
//	if errors.Is(err, errors.ErrDuplicateKey) {
//	    result.AddSkip()
//	}
//
//	os.Exit(errors.CodeOf(err).ExitCode())
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

const (
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeDuplicateKey Code = "DUPLICATE_KEY"
	CodeNotFound     Code = "NOT_FOUND"
	CodeStorageFault Code = "STORAGE_FAULT"
	CodeImportFault  Code = "IMPORT_FAULT"
	CodeExportFault  Code = "EXPORT_FAULT"
	// CodeUnknown is reported for errors that carry no code.
	CodeUnknown Code = "UNKNOWN"
)

// Label is the stable, human-readable prefix printed in front of messages.
func (c Code) Label() string {
	switch c {
	case CodeInvalidInput:
		return "invalid input"
	case CodeDuplicateKey:
		return "duplicate bookmark"
	case CodeNotFound:
		return "not found"
	case CodeStorageFault:
		return "storage error"
	case CodeImportFault:
		return "import failed"
	case CodeExportFault:
		return "export failed"
	default:
		return "error"
	}
}

// ExitCode returns the process exit status for the code. Every known code maps
// to a distinct non-zero value.
func (c Code) ExitCode() int {
	switch c {
	case CodeInvalidInput:
		return 2
	case CodeDuplicateKey:
		return 3
	case CodeNotFound:
		return 4
	case CodeStorageFault:
		return 5
	case CodeImportFault:
		return 6
	case CodeExportFault:
		return 7
	default:
		return 1
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput, CodeImportFault:
		return http.StatusBadRequest
	case CodeDuplicateKey:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrInvalidInput = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrDuplicateKey = &Error{Code: CodeDuplicateKey, Message: "already exists"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrStorageFault = &Error{Code: CodeStorageFault, Message: "storage fault"}
	ErrImportFault  = &Error{Code: CodeImportFault, Message: "import fault"}
	ErrExportFault  = &Error{Code: CodeExportFault, Message: "export fault"}
)

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

func InvalidInputf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func DuplicateKeyf(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// StorageFault wraps an unexpected database failure during the named operation.
func StorageFault(err error, operation string) *Error {
	return &Error{Code: CodeStorageFault, Message: fmt.Sprintf("database error during %q", operation), cause: err}
}

// ImportFault reports a file-level import failure for path.
func ImportFault(path string, err error) *Error {
	return &Error{Code: CodeImportFault, Message: fmt.Sprintf("import failed for %q", path), Details: path, cause: err}
}

// ExportFault reports a file-level export failure for path.
func ExportFault(path string, err error) *Error {
	return &Error{Code: CodeExportFault, Message: fmt.Sprintf("export failed for %q", path), Details: path, cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
