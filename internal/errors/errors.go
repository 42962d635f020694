package errors

import "fmt"

// ErrorCode represents a chattoc error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrNothingToExport ErrorCode = "NOTHING_TO_EXPORT" // 404
	ErrRebuildFailed   ErrorCode = "REBUILD_FAILED"    // 500
	ErrCancelled       ErrorCode = "CANCELLED"         // 499
	ErrInternal        ErrorCode = "INTERNAL"          // 500
)

// TocError represents a structured error with code, status, and details.
type TocError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *TocError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TocError {
	return &TocError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a page or anchor that cannot be found.
func NewNotFound(identifier string) *TocError {
	return &TocError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNothingToExport creates a 404 error for an export of an empty index.
// Callers surface this instead of silently producing an empty string.
func NewNothingToExport(page string) *TocError {
	msg := "table of contents is empty"
	if page != "" {
		msg = fmt.Sprintf("table of contents for %q is empty", page)
	}
	return &TocError{
		Code:    ErrNothingToExport,
		Status:  404,
		Message: msg,
		Details: map[string]any{"page": page},
	}
}

// NewRebuildFailed creates a 500 error for a rebuild pass that could not complete.
// The previously published index stays in place when this is returned.
func NewRebuildFailed(cause any) *TocError {
	return &TocError{
		Code:    ErrRebuildFailed,
		Status:  500,
		Message: fmt.Sprintf("rebuild failed: %v", cause),
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(op string) *TocError {
	return &TocError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TocError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TocError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a TocError with the given code.
func Is(err error, code ErrorCode) bool {
	if tErr, ok := err.(*TocError); ok {
		return tErr.Code == code
	}
	return false
}
