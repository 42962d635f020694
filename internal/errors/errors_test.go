package errors

import (
	"fmt"
	"testing"
)

func TestTocError_Error(t *testing.T) {
	err := &TocError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "page not found",
	}

	expected := "NOT_FOUND: page not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("page is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "page is required" {
		t.Errorf("Message = %q, want %q", err.Message, "page is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("chat-toc-3")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Details["identifier"] != "chat-toc-3" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "chat-toc-3")
	}
}

func TestNewNothingToExport(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		message string
	}{
		{name: "no page", page: "", message: "table of contents is empty"},
		{name: "named page", page: "transcript.html", message: `table of contents for "transcript.html" is empty`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNothingToExport(tt.page)
			if err.Code != ErrNothingToExport {
				t.Errorf("Code = %q, want %q", err.Code, ErrNothingToExport)
			}
			if err.Message != tt.message {
				t.Errorf("Message = %q, want %q", err.Message, tt.message)
			}
		})
	}
}

func TestNewRebuildFailed(t *testing.T) {
	err := NewRebuildFailed("malformed node")

	if err.Code != ErrRebuildFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrRebuildFailed)
	}
	if err.Message != "rebuild failed: malformed node" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{name: "matching code", err: NewNotFound("x"), code: ErrNotFound, want: true},
		{name: "different code", err: NewNotFound("x"), code: ErrInternal, want: false},
		{name: "plain error", err: fmt.Errorf("boom"), code: ErrInternal, want: false},
		{name: "nil error", err: nil, code: ErrInternal, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
