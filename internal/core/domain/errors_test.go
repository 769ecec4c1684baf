package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("SE-TEST-1000", "test message"),
			expected: "[SE-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("SE-TEST-1001", "test message").WithDetails("slot=100"),
			expected: "[SE-TEST-1001] test message: slot=100",
		},
		{
			name:     "error with details and cause",
			err:      NewDomainError("SE-TEST-1002", "test message").WithDetails("slot=100").WithCause(fmt.Errorf("short read")),
			expected: "[SE-TEST-1002] test message: slot=100: short read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("SE-TEST-1000", "message 1")
	err2 := NewDomainError("SE-TEST-1000", "message 2")
	err3 := NewDomainError("SE-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("SE-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("SE-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetailsDoesNotMutate(t *testing.T) {
	original := NewDomainError("SE-TEST-1000", "original message")
	withDetails := original.WithDetailsf("segment %d.%d", 100, 7)

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "segment 100.7" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "segment 100.7")
	}
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrMissingManifest, "SE-MANI-4040"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrDecodeSkew), "SE-MANI-4220"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKindAndRecoverable(t *testing.T) {
	tests := []struct {
		err         error
		kind        string
		recoverable bool
	}{
		{ErrIO.WithCause(fmt.Errorf("eof")), "IoError", false},
		{ErrMalformedArchive, "MalformedArchive", false},
		{ErrUnsupportedManifestVersion.WithDetails("variant 9"), "UnsupportedManifestVersion", false},
		{ErrMissingManifest, "MissingManifest", false},
		{ErrDecodeSkew, "DecodeSkew", false},
		{fmt.Errorf("segment 100.7: %w", ErrTruncatedSegment.WithDetails("offset 272")), "TruncatedSegment", true},
		{fmt.Errorf("plain"), "Unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Errorf("Kind() = %q, want %q", got, tt.kind)
			}
			if got := IsRecoverable(tt.err); got != tt.recoverable {
				t.Errorf("IsRecoverable() = %v, want %v", got, tt.recoverable)
			}
		})
	}
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrMalformedArchive)
	if !IsDomainError(wrapped, "SE-ARCH-4000") {
		t.Error("IsDomainError should work with wrapped errors")
	}
	if !IsDomainError(wrapped, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "SE-ARCH-4000") {
		t.Error("IsDomainError should return false for non-DomainError")
	}
}
