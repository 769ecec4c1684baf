// Package domain defines the core domain models for snapetl.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a snapshot decoding error with a structured error code.
//
// Two DomainErrors compare equal under errors.Is when their codes match, so
// callers test the kind with errors.Is(err, domain.ErrTruncatedSegment)
// regardless of the attached details.
type DomainError struct {
	Code    string // Error code (e.g., "SE-SEG-2060")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsRecoverable reports whether err only invalidates the rest of one segment.
// Every other error kind aborts the run.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTruncatedSegment)
}

// Kind returns the short name of the error kind, or "Unknown".
func Kind(err error) string {
	switch GetErrorCode(err) {
	case ErrIO.Code:
		return "IoError"
	case ErrMalformedArchive.Code:
		return "MalformedArchive"
	case ErrUnsupportedManifestVersion.Code:
		return "UnsupportedManifestVersion"
	case ErrMissingManifest.Code:
		return "MissingManifest"
	case ErrDecodeSkew.Code:
		return "DecodeSkew"
	case ErrTruncatedSegment.Code:
		return "TruncatedSegment"
	default:
		return "Unknown"
	}
}

// ============================================================================
// Stream Errors (IO)
// ============================================================================

var (
	// ErrIO indicates the input stream failed to produce bytes.
	ErrIO = NewDomainError("SE-IO-5000", "stream read failed")
)

// ============================================================================
// Archive Errors (ARCH)
// ============================================================================

var (
	// ErrMalformedArchive indicates inconsistent container framing.
	ErrMalformedArchive = NewDomainError("SE-ARCH-4000", "malformed archive")
)

// ============================================================================
// Manifest Errors (MANI)
// ============================================================================

var (
	// ErrUnsupportedManifestVersion indicates an unknown version discriminator.
	ErrUnsupportedManifestVersion = NewDomainError("SE-MANI-4150", "unsupported manifest version")

	// ErrMissingManifest indicates the archive ended before a manifest entry.
	ErrMissingManifest = NewDomainError("SE-MANI-4040", "missing snapshot manifest")

	// ErrDecodeSkew indicates a manifest field failed a sanity bound.
	ErrDecodeSkew = NewDomainError("SE-MANI-4220", "manifest decode skew")
)

// ============================================================================
// Segment Errors (SEG)
// ============================================================================

var (
	// ErrTruncatedSegment indicates a segment ended inside a record.
	// Records yielded before it remain valid.
	ErrTruncatedSegment = NewDomainError("SE-SEG-2060", "truncated segment")
)
