// Package errors provides structured error types for ghrelease.
// It implements error classification, wrapping, and secret redaction.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConfig indicates a configuration error.
	KindConfig
	// KindValidation indicates an empty or malformed required input.
	KindValidation
	// KindConflict indicates the release already exists and the policy forbids reuse.
	KindConflict
	// KindNotMapped indicates a file extension has no content type mapping.
	KindNotMapped
	// KindRemote indicates a failure reported by the remote release service.
	KindRemote
	// KindAuth indicates credentials could not be obtained or decrypted.
	KindAuth
	// KindIO indicates a local file I/O error.
	KindIO
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindCanceled indicates the operation was canceled.
	KindCanceled
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotMapped:
		return "not_mapped"
	case KindRemote:
		return "remote"
	case KindAuth:
		return "auth"
	case KindIO:
		return "io"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the standard error type for ghrelease.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Details contains additional context about the error.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// For *Error types, it checks if both the Kind and Op match.
// For sentinel errors (errors without Op), only Kind is compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetail adds a single detail to the error and returns the modified error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// GetKind returns the Kind of an error.
// If the error is not an *Error, it returns KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Detail returns a detail value recorded on the outermost *Error in the chain.
func Detail(err error, key string) (any, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Details == nil {
		return nil, false
	}
	v, ok := e.Details[key]
	return v, ok
}

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: message}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// Validation creates a validation error.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Validationf creates a validation error with a formatted message.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message}
}

// NotMapped creates an error for a file extension missing from the MIME table.
func NotMapped(op, message string) *Error {
	return &Error{Kind: KindNotMapped, Op: op, Message: message}
}

// RemoteWrap wraps a remote service failure. Secrets in the cause are redacted.
func RemoteWrap(err error, op, message string) *Error {
	return WrapSafe(err, KindRemote, op, message)
}

// Auth creates a credential error.
func Auth(op, message string) *Error {
	return &Error{Kind: KindAuth, Op: op, Message: message}
}

// AuthWrap wraps an error as a credential error.
func AuthWrap(err error, op, message string) *Error {
	return WrapSafe(err, KindAuth, op, message)
}

// IO creates an I/O error.
func IO(op, message string) *Error {
	return &Error{Kind: KindIO, Op: op, Message: message}
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// NotFound creates a not found error.
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// Sensitive data redaction patterns. Word boundaries keep the patterns from
// matching substrings of unrelated identifiers.
var sensitivePatterns = []*regexp.Regexp{
	// GitHub classic tokens: ghp_..., gho_..., ghs_..., ghu_..., ghr_...
	regexp.MustCompile(`\bgh[poshur]_[a-zA-Z0-9]{36,}\b`),
	// GitHub fine-grained tokens
	regexp.MustCompile(`\bgithub_pat_[a-zA-Z0-9_]{22,}\b`),
	// age identities
	regexp.MustCompile(`\bAGE-SECRET-KEY-1[0-9A-Z]{50,}\b`),
	// Generic bearer and token authorization headers
	regexp.MustCompile(`\b(?:Bearer|token)\s+[a-zA-Z0-9_.-]{20,}\b`),
	// Basic auth with password in URL
	regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`),
}

// RedactSensitive removes tokens and keys from a message.
func RedactSensitive(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// RedactError creates a new error with sensitive data redacted from its message.
// If the error is nil, returns nil.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return fmt.Errorf("%s", redacted)
}

// WrapSafe wraps an error with sensitive data redacted.
func WrapSafe(err error, kind Kind, op, message string) *Error {
	if err == nil {
		return &Error{Kind: kind, Op: op, Message: message}
	}
	return Wrap(RedactError(err), kind, op, message)
}
