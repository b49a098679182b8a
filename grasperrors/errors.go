// Package grasperrors defines the categorized error taxonomy used across
// the core (§4.L) and the retry policy driven by that taxonomy.
package grasperrors

import "fmt"

// Category groups an error by how the caller (and the retry wrapper)
// should react to it.
type Category string

const (
	// CategoryUserActionable means the caller must change something
	// (credentials, ref name, input) before retrying makes sense.
	CategoryUserActionable Category = "user-actionable"

	// CategoryRetriable means the failure is transient; the retry
	// wrapper may retry with backoff.
	CategoryRetriable Category = "retriable"

	// CategoryFatal means the failure indicates corruption or an
	// unrecoverable condition; it is surfaced immediately.
	CategoryFatal Category = "fatal"
)

// Code is a stable, enumerated error tag safe for programmatic handling.
type Code string

const (
	CodeAuthRequired     Code = "auth_required"
	CodeNotFastForward   Code = "not_fast_forward"
	CodeConflict         Code = "conflict"
	CodeQuotaExceeded    Code = "quota_exceeded"
	CodePermissionDenied Code = "permission_denied"
	CodeInvalidRef       Code = "invalid_ref"
	CodeInvalidInput     Code = "invalid_input"
	CodeNetwork          Code = "network"
	CodeTimeout          Code = "timeout"
	CodeRelayTimeout     Code = "relay_timeout"
	CodeRelayError       Code = "relay_error"
	CodeServerError      Code = "server_error"
	CodeRateLimited      Code = "rate_limited"
	CodeTransient        Code = "transient"
	CodeCorruptObject    Code = "corrupt_object"
	CodeFilesystem       Code = "filesystem"
	CodeUnknown          Code = "unknown"
	CodeOperationAborted Code = "operation_aborted"
)

var categoryByCode = map[Code]Category{
	CodeAuthRequired:     CategoryUserActionable,
	CodeNotFastForward:   CategoryUserActionable,
	CodeConflict:         CategoryUserActionable,
	CodeQuotaExceeded:    CategoryUserActionable,
	CodePermissionDenied: CategoryUserActionable,
	CodeInvalidRef:       CategoryUserActionable,
	CodeInvalidInput:     CategoryUserActionable,

	CodeNetwork:      CategoryRetriable,
	CodeTimeout:      CategoryRetriable,
	CodeRelayTimeout: CategoryRetriable,
	CodeRelayError:   CategoryRetriable,
	CodeServerError:  CategoryRetriable,
	CodeRateLimited:  CategoryRetriable,
	CodeTransient:    CategoryRetriable,

	CodeCorruptObject:    CategoryFatal,
	CodeFilesystem:       CategoryFatal,
	CodeUnknown:          CategoryFatal,
	CodeOperationAborted: CategoryFatal,
}

// Error is the value every operation in the core returns on failure.
type Error struct {
	Code     Code
	Category Category
	Message  string
	Hint     string
	Context  map[string]interface{}
	Cause    error
}

// New creates an Error, deriving its category from Code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Category: categoryByCode[code], Message: message}
}

// Wrap creates an Error that preserves cause as the underlying error.
func Wrap(cause error, code Code, message string) *Error {
	e := New(code, message)
	e.Cause = cause
	return e
}

// WithHint attaches a user-facing hint and returns the same Error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithContext merges context fields (operation, naddr, remote, ref, relay,
// statusCode, ...) and returns the same Error for chaining.
func (e *Error) WithContext(kv map[string]interface{}) *Error {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	for k, v := range kv {
		e.Context[k] = v
	}
	return e
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to reach the cause.
func (e *Error) Unwrap() error { return e.Cause }

// IsRetriable reports whether the retry wrapper should attempt this error.
func IsRetriable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Category == CategoryRetriable
}

// IsFatal reports whether err is a fatal-category Error.
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Category == CategoryFatal
}

// IsUserActionable reports whether err is a user-actionable Error.
func IsUserActionable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Category == CategoryUserActionable
}

// ErrOperationAborted is returned when a cancellation signal fires
// mid-operation (§5 Cancellation).
var ErrOperationAborted = New(CodeOperationAborted, "operation aborted")
