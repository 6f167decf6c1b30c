package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrPersistenceWrite marks a failed final transaction insert. It is the only
// dependency failure that fails a scoring request: a 200 guarantees a durable
// row, so the write error must surface as 500.
var ErrPersistenceWrite = errors.New("transaction persistence write failed")

// ValidationError reports a request field that violates its constraint.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Detail)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// AuthError reports a missing, unknown, inactive, or expired API key.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string { return e.Detail }

// QuotaError reports an exhausted rate limit together with the time the
// caller should wait before retrying.
type QuotaError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("rate limit of %d requests per minute exceeded, retry after %s", e.Limit, e.RetryAfter)
}
