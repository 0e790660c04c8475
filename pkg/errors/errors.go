// Package errors defines the sentinel errors shared by the indexing, scoring
// and semantic packages, plus an AppError wrapper that carries an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrUnknownDocument            = errors.New("unknown document")
	ErrUnknownTerm                = errors.New("unknown term")
	ErrEmptyIndex                 = errors.New("index is empty")
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrNoChunksIndexed            = errors.New("no chunks indexed")
	ErrCacheCorruption            = errors.New("cache corrupted")
	ErrDuplicateDocument          = errors.New("duplicate document")
	ErrTimeout                    = errors.New("operation timed out")
	ErrUnavailable                = errors.New("dependency unavailable")
	ErrInternal                   = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Errorf wraps sentinel with a formatted message, keeping errors.Is intact.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownDocument), errors.Is(err, ErrUnknownTerm):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, ErrEmbeddingDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyIndex), errors.Is(err, ErrNoChunksIndexed), errors.Is(err, ErrTimeout),
		errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
