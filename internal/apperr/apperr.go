// Package apperr holds the error taxonomy shared by the HTTP layer and the
// services, and the JSON envelope errors are rendered as.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"
)

// Code identifies a class of failure.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeDatabase       Code = "DATABASE_ERROR"
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
)

// Status returns the HTTP status code for c.
func (c Code) Status() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeAuthentication:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error carrying its code and optional details.
type Error struct {
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Code.Status() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches cause to a new error of the given code.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func Validation(message string) *Error { return New(CodeValidation, message) }

func Unauthorized(message string) *Error {
	if message == "" {
		message = "unauthorized"
	}
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "forbidden"
	}
	return New(CodeForbidden, message)
}

func NotFound(message string) *Error {
	if message == "" {
		message = "resource not found"
	}
	return New(CodeNotFound, message)
}

func Internal(message string) *Error {
	if message == "" {
		message = "internal server error"
	}
	return New(CodeInternal, message)
}

func Database(cause error) *Error {
	return Wrap(CodeDatabase, "database error", cause)
}

func Authentication(message string) *Error {
	if message == "" {
		message = "authentication failed"
	}
	return New(CodeAuthentication, message)
}

// From classifies any error into the taxonomy.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, sql.ErrNoRows):
		return Wrap(CodeNotFound, "resource not found", err)
	case isDatabaseError(err):
		return Database(err)
	default:
		return Wrap(CodeInternal, "internal server error", err)
	}
}

func isDatabaseError(err error) bool {
	for _, target := range []error{
		gorm.ErrInvalidTransaction,
		gorm.ErrInvalidData,
		gorm.ErrInvalidDB,
		gorm.ErrDuplicatedKey,
		gorm.ErrForeignKeyViolated,
		gorm.ErrMissingWhereClause,
		sql.ErrConnDone,
		sql.ErrTxDone,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Envelope is the JSON body of every error response.
type Envelope struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path,omitempty"`
	Details    any    `json:"details,omitempty"`
}

// Format renders e for a response to path.
func Format(e *Error, path string, now time.Time) Envelope {
	return Envelope{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.Status(),
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
		Path:       path,
		Details:    e.Details,
	}
}
