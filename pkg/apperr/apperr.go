// Package apperr defines application errors with stable codes and HTTP status
// mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeConflict        Code = "CONFLICT"
	CodeDatabaseError   Code = "DATABASE_ERROR"
	CodeExternalError   Code = "EXTERNAL_ERROR"
	CodeProviderFailure Code = "PROVIDER_FAILURE"
	CodeConfigError     Code = "CONFIG_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// AppError carries a code, a human message and an optional cause.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(code Code, status int, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Status: status, Err: err}
}

func NotFound(msg string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, msg, nil)
}

func BadRequest(msg string) *AppError {
	return newError(CodeBadRequest, http.StatusBadRequest, msg, nil)
}

func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg, nil)
}

func Conflict(msg string) *AppError {
	return newError(CodeConflict, http.StatusConflict, msg, nil)
}

func DatabaseError(msg string, err error) *AppError {
	return newError(CodeDatabaseError, http.StatusInternalServerError, msg, err)
}

func ExternalError(msg string, err error) *AppError {
	return newError(CodeExternalError, http.StatusBadGateway, msg, err)
}

// ProviderFailure marks a mail provider error. These terminate a sync
// attempt but never crash the worker.
func ProviderFailure(msg string, err error) *AppError {
	return newError(CodeProviderFailure, http.StatusBadGateway, msg, err)
}

func ConfigError(msg string, err error) *AppError {
	return newError(CodeConfigError, http.StatusInternalServerError, msg, err)
}

func Internal(msg string, err error) *AppError {
	return newError(CodeInternal, http.StatusInternalServerError, msg, err)
}

// As extracts an *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the mapped status, defaulting to 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
