// Package apperr carries the error taxonomy shared by every service. An
// *Error survives a broker round trip: services encode it into the reply
// envelope and callers rebuild it, so the gateway can answer with the status
// the owning service chose.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindBusinessRule   Kind = "business_rule"
	KindUnauthorized   Kind = "unauthorized"
	KindInfrastructure Kind = "infrastructure"
)

type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("%s error (%d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, status int, code, message string) *Error {
	return &Error{Kind: kind, Status: status, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(KindValidation, http.StatusBadRequest, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, http.StatusNotFound, code, message)
}

// Conflict defaults to 409. Stock shortfalls use InsufficientStock, which
// answers 400 like the rest of the cart rejections.
func Conflict(code, message string) *Error {
	return New(KindConflict, http.StatusConflict, code, message)
}

func BusinessRule(code, message string) *Error {
	return New(KindBusinessRule, http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, http.StatusUnauthorized, "unauthorized", message)
}

func Infrastructure(err error) *Error {
	return &Error{
		Kind:    KindInfrastructure,
		Status:  http.StatusInternalServerError,
		Code:    "infrastructure",
		Message: "internal error",
		Err:     err,
	}
}

func InsufficientStock(message string) *Error {
	return New(KindConflict, http.StatusBadRequest, "insufficient_stock", message)
}

// From converts any error into an *Error. Deadline errors become a 504
// infrastructure error; anything unrecognised is treated as infrastructure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindInfrastructure,
			Status:  http.StatusGatewayTimeout,
			Code:    "timeout",
			Message: "upstream timeout",
			Err:     err,
		}
	}
	return Infrastructure(err)
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// KindOf returns the kind of err, or "" when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}
