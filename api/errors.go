// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-xio transports.

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per ErrorCode. *Error values match them via errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid state")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnderlyingIO      = errors.New("underlying i/o error")
	ErrProtocol          = errors.New("protocol error")
)

// ErrWouldBlock reports that a non-blocking operation made no progress.
// It is control flow, not a failure: callers retry on the next poll.
var ErrWouldBlock = errors.New("operation would block")

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeInvalidState
	ErrCodeResourceExhausted
	ErrCodeUnderlyingIO
	ErrCodeProtocol
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeInvalidState:
		return "invalid_state"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeUnderlyingIO:
		return "underlying_io"
	case ErrCodeProtocol:
		return "protocol"
	default:
		return "internal"
	}
}

func (c ErrorCode) sentinel() error {
	switch c {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeInvalidState:
		return ErrInvalidState
	case ErrCodeResourceExhausted:
		return ErrResourceExhausted
	case ErrCodeUnderlyingIO:
		return ErrUnderlyingIO
	case ErrCodeProtocol:
		return ErrProtocol
	default:
		return nil
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Context) > 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel error that corresponds to e.Code.
func (e *Error) Is(target error) bool {
	s := e.Code.sentinel()
	return s != nil && s == target
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a structured error around cause.
func Wrap(code ErrorCode, cause error, message string) *Error {
	e := NewError(code, message)
	e.Cause = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode carried by err, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrInvalidState):
		return ErrCodeInvalidState
	case errors.Is(err, ErrResourceExhausted):
		return ErrCodeResourceExhausted
	case errors.Is(err, ErrUnderlyingIO):
		return ErrCodeUnderlyingIO
	case errors.Is(err, ErrProtocol):
		return ErrCodeProtocol
	}
	return ErrCodeInternal
}
