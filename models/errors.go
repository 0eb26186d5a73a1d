package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure a tool slot can report.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "invalid_input"
	KindAlreadyInFlight ErrorKind = "already_in_flight"
	KindNetwork         ErrorKind = "network"
	KindTimeout         ErrorKind = "timeout"
	KindServiceRejected ErrorKind = "service_rejected"
	KindMalformed       ErrorKind = "malformed"
)

// Error is the single error type surfaced by requests, trackers and the client.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Err        error     `json:"-"`
}

var (
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrAlreadyInFlight = &Error{Kind: KindAlreadyInFlight}
	ErrNetwork         = &Error{Kind: KindNetwork}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrServiceRejected = &Error{Kind: KindServiceRejected}
	ErrMalformed       = &Error{Kind: KindMalformed}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	if e.Kind == KindServiceRejected && e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind. A target with a status code only matches that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// Rejected returns a target matching a service rejection with the given status.
func Rejected(statusCode int) *Error {
	return &Error{Kind: KindServiceRejected, StatusCode: statusCode}
}

func invalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

// Malformedf builds a malformed-response error.
func Malformedf(format string, args ...any) error {
	return &Error{Kind: KindMalformed, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCodeOf returns the HTTP status attached to a service rejection.
func StatusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
