// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FailureMessage is the only failure text ever shown to a user. The detail of the
// underlying error goes to the log.
const FailureMessage = "Failed to calculate. Please try again."

// ErrorType classifies a failed pricing exchange.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransport means no response was received (DNS, refused, reset, timeout).
	ErrorTypeTransport
	// ErrorTypeStatus means the service answered outside the 2xx range.
	ErrorTypeStatus
	// ErrorTypeDecode means the body was not the expected JSON document.
	ErrorTypeDecode
	// ErrorTypeCanceled means the caller abandoned the exchange.
	ErrorTypeCanceled
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypeStatus:
		return "status"
	case ErrorTypeDecode:
		return "decode"
	case ErrorTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Quote for every failure.
type Error struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyStatus builds the error for a non 2xx answer. Every status is handled
// the same way by callers; the code is kept for diagnostics.
func ClassifyStatus(statusCode int) *Error {
	text := http.StatusText(statusCode)
	if text == "" {
		text = "unknown status"
	}

	return &Error{
		Type:       ErrorTypeStatus,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("pricing service returned %d %s", statusCode, text),
	}
}

func transportError(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Type: ErrorTypeCanceled, Message: "pricing request canceled", Err: err}
	}

	return &Error{Type: ErrorTypeTransport, Message: "pricing request failed", Err: err}
}

// IsCanceled reports whether err comes from an abandoned exchange.
func IsCanceled(err error) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Type == ErrorTypeCanceled
	}

	return errors.Is(err, context.Canceled)
}
