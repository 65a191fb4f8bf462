// Unified error handling for the TMCM driver library
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Argument preconditions, raised before any I/O
	ErrAddressInvalid ErrorCode = "ADDRESS_INVALID"
	ErrValueRange     ErrorCode = "VALUE_RANGE"

	// Identification failures after the identify round trip
	ErrModelMismatch    ErrorCode = "MODEL_MISMATCH"
	ErrModelUnsupported ErrorCode = "MODEL_UNSUPPORTED"

	// Transient wire corruption; the caller may retry
	ErrChecksumRequest ErrorCode = "CHECKSUM_REQUEST"
	ErrChecksumReply   ErrorCode = "CHECKSUM_REPLY"

	// Operation invalid in the current motion state
	ErrStateConflict ErrorCode = "STATE_CONFLICT"

	// Protocol contract violations that should not occur in normal
	// operation (unexpected status, command echo or address mismatch)
	ErrInternal ErrorCode = "INTERNAL"

	// Failures of the underlying byte channel
	ErrTransport ErrorCode = "TRANSPORT"
)

// DriverError is the unified error type for the driver library
type DriverError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *DriverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DriverError) Unwrap() error {
	return e.Err
}

// SetContext adds additional context
func (e *DriverError) SetContext(key string, value interface{}) *DriverError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new DriverError
func New(code ErrorCode, message string) *DriverError {
	return &DriverError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new DriverError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DriverError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *DriverError {
	return &DriverError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AddressError creates an error for a module address outside [1, 255]
func AddressError(address int) *DriverError {
	return Newf(ErrAddressInvalid, "module address %d outside [1, 255]", address).
		SetContext("address", address)
}

// RangeError creates an error for an argument outside its permitted range
func RangeError(what string, value, min, max interface{}) *DriverError {
	return Newf(ErrValueRange, "%s %v outside [%v, %v]", what, value, min, max).
		SetContext("value", value)
}

// ModelMismatchError creates an error for an unexpected module model
func ModelMismatchError(expected, got int) *DriverError {
	return Newf(ErrModelMismatch, "connected module is a TMCM-%d, expected TMCM-%d", got, expected)
}

// ModelUnsupportedError creates an error for a model without an implementation
func ModelUnsupportedError(model int) *DriverError {
	return Newf(ErrModelUnsupported, "no implementation registered for model TMCM-%d", model)
}

// ChecksumRequestError reports that the module received a corrupted request.
// The host-to-module direction of the line is unstable; the command was not
// executed and may be retried.
func ChecksumRequestError() *DriverError {
	return New(ErrChecksumRequest, "module reported request checksum mismatch")
}

// ChecksumReplyError reports that the host received a corrupted reply.
// The module-to-host direction of the line is unstable; whether the command
// was executed is unknown.
func ChecksumReplyError() *DriverError {
	return New(ErrChecksumReply, "reply checksum mismatch")
}

// StateError creates an error for an operation invalid in the current state
func StateError(message string) *DriverError {
	return New(ErrStateConflict, message)
}

// InternalError creates an error for a protocol contract violation
func InternalError(message string) *DriverError {
	return New(ErrInternal, message)
}

// TransportError wraps a failure of the underlying byte channel
func TransportError(operation string, err error) *DriverError {
	return Wrap(err, ErrTransport, operation)
}

// Is checks if the error carries the given error code
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if de, ok := err.(*DriverError); ok && de.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsChecksum checks if the error is either checksum error kind
func IsChecksum(err error) bool {
	return Is(err, ErrChecksumRequest) || Is(err, ErrChecksumReply)
}
