// go-fpga1394
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-fpga1394.
//
// go-fpga1394 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-fpga1394 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-fpga1394; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package fpga1394

import (
	"errors"
	"fmt"
)

// Board registry errors. These are caller-input errors: they are returned
// before any transport I/O happens.
var (
	ErrBoardOutOfRange  = errors.New("board id out of range")
	ErrBoardNotFound    = errors.New("no board registered with id")
	ErrInvalidLength    = errors.New("block length must be a positive multiple of four")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrProtocolUnsupported is returned when a broadcast protocol is requested
// but not every registered board advertises broadcast capability, or when a
// broadcast operation is attempted in sequential mode.
var ErrProtocolUnsupported = errors.New("protocol requires broadcast support on every board")

// Per-operation recoverable errors. The port stays operational; the caller
// decides whether to retry.
var (
	ErrFrameValidation = errors.New("response frame validation failed")
	ErrTimeout         = errors.New("operation timeout")
	ErrNoResponse      = errors.New("no response received")
)

// Fatal errors. A transport failure moves the port to the faulted state and
// every subsequent operation fails fast until the port is reconstructed.
var (
	ErrTransportFailure = errors.New("transport failure")
	ErrPortFaulted      = errors.New("port is faulted")
	ErrPortClosed       = errors.New("port is closed")
)

// ErrNotSupported is returned by transport constructors on platforms that
// lack the required socket support.
var ErrNotSupported = errors.New("not supported on this platform")

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypeTransient indicates a temporary error that may succeed on retry
	ErrorTypeTransient ErrorType = iota
	// ErrorTypeTimeout indicates a timeout occurred
	ErrorTypeTimeout
	// ErrorTypePermanent indicates a permanent error that won't succeed on retry
	ErrorTypePermanent
)

// TransportError wraps transport-level errors with context about the
// operation and the port it happened on.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError with the given details
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a TransportError for a receive that exceeded its
// deadline
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewFrameValidationError creates a TransportError for a response that
// failed validation; reason carries the failing check for diagnostics
func NewFrameValidationError(op, port string, reason error) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       fmt.Errorf("%w: %w", ErrFrameValidation, reason),
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// NewTransportFailureError creates a TransportError for a medium-level
// send or receive failure; these fault the port
func NewTransportFailureError(op, port string, err error) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       fmt.Errorf("%w: %w", ErrTransportFailure, err),
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// IsRetryable returns true if the error may succeed on retry. A
// TransportError carries its own retry decision; sentinel errors are
// classified by kind.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrFrameValidation),
		errors.Is(err, ErrNoResponse):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of an error for retry and
// port-state decisions.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Type
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrFrameValidation), errors.Is(err, ErrNoResponse):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
