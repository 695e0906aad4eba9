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
	"testing"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	return []struct {
		err  error
		name string
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "timeout retryable",
			err:  ErrTimeout,
			want: true,
		},
		{
			name: "frame validation retryable",
			err:  ErrFrameValidation,
			want: true,
		},
		{
			name: "no response retryable",
			err:  ErrNoResponse,
			want: true,
		},
		{
			name: "wrapped timeout retryable",
			err:  fmt.Errorf("board 3: %w", ErrTimeout),
			want: true,
		},
		{
			name: "transport failure not retryable",
			err:  ErrTransportFailure,
			want: false,
		},
		{
			name: "port faulted not retryable",
			err:  ErrPortFaulted,
			want: false,
		},
		{
			name: "port closed not retryable",
			err:  ErrPortClosed,
			want: false,
		},
		{
			name: "invalid parameter not retryable",
			err:  ErrInvalidParameter,
			want: false,
		},
		{
			name: "board not found not retryable",
			err:  ErrBoardNotFound,
			want: false,
		},
		{
			name: "protocol unsupported not retryable",
			err:  ErrProtocolUnsupported,
			want: false,
		},
		{
			name: "message-only lookalike not retryable",
			err:  errors.New("outer: " + ErrTimeout.Error()),
			want: false,
		},
	}
}

func TestIsRetryable_TransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  *TransportError
		name string
		want bool
	}{
		{
			name: "timeout error carries retryable",
			err:  NewTimeoutError("receive", "udp"),
			want: true,
		},
		{
			name: "frame validation error carries retryable",
			err:  NewFrameValidationError("ReadQuadlet", "udp", errors.New("crc")),
			want: true,
		},
		{
			name: "transport failure carries non-retryable",
			err:  NewTransportFailureError("send", "udp", errors.New("socket closed")),
			want: false,
		},
		{
			name: "explicit flag wins over wrapped sentinel",
			err: &TransportError{
				Err:       ErrTimeout,
				Op:        "receive",
				Port:      "udp",
				Type:      ErrorTypeTimeout,
				Retryable: false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
			// Wrapping must not change the decision.
			wrapped := fmt.Errorf("operation failed: %w", tt.err)
			if got := IsRetryable(wrapped); got != tt.want {
				t.Errorf("IsRetryable(wrapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{
			name: "nil is permanent",
			err:  nil,
			want: ErrorTypePermanent,
		},
		{
			name: "timeout sentinel",
			err:  ErrTimeout,
			want: ErrorTypeTimeout,
		},
		{
			name: "frame validation sentinel",
			err:  ErrFrameValidation,
			want: ErrorTypeTransient,
		},
		{
			name: "no response sentinel",
			err:  ErrNoResponse,
			want: ErrorTypeTransient,
		},
		{
			name: "transport failure sentinel",
			err:  ErrTransportFailure,
			want: ErrorTypePermanent,
		},
		{
			name: "timeout constructor",
			err:  NewTimeoutError("receive", "udp"),
			want: ErrorTypeTimeout,
		},
		{
			name: "frame validation constructor",
			err:  NewFrameValidationError("ReadBlock", "udp", errors.New("bad crc")),
			want: ErrorTypeTransient,
		},
		{
			name: "transport failure constructor",
			err:  NewTransportFailureError("send", "udp", errors.New("socket closed")),
			want: ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetErrorType(tt.err); got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  *TransportError
		name string
		want string
	}{
		{
			name: "with port",
			err: &TransportError{
				Err:  errors.New("connection refused"),
				Op:   "send",
				Port: "udp",
			},
			want: "send udp: connection refused",
		},
		{
			name: "without port",
			err: &TransportError{
				Err: errors.New("connection refused"),
				Op:  "send",
			},
			want: "send: connection refused",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	t.Parallel()

	timeout := NewTimeoutError("receive", "udp")
	if !errors.Is(timeout, ErrTimeout) {
		t.Error("timeout error does not unwrap to ErrTimeout")
	}

	validation := NewFrameValidationError("ReadQuadlet", "udp", errors.New("crc"))
	if !errors.Is(validation, ErrFrameValidation) {
		t.Error("validation error does not unwrap to ErrFrameValidation")
	}

	inner := errors.New("socket closed")
	failure := NewTransportFailureError("send", "udp", inner)
	if !errors.Is(failure, ErrTransportFailure) {
		t.Error("failure does not unwrap to ErrTransportFailure")
	}
	if !errors.Is(failure, inner) {
		t.Error("failure does not unwrap to the transport's own error")
	}
}

func TestNewTransportError(t *testing.T) {
	t.Parallel()

	inner := errors.New("bad frame")
	err := NewTransportError("receive", "eth0", inner, ErrorTypeTransient)
	if err.Op != "receive" || err.Port != "eth0" {
		t.Errorf("context not preserved: %+v", err)
	}
	if !err.Retryable {
		t.Error("transient errors should be retryable")
	}

	perm := NewTransportError("send", "eth0", inner, ErrorTypePermanent)
	if perm.Retryable {
		t.Error("permanent errors should not be retryable")
	}
}
