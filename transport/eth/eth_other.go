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

//go:build !linux

package eth

import (
	"fmt"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
)

// Transport is unavailable off Linux; use the udp package instead.
type Transport struct{}

// New always fails off Linux.
func New(_ string) (*Transport, error) {
	return nil, fmt.Errorf("%w: raw Ethernet transport requires Linux", fpga1394.ErrNotSupported)
}

// Send is unavailable off Linux.
func (*Transport) Send(_ []byte) error {
	return fpga1394.ErrNotSupported
}

// Broadcast is unavailable off Linux.
func (*Transport) Broadcast(_ []byte) error {
	return fpga1394.ErrNotSupported
}

// Receive is unavailable off Linux.
func (*Transport) Receive(_ []byte, _ time.Duration) (int, error) {
	return 0, fpga1394.ErrNotSupported
}

// Close is unavailable off Linux.
func (*Transport) Close() error {
	return fpga1394.ErrNotSupported
}

// Type returns the transport type
func (*Transport) Type() fpga1394.TransportType {
	return fpga1394.TransportEthRaw
}

// Ensure Transport implements fpga1394.Transport
var _ fpga1394.Transport = (*Transport)(nil)
