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

import "time"

// Transport moves encoded packets between the control process and the
// boards. This can be implemented by UDP or raw Ethernet backends; the
// loopback transport used in tests implements it over the bus emulator.
//
// Implementations should return a *TransportError (or an error wrapping
// ErrTimeout) so that ports can tell timeouts apart from medium failures.
type Transport interface {
	// Send transmits one encoded packet to the bridge board
	Send(packet []byte) error

	// Broadcast transmits one encoded packet to all boards at once
	Broadcast(packet []byte) error

	// Receive blocks for the next packet, bounded by timeout, and returns
	// the number of bytes stored in buf
	Receive(buf []byte, timeout time.Duration) (int, error)

	// Close closes the transport connection
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUDP represents a UDP socket transport.
	TransportUDP TransportType = "udp"
	// TransportEthRaw represents a raw Ethernet (AF_PACKET) transport.
	TransportEthRaw TransportType = "eth"
	// TransportLoopback represents the emulator-backed loopback transport.
	TransportLoopback TransportType = "loopback"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportCapability represents specific capabilities or behaviors of a transport
type TransportCapability string

const (
	// CapabilityBroadcast indicates the transport can address every board
	// with a single send (IP broadcast, Ethernet multicast).
	CapabilityBroadcast TransportCapability = "broadcast"

	// CapabilityBusResetNotify indicates the transport detects bus
	// generation changes on its own, without relying on response trailers.
	CapabilityBusResetNotify TransportCapability = "bus_reset_notify"
)

// TransportCapabilityChecker defines an interface for querying transport capabilities
// This provides a clean, type-safe alternative to reflection-based detection
type TransportCapabilityChecker interface {
	// HasCapability returns true if the transport has the specified capability
	HasCapability(capability TransportCapability) bool
}

// BusResetNotifier is implemented by transports that detect bus topology
// changes independently. The registered function is invoked with the new
// generation; ports route it to their OnBusReset handling.
type BusResetNotifier interface {
	NotifyBusReset(fn func(generation uint32))
}
