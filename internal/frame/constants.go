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

// Package frame provides bit-exact construction and validation of the
// 1394-style packets exchanged with FPGA I/O boards
package frame

// FireWire transaction codes understood by the board firmware
const (
	TCodeQuadWrite     = 0 // quadlet write request
	TCodeBlockWrite    = 1 // block write request
	TCodeQuadRead      = 4 // quadlet read request
	TCodeBlockRead     = 5 // block read request
	TCodeQuadResponse  = 6 // quadlet read response
	TCodeBlockResponse = 7 // block read response
)

// Packet sizes in bytes. Every request and response header is protected by
// a 4-byte CRC; block payloads carry a second CRC of their own.
const (
	QuadReadSize            = 16 // quadlet read request
	QuadWriteSize           = 20 // quadlet write request
	QuadResponseSize        = 20 // quadlet read response (includes CRC)
	BlockReadSize           = 20 // block read request
	BlockResponseHeaderSize = 20 // block read response header (includes header CRC)
	BlockWriteHeaderSize    = 20 // block write header (includes header CRC)
	CRCSize                 = 4
	HeaderSize              = 12 // three addressing quadlets common to all kinds
)

// Control word prepended to every packet sent over Ethernet. The first
// byte holds flags, the second the sender's FireWire bus generation.
const (
	CtrlSize = 2
	// CtrlNoForward prevents forwarding by the Ethernet/FireWire bridge.
	CtrlNoForward = 0x01
)

// ExtraSize is the number of diagnostic bytes (4 words) the FPGA appends
// after quadlet and block responses.
const ExtraSize = 8

// Node addressing. Node ids and transaction labels are both 6 bits wide.
const (
	MaxNodes      = 64
	BroadcastNode = 0x3f
	TLMask        = 0x3f
	// LocalBusID is the 10-bit "local bus" prefix ORed with the node id in
	// the destination field of every request.
	LocalBusID = 0xffc0
)

// Register addresses used by the broadcast read protocol.
const (
	BroadcastRequestAddr = 0x1800 // broadcast quadlet write that starts a read round
	HubReadBufferAddr    = 0x1000 // hub board buffer holding the aggregated reads
)

// ClockPeriod is the FPGA sysclk period in seconds (49.152 MHz). Tick
// counts in the extra data trailer are multiples of this.
const ClockPeriod = 1.0 / 49.152e6

// MaxBlockSize is the largest block payload in bytes. It is the largest
// multiple of four whose block response (header, payload, data CRC and
// extra trailer) still fits a single UDP datagram on a standard MTU.
const MaxBlockSize = 1440
