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

package frame

import "encoding/binary"

// EncodeControl returns the control word prepended to packets sent over
// Ethernet: flags in the first byte, bus generation in the second.
func EncodeControl(noForward bool, generation uint8) [CtrlSize]byte {
	var ctrl [CtrlSize]byte
	if noForward {
		ctrl[0] |= CtrlNoForward
	}
	ctrl[1] = generation
	return ctrl
}

// DecodeControl parses a control word. Packets shorter than the control
// word decode to zero values.
func DecodeControl(p []byte) (noForward bool, generation uint8) {
	if len(p) < CtrlSize {
		return false, 0
	}
	return p[0]&CtrlNoForward != 0, p[1]
}

// ExtraData is the diagnostic trailer the FPGA appends after quadlet and
// block responses: a reset flag, the FPGA's bus generation and two tick
// counts converted to seconds at the FPGA sysclk.
type ExtraData struct {
	RecvTime   float64 // time for the FPGA to receive the packet
	TotalTime  float64 // time for the FPGA to receive and respond
	Generation uint8
	BusReset   bool // FireWire bus reset active on the FPGA
}

// DecodeExtraData parses the trailer. The first word carries the reset
// flag and generation, the second is reserved, and the last two are tick
// counts.
func DecodeExtraData(p []byte) ExtraData {
	if len(p) < ExtraSize {
		return ExtraData{}
	}
	return ExtraData{
		BusReset:   p[0]&0x01 != 0,
		Generation: p[1],
		RecvTime:   float64(binary.BigEndian.Uint16(p[4:])) * ClockPeriod,
		TotalTime:  float64(binary.BigEndian.Uint16(p[6:])) * ClockPeriod,
	}
}

// EncodeExtraData builds a trailer from raw tick counts. Used by the bus
// emulator and tests.
func EncodeExtraData(busReset bool, generation uint8, recvTicks, totalTicks uint16) []byte {
	p := make([]byte, ExtraSize)
	if busReset {
		p[0] |= 0x01
	}
	p[1] = generation
	binary.BigEndian.PutUint16(p[4:], recvTicks)
	binary.BigEndian.PutUint16(p[6:], totalTicks)
	return p
}
