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

// Package eth provides the raw Ethernet transport to the FPGA bridge.
// Frames go straight over AF_PACKET sockets, so it needs Linux and a
// CAP_NET_RAW process; the UDP transport is the portable alternative.
package eth

import (
	"net"

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
	"github.com/mdlayher/ethernet"
)

// EtherType tags every frame exchanged with the bridge.
const EtherType ethernet.EtherType = 0x1394

// macPrefix is the fixed OUI-and-device part of every board MAC; the
// last byte is the board id.
var macPrefix = [5]byte{0xfa, 0x61, 0x0e, 0x13, 0x94}

// MulticastMAC reaches every board behind every bridge on the segment.
var MulticastMAC = net.HardwareAddr{0xfb, 0x61, 0x0e, 0x13, 0x94, 0xff}

// BoardMAC returns the unicast MAC of a board id.
func BoardMAC(board uint8) net.HardwareAddr {
	return net.HardwareAddr{macPrefix[0], macPrefix[1], macPrefix[2], macPrefix[3], macPrefix[4], board}
}

// fromBoard reports whether a source MAC belongs to a board.
func fromBoard(mac net.HardwareAddr) bool {
	if len(mac) != 6 {
		return false
	}
	for i, b := range macPrefix {
		if mac[i] != b {
			return false
		}
	}
	return true
}

// destMAC picks the destination MAC for an outgoing packet from the
// destination node in its header. Broadcast nodes map to the multicast
// group.
func destMAC(packet []byte) net.HardwareAddr {
	if len(packet) < frame.CtrlSize+frame.HeaderSize {
		return MulticastMAC
	}
	h := frame.ParseHeader(packet[frame.CtrlSize:])
	if h.DestNode == frame.BroadcastNode {
		return MulticastMAC
	}
	return BoardMAC(h.DestNode & 0x0f)
}

// responseLength returns the size of the response frame at the start of
// p, trailer excluded, so link-layer padding can be trimmed.
func responseLength(p []byte) int {
	h := frame.ParseHeader(p)
	switch h.TCode {
	case frame.TCodeQuadResponse:
		return frame.QuadResponseSize
	case frame.TCodeBlockResponse:
		return frame.BlockResponseHeaderSize + int(h.DataLen) + frame.CRCSize
	default:
		return len(p)
	}
}

// trimPadding cuts link-layer padding off a received payload, keeping
// the response frame and its trailer.
func trimPadding(p []byte) []byte {
	want := responseLength(p) + frame.ExtraSize
	if len(p) > want {
		return p[:want]
	}
	return p
}
