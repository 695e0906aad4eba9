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
	"fmt"
	"net"
	"strconv"
	"strings"
)

// PortKind identifies the medium a port designator refers to.
type PortKind int

const (
	// PortKindUDP is an Ethernet bridge reached over UDP.
	PortKindUDP PortKind = iota
	// PortKindEthRaw is an Ethernet bridge reached over raw frames.
	PortKindEthRaw
	// PortKindFirewire is a native FireWire adapter.
	PortKindFirewire
)

func (k PortKind) String() string {
	switch k {
	case PortKindUDP:
		return "udp"
	case PortKindEthRaw:
		return "eth"
	case PortKindFirewire:
		return "fw"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PortSpec is a parsed port designator.
type PortSpec struct {
	// Addr is the board IP for UDP ports and the interface name for raw
	// Ethernet ports. Empty selects the transport default.
	Addr string
	// Kind selects the medium.
	Kind PortKind
	// Index is the adapter number for FireWire ports.
	Index int
}

// String returns the canonical designator form.
func (s PortSpec) String() string {
	switch s.Kind {
	case PortKindFirewire:
		return fmt.Sprintf("fw:%d", s.Index)
	case PortKindEthRaw, PortKindUDP:
		if s.Addr == "" {
			return s.Kind.String()
		}
		return s.Kind.String() + ":" + s.Addr
	default:
		return s.Kind.String()
	}
}

// ParsePortSpec parses a textual port designator:
//
//	udp              UDP to the default board address
//	udp:10.0.0.31    UDP to the given board address
//	eth              raw Ethernet on the default interface
//	eth:eth2         raw Ethernet on a named interface
//	fw               FireWire adapter 0
//	fw:1             FireWire adapter 1
//
// The separating colon is optional (udp169.254.0.100, fw1). A bare number
// is the legacy form of a FireWire adapter index. The empty string parses
// to the default UDP designator.
func ParsePortSpec(s string) (PortSpec, error) {
	arg := strings.TrimSpace(strings.ToLower(s))
	switch {
	case arg == "":
		return PortSpec{Kind: PortKindUDP}, nil
	case strings.HasPrefix(arg, "udp"):
		addr := strings.TrimPrefix(arg[3:], ":")
		if addr != "" && net.ParseIP(addr) == nil {
			return PortSpec{}, fmt.Errorf("%w: bad board address %q", ErrInvalidParameter, addr)
		}
		return PortSpec{Kind: PortKindUDP, Addr: addr}, nil
	case strings.HasPrefix(arg, "eth"):
		name := strings.TrimPrefix(arg[3:], ":")
		return PortSpec{Kind: PortKindEthRaw, Addr: name}, nil
	case strings.HasPrefix(arg, "fw"):
		num := strings.TrimPrefix(arg[2:], ":")
		if num == "" {
			return PortSpec{Kind: PortKindFirewire}, nil
		}
		index, err := strconv.Atoi(num)
		if err != nil || index < 0 {
			return PortSpec{}, fmt.Errorf("%w: bad adapter index %q", ErrInvalidParameter, num)
		}
		return PortSpec{Kind: PortKindFirewire, Index: index}, nil
	default:
		if index, err := strconv.Atoi(arg); err == nil && index >= 0 {
			return PortSpec{Kind: PortKindFirewire, Index: index}, nil
		}
		return PortSpec{}, fmt.Errorf("%w: unrecognized port %q", ErrInvalidParameter, s)
	}
}
