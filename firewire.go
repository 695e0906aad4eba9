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
)

// NativeBus is the node-level interface of a platform FireWire stack. The
// stack owns framing, CRCs and response matching; implementations report
// hard failures with errors wrapping ErrTransportFailure and bounded
// waits with errors wrapping ErrTimeout. Writes to the broadcast node id
// are delivered as asynchronous stream packets by the stack.
type NativeBus interface {
	ReadQuadlet(node uint8, addr uint64) (uint32, error)
	WriteQuadlet(node uint8, addr uint64, data uint32) error
	ReadBlock(node uint8, addr uint64, nbytes int) ([]byte, error)
	WriteBlock(node uint8, addr uint64, data []byte) error
	// NumNodes returns the node count of the current bus generation.
	NumNodes() int
	Close() error
}

// BusResetRegistration is implemented by native buses that can deliver
// bus reset notifications. Callbacks run between port operations, never
// concurrently with one.
type BusResetRegistration interface {
	RegisterBusReset(fn func(generation uint32))
	DeregisterBusReset()
}

// FirewirePort drives boards through a platform FireWire stack. Unlike
// the Ethernet variant there is no control word or trailer: the stack
// handles generations itself and reports resets through the registration
// interface.
type FirewirePort struct {
	basePort
	bus NativeBus
}

var _ Port = (*FirewirePort)(nil)

// NewFirewirePort wraps a native bus in a port.
func NewFirewirePort(bus NativeBus, opts ...PortOption) (*FirewirePort, error) {
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalidParameter)
	}
	cfg, err := applyPortOptions(opts)
	if err != nil {
		return nil, err
	}
	p := &FirewirePort{bus: bus}
	p.basePort.init("fw", p, cfg)
	if reg, ok := bus.(BusResetRegistration); ok {
		reg.RegisterBusReset(p.OnBusReset)
	}
	return p, nil
}

// Close deregisters the reset callback and shuts down the bus.
func (p *FirewirePort) Close() error {
	if p.state == StateClosed {
		return nil
	}
	p.markClosed()
	if reg, ok := p.bus.(BusResetRegistration); ok {
		reg.DeregisterBusReset()
	}
	return p.bus.Close()
}

func (p *FirewirePort) readQuadletNode(node uint8, addr uint64) (uint32, error) {
	return p.bus.ReadQuadlet(node, addr)
}

func (p *FirewirePort) writeQuadletNode(node uint8, addr uint64, data uint32) error {
	return p.bus.WriteQuadlet(node, addr, data)
}

func (p *FirewirePort) readBlockNode(node uint8, addr uint64, nbytes int) ([]byte, error) {
	return p.bus.ReadBlock(node, addr, nbytes)
}

func (p *FirewirePort) writeBlockNode(node uint8, addr uint64, data []byte) error {
	return p.bus.WriteBlock(node, addr, data)
}

func (p *FirewirePort) numScanNodes() int { return p.bus.NumNodes() }
