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

// Package udp provides the UDP transport to the FPGA Ethernet bridge
package udp

import (
	"errors"
	"fmt"
	"net"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
)

const (
	// DefaultPort is the UDP port the bridge firmware listens on.
	DefaultPort = 1394
	// DefaultAddr is the bridge's link-local address out of the box.
	DefaultAddr = "169.254.0.100"
	// BroadcastAddr reaches every bridge on the link-local segment.
	BroadcastAddr = "169.254.255.255"
)

// Transport implements the fpga1394.Transport interface over a UDP
// socket to one bridge board.
type Transport struct {
	conn  *net.UDPConn
	dest  *net.UDPAddr
	bcast *net.UDPAddr
	name  string
}

// New creates a UDP transport to the bridge at addr. An empty addr uses
// the bridge's default link-local address.
func New(addr string) (*Transport, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: bad board address %q", fpga1394.ErrInvalidParameter, addr)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}
	if err := enableBroadcast(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable broadcast: %w", err)
	}
	return &Transport{
		conn:  conn,
		dest:  &net.UDPAddr{IP: ip.To4(), Port: DefaultPort},
		bcast: &net.UDPAddr{IP: net.ParseIP(BroadcastAddr).To4(), Port: DefaultPort},
		name:  addr,
	}, nil
}

// Send delivers one frame to the bridge.
func (t *Transport) Send(packet []byte) error {
	if _, err := t.conn.WriteToUDP(packet, t.dest); err != nil {
		return fpga1394.NewTransportFailureError("send", t.name, err)
	}
	return nil
}

// Broadcast delivers one frame to every bridge on the segment.
func (t *Transport) Broadcast(packet []byte) error {
	if _, err := t.conn.WriteToUDP(packet, t.bcast); err != nil {
		return fpga1394.NewTransportFailureError("broadcast", t.name, err)
	}
	return nil
}

// Receive waits up to timeout for one datagram from the bridge.
func (t *Transport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fpga1394.NewTransportFailureError("receive", t.name, err)
	}
	n, _, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return 0, fpga1394.NewTimeoutError("receive", t.name)
		}
		return 0, fpga1394.NewTransportFailureError("receive", t.name, err)
	}
	return n, nil
}

// Close closes the socket.
func (t *Transport) Close() error {
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP socket: %w", err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() fpga1394.TransportType {
	return fpga1394.TransportUDP
}

// HasCapability reports what the UDP path can do. Broadcast works over
// the link-local broadcast address.
func (*Transport) HasCapability(capability fpga1394.TransportCapability) bool {
	return capability == fpga1394.CapabilityBroadcast
}

// LocalAddr returns the bound local address, mainly for logging.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Ensure Transport implements fpga1394.Transport
var _ fpga1394.Transport = (*Transport)(nil)
