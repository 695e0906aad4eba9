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

//go:build linux

package eth

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
	"github.com/mdlayher/ethernet"
	"golang.org/x/sys/unix"
)

// Transport implements the fpga1394.Transport interface over an
// AF_PACKET socket bound to one interface.
type Transport struct {
	ifi  *net.Interface
	name string
	rbuf []byte
	fd   int
}

// New creates a raw Ethernet transport on the named interface. The name
// may also be an interface index; an empty name picks the first
// non-loopback interface that is up.
func New(name string) (*Transport, error) {
	ifi, err := selectInterface(name)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(uint16(EtherType))))
	if err != nil {
		return nil, fpga1394.NewTransportFailureError("open", ifi.Name,
			fmt.Errorf("AF_PACKET socket: %w", err))
	}
	addr := &unix.SockaddrLinklayer{
		Protocol: htons(uint16(EtherType)),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fpga1394.NewTransportFailureError("open", ifi.Name,
			fmt.Errorf("bind to %s: %w", ifi.Name, err))
	}
	return &Transport{
		fd:   fd,
		ifi:  ifi,
		name: ifi.Name,
		rbuf: make([]byte, 1514),
	}, nil
}

func selectInterface(name string) (*net.Interface, error) {
	if name == "" {
		ifaces, err := net.Interfaces()
		if err != nil {
			return nil, fmt.Errorf("list interfaces: %w", err)
		}
		for i := range ifaces {
			ifi := &ifaces[i]
			if ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagLoopback == 0 && len(ifi.HardwareAddr) == 6 {
				return ifi, nil
			}
		}
		return nil, fmt.Errorf("%w: no usable interface", fpga1394.ErrInvalidParameter)
	}
	if index, err := strconv.Atoi(name); err == nil {
		ifi, err := net.InterfaceByIndex(index)
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", index, err)
		}
		return ifi, nil
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", name, err)
	}
	return ifi, nil
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// Send delivers one frame to the board its header names.
func (t *Transport) Send(packet []byte) error {
	return t.sendTo(packet, destMAC(packet))
}

// Broadcast delivers one frame to the board multicast group.
func (t *Transport) Broadcast(packet []byte) error {
	return t.sendTo(packet, MulticastMAC)
}

func (t *Transport) sendTo(packet []byte, dst net.HardwareAddr) error {
	f := &ethernet.Frame{
		Destination: dst,
		Source:      t.ifi.HardwareAddr,
		EtherType:   EtherType,
		Payload:     packet,
	}
	b, err := f.MarshalBinary()
	if err != nil {
		return fpga1394.NewTransportFailureError("send", t.name, err)
	}
	addr := &unix.SockaddrLinklayer{
		Protocol: htons(uint16(EtherType)),
		Ifindex:  t.ifi.Index,
		Halen:    6,
	}
	copy(addr.Addr[:], dst)
	if err := unix.Sendto(t.fd, b, 0, addr); err != nil {
		return fpga1394.NewTransportFailureError("send", t.name, err)
	}
	return nil
}

// Receive waits up to timeout for one frame from a board, skipping
// unrelated traffic. Link-layer padding is trimmed so the caller sees
// the response frame and its trailer only.
func (t *Transport) Receive(buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, fpga1394.NewTimeoutError("receive", t.name)
		}
		tv := unix.NsecToTimeval(remaining.Nanoseconds())
		if err := unix.SetsockoptTimeval(t.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return 0, fpga1394.NewTransportFailureError("receive", t.name, err)
		}
		n, _, err := unix.Recvfrom(t.fd, t.rbuf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, fpga1394.NewTransportFailureError("receive", t.name, err)
		}
		var f ethernet.Frame
		if err := f.UnmarshalBinary(t.rbuf[:n]); err != nil {
			continue
		}
		if f.EtherType != EtherType || !fromBoard(f.Source) {
			continue
		}
		return copy(buf, trimPadding(f.Payload)), nil
	}
}

// Close closes the socket.
func (t *Transport) Close() error {
	if err := unix.Close(t.fd); err != nil {
		return fmt.Errorf("failed to close AF_PACKET socket: %w", err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() fpga1394.TransportType {
	return fpga1394.TransportEthRaw
}

// HasCapability reports what the raw path can do. Broadcast rides the
// board multicast group.
func (*Transport) HasCapability(capability fpga1394.TransportCapability) bool {
	return capability == fpga1394.CapabilityBroadcast
}

// Interface returns the bound interface.
func (t *Transport) Interface() *net.Interface {
	return t.ifi
}

// Ensure Transport implements fpga1394.Transport
var _ fpga1394.Transport = (*Transport)(nil)
