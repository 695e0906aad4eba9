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

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// maxRecvSize covers the largest response plus its trailer.
const maxRecvSize = frame.BlockResponseHeaderSize + frame.MaxBlockSize + frame.CRCSize + frame.ExtraSize

// EthernetPort drives boards through the FPGA Ethernet bridge. Outgoing
// frames carry a two-byte control word with the sender's view of the bus
// generation; incoming responses carry an eight-byte trailer with the
// bridge's generation and two hardware tick counts. A generation change
// seen in a trailer fails the operation in flight and marks the node
// mapping stale, so topology data from before the reset is never handed
// to the caller.
type EthernetPort struct {
	basePort
	transport Transport
	sendBuf   []byte
	recvBuf   []byte

	genKnown bool
	forward  bool

	recvTime  float64
	totalTime float64
}

var _ Port = (*EthernetPort)(nil)

// NewEthernetPort wraps a transport in a port. The transport must deliver
// whole frames: one Send per request, one Receive per response.
func NewEthernetPort(t Transport, opts ...PortOption) (*EthernetPort, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	cfg, err := applyPortOptions(opts)
	if err != nil {
		return nil, err
	}
	p := &EthernetPort{
		transport: t,
		sendBuf:   make([]byte, 0, maxRecvSize),
		recvBuf:   make([]byte, maxRecvSize),
		forward:   cfg.forward,
	}
	p.basePort.init(string(t.Type()), p, cfg)
	if notifier, ok := t.(BusResetNotifier); ok {
		notifier.NotifyBusReset(p.OnBusReset)
	}
	return p, nil
}

// SetProtocol refuses broadcast protocols when the transport advertises
// that it cannot broadcast.
func (p *EthernetPort) SetProtocol(protocol Protocol) error {
	if protocol != ProtocolSeqRW {
		if c, ok := p.transport.(TransportCapabilityChecker); ok && !c.HasCapability(CapabilityBroadcast) {
			return fmt.Errorf("%w: transport %s cannot broadcast", ErrProtocolUnsupported, p.transport.Type())
		}
	}
	return p.basePort.SetProtocol(protocol)
}

// FPGARecvTime returns how long the bridge took to receive the last
// request, in seconds. Diagnostic only.
func (p *EthernetPort) FPGARecvTime() float64 { return p.recvTime }

// FPGATotalTime returns how long the bridge took to receive and fully
// answer the last request, in seconds. Diagnostic only.
func (p *EthernetPort) FPGATotalTime() float64 { return p.totalTime }

// Close shuts down the transport and the port.
func (p *EthernetPort) Close() error {
	if p.state == StateClosed {
		return nil
	}
	p.markClosed()
	return p.transport.Close()
}

// send prefixes the control word and hands the frame to the transport.
// Broadcast destinations go out on the transport's broadcast path.
func (p *EthernetPort) send(pkt []byte, node uint8) error {
	ctrl := frame.EncodeControl(!p.forward, uint8(p.generation))
	out := append(p.sendBuf[:0], ctrl[:]...)
	out = append(out, pkt...)
	if node == frame.BroadcastNode {
		return p.transport.Broadcast(out)
	}
	return p.transport.Send(out)
}

// receiveResponse waits for one response frame, handles the trailer, and
// validates the frame against the request parameters. dataLen is the
// expected payload size for block responses and zero otherwise. The
// returned slice points into the receive buffer and is valid until the
// next receive.
func (p *EthernetPort) receiveResponse(op string, dataLen int, node, tcode, tl uint8) ([]byte, error) {
	n, err := p.transport.Receive(p.recvBuf, p.timeout)
	if err != nil {
		return nil, err
	}
	if n < frame.ExtraSize {
		return nil, NewFrameValidationError(op, p.name,
			fmt.Errorf("%w: %d bytes", frame.ErrLength, n))
	}
	pkt := p.recvBuf[:n-frame.ExtraSize]
	extra := frame.DecodeExtraData(p.recvBuf[n-frame.ExtraSize : n])

	// Trailer first: a generation change invalidates whatever the frame
	// carries, and the new generation must be adopted before anything else
	// uses the node mapping.
	switch {
	case !p.genKnown:
		p.genKnown = true
		p.generation = uint32(extra.Generation)
	case extra.BusReset || extra.Generation != uint8(p.generation):
		p.OnBusReset(uint32(extra.Generation))
		return nil, NewFrameValidationError(op, p.name,
			fmt.Errorf("bus reset to generation %d during operation", extra.Generation))
	}

	if err := frame.ValidateResponse(pkt, dataLen, node, tcode, tl); err != nil {
		return nil, NewFrameValidationError(op, p.name, err)
	}
	p.recvTime = extra.RecvTime
	p.totalTime = extra.TotalTime
	return pkt, nil
}

func (p *EthernetPort) readQuadletNode(node uint8, addr uint64) (uint32, error) {
	tl := p.nextTL()
	if err := p.send(frame.QuadletReadRequest(node, addr, tl), node); err != nil {
		return 0, err
	}
	pkt, err := p.receiveResponse("ReadQuadlet", 0, node, frame.TCodeQuadResponse, tl)
	if err != nil {
		return 0, err
	}
	return frame.QuadletResponseData(pkt), nil
}

func (p *EthernetPort) writeQuadletNode(node uint8, addr uint64, data uint32) error {
	return p.send(frame.QuadletWriteRequest(node, addr, data, p.nextTL()), node)
}

func (p *EthernetPort) readBlockNode(node uint8, addr uint64, nbytes int) ([]byte, error) {
	tl := p.nextTL()
	if err := p.send(frame.BlockReadRequest(node, addr, uint16(nbytes), tl), node); err != nil {
		return nil, err
	}
	pkt, err := p.receiveResponse("ReadBlock", nbytes, node, frame.TCodeBlockResponse, tl)
	if err != nil {
		return nil, err
	}
	out := make([]byte, nbytes)
	copy(out, frame.BlockResponseData(pkt, nbytes))
	return out, nil
}

func (p *EthernetPort) writeBlockNode(node uint8, addr uint64, data []byte) error {
	return p.send(frame.BlockWriteRequest(node, addr, data, p.nextTL()), node)
}

// numScanNodes is the bridge's address space: one node per possible board.
func (p *EthernetPort) numScanNodes() int { return MaxBoards }
