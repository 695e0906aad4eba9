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

// Package simboard emulates a chain of FPGA I/O boards behind the
// Ethernet bridge, frame by frame. It consumes request frames as they
// appear on the wire, control word included, and produces response
// frames with the bridge trailer appended. Requests that a real board
// would ignore (bad CRC, absent node) produce no response, so transport
// timeout paths behave as they do against hardware.
package simboard

import (
	"encoding/binary"

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// realTimeAddr is the realtime block offset in each board's space.
const realTimeAddr = 0x00

// Bus is the emulated bus. The zero value is not usable; call NewBus.
type Bus struct {
	boards [frame.MaxNodes]*Board

	// MangleNext, when set, rewrites the next response frame (trailer
	// included) and is cleared afterwards. For corruption tests.
	MangleNext func([]byte) []byte
	// DropNext drops that many upcoming responses.
	DropNext int

	// RecvTicks and TotalTicks are the hardware times reported in every
	// trailer, in 49.152 MHz ticks.
	RecvTicks  uint16
	TotalTicks uint16

	// LastNoForward and LastHostGeneration record the control word of the
	// most recent request.
	LastNoForward      bool
	LastHostGeneration uint8

	generation uint8
	resetFlag  bool
	lastMask   uint16
	lastSeq    uint16
}

// NewBus creates an empty bus reporting half a microsecond of receive
// time and one microsecond of total turnaround.
func NewBus() *Bus {
	return &Bus{RecvTicks: 25, TotalTicks: 49}
}

// AddBoard attaches a board at the given node.
func (bus *Bus) AddBoard(node uint8, b *Board) {
	if int(node) < len(bus.boards) {
		bus.boards[node] = b
	}
}

// RemoveBoard detaches whatever board sits at the given node.
func (bus *Bus) RemoveBoard(node uint8) {
	if int(node) < len(bus.boards) {
		bus.boards[node] = nil
	}
}

// Board returns the board at a node, nil when absent.
func (bus *Bus) Board(node uint8) *Board {
	if int(node) >= len(bus.boards) {
		return nil
	}
	return bus.boards[node]
}

// MoveBoard reattaches a board at a different node, as a bus reset that
// renumbered the topology would.
func (bus *Bus) MoveBoard(from, to uint8) {
	if int(from) >= len(bus.boards) || int(to) >= len(bus.boards) {
		return
	}
	bus.boards[to] = bus.boards[from]
	bus.boards[from] = nil
}

// TriggerBusReset advances the bus generation. The next response carries
// the reset flag and the new generation in its trailer.
func (bus *Bus) TriggerBusReset() {
	bus.generation++
	bus.resetFlag = true
}

// Generation returns the current bus generation.
func (bus *Bus) Generation() uint8 { return bus.generation }

// Handle consumes one request frame and returns the response frames it
// provokes, in order.
func (bus *Bus) Handle(packet []byte) [][]byte {
	if len(packet) < frame.CtrlSize+frame.HeaderSize+frame.CRCSize {
		return nil
	}
	bus.LastNoForward, bus.LastHostGeneration = frame.DecodeControl(packet)
	pkt := packet[frame.CtrlSize:]
	h := frame.ParseHeader(pkt)

	switch h.TCode {
	case frame.TCodeQuadRead:
		if len(pkt) != frame.QuadReadSize || !frame.CheckCRC(pkt, frame.HeaderSize) {
			return nil
		}
		b := bus.Board(h.DestNode)
		if b == nil {
			return nil
		}
		return bus.respond(frame.QuadletResponse(h.DestNode, h.TL, b.readQuadlet(h.Addr)))

	case frame.TCodeQuadWrite:
		if len(pkt) != frame.QuadWriteSize || !frame.CheckCRC(pkt, frame.QuadWriteSize-frame.CRCSize) {
			return nil
		}
		data := binary.BigEndian.Uint32(pkt[frame.HeaderSize:])
		if h.DestNode == frame.BroadcastNode {
			bus.broadcastQuadlet(h.Addr, data)
		} else if b := bus.Board(h.DestNode); b != nil {
			b.writeQuadlet(h.Addr, data)
		}
		return nil

	case frame.TCodeBlockRead:
		if len(pkt) != frame.BlockReadSize || !frame.CheckCRC(pkt, frame.BlockReadSize-frame.CRCSize) {
			return nil
		}
		b := bus.Board(h.DestNode)
		if b == nil {
			return nil
		}
		n := int(h.DataLen)
		var payload []byte
		if h.Addr == frame.HubReadBufferAddr {
			payload = bus.hubBuffer(n)
		} else {
			payload = b.readBlock(h.Addr, n)
		}
		return bus.respond(frame.BlockResponse(h.DestNode, h.TL, payload))

	case frame.TCodeBlockWrite:
		n := int(h.DataLen)
		if len(pkt) != frame.BlockWriteHeaderSize+n+frame.CRCSize ||
			!frame.CheckCRC(pkt, frame.BlockWriteHeaderSize-frame.CRCSize) ||
			!frame.CheckCRC(pkt[frame.BlockWriteHeaderSize:], n) {
			return nil
		}
		payload := pkt[frame.BlockWriteHeaderSize : frame.BlockWriteHeaderSize+n]
		if h.DestNode == frame.BroadcastNode {
			bus.broadcastBlock(h.Addr, payload)
		} else if b := bus.Board(h.DestNode); b != nil {
			b.writeBlock(h.Addr, payload)
		}
		return nil

	default:
		return nil
	}
}

// respond applies the drop and mangle hooks and appends the trailer.
func (bus *Bus) respond(resp []byte) [][]byte {
	if bus.DropNext > 0 {
		bus.DropNext--
		return nil
	}
	out := append(resp, bus.trailer()...)
	if bus.MangleNext != nil {
		out = bus.MangleNext(out)
		bus.MangleNext = nil
	}
	return [][]byte{out}
}

func (bus *Bus) trailer() []byte {
	t := frame.EncodeExtraData(bus.resetFlag, bus.generation, bus.RecvTicks, bus.TotalTicks)
	bus.resetFlag = false
	return t
}

// broadcastQuadlet distributes a broadcast quadlet write. Writes to the
// broadcast request address latch the readable state of every board in
// the carried mask; anything else lands in every board's registers.
func (bus *Bus) broadcastQuadlet(addr uint64, data uint32) {
	if addr == frame.BroadcastRequestAddr {
		seq := uint16(data >> 16)
		mask := uint16(data)
		bus.lastSeq = seq
		bus.lastMask = mask
		for _, b := range bus.boards {
			if b != nil && mask&(1<<b.ID) != 0 {
				b.latch(seq)
			}
		}
		return
	}
	for _, b := range bus.boards {
		if b != nil {
			b.writeQuadlet(addr, data)
		}
	}
}

// broadcastBlock splits a combined write buffer into per-board segments.
// Each segment header quadlet carries the target board id in the top
// byte and the payload length in the low 16 bits.
func (bus *Bus) broadcastBlock(addr uint64, payload []byte) {
	offset := 0
	for offset+4 <= len(payload) {
		hdr := binary.BigEndian.Uint32(payload[offset:])
		id := uint8(hdr >> 24)
		n := int(hdr & 0xffff)
		if offset+4+n > len(payload) {
			return
		}
		if b := bus.findBoard(id); b != nil {
			b.writeBlock(addr, payload[offset+4:offset+4+n])
		}
		offset += 4 + n
	}
}

func (bus *Bus) findBoard(id uint8) *Board {
	for _, b := range bus.boards {
		if b != nil && b.ID == id {
			return b
		}
	}
	return nil
}

// hubBuffer assembles the aggregate broadcast read buffer: one segment
// per board in the last latch mask, ascending by board id, each led by a
// status quadlet with the latched sequence number and the board id.
func (bus *Bus) hubBuffer(n int) []byte {
	out := make([]byte, 0, n)
	var quad [4]byte
	for id := uint8(0); id < 16; id++ {
		if bus.lastMask&(1<<id) == 0 {
			continue
		}
		b := bus.findBoard(id)
		if b == nil {
			continue
		}
		binary.BigEndian.PutUint32(quad[:], uint32(b.latchSeq)<<16|uint32(id))
		out = append(out, quad[:]...)
		out = append(out, b.latched...)
	}
	padded := make([]byte, n)
	copy(padded, out)
	return padded
}
