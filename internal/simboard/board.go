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

package simboard

// Board registers mirrored by the emulator.
const (
	statusAddr   = 0x00
	firmwareAddr = 0x04
)

// Board is one emulated FPGA board. ReadState is the realtime block the
// board reports; WriteState is the last realtime block written to it.
type Board struct {
	regs map[uint64]uint32
	mem  map[uint64][]byte

	ReadState  []byte
	WriteState []byte

	latched  []byte
	latchSeq uint16

	Firmware uint32
	// WriteCount counts realtime block writes, broadcast or unicast.
	WriteCount int
	ID         uint8
}

// NewBoard creates a board with the given id, firmware version and
// realtime read block size.
func NewBoard(id uint8, firmware uint32, readBytes int) *Board {
	return &Board{
		ID:        id,
		Firmware:  firmware,
		ReadState: make([]byte, readBytes),
		regs:      make(map[uint64]uint32),
		mem:       make(map[uint64][]byte),
	}
}

// SetRegister seeds a register value for reads.
func (b *Board) SetRegister(addr uint64, data uint32) {
	b.regs[addr] = data
}

// Register returns the current value of a register.
func (b *Board) Register(addr uint64) uint32 {
	return b.regs[addr]
}

func (b *Board) readQuadlet(addr uint64) uint32 {
	switch addr {
	case statusAddr:
		return uint32(b.ID&0x0f) << 24
	case firmwareAddr:
		return b.Firmware
	default:
		return b.regs[addr]
	}
}

func (b *Board) writeQuadlet(addr uint64, data uint32) {
	b.regs[addr] = data
}

// readBlock answers a block read with exactly n bytes, zero padded past
// whatever the board holds at addr.
func (b *Board) readBlock(addr uint64, n int) []byte {
	out := make([]byte, n)
	if addr == realTimeAddr {
		copy(out, b.ReadState)
	} else {
		copy(out, b.mem[addr])
	}
	return out
}

func (b *Board) writeBlock(addr uint64, data []byte) {
	cp := append([]byte(nil), data...)
	if addr == realTimeAddr {
		b.WriteState = cp
		b.WriteCount++
		return
	}
	b.mem[addr] = cp
}

// latch snapshots the readable state for the hub buffer, tagged with the
// broadcast sequence number.
func (b *Board) latch(seq uint16) {
	b.latchSeq = seq
	b.latched = append([]byte(nil), b.ReadState...)
}
