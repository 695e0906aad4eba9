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

// MaxBoards is the number of board slots on one port. Board ids are set
// by a rotary switch on the hardware and range from 0 to MaxBoards-1.
const MaxBoards = 16

// minBroadcastFirmware is the first firmware version that participates in
// the broadcast read/write protocol.
const minBroadcastFirmware = 4

// Board is the collaborator contract for one FPGA board attached to a
// port. The read/write cycle operations (ReadAllBoards, WriteAllBoards)
// move whole register blocks between the port and the board's buffers;
// what the registers mean is the board implementation's business.
type Board interface {
	// BoardID returns the board's id switch setting.
	BoardID() uint8

	// FirmwareVersion returns the version last read from the board, or the
	// configured value if the bus has not been scanned yet.
	FirmwareVersion() uint32

	// SetFirmwareVersion records the version discovered during a bus scan.
	SetFirmwareVersion(version uint32)

	// BroadcastCapable reports whether the board's firmware participates
	// in the broadcast read/write protocol.
	BroadcastCapable() bool

	// ReadBufferSize returns the number of bytes one read cycle collects
	// from this board.
	ReadBufferSize() int

	// SetReadData delivers the block collected by the last read cycle.
	SetReadData(data []byte)

	// SetReadValid marks whether the last read cycle produced fresh data.
	SetReadValid(valid bool)

	// WriteBufferSize returns the number of bytes one write cycle sends
	// to this board.
	WriteBufferSize() int

	// WriteData returns the block to send on the next write cycle.
	WriteData() []byte

	// SetWriteValid marks whether the last write cycle was delivered.
	SetWriteValid(valid bool)
}

// GenericBoard is a plain Board implementation backed by flat read and
// write buffers. Board-specific register semantics (encoder counts, motor
// currents, digital I/O) live outside this module; GenericBoard carries
// the raw blocks for callers that interpret them elsewhere.
type GenericBoard struct {
	readData   []byte
	writeData  []byte
	firmware   uint32
	id         uint8
	readValid  bool
	writeValid bool
}

// NewGenericBoard creates a board handle with the given id and read/write
// buffer sizes in bytes. Sizes must be multiples of four; the zero value
// for firmware means "not yet scanned".
func NewGenericBoard(id uint8, readBytes, writeBytes int) *GenericBoard {
	return &GenericBoard{
		id:        id,
		readData:  make([]byte, readBytes),
		writeData: make([]byte, writeBytes),
	}
}

// BoardID returns the board's id switch setting.
func (b *GenericBoard) BoardID() uint8 { return b.id }

// FirmwareVersion returns the last known firmware version.
func (b *GenericBoard) FirmwareVersion() uint32 { return b.firmware }

// SetFirmwareVersion records the firmware version discovered by a scan.
func (b *GenericBoard) SetFirmwareVersion(version uint32) { b.firmware = version }

// BroadcastCapable reports whether the firmware supports broadcast.
func (b *GenericBoard) BroadcastCapable() bool { return b.firmware >= minBroadcastFirmware }

// ReadBufferSize returns the size of the board's read block.
func (b *GenericBoard) ReadBufferSize() int { return len(b.readData) }

// SetReadData stores the block collected by the last read cycle.
func (b *GenericBoard) SetReadData(data []byte) {
	copy(b.readData, data)
}

// SetReadValid marks the read buffer fresh or stale.
func (b *GenericBoard) SetReadValid(valid bool) { b.readValid = valid }

// ReadValid reports whether the last read cycle produced fresh data.
func (b *GenericBoard) ReadValid() bool { return b.readValid }

// ReadData returns the board's read buffer.
func (b *GenericBoard) ReadData() []byte { return b.readData }

// WriteBufferSize returns the size of the board's write block.
func (b *GenericBoard) WriteBufferSize() int { return len(b.writeData) }

// WriteData returns the block to send on the next write cycle.
func (b *GenericBoard) WriteData() []byte { return b.writeData }

// SetWriteData replaces the pending write block contents.
func (b *GenericBoard) SetWriteData(data []byte) {
	copy(b.writeData, data)
}

// SetWriteValid marks whether the last write cycle was delivered.
func (b *GenericBoard) SetWriteValid(valid bool) { b.writeValid = valid }

// WriteValid reports whether the last write cycle was delivered.
func (b *GenericBoard) WriteValid() bool { return b.writeValid }

// Ensure GenericBoard implements Board
var _ Board = (*GenericBoard)(nil)
