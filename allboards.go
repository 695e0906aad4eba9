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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// Boards expose their realtime block at the base of the register space.
const realTimeBlockAddr = 0x00

// broadcastLatchDelay is the per-board settle time between a broadcast
// read request and the hub buffer being complete.
const broadcastLatchDelay = 10 * time.Microsecond

// ReadAllBoards runs one read cycle over every registered board using the
// active protocol. Each board handle receives its realtime block via
// SetReadData and a per-board validity flag; the returned error is the
// first per-board failure, after the cycle finished the remaining boards.
func (p *basePort) ReadAllBoards() error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if p.numBoards == 0 {
		debugf("%s: ReadAllBoards: no boards", p.name)
		return nil
	}
	if p.protocol == ProtocolBroadcastQRW {
		return p.readAllBoardsBroadcast()
	}
	return p.readAllBoardsSequential()
}

func (p *basePort) readAllBoardsSequential() error {
	var firstErr error
	for id := uint8(0); id < MaxBoards; id++ {
		board := p.boards[id]
		if board == nil {
			continue
		}
		data, err := p.ReadBlock(id, realTimeBlockAddr, board.ReadBufferSize())
		if err != nil {
			board.SetReadValid(false)
			if firstErr == nil {
				firstErr = fmt.Errorf("board %d: %w", id, err)
			}
			continue
		}
		board.SetReadData(data)
		board.SetReadValid(true)
	}
	return firstErr
}

// readAllBoardsBroadcast queries every board with one broadcast, then
// collects the aggregated data from the hub board in a single block read.
func (p *basePort) readAllBoardsBroadcast() error {
	p.readSeq++
	seq := p.readSeq
	if err := p.WriteBroadcastReadRequest(seq); err != nil {
		p.invalidateReads()
		return err
	}
	// The boards need a moment to latch their state into the hub.
	time.Sleep(time.Duration(p.numBoards) * broadcastLatchDelay)
	buf, err := p.WaitBroadcastRead()
	if err != nil {
		p.invalidateReads()
		return err
	}
	return p.parseHubBuffer(buf, seq)
}

func (p *basePort) invalidateReads() {
	for id := uint8(0); id < MaxBoards; id++ {
		if p.boards[id] != nil {
			p.boards[id].SetReadValid(false)
		}
	}
}

// parseHubBuffer splits the hub board's aggregate buffer into per-board
// segments. Each segment starts with a status quadlet carrying the echoed
// sequence number in the upper 16 bits and the contributing board id in
// the low byte, followed by that board's realtime block. Boards whose
// segment carries a stale sequence number or the wrong id are marked
// invalid for this cycle.
func (p *basePort) parseHubBuffer(buf []byte, seq uint16) error {
	var firstErr error
	offset := 0
	for id := uint8(0); id < MaxBoards; id++ {
		board := p.boards[id]
		if board == nil {
			continue
		}
		segLen := 4 + board.ReadBufferSize()
		if offset+segLen > len(buf) {
			board.SetReadValid(false)
			if firstErr == nil {
				firstErr = fmt.Errorf("board %d: %w: hub buffer truncated at %d bytes",
					id, ErrFrameValidation, len(buf))
			}
			offset = len(buf)
			continue
		}
		status := binary.BigEndian.Uint32(buf[offset:])
		gotSeq := uint16(status >> 16)
		gotBoard := uint8(status)
		if gotSeq != seq || gotBoard != id {
			board.SetReadValid(false)
			if firstErr == nil {
				firstErr = fmt.Errorf("board %d: %w: stale hub segment (seq %d board %d)",
					id, ErrFrameValidation, gotSeq, gotBoard)
			}
		} else {
			board.SetReadData(buf[offset+4 : offset+segLen])
			board.SetReadValid(true)
		}
		offset += segLen
	}
	return firstErr
}

// WriteAllBoards runs one write cycle over every registered board using
// the active protocol. Per-board write validity flags record the outcome.
func (p *basePort) WriteAllBoards() error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if p.numBoards == 0 {
		debugf("%s: WriteAllBoards: no boards", p.name)
		return nil
	}
	if p.protocol == ProtocolSeqRW {
		return p.writeAllBoardsSequential()
	}
	return p.writeAllBoardsBroadcast()
}

func (p *basePort) writeAllBoardsSequential() error {
	var firstErr error
	for id := uint8(0); id < MaxBoards; id++ {
		board := p.boards[id]
		if board == nil {
			continue
		}
		err := p.WriteBlock(id, realTimeBlockAddr, board.WriteData())
		board.SetWriteValid(err == nil)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("board %d: %w", id, err)
		}
	}
	return firstErr
}

// writeAllBoardsBroadcast concatenates every board's write block into one
// buffer and delivers it with a single broadcast block write. Each
// segment starts with a header quadlet holding the target board id in the
// top byte and the segment payload length in the low 16 bits, so boards
// of different sizes can locate their slice.
func (p *basePort) writeAllBoardsBroadcast() error {
	total := 0
	for id := uint8(0); id < MaxBoards; id++ {
		if p.boards[id] != nil {
			total += 4 + p.boards[id].WriteBufferSize()
		}
	}
	if total > frame.MaxBlockSize {
		return fmt.Errorf("%w: broadcast write of %d bytes", ErrInvalidLength, total)
	}

	buf := make([]byte, 0, total)
	var quad [4]byte
	for id := uint8(0); id < MaxBoards; id++ {
		board := p.boards[id]
		if board == nil {
			continue
		}
		data := board.WriteData()
		binary.BigEndian.PutUint32(quad[:], uint32(id)<<24|uint32(len(data)))
		buf = append(buf, quad[:]...)
		buf = append(buf, data...)
	}

	err := p.noteResult("WriteAllBoards",
		p.nodeIO.writeBlockNode(frame.BroadcastNode, realTimeBlockAddr, buf))
	for id := uint8(0); id < MaxBoards; id++ {
		if p.boards[id] != nil {
			p.boards[id].SetWriteValid(err == nil)
		}
	}
	return err
}

// WriteBroadcastReadRequest asks every capable board to latch its current
// readable state tagged with seq. The request is a quadlet write to the
// broadcast node carrying the sequence number in the upper 16 bits and
// the registered-board mask in the lower 16.
func (p *basePort) WriteBroadcastReadRequest(seq uint16) error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if p.protocol == ProtocolSeqRW {
		return fmt.Errorf("%w: broadcast read request in %s mode", ErrProtocolUnsupported, p.protocol)
	}
	data := uint32(seq)<<16 | uint32(p.inUseMask)
	return p.noteResult("WriteBroadcastReadRequest",
		p.nodeIO.writeQuadletNode(frame.BroadcastNode, frame.BroadcastRequestAddr, data))
}

// WaitBroadcastRead retrieves the aggregated broadcast data from the hub
// board. The wait is bounded by the configured receive timeout.
func (p *basePort) WaitBroadcastRead() ([]byte, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	if p.protocol == ProtocolSeqRW {
		return nil, fmt.Errorf("%w: broadcast read in %s mode", ErrProtocolUnsupported, p.protocol)
	}
	if p.hubBoard >= MaxBoards {
		return nil, fmt.Errorf("%w: no hub board", ErrBoardNotFound)
	}
	total := 0
	for id := uint8(0); id < MaxBoards; id++ {
		if p.boards[id] != nil {
			total += 4 + p.boards[id].ReadBufferSize()
		}
	}
	node, err := p.nodeForBoard(p.hubBoard)
	if err != nil {
		return nil, err
	}
	buf, err := p.nodeIO.readBlockNode(node, frame.HubReadBufferAddr, total)
	if err != nil {
		return nil, p.noteResult("WaitBroadcastRead", err)
	}
	return buf, p.noteResult("WaitBroadcastRead", nil)
}
