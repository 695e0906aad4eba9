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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// Protocol selects how the read/write cycle operations address the boards.
type Protocol int

const (
	// ProtocolSeqRW reads and writes each board one node at a time. The
	// default; supported by every firmware version.
	ProtocolSeqRW Protocol = iota
	// ProtocolSeqRBroadcastW reads sequentially but writes all boards with
	// a single broadcast.
	ProtocolSeqRBroadcastW
	// ProtocolBroadcastQRW queries, reads and writes all boards with
	// broadcasts, collecting reads from the hub board's aggregate buffer.
	ProtocolBroadcastQRW
)

// String returns the token form used by configuration files and logs.
func (p Protocol) String() string {
	switch p {
	case ProtocolSeqRW:
		return "seq-rw"
	case ProtocolSeqRBroadcastW:
		return "seq-r-bc-w"
	case ProtocolBroadcastQRW:
		return "bc-qrw"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol parses the token form produced by Protocol.String. The
// empty string parses to the default sequential protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "", "seq-rw":
		return ProtocolSeqRW, nil
	case "seq-r-bc-w":
		return ProtocolSeqRBroadcastW, nil
	case "bc-qrw":
		return ProtocolBroadcastQRW, nil
	default:
		return ProtocolSeqRW, fmt.Errorf("%w: unknown protocol %q", ErrInvalidParameter, s)
	}
}

// PortState tracks the port lifecycle.
type PortState int

const (
	// StateConstructed is the initial state, before the first successful
	// transport round trip.
	StateConstructed PortState = iota
	// StateOperational is the normal state. Timeouts and frame validation
	// failures do not leave it.
	StateOperational
	// StateFaulted is entered on a transport-level failure; every
	// subsequent operation fails fast until the port is reconstructed.
	StateFaulted
	// StateClosed is entered by Close.
	StateClosed
)

func (s PortState) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateOperational:
		return "operational"
	case StateFaulted:
		return "faulted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Well-known board registers consulted during node discovery.
const (
	boardStatusAddr     = 0x00 // board id in bits 27:24
	firmwareVersionAddr = 0x04
)

// noNode marks a board slot with no assigned bus node.
const noNode = uint8(frame.MaxNodes)

// Port is the shared contract of the two port variants. A Port instance
// is designed for exclusive use by one goroutine: operations block for
// their response (bounded by the receive timeout) and the board table may
// be mutated only while no operation is in flight.
type Port interface {
	// AddBoard registers a board handle. Adding to an occupied slot
	// silently replaces the previous handle; callers that care must check
	// BoardExists first.
	AddBoard(board Board) error
	// RemoveBoard unregisters the board with the given id.
	RemoveBoard(id uint8) error
	// BoardExists reports whether a board is registered under id.
	BoardExists(id uint8) bool
	// NumBoards returns the number of registered boards.
	NumBoards() int
	// BoardInUseMask returns a bitmask of registered board ids.
	BoardInUseMask() uint16
	// FirmwareVersion returns the firmware version last scanned for the
	// board.
	FirmwareVersion(board uint8) (uint32, error)
	// NodeForBoard returns the bus node a board is mapped to.
	NodeForBoard(board uint8) (uint8, error)
	// BoardForNode returns the board id mapped to a bus node.
	BoardForNode(node uint8) (uint8, error)

	// ReadQuadlet reads one quadlet from a board register.
	ReadQuadlet(board uint8, addr uint64) (uint32, error)
	// WriteQuadlet writes one quadlet to a board register.
	WriteQuadlet(board uint8, addr uint64, data uint32) error
	// ReadBlock reads nbytes from a board; nbytes must be a positive
	// multiple of four.
	ReadBlock(board uint8, addr uint64, nbytes int) ([]byte, error)
	// WriteBlock writes a block to a board; len(data) must be a positive
	// multiple of four.
	WriteBlock(board uint8, addr uint64, data []byte) error

	// ReadAllBoards runs one read cycle over every registered board using
	// the active protocol, delivering blocks to the board handles.
	ReadAllBoards() error
	// WriteAllBoards runs one write cycle over every registered board
	// using the active protocol.
	WriteAllBoards() error
	// WriteBroadcastReadRequest asks every capable board to latch its
	// readable state tagged with seq.
	WriteBroadcastReadRequest(seq uint16) error
	// WaitBroadcastRead waits for the aggregated broadcast data and
	// returns the hub board's buffer.
	WaitBroadcastRead() ([]byte, error)

	// SetProtocol switches the read/write cycle protocol. Broadcast
	// protocols are refused unless every registered board is broadcast
	// capable; on refusal the previous protocol stays active.
	SetProtocol(protocol Protocol) error
	// Protocol returns the active protocol.
	Protocol() Protocol

	// ScanNodes walks the bus, rebuilds the node/board mapping and reads
	// each discovered board's firmware version.
	ScanNodes() error
	// OnBusReset records a bus generation change; the node mapping is
	// revalidated before the next operation uses it.
	OnBusReset(generation uint32)
	// BusGeneration returns the currently tracked bus generation.
	BusGeneration() uint32

	// SetReceiveTimeout bounds the response wait of every operation.
	SetReceiveTimeout(timeout time.Duration)
	// ReceiveTimeout returns the configured response wait bound.
	ReceiveTimeout() time.Duration
	// State returns the port lifecycle state.
	State() PortState
	// Close shuts the port down; all subsequent operations fail.
	Close() error
}

// nodeBus is the node-level I/O each port variant supplies. Board-level
// operations resolve the board id to a node and delegate here. Writes are
// fire-and-forget at the protocol level: the wire format has no write
// response kind, so delivery is acknowledged by the medium (or by the
// following read round, for broadcasts).
type nodeBus interface {
	readQuadletNode(node uint8, addr uint64) (uint32, error)
	writeQuadletNode(node uint8, addr uint64, data uint32) error
	readBlockNode(node uint8, addr uint64, nbytes int) ([]byte, error)
	writeBlockNode(node uint8, addr uint64, data []byte) error
	// numScanNodes returns how many nodes ScanNodes should probe.
	numScanNodes() int
}

// basePort carries the state shared by both port variants: the board
// table, the node mapping, protocol mode, bus generation and the
// transaction label counter.
type basePort struct {
	nodeIO nodeBus
	name   string

	state    PortState
	protocol Protocol
	timeout  time.Duration

	generation   uint32
	staleNodeMap bool

	tl      uint8
	readSeq uint16

	boards     [MaxBoards]Board
	firmware   [MaxBoards]uint32
	board2Node [MaxBoards]uint8
	node2Board [frame.MaxNodes]uint8
	numBoards  int
	inUseMask  uint16
	hubBoard   uint8
}

func (p *basePort) init(name string, nodeIO nodeBus, cfg *portConfig) {
	p.name = name
	p.nodeIO = nodeIO
	p.state = StateConstructed
	p.protocol = cfg.protocol
	p.timeout = cfg.timeout
	p.hubBoard = MaxBoards
	for i := range p.board2Node {
		p.board2Node[i] = noNode
	}
	for i := range p.node2Board {
		p.node2Board[i] = MaxBoards
	}
}

// checkUsable fails fast when the port can no longer carry operations.
func (p *basePort) checkUsable() error {
	switch p.state {
	case StateFaulted:
		return ErrPortFaulted
	case StateClosed:
		return ErrPortClosed
	default:
		return nil
	}
}

// noteResult applies the lifecycle transitions for an operation outcome:
// the first success promotes a constructed port to operational, and a
// transport-level failure faults the port. Timeouts and validation
// failures pass through without a state change.
func (p *basePort) noteResult(op string, err error) error {
	if err == nil {
		if p.state == StateConstructed {
			p.state = StateOperational
			debugf("%s: operational", p.name)
		}
		return nil
	}
	if errors.Is(err, ErrTransportFailure) {
		p.state = StateFaulted
		debugf("%s: %s: transport failure, port faulted: %v", p.name, op, err)
	}
	return err
}

func (p *basePort) markClosed() {
	p.state = StateClosed
}

// nextTL allocates a fresh 6-bit transaction label. A late response to an
// earlier label no longer matches and is rejected by validation.
func (p *basePort) nextTL() uint8 {
	p.tl = (p.tl + 1) & frame.TLMask
	return p.tl
}

// AddBoard registers a board handle under its id. An occupied slot is
// silently replaced. If the active protocol needs broadcast support the
// new board lacks, the port falls back to the sequential protocol.
func (p *basePort) AddBoard(board Board) error {
	if board == nil {
		return fmt.Errorf("%w: nil board", ErrInvalidParameter)
	}
	id := board.BoardID()
	if id >= MaxBoards {
		return fmt.Errorf("%w: %d", ErrBoardOutOfRange, id)
	}
	if p.boards[id] != nil {
		debugf("%s: replacing board %d", p.name, id)
	} else {
		p.numBoards++
	}
	p.boards[id] = board
	p.firmware[id] = board.FirmwareVersion()
	p.inUseMask |= 1 << id
	if p.board2Node[id] == noNode {
		// Identity mapping until a scan discovers the real topology; on
		// Ethernet the bridge addresses boards by id.
		p.board2Node[id] = id
		p.node2Board[id] = id
	}
	if p.protocol != ProtocolSeqRW && !board.BroadcastCapable() {
		debugf("%s: board %d lacks broadcast support, falling back to %s", p.name, id, ProtocolSeqRW)
		p.protocol = ProtocolSeqRW
	}
	p.updateHubBoard()
	return nil
}

// RemoveBoard unregisters a board and releases its node mapping.
func (p *basePort) RemoveBoard(id uint8) error {
	if id >= MaxBoards {
		return fmt.Errorf("%w: %d", ErrBoardOutOfRange, id)
	}
	if p.boards[id] == nil {
		return fmt.Errorf("%w: %d", ErrBoardNotFound, id)
	}
	p.boards[id] = nil
	p.firmware[id] = 0
	p.inUseMask &^= 1 << id
	p.numBoards--
	if node := p.board2Node[id]; node != noNode {
		p.node2Board[node] = MaxBoards
	}
	p.board2Node[id] = noNode
	p.updateHubBoard()
	return nil
}

// updateHubBoard designates the lowest registered board as the hub that
// aggregates broadcast read data.
func (p *basePort) updateHubBoard() {
	p.hubBoard = MaxBoards
	for id := uint8(0); id < MaxBoards; id++ {
		if p.boards[id] != nil {
			p.hubBoard = id
			return
		}
	}
}

// BoardExists reports whether a board is registered under id.
func (p *basePort) BoardExists(id uint8) bool {
	return id < MaxBoards && p.boards[id] != nil
}

// NumBoards returns the number of registered boards.
func (p *basePort) NumBoards() int { return p.numBoards }

// BoardInUseMask returns a bitmask with one bit set per registered board.
func (p *basePort) BoardInUseMask() uint16 { return p.inUseMask }

// FirmwareVersion returns the firmware version last scanned for a board.
func (p *basePort) FirmwareVersion(board uint8) (uint32, error) {
	if board >= MaxBoards {
		return 0, fmt.Errorf("%w: %d", ErrBoardOutOfRange, board)
	}
	if p.boards[board] == nil {
		return 0, fmt.Errorf("%w: %d", ErrBoardNotFound, board)
	}
	return p.firmware[board], nil
}

// NodeForBoard returns the bus node a registered board is mapped to.
func (p *basePort) NodeForBoard(board uint8) (uint8, error) {
	if board >= MaxBoards {
		return 0, fmt.Errorf("%w: %d", ErrBoardOutOfRange, board)
	}
	if p.boards[board] == nil {
		return 0, fmt.Errorf("%w: %d", ErrBoardNotFound, board)
	}
	node := p.board2Node[board]
	if node == noNode {
		return 0, fmt.Errorf("%w: board %d has no bus node", ErrBoardNotFound, board)
	}
	return node, nil
}

// BoardForNode returns the board id mapped to a bus node.
func (p *basePort) BoardForNode(node uint8) (uint8, error) {
	if node >= uint8(frame.MaxNodes) {
		return 0, fmt.Errorf("%w: node %d", ErrBoardOutOfRange, node)
	}
	board := p.node2Board[node]
	if board >= MaxBoards {
		return 0, fmt.Errorf("%w: node %d", ErrBoardNotFound, node)
	}
	return board, nil
}

// allBoardsBroadcastCapable is the aggregate gate for broadcast protocols.
func (p *basePort) allBoardsBroadcastCapable() bool {
	for id := uint8(0); id < MaxBoards; id++ {
		if p.boards[id] != nil && !p.boards[id].BroadcastCapable() {
			return false
		}
	}
	return true
}

// SetProtocol switches the read/write cycle protocol. Broadcast protocols
// require every registered board to be broadcast capable; on refusal the
// previous protocol stays active and the returned error describes why.
func (p *basePort) SetProtocol(protocol Protocol) error {
	switch protocol {
	case ProtocolSeqRW:
	case ProtocolSeqRBroadcastW, ProtocolBroadcastQRW:
		if !p.allBoardsBroadcastCapable() {
			return fmt.Errorf("%w: %s refused", ErrProtocolUnsupported, protocol)
		}
	default:
		return fmt.Errorf("%w: unknown protocol %d", ErrInvalidParameter, int(protocol))
	}
	p.protocol = protocol
	debugf("%s: protocol %s", p.name, protocol)
	return nil
}

// Protocol returns the active protocol.
func (p *basePort) Protocol() Protocol { return p.protocol }

// SetReceiveTimeout bounds the response wait of every operation.
func (p *basePort) SetReceiveTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// ReceiveTimeout returns the configured response wait bound.
func (p *basePort) ReceiveTimeout() time.Duration { return p.timeout }

// State returns the port lifecycle state.
func (p *basePort) State() PortState { return p.state }

// BusGeneration returns the currently tracked bus generation.
func (p *basePort) BusGeneration() uint32 { return p.generation }

// OnBusReset records a topology change. The node mapping is marked stale
// so the next operation revalidates it with a scan instead of trusting
// the cache.
func (p *basePort) OnBusReset(generation uint32) {
	if generation == p.generation {
		return
	}
	debugf("%s: bus generation %d -> %d", p.name, p.generation, generation)
	p.generation = generation
	p.staleNodeMap = true
}

// nodeForBoard validates the board id and resolves its node, rescanning
// first if a bus reset invalidated the mapping.
func (p *basePort) nodeForBoard(board uint8) (uint8, error) {
	if board >= MaxBoards {
		return 0, fmt.Errorf("%w: %d", ErrBoardOutOfRange, board)
	}
	if p.boards[board] == nil {
		return 0, fmt.Errorf("%w: %d", ErrBoardNotFound, board)
	}
	if p.staleNodeMap {
		if err := p.ScanNodes(); err != nil {
			return 0, fmt.Errorf("node map rescan: %w", err)
		}
	}
	node := p.board2Node[board]
	if node == noNode {
		return 0, fmt.Errorf("%w: board %d has no bus node", ErrBoardNotFound, board)
	}
	return node, nil
}

// ReadQuadlet reads one quadlet from a board register.
func (p *basePort) ReadQuadlet(board uint8, addr uint64) (uint32, error) {
	if err := p.checkUsable(); err != nil {
		return 0, err
	}
	node, err := p.nodeForBoard(board)
	if err != nil {
		return 0, err
	}
	data, err := p.nodeIO.readQuadletNode(node, addr)
	if err != nil {
		return 0, p.noteResult("ReadQuadlet", err)
	}
	return data, p.noteResult("ReadQuadlet", nil)
}

// WriteQuadlet writes one quadlet to a board register.
func (p *basePort) WriteQuadlet(board uint8, addr uint64, data uint32) error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	node, err := p.nodeForBoard(board)
	if err != nil {
		return err
	}
	return p.noteResult("WriteQuadlet", p.nodeIO.writeQuadletNode(node, addr, data))
}

// checkBlockLength validates a block transfer size.
func checkBlockLength(nbytes int) error {
	if nbytes <= 0 || nbytes%4 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLength, nbytes)
	}
	if nbytes > frame.MaxBlockSize {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidLength, nbytes, frame.MaxBlockSize)
	}
	return nil
}

// ReadBlock reads nbytes from a board address.
func (p *basePort) ReadBlock(board uint8, addr uint64, nbytes int) ([]byte, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	if err := checkBlockLength(nbytes); err != nil {
		return nil, err
	}
	node, err := p.nodeForBoard(board)
	if err != nil {
		return nil, err
	}
	data, err := p.nodeIO.readBlockNode(node, addr, nbytes)
	if err != nil {
		return nil, p.noteResult("ReadBlock", err)
	}
	return data, p.noteResult("ReadBlock", nil)
}

// WriteBlock writes a block to a board address.
func (p *basePort) WriteBlock(board uint8, addr uint64, data []byte) error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if err := checkBlockLength(len(data)); err != nil {
		return err
	}
	node, err := p.nodeForBoard(board)
	if err != nil {
		return err
	}
	return p.noteResult("WriteBlock", p.nodeIO.writeBlockNode(node, addr, data))
}

// ScanNodes walks the bus and rebuilds the node/board mapping, reading
// each responding board's firmware version. Nodes that do not answer are
// skipped; a transport-level failure aborts the scan and faults the port.
func (p *basePort) ScanNodes() error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	limit := p.nodeIO.numScanNodes()
	if limit > frame.MaxNodes {
		limit = frame.MaxNodes
	}

	for i := range p.node2Board {
		p.node2Board[i] = MaxBoards
	}
	for i := range p.board2Node {
		p.board2Node[i] = noNode
	}
	p.staleNodeMap = false

	found := 0
	for node := 0; node < limit; node++ {
		status, err := p.nodeIO.readQuadletNode(uint8(node), boardStatusAddr)
		if err != nil {
			if errors.Is(err, ErrTransportFailure) {
				return p.noteResult("ScanNodes", err)
			}
			continue
		}
		board := uint8(status>>24) & 0x0f
		version, err := p.nodeIO.readQuadletNode(uint8(node), firmwareVersionAddr)
		if err != nil {
			if errors.Is(err, ErrTransportFailure) {
				return p.noteResult("ScanNodes", err)
			}
			debugf("%s: node %d: firmware version read failed: %v", p.name, node, err)
			continue
		}
		p.node2Board[node] = board
		p.board2Node[board] = uint8(node)
		p.firmware[board] = version
		if b := p.boards[board]; b != nil {
			b.SetFirmwareVersion(version)
		}
		found++
		debugf("%s: node %d is board %d, firmware %d", p.name, node, board, version)
	}
	if found == 0 {
		return fmt.Errorf("%w: no nodes answered the scan", ErrNoResponse)
	}
	return p.noteResult("ScanNodes", nil)
}
