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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Response validation failures. ValidateResponse checks these conditions
// in a fixed order and stops at the first one that fails.
var (
	ErrLength  = errors.New("unexpected packet length")
	ErrNode    = errors.New("source node mismatch")
	ErrTCode   = errors.New("tcode mismatch")
	ErrTL      = errors.New("transaction label mismatch")
	ErrCRC     = errors.New("header CRC mismatch")
	ErrDataCRC = errors.New("data CRC mismatch")
)

// Header holds the decoded addressing fields of a packet. Request kinds
// carry a 48-bit destination offset; response kinds carry the responding
// node and a response code instead.
type Header struct {
	Addr     uint64 // destination offset (request kinds only)
	DataLen  uint16 // payload length in bytes (block kinds only)
	DestNode uint8  // low 6 bits of the destination id
	SrcNode  uint8  // low 6 bits of the source id (response kinds only)
	TCode    uint8
	TL       uint8
	RCode    uint8 // response code (response kinds only)
}

// putRequestHeader writes the three quadlets common to every request:
// destination id with transaction label and tcode, source id with the high
// 16 address bits, and the low 32 address bits.
func putRequestHeader(p []byte, node uint8, addr uint64, tcode, tl uint8) {
	binary.BigEndian.PutUint32(p[0:], (LocalBusID|uint32(node))<<16|uint32(tl&TLMask)<<10|uint32(tcode&0x0f)<<4)
	binary.BigEndian.PutUint32(p[4:], 0xffff<<16|uint32(addr>>32)&0xffff)
	binary.BigEndian.PutUint32(p[8:], uint32(addr))
}

// QuadletReadRequest builds a quadlet read request for the given node.
func QuadletReadRequest(node uint8, addr uint64, tl uint8) []byte {
	p := make([]byte, QuadReadSize)
	putRequestHeader(p, node, addr, TCodeQuadRead, tl)
	PutCRC(p, HeaderSize)
	return p
}

// QuadletWriteRequest builds a quadlet write request carrying data.
func QuadletWriteRequest(node uint8, addr uint64, data uint32, tl uint8) []byte {
	p := make([]byte, QuadWriteSize)
	putRequestHeader(p, node, addr, TCodeQuadWrite, tl)
	binary.BigEndian.PutUint32(p[12:], data)
	PutCRC(p, QuadWriteSize-CRCSize)
	return p
}

// BlockReadRequest builds a block read request for nbytes of data.
func BlockReadRequest(node uint8, addr uint64, nbytes uint16, tl uint8) []byte {
	p := make([]byte, BlockReadSize)
	putRequestHeader(p, node, addr, TCodeBlockRead, tl)
	binary.BigEndian.PutUint32(p[12:], uint32(nbytes)<<16)
	PutCRC(p, BlockReadSize-CRCSize)
	return p
}

// BlockWriteRequest builds a block write request. The caller must have
// validated data as a non-empty multiple of four bytes; the payload is
// followed by its own CRC.
func BlockWriteRequest(node uint8, addr uint64, data []byte, tl uint8) []byte {
	p := make([]byte, BlockWriteHeaderSize+len(data)+CRCSize)
	putRequestHeader(p, node, addr, TCodeBlockWrite, tl)
	binary.BigEndian.PutUint32(p[12:], uint32(len(data))<<16)
	PutCRC(p, BlockWriteHeaderSize-CRCSize)
	copy(p[BlockWriteHeaderSize:], data)
	binary.BigEndian.PutUint32(p[BlockWriteHeaderSize+len(data):], ComputeCRC(data))
	return p
}

// QuadletResponse builds a quadlet read response as the board firmware
// would send it. Used by the bus emulator and tests.
func QuadletResponse(node, tl uint8, data uint32) []byte {
	p := make([]byte, QuadResponseSize)
	binary.BigEndian.PutUint32(p[0:], 0xffff<<16|uint32(tl&TLMask)<<10|TCodeQuadResponse<<4)
	binary.BigEndian.PutUint32(p[4:], (LocalBusID|uint32(node))<<16)
	binary.BigEndian.PutUint32(p[12:], data)
	PutCRC(p, QuadResponseSize-CRCSize)
	return p
}

// BlockResponse builds a block read response carrying payload, with the
// payload CRC appended. Used by the bus emulator and tests.
func BlockResponse(node, tl uint8, payload []byte) []byte {
	p := make([]byte, BlockResponseHeaderSize+len(payload)+CRCSize)
	binary.BigEndian.PutUint32(p[0:], 0xffff<<16|uint32(tl&TLMask)<<10|TCodeBlockResponse<<4)
	binary.BigEndian.PutUint32(p[4:], (LocalBusID|uint32(node))<<16)
	binary.BigEndian.PutUint32(p[12:], uint32(len(payload))<<16)
	PutCRC(p, BlockResponseHeaderSize-CRCSize)
	copy(p[BlockResponseHeaderSize:], payload)
	binary.BigEndian.PutUint32(p[BlockResponseHeaderSize+len(payload):], ComputeCRC(payload))
	return p
}

// ParseHeader decodes the addressing fields of a packet. Packets shorter
// than the three common quadlets decode to a zero Header.
func ParseHeader(p []byte) Header {
	if len(p) < HeaderSize {
		return Header{}
	}
	q0 := binary.BigEndian.Uint32(p[0:])
	q1 := binary.BigEndian.Uint32(p[4:])
	q2 := binary.BigEndian.Uint32(p[8:])
	h := Header{
		DestNode: uint8(q0>>16) & 0x3f,
		TL:       uint8(q0>>10) & TLMask,
		TCode:    uint8(q0>>4) & 0x0f,
	}
	switch h.TCode {
	case TCodeQuadResponse, TCodeBlockResponse:
		h.SrcNode = uint8(q1>>16) & 0x3f
		h.RCode = uint8(q1>>12) & 0x0f
		if h.TCode == TCodeBlockResponse && len(p) >= HeaderSize+4 {
			h.DataLen = uint16(binary.BigEndian.Uint32(p[12:]) >> 16)
		}
	default:
		h.Addr = uint64(q1&0xffff)<<32 | uint64(q2)
		if (h.TCode == TCodeBlockRead || h.TCode == TCodeBlockWrite) && len(p) >= HeaderSize+4 {
			h.DataLen = uint16(binary.BigEndian.Uint32(p[12:]) >> 16)
		}
	}
	return h
}

// ValidateResponse checks a received packet against the request it should
// answer. The checks run in a fixed order and stop at the first failure:
// length, source node, tcode, transaction label, CRC. dataLen is the
// expected payload length for block responses and ignored otherwise.
func ValidateResponse(p []byte, dataLen int, node, tcode, tl uint8) error {
	want := QuadResponseSize
	if tcode == TCodeBlockResponse {
		want = BlockResponseHeaderSize + dataLen + CRCSize
	}
	if len(p) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(p), want)
	}
	h := ParseHeader(p)
	if h.SrcNode != node {
		return fmt.Errorf("%w: got %d, want %d", ErrNode, h.SrcNode, node)
	}
	if h.TCode != tcode {
		return fmt.Errorf("%w: got %#x, want %#x", ErrTCode, h.TCode, tcode)
	}
	if h.TL != tl {
		return fmt.Errorf("%w: got %#x, want %#x", ErrTL, h.TL, tl)
	}
	if !CheckCRC(p, HeaderSize+4) {
		return ErrCRC
	}
	if tcode == TCodeBlockResponse && !CheckCRC(p[BlockResponseHeaderSize:], dataLen) {
		return ErrDataCRC
	}
	return nil
}

// QuadletResponseData returns the data quadlet of a validated quadlet
// response.
func QuadletResponseData(p []byte) uint32 {
	return binary.BigEndian.Uint32(p[12:])
}

// BlockResponseData returns the payload of a validated block response.
func BlockResponseData(p []byte, dataLen int) []byte {
	return p[BlockResponseHeaderSize : BlockResponseHeaderSize+dataLen]
}
