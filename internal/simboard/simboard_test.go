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

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// onWire prefixes a packet with the control word the port would send.
func onWire(pkt []byte) []byte {
	ctrl := frame.EncodeControl(true, 0)
	return append(ctrl[:], pkt...)
}

func TestBusQuadletRead(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	b := NewBoard(3, 7, 16)
	b.SetRegister(0x20, 0xcafe0003)
	bus.AddBoard(3, b)

	resps := bus.Handle(onWire(frame.QuadletReadRequest(3, 0x20, 0x15)))
	if len(resps) != 1 {
		t.Fatalf("got %d responses, want 1", len(resps))
	}
	resp := resps[0]
	if len(resp) != frame.QuadResponseSize+frame.ExtraSize {
		t.Fatalf("response length = %d, want %d", len(resp), frame.QuadResponseSize+frame.ExtraSize)
	}

	pkt := resp[:frame.QuadResponseSize]
	if err := frame.ValidateResponse(pkt, 0, 3, frame.TCodeQuadResponse, 0x15); err != nil {
		t.Fatalf("response does not validate: %v", err)
	}
	if got := frame.QuadletResponseData(pkt); got != 0xcafe0003 {
		t.Errorf("data = %#x, want 0xcafe0003", got)
	}
}

func TestBusWellKnownRegisters(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.AddBoard(9, NewBoard(9, 6, 16))

	resps := bus.Handle(onWire(frame.QuadletReadRequest(9, statusAddr, 1)))
	if len(resps) != 1 {
		t.Fatal("no response to status read")
	}
	status := frame.QuadletResponseData(resps[0][:frame.QuadResponseSize])
	if got := uint8(status>>24) & 0x0f; got != 9 {
		t.Errorf("status board id = %d, want 9", got)
	}

	resps = bus.Handle(onWire(frame.QuadletReadRequest(9, firmwareAddr, 2)))
	if len(resps) != 1 {
		t.Fatal("no response to firmware read")
	}
	if got := frame.QuadletResponseData(resps[0][:frame.QuadResponseSize]); got != 6 {
		t.Errorf("firmware = %d, want 6", got)
	}
}

func TestBusIgnoresBadRequests(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.AddBoard(0, NewBoard(0, 7, 16))

	corrupted := frame.QuadletReadRequest(0, 0x04, 1)
	corrupted[8] ^= 0xff

	unknownTCode := frame.QuadletReadRequest(0, 0x04, 1)
	unknownTCode[3] = (unknownTCode[3] &^ 0xf0) | 0x90
	frame.PutCRC(unknownTCode, frame.HeaderSize)

	tests := []struct {
		name   string
		packet []byte
	}{
		{"corrupted CRC", onWire(corrupted)},
		{"absent node", onWire(frame.QuadletReadRequest(5, 0x04, 1))},
		{"unknown tcode", onWire(unknownTCode)},
		{"runt packet", []byte{0x01, 0x00, 0xff}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if resps := bus.Handle(tt.packet); resps != nil {
				t.Errorf("got %d responses, want none", len(resps))
			}
		})
	}
}

func TestBusQuadletWrite(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	b := NewBoard(2, 7, 16)
	bus.AddBoard(2, b)

	resps := bus.Handle(onWire(frame.QuadletWriteRequest(2, 0x30, 0xfeedface, 4)))
	if resps != nil {
		t.Fatal("quadlet write must not produce a response")
	}
	if got := b.Register(0x30); got != 0xfeedface {
		t.Errorf("register = %#x, want 0xfeedface", got)
	}
}

func TestBusBlockRoundTrip(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	b := NewBoard(1, 7, 16)
	bus.AddBoard(1, b)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if resps := bus.Handle(onWire(frame.BlockWriteRequest(1, 0x200, payload, 7))); resps != nil {
		t.Fatal("block write must not produce a response")
	}

	resps := bus.Handle(onWire(frame.BlockReadRequest(1, 0x200, uint16(len(payload)), 8)))
	if len(resps) != 1 {
		t.Fatalf("got %d responses, want 1", len(resps))
	}
	pkt := resps[0][:frame.BlockResponseHeaderSize+len(payload)+frame.CRCSize]
	if err := frame.ValidateResponse(pkt, len(payload), 1, frame.TCodeBlockResponse, 8); err != nil {
		t.Fatalf("response does not validate: %v", err)
	}
	if !bytes.Equal(frame.BlockResponseData(pkt, len(payload)), payload) {
		t.Error("payload does not round trip")
	}
}

func TestBusRealtimeBlockWrite(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	b := NewBoard(1, 7, 16)
	bus.AddBoard(1, b)

	payload := []byte{9, 8, 7, 6}
	bus.Handle(onWire(frame.BlockWriteRequest(1, realTimeAddr, payload, 1)))

	if !bytes.Equal(b.WriteState, payload) {
		t.Errorf("WriteState = %v, want %v", b.WriteState, payload)
	}
	if b.WriteCount != 1 {
		t.Errorf("WriteCount = %d, want 1", b.WriteCount)
	}
}

func TestBusBroadcastLatchAndHubBuffer(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	b1 := NewBoard(1, 7, 8)
	b4 := NewBoard(4, 7, 8)
	copy(b1.ReadState, []byte{1, 1, 1, 1, 1, 1, 1, 1})
	copy(b4.ReadState, []byte{4, 4, 4, 4, 4, 4, 4, 4})
	bus.AddBoard(1, b1)
	bus.AddBoard(4, b4)

	// Latch both boards with sequence 9.
	mask := uint32(1<<1 | 1<<4)
	bus.Handle(onWire(frame.QuadletWriteRequest(frame.BroadcastNode, frame.BroadcastRequestAddr, 9<<16|mask, 1)))

	// State changing after the latch must not leak into the hub buffer.
	b1.ReadState[0] = 0xff

	total := 2 * (4 + 8)
	resps := bus.Handle(onWire(frame.BlockReadRequest(1, frame.HubReadBufferAddr, uint16(total), 2)))
	if len(resps) != 1 {
		t.Fatalf("got %d responses, want 1", len(resps))
	}
	buf := frame.BlockResponseData(resps[0][:frame.BlockResponseHeaderSize+total+frame.CRCSize], total)

	status1 := binary.BigEndian.Uint32(buf[0:])
	if status1 != 9<<16|1 {
		t.Errorf("segment 1 status = %#x, want %#x", status1, uint32(9<<16|1))
	}
	if !bytes.Equal(buf[4:12], []byte{1, 1, 1, 1, 1, 1, 1, 1}) {
		t.Error("segment 1 carries live state instead of the latched snapshot")
	}

	status4 := binary.BigEndian.Uint32(buf[12:])
	if status4 != 9<<16|4 {
		t.Errorf("segment 4 status = %#x, want %#x", status4, uint32(9<<16|4))
	}
	if !bytes.Equal(buf[16:24], []byte{4, 4, 4, 4, 4, 4, 4, 4}) {
		t.Error("segment 4 data mismatch")
	}
}

func TestBusBroadcastBlockWrite(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	b1 := NewBoard(1, 7, 8)
	b4 := NewBoard(4, 7, 8)
	bus.AddBoard(1, b1)
	bus.AddBoard(4, b4)

	// Combined buffer: header quadlet (id<<24 | len) then payload, twice.
	var buf []byte
	var quad [4]byte
	binary.BigEndian.PutUint32(quad[:], 1<<24|4)
	buf = append(buf, quad[:]...)
	buf = append(buf, 0xaa, 0xaa, 0xaa, 0xaa)
	binary.BigEndian.PutUint32(quad[:], 4<<24|4)
	buf = append(buf, quad[:]...)
	buf = append(buf, 0xbb, 0xbb, 0xbb, 0xbb)

	bus.Handle(onWire(frame.BlockWriteRequest(frame.BroadcastNode, realTimeAddr, buf, 3)))

	if !bytes.Equal(b1.WriteState, []byte{0xaa, 0xaa, 0xaa, 0xaa}) {
		t.Errorf("board 1 WriteState = %v", b1.WriteState)
	}
	if !bytes.Equal(b4.WriteState, []byte{0xbb, 0xbb, 0xbb, 0xbb}) {
		t.Errorf("board 4 WriteState = %v", b4.WriteState)
	}
}

func TestBusTrailer(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.AddBoard(0, NewBoard(0, 7, 16))
	read := func() frame.ExtraData {
		t.Helper()
		resps := bus.Handle(onWire(frame.QuadletReadRequest(0, 0x04, 1)))
		if len(resps) != 1 {
			t.Fatal("no response")
		}
		resp := resps[0]
		return frame.DecodeExtraData(resp[len(resp)-frame.ExtraSize:])
	}

	extra := read()
	if extra.BusReset || extra.Generation != 0 {
		t.Errorf("initial trailer = %+v", extra)
	}

	bus.TriggerBusReset()
	extra = read()
	if !extra.BusReset || extra.Generation != 1 {
		t.Errorf("post-reset trailer = %+v, want reset flag and generation 1", extra)
	}

	// The reset flag is reported once.
	extra = read()
	if extra.BusReset || extra.Generation != 1 {
		t.Errorf("follow-up trailer = %+v, want clear flag and generation 1", extra)
	}
}

func TestBusDropAndMangle(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.AddBoard(0, NewBoard(0, 7, 16))

	bus.DropNext = 1
	if resps := bus.Handle(onWire(frame.QuadletReadRequest(0, 0x04, 1))); resps != nil {
		t.Fatal("dropped response still delivered")
	}

	bus.MangleNext = func(p []byte) []byte { p[0] ^= 0xff; return p }
	resps := bus.Handle(onWire(frame.QuadletReadRequest(0, 0x04, 2)))
	if len(resps) != 1 {
		t.Fatal("no response")
	}
	// Response quadlets lead with 0xff; the mangle flips it to zero.
	if resps[0][0] != 0x00 {
		t.Errorf("first byte = %#x, want mangled 0x00", resps[0][0])
	}
	if bus.MangleNext != nil {
		t.Error("MangleNext not cleared after one response")
	}

	// The next response is clean again.
	resps = bus.Handle(onWire(frame.QuadletReadRequest(0, 0x04, 3)))
	if len(resps) != 1 {
		t.Fatal("no response")
	}
	pkt := resps[0][:frame.QuadResponseSize]
	if err := frame.ValidateResponse(pkt, 0, 0, frame.TCodeQuadResponse, 3); err != nil {
		t.Errorf("clean response does not validate: %v", err)
	}
}

func TestBusControlWordCapture(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.AddBoard(0, NewBoard(0, 7, 16))

	ctrl := frame.EncodeControl(true, 5)
	bus.Handle(append(ctrl[:], frame.QuadletReadRequest(0, 0x04, 1)...))

	if !bus.LastNoForward {
		t.Error("no-forward flag not captured")
	}
	if bus.LastHostGeneration != 5 {
		t.Errorf("host generation = %d, want 5", bus.LastHostGeneration)
	}
}

func TestBusMoveBoard(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.AddBoard(3, NewBoard(3, 7, 16))
	bus.MoveBoard(3, 11)

	if bus.Board(3) != nil {
		t.Error("board still present at the old node")
	}
	if bus.Board(11) == nil {
		t.Fatal("board absent from the new node")
	}
	if resps := bus.Handle(onWire(frame.QuadletReadRequest(11, firmwareAddr, 1))); len(resps) != 1 {
		t.Error("moved board does not answer at its new node")
	}
}
