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

package eth

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// onWire prefixes a packet with the control word, as send() does.
func onWire(pkt []byte) []byte {
	ctrl := frame.EncodeControl(true, 0)
	return append(ctrl[:], pkt...)
}

// TestBoardMAC verifies the board id to unicast MAC mapping.
func TestBoardMAC(t *testing.T) {
	t.Parallel()

	mac := BoardMAC(0)
	want := net.HardwareAddr{0xfa, 0x61, 0x0e, 0x13, 0x94, 0x00}
	if !bytes.Equal(mac, want) {
		t.Errorf("BoardMAC(0) = %s, want %s", mac, want)
	}

	if got := BoardMAC(0x0f); got[5] != 0x0f {
		t.Errorf("BoardMAC(0x0f) last byte = %#02x, want 0x0f", got[5])
	}
}

// TestFromBoard verifies source MAC classification.
func TestFromBoard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mac  net.HardwareAddr
		want bool
	}{
		{"board zero", BoardMAC(0), true},
		{"board fifteen", BoardMAC(0x0f), true},
		{"multicast group", MulticastMAC, false},
		{"nil", nil, false},
		{"short", net.HardwareAddr{0xfa, 0x61, 0x0e}, false},
		{"foreign prefix", net.HardwareAddr{0x00, 0x1b, 0x21, 0x13, 0x94, 0x05}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fromBoard(tt.mac); got != tt.want {
				t.Errorf("fromBoard(%v) = %v, want %v", tt.mac, got, tt.want)
			}
		})
	}
}

// TestDestMAC verifies destination MAC selection from the packet header.
func TestDestMAC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pkt  []byte
		want net.HardwareAddr
	}{
		{
			name: "unicast node",
			pkt:  onWire(frame.QuadletWriteRequest(5, 0x0100, 0xdeadbeef, 1)),
			want: BoardMAC(5),
		},
		{
			name: "node above fifteen wraps into the board id space",
			pkt:  onWire(frame.QuadletReadRequest(0x1a, 0x04, 2)),
			want: BoardMAC(0x0a),
		},
		{
			name: "broadcast node",
			pkt:  onWire(frame.QuadletWriteRequest(frame.BroadcastNode, frame.BroadcastRequestAddr, 1, 0)),
			want: MulticastMAC,
		},
		{
			name: "runt packet",
			pkt:  []byte{0x01, 0x00},
			want: MulticastMAC,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := destMAC(tt.pkt); !bytes.Equal(got, tt.want) {
				t.Errorf("destMAC() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestResponseLength verifies frame length computation per tcode.
func TestResponseLength(t *testing.T) {
	t.Parallel()

	quad := frame.QuadletResponse(3, 1, 0x12345678)
	if got := responseLength(quad); got != frame.QuadResponseSize {
		t.Errorf("quadlet response length = %d, want %d", got, frame.QuadResponseSize)
	}

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	block := frame.BlockResponse(3, 1, payload)
	wantBlock := frame.BlockResponseHeaderSize + len(payload) + frame.CRCSize
	if got := responseLength(block); got != wantBlock {
		t.Errorf("block response length = %d, want %d", got, wantBlock)
	}

	// Unknown tcodes cannot be sized, so the whole buffer is kept.
	odd := make([]byte, 46)
	binary.BigEndian.PutUint32(odd[0:], 0xffff<<16|uint32(3)<<10|9<<4)
	if got := responseLength(odd); got != len(odd) {
		t.Errorf("unknown tcode length = %d, want %d", got, len(odd))
	}
}

// TestTrimPadding verifies that link-layer padding is cut while the
// response frame and trailer survive.
func TestTrimPadding(t *testing.T) {
	t.Parallel()

	resp := frame.QuadletResponse(3, 1, 0xcafef00d)
	trailer := frame.EncodeExtraData(false, 0, 100, 250)
	exact := make([]byte, 0, len(resp)+len(trailer))
	exact = append(exact, resp...)
	exact = append(exact, trailer...)

	// Minimum Ethernet payload padding appended by the link layer.
	padded := append(append([]byte{}, exact...), make([]byte, 18)...)

	got := trimPadding(padded)
	if len(got) != frame.QuadResponseSize+frame.ExtraSize {
		t.Fatalf("trimmed length = %d, want %d", len(got), frame.QuadResponseSize+frame.ExtraSize)
	}
	if !bytes.Equal(got, exact) {
		t.Errorf("trimmed payload does not match the original frame")
	}

	// An exact-size payload passes through untouched.
	if got := trimPadding(exact); !bytes.Equal(got, exact) {
		t.Errorf("exact payload was modified")
	}

	// Short buffers are left alone for the validator to reject.
	runt := []byte{0xff, 0xff}
	if got := trimPadding(runt); !bytes.Equal(got, runt) {
		t.Errorf("runt payload was modified")
	}
}
