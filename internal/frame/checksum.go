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
	"hash/crc32"
	"math/bits"
)

// ComputeCRC returns the packet CRC the board firmware expects: the IEEE
// CRC-32 of data with the final value bit-reversed.
func ComputeCRC(data []byte) uint32 {
	return bits.Reverse32(crc32.ChecksumIEEE(data))
}

// PutCRC stores the CRC of p[:n] big-endian at p[n:n+4]. Any mutation of
// the covered bytes invalidates the stored value and requires a new call.
func PutCRC(p []byte, n int) {
	binary.BigEndian.PutUint32(p[n:], ComputeCRC(p[:n]))
}

// CheckCRC reports whether the CRC stored at p[n:n+4] matches the computed
// CRC of p[:n]. It returns false if p is too short to hold the CRC.
func CheckCRC(p []byte, n int) bool {
	if n < 0 || len(p) < n+CRCSize {
		return false
	}
	return binary.BigEndian.Uint32(p[n:]) == ComputeCRC(p[:n])
}
