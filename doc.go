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

/*
Package fpga1394 provides a pure Go library for talking to FPGA I/O
boards that speak the IEEE-1394 asynchronous packet protocol, whether
they sit on a native FireWire bus or behind the FPGA Ethernet bridge.

Up to sixteen boards share one bus. Each board carries a rotary-switch
id, a register space addressed with 48-bit offsets, and a realtime block
that control loops read and write once per cycle. The library builds and
validates the quadlet and block packets bit-exactly, tracks the
board/node mapping across bus resets, and batches realtime I/O with the
board broadcast protocol when the firmware supports it.

Features:
  - UDP and raw Ethernet transports for the FPGA bridge
  - Pluggable native FireWire bus adapter
  - Quadlet and block reads and writes with CRC validation
  - Broadcast read/write cycles over all boards
  - Node discovery and firmware version scanning
  - Retry helper with configurable backoff
  - Bus emulator for tests and offline development

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-fpga1394"
	    "github.com/ZaparooProject/go-fpga1394/transport/udp"
	)

	// Connect to the bridge board
	transport, err := udp.New("169.254.0.100")
	if err != nil {
	    log.Fatal(err)
	}

	// Wrap it in a port
	port, err := fpga1394.NewEthernetPort(transport,
	    fpga1394.WithReceiveTimeout(10*time.Millisecond),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer port.Close()

	// Register a board and discover the bus
	if err := port.AddBoard(fpga1394.NewGenericBoard(0, 64, 32)); err != nil {
	    log.Fatal(err)
	}
	if err := port.ScanNodes(); err != nil {
	    log.Fatal(err)
	}

	// Register I/O
	status, err := port.ReadQuadlet(0, 0x00)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("board 0 status: %08x\n", status)

Protocol Modes:

Realtime cycles run in one of three modes, selected with SetProtocol:

  - ProtocolSeqRW: read and write each board in turn (default)
  - ProtocolSeqRBroadcastW: sequential reads, one broadcast write
  - ProtocolBroadcastQRW: broadcast query and write, hub-aggregated reads

The broadcast modes need firmware version 4 or newer on every registered
board; SetProtocol refuses them otherwise.

Error Handling:

All operations return meaningful errors that can be inspected:

	if errors.Is(err, fpga1394.ErrTimeout) {
	    // Board did not answer; port state is unchanged
	}
	if errors.Is(err, fpga1394.ErrTransportFailure) {
	    // Port is faulted; reconstruct it
	}

Thread Safety:

Port operations are not thread-safe. If you need concurrent access,
implement appropriate synchronization in your application.
*/
package fpga1394
