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

// quadctl is a one-shot register tool for FPGA I/O boards: read and
// write quadlets and blocks, scan the bus, run realtime cycles, and
// discover bridges on the local segment.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
	"github.com/ZaparooProject/go-fpga1394/busconf"
	"github.com/ZaparooProject/go-fpga1394/internal/simboard"
	"github.com/ZaparooProject/go-fpga1394/transport/eth"
	"github.com/ZaparooProject/go-fpga1394/transport/udp"
)

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

type options struct {
	port     string
	config   string
	protocol string
	board    uint
	retries  int
	cycles   int
	timeout  time.Duration
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, `usage: quadctl [flags] <command> [args]

commands:
  scan                      scan the bus and list boards
  read <addr>               read a quadlet register
  write <addr> <value>      write a quadlet register
  readblock <addr> <n>      read n bytes (multiple of 4)
  writeblock <addr> <hex>   write hex-encoded bytes
  cycle                     run realtime read/write cycles
  discover                  find bridges on the local segment

flags:
`)
	flag.PrintDefaults()
}

func run() int {
	opts := &options{}
	flag.StringVar(&opts.port, "port", "udp",
		`port designator: udp[:addr], eth[:iface], or "sim" for the emulator`)
	flag.StringVar(&opts.config, "config", "", "bus configuration file (yaml)")
	flag.UintVar(&opts.board, "board", 0, "target board id")
	flag.DurationVar(&opts.timeout, "timeout", fpga1394.DefaultReceiveTimeout, "receive timeout")
	flag.StringVar(&opts.protocol, "protocol", "", "cycle protocol: seq-rw, seq-r-bc-w, bc-qrw")
	flag.IntVar(&opts.retries, "retries", 0, "retries for failed operations")
	flag.IntVar(&opts.cycles, "cycles", 1, "iterations for the cycle command")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Usage = usage
	flag.Parse()

	if *debug {
		fpga1394.SetDebugEnabled(true)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if args[0] == "discover" {
		return runDiscover(ctx)
	}

	port, boards, err := openPort(opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "open port: %v\n", err)
		return 1
	}
	defer func() { _ = port.Close() }()

	for _, b := range boards {
		if err := port.AddBoard(b); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "add board %d: %v\n", b.BoardID(), err)
			return 1
		}
	}

	if err := runCommand(ctx, port, opts, args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// openPort builds the port and board set from the flags, or from the
// configuration file when one is given.
func openPort(opts *options) (fpga1394.Port, []*fpga1394.GenericBoard, error) {
	designator := opts.port
	timeout := opts.timeout
	boards := []*fpga1394.GenericBoard{fpga1394.NewGenericBoard(uint8(opts.board), 64, 32)}

	if opts.config != "" {
		cfg, err := busconf.Load(opts.config)
		if err != nil {
			return nil, nil, err
		}
		if err := busconf.Validate(cfg); err != nil {
			return nil, nil, err
		}
		if cfg.Port != "" {
			designator = cfg.Port
		}
		timeout = cfg.ReceiveTimeout()
		if opts.protocol == "" {
			opts.protocol = cfg.Protocol
		}
		if len(cfg.Boards) > 0 {
			boards = cfg.BuildBoards()
		}
	}

	if designator == "sim" {
		port, err := openSimPort(timeout, boards)
		return port, boards, err
	}

	spec, err := fpga1394.ParsePortSpec(designator)
	if err != nil {
		return nil, nil, err
	}
	var transport fpga1394.Transport
	switch spec.Kind {
	case fpga1394.PortKindUDP:
		transport, err = udp.New(spec.Addr)
	case fpga1394.PortKindEthRaw:
		transport, err = eth.New(spec.Addr)
	case fpga1394.PortKindFirewire:
		return nil, nil, fmt.Errorf("no native FireWire stack is wired into this build; use udp or eth")
	default:
		return nil, nil, fmt.Errorf("unsupported port %q", designator)
	}
	if err != nil {
		return nil, nil, err
	}
	port, err := fpga1394.NewEthernetPort(transport, fpga1394.WithReceiveTimeout(timeout))
	if err != nil {
		_ = transport.Close()
		return nil, nil, err
	}
	return port, boards, nil
}

// openSimPort wires the emulator behind a loopback transport, one
// emulated board per configured board.
func openSimPort(timeout time.Duration, boards []*fpga1394.GenericBoard) (fpga1394.Port, error) {
	bus := simboard.NewBus()
	for _, b := range boards {
		sim := simboard.NewBoard(b.BoardID(), 7, b.ReadBufferSize())
		for i := range sim.ReadState {
			sim.ReadState[i] = b.BoardID() ^ byte(i)
		}
		bus.AddBoard(b.BoardID(), sim)
	}
	return fpga1394.NewEthernetPort(fpga1394.NewLoopbackTransport(bus),
		fpga1394.WithReceiveTimeout(timeout))
}

func runCommand(ctx context.Context, port fpga1394.Port, opts *options, args []string) error {
	board := uint8(opts.board)
	switch args[0] {
	case "scan":
		return runScan(ctx, port, opts)
	case "read":
		addr, err := argAddr(args, 1)
		if err != nil {
			return err
		}
		return withRetry(ctx, opts.retries, func() error {
			data, err := port.ReadQuadlet(board, addr)
			if err != nil {
				return err
			}
			_, _ = fmt.Printf("%08x\n", data)
			return nil
		})
	case "write":
		addr, err := argAddr(args, 1)
		if err != nil {
			return err
		}
		value, err := argQuadlet(args, 2)
		if err != nil {
			return err
		}
		return withRetry(ctx, opts.retries, func() error {
			return port.WriteQuadlet(board, addr, value)
		})
	case "readblock":
		addr, err := argAddr(args, 1)
		if err != nil {
			return err
		}
		nbytes, err := argInt(args, 2)
		if err != nil {
			return err
		}
		return withRetry(ctx, opts.retries, func() error {
			data, err := port.ReadBlock(board, addr, nbytes)
			if err != nil {
				return err
			}
			_, _ = fmt.Printf("%s\n", hex.EncodeToString(data))
			return nil
		})
	case "writeblock":
		addr, err := argAddr(args, 1)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return fmt.Errorf("missing hex data")
		}
		data, err := hex.DecodeString(strings.TrimPrefix(args[2], "0x"))
		if err != nil {
			return fmt.Errorf("bad hex data: %w", err)
		}
		return withRetry(ctx, opts.retries, func() error {
			return port.WriteBlock(board, addr, data)
		})
	case "cycle":
		return runCycle(ctx, port, opts)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runScan(ctx context.Context, port fpga1394.Port, opts *options) error {
	if err := withRetry(ctx, opts.retries, port.ScanNodes); err != nil {
		return err
	}
	for id := uint8(0); id < fpga1394.MaxBoards; id++ {
		if !port.BoardExists(id) {
			continue
		}
		node, err := port.NodeForBoard(id)
		if err != nil {
			_, _ = fmt.Printf("board %2d: no bus node\n", id)
			continue
		}
		version, _ := port.FirmwareVersion(id)
		_, _ = fmt.Printf("board %2d: node %2d firmware %d\n", id, node, version)
	}
	return nil
}

func runCycle(ctx context.Context, port fpga1394.Port, opts *options) error {
	if err := withRetry(ctx, opts.retries, port.ScanNodes); err != nil {
		return err
	}
	if opts.protocol != "" {
		protocol, err := fpga1394.ParseProtocol(opts.protocol)
		if err != nil {
			return err
		}
		if err := port.SetProtocol(protocol); err != nil {
			return err
		}
	}
	for i := 0; i < opts.cycles; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := port.ReadAllBoards(); err != nil {
			return fmt.Errorf("cycle %d read: %w", i, err)
		}
		if err := port.WriteAllBoards(); err != nil {
			return fmt.Errorf("cycle %d write: %w", i, err)
		}
	}
	_, _ = fmt.Printf("%d cycles on %d boards (%s)\n", opts.cycles, port.NumBoards(), port.Protocol())
	return nil
}

func runDiscover(ctx context.Context) int {
	bridges, err := udp.Discover(ctx, nil)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "discover: %v\n", err)
		return 1
	}
	for _, ip := range bridges {
		_, _ = fmt.Println(ip)
	}
	return 0
}

func withRetry(ctx context.Context, retries int, fn func() error) error {
	if retries <= 0 {
		return fn()
	}
	cfg := fpga1394.DefaultRetryConfig()
	cfg.MaxAttempts = retries + 1
	return fpga1394.RetryWithConfig(ctx, cfg, fn)
}

func argAddr(args []string, i int) (uint64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing address")
	}
	addr, err := strconv.ParseUint(args[i], 0, 48)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", args[i], err)
	}
	return addr, nil
}

func argQuadlet(args []string, i int) (uint32, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing value")
	}
	value, err := strconv.ParseUint(args[i], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", args[i], err)
	}
	return uint32(value), nil
}

func argInt(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing byte count")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("bad byte count %q: %w", args[i], err)
	}
	return n, nil
}
