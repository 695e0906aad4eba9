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

// Package busconf loads and validates bus configuration files:
//
//	port: udp:169.254.0.100
//	protocol: seq-rw
//	receive_timeout_ms: 10
//	boards:
//	  - id: 0
//	    read_bytes: 64
//	    write_bytes: 32
//	  - id: 3
//	    read_bytes: 64
//	    write_bytes: 32
package busconf

import (
	"bytes"
	"fmt"
	"os"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
	"gopkg.in/yaml.v3"
)

// Config describes one bus: the port to open, the cycle protocol, and
// the boards expected on it.
type Config struct {
	// Port is a port designator in fpga1394.ParsePortSpec form.
	Port string `yaml:"port"`
	// Protocol is a token in fpga1394.ParseProtocol form; empty keeps
	// the sequential default.
	Protocol string `yaml:"protocol"`
	// Boards lists the boards to register.
	Boards []BoardConfig `yaml:"boards"`
	// ReceiveTimeoutMs bounds the response wait, in milliseconds; zero
	// keeps the library default.
	ReceiveTimeoutMs int `yaml:"receive_timeout_ms"`
}

// BoardConfig describes one board and its realtime block geometry.
type BoardConfig struct {
	ID         uint8 `yaml:"id"`
	ReadBytes  int   `yaml:"read_bytes"`
	WriteBytes int   `yaml:"write_bytes"`
}

// Load reads and parses a configuration file. The result is parsed only;
// call Validate before using it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. Unknown fields are rejected so
// typos surface instead of silently defaulting.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &cfg, nil
}

// ReceiveTimeout returns the configured timeout as a duration, falling
// back to the library default when unset.
func (c *Config) ReceiveTimeout() time.Duration {
	if c.ReceiveTimeoutMs <= 0 {
		return fpga1394.DefaultReceiveTimeout
	}
	return time.Duration(c.ReceiveTimeoutMs) * time.Millisecond
}

// BuildBoards creates a board handle per configured board, in file
// order.
func (c *Config) BuildBoards() []*fpga1394.GenericBoard {
	boards := make([]*fpga1394.GenericBoard, 0, len(c.Boards))
	for _, b := range c.Boards {
		boards = append(boards, fpga1394.NewGenericBoard(b.ID, b.ReadBytes, b.WriteBytes))
	}
	return boards
}
