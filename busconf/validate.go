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

package busconf

import (
	"fmt"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
)

// Validate checks configuration correctness. It performs declarative
// validation only and does not mutate the configuration.
func Validate(cfg *Config) error {
	if _, err := fpga1394.ParsePortSpec(cfg.Port); err != nil {
		return fmt.Errorf("port: %w", err)
	}
	if _, err := fpga1394.ParseProtocol(cfg.Protocol); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	if cfg.ReceiveTimeoutMs < 0 {
		return fmt.Errorf("receive_timeout_ms must not be negative, got %d", cfg.ReceiveTimeoutMs)
	}

	seen := make(map[uint8]bool, len(cfg.Boards))
	for i, b := range cfg.Boards {
		if b.ID >= fpga1394.MaxBoards {
			return fmt.Errorf("boards[%d]: id %d out of range [0,%d)", i, b.ID, fpga1394.MaxBoards)
		}
		if seen[b.ID] {
			return fmt.Errorf("boards[%d]: duplicate id %d", i, b.ID)
		}
		seen[b.ID] = true
		if err := validateBlockBytes(b.ReadBytes); err != nil {
			return fmt.Errorf("boards[%d]: read_bytes: %w", i, err)
		}
		if err := validateBlockBytes(b.WriteBytes); err != nil {
			return fmt.Errorf("boards[%d]: write_bytes: %w", i, err)
		}
	}
	return nil
}

func validateBlockBytes(n int) error {
	if n <= 0 || n%4 != 0 {
		return fmt.Errorf("%d is not a positive multiple of four", n)
	}
	return nil
}
