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
	"os"
	"path/filepath"
	"testing"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullDocument = `
port: udp:169.254.0.100
protocol: seq-r-bc-w
receive_timeout_ms: 25
boards:
  - id: 0
    read_bytes: 64
    write_bytes: 32
  - id: 3
    read_bytes: 16
    write_bytes: 8
`

// TestParse_FullDocument verifies that a complete configuration document
// decodes into the expected fields.
func TestParse_FullDocument(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(fullDocument))
	require.NoError(t, err)

	assert.Equal(t, "udp:169.254.0.100", cfg.Port)
	assert.Equal(t, "seq-r-bc-w", cfg.Protocol)
	assert.Equal(t, 25, cfg.ReceiveTimeoutMs)
	require.Len(t, cfg.Boards, 2)
	assert.Equal(t, BoardConfig{ID: 0, ReadBytes: 64, WriteBytes: 32}, cfg.Boards[0])
	assert.Equal(t, BoardConfig{ID: 3, ReadBytes: 16, WriteBytes: 8}, cfg.Boards[1])
}

// TestParse_UnknownField verifies that misspelled keys are rejected
// instead of silently defaulting.
func TestParse_UnknownField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown top-level key",
			doc:  "prot: udp\n",
		},
		{
			name: "unknown board key",
			doc:  "boards:\n  - id: 0\n    read_byte: 64\n    write_bytes: 32\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decode yaml")
		})
	}
}

// TestLoad verifies file loading and its error paths.
func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "bus.yaml")
		require.NoError(t, os.WriteFile(path, []byte(fullDocument), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "udp:169.254.0.100", cfg.Port)
		assert.Len(t, cfg.Boards, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse "+path)
	})
}

// TestConfig_ReceiveTimeout verifies the millisecond conversion and the
// fallback to the library default.
func TestConfig_ReceiveTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ms   int
		want time.Duration
	}{
		{name: "unset keeps default", ms: 0, want: fpga1394.DefaultReceiveTimeout},
		{name: "explicit value", ms: 25, want: 25 * time.Millisecond},
		{name: "one millisecond", ms: 1, want: time.Millisecond},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{ReceiveTimeoutMs: tt.ms}
			assert.Equal(t, tt.want, cfg.ReceiveTimeout())
		})
	}
}

// TestConfig_BuildBoards verifies that board handles come out in file
// order with the configured geometry.
func TestConfig_BuildBoards(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Boards: []BoardConfig{
			{ID: 5, ReadBytes: 64, WriteBytes: 32},
			{ID: 1, ReadBytes: 16, WriteBytes: 8},
		},
	}

	boards := cfg.BuildBoards()
	require.Len(t, boards, 2)

	assert.Equal(t, uint8(5), boards[0].BoardID())
	assert.Equal(t, 64, boards[0].ReadBufferSize())
	assert.Equal(t, 32, boards[0].WriteBufferSize())

	assert.Equal(t, uint8(1), boards[1].BoardID())
	assert.Equal(t, 16, boards[1].ReadBufferSize())
	assert.Equal(t, 8, boards[1].WriteBufferSize())
}

// TestValidate drives every validation branch.
func TestValidate(t *testing.T) {
	t.Parallel()

	goodBoards := []BoardConfig{
		{ID: 0, ReadBytes: 64, WriteBytes: 32},
		{ID: 3, ReadBytes: 16, WriteBytes: 8},
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "full config",
			cfg: Config{
				Port:             "udp:169.254.0.100",
				Protocol:         "bc-qrw",
				ReceiveTimeoutMs: 25,
				Boards:           goodBoards,
			},
		},
		{
			name: "zero value config",
			cfg:  Config{},
		},
		{
			name:    "unrecognized port",
			cfg:     Config{Port: "serial:COM3"},
			wantErr: "port:",
		},
		{
			name:    "unrecognized protocol",
			cfg:     Config{Protocol: "round-robin"},
			wantErr: "protocol:",
		},
		{
			name:    "negative timeout",
			cfg:     Config{ReceiveTimeoutMs: -1},
			wantErr: "receive_timeout_ms must not be negative",
		},
		{
			name: "board id out of range",
			cfg: Config{Boards: []BoardConfig{
				{ID: fpga1394.MaxBoards, ReadBytes: 4, WriteBytes: 4},
			}},
			wantErr: "boards[0]: id 16 out of range",
		},
		{
			name: "duplicate board id",
			cfg: Config{Boards: []BoardConfig{
				{ID: 5, ReadBytes: 4, WriteBytes: 4},
				{ID: 5, ReadBytes: 4, WriteBytes: 4},
			}},
			wantErr: "boards[1]: duplicate id 5",
		},
		{
			name: "zero read bytes",
			cfg: Config{Boards: []BoardConfig{
				{ID: 0, ReadBytes: 0, WriteBytes: 4},
			}},
			wantErr: "read_bytes: 0 is not a positive multiple of four",
		},
		{
			name: "unaligned read bytes",
			cfg: Config{Boards: []BoardConfig{
				{ID: 0, ReadBytes: 6, WriteBytes: 4},
			}},
			wantErr: "read_bytes: 6 is not a positive multiple of four",
		},
		{
			name: "unaligned write bytes",
			cfg: Config{Boards: []BoardConfig{
				{ID: 0, ReadBytes: 4, WriteBytes: 10},
			}},
			wantErr: "write_bytes: 10 is not a positive multiple of four",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(&tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestValidate_PortErrorKind verifies that a port failure surfaces the
// library's parameter sentinel so callers can classify it.
func TestValidate_PortErrorKind(t *testing.T) {
	t.Parallel()

	err := Validate(&Config{Port: "serial:COM3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fpga1394.ErrInvalidParameter)
}
