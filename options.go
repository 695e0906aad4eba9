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
	"fmt"
	"time"
)

// DefaultReceiveTimeout bounds the response wait of an operation when no
// explicit timeout is configured.
const DefaultReceiveTimeout = 10 * time.Millisecond

// portConfig holds the settings shared by the port constructors.
type portConfig struct {
	timeout  time.Duration
	protocol Protocol
	forward  bool
}

func defaultPortConfig() *portConfig {
	return &portConfig{
		timeout:  DefaultReceiveTimeout,
		protocol: ProtocolSeqRW,
	}
}

// PortOption is a functional option for configuring a port
type PortOption func(*portConfig) error

// WithReceiveTimeout sets the response wait bound for port operations
func WithReceiveTimeout(timeout time.Duration) PortOption {
	return func(cfg *portConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: receive timeout %v", ErrInvalidParameter, timeout)
		}
		cfg.timeout = timeout
		return nil
	}
}

// WithProtocol sets the initial read/write cycle protocol
func WithProtocol(protocol Protocol) PortOption {
	return func(cfg *portConfig) error {
		switch protocol {
		case ProtocolSeqRW, ProtocolSeqRBroadcastW, ProtocolBroadcastQRW:
			cfg.protocol = protocol
			return nil
		default:
			return fmt.Errorf("%w: unknown protocol %d", ErrInvalidParameter, int(protocol))
		}
	}
}

// WithBridgeForwarding allows the Ethernet bridge to forward frames toward
// a native bus segment behind it. Off by default: frames carry the
// suppress-forwarding flag and stay on the Ethernet side.
func WithBridgeForwarding() PortOption {
	return func(cfg *portConfig) error {
		cfg.forward = true
		return nil
	}
}

func applyPortOptions(opts []PortOption) (*portConfig, error) {
	cfg := defaultPortConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
