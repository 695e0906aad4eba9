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

package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	fpga1394 "github.com/ZaparooProject/go-fpga1394"
	"github.com/ZaparooProject/go-fpga1394/internal/frame"
)

// discoverWindow is how long one probe round collects answers.
const discoverWindow = 100 * time.Millisecond

// Discover probes the link-local segment for bridge boards. Each bridge
// answers the broadcast status read from its own address; the unique
// source addresses are returned in arrival order. Probe rounds that find
// nothing are retried per config (nil uses the defaults); when every
// round comes up empty the error wraps fpga1394.ErrNoResponse.
func Discover(ctx context.Context, config *fpga1394.RetryConfig) ([]net.IP, error) {
	t, err := New(DefaultAddr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	ctrl := frame.EncodeControl(true, 0)
	probe := append(ctrl[:], frame.QuadletReadRequest(frame.BroadcastNode, 0, 1)...)

	seen := make(map[string]bool)
	var found []net.IP
	err = fpga1394.RetryWithConfig(ctx, config, func() error {
		if err := t.Broadcast(probe); err != nil {
			return err
		}
		buf := make([]byte, 64)
		deadline := time.Now().Add(discoverWindow)
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			if err := t.conn.SetReadDeadline(time.Now().Add(remaining)); err != nil {
				return fpga1394.NewTransportFailureError("discover", t.name, err)
			}
			n, src, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				var nerr net.Error
				if errors.As(err, &nerr) && nerr.Timeout() {
					break
				}
				return fpga1394.NewTransportFailureError("discover", t.name, err)
			}
			if n < frame.QuadResponseSize {
				continue
			}
			if h := frame.ParseHeader(buf[:n]); h.TCode != frame.TCodeQuadResponse {
				continue
			}
			if key := src.IP.String(); !seen[key] {
				seen[key] = true
				found = append(found, src.IP)
			}
		}
		if len(found) == 0 {
			return fpga1394.NewTimeoutError("discover", BroadcastAddr)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fpga1394.ErrTimeout) {
			return nil, fmt.Errorf("discover: %w", fpga1394.ErrNoResponse)
		}
		return nil, err
	}
	return found, nil
}
