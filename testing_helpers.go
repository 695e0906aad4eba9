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
	"net"
	"sync"
	"time"
)

// MockTransport is a scripted transport for tests. Every frame handed to
// Send or Broadcast is recorded; responses come from an optional
// ResponseFunc or a queue filled with QueueResponse. Receive returns a
// timeout immediately when nothing is queued, so timeout paths test fast.
type MockTransport struct {
	// ResponseFunc, when set, computes the response to each sent frame.
	// A nil response with nil error queues nothing (a write, say).
	ResponseFunc func(packet []byte) ([]byte, error)
	// SendErr and ReceiveErr inject failures.
	SendErr    error
	ReceiveErr error

	queue      [][]byte
	Sent       [][]byte
	Broadcasts [][]byte

	resetFn     func(generation uint32)
	mu          sync.Mutex
	closed      bool
	noBroadcast bool
}

// NewMockTransport creates an empty scripted transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// QueueResponse appends a frame to be returned by a later Receive.
func (m *MockTransport) QueueResponse(packet []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, append([]byte(nil), packet...))
}

// Send records the frame and runs the response script.
func (m *MockTransport) Send(packet []byte) error {
	return m.send(packet, false)
}

// Broadcast records the frame on both the sent and broadcast logs.
func (m *MockTransport) Broadcast(packet []byte) error {
	return m.send(packet, true)
}

func (m *MockTransport) send(packet []byte, broadcast bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return NewTransportFailureError("send", "mock", net.ErrClosed)
	}
	if m.SendErr != nil {
		return m.SendErr
	}
	cp := append([]byte(nil), packet...)
	m.Sent = append(m.Sent, cp)
	if broadcast {
		m.Broadcasts = append(m.Broadcasts, cp)
	}
	if m.ResponseFunc != nil {
		resp, err := m.ResponseFunc(cp)
		if err != nil {
			return err
		}
		if resp != nil {
			m.queue = append(m.queue, append([]byte(nil), resp...))
		}
	}
	return nil
}

// Receive pops the next queued response, or reports a timeout when the
// queue is empty.
func (m *MockTransport) Receive(buf []byte, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, NewTransportFailureError("receive", "mock", net.ErrClosed)
	}
	if m.ReceiveErr != nil {
		return 0, m.ReceiveErr
	}
	if len(m.queue) == 0 {
		return 0, NewTimeoutError("receive", "mock")
	}
	resp := m.queue[0]
	m.queue = m.queue[1:]
	return copy(buf, resp), nil
}

// Close marks the transport closed; later calls fail.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// SetBroadcastCapable toggles the advertised broadcast capability.
func (m *MockTransport) SetBroadcastCapable(capable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noBroadcast = !capable
}

// HasCapability reports the scripted capabilities.
func (m *MockTransport) HasCapability(capability TransportCapability) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch capability {
	case CapabilityBroadcast:
		return !m.noBroadcast
	case CapabilityBusResetNotify:
		return true
	default:
		return false
	}
}

// NotifyBusReset stores the port's reset callback.
func (m *MockTransport) NotifyBusReset(fn func(generation uint32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetFn = fn
}

// FireBusReset invokes the stored reset callback, simulating an
// out-of-band bus reset notification.
func (m *MockTransport) FireBusReset(generation uint32) {
	m.mu.Lock()
	fn := m.resetFn
	m.mu.Unlock()
	if fn != nil {
		fn(generation)
	}
}

// Responder consumes one request frame (control word included) and
// returns zero or more response frames, trailers included. The bus
// emulator in internal/simboard implements it.
type Responder interface {
	Handle(packet []byte) [][]byte
}

// LoopbackTransport connects a port directly to a Responder, usually the
// bus emulator. Sends are handled synchronously; responses queue up for
// the following Receive calls.
type LoopbackTransport struct {
	responder Responder
	queue     [][]byte
	mu        sync.Mutex
	closed    bool
}

// NewLoopbackTransport creates a transport backed by responder.
func NewLoopbackTransport(responder Responder) *LoopbackTransport {
	return &LoopbackTransport{responder: responder}
}

// Send hands the frame to the responder and queues its responses.
func (t *LoopbackTransport) Send(packet []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return NewTransportFailureError("send", "loopback", net.ErrClosed)
	}
	t.queue = append(t.queue, t.responder.Handle(append([]byte(nil), packet...))...)
	return nil
}

// Broadcast behaves like Send; the responder sees the broadcast node id
// in the frame itself.
func (t *LoopbackTransport) Broadcast(packet []byte) error {
	return t.Send(packet)
}

// Receive pops the next queued response, or reports a timeout when the
// queue is empty.
func (t *LoopbackTransport) Receive(buf []byte, _ time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, NewTransportFailureError("receive", "loopback", net.ErrClosed)
	}
	if len(t.queue) == 0 {
		return 0, NewTimeoutError("receive", "loopback")
	}
	resp := t.queue[0]
	t.queue = t.queue[1:]
	return copy(buf, resp), nil
}

// Close marks the transport closed.
func (t *LoopbackTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Type returns TransportLoopback
func (*LoopbackTransport) Type() TransportType {
	return TransportLoopback
}

// HasCapability reports broadcast support; the emulator handles it.
func (*LoopbackTransport) HasCapability(capability TransportCapability) bool {
	return capability == CapabilityBroadcast
}

// BlockingMockTransport is a transport whose Receive blocks until
// Unblock is called, the configured timeout expires, or the transport is
// closed. Used for timeout and shutdown tests.
type BlockingMockTransport struct {
	blockChan chan struct{}
	Response  []byte
	mu        sync.Mutex
	closed    bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		blockChan: make(chan struct{}),
	}
}

// Send accepts and discards the frame.
func (m *BlockingMockTransport) Send(_ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return NewTransportFailureError("send", "mock", net.ErrClosed)
	}
	return nil
}

// Broadcast accepts and discards the frame.
func (m *BlockingMockTransport) Broadcast(packet []byte) error {
	return m.Send(packet)
}

// Receive blocks until Unblock() is called, the timeout expires, or the
// transport is closed.
func (m *BlockingMockTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	m.mu.Lock()
	blockChan := m.blockChan
	closed := m.closed
	response := m.Response
	m.mu.Unlock()

	if closed {
		return 0, NewTransportFailureError("receive", "mock", net.ErrClosed)
	}

	select {
	case <-blockChan:
	case <-time.After(timeout):
		return 0, NewTimeoutError("receive", "mock")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, NewTransportFailureError("receive", "mock", net.ErrClosed)
	}
	if response == nil {
		return 0, NewTimeoutError("receive", "mock")
	}
	return copy(buf, response), nil
}

// Unblock allows one blocked Receive to proceed
func (m *BlockingMockTransport) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// SetResponse configures the frame delivered to unblocked Receive calls.
func (m *BlockingMockTransport) SetResponse(response []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Response = append([]byte(nil), response...)
}

// Close unblocks all operations and marks the transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.blockChan)
	}
	return nil
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}
