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
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// RetryConfig configures RetryWithConfig. Port operations never retry on
// their own; callers that want retries wrap operations explicitly.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts. Values below one mean
	// a single attempt.
	MaxAttempts int
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the growing delay.
	MaxBackoff time.Duration
	// BackoffMultiplier is the growth factor between attempts.
	BackoffMultiplier float64
	// Jitter randomizes the delays when positive.
	Jitter float64
	// RetryTimeout bounds the whole retry loop; zero means unbounded.
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the retry configuration used when none is
// provided.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// RetryWithConfig runs fn until it succeeds, returns a non-retryable
// error, exhausts the configured attempts, or the context (bounded by
// RetryTimeout when set) is done. Retryability is decided by IsRetryable:
// timeouts and frame validation failures retry, transport failures and
// caller errors do not.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}
	b := &backoff.Backoff{
		Min:    config.InitialBackoff,
		Max:    config.MaxBackoff,
		Factor: config.BackoffMultiplier,
		Jitter: config.Jitter > 0,
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		delay := b.Duration()
		debugf("retry in %v after attempt %d: %v", delay, attempt+1, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}
