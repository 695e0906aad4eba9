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
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	debugLogger  atomic.Pointer[log.Logger]
)

func init() {
	debugLogger.Store(log.New(os.Stderr, "fpga1394: ", log.LstdFlags|log.Lmicroseconds))
}

// SetDebugEnabled toggles debug logging for the whole package. Debug
// output carries frame validation reasons, bus generation changes, scan
// results and protocol mode changes.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetDebugOutput redirects debug logging to w. The default is stderr.
func SetDebugOutput(w io.Writer) {
	debugLogger.Store(log.New(w, "fpga1394: ", log.LstdFlags|log.Lmicroseconds))
}

func debugf(format string, args ...any) {
	if debugEnabled.Load() {
		debugLogger.Load().Printf(format, args...)
	}
}
