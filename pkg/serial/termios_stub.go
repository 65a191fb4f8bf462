// Serial port fallback for platforms without the termios path
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

//go:build !linux && !darwin

package serial

import "time"

const hasNative = false

// openNative has no implementation here; Open falls back to the portable
// backend on platforms without termios.
func openNative(cfg Config) (Port, error) {
	return nil, ErrUnsupported
}

// OpenSocket is only available on platforms with Unix sockets.
func OpenSocket(socketPath string, timeout time.Duration) (Port, error) {
	return nil, ErrUnsupported
}

// OpenTCP is only available where the termios backend is.
func OpenTCP(address string, timeout time.Duration) (Port, error) {
	return nil, ErrUnsupported
}
