// Package tmcm is the host-side driver for Trinamic TMCM stepper-motor
// controller modules speaking the TMCL binary protocol.
//
// A Module is built over a caller-owned Port with Connect (or inspected
// without construction via Identify). The Module owns its Motors and
// coordinate slots; MotorUnion coordinates simultaneous multi-axis moves.
// All device commands of one Module are serialized through a single lock
// around the port: a concurrent request/reply interleave would desynchronize
// the framing with no way to recover.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import (
	"io"

	"tmcm-go-migration/pkg/log"
)

// Port is the byte channel to a module. A serial.Port satisfies it; tests
// use an in-memory simulator. The Module borrows the port and never closes
// it.
type Port interface {
	io.Reader
	io.Writer
}

// Direction of a motor movement. Right is a clockwise rotation, left a
// counterclockwise rotation.
type Direction int

const (
	DirectionNone  Direction = 0
	DirectionRight Direction = 1
	DirectionLeft  Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionRight:
		return "right"
	case DirectionLeft:
		return "left"
	default:
		return "none"
	}
}

// Option configures a Module at Connect time.
type Option func(*Module)

// WithLogger routes the module's wire tracing and heartbeat diagnostics to
// the given logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(m *Module) {
		m.logger = logger
		m.tr.logger = logger
	}
}
