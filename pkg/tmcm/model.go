// Model registry and conversion strategy interface
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import "sync"

// Model captures everything that differs between TMCM controller models:
// fixed counts and bounds, the quantized velocity/acceleration conversions,
// and the I/O port wiring. Implementations must be stateless; conversions
// are pure functions of their arguments.
type Model interface {
	// Number is the numeric model identifier (3110 for a TMCM-3110).
	Number() int

	MotorCount() int
	CoordinateCount() int

	// CurrentMaximum is the maximum motor current (RMS) in milliamperes.
	CurrentMaximum() int

	// FrequencyMinimum and FrequencyMaximum bound the motor frequency in
	// hertz at microstep resolution 1.
	FrequencyMinimum() float64
	FrequencyMaximum() float64

	// VelocityToInternal converts fullsteps per second into a pulse
	// divisor exponent and a velocity portion, flooring to the next lower
	// representable velocity. Zero maps to (0, 0).
	VelocityToInternal(value float64, microstepResolution int) (pulseDivisorExponent int, portion int32)

	// VelocityToExternal converts a pulse divisor exponent and a velocity
	// portion into fullsteps per second.
	VelocityToExternal(pulseDivisorExponent int, portion int32, microstepResolution int) float64

	// AccelerationExtrema returns the minimum and maximum reachable
	// acceleration in fullsteps per square second at the given pulse
	// divisor exponent.
	AccelerationExtrema(pulseDivisorExponent, microstepResolution int) (minimum, maximum float64)

	// AccelerationToInternal converts fullsteps per square second into a
	// ramp divisor exponent and an acceleration portion, flooring. The
	// reachable range depends on the motor's current pulse divisor
	// exponent. Zero maps to (0, 0).
	AccelerationToInternal(value float64, pulseDivisorExponent, microstepResolution int) (rampDivisorExponent int, portion int32)

	// AccelerationToExternal converts divisor exponents and an
	// acceleration portion into fullsteps per square second.
	AccelerationToExternal(pulseDivisorExponent, rampDivisorExponent int, portion int32, microstepResolution int) float64

	// SupplyVoltagePort is the analog input port carrying the supply
	// voltage; SupplyVoltageScale converts one reply unit to millivolts.
	SupplyVoltagePort() int
	SupplyVoltageScale() int

	// SwitchLimitPullupPort is the I/O port controlling the pull-up
	// resistors of the limit switches.
	SwitchLimitPullupPort() int
}

var (
	modelsMu sync.RWMutex
	models   = map[int]func() Model{}
)

// RegisterModel makes a model implementation available to Connect. Model
// files call it from init; registering the same number twice panics.
func RegisterModel(number int, factory func() Model) {
	modelsMu.Lock()
	defer modelsMu.Unlock()
	if _, dup := models[number]; dup {
		panic("tmcm: model registered twice")
	}
	models[number] = factory
}

func lookupModel(number int) func() Model {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	return models[number]
}
