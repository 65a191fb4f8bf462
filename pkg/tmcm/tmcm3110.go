// Model TMCM-3110
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import "math"

// ModelTMCM3110 is the model number of the TMCM-3110 three-axis module.
const ModelTMCM3110 = 3110

func init() {
	RegisterModel(ModelTMCM3110, func() Model { return tmcm3110{} })
}

// Velocity and acceleration parameters of the TMCM-3110, determined with
// the velocity and acceleration calculation in the firmware manual
// (firmware version 1.14, document version 1.11).
const (
	tmcm3110VelocityPortions     = 2048
	tmcm3110VelocityDividend     = 16 * 1000000 / 32
	tmcm3110AccelerationPortions = 2048
	tmcm3110AccelerationDividend = 16 * 1000000 * 16 * 1000000 / 262144

	tmcm3110PulseDivisorExponentMaximum = 13
	tmcm3110RampDivisorExponentMaximum  = 13
)

// Maximum motor current (RMS) in milliamperes, determined with the current
// steps in the TMCL-IDE (version 3.1.0.0).
const tmcm3110CurrentMaximum = 2768

type tmcm3110 struct{}

func (tmcm3110) Number() int {
	return ModelTMCM3110
}

func (tmcm3110) MotorCount() int {
	return 3
}

func (tmcm3110) CoordinateCount() int {
	return 20
}

func (tmcm3110) CurrentMaximum() int {
	return tmcm3110CurrentMaximum
}

func (m tmcm3110) FrequencyMinimum() float64 {
	return m.VelocityToExternal(tmcm3110PulseDivisorExponentMaximum, 1, 1)
}

func (m tmcm3110) FrequencyMaximum() float64 {
	return m.VelocityToExternal(0, tmcm3110VelocityPortions-1, 1)
}

func (tmcm3110) VelocityToExternal(pulseDivisorExponent int, portion int32, microstepResolution int) float64 {
	return float64(portion) * tmcm3110VelocityDividend /
		(tmcm3110VelocityPortions * math.Exp2(float64(pulseDivisorExponent))) /
		float64(microstepResolution)
}

func (m tmcm3110) VelocityToInternal(value float64, microstepResolution int) (int, int32) {
	if value == 0 {
		return 0, 0
	}
	pulseDivisor := tmcm3110VelocityDividend / (float64(microstepResolution) * value)
	exponent := int(math.Log2(pulseDivisor))
	if exponent < 0 {
		exponent = 0
	} else if exponent > tmcm3110PulseDivisorExponentMaximum {
		exponent = tmcm3110PulseDivisorExponentMaximum
	}
	maximum := m.VelocityToExternal(exponent, tmcm3110VelocityPortions-1, microstepResolution)
	portion := int32((tmcm3110VelocityPortions - 1) * value / maximum)
	return exponent, portion
}

func (tmcm3110) AccelerationToExternal(
	pulseDivisorExponent, rampDivisorExponent int,
	portion int32,
	microstepResolution int,
) float64 {
	return float64(portion) * tmcm3110AccelerationDividend /
		(tmcm3110AccelerationPortions *
			math.Exp2(float64(pulseDivisorExponent+rampDivisorExponent))) /
		float64(microstepResolution)
}

func (m tmcm3110) AccelerationToInternal(
	value float64,
	pulseDivisorExponent, microstepResolution int,
) (int, int32) {
	if value == 0 {
		return 0, 0
	}
	rampDivisor := tmcm3110AccelerationDividend / (float64(microstepResolution) * value)
	exponent := int(math.Log2(rampDivisor)) - pulseDivisorExponent
	if lower := pulseDivisorExponent - 1; exponent < lower {
		exponent = lower
	}
	if exponent < 0 {
		exponent = 0
	}
	if upper := pulseDivisorExponent + 1; exponent > upper {
		exponent = upper
	}
	if exponent > tmcm3110RampDivisorExponentMaximum {
		exponent = tmcm3110RampDivisorExponentMaximum
	}
	maximum := m.AccelerationToExternal(
		pulseDivisorExponent, exponent,
		tmcm3110AccelerationPortions-1, microstepResolution)
	portion := int32((tmcm3110AccelerationPortions - 1) * value / maximum)
	return exponent, portion
}

// AccelerationExtrema returns the acceleration bounds reachable without
// moving the ramp divisor exponent further than one step away from the
// pulse divisor exponent.
func (m tmcm3110) AccelerationExtrema(pulseDivisorExponent, microstepResolution int) (float64, float64) {
	rampLow := pulseDivisorExponent + 1
	if rampLow > tmcm3110RampDivisorExponentMaximum {
		rampLow = tmcm3110RampDivisorExponentMaximum
	}
	rampHigh := pulseDivisorExponent - 1
	if rampHigh < 0 {
		rampHigh = 0
	}
	minimum := m.AccelerationToExternal(
		pulseDivisorExponent, rampLow, 1, microstepResolution)
	maximum := m.AccelerationToExternal(
		pulseDivisorExponent, rampHigh,
		tmcm3110AccelerationPortions-1, microstepResolution)
	return minimum, maximum
}

// Supply voltage is reported on analog port 8 in decivolts.
func (tmcm3110) SupplyVoltagePort() int {
	return 8
}

func (tmcm3110) SupplyVoltageScale() int {
	return 100
}

// The pull-up resistors of all limit switches hang off output port 0.
func (tmcm3110) SwitchLimitPullupPort() int {
	return 0
}
