// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import (
	"math"
	"testing"
)

func TestTMCM3110Identity(t *testing.T) {
	m := tmcm3110{}
	if m.Number() != 3110 {
		t.Errorf("Number() = %d", m.Number())
	}
	if m.MotorCount() != 3 {
		t.Errorf("MotorCount() = %d", m.MotorCount())
	}
	if m.CoordinateCount() != 20 {
		t.Errorf("CoordinateCount() = %d", m.CoordinateCount())
	}
	if m.CurrentMaximum() != 2768 {
		t.Errorf("CurrentMaximum() = %d", m.CurrentMaximum())
	}
}

func TestTMCM3110FrequencyBounds(t *testing.T) {
	m := tmcm3110{}
	// Smallest representable velocity: portion 1 at the largest pulse
	// divisor, 500000 / (2048 * 2^13).
	wantMin := 500000.0 / (2048 * 8192)
	if got := m.FrequencyMinimum(); got != wantMin {
		t.Errorf("FrequencyMinimum() = %v, want %v", got, wantMin)
	}
	// Largest: portion 2047 at pulse divisor exponent 0.
	wantMax := 2047.0 * 500000 / 2048
	if got := m.FrequencyMaximum(); got != wantMax {
		t.Errorf("FrequencyMaximum() = %v, want %v", got, wantMax)
	}
	if m.FrequencyMaximum() != 499755.859375 {
		t.Errorf("FrequencyMaximum() = %v", m.FrequencyMaximum())
	}
}

func TestTMCM3110VelocityZero(t *testing.T) {
	m := tmcm3110{}
	exponent, portion := m.VelocityToInternal(0, 256)
	if exponent != 0 || portion != 0 {
		t.Errorf("VelocityToInternal(0) = (%d, %d), want (0, 0)", exponent, portion)
	}
	if got := m.VelocityToExternal(0, 0, 256); got != 0 {
		t.Errorf("VelocityToExternal(0, 0) = %v", got)
	}
}

// Conversion floors to the next lower representable velocity, so a
// round trip never exceeds the input and stays within one portion step.
func TestTMCM3110VelocityRoundTrip(t *testing.T) {
	m := tmcm3110{}
	for _, resolution := range MicrostepResolutions {
		minimum := m.FrequencyMinimum() / float64(resolution)
		maximum := m.FrequencyMaximum() / float64(resolution)
		values := []float64{
			minimum,
			minimum * 10,
			maximum / 1000,
			maximum / 7,
			maximum / 2,
			maximum,
		}
		for _, value := range values {
			exponent, portion := m.VelocityToInternal(value, resolution)
			if exponent < 0 || exponent > 13 {
				t.Fatalf("resolution %d value %v: exponent %d outside [0, 13]",
					resolution, value, exponent)
			}
			if portion < 0 || portion > 2047 {
				t.Fatalf("resolution %d value %v: portion %d outside [0, 2047]",
					resolution, value, portion)
			}
			got := m.VelocityToExternal(exponent, portion, resolution)
			if got > value*(1+1e-9) {
				t.Errorf("resolution %d: round trip of %v raised to %v",
					resolution, value, got)
			}
			step := m.VelocityToExternal(exponent, 1, resolution)
			if got < value-step*(1+1e-9) {
				t.Errorf("resolution %d: round trip of %v dropped to %v (step %v)",
					resolution, value, got, step)
			}
		}
	}
}

// Converting a value already on the grid changes nothing.
func TestTMCM3110VelocityIdempotent(t *testing.T) {
	m := tmcm3110{}
	for _, resolution := range []int{1, 16, 256} {
		value := m.FrequencyMaximum() / float64(resolution) / 3
		exponent, portion := m.VelocityToInternal(value, resolution)
		external := m.VelocityToExternal(exponent, portion, resolution)
		exponent2, portion2 := m.VelocityToInternal(external, resolution)
		external2 := m.VelocityToExternal(exponent2, portion2, resolution)
		if math.Abs(external2-external) > external*1e-9 {
			t.Errorf("resolution %d: %v requantized to %v", resolution, external, external2)
		}
	}
}

func TestTMCM3110AccelerationExtrema(t *testing.T) {
	m := tmcm3110{}
	for exponent := 0; exponent <= 13; exponent++ {
		for _, resolution := range []int{1, 64, 256} {
			minimum, maximum := m.AccelerationExtrema(exponent, resolution)
			if minimum <= 0 {
				t.Errorf("exponent %d resolution %d: minimum %v", exponent, resolution, minimum)
			}
			if maximum <= minimum {
				t.Errorf("exponent %d resolution %d: maximum %v <= minimum %v",
					exponent, resolution, maximum, minimum)
			}
		}
	}
}

func TestTMCM3110AccelerationRoundTrip(t *testing.T) {
	m := tmcm3110{}
	for _, pulse := range []int{0, 5, 13} {
		for _, resolution := range []int{1, 256} {
			minimum, maximum := m.AccelerationExtrema(pulse, resolution)
			for _, value := range []float64{minimum, (minimum + maximum) / 2, maximum} {
				ramp, portion := m.AccelerationToInternal(value, pulse, resolution)
				lower := pulse - 1
				if lower < 0 {
					lower = 0
				}
				upper := pulse + 1
				if upper > 13 {
					upper = 13
				}
				if ramp < lower || ramp > upper {
					t.Fatalf("pulse %d value %v: ramp exponent %d outside [%d, %d]",
						pulse, value, ramp, lower, upper)
				}
				got := m.AccelerationToExternal(pulse, ramp, portion, resolution)
				if got > value*(1+1e-9) {
					t.Errorf("pulse %d resolution %d: round trip of %v raised to %v",
						pulse, resolution, value, got)
				}
				step := m.AccelerationToExternal(pulse, ramp, 1, resolution)
				if got < value-step*(1+1e-9) {
					t.Errorf("pulse %d resolution %d: round trip of %v dropped to %v (step %v)",
						pulse, resolution, value, got, step)
				}
			}
		}
	}
}

func TestTMCM3110Ports(t *testing.T) {
	m := tmcm3110{}
	if m.SupplyVoltagePort() != 8 {
		t.Errorf("SupplyVoltagePort() = %d", m.SupplyVoltagePort())
	}
	if m.SupplyVoltageScale() != 100 {
		t.Errorf("SupplyVoltageScale() = %d", m.SupplyVoltageScale())
	}
	if m.SwitchLimitPullupPort() != 0 {
		t.Errorf("SwitchLimitPullupPort() = %d", m.SwitchLimitPullupPort())
	}
}
