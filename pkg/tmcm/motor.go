// Motor state machine: unit-converted parameters, cached divisor state,
// moving detection, direction reversal
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import (
	"context"
	"time"

	"tmcm-go-migration/pkg/errors"
	"tmcm-go-migration/pkg/tmcl"
)

// Standby and freewheeling delay bounds in milliseconds. The device stores
// centiseconds, so values are floored to a multiple of ten.
const (
	StandbyDelayMinimum = 10
	StandbyDelayMaximum = 10 * 65535

	FreewheelingDelayDisable = 0
	FreewheelingDelayMinimum = 10
	FreewheelingDelayMaximum = 10 * 65535
)

// MicrostepResolutions lists the valid microstep resolutions in microsteps
// per fullstep.
var MicrostepResolutions = []int{1, 2, 4, 8, 16, 32, 64, 128, 256}

var microstepResolutionInternal = map[int]int32{
	1: 0, 2: 1, 4: 2, 8: 3, 16: 4, 32: 5, 64: 6, 128: 7, 256: 8,
}

// Delay between moving polls while waiting.
const movingPollDelay = 50 * time.Millisecond

// Motor is one axis of a Module. All positional values cross the direction
// transform at the API boundary: when the motor is reversed, positions,
// differences and coordinate values are negated and left/right swap
// meaning. Internal caches hold device-frame values.
type Motor struct {
	module *Module
	number int

	switchLimitRight *Switch
	switchLimitLeft  *Switch
	switchHome       *Switch

	currentMovingInternal  int32
	currentMoving          int
	currentStandbyInternal int32
	currentStandby         int

	microstepResolution int
	standbyDelay        int
	freewheelingDelay   int

	pulseDivisorExponent      int
	pulseDivisorExponentValid bool
	rampDivisorExponent       int
	rampDivisorExponentValid  bool

	position      int32
	positionValid bool

	velocityMovingInternal int32
	velocityMoving         float64
	velocityMinimum        float64
	velocityMaximum        float64

	accelerationMovingInternal int32
	accelerationMoving         float64
	accelerationMinimum        float64
	accelerationMaximum        float64

	rampMode     int32
	moving       bool
	movingDetect func() (bool, error)

	reversed bool
}

func newMotor(module *Module, number int) (*Motor, error) {
	m := &Motor{
		module: module,
		number: number,
	}
	var err error
	if m.switchLimitRight, err = newSwitch(m, SwitchKindLimitRight); err != nil {
		return nil, err
	}
	if m.switchLimitLeft, err = newSwitch(m, SwitchKindLimitLeft); err != nil {
		return nil, err
	}
	if m.switchHome, err = newSwitch(m, SwitchKindHome); err != nil {
		return nil, err
	}

	if m.currentMovingInternal, err = m.parameterGet(tmcl.ParamCurrentMoving); err != nil {
		return nil, err
	}
	m.currentMoving = module.currentToExternal(m.currentMovingInternal)
	if m.currentStandbyInternal, err = m.parameterGet(tmcl.ParamCurrentStandby); err != nil {
		return nil, err
	}
	m.currentStandby = module.currentToExternal(m.currentStandbyInternal)

	exponent, err := m.parameterGet(tmcl.ParamMicrostepResolution)
	if err != nil {
		return nil, err
	}
	m.microstepResolution = 1 << exponent

	standby, err := m.parameterGet(tmcl.ParamStandbyDelay)
	if err != nil {
		return nil, err
	}
	m.standbyDelay = 10 * int(standby)
	freewheeling, err := m.parameterGet(tmcl.ParamFreewheelingDelay)
	if err != nil {
		return nil, err
	}
	m.freewheelingDelay = 10 * int(freewheeling)

	if m.velocityMovingInternal, err = m.parameterGet(tmcl.ParamVelocityMoving); err != nil {
		return nil, err
	}
	if m.velocityMoving, err = m.velocityExternal(m.velocityMovingInternal); err != nil {
		return nil, err
	}
	if m.accelerationMovingInternal, err = m.parameterGet(tmcl.ParamAccelerationMoving); err != nil {
		return nil, err
	}
	if m.accelerationMoving, err = m.accelerationExternal(m.accelerationMovingInternal); err != nil {
		return nil, err
	}
	if err = m.velocityExtremaUpdate(); err != nil {
		return nil, err
	}
	if err = m.accelerationExtremaUpdate(); err != nil {
		return nil, err
	}

	// The motor may already be moving at connect time; arm the detector
	// for the ramp mode the device reports.
	mode, err := m.parameterGet(tmcl.ParamRampMode)
	if err != nil {
		return nil, err
	}
	m.moveIndicate(mode)
	return m, nil
}

// Module returns the module of the motor.
func (m *Motor) Module() *Module {
	return m.module
}

// Number returns the motor number in [0, Module.MotorCount).
func (m *Motor) Number() int {
	return m.number
}

// SwitchLimitRight returns the right limit switch. Reversal swaps the
// right and left handles.
func (m *Motor) SwitchLimitRight() *Switch {
	return m.switchLimitRight
}

// SwitchLimitLeft returns the left limit switch.
func (m *Motor) SwitchLimitLeft() *Switch {
	return m.switchLimitLeft
}

// SwitchHome returns the home switch.
func (m *Motor) SwitchHome() *Switch {
	return m.switchHome
}

// Reversed returns whether the direction transform is applied.
func (m *Motor) Reversed() bool {
	return m.reversed
}

// SetDirectionReversed flips the meaning of left and right for this motor:
// the limit switch handles swap, positions and differences negate at the
// API boundary, and every device-stored coordinate value of the motor is
// negated so coordinate values keep their meaning. In-flight motion is not
// altered. A failure while negating coordinates leaves the already-written
// slots negated and the flag unchanged.
func (m *Motor) SetDirectionReversed(reversed bool) error {
	if reversed == m.reversed {
		return nil
	}
	for number := 0; number < m.module.CoordinateCount(); number++ {
		value, err := m.module.coordinateGet(m.number, number)
		if err != nil {
			return err
		}
		if value == 0 {
			continue
		}
		if err := m.module.coordinateSet(m.number, number, -value); err != nil {
			return err
		}
	}
	m.switchLimitRight, m.switchLimitLeft = m.switchLimitLeft, m.switchLimitRight
	m.reversed = reversed
	return nil
}

// devicePosition maps an API-frame position into the device frame. The
// mapping is its own inverse.
func (m *Motor) devicePosition(value int32) int32 {
	if m.reversed {
		return -value
	}
	return value
}

// CurrentMoving returns the moving current in milliamperes.
func (m *Motor) CurrentMoving() int {
	return m.currentMoving
}

// SetCurrentMoving sets the moving current in milliamperes, floored to the
// next lower current step of the module.
func (m *Motor) SetCurrentMoving(value int) error {
	internal, err := m.module.currentToInternal(value)
	if err != nil {
		return err
	}
	if internal == m.currentMovingInternal {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamCurrentMoving, internal); err != nil {
		return err
	}
	m.currentMovingInternal = internal
	m.currentMoving = m.module.currentToExternal(internal)
	return nil
}

// CurrentStandby returns the standby current in milliamperes. The standby
// current applies while the motor is not moving.
func (m *Motor) CurrentStandby() int {
	return m.currentStandby
}

// SetCurrentStandby sets the standby current in milliamperes, floored to
// the next lower current step of the module.
func (m *Motor) SetCurrentStandby(value int) error {
	internal, err := m.module.currentToInternal(value)
	if err != nil {
		return err
	}
	if internal == m.currentStandbyInternal {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamCurrentStandby, internal); err != nil {
		return err
	}
	m.currentStandbyInternal = internal
	m.currentStandby = m.module.currentToExternal(internal)
	return nil
}

// VelocityMinimum returns the minimum moving velocity in fullsteps per
// second at the current microstep resolution.
func (m *Motor) VelocityMinimum() float64 {
	return m.velocityMinimum
}

// VelocityMaximum returns the maximum moving velocity in fullsteps per
// second at the current microstep resolution.
func (m *Motor) VelocityMaximum() float64 {
	return m.velocityMaximum
}

// VelocityMoving returns the moving velocity in fullsteps per second.
func (m *Motor) VelocityMoving() float64 {
	return m.velocityMoving
}

// SetVelocityMoving sets the moving velocity in fullsteps per second,
// floored to the next lower velocity step of the module. Changing the
// velocity rescales the reachable acceleration range and re-clamps the
// moving acceleration into it.
func (m *Motor) SetVelocityMoving(value float64) error {
	if value < m.velocityMinimum || value > m.velocityMaximum {
		return errors.RangeError("velocity", value, m.velocityMinimum, m.velocityMaximum)
	}
	moving, err := m.Moving()
	if err != nil {
		return err
	}
	if moving {
		return errors.StateError("velocity cannot be set while the motor is moving")
	}
	if value == m.velocityMoving {
		return nil
	}
	if err := m.velocityMovingSet(value); err != nil {
		return err
	}
	return m.accelerationExtremaUpdate()
}

// Velocity returns the magnitude and direction of the actual velocity in
// fullsteps per second.
func (m *Motor) Velocity() (float64, Direction, error) {
	if !m.moving {
		return 0, DirectionNone, nil
	}
	value, err := m.parameterGet(tmcl.ParamVelocityActual)
	if err != nil {
		return 0, DirectionNone, err
	}
	direction := DirectionNone
	switch {
	case value > 0:
		direction = DirectionRight
	case value < 0:
		direction = DirectionLeft
		value = -value
	}
	if m.reversed {
		direction = -direction
	}
	magnitude, err := m.velocityExternal(value)
	if err != nil {
		return 0, DirectionNone, err
	}
	return magnitude, direction, nil
}

// AccelerationMinimum returns the minimum moving acceleration in fullsteps
// per square second at the current velocity and microstep resolution.
func (m *Motor) AccelerationMinimum() float64 {
	return m.accelerationMinimum
}

// AccelerationMaximum returns the maximum moving acceleration in fullsteps
// per square second at the current velocity and microstep resolution.
func (m *Motor) AccelerationMaximum() float64 {
	return m.accelerationMaximum
}

// AccelerationMoving returns the moving acceleration in fullsteps per
// square second.
func (m *Motor) AccelerationMoving() float64 {
	return m.accelerationMoving
}

// SetAccelerationMoving sets the moving acceleration in fullsteps per
// square second, floored to the next lower acceleration step of the module.
func (m *Motor) SetAccelerationMoving(value float64) error {
	if value < m.accelerationMinimum || value > m.accelerationMaximum {
		return errors.RangeError("acceleration", value, m.accelerationMinimum, m.accelerationMaximum)
	}
	moving, err := m.Moving()
	if err != nil {
		return err
	}
	if moving {
		return errors.StateError("acceleration cannot be set while the motor is moving")
	}
	if value == m.accelerationMoving {
		return nil
	}
	return m.accelerationMovingSet(value)
}

// Acceleration returns the actual acceleration in fullsteps per square
// second, zero when the motor is not moving.
func (m *Motor) Acceleration() (float64, error) {
	if !m.moving {
		return 0, nil
	}
	value, err := m.parameterGet(tmcl.ParamAccelerationActual)
	if err != nil {
		return 0, err
	}
	return m.accelerationExternal(value)
}

// Position returns the position in microsteps. While the motor is moving
// the device is read every time; once it is stopped the value is cached.
func (m *Motor) Position() (int32, error) {
	if m.positionValid {
		return m.devicePosition(m.position), nil
	}
	value, err := m.parameterGet(tmcl.ParamPositionActual)
	if err != nil {
		return 0, err
	}
	if !m.moving {
		m.position = value
		m.positionValid = true
	}
	return m.devicePosition(value), nil
}

// SetPosition sets the position in microsteps without moving the motor.
// Writing the position register in a position ramp mode would move the
// motor, so the ramp mode is forced to velocity first.
func (m *Motor) SetPosition(value int32) error {
	moving, err := m.Moving()
	if err != nil {
		return err
	}
	if moving {
		return errors.StateError("position cannot be set while the motor is moving")
	}
	device := m.devicePosition(value)
	if m.positionValid && m.position == device {
		return nil
	}
	if m.rampMode != tmcl.RampModeVelocity {
		if err := m.parameterSet(tmcl.ParamRampMode, tmcl.RampModeVelocity); err != nil {
			return err
		}
		m.rampMode = tmcl.RampModeVelocity
	}
	if err := m.parameterSet(tmcl.ParamPositionActual, device); err != nil {
		return err
	}
	m.position = device
	m.positionValid = true
	return nil
}

// PositionTarget returns the target position in microsteps.
func (m *Motor) PositionTarget() (int32, error) {
	value, err := m.parameterGet(tmcl.ParamPositionTarget)
	if err != nil {
		return 0, err
	}
	return m.devicePosition(value), nil
}

// Moving returns whether the motor is moving. The answer is produced by
// the moving-detection automaton armed by the last move command.
func (m *Motor) Moving() (bool, error) {
	if !m.moving {
		return false, nil
	}
	return m.movingDetect()
}

// MicrostepResolution returns the microstep resolution in microsteps per
// fullstep.
func (m *Motor) MicrostepResolution() int {
	return m.microstepResolution
}

// SetMicrostepResolution sets the microstep resolution. The velocity and
// acceleration bounds scale with the resolution; the moving velocity and
// acceleration are clamped into the new bounds and rewritten if they fall
// outside.
func (m *Motor) SetMicrostepResolution(value int) error {
	internal, ok := microstepResolutionInternal[value]
	if !ok {
		return errors.RangeError("microstep resolution", value, 1, 256)
	}
	moving, err := m.Moving()
	if err != nil {
		return err
	}
	if moving {
		return errors.StateError("microstep resolution cannot be set while the motor is moving")
	}
	if value == m.microstepResolution {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamMicrostepResolution, internal); err != nil {
		return err
	}
	m.microstepResolution = value
	if err := m.velocityExtremaUpdate(); err != nil {
		return err
	}
	return m.accelerationExtremaUpdate()
}

// StandbyDelay returns the standby delay in milliseconds.
func (m *Motor) StandbyDelay() int {
	return m.standbyDelay
}

// SetStandbyDelay sets the standby delay in milliseconds, floored to a
// multiple of ten.
func (m *Motor) SetStandbyDelay(value int) error {
	if value < StandbyDelayMinimum || value > StandbyDelayMaximum {
		return errors.RangeError("standby delay", value, StandbyDelayMinimum, StandbyDelayMaximum)
	}
	internal := int32(value / 10)
	value = 10 * int(internal)
	if value == m.standbyDelay {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamStandbyDelay, internal); err != nil {
		return err
	}
	m.standbyDelay = value
	return nil
}

// FreewheelingDelay returns the freewheeling delay in milliseconds, zero
// when freewheeling is disabled.
func (m *Motor) FreewheelingDelay() int {
	return m.freewheelingDelay
}

// SetFreewheelingDelay sets the freewheeling delay in milliseconds, floored
// to a multiple of ten. Zero disables freewheeling.
func (m *Motor) SetFreewheelingDelay(value int) error {
	if value != FreewheelingDelayDisable &&
		(value < FreewheelingDelayMinimum || value > FreewheelingDelayMaximum) {
		return errors.RangeError("freewheeling delay", value,
			FreewheelingDelayMinimum, FreewheelingDelayMaximum)
	}
	internal := int32(value / 10)
	value = 10 * int(internal)
	if value == m.freewheelingDelay {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamFreewheelingDelay, internal); err != nil {
		return err
	}
	m.freewheelingDelay = value
	return nil
}

// Coordinate returns the position stored in a coordinate slot for this
// motor, in microsteps.
func (m *Motor) Coordinate(number int) (int32, error) {
	if err := m.module.coordinates.verifyNumber(number); err != nil {
		return 0, err
	}
	value, err := m.module.coordinateGet(m.number, number)
	if err != nil {
		return 0, err
	}
	return m.devicePosition(value), nil
}

// SetCoordinate stores a position in a coordinate slot for this motor, in
// microsteps.
func (m *Motor) SetCoordinate(number int, position int32) error {
	if err := m.module.coordinates.verifyNumber(number); err != nil {
		return err
	}
	return m.module.coordinateSet(m.number, number, m.devicePosition(position))
}

// MoveRight moves the motor in right direction until stopped.
func (m *Motor) MoveRight(ctx context.Context, wait bool) error {
	m.moveIndicate(tmcl.RampModeVelocity)
	rotate := m.module.motorRotateRight
	if m.reversed {
		rotate = m.module.motorRotateLeft
	}
	if err := rotate(m.number, m.velocityMovingInternal); err != nil {
		return err
	}
	if wait {
		return m.WaitWhileMoving(ctx)
	}
	return nil
}

// MoveLeft moves the motor in left direction until stopped.
func (m *Motor) MoveLeft(ctx context.Context, wait bool) error {
	m.moveIndicate(tmcl.RampModeVelocity)
	rotate := m.module.motorRotateLeft
	if m.reversed {
		rotate = m.module.motorRotateRight
	}
	if err := rotate(m.number, m.velocityMovingInternal); err != nil {
		return err
	}
	if wait {
		return m.WaitWhileMoving(ctx)
	}
	return nil
}

// MoveTo moves the motor to the given position in microsteps. Positions
// greater than the current position move right, lesser ones left.
func (m *Motor) MoveTo(ctx context.Context, position int32, wait bool) error {
	m.moveIndicate(tmcl.RampModePosition)
	if err := m.module.motorMoveTo(m.number, m.devicePosition(position)); err != nil {
		return err
	}
	if wait {
		return m.WaitWhileMoving(ctx)
	}
	return nil
}

// MoveBy moves the motor by the given difference in microsteps. Positive
// differences move right, negative ones left. The position overflows if
// the sum leaves the signed 32-bit range.
func (m *Motor) MoveBy(ctx context.Context, difference int32, wait bool) error {
	m.moveIndicate(tmcl.RampModePosition)
	if err := m.module.motorMoveBy(m.number, m.devicePosition(difference)); err != nil {
		return err
	}
	if wait {
		return m.WaitWhileMoving(ctx)
	}
	return nil
}

// MoveToCoordinate moves the motor to the position stored in the given
// coordinate slot.
func (m *Motor) MoveToCoordinate(ctx context.Context, number int, wait bool) error {
	if err := m.module.coordinates.verifyNumber(number); err != nil {
		return err
	}
	m.moveIndicate(tmcl.RampModePosition)
	if err := m.module.motorMoveToCoordinate(byte(m.number), number); err != nil {
		return err
	}
	if wait {
		return m.WaitWhileMoving(ctx)
	}
	return nil
}

// Stop stops the motor.
func (m *Motor) Stop(ctx context.Context, wait bool) error {
	if !m.moving {
		return nil
	}
	// Stopping ramps the velocity down; the target velocity is already
	// zero, so the detector starts in its second phase.
	m.rampMode = tmcl.RampModeVelocity
	m.movingDetect = m.movingDetectVelocityActual
	if err := m.module.motorStop(m.number); err != nil {
		return err
	}
	if wait {
		return m.WaitWhileMoving(ctx)
	}
	return nil
}

// WaitWhileMoving polls the moving detector until the motor reports
// stopped or the context is done. Abandoning the wait has no side effects.
func (m *Motor) WaitWhileMoving(ctx context.Context) error {
	for {
		moving, err := m.Moving()
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(movingPollDelay):
		}
	}
}

// moveIndicate arms the moving-detection automaton for a freshly issued
// move and invalidates the position cache.
func (m *Motor) moveIndicate(rampMode int32) {
	m.rampMode = rampMode
	m.moving = true
	if rampMode == tmcl.RampModeVelocity {
		m.movingDetect = m.movingDetectVelocityTarget
	} else {
		m.movingDetect = m.movingDetectPosition
	}
	m.positionValid = false
	m.position = 0
}

func (m *Motor) movingDetectNone() (bool, error) {
	return false, nil
}

// Position-mode detection: moving until the position-reached flag reads
// true, terminal thereafter.
func (m *Motor) movingDetectPosition() (bool, error) {
	value, err := m.parameterGet(tmcl.ParamPositionReached)
	if err != nil {
		return false, err
	}
	if value == 0 {
		return true, nil
	}
	m.moving = false
	m.movingDetect = m.movingDetectNone
	return false, nil
}

// Velocity-mode detection, phase one: the target velocity reaches zero
// before the physical ramp-down completes, so a zero target only advances
// to the actual-velocity phase.
func (m *Motor) movingDetectVelocityTarget() (bool, error) {
	value, err := m.parameterGet(tmcl.ParamVelocityTarget)
	if err != nil {
		return false, err
	}
	if value != 0 {
		return true, nil
	}
	m.movingDetect = m.movingDetectVelocityActual
	return m.movingDetectVelocityActual()
}

// Velocity-mode detection, phase two: stopped once the actual velocity
// also reads zero.
func (m *Motor) movingDetectVelocityActual() (bool, error) {
	value, err := m.parameterGet(tmcl.ParamVelocityActual)
	if err != nil {
		return false, err
	}
	if value != 0 {
		return true, nil
	}
	m.moving = false
	m.movingDetect = m.movingDetectNone
	return false, nil
}

// Parameter plumbing and cached divisor state.

func (m *Motor) parameterSet(parameter int, value int32) error {
	return m.module.axisParameterSet(m.number, parameter, value)
}

func (m *Motor) parameterGet(parameter int) (int32, error) {
	return m.module.axisParameterGet(m.number, parameter)
}

func (m *Motor) pulseDivisorExponentGet() (int, error) {
	if m.pulseDivisorExponentValid {
		return m.pulseDivisorExponent, nil
	}
	value, err := m.parameterGet(tmcl.ParamPulseDivisorExponent)
	if err != nil {
		return 0, err
	}
	m.pulseDivisorExponent = int(value)
	m.pulseDivisorExponentValid = true
	return m.pulseDivisorExponent, nil
}

func (m *Motor) pulseDivisorExponentSet(value int) error {
	if m.pulseDivisorExponentValid && m.pulseDivisorExponent == value {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamPulseDivisorExponent, int32(value)); err != nil {
		return err
	}
	m.pulseDivisorExponent = value
	m.pulseDivisorExponentValid = true
	// Writing the pulse divisor sometimes moves the motor by one
	// microstep.
	m.positionValid = false
	return nil
}

func (m *Motor) rampDivisorExponentGet() (int, error) {
	if m.rampDivisorExponentValid {
		return m.rampDivisorExponent, nil
	}
	value, err := m.parameterGet(tmcl.ParamRampDivisorExponent)
	if err != nil {
		return 0, err
	}
	m.rampDivisorExponent = int(value)
	m.rampDivisorExponentValid = true
	return m.rampDivisorExponent, nil
}

func (m *Motor) rampDivisorExponentSet(value int) error {
	if m.rampDivisorExponentValid && m.rampDivisorExponent == value {
		return nil
	}
	if err := m.parameterSet(tmcl.ParamRampDivisorExponent, int32(value)); err != nil {
		return err
	}
	m.rampDivisorExponent = value
	m.rampDivisorExponentValid = true
	return nil
}

// velocityExternal converts an internal velocity portion into fullsteps
// per second at the motor's current divisor state.
func (m *Motor) velocityExternal(value int32) (float64, error) {
	exponent, err := m.pulseDivisorExponentGet()
	if err != nil {
		return 0, err
	}
	return m.module.model.VelocityToExternal(exponent, value, m.microstepResolution), nil
}

func (m *Motor) velocityMovingSet(value float64) error {
	exponent, portion := m.module.model.VelocityToInternal(value, m.microstepResolution)
	if err := m.pulseDivisorExponentSet(exponent); err != nil {
		return err
	}
	if portion != m.velocityMovingInternal {
		if err := m.parameterSet(tmcl.ParamVelocityMoving, portion); err != nil {
			return err
		}
		m.velocityMovingInternal = portion
	}
	external, err := m.velocityExternal(portion)
	if err != nil {
		return err
	}
	m.velocityMoving = external
	return nil
}

func (m *Motor) velocityExtremaUpdate() error {
	m.velocityMinimum = m.module.FrequencyMinimum() / float64(m.microstepResolution)
	m.velocityMaximum = m.module.FrequencyMaximum() / float64(m.microstepResolution)
	moving := m.velocityMoving
	if moving < m.velocityMinimum {
		moving = m.velocityMinimum
	} else if moving > m.velocityMaximum {
		moving = m.velocityMaximum
	}
	return m.velocityMovingSet(moving)
}

// accelerationExternal converts an internal acceleration portion into
// fullsteps per square second at the motor's current divisor state.
func (m *Motor) accelerationExternal(value int32) (float64, error) {
	pulse, err := m.pulseDivisorExponentGet()
	if err != nil {
		return 0, err
	}
	ramp, err := m.rampDivisorExponentGet()
	if err != nil {
		return 0, err
	}
	return m.module.model.AccelerationToExternal(pulse, ramp, value, m.microstepResolution), nil
}

func (m *Motor) accelerationMovingSet(value float64) error {
	pulse, err := m.pulseDivisorExponentGet()
	if err != nil {
		return err
	}
	exponent, portion := m.module.model.AccelerationToInternal(value, pulse, m.microstepResolution)
	if err := m.rampDivisorExponentSet(exponent); err != nil {
		return err
	}
	if portion != m.accelerationMovingInternal {
		if err := m.parameterSet(tmcl.ParamAccelerationMoving, portion); err != nil {
			return err
		}
		m.accelerationMovingInternal = portion
	}
	m.accelerationMoving = m.module.model.AccelerationToExternal(
		pulse, exponent, portion, m.microstepResolution)
	return nil
}

// accelerationExtremaUpdate recomputes the reachable acceleration range
// for the current pulse divisor exponent and clamps the moving
// acceleration into it. Called whenever the velocity or the microstep
// resolution changes.
func (m *Motor) accelerationExtremaUpdate() error {
	pulse, err := m.pulseDivisorExponentGet()
	if err != nil {
		return err
	}
	minimum, maximum := m.module.model.AccelerationExtrema(pulse, m.microstepResolution)
	m.accelerationMinimum = minimum
	m.accelerationMaximum = maximum
	moving := m.accelerationMoving
	if moving < minimum {
		moving = minimum
	} else if moving > maximum {
		moving = maximum
	}
	return m.accelerationMovingSet(moving)
}
