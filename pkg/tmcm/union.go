// Coordinated multi-motor moves
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

// AxisVelocity is the velocity of one motor of a union.
type AxisVelocity struct {
	Magnitude float64
	Direction Direction
}

// MotorUnion moves two or more motors of one module together. Coordinated
// moves stage the per-motor targets in a shared coordinate slot and start
// them with a single command. The union borrows the slot for every move;
// it must not be used for anything else while the union exists.
type MotorUnion struct {
	module           *Module
	motors           []*Motor
	coordinateNumber int
	motorMask        byte
}

// NewMotorUnion creates a union over the given motor numbers, staging
// coordinated moves in the given coordinate slot. At least two distinct
// motors are required.
func NewMotorUnion(module *Module, motorNumbers []int, coordinateNumber int) (*MotorUnion, error) {
	if len(motorNumbers) < 2 {
		return nil, errors.New(errors.ErrValueRange,
			"a motor union requires at least two motors")
	}
	if err := module.coordinates.verifyNumber(coordinateNumber); err != nil {
		return nil, err
	}
	u := &MotorUnion{
		module:           module,
		motors:           make([]*Motor, 0, len(motorNumbers)),
		coordinateNumber: coordinateNumber,
	}
	for _, number := range motorNumbers {
		motor, err := module.Motor(number)
		if err != nil {
			return nil, err
		}
		mask := byte(1) << uint(number)
		if u.motorMask&mask != 0 {
			return nil, errors.Newf(errors.ErrValueRange,
				"motor %d appears twice in the union", number)
		}
		u.motorMask |= mask
		u.motors = append(u.motors, motor)
	}
	return u, nil
}

// Module returns the module of the union.
func (u *MotorUnion) Module() *Module {
	return u.module
}

// Motors returns the motors of the union in constructor order.
func (u *MotorUnion) Motors() []*Motor {
	return u.motors
}

// Position returns the positions of the motors in microsteps.
func (u *MotorUnion) Position() ([]int32, error) {
	positions := make([]int32, len(u.motors))
	for i, motor := range u.motors {
		position, err := motor.Position()
		if err != nil {
			return nil, err
		}
		positions[i] = position
	}
	return positions, nil
}

// SetPosition sets the positions of the motors in microsteps without
// moving them. A failure partway leaves the earlier motors set.
func (u *MotorUnion) SetPosition(positions []int32) error {
	if err := u.verifyLength(len(positions)); err != nil {
		return err
	}
	for i, motor := range u.motors {
		if err := motor.SetPosition(positions[i]); err != nil {
			return err
		}
	}
	return nil
}

// Velocity returns the velocities of the motors.
func (u *MotorUnion) Velocity() ([]AxisVelocity, error) {
	velocities := make([]AxisVelocity, len(u.motors))
	for i, motor := range u.motors {
		magnitude, direction, err := motor.Velocity()
		if err != nil {
			return nil, err
		}
		velocities[i] = AxisVelocity{Magnitude: magnitude, Direction: direction}
	}
	return velocities, nil
}

// Acceleration returns the actual accelerations of the motors.
func (u *MotorUnion) Acceleration() ([]float64, error) {
	accelerations := make([]float64, len(u.motors))
	for i, motor := range u.motors {
		acceleration, err := motor.Acceleration()
		if err != nil {
			return nil, err
		}
		accelerations[i] = acceleration
	}
	return accelerations, nil
}

// Moving returns whether any motor of the union is moving.
func (u *MotorUnion) Moving() (bool, error) {
	result := false
	for _, motor := range u.motors {
		moving, err := motor.Moving()
		if err != nil {
			return false, err
		}
		result = result || moving
	}
	return result, nil
}

// MoveTo moves the motors to the given positions in microsteps. The
// targets are staged in the union's coordinate slot and started with one
// command. Synchronous moves scale the slower axes so that all motors
// arrive together; asynchronous moves run every axis at its own velocity.
func (u *MotorUnion) MoveTo(ctx context.Context, positions []int32, wait, synchronously bool) error {
	if err := u.verifyLength(len(positions)); err != nil {
		return err
	}
	for i, motor := range u.motors {
		if err := motor.SetCoordinate(u.coordinateNumber, positions[i]); err != nil {
			return err
		}
	}
	for _, motor := range u.motors {
		motor.moveIndicate(tmcl.RampModePosition)
	}
	mode := byte(tmcl.MoveAsynchronous)
	if synchronously {
		mode = tmcl.MoveSynchronous
	}
	if err := u.module.motorMoveToCoordinate(u.motorMask|mode, u.coordinateNumber); err != nil {
		return err
	}
	if wait {
		return u.WaitWhileMoving(ctx)
	}
	return nil
}

// Stop stops the motors of the union.
func (u *MotorUnion) Stop(ctx context.Context, wait bool) error {
	for _, motor := range u.motors {
		if err := motor.Stop(ctx, false); err != nil {
			return err
		}
	}
	if wait {
		return u.WaitWhileMoving(ctx)
	}
	return nil
}

// WaitWhileMoving polls until no motor of the union is moving or the
// context is done.
func (u *MotorUnion) WaitWhileMoving(ctx context.Context) error {
	for {
		moving, err := u.Moving()
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

func (u *MotorUnion) verifyLength(length int) error {
	if length != len(u.motors) {
		return errors.RangeError("position count", length, len(u.motors), len(u.motors))
	}
	return nil
}
