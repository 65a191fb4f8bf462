// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm_test

import (
	"context"
	"testing"
	"time"

	"tmcm-go-migration/pkg/errors"
	"tmcm-go-migration/pkg/tmcl"
	"tmcm-go-migration/pkg/tmcm"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestMotorAccessors(t *testing.T) {
	_, module := connectTest(t)
	motor, err := module.Motor(1)
	if err != nil {
		t.Fatalf("Motor(1) error: %v", err)
	}
	if motor.Number() != 1 {
		t.Errorf("Number() = %d", motor.Number())
	}
	if motor.Module() != module {
		t.Error("Module() does not return the owning module")
	}
	if _, err := module.Motor(3); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("Motor(3) error = %v, want VALUE_RANGE", err)
	}
	if _, err := module.Motor(-1); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("Motor(-1) error = %v, want VALUE_RANGE", err)
	}
}

func TestMoveTo(t *testing.T) {
	_, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.MoveTo(ctx, 51200, true); err != nil {
		t.Fatalf("MoveTo() error: %v", err)
	}
	moving, err := motor.Moving()
	if err != nil {
		t.Fatalf("Moving() error: %v", err)
	}
	if moving {
		t.Error("Moving() = true after waited move")
	}
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != 51200 {
		t.Errorf("Position() = %d, want 51200", position)
	}
	target, err := motor.PositionTarget()
	if err != nil {
		t.Fatalf("PositionTarget() error: %v", err)
	}
	if target != 51200 {
		t.Errorf("PositionTarget() = %d, want 51200", target)
	}
}

func TestMoveBy(t *testing.T) {
	_, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.MoveTo(ctx, 1000, true); err != nil {
		t.Fatalf("MoveTo() error: %v", err)
	}
	if err := motor.MoveBy(ctx, -1500, true); err != nil {
		t.Fatalf("MoveBy() error: %v", err)
	}
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != -500 {
		t.Errorf("Position() = %d, want -500", position)
	}
}

func TestMoveToCoordinate(t *testing.T) {
	_, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.SetCoordinate(7, 4321); err != nil {
		t.Fatalf("SetCoordinate() error: %v", err)
	}
	if err := motor.MoveToCoordinate(ctx, 7, true); err != nil {
		t.Fatalf("MoveToCoordinate() error: %v", err)
	}
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != 4321 {
		t.Errorf("Position() = %d, want 4321", position)
	}
	if err := motor.MoveToCoordinate(ctx, 20, true); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("MoveToCoordinate(20) error = %v, want VALUE_RANGE", err)
	}
}

func TestMoveToCoordinateOtherMotor(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[1]
	if err := motor.SetCoordinate(7, 4321); err != nil {
		t.Fatalf("SetCoordinate() error: %v", err)
	}
	if err := motor.MoveToCoordinate(ctx, 7, true); err != nil {
		t.Fatalf("MoveToCoordinate() error: %v", err)
	}
	if got := sim.AxisParameter(1, tmcl.ParamPositionTarget); got != 4321 {
		t.Errorf("motor 1 position target = %d, want 4321", got)
	}
	if got := sim.AxisParameter(0, tmcl.ParamPositionTarget); got != 0 {
		t.Errorf("motor 0 position target = %d, want 0", got)
	}
}

func TestVelocityMoveAndStop(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.MoveRight(ctx, false); err != nil {
		t.Fatalf("MoveRight() error: %v", err)
	}
	if sim.AxisParameter(0, tmcl.ParamVelocityTarget) <= 0 {
		t.Error("velocity target not positive after MoveRight")
	}
	moving, err := motor.Moving()
	if err != nil {
		t.Fatalf("Moving() error: %v", err)
	}
	if !moving {
		t.Fatal("Moving() = false right after MoveRight")
	}
	magnitude, direction, err := motor.Velocity()
	if err != nil {
		t.Fatalf("Velocity() error: %v", err)
	}
	if direction != tmcm.DirectionRight {
		t.Errorf("Velocity() direction = %v, want right", direction)
	}
	if magnitude <= 0 {
		t.Errorf("Velocity() magnitude = %v", magnitude)
	}
	if err := motor.Stop(ctx, true); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	moving, err = motor.Moving()
	if err != nil {
		t.Fatalf("Moving() error: %v", err)
	}
	if moving {
		t.Error("Moving() = true after waited stop")
	}
	magnitude, direction, err = motor.Velocity()
	if err != nil {
		t.Fatalf("Velocity() error: %v", err)
	}
	if magnitude != 0 || direction != tmcm.DirectionNone {
		t.Errorf("Velocity() after stop = (%v, %v), want (0, none)", magnitude, direction)
	}
	acceleration, err := motor.Acceleration()
	if err != nil {
		t.Fatalf("Acceleration() error: %v", err)
	}
	if acceleration != 0 {
		t.Errorf("Acceleration() after stop = %v, want 0", acceleration)
	}
}

func TestMoveLeft(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[1]
	if err := motor.MoveLeft(ctx, false); err != nil {
		t.Fatalf("MoveLeft() error: %v", err)
	}
	if sim.AxisParameter(1, tmcl.ParamVelocityTarget) >= 0 {
		t.Error("velocity target not negative after MoveLeft")
	}
	if err := motor.Stop(ctx, true); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestStopIdleIsNoop(t *testing.T) {
	_, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.Stop(ctx, true); err != nil {
		t.Errorf("Stop() on idle motor error: %v", err)
	}
}

// Stopping ramps down: the detector must keep answering moving until the
// actual velocity reads zero, not just the target.
func TestStopDetectorRampsDown(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	sim.SetRampSteps(2)
	motor := module.Motors()[0]
	if err := motor.MoveRight(ctx, false); err != nil {
		t.Fatalf("MoveRight() error: %v", err)
	}
	// Settle the ramp-up so the actual velocity is nonzero.
	for i := 0; i < 3; i++ {
		if _, _, err := motor.Velocity(); err != nil {
			t.Fatalf("Velocity() error: %v", err)
		}
	}
	if err := motor.Stop(ctx, false); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	moving, err := motor.Moving()
	if err != nil {
		t.Fatalf("Moving() error: %v", err)
	}
	if !moving {
		t.Error("Moving() = false while still ramping down")
	}
	if err := motor.WaitWhileMoving(ctx); err != nil {
		t.Fatalf("WaitWhileMoving() error: %v", err)
	}
	moving, err = motor.Moving()
	if err != nil {
		t.Fatalf("Moving() error: %v", err)
	}
	if moving {
		t.Error("Moving() = true after ramp-down completed")
	}
}

func TestWaitWhileMovingCancel(t *testing.T) {
	_, module := connectTest(t)
	motor := module.Motors()[0]
	if err := motor.MoveRight(context.Background(), false); err != nil {
		t.Fatalf("MoveRight() error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := motor.WaitWhileMoving(ctx); err != context.DeadlineExceeded {
		t.Errorf("WaitWhileMoving() error = %v, want deadline exceeded", err)
	}
	if err := motor.Stop(testContext(t), true); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestSetPosition(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	// Put the motor into a position ramp mode first; writing the position
	// register must force the mode back to velocity.
	if err := motor.MoveTo(ctx, 100, true); err != nil {
		t.Fatalf("MoveTo() error: %v", err)
	}
	if err := motor.SetPosition(42); err != nil {
		t.Fatalf("SetPosition() error: %v", err)
	}
	if got := sim.AxisParameter(0, tmcl.ParamRampMode); got != tmcl.RampModeVelocity {
		t.Errorf("ramp mode = %d, want velocity", got)
	}
	if got := sim.AxisParameter(0, tmcl.ParamPositionActual); got != 42 {
		t.Errorf("device position = %d, want 42", got)
	}
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != 42 {
		t.Errorf("Position() = %d, want 42", position)
	}
}

func TestSetPositionWhileMovingConflicts(t *testing.T) {
	_, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.MoveRight(ctx, false); err != nil {
		t.Fatalf("MoveRight() error: %v", err)
	}
	if err := motor.SetPosition(0); !errors.Is(err, errors.ErrStateConflict) {
		t.Errorf("SetPosition() error = %v, want STATE_CONFLICT", err)
	}
	if err := motor.Stop(ctx, true); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

// Once the motor stands still the position is cached; device reads stop.
func TestPositionCache(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.MoveTo(ctx, 100, true); err != nil {
		t.Fatalf("MoveTo() error: %v", err)
	}
	if _, err := motor.Position(); err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	// A change behind the driver's back stays invisible while cached.
	sim.SetAxisParameter(0, tmcl.ParamPositionActual, 999)
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != 100 {
		t.Errorf("Position() = %d, want cached 100", position)
	}
	// Any move invalidates the cache.
	if err := motor.MoveBy(ctx, 1, true); err != nil {
		t.Fatalf("MoveBy() error: %v", err)
	}
	position, err = motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != 1000 {
		t.Errorf("Position() = %d, want 1000 after cache invalidation", position)
	}
}

func TestSettersConflictWhileMoving(t *testing.T) {
	_, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.MoveRight(ctx, false); err != nil {
		t.Fatalf("MoveRight() error: %v", err)
	}
	if err := motor.SetVelocityMoving(motor.VelocityMoving()); !errors.Is(err, errors.ErrStateConflict) {
		t.Errorf("SetVelocityMoving() error = %v, want STATE_CONFLICT", err)
	}
	if err := motor.SetAccelerationMoving(motor.AccelerationMoving()); !errors.Is(err, errors.ErrStateConflict) {
		t.Errorf("SetAccelerationMoving() error = %v, want STATE_CONFLICT", err)
	}
	if err := motor.SetMicrostepResolution(64); !errors.Is(err, errors.ErrStateConflict) {
		t.Errorf("SetMicrostepResolution() error = %v, want STATE_CONFLICT", err)
	}
	if err := motor.Stop(ctx, true); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestSetVelocityMoving(t *testing.T) {
	_, module := connectTest(t)
	motor := module.Motors()[0]
	want := motor.VelocityMaximum() / 2
	if err := motor.SetVelocityMoving(want); err != nil {
		t.Fatalf("SetVelocityMoving() error: %v", err)
	}
	got := motor.VelocityMoving()
	if got > want*(1+1e-9) {
		t.Errorf("VelocityMoving() = %v exceeds requested %v", got, want)
	}
	if got < want*0.99 {
		t.Errorf("VelocityMoving() = %v far below requested %v", got, want)
	}
	if err := motor.SetVelocityMoving(motor.VelocityMaximum() * 2); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("SetVelocityMoving(beyond max) error = %v, want VALUE_RANGE", err)
	}
	if err := motor.SetVelocityMoving(motor.VelocityMinimum() / 2); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("SetVelocityMoving(below min) error = %v, want VALUE_RANGE", err)
	}
	// Bounds themselves are settable.
	if err := motor.SetVelocityMoving(motor.VelocityMaximum()); err != nil {
		t.Errorf("SetVelocityMoving(maximum) error: %v", err)
	}
}

func TestSetAccelerationMoving(t *testing.T) {
	_, module := connectTest(t)
	motor := module.Motors()[0]
	want := (motor.AccelerationMinimum() + motor.AccelerationMaximum()) / 2
	if err := motor.SetAccelerationMoving(want); err != nil {
		t.Fatalf("SetAccelerationMoving() error: %v", err)
	}
	got := motor.AccelerationMoving()
	if got > want*(1+1e-9) {
		t.Errorf("AccelerationMoving() = %v exceeds requested %v", got, want)
	}
	if got < motor.AccelerationMinimum() {
		t.Errorf("AccelerationMoving() = %v below minimum %v", got, motor.AccelerationMinimum())
	}
	if err := motor.SetAccelerationMoving(motor.AccelerationMaximum() * 2); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("SetAccelerationMoving(beyond max) error = %v, want VALUE_RANGE", err)
	}
}

func TestSetMicrostepResolution(t *testing.T) {
	sim, module := connectTest(t)
	motor := module.Motors()[0]
	if motor.MicrostepResolution() != 256 {
		t.Fatalf("MicrostepResolution() = %d, want 256", motor.MicrostepResolution())
	}
	if err := motor.SetMicrostepResolution(64); err != nil {
		t.Fatalf("SetMicrostepResolution() error: %v", err)
	}
	if motor.MicrostepResolution() != 64 {
		t.Errorf("MicrostepResolution() = %d, want 64", motor.MicrostepResolution())
	}
	if got := sim.AxisParameter(0, tmcl.ParamMicrostepResolution); got != 6 {
		t.Errorf("resolution exponent = %d, want 6", got)
	}
	// The velocity range scales with the resolution.
	want := module.FrequencyMaximum() / 64
	if got := motor.VelocityMaximum(); got != want {
		t.Errorf("VelocityMaximum() = %v, want %v", got, want)
	}
	// The moving velocity must have been re-clamped into the new range.
	if v := motor.VelocityMoving(); v < motor.VelocityMinimum() || v > motor.VelocityMaximum() {
		t.Errorf("VelocityMoving() = %v outside [%v, %v]",
			v, motor.VelocityMinimum(), motor.VelocityMaximum())
	}
	if a := motor.AccelerationMoving(); a < motor.AccelerationMinimum() || a > motor.AccelerationMaximum() {
		t.Errorf("AccelerationMoving() = %v outside [%v, %v]",
			a, motor.AccelerationMinimum(), motor.AccelerationMaximum())
	}
	for _, invalid := range []int{0, 3, 512} {
		if err := motor.SetMicrostepResolution(invalid); !errors.Is(err, errors.ErrValueRange) {
			t.Errorf("SetMicrostepResolution(%d) error = %v, want VALUE_RANGE", invalid, err)
		}
	}
}

func TestDelays(t *testing.T) {
	sim, module := connectTest(t)
	motor := module.Motors()[0]
	if err := motor.SetStandbyDelay(1005); err != nil {
		t.Fatalf("SetStandbyDelay() error: %v", err)
	}
	if motor.StandbyDelay() != 1000 {
		t.Errorf("StandbyDelay() = %d, want 1000 after flooring", motor.StandbyDelay())
	}
	if got := sim.AxisParameter(0, tmcl.ParamStandbyDelay); got != 100 {
		t.Errorf("standby delay device units = %d, want 100", got)
	}
	for _, invalid := range []int{0, 9, 655351} {
		if err := motor.SetStandbyDelay(invalid); !errors.Is(err, errors.ErrValueRange) {
			t.Errorf("SetStandbyDelay(%d) error = %v, want VALUE_RANGE", invalid, err)
		}
	}

	if err := motor.SetFreewheelingDelay(250); err != nil {
		t.Fatalf("SetFreewheelingDelay() error: %v", err)
	}
	if motor.FreewheelingDelay() != 250 {
		t.Errorf("FreewheelingDelay() = %d, want 250", motor.FreewheelingDelay())
	}
	if got := sim.AxisParameter(0, tmcl.ParamFreewheelingDelay); got != 25 {
		t.Errorf("freewheeling delay device units = %d, want 25", got)
	}
	if err := motor.SetFreewheelingDelay(tmcm.FreewheelingDelayDisable); err != nil {
		t.Fatalf("SetFreewheelingDelay(disable) error: %v", err)
	}
	if motor.FreewheelingDelay() != 0 {
		t.Errorf("FreewheelingDelay() = %d, want 0", motor.FreewheelingDelay())
	}
	if err := motor.SetFreewheelingDelay(5); !errors.Is(err, errors.ErrValueRange) {
		t.Errorf("SetFreewheelingDelay(5) error = %v, want VALUE_RANGE", err)
	}
}

func TestCurrents(t *testing.T) {
	_, module := connectTest(t)
	motor := module.Motors()[0]
	tests := []struct {
		set  int
		want int
	}{
		{2768, 2768},
		{1000, 951},
		{86, 86},
	}
	for _, tt := range tests {
		if err := motor.SetCurrentMoving(tt.set); err != nil {
			t.Fatalf("SetCurrentMoving(%d) error: %v", tt.set, err)
		}
		if got := motor.CurrentMoving(); got != tt.want {
			t.Errorf("CurrentMoving() after set %d = %d, want %d", tt.set, got, tt.want)
		}
		if err := motor.SetCurrentStandby(tt.set); err != nil {
			t.Fatalf("SetCurrentStandby(%d) error: %v", tt.set, err)
		}
		if got := motor.CurrentStandby(); got != tt.want {
			t.Errorf("CurrentStandby() after set %d = %d, want %d", tt.set, got, tt.want)
		}
	}
	for _, invalid := range []int{85, 2769, 0, -1} {
		if err := motor.SetCurrentMoving(invalid); !errors.Is(err, errors.ErrValueRange) {
			t.Errorf("SetCurrentMoving(%d) error = %v, want VALUE_RANGE", invalid, err)
		}
	}
}

func TestSwitches(t *testing.T) {
	sim, module := connectTest(t)
	motor := module.Motors()[0]
	right := motor.SwitchLimitRight()
	left := motor.SwitchLimitLeft()
	home := motor.SwitchHome()

	if !right.Enabled() || !left.Enabled() || !home.Enabled() {
		t.Fatal("switches not all enabled after connect")
	}
	if !right.CanDisable() || !left.CanDisable() || home.CanDisable() {
		t.Error("CanDisable() wrong for some switch")
	}
	if right.Kind() != tmcm.SwitchKindLimitRight || home.Kind() != tmcm.SwitchKindHome {
		t.Error("Kind() wrong for some switch")
	}

	if err := right.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled(false) error: %v", err)
	}
	if right.Enabled() {
		t.Error("Enabled() = true after disabling")
	}
	if got := sim.AxisParameter(0, tmcl.ParamSwitchLimitRightDisabled); got != 1 {
		t.Errorf("disabled parameter = %d, want 1", got)
	}

	// A disabled switch still reports its live state.
	sim.SetAxisParameter(0, tmcl.ParamSwitchLimitRightActive, 1)
	active, err := right.Active()
	if err != nil {
		t.Fatalf("Active() error: %v", err)
	}
	if !active {
		t.Error("Active() = false with switch activated")
	}

	if err := right.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled(true) error: %v", err)
	}
	if got := sim.AxisParameter(0, tmcl.ParamSwitchLimitRightDisabled); got != 0 {
		t.Errorf("disabled parameter = %d, want 0", got)
	}

	if err := home.SetEnabled(false); !errors.Is(err, errors.ErrStateConflict) {
		t.Errorf("home SetEnabled(false) error = %v, want STATE_CONFLICT", err)
	}
}

func TestDirectionReversal(t *testing.T) {
	sim, module := connectTest(t)
	ctx := testContext(t)
	motor := module.Motors()[0]
	if err := motor.SetPosition(1000); err != nil {
		t.Fatalf("SetPosition() error: %v", err)
	}
	if err := motor.SetCoordinate(5, 100); err != nil {
		t.Fatalf("SetCoordinate() error: %v", err)
	}

	if err := motor.SetDirectionReversed(true); err != nil {
		t.Fatalf("SetDirectionReversed() error: %v", err)
	}
	if !motor.Reversed() {
		t.Fatal("Reversed() = false")
	}
	// Device-side coordinate negated, API value preserved.
	if sim.Coordinate(0, 5) != -100 {
		t.Errorf("device coordinate = %d, want -100", sim.Coordinate(0, 5))
	}
	coordinate, err := motor.Coordinate(5)
	if err != nil {
		t.Fatalf("Coordinate() error: %v", err)
	}
	if coordinate != 100 {
		t.Errorf("Coordinate() = %d, want 100", coordinate)
	}
	// The position reading flips sign.
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != -1000 {
		t.Errorf("Position() = %d, want -1000", position)
	}
	// The right handle now refers to the physically left switch.
	if motor.SwitchLimitRight().Kind() != tmcm.SwitchKindLimitLeft {
		t.Errorf("SwitchLimitRight().Kind() = %v, want physically left",
			motor.SwitchLimitRight().Kind())
	}

	// MoveRight drives the motor in the device's left direction.
	if err := motor.MoveRight(ctx, false); err != nil {
		t.Fatalf("MoveRight() error: %v", err)
	}
	if sim.AxisParameter(0, tmcl.ParamVelocityTarget) >= 0 {
		t.Error("velocity target not negated for reversed MoveRight")
	}
	_, direction, err := motor.Velocity()
	if err != nil {
		t.Fatalf("Velocity() error: %v", err)
	}
	if direction != tmcm.DirectionRight {
		t.Errorf("Velocity() direction = %v, want right", direction)
	}
	if err := motor.Stop(ctx, true); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	// Position moves negate at the boundary in both directions.
	if err := motor.MoveTo(ctx, -500, true); err != nil {
		t.Fatalf("MoveTo() error: %v", err)
	}
	if got := sim.AxisParameter(0, tmcl.ParamPositionActual); got != 500 {
		t.Errorf("device position = %d, want 500", got)
	}
	position, err = motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != -500 {
		t.Errorf("Position() = %d, want -500", position)
	}
}

// Reversing twice restores the original coordinate values, switch
// identities and position sign.
func TestDirectionReversalSelfInverse(t *testing.T) {
	sim, module := connectTest(t)
	motor := module.Motors()[2]
	if err := motor.SetPosition(777); err != nil {
		t.Fatalf("SetPosition() error: %v", err)
	}
	if err := motor.SetCoordinate(0, 55); err != nil {
		t.Fatalf("SetCoordinate() error: %v", err)
	}
	if err := motor.SetDirectionReversed(true); err != nil {
		t.Fatalf("SetDirectionReversed(true) error: %v", err)
	}
	if err := motor.SetDirectionReversed(false); err != nil {
		t.Fatalf("SetDirectionReversed(false) error: %v", err)
	}
	if motor.Reversed() {
		t.Error("Reversed() = true after double reversal")
	}
	if sim.Coordinate(2, 0) != 55 {
		t.Errorf("device coordinate = %d, want 55", sim.Coordinate(2, 0))
	}
	if motor.SwitchLimitRight().Kind() != tmcm.SwitchKindLimitRight {
		t.Error("switch handles not restored")
	}
	position, err := motor.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if position != 777 {
		t.Errorf("Position() = %d, want 777", position)
	}
	// Setting the current state again is a no-op.
	if err := motor.SetDirectionReversed(false); err != nil {
		t.Errorf("redundant SetDirectionReversed() error: %v", err)
	}
}
