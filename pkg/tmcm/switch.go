// Limit and home switches
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import (
	"tmcm-go-migration/pkg/errors"
	"tmcm-go-migration/pkg/tmcl"
)

// SwitchKind identifies the role of a switch on a motor.
type SwitchKind int

const (
	SwitchKindLimitRight SwitchKind = iota
	SwitchKindLimitLeft
	SwitchKindHome
)

func (k SwitchKind) String() string {
	switch k {
	case SwitchKindLimitRight:
		return "limit right"
	case SwitchKindLimitLeft:
		return "limit left"
	case SwitchKindHome:
		return "home"
	}
	return "unknown"
}

// Switch is a limit or home switch of a motor. Limit switches can be
// enabled and disabled; a disabled limit switch no longer stops the
// motor. The home switch is always enabled.
type Switch struct {
	motor         *Motor
	kind          SwitchKind
	enabled       bool
	activeParam   int
	disabledParam int
}

func newSwitch(motor *Motor, kind SwitchKind) (*Switch, error) {
	s := &Switch{
		motor: motor,
		kind:  kind,
	}
	switch kind {
	case SwitchKindLimitRight:
		s.activeParam = tmcl.ParamSwitchLimitRightActive
		s.disabledParam = tmcl.ParamSwitchLimitRightDisabled
	case SwitchKindLimitLeft:
		s.activeParam = tmcl.ParamSwitchLimitLeftActive
		s.disabledParam = tmcl.ParamSwitchLimitLeftDisabled
	case SwitchKindHome:
		s.activeParam = tmcl.ParamSwitchHomeActive
		s.enabled = true
		return s, nil
	}
	disabled, err := motor.parameterGet(s.disabledParam)
	if err != nil {
		return nil, err
	}
	s.enabled = disabled == 0
	return s, nil
}

// Motor returns the motor of the switch.
func (s *Switch) Motor() *Motor {
	return s.motor
}

// Kind returns the role of the physical switch. Reversing the motor swaps
// which switch the right and left handles refer to, so a reversed motor's
// right handle returns the physically left switch.
func (s *Switch) Kind() SwitchKind {
	return s.kind
}

// CanDisable returns whether the switch can be disabled.
func (s *Switch) CanDisable() bool {
	return s.kind != SwitchKindHome
}

// Enabled returns whether the switch stops the motor when it activates.
func (s *Switch) Enabled() bool {
	return s.enabled
}

// SetEnabled enables or disables the switch. The home switch cannot be
// disabled.
func (s *Switch) SetEnabled(enabled bool) error {
	if !s.CanDisable() {
		return errors.StateError("the home switch cannot be disabled")
	}
	if enabled == s.enabled {
		return nil
	}
	var disabled int32
	if !enabled {
		disabled = 1
	}
	if err := s.motor.parameterSet(s.disabledParam, disabled); err != nil {
		return err
	}
	s.enabled = enabled
	return nil
}

// Active returns whether the switch is currently activated. The answer is
// read from the device every time, also for disabled switches.
func (s *Switch) Active() (bool, error) {
	value, err := s.motor.parameterGet(s.activeParam)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}
