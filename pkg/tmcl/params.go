// TMCL command, status and parameter numbers
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcl

// Axis parameter numbers (SAP/GAP). Numbering follows the TMCL firmware
// manual; the set below is the subset the driver uses.
const (
	ParamPositionTarget     = 0
	ParamPositionActual     = 1
	ParamVelocityTarget     = 2
	ParamVelocityActual     = 3
	ParamVelocityMoving     = 4
	ParamAccelerationMoving = 5
	ParamCurrentMoving      = 6
	ParamCurrentStandby     = 7
	ParamPositionReached    = 8

	ParamSwitchHomeActive         = 9
	ParamSwitchLimitRightActive   = 10
	ParamSwitchLimitLeftActive    = 11
	ParamSwitchLimitRightDisabled = 12
	ParamSwitchLimitLeftDisabled  = 13

	ParamAccelerationActual   = 135
	ParamRampMode             = 138
	ParamMicrostepResolution  = 140
	ParamRampDivisorExponent  = 153
	ParamPulseDivisorExponent = 154
	ParamFreewheelingDelay    = 204
	ParamStandbyDelay         = 214
)

// Global parameter numbers (SGP/GGP, bank 0).
const (
	GlobalHeartbeatTimeout    = 68
	GlobalSwitchLimitPolarity = 79
)

// Ramp modes (values of ParamRampMode).
const (
	RampModePosition     = 0
	RampModePositionSoft = 1
	RampModeVelocity     = 2
)

// SIO banks.
const (
	SIOBankPullup        = 0
	SIOBankOutputDigital = 2
)

// GIO banks.
const (
	GIOBankInputDigital  = 0
	GIOBankInputAnalog   = 1
	GIOBankOutputDigital = 2
)

var commandNames = map[byte]string{
	CmdROR: "ROR",
	CmdROL: "ROL",
	CmdMST: "MST",
	CmdMVP: "MVP",
	CmdSAP: "SAP",
	CmdGAP: "GAP",
	CmdSGP: "SGP",
	CmdGGP: "GGP",
	CmdSIO: "SIO",
	CmdGIO: "GIO",
	CmdSCO: "SCO",
	CmdGCO: "GCO",

	CmdApplicationStatus:      "CTL_APPLICATION_STATUS",
	CmdFirmwareVersion:        "CTL_FIRMWARE_VERSION",
	CmdRestoreFactorySettings: "CTL_FACTORY_SETTINGS_RESTORE",
}

// CommandName returns the TMCL mnemonic for a command number.
func CommandName(command byte) string {
	if name, ok := commandNames[command]; ok {
		return name
	}
	return "UNKNOWN"
}
