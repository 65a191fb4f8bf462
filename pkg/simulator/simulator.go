// Package simulator provides an in-memory TMCM module speaking the TMCL
// binary protocol. It implements the port interface of the driver, so the
// driver can be exercised without hardware:
//
//	sim := simulator.New()
//	module, err := tmcm.Connect(sim, 1, 3110)
//
// Motion is scripted, not physical: position moves report reached after a
// fixed number of polls, velocity ramps settle after a fixed number of
// reads. Faults (corrupted reply checksums, wrong addresses, error
// statuses) can be injected for failure-path tests.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package simulator

import (
	"bytes"
	"io"
	"sync"

	"tmcm-go-migration/pkg/tmcl"
)

const (
	// Reply frames carry the host address in the first byte.
	hostAddress = 2

	// Polls until a scripted position move reports reached and reads
	// until a scripted velocity ramp settles.
	defaultMoveSteps = 2
	defaultRampSteps = 2
)

// Module is a simulated TMCM-3110. Writes enqueue request frames, reads
// drain the corresponding reply frames. All methods are safe for
// concurrent use.
type Module struct {
	mu sync.Mutex

	address       byte
	model         int32
	firmwareMajor int32
	firmwareMinor int32

	motors      [3]*motorState
	globals     map[int]int32
	coordinates [3][20]int32

	pullups        map[int]int32
	outputsDigital map[int]int32
	inputsDigital  map[int]int32
	inputsAnalog   map[int]int32

	moveSteps int
	rampSteps int

	corruptChecksum bool
	wrongAddress    bool
	forceStatus     byte
	statusCount     int

	pending bytes.Buffer
	partial bytes.Buffer
}

type motorState struct {
	params map[int]int32

	positionTarget  int32
	positionActual  int32
	positionReached bool
	movePending     int

	velocityTarget int32
	velocityActual int32
	rampFrom       int32
	rampPending    int
}

// New creates a simulated TMCM-3110 at address 1 with firmware 1.14.
func New() *Module {
	m := &Module{
		address:       1,
		model:         3110,
		firmwareMajor: 1,
		firmwareMinor: 14,
		globals:        map[int]int32{},
		pullups:        map[int]int32{0: 1},
		outputsDigital: map[int]int32{},
		inputsDigital:  map[int]int32{},
		// Port 8 carries the supply voltage in decivolts.
		inputsAnalog: map[int]int32{8: 240},
		moveSteps:    defaultMoveSteps,
		rampSteps:    defaultRampSteps,
	}
	for i := range m.motors {
		m.motors[i] = newMotorState()
	}
	return m
}

func newMotorState() *motorState {
	return &motorState{
		params: map[int]int32{
			tmcl.ParamVelocityMoving:       1000,
			tmcl.ParamAccelerationMoving:   500,
			tmcl.ParamCurrentMoving:        50,
			tmcl.ParamCurrentStandby:       8,
			tmcl.ParamRampMode:             tmcl.RampModeVelocity,
			tmcl.ParamMicrostepResolution:  8,
			tmcl.ParamRampDivisorExponent:  7,
			tmcl.ParamPulseDivisorExponent: 5,
			tmcl.ParamFreewheelingDelay:    0,
			tmcl.ParamStandbyDelay:         20,
		},
		positionReached: true,
	}
}

// SetAddress changes the module address.
func (m *Module) SetAddress(address byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.address = address
}

// SetModel changes the model number reported by the firmware version
// command.
func (m *Module) SetModel(model int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

// SetMoveSteps sets how many position-reached polls a position move takes.
func (m *Module) SetMoveSteps(steps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveSteps = steps
}

// SetRampSteps sets how many actual-velocity reads a velocity ramp takes.
func (m *Module) SetRampSteps(steps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rampSteps = steps
}

// SetCorruptReplyChecksum makes every following reply carry a wrong
// checksum.
func (m *Module) SetCorruptReplyChecksum(corrupt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corruptChecksum = corrupt
}

// SetWrongReplyAddress makes every following reply carry a wrong module
// address.
func (m *Module) SetWrongReplyAddress(wrong bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wrongAddress = wrong
}

// SetForceStatus makes every following reply carry the given status
// instead of the computed one. Zero restores normal behavior.
func (m *Module) SetForceStatus(status byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceStatus = status
}

// SetDigitalInput sets the value of a digital input port.
func (m *Module) SetDigitalInput(port int, value int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputsDigital[port] = value
}

// SetAnalogInput sets the value of an analog input port.
func (m *Module) SetAnalogInput(port int, value int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputsAnalog[port] = value
}

// SetAxisParameter sets an axis parameter directly, bypassing the
// protocol. Useful for staging switch states.
func (m *Module) SetAxisParameter(motor, parameter int, value int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.motors[motor]
	switch parameter {
	case tmcl.ParamPositionTarget:
		state.positionTarget = value
	case tmcl.ParamPositionActual:
		state.positionActual = value
	case tmcl.ParamVelocityTarget:
		state.velocityTarget = value
	case tmcl.ParamVelocityActual:
		state.velocityActual = value
	default:
		state.params[parameter] = value
	}
}

// AxisParameter reads an axis parameter directly, bypassing the protocol
// and without advancing scripted motion.
func (m *Module) AxisParameter(motor, parameter int) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.motors[motor]
	switch parameter {
	case tmcl.ParamPositionTarget:
		return state.positionTarget
	case tmcl.ParamPositionActual:
		return state.positionActual
	case tmcl.ParamVelocityTarget:
		return state.velocityTarget
	case tmcl.ParamVelocityActual:
		return state.velocityActual
	}
	return state.params[parameter]
}

// GlobalParameter reads a bank 0 global parameter directly.
func (m *Module) GlobalParameter(parameter int) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globals[parameter]
}

// Pullup reads the pull-up state of an I/O port directly.
func (m *Module) Pullup(port int) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pullups[port]
}

// OutputDigital reads a digital output port directly.
func (m *Module) OutputDigital(port int) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputsDigital[port]
}

// ApplicationStatusCount returns how many application status requests the
// module has answered. Used to observe heartbeats.
func (m *Module) ApplicationStatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCount
}

// Coordinate reads a stored coordinate directly, bypassing the protocol.
func (m *Module) Coordinate(motor, number int) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coordinates[motor][number]
}

// Write consumes request frames. Partial frames are buffered until
// complete; each complete frame addressed to the module enqueues one
// reply, except for transmit-only commands. Frames addressed elsewhere are
// dropped silently.
func (m *Module) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partial.Write(p)
	for m.partial.Len() >= tmcl.FrameLength {
		var frame [tmcl.FrameLength]byte
		m.partial.Read(frame[:])
		m.handle(frame[:])
	}
	return len(p), nil
}

// Read drains pending reply frames. Reading with no reply pending reports
// end of file, which the driver surfaces as a transport error.
func (m *Module) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending.Len() == 0 {
		return 0, io.EOF
	}
	return m.pending.Read(p)
}

func (m *Module) handle(frame []byte) {
	if frame[0] != m.address {
		return
	}
	command := frame[1]
	if command == tmcl.CmdRestoreFactorySettings {
		m.reset()
		return
	}
	var status byte = tmcl.StatusSuccess
	var value int32
	if tmcl.Checksum(frame[:tmcl.FrameLength-1]) != frame[tmcl.FrameLength-1] {
		status = tmcl.StatusChecksumWrong
	} else {
		status, value = m.execute(command, frame[2], frame[3],
			int32(uint32(frame[4])<<24|uint32(frame[5])<<16|uint32(frame[6])<<8|uint32(frame[7])))
	}
	if m.forceStatus != 0 {
		status = m.forceStatus
	}
	m.reply(command, status, value)
}

func (m *Module) reply(command, status byte, value int32) {
	var frame [tmcl.FrameLength]byte
	frame[0] = hostAddress
	frame[1] = m.address
	if m.wrongAddress {
		frame[1] = m.address + 1
	}
	frame[2] = status
	frame[3] = command
	frame[4] = byte(uint32(value) >> 24)
	frame[5] = byte(uint32(value) >> 16)
	frame[6] = byte(uint32(value) >> 8)
	frame[7] = byte(uint32(value))
	frame[8] = tmcl.Checksum(frame[:tmcl.FrameLength-1])
	if m.corruptChecksum {
		frame[8] ^= 0xff
	}
	m.pending.Write(frame[:])
}

func (m *Module) execute(command, typ, bank byte, value int32) (byte, int32) {
	switch command {
	case tmcl.CmdROR:
		return m.rotate(int(bank), value)
	case tmcl.CmdROL:
		return m.rotate(int(bank), -value)
	case tmcl.CmdMST:
		return m.stop(int(bank))
	case tmcl.CmdMVP:
		return m.move(typ, bank, value)
	case tmcl.CmdSAP:
		return m.axisSet(int(bank), int(typ), value)
	case tmcl.CmdGAP:
		return m.axisGet(int(bank), int(typ))
	case tmcl.CmdSGP:
		m.globals[int(typ)] = value
		return tmcl.StatusSuccess, value
	case tmcl.CmdGGP:
		return tmcl.StatusSuccess, m.globals[int(typ)]
	case tmcl.CmdSIO:
		return m.portSet(int(bank), int(typ), value)
	case tmcl.CmdGIO:
		return m.portGet(int(bank), int(typ))
	case tmcl.CmdSCO:
		if !m.motorValid(int(bank)) || !m.coordinateValid(int(typ)) {
			return tmcl.StatusValueInvalid, 0
		}
		m.coordinates[bank][typ] = value
		return tmcl.StatusSuccess, value
	case tmcl.CmdGCO:
		if !m.motorValid(int(bank)) || !m.coordinateValid(int(typ)) {
			return tmcl.StatusValueInvalid, 0
		}
		return tmcl.StatusSuccess, m.coordinates[bank][typ]
	case tmcl.CmdApplicationStatus:
		m.statusCount++
		return tmcl.StatusSuccess, 1
	case tmcl.CmdFirmwareVersion:
		if typ != tmcl.FirmwareVersionBinary {
			return tmcl.StatusTypeWrong, 0
		}
		return tmcl.StatusSuccess, m.model<<16 | m.firmwareMajor<<8 | m.firmwareMinor
	}
	return tmcl.StatusCommandInvalid, 0
}

func (m *Module) motorValid(motor int) bool {
	return motor >= 0 && motor < len(m.motors)
}

func (m *Module) coordinateValid(number int) bool {
	return number >= 0 && number < len(m.coordinates[0])
}

func (m *Module) rotate(motor int, velocity int32) (byte, int32) {
	if !m.motorValid(motor) {
		return tmcl.StatusValueInvalid, 0
	}
	state := m.motors[motor]
	state.params[tmcl.ParamRampMode] = tmcl.RampModeVelocity
	state.velocityTarget = velocity
	state.rampFrom = state.velocityActual
	state.rampPending = m.rampSteps
	state.movePending = 0
	return tmcl.StatusSuccess, velocity
}

func (m *Module) stop(motor int) (byte, int32) {
	if !m.motorValid(motor) {
		return tmcl.StatusValueInvalid, 0
	}
	state := m.motors[motor]
	state.velocityTarget = 0
	state.rampFrom = state.velocityActual
	state.rampPending = m.rampSteps
	state.movePending = 0
	return tmcl.StatusSuccess, 0
}

func (m *Module) move(typ, bank byte, value int32) (byte, int32) {
	if typ == tmcl.MoveCoordinate {
		if !m.coordinateValid(int(value)) {
			return tmcl.StatusValueInvalid, 0
		}
		if bank&(tmcl.MoveSynchronous|tmcl.MoveAsynchronous) == 0 {
			// Plain motor number, not a group bitmask.
			motor := int(bank)
			if !m.motorValid(motor) {
				return tmcl.StatusValueInvalid, 0
			}
			m.moveStart(motor, m.coordinates[motor][value])
			return tmcl.StatusSuccess, value
		}
		mask := bank &^ (tmcl.MoveSynchronous | tmcl.MoveAsynchronous)
		for motor := range m.motors {
			if mask&(1<<uint(motor)) == 0 {
				continue
			}
			m.moveStart(motor, m.coordinates[motor][value])
		}
		return tmcl.StatusSuccess, value
	}
	motor := int(bank)
	if !m.motorValid(motor) {
		return tmcl.StatusValueInvalid, 0
	}
	target := value
	if typ == tmcl.MoveRelative {
		target += m.motors[motor].positionActual
	} else if typ != tmcl.MoveAbsolute {
		return tmcl.StatusTypeWrong, 0
	}
	m.moveStart(motor, target)
	return tmcl.StatusSuccess, target
}

func (m *Module) moveStart(motor int, target int32) {
	state := m.motors[motor]
	state.params[tmcl.ParamRampMode] = tmcl.RampModePosition
	state.positionTarget = target
	state.positionReached = false
	state.movePending = m.moveSteps
	// Partway there until the move completes.
	state.positionActual += (target - state.positionActual) / 2
}

func (m *Module) axisSet(motor, parameter int, value int32) (byte, int32) {
	if !m.motorValid(motor) {
		return tmcl.StatusValueInvalid, 0
	}
	state := m.motors[motor]
	switch parameter {
	case tmcl.ParamPositionActual:
		state.positionActual = value
		state.positionTarget = value
		state.positionReached = true
	case tmcl.ParamPositionTarget:
		state.positionTarget = value
	case tmcl.ParamVelocityTarget:
		state.velocityTarget = value
	default:
		state.params[parameter] = value
	}
	return tmcl.StatusSuccess, value
}

func (m *Module) axisGet(motor, parameter int) (byte, int32) {
	if !m.motorValid(motor) {
		return tmcl.StatusValueInvalid, 0
	}
	state := m.motors[motor]
	switch parameter {
	case tmcl.ParamPositionTarget:
		return tmcl.StatusSuccess, state.positionTarget
	case tmcl.ParamPositionActual:
		return tmcl.StatusSuccess, state.positionActual
	case tmcl.ParamVelocityTarget:
		return tmcl.StatusSuccess, state.velocityTarget
	case tmcl.ParamVelocityActual:
		if state.rampPending > 0 {
			state.rampPending--
			ramping := state.rampFrom + (state.velocityTarget-state.rampFrom)/2
			return tmcl.StatusSuccess, ramping
		}
		state.velocityActual = state.velocityTarget
		return tmcl.StatusSuccess, state.velocityActual
	case tmcl.ParamPositionReached:
		if state.movePending > 0 {
			state.movePending--
			if state.movePending == 0 {
				state.positionReached = true
				state.positionActual = state.positionTarget
			}
			return tmcl.StatusSuccess, 0
		}
		if state.positionReached {
			return tmcl.StatusSuccess, 1
		}
		return tmcl.StatusSuccess, 0
	}
	return tmcl.StatusSuccess, state.params[parameter]
}

func (m *Module) portSet(bank, port int, value int32) (byte, int32) {
	switch bank {
	case tmcl.SIOBankPullup:
		m.pullups[port] = value
	case tmcl.SIOBankOutputDigital:
		m.outputsDigital[port] = value
	default:
		return tmcl.StatusTypeWrong, 0
	}
	return tmcl.StatusSuccess, value
}

func (m *Module) portGet(bank, port int) (byte, int32) {
	switch bank {
	case tmcl.GIOBankInputDigital:
		return tmcl.StatusSuccess, m.inputsDigital[port]
	case tmcl.GIOBankInputAnalog:
		return tmcl.StatusSuccess, m.inputsAnalog[port]
	case tmcl.GIOBankOutputDigital:
		return tmcl.StatusSuccess, m.outputsDigital[port]
	}
	return tmcl.StatusTypeWrong, 0
}

func (m *Module) reset() {
	for i := range m.motors {
		m.motors[i] = newMotorState()
	}
	m.globals = map[int]int32{}
	m.coordinates = [3][20]int32{}
	m.pullups = map[int]int32{0: 1}
	m.outputsDigital = map[int]int32{}
}
