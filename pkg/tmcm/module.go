// Module facade: identification, global parameters, heartbeat, coordinates
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import (
	"sync"
	"sync/atomic"
	"time"

	"tmcm-go-migration/pkg/errors"
	"tmcm-go-migration/pkg/log"
	"tmcm-go-migration/pkg/tmcl"
)

// Address bounds and defaults of TMCL modules.
const (
	AddressDefault = 1
	AddressMinimum = 1
	AddressMaximum = 255

	// ModelIgnore makes Connect accept whatever model answers.
	ModelIgnore = 0

	// HeartbeatDisabled disables the module-side command timeout.
	HeartbeatDisabled = 0
	// HeartbeatTimeoutLimit is the maximum heartbeat timeout in
	// milliseconds.
	HeartbeatTimeoutLimit = 65535
)

// Motor current quantization shared by all models: a portion in [0, 255]
// stepped in 32 increments of 8.
const (
	currentPortions = 256
	currentSteps    = 32
	currentStepSize = currentPortions / currentSteps
)

// FirmwareVersion of a module as reported by the binary version query.
type FirmwareVersion struct {
	Major int
	Minor int
}

// Module represents one physical TMCM controller. It exclusively owns its
// Motors and coordinate slots and borrows the port from the caller.
// Mutating methods are not safe for concurrent use; the wire itself is
// serialized internally.
type Module struct {
	tr     *transceiver
	model  Model
	logger *log.Logger

	address  int
	firmware FirmwareVersion

	heartbeatTimeout  int // milliseconds
	heartbeatInterval atomic.Int64
	heartbeatKick     chan struct{}
	heartbeatStop     chan struct{}
	heartbeatWG       sync.WaitGroup

	switchLimitActivity bool
	switchLimitPullup   bool

	currentMinimum int
	currentMaximum int

	motors      []*Motor
	coordinates *Coordinates
}

func verifyAddress(address int) error {
	if address < AddressMinimum || address > AddressMaximum {
		return errors.AddressError(address)
	}
	return nil
}

func identifyPort(port Port, address int) (int, FirmwareVersion, error) {
	value, err := transceivePort(port, byte(address),
		tmcl.CmdFirmwareVersion, tmcl.FirmwareVersionBinary, 0, 0)
	if err != nil {
		return 0, FirmwareVersion{}, err
	}
	model := int(value>>16) & 0xFFFF
	version := FirmwareVersion{
		Major: int(value>>8) & 0xFF,
		Minor: int(value) & 0xFF,
	}
	return model, version, nil
}

// Identify reads the model number and firmware version of the module
// connected to the given port. One round trip, no side effects.
func Identify(port Port, address int) (int, FirmwareVersion, error) {
	if err := verifyAddress(address); err != nil {
		return 0, FirmwareVersion{}, err
	}
	return identifyPort(port, address)
}

// Connect identifies the module on the port and constructs the matching
// model-specific Module. A non-zero modelNumber is validated against the
// identified model. Construction reads the motor and switch state, so it
// costs several round trips.
func Connect(port Port, address, modelNumber int, opts ...Option) (*Module, error) {
	if err := verifyAddress(address); err != nil {
		return nil, err
	}
	identified, firmware, err := identifyPort(port, address)
	if err != nil {
		return nil, err
	}
	if modelNumber != ModelIgnore && modelNumber != identified {
		return nil, errors.ModelMismatchError(modelNumber, identified)
	}
	factory := lookupModel(identified)
	if factory == nil {
		return nil, errors.ModelUnsupportedError(identified)
	}
	model := factory()

	m := &Module{
		tr: &transceiver{
			port:    port,
			address: byte(address),
		},
		model:          model,
		logger:         log.Discard(),
		address:        address,
		firmware:       firmware,
		currentMinimum: model.CurrentMaximum() / currentSteps,
		currentMaximum: model.CurrentMaximum(),
	}
	m.tr.logger = m.logger
	for _, opt := range opts {
		opt(m)
	}

	timeout, err := m.globalParameterGet(tmcl.GlobalHeartbeatTimeout)
	if err != nil {
		return nil, err
	}
	m.heartbeatTimeout = int(timeout)
	m.heartbeatSetup(m.heartbeatTimeout)
	connected := false
	defer func() {
		if !connected {
			m.heartbeatSetup(HeartbeatDisabled)
		}
	}()

	polarity, err := m.globalParameterGet(tmcl.GlobalSwitchLimitPolarity)
	if err != nil {
		return nil, err
	}
	m.switchLimitActivity = polarity == 0

	// Pull-ups float the limit inputs high; start from a known state.
	if err := m.portPullupSet(model.SwitchLimitPullupPort(), false); err != nil {
		return nil, err
	}
	m.switchLimitPullup = false

	m.coordinates = &Coordinates{
		module:     m,
		count:      model.CoordinateCount(),
		motorCount: model.MotorCount(),
	}
	m.motors = make([]*Motor, model.MotorCount())
	for number := range m.motors {
		motor, err := newMotor(m, number)
		if err != nil {
			return nil, err
		}
		m.motors[number] = motor
	}

	connected = true
	m.logger.InfoFields(log.Fields{
		"model":    identified,
		"address":  address,
		"firmware": firmware,
	}, "module connected")
	return m, nil
}

// Close joins the heartbeat goroutine, if any. The port stays open; it
// belongs to the caller.
func (m *Module) Close() error {
	m.heartbeatSetup(HeartbeatDisabled)
	return nil
}

// Address returns the module address in [AddressMinimum, AddressMaximum].
func (m *Module) Address() int {
	return m.address
}

// ModelNumber returns the numeric model identifier, e.g. 3110.
func (m *Module) ModelNumber() int {
	return m.model.Number()
}

// FirmwareVersion returns the firmware version read at connect time.
func (m *Module) FirmwareVersion() FirmwareVersion {
	return m.firmware
}

// Motors returns the motors of the module, indexed by motor number.
func (m *Module) Motors() []*Motor {
	return m.motors
}

// Motor returns the motor with the given number.
func (m *Module) Motor(number int) (*Motor, error) {
	if number < 0 || number >= len(m.motors) {
		return nil, errors.RangeError("motor number", number, 0, len(m.motors)-1)
	}
	return m.motors[number], nil
}

// MotorCount returns the motor count of the module.
func (m *Module) MotorCount() int {
	return len(m.motors)
}

// CurrentMinimum returns the minimum motor current in milliamperes.
func (m *Module) CurrentMinimum() int {
	return m.currentMinimum
}

// CurrentMaximum returns the maximum motor current in milliamperes.
func (m *Module) CurrentMaximum() int {
	return m.currentMaximum
}

// FrequencyMinimum returns the minimum motor frequency in hertz.
func (m *Module) FrequencyMinimum() float64 {
	return m.model.FrequencyMinimum()
}

// FrequencyMaximum returns the maximum motor frequency in hertz.
func (m *Module) FrequencyMaximum() float64 {
	return m.model.FrequencyMaximum()
}

// Coordinates returns the coordinate slots of the module.
func (m *Module) Coordinates() *Coordinates {
	return m.coordinates
}

// CoordinateCount returns the coordinate slot count of the module.
func (m *Module) CoordinateCount() int {
	return m.coordinates.count
}

// HeartbeatTimeout returns the heartbeat timeout in milliseconds, zero when
// disabled.
func (m *Module) HeartbeatTimeout() int {
	return m.heartbeatTimeout
}

// SetHeartbeatTimeout sets the module-side command timeout in milliseconds
// and starts (or stops, for zero) the host-side keep-alive goroutine that
// sends a no-op whenever no command has gone out for half the timeout.
func (m *Module) SetHeartbeatTimeout(timeout int) error {
	if timeout == m.heartbeatTimeout {
		return nil
	}
	if timeout < 0 || timeout > HeartbeatTimeoutLimit {
		return errors.RangeError("heartbeat timeout", timeout, 0, HeartbeatTimeoutLimit)
	}
	if err := m.globalParameterSet(tmcl.GlobalHeartbeatTimeout, int32(timeout)); err != nil {
		return err
	}
	m.heartbeatSetup(timeout)
	m.heartbeatTimeout = timeout
	return nil
}

// SwitchLimitActivity returns true when the limit switches are active high.
func (m *Module) SwitchLimitActivity() bool {
	return m.switchLimitActivity
}

// SetSwitchLimitActivity sets whether the limit switches are active high.
func (m *Module) SetSwitchLimitActivity(activity bool) error {
	if activity == m.switchLimitActivity {
		return nil
	}
	polarity := int32(1)
	if activity {
		polarity = 0
	}
	if err := m.globalParameterSet(tmcl.GlobalSwitchLimitPolarity, polarity); err != nil {
		return err
	}
	m.switchLimitActivity = activity
	return nil
}

// SupplyVoltage returns the supply voltage of the module in millivolts.
func (m *Module) SupplyVoltage() (int, error) {
	value, err := m.portInputAnalogGet(m.model.SupplyVoltagePort())
	if err != nil {
		return 0, err
	}
	return m.model.SupplyVoltageScale() * int(value), nil
}

// SwitchLimitPullupEnabled returns whether the pull-up resistors of the
// limit switches are enabled. Disabled at connect time.
func (m *Module) SwitchLimitPullupEnabled() bool {
	return m.switchLimitPullup
}

// SetSwitchLimitPullupEnabled enables or disables the pull-up resistors of
// the limit switches.
func (m *Module) SetSwitchLimitPullupEnabled(enabled bool) error {
	if enabled == m.switchLimitPullup {
		return nil
	}
	if err := m.portPullupSet(m.model.SwitchLimitPullupPort(), enabled); err != nil {
		return err
	}
	m.switchLimitPullup = enabled
	return nil
}

// RestoreFactorySettings restores the factory settings of the module. The
// command is transmit-only: the module resets without answering, so the
// connection is unusable until it is reconnected.
func (m *Module) RestoreFactorySettings() error {
	return m.tr.transmit(tmcl.CmdRestoreFactorySettings, 0, 0, tmcl.RestoreFactorySettingsMagic)
}

// Current conversions shared by all models. External values are
// milliamperes; internal values are portions of the 256-portion range in
// steps of 8. External-to-internal floors to the next lower step.

func (m *Module) currentToInternal(value int) (int32, error) {
	if value < m.currentMinimum || value > m.currentMaximum {
		return 0, errors.RangeError("current", value, m.currentMinimum, m.currentMaximum)
	}
	portion := (value*currentPortions+currentPortions-1)/m.currentMaximum - currentStepSize
	return int32(portion), nil
}

func (m *Module) currentToExternal(portion int32) int {
	steps := (int(portion) + currentStepSize) / currentStepSize
	return m.currentMaximum * steps / currentSteps
}

// Device command helpers. Each is one serialized round trip.

func (m *Module) axisParameterSet(motor, parameter int, value int32) error {
	_, err := m.tr.transceive(tmcl.CmdSAP, byte(parameter), byte(motor), value)
	return err
}

func (m *Module) axisParameterGet(motor, parameter int) (int32, error) {
	return m.tr.transceive(tmcl.CmdGAP, byte(parameter), byte(motor), 0)
}

func (m *Module) globalParameterSet(parameter int, value int32) error {
	_, err := m.tr.transceive(tmcl.CmdSGP, byte(parameter), 0, value)
	return err
}

func (m *Module) globalParameterGet(parameter int) (int32, error) {
	return m.tr.transceive(tmcl.CmdGGP, byte(parameter), 0, 0)
}

func (m *Module) portPullupSet(port int, enabled bool) error {
	value := int32(0)
	if enabled {
		value = 1
	}
	_, err := m.tr.transceive(tmcl.CmdSIO, byte(port), tmcl.SIOBankPullup, value)
	return err
}

func (m *Module) portInputDigitalGet(port int) (bool, error) {
	value, err := m.tr.transceive(tmcl.CmdGIO, byte(port), tmcl.GIOBankInputDigital, 0)
	return value != 0, err
}

func (m *Module) portInputAnalogGet(port int) (int32, error) {
	return m.tr.transceive(tmcl.CmdGIO, byte(port), tmcl.GIOBankInputAnalog, 0)
}

func (m *Module) coordinateSet(motor, coordinate int, position int32) error {
	_, err := m.tr.transceive(tmcl.CmdSCO, byte(coordinate), byte(motor), position)
	return err
}

func (m *Module) coordinateGet(motor, coordinate int) (int32, error) {
	return m.tr.transceive(tmcl.CmdGCO, byte(coordinate), byte(motor), 0)
}

func (m *Module) motorRotateRight(motor int, velocity int32) error {
	_, err := m.tr.transceive(tmcl.CmdROR, 0, byte(motor), velocity)
	return err
}

func (m *Module) motorRotateLeft(motor int, velocity int32) error {
	_, err := m.tr.transceive(tmcl.CmdROL, 0, byte(motor), velocity)
	return err
}

func (m *Module) motorStop(motor int) error {
	_, err := m.tr.transceive(tmcl.CmdMST, 0, byte(motor), 0)
	return err
}

func (m *Module) motorMoveTo(motor int, position int32) error {
	_, err := m.tr.transceive(tmcl.CmdMVP, tmcl.MoveAbsolute, byte(motor), position)
	return err
}

func (m *Module) motorMoveBy(motor int, difference int32) error {
	_, err := m.tr.transceive(tmcl.CmdMVP, tmcl.MoveRelative, byte(motor), difference)
	return err
}

func (m *Module) motorMoveToCoordinate(motorBank byte, coordinate int) error {
	_, err := m.tr.transceive(tmcl.CmdMVP, tmcl.MoveCoordinate, motorBank, int32(coordinate))
	return err
}

// Heartbeat. One goroutine per module at most; any successful transceive
// kicks the idle clock, and an idle period of half the timeout triggers a
// no-op status query.

func (m *Module) heartbeatSetup(timeout int) {
	interval := time.Duration(timeout) * time.Millisecond / 2
	active := m.heartbeatStop != nil
	activate := timeout != HeartbeatDisabled
	m.heartbeatInterval.Store(int64(interval))

	if activate == active {
		if active {
			// Restart the idle clock with the new interval.
			select {
			case m.heartbeatKick <- struct{}{}:
			default:
			}
		}
		return
	}
	if activate {
		m.heartbeatKick = make(chan struct{}, 1)
		m.heartbeatStop = make(chan struct{})
		m.tr.setKick(m.kickHeartbeat)
		m.heartbeatWG.Add(1)
		go m.heartbeatLoop()
	} else {
		close(m.heartbeatStop)
		m.heartbeatWG.Wait()
		m.tr.setKick(nil)
		m.heartbeatKick = nil
		m.heartbeatStop = nil
	}
}

func (m *Module) kickHeartbeat() {
	select {
	case m.heartbeatKick <- struct{}{}:
	default:
	}
}

func (m *Module) heartbeatLoop() {
	defer m.heartbeatWG.Done()
	timer := time.NewTimer(time.Duration(m.heartbeatInterval.Load()))
	defer timer.Stop()
	for {
		select {
		case <-m.heartbeatStop:
			return
		case <-m.heartbeatKick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(time.Duration(m.heartbeatInterval.Load()))
		case <-timer.C:
			if _, err := m.tr.transceive(tmcl.CmdApplicationStatus, 0, 0, 0); err != nil {
				m.logger.Warn("heartbeat failed: %v", err)
			}
			timer.Reset(time.Duration(m.heartbeatInterval.Load()))
		}
	}
}

// Coordinates addresses the module-resident coordinate slots as one vector
// per slot, one position per motor. Values pass through each motor's
// direction transform, so they agree with per-motor coordinate access.
type Coordinates struct {
	module     *Module
	count      int
	motorCount int
}

// Count returns the number of coordinate slots.
func (c *Coordinates) Count() int {
	return c.count
}

func (c *Coordinates) verifyNumber(number int) error {
	if number < 0 || number >= c.count {
		return errors.RangeError("coordinate number", number, 0, c.count-1)
	}
	return nil
}

// Get reads the position vector of a coordinate slot, one entry per motor.
func (c *Coordinates) Get(number int) ([]int32, error) {
	if err := c.verifyNumber(number); err != nil {
		return nil, err
	}
	positions := make([]int32, c.motorCount)
	for motor := range positions {
		value, err := c.module.motors[motor].Coordinate(number)
		if err != nil {
			return nil, err
		}
		positions[motor] = value
	}
	return positions, nil
}

// Set writes the position vector of a coordinate slot, one entry per motor.
func (c *Coordinates) Set(number int, positions []int32) error {
	if err := c.verifyNumber(number); err != nil {
		return err
	}
	if len(positions) != c.motorCount {
		return errors.RangeError("position count", len(positions), c.motorCount, c.motorCount)
	}
	for motor, position := range positions {
		if err := c.module.motors[motor].SetCoordinate(number, position); err != nil {
			return err
		}
	}
	return nil
}
