// tmcm-test is a command-line tool for exercising a TMCM module over a
// serial port. It can be used to verify connectivity, identify the module,
// inspect its state and run a short test motion.
//
// Usage:
//
//	tmcm-test -device /dev/ttyACM0 [options]
//
// Options:
//
//	-device string    Serial device path, Unix socket path, or TCP address (required, or use -list)
//	-baud int         Baud rate (default: 9600)
//	-address int      Module address (default: 1)
//	-model int        Expected model number, 0 accepts any (default: 3110)
//	-timeout duration Connection timeout (default: 5s)
//	-test string      Test to run: "identify", "status", "move", "switches", "io" (default: "identify")
//	-socket           Connect via Unix socket (for the module simulator)
//	-tcp              Connect via TCP (e.g., -device localhost:5555 -tcp)
//	-portable         Use the portable serial backend instead of termios
//	-list             List serial ports and exit
//	-verbose          Enable debug logging of the TMCL exchange
//
// Examples:
//
//	# Identify the module
//	tmcm-test -device /dev/ttyACM0 -test identify
//
//	# Run a short move on motor 0 and return
//	tmcm-test -device /dev/ttyACM0 -test move
//
//	# Connect to the module simulator via Unix socket
//	tmcm-test -device /tmp/tmcm_module -socket -test status -verbose
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tmcm-go-migration/pkg/log"
	"tmcm-go-migration/pkg/serial"
	"tmcm-go-migration/pkg/tmcm"
)

func main() {
	device := flag.String("device", "", "Serial device path, Unix socket path, or TCP address (host:port)")
	baud := flag.Int("baud", 9600, "Baud rate")
	address := flag.Int("address", tmcm.AddressDefault, "Module address")
	model := flag.Int("model", tmcm.ModelTMCM3110, "Expected model number, 0 accepts any")
	timeout := flag.Duration("timeout", 5*time.Second, "Connection timeout")
	test := flag.String("test", "identify", "Test to run: identify, status, move, switches, io")
	socket := flag.Bool("socket", false, "Connect via Unix socket (for the module simulator)")
	tcp := flag.Bool("tcp", false, "Connect via TCP (e.g., -device localhost:5555 -tcp)")
	portable := flag.Bool("portable", false, "Use the portable serial backend instead of termios")
	list := flag.Bool("list", false, "List serial ports and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging of the TMCL exchange")

	flag.Parse()

	if *list {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return
	}

	if *device == "" {
		fmt.Fprintln(os.Stderr, "Error: -device is required")
		flag.Usage()
		os.Exit(1)
	}

	port, err := openPort(*device, *baud, *timeout, *socket, *tcp, *portable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *device, err)
		os.Exit(1)
	}
	defer port.Close()

	if *test == "identify" {
		if err := testIdentify(port, *address); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("PASS")
		return
	}

	logger := log.New("tmcm-test")
	if *verbose {
		logger.SetLevel(log.DEBUG)
	}
	module, err := tmcm.Connect(port, *address, *model, tmcm.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
		os.Exit(1)
	}
	defer module.Close()

	switch *test {
	case "status":
		err = testStatus(module)
	case "move":
		err = testMove(module)
	case "switches":
		err = testSwitches(module)
	case "io":
		err = testIO(module)
	default:
		fmt.Fprintf(os.Stderr, "Unknown test: %s\n", *test)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("PASS")
}

func openPort(device string, baud int, timeout time.Duration, socket, tcp, portable bool) (serial.Port, error) {
	if socket {
		return serial.OpenSocket(device, timeout)
	}
	if tcp {
		return serial.OpenTCP(device, timeout)
	}
	config := serial.Config{
		Device:         device,
		BaudRate:       baud,
		ConnectTimeout: timeout,
		Portable:       portable,
	}
	return serial.Open(config)
}

func testIdentify(port serial.Port, address int) error {
	model, firmware, err := tmcm.Identify(port, address)
	if err != nil {
		return err
	}
	fmt.Printf("Module:   TMCM-%d\n", model)
	fmt.Printf("Address:  %d\n", address)
	fmt.Printf("Firmware: %d.%02d\n", firmware.Major, firmware.Minor)
	return nil
}

func testStatus(module *tmcm.Module) error {
	voltage, err := module.SupplyVoltage()
	if err != nil {
		return err
	}
	fmt.Printf("Model:             TMCM-%d\n", module.ModelNumber())
	fmt.Printf("Firmware:          %d.%02d\n",
		module.FirmwareVersion().Major, module.FirmwareVersion().Minor)
	fmt.Printf("Supply voltage:    %d mV\n", voltage)
	fmt.Printf("Heartbeat timeout: %d ms\n", module.HeartbeatTimeout())
	fmt.Printf("Current range:     %d..%d mA\n", module.CurrentMinimum(), module.CurrentMaximum())
	for _, motor := range module.Motors() {
		position, err := motor.Position()
		if err != nil {
			return err
		}
		moving, err := motor.Moving()
		if err != nil {
			return err
		}
		fmt.Printf("Motor %d:\n", motor.Number())
		fmt.Printf("  Position:             %d\n", position)
		fmt.Printf("  Moving:               %v\n", moving)
		fmt.Printf("  Microstep resolution: %d\n", motor.MicrostepResolution())
		fmt.Printf("  Velocity (moving):    %.3f fullsteps/s\n", motor.VelocityMoving())
		fmt.Printf("  Acceleration:         %.3f fullsteps/s^2\n", motor.AccelerationMoving())
		fmt.Printf("  Current moving:       %d mA\n", motor.CurrentMoving())
		fmt.Printf("  Current standby:      %d mA\n", motor.CurrentStandby())
	}
	return nil
}

func testMove(module *tmcm.Module) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	motor, err := module.Motor(0)
	if err != nil {
		return err
	}
	start, err := motor.Position()
	if err != nil {
		return err
	}
	// One full revolution of a 200-fullstep motor, out and back.
	distance := int32(200 * motor.MicrostepResolution())
	fmt.Printf("Moving motor 0 by %+d microsteps...\n", distance)
	if err := motor.MoveBy(ctx, distance, true); err != nil {
		return err
	}
	position, err := motor.Position()
	if err != nil {
		return err
	}
	fmt.Printf("Position after outward move: %d\n", position)
	fmt.Printf("Moving motor 0 by %+d microsteps...\n", -distance)
	if err := motor.MoveBy(ctx, -distance, true); err != nil {
		return err
	}
	position, err = motor.Position()
	if err != nil {
		return err
	}
	fmt.Printf("Position after return move:  %d (started at %d)\n", position, start)
	return nil
}

func testSwitches(module *tmcm.Module) error {
	fmt.Println("Polling switches for 10 seconds, activate them now...")
	deadline := time.Now().Add(10 * time.Second)
	last := make(map[string]bool)
	for time.Now().Before(deadline) {
		for _, motor := range module.Motors() {
			switches := []*tmcm.Switch{
				motor.SwitchLimitRight(),
				motor.SwitchLimitLeft(),
				motor.SwitchHome(),
			}
			for _, s := range switches {
				active, err := s.Active()
				if err != nil {
					return err
				}
				key := fmt.Sprintf("%d/%s", motor.Number(), s.Kind())
				if previous, seen := last[key]; !seen || previous != active {
					fmt.Printf("Motor %d %s switch: active=%v enabled=%v\n",
						motor.Number(), s.Kind(), active, s.Enabled())
					last[key] = active
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

func testIO(module *tmcm.Module) error {
	voltage, err := module.SupplyVoltage()
	if err != nil {
		return err
	}
	fmt.Printf("Supply voltage:      %d mV\n", voltage)
	fmt.Printf("Limit switch pullup: %v\n", module.SwitchLimitPullupEnabled())
	fmt.Printf("Limit activity:      %v\n", module.SwitchLimitActivity())
	return nil
}
