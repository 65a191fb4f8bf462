// Serial port transport for TMCM modules
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package serial provides the byte transport used to reach TMCM modules.
//
// On Linux and macOS the native termios implementation is used so that RS-485
// adapters with non-standard baud rates work. On other platforms, and when a
// caller asks for it explicitly, a portable implementation backed by
// go.bug.st/serial is used instead. Unix-socket and TCP transports exist for
// talking to a simulated module.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	bugst "go.bug.st/serial"
)

// Common errors
var (
	ErrNotConnected = errors.New("serial: not connected")
	ErrTimeout      = errors.New("serial: operation timed out")
	ErrClosed       = errors.New("serial: port closed")
	ErrUnsupported  = errors.New("serial: not supported on this platform")
)

// Port is a byte stream to a module.
type Port interface {
	io.ReadWriteCloser

	// Device returns the device path or address the port was opened with.
	Device() string

	// SetReadTimeout sets the timeout applied to subsequent Read calls.
	SetReadTimeout(d time.Duration)

	// Flush discards any pending input and output.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., /dev/ttyUSB0, /dev/ttyACM0)
	Device string

	// Baud rate (default: 9600, the TMCM factory setting)
	BaudRate int

	// Connection timeout (default: 5 seconds)
	ConnectTimeout time.Duration

	// Read timeout for individual operations (default: 1 second)
	ReadTimeout time.Duration

	// RTS/DTR control on connect
	RTSOnConnect bool
	DTROnConnect bool

	// Portable forces the go.bug.st/serial backend even where a native
	// termios implementation exists.
	Portable bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaudRate:       9600,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    time.Second,
		RTSOnConnect:   true,
		DTROnConnect:   true,
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Device == "" {
		return errors.New("serial: device path required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Second
	}
	return nil
}

// Open opens a serial port with the given configuration, preferring the
// native termios backend where one exists.
func Open(cfg Config) (Port, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if cfg.Portable || !hasNative {
		return openPortable(cfg)
	}
	return openNative(cfg)
}

// OpenPortable opens a serial port using the go.bug.st/serial backend.
func OpenPortable(cfg Config) (Port, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return openPortable(cfg)
}

// portablePort wraps a go.bug.st/serial port.
type portablePort struct {
	port   bugst.Port
	device string
}

func openPortable(cfg Config) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}
	if err := port.SetRTS(cfg.RTSOnConnect); err == nil {
		// Some USB adapters don't support modem control - not fatal
		_ = port.SetDTR(cfg.DTROnConnect)
	}
	return &portablePort{port: port, device: cfg.Device}, nil
}

func (p *portablePort) Read(buf []byte) (int, error) {
	n, err := p.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("serial: read: %w", err)
	}
	if n == 0 {
		// go.bug.st signals a read timeout as (0, nil)
		return 0, ErrTimeout
	}
	return n, nil
}

func (p *portablePort) Write(buf []byte) (int, error) {
	n, err := p.port.Write(buf)
	if err != nil {
		return n, fmt.Errorf("serial: write: %w", err)
	}
	return n, nil
}

func (p *portablePort) Close() error {
	return p.port.Close()
}

func (p *portablePort) Device() string {
	return p.device
}

func (p *portablePort) SetReadTimeout(d time.Duration) {
	_ = p.port.SetReadTimeout(d)
}

func (p *portablePort) Flush() error {
	if err := p.port.ResetInputBuffer(); err != nil {
		return err
	}
	return p.port.ResetOutputBuffer()
}

// ListPorts returns the available serial port device paths, sorted.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial: list ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// ReadFull reads exactly len(buf) bytes from the port, looping over short
// reads. The port's read timeout applies to each underlying read.
func ReadFull(p Port, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := p.Read(buf[total:])
		total += n
		if err != nil {
			if total > 0 && errors.Is(err, ErrTimeout) {
				return fmt.Errorf("serial: short read (%d of %d bytes): %w",
					total, len(buf), err)
			}
			return err
		}
	}
	return nil
}

// splitHostPort splits an address of the form "host:port" into host and port.
func splitHostPort(address string) (string, string, error) {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == ':' {
			return address[:i], address[i+1:], nil
		}
	}
	return "", "", errors.New("missing port in address")
}

// parsePort parses a port string to an integer.
func parsePort(s string) (int, error) {
	if s == "" {
		return 0, errors.New("invalid port number")
	}
	var port int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("invalid port number")
		}
		port = port*10 + int(c-'0')
	}
	if port == 0 || port > 65535 {
		return 0, errors.New("port out of range")
	}
	return port, nil
}

// resolveHost resolves a host string to an IPv4 address.
func resolveHost(host string) ([]byte, error) {
	if host == "localhost" || host == "" {
		return []byte{127, 0, 0, 1}, nil
	}

	ip := make([]byte, 4)
	parts := 0
	val := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			if parts >= 4 || val > 255 {
				return nil, errors.New("invalid IP address")
			}
			ip[parts] = byte(val)
			parts++
			val = 0
		} else if host[i] >= '0' && host[i] <= '9' {
			val = val*10 + int(host[i]-'0')
		} else {
			return nil, errors.New("hostname resolution not supported, use IP address")
		}
	}
	if parts != 4 {
		return nil, errors.New("invalid IP address format")
	}
	return ip, nil
}
