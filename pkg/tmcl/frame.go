// TMCL frame encoding, decoding and checksum validation
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package tmcl implements the TMCL binary command protocol used by
// Trinamic TMCM controller modules.
//
// Every exchange is one request frame followed by exactly one reply frame.
// Both directions use the same fixed 9-byte layout with a trailing modulo-256
// checksum over the first eight bytes.
package tmcl

import (
	"encoding/binary"

	"tmcm-go-migration/pkg/errors"
)

// FrameLength is the size of every TMCL request and reply frame in bytes.
const FrameLength = 9

// Mnemonic command numbers.
const (
	CmdROR = 1  // Rotate right
	CmdROL = 2  // Rotate left
	CmdMST = 3  // Motor stop
	CmdMVP = 4  // Move to position
	CmdSAP = 5  // Set axis parameter
	CmdGAP = 6  // Get axis parameter
	CmdSGP = 9  // Set global parameter
	CmdGGP = 10 // Get global parameter
	CmdSIO = 14 // Set input/output
	CmdGIO = 15 // Get input/output
	CmdSCO = 30 // Set coordinate
	CmdGCO = 31 // Get coordinate
)

// Control command numbers.
const (
	CmdApplicationStatus      = 135
	CmdFirmwareVersion        = 136
	CmdRestoreFactorySettings = 137
)

// Reply status codes.
const (
	StatusChecksumWrong      = 1
	StatusCommandInvalid     = 2
	StatusTypeWrong          = 3
	StatusValueInvalid       = 4
	StatusStorageLocked      = 5
	StatusCommandUnavailable = 6
	StatusSuccess            = 100
	StatusCommandLoaded      = 101
)

// MVP type numbers.
const (
	MoveAbsolute   = 0
	MoveRelative   = 1
	MoveCoordinate = 2
)

// MVP COORD bank flags for simultaneous multi-axis moves. The low bits of
// the bank byte carry the motor-number bitmask.
const (
	MoveSynchronous  = 0x40
	MoveAsynchronous = 0x80
)

// FirmwareVersionBinary is the type selector that makes CmdFirmwareVersion
// reply in binary format (model in bits 16-31, version in bits 0-15).
const FirmwareVersionBinary = 1

// RestoreFactorySettingsMagic must be sent in the value field of
// CmdRestoreFactorySettings for the module to accept it.
const RestoreFactorySettingsMagic = 1234

// Request is a command frame sent from the host to a module.
type Request struct {
	Address byte
	Command byte
	Type    byte
	Bank    byte
	Value   int32
}

// Reply is a frame received from a module in answer to a request. HostAddress
// echoes the reply address the module is configured with; ModuleAddress is
// the address of the answering module. Command echoes the request's command
// number.
type Reply struct {
	HostAddress   byte
	ModuleAddress byte
	Status        byte
	Command       byte
	Value         int32
}

// Checksum returns the TMCL checksum of data: the low byte of the byte sum.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Encode serializes the request into a 9-byte frame, value big-endian.
func (r Request) Encode() []byte {
	buf := make([]byte, FrameLength)
	buf[0] = r.Address
	buf[1] = r.Command
	buf[2] = r.Type
	buf[3] = r.Bank
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.Value))
	buf[8] = Checksum(buf[:8])
	return buf
}

// DecodeReply parses a 9-byte reply frame. The checksum is validated before
// anything else is interpreted: a torn frame's status byte is meaningless,
// so a mismatch yields a CHECKSUM_REPLY error and no further decoding.
func DecodeReply(buf []byte) (Reply, error) {
	if len(buf) != FrameLength {
		return Reply{}, errors.Newf(errors.ErrInternal,
			"reply frame length %d, want %d", len(buf), FrameLength)
	}
	if Checksum(buf[:8]) != buf[8] {
		return Reply{}, errors.ChecksumReplyError()
	}
	return Reply{
		HostAddress:   buf[0],
		ModuleAddress: buf[1],
		Status:        buf[2],
		Command:       buf[3],
		Value:         int32(binary.BigEndian.Uint32(buf[4:8])),
	}, nil
}
