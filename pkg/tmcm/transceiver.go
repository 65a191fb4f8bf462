// TMCL command transceiver
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcm

import (
	"io"
	"sync"

	"tmcm-go-migration/pkg/errors"
	"tmcm-go-migration/pkg/log"
	"tmcm-go-migration/pkg/tmcl"
)

// transceiver pairs each request with exactly one reply over the port. The
// mutex is the single serialization point for all device commands of a
// Module, including the heartbeat goroutine's no-ops.
type transceiver struct {
	mu      sync.Mutex
	port    Port
	address byte
	logger  *log.Logger

	// kick is notified after every successful exchange so the heartbeat
	// idle clock restarts. Set by the Module once the heartbeat exists.
	// Guarded by mu.
	kick func()
}

func (t *transceiver) setKick(fn func()) {
	t.mu.Lock()
	t.kick = fn
	t.mu.Unlock()
}

// transceivePort performs one request/reply exchange on a bare port. Used
// directly by Identify before any Module exists; transceiver.transceive
// wraps it with locking and heartbeat bookkeeping.
func transceivePort(port Port, address, command, typ, bank byte, value int32) (int32, error) {
	req := tmcl.Request{
		Address: address,
		Command: command,
		Type:    typ,
		Bank:    bank,
		Value:   value,
	}
	if _, err := port.Write(req.Encode()); err != nil {
		return 0, errors.TransportError("transmit request", err)
	}

	buf := make([]byte, tmcl.FrameLength)
	if _, err := io.ReadFull(port, buf); err != nil {
		return 0, errors.TransportError("receive reply", err)
	}

	reply, err := tmcl.DecodeReply(buf)
	if err != nil {
		return 0, err
	}
	if reply.ModuleAddress != address {
		return 0, errors.Newf(errors.ErrInternal,
			"reply from address %d, expected %d", reply.ModuleAddress, address)
	}
	switch reply.Status {
	case tmcl.StatusChecksumWrong:
		return 0, errors.ChecksumRequestError()
	case tmcl.StatusSuccess, tmcl.StatusCommandLoaded:
	default:
		return 0, errors.Newf(errors.ErrInternal,
			"command %s rejected with status %d", tmcl.CommandName(command), reply.Status)
	}
	if reply.Command != command {
		return 0, errors.Newf(errors.ErrInternal,
			"reply echoes command %d, sent %s", reply.Command, tmcl.CommandName(command))
	}
	return reply.Value, nil
}

// transmitPort sends a request without reading a reply. Only the factory
// reset uses this: the module restarts instead of answering.
func transmitPort(port Port, address, command, typ, bank byte, value int32) error {
	req := tmcl.Request{
		Address: address,
		Command: command,
		Type:    typ,
		Bank:    bank,
		Value:   value,
	}
	if _, err := port.Write(req.Encode()); err != nil {
		return errors.TransportError("transmit request", err)
	}
	return nil
}

func (t *transceiver) transceive(command, typ, bank byte, value int32) (int32, error) {
	t.mu.Lock()
	result, err := transceivePort(t.port, t.address, command, typ, bank, value)
	kick := t.kick
	t.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if t.logger != nil {
		t.logger.DebugFields(log.Fields{
			"command": tmcl.CommandName(command),
			"type":    typ,
			"bank":    bank,
			"value":   value,
			"reply":   result,
		}, "transceive")
	}
	if kick != nil {
		kick()
	}
	return result, nil
}

func (t *transceiver) transmit(command, typ, bank byte, value int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return transmitPort(t.port, t.address, command, typ, bank, value)
}
