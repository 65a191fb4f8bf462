// mock-module serves a simulated TMCM-3110 over a Unix socket or TCP so
// the driver and tools can be exercised without hardware.
//
// Usage:
//
//	mock-module -socket /tmp/tmcm_module [-trace]
//	mock-module -tcp localhost:5555
//
// Options:
//
//	-socket string  Unix socket path to listen on
//	-tcp string     TCP address to listen on (alternative to -socket)
//	-address int    Module address (default: 1)
//	-trace          Log every TMCL frame
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"tmcm-go-migration/pkg/log"
	"tmcm-go-migration/pkg/simulator"
	"tmcm-go-migration/pkg/tmcl"
)

func main() {
	socket := flag.String("socket", "", "Unix socket path to listen on")
	tcp := flag.String("tcp", "", "TCP address to listen on")
	address := flag.Int("address", 1, "Module address")
	trace := flag.Bool("trace", false, "Log every TMCL frame")

	flag.Parse()

	logger := log.New("mock-module")
	if *trace {
		logger.SetLevel(log.DEBUG)
	}

	var listener net.Listener
	var err error
	switch {
	case *socket != "":
		os.Remove(*socket)
		listener, err = net.Listen("unix", *socket)
	case *tcp != "":
		listener, err = net.Listen("tcp", *tcp)
	default:
		fmt.Fprintln(os.Stderr, "Error: -socket or -tcp is required")
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()

	sim := simulator.New()
	sim.SetAddress(byte(*address))
	logger.Info("simulated TMCM-3110 at address %d listening on %s",
		*address, listener.Addr())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		listener.Close()
		if *socket != "" {
			os.Remove(*socket)
		}
		os.Exit(0)
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error("accept: %v", err)
			return
		}
		go serve(conn, sim, logger)
	}
}

// serve bridges one connection to the simulator, one request frame and at
// most one reply frame at a time.
func serve(conn net.Conn, sim *simulator.Module, logger *log.Logger) {
	defer conn.Close()
	logger.Info("client connected: %s", conn.RemoteAddr())
	frame := make([]byte, tmcl.FrameLength)
	reply := make([]byte, tmcl.FrameLength)
	for {
		if _, err := io.ReadFull(conn, frame); err != nil {
			if err != io.EOF {
				logger.Warn("read: %v", err)
			}
			logger.Info("client disconnected: %s", conn.RemoteAddr())
			return
		}
		logger.Debug("request %s % x", tmcl.CommandName(frame[1]), frame)
		if _, err := sim.Write(frame); err != nil {
			logger.Error("simulator write: %v", err)
			return
		}
		n, err := sim.Read(reply)
		if err == io.EOF {
			// Transmit-only command or frame addressed elsewhere.
			continue
		}
		if err != nil || n != tmcl.FrameLength {
			logger.Error("simulator read: %v", err)
			return
		}
		logger.Debug("reply   %s % x", tmcl.CommandName(reply[3]), reply)
		if _, err := conn.Write(reply); err != nil {
			logger.Warn("write: %v", err)
			return
		}
	}
}
