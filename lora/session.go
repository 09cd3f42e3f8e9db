// Package lora drives a Microchip WLR089U0 LoRa module over its serial
// command channel: port discovery, command/response exchanges with the
// dialect's settle-delay framing, parameter validation against the module's
// hardware limits, and the continuous-reception stream.
package lora

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hegylabs/wlr089/wire"
)

// Session owns at most one open serial port to a radio module and sequences
// every exchange on it. A Session starts closed; bind it with FindAndOpen or
// Open. All methods are safe for concurrent use, but only one exchange or
// one receive loop is ever in flight: the module's half-duplex text protocol
// cannot interleave.
type Session struct {
	// dialer enumerates and opens candidate serial ports
	dialer Dialer
	// settle is the wait between writing a command and reading the response
	settle time.Duration
	log    *slog.Logger

	// mu serializes the port lifecycle and every command/response exchange
	mu sync.Mutex
	// tr is the open transport, nil while the session is closed
	tr Transport
	// portName is the bound port, kept for logging and Port()
	portName string
	// receiving marks an active receive loop; ordinary exchanges are
	// rejected while it is set
	receiving bool
	// stopRequested asks the receive loop to exit after its current read
	stopRequested atomic.Bool
}

// New creates a closed Session from the given configuration. No I/O happens
// until the Session is opened.
func New(config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	return &Session{
		dialer: config.Dialer,
		settle: config.SettleDelay,
		log:    config.Logger,
	}, nil
}

// FindAndOpen probes every enumerated serial port in order and binds the
// Session to the first one whose version response contains the module
// identifier. Candidates that fail to open or answer with something else
// are closed and skipped; no further port is probed after a match. When no
// port matches, ErrDeviceNotFound is returned and the Session stays closed.
//
// An already open Session is closed before probing starts.
func (s *Session) FindAndOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.receiving {
		return ErrReceiveRunning
	}
	s.closeLocked()

	ports, err := s.dialer.Ports()
	if err != nil {
		return fmt.Errorf("enumerate ports: %w", err)
	}

	for _, name := range ports {
		if err := ctx.Err(); err != nil {
			return err
		}

		tr, err := s.dialer.Dial(ctx, name)
		if err != nil {
			s.log.Debug("candidate port failed to open", "port", name, "error", err)
			continue
		}

		s.tr = tr
		s.portName = name

		version, err := s.execLocked(ctx, wire.CmdSysVersion)
		if err == nil && strings.Contains(version, wire.Ident) {
			s.log.Info("module found", "port", name, "version", version)
			return nil
		}
		s.log.Debug("candidate port rejected", "port", name, "response", version, "error", err)
		s.closeLocked()
	}

	return ErrDeviceNotFound
}

// Open binds the Session to a specific port without the identifier probe.
// The caller vouches that the right device is attached. An already open
// Session is closed first.
func (s *Session) Open(ctx context.Context, portName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.receiving {
		return ErrReceiveRunning
	}
	s.closeLocked()

	tr, err := s.dialer.Dial(ctx, portName)
	if err != nil {
		return err
	}

	s.tr = tr
	s.portName = portName
	s.log.Info("port bound", "port", portName)
	return nil
}

// Close releases the serial port. Closing an already closed Session is a
// no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tr == nil {
		return nil
	}
	err := s.tr.Close()
	s.tr = nil
	s.portName = ""
	return err
}

// Port returns the bound serial port name, or "" while the Session is
// closed.
func (s *Session) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portName
}

// Exec performs one raw command/response exchange: write the framed command,
// wait the settle delay, then collect and trim whatever the module buffered.
//
// An empty response is not an error: the protocol cannot distinguish a
// silent module from one that answered slower than the settle delay.
func (s *Session) Exec(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execLocked(ctx, cmd)
}

func (s *Session) execLocked(ctx context.Context, cmd string) (string, error) {
	if s.tr == nil {
		return "", ErrNotConnected
	}
	if s.receiving {
		return "", ErrReceiveRunning
	}

	if _, err := s.tr.Write(wire.Line(cmd)); err != nil {
		return "", fmt.Errorf("write command %q: %w", cmd, err)
	}

	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	raw, err := s.tr.ReadAvailable()
	if err != nil {
		return "", fmt.Errorf("read response to %q: %w", cmd, err)
	}

	resp := strings.TrimSpace(string(raw))
	s.log.Debug("command exchange", "cmd", cmd, "response", resp)
	return resp, nil
}

// closeLocked releases the current transport, if any. Errors are logged,
// not returned: callers on this path are abandoning the handle anyway.
func (s *Session) closeLocked() {
	if s.tr == nil {
		return
	}
	if err := s.tr.Close(); err != nil {
		s.log.Debug("close transport", "port", s.portName, "error", err)
	}
	s.tr = nil
	s.portName = ""
}
