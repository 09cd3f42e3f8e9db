package lora

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hegylabs/wlr089/wire"
)

// PacketHandler is called with the decoded payload of each received packet.
// It runs on the goroutine that called Receive.
type PacketHandler func(payload []byte)

// Receive arms continuous reception and blocks until the module reports a
// packet or an error, StopReceive is called, or the context is canceled.
// A valid packet is delivered to onPacket and ends the session: the module
// drops out of receive mode after every reception, so callers wanting a
// stream re-arm in a loop.
//
// While Receive runs, every other command on the Session is rejected with
// ErrReceiveRunning. StopReceive is the one exception.
func (s *Session) Receive(ctx context.Context, onPacket PacketHandler) error {
	s.mu.Lock()

	if s.receiving {
		s.mu.Unlock()
		return ErrReceiveRunning
	}
	if _, err := s.execLocked(ctx, wire.CmdRx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.log.Debug("receive armed", "port", s.portName)

	tr := s.tr
	s.stopRequested.Store(false)
	s.receiving = true
	s.mu.Unlock()

	err := s.receiveLoop(ctx, tr, onPacket)

	s.mu.Lock()
	s.receiving = false
	s.mu.Unlock()
	return err
}

// receiveLoop reads lines off the port until something ends the session.
// It runs without the Session lock; the receiving flag keeps ordinary
// exchanges off the transport meanwhile.
func (s *Session) receiveLoop(ctx context.Context, tr Transport, onPacket PacketHandler) error {
	for {
		raw, err := tr.ReadLine()
		if err != nil {
			return fmt.Errorf("read packet line: %w", err)
		}

		if raw != nil {
			line := string(bytes.TrimSpace(raw))
			switch wire.Classify(line) {
			case wire.TypeRxEvent:
				if payload, ok := wire.ParseRxEvent(line); ok {
					onPacket(payload)
					if s.stopRequested.Load() {
						drainLine(tr, onPacket)
					}
					return nil
				}
				// Malformed event, treat as line noise.
				s.log.Debug("discarding unparseable event", "line", line)
			case wire.TypeRadioErr:
				return ErrReceiveFailed
			default:
				if line != "" {
					s.log.Debug("discarding line", "line", line)
				}
			}
		}

		if s.stopRequested.Load() {
			drainLine(tr, onPacket)
			return nil
		}

		if err := ctx.Err(); err != nil {
			// Best effort: take the module out of receive mode so the
			// next exchange does not land on a still-armed radio.
			_, _ = tr.Write(wire.Line(wire.CmdRxStop))
			drainLine(tr, onPacket)
			return err
		}
	}
}

// drainLine reads at most one more line after a stop. A packet that arrived
// concurrently with the stop is still delivered; the stop acknowledgement
// is consumed so it cannot leak into the next exchange.
func drainLine(tr Transport, onPacket PacketHandler) {
	raw, err := tr.ReadLine()
	if err != nil || raw == nil {
		return
	}
	line := string(bytes.TrimSpace(raw))
	if payload, ok := wire.ParseRxEvent(line); ok {
		onPacket(payload)
	}
}

// StopReceive ends an active receive session after its current read. Called
// while no receive session runs, it performs an ordinary rxstop exchange
// and returns the module's response.
func (s *Session) StopReceive(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.receiving {
		return s.execLocked(ctx, wire.CmdRxStop)
	}
	if s.tr == nil {
		return "", ErrNotConnected
	}

	if _, err := s.tr.Write(wire.Line(wire.CmdRxStop)); err != nil {
		return "", fmt.Errorf("write command %q: %w", wire.CmdRxStop, err)
	}
	s.stopRequested.Store(true)
	return "", nil
}
