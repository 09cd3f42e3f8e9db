package lora

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the module's UART default.
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds a single blocking read on the port, so a
	// read never hangs forever on a silent module.
	DefaultReadTimeout = 500 * time.Millisecond

	// drainPoll is the short read timeout used while collecting an already
	// buffered response. One poll interval of silence means the channel is
	// drained.
	drainPoll = 10 * time.Millisecond
)

// Transport is an established byte channel to the radio module.
//
// A Transport is assumed to be already connected and ready for use. The two
// read primitives serve the protocol's two incompatible read patterns:
// ReadAvailable collects a settled command response, ReadLine feeds the
// streaming receive loop. Typical implementations are serial ports and
// in-memory fakes used for testing.
type Transport interface {
	// Write sends raw bytes down the channel. Callers are responsible for
	// line framing.
	Write(p []byte) (n int, err error)

	// ReadAvailable returns everything currently buffered on the channel,
	// waiting at most one short poll interval for the buffer to run dry.
	// An empty result with a nil error means the module sent nothing.
	ReadAvailable() ([]byte, error)

	// ReadLine blocks until a full LF-terminated line arrives or the
	// channel's read timeout expires. The line is returned without its
	// terminator; a nil line with a nil error means the timeout passed
	// without a complete line. Partial lines are kept for the next call.
	ReadLine() ([]byte, error)

	// Close releases the channel. Closing twice is safe.
	Close() error
}

// Dialer enumerates candidate serial ports and opens a Transport on one.
//
// Dialer abstracts how the module connection is created (a physical serial
// port or a test double) and is consulted by the Session during discovery
// and explicit opens only.
type Dialer interface {
	// Ports returns the candidate port names in a stable order, so that
	// repeated discovery runs probe the same sequence.
	Ports() ([]string, error)

	// Dial opens the named port and returns a connected Transport. It may
	// perform blocking operations and should respect cancellation provided
	// by the context.
	Dial(ctx context.Context, portName string) (Transport, error)
}

// SerialDialer opens physical serial ports with the module's line settings.
type SerialDialer struct {
	// BaudRate used when Mode is nil. Defaults to DefaultBaudRate.
	BaudRate int
	// ReadTimeout applied to every opened port. Defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
	// Mode overrides the port mode entirely when set.
	Mode *serial.Mode
}

var _ Dialer = SerialDialer{}

// Ports lists the system's serial ports, sorted by name.
func (d SerialDialer) Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("lora: enumerate serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Dial opens portName in 8N1 mode at the configured baud rate, applies the
// read timeout and discards whatever the module emitted before we attached.
func (d SerialDialer) Dial(ctx context.Context, portName string) (Transport, error) {
	if portName == "" {
		return nil, errors.New("lora: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("lora: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("lora: open %s: %w", portName, err)
	}

	timeout := d.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("lora: set read timeout on %s: %w", portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("lora: reset input buffer on %s: %w", portName, err)
	}

	return &serialPort{port: port, readTimeout: timeout}, nil
}

// IsDisconnect reports whether err means the serial device itself is gone,
// as opposed to a transient I/O failure on a port that still exists.
// Unplugging a USB adapter mid-session surfaces as one of these codes.
func IsDisconnect(err error) bool {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return false
	}
	switch portErr.Code() {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	}
	return false
}

// serialPort adapts a go.bug.st/serial port to the Transport contract.
// pending holds bytes read past a line boundary so they are never lost
// between calls.
type serialPort struct {
	port        serial.Port
	readTimeout time.Duration
	pending     []byte
}

var _ Transport = (*serialPort)(nil)

func (t *serialPort) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *serialPort) ReadAvailable() ([]byte, error) {
	out := t.pending
	t.pending = nil

	// Poll with a short timeout so an already settled response is returned
	// promptly. The port's Read yields (0, nil) when the timeout passes
	// without data.
	if err := t.port.SetReadTimeout(drainPoll); err != nil {
		return out, err
	}
	defer func() { _ = t.port.SetReadTimeout(t.readTimeout) }()

	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

func (t *serialPort) ReadLine() ([]byte, error) {
	for {
		if i := bytes.IndexByte(t.pending, '\n'); i >= 0 {
			line := append([]byte(nil), t.pending[:i]...)
			line = bytes.TrimSuffix(line, []byte("\r"))
			t.pending = t.pending[i+1:]
			return line, nil
		}

		buf := make([]byte, 256)
		n, err := t.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		t.pending = append(t.pending, buf[:n]...)
	}
}

func (t *serialPort) Close() error {
	return t.port.Close()
}
