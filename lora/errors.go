package lora

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// enumerate and open serial ports.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotConnected is returned when a command is issued on a Session that
	// is not bound to an open port.
	//
	// Open the Session with FindAndOpen or Open first.
	ErrNotConnected = errors.New("not connected to a module")

	// ErrDeviceNotFound is returned when discovery probed every enumerated
	// serial port without finding a module that identifies itself.
	ErrDeviceNotFound = errors.New("no module found on any serial port")

	// ErrInvalidParameter is returned when a command parameter falls outside
	// the module's documented hardware limits.
	//
	// The command is rejected before anything is written to the wire, so the
	// module state is unaffected. Use errors.Is to test for it; the wrapped
	// message carries the offending value and the documented limit.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrReceiveRunning is returned when an ordinary command is issued while
	// the receive loop owns the transport, or when Receive is called twice.
	//
	// Response framing for ordinary commands and line-oriented packet reads
	// cannot share the channel. Call StopReceive first.
	ErrReceiveRunning = errors.New("receive loop running")

	// ErrReceiveFailed is returned when the module ends continuous reception
	// with its error event, typically because the watchdog timer fired before
	// a valid packet arrived.
	ErrReceiveFailed = errors.New("reception failed or watchdog expired")
)
