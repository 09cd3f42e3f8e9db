package lora

import (
	"io"
	"sync"
	"time"
)

// TestTransport is a test helper that simulates a module on the other end of
// a serial port. Written frames are recorded for assertion, queued responses
// are handed out by ReadAvailable, and ReadLine blocks on a channel the way
// a real port blocks on the wire until SendLine feeds it an event.
type TestTransport struct {
	mu        sync.Mutex
	responses [][]byte
	writes    [][]byte
	lines     chan []byte
	closed    bool

	// LineTimeout is how long ReadLine waits for a line before reporting
	// a timeout the way the real transport does, with (nil, nil).
	LineTimeout time.Duration
}

// NewTestTransport creates a new test transport.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		lines:       make(chan []byte, 16),
		LineTimeout: 20 * time.Millisecond,
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	frame := make([]byte, len(p))
	copy(frame, p)
	t.writes = append(t.writes, frame)
	return len(p), nil
}

func (t *TestTransport) ReadAvailable() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, io.ErrClosedPipe
	}
	if len(t.responses) == 0 {
		return nil, nil
	}
	resp := t.responses[0]
	t.responses = t.responses[1:]
	return resp, nil
}

func (t *TestTransport) ReadLine() ([]byte, error) {
	select {
	case line, ok := <-t.lines:
		if !ok {
			return nil, io.EOF
		}
		return line, nil
	case <-time.After(t.LineTimeout):
		return nil, nil
	}
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.lines)
	return nil
}

// Respond queues raw bytes for the next ReadAvailable call. This simulates
// the module's buffered answer to a command.
func (t *TestTransport) Respond(raw string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.responses = append(t.responses, []byte(raw))
	}
}

// SendLine queues one line for ReadLine. This simulates an asynchronous
// event arriving while reception is armed.
func (t *TestTransport) SendLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.lines <- []byte(line)
	}
}

// Writes returns every frame written so far, as strings.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.writes))
	for i, frame := range t.writes {
		out[i] = string(frame)
	}
	return out
}
