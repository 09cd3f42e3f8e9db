package lora_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	gomock "go.uber.org/mock/gomock"

	"github.com/hegylabs/wlr089/lora"
)

// versionBanner is the identification string a real module prints.
const versionBanner = "WLR089 1.0.2 Apr  4 2020 14:20:01"

// testLogger keeps session chatter out of test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestSession binds a session to the given transport on a fixed port
// name, with a short settle delay so exchanges return quickly.
func openTestSession(t *testing.T, tr lora.Transport) *lora.Session {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockDialer := lora.NewMockDialer(ctrl)
	mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyUSB0").Return(tr, nil)

	config, err := lora.NewConfigBuilder().
		WithDialer(mockDialer).
		WithSettleDelay(time.Millisecond).
		WithLogger(testLogger()).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	s, err := lora.New(config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	if err := s.Open(context.Background(), "/dev/ttyUSB0"); err != nil {
		t.Fatalf("unexpected error from Open(): %v", err)
	}
	return s
}
