package lora_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/hegylabs/wlr089/lora"
)

func buildTestConfig(t *testing.T, dialer lora.Dialer) lora.Config {
	t.Helper()

	config, err := lora.NewConfigBuilder().
		WithDialer(dialer).
		WithSettleDelay(time.Millisecond).
		WithLogger(testLogger()).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	return config
}

func TestFindAndOpen(t *testing.T) {
	verLine := []byte("sys get ver\r\n")

	t.Run("Binds the first matching port and stops probing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		first := lora.NewMockTransport(ctrl)
		second := lora.NewMockTransport(ctrl)

		// A GSM modem answers on the first port; the module is on the
		// second. The third port must never be dialed.
		gomock.InOrder(
			mockDialer.EXPECT().Ports().Return([]string{"/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2"}, nil),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyACM0").Return(first, nil),
			first.EXPECT().Write(verLine).Return(len(verLine), nil),
			first.EXPECT().ReadAvailable().Return([]byte("ERROR\r\n"), nil),
			first.EXPECT().Close().Return(nil),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyACM1").Return(second, nil),
			second.EXPECT().Write(verLine).Return(len(verLine), nil),
			second.EXPECT().ReadAvailable().Return([]byte(versionBanner+"\r\n"), nil),
		)

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		if err := s.FindAndOpen(context.Background()); err != nil {
			t.Errorf("unexpected error from FindAndOpen(): %v", err)
		}
		if s.Port() != "/dev/ttyACM1" {
			t.Errorf("expected session bound to /dev/ttyACM1, got: %q", s.Port())
		}

		// Clean up
		second.EXPECT().Close().Return(nil)
		if err := s.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
	})

	t.Run("ErrDeviceNotFound when nothing matches", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		first := lora.NewMockTransport(ctrl)
		second := lora.NewMockTransport(ctrl)

		gomock.InOrder(
			mockDialer.EXPECT().Ports().Return([]string{"/dev/ttyS0", "/dev/ttyS1"}, nil),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyS0").Return(first, nil),
			first.EXPECT().Write(verLine).Return(len(verLine), nil),
			first.EXPECT().ReadAvailable().Return(nil, nil),
			first.EXPECT().Close().Return(nil),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyS1").Return(second, nil),
			second.EXPECT().Write(verLine).Return(len(verLine), nil),
			second.EXPECT().ReadAvailable().Return([]byte("RN2483 1.0.1\r\n"), nil),
			second.EXPECT().Close().Return(nil),
		)

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		err = s.FindAndOpen(context.Background())
		if !errors.Is(err, lora.ErrDeviceNotFound) {
			t.Errorf("expected ErrDeviceNotFound, got: %v", err)
		}
		if s.Port() != "" {
			t.Errorf("expected session to stay closed, got port: %q", s.Port())
		}
	})

	t.Run("ErrDeviceNotFound when no ports exist", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		mockDialer.EXPECT().Ports().Return([]string{}, nil)

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		err = s.FindAndOpen(context.Background())
		if !errors.Is(err, lora.ErrDeviceNotFound) {
			t.Errorf("expected ErrDeviceNotFound, got: %v", err)
		}
	})

	t.Run("Skips ports that fail to open", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		second := lora.NewMockTransport(ctrl)

		gomock.InOrder(
			mockDialer.EXPECT().Ports().Return([]string{"/dev/ttyACM0", "/dev/ttyACM1"}, nil),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyACM0").Return(nil, errors.New("permission denied")),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyACM1").Return(second, nil),
			second.EXPECT().Write(verLine).Return(len(verLine), nil),
			second.EXPECT().ReadAvailable().Return([]byte(versionBanner+"\r\n"), nil),
		)

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		if err := s.FindAndOpen(context.Background()); err != nil {
			t.Errorf("unexpected error from FindAndOpen(): %v", err)
		}
		if s.Port() != "/dev/ttyACM1" {
			t.Errorf("expected session bound to /dev/ttyACM1, got: %q", s.Port())
		}

		second.EXPECT().Close().Return(nil)
		if err := s.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
	})

	t.Run("Wraps port enumeration errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		mockDialer.EXPECT().Ports().Return(nil, errors.New("no permission"))

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		err = s.FindAndOpen(context.Background())
		if err == nil {
			t.Fatal("expected error from FindAndOpen()")
		}
		if !strings.Contains(err.Error(), "enumerate ports") {
			t.Errorf("expected enumeration error to be wrapped, got: %v", err)
		}
	})

	t.Run("Canceled context stops the probe", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		mockDialer.EXPECT().Ports().Return([]string{"/dev/ttyACM0"}, nil)

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = s.FindAndOpen(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})
}

func TestSessionExec(t *testing.T) {
	t.Run("Frames the command and trims the response", func(t *testing.T) {
		tr := lora.NewTestTransport()
		s := openTestSession(t, tr)
		defer s.Close()

		tr.Respond("\r\nok\r\n")

		resp, err := s.Exec(context.Background(), "radio set pwr 2")
		if err != nil {
			t.Fatalf("unexpected error from Exec(): %v", err)
		}
		if resp != "ok" {
			t.Errorf("expected trimmed response %q, got: %q", "ok", resp)
		}

		writes := tr.Writes()
		if len(writes) != 1 || writes[0] != "radio set pwr 2\r\n" {
			t.Errorf("expected single framed command, got: %v", writes)
		}
	})

	t.Run("Empty response is not an error", func(t *testing.T) {
		tr := lora.NewTestTransport()
		s := openTestSession(t, tr)
		defer s.Close()

		resp, err := s.Exec(context.Background(), "sys sleep standby 60000")
		if err != nil {
			t.Fatalf("unexpected error from Exec(): %v", err)
		}
		if resp != "" {
			t.Errorf("expected empty response, got: %q", resp)
		}
	})

	t.Run("ErrNotConnected before any port is bound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		_, err = s.Exec(context.Background(), "sys get ver")
		if !errors.Is(err, lora.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})

	t.Run("ErrNotConnected after Close", func(t *testing.T) {
		tr := lora.NewTestTransport()
		s := openTestSession(t, tr)

		if err := s.Close(); err != nil {
			t.Fatalf("unexpected error from Close(): %v", err)
		}

		_, err := s.Exec(context.Background(), "sys get ver")
		if !errors.Is(err, lora.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})

	t.Run("Canceled context interrupts the settle wait", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tr := lora.NewTestTransport()
		mockDialer := lora.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyUSB0").Return(tr, nil)

		// A settle delay far beyond the test deadline: only cancellation
		// can end the exchange.
		config, err := lora.NewConfigBuilder().
			WithDialer(mockDialer).
			WithSettleDelay(time.Minute).
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
		defer s.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = s.Exec(ctx, "sys get ver")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})
}

func TestSessionClose(t *testing.T) {
	t.Run("Close is idempotent", func(t *testing.T) {
		tr := lora.NewTestTransport()
		s := openTestSession(t, tr)

		if err := s.Close(); err != nil {
			t.Errorf("unexpected error from first Close(): %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("unexpected error from second Close(): %v", err)
		}
	})

	t.Run("Open closes the previously bound port", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		first := lora.NewMockTransport(ctrl)
		second := lora.NewTestTransport()

		gomock.InOrder(
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyUSB0").Return(first, nil),
			first.EXPECT().Close().Return(nil),
			mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyACM0").Return(second, nil),
		)

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		if err := s.Open(context.Background(), "/dev/ttyUSB0"); err != nil {
			t.Fatalf("unexpected error from first Open(): %v", err)
		}
		if err := s.Open(context.Background(), "/dev/ttyACM0"); err != nil {
			t.Fatalf("unexpected error from second Open(): %v", err)
		}
		if s.Port() != "/dev/ttyACM0" {
			t.Errorf("expected session bound to /dev/ttyACM0, got: %q", s.Port())
		}
	})

	t.Run("Dial failure leaves the session closed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := lora.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any(), "/dev/ttyUSB0").Return(nil, errors.New("device busy"))

		s, err := lora.New(buildTestConfig(t, mockDialer))
		if err != nil {
			t.Fatalf("unexpected error from New(): %v", err)
		}

		if err := s.Open(context.Background(), "/dev/ttyUSB0"); err == nil {
			t.Error("expected error from Open()")
		}
		if s.Port() != "" {
			t.Errorf("expected session to stay closed, got port: %q", s.Port())
		}
	})
}
