package lora_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hegylabs/wlr089/lora"
)

func TestFrequencyValidation(t *testing.T) {
	tr := lora.NewTestTransport()
	s := openTestSession(t, tr)
	defer s.Close()

	tests := []struct {
		hz    int
		valid bool
	}{
		{136_999_999, false},
		{137_000_000, true},
		{175_000_000, true},
		{175_000_001, false},
		{409_999_999, false},
		{410_000_000, true},
		{525_000_000, true},
		{525_000_001, false},
		{861_999_999, false},
		{862_000_000, true},
		{1_020_000_000, true},
		{1_020_000_001, false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d Hz", tc.hz), func(t *testing.T) {
			_, err := s.SetFrequency(context.Background(), tc.hz)
			if tc.valid && err != nil {
				t.Errorf("expected %d Hz to be accepted, got: %v", tc.hz, err)
			}
			if !tc.valid && !errors.Is(err, lora.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter for %d Hz, got: %v", tc.hz, err)
			}
		})
	}
}

func TestPowerValidation(t *testing.T) {
	tr := lora.NewTestTransport()
	s := openTestSession(t, tr)
	defer s.Close()

	tests := []struct {
		dbm   int
		valid bool
	}{
		{-5, false},
		{-4, true},
		{20, true},
		{21, false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d dBm", tc.dbm), func(t *testing.T) {
			_, err := s.SetPower(context.Background(), tc.dbm)
			if tc.valid && err != nil {
				t.Errorf("expected %d dBm to be accepted, got: %v", tc.dbm, err)
			}
			if !tc.valid && !errors.Is(err, lora.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter for %d dBm, got: %v", tc.dbm, err)
			}
		})
	}
}

func TestSpreadingFactorValidation(t *testing.T) {
	tr := lora.NewTestTransport()
	s := openTestSession(t, tr)
	defer s.Close()

	tests := []struct {
		sf    int
		valid bool
	}{
		{6, false},
		{7, true},
		{12, true},
		{13, false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("sf%d", tc.sf), func(t *testing.T) {
			_, err := s.SetSpreadingFactor(context.Background(), tc.sf)
			if tc.valid && err != nil {
				t.Errorf("expected sf%d to be accepted, got: %v", tc.sf, err)
			}
			if !tc.valid && !errors.Is(err, lora.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter for sf%d, got: %v", tc.sf, err)
			}
		})
	}
}

func TestSleepValidation(t *testing.T) {
	tr := lora.NewTestTransport()
	s := openTestSession(t, tr)
	defer s.Close()

	tests := []struct {
		name  string
		mode  string
		d     time.Duration
		valid bool
	}{
		{"standby below one second", "standby", 999 * time.Millisecond, false},
		{"standby at one second", "standby", time.Second, true},
		{"backup for ninety seconds", "backup", 90 * time.Second, true},
		{"unknown mode", "hibernate", 5 * time.Second, false},
		{"zero duration", "standby", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Sleep(context.Background(), tc.mode, tc.d)
			if tc.valid && err != nil {
				t.Errorf("expected sleep %s %v to be accepted, got: %v", tc.mode, tc.d, err)
			}
			if !tc.valid && !errors.Is(err, lora.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter for sleep %s %v, got: %v", tc.mode, tc.d, err)
			}
		})
	}
}

func TestModulationValidation(t *testing.T) {
	tr := lora.NewTestTransport()
	s := openTestSession(t, tr)
	defer s.Close()

	tests := []struct {
		mod   string
		valid bool
	}{
		{"lora", true},
		{"fsk", true},
		{"am", false},
		{"LORA", false},
	}

	for _, tc := range tests {
		t.Run(tc.mod, func(t *testing.T) {
			_, err := s.SetModulation(context.Background(), tc.mod)
			if tc.valid && err != nil {
				t.Errorf("expected modulation %q to be accepted, got: %v", tc.mod, err)
			}
			if !tc.valid && !errors.Is(err, lora.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter for modulation %q, got: %v", tc.mod, err)
			}
		})
	}
}

func TestStateValidation(t *testing.T) {
	tr := lora.NewTestTransport()
	s := openTestSession(t, tr)
	defer s.Close()

	tests := []struct {
		state string
		valid bool
	}{
		{"on", true},
		{"off", true},
		{"ON", false},
		{"1", false},
	}

	for _, tc := range tests {
		t.Run(tc.state, func(t *testing.T) {
			_, err := s.SetPABoost(context.Background(), tc.state)
			if tc.valid && err != nil {
				t.Errorf("expected state %q to be accepted, got: %v", tc.state, err)
			}
			if !tc.valid && !errors.Is(err, lora.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter for state %q, got: %v", tc.state, err)
			}
		})
	}

	t.Run("carrier wave rejects uppercase", func(t *testing.T) {
		_, err := s.SetCW(context.Background(), "ON")
		if !errors.Is(err, lora.ErrInvalidParameter) {
			t.Errorf("expected ErrInvalidParameter, got: %v", err)
		}
	})
}
