package lora

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hegylabs/wlr089/wire"
)

// Version asks the module for its firmware identification string.
func (s *Session) Version(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdSysVersion)
}

// Reset restarts the module firmware. The response, when one arrives within
// the settle delay, is the same banner Version returns.
func (s *Session) Reset(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdSysReset)
}

// FactoryReset restores the module's EEPROM to factory defaults and
// restarts it.
func (s *Session) FactoryReset(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdSysFactoryReset)
}

// Sleep puts the module to sleep for the given duration. Mode is
// wire.SleepStandby or wire.SleepBackup; the duration must be at least one
// second and is sent with millisecond resolution.
func (s *Session) Sleep(ctx context.Context, mode string, d time.Duration) (string, error) {
	if err := validateSleep(mode, d); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %s %d", wire.CmdSysSleep, mode, d.Milliseconds()))
}

// SetFrequency tunes the radio, in Hz. The value must fall inside one of
// the module's three supported bands.
func (s *Session) SetFrequency(ctx context.Context, hz int) (string, error) {
	if err := validateFrequency(hz); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %d", wire.CmdSetFreq, hz))
}

// SetFrequencyMHz tunes the radio, in MHz. The value is truncated to whole
// Hz before validation.
func (s *Session) SetFrequencyMHz(ctx context.Context, mhz float64) (string, error) {
	return s.SetFrequency(ctx, int(mhz*1e6))
}

// Frequency reads back the tuned frequency in Hz.
func (s *Session) Frequency(ctx context.Context) (int, error) {
	resp, err := s.Exec(ctx, wire.CmdGetFreq)
	if err != nil {
		return 0, err
	}
	hz, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("parse frequency %q: %w", resp, err)
	}
	return hz, nil
}

// FrequencyMHz reads back the tuned frequency in MHz.
func (s *Session) FrequencyMHz(ctx context.Context) (float64, error) {
	hz, err := s.Frequency(ctx)
	if err != nil {
		return 0, err
	}
	return float64(hz) / 1e6, nil
}

// SetPower sets the transmit power in dBm, -4 through 20.
func (s *Session) SetPower(ctx context.Context, dbm int) (string, error) {
	if err := validatePower(dbm); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %d", wire.CmdSetPower, dbm))
}

// Power reads back the configured transmit power.
func (s *Session) Power(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetPower)
}

// SetModulation selects wire.ModLoRa or wire.ModFSK.
func (s *Session) SetModulation(ctx context.Context, mod string) (string, error) {
	if err := validateModulation(mod); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %s", wire.CmdSetMod, mod))
}

// Modulation reads back the selected modulation.
func (s *Session) Modulation(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetMod)
}

// SetPABoost switches the power amplifier boost, wire.On or wire.Off.
func (s *Session) SetPABoost(ctx context.Context, state string) (string, error) {
	if err := validateState(state); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %s", wire.CmdSetPA, state))
}

// PABoost reads back the power amplifier boost state.
func (s *Session) PABoost(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetPA)
}

// SetCRC switches the payload CRC, wire.On or wire.Off.
func (s *Session) SetCRC(ctx context.Context, state string) (string, error) {
	if err := validateState(state); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %s", wire.CmdSetCRC, state))
}

// CRC reads back the payload CRC state.
func (s *Session) CRC(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetCRC)
}

// SetSpreadingFactor sets the LoRa spreading factor, 7 through 12. The
// module wants the value prefixed, as in "sf7".
func (s *Session) SetSpreadingFactor(ctx context.Context, sf int) (string, error) {
	if err := validateSpreadingFactor(sf); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s sf%d", wire.CmdSetSF, sf))
}

// SpreadingFactor reads back the spreading factor.
func (s *Session) SpreadingFactor(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetSF)
}

// SetCW switches the unmodulated carrier on or off, for antenna and power
// measurements.
func (s *Session) SetCW(ctx context.Context, state string) (string, error) {
	if err := validateState(state); err != nil {
		return "", err
	}
	return s.Exec(ctx, fmt.Sprintf("%s %s", wire.CmdCW, state))
}

// SetListenBeforeTalk configures the listen-before-talk scan. The module
// documents no bounds for scanPeriod, threshold or numSamples, so the
// values pass through unchecked and the module's own response signals
// rejection.
func (s *Session) SetListenBeforeTalk(ctx context.Context, scanPeriod, threshold, numSamples int, transmitOn bool) (string, error) {
	tx := 0
	if transmitOn {
		tx = 1
	}
	return s.Exec(ctx, fmt.Sprintf("%s %d %d %d %d", wire.CmdSetLBT, scanPeriod, threshold, numSamples, tx))
}

// ListenBeforeTalk reads back the listen-before-talk configuration.
func (s *Session) ListenBeforeTalk(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetLBT)
}

// SNR reads the signal-to-noise ratio of the last received packet.
func (s *Session) SNR(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetSNR)
}

// PacketRSSI reads the signal strength of the last received packet.
func (s *Session) PacketRSSI(ctx context.Context) (string, error) {
	return s.Exec(ctx, wire.CmdGetPktRSSI)
}

// Transmit sends a payload count times. The payload goes out hex encoded;
// the module caps it at 255 bytes but that limit is left to the module to
// enforce.
func (s *Session) Transmit(ctx context.Context, payload []byte, count int) (string, error) {
	return s.Exec(ctx, fmt.Sprintf("%s %s %d", wire.CmdTx, wire.EncodePayload(payload), count))
}
