package lora

import (
	"fmt"
	"time"

	"github.com/hegylabs/wlr089/wire"
)

// Hardware limits of the WLR089U0 front end. Frequencies are in Hz, the
// three bands are inclusive on both edges.
var freqBands = [3][2]int{
	{137_000_000, 175_000_000},
	{410_000_000, 525_000_000},
	{862_000_000, 1_020_000_000},
}

const (
	minPower = -4
	maxPower = 20

	minSpreadingFactor = 7
	maxSpreadingFactor = 12

	// minSleep is the shortest duration the module accepts for sys sleep.
	minSleep = time.Second
)

func validateFrequency(hz int) error {
	for _, band := range freqBands {
		if hz >= band[0] && hz <= band[1] {
			return nil
		}
	}
	return fmt.Errorf("%w: frequency %d Hz outside supported bands", ErrInvalidParameter, hz)
}

func validatePower(dbm int) error {
	if dbm < minPower || dbm > maxPower {
		return fmt.Errorf("%w: power %d dBm outside [%d, %d]", ErrInvalidParameter, dbm, minPower, maxPower)
	}
	return nil
}

func validateSpreadingFactor(sf int) error {
	if sf < minSpreadingFactor || sf > maxSpreadingFactor {
		return fmt.Errorf("%w: spreading factor %d outside [%d, %d]", ErrInvalidParameter, sf, minSpreadingFactor, maxSpreadingFactor)
	}
	return nil
}

func validateSleep(mode string, d time.Duration) error {
	if mode != wire.SleepStandby && mode != wire.SleepBackup {
		return fmt.Errorf("%w: sleep mode %q", ErrInvalidParameter, mode)
	}
	if d < minSleep {
		return fmt.Errorf("%w: sleep duration %s below minimum %s", ErrInvalidParameter, d, minSleep)
	}
	return nil
}

func validateModulation(mod string) error {
	if mod != wire.ModLoRa && mod != wire.ModFSK {
		return fmt.Errorf("%w: modulation %q", ErrInvalidParameter, mod)
	}
	return nil
}

// validateState checks an on/off switch value. The module is case
// sensitive, so "ON" is rejected here rather than normalized.
func validateState(state string) error {
	if state != wire.On && state != wire.Off {
		return fmt.Errorf("%w: state %q", ErrInvalidParameter, state)
	}
	return nil
}
