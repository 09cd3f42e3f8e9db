// Package wire implements the WLR089U0's line-oriented command dialect:
// line framing, payload encoding and the classification of module output.
package wire

import (
	"encoding/hex"
	"strings"
)

const (
	// Terminal Control
	CRLF = "\r\n"

	// Ident is the substring of the version-query response that identifies
	// the module during port discovery.
	Ident = "WLR089"

	// Response Codes
	OK           = "ok"
	InvalidParam = "invalid_param"
	Busy         = "busy"

	// Asynchronous Events
	EvtRx    = "radio_rx"
	EvtTxOK  = "radio_tx_ok"
	EvtRadio = "radio_err"

	// Parameter Vocabulary
	SleepStandby = "standby"
	SleepBackup  = "backup"
	ModLoRa      = "lora"
	ModFSK       = "fsk"
	On           = "on"
	Off          = "off"
)

// Command verbs. Parameterized commands append space-separated arguments;
// the Session methods own the argument formats.
const (
	CmdSysVersion      = "sys get ver"
	CmdSysReset        = "sys reset"
	CmdSysSleep        = "sys sleep"
	CmdSysFactoryReset = "sys factoryRESET"

	CmdSetFreq    = "radio set freq"
	CmdGetFreq    = "radio get freq"
	CmdSetPower   = "radio set pwr"
	CmdGetPower   = "radio get pwr"
	CmdSetMod     = "radio set mod"
	CmdGetMod     = "radio get mod"
	CmdSetPA      = "radio set pa"
	CmdGetPA      = "radio get pa"
	CmdSetCRC     = "radio set crc"
	CmdGetCRC     = "radio get crc"
	CmdSetSF      = "radio set sf"
	CmdGetSF      = "radio get sf"
	CmdSetLBT     = "radio set lbt"
	CmdGetLBT     = "radio get lbt"
	CmdGetSNR     = "radio get snr"
	CmdGetPktRSSI = "radio get pktrssi"

	// CmdCW has no "set" token; that is the module's actual verb.
	CmdCW     = "radio cw"
	CmdTx     = "radio tx"
	CmdRx     = "radio rx 0"
	CmdRxStop = "radio rxstop"
)

type ResponseType int

const (
	TypeData     ResponseType = iota // command output (version string, numbers, states)
	TypeOK                           // command accepted
	TypeRejected                     // invalid_param, busy
	TypeRxEvent                      // inbound packet line
	TypeRadioErr                     // reception failed or watchdog fired
	TypeTxDone                       // transmission completed
)

// Line frames a command for the wire: the verb and its arguments followed
// by CRLF. The protocol has no other framing.
func Line(cmd string) []byte {
	return []byte(cmd + CRLF)
}

// EncodePayload encodes a binary transmit payload for inline use in a
// command line, two lowercase hex characters per byte.
func EncodePayload(p []byte) string {
	return hex.EncodeToString(p)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// ParseRxEvent extracts the packet payload from a receive-event line.
// It returns false for lines that are not well-formed receive events;
// those are diagnostic noise, not packets.
func ParseRxEvent(line string) ([]byte, bool) {
	rest, found := strings.CutPrefix(line, EvtRx)
	if !found {
		return nil, false
	}
	payload, err := DecodePayload(strings.TrimSpace(rest))
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Classify identifies the nature of a line read from the module.
func Classify(line string) ResponseType {
	switch line {
	case OK:
		return TypeOK
	case InvalidParam, Busy:
		return TypeRejected
	case EvtRadio:
		return TypeRadioErr
	case EvtTxOK:
		return TypeTxDone
	}

	if strings.HasPrefix(line, EvtRx) {
		return TypeRxEvent
	}
	return TypeData
}
