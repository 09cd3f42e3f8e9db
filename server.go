package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hegylabs/wlr089/lora"
	"github.com/hegylabs/wlr089/wire"
)

// Server handles incoming HTTP requests for interacting with the
// connected radio module
type Server struct {
	Logger  *slog.Logger
	Session *lora.Session
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transmit", s.handleTransmit)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)

}

// handleTransmit processes incoming HTTP POST requests to transmit a packet
func (s *Server) handleTransmit(w http.ResponseWriter, r *http.Request) {
	type TransmitRequest struct {
		// Message carries a plain text payload, Hex a hex encoded one.
		// Exactly one of them must be set.
		Message string `json:"message"`
		Hex     string `json:"hex"`
		// Count repeats the transmission, default 1
		Count int `json:"count"`
	}

	var req TransmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if (req.Message == "") == (req.Hex == "") {
		s.sendError(w, "exactly one of 'message' and 'hex' is required", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	payload := []byte(req.Message)
	if req.Hex != "" {
		var err error
		payload, err = wire.DecodePayload(req.Hex)
		if err != nil {
			s.sendError(w, "'hex' is not valid hex: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	resp, err := s.Session.Transmit(r.Context(), payload, req.Count)
	if err != nil {
		s.Logger.Error("Failed to transmit", "error", err, "bytes", len(payload))
		s.sendError(w, err.Error(), s.errorStatus(err))
		return
	}
	if resp == wire.InvalidParam || resp == wire.Busy {
		s.Logger.Warn("Module rejected transmission", "response", resp)
		s.sendError(w, resp, http.StatusConflict)
		return
	}

	s.Logger.Info("Packet transmitted", "bytes", len(payload), "count", req.Count)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"response": resp})
}

// handleStatus reports the module's current radio settings
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type StatusResponse struct {
		Port            string `json:"port"`
		Version         string `json:"version"`
		Frequency       string `json:"frequency"`
		Modulation      string `json:"modulation"`
		Power           string `json:"power"`
		PABoost         string `json:"pa_boost"`
		CRC             string `json:"crc"`
		SpreadingFactor string `json:"spreading_factor"`
		SNR             string `json:"snr"`
		PacketRSSI      string `json:"packet_rssi"`
	}

	ctx := r.Context()
	status := StatusResponse{Port: s.Session.Port()}

	reads := []struct {
		dst  *string
		read func() (string, error)
	}{
		{&status.Version, func() (string, error) { return s.Session.Version(ctx) }},
		{&status.Frequency, func() (string, error) { return s.Session.Exec(ctx, wire.CmdGetFreq) }},
		{&status.Modulation, func() (string, error) { return s.Session.Modulation(ctx) }},
		{&status.Power, func() (string, error) { return s.Session.Power(ctx) }},
		{&status.PABoost, func() (string, error) { return s.Session.PABoost(ctx) }},
		{&status.CRC, func() (string, error) { return s.Session.CRC(ctx) }},
		{&status.SpreadingFactor, func() (string, error) { return s.Session.SpreadingFactor(ctx) }},
		{&status.SNR, func() (string, error) { return s.Session.SNR(ctx) }},
		{&status.PacketRSSI, func() (string, error) { return s.Session.PacketRSSI(ctx) }},
	}
	for _, entry := range reads {
		value, err := entry.read()
		if err != nil {
			s.Logger.Error("Failed to read module status", "error", err)
			s.sendError(w, err.Error(), s.errorStatus(err))
			return
		}
		*entry.dst = value
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// errorStatus maps session errors to HTTP status codes
func (s *Server) errorStatus(err error) int {
	switch {
	case errors.Is(err, lora.ErrReceiveRunning):
		return http.StatusConflict
	case errors.Is(err, lora.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, lora.ErrInvalidParameter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
