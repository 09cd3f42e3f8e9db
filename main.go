package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hegylabs/wlr089/lora"
	"github.com/hegylabs/wlr089/wire"
)

func main() {
	flag.String("serial-port", "", "Serial port of the module (empty probes every port)")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Int("settle-ms", 100, "Delay between writing a command and reading the response, in milliseconds")
	flag.String("frequency-mhz", "", "Radio frequency to set at startup, in MHz")
	flag.String("modulation", "", "Modulation to set at startup (lora, fsk)")
	flag.String("power", "", "Transmit power to set at startup, in dBm")
	flag.String("pa-boost", "", "Power amplifier boost to set at startup (on, off)")
	flag.String("crc", "", "Payload CRC to set at startup (on, off)")
	flag.String("spreading-factor", "", "Spreading factor to set at startup (7-12)")
	flag.Bool("rx", false, "Run the reception daemon instead of the HTTP server")
	flag.Bool("console", false, "Run an interactive command prompt instead of the HTTP server")
	flag.String("mqtt-broker", "", "MQTT broker for the receive bridge (e.g. tcp://localhost:1883)")
	flag.String("mqtt-client-id", "wlr089-gw", "MQTT client identifier")
	flag.String("mqtt-uplink-topic", "lora/up", "MQTT topic for received packets")
	flag.String("mqtt-downlink-topic", "lora/down", "MQTT topic carrying payloads to transmit")
	flag.String("mqtt-username", "", "MQTT username")
	flag.String("mqtt-password", "", "MQTT password")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	sessionConfig, err := lora.NewConfigBuilder().
		WithSettleDelay(time.Duration(config.SettleMs) * time.Millisecond).
		WithLogger(logger.With("component", "lora")).
		WithDialer(lora.SerialDialer{BaudRate: config.BaudRate}).
		Build()
	if err != nil {
		logger.Error("Failed to create session config", "error", err)
		os.Exit(1)
	}

	session, err := lora.New(sessionConfig)
	if err != nil {
		logger.Error("Failed to create session", "error", err)
		os.Exit(1)
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	if config.SerialPort != "" {
		err = session.Open(openCtx, config.SerialPort)
	} else {
		err = session.FindAndOpen(openCtx)
	}
	cancelOpen()
	if err != nil {
		logger.Error("Failed to open module", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	err = applyRadioConfig(startCtx, session, config)
	if err == nil {
		logModuleStatus(startCtx, logger, session)
	}
	cancelStart()
	if err != nil {
		logger.Error("Failed to apply radio configuration", "error", err)
		session.Close()
		os.Exit(1)
	}

	logger.Info("Starting LoRa gateway", "port", session.Port())

	if config.Console {
		if err := runConsole(session); err != nil {
			logger.Error("Console failed", "error", err)
		}
		if err := session.Close(); err != nil {
			logger.Error("Failed to close session", "error", err)
		}
		return
	}

	if config.Receive {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err := runReceive(ctx, logger, session, config)
		stop()
		if err != nil {
			logger.Error("Receive daemon failed", "error", err)
		}
		if err := session.Close(); err != nil {
			logger.Error("Failed to close session", "error", err)
		}
		return
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Session: session,
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	logger.Info("Closing module session")
	if err := session.Close(); err != nil {
		logger.Error("Failed to close session", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

// applyRadioConfig pushes the configured radio settings to the module.
// Empty fields are skipped so a bare start leaves the module's stored
// configuration alone.
func applyRadioConfig(ctx context.Context, session *lora.Session, config *Config) error {
	if config.FrequencyMHz != "" {
		mhz, err := strconv.ParseFloat(config.FrequencyMHz, 64)
		if err != nil {
			return fmt.Errorf("frequency-mhz %q: %w", config.FrequencyMHz, err)
		}
		if _, err := session.SetFrequencyMHz(ctx, mhz); err != nil {
			return err
		}
	}
	if config.Modulation != "" {
		if _, err := session.SetModulation(ctx, config.Modulation); err != nil {
			return err
		}
	}
	if config.Power != "" {
		dbm, err := strconv.Atoi(config.Power)
		if err != nil {
			return fmt.Errorf("power %q: %w", config.Power, err)
		}
		if _, err := session.SetPower(ctx, dbm); err != nil {
			return err
		}
	}
	if config.PABoost != "" {
		if _, err := session.SetPABoost(ctx, config.PABoost); err != nil {
			return err
		}
	}
	if config.CRC != "" {
		if _, err := session.SetCRC(ctx, config.CRC); err != nil {
			return err
		}
	}
	if config.SpreadingFactor != "" {
		sf, err := strconv.Atoi(config.SpreadingFactor)
		if err != nil {
			return fmt.Errorf("spreading-factor %q: %w", config.SpreadingFactor, err)
		}
		if _, err := session.SetSpreadingFactor(ctx, sf); err != nil {
			return err
		}
	}
	return nil
}

// logModuleStatus reads back the module's radio settings and logs them in
// one record, so every start leaves a trace of what the hardware was
// actually configured to.
func logModuleStatus(ctx context.Context, logger *slog.Logger, session *lora.Session) {
	version, err := session.Version(ctx)
	if err != nil {
		logger.Warn("Failed to read module status", "error", err)
		return
	}

	get := func(read func(context.Context) (string, error)) string {
		value, err := read(ctx)
		if err != nil || value == "" {
			return "unavailable"
		}
		return value
	}

	frequency := "unavailable"
	if mhz, err := session.FrequencyMHz(ctx); err == nil {
		frequency = strconv.FormatFloat(mhz, 'f', -1, 64)
	}

	logger.Info("Module status",
		"port", session.Port(),
		"version", version,
		"frequency_mhz", frequency,
		"modulation", get(session.Modulation),
		"power", get(session.Power),
		"pa_boost", get(session.PABoost),
		"crc", get(session.CRC),
		"spreading_factor", get(session.SpreadingFactor),
		"snr", get(session.SNR),
		"packet_rssi", get(session.PacketRSSI),
	)
}

// runReceive arms reception over and over, forwarding each packet to the
// log and, when configured, to the MQTT bridge. The module drops out of
// receive mode after every packet, so a continuous stream means re-arming
// until the context is canceled.
func runReceive(ctx context.Context, logger *slog.Logger, session *lora.Session, config *Config) error {
	var bridge *Bridge
	if config.MqttBroker != "" {
		var err error
		bridge, err = startMQTT(logger.With("component", "mqtt"), session, config)
		if err != nil {
			return err
		}
		defer bridge.Close()
	}

	logger.Info("Receiving", "port", session.Port())

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := session.Receive(ctx, func(payload []byte) {
			logger.Info("Packet received", "bytes", len(payload), "payload", wire.EncodePayload(payload))
			if bridge != nil {
				bridge.PublishUplink(payload)
			}
		})
		switch {
		case err == nil:
			// A packet arrived or the reception was stopped; re-arm.
		case errors.Is(err, lora.ErrReceiveFailed):
			logger.Warn("Reception failed, re-arming")
		case errors.Is(err, context.Canceled):
			return nil
		case lora.IsDisconnect(err):
			return fmt.Errorf("module disconnected: %w", err)
		default:
			logger.Error("Receive failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}

		if bridge != nil {
			if err := bridge.SendQueued(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Error("Failed to transmit queued downlink", "error", err)
			}
		}
	}
}
