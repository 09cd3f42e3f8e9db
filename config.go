package main

import (
	"flag"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0").
	// Empty means probe every port for a module.
	SerialPort string
	// BaudRate is the baud rate for serial communication with the module (e.g. 115200)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// SettleMs is the pause between writing a command and reading its response
	SettleMs int

	// Radio settings applied at startup. Empty fields leave the module's
	// stored value untouched.
	FrequencyMHz    string
	Modulation      string
	Power           string
	PABoost         string
	CRC             string
	SpreadingFactor string

	// Receive runs the reception daemon instead of the HTTP server
	Receive bool
	// Console runs an interactive command prompt instead of the HTTP server
	Console bool

	// MqttBroker enables the MQTT bridge in receive mode (e.g. "tcp://localhost:1883")
	MqttBroker string
	// MqttClientID identifies this gateway to the broker
	MqttClientID string
	// MqttUplinkTopic carries received packets to the broker
	MqttUplinkTopic string
	// MqttDownlinkTopic carries payloads to transmit
	MqttDownlinkTopic string
	// MqttUser and MqttPass authenticate against the broker when set
	MqttUser string
	MqttPass string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = ""
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.SettleMs = 100
		c.MqttClientID = "wlr089-gw"
		c.MqttUplinkTopic = "lora/up"
		c.MqttDownlinkTopic = "lora/down"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if settle := os.Getenv("SETTLE_MS"); settle != "" {
			if s, err := strconv.Atoi(settle); err == nil {
				c.SettleMs = s
			}
		}

		if mhz := os.Getenv("FREQUENCY_MHZ"); mhz != "" {
			c.FrequencyMHz = mhz
		}
		if mod := os.Getenv("MODULATION"); mod != "" {
			c.Modulation = mod
		}
		if pwr := os.Getenv("POWER"); pwr != "" {
			c.Power = pwr
		}
		if pa := os.Getenv("PA_BOOST"); pa != "" {
			c.PABoost = pa
		}
		if crc := os.Getenv("CRC"); crc != "" {
			c.CRC = crc
		}
		if sf := os.Getenv("SPREADING_FACTOR"); sf != "" {
			c.SpreadingFactor = sf
		}

		// RECEIVE/CONSOLE: "1" selects the mode
		if os.Getenv("RECEIVE") == "1" {
			c.Receive = true
		}
		if os.Getenv("CONSOLE") == "1" {
			c.Console = true
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MqttBroker = broker
		}
		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MqttClientID = id
		}
		if topic := os.Getenv("MQTT_UPLINK_TOPIC"); topic != "" {
			c.MqttUplinkTopic = topic
		}
		if topic := os.Getenv("MQTT_DOWNLINK_TOPIC"); topic != "" {
			c.MqttDownlinkTopic = topic
		}
		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MqttUser = user
		}
		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MqttPass = pass
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "settle-ms":
				if s, err := strconv.Atoi(f.Value.String()); err == nil {
					c.SettleMs = s
				}
			case "frequency-mhz":
				c.FrequencyMHz = f.Value.String()
			case "modulation":
				c.Modulation = f.Value.String()
			case "power":
				c.Power = f.Value.String()
			case "pa-boost":
				c.PABoost = f.Value.String()
			case "crc":
				c.CRC = f.Value.String()
			case "spreading-factor":
				c.SpreadingFactor = f.Value.String()
			case "rx":
				c.Receive = f.Value.String() == "true"
			case "console":
				c.Console = f.Value.String() == "true"
			case "mqtt-broker":
				c.MqttBroker = f.Value.String()
			case "mqtt-client-id":
				c.MqttClientID = f.Value.String()
			case "mqtt-uplink-topic":
				c.MqttUplinkTopic = f.Value.String()
			case "mqtt-downlink-topic":
				c.MqttDownlinkTopic = f.Value.String()
			case "mqtt-username":
				c.MqttUser = f.Value.String()
			case "mqtt-password":
				c.MqttPass = f.Value.String()
			}

		})
		return nil
	}

}
