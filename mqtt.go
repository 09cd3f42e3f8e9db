package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hegylabs/wlr089/lora"
)

// Bridge connects the radio session to an MQTT broker: received packets are
// published on the uplink topic and payloads arriving on the downlink topic
// queue up for transmission between receive sessions.
type Bridge struct {
	Logger  *slog.Logger
	Session *lora.Session
	Uplink  string

	client    mqtt.Client
	downlinks chan []byte
}

func startMQTT(logger *slog.Logger, session *lora.Session, config *Config) (*Bridge, error) {
	b := &Bridge{
		Logger:    logger,
		Session:   session,
		Uplink:    config.MqttUplinkTopic,
		downlinks: make(chan []byte, 64),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MqttBroker)
	opts.SetClientID(config.MqttClientID)
	if config.MqttUser != "" {
		opts.SetUsername(config.MqttUser)
		opts.SetPassword(config.MqttPass)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("MQTT connected, subscribing", "topic", config.MqttDownlinkTopic)
		if token := c.Subscribe(config.MqttDownlinkTopic, 0, b.onDownlink); token.Wait() && token.Error() != nil {
			logger.Error("MQTT subscribe failed", "error", token.Error())
		}
	})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return b, nil
}

// PublishUplink forwards a received packet to the uplink topic.
func (b *Bridge) PublishUplink(payload []byte) {
	if token := b.client.Publish(b.Uplink, 0, false, payload); token.Wait() && token.Error() != nil {
		b.Logger.Error("MQTT publish failed", "error", token.Error(), "bytes", len(payload))
	}
}

// onDownlink queues a payload for transmission and breaks the current
// receive session so the queue drains promptly. It runs on the MQTT
// client's goroutine.
func (b *Bridge) onDownlink(_ mqtt.Client, msg mqtt.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case b.downlinks <- payload:
	default:
		b.Logger.Warn("Downlink queue full, dropping message", "bytes", len(payload))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := b.Session.StopReceive(ctx); err != nil {
		b.Logger.Warn("Failed to interrupt reception for downlink", "error", err)
	}
}

// SendQueued transmits every queued downlink payload. It must run between
// receive sessions, while ordinary commands are allowed.
func (b *Bridge) SendQueued(ctx context.Context) error {
	for {
		select {
		case payload := <-b.downlinks:
			if _, err := b.Session.Transmit(ctx, payload, 1); err != nil {
				return err
			}
			b.Logger.Info("Downlink transmitted", "bytes", len(payload))
		default:
			return nil
		}
	}
}

func (b *Bridge) Close() {
	b.client.Disconnect(500)
}
