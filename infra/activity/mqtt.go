package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/logger"
)

// MQTTConfig defines the optional MQTT mirror of the activity log.
type MQTTConfig struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *MQTTConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "parking/activity"
	}
	if c.ClientID == "" {
		c.ClientID = "parking-sim-" + uuid.NewString()[:8]
	}
}

// Validate checks mandatory fields when the publisher is enabled.
func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	return nil
}

// MQTTPublisher mirrors every activity record to an MQTT topic as JSON.
// It is publish-only; nothing in the simulation consumes the topic.
type MQTTPublisher struct {
	cli   paho.Client
	topic string
	qos   byte
	log   logger.Logger
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig, log logger.Logger) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	log.Infof("mqtt publisher connected to %s", cfg.Broker)
	return &MQTTPublisher{cli: cli, topic: cfg.Topic, qos: cfg.QoS, log: log}, nil
}

func (p *MQTTPublisher) Append(ctx context.Context, rec activity.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	token := p.cli.Publish(p.topic, p.qos, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish timed out")
	}
	return token.Error()
}

func (p *MQTTPublisher) Close() error {
	p.cli.Disconnect(250)
	return nil
}
