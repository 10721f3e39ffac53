// Package mqttfeed subscribes to the detectors' MQTT topics.
package mqttfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/alexanderramin/custodian/internal/domain"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	DirtTopic  string
	TrashTopic string
	QoS        byte
}

func DefaultConfig() Config {
	return Config{
		Broker:     "tcp://localhost:1883",
		ClientID:   "custodian",
		DirtTopic:  "robot/detections/dirt",
		TrashTopic: "robot/detections/trashcan",
		QoS:        1,
	}
}

// client is the subset of mqtt.Client the feed needs.
type client interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type Feed struct {
	client client
	cfg    Config
	logger *zap.Logger
	close  func()
}

var _ detection.Feed = (*Feed)(nil)

// Connect dials the broker and returns a Feed over the connection.
func Connect(cfg Config, logger *zap.Logger) (*Feed, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	f := newFeed(c, cfg, logger)
	f.close = func() { c.Disconnect(250) }
	return f, nil
}

func newFeed(c client, cfg Config, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{client: c, cfg: cfg, logger: logger}
}

// Close disconnects from the broker.
func (f *Feed) Close() {
	if f.close != nil {
		f.close()
	}
}

func (f *Feed) topic(kind detection.Kind) (string, error) {
	switch kind {
	case detection.KindDirt:
		return f.cfg.DirtTopic, nil
	case detection.KindTrash:
		return f.cfg.TrashTopic, nil
	default:
		return "", fmt.Errorf("no topic for detection kind %s", kind)
	}
}

func (f *Feed) Subscribe(kind detection.Kind, h detection.Handler) (detection.Subscription, error) {
	topic, err := f.topic(kind)
	if err != nil {
		return nil, err
	}
	token := f.client.Subscribe(topic, f.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		d, err := decode(kind, msg.Payload())
		if err != nil {
			f.logger.Warn("dropping malformed detection", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		h(d)
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, token.Error())
	}
	f.logger.Debug("detection subscription opened", zap.String("topic", topic))
	return &subscription{feed: f, topic: topic}, nil
}

type subscription struct {
	feed  *Feed
	topic string
}

func (s *subscription) Unsubscribe() error {
	token := s.feed.client.Unsubscribe(s.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribing from %s: %w", s.topic, token.Error())
	}
	return nil
}

// message is the detector payload.
type message struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp string  `json:"timestamp,omitempty"`
}

func decode(kind detection.Kind, payload []byte) (detection.Detection, error) {
	var m message
	if err := json.Unmarshal(payload, &m); err != nil {
		return detection.Detection{}, fmt.Errorf("decoding detection: %w", err)
	}
	at := time.Now()
	if m.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			return detection.Detection{}, fmt.Errorf("parsing detection timestamp: %w", err)
		}
		at = ts
	}
	return detection.Detection{
		Kind:     kind,
		Position: domain.Point{X: m.X, Y: m.Y, Z: m.Z},
		At:       at,
	}, nil
}
