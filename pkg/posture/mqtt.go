package posture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/open-teleop/legged-teleop/domain/teleop"
	"github.com/open-teleop/legged-teleop/pkg/config"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
)

// ErrInvalidPosture is returned for posture messages that do not decode to
// finite pitch, roll and height.
var ErrInvalidPosture = errors.New("invalid posture message")

const (
	connectTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // ms
)

// MQTTSubscriber feeds posture reports from an MQTT topic into a Store.
type MQTTSubscriber struct {
	cfg    config.MQTTBootstrap
	store  *Store
	logger customlog.Logger
	client mqtt.Client

	connected atomic.Bool
	received  atomic.Int64
	rejected  atomic.Int64
}

// NewMQTTSubscriber creates a subscriber writing into store. Call Start to connect.
func NewMQTTSubscriber(cfg config.MQTTBootstrap, store *Store, logger customlog.Logger) *MQTTSubscriber {
	s := &MQTTSubscriber{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnf("posture: MQTT connection lost: %v", err)
		})
	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker and subscribes to the posture topic.
func (s *MQTTSubscriber) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("posture: connecting to %s: %w", s.cfg.Broker, token.Error())
	}
	return s.subscribe()
}

// onConnect restores the subscription after an automatic reconnect; the
// first connection subscribes from Start.
func (s *MQTTSubscriber) onConnect(_ mqtt.Client) {
	if !s.connected.CompareAndSwap(false, true) {
		if err := s.subscribe(); err != nil {
			s.logger.Errorf("posture: %v", err)
		}
		return
	}
	s.logger.Infof("posture: connected to MQTT broker at %s", s.cfg.Broker)
}

func (s *MQTTSubscriber) subscribe() error {
	token := s.client.Subscribe(s.cfg.PostureTopic, s.cfg.QoS, s.handleMessage)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", s.cfg.PostureTopic, token.Error())
	}
	s.logger.Infof("posture: subscribed to %s", s.cfg.PostureTopic)
	return nil
}

// Stop disconnects from the broker.
func (s *MQTTSubscriber) Stop() {
	s.client.Disconnect(disconnectQuiesce)
}

// Current returns the latest reported posture.
func (s *MQTTSubscriber) Current() teleop.RobotPosture {
	return s.store.Current()
}

// Counts returns how many messages were accepted and rejected.
func (s *MQTTSubscriber) Counts() (received, rejected int64) {
	return s.received.Load(), s.rejected.Load()
}

func (s *MQTTSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	p, err := DecodePosture(msg.Payload())
	if err != nil {
		s.rejected.Add(1)
		s.logger.Warnf("posture: %s: %v", msg.Topic(), err)
		return
	}
	s.received.Add(1)
	s.store.Set(p)
}

// DecodePosture parses a {"pitch","roll","height"} JSON object. All three
// fields are required.
func DecodePosture(payload []byte) (teleop.RobotPosture, error) {
	var raw struct {
		Pitch  *float64 `json:"pitch"`
		Roll   *float64 `json:"roll"`
		Height *float64 `json:"height"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return teleop.RobotPosture{}, fmt.Errorf("%w: %v", ErrInvalidPosture, err)
	}

	fields := []struct {
		name  string
		value *float64
	}{
		{"pitch", raw.Pitch},
		{"roll", raw.Roll},
		{"height", raw.Height},
	}
	for _, f := range fields {
		if f.value == nil {
			return teleop.RobotPosture{}, fmt.Errorf("%w: missing %s", ErrInvalidPosture, f.name)
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return teleop.RobotPosture{}, fmt.Errorf("%w: %s is not finite", ErrInvalidPosture, f.name)
		}
	}

	return teleop.RobotPosture{Pitch: *raw.Pitch, Roll: *raw.Roll, Height: *raw.Height}, nil
}
