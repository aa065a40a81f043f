// Package mqtt implements the message broker interface for MQTT brokers (ie. VerneMQ).
package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/tarancss/canoed/lib/config"
	"github.com/tarancss/canoed/lib/msg"
)

const (
	connectTimeout = 10 * time.Second
	waitTimeout    = 5 * time.Second
	quiesce        = 250 // milliseconds given to in-flight work on disconnect
	subscribeQoS   = 1
)

// Mqtt implements a connection to an MQTT broker. Subscriptions are kept so they are restored every time the
// client (re)connects.
type Mqtt struct {
	c      paho.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]msg.Handler
}

// New connects to the broker in conf.
func New(conf config.MQTTConfig, logger *zap.Logger) (*Mqtt, error) {
	m := &Mqtt{logger: logger, subs: make(map[string]msg.Handler)}

	opts := paho.NewClientOptions().
		AddBroker(conf.URL).
		SetClientID(conf.ClientID).
		SetUsername(conf.Username).
		SetPassword(conf.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("Lost connection to MQTT broker", zap.Error(err))
		})

	m.c = paho.NewClient(opts)

	if err := wait(m.c.Connect()); err != nil {
		return nil, fmt.Errorf("cannot connect to MQTT broker at %s: %w", conf.URL, err)
	}

	logger.Info("Connected to MQTT broker", zap.String("url", conf.URL))

	return m, nil
}

// onConnect restores the subscriptions.
func (m *Mqtt) onConnect(c paho.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for topic, h := range m.subs {
		if err := wait(c.Subscribe(topic, subscribeQoS, deliver(h))); err != nil {
			m.logger.Error("Cannot subscribe to topic", zap.String("topic", topic), zap.Error(err))

			continue
		}

		m.logger.Debug("Subscribed", zap.String("topic", topic))
	}
}

// Setup has nothing to declare on MQTT brokers.
func (m *Mqtt) Setup() error {
	return nil
}

// Close disconnects from the broker.
func (m *Mqtt) Close() error {
	m.c.Disconnect(quiesce)

	return nil
}

// Publish sends payload to topic and waits for the broker to take it.
func (m *Mqtt) Publish(topic string, payload []byte, opts msg.Opts) error {
	if !m.c.IsConnectionOpen() {
		return msg.ErrClosed
	}

	return wait(m.c.Publish(topic, opts.QoS, opts.Retain, payload))
}

// Subscribe delivers the messages of topic to h.
func (m *Mqtt) Subscribe(topic string, h msg.Handler) error {
	m.mu.Lock()
	m.subs[topic] = h
	m.mu.Unlock()

	if !m.c.IsConnectionOpen() {
		// restored by onConnect
		return nil
	}

	return wait(m.c.Subscribe(topic, subscribeQoS, deliver(h)))
}

func deliver(h msg.Handler) paho.MessageHandler {
	return func(_ paho.Client, pm paho.Message) {
		h(pm.Topic(), pm.Payload())
	}
}

func wait(t paho.Token) error {
	if !t.WaitTimeout(waitTimeout) {
		return msg.ErrTimeout
	}

	return t.Error()
}

var _ msg.Broker = (*Mqtt)(nil)
