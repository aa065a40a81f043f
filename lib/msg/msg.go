// Package msg defines the interface for different message brokers.
package msg

import "errors"

// Opts are the delivery options of a published message. QoS follows MQTT semantics: 0 at most once, 1 at
// least once, 2 exactly once.
type Opts struct {
	QoS    byte
	Retain bool
}

// Handler receives the messages of a subscribed topic.
type Handler func(topic string, payload []byte)

// Broker publishes and consumes messages on slash separated topics, ie. wallet/<wallet>/send.
type Broker interface {
	Setup() error
	Close() error

	Publish(topic string, payload []byte, opts Opts) error
	// Subscribe delivers the messages of topic to h. Subscriptions are restored after reconnections.
	Subscribe(topic string, h Handler) error
}

// Errors returned by brokers.
var (
	ErrTimeout = errors.New("timeout waiting for the message broker")
	ErrClosed  = errors.New("message broker connection is closed")
)
