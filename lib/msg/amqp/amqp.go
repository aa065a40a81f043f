// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ). Topics are
// routed through a topic exchange with the slashes replaced by dots, the same mapping the RabbitMQ MQTT plugin
// applies, so MQTT clients of the same broker receive the messages on their usual topics.
package amqp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/tarancss/canoed/lib/config"
	"github.com/tarancss/canoed/lib/msg"
)

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn     *amqp.Connection
	exchange string
	logger   *zap.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// New instantiates a new amqp broker.
func New(conf config.AMQPConfig, logger *zap.Logger) (*Amqp, error) {
	conn, err := amqp.Dial(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to AMQP broker: %w", err)
	}

	logger.Info("Connected to AMQP broker", zap.String("exchange", conf.Exchange))

	return &Amqp{conn: conn, exchange: conf.Exchange, logger: logger}, nil
}

// Setup obtains a one-use amqp channel and declares the topic exchange.
func (r *Amqp) Setup() error {
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(r.exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker.
func (r *Amqp) Close() error {
	r.mu.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			r.logger.Warn("Error closing amqp.Channel", zap.Error(err))
		}

		r.ch = nil
	}
	r.mu.Unlock()

	return r.conn.Close()
}

// channel returns the shared publishing channel, obtaining it if not present.
func (r *Amqp) channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn.IsClosed() {
		return nil, msg.ErrClosed
	}

	if r.ch == nil {
		ch, err := r.conn.Channel()
		if err != nil {
			return nil, err
		}

		r.ch = ch
	}

	return r.ch, nil
}

// Publish publishes payload to the exchange. QoS above 0 is delivered as a persistent message.
func (r *Amqp) Publish(topic string, payload []byte, opts msg.Opts) error {
	ch, err := r.channel()
	if err != nil {
		return err
	}

	m := amqp.Publishing{
		Headers:     amqp.Table{"x-topic": topic},
		Body:        payload,
		ContentType: "application/json",
	}
	if opts.QoS > 0 {
		m.DeliveryMode = amqp.Persistent
	}

	if err = ch.Publish(r.exchange, RoutingKey(topic), false, false, m); err != nil {
		// the channel is closed by the server on errors
		r.mu.Lock()
		r.ch = nil
		r.mu.Unlock()

		return fmt.Errorf("cannot publish to %s: %w", topic, err)
	}

	return nil
}

// Subscribe declares an exclusive queue bound to topic and consumes it in its own channel.
func (r *Amqp) Subscribe(topic string, h msg.Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}

	msgs, err := r.consume(ch, topic)
	if err != nil {
		_ = ch.Close()

		return err
	}

	go func() {
		for m := range msgs {
			h(Topic(m.RoutingKey), m.Body)
		}

		r.logger.Debug("Stop consuming topic", zap.String("topic", topic))
	}()

	return nil
}

// consume binds an exclusive queue to topic in ch and starts consuming it.
func (r *Amqp) consume(ch *amqp.Channel, topic string) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}

	if err = ch.QueueBind(q.Name, RoutingKey(topic), r.exchange, false, nil); err != nil {
		return nil, err
	}

	return ch.Consume(q.Name, "", true, true, false, false, nil)
}

// RoutingKey maps an MQTT style topic to an AMQP routing key: wallet/W1/+ becomes wallet.W1.* and # stays #.
func RoutingKey(topic string) string {
	parts := strings.Split(topic, "/")
	for i, p := range parts {
		if p == "+" {
			parts[i] = "*"
		}
	}

	return strings.Join(parts, ".")
}

// Topic maps a routing key back to a topic.
func Topic(key string) string {
	return strings.ReplaceAll(key, ".", "/")
}

var _ msg.Broker = (*Amqp)(nil)
