package router

import (
	"go.uber.org/zap"

	"github.com/tarancss/canoed/lib/msg"
)

// Publisher sends routed blocks to the message broker with the delivery options read from the config.
type Publisher struct {
	mb     msg.Broker
	opts   msg.Opts
	logger *zap.Logger
}

// NewPublisher returns a Publisher sending to mb with opts.
func NewPublisher(mb msg.Broker, opts msg.Opts, logger *zap.Logger) *Publisher {
	return &Publisher{mb: mb, opts: opts, logger: logger}
}

// Publish sends payload to topic. Delivery is not confirmed to the caller: failures are logged and reported
// through the returned bool only for accounting.
func (p *Publisher) Publish(topic string, payload []byte) bool {
	if err := p.mb.Publish(topic, payload, p.opts); err != nil {
		p.logger.Error("Error publishing block", zap.String("topic", topic), zap.Error(err))

		return false
	}

	return true
}
