package events

import (
	"fmt"

	"ledgerpay/internal/config"

	"github.com/sirupsen/logrus"
)

// NewPublisher picks the broker named in cfg.Broker.
func NewPublisher(cfg config.EventsConfig, log *logrus.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "", "none":
		return NoopPublisher{}, nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log), nil
	default:
		return nil, fmt.Errorf("unknown event broker %q", cfg.Broker)
	}
}
