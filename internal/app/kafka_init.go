package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/messaging/kafka"
)

// newKafkaProducer: точка подмены в тестах.
var newKafkaProducer = kafka.NewProducer

// initKafkaProducer создаёт producer, если брокеры заданы.
// Возвращает nil, nil если список брокеров пустой.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := newKafkaProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
