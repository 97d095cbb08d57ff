package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
	"github.com/vladislavdragonenkov/storefront-cart/internal/messaging/kafka"
)

// EventPublisher публикует событие в topic (реализуется kafka.Producer).
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// KafkaLauncher передаёт заказ в Kafka, откуда его забирает операторская смена.
type KafkaLauncher struct {
	publisher EventPublisher
	topic     string
	logger    *log.Entry
}

// NewKafkaLauncher создаёт launcher; пустой topic заменяется на kafka.TopicCheckoutRequests.
func NewKafkaLauncher(publisher EventPublisher, topic string, logger *log.Entry) *KafkaLauncher {
	if topic == "" {
		topic = kafka.TopicCheckoutRequests
	}
	if logger == nil {
		logger = log.WithField("component", "checkout-kafka")
	}
	return &KafkaLauncher{publisher: publisher, topic: topic, logger: logger}
}

// Launch публикует событие с уникальной ссылкой на заказ.
func (l *KafkaLauncher) Launch(ctx context.Context, destination, escapedPayload string) error {
	if l.publisher == nil {
		return fmt.Errorf("kafka launcher: publisher is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := UnescapePayload(escapedPayload)
	if err != nil {
		return err
	}

	reference := uuid.NewString()
	event := kafka.NewCheckoutEvent(reference, destination, text, escapedPayload)
	if err := l.publisher.PublishEvent(l.topic, reference, event); err != nil {
		return fmt.Errorf("publish checkout %s: %w", reference, err)
	}

	l.logger.WithFields(log.Fields{
		"reference": reference,
		"topic":     l.topic,
	}).Info("checkout published")
	return nil
}

var _ domain.MessageLauncher = (*KafkaLauncher)(nil)
