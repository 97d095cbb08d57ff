package kafka

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const clientID = "storefront-cart"

// Producer публикует события корзины в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
	closed   atomic.Bool
}

// NewProducer создаёт синхронный producer с подтверждением от всех реплик.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true // Повторная отправка не должна дублировать заказ
	config.Net.MaxOpenRequests = 1    // Требование идемпотентного producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewProducerFromSync(producer, nil), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer (например, mocks.SyncProducer).
func NewProducerFromSync(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{
		producer: producer,
		logger:   logger,
	}
}

// PublishEvent сериализует событие в JSON и отправляет его в topic с ключом key.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderContentType), Value: []byte("application/json")},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Healthy сообщает, можно ли ещё публиковать события.
func (p *Producer) Healthy() error {
	if p == nil || p.closed.Load() {
		return ErrProducerClosed
	}
	return nil
}

// Close закрывает producer. Повторный вызов безопасен.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
