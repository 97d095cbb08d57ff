package kafka

import (
	"errors"
	"time"
)

// EventType определяет тип события
type EventType string

const (
	// EventTypeCheckoutRequested: покупатель отправил заказ из корзины.
	EventTypeCheckoutRequested EventType = "cart.checkout.requested"
)

// Topics для Kafka
const (
	TopicCheckoutRequests = "storefront.checkout.requests"
)

// Kafka headers
const (
	HeaderContentType = "content-type"
)

// ErrProducerClosed возвращается при публикации в закрытый producer.
var ErrProducerClosed = errors.New("kafka producer is closed")

// CheckoutEvent: заказ, переданный из корзины во внешний канал.
type CheckoutEvent struct {
	EventType   EventType `json:"event_type"`
	Reference   string    `json:"reference"`
	Destination string    `json:"destination"`
	// Text: читаемый текст заказа, Payload: он же в экранированном виде.
	Text      string    `json:"text"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCheckoutEvent создаёт событие отправки заказа.
func NewCheckoutEvent(reference, destination, text, payload string) *CheckoutEvent {
	return &CheckoutEvent{
		EventType:   EventTypeCheckoutRequested,
		Reference:   reference,
		Destination: destination,
		Text:        text,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
}
