package cart

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/checkout"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
	"github.com/vladislavdragonenkov/storefront-cart/internal/metrics"
)

// Messages: тексты уведомлений для покупателя.
type Messages struct {
	ItemAdded       string
	CartEmpty       string
	DisplayDuration time.Duration
	Placement       domain.Placement
}

// DefaultMessages возвращает тексты витрины.
func DefaultMessages() Messages {
	return Messages{
		ItemAdded:       "تمت إضافة المنتج إلى السلة",
		CartEmpty:       "السلة فارغة، أضف منتجات أولاً",
		DisplayDuration: 2 * time.Second,
		Placement:       domain.PlacementBottomRight,
	}
}

// Options задаёт зависимости и настройки Store.
type Options struct {
	Logger      *log.Entry
	Notifier    domain.Notifier
	Launcher    domain.MessageLauncher
	Metrics     *metrics.CartMetrics
	Destination string
	Template    checkout.Template
	Messages    Messages
}

// Option настраивает Store.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithNotifier задаёт получателя уведомлений.
func WithNotifier(notifier domain.Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

// WithLauncher задаёт внешний канал для оформления заказа.
func WithLauncher(launcher domain.MessageLauncher) Option {
	return func(opts *Options) {
		opts.Launcher = launcher
	}
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithDestination задаёт контакт магазина, которому уходит заказ.
func WithDestination(destination string) Option {
	return func(opts *Options) {
		opts.Destination = destination
	}
}

// WithTemplate задаёт шаблон сообщения с заказом.
func WithTemplate(tpl checkout.Template) Option {
	return func(opts *Options) {
		opts.Template = tpl
	}
}

// WithMessages задаёт тексты уведомлений.
func WithMessages(messages Messages) Option {
	return func(opts *Options) {
		opts.Messages = messages
	}
}
