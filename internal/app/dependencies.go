package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/cart"
	"github.com/vladislavdragonenkov/storefront-cart/internal/checkout"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
	"github.com/vladislavdragonenkov/storefront-cart/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront-cart/internal/metrics"
	"github.com/vladislavdragonenkov/storefront-cart/internal/notify"
	"github.com/vladislavdragonenkov/storefront-cart/internal/storage/memory"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Config   Config
	Sessions *memory.SessionRepository
	Metrics  *metrics.CartMetrics
	Notifier *notify.Async
	Launcher domain.MessageLauncher
	Producer *kafka.Producer
	Logger   *log.Entry
}

// NewDependencies создаёт зависимости по конфигурации.
// Kafka подключается только для launcher kafka/both.
func NewDependencies(cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Config:   cfg,
		Sessions: memory.NewSessionRepository(memory.WithMaxSessions(cfg.MaxSessions)),
		Metrics:  metrics.NewCartMetrics(),
		Notifier: notify.NewAsync(notify.NewLogNotifier(logger.WithField("layer", "notifier")), logger),
		Logger:   logger,
	}

	if cfg.Launcher == LauncherKafka || cfg.Launcher == LauncherBoth {
		producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, fmt.Errorf("init kafka: %w", err)
		}
		deps.Producer = producer
	}

	launcher, err := buildLauncher(cfg, deps.Producer, logger)
	if err != nil {
		closeKafka(deps.Producer, logger)
		return nil, err
	}
	deps.Launcher = launcher

	return deps, nil
}

// buildLauncher выбирает канал оформления заказа.
func buildLauncher(cfg Config, producer *kafka.Producer, logger *log.Entry) (domain.MessageLauncher, error) {
	whatsapp := func() domain.MessageLauncher {
		opener := checkout.CapturingOpener(checkout.LogOpener(logger.WithField("layer", "checkout")))
		return checkout.NewWhatsAppLauncher(opener, cfg.WhatsAppBaseURL)
	}
	kafkaLauncher := func() (domain.MessageLauncher, error) {
		if producer == nil {
			return nil, fmt.Errorf("launcher %q requires a kafka producer", cfg.Launcher)
		}
		return checkout.NewKafkaLauncher(producer, cfg.CheckoutTopic, logger.WithField("layer", "checkout")), nil
	}

	switch cfg.Launcher {
	case LauncherWhatsApp, "":
		return whatsapp(), nil
	case LauncherKafka:
		return kafkaLauncher()
	case LauncherBoth:
		k, err := kafkaLauncher()
		if err != nil {
			return nil, err
		}
		return checkout.MultiLauncher{whatsapp(), k}, nil
	default:
		return nil, fmt.Errorf("unknown launcher %q", cfg.Launcher)
	}
}

// NewStore создаёт корзину для новой сессии покупателя.
func (d *Dependencies) NewStore() *cart.Store {
	tpl := checkout.DefaultTemplate()
	tpl.Currency = d.Config.Currency

	logger := d.Logger.WithField("layer", "cart")
	store := cart.NewStore(
		cart.WithLogger(logger),
		cart.WithNotifier(d.Notifier),
		cart.WithLauncher(d.Launcher),
		cart.WithMetrics(d.Metrics),
		cart.WithDestination(d.Config.WhatsAppPhone),
		cart.WithTemplate(tpl),
	)
	store.Subscribe(logCartChanges(logger))
	return store
}

// logCartChanges пишет в debug-лог итоги корзины после каждого изменения.
func logCartChanges(logger *log.Entry) func(domain.CartSnapshot) {
	return func(snapshot domain.CartSnapshot) {
		logger.WithFields(log.Fields{
			"items":   snapshot.TotalItemCount,
			"total":   snapshot.TotalPrice,
			"is_open": snapshot.IsOpen,
		}).Debug("cart changed")
	}
}

// Close освобождает внешние ресурсы.
func (d *Dependencies) Close() {
	d.Notifier.Wait()
	closeKafka(d.Producer, d.Logger)
}
