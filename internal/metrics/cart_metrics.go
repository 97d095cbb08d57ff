package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики операций корзины.
type CartMetrics struct {
	// Счётчики операций
	itemsAdded       prometheus.Counter
	itemsRemoved     prometheus.Counter
	quantityUpdates  prometheus.Counter
	cartsCleared     prometheus.Counter
	checkoutsSent    prometheus.Counter
	checkoutsEmpty   prometheus.Counter
	checkoutsFailed  prometheus.Counter
	notificationsOut *prometheus.CounterVec

	// Время передачи заказа во внешний канал
	checkoutDuration prometheus.Histogram

	activeCarts   prometheus.Gauge
	checkoutValue prometheus.Histogram
	// Число товаров в оформленных корзинах
	checkoutItems prometheus.Histogram
}

// NewCartMetrics создаёт метрики корзины в реестре по умолчанию.
func NewCartMetrics() *CartMetrics {
	return NewCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCartMetricsWithRegisterer создаёт метрики в переданном реестре (удобно для тестов).
func NewCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		itemsAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_items_added_total",
			Help: "Total number of add-to-cart operations",
		}),
		itemsRemoved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_items_removed_total",
			Help: "Total number of line items removed from carts",
		}),
		quantityUpdates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_quantity_updates_total",
			Help: "Total number of quantity updates",
		}),
		cartsCleared: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_cleared_total",
			Help: "Total number of cart clear operations",
		}),
		checkoutsSent: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_checkouts_sent_total",
			Help: "Total number of checkout messages handed to the launcher",
		}),
		checkoutsEmpty: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_checkouts_empty_total",
			Help: "Total number of checkout attempts rejected because the cart was empty",
		}),
		checkoutsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_checkouts_failed_total",
			Help: "Total number of checkout launches that failed",
		}),
		notificationsOut: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cart_notifications_total",
			Help: "Total number of user notifications grouped by kind",
		}, []string{"kind"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "cart_checkout_launch_duration_seconds",
			Help:    "Duration of checkout hand-off to the message launcher in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		checkoutItems: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "cart_checkout_items",
			Help:    "Total item count of carts sent to checkout",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),
		activeCarts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cart_active_sessions",
			Help: "Number of cart sessions currently held in memory",
		}),
		checkoutValue: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "cart_checkout_value",
			Help:    "Total price of carts sent to checkout",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// Все методы безопасны для nil-получателя: метрики в корзине опциональны.

// RecordItemAdded увеличивает счётчик добавлений.
func (m *CartMetrics) RecordItemAdded() {
	if m == nil {
		return
	}
	m.itemsAdded.Inc()
}

// RecordItemRemoved увеличивает счётчик удалённых позиций.
func (m *CartMetrics) RecordItemRemoved() {
	if m == nil {
		return
	}
	m.itemsRemoved.Inc()
}

// RecordQuantityUpdated увеличивает счётчик изменений количества.
func (m *CartMetrics) RecordQuantityUpdated() {
	if m == nil {
		return
	}
	m.quantityUpdates.Inc()
}

// RecordCleared увеличивает счётчик очисток корзины.
func (m *CartMetrics) RecordCleared() {
	if m == nil {
		return
	}
	m.cartsCleared.Inc()
}

// RecordCheckoutSent фиксирует успешную передачу заказа, его сумму и число товаров.
func (m *CartMetrics) RecordCheckoutSent(total float64, items int, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutsSent.Inc()
	m.checkoutValue.Observe(total)
	m.checkoutItems.Observe(float64(items))
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordCheckoutEmpty фиксирует попытку оформить пустую корзину.
func (m *CartMetrics) RecordCheckoutEmpty() {
	if m == nil {
		return
	}
	m.checkoutsEmpty.Inc()
}

// RecordCheckoutFailed фиксирует ошибку внешнего канала.
func (m *CartMetrics) RecordCheckoutFailed(duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutsFailed.Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordNotification увеличивает счётчик уведомлений по типу.
func (m *CartMetrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notificationsOut.WithLabelValues(kind).Inc()
}

// SetActiveCarts выставляет число корзин в памяти.
func (m *CartMetrics) SetActiveCarts(count int) {
	if m == nil {
		return
	}
	m.activeCarts.Set(float64(count))
}
