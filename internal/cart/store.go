// Package cart хранит состояние корзины: позиции, количество, признак открытой панели,
// и вычисляет итоги.
package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/checkout"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
	"github.com/vladislavdragonenkov/storefront-cart/internal/metrics"
	"github.com/vladislavdragonenkov/storefront-cart/internal/pricing"
)

// Store: единственный владелец состояния корзины.
// Каждая операция заменяет срез позиций целиком, поэтому читатели
// никогда не видят частично применённое изменение.
type Store struct {
	mu     sync.RWMutex
	items  []domain.LineItem
	isOpen bool

	// version растёт с каждым изменением; delivered: последняя версия,
	// отданная подписчикам.
	version   uint64
	deliverMu sync.Mutex
	delivered uint64

	subMu       sync.Mutex
	subscribers map[uint64]func(domain.CartSnapshot)
	nextSubID   uint64

	logger      *log.Entry
	notifier    domain.Notifier
	launcher    domain.MessageLauncher
	metrics     *metrics.CartMetrics
	destination string
	template    checkout.Template
	messages    Messages
}

// NewStore создаёт пустую закрытую корзину.
func NewStore(options ...Option) *Store {
	opts := Options{
		Template: checkout.DefaultTemplate(),
		Messages: DefaultMessages(),
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	if opts.Destination == "" {
		opts.Destination = checkout.DefaultDestination
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = checkout.NewWhatsAppLauncher(checkout.LogOpener(logger), "")
	}

	return &Store{
		subscribers: make(map[uint64]func(domain.CartSnapshot)),
		logger:      logger,
		notifier:    opts.Notifier,
		launcher:    launcher,
		metrics:     opts.Metrics,
		destination: opts.Destination,
		template:    opts.Template,
		messages:    opts.Messages,
	}
}

// AddItem добавляет товар. Повторное добавление увеличивает количество на 1
// и обновляет NumericPrice; строка Price остаётся от первого добавления.
func (s *Store) AddItem(product domain.Product) {
	price := pricing.Normalize(product.Price)

	s.mutate(func(items []domain.LineItem, isOpen bool) ([]domain.LineItem, bool) {
		if idx := indexOf(items, product.ID); idx >= 0 {
			next := clone(items)
			next[idx].Quantity++
			next[idx].NumericPrice = price.Numeric
			return next, isOpen
		}

		next := make([]domain.LineItem, len(items), len(items)+1)
		copy(next, items)
		return append(next, domain.LineItem{
			ID:           product.ID,
			Title:        product.Title,
			Price:        price.Display,
			NumericPrice: price.Numeric,
			ImageURL:     product.ImageURL,
			Quantity:     1,
		}), isOpen
	})

	s.metrics.RecordItemAdded()
	s.notify(domain.Notification{
		Kind:      domain.NotificationSuccess,
		Message:   s.messages.ItemAdded,
		Duration:  s.messages.DisplayDuration,
		Placement: s.messages.Placement,
	})
}

// RemoveItem удаляет позицию; отсутствующий id: не ошибка.
func (s *Store) RemoveItem(id domain.ItemID) {
	removed := false
	s.mutate(func(items []domain.LineItem, isOpen bool) ([]domain.LineItem, bool) {
		idx := indexOf(items, id)
		if idx < 0 {
			return items, isOpen
		}
		removed = true
		next := make([]domain.LineItem, 0, len(items)-1)
		next = append(next, items[:idx]...)
		return append(next, items[idx+1:]...), isOpen
	})

	if removed {
		s.metrics.RecordItemRemoved()
	}
}

// UpdateQuantity выставляет количество. Значение меньше 1 удаляет позицию.
func (s *Store) UpdateQuantity(id domain.ItemID, quantity int) {
	if quantity < 1 {
		s.RemoveItem(id)
		return
	}

	updated := false
	s.mutate(func(items []domain.LineItem, isOpen bool) ([]domain.LineItem, bool) {
		idx := indexOf(items, id)
		if idx < 0 {
			return items, isOpen
		}
		updated = true
		next := clone(items)
		next[idx].Quantity = quantity
		return next, isOpen
	})

	if updated {
		s.metrics.RecordQuantityUpdated()
	}
}

// Clear удаляет все позиции, не трогая признак открытой панели.
func (s *Store) Clear() {
	s.mutate(func(_ []domain.LineItem, isOpen bool) ([]domain.LineItem, bool) {
		return nil, isOpen
	})
	s.metrics.RecordCleared()
}

// ToggleOpen переключает видимость панели.
func (s *Store) ToggleOpen() {
	s.mutate(func(items []domain.LineItem, isOpen bool) ([]domain.LineItem, bool) {
		return items, !isOpen
	})
}

// Items возвращает копию позиций в порядке добавления.
func (s *Store) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items)
}

// IsOpen сообщает, открыта ли панель.
func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isOpen
}

// State возвращает копию состояния.
func (s *Store) State() domain.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartState{Items: clone(s.items), IsOpen: s.isOpen}
}

// Snapshot возвращает состояние вместе с итогами, посчитанными по одной версии позиций.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	items, isOpen := s.items, s.isOpen
	s.mu.RUnlock()
	return snapshotOf(items, isOpen)
}

// TotalItemCount: сумма количеств по всем позициям.
func (s *Store) TotalItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalItemCount(s.items)
}

// TotalPrice: сумма NumericPrice × Quantity с двумя знаками после запятой.
func (s *Store) TotalPrice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalPrice(s.items).StringFixed(2)
}

// BuildCheckoutMessage возвращает текст заказа по текущему содержимому корзины.
func (s *Store) BuildCheckoutMessage() string {
	s.mu.RLock()
	items := s.items
	s.mu.RUnlock()
	return s.message(items).Text()
}

// SendCheckout передаёт заказ во внешний канал и закрывает панель.
// Для пустой корзины показывает предупреждение и ничего не меняет.
func (s *Store) SendCheckout(ctx context.Context) error {
	s.mu.RLock()
	items := s.items
	s.mu.RUnlock()

	if len(items) == 0 {
		s.metrics.RecordCheckoutEmpty()
		s.notify(domain.Notification{
			Kind:      domain.NotificationWarning,
			Message:   s.messages.CartEmpty,
			Duration:  s.messages.DisplayDuration,
			Placement: s.messages.Placement,
		})
		return nil
	}

	msg := s.message(items)
	start := time.Now()
	if err := s.launcher.Launch(ctx, s.destination, msg.Escaped()); err != nil {
		s.metrics.RecordCheckoutFailed(time.Since(start))
		s.logger.WithError(err).WithField("items", len(items)).Warn("checkout launch failed")
		return fmt.Errorf("%w: %w", domain.ErrCheckoutLaunch, err)
	}

	total, _ := totalPrice(items).Float64()
	s.metrics.RecordCheckoutSent(total, totalItemCount(items), time.Since(start))
	s.logger.WithFields(log.Fields{
		"items": len(items),
		"total": msg.Total,
	}).Info("checkout sent")

	s.mutate(func(current []domain.LineItem, _ bool) ([]domain.LineItem, bool) {
		return current, false
	})
	return nil
}

// Subscribe регистрирует функцию, которая вызывается после изменений корзины.
// Подписчик получает снимки строго по возрастанию версии: если два изменения
// завершились одновременно, устаревший снимок пропускается. Менять корзину
// из подписчика синхронно нельзя. Возвращает функцию отписки.
func (s *Store) Subscribe(fn func(domain.CartSnapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// mutate применяет fn под блокировкой и уведомляет подписчиков уже после её снятия.
func (s *Store) mutate(fn func(items []domain.LineItem, isOpen bool) ([]domain.LineItem, bool)) {
	s.mu.Lock()
	s.items, s.isOpen = fn(s.items, s.isOpen)
	s.version++
	items, isOpen, version := s.items, s.isOpen, s.version
	s.mu.Unlock()

	s.publish(version, items, isOpen)
}

// publish отдаёт снимок подписчикам, если более новая версия ещё не отдана.
func (s *Store) publish(version uint64, items []domain.LineItem, isOpen bool) {
	s.subMu.Lock()
	subscribers := make([]func(domain.CartSnapshot), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subscribers = append(subscribers, sub)
	}
	s.subMu.Unlock()
	if len(subscribers) == 0 {
		return
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version

	snapshot := snapshotOf(items, isOpen)
	for _, sub := range subscribers {
		sub(snapshot)
	}
}

func (s *Store) message(items []domain.LineItem) checkout.Message {
	return checkout.NewMessage(items, totalPrice(items).StringFixed(2), s.template)
}

// notify вызывает notifier; его сбой не должен влиять на корзину.
func (s *Store) notify(n domain.Notification) {
	s.metrics.RecordNotification(string(n.Kind))
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Warn("notifier failed")
		}
	}()
	s.notifier.Notify(n)
}

// EmptySnapshot: снимок пустой закрытой корзины.
func EmptySnapshot() domain.CartSnapshot {
	return snapshotOf(nil, false)
}

func snapshotOf(items []domain.LineItem, isOpen bool) domain.CartSnapshot {
	return domain.CartSnapshot{
		Items:          clone(items),
		IsOpen:         isOpen,
		TotalItemCount: totalItemCount(items),
		TotalPrice:     totalPrice(items).StringFixed(2),
	}
}

func totalItemCount(items []domain.LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func totalPrice(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.NumericPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total
}

func indexOf(items []domain.LineItem, id domain.ItemID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return []domain.LineItem{}
	}
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}
