// Package notify содержит реализации domain.Notifier: вывод в лог,
// асинхронную обёртку и запись уведомлений для тестов.
package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

// LogNotifier пишет уведомления в лог: success: Info, warning: Warn.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт notifier поверх logrus.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

// Notify выводит уведомление.
func (n *LogNotifier) Notify(notification domain.Notification) {
	entry := n.logger.WithFields(log.Fields{
		"kind":      notification.Kind,
		"duration":  notification.Duration.String(),
		"placement": notification.Placement,
	})

	switch notification.Kind {
	case domain.NotificationWarning:
		entry.Warn(notification.Message)
	default:
		entry.Info(notification.Message)
	}
}

// Async доставляет уведомления в отдельной горутине и гасит панику получателя.
type Async struct {
	next   domain.Notifier
	logger *log.Entry
	wg     sync.WaitGroup
}

// NewAsync оборачивает next в fire-and-forget доставку.
func NewAsync(next domain.Notifier, logger *log.Entry) *Async {
	if logger == nil {
		logger = log.WithField("component", "notifier-async")
	}
	return &Async{next: next, logger: logger}
}

// Notify возвращается сразу, не дожидаясь доставки.
func (a *Async) Notify(notification domain.Notification) {
	if a.next == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.WithField("panic", r).Warn("notifier panicked, notification dropped")
			}
		}()
		a.next.Notify(notification)
	}()
}

// Wait дожидается доставки уже отправленных уведомлений (используется при остановке и в тестах).
func (a *Async) Wait() {
	a.wg.Wait()
}

// Recorder запоминает уведомления.
type Recorder struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

// Notify сохраняет уведомление.
func (r *Recorder) Notify(notification domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notification)
}

// Notifications возвращает копию сохранённых уведомлений.
func (r *Recorder) Notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.notifications...)
}

// Count возвращает число уведомлений указанного типа.
func (r *Recorder) Count(kind domain.NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.Kind == kind {
			count++
		}
	}
	return count
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*Async)(nil)
	_ domain.Notifier = (*Recorder)(nil)
)
