package domain

import (
	"context"
	"time"
)

// NotificationKind: тип уведомления для пользователя.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
)

// Placement: место показа уведомления на экране.
type Placement string

const (
	PlacementBottomRight Placement = "bottom-right"
	PlacementTopRight    Placement = "top-right"
)

// Notification описывает кратковременное сообщение пользователю.
type Notification struct {
	Kind      NotificationKind
	Message   string
	Duration  time.Duration
	Placement Placement
}

// Notifier показывает уведомления. Вызов fire-and-forget:
// корзина не ждёт результата и не реагирует на сбои.
type Notifier interface {
	Notify(n Notification)
}

// MessageLauncher открывает внешний канал связи с готовым текстом заказа.
type MessageLauncher interface {
	// Launch получает адрес получателя и URL-экранированный текст сообщения.
	Launch(ctx context.Context, destination, escapedPayload string) error
}

// SessionSweeper удаляет неактивные сессии корзин.
type SessionSweeper interface {
	// DeleteExpired удаляет не более limit сессий, последняя активность которых раньше before.
	DeleteExpired(before time.Time, limit int) (int, error)
	// Len возвращает число активных сессий.
	Len() int
}
