package domain

import "errors"

var (
	// Ошибка при некорректном количестве товара (< 1).
	ErrItemQtyInvalid = errors.New("item quantity must be at least one")
	// Ошибка, если цена позиции отрицательная или не число.
	ErrItemPriceInvalid = errors.New("item price must be a finite non-negative number")
	// Ошибка дублирования позиции с одинаковым идентификатором.
	ErrDuplicateItem = errors.New("duplicate cart item")
	// ErrNoCartScope: обращение к корзине вне области, где она предоставлена.
	ErrNoCartScope = errors.New("cart store is not available outside of its provider scope")
	// ErrCheckoutLaunch: внешний канал не смог принять сообщение с заказом.
	ErrCheckoutLaunch = errors.New("checkout launch failed")
	// ErrSessionNotFound возвращается, если сессия корзины не найдена или истекла.
	ErrSessionNotFound = errors.New("cart session not found")
)

// IsCheckoutLaunchError проверяет, связана ли ошибка с передачей заказа во внешний канал.
func IsCheckoutLaunchError(err error) bool {
	return errors.Is(err, ErrCheckoutLaunch)
}
