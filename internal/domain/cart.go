package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ItemID: непрозрачный идентификатор товара в корзине.
// Числовые идентификаторы приводятся к строке на границе (см. ItemIDFrom).
type ItemID string

// ItemIDFrom приводит строковый или числовой идентификатор к ItemID.
func ItemIDFrom(v any) ItemID {
	switch id := v.(type) {
	case ItemID:
		return id
	case string:
		return ItemID(strings.TrimSpace(id))
	case int:
		return ItemID(strconv.Itoa(id))
	case int32:
		return ItemID(strconv.FormatInt(int64(id), 10))
	case int64:
		return ItemID(strconv.FormatInt(id, 10))
	case uint:
		return ItemID(strconv.FormatUint(uint64(id), 10))
	case uint32:
		return ItemID(strconv.FormatUint(uint64(id), 10))
	case uint64:
		return ItemID(strconv.FormatUint(id, 10))
	case float64:
		return ItemID(strconv.FormatFloat(id, 'f', -1, 64))
	case json.Number:
		// "1.0" и 1 должны давать один и тот же товар.
		if n, err := id.Int64(); err == nil {
			return ItemID(strconv.FormatInt(n, 10))
		}
		if f, err := id.Float64(); err == nil {
			return ItemID(strconv.FormatFloat(f, 'f', -1, 64))
		}
		return ItemID(strings.TrimSpace(id.String()))
	case fmt.Stringer:
		return ItemID(id.String())
	default:
		return ItemID(fmt.Sprint(v))
	}
}

// String возвращает строковое представление идентификатора.
func (id ItemID) String() string { return string(id) }

// Product: товар со страницы витрины, который добавляют в корзину.
// Price приходит в «сыром» виде: число или строка с символом валюты.
type Product struct {
	ID       ItemID
	Title    string
	Price    any
	ImageURL string
}

// LineItem представляет одну позицию корзины.
type LineItem struct {
	ID    ItemID `json:"id"`
	Title string `json:"title"`
	// Price: строка для отображения, фиксируется при первом добавлении.
	Price string `json:"price"`
	// NumericPrice: цена для расчётов, обновляется при каждом добавлении.
	NumericPrice float64 `json:"numericPrice"`
	ImageURL     string  `json:"imageUrl"`
	// Quantity всегда >= 1: позиции с меньшим количеством удаляются.
	Quantity int `json:"quantity"`
}

// CartState: полное состояние корзины.
type CartState struct {
	Items  []LineItem
	IsOpen bool
}

// CartSnapshot: представление корзины для панели: состояние плюс производные значения.
type CartSnapshot struct {
	Items          []LineItem `json:"items"`
	IsOpen         bool       `json:"isOpen"`
	TotalItemCount int        `json:"totalItemCount"`
	TotalPrice     string     `json:"totalPrice"`
}

// ValidateInvariants проверяет инварианты состояния и возвращает список замечаний.
func (s CartState) ValidateInvariants() []error {
	var errs []error

	seen := make(map[ItemID]struct{}, len(s.Items))
	for _, item := range s.Items {
		if _, dup := seen[item.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID))
		}
		seen[item.ID] = struct{}{}

		if item.Quantity < 1 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrItemQtyInvalid, item.ID))
		}
		if item.NumericPrice < 0 || math.IsNaN(item.NumericPrice) || math.IsInf(item.NumericPrice, 0) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrItemPriceInvalid, item.ID))
		}
	}

	return errs
}
