// Package checkout формирует текст заказа из содержимого корзины и передаёт
// его во внешний канал связи (WhatsApp-ссылка, Kafka).
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

// Template задаёт обрамление сообщения с заказом.
type Template struct {
	// Greeting печатается перед списком позиций, если не пустой.
	Greeting   string
	TotalLabel string
	// Closing печатается после итоговой суммы, если не пустой.
	Closing  string
	Currency string
}

// DefaultTemplate возвращает шаблон витрины: арабский текст, валюта: египетский фунт.
func DefaultTemplate() Template {
	return Template{
		Greeting:   "مرحباً، أود طلب المنتجات التالية:",
		TotalLabel: "الإجمالي",
		Closing:    "شكراً لكم!",
		Currency:   "ج",
	}
}

// Line: одна строка заказа.
type Line struct {
	Title    string
	Quantity int
	Price    string
}

// Message: готовый к отправке заказ.
type Message struct {
	Lines    []Line
	Total    string
	template Template
}

// NewMessage собирает сообщение из позиций корзины и уже отформатированной суммы.
func NewMessage(items []domain.LineItem, total string, tpl Template) Message {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return Message{Lines: lines, Total: total, template: tpl}
}

// Text возвращает многострочный текст заказа:
//
//	<title> - <quantity> × <price> <currency>
//	...
//
//	<total label>: <amount> <currency>
func (m Message) Text() string {
	var b strings.Builder

	if m.template.Greeting != "" {
		b.WriteString(m.template.Greeting)
		b.WriteString("\n\n")
	}

	for i, line := range m.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s - %d × %s", line.Title, line.Quantity, m.withCurrency(line.Price))
	}

	label := m.template.TotalLabel
	if label == "" {
		label = "Total"
	}
	fmt.Fprintf(&b, "\n\n%s: %s", label, m.withCurrency(m.Total))

	if m.template.Closing != "" {
		b.WriteString("\n\n")
		b.WriteString(m.template.Closing)
	}

	return b.String()
}

// Escaped возвращает текст, экранированный для query-параметра ссылки.
func (m Message) Escaped() string {
	return EscapePayload(m.Text())
}

// withCurrency дописывает валюту, если цена её ещё не содержит.
func (m Message) withCurrency(amount string) string {
	cur := m.template.Currency
	if cur == "" || strings.Contains(amount, cur) {
		return amount
	}
	return amount + " " + cur
}

// EscapePayload экранирует текст для query-параметра; пробелы кодируются как %20,
// переводы строк: как %0A.
func EscapePayload(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// UnescapePayload выполняет обратное преобразование.
func UnescapePayload(escaped string) (string, error) {
	text, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("unescape checkout payload: %w", err)
	}
	return text, nil
}
