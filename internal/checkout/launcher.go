package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

const (
	defaultWhatsAppBaseURL = "https://wa.me"

	// DefaultDestination: номер WhatsApp магазина, на который уходят заказы.
	DefaultDestination = "201027381559"
)

// ErrDestinationRequired возвращается, если не задан номер получателя.
var ErrDestinationRequired = errors.New("checkout destination is required")

// Opener открывает готовую ссылку во внешнем контексте.
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

// OpenerFunc адаптирует функцию к интерфейсу Opener.
type OpenerFunc func(ctx context.Context, rawURL string) error

// Open вызывает f.
func (f OpenerFunc) Open(ctx context.Context, rawURL string) error { return f(ctx, rawURL) }

// LogOpener только пишет ссылку в лог: сервер не может открыть вкладку сам.
func LogOpener(logger *log.Entry) Opener {
	if logger == nil {
		logger = log.WithField("component", "checkout-opener")
	}
	return OpenerFunc(func(_ context.Context, rawURL string) error {
		logger.WithField("url", rawURL).Info("checkout link ready")
		return nil
	})
}

type urlCaptureKey struct{}

type urlCapture struct {
	mu   sync.Mutex
	urls []string
}

// WithURLCapture возвращает контекст, в который CapturingOpener складывает открытые ссылки,
// и функцию для их чтения. Так HTTP-слой отдаёт ссылку браузеру.
func WithURLCapture(ctx context.Context) (context.Context, func() []string) {
	capture := &urlCapture{}
	read := func() []string {
		capture.mu.Lock()
		defer capture.mu.Unlock()
		return append([]string(nil), capture.urls...)
	}
	return context.WithValue(ctx, urlCaptureKey{}, capture), read
}

// CapturingOpener сохраняет ссылку в контекст (если есть WithURLCapture) и передаёт её next.
func CapturingOpener(next Opener) Opener {
	return OpenerFunc(func(ctx context.Context, rawURL string) error {
		if capture, ok := ctx.Value(urlCaptureKey{}).(*urlCapture); ok {
			capture.mu.Lock()
			capture.urls = append(capture.urls, rawURL)
			capture.mu.Unlock()
		}
		if next == nil {
			return nil
		}
		return next.Open(ctx, rawURL)
	})
}

// WhatsAppLauncher строит ссылку wa.me с текстом заказа.
type WhatsAppLauncher struct {
	baseURL string
	opener  Opener
}

// NewWhatsAppLauncher создаёт launcher; пустой baseURL означает https://wa.me.
func NewWhatsAppLauncher(opener Opener, baseURL string) *WhatsAppLauncher {
	if baseURL == "" {
		baseURL = defaultWhatsAppBaseURL
	}
	if opener == nil {
		opener = LogOpener(nil)
	}
	return &WhatsAppLauncher{
		baseURL: strings.TrimRight(baseURL, "/"),
		opener:  opener,
	}
}

// URL возвращает ссылку для номера destination. Из номера остаются только цифры.
func (l *WhatsAppLauncher) URL(destination, escapedPayload string) string {
	return l.baseURL + "/" + digitsOnly(destination) + "?text=" + escapedPayload
}

// Launch открывает ссылку через opener.
func (l *WhatsAppLauncher) Launch(ctx context.Context, destination, escapedPayload string) error {
	if digitsOnly(destination) == "" {
		return ErrDestinationRequired
	}
	return l.opener.Open(ctx, l.URL(destination, escapedPayload))
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// MultiLauncher передаёт заказ во все каналы по очереди и объединяет ошибки.
type MultiLauncher []domain.MessageLauncher

// Launch вызывает каждый launcher, даже если предыдущий вернул ошибку.
func (m MultiLauncher) Launch(ctx context.Context, destination, escapedPayload string) error {
	var errs []error
	for _, launcher := range m {
		if launcher == nil {
			continue
		}
		if err := launcher.Launch(ctx, destination, escapedPayload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.MessageLauncher = (*WhatsAppLauncher)(nil)
	_ domain.MessageLauncher = MultiLauncher(nil)
)
