package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront-cart/internal/checkout"
	"github.com/vladislavdragonenkov/storefront-cart/internal/messaging/kafka"
)

// LauncherKind: канал, через который уходит заказ.
type LauncherKind string

const (
	LauncherWhatsApp LauncherKind = "whatsapp"
	LauncherKafka    LauncherKind = "kafka"
	LauncherBoth     LauncherKind = "both"
)

// Config описывает настройки запуска сервиса корзин.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	Currency        string
	WhatsAppPhone   string
	WhatsAppBaseURL string
	Launcher        LauncherKind

	KafkaBrokers  []string
	CheckoutTopic string

	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration
	MaxSessions            int
}

// DefaultConfig возвращает настройки витрины по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:               ":8080",
		MetricsAddr:            ":9090",
		Currency:               "ج",
		WhatsAppPhone:          checkout.DefaultDestination,
		Launcher:               LauncherWhatsApp,
		CheckoutTopic:          kafka.TopicCheckoutRequests,
		SessionTTL:             30 * time.Minute,
		SessionCleanupInterval: time.Minute,
		MaxSessions:            10000,
	}
}

// LookupFunc читает переменную окружения (os.LookupEnv).
type LookupFunc func(key string) (string, bool)

// LoadConfigFromEnv накладывает переменные окружения CART_* и KAFKA_BROKERS на DefaultConfig.
func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	cfg := DefaultConfig()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("CART_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get("CART_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("CART_CURRENCY"); ok {
		cfg.Currency = v
	}
	if v, ok := get("CART_WHATSAPP_PHONE"); ok {
		cfg.WhatsAppPhone = v
	}
	if v, ok := get("CART_WHATSAPP_BASE_URL"); ok {
		cfg.WhatsAppBaseURL = v
	}
	if v, ok := get("CART_LAUNCHER"); ok {
		cfg.Launcher = LauncherKind(strings.ToLower(v))
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	if v, ok := get("CART_CHECKOUT_TOPIC"); ok {
		cfg.CheckoutTopic = v
	}

	var err error
	if v, ok := get("CART_SESSION_TTL"); ok {
		if cfg.SessionTTL, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("parse CART_SESSION_TTL: %w", err)
		}
	}
	if v, ok := get("CART_SESSION_CLEANUP_INTERVAL"); ok {
		if cfg.SessionCleanupInterval, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("parse CART_SESSION_CLEANUP_INTERVAL: %w", err)
		}
	}
	if v, ok := get("CART_MAX_SESSIONS"); ok {
		if cfg.MaxSessions, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("parse CART_MAX_SESSIONS: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	switch c.Launcher {
	case LauncherWhatsApp, LauncherKafka, LauncherBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown launcher %q", c.Launcher))
	}
	if (c.Launcher == LauncherKafka || c.Launcher == LauncherBoth) && len(c.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("launcher %q requires KAFKA_BROKERS", c.Launcher))
	}
	if c.WhatsAppPhone == "" && c.Launcher != LauncherKafka {
		errs = append(errs, errors.New("whatsapp phone is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.SessionCleanupInterval <= 0 {
		errs = append(errs, errors.New("session cleanup interval must be positive"))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, errors.New("max sessions must be non-negative"))
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
