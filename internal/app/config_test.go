package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront-cart/internal/messaging/kafka"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, LauncherWhatsApp, cfg.Launcher)
	assert.Equal(t, kafka.TopicCheckoutRequests, cfg.CheckoutTopic)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"CART_HTTP_ADDR":                "localhost:8081",
		"CART_METRICS_ADDR":             "localhost:9091",
		"CART_CURRENCY":                 " EGP ",
		"CART_WHATSAPP_PHONE":           "+20 100 000 0000",
		"CART_WHATSAPP_BASE_URL":        "https://api.whatsapp.com/send",
		"CART_LAUNCHER":                 " Both ",
		"KAFKA_BROKERS":                 "broker1:9092, broker2:9092,,",
		"CART_CHECKOUT_TOPIC":           "orders.chat",
		"CART_SESSION_TTL":              "2h",
		"CART_SESSION_CLEANUP_INTERVAL": "30s",
		"CART_MAX_SESSIONS":             "50",
	}))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8081", cfg.HTTPAddr)
	assert.Equal(t, "localhost:9091", cfg.MetricsAddr)
	assert.Equal(t, "EGP", cfg.Currency)
	assert.Equal(t, "+20 100 000 0000", cfg.WhatsAppPhone)
	assert.Equal(t, "https://api.whatsapp.com/send", cfg.WhatsAppBaseURL)
	assert.Equal(t, LauncherBoth, cfg.Launcher)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "orders.chat", cfg.CheckoutTopic)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.SessionCleanupInterval)
	assert.Equal(t, 50, cfg.MaxSessions)
}

func TestLoadConfigFromEnv_EmptyValuesIgnored(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"CART_HTTP_ADDR": "   ",
		"CART_LAUNCHER":  "",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, LauncherWhatsApp, cfg.Launcher)
}

func TestLoadConfigFromEnv_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"ttl", map[string]string{"CART_SESSION_TTL": "soon"}},
		{"interval", map[string]string{"CART_SESSION_CLEANUP_INTERVAL": "1 minute"}},
		{"max sessions", map[string]string{"CART_MAX_SESSIONS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromEnv(mapLookup(tt.env))
			require.Error(t, err)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown launcher", func(c *Config) { c.Launcher = "telegram" }, `unknown launcher "telegram"`},
		{"kafka without brokers", func(c *Config) { c.Launcher = LauncherKafka }, "requires KAFKA_BROKERS"},
		{"both without brokers", func(c *Config) { c.Launcher = LauncherBoth }, "requires KAFKA_BROKERS"},
		{"whatsapp without phone", func(c *Config) { c.WhatsAppPhone = "" }, "whatsapp phone is required"},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "http address is required"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "session ttl must be positive"},
		{"zero interval", func(c *Config) { c.SessionCleanupInterval = 0 }, "cleanup interval must be positive"},
		{"negative max sessions", func(c *Config) { c.MaxSessions = -1 }, "max sessions must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_KafkaOnlyWithoutPhone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Launcher = LauncherKafka
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.WhatsAppPhone = ""

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_JoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = ""
	cfg.SessionTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http address is required")
	assert.Contains(t, err.Error(), "session ttl must be positive")
}
