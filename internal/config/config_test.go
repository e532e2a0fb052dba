package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 240*time.Hour, cfg.CheckIn.GraceWindow)
	assert.Equal(t, "boxoffice", cfg.Auth.OrderTokenIssuer)
	assert.Equal(t, "tickets", cfg.Auth.OrderTokenAud)
	assert.Equal(t, []string{"order-events", "notifications"}, cfg.Kafka.Topics.All())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHECKIN_GRACE_WINDOW", "1h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CHECKOUT_PERSIST_RETRIES", "5")
	t.Setenv("OUTBOX_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.CheckIn.GraceWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Checkout.PersistRetries)
	assert.False(t, cfg.Outbox.Enabled)
}

func TestLoadIgnoresMalformed(t *testing.T) {
	t.Setenv("CHECKIN_GRACE_WINDOW", "soon")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")

	cfg := Load()

	assert.Equal(t, 240*time.Hour, cfg.CheckIn.GraceWindow)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}
