package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "KITCHEN_ID", "DB_FILE_PATH", "SESSION_COOKIE_SECURE", "STORE_LOCK_TIMEOUT", "INSTANCE_ID", "CLIENT_STATUS_GROUP"} {
		t.Setenv(k, "")
	}
	cfg := Load(DefaultDashboardAddr)
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	assert.Equal(t, []string{"localhost:29092"}, cfg.KafkaBrokers)
	assert.True(t, strings.HasPrefix(cfg.KitchenID, "kitchen-"))
	assert.Equal(t, "data/food-court-db.json", cfg.DBFilePath)
	assert.False(t, cfg.SessionCookieSecure)
	assert.Equal(t, 5*time.Second, cfg.StoreLockTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("KITCHEN_ID", "kitchen-1")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("STORE_LOCK_TIMEOUT", "250ms")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("INSTANCE_ID", "api-2")

	cfg := Load(DefaultAPIAddr)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "client-status-api-2", cfg.ClientStatusGroup)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "kitchen-1", cfg.KitchenID)
	assert.True(t, cfg.SessionCookieSecure)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreLockTimeout)
}

func TestLoad_BinariesDoNotShareAddr(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	addrs := map[string]bool{}
	for _, def := range []string{DefaultAPIAddr, DefaultKitchenAddr, DefaultDashboardAddr} {
		addrs[Load(def).HTTPAddr] = true
	}
	assert.Len(t, addrs, 3)
}

func TestLoad_ClientStatusGroupPerInstance(t *testing.T) {
	t.Setenv("CLIENT_STATUS_GROUP", "")
	t.Setenv("INSTANCE_ID", "api-1")
	a := Load(DefaultAPIAddr).ClientStatusGroup
	t.Setenv("INSTANCE_ID", "api-2")
	b := Load(DefaultAPIAddr).ClientStatusGroup
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "client-status-"))

	t.Setenv("CLIENT_STATUS_GROUP", "client-status")
	assert.Equal(t, "client-status", Load(DefaultAPIAddr).ClientStatusGroup)
}
