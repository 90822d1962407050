package config

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

// Default listen addresses, one per binary so they can share a host.
const (
	DefaultAPIAddr       = ":8080"
	DefaultKitchenAddr   = ":8081"
	DefaultDashboardAddr = ":8082"
)

type Config struct {
	HTTPAddr            string
	KafkaBrokers        []string
	KitchenID           string
	DBFilePath          string
	SessionCookieSecure bool
	ServiceName         string
	LogLevel            string
	LogFormat           string
	DashboardGroup      string
	InstanceID          string
	ClientStatusGroup   string
	StoreLockTimeout    time.Duration
	MetricsInterval     time.Duration
}

// Load reads the environment; defaultAddr is used when HTTP_ADDR is unset.
func Load(defaultAddr string) Config {
	host, _ := os.Hostname()
	instance := getenv("INSTANCE_ID", host)
	return Config{
		HTTPAddr:            getenv("HTTP_ADDR", defaultAddr),
		KafkaBrokers:        splitCSV(getenv("KAFKA_BROKERS", "localhost:29092")),
		KitchenID:           getenv("KITCHEN_ID", fmt.Sprintf("kitchen-%d", rand.Intn(1000))),
		DBFilePath:          getenv("DB_FILE_PATH", "data/food-court-db.json"),
		SessionCookieSecure: getbool("SESSION_COOKIE_SECURE", false),
		ServiceName:         getenv("SERVICE_NAME", "food-court"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogFormat:           getenv("LOG_FORMAT", "json"),
		DashboardGroup:      getenv("DASHBOARD_GROUP", orders.GroupDashboard),
		InstanceID:          instance,
		ClientStatusGroup:   getenv("CLIENT_STATUS_GROUP", orders.ClientStatusGroupFor(instance)),
		StoreLockTimeout:    getduration("STORE_LOCK_TIMEOUT", 5*time.Second),
		MetricsInterval:     getduration("METRICS_INTERVAL", 10*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
