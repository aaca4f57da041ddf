package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the process configuration and the hot-reloadable operations rules.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewOperationsConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthCookieName   string
	AuthCookieSecure bool
	SessionTTL       time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	Redis RedisConfig

	RateLimit RateLimitConfig

	CloudMetrics CloudMetricsConfig

	Bootstrap BootstrapConfig
}

// RedisConfig configures the cart session store. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// RateLimitConfig throttles login attempts and guards checkout against double
// submission. Both need Redis and are skipped without it.
type RateLimitConfig struct {
	Enabled         bool
	LoginRate       float64
	LoginBurst      int
	CheckoutLockTTL time.Duration
}

// CloudMetricsConfig pushes periodic per-store inventory gauges to a remote
// Prometheus endpoint.
type CloudMetricsConfig struct {
	Enabled        bool
	Endpoint       string
	Mode           string
	Interval       time.Duration
	BasicAuthUser  string
	BasicAuthToken string
}

// BootstrapConfig seeds the first root_admin account on an empty database.
type BootstrapConfig struct {
	RootEmail    string
	RootPassword string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:          getenv("APP_SERVICE", "trashforcoin"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		AuthCookieName:   strings.TrimSpace(getenv("AUTH_COOKIE_NAME", "tfc_session")),
		AuthCookieSecure: authCookieSecure,
		SessionTTL:       time.Duration(getenvInt("AUTH_SESSION_TTL_HOURS", 12)) * time.Hour,
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "trashforcoin"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME_SECONDS", 300),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", true),

		Redis: RedisConfig{
			Addr:       strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:   strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:         getenvInt("REDIS_DB", 0),
			SessionTTL: time.Duration(getenvInt("CART_SESSION_TTL_HOURS", 12)) * time.Hour,
		},

		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", true),
			LoginRate:       getenvFloat("RATE_LIMIT_LOGIN_RATE", 0.2),
			LoginBurst:      getenvInt("RATE_LIMIT_LOGIN_BURST", 5),
			CheckoutLockTTL: time.Duration(getenvInt("CHECKOUT_LOCK_TTL_SECONDS", 15)) * time.Second,
		},

		CloudMetrics: CloudMetricsConfig{
			Enabled:        getenvBool("CLOUD_METRICS_ENABLED", false),
			Endpoint:       strings.TrimSpace(getenv("CLOUD_METRICS_ENDPOINT", "")),
			Mode:           strings.ToLower(strings.TrimSpace(getenv("CLOUD_METRICS_MODE", "remote_write"))),
			Interval:       time.Duration(getenvInt("CLOUD_METRICS_INTERVAL_SECONDS", 60)) * time.Second,
			BasicAuthUser:  strings.TrimSpace(getenv("CLOUD_METRICS_USER", "")),
			BasicAuthToken: strings.TrimSpace(getenv("CLOUD_METRICS_TOKEN", "")),
		},

		Bootstrap: BootstrapConfig{
			RootEmail:    strings.ToLower(strings.TrimSpace(getenv("BOOTSTRAP_ROOT_EMAIL", ""))),
			RootPassword: getenv("BOOTSTRAP_ROOT_PASSWORD", ""),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
