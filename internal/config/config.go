package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Broker     BrokerConfig
	Admin      AdminConfig
	Logging    LoggingConfig
	Monitoring MonitoringConfig
	RateLimit  RateLimitConfig
	Tracing    TracingConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	Mode            string // "debug" or "release"
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address in host:port form.
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type BrokerConfig struct {
	// DefaultTTL is the message TTL in seconds when a publish names none.
	DefaultTTL int64
	// NeverExpireTTL is the TTL in seconds substituted for negative TTLs.
	// Ten years, which is never for practical purposes.
	NeverExpireTTL int64
	// SessionTTL is the idle session lifetime in seconds.
	SessionTTL int64
	// SweepInterval is how often the background expiry sweep runs.
	SweepInterval time.Duration
}

type AdminConfig struct {
	// AuthKey guards the admin endpoints. When empty the endpoints stay
	// registered but reject every request.
	AuthKey string
}

type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

type MonitoringConfig struct {
	Enabled     bool
	MetricsPath string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

type TracingConfig struct {
	// Exporter selects the trace exporter: "otlp", "console" or "none".
	Exporter string
	// Endpoint is the OTLP collector endpoint, host:port.
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// ServiceName labels exported spans.
	ServiceName string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "8080"),
			Mode:            getEnv("GIN_MODE", "release"),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Broker: BrokerConfig{
			DefaultTTL:     getInt64Env("DEFAULT_TTL", 3600),
			NeverExpireTTL: getInt64Env("NEVER_EXPIRE_TTL", 315360000),
			SessionTTL:     getInt64Env("SESSION_TTL", 3600),
			SweepInterval:  getDurationEnv("SWEEP_INTERVAL", 60*time.Second),
		},
		Admin: AdminConfig{
			AuthKey: getEnv("AUTH_KEY", ""), // SECURITY: must be set to enable admin access
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Monitoring: MonitoringConfig{
			Enabled:     getBoolEnv("METRICS_ENABLED", true),
			MetricsPath: getEnv("METRICS_PATH", "/metrics"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolEnv("RATE_LIMIT_ENABLED", false),
			RequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 600),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 50),
		},
		Tracing: TracingConfig{
			Exporter:    getEnv("TRACE_EXPORTER", "none"),
			Endpoint:    getEnv("TRACE_ENDPOINT", "localhost:4318"),
			Insecure:    getBoolEnv("TRACE_INSECURE", true),
			ServiceName: getEnv("TRACE_SERVICE_NAME", "httpmq"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Broker.DefaultTTL < 0 {
		return fmt.Errorf("default_ttl cannot be negative")
	}
	if c.Broker.NeverExpireTTL <= 0 {
		return fmt.Errorf("never_expire_ttl must be positive")
	}
	if c.Broker.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.Broker.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("rate_limit_rpm must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
