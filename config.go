package sqlsession

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Config holds pool and session configuration
type Config struct {
	// Connection
	Host     string // Backend host (required)
	Port     int    // Backend port (default: 5432)
	User     string // Backend user (required)
	Password string // Backend password
	Database string // Database name (required)

	// Pool settings
	MaxConns       int           // Max concurrently leased connections (default: 10)
	AcquireTimeout time.Duration // Wait for a free connection (0 = block indefinitely)
	DialTimeout    time.Duration // Connection dial timeout (default: 5s)

	// Observability (all optional)
	Logger          *slog.Logger          // Structured logger
	LogQueries      bool                  // Log all queries
	LogSlowQueries  time.Duration         // Log queries slower than this (0 = disabled)
	MetricsRegistry prometheus.Registerer // Prometheus registry for metrics
	Tracer          trace.Tracer          // OpenTelemetry tracer

	// FatalHandler is invoked after a fatal pool-level fault has been logged.
	// Default terminates the process: a corrupted shared pool cannot safely
	// serve further sessions.
	FatalHandler func(error)
}

// DefaultConfig returns sensible defaults
func DefaultConfig(host, user, password, database string) Config {
	return Config{
		Host:           host,
		Port:           5432,
		User:           user,
		Password:       password,
		Database:       database,
		MaxConns:       10,
		AcquireTimeout: 30 * time.Second,
		DialTimeout:    5 * time.Second,
	}
}

// applyDefaults fills in zero values with defaults
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.FatalHandler == nil {
		c.FatalHandler = func(error) { os.Exit(1) }
	}
}

// DSN assembles the connection string for the backend driver.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// WithLogger enables query logging
func (c Config) WithLogger(logger *slog.Logger) Config {
	c.Logger = logger
	c.LogQueries = true
	return c
}

// WithSlowQueryLog logs queries slower than the threshold
func (c Config) WithSlowQueryLog(threshold time.Duration) Config {
	c.LogSlowQueries = threshold
	return c
}

// WithMetrics enables Prometheus metrics
func (c Config) WithMetrics(registry prometheus.Registerer) Config {
	c.MetricsRegistry = registry
	return c
}

// WithTracing enables OpenTelemetry tracing
func (c Config) WithTracing(tracer trace.Tracer) Config {
	c.Tracer = tracer
	return c
}

// WithAcquireTimeout bounds the wait for a pooled connection
func (c Config) WithAcquireTimeout(timeout time.Duration) Config {
	c.AcquireTimeout = timeout
	return c
}
