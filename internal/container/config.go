// Package container provides dependency injection and lifecycle management
// for the field operations workflow service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database      DatabaseConfig
	Server        ServerConfig
	Auth          AuthConfig
	NATS          NATSConfig
	Lark          LarkConfig
	Documents     DocumentsConfig
	Notifications NotificationsConfig
	Worker        WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the SQLite lock
	BusyTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	Secret string
	Issuer string
}

// NATSConfig holds realtime broadcast settings. When disabled, broadcasts
// are written to the log instead.
type NATSConfig struct {
	Enabled           bool
	URL               string
	Name              string
	Username          string
	Password          string
	SubjectPrefix     string
	ReconnectInterval time.Duration
	MaxReconnects     int
}

// LarkConfig holds Lark API settings. An empty AppID disables notifications.
type LarkConfig struct {
	AppID      string
	AppSecret  string
	Domain     string
	APITimeout time.Duration
}

// DocumentsConfig holds invoice document settings.
type DocumentsConfig struct {
	// OutputDir is where rendered invoices are archived
	OutputDir string

	CompanyName string
	Currency    string
}

// NotificationsConfig names who hears about workflow events.
type NotificationsConfig struct {
	ChatID       string
	InvoiceEmail string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	OverdueInterval  time.Duration
	OverdueBatchSize int

	// HandlerTimeout bounds each asynchronous event subscriber
	HandlerTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/fieldops.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Issuer: "fieldops",
		},
		NATS: NATSConfig{
			URL:               "nats://127.0.0.1:4222",
			Name:              "fieldops",
			SubjectPrefix:     "fieldops",
			ReconnectInterval: 2 * time.Second,
			MaxReconnects:     60,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		Documents: DocumentsConfig{
			OutputDir: "generated_invoices",
			Currency:  "USD",
		},
		Worker: WorkerConfig{
			OverdueInterval:  time.Hour,
			OverdueBatchSize: 200,
			HandlerTimeout:   30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled")
	}

	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}

	if c.Documents.OutputDir == "" {
		return fmt.Errorf("documents.output_dir is required")
	}

	if c.Worker.OverdueInterval <= 0 {
		return fmt.Errorf("worker.overdue_interval must be positive")
	}

	return nil
}
