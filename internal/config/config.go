package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// NATSConfig holds realtime broadcast configuration
type NATSConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	Name              string        `mapstructure:"name"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	Domain     string        `mapstructure:"domain"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
	ChatID     string        `mapstructure:"chat_id"`
}

// DocumentsConfig holds invoice document configuration
type DocumentsConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	CompanyName string `mapstructure:"company_name"`
	Currency    string `mapstructure:"currency"`
}

// InvoiceConfig holds invoice delivery configuration
type InvoiceConfig struct {
	NotifyEmail string `mapstructure:"notify_email"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	OverdueInterval  time.Duration `mapstructure:"overdue_interval"`
	OverdueBatchSize int           `mapstructure:"overdue_batch_size"`
	HandlerTimeout   time.Duration `mapstructure:"handler_timeout"`
}

// Load loads configuration from file and environment variables. A .env
// file in the working directory is applied first when present. An empty
// configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FIELDOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/fieldops.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Auth defaults
	v.SetDefault("auth.issuer", "fieldops")

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.name", "fieldops")
	v.SetDefault("nats.subject_prefix", "fieldops")
	v.SetDefault("nats.reconnect_interval", 2*time.Second)
	v.SetDefault("nats.max_reconnects", 60)

	// Lark defaults
	v.SetDefault("lark.domain", "feishu")
	v.SetDefault("lark.api_timeout", 30*time.Second)

	// Document defaults
	v.SetDefault("documents.output_dir", "generated_invoices")
	v.SetDefault("documents.currency", "USD")

	// Worker defaults
	v.SetDefault("worker.overdue_interval", time.Hour)
	v.SetDefault("worker.overdue_batch_size", 200)
	v.SetDefault("worker.handler_timeout", 30*time.Second)
}

// bindEnvVars binds the conventional names of secrets
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.secret":            "AUTH_SECRET",
		"nats.url":               "NATS_URL",
		"nats.username":          "NATS_USERNAME",
		"nats.password":          "NATS_PASSWORD",
		"lark.app_id":            "LARK_APP_ID",
		"lark.app_secret":        "LARK_APP_SECRET",
		"lark.chat_id":           "LARK_CHAT_ID",
		"invoice.notify_email":   "INVOICE_NOTIFY_EMAIL",
		"documents.company_name": "COMPANY_NAME",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "FIELDOPS_"+env, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}

	// Validate integrations
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled")
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}

	if c.Documents.OutputDir == "" {
		return fmt.Errorf("documents.output_dir is required")
	}

	return nil
}
