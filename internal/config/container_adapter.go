package config

import (
	"github.com/garyjia/fieldops/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			Mode:            c.Server.Mode,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			AllowedOrigins:  c.Server.AllowedOrigins,
		},
		Auth: container.AuthConfig{
			Secret: c.Auth.Secret,
			Issuer: c.Auth.Issuer,
		},
		NATS: container.NATSConfig{
			Enabled:           c.NATS.Enabled,
			URL:               c.NATS.URL,
			Name:              c.NATS.Name,
			Username:          c.NATS.Username,
			Password:          c.NATS.Password,
			SubjectPrefix:     c.NATS.SubjectPrefix,
			ReconnectInterval: c.NATS.ReconnectInterval,
			MaxReconnects:     c.NATS.MaxReconnects,
		},
		Lark: container.LarkConfig{
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			Domain:     c.Lark.Domain,
			APITimeout: c.Lark.APITimeout,
		},
		Documents: container.DocumentsConfig{
			OutputDir:   c.Documents.OutputDir,
			CompanyName: c.Documents.CompanyName,
			Currency:    c.Documents.Currency,
		},
		Notifications: container.NotificationsConfig{
			ChatID:       c.Lark.ChatID,
			InvoiceEmail: c.Invoice.NotifyEmail,
		},
		Worker: container.WorkerConfig{
			OverdueInterval:  c.Worker.OverdueInterval,
			OverdueBatchSize: c.Worker.OverdueBatchSize,
			HandlerTimeout:   c.Worker.HandlerTimeout,
		},
	}
}
