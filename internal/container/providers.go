package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/dispatcher"
	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/application/service"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/infrastructure/broadcast"
	"github.com/garyjia/fieldops/internal/infrastructure/document"
	infraLark "github.com/garyjia/fieldops/internal/infrastructure/external/lark"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/repository"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/fieldops/internal/infrastructure/storage"
	"github.com/garyjia/fieldops/internal/infrastructure/worker"
	httpServer "github.com/garyjia/fieldops/internal/interfaces/http"
	"github.com/garyjia/fieldops/migrations"
	"github.com/garyjia/fieldops/pkg/database"
	"github.com/garyjia/fieldops/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// BroadcastBundle holds the realtime broadcaster and, when NATS is
// enabled, the connection behind it.
type BroadcastBundle struct {
	Broadcaster port.Broadcaster
	NATS        *broadcast.NATSBroadcaster
}

// ProvideDatabase opens the SQLite database, applies the embedded
// migrations and creates the transaction manager.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(ctx, database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Quotes:        repository.NewQuoteRepository(sqlDB, logger),
		History:       repository.NewQuoteHistoryRepository(sqlDB, logger),
		Surveys:       repository.NewSurveyRepository(sqlDB, logger),
		Installations: repository.NewInstallationRepository(sqlDB, logger),
		Invoices:      repository.NewInvoiceRepository(sqlDB, logger),
		Sequences:     repository.NewSequenceRepository(sqlDB, logger),
	}, nil
}

// ProvideBroadcaster connects to NATS when enabled and falls back to a
// log-only broadcaster otherwise.
func ProvideBroadcaster(cfg *NATSConfig, logger *zap.Logger) (*BroadcastBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nats config is required")
	}

	if !cfg.Enabled {
		logger.Info("NATS disabled, broadcasts go to the log")
		return &BroadcastBundle{Broadcaster: broadcast.NewLogBroadcaster(logger)}, nil
	}

	conn, err := broadcast.Connect(broadcast.Config{
		URL:               cfg.URL,
		Name:              cfg.Name,
		Username:          cfg.Username,
		Password:          cfg.Password,
		SubjectPrefix:     cfg.SubjectPrefix,
		ReconnectInterval: cfg.ReconnectInterval,
		MaxReconnects:     cfg.MaxReconnects,
	}, logger)
	if err != nil {
		return nil, err
	}

	b := broadcast.NewNATSBroadcaster(conn, cfg.SubjectPrefix, logger)
	return &BroadcastBundle{Broadcaster: b, NATS: b}, nil
}

// ProvideMessenger creates the Lark message sender. It returns nil when
// Lark is not configured.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) port.MessageSender {
	if cfg == nil || cfg.AppID == "" {
		logger.Info("Lark not configured, notifications disabled")
		return nil
	}

	client := infraLark.NewClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		Domain:    cfg.Domain,
		Timeout:   cfg.APITimeout,
	}, logger)
	return infraLark.NewMessenger(client, logger)
}

// ProvideDocuments creates the invoice renderer and the archive storage.
func ProvideDocuments(cfg *DocumentsConfig, logger *zap.Logger) (port.DocumentRenderer, port.FileStorage, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("documents config is required")
	}

	renderer := document.NewInvoiceRenderer(document.Config{
		CompanyName: cfg.CompanyName,
		Currency:    cfg.Currency,
	}, logger)
	return renderer, storage.NewLocalFileStorage(cfg.OutputDir, logger), nil
}

// ProvideDispatcher creates the in-process event dispatcher.
func ProvideDispatcher(cfg *WorkerConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger))}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// WorkflowDeps holds dependencies for creating the workflow engine.
type WorkflowDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Dispatcher  dispatcher.Dispatcher
	Broadcaster port.Broadcaster
	Logger      *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	return workflow.NewEngine(workflow.Repositories{
		Quotes:        deps.Repos.Quotes,
		History:       deps.Repos.History,
		Surveys:       deps.Repos.Surveys,
		Installations: deps.Repos.Installations,
		Invoices:      deps.Repos.Invoices,
		Sequences:     deps.Repos.Sequences,
	}, deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithBroadcaster(deps.Broadcaster),
		workflow.WithLogger(utils.NewKVLogger(deps.Logger)),
	), nil
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Repos         *RepositoryBundle
	TxManager     port.TransactionManager
	Dispatcher    dispatcher.Dispatcher
	Broadcaster   port.Broadcaster
	Renderer      port.DocumentRenderer
	Storage       port.FileStorage
	Messenger     port.MessageSender
	Notifications NotificationsConfig
	Logger        *zap.Logger
}

// ProvideServices creates all application services and registers the
// post-commit subscribers on the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	logger := utils.NewKVLogger(deps.Logger)
	publisher := workflow.NewPublisher(deps.Broadcaster, deps.Dispatcher, logger)

	bundle := &ServiceBundle{
		Quotes:   service.NewQuoteService(deps.Repos.Quotes, deps.Repos.History, deps.Repos.Sequences, deps.TxManager, logger),
		Visits:   service.NewVisitService(deps.Repos.Surveys, deps.Repos.Installations, deps.TxManager, publisher, logger),
		Invoices: service.NewInvoiceService(deps.Repos.Invoices, deps.TxManager, deps.Renderer, publisher, logger),
		Archiver: service.NewDocumentArchiver(deps.Repos.Invoices, deps.Renderer, deps.Storage, logger),
	}
	if deps.Messenger != nil {
		bundle.Notifier = service.NewNotificationService(deps.Messenger, service.NotificationSettings{
			ChatID:       deps.Notifications.ChatID,
			InvoiceEmail: deps.Notifications.InvoiceEmail,
		}, logger)
	}

	service.RegisterSubscribers(deps.Dispatcher, bundle.Archiver, bundle.Notifier)
	return bundle, nil
}

// ProvideWorkers creates the worker manager with all background workers.
// Workers are registered but not started.
func ProvideWorkers(cfg *WorkerConfig, invoices service.InvoiceService, logger *zap.Logger) (*worker.Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if invoices == nil {
		return nil, fmt.Errorf("invoice service is required")
	}

	manager := worker.NewManager(logger)
	manager.Register(worker.NewOverdueWorker(worker.OverdueConfig{
		Interval:  cfg.OverdueInterval,
		BatchSize: cfg.OverdueBatchSize,
	}, invoices, logger))

	return manager, nil
}

// ProvideHTTPServer creates the HTTP server over the application layer.
func ProvideHTTPServer(cfg *Config, engine workflow.Engine, services *ServiceBundle, health httpServer.HealthChecker, logger *zap.Logger) *httpServer.Server {
	return httpServer.NewServer(httpServer.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Mode:            cfg.Server.Mode,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}, httpServer.Dependencies{
		Engine:   engine,
		Quotes:   services.Quotes,
		Visits:   services.Visits,
		Invoices: services.Invoices,
		Auth: httpServer.NewAuthenticator(httpServer.AuthConfig{
			Secret: cfg.Auth.Secret,
			Issuer: cfg.Auth.Issuer,
		}),
		Health: health,
	}, utils.NewKVLogger(logger))
}
