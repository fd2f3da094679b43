package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/dispatcher"
	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/application/service"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/infrastructure/broadcast"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/fieldops/internal/infrastructure/worker"
	httpServer "github.com/garyjia/fieldops/internal/interfaces/http"
	"github.com/garyjia/fieldops/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	broadcaster port.Broadcaster
	nats        *broadcast.NATSBroadcaster
	messenger   port.MessageSender
	renderer    port.DocumentRenderer
	fileStorage port.FileStorage

	// Application
	dispatcher dispatcher.Dispatcher
	workflow   workflow.Engine
	services   *ServiceBundle

	// Interfaces
	workers *worker.Manager
	server  *httpServer.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Quotes        port.QuoteRepository
	History       port.QuoteHistoryRepository
	Surveys       port.SurveyRepository
	Installations port.InstallationRepository
	Invoices      port.InvoiceRepository
	Sequences     port.SequenceRepository
}

// ServiceBundle groups all application services. Notifier is nil when
// Lark is not configured.
type ServiceBundle struct {
	Quotes   service.QuoteService
	Visits   service.VisitService
	Invoices service.InvoiceService
	Archiver service.DocumentArchiver
	Notifier service.NotificationService
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and starts the background workers.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External integrations (NATS, Lark, documents)
// 3. Event dispatcher and workflow engine
// 4. Application services and subscribers
// 5. Workers and HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(c.ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initExternal(); err != nil {
		return fmt.Errorf("failed to initialize external integrations: %w", err)
	}
	c.logger.Info("External integrations initialized")

	if err := c.initDispatcherAndWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized")

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	c.server = ProvideHTTPServer(c.config, c.workflow, c.services, c, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// waits for in-flight subscribers, which may still publish
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.nats != nil {
		if err := c.nats.Close(); err != nil {
			c.logger.Error("Failed to close NATS connection", zap.Error(err))
			errs = append(errs, fmt.Errorf("close nats: %w", err))
		} else {
			c.logger.Info("NATS connection closed")
		}
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return errors.Join(errs...)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health implements http.HealthChecker. A nil entry means healthy.
func (c *Container) Health(ctx context.Context) map[string]error {
	status := make(map[string]error, 4)

	if c.database != nil {
		if err := c.database.PingContext(ctx); err != nil {
			status["database"] = fmt.Errorf("ping failed: %w", err)
		} else {
			status["database"] = nil
		}
	} else {
		status["database"] = errNotInitialized
	}

	switch {
	case c.workers == nil:
		status["workers"] = errNotInitialized
	case !c.workers.IsRunning():
		status["workers"] = fmt.Errorf("workers stopped (count: %d)", c.workers.Count())
	default:
		status["workers"] = nil
	}

	if c.dispatcher != nil {
		status["dispatcher"] = nil
	} else {
		status["dispatcher"] = errNotInitialized
	}

	// a log broadcaster is always healthy
	if c.nats != nil {
		status["broadcaster"] = c.nats.Ping()
	} else if c.broadcaster != nil {
		status["broadcaster"] = nil
	} else {
		status["broadcaster"] = errNotInitialized
	}

	return status
}

var errNotInitialized = errors.New("not initialized")

func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.database.DB, c.logger)
	if err != nil {
		_ = c.database.Close()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) initExternal() error {
	bundle, err := ProvideBroadcaster(&c.config.NATS, c.logger)
	if err != nil {
		return err
	}
	c.broadcaster = bundle.Broadcaster
	c.nats = bundle.NATS

	c.messenger = ProvideMessenger(&c.config.Lark, c.logger)

	c.renderer, c.fileStorage, err = ProvideDocuments(&c.config.Documents, c.logger)
	return err
}

func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(&c.config.Worker, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:       c.repositories,
		TxManager:   c.db,
		Dispatcher:  c.dispatcher,
		Broadcaster: c.broadcaster,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:         c.repositories,
		TxManager:     c.db,
		Dispatcher:    c.dispatcher,
		Broadcaster:   c.broadcaster,
		Renderer:      c.renderer,
		Storage:       c.fileStorage,
		Messenger:     c.messenger,
		Notifications: c.config.Notifications,
		Logger:        c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&c.config.Worker, c.services.Invoices, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.Engine {
	return c.workflow
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Server returns the HTTP server. It is nil until Start succeeds.
func (c *Container) Server() *httpServer.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
