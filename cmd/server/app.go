package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seaward/base-api/internal/api"
	"github.com/seaward/base-api/internal/config"
	"github.com/seaward/base-api/internal/events"
	"github.com/seaward/base-api/internal/health"
	"github.com/seaward/base-api/internal/platform/kafka"
	"github.com/seaward/base-api/internal/platform/postgres"
	"github.com/seaward/base-api/internal/task"
)

// serviceName identifies this service in health reports and logs.
const serviceName = "base-api"

// application holds the dependencies shared by every role. Role-specific
// subsystems (HTTP server, worker pool, scheduler) are constructed inside
// the run methods so a process only builds what its role needs.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  *postgres.TaskStore

	cleanupOnce sync.Once
}

// newApplication connects the shared dependencies. The database doubles as
// the task result backend, so every role needs it.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &application{
		config: cfg,
		logger: logger,
		db:     db,
		store:  postgres.NewTaskStore(db),
	}, nil
}

// run dispatches to the single role selected by configuration and blocks
// until ctx is cancelled or the role fails.
func (app *application) run(ctx context.Context) error {
	switch role := app.config.Worker.Role(); role {
	case config.RoleScheduler:
		return app.runScheduler(ctx)
	case config.RoleMonitor:
		return app.runMonitor(ctx)
	case config.RoleWorker:
		return app.runWorker(ctx)
	case config.RoleAPI:
		return app.runAPI(ctx)
	default:
		return fmt.Errorf("unknown role %q", role)
	}
}

// runAPI serves the task submission API and the health endpoint.
func (app *application) runAPI(ctx context.Context) error {
	producer := kafka.NewProducer(app.config.Broker.Brokers, app.logger)
	defer app.closeQuietly(producer, "producer")

	client := task.NewClient(producer, app.store, app.logger)

	checker := health.NewAggregator(
		serviceName,
		app.config.Health.ProbeTimeout(),
		app.logger,
		health.NewDatabaseProbe(app.db),
		health.NewBrokerProbe(app.config.Broker.Brokers),
	)

	taskHandler := api.NewTaskHandler(client, client, app.config.Worker.Queue, app.logger)
	healthHandler := api.NewHealthHandler(checker, app.logger)

	return app.startHTTPServer(ctx, app.apiRouter(taskHandler, healthHandler))
}

// runWorker pulls tasks from the configured queue and executes them.
func (app *application) runWorker(ctx context.Context) error {
	producer := kafka.NewProducer(app.config.Broker.Brokers, app.logger)
	defer app.closeQuietly(producer, "producer")

	consumer := kafka.NewConsumer(
		app.config.Broker.Brokers,
		app.config.Worker.Queue,
		app.config.Broker.GroupID,
		app.logger,
	)
	defer app.closeQuietly(consumer, "consumer")

	registry := task.NewRegistry()
	if err := registerBuiltinTasks(registry); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}
	app.logger.Info("task types registered", "types", registry.Types())

	client := task.NewClient(producer, app.store, app.logger)

	emitter := events.NewInMemoryEmitter(app.logger)
	emitter.RegisterHandler(events.NewLogHandler(app.logger))

	pool := task.NewPool(consumer, registry, client, app.store, task.PoolConfig{
		Count: app.config.Worker.Count,
		Policy: task.RetryPolicy{
			MaxAttempts: app.config.Worker.MaxAttempts,
			BaseDelay:   app.config.Worker.RetryBaseDelay(),
			Multiplier:  app.config.Worker.RetryMultiplier,
		},
		Emitter: emitter,
	}, app.logger)

	return pool.Run(ctx)
}

// runScheduler enqueues recurring tasks on their intervals. Deployment
// must ensure a single scheduler instance per fleet.
func (app *application) runScheduler(ctx context.Context) error {
	producer := kafka.NewProducer(app.config.Broker.Brokers, app.logger)
	defer app.closeQuietly(producer, "producer")

	client := task.NewClient(producer, app.store, app.logger)

	scheduler, err := task.NewScheduler(client, app.logger, scheduleEntries(app.config.Worker.Queue)...)
	if err != nil {
		return fmt.Errorf("failed to build schedule: %w", err)
	}

	return scheduler.Run(ctx)
}

// runMonitor serves the read-only observer endpoints. The monitor holds a
// read-only client, so it structurally cannot enqueue or mutate tasks.
func (app *application) runMonitor(ctx context.Context) error {
	observer := task.NewReadOnlyClient(app.store)

	checker := health.NewAggregator(
		serviceName,
		app.config.Health.ProbeTimeout(),
		app.logger,
		health.NewDatabaseProbe(app.db),
		health.NewBrokerProbe(app.config.Broker.Brokers),
	)

	monitorHandler := api.NewMonitorHandler(observer, app.logger)
	healthHandler := api.NewHealthHandler(checker, app.logger)

	return app.startHTTPServer(ctx, app.monitorRouter(monitorHandler, healthHandler))
}

// cleanup releases shared resources. Safe to call more than once.
func (app *application) cleanup() {
	app.cleanupOnce.Do(func() {
		if app.db != nil {
			if err := app.db.Close(); err != nil {
				app.logger.Error("failed to close database", "error", err)
			}
		}
	})
}

func (app *application) closeQuietly(c interface{ Close() error }, name string) {
	if err := c.Close(); err != nil {
		app.logger.Error("failed to close "+name, "error", err)
	}
}
