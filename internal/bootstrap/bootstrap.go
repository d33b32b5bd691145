// Package bootstrap builds the pipeline runner and its infrastructure from
// configuration. The server and the etl command share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/application/pipeline"
	"github.com/erp/unify/internal/domain/vocab"
	"github.com/erp/unify/internal/infrastructure/advisor"
	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/erp/unify/internal/infrastructure/lock"
	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/infrastructure/migration"
	"github.com/erp/unify/internal/infrastructure/persistence"
	"github.com/erp/unify/internal/infrastructure/source"
	"github.com/erp/unify/internal/infrastructure/storage"
	"github.com/erp/unify/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold marks statements logged as slow by gorm
const slowQueryThreshold = 500 * time.Millisecond

// App holds everything a process needs to run the pipeline
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Telemetry *telemetry.Providers
	Registry  *prometheus.Registry
	DB        *persistence.Database
	Loader    *source.Loader
	Runner    *pipeline.Runner
	Advisor   *advisor.Client
	Sources   pipeline.Sources

	closers []func(context.Context) error
}

// New wires the configured infrastructure. On failure everything opened so
// far is closed again.
func New(ctx context.Context, cfg *config.Config) (app *App, err error) {
	app = &App{Config: cfg, Sources: pipeline.SourcesFromConfig(cfg.Pipeline)}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close(context.WithoutCancel(ctx)))
			app = nil
		}
	}()

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	base, err := logger.New(logCfg)
	if err != nil {
		return app, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = base
	app.onClose(func(context.Context) error {
		_ = app.Logger.Sync()
		return nil
	})

	if app.Telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, base); err != nil {
		return app, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	app.onClose(app.Telemetry.Shutdown)
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled {
		withOTel, err := logger.New(logCfg, app.Telemetry.Logs.Core(cfg.App.Name, logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			return app, fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.Logger = withOTel
	}
	log := app.Logger.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))
	app.Logger = log

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := telemetry.NewPipelineMetrics(app.Meter("unify.pipeline"), app.Registry)
	if err != nil {
		return app, err
	}

	if app.DB, err = persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, gormlogger.Warn, slowQueryThreshold)); err != nil {
		return app, err
	}
	app.onClose(func(context.Context) error { return app.DB.Close() })
	if err := telemetry.RegisterDBTracing(app.DB.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log); err != nil {
		return app, fmt.Errorf("failed to enable database tracing: %w", err)
	}

	storeOpts := []persistence.StoreOption{
		persistence.WithLogger(log),
		persistence.WithBatchSize(cfg.Database.BatchSize),
	}
	if cfg.Database.Driver == persistence.DriverPostgres {
		sqlDB, err := app.DB.DB.DB()
		if err != nil {
			return app, fmt.Errorf("failed to get database handle: %w", err)
		}
		storeOpts = append(storeOpts, persistence.WithMigrator(migration.Schema{DB: sqlDB, Logger: log}))
	}
	store := persistence.NewGormStore(app.DB, storeOpts...)
	files := persistence.NewGormSourceFileRepository(app.DB.DB)

	loaderOpts := []source.LoaderOption{source.WithLogger(log)}
	if cfg.Storage.Bucket != "" || cfg.Storage.Endpoint != "" {
		fetcher, err := storage.NewS3Fetcher(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return app, err
		}
		loaderOpts = append(loaderOpts, source.WithRemote(fetcher))
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.Redis.Enabled {
		redisLocker, err := lock.NewRedisLocker(ctx, cfg.Redis)
		if err != nil {
			return app, err
		}
		app.onClose(func(context.Context) error { return redisLocker.Close() })
		locker = redisLocker
		log.Info("using redis run lock", zap.String("addr", cfg.Redis.Addr()))
	}

	app.Loader = source.NewLoader(loaderOpts...)
	app.Runner = pipeline.New(store, files, app.Loader,
		pipeline.WithLogger(log),
		pipeline.WithLocker(locker),
		pipeline.WithMetrics(metrics),
		pipeline.WithSettings(pipeline.SettingsFromConfig(cfg.Pipeline)),
		pipeline.WithDeps(etl.Deps{Vocabulary: Vocabulary(cfg.Vocabulary), Logger: log}),
	)
	app.Advisor = advisor.New(cfg.Advisor, advisor.WithLogger(log))
	return app, nil
}

// Meter returns a meter of the configured provider
func (a *App) Meter(name string) metric.Meter {
	return a.Telemetry.Meter.Meter(name)
}

// Close releases everything New opened, newest first
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, fn := range slices.Backward(a.closers) {
		errs = append(errs, fn(ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Vocabulary extends the built-in lookup tables with configured entries
func Vocabulary(extra map[string]map[string]string) *vocab.Vocabulary {
	v := vocab.Default()
	if len(extra) == 0 {
		return v
	}
	tables := make(map[vocab.Table]map[string]string, len(extra))
	for name, entries := range extra {
		tables[vocab.Table(name)] = entries
	}
	return v.Extend(tables)
}
