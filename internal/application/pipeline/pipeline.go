// Package pipeline orchestrates full and per-file reconciliation runs over
// the entity cleaners, the order-item resolvers, the aggregator and the store.
package pipeline

import (
	"context"
	"time"

	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/erp/unify/internal/infrastructure/lock"
	"github.com/erp/unify/internal/infrastructure/source"
	"github.com/erp/unify/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LockName is the lease every run holds while it writes to the store
const LockName = "pipeline"

// Run kinds reported to metrics
const (
	KindFull = "full"
	KindFile = "file"
)

// Loader reads raw files into batches
type Loader interface {
	Load(ctx context.Context, path string) (*batch.Batch, error)
	Profile(ctx context.Context, path string) (*source.Profile, error)
}

// Metrics receives pipeline counters. *telemetry.PipelineMetrics implements it.
type Metrics interface {
	RowsIn(ctx context.Context, entity string, n int)
	RowsOut(ctx context.Context, entity string, n int)
	Dropped(ctx context.Context, entity, cause string, n int)
	StageDone(ctx context.Context, stage string, d time.Duration, err error)
	RunDone(ctx context.Context, kind string, err error)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) RowsIn(context.Context, string, int)                     {}
func (NopMetrics) RowsOut(context.Context, string, int)                    {}
func (NopMetrics) Dropped(context.Context, string, string, int)            {}
func (NopMetrics) StageDone(context.Context, string, time.Duration, error) {}
func (NopMetrics) RunDone(context.Context, string, error)                  {}

var _ Metrics = (*telemetry.PipelineMetrics)(nil)

// Settings tune a Runner
type Settings struct {
	CustomerPrefix  string
	PadWidth        int
	LockTTL         time.Duration
	FreshLoad       bool
	LoadConcurrency int
}

// SettingsFromConfig copies the runner settings out of the pipeline config
func SettingsFromConfig(cfg config.PipelineConfig) Settings {
	return Settings{
		CustomerPrefix:  cfg.CustomerPrefix,
		PadWidth:        cfg.PadWidth,
		LockTTL:         cfg.LockTTL,
		FreshLoad:       cfg.FreshLoad,
		LoadConcurrency: cfg.LoadConcurrency,
	}
}

// Runner executes pipeline runs
type Runner struct {
	store    commerce.Store
	files    commerce.SourceFileRepository
	loader   Loader
	locker   lock.Locker
	metrics  Metrics
	deps     etl.Deps
	settings Settings
	logger   *zap.Logger
	validate *validator.Validate

	customerAliases etl.CustomerAliases
	productAliases  etl.ProductAliases
}

// Option configures a Runner
type Option func(*Runner)

// WithLocker sets the run lock. The default is an in-process lock.
func WithLocker(l lock.Locker) Option {
	return func(r *Runner) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithDeps sets the collaborators handed to the cleaners and resolvers
func WithDeps(d etl.Deps) Option {
	return func(r *Runner) { r.deps = d }
}

// WithSettings sets the runner settings
func WithSettings(s Settings) Option {
	return func(r *Runner) { r.settings = s }
}

// WithLogger sets the runner logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithAliases overrides the column spellings the cleaners accept
func WithAliases(customers etl.CustomerAliases, products etl.ProductAliases) Option {
	return func(r *Runner) {
		r.customerAliases = customers
		r.productAliases = products
	}
}

// New creates a Runner
func New(store commerce.Store, files commerce.SourceFileRepository, loader Loader, opts ...Option) *Runner {
	r := &Runner{
		store:           store,
		files:           files,
		loader:          loader,
		locker:          lock.NewMemoryLocker(),
		metrics:         NopMetrics{},
		logger:          zap.NewNop(),
		validate:        validator.New(),
		customerAliases: etl.DefaultCustomerAliases,
		productAliases:  etl.DefaultProductAliases,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.deps.Logger == nil {
		r.deps.Logger = r.logger
	}
	r.deps = r.deps.WithDefaults()
	if r.settings.LoadConcurrency <= 0 {
		r.settings.LoadConcurrency = 4
	}
	return r
}

func (r *Runner) canonicalizer() *identity.Canonicalizer {
	return identity.NewCustomerCanonicalizer(r.settings.CustomerPrefix, r.settings.PadWidth)
}

// stage runs fn inside a pipeline span and reports its duration
func (r *Runner) stage(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) (err error) {
	ctx, span := telemetry.StartStage(ctx, name, attrs...)
	start := time.Now()
	defer func() {
		r.metrics.StageDone(ctx, name, time.Since(start), err)
		telemetry.EndSpan(span, &err)
	}()
	if err = fn(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// acquire takes the run lock and returns its release, which survives the
// cancellation of ctx
func (r *Runner) acquire(ctx context.Context, log *zap.Logger) (func(), error) {
	release, err := r.locker.Acquire(ctx, LockName, r.settings.LockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release run lock", zap.Error(err))
		}
	}, nil
}

// recordRows reports the in and out counts of one entity stage
func (r *Runner) recordRows(ctx context.Context, entity commerce.EntityType, in, out int) {
	r.metrics.RowsIn(ctx, string(entity), in)
	r.metrics.RowsOut(ctx, string(entity), out)
}

func (r *Runner) recordDropped(ctx context.Context, entity commerce.EntityType, cause string, n int) {
	if n > 0 {
		r.metrics.Dropped(ctx, string(entity), cause, n)
	}
}
