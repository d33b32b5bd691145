package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/shared"
	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/infrastructure/source"
	"github.com/erp/unify/internal/infrastructure/storage"
	"github.com/erp/unify/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sources are the raw files of a full run. An empty path contributes an
// empty batch.
type Sources struct {
	Customers      string `json:"customers"`
	Products       string `json:"products"`
	Reconciliation string `json:"reconciliation"`
	Unstructured   string `json:"unstructured"`
}

// SourcesFromConfig resolves the configured file names against the data
// directory, which may be an s3:// prefix
func SourcesFromConfig(cfg config.PipelineConfig) Sources {
	return Sources{
		Customers:      joinPath(cfg.DataDir, cfg.CustomerFile),
		Products:       joinPath(cfg.DataDir, cfg.ProductFile),
		Reconciliation: joinPath(cfg.DataDir, cfg.ReconFile),
		Unstructured:   joinPath(cfg.DataDir, cfg.UnstructuredFile),
	}
}

func joinPath(dir, name string) string {
	switch {
	case name == "":
		return ""
	case dir == "", filepath.IsAbs(name), storage.IsRemote(name):
		return name
	case storage.IsRemote(dir):
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

type sourceEntry struct {
	entity commerce.EntityType
	path   string
}

func (s Sources) entries() []sourceEntry {
	return []sourceEntry{
		{commerce.EntityCustomer, s.Customers},
		{commerce.EntityProduct, s.Products},
		{commerce.EntityOrderItemsRecon, s.Reconciliation},
		{commerce.EntityOrderItemsFreeform, s.Unstructured},
	}
}

// loaded is one raw batch of a full run. err is the load failure the batch
// was emptied for.
type loaded struct {
	name  string
	batch *batch.Batch
	err   error
}

func (l *loaded) report(entity commerce.EntityType) SourceReport {
	rep := SourceReport{Name: l.name, Entity: entity, RowsIn: l.batch.Len()}
	if l.err != nil {
		rep.LoadError = l.err.Error()
	}
	return rep
}

// loadAll reads the sources concurrently. A file that cannot be read becomes
// an empty batch; only cancellation fails the load.
func (r *Runner) loadAll(ctx context.Context, src Sources) (map[commerce.EntityType]*loaded, error) {
	entries := src.entries()
	out := make([]*loaded, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.settings.LoadConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			l, err := r.loadOne(gctx, e)
			out[i] = l
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byEntity := make(map[commerce.EntityType]*loaded, len(entries))
	for i, e := range entries {
		byEntity[e.entity] = out[i]
	}
	return byEntity, nil
}

func (r *Runner) loadOne(ctx context.Context, e sourceEntry) (l *loaded, err error) {
	name := ""
	if e.path != "" {
		name = source.SourceName(e.path)
	}
	l = &loaded{name: name, batch: batch.Empty(name)}
	log := logger.Enrich(logger.WithSourceFile(ctx, name), r.logger).With(zap.String("entity", string(e.entity)))
	if e.path == "" {
		log.Info("no raw file configured, skipping")
		return l, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.load",
		telemetry.AttrSourceFile.String(name),
		telemetry.AttrEntity.String(string(e.entity)),
	)
	defer telemetry.EndSpan(span, &err)

	b, loadErr := r.loader.Load(ctx, e.path)
	if loadErr == nil {
		l.batch = b
		return l, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	l.err = loadErr
	if unavailable(loadErr) {
		log.Warn("raw file unavailable, continuing with an empty batch",
			zap.Error(loadErr),
			zap.String("cause", "missing_source"),
		)
	} else {
		log.Error("failed to read raw file, continuing with an empty batch",
			zap.Error(loadErr),
			zap.String("cause", "load_failed"),
		)
	}
	return l, nil
}

// unavailable reports load failures that mean there is no data rather than
// broken data
func unavailable(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, source.ErrEmptyFile) ||
		errors.Is(err, source.ErrMissingHeader)
}
