package pipeline

import (
	"context"
	"fmt"

	"github.com/erp/unify/internal/application/aggregate"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunFull runs every stage over src: customers, then products, then both
// order-item sources, then orders. Each entity is stored before the next
// stage resolves against the ids re-derived from the store.
func (r *Runner) RunFull(ctx context.Context, src Sources) (report *RunReport, err error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := telemetry.StartSpan(ctx, "pipeline.run", telemetry.AttrRunID.String(runID))
	defer func() {
		r.metrics.RunDone(ctx, KindFull, err)
		telemetry.EndSpan(span, &err)
	}()
	log := logger.Enrich(ctx, r.logger)
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	release, err := r.acquire(ctx, log)
	if err != nil {
		return nil, err
	}
	defer release()

	report = &RunReport{RunID: runID, StartedAt: r.deps.Clock()}
	log.Info("full pipeline run started", zap.Bool("fresh_load", r.settings.FreshLoad))

	if err = r.stage(ctx, "schema", r.prepareSchema); err != nil {
		log.Error("failed to prepare schema", zap.Error(err))
		return nil, err
	}

	var raw map[commerce.EntityType]*loaded
	err = r.stage(ctx, "load", func(ctx context.Context) error {
		var loadErr error
		raw, loadErr = r.loadAll(ctx, src)
		return loadErr
	})
	if err != nil {
		return nil, err
	}

	cust := raw[commerce.EntityCustomer]
	custTable, err := r.customers(ctx, cust.batch, cust.name)
	if err != nil {
		return nil, stageFailed(log, "customers", err)
	}
	report.Customers = len(custTable.Rows)
	custReport := cust.report(commerce.EntityCustomer)
	custReport.RowsOut, custReport.Dropped = len(custTable.Rows), custTable.Dropped
	report.add(custReport)

	known, err := r.knownIDs(ctx)
	if err != nil {
		return nil, stageFailed(log, "customers", err)
	}
	log.Info("customers stage finished", zap.Int("known_customers", known.Customers.Len()))

	prod := raw[commerce.EntityProduct]
	prodTable, err := r.products(ctx, prod.batch, prod.name)
	if err != nil {
		return nil, stageFailed(log, "products", err)
	}
	report.Products = len(prodTable.Rows)
	prodReport := prod.report(commerce.EntityProduct)
	prodReport.RowsOut, prodReport.Dropped = len(prodTable.Rows), prodTable.Dropped
	report.add(prodReport)

	known, err = r.knownIDs(ctx)
	if err != nil {
		return nil, stageFailed(log, "products", err)
	}
	known.Remap = known.Remap.Merge(prodTable.Remap)
	log.Info("products stage finished",
		zap.Int("known_products", known.Products.Len()),
		zap.Int("remap_entries", len(known.Remap)),
	)

	var batches [][]commerce.OrderItem
	for _, entity := range []commerce.EntityType{commerce.EntityOrderItemsRecon, commerce.EntityOrderItemsFreeform} {
		l := raw[entity]
		rep := l.report(entity)
		if l.batch.IsEmpty() {
			report.add(rep)
			continue
		}
		res, err := r.orderItems(ctx, entity, l.batch, l.name, known)
		if err != nil {
			return nil, stageFailed(log, string(entity), err)
		}
		rep.RowsOut, rep.Dropped = res.Stats.Resolved, res.Stats.Dropped()
		report.add(rep)
		if len(res.Items) > 0 {
			batches = append(batches, res.Items)
		}
	}

	if len(batches) == 0 {
		log.Warn("no order items resolved, orders left unchanged")
	} else {
		res, err := r.orders(ctx, known.Customers, batches...)
		if err != nil {
			return nil, stageFailed(log, "orders", err)
		}
		report.Orders, report.OrderItems = len(res.Orders), len(res.Items)
		report.DroppedOrders, report.DroppedItems = res.DroppedOrders, res.DroppedItems
		report.OrdersNetTotal = aggregate.Totals(res.Orders)
	}

	report.FinishedAt = r.deps.Clock()
	log.Info("full pipeline run finished",
		zap.Int("customers", report.Customers),
		zap.Int("products", report.Products),
		zap.Int("orders", report.Orders),
		zap.Int("order_items", report.OrderItems),
		zap.String("orders_net_total", report.OrdersNetTotal.String()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// prepareSchema creates the tables and, for a fresh load, empties them
func (r *Runner) prepareSchema(ctx context.Context) error {
	if err := r.store.CreateSchema(ctx); err != nil {
		return err
	}
	if !r.settings.FreshLoad {
		return nil
	}
	if err := r.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}

// stageFailed logs a structural failure of stage and returns err annotated with it
func stageFailed(log *zap.Logger, stage string, err error) error {
	log.Error("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	return fmt.Errorf("%s stage: %w", stage, err)
}
