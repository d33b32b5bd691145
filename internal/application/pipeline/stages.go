package pipeline

import (
	"context"
	"fmt"

	"github.com/erp/unify/internal/application/aggregate"
	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/application/resolve"
	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

func stageAttrs(entity commerce.EntityType, name string) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.AttrEntity.String(string(entity)),
		telemetry.AttrSourceFile.String(name),
	}
}

// customers cleans b and stores the result in one transaction
func (r *Runner) customers(ctx context.Context, b *batch.Batch, name string) (table *etl.CustomerTable, err error) {
	err = r.stage(ctx, "customers", func(ctx context.Context) error {
		table = etl.NewCustomerCleaner(r.deps, r.canonicalizer(), r.customerAliases).Run(ctx, b, name)
		r.recordRows(ctx, commerce.EntityCustomer, b.Len(), len(table.Rows))
		r.recordDropped(ctx, commerce.EntityCustomer, "duplicate", table.Dropped)
		if len(table.Rows) == 0 {
			return nil
		}
		if err := checkRows(r.validate, commerce.TableCustomers, table.Rows); err != nil {
			return err
		}
		return r.store.LoadCustomers(ctx, table.Rows)
	}, stageAttrs(commerce.EntityCustomer, name)...)
	return table, err
}

// products cleans b and stores the result in one transaction
func (r *Runner) products(ctx context.Context, b *batch.Batch, name string) (table *etl.ProductTable, err error) {
	err = r.stage(ctx, "products", func(ctx context.Context) error {
		table = etl.NewProductCleaner(r.deps, r.productAliases).Run(ctx, b, name)
		r.recordRows(ctx, commerce.EntityProduct, b.Len(), len(table.Rows))
		r.recordDropped(ctx, commerce.EntityProduct, "invalid_or_duplicate", table.Dropped)
		if len(table.Rows) == 0 {
			return nil
		}
		if err := checkRows(r.validate, commerce.TableProducts, table.Rows); err != nil {
			return err
		}
		return r.store.LoadProducts(ctx, table.Rows)
	}, stageAttrs(commerce.EntityProduct, name)...)
	return table, err
}

// knownIDs re-derives the id snapshot from the store
func (r *Runner) knownIDs(ctx context.Context) (commerce.KnownIDs, error) {
	known, err := r.store.KnownIDs(ctx)
	if err != nil {
		return commerce.EmptyKnownIDs(), fmt.Errorf("failed to derive known ids: %w", err)
	}
	return known, nil
}

// orderItems resolves one order-item batch against known
func (r *Runner) orderItems(ctx context.Context, entity commerce.EntityType, b *batch.Batch, name string, known commerce.KnownIDs) (res *resolve.ResolvedItems, err error) {
	resolver, ok := resolve.ForEntity(entity, r.deps, r.canonicalizer())
	if !ok {
		return nil, fmt.Errorf("no resolver for entity %q", entity)
	}
	err = r.stage(ctx, "resolve."+string(resolver.Strategy()), func(ctx context.Context) error {
		res = resolver.Resolve(ctx, b, name, known)
		s := res.Stats
		r.recordRows(ctx, entity, s.Input, s.Resolved)
		r.recordDropped(ctx, entity, "missing_keys", s.MissingKeys)
		r.recordDropped(ctx, entity, "unknown_customer", s.UnknownCustomer)
		r.recordDropped(ctx, entity, "unknown_product", s.UnknownProduct)
		return nil
	}, stageAttrs(entity, name)...)
	return res, err
}

// orders aggregates the item batches, validates the result and stores
// orders and items in one transaction
func (r *Runner) orders(ctx context.Context, customers identity.IDSet, batches ...[]commerce.OrderItem) (res *aggregate.Result, err error) {
	err = r.stage(ctx, "orders", func(ctx context.Context) error {
		res = aggregate.New(r.deps.Logger, r.deps.Clock).Aggregate(ctx, customers, batches...)
		r.recordDropped(ctx, commerce.EntityOrder, "unknown_customer", res.DroppedOrders)
		r.metrics.RowsOut(ctx, string(commerce.EntityOrder), len(res.Orders))
		if len(res.Orders) == 0 {
			return nil
		}
		if err := checkAggregate(r.validate, res); err != nil {
			return err
		}
		return r.store.LoadOrders(ctx, res.Orders, res.Items)
	})
	return res, err
}
