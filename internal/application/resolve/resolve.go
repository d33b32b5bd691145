// Package resolve maps raw order-item rows onto known customers and products.
package resolve

import (
	"context"
	"strconv"
	"strings"

	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Strategy names an order-item source shape
type Strategy string

const (
	StrategyReconciliation Strategy = "reconciliation"
	StrategyFreeform       Strategy = "unstructured"
)

// Stats counts rows dropped at each filtering stage
type Stats struct {
	Input           int `json:"input"`
	MissingKeys     int `json:"missing_keys"`
	UnknownCustomer int `json:"unknown_customer"`
	UnknownProduct  int `json:"unknown_product"`
	Resolved        int `json:"resolved"`
	TotalMismatches int `json:"total_mismatches"`
}

// Dropped returns the number of rows removed by any stage
func (s Stats) Dropped() int {
	return s.MissingKeys + s.UnknownCustomer + s.UnknownProduct
}

// ResolvedItems is the output of one order-item batch
type ResolvedItems struct {
	Source   string
	Strategy Strategy
	Items    []commerce.OrderItem
	Stats    Stats
}

// Resolver resolves one order-item source shape
type Resolver interface {
	Strategy() Strategy
	Resolve(ctx context.Context, b *batch.Batch, source string, known commerce.KnownIDs) *ResolvedItems
}

// ForEntity returns the resolver for an order-item entity type
func ForEntity(e commerce.EntityType, deps etl.Deps, customers *identity.Canonicalizer) (Resolver, bool) {
	switch e {
	case commerce.EntityOrderItemsRecon:
		return NewReconciliationResolver(deps, customers), true
	case commerce.EntityOrderItemsFreeform:
		return NewFreeformResolver(deps, customers), true
	}
	return nil, false
}

// referenceResolver holds the layered customer and product lookups shared by both shapes
type referenceResolver struct {
	norm      *normalize.Normalizer
	customers *identity.Canonicalizer
}

// customer translates a foreign CLI_ prefix, then tests the cleaned reference directly
func (r referenceResolver) customer(raw any, known identity.IDSet) (string, bool) {
	ref := r.norm.Text(raw, normalize.CaseUpper)
	if !ref.Valid {
		return "", false
	}
	if rest, ok := strings.CutPrefix(ref.Value, identity.ForeignCustomerPrefix); ok {
		translated := r.customers.Prefix + rest
		if known.Contains(translated) {
			return translated, true
		}
		if identity.IsDigits(rest) {
			if padded, _ := r.customers.FromReference(rest); known.Contains(padded) {
				return padded, true
			}
		}
	}
	if known.Contains(ref.Value) {
		return ref.Value, true
	}
	return "", false
}

// product tests the cleaned reference, then its numeric remainder via the remap,
// then the numeric remainder directly
func (r referenceResolver) product(ref string, known identity.IDSet, remap identity.Remap) (string, bool) {
	if ref == "" {
		return "", false
	}
	if known.Contains(ref) {
		return ref, true
	}
	num := ref
	if rest, ok := strings.CutPrefix(ref, identity.ItemPrefix); ok {
		num = rest
	}
	if !identity.IsDigits(num) {
		return "", false
	}
	for _, key := range numericKeys(num) {
		if id, ok := remap.Lookup(key); ok && known.Contains(id) {
			return id, true
		}
	}
	for _, key := range numericKeys(num) {
		if known.Contains(key) {
			return key, true
		}
	}
	return "", false
}

// numericKeys returns the digit string as given and without leading zeros
func numericKeys(digits string) []string {
	keys := []string{digits}
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		if s := strconv.FormatInt(n, 10); s != digits {
			keys = append(keys, s)
		}
	}
	return keys
}

var (
	mismatchAbsTolerance = decimal.RequireFromString("0.005")
	mismatchRelTolerance = decimal.RequireFromString("0.000000001")
)

// totalsAgree compares a computed line total against a provided one
func totalsAgree(computed, provided decimal.Decimal) bool {
	tol := decimal.Max(mismatchAbsTolerance, provided.Abs().Mul(mismatchRelTolerance))
	return computed.Sub(provided).Abs().LessThanOrEqual(tol)
}

// lineTotal returns quantity x unit price. Without a unit price there is
// nothing to compute, so the provided total is taken as the line total
// rather than zero. mismatch reports a provided total that disagrees.
func lineTotal(qty int64, unit normalize.Result[float64], provided normalize.Result[float64]) (total decimal.Decimal, mismatch bool) {
	if !unit.Valid {
		if provided.Valid {
			return decimal.NewFromFloat(provided.Value), false
		}
		return decimal.Zero, false
	}
	total = decimal.NewFromInt(qty).Mul(decimal.NewFromFloat(unit.Value))
	if provided.Valid && !totalsAgree(total, decimal.NewFromFloat(provided.Value)) {
		mismatch = true
	}
	return total, mismatch
}

func logStats(log *zap.Logger, s Stats) {
	if s.MissingKeys > 0 {
		log.Warn("dropped order items with missing key ids", zap.Int("count", s.MissingKeys), zap.String("cause", "missing_keys"))
	}
	if s.UnknownCustomer > 0 {
		log.Warn("dropped order items referencing unknown customers", zap.Int("count", s.UnknownCustomer), zap.String("cause", "unknown_customer"))
	}
	if s.UnknownProduct > 0 {
		log.Warn("dropped order items referencing unknown products", zap.Int("count", s.UnknownProduct), zap.String("cause", "unknown_product"))
	}
	if s.TotalMismatches > 0 {
		log.Warn("order items whose provided total disagrees with quantity x unit price", zap.Int("count", s.TotalMismatches))
	}
	log.Info("order items resolved",
		zap.Int("rows_in", s.Input),
		zap.Int("rows_out", s.Resolved),
		zap.Int("rows_dropped", s.Dropped()),
	)
}

func logKnown(log *zap.Logger, known commerce.KnownIDs) {
	log.Debug("resolving against known ids",
		zap.Int("customers", known.Customers.Len()),
		zap.Int("products", known.Products.Len()),
		zap.Int("remap_entries", len(known.Remap)),
		zap.Strings("customer_sample", known.Customers.Sample(5)),
		zap.Strings("product_sample", known.Products.Sample(5)),
	)
}
