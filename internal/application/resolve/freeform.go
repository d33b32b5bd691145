package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/erp/unify/internal/domain/vocab"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Column aliases of the unstructured order export
var (
	freeOrderID     = etl.F("order_id", "order_id", "ord_id")
	freeSourceOrder = etl.F("source_order_id_int", "ord_id", "order_id")
	freeOrderDate   = etl.F("order_date", "order_datetime", "order_date")
	freeQuantity    = etl.F("quantity", "quantity", "qty")
	freeUnitPrice   = etl.F("unit_price", "unit_price", "price")
	freeStatus      = etl.F("status", "order_status", "status")
)

const (
	freeCustString  = "cust_id"
	freeCustNumeric = "customer_id"
	freeProductID   = "product_id"
	freeItemID      = "item_id"
	freeTotal       = "total_amount"
	freeDiscount    = "discount"
	freeTax         = "tax"
	freeShipping    = "shipping_cost"
	freePayment     = "payment_method"
	freeAddress     = "shipping_address"
	freeNotes       = "notes"
	freeTracking    = "tracking_number"
)

// FreeformResolver resolves the unstructured order export, whose customers
// are referenced by cust_id or a numeric customer_id and products by
// product_id or a numeric item_id
type FreeformResolver struct {
	deps etl.Deps
	refs referenceResolver
}

// NewFreeformResolver creates a FreeformResolver
func NewFreeformResolver(deps etl.Deps, customers *identity.Canonicalizer) *FreeformResolver {
	deps = deps.WithDefaults()
	if customers == nil {
		customers = identity.NewCustomerCanonicalizer(identity.CustomerPrefix, identity.DefaultPadWidth)
	}
	return &FreeformResolver{
		deps: deps,
		refs: referenceResolver{norm: deps.Normalizer, customers: customers},
	}
}

// Strategy implements Resolver
func (r *FreeformResolver) Strategy() Strategy { return StrategyFreeform }

// Resolve implements Resolver
func (r *FreeformResolver) Resolve(ctx context.Context, b *batch.Batch, source string, known commerce.KnownIDs) *ResolvedItems {
	log := r.deps.Logger.With(zap.String("source_file", source), zap.String("strategy", string(StrategyFreeform)))
	out := &ResolvedItems{Source: source, Strategy: StrategyFreeform}
	if b.IsEmpty() {
		log.Warn("raw unstructured order batch is empty, skipping")
		return out
	}
	logKnown(log, known)

	n, v := r.deps.Normalizer, r.deps.Vocabulary
	now := r.deps.Clock()
	out.Stats.Input = b.Len()

	for idx, raw := range b.Rows {
		if ctx.Err() != nil {
			break
		}
		orderID := n.Text(freeOrderID.Extract(raw), normalize.CaseUpper)
		customerRef, hasCustomer := r.customerReference(raw)
		productRef := n.Text(raw.Get(freeProductID), normalize.CaseUpper)
		itemRef := itemKey(raw.Get(freeItemID))
		if !orderID.Valid || !hasCustomer || (!productRef.Valid && itemRef == "") {
			out.Stats.MissingKeys++
			continue
		}
		if !known.Customers.Contains(customerRef) {
			out.Stats.UnknownCustomer++
			continue
		}
		productID, ok := r.product(productRef.Value, itemRef, known)
		if !ok {
			out.Stats.UnknownProduct++
			continue
		}

		qty := n.Integer(freeQuantity.Extract(raw)).Or(1)
		unit := n.Number(freeUnitPrice.Extract(raw))
		total, mismatch := lineTotal(qty, unit, n.Number(raw.Get(freeTotal)))
		if mismatch {
			out.Stats.TotalMismatches++
		}
		discount := decimal.NewFromFloat(n.Number(raw.Get(freeDiscount)).Or(0))
		tax := decimal.NewFromFloat(n.Number(raw.Get(freeTax)).Or(0))
		shipping := decimal.NewFromFloat(n.Number(raw.Get(freeShipping)).Or(0))
		status := v.Lookup(freeStatus.Extract(raw), vocab.TableDeliveryStatus, vocab.Unknown)
		payment := n.Text(raw.Get(freePayment), normalize.CaseLower).Or(vocab.Unknown)

		itemLabel := itemRef
		if itemLabel == "" {
			itemLabel = "NO_ITEM_ID"
		}

		out.Items = append(out.Items, commerce.OrderItem{
			OrderID:                orderID.Value,
			ProductID:              productID,
			CustomerID:             customerRef,
			SourceFileName:         source,
			Quantity:               qty,
			UnitPrice:              decimal.NewFromFloat(unit.Or(0)),
			LineTotal:              total,
			LineDiscount:           discount,
			LineTax:                tax,
			LineShippingFee:        shipping,
			OriginalLineIdentifier: fmt.Sprintf("%s_UNSTR_%s_%s_%d", orderID.Value, productID, itemLabel, idx),
			LastUpdatedPipeline:    now,
			OrderDate:              n.Timestamp(freeOrderDate.Extract(raw)).Ptr(),
			Status:                 &status,
			DeliveryStatus:         &status,
			PaymentMethod:          &payment,
			ShippingAddress:        n.Text(raw.Get(freeAddress), normalize.CaseNone).Ptr(),
			Notes:                  n.Text(raw.Get(freeNotes), normalize.CaseNone).Ptr(),
			TrackingNumber:         n.Text(raw.Get(freeTracking), normalize.CaseNone).Ptr(),
			AmountPaid:             total.Sub(discount).Add(tax).Add(shipping),
			SourceOrderID:          sourceOrderID(freeSourceOrder.Extract(raw)),
		})
	}

	out.Stats.Resolved = len(out.Items)
	logStats(log, out.Stats)
	return out
}

// customerReference derives the canonical customer reference from cust_id,
// else from a numeric customer_id
func (r *FreeformResolver) customerReference(raw batch.Row) (string, bool) {
	if ref, ok := r.refs.customers.FromReference(raw.Get(freeCustString)); ok {
		return ref, true
	}
	if num := r.deps.Normalizer.Integer(raw.Get(freeCustNumeric)); num.Valid {
		return r.refs.customers.FromNumber(num.Value), true
	}
	return "", false
}

// product resolves product_id through the layered reference lookup, then
// item_id via the remap, then item_id directly
func (r *FreeformResolver) product(productRef, itemRef string, known commerce.KnownIDs) (string, bool) {
	if id, ok := r.refs.product(productRef, known.Products, known.Remap); ok {
		return id, true
	}
	if itemRef == "" {
		return "", false
	}
	if id, ok := known.Remap.Lookup(itemRef); ok && known.Products.Contains(id) {
		return id, true
	}
	if known.Products.Contains(itemRef) {
		return itemRef, true
	}
	return "", false
}

// itemKey renders an item id the way remap keys are written: integral
// numbers, native or textual, without a fraction
func itemKey(v any) string {
	if normalize.IsEmptyLike(v) {
		return ""
	}
	if n, ok := identity.NumericSourceID(v); ok && isIntegral(v, n) {
		return strconv.FormatInt(n, 10)
	}
	return normalize.Stringify(v)
}

// isIntegral reports whether v carries exactly the integer n
func isIntegral(v any, n int64) bool {
	switch t := v.(type) {
	case float64:
		return t == float64(n)
	case int, int64:
		return true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil && f == float64(n)
	}
	return false
}

// sourceOrderID keeps the digits of an order reference
func sourceOrderID(v any) *int64 {
	var digits []byte
	for _, c := range []byte(normalize.Stringify(v)) {
		if c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 0 {
		return nil
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
