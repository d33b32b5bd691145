package resolve

import (
	"context"
	"fmt"

	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/erp/unify/internal/domain/vocab"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Column names of the reconciliation export
const (
	reconClient      = "client_reference"
	reconTransaction = "transaction_ref"
	reconItem        = "item_reference"
	reconDate        = "transaction_date"
	reconAmountPaid  = "amount_paid"
	reconPayment     = "payment_status"
	reconDelivery    = "delivery_status"
	reconQuantity    = "quantity_ordered"
	reconUnitCost    = "unit_cost"
	reconTotal       = "total_value"
	reconDiscount    = "discount_applied"
	reconShipping    = "shipping_fee"
	reconTax         = "tax_amount"
	reconNotes       = "notes_comments"
)

// ReconciliationResolver resolves the transaction export whose customers are
// referenced as CLI_<n> and products as ITM_<n>
type ReconciliationResolver struct {
	deps etl.Deps
	refs referenceResolver
}

// NewReconciliationResolver creates a ReconciliationResolver
func NewReconciliationResolver(deps etl.Deps, customers *identity.Canonicalizer) *ReconciliationResolver {
	deps = deps.WithDefaults()
	if customers == nil {
		customers = identity.NewCustomerCanonicalizer(identity.CustomerPrefix, identity.DefaultPadWidth)
	}
	return &ReconciliationResolver{
		deps: deps,
		refs: referenceResolver{norm: deps.Normalizer, customers: customers},
	}
}

// Strategy implements Resolver
func (r *ReconciliationResolver) Strategy() Strategy { return StrategyReconciliation }

// Resolve implements Resolver
func (r *ReconciliationResolver) Resolve(ctx context.Context, b *batch.Batch, source string, known commerce.KnownIDs) *ResolvedItems {
	log := r.deps.Logger.With(zap.String("source_file", source), zap.String("strategy", string(StrategyReconciliation)))
	out := &ResolvedItems{Source: source, Strategy: StrategyReconciliation}
	if b.IsEmpty() {
		log.Warn("raw reconciliation batch is empty, skipping")
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
		orderID := n.Text(raw.Get(reconTransaction), normalize.CaseUpper)
		productRef := n.Text(raw.Get(reconItem), normalize.CaseUpper)
		if !orderID.Valid || normalize.IsEmptyLike(raw.Get(reconClient)) || !productRef.Valid {
			out.Stats.MissingKeys++
			continue
		}
		customerID, ok := r.refs.customer(raw.Get(reconClient), known.Customers)
		if !ok {
			out.Stats.UnknownCustomer++
			continue
		}
		productID, ok := r.refs.product(productRef.Value, known.Products, known.Remap)
		if !ok {
			out.Stats.UnknownProduct++
			continue
		}

		qty := n.Integer(raw.Get(reconQuantity)).Or(1)
		total, mismatch := lineTotal(qty, n.Number(raw.Get(reconUnitCost)), n.Number(raw.Get(reconTotal)))
		if mismatch {
			out.Stats.TotalMismatches++
		}
		delivery := v.Lookup(raw.Get(reconDelivery), vocab.TableDeliveryStatus, vocab.Unknown)
		payment := v.Lookup(raw.Get(reconPayment), vocab.TablePaymentStatus, vocab.Unknown)

		out.Items = append(out.Items, commerce.OrderItem{
			OrderID:         orderID.Value,
			ProductID:       productID,
			CustomerID:      customerID,
			SourceFileName:  source,
			Quantity:        qty,
			UnitPrice:       decimal.NewFromFloat(n.Number(raw.Get(reconUnitCost)).Or(0)),
			LineTotal:       total,
			LineDiscount:    decimal.NewFromFloat(n.Number(raw.Get(reconDiscount)).Or(0)),
			LineTax:         decimal.NewFromFloat(n.Number(raw.Get(reconTax)).Or(0)),
			LineShippingFee: decimal.NewFromFloat(n.Number(raw.Get(reconShipping)).Or(0)),
			OriginalLineIdentifier: fmt.Sprintf("%s_RECON_%s_%d",
				normalize.Stringify(raw.Get(reconTransaction)), normalize.Stringify(raw.Get(reconItem)), idx),
			LastUpdatedPipeline: now,
			OrderDate:           n.Timestamp(raw.Get(reconDate)).Ptr(),
			Status:              &delivery,
			PaymentStatus:       &payment,
			DeliveryStatus:      &delivery,
			Notes:               n.Text(raw.Get(reconNotes), normalize.CaseNone).Ptr(),
			AmountPaid:          decimal.NewFromFloat(n.Number(raw.Get(reconAmountPaid)).Or(0)),
		})
	}

	out.Stats.Resolved = len(out.Items)
	logStats(log, out.Stats)
	return out
}
