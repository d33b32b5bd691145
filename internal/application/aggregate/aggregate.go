// Package aggregate folds resolved order items into orders.
package aggregate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/vocab"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NotesSeparator joins the distinct notes of an order's items
const NotesSeparator = "; "

// Result holds the closed set of items and orders ready to load
type Result struct {
	Items         []commerce.OrderItem
	Orders        []commerce.Order
	DroppedOrders int
	DroppedItems  int
}

// Aggregator groups order items by order id
type Aggregator struct {
	logger *zap.Logger
	clock  func() time.Time
}

// New creates an Aggregator. A nil clock uses the current UTC time.
func New(logger *zap.Logger, clock func() time.Time) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Aggregator{logger: logger, clock: clock}
}

// Aggregate concatenates the item batches in order, builds one order per
// order id and drops orders whose customer is not in known together with
// their items.
func (a *Aggregator) Aggregate(ctx context.Context, known identity.IDSet, batches ...[]commerce.OrderItem) *Result {
	var all []commerce.OrderItem
	for _, b := range batches {
		all = append(all, b...)
	}
	out := &Result{}
	if len(all) == 0 {
		a.logger.Warn("no order items to aggregate")
		return out
	}

	var order []string
	groups := make(map[string][]commerce.OrderItem)
	for _, it := range all {
		if _, seen := groups[it.OrderID]; !seen {
			order = append(order, it.OrderID)
		}
		groups[it.OrderID] = append(groups[it.OrderID], it)
	}

	now := a.clock()
	surviving := make(map[string]struct{}, len(order))
	for _, id := range order {
		if ctx.Err() != nil {
			break
		}
		o := build(id, groups[id], now)
		if !known.Contains(o.CustomerID) {
			out.DroppedOrders++
			continue
		}
		surviving[id] = struct{}{}
		out.Orders = append(out.Orders, o)
	}

	for _, it := range all {
		if _, ok := surviving[it.OrderID]; ok {
			out.Items = append(out.Items, it)
		} else {
			out.DroppedItems++
		}
	}

	if out.DroppedOrders > 0 {
		a.logger.Warn("dropped orders referencing unknown customers",
			zap.Int("orders", out.DroppedOrders),
			zap.Int("items", out.DroppedItems),
			zap.String("cause", "unknown_customer"),
		)
	}
	a.logger.Info("orders aggregated",
		zap.Int("items_in", len(all)),
		zap.Int("orders", len(out.Orders)),
		zap.Int("items_out", len(out.Items)),
	)
	return out
}

func build(id string, items []commerce.OrderItem, now time.Time) commerce.Order {
	first := items[0]
	o := commerce.Order{
		OrderID:             id,
		CustomerID:          first.CustomerID,
		SourceFileName:      first.SourceFileName,
		OrderStatus:         mode(items, func(it commerce.OrderItem) *string { return it.Status }),
		PaymentMethod:       firstString(items, func(it commerce.OrderItem) *string { return it.PaymentMethod }),
		PaymentStatus:       firstString(items, func(it commerce.OrderItem) *string { return it.PaymentStatus }),
		DeliveryStatus:      firstString(items, func(it commerce.OrderItem) *string { return it.DeliveryStatus }),
		ShippingAddressFull: firstPtr(items, func(it commerce.OrderItem) *string { return it.ShippingAddress }),
		TrackingNumber:      firstPtr(items, func(it commerce.OrderItem) *string { return it.TrackingNumber }),
		Notes:               joinNotes(items),
		LastUpdatedPipeline: now,
	}
	for _, it := range items {
		if it.OrderDate != nil && (o.OrderDate == nil || it.OrderDate.Before(*o.OrderDate)) {
			d := *it.OrderDate
			o.OrderDate = &d
		}
		if o.SourceOrderIDInt == nil && it.SourceOrderID != nil {
			v := *it.SourceOrderID
			o.SourceOrderIDInt = &v
		}
		o.ShippingCostTotal = o.ShippingCostTotal.Add(it.LineShippingFee)
		o.TaxTotal = o.TaxTotal.Add(it.LineTax)
		o.DiscountTotal = o.DiscountTotal.Add(it.LineDiscount)
		o.TotalValueGross = o.TotalValueGross.Add(it.LineTotal)
		o.AmountPaidTotal = o.AmountPaidTotal.Add(it.AmountPaid)
	}
	o.TotalValueNet = o.TotalValueGross.Sub(o.DiscountTotal)
	return o
}

// mode returns the most frequent non-empty value, ties going to the first encountered
func mode(items []commerce.OrderItem, field func(commerce.OrderItem) *string) string {
	counts := make(map[string]int)
	var seen []string
	for _, it := range items {
		v := field(it)
		if v == nil || *v == "" {
			continue
		}
		if counts[*v] == 0 {
			seen = append(seen, *v)
		}
		counts[*v]++
	}
	best, bestCount := vocab.Unknown, 0
	for _, v := range seen {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func firstPtr(items []commerce.OrderItem, field func(commerce.OrderItem) *string) *string {
	for _, it := range items {
		if v := field(it); v != nil && *v != "" {
			s := *v
			return &s
		}
	}
	return nil
}

func firstString(items []commerce.OrderItem, field func(commerce.OrderItem) *string) string {
	if v := firstPtr(items, field); v != nil {
		return *v
	}
	return vocab.Unknown
}

func joinNotes(items []commerce.OrderItem) *string {
	set := make(map[string]struct{})
	for _, it := range items {
		if it.Notes != nil && *it.Notes != "" {
			set[*it.Notes] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	notes := make([]string, 0, len(set))
	for n := range set {
		notes = append(notes, n)
	}
	sort.Strings(notes)
	joined := strings.Join(notes, NotesSeparator)
	return &joined
}

// Verify reports the item and order ids that break referential closure.
// Both slices are empty for any Result produced by Aggregate.
func Verify(r *Result) (orphanItems, emptyOrders []string) {
	orders := make(map[string]int, len(r.Orders))
	for _, o := range r.Orders {
		orders[o.OrderID] = 0
	}
	for _, it := range r.Items {
		if _, ok := orders[it.OrderID]; !ok {
			orphanItems = append(orphanItems, it.OriginalLineIdentifier)
			continue
		}
		orders[it.OrderID]++
	}
	for _, o := range r.Orders {
		if orders[o.OrderID] == 0 {
			emptyOrders = append(emptyOrders, o.OrderID)
		}
	}
	return orphanItems, emptyOrders
}

// Totals sums the net value of all orders
func Totals(orders []commerce.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.TotalValueNet)
	}
	return sum
}
