package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/erp/unify/internal/application/aggregate"
	"github.com/erp/unify/internal/application/etl"
	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func testDeps(logger *zap.Logger) etl.Deps {
	return etl.Deps{
		Clock:  func() time.Time { return fixedNow },
		Logger: logger,
	}
}

func knownIDs(customers, products []string, remap map[string]string) commerce.KnownIDs {
	known := commerce.KnownIDs{
		Customers: identity.NewIDSet(customers...),
		Products:  identity.NewIDSet(products...),
		Remap:     identity.Remap{},
	}
	for k, v := range remap {
		known.Remap[k] = v
	}
	return known
}

func rowsBatch(source string, rows ...batch.Row) *batch.Batch {
	return batch.New(source, batch.InferColumns(rows), rows)
}

func decEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestForEntity(t *testing.T) {
	r, ok := ForEntity(commerce.EntityOrderItemsRecon, testDeps(nil), nil)
	require.True(t, ok)
	assert.Equal(t, StrategyReconciliation, r.Strategy())

	r, ok = ForEntity(commerce.EntityOrderItemsFreeform, testDeps(nil), nil)
	require.True(t, ok)
	assert.Equal(t, StrategyFreeform, r.Strategy())

	_, ok = ForEntity(commerce.EntityCustomer, testDeps(nil), nil)
	assert.False(t, ok)
}

func TestLineTotal(t *testing.T) {
	n := normalize.New()

	t.Run("quantity times unit price", func(t *testing.T) {
		total, mismatch := lineTotal(2, n.Number(12.5), n.Number(25.0))
		decEq(t, "25", total)
		assert.False(t, mismatch)
	})

	t.Run("provided total used without unit price", func(t *testing.T) {
		total, mismatch := lineTotal(3, n.Number(nil), n.Number("9.99"))
		decEq(t, "9.99", total)
		assert.False(t, mismatch)
	})

	t.Run("disagreeing total is flagged", func(t *testing.T) {
		total, mismatch := lineTotal(1, n.Number(5.0), n.Number(7.0))
		decEq(t, "5", total)
		assert.True(t, mismatch)
	})

	t.Run("rounding noise is tolerated", func(t *testing.T) {
		_, mismatch := lineTotal(3, n.Number(0.1), n.Number(0.3))
		assert.False(t, mismatch)
	})

	t.Run("nothing given", func(t *testing.T) {
		total, mismatch := lineTotal(1, n.Number(nil), n.Number(nil))
		assert.True(t, total.IsZero())
		assert.False(t, mismatch)
	})
}

func TestNumericKeys(t *testing.T) {
	assert.Equal(t, []string{"12"}, numericKeys("12"))
	assert.Equal(t, []string{"0012", "12"}, numericKeys("0012"))
}

func TestReferenceResolver_Customer(t *testing.T) {
	refs := referenceResolver{
		norm:      normalize.New(),
		customers: identity.NewCustomerCanonicalizer(identity.CustomerPrefix, identity.DefaultPadWidth),
	}
	known := identity.NewIDSet("CUST_0007", "CUST_7X", "CUST_0010")

	tests := []struct {
		name string
		raw  any
		want string
		ok   bool
	}{
		{"foreign prefix padded", "CLI_7", "CUST_0007", true},
		{"foreign prefix literal", "cli_7x", "CUST_7X", true},
		{"canonical reference", " cust_0010 ", "CUST_0010", true},
		{"unknown", "CLI_99", "", false},
		{"blank", "  ", "", false},
		{"empty-like", "NaN", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := refs.customer(tt.raw, known)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferenceResolver_Product(t *testing.T) {
	refs := referenceResolver{norm: normalize.New()}
	known := identity.NewIDSet("P012", "ITM_5", "44", "STALE")
	remap := identity.Remap{"12": "P012", "13": "GONE"}

	tests := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{"known verbatim", "ITM_5", "ITM_5", true},
		{"remapped numeric suffix", "ITM_12", "P012", true},
		{"remapped zero padded suffix", "ITM_0012", "P012", true},
		{"remap target must be known", "ITM_13", "", false},
		{"numeric suffix known directly", "ITM_044", "44", true},
		{"non numeric unknown", "ITM_ABC", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := refs.product(tt.ref, known, remap)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconciliationResolver_Resolve(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReconciliationResolver(testDeps(zap.New(core)), nil)
	known := knownIDs(
		[]string{"CUST_0007", "CUST_0010"},
		[]string{"P001", "P012"},
		map[string]string{"12": "P012", "P001": "P001", "P012": "P012"},
	)

	b := rowsBatch("recon_2024.csv",
		batch.Row{
			"client_reference": "CLI_7", "transaction_ref": "t1", "item_reference": "ITM_12",
			"quantity_ordered": 2.0, "unit_cost": 12.5, "total_value": 25.0,
			"delivery_status": "delivered", "payment_status": "completed",
			"transaction_date": "2024-03-01", "amount_paid": 24.0, "discount_applied": 1.0,
			"notes_comments": "  gift  wrap ",
		},
		batch.Row{"client_reference": "CLI_7", "transaction_ref": nil, "item_reference": "ITM_12"},
		batch.Row{"client_reference": "CLI_99", "transaction_ref": "t2", "item_reference": "ITM_12"},
		batch.Row{"client_reference": "CLI_7", "transaction_ref": "t3", "item_reference": "ITM_404"},
		batch.Row{
			"client_reference": "cust_0010", "transaction_ref": "t4", "item_reference": "P001",
			"unit_cost": 5.0, "total_value": 7.0, "delivery_status": "teleported",
		},
	)

	out := r.Resolve(context.Background(), b, "recon_2024.csv", known)
	require.NotNil(t, out)
	assert.Equal(t, StrategyReconciliation, out.Strategy)
	assert.Equal(t, Stats{
		Input:           5,
		MissingKeys:     1,
		UnknownCustomer: 1,
		UnknownProduct:  1,
		Resolved:        2,
		TotalMismatches: 1,
	}, out.Stats)
	assert.Equal(t, 3, out.Stats.Dropped())
	require.Len(t, out.Items, 2)

	first := out.Items[0]
	assert.Equal(t, "T1", first.OrderID)
	assert.Equal(t, "CUST_0007", first.CustomerID)
	assert.Equal(t, "P012", first.ProductID)
	assert.Equal(t, "recon_2024.csv", first.SourceFileName)
	assert.Equal(t, int64(2), first.Quantity)
	decEq(t, "25", first.LineTotal)
	decEq(t, "1", first.LineDiscount)
	decEq(t, "24", first.AmountPaid)
	assert.Equal(t, "t1_RECON_ITM_12_0", first.OriginalLineIdentifier)
	assert.Equal(t, fixedNow, first.LastUpdatedPipeline)
	require.NotNil(t, first.DeliveryStatus)
	assert.Equal(t, "DELIVERED", *first.DeliveryStatus)
	assert.Equal(t, "DELIVERED", *first.Status)
	assert.Equal(t, "COMPLETED", *first.PaymentStatus)
	require.NotNil(t, first.OrderDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *first.OrderDate)
	require.NotNil(t, first.Notes)
	assert.Equal(t, "gift wrap", *first.Notes)

	second := out.Items[1]
	assert.Equal(t, "CUST_0010", second.CustomerID)
	assert.Equal(t, "P001", second.ProductID)
	assert.Equal(t, int64(1), second.Quantity)
	decEq(t, "5", second.LineTotal)
	assert.Equal(t, "UNKNOWN", *second.DeliveryStatus)
	assert.Equal(t, "UNKNOWN", *second.PaymentStatus)
	assert.Nil(t, second.OrderDate)

	for _, it := range out.Items {
		assert.True(t, known.Customers.Contains(it.CustomerID))
		assert.True(t, known.Products.Contains(it.ProductID))
	}

	assert.Equal(t, 1, logs.FilterField(zap.String("cause", "missing_keys")).Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("cause", "unknown_customer")).Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("cause", "unknown_product")).Len())
	assert.Equal(t, 1, logs.FilterMessage("order items resolved").Len())
}

func TestReconciliationResolver_EmptyBatch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewReconciliationResolver(testDeps(zap.New(core)), nil)

	out := r.Resolve(context.Background(), nil, "recon.csv", commerce.EmptyKnownIDs())
	require.NotNil(t, out)
	assert.Empty(t, out.Items)
	assert.Equal(t, 0, out.Stats.Input)
	assert.Equal(t, 1, logs.FilterMessage("raw reconciliation batch is empty, skipping").Len())
}

func TestReconciliationResolver_NoKnownIDsDropsEverything(t *testing.T) {
	r := NewReconciliationResolver(testDeps(nil), nil)
	b := rowsBatch("recon.csv",
		batch.Row{"client_reference": "CLI_1", "transaction_ref": "T1", "item_reference": "ITM_1"},
	)

	out := r.Resolve(context.Background(), b, "recon.csv", commerce.EmptyKnownIDs())
	assert.Empty(t, out.Items)
	assert.Equal(t, 1, out.Stats.UnknownCustomer)
}

func TestFreeformResolver_Resolve(t *testing.T) {
	r := NewFreeformResolver(testDeps(nil), nil)
	known := knownIDs(
		[]string{"CUST_0003", "CUST_0042"},
		[]string{"P001", "P012"},
		map[string]string{"12": "P012"},
	)

	b := rowsBatch("orders_unstructured.json",
		batch.Row{
			"order_id": "o-1", "customer_id": 3.0, "item_id": 12.0, "quantity": 2.0, "price": 10.0,
			"discount": 1.0, "tax": 0.5, "shipping_cost": 2.0, "status": "shipped",
			"payment_method": " Credit  Card ", "order_datetime": "2024-02-10 14:30:00",
		},
		batch.Row{"ord_id": "A-77", "cust_id": "cust_0042", "product_id": "p001", "total_amount": 9.99},
		batch.Row{"order_id": "o-3", "item_id": 12.0},
		batch.Row{"order_id": "o-4", "customer_id": 99.0, "item_id": 12.0},
		batch.Row{"order_id": "o-5", "customer_id": 3.0, "item_id": 555.0},
		batch.Row{"order_id": "o-6", "customer_id": 3.0},
	)

	out := r.Resolve(context.Background(), b, "orders_unstructured.json", known)
	assert.Equal(t, Stats{
		Input:           6,
		MissingKeys:     2,
		UnknownCustomer: 1,
		UnknownProduct:  1,
		Resolved:        2,
	}, out.Stats)
	require.Len(t, out.Items, 2)

	first := out.Items[0]
	assert.Equal(t, "O-1", first.OrderID)
	assert.Equal(t, "CUST_0003", first.CustomerID)
	assert.Equal(t, "P012", first.ProductID)
	assert.Equal(t, int64(2), first.Quantity)
	decEq(t, "10", first.UnitPrice)
	decEq(t, "20", first.LineTotal)
	decEq(t, "21.5", first.AmountPaid)
	assert.Equal(t, "O-1_UNSTR_P012_12_0", first.OriginalLineIdentifier)
	assert.Equal(t, "SHIPPED", *first.Status)
	assert.Equal(t, "SHIPPED", *first.DeliveryStatus)
	assert.Equal(t, "credit card", *first.PaymentMethod)
	require.NotNil(t, first.OrderDate)
	assert.Equal(t, time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC), *first.OrderDate)
	require.NotNil(t, first.SourceOrderID)
	assert.Equal(t, int64(1), *first.SourceOrderID)

	second := out.Items[1]
	assert.Equal(t, "A-77", second.OrderID)
	assert.Equal(t, "CUST_0042", second.CustomerID)
	assert.Equal(t, "P001", second.ProductID)
	assert.Equal(t, int64(1), second.Quantity)
	decEq(t, "9.99", second.LineTotal)
	assert.Equal(t, "A-77_UNSTR_P001_NO_ITEM_ID_1", second.OriginalLineIdentifier)
	assert.Equal(t, "UNKNOWN", *second.Status)
	assert.Equal(t, "UNKNOWN", *second.PaymentMethod)
	require.NotNil(t, second.SourceOrderID)
	assert.Equal(t, int64(77), *second.SourceOrderID)
}

func TestFreeformResolver_ProductReferences(t *testing.T) {
	r := NewFreeformResolver(testDeps(nil), nil)
	known := knownIDs([]string{"CUST_0003"}, []string{"P012", "44"}, map[string]string{"12": "P012"})

	tests := []struct {
		name string
		row  batch.Row
		want string
	}{
		{"item prefix via remap", batch.Row{"product_id": "ITM_12"}, "P012"},
		{"bare numeric product id via remap", batch.Row{"product_id": "12"}, "P012"},
		{"zero padded product id via remap", batch.Row{"product_id": "ITM_0012"}, "P012"},
		{"numeric remainder known directly", batch.Row{"product_id": "ITM_044"}, "44"},
		{"textual float item id", batch.Row{"item_id": "12.0"}, "P012"},
		{"textual item id", batch.Row{"item_id": "12"}, "P012"},
		{"unknown product id falls back to item id", batch.Row{"product_id": "X-9", "item_id": "12"}, "P012"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := batch.Row{"order_id": "o-1", "customer_id": "3"}
			for k, v := range tt.row {
				row[k] = v
			}
			out := r.Resolve(context.Background(), rowsBatch("orders.csv", row), "orders.csv", known)
			require.Len(t, out.Items, 1, "stats: %+v", out.Stats)
			assert.Equal(t, tt.want, out.Items[0].ProductID)
			assert.Zero(t, out.Stats.UnknownProduct)
		})
	}

	t.Run("fractional item id stays unknown", func(t *testing.T) {
		row := batch.Row{"order_id": "o-1", "customer_id": "3", "item_id": "12.5"}
		out := r.Resolve(context.Background(), rowsBatch("orders.csv", row), "orders.csv", known)
		assert.Empty(t, out.Items)
		assert.Equal(t, 1, out.Stats.UnknownProduct)
	})
}

func TestItemKey(t *testing.T) {
	assert.Equal(t, "12", itemKey(12.0))
	assert.Equal(t, "12", itemKey("12.0"))
	assert.Equal(t, "7", itemKey(" 7 "))
	assert.Equal(t, "12.5", itemKey("12.5"))
	assert.Equal(t, "12.5", itemKey(12.5))
	assert.Equal(t, "ABC", itemKey(" ABC "))
	assert.Equal(t, "", itemKey(nil))
	assert.Equal(t, "", itemKey("null"))
}

func TestSourceOrderID(t *testing.T) {
	got := sourceOrderID("ORD-0042")
	require.NotNil(t, got)
	assert.Equal(t, int64(42), *got)
	assert.Nil(t, sourceOrderID("none-here"))
	assert.Nil(t, sourceOrderID(nil))
}

func TestFreeformResolver_AggregatesSingleOrder(t *testing.T) {
	r := NewFreeformResolver(testDeps(nil), nil)
	known := knownIDs([]string{"CUST_0003"}, []string{"P001", "P012"}, map[string]string{"12": "P012"})

	b := rowsBatch("orders_unstructured.csv",
		batch.Row{"order_id": "A1", "customer_id": 3.0, "item_id": 12.0, "quantity": 2.0, "price": 10.0, "discount": 0.0},
		batch.Row{"order_id": "A1", "customer_id": 3.0, "product_id": "P001", "quantity": 1.0, "price": 5.0, "discount": 1.0},
		batch.Row{"order_id": "A1", "customer_id": 3.0, "item_id": 999.0, "quantity": 4.0, "price": 7.0},
	)

	items := r.Resolve(context.Background(), b, "orders_unstructured.csv", known)
	assert.Equal(t, 1, items.Stats.UnknownProduct)
	require.Len(t, items.Items, 2)

	out := aggregate.New(nil, func() time.Time { return fixedNow }).Aggregate(context.Background(), known.Customers, items.Items)
	require.Len(t, out.Orders, 1)
	require.Len(t, out.Items, 2)

	o := out.Orders[0]
	assert.Equal(t, "A1", o.OrderID)
	assert.Equal(t, "CUST_0003", o.CustomerID)
	decEq(t, "25", o.TotalValueGross)
	decEq(t, "1", o.DiscountTotal)
	decEq(t, "24", o.TotalValueNet)
	decEq(t, "24", aggregate.Totals(out.Orders))
}
