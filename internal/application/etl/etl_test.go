package etl

import (
	"context"
	"testing"
	"time"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func testDeps(logger *zap.Logger) Deps {
	return Deps{
		Clock:  func() time.Time { return fixedNow },
		Logger: logger,
	}
}

func customerBatch(rows ...batch.Row) *batch.Batch {
	return batch.New("customers.json", batch.InferColumns(rows), rows)
}

func byID(rows []commerce.Customer) map[string]commerce.Customer {
	out := make(map[string]commerce.Customer, len(rows))
	for _, r := range rows {
		out[r.CustomerID] = r
	}
	return out
}

func TestCustomerCleaner_IDs(t *testing.T) {
	cleaner := NewCustomerCleaner(testDeps(nil), nil, DefaultCustomerAliases)

	t.Run("numeric id without string id is padded", func(t *testing.T) {
		out := cleaner.Run(context.Background(), customerBatch(batch.Row{"customer_id": 7.0, "name": "ann lee"}), "customers.json")
		require.Len(t, out.Rows, 1)
		c := out.Rows[0]
		assert.Equal(t, "CUST_0007", c.CustomerID)
		require.NotNil(t, c.SourceCustomerIDInt)
		assert.Equal(t, int64(7), *c.SourceCustomerIDInt)
		assert.True(t, out.IDs.Contains("CUST_0007"))
	})

	t.Run("string id precedence", func(t *testing.T) {
		out := cleaner.Run(context.Background(), customerBatch(
			batch.Row{"cust_id": nil, "client_id": "cust_0100", "id": 3.0},
		), "c")
		require.Len(t, out.Rows, 1)
		assert.Equal(t, "CUST_0100", out.Rows[0].CustomerID)
	})

	t.Run("rows without any id get placeholders outside the id set", func(t *testing.T) {
		out := cleaner.Run(context.Background(), customerBatch(
			batch.Row{"name": "a", "email": "a@x.io"},
			batch.Row{"name": "b", "email": "b@x.io"},
		), "c")
		require.Len(t, out.Rows, 2)
		assert.Equal(t, 2, out.Placeholders)
		assert.Equal(t, 0, out.IDs.Len())
		ids := byID(out.Rows)
		assert.Contains(t, ids, "CUST_UNKNOWN_0")
		assert.Contains(t, ids, "CUST_UNKNOWN_1")
		assert.True(t, ids["CUST_UNKNOWN_0"].IDIsPlaceholder)
	})

	t.Run("duplicate ids keep lowest numeric source id", func(t *testing.T) {
		out := cleaner.Run(context.Background(), customerBatch(
			batch.Row{"cust_id": "CUST_0001", "customer_id": 9.0, "name": "late"},
			batch.Row{"cust_id": "CUST_0001", "name": "no number"},
			batch.Row{"cust_id": "CUST_0001", "customer_id": 2.0, "name": "early"},
		), "c")
		require.Len(t, out.Rows, 1)
		assert.Equal(t, "Early", *out.Rows[0].CustomerName)
		assert.Equal(t, 2, out.Dropped)
	})

	t.Run("customer_id only feeds the numeric fallback", func(t *testing.T) {
		out := cleaner.Run(context.Background(), customerBatch(
			batch.Row{"customer_id": "12"},
			batch.Row{"customer_id": "vip"},
		), "c")
		ids := byID(out.Rows)
		assert.Contains(t, ids, "CUST_0012")
		assert.Contains(t, ids, "CUST_UNKNOWN_1")
		assert.NotContains(t, ids, "VIP")
		assert.Equal(t, 1, out.Placeholders)
	})

	t.Run("ids are unique and non-empty", func(t *testing.T) {
		out := cleaner.Run(context.Background(), customerBatch(
			batch.Row{"id": "1"}, batch.Row{"id": 1.0}, batch.Row{"id": "01"}, batch.Row{"id": "x"}, batch.Row{},
		), "c")
		seen := map[string]bool{}
		for _, r := range out.Rows {
			assert.NotEmpty(t, r.CustomerID)
			assert.False(t, seen[r.CustomerID], r.CustomerID)
			seen[r.CustomerID] = true
		}
		assert.Len(t, out.Rows, 3)
	})
}

func TestCustomerCleaner_EmailDedup(t *testing.T) {
	cleaner := NewCustomerCleaner(testDeps(nil), nil, DefaultCustomerAliases)

	out := cleaner.Run(context.Background(), customerBatch(
		batch.Row{"cust_id": "B", "email": "Same@Mail.com"},
		batch.Row{"cust_id": "A", "e-mail": "same@mail.com"},
		batch.Row{"cust_id": "C"},
		batch.Row{"cust_id": "D", "email": ""},
		batch.Row{"cust_id": "E", "email": "other@mail.com"},
	), "c")

	ids := byID(out.Rows)
	assert.Len(t, out.Rows, 4)
	assert.Contains(t, ids, "A")
	assert.NotContains(t, ids, "B")
	assert.Contains(t, ids, "C")
	assert.Contains(t, ids, "D")
	assert.Contains(t, ids, "E")
	assert.Equal(t, "same@mail.com", *ids["A"].Email)
	assert.Nil(t, ids["D"].Email)
}

func TestCustomerCleaner_Fields(t *testing.T) {
	cleaner := NewCustomerCleaner(testDeps(nil), nil, DefaultCustomerAliases)

	out := cleaner.Run(context.Background(), customerBatch(batch.Row{
		"cust_id":           "C1",
		"full_name":         "  mary   JANE ",
		"mobile":            "555.123.4567",
		"street_address":    "12 main st",
		"town":              "nyc",
		"province":          "california",
		"zip":               "90210-1234",
		"reg_date":          "2023/01/05",
		"dob":               "1990-06-16",
		"account_status":    "active",
		"total_expenditure": "$1,200.50",
		"order_count":       "3",
		"points":            nil,
		"sex":               "f",
		"tier":              "gold",
		"payment_method":    "Credit_Card",
		"favourite_colour":  "blue",
	}), "customers.json")

	require.Len(t, out.Rows, 1)
	c := out.Rows[0]
	assert.Equal(t, "customers.json", c.SourceFileName)
	assert.Equal(t, "Mary Jane", *c.CustomerName)
	assert.Equal(t, "(555) 123-4567", *c.Phone)
	assert.Equal(t, "12 Main St", *c.AddressStreet)
	assert.Equal(t, "New York", c.AddressCity)
	assert.Equal(t, "CA", c.AddressState)
	assert.Equal(t, "90210", *c.AddressPostalCode)
	assert.True(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC).Equal(*c.RegistrationDate))
	assert.Equal(t, "ACTIVE", c.Status)
	assert.True(t, decimal.RequireFromString("1200.5").Equal(c.TotalSpent))
	assert.Equal(t, int64(3), c.TotalOrders)
	assert.Equal(t, int64(0), c.LoyaltyPoints)
	assert.Equal(t, "FEMALE", c.Gender)
	assert.Equal(t, "GOLD", c.Segment)
	assert.Equal(t, "credit_card", c.PreferredPaymentMethod)
	require.NotNil(t, c.Age)
	assert.Equal(t, int64(33), *c.Age, "birthday tomorrow")
	assert.Equal(t, fixedNow, c.LastUpdatedPipeline)
}

func TestCustomerCleaner_Defaults(t *testing.T) {
	cleaner := NewCustomerCleaner(testDeps(nil), nil, DefaultCustomerAliases)

	out := cleaner.Run(context.Background(), customerBatch(batch.Row{"cust_id": "C9", "age": "41", "status": "None"}), "c")
	require.Len(t, out.Rows, 1)
	c := out.Rows[0]
	assert.Equal(t, "UNKNOWN", c.AddressCity)
	assert.Equal(t, "UNKNOWN", c.AddressState)
	assert.Equal(t, "UNKNOWN", c.Status)
	assert.Equal(t, "UNKNOWN", c.Gender)
	assert.Equal(t, "UNKNOWN", c.Segment)
	assert.Equal(t, "UNKNOWN", c.PreferredPaymentMethod)
	assert.True(t, c.TotalSpent.IsZero())
	assert.Nil(t, c.Phone)
	assert.Nil(t, c.Email)
	require.NotNil(t, c.Age)
	assert.Equal(t, int64(41), *c.Age)
}

func TestCustomerCleaner_EmptyBatch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cleaner := NewCustomerCleaner(testDeps(zap.New(core)), nil, DefaultCustomerAliases)

	out := cleaner.Run(context.Background(), batch.Empty("c"), "c")
	assert.Empty(t, out.Rows)
	assert.Equal(t, 0, out.IDs.Len())
	assert.Equal(t, 1, logs.FilterMessage("raw customer batch is empty, skipping").Len())
}

func TestCustomerCleaner_LogsMissingFieldsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cleaner := NewCustomerCleaner(testDeps(zap.New(core)), nil, DefaultCustomerAliases)

	cleaner.Run(context.Background(), customerBatch(
		batch.Row{"cust_id": "A", "mystery": 1.0},
		batch.Row{"cust_id": "B", "mystery": 2.0},
	), "c")

	missing := logs.FilterMessage("target field has no source column, filled with default")
	assert.Equal(t, 1, missing.FilterField(zap.String("field", "email")).Len())
	unknown := logs.FilterMessage("ignoring unmapped source columns")
	require.Equal(t, 1, unknown.Len())
	assert.Equal(t, []any{"mystery"}, unknown.All()[0].ContextMap()["columns"])
}

func TestAgeAt(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	now := day(2024, 6, 15)

	assert.Equal(t, int64(34), *AgeAt(day(1990, 6, 15), now))
	assert.Equal(t, int64(33), *AgeAt(day(1990, 6, 16), now))
	assert.Equal(t, int64(34), *AgeAt(day(1990, 5, 30), now))
	assert.Nil(t, AgeAt(day(2025, 1, 1), now))
}

func TestInspect(t *testing.T) {
	fields := []Field{F("a", "a1", "a2"), F("b", "b1"), F("a", "a3")}
	report := Inspect([]string{"a2", "zz", "yy"}, fields)

	assert.Equal(t, []string{"b"}, report.MissingTargets)
	assert.Equal(t, []string{"yy", "zz"}, report.UnknownColumns)
}

func TestField_Extract(t *testing.T) {
	f := F("x", "a", "b", "c")
	assert.Equal(t, "B", f.Extract(batch.Row{"a": "  ", "b": "B", "c": "C"}))
	assert.Equal(t, false, f.Extract(batch.Row{"a": nil, "b": "null", "c": false}))
	assert.Nil(t, f.Extract(batch.Row{"z": 1.0}))
	assert.Equal(t, []any{nil, "B", nil}, f.Values(batch.Row{"b": "B"}))
}

func productBatch(rows ...batch.Row) *batch.Batch {
	return batch.New("products.json", batch.InferColumns(rows), rows)
}

func TestProductCleaner_Run(t *testing.T) {
	cleaner := NewProductCleaner(testDeps(nil), DefaultProductAliases)

	out := cleaner.Run(context.Background(), productBatch(
		batch.Row{"item_id": 101.0, "product_id": "p-001", "item_name": "blue widget", "unit_price": "$19.99",
			"manufacturer": "acme", "dimensions": "10 x 5X2.5", "active": "yes", "color": "", "stock_level": "12"},
		batch.Row{"item_id": 99.0, "productid": "P-001", "title": "dup lower id"},
		batch.Row{"item_id": 102.0, "name": "no id"},
		batch.Row{"id": "ITM_103", "product_code": "p-003", "dimensions": "10x5", "is_active": "maybe"},
	), "products.json")

	require.Len(t, out.Rows, 2)
	assert.Equal(t, 2, out.Dropped)
	assert.True(t, out.IDs.Contains("P-001"))
	assert.True(t, out.IDs.Contains("P-003"))

	first := out.Rows[0]
	assert.Equal(t, "P-001", first.ProductID)
	assert.Equal(t, "Dup Lower Id", *first.ProductName, "lowest item id wins")
	require.NotNil(t, first.SourceItemIDInt)
	assert.Equal(t, int64(99), *first.SourceItemIDInt)

	third := out.Rows[1]
	assert.Equal(t, "P-003", third.ProductID)
	assert.Nil(t, third.DimLengthCm)
	assert.Nil(t, third.IsActive)
	assert.Equal(t, commerce.DefaultDescription, third.Description)
	assert.Equal(t, "UNKNOWN", third.Category)
	assert.Equal(t, "UNKNOWN", third.Brand)
	assert.Equal(t, commerce.DefaultSize, third.Size)
	assert.True(t, third.Price.IsZero())

	// remap covers every row with an id, including the duplicate
	assert.Equal(t, "P-001", out.Remap["101"])
	assert.Equal(t, "P-001", out.Remap["99"])
	assert.Equal(t, "P-001", out.Remap["P-001"])
	assert.Equal(t, "P-003", out.Remap["103"])
	_, ok := out.Remap["102"]
	assert.False(t, ok)
}

func TestProductCleaner_Fields(t *testing.T) {
	cleaner := NewProductCleaner(testDeps(nil), DefaultProductAliases)

	out := cleaner.Run(context.Background(), productBatch(batch.Row{
		"product_id": "sku-9", "product_name": "deluxe LAMP", "desc": " bright ",
		"type": "home goods", "brand": "lumen", "price": "1,299.00", "purchase_price": 700.0,
		"weight": "2.5kg", "customer_rating": "4.5", "dimensions": "30x20x10",
		"color": "warm white", "size": "xl", "qty_on_hand": 5.0, "reorder_level": "2",
		"supplier_id": "sup-1", "is_active": true, "date_added": "2023-03-01",
		"modified_date": "2024-01-02 03:04:05",
	}), "products.json")

	require.Len(t, out.Rows, 1)
	p := out.Rows[0]
	assert.Equal(t, "Deluxe Lamp", *p.ProductName)
	assert.Equal(t, "bright", p.Description)
	assert.Equal(t, "Home Goods", p.Category)
	assert.Equal(t, "LUMEN", p.Brand)
	assert.Equal(t, "LUMEN", p.Manufacturer)
	assert.True(t, decimal.NewFromInt(1299).Equal(p.Price))
	assert.True(t, decimal.NewFromInt(700).Equal(p.Cost))
	assert.Equal(t, 2.5, *p.WeightKg)
	assert.Equal(t, 4.5, *p.Rating)
	assert.Equal(t, 30.0, *p.DimLengthCm)
	assert.Equal(t, 20.0, *p.DimWidthCm)
	assert.Equal(t, 10.0, *p.DimHeightCm)
	assert.Equal(t, "Warm White", p.Color)
	assert.Equal(t, "XL", p.Size)
	assert.Equal(t, int64(5), p.StockQuantity)
	assert.Equal(t, int64(2), p.ReorderLevel)
	assert.Equal(t, "SUP-1", p.SupplierID)
	assert.True(t, *p.IsActive)
	assert.True(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC).Equal(*p.ProductCreatedDate))
	assert.True(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Equal(*p.ProductLastUpdatedSource))
	assert.Nil(t, p.SourceItemIDInt)
}

func TestProductCleaner_NoIDs(t *testing.T) {
	cleaner := NewProductCleaner(testDeps(nil), DefaultProductAliases)

	out := cleaner.Run(context.Background(), productBatch(batch.Row{"name": "x"}), "p")
	assert.Empty(t, out.Rows)
	assert.Empty(t, out.Remap)
	assert.Equal(t, 1, out.Dropped)

	empty := cleaner.Run(context.Background(), batch.Empty("p"), "p")
	assert.Empty(t, empty.Rows)
}

func TestParseDimensions(t *testing.T) {
	n := normalize.New()
	l, w, h := ParseDimensions(n, "1x2xabc")
	assert.Equal(t, 1.0, *l)
	assert.Equal(t, 2.0, *w)
	assert.Nil(t, h)

	l, _, _ = ParseDimensions(n, nil)
	assert.Nil(t, l)
}
