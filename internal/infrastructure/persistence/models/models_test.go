package models

import (
	"testing"
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func i64Ptr(n int64) *int64 { return &n }

func TestTableNames(t *testing.T) {
	assert.Equal(t, "customers", CustomerModel{}.TableName())
	assert.Equal(t, "products", ProductModel{}.TableName())
	assert.Equal(t, "orders", OrderModel{}.TableName())
	assert.Equal(t, "order_items", OrderItemModel{}.TableName())
	assert.Equal(t, "source_file_registry", SourceFileModel{}.TableName())
	assert.Len(t, All(), 5)
}

func TestCustomerModel_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := commerce.Customer{
		CustomerID:          "CUST_0007",
		IDIsPlaceholder:     false,
		SourceFileName:      "customers.json",
		Email:               strPtr("a@b.c"),
		AddressCity:         "Sao Paulo",
		AddressState:        "SP",
		Status:              "ACTIVE",
		TotalSpent:          decimal.RequireFromString("12.50"),
		Gender:              "F",
		Segment:             "UNKNOWN",
		SourceCustomerIDInt: i64Ptr(7),
		LastUpdatedPipeline: now,
	}
	var m CustomerModel
	m.FromDomain(&c)
	assert.Equal(t, "CUST_0007", m.CustomerID)
	assert.Equal(t, c, m.ToDomain())
}

func TestOrderModel_RenamedTotals(t *testing.T) {
	o := commerce.Order{
		OrderID:         "O-1",
		TotalValueGross: decimal.NewFromInt(25),
		TotalValueNet:   decimal.NewFromInt(24),
	}
	var m OrderModel
	m.FromDomain(&o)
	assert.True(t, m.OrderTotalValueGross.Equal(decimal.NewFromInt(25)))
	assert.True(t, m.OrderTotalValueNet.Equal(decimal.NewFromInt(24)))
	assert.True(t, m.ToDomain().TotalValueNet.Equal(decimal.NewFromInt(24)))
}

func TestOrderItemModel_DropsTransientFields(t *testing.T) {
	status := "DELIVERED"
	i := commerce.OrderItem{
		OrderID:                "O-1",
		ProductID:              "P001",
		LineTotal:              decimal.NewFromInt(10),
		OriginalLineIdentifier: "O-1_UNSTR_P001_1_0",
		Status:                 &status,
	}
	var m OrderItemModel
	m.FromDomain(&i)
	assert.True(t, m.LineItemTotalValue.Equal(decimal.NewFromInt(10)))

	back := m.ToDomain()
	assert.Nil(t, back.Status)
	assert.Equal(t, i.OriginalLineIdentifier, back.OriginalLineIdentifier)
}

func TestSourceFileModel_RoundTrip(t *testing.T) {
	entity := commerce.EntityProduct
	batch := uuid.New()
	f := &commerce.SourceFile{
		ID:               3,
		FileName:         "products.json",
		FilePath:         "/data/products.json",
		ProcessingStatus: commerce.StatusProcessed,
		EntityTypeGuess:  &entity,
		ETLBatchID:       &batch,
	}
	var m SourceFileModel
	m.FromDomain(f)
	require.NotNil(t, m.EntityTypeGuess)
	assert.Equal(t, "product", *m.EntityTypeGuess)
	assert.Equal(t, batch.String(), *m.ETLBatchID)
	assert.Equal(t, f, m.ToDomain())
}

func TestSourceFileModel_MalformedBatchID(t *testing.T) {
	m := SourceFileModel{FileID: 1, ETLBatchID: strPtr("not-a-uuid")}
	assert.Nil(t, m.ToDomain().ETLBatchID)
}
