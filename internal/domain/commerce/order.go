package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one resolved transaction line.
// Fields after OriginalLineIdentifier feed order aggregation and are not stored on the item.
type OrderItem struct {
	OrderID                string `validate:"required"`
	ProductID              string `validate:"required"`
	CustomerID             string `validate:"required"`
	SourceFileName         string `validate:"required"`
	Quantity               int64
	UnitPrice              decimal.Decimal
	LineTotal              decimal.Decimal
	LineDiscount           decimal.Decimal
	LineTax                decimal.Decimal
	LineShippingFee        decimal.Decimal
	OriginalLineIdentifier string    `validate:"required"`
	LastUpdatedPipeline    time.Time `validate:"required"`

	OrderDate       *time.Time
	Status          *string
	PaymentStatus   *string
	DeliveryStatus  *string
	PaymentMethod   *string
	ShippingAddress *string
	Notes           *string
	TrackingNumber  *string
	AmountPaid      decimal.Decimal
	SourceOrderID   *int64
}

// Order is derived from its constituent items
type Order struct {
	OrderID             string `validate:"required"`
	CustomerID          string `validate:"required"`
	SourceFileName      string `validate:"required"`
	OrderDate           *time.Time
	OrderStatus         string `validate:"required"`
	PaymentMethod       string `validate:"required"`
	PaymentStatus       string `validate:"required"`
	DeliveryStatus      string `validate:"required"`
	ShippingAddressFull *string
	ShippingCostTotal   decimal.Decimal
	TaxTotal            decimal.Decimal
	DiscountTotal       decimal.Decimal
	TotalValueGross     decimal.Decimal
	TotalValueNet       decimal.Decimal
	AmountPaidTotal     decimal.Decimal
	TrackingNumber      *string
	Notes               *string
	SourceOrderIDInt    *int64
	LastUpdatedPipeline time.Time `validate:"required"`
}

// OrderColumns is the stored column order of the order table
var OrderColumns = []string{
	"order_id", "customer_id", "source_file_name", "order_date", "order_status", "payment_method",
	"payment_status", "delivery_status", "shipping_address_full", "shipping_cost_total", "tax_total",
	"discount_total", "order_total_value_gross", "order_total_value_net", "amount_paid_total",
	"tracking_number", "notes", "source_order_id_int", "last_updated_pipeline",
}

// OrderItemColumns is the stored column order of the order item table
var OrderItemColumns = []string{
	"order_id", "product_id", "customer_id", "source_file_name", "quantity", "unit_price",
	"line_item_total_value", "line_item_discount", "line_item_tax", "line_item_shipping_fee",
	"original_line_identifier", "last_updated_pipeline",
}
