package models

import (
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model of an aggregated order
type OrderModel struct {
	RecordModel
	OrderID              string `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_key,priority:1"`
	SourceFileName       string `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_key,priority:2;index"`
	CustomerID           string `gorm:"type:varchar(100);not null;index"`
	OrderDate            *time.Time
	OrderStatus          string          `gorm:"type:varchar(50)"`
	PaymentMethod        string          `gorm:"type:varchar(50)"`
	PaymentStatus        string          `gorm:"type:varchar(50)"`
	DeliveryStatus       string          `gorm:"type:varchar(50)"`
	ShippingAddressFull  *string         `gorm:"type:text"`
	ShippingCostTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxTotal             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderTotalValueGross decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderTotalValueNet   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountPaidTotal      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TrackingNumber       *string         `gorm:"type:varchar(100)"`
	Notes                *string         `gorm:"type:text"`
	SourceOrderIDInt     *int64
	LastUpdatedPipeline  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return commerce.TableOrders
}

// ToDomain converts the model to a domain Order
func (m *OrderModel) ToDomain() commerce.Order {
	return commerce.Order{
		OrderID:             m.OrderID,
		CustomerID:          m.CustomerID,
		SourceFileName:      m.SourceFileName,
		OrderDate:           m.OrderDate,
		OrderStatus:         m.OrderStatus,
		PaymentMethod:       m.PaymentMethod,
		PaymentStatus:       m.PaymentStatus,
		DeliveryStatus:      m.DeliveryStatus,
		ShippingAddressFull: m.ShippingAddressFull,
		ShippingCostTotal:   m.ShippingCostTotal,
		TaxTotal:            m.TaxTotal,
		DiscountTotal:       m.DiscountTotal,
		TotalValueGross:     m.OrderTotalValueGross,
		TotalValueNet:       m.OrderTotalValueNet,
		AmountPaidTotal:     m.AmountPaidTotal,
		TrackingNumber:      m.TrackingNumber,
		Notes:               m.Notes,
		SourceOrderIDInt:    m.SourceOrderIDInt,
		LastUpdatedPipeline: m.LastUpdatedPipeline,
	}
}

// FromDomain populates the model from a domain Order
func (m *OrderModel) FromDomain(o *commerce.Order) {
	m.OrderID = o.OrderID
	m.CustomerID = o.CustomerID
	m.SourceFileName = o.SourceFileName
	m.OrderDate = o.OrderDate
	m.OrderStatus = o.OrderStatus
	m.PaymentMethod = o.PaymentMethod
	m.PaymentStatus = o.PaymentStatus
	m.DeliveryStatus = o.DeliveryStatus
	m.ShippingAddressFull = o.ShippingAddressFull
	m.ShippingCostTotal = o.ShippingCostTotal
	m.TaxTotal = o.TaxTotal
	m.DiscountTotal = o.DiscountTotal
	m.OrderTotalValueGross = o.TotalValueGross
	m.OrderTotalValueNet = o.TotalValueNet
	m.AmountPaidTotal = o.AmountPaidTotal
	m.TrackingNumber = o.TrackingNumber
	m.Notes = o.Notes
	m.SourceOrderIDInt = o.SourceOrderIDInt
	m.LastUpdatedPipeline = o.LastUpdatedPipeline
}

// OrderItemModel is the persistence model of a resolved order line
type OrderItemModel struct {
	RecordModel
	OrderID                string          `gorm:"type:varchar(255);not null;index"`
	ProductID              string          `gorm:"type:varchar(100);not null;index"`
	CustomerID             string          `gorm:"type:varchar(100);not null"`
	SourceFileName         string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_order_items_key,priority:2;index"`
	Quantity               int64           `gorm:"not null"`
	UnitPrice              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineItemTotalValue     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineItemDiscount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineItemTax            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineItemShippingFee    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalLineIdentifier string          `gorm:"type:varchar(512);not null;uniqueIndex:idx_order_items_key,priority:1"`
	LastUpdatedPipeline    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return commerce.TableOrderItems
}

// ToDomain converts the model to a domain OrderItem. Aggregation-only fields stay empty.
func (m *OrderItemModel) ToDomain() commerce.OrderItem {
	return commerce.OrderItem{
		OrderID:                m.OrderID,
		ProductID:              m.ProductID,
		CustomerID:             m.CustomerID,
		SourceFileName:         m.SourceFileName,
		Quantity:               m.Quantity,
		UnitPrice:              m.UnitPrice,
		LineTotal:              m.LineItemTotalValue,
		LineDiscount:           m.LineItemDiscount,
		LineTax:                m.LineItemTax,
		LineShippingFee:        m.LineItemShippingFee,
		OriginalLineIdentifier: m.OriginalLineIdentifier,
		LastUpdatedPipeline:    m.LastUpdatedPipeline,
	}
}

// FromDomain populates the model from a domain OrderItem
func (m *OrderItemModel) FromDomain(i *commerce.OrderItem) {
	m.OrderID = i.OrderID
	m.ProductID = i.ProductID
	m.CustomerID = i.CustomerID
	m.SourceFileName = i.SourceFileName
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.LineItemTotalValue = i.LineTotal
	m.LineItemDiscount = i.LineDiscount
	m.LineItemTax = i.LineTax
	m.LineItemShippingFee = i.LineShippingFee
	m.OriginalLineIdentifier = i.OriginalLineIdentifier
	m.LastUpdatedPipeline = i.LastUpdatedPipeline
}
