// Package commerce defines the unified e-commerce model produced by the pipeline.
package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the canonical customer record of one source batch
type Customer struct {
	CustomerID             string `validate:"required"`
	IDIsPlaceholder        bool
	SourceFileName         string `validate:"required"`
	CustomerName           *string
	Email                  *string
	Phone                  *string
	AddressStreet          *string
	AddressCity            string `validate:"required"`
	AddressState           string `validate:"required"`
	AddressPostalCode      *string
	RegistrationDate       *time.Time
	Status                 string `validate:"required"`
	TotalOrders            int64
	TotalSpent             decimal.Decimal
	LoyaltyPoints          int64
	PreferredPaymentMethod string `validate:"required"`
	BirthDate              *time.Time
	Age                    *int64
	Gender                 string `validate:"required"`
	Segment                string `validate:"required"`
	SourceCustomerIDInt    *int64
	LastUpdatedPipeline    time.Time `validate:"required"`
}

// HasEmail reports whether the customer carries a non-empty email
func (c *Customer) HasEmail() bool {
	return c.Email != nil && *c.Email != ""
}

// CustomerColumns is the fixed output column order of the customer table
var CustomerColumns = []string{
	"customer_id", "source_file_name", "customer_name", "email", "phone",
	"address_street", "address_city", "address_state", "address_postal_code",
	"registration_date", "status", "total_orders", "total_spent",
	"loyalty_points", "preferred_payment_method", "birth_date", "age", "gender",
	"segment", "source_customer_id_int", "last_updated_pipeline",
}
