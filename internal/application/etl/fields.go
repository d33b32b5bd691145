package etl

import (
	"sort"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/normalize"
)

// Field is one logical target field and the source columns it may come from,
// in precedence order
type Field struct {
	Target  string
	Aliases []string
}

// F builds a Field
func F(target string, aliases ...string) Field {
	return Field{Target: target, Aliases: aliases}
}

// Extract returns the value of the first alias that is not empty-like
func (f Field) Extract(row batch.Row) any {
	for _, a := range f.Aliases {
		if v := row.Get(a); !normalize.IsEmptyLike(v) {
			return v
		}
	}
	return nil
}

// Values returns the raw value of every alias, in order
func (f Field) Values(row batch.Row) []any {
	out := make([]any, len(f.Aliases))
	for i, a := range f.Aliases {
		out[i] = row.Get(a)
	}
	return out
}

// PresentIn reports whether any alias is a column of the batch
func (f Field) PresentIn(columns map[string]struct{}) bool {
	for _, a := range f.Aliases {
		if _, ok := columns[a]; ok {
			return true
		}
	}
	return false
}

// ColumnReport is the outcome of matching a batch's columns against the known aliases
type ColumnReport struct {
	// MissingTargets are target fields with no alias column in the batch
	MissingTargets []string
	// UnknownColumns are batch columns no field reads
	UnknownColumns []string
}

// Inspect matches columns against fields
func Inspect(columns []string, fields []Field) ColumnReport {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	known := make(map[string]struct{})
	var report ColumnReport
	seenTarget := make(map[string]struct{})
	for _, f := range fields {
		for _, a := range f.Aliases {
			known[a] = struct{}{}
		}
		if _, dup := seenTarget[f.Target]; dup {
			continue
		}
		seenTarget[f.Target] = struct{}{}
		if !f.PresentIn(present) {
			report.MissingTargets = append(report.MissingTargets, f.Target)
		}
	}
	for _, c := range columns {
		if _, ok := known[c]; !ok {
			report.UnknownColumns = append(report.UnknownColumns, c)
		}
	}
	sort.Strings(report.UnknownColumns)
	return report
}

// CustomerAliases lists the source columns of every customer field
type CustomerAliases struct {
	ID, NumericID                       Field
	Name, Email, Phone                  Field
	Street, City, State, PostalCode     Field
	RegistrationDate, BirthDate         Field
	Status, TotalSpent, TotalOrders     Field
	LoyaltyPoints, Age, Gender, Segment Field
	PreferredPayment                    Field
}

// DefaultCustomerAliases are the column spellings of the known customer exports
var DefaultCustomerAliases = CustomerAliases{
	ID:               F("customer_id", "cust_id", "customerID", "client_id", "id", "user_id"),
	NumericID:        F("source_customer_id_int", "customer_id", "CustomerID_numeric", "id"),
	Name:             F("customer_name", "customer_name", "full_name", "name"),
	Email:            F("email", "email", "e-mail", "email_address", "user_email"),
	Phone:            F("phone", "phone_number", "mobile", "phone", "contact_number"),
	Street:           F("address_street", "address", "street_address", "address1"),
	City:             F("address_city", "city", "town"),
	State:            F("address_state", "state", "province"),
	PostalCode:       F("address_postal_code", "postal_code", "zip_code", "zip", "postcode"),
	RegistrationDate: F("registration_date", "registration_date", "reg_date", "created_at"),
	BirthDate:        F("birth_date", "birth_date", "dob"),
	Status:           F("status", "customer_status", "account_status", "status"),
	TotalSpent:       F("total_spent", "total_spent", "total_expenditure"),
	TotalOrders:      F("total_orders", "total_orders", "order_count"),
	LoyaltyPoints:    F("loyalty_points", "loyalty_points", "points"),
	Age:              F("age", "age"),
	Gender:           F("gender", "gender", "sex"),
	Segment:          F("segment", "segment", "customer_segment", "tier"),
	PreferredPayment: F("preferred_payment_method", "preferred_payment", "payment_method"),
}

// Fields returns every customer field
func (a CustomerAliases) Fields() []Field {
	return []Field{
		a.ID, a.NumericID, a.Name, a.Email, a.Phone, a.Street, a.City, a.State,
		a.PostalCode, a.RegistrationDate, a.BirthDate, a.Status, a.TotalSpent,
		a.TotalOrders, a.LoyaltyPoints, a.Age, a.Gender, a.Segment, a.PreferredPayment,
	}
}

// ProductAliases lists the source columns of every product field
type ProductAliases struct {
	SourceItemID, ID, Name, Description, Category Field
	Brand, Manufacturer, Price, Cost, Weight      Field
	Rating, Dimensions, Color, Size, Stock        Field
	ReorderLevel, SupplierID, IsActive            Field
	CreatedDate, LastUpdated                      Field
}

// DefaultProductAliases are the column spellings of the known product exports
var DefaultProductAliases = ProductAliases{
	SourceItemID: F("source_item_id_int", "item_id", "id"),
	ID:           F("product_id", "product_id", "productid", "item_code", "product_code"),
	Name:         F("product_name", "product_name", "item_name", "name", "title", "prd_name"),
	Description:  F("description", "description", "desc", "details", "product_description"),
	Category:     F("category", "category", "product_category", "type", "genre", "producttype"),
	Brand:        F("brand", "brand", "manufacturer"),
	Manufacturer: F("manufacturer", "manufacturer", "brand"),
	Price:        F("price", "price", "unit_price", "sale_price", "list_price", "prd_price"),
	Cost:         F("cost", "cost", "unit_cost", "purchase_price"),
	Weight:       F("weight_kg", "weight"),
	Rating:       F("rating", "rating", "customer_rating"),
	Dimensions:   F("dimensions", "dimensions"),
	Color:        F("color", "color"),
	Size:         F("size", "size"),
	Stock:        F("stock_quantity", "stock_quantity", "stock_level", "qty_on_hand"),
	ReorderLevel: F("reorder_level", "reorder_level"),
	SupplierID:   F("supplier_id", "supplier_id"),
	IsActive:     F("is_active", "is_active", "active"),
	CreatedDate:  F("product_created_date", "created_date", "date_added"),
	LastUpdated:  F("product_last_updated_source", "last_updated", "modified_date"),
}

// Fields returns every product field
func (a ProductAliases) Fields() []Field {
	return []Field{
		a.SourceItemID, a.ID, a.Name, a.Description, a.Category, a.Brand,
		a.Manufacturer, a.Price, a.Cost, a.Weight, a.Rating, a.Dimensions,
		a.Color, a.Size, a.Stock, a.ReorderLevel, a.SupplierID, a.IsActive,
		a.CreatedDate, a.LastUpdated,
	}
}
