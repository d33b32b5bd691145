package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDescription fills products without a description
const DefaultDescription = "No description available"

// DefaultSize fills products without a size
const DefaultSize = "N/A"

// Product is the canonical catalog record of one source batch
type Product struct {
	ProductID                string `validate:"required"`
	SourceFileName           string `validate:"required"`
	ProductName              *string
	Description              string `validate:"required"`
	Category                 string `validate:"required"`
	Brand                    string `validate:"required"`
	Manufacturer             string `validate:"required"`
	Price                    decimal.Decimal
	Cost                     decimal.Decimal
	WeightKg                 *float64
	DimLengthCm              *float64
	DimWidthCm               *float64
	DimHeightCm              *float64
	Color                    string `validate:"required"`
	Size                     string `validate:"required"`
	StockQuantity            int64
	ReorderLevel             int64
	SupplierID               string `validate:"required"`
	IsActive                 *bool
	Rating                   *float64
	ProductCreatedDate       *time.Time
	ProductLastUpdatedSource *time.Time
	SourceItemIDInt          *int64
	LastUpdatedPipeline      time.Time `validate:"required"`
}

// ProductColumns is the fixed output column order of the product table
var ProductColumns = []string{
	"product_id", "source_file_name", "product_name", "description", "category", "brand", "manufacturer",
	"price", "cost", "weight_kg", "dim_length_cm", "dim_width_cm", "dim_height_cm",
	"color", "size", "stock_quantity", "reorder_level", "supplier_id", "is_active",
	"rating", "product_created_date", "product_last_updated_source", "source_item_id_int", "last_updated_pipeline",
}
