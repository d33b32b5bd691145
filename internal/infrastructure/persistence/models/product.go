package models

import (
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model of a canonical product
type ProductModel struct {
	RecordModel
	ProductID                string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_key,priority:1"`
	SourceFileName           string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_key,priority:2;index"`
	ProductName              *string         `gorm:"type:varchar(255)"`
	Description              string          `gorm:"type:text"`
	Category                 string          `gorm:"type:varchar(100)"`
	Brand                    string          `gorm:"type:varchar(100)"`
	Manufacturer             string          `gorm:"type:varchar(100)"`
	Price                    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Cost                     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	WeightKg                 *float64
	DimLengthCm              *float64
	DimWidthCm               *float64
	DimHeightCm              *float64
	Color                    string `gorm:"type:varchar(50)"`
	Size                     string `gorm:"type:varchar(50)"`
	StockQuantity            int64  `gorm:"not null"`
	ReorderLevel             int64  `gorm:"not null"`
	SupplierID               string `gorm:"type:varchar(100)"`
	IsActive                 *bool
	Rating                   *float64
	ProductCreatedDate       *time.Time `gorm:"type:date"`
	ProductLastUpdatedSource *time.Time
	SourceItemIDInt          *int64    `gorm:"index"`
	LastUpdatedPipeline      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return commerce.TableProducts
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() commerce.Product {
	return commerce.Product{
		ProductID:                m.ProductID,
		SourceFileName:           m.SourceFileName,
		ProductName:              m.ProductName,
		Description:              m.Description,
		Category:                 m.Category,
		Brand:                    m.Brand,
		Manufacturer:             m.Manufacturer,
		Price:                    m.Price,
		Cost:                     m.Cost,
		WeightKg:                 m.WeightKg,
		DimLengthCm:              m.DimLengthCm,
		DimWidthCm:               m.DimWidthCm,
		DimHeightCm:              m.DimHeightCm,
		Color:                    m.Color,
		Size:                     m.Size,
		StockQuantity:            m.StockQuantity,
		ReorderLevel:             m.ReorderLevel,
		SupplierID:               m.SupplierID,
		IsActive:                 m.IsActive,
		Rating:                   m.Rating,
		ProductCreatedDate:       m.ProductCreatedDate,
		ProductLastUpdatedSource: m.ProductLastUpdatedSource,
		SourceItemIDInt:          m.SourceItemIDInt,
		LastUpdatedPipeline:      m.LastUpdatedPipeline,
	}
}

// FromDomain populates the model from a domain Product
func (m *ProductModel) FromDomain(p *commerce.Product) {
	m.ProductID = p.ProductID
	m.SourceFileName = p.SourceFileName
	m.ProductName = p.ProductName
	m.Description = p.Description
	m.Category = p.Category
	m.Brand = p.Brand
	m.Manufacturer = p.Manufacturer
	m.Price = p.Price
	m.Cost = p.Cost
	m.WeightKg = p.WeightKg
	m.DimLengthCm = p.DimLengthCm
	m.DimWidthCm = p.DimWidthCm
	m.DimHeightCm = p.DimHeightCm
	m.Color = p.Color
	m.Size = p.Size
	m.StockQuantity = p.StockQuantity
	m.ReorderLevel = p.ReorderLevel
	m.SupplierID = p.SupplierID
	m.IsActive = p.IsActive
	m.Rating = p.Rating
	m.ProductCreatedDate = p.ProductCreatedDate
	m.ProductLastUpdatedSource = p.ProductLastUpdatedSource
	m.SourceItemIDInt = p.SourceItemIDInt
	m.LastUpdatedPipeline = p.LastUpdatedPipeline
}
