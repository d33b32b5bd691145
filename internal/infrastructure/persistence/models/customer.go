package models

import (
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model of a canonical customer
type CustomerModel struct {
	RecordModel
	CustomerID             string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_customers_key,priority:1"`
	SourceFileName         string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_customers_key,priority:2;index"`
	IDIsPlaceholder        bool            `gorm:"column:id_is_placeholder;not null"`
	CustomerName           *string         `gorm:"type:varchar(255)"`
	Email                  *string         `gorm:"type:varchar(255)"`
	Phone                  *string         `gorm:"type:varchar(50)"`
	AddressStreet          *string         `gorm:"type:varchar(255)"`
	AddressCity            string          `gorm:"type:varchar(100)"`
	AddressState           string          `gorm:"type:varchar(100)"`
	AddressPostalCode      *string         `gorm:"type:varchar(20)"`
	RegistrationDate       *time.Time      `gorm:"type:date"`
	Status                 string          `gorm:"type:varchar(50)"`
	TotalOrders            int64           `gorm:"not null"`
	TotalSpent             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LoyaltyPoints          int64           `gorm:"not null"`
	PreferredPaymentMethod string          `gorm:"type:varchar(50)"`
	BirthDate              *time.Time      `gorm:"type:date"`
	Age                    *int64
	Gender                 string `gorm:"type:varchar(20)"`
	Segment                string `gorm:"type:varchar(50)"`
	SourceCustomerIDInt    *int64
	LastUpdatedPipeline    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return commerce.TableCustomers
}

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() commerce.Customer {
	return commerce.Customer{
		CustomerID:             m.CustomerID,
		IDIsPlaceholder:        m.IDIsPlaceholder,
		SourceFileName:         m.SourceFileName,
		CustomerName:           m.CustomerName,
		Email:                  m.Email,
		Phone:                  m.Phone,
		AddressStreet:          m.AddressStreet,
		AddressCity:            m.AddressCity,
		AddressState:           m.AddressState,
		AddressPostalCode:      m.AddressPostalCode,
		RegistrationDate:       m.RegistrationDate,
		Status:                 m.Status,
		TotalOrders:            m.TotalOrders,
		TotalSpent:             m.TotalSpent,
		LoyaltyPoints:          m.LoyaltyPoints,
		PreferredPaymentMethod: m.PreferredPaymentMethod,
		BirthDate:              m.BirthDate,
		Age:                    m.Age,
		Gender:                 m.Gender,
		Segment:                m.Segment,
		SourceCustomerIDInt:    m.SourceCustomerIDInt,
		LastUpdatedPipeline:    m.LastUpdatedPipeline,
	}
}

// FromDomain populates the model from a domain Customer
func (m *CustomerModel) FromDomain(c *commerce.Customer) {
	m.CustomerID = c.CustomerID
	m.IDIsPlaceholder = c.IDIsPlaceholder
	m.SourceFileName = c.SourceFileName
	m.CustomerName = c.CustomerName
	m.Email = c.Email
	m.Phone = c.Phone
	m.AddressStreet = c.AddressStreet
	m.AddressCity = c.AddressCity
	m.AddressState = c.AddressState
	m.AddressPostalCode = c.AddressPostalCode
	m.RegistrationDate = c.RegistrationDate
	m.Status = c.Status
	m.TotalOrders = c.TotalOrders
	m.TotalSpent = c.TotalSpent
	m.LoyaltyPoints = c.LoyaltyPoints
	m.PreferredPaymentMethod = c.PreferredPaymentMethod
	m.BirthDate = c.BirthDate
	m.Age = c.Age
	m.Gender = c.Gender
	m.Segment = c.Segment
	m.SourceCustomerIDInt = c.SourceCustomerIDInt
	m.LastUpdatedPipeline = c.LastUpdatedPipeline
}
