// Package models contains the persistence rows of the quotation service,
// mapped with GORM. Domain code works on internal/quotation/models; the db
// package converts between the two.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Company is the companies table. LastQuoteNumber is only written by
// reference allocation inside the quotation create transaction.
type Company struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"size:255;not null"`
	Email           string    `gorm:"size:255"`
	Phone           string    `gorm:"size:32"`
	Address         string    `gorm:"size:1000"`
	GSTNumber       string    `gorm:"column:gst_number;size:15"`
	PANNumber       string    `gorm:"column:pan_number;size:10"`
	SealImagePath   string    `gorm:"size:512"`
	BankName        string    `gorm:"size:255"`
	AccountNumber   string    `gorm:"size:34"`
	IFSCCode        string    `gorm:"column:ifsc_code;size:11"`
	AccountType     string    `gorm:"size:64"`
	RefFormat       string    `gorm:"size:64;not null"`
	LastQuoteNumber int       `gorm:"not null;default:0;check:last_quote_number >= 0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Employee is the employees table.
type Employee struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:255;not null"`
	PhoneNumber string    `gorm:"size:32"`
	Email       string    `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Client is the clients table.
type Client struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID `gorm:"type:uuid;index"`
	Name         string    `gorm:"size:255;not null"`
	BusinessName string    `gorm:"size:255"`
	Email        string    `gorm:"size:255"`
	Mobile       string    `gorm:"size:32"`
	Address      string    `gorm:"size:1000"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is the items catalog table.
type Item struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CatalogueID   string          `gorm:"size:64;index"`
	Description   string          `gorm:"size:1000;not null"`
	PackSize      string          `gorm:"size:64"`
	CAS           string          `gorm:"column:cas;size:32"`
	HSN           string          `gorm:"column:hsn;size:16"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	GSTPercentage decimal.Decimal `gorm:"column:gst_percentage;type:numeric(5,2);not null"`
	Brand         string          `gorm:"size:128"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HSNRate is the hsn_rates lookup table.
type HSNRate struct {
	HSN           string          `gorm:"column:hsn;size:16;primaryKey"`
	GSTPercentage decimal.Decimal `gorm:"column:gst_percentage;type:numeric(5,2);not null"`
}
