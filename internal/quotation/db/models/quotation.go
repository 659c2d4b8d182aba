package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quotation is the quotations table. Reference numbers are unique per company.
type Quotation struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_quotations_company_ref,priority:1"`
	EmployeeID            uuid.UUID       `gorm:"type:uuid;not null"`
	ClientID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferenceNumber       string          `gorm:"size:64;not null;uniqueIndex:idx_quotations_company_ref,priority:2"`
	Date                  time.Time       `gorm:"not null;index"`
	PaymentTerms          string          `gorm:"size:32;not null"`
	SubTotal              decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	TotalGST              decimal.Decimal `gorm:"column:total_gst;type:numeric(18,2);not null"`
	GrandTotal            decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	GeneratedDocumentPath string          `gorm:"size:512"`
	Lines                 []QuotationLine `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE"`
	Company               *Company        `gorm:"foreignKey:CompanyID"`
	Client                *Client         `gorm:"foreignKey:ClientID"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// QuotationLine is the quotation_lines table, owned by a Quotation.
type QuotationLine struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuotationID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position           int             `gorm:"not null"`
	ItemID             *uuid.UUID      `gorm:"type:uuid"`
	CatalogueID        string          `gorm:"size:64"`
	Description        string          `gorm:"size:1000;not null"`
	PackSize           string          `gorm:"size:64"`
	Quantity           int             `gorm:"not null;check:quantity >= 1"`
	HSN                string          `gorm:"column:hsn;size:16"`
	UnitRate           decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	DiscountRate       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	ExpandedRate       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	GSTPercentage      decimal.Decimal `gorm:"column:gst_percentage;type:numeric(5,2);not null"`
	GSTValue           decimal.Decimal `gorm:"column:gst_value;type:numeric(18,2);not null"`
	LineTotal          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	LeadTime           string          `gorm:"size:64"`
	Brand              string          `gorm:"size:128"`
}

// All lists every row type for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&Company{},
		&Employee{},
		&Client{},
		&Item{},
		&HSNRate{},
		&Quotation{},
		&QuotationLine{},
	}
}
