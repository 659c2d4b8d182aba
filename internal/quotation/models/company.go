// Package models defines the core domain models used by the quotation service:
// the collaborator records a quotation is assembled from (Company, Employee,
// Client, Item, HSNRate) and the Quotation itself.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultRefFormat is applied to companies created without a template.
	DefaultRefFormat = "QT-{YYYY}-{NUM}"
	// DefaultAccountType is the bank account type shown when none is set.
	DefaultAccountType = "Current Account"
)

// Company defines the issuing company of a quotation.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID
	// Name is the company’s name as printed on the letterhead.
	Name    string
	Email   string
	Phone   string
	Address string
	// GSTNumber and PANNumber are the tax identifiers printed on the letterhead.
	GSTNumber string
	PANNumber string
	// SealImagePath points at an image file relative to the assets directory.
	SealImagePath string
	BankName      string
	AccountNumber string
	IFSCCode      string
	AccountType   string
	// RefFormat is the reference template, e.g. "QT-{YYYY}-{NUM}".
	RefFormat string
	// LastQuoteNumber is the counter of the last allocated reference. It only grows.
	LastQuoteNumber int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Employee is the contact person named on a quotation.
type Employee struct {
	ID          uuid.UUID
	Name        string
	PhoneNumber string
	Email       string
}

// Client is the recipient of a quotation.
type Client struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Name         string
	BusinessName string
	Email        string
	Mobile       string
	Address      string
}

// Item is a catalog entry used to prefill quotation lines. The quotation
// core never mutates it.
type Item struct {
	ID            uuid.UUID
	CatalogueID   string
	Description   string
	PackSize      string
	CAS           string
	HSN           string
	UnitPrice     decimal.Decimal
	GSTPercentage decimal.Decimal
	Brand         string
}

// HSNRate maps an HSN code to its GST percentage.
type HSNRate struct {
	HSN           string
	GSTPercentage decimal.Decimal
}
