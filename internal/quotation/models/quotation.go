package models

import (
	"time"

	"github.com/gartstein/quotation/internal/quotation/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentTerm is one of the fixed payment options a quotation can carry.
type PaymentTerm string

const (
	PaymentAdvanceFull     PaymentTerm = "ADVANCE_100"
	PaymentAdvanceHalf     PaymentTerm = "ADVANCE_50"
	PaymentNet30           PaymentTerm = "NET_30"
	PaymentAgainstDelivery PaymentTerm = "AGAINST_DELIVERY"
)

var paymentTermText = map[PaymentTerm]string{
	PaymentAdvanceFull:     "100% advance along with purchase order",
	PaymentAdvanceHalf:     "50% advance with purchase order, balance before dispatch",
	PaymentNet30:           "100% within 30 days from the date of delivery",
	PaymentAgainstDelivery: "100% against delivery",
}

// Valid reports whether p is one of the enumerated payment terms.
func (p PaymentTerm) Valid() bool {
	_, ok := paymentTermText[p]
	return ok
}

// Text returns the verbatim wording printed on the document.
func (p PaymentTerm) Text() string {
	return paymentTermText[p]
}

// PaymentTerms lists the enumerated options in display order.
func PaymentTerms() []PaymentTerm {
	return []PaymentTerm{PaymentAdvanceFull, PaymentAdvanceHalf, PaymentNet30, PaymentAgainstDelivery}
}

var fixedTerms = []string{
	"Prices are ex-works.",
	"GST extra as applicable at the time of dispatch.",
	"This quotation is valid for 30 days from the date of issue.",
	"Delivery is subject to stock availability at the time of order confirmation.",
	"Freight and insurance are extra unless otherwise stated.",
	"All disputes are subject to local jurisdiction only.",
}

// FixedTerms returns the standard clauses printed on every quotation. They
// are not stored and cannot be edited.
func FixedTerms() []string {
	out := make([]string, len(fixedTerms))
	copy(out, fixedTerms)
	return out
}

// QuotationLine is a priced line. Derived amounts are always produced by
// NewQuotationLine and never set on their own.
type QuotationLine struct {
	ID       uuid.UUID
	Position int
	// ItemID is nil for freehand lines.
	ItemID             *uuid.UUID
	CatalogueID        string
	Description        string
	PackSize           string
	Quantity           int
	HSN                string
	UnitRate           decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountRate       decimal.Decimal
	ExpandedRate       decimal.Decimal
	GSTPercentage      decimal.Decimal
	GSTValue           decimal.Decimal
	LineTotal          decimal.Decimal
	LeadTime           string
	Brand              string
}

// LineDetails holds the descriptive and pricing inputs of a line.
type LineDetails struct {
	ItemID             *uuid.UUID
	CatalogueID        string
	Description        string
	PackSize           string
	Quantity           int
	HSN                string
	UnitRate           decimal.Decimal
	DiscountPercentage decimal.Decimal
	GSTPercentage      decimal.Decimal
	LeadTime           string
	Brand              string
}

// PricingInput returns the calculator inputs of the line.
func (d LineDetails) PricingInput() pricing.Line {
	return pricing.Line{
		UnitRate:           d.UnitRate,
		Quantity:           d.Quantity,
		DiscountPercentage: d.DiscountPercentage,
		GSTPercentage:      d.GSTPercentage,
	}
}

// NewQuotationLine builds a line from details and unrounded amounts,
// rounding the stored amounts.
func NewQuotationLine(position int, d LineDetails, a pricing.Amounts) QuotationLine {
	r := a.Rounded()
	return QuotationLine{
		Position:           position,
		ItemID:             d.ItemID,
		CatalogueID:        d.CatalogueID,
		Description:        d.Description,
		PackSize:           d.PackSize,
		Quantity:           d.Quantity,
		HSN:                d.HSN,
		UnitRate:           d.UnitRate,
		DiscountPercentage: d.DiscountPercentage,
		DiscountRate:       r.DiscountRate,
		ExpandedRate:       r.ExpandedRate,
		GSTPercentage:      d.GSTPercentage,
		GSTValue:           r.GSTValue,
		LineTotal:          r.LineTotal,
		LeadTime:           d.LeadTime,
		Brand:              d.Brand,
	}
}

// Quotation is a persisted quotation with its ordered lines.
type Quotation struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	EmployeeID      uuid.UUID
	ClientID        uuid.UUID
	ReferenceNumber string
	// Date is the creation time and never changes.
	Date                  time.Time
	Lines                 []QuotationLine
	PaymentTerms          PaymentTerm
	SubTotal              decimal.Decimal
	TotalGST              decimal.Decimal
	GrandTotal            decimal.Decimal
	GeneratedDocumentPath string
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Display names of the company and client, filled on reads.
	CompanyName string
	ClientName  string
}

// FixedTerms returns the standard clauses attached to every quotation.
func (q *Quotation) FixedTerms() []string {
	return FixedTerms()
}

// QuotationHeader is the caller-supplied part of a new quotation.
type QuotationHeader struct {
	CompanyID    uuid.UUID
	EmployeeID   uuid.UUID
	ClientID     uuid.UUID
	PaymentTerms PaymentTerm
	Date         time.Time
}

// NewQuotation is a fully priced quotation ready to be persisted. The
// repository allocates its reference number and reprices the lines, so
// stored amounts and Totals always follow the line inputs.
type NewQuotation struct {
	Header QuotationHeader
	Lines  []QuotationLine
	Totals pricing.Totals
}

// QuotationFilter narrows ListQuotations. Set fields are ANDed.
type QuotationFilter struct {
	CompanyID *uuid.UUID
	ClientID  *uuid.UUID
}

// QuotationDocument bundles a quotation with every record the renderer needs.
type QuotationDocument struct {
	Quotation *Quotation
	Company   *Company
	Employee  *Employee
	Client    *Client
	// Items is keyed by item id for lines that reference the catalog.
	Items map[uuid.UUID]*Item
	// Seal is the raw seal image, empty when the company has none.
	Seal []byte
}
