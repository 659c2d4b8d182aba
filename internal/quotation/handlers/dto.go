package handlers

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gartstein/quotation/internal/quotation/controller"
	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type createQuotationRequest struct {
	CompanyID    string        `json:"company_id" validate:"required,uuid"`
	EmployeeID   string        `json:"employee_id" validate:"required,uuid"`
	ClientID     string        `json:"client_id" validate:"required,uuid"`
	PaymentTerms string        `json:"payment_terms" validate:"required,payment_term"`
	Items        []lineRequest `json:"items" validate:"required,min=1,dive"`
}

type lineRequest struct {
	ItemID             *string          `json:"item_id" validate:"omitempty,uuid"`
	CatalogueID        string           `json:"catalogue_id" validate:"max=100"`
	Description        string           `json:"description" validate:"required_without=ItemID"`
	PackSize           string           `json:"pack_size" validate:"max=100"`
	Quantity           int              `json:"quantity" validate:"gte=1"`
	HSN                string           `json:"hsn" validate:"omitempty,max=20"`
	UnitRate           *decimal.Decimal `json:"unit_rate"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	GSTPercentage      *decimal.Decimal `json:"gst_percentage"`
	LeadTime           string           `json:"lead_time" validate:"max=100"`
	Brand              string           `json:"brand" validate:"max=100"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("payment_term", func(fl validator.FieldLevel) bool {
		return models.PaymentTerm(fl.Field().String()).Valid()
	})
	return v
}

// validationError turns validator output into a single ErrValidation naming
// each offending field.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", e.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldPath(fe)+" "+fieldReason(fe))
	}
	return fmt.Errorf("%w: %s", e.ErrValidation, strings.Join(msgs, "; "))
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " entry"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "payment_term":
		terms := make([]string, 0, 4)
		for _, p := range models.PaymentTerms() {
			terms = append(terms, string(p))
		}
		return "must be one of " + strings.Join(terms, ", ")
	default:
		return "is invalid"
	}
}

// toInput converts a validated request. UUIDs were checked by the validator.
func (req *createQuotationRequest) toInput() *controller.CreateQuotationInput {
	in := &controller.CreateQuotationInput{
		CompanyID:    uuid.MustParse(req.CompanyID),
		EmployeeID:   uuid.MustParse(req.EmployeeID),
		ClientID:     uuid.MustParse(req.ClientID),
		PaymentTerms: models.PaymentTerm(req.PaymentTerms),
		Lines:        make([]controller.LineInput, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		line := controller.LineInput{
			CatalogueID:        strings.TrimSpace(it.CatalogueID),
			Description:        strings.TrimSpace(it.Description),
			PackSize:           strings.TrimSpace(it.PackSize),
			Quantity:           it.Quantity,
			HSN:                strings.TrimSpace(it.HSN),
			UnitRate:           it.UnitRate,
			DiscountPercentage: it.DiscountPercentage,
			GSTPercentage:      it.GSTPercentage,
			LeadTime:           strings.TrimSpace(it.LeadTime),
			Brand:              strings.TrimSpace(it.Brand),
		}
		if it.ItemID != nil {
			id := uuid.MustParse(*it.ItemID)
			line.ItemID = &id
		}
		in.Lines = append(in.Lines, line)
	}
	return in
}

type lineResponse struct {
	Position           int     `json:"position"`
	ItemID             *string `json:"item_id,omitempty"`
	CatalogueID        string  `json:"catalogue_id"`
	Description        string  `json:"description"`
	PackSize           string  `json:"pack_size"`
	Quantity           int     `json:"quantity"`
	HSN                string  `json:"hsn"`
	UnitRate           string  `json:"unit_rate"`
	DiscountPercentage string  `json:"discount_percentage"`
	DiscountRate       string  `json:"discount_rate"`
	ExpandedRate       string  `json:"expanded_rate"`
	GSTPercentage      string  `json:"gst_percentage"`
	GSTValue           string  `json:"gst_value"`
	Total              string  `json:"total"`
	LeadTime           string  `json:"lead_time"`
	Brand              string  `json:"brand"`
}

type quotationResponse struct {
	ID                    string         `json:"id"`
	ReferenceNumber       string         `json:"reference_number"`
	CompanyID             string         `json:"company_id"`
	CompanyName           string         `json:"company_name,omitempty"`
	EmployeeID            string         `json:"employee_id"`
	ClientID              string         `json:"client_id"`
	ClientName            string         `json:"client_name,omitempty"`
	Date                  string         `json:"date"`
	PaymentTerms          string         `json:"payment_terms"`
	PaymentTermsText      string         `json:"payment_terms_text"`
	Items                 []lineResponse `json:"items,omitempty"`
	SubTotal              string         `json:"sub_total"`
	TotalGST              string         `json:"total_gst"`
	GrandTotal            string         `json:"grand_total"`
	GeneratedDocumentPath string         `json:"generated_document_path,omitempty"`
}

// toQuotationResponse renders q for the API. Summaries leave out the lines.
func toQuotationResponse(q *models.Quotation, withLines bool) quotationResponse {
	resp := quotationResponse{
		ID:                    q.ID.String(),
		ReferenceNumber:       q.ReferenceNumber,
		CompanyID:             q.CompanyID.String(),
		CompanyName:           q.CompanyName,
		EmployeeID:            q.EmployeeID.String(),
		ClientID:              q.ClientID.String(),
		ClientName:            q.ClientName,
		Date:                  q.Date.Format(time.RFC3339),
		PaymentTerms:          string(q.PaymentTerms),
		PaymentTermsText:      q.PaymentTerms.Text(),
		SubTotal:              q.SubTotal.StringFixed(2),
		TotalGST:              q.TotalGST.StringFixed(2),
		GrandTotal:            q.GrandTotal.StringFixed(2),
		GeneratedDocumentPath: q.GeneratedDocumentPath,
	}
	if !withLines {
		return resp
	}
	resp.Items = make([]lineResponse, 0, len(q.Lines))
	for _, l := range q.Lines {
		lr := lineResponse{
			Position:           l.Position,
			CatalogueID:        l.CatalogueID,
			Description:        l.Description,
			PackSize:           l.PackSize,
			Quantity:           l.Quantity,
			HSN:                l.HSN,
			UnitRate:           l.UnitRate.StringFixed(2),
			DiscountPercentage: l.DiscountPercentage.String(),
			DiscountRate:       l.DiscountRate.StringFixed(2),
			ExpandedRate:       l.ExpandedRate.StringFixed(2),
			GSTPercentage:      l.GSTPercentage.String(),
			GSTValue:           l.GSTValue.StringFixed(2),
			Total:              l.LineTotal.StringFixed(2),
			LeadTime:           l.LeadTime,
			Brand:              l.Brand,
		}
		if l.ItemID != nil {
			id := l.ItemID.String()
			lr.ItemID = &id
		}
		resp.Items = append(resp.Items, lr)
	}
	return resp
}

type companyResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	GSTNumber       string `json:"gst_number"`
	PANNumber       string `json:"pan_number"`
	BankName        string `json:"bank_name"`
	AccountNumber   string `json:"account_number"`
	IFSCCode        string `json:"ifsc_code"`
	AccountType     string `json:"account_type"`
	RefFormat       string `json:"ref_format"`
	LastQuoteNumber int    `json:"last_quote_number"`
}

func toCompanyResponse(c *models.Company) companyResponse {
	return companyResponse{
		ID:              c.ID.String(),
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		Address:         c.Address,
		GSTNumber:       c.GSTNumber,
		PANNumber:       c.PANNumber,
		BankName:        c.BankName,
		AccountNumber:   c.AccountNumber,
		IFSCCode:        c.IFSCCode,
		AccountType:     c.AccountType,
		RefFormat:       c.RefFormat,
		LastQuoteNumber: c.LastQuoteNumber,
	}
}

type employeeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

type clientResponse struct {
	ID           string `json:"id"`
	CompanyID    string `json:"company_id"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	Address      string `json:"address"`
}

type itemResponse struct {
	ID            string `json:"id"`
	CatalogueID   string `json:"catalogue_id"`
	Description   string `json:"description"`
	PackSize      string `json:"pack_size"`
	CAS           string `json:"cas"`
	HSN           string `json:"hsn"`
	UnitPrice     string `json:"unit_price"`
	GSTPercentage string `json:"gst_percentage"`
	Brand         string `json:"brand"`
}

type documentResponse struct {
	FileName    string `json:"file_name"`
	Format      string `json:"format"`
	DownloadURL string `json:"download_url"`
}

type referenceResponse struct {
	CompanyID       string `json:"company_id"`
	ReferenceNumber string `json:"reference_number"`
	Counter         int    `json:"counter"`
}

type gstResponse struct {
	HSN           string `json:"hsn"`
	GSTPercentage string `json:"gst_percentage"`
}
