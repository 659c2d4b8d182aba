package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // seal images may be JPEG
	_ "image/png"
	"strconv"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
)

// Columns are the item table headings, in print order.
var Columns = []string{
	"S.No", "Cat. No", "Description", "Pack Size", "Qty", "HSN",
	"Unit Rate", "Disc %", "Disc. Rate", "Expanded Rate", "GST %",
	"GST Value", "Total", "Lead Time", "Brand",
}

// View is a quotation flattened to display strings. Every renderer lays out
// the same View so the formats never disagree on content.
type View struct {
	Company CompanyBlock
	Seal    *Image
	// SealUnavailable is set when the company has a seal that could not be read.
	SealUnavailable bool

	ReferenceNumber string
	Date            string

	Client  ClientBlock
	Contact ContactBlock

	Rows [][]string

	SubTotal   string
	TotalGST   string
	GrandTotal string

	PaymentTerms string
	FixedTerms   []string
}

type CompanyBlock struct {
	Name          string
	Address       string
	Phone         string
	Email         string
	GSTNumber     string
	PANNumber     string
	BankName      string
	AccountNumber string
	IFSCCode      string
	AccountType   string
}

type ClientBlock struct {
	Name         string
	BusinessName string
	Address      string
	Email        string
	Mobile       string
}

type ContactBlock struct {
	Name  string
	Phone string
	Email string
}

// Image is a decoded seal. Format is "png" or "jpeg".
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// NewView resolves doc into display strings. It fails with ErrRender when a
// collaborator or a referenced catalog item is missing.
func NewView(doc *models.QuotationDocument, symbol string) (*View, error) {
	if doc == nil || doc.Quotation == nil {
		return nil, fmt.Errorf("%w: quotation is missing", e.ErrRender)
	}
	q := doc.Quotation
	switch {
	case doc.Company == nil:
		return nil, fmt.Errorf("%w: company %s could not be resolved", e.ErrRender, q.CompanyID)
	case doc.Client == nil:
		return nil, fmt.Errorf("%w: client %s could not be resolved", e.ErrRender, q.ClientID)
	case doc.Employee == nil:
		return nil, fmt.Errorf("%w: employee %s could not be resolved", e.ErrRender, q.EmployeeID)
	}

	c := doc.Company
	accountType := c.AccountType
	if accountType == "" {
		accountType = models.DefaultAccountType
	}
	v := &View{
		Company: CompanyBlock{
			Name:          c.Name,
			Address:       c.Address,
			Phone:         c.Phone,
			Email:         c.Email,
			GSTNumber:     c.GSTNumber,
			PANNumber:     c.PANNumber,
			BankName:      c.BankName,
			AccountNumber: c.AccountNumber,
			IFSCCode:      c.IFSCCode,
			AccountType:   accountType,
		},
		ReferenceNumber: q.ReferenceNumber,
		Date:            FormatDate(q.Date),
		Client: ClientBlock{
			Name:         doc.Client.Name,
			BusinessName: doc.Client.BusinessName,
			Address:      doc.Client.Address,
			Email:        doc.Client.Email,
			Mobile:       doc.Client.Mobile,
		},
		Contact: ContactBlock{
			Name:  doc.Employee.Name,
			Phone: doc.Employee.PhoneNumber,
			Email: doc.Employee.Email,
		},
		SubTotal:     FormatMoney(q.SubTotal, symbol),
		TotalGST:     FormatMoney(q.TotalGST, symbol),
		GrandTotal:   FormatMoney(q.GrandTotal, symbol),
		PaymentTerms: q.PaymentTerms.Text(),
		FixedTerms:   q.FixedTerms(),
	}

	for i, l := range q.Lines {
		if l.ItemID != nil {
			if _, ok := doc.Items[*l.ItemID]; !ok {
				return nil, fmt.Errorf("%w: item %s on line %d could not be resolved", e.ErrRender, *l.ItemID, i+1)
			}
		}
		v.Rows = append(v.Rows, []string{
			strconv.Itoa(i + 1),
			l.CatalogueID,
			l.Description,
			l.PackSize,
			strconv.Itoa(l.Quantity),
			l.HSN,
			FormatAmount(l.UnitRate),
			FormatPercent(l.DiscountPercentage),
			FormatAmount(l.DiscountRate),
			FormatAmount(l.ExpandedRate),
			FormatPercent(l.GSTPercentage),
			FormatAmount(l.GSTValue),
			FormatAmount(l.LineTotal),
			l.LeadTime,
			l.Brand,
		})
	}

	if len(doc.Seal) > 0 {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(doc.Seal))
		if err == nil && (format == "png" || format == "jpeg") {
			v.Seal = &Image{Data: doc.Seal, Format: format, Width: cfg.Width, Height: cfg.Height}
		} else {
			v.SealUnavailable = true
		}
	}
	return v, nil
}
