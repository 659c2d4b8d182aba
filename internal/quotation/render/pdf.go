package render

import (
	"fmt"
	"strings"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const pdfGridSize = 30

// pdfColumnSizes spans pdfGridSize, one entry per item column.
var pdfColumnSizes = []int{1, 2, 5, 2, 1, 2, 2, 2, 2, 2, 1, 2, 2, 2, 2}

var (
	grey       = &props.Color{Red: 80, Green: 80, Blue: 80}
	headerFill = &props.Cell{
		BackgroundColor: &props.Color{Red: 231, Green: 230, Blue: 230},
		BorderType:      border.Full,
	}
	bordered = &props.Cell{BorderType: border.Full}
)

type pdfRenderer struct{}

func (pdfRenderer) Render(v *View) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(pdfGridSize).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   grey,
		}).
		Build()

	m := maroto.New(cfg)
	addPDFLetterhead(m, v)
	addPDFParties(m, v)
	addPDFItems(m, v.Rows)
	addPDFTotals(m, v)
	addPDFTerms(m, v)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("%w: generate pdf: %v", e.ErrRender, err)
	}
	return doc.GetBytes(), nil
}

func addPDFLetterhead(m core.Maroto, v *View) {
	centered := props.Text{Size: 9, Align: align.Center}

	m.AddRows(row.New(10).Add(col.New().Add(
		text.New(v.Company.Name, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
	)))
	for _, line := range []string{
		v.Company.Address,
		joinNonEmpty(" | ", labelled("Phone", v.Company.Phone), labelled("Email", v.Company.Email)),
		joinNonEmpty(" | ", labelled("GSTIN", v.Company.GSTNumber), labelled("PAN", v.Company.PANNumber)),
	} {
		if line != "" {
			m.AddRows(row.New(5).Add(col.New().Add(text.New(line, centered))))
		}
	}

	switch {
	case v.Seal != nil:
		ext := extension.Png
		if v.Seal.Format == "jpeg" {
			ext = extension.Jpeg
		}
		m.AddRows(row.New(20).Add(
			col.New(pdfGridSize-5),
			col.New(5).Add(image.NewFromBytes(v.Seal.Data, ext, props.Rect{Center: true, Percent: 90})),
		))
	case v.SealUnavailable:
		m.AddRows(row.New(5).Add(col.New().Add(
			text.New("[Seal image not available]", props.Text{Size: 7, Style: fontstyle.Italic, Align: align.Right, Color: grey}),
		)))
	}

	m.AddRows(row.New(10).Add(col.New().Add(
		text.New("QUOTATION", props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center, Top: 2}),
	)))
	m.AddRows(row.New(6).Add(
		col.New(pdfGridSize/2).Add(text.New("Ref. No: "+v.ReferenceNumber, props.Text{Size: 9, Style: fontstyle.Bold})),
		col.New(pdfGridSize/2).Add(text.New("Date: "+v.Date, props.Text{Size: 9, Align: align.Right})),
	))
}

func addPDFParties(m core.Maroto, v *View) {
	m.AddRows(row.New(3))
	lines := []string{"To,", v.Client.Name, v.Client.BusinessName, v.Client.Address,
		labelled("Email", v.Client.Email), labelled("Mobile", v.Client.Mobile)}
	for i, line := range lines {
		if line == "" {
			continue
		}
		style := props.Text{Size: 9}
		if i == 0 {
			style.Style = fontstyle.Bold
		}
		m.AddRows(row.New(5).Add(col.New().Add(text.New(line, style))))
	}

	m.AddRows(row.New(3))
	m.AddRows(row.New(5).Add(col.New().Add(
		text.New("Contact Person: "+v.Contact.Name, props.Text{Size: 9, Style: fontstyle.Bold}),
	)))
	if line := joinNonEmpty(" | ", labelled("Phone", v.Contact.Phone), labelled("Email", v.Contact.Email)); line != "" {
		m.AddRows(row.New(5).Add(col.New().Add(text.New(line, props.Text{Size: 9}))))
	}
	m.AddRows(row.New(4))
}

func addPDFItems(m core.Maroto, rows [][]string) {
	headerText := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Top: 1}
	header := row.New(8)
	for i, heading := range Columns {
		header.Add(col.New(pdfColumnSizes[i]).Add(text.New(heading, headerText)).WithStyle(headerFill))
	}
	m.AddRows(header)

	cellText := props.Text{Size: 7, Align: align.Center, Top: 1}
	for _, values := range rows {
		r := row.New(7)
		for i, value := range values {
			style := cellText
			if i == 2 {
				style.Align = align.Left
				style.Left = 1
			}
			r.Add(col.New(pdfColumnSizes[i]).Add(text.New(pdfSafe(value), style)).WithStyle(bordered))
		}
		m.AddRows(r)
	}
}

func addPDFTotals(m core.Maroto, v *View) {
	m.AddRows(row.New(4))
	label := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Right: 2, Top: 1}
	value := props.Text{Size: 9, Align: align.Right, Right: 2, Top: 1}
	for _, t := range [][2]string{
		{"Sub Total", v.SubTotal},
		{"Total GST", v.TotalGST},
		{"Grand Total", v.GrandTotal},
	} {
		m.AddRows(row.New(7).Add(
			col.New(pdfGridSize-10),
			col.New(5).Add(text.New(t[0], label)).WithStyle(bordered),
			col.New(5).Add(text.New(pdfSafe(t[1]), value)).WithStyle(bordered),
		))
	}
}

func addPDFTerms(m core.Maroto, v *View) {
	heading := props.Text{Size: 10, Style: fontstyle.Bold, Top: 2}
	body := props.Text{Size: 8}

	m.AddRows(row.New(4))
	m.AddRows(row.New(7).Add(col.New().Add(text.New("Payment Terms", heading))))
	m.AddRows(row.New(5).Add(col.New().Add(text.New(v.PaymentTerms, body))))

	m.AddRows(row.New(7).Add(col.New().Add(text.New("Terms & Conditions", heading))))
	for i, term := range v.FixedTerms {
		m.AddRows(row.New(5).Add(col.New().Add(text.New(fmt.Sprintf("%d. %s", i+1, term), body))))
	}

	if v.Company.BankName != "" || v.Company.AccountNumber != "" {
		m.AddRows(row.New(7).Add(col.New().Add(text.New("Bank Details", heading))))
		for _, line := range []string{
			"Bank: " + v.Company.BankName,
			"A/c No: " + v.Company.AccountNumber,
			"IFSC: " + v.Company.IFSCCode,
			"Account Type: " + v.Company.AccountType,
		} {
			m.AddRows(row.New(5).Add(col.New().Add(text.New(line, body))))
		}
	}

	m.AddRows(row.New(8))
	m.AddRows(row.New(5).Add(col.New().Add(
		text.New("For "+v.Company.Name, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)))
	m.AddRows(row.New(12).Add(col.New().Add(
		text.New("Authorised Signatory", props.Text{Size: 9, Align: align.Right, Top: 7}),
	)))
}

// pdfSafe swaps the rupee sign for "Rs." since the built-in PDF fonts are
// limited to Windows-1252.
func pdfSafe(s string) string {
	return strings.ReplaceAll(s, "₹", "Rs. ")
}
