package render

import (
	"bytes"
	"fmt"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Quotation"

var xlsxColumnWidths = []float64{6, 12, 40, 12, 6, 10, 12, 8, 12, 14, 8, 12, 14, 12, 14}

type xlsxRenderer struct{}

func (xlsxRenderer) Render(v *View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("%w: set sheet name: %v", e.ErrRender, err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	for i, w := range xlsxColumnWidths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(xlsxSheet, name, name, w); err != nil {
			return nil, fmt.Errorf("%w: set col width %s: %v", e.ErrRender, name, err)
		}
	}

	styles, err := newXLSXStyles(f)
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, lastCol: lastCol, row: 1}

	// Letterhead
	w.merged(v.Company.Name, styles.title)
	w.merged(v.Company.Address, styles.centered)
	w.merged(joinNonEmpty(" | ", labelled("Phone", v.Company.Phone), labelled("Email", v.Company.Email)), styles.centered)
	w.merged(joinNonEmpty(" | ", labelled("GSTIN", v.Company.GSTNumber), labelled("PAN", v.Company.PANNumber)), styles.centered)
	if v.Seal != nil {
		ext := ".png"
		if v.Seal.Format == "jpeg" {
			ext = ".jpg"
		}
		err := f.AddPictureFromBytes(xlsxSheet, lastCol+"1", &excelize.Picture{
			Extension: ext,
			File:      v.Seal.Data,
			Format:    &excelize.GraphicOptions{ScaleX: 0.5, ScaleY: 0.5, Positioning: "oneCell"},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: add seal: %v", e.ErrRender, err)
		}
	} else if v.SealUnavailable {
		w.merged("[Seal image not available]", styles.centered)
	}
	w.merged("QUOTATION", styles.title)
	w.row++

	w.pair("Ref. No:", v.ReferenceNumber, styles.label)
	w.pair("Date:", v.Date, styles.label)
	w.row++

	w.pair("To:", v.Client.Name, styles.label)
	for _, line := range []string{v.Client.BusinessName, v.Client.Address, labelled("Email", v.Client.Email), labelled("Mobile", v.Client.Mobile)} {
		if line != "" {
			w.pair("", line, styles.label)
		}
	}
	w.row++
	w.pair("Contact Person:", v.Contact.Name, styles.label)
	if line := joinNonEmpty(" | ", labelled("Phone", v.Contact.Phone), labelled("Email", v.Contact.Email)); line != "" {
		w.pair("", line, styles.label)
	}
	w.row++

	// Item table
	w.values(Columns, styles.header)
	for _, r := range v.Rows {
		w.values(r, styles.cell)
	}
	w.row++

	for _, t := range [][2]string{
		{"Sub Total", v.SubTotal},
		{"Total GST", v.TotalGST},
		{"Grand Total", v.GrandTotal},
	} {
		w.set("L", t[0], styles.label)
		w.set("M", t[1], styles.total)
		w.row++
	}
	w.row++

	w.set("A", "Payment Terms", styles.label)
	w.row++
	w.merged(v.PaymentTerms, styles.plain)
	w.row++

	w.set("A", "Terms & Conditions", styles.label)
	w.row++
	for i, term := range v.FixedTerms {
		w.merged(fmt.Sprintf("%d. %s", i+1, term), styles.plain)
	}

	if v.Company.BankName != "" || v.Company.AccountNumber != "" {
		w.row++
		w.set("A", "Bank Details", styles.label)
		w.row++
		w.pair("Bank:", v.Company.BankName, styles.label)
		w.pair("A/c No:", v.Company.AccountNumber, styles.label)
		w.pair("IFSC:", v.Company.IFSCCode, styles.label)
		w.pair("Account Type:", v.Company.AccountType, styles.label)
	}

	if w.err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrRender, w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: write xlsx: %v", e.ErrRender, err)
	}
	return buf.Bytes(), nil
}

type xlsxStyles struct {
	title, centered, label, plain, header, cell, total int
}

func newXLSXStyles(f *excelize.File) (*xlsxStyles, error) {
	s := &xlsxStyles{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}, Alignment: &excelize.Alignment{Horizontal: "center"}}},
		{&s.centered, &excelize.Style{Font: &excelize.Font{Size: 10}, Alignment: &excelize.Alignment{Horizontal: "center"}}},
		{&s.label, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 10}}},
		{&s.plain, &excelize.Style{Font: &excelize.Font{Size: 10}, Alignment: &excelize.Alignment{WrapText: true}}},
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 10},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    thinBorders(),
		}},
		{&s.cell, &excelize.Style{Font: &excelize.Font{Size: 10}, Alignment: &excelize.Alignment{WrapText: true}, Border: thinBorders()}},
		{&s.total, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}, Alignment: &excelize.Alignment{Horizontal: "right"}, Border: thinBorders()}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("%w: create style: %v", e.ErrRender, err)
		}
		*d.dst = id
	}
	return s, nil
}

// sheetWriter writes rows top to bottom and keeps the first error.
type sheetWriter struct {
	f       *excelize.File
	lastCol string
	row     int
	err     error
}

func (w *sheetWriter) set(col, value string, style int) {
	if w.err != nil {
		return
	}
	cell := fmt.Sprintf("%s%d", col, w.row)
	if err := w.f.SetCellValue(xlsxSheet, cell, sanitizeExcelCell(value)); err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(xlsxSheet, cell, cell, style)
}

func (w *sheetWriter) merged(value string, style int) {
	if value == "" || w.err != nil {
		return
	}
	first, last := fmt.Sprintf("A%d", w.row), fmt.Sprintf("%s%d", w.lastCol, w.row)
	if err := w.f.MergeCell(xlsxSheet, first, last); err != nil {
		w.err = err
		return
	}
	w.set("A", value, style)
	w.row++
}

func (w *sheetWriter) pair(label, value string, labelStyle int) {
	if label != "" {
		w.set("A", label, labelStyle)
	}
	if w.err == nil {
		cell := fmt.Sprintf("C%d", w.row)
		w.err = w.f.SetCellValue(xlsxSheet, cell, sanitizeExcelCell(value))
	}
	w.row++
}

func (w *sheetWriter) values(values []string, style int) {
	for i, v := range values {
		name, _ := excelize.ColumnNumberToName(i + 1)
		w.set(name, v, style)
	}
	w.row++
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
