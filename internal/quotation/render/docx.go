package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	e "github.com/gartstein/quotation/internal/quotation/errors"
)

// OOXML parts. The package carries only what Word needs to open the file.
const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Default Extension="jpeg" ContentType="image/jpeg"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><w:body>`

	// A4 landscape, 1.27cm margins; the item table needs the width.
	documentClose = `<w:sectPr><w:pgSz w:w="16838" w:h="11906" w:orient="landscape"/>` +
		`<w:pgMar w:top="720" w:right="720" w:bottom="720" w:left="720" w:header="0" w:footer="0" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`

	sealRelID = "rIdSeal"

	// Seals are scaled to 1.5in wide, keeping the aspect ratio.
	sealWidthEMU = 1371600
)

// Column widths in twentieths of a point, summing to the printable width.
var docxColumnWidths = []int{450, 900, 2600, 900, 550, 800, 1000, 650, 1000, 1100, 650, 1000, 1150, 900, 748}

type docxRenderer struct{}

type docxPart struct {
	name string
	data []byte
}

func (docxRenderer) Render(v *View) ([]byte, error) {
	var body strings.Builder
	body.WriteString(documentOpen)
	writeDOCXBody(&body, v)
	body.WriteString(documentClose)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []docxPart{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/document.xml", []byte(body.String())},
		{"word/_rels/document.xml.rels", []byte(documentRels(v.Seal))},
	}
	if v.Seal != nil {
		parts = append(parts, docxPart{"word/media/" + sealFileName(v.Seal), v.Seal.Data})
	}

	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", e.ErrRender, p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", e.ErrRender, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize docx: %v", e.ErrRender, err)
	}
	return buf.Bytes(), nil
}

func writeDOCXBody(b *strings.Builder, v *View) {
	// Letterhead
	para(b, v.Company.Name, runStyle{bold: true, size: 32}, "center")
	para(b, v.Company.Address, runStyle{size: 18}, "center")
	para(b, joinNonEmpty(" | ", labelled("Phone", v.Company.Phone), labelled("Email", v.Company.Email)), runStyle{size: 18}, "center")
	para(b, joinNonEmpty(" | ", labelled("GSTIN", v.Company.GSTNumber), labelled("PAN", v.Company.PANNumber)), runStyle{size: 18}, "center")
	if v.Seal != nil {
		sealParagraph(b, v.Seal)
	} else if v.SealUnavailable {
		para(b, "[Seal image not available]", runStyle{italic: true, size: 16}, "right")
	}
	para(b, "QUOTATION", runStyle{bold: true, size: 28}, "center")

	para(b, "Ref. No: "+v.ReferenceNumber, runStyle{bold: true}, "")
	para(b, "Date: "+v.Date, runStyle{}, "")
	para(b, "", runStyle{}, "")

	para(b, "To,", runStyle{bold: true}, "")
	para(b, v.Client.Name, runStyle{}, "")
	for _, line := range []string{v.Client.BusinessName, v.Client.Address, labelled("Email", v.Client.Email), labelled("Mobile", v.Client.Mobile)} {
		if line != "" {
			para(b, line, runStyle{}, "")
		}
	}
	para(b, "", runStyle{}, "")

	para(b, "Contact Person: "+v.Contact.Name, runStyle{bold: true}, "")
	if line := joinNonEmpty(" | ", labelled("Phone", v.Contact.Phone), labelled("Email", v.Contact.Email)); line != "" {
		para(b, line, runStyle{}, "")
	}
	para(b, "", runStyle{}, "")

	itemTable(b, v.Rows)
	para(b, "", runStyle{}, "")

	totalsTable(b, [][2]string{
		{"Sub Total", v.SubTotal},
		{"Total GST", v.TotalGST},
		{"Grand Total", v.GrandTotal},
	})
	para(b, "", runStyle{}, "")

	para(b, "Payment Terms", runStyle{bold: true, size: 22}, "")
	para(b, v.PaymentTerms, runStyle{}, "")
	para(b, "", runStyle{}, "")

	para(b, "Terms & Conditions", runStyle{bold: true, size: 22}, "")
	for i, term := range v.FixedTerms {
		para(b, fmt.Sprintf("%d. %s", i+1, term), runStyle{}, "")
	}
	para(b, "", runStyle{}, "")

	if v.Company.BankName != "" || v.Company.AccountNumber != "" {
		para(b, "Bank Details", runStyle{bold: true, size: 22}, "")
		para(b, "Bank: "+v.Company.BankName, runStyle{}, "")
		para(b, "A/c No: "+v.Company.AccountNumber, runStyle{}, "")
		para(b, "IFSC: "+v.Company.IFSCCode, runStyle{}, "")
		para(b, "Account Type: "+v.Company.AccountType, runStyle{}, "")
		para(b, "", runStyle{}, "")
	}

	para(b, "For "+v.Company.Name, runStyle{bold: true}, "right")
	para(b, "Authorised Signatory", runStyle{}, "right")
}

type runStyle struct {
	bold   bool
	italic bool
	// size in half-points; zero keeps the default.
	size int
}

func para(b *strings.Builder, text string, rs runStyle, align string) {
	b.WriteString("<w:p>")
	if align != "" {
		fmt.Fprintf(b, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	if text != "" {
		run(b, text, rs)
	}
	b.WriteString("</w:p>")
}

func run(b *strings.Builder, text string, rs runStyle) {
	b.WriteString("<w:r>")
	if rs.bold || rs.italic || rs.size > 0 {
		b.WriteString("<w:rPr>")
		if rs.bold {
			b.WriteString("<w:b/>")
		}
		if rs.italic {
			b.WriteString("<w:i/>")
		}
		if rs.size > 0 {
			fmt.Fprintf(b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, rs.size, rs.size)
		}
		b.WriteString("</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	escape(b, text)
	b.WriteString("</w:t></w:r>")
}

const tableBorders = `<w:tblBorders>` +
	`<w:top w:val="single" w:sz="4" w:space="0" w:color="000000"/>` +
	`<w:left w:val="single" w:sz="4" w:space="0" w:color="000000"/>` +
	`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="000000"/>` +
	`<w:right w:val="single" w:sz="4" w:space="0" w:color="000000"/>` +
	`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="000000"/>` +
	`<w:insideV w:val="single" w:sz="4" w:space="0" w:color="000000"/>` +
	`</w:tblBorders>`

func itemTable(b *strings.Builder, rows [][]string) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/>` + tableBorders + `</w:tblPr><w:tblGrid>`)
	for _, w := range docxColumnWidths {
		fmt.Fprintf(b, `<w:gridCol w:w="%d"/>`, w)
	}
	b.WriteString("</w:tblGrid>")

	b.WriteString(`<w:tr><w:trPr><w:tblHeader/></w:trPr>`)
	for i, heading := range Columns {
		cell(b, heading, docxColumnWidths[i], runStyle{bold: true, size: 16}, "E7E6E6")
	}
	b.WriteString("</w:tr>")

	for _, row := range rows {
		b.WriteString("<w:tr>")
		for i, value := range row {
			cell(b, value, docxColumnWidths[i], runStyle{size: 16}, "")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
}

func totalsTable(b *strings.Builder, rows [][2]string) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:jc w:val="right"/>` + tableBorders + `</w:tblPr>`)
	b.WriteString(`<w:tblGrid><w:gridCol w:w="2400"/><w:gridCol w:w="2400"/></w:tblGrid>`)
	for i, r := range rows {
		rs := runStyle{size: 20, bold: i == len(rows)-1}
		b.WriteString("<w:tr>")
		cell(b, r[0], 2400, runStyle{bold: true, size: 20}, "")
		cell(b, r[1], 2400, rs, "")
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
}

func cell(b *strings.Builder, text string, width int, rs runStyle, fill string) {
	fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/>`, width)
	if fill != "" {
		fmt.Fprintf(b, `<w:shd w:val="clear" w:color="auto" w:fill="%s"/>`, fill)
	}
	b.WriteString("</w:tcPr>")
	para(b, text, rs, "")
	b.WriteString("</w:tc>")
}

func sealParagraph(b *strings.Builder, img *Image) {
	cx, cy := int64(sealWidthEMU), int64(sealWidthEMU)
	if img.Width > 0 && img.Height > 0 {
		cy = cx * int64(img.Height) / int64(img.Width)
	}
	name := sealFileName(img)
	fmt.Fprintf(b, `<w:p><w:pPr><w:jc w:val="right"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/><wp:docPr id="1" name="Seal"/>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="1" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, name, sealRelID, cx, cy)
}

func documentRels(seal *Image) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	if seal != nil {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`,
			sealRelID, sealFileName(seal))
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func sealFileName(img *Image) string {
	return "seal." + img.Format
}

func escape(b *strings.Builder, s string) {
	// strings.Builder writes never fail.
	_ = xml.EscapeText(b, []byte(s))
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
