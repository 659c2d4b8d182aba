// Package render turns a resolved quotation into a downloadable document.
// DOCX is the canonical artifact; PDF and XLSX carry the same content.
package render

import (
	"fmt"
	"strings"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/google/uuid"
)

type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

var formats = map[Format]struct {
	contentType string
	renderer    renderer
}{
	FormatDOCX: {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", docxRenderer{}},
	FormatPDF:  {"application/pdf", pdfRenderer{}},
	FormatXLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsxRenderer{}},
}

type renderer interface {
	Render(v *View) ([]byte, error)
}

// ParseFormat accepts a format name case-insensitively; empty means DOCX.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatDOCX, nil
	}
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := formats[f]; !ok {
		return "", fmt.Errorf("%w: unsupported document format %q", e.ErrValidation, s)
	}
	return f, nil
}

// Formats lists every supported format, canonical first.
func Formats() []Format {
	return []Format{FormatDOCX, FormatPDF, FormatXLSX}
}

func (f Format) ContentType() string {
	return formats[f].contentType
}

// FileName derives the artifact name from the reference number, replacing
// "/" with "_" so the name is a single path element.
func FileName(referenceNumber string, f Format) string {
	return "quotation_" + strings.ReplaceAll(referenceNumber, "/", "_") + "." + string(f)
}

// StorageKey names the stored artifact. Reference numbers repeat across
// companies, so the key is prefixed with the quotation id.
func StorageKey(quotationID uuid.UUID, referenceNumber string, f Format) string {
	return quotationID.String() + "_" + FileName(referenceNumber, f)
}

// DisplayName strips the quotation id prefix from a storage key. Names
// without one are returned unchanged.
func DisplayName(key string) string {
	id, name, ok := strings.Cut(key, "_")
	if !ok || name == "" {
		return key
	}
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return key
	}
	return name
}

// Artifact is a rendered document. Name is what the client sees, Key is
// where the store keeps it.
type Artifact struct {
	Name        string
	Key         string
	ContentType string
	Data        []byte
}

type Engine struct {
	currencySymbol string
}

func NewEngine(currencySymbol string) *Engine {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}
	return &Engine{currencySymbol: currencySymbol}
}

// Render lays out doc in format f. Failures are ErrRender, except an unknown
// format which is ErrValidation.
func (en *Engine) Render(doc *models.QuotationDocument, f Format) (*Artifact, error) {
	spec, ok := formats[f]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported document format %q", e.ErrValidation, f)
	}
	v, err := NewView(doc, en.currencySymbol)
	if err != nil {
		return nil, err
	}
	data, err := spec.renderer.Render(v)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Name:        FileName(doc.Quotation.ReferenceNumber, f),
		Key:         StorageKey(doc.Quotation.ID, doc.Quotation.ReferenceNumber, f),
		ContentType: spec.contentType,
		Data:        data,
	}, nil
}
