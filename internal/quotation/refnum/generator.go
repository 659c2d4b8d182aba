// Package refnum derives sequential quotation reference numbers from a
// company's ref_format template and its stored counter.
//
// Generation is pure: computing the next reference never advances the
// stored counter. The repository commits the counter together with the
// quotation insert.
package refnum

import (
	"fmt"
	"strconv"
	"strings"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
)

const (
	placeholderYear   = "YYYY"
	placeholderNumber = "NUM"

	numberWidth = 3
)

// Reference is an allocated (or previewed) reference number.
type Reference struct {
	Number  string
	Counter int
}

// Next returns the reference that follows company.LastQuoteNumber for the
// given year. The company is not modified.
func Next(company *models.Company, year int) (Reference, error) {
	if company == nil {
		return Reference{}, fmt.Errorf("%w: company required", e.ErrConfiguration)
	}
	next := company.LastQuoteNumber + 1
	number, err := Format(company.RefFormat, year, next)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Number: number, Counter: next}, nil
}

// Format substitutes {YYYY} and {NUM} in template. A template without
// placeholders is accepted; an empty template, an unknown placeholder or an
// unterminated brace is a configuration error.
func Format(template string, year, counter int) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("%w: ref_format is empty", e.ErrConfiguration)
	}

	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return "", fmt.Errorf("%w: ref_format %q has an unmatched '}'", e.ErrConfiguration, template)
			}
			b.WriteString(rest)
			break
		}
		if strings.IndexByte(rest[:open], '}') >= 0 {
			return "", fmt.Errorf("%w: ref_format %q has an unmatched '}'", e.ErrConfiguration, template)
		}
		b.WriteString(rest[:open])

		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: ref_format %q has an unterminated placeholder", e.ErrConfiguration, template)
		}
		name := rest[open+1 : open+end]
		switch name {
		case placeholderYear:
			b.WriteString(fmt.Sprintf("%04d", year))
		case placeholderNumber:
			b.WriteString(padNumber(counter))
		default:
			return "", fmt.Errorf("%w: ref_format %q has unknown placeholder {%s}", e.ErrConfiguration, template, name)
		}
		rest = rest[open+end+1:]
	}
	return b.String(), nil
}

func padNumber(n int) string {
	s := strconv.Itoa(n)
	if len(s) < numberWidth {
		s = strings.Repeat("0", numberWidth-len(s)) + s
	}
	return s
}
