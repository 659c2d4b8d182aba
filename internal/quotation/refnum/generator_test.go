package refnum

import (
	"testing"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	company := &models.Company{RefFormat: "QT-{YYYY}-{NUM}", LastQuoteNumber: 4}

	ref, err := Next(company, 2024)
	require.NoError(t, err)
	assert.Equal(t, "QT-2024-005", ref.Number)
	assert.Equal(t, 5, ref.Counter)
	assert.Equal(t, 4, company.LastQuoteNumber, "Next must not advance the stored counter")
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		year     int
		counter  int
		want     string
	}{
		{name: "default template", template: models.DefaultRefFormat, year: 2025, counter: 1, want: "QT-2025-001"},
		{name: "slashes", template: "ACME/{YYYY}/{NUM}", year: 2024, counter: 42, want: "ACME/2024/042"},
		{name: "counter wider than padding", template: "Q{NUM}", year: 2024, counter: 12345, want: "Q12345"},
		{name: "number only", template: "{NUM}", year: 2024, counter: 7, want: "007"},
		{name: "repeated placeholder", template: "{YYYY}-{NUM}-{YYYY}", year: 2023, counter: 9, want: "2023-009-2023"},
		{name: "no placeholders", template: "FIXED", year: 2024, counter: 3, want: "FIXED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.template, tt.year, tt.counter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Malformed(t *testing.T) {
	templates := []string{
		"",
		"   ",
		"QT-{YY}-{NUM}",
		"QT-{YYYY-{NUM}",
		"QT-{NUM",
		"QT-}NUM{",
		"QT-{}",
		"QT-{num}",
	}

	for _, tmpl := range templates {
		t.Run(tmpl, func(t *testing.T) {
			_, err := Format(tmpl, 2024, 1)
			assert.ErrorIs(t, err, e.ErrConfiguration)
		})
	}
}

func TestNext_NilCompany(t *testing.T) {
	_, err := Next(nil, 2024)
	assert.ErrorIs(t, err, e.ErrConfiguration)
}
