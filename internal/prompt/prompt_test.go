package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitConversion(t *testing.T) {
	got := UnitConversion(" 12 ", "kg", "lb")
	assert.Equal(t, "Convert 12 kg to lb. Provide a clear numerical answer with 4 decimal places if applicable.", got)
}

func TestDocConversionDefaults(t *testing.T) {
	got := DocConversion("hello", "", "")
	assert.True(t, strings.HasPrefix(got, "Convert the following text content from Word format to a PDF style representation."))
	assert.True(t, strings.HasSuffix(got, "\n\nhello"))
}

func TestLeadSearch(t *testing.T) {
	tests := []struct {
		name string
		q    LeadQuery
		want string
	}{
		{
			name: "no filters",
			q:    LeadQuery{Query: "dentists"},
			want: "Find high-potential business leads for: dentists in the current area. Provide names and links.",
		},
		{
			name: "all filters",
			q:    LeadQuery{Query: "firms", Industry: "legal", Location: "Boston", Size: "10-50"},
			want: "Find high-potential business leads for: firms in the legal industry specifically in Boston with a company size of 10-50. Provide names and links.",
		},
		{
			name: "blank filters collapse",
			q:    LeadQuery{Query: "cafes", Industry: "  ", Size: ""},
			want: "Find high-potential business leads for: cafes in the current area. Provide names and links.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeadSearch(tt.q))
		})
	}
}

func TestSalesPersona(t *testing.T) {
	assert.Contains(t, SalesPersona("Acme Corp"), "You are calling Acme Corp.")
	assert.Contains(t, SalesPersona(""), "You are calling a potential client.")
}

func TestLogo(t *testing.T) {
	assert.Equal(t, logoPrefix, Logo("  "))
	assert.True(t, strings.HasSuffix(Logo(BrandLogoDirective), " "+BrandLogoDirective))
}
