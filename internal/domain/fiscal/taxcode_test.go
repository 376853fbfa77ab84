package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTaxCode(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"valid personal", "RSSMRA85T10A562S", true},
		{"valid lowercase", "rssmra85t10a562s", true},
		{"wrong check char", "RSSMRA85T10A562T", false},
		{"invalid month letter", "RSSMRA85Z10A562S", false},
		{"digits where letters expected", "R5SMRA85T10A562S", false},
		{"company code is VAT number", "12345678903", true},
		{"company code bad checksum", "12345678901", false},
		{"wrong length", "RSSMRA85T10A562", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaxCode(tt.code)
			if tt.valid {
				assert.NoError(t, err)
				assert.True(t, IsValidTaxCode(tt.code))
			} else {
				assert.Error(t, err)
				assert.False(t, IsValidTaxCode(tt.code))
			}
		})
	}
}

func TestTaxCodeCheckChar(t *testing.T) {
	// Check character recomputed from the 15-char prefix.
	assert.Equal(t, byte('S'), taxCodeCheckChar("RSSMRA85T10A562"))
}
