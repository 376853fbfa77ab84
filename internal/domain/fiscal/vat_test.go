package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatture/internal/core/apperror"
)

func TestValidateVATNumber(t *testing.T) {
	tests := []struct {
		name  string
		vat   string
		valid bool
	}{
		{"valid", "12345678903", true},
		{"valid all zeros", "00000000000", true},
		{"wrong check digit", "12345678901", false},
		{"too short", "1234567890", false},
		{"too long", "123456789031", false},
		{"non numeric", "1234567890A", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVATNumber(tt.vat)
			if tt.valid {
				assert.NoError(t, err)
				assert.True(t, IsValidVATNumber(tt.vat))
			} else {
				assert.Error(t, err)
				assert.False(t, IsValidVATNumber(tt.vat))
			}
		})
	}
}

func TestValidateVATNumber_ErrorShape(t *testing.T) {
	err := ValidateVATNumber("1234567890A")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
	assert.NotEmpty(t, appErr.Violations)
	assert.Equal(t, "vatNumber", appErr.Details["field"])
}
