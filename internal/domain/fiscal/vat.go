// Package fiscal provides checksum validation for Italian fiscal identifiers:
// the VAT number (partita IVA) and the personal tax code (codice fiscale).
// All functions are pure and perform no I/O.
package fiscal

import (
	"fatture/internal/core/apperror"
)

// ValidateVATNumber checks an Italian VAT number (partita IVA).
// Format: exactly 11 digits, last digit is a Luhn-style check digit.
func ValidateVATNumber(vat string) error {
	violations := vatViolations(vat)
	if len(violations) > 0 {
		return apperror.NewInvalidInput(violations...).WithDetail("field", "vatNumber")
	}
	return nil
}

// IsValidVATNumber reports whether vat passes format and checksum validation.
func IsValidVATNumber(vat string) bool {
	return len(vatViolations(vat)) == 0
}

func vatViolations(vat string) []string {
	var violations []string

	if len(vat) != 11 {
		violations = append(violations, "VAT number must be exactly 11 digits")
		return violations
	}
	for _, r := range vat {
		if r < '0' || r > '9' {
			violations = append(violations, "VAT number must contain only digits")
			return violations
		}
	}

	if !vatChecksumOK(vat) {
		violations = append(violations, "VAT number check digit is invalid")
	}
	return violations
}

// vatChecksumOK implements the partita IVA check-digit algorithm:
// digits in odd positions (1st, 3rd, ...) are summed as-is; digits in even
// positions are doubled, subtracting 9 when the double exceeds 9. The total,
// including the 11th (check) digit, must be divisible by 10.
func vatChecksumOK(vat string) bool {
	sum := 0
	for i := 0; i < 11; i++ {
		d := int(vat[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}
