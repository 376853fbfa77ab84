package fiscal

import (
	"strings"

	"fatture/internal/core/apperror"
)

// oddValues maps each character of the tax code to its contribution when it
// occupies an odd position (1st, 3rd, ... in the printed code). Values come
// from the ministerial conversion table (DM 23/12/1976).
var oddValues = map[byte]int{
	'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15, '7': 17, '8': 19, '9': 21,
	'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15, 'H': 17, 'I': 19, 'J': 21,
	'K': 2, 'L': 4, 'M': 18, 'N': 20, 'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14,
	'U': 16, 'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
}

// evenValues maps characters in even positions: digits to their value,
// letters to their alphabetical index.
func evenValue(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	return int(c - 'A')
}

// omocodia substitution characters allowed in the numeric positions of a
// personal tax code (L=0 .. V=9).
const omocodeChars = "LMNPQRSTUV"

// monthChars are the letters encoding the birth month (A=Jan .. T=Dec).
const monthChars = "ABCDEHLMPRST"

// ValidateTaxCode checks an Italian tax code (codice fiscale).
// Accepts the 16-character personal form (structure + check character) and
// the 11-digit numeric form used by companies, which follows the VAT
// number checksum.
func ValidateTaxCode(code string) error {
	violations := taxCodeViolations(code)
	if len(violations) > 0 {
		return apperror.NewInvalidInput(violations...).WithDetail("field", "taxCode")
	}
	return nil
}

// IsValidTaxCode reports whether code passes format and checksum validation.
func IsValidTaxCode(code string) bool {
	return len(taxCodeViolations(code)) == 0
}

func taxCodeViolations(code string) []string {
	code = strings.ToUpper(code)

	switch len(code) {
	case 11:
		// Companies use their VAT number as tax code.
		return vatViolations(code)
	case 16:
		return personalTaxCodeViolations(code)
	default:
		return []string{"tax code must be 16 characters (11 digits for companies)"}
	}
}

func personalTaxCodeViolations(code string) []string {
	var violations []string

	if !personalTaxCodeStructureOK(code) {
		violations = append(violations, "tax code structure is invalid")
		return violations
	}

	if taxCodeCheckChar(code[:15]) != code[15] {
		violations = append(violations, "tax code check character is invalid")
	}
	return violations
}

// personalTaxCodeStructureOK validates the positional structure:
// 6 letters (surname+name), 2 numeric (year), 1 month letter, 2 numeric (day),
// 1 letter + 3 numeric (place), 1 check letter. Numeric positions also accept
// the omocodia substitution letters.
func personalTaxCodeStructureOK(code string) bool {
	isLetter := func(c byte) bool { return c >= 'A' && c <= 'Z' }
	isNumeric := func(c byte) bool {
		return (c >= '0' && c <= '9') || strings.IndexByte(omocodeChars, c) >= 0
	}

	for i := 0; i < 6; i++ {
		if !isLetter(code[i]) {
			return false
		}
	}
	if !isNumeric(code[6]) || !isNumeric(code[7]) {
		return false
	}
	if strings.IndexByte(monthChars, code[8]) < 0 {
		return false
	}
	if !isNumeric(code[9]) || !isNumeric(code[10]) {
		return false
	}
	if !isLetter(code[11]) {
		return false
	}
	for i := 12; i < 15; i++ {
		if !isNumeric(code[i]) {
			return false
		}
	}
	return isLetter(code[15])
}

// taxCodeCheckChar computes the 16th character from the first 15.
func taxCodeCheckChar(prefix string) byte {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		// Positions are 1-based in the printed code: index 0 is position 1 (odd).
		if i%2 == 0 {
			sum += oddValues[prefix[i]]
		} else {
			sum += evenValue(prefix[i])
		}
	}
	return byte('A' + sum%26)
}
