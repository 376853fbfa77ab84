// Package client provides the Client catalog: the invoiced parties and the
// fiscal attributes that drive document computation.
package client

import (
	"context"

	"github.com/shopspring/decimal"

	"fatture/internal/core/apperror"
	"fatture/internal/core/entity"
	"fatture/internal/domain/fiscal"
)

// Category defines the fiscal category of a client.
type Category string

const (
	CategoryProfessional         Category = "professional"
	CategoryCompany              Category = "company"
	CategoryPublicAdministration Category = "public_administration"
)

// Client represents an invoiced party.
// The invoice engine never loads clients itself: callers resolve a Client by
// id and inject it into computations.
type Client struct {
	entity.Catalog

	Category Category `db:"category" json:"category"`

	// VATNumber is the partita IVA (11 digits), empty for private individuals.
	VATNumber string `db:"vat_number" json:"vatNumber,omitempty"`

	// TaxCode is the codice fiscale (16 chars, or 11 digits for companies).
	TaxCode string `db:"tax_code" json:"taxCode,omitempty"`

	Address string `db:"address" json:"address,omitempty"`
	Email   string `db:"email" json:"email,omitempty"`

	// Withholding (ritenuta d'acconto) attributes.
	// WithholdingRate is the percentage deducted (typically 20).
	// WithholdingTaxBase is the percentage of the taxable base subject to
	// withholding (typically 100, reduced for some professions).
	Withholding        bool            `db:"withholding" json:"withholding"`
	WithholdingRate    decimal.Decimal `db:"withholding_rate" json:"withholdingRate"`
	WithholdingTaxBase decimal.Decimal `db:"withholding_tax_base" json:"withholdingTaxBase"`

	// SplitPayment marks public-administration clients paying VAT directly
	// to the treasury. Mutually exclusive with withholding.
	SplitPayment bool `db:"split_payment" json:"splitPayment"`

	// FlatRateRegime (regime forfettario): no VAT charged, no withholding,
	// stamp duty above the statutory threshold.
	FlatRateRegime bool `db:"flat_rate_regime" json:"flatRateRegime"`
}

// NewClient creates a new Client with required fields.
func NewClient(code, name string, category Category) *Client {
	return &Client{
		Catalog:  entity.NewCatalog(code, name),
		Category: category,
	}
}

// Validate implements entity.Validatable.
// All violated rules are collected and reported together.
func (c *Client) Validate(ctx context.Context) error {
	var violations []string

	if c.Name == "" {
		violations = append(violations, "name is required")
	}

	switch c.Category {
	case CategoryProfessional, CategoryCompany, CategoryPublicAdministration:
	default:
		violations = append(violations, "invalid client category")
	}

	if c.VATNumber == "" && c.TaxCode == "" {
		violations = append(violations, "at least one of VAT number and tax code is required")
	}
	if c.VATNumber != "" && !fiscal.IsValidVATNumber(c.VATNumber) {
		violations = append(violations, "VAT number is invalid")
	}
	if c.TaxCode != "" && !fiscal.IsValidTaxCode(c.TaxCode) {
		violations = append(violations, "tax code is invalid")
	}

	if c.Withholding && c.SplitPayment {
		violations = append(violations, "withholding and split payment are mutually exclusive")
	}
	if c.Withholding {
		if c.WithholdingRate.LessThanOrEqual(decimal.Zero) || c.WithholdingRate.GreaterThan(decimal.NewFromInt(100)) {
			violations = append(violations, "withholding rate must be between 0 and 100")
		}
		if c.WithholdingTaxBase.LessThanOrEqual(decimal.Zero) || c.WithholdingTaxBase.GreaterThan(decimal.NewFromInt(100)) {
			violations = append(violations, "withholding tax base must be between 0 and 100")
		}
	}

	if len(violations) > 0 {
		return apperror.NewInvalidInput(violations...)
	}
	return nil
}
