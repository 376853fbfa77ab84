package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"fatture/internal/domain/client"
)

// CreateClientRequest for creating clients.
type CreateClientRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`

	VATNumber string `json:"vatNumber"`
	TaxCode   string `json:"taxCode"`
	Address   string `json:"address"`
	Email     string `json:"email"`

	Withholding        bool            `json:"withholding"`
	WithholdingRate    decimal.Decimal `json:"withholdingRate"`
	WithholdingTaxBase decimal.Decimal `json:"withholdingTaxBase"`
	SplitPayment       bool            `json:"splitPayment"`
	FlatRateRegime     bool            `json:"flatRateRegime"`
}

// ToEntity converts the request to a domain client.
func (r CreateClientRequest) ToEntity() *client.Client {
	c := client.NewClient(r.Code, r.Name, client.Category(r.Category))
	c.VATNumber = r.VATNumber
	c.TaxCode = r.TaxCode
	c.Address = r.Address
	c.Email = r.Email
	c.Withholding = r.Withholding
	c.WithholdingRate = r.WithholdingRate
	c.WithholdingTaxBase = r.WithholdingTaxBase
	c.SplitPayment = r.SplitPayment
	c.FlatRateRegime = r.FlatRateRegime
	return c
}

// UpdateClientRequest for updating clients. Nil pointers leave the field as is.
type UpdateClientRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Category *string `json:"category"`

	VATNumber *string `json:"vatNumber"`
	TaxCode   *string `json:"taxCode"`
	Address   *string `json:"address"`
	Email     *string `json:"email"`

	Withholding        *bool            `json:"withholding"`
	WithholdingRate    *decimal.Decimal `json:"withholdingRate"`
	WithholdingTaxBase *decimal.Decimal `json:"withholdingTaxBase"`
	SplitPayment       *bool            `json:"splitPayment"`
	FlatRateRegime     *bool            `json:"flatRateRegime"`

	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields to an existing client.
func (r UpdateClientRequest) ApplyTo(c *client.Client) {
	if r.Code != nil {
		c.Code = *r.Code
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Category != nil {
		c.Category = client.Category(*r.Category)
	}
	if r.VATNumber != nil {
		c.VATNumber = *r.VATNumber
	}
	if r.TaxCode != nil {
		c.TaxCode = *r.TaxCode
	}
	if r.Address != nil {
		c.Address = *r.Address
	}
	if r.Email != nil {
		c.Email = *r.Email
	}
	if r.Withholding != nil {
		c.Withholding = *r.Withholding
	}
	if r.WithholdingRate != nil {
		c.WithholdingRate = *r.WithholdingRate
	}
	if r.WithholdingTaxBase != nil {
		c.WithholdingTaxBase = *r.WithholdingTaxBase
	}
	if r.SplitPayment != nil {
		c.SplitPayment = *r.SplitPayment
	}
	if r.FlatRateRegime != nil {
		c.FlatRateRegime = *r.FlatRateRegime
	}
	c.SetVersion(r.Version)
}

// ClientResponse contains client fields.
type ClientResponse struct {
	BaseResponse
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`

	VATNumber string `json:"vatNumber,omitempty"`
	TaxCode   string `json:"taxCode,omitempty"`
	Address   string `json:"address,omitempty"`
	Email     string `json:"email,omitempty"`

	Withholding        bool            `json:"withholding"`
	WithholdingRate    decimal.Decimal `json:"withholdingRate"`
	WithholdingTaxBase decimal.Decimal `json:"withholdingTaxBase"`
	SplitPayment       bool            `json:"splitPayment"`
	FlatRateRegime     bool            `json:"flatRateRegime"`
}

// FromClient creates ClientResponse from a domain client.
func FromClient(c *client.Client) *ClientResponse {
	return &ClientResponse{
		BaseResponse:       FromBaseEntity(c.BaseEntity),
		Code:               c.Code,
		Name:               c.Name,
		Category:           string(c.Category),
		VATNumber:          c.VATNumber,
		TaxCode:            c.TaxCode,
		Address:            c.Address,
		Email:              c.Email,
		Withholding:        c.Withholding,
		WithholdingRate:    c.WithholdingRate,
		WithholdingTaxBase: c.WithholdingTaxBase,
		SplitPayment:       c.SplitPayment,
		FlatRateRegime:     c.FlatRateRegime,
	}
}

// ClientListResponse for client lists.
type ClientListResponse struct {
	Items      []*ClientResponse `json:"items"`
	TotalCount int               `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// --- Validation helpers ---

// ValidateFiscalCodeRequest for standalone checksum validation.
type ValidateFiscalCodeRequest struct {
	VATNumber string `json:"vatNumber"`
	TaxCode   string `json:"taxCode"`
}

// ValidateFiscalCodeResponse reports per-code validity.
type ValidateFiscalCodeResponse struct {
	VATNumberValid *bool     `json:"vatNumberValid,omitempty"`
	TaxCodeValid   *bool     `json:"taxCodeValid,omitempty"`
	CheckedAt      time.Time `json:"checkedAt"`
}
