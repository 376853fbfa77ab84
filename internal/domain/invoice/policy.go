package invoice

import (
	"github.com/shopspring/decimal"

	"fatture/internal/core/types"
	"fatture/internal/domain/client"
)

// WithholdingPolicy decides whether withholding tax applies and computes it.
// The input is always the document's taxable-base total.
type WithholdingPolicy interface {
	Withholding(taxableBase decimal.Decimal, cl *client.Client) decimal.Decimal
}

// StampDutyPolicy decides whether the fixed stamp duty applies.
type StampDutyPolicy interface {
	StampDuty(taxableBase decimal.Decimal, cl *client.Client) decimal.Decimal
}

// StandardWithholding implements the ritenuta d'acconto rules:
// applies only when the client is flagged for it, never together with split
// payment, never under the flat-rate regime. The amount is
// round2(base * taxBase% * rate%), where taxBase is the portion of the
// taxable base subject to withholding.
type StandardWithholding struct{}

func (StandardWithholding) Withholding(taxableBase decimal.Decimal, cl *client.Client) decimal.Decimal {
	if cl == nil || !cl.Withholding {
		return decimal.Zero
	}
	// Split payment and withholding are mutually exclusive by law.
	if cl.SplitPayment {
		return decimal.Zero
	}
	// Flat-rate regime invoices carry no withholding.
	if cl.FlatRateRegime {
		return decimal.Zero
	}

	reduced := types.Percent(taxableBase, cl.WithholdingTaxBase)
	return types.Round2(types.Percent(reduced, cl.WithholdingRate))
}

// Statutory stamp duty parameters: EUR 2.00 on VAT-exempt documents whose
// total exceeds EUR 77.47 (art. 13 Tariffa DPR 642/1972).
var (
	stampDutyAmount    = types.MustMoney("2.00")
	stampDutyThreshold = types.MustMoney("77.47")
)

// StandardStampDuty applies the fixed stamp to flat-rate-regime documents
// whose VAT-exempt taxable total exceeds the statutory threshold.
type StandardStampDuty struct{}

func (StandardStampDuty) StampDuty(taxableBase decimal.Decimal, cl *client.Client) decimal.Decimal {
	if cl == nil || !cl.FlatRateRegime {
		return decimal.Zero
	}
	if taxableBase.GreaterThan(stampDutyThreshold) {
		return stampDutyAmount
	}
	return decimal.Zero
}
