package invoice

import (
	"github.com/shopspring/decimal"

	"fatture/internal/core/types"
	"fatture/internal/domain/client"
)

// Calculator computes line and document totals. It is stateless: the same
// inputs always produce bit-identical totals, so recomputation is idempotent
// and safe to run on every draft mutation and once more at issuance.
type Calculator struct {
	withholding WithholdingPolicy
	stampDuty   StampDutyPolicy
}

// NewCalculator creates a calculator with the statutory policies.
func NewCalculator() *Calculator {
	return &Calculator{
		withholding: StandardWithholding{},
		stampDuty:   StandardStampDuty{},
	}
}

// NewCalculatorWithPolicies creates a calculator with custom policies.
func NewCalculatorWithPolicies(w WithholdingPolicy, s StampDutyPolicy) *Calculator {
	return &Calculator{withholding: w, stampDuty: s}
}

// ComputeTotals fills every computed field of the document: per-line taxable
// base, tax and total, then the document totals, tax breakdown by rate,
// withholding, stamp duty and the final payable amount.
//
// The client is injected by the caller; the engine never resolves relations
// itself. Inputs must already be validated.
//
// Withholding is computed from the taxable-base total, NEVER from the
// pre-withholding subtotal. Computing it from the subtotal silently inflates
// the deduction by the VAT share and produces a legally wrong document.
func (c *Calculator) ComputeTotals(inv *Invoice, cl *client.Client) {
	// Net amounts per line after line-level discounts and the document
	// percentage discount, at full precision. Rounding happens only when a
	// value becomes money on the document.
	nets := make([]decimal.Decimal, len(inv.Lines))
	netSum := decimal.Zero
	for i, line := range inv.Lines {
		net := lineNet(line, inv.DiscountPercent)
		nets[i] = net
		netSum = netSum.Add(net)
	}

	// The fixed document discount is allocated proportionally to each line's
	// share of the net sum. Shares are taken on magnitudes and applied toward
	// zero: a credit note's negated lines shrink by the discount exactly as
	// the original's lines did.
	if inv.DiscountAmount.IsPositive() {
		absSum := decimal.Zero
		for _, net := range nets {
			absSum = absSum.Add(net.Abs())
		}
		if !absSum.IsZero() {
			for i := range nets {
				share := inv.DiscountAmount.Mul(nets[i].Abs()).Div(absSum)
				if nets[i].IsNegative() {
					nets[i] = nets[i].Add(share)
				} else {
					nets[i] = nets[i].Sub(share)
				}
			}
		}
	}

	flatRate := cl != nil && cl.FlatRateRegime

	baseTotal := decimal.Zero
	taxTotal := decimal.Zero
	breakdown := make(map[VATRate]decimal.Decimal)

	for i := range inv.Lines {
		line := &inv.Lines[i]

		base := types.Round2(nets[i])

		// Flat-rate regime issuers charge no output VAT regardless of the
		// line's nominal rate.
		tax := decimal.Zero
		if !flatRate {
			tax = types.Round2(types.Percent(base, line.VATRate.Percent()))
		}

		line.TaxableBase = base
		line.TaxAmount = tax
		line.Total = base.Add(tax)

		baseTotal = baseTotal.Add(base)
		taxTotal = taxTotal.Add(tax)
		breakdown[line.VATRate] = breakdown[line.VATRate].Add(tax)
	}

	subtotal := baseTotal.Add(taxTotal)

	withholding := c.withholding.Withholding(baseTotal, cl)
	stamp := c.stampDuty.StampDuty(baseTotal, cl)

	inv.Totals = Totals{
		TaxableBase: baseTotal,
		TaxTotal:    taxTotal,
		Subtotal:    subtotal,
		Withholding: withholding,
		StampDuty:   stamp,
		// Stamp duty is added on top, never reduced by withholding.
		Payable:   subtotal.Sub(withholding).Add(stamp),
		TaxByRate: breakdown,
	}
}

// lineNet computes a line's net amount after its own discounts and the
// document percentage discount, at full precision.
// Discount order: percentage first, then the fixed amount.
// Discounts reduce the magnitude: on a negated credit-note line the fixed
// amount moves the net toward zero, mirroring the original line's net with
// the opposite sign.
func lineNet(line LineItem, docDiscountPercent decimal.Decimal) decimal.Decimal {
	gross := line.Quantity.Mul(line.UnitPrice)
	negated := gross.IsNegative()

	net := gross.Abs()
	if line.DiscountPercent.IsPositive() {
		net = net.Sub(types.Percent(net, line.DiscountPercent))
	}
	if line.DiscountAmount.IsPositive() {
		net = net.Sub(line.DiscountAmount)
	}

	if docDiscountPercent.IsPositive() {
		net = net.Sub(types.Percent(net, docDiscountPercent))
	}

	if negated {
		return net.Neg()
	}
	return net
}
