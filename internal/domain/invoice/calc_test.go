package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatture/internal/core/id"
	"fatture/internal/domain/client"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func plainClient() *client.Client {
	return client.NewClient("C-001", "Studio Rossi", client.CategoryCompany)
}

func withholdingClient() *client.Client {
	cl := client.NewClient("C-002", "Ing. Bianchi", client.CategoryProfessional)
	cl.Withholding = true
	cl.WithholdingRate = dec("20")
	cl.WithholdingTaxBase = dec("100")
	return cl
}

func flatRateClient() *client.Client {
	cl := client.NewClient("C-003", "Forfettario SRLS", client.CategoryProfessional)
	cl.FlatRateRegime = true
	return cl
}

func draftWith(lines ...LineItem) *Invoice {
	inv := NewInvoice(id.New())
	for _, l := range lines {
		inv.Lines = append(inv.Lines, l)
		inv.Lines[len(inv.Lines)-1].LineNo = len(inv.Lines)
	}
	return inv
}

func line(qty, price string, rate VATRate) LineItem {
	return LineItem{
		LineID:      id.New(),
		Description: "consulenza",
		Quantity:    dec(qty),
		UnitPrice:   dec(price),
		VATRate:     rate,
	}
}

func TestComputeTotals_SingleLine(t *testing.T) {
	inv := draftWith(line("2", "50.00", VATRate22))
	NewCalculator().ComputeTotals(inv, plainClient())

	assert.True(t, inv.TaxableBase.Equal(dec("100.00")), "base: %s", inv.TaxableBase)
	assert.True(t, inv.TaxTotal.Equal(dec("22.00")), "tax: %s", inv.TaxTotal)
	assert.True(t, inv.Subtotal.Equal(dec("122.00")), "subtotal: %s", inv.Subtotal)
	assert.True(t, inv.Withholding.IsZero())
	assert.True(t, inv.StampDuty.IsZero())
	assert.True(t, inv.Payable.Equal(dec("122.00")), "payable: %s", inv.Payable)
}

func TestComputeTotals_MixedRatesBreakdown(t *testing.T) {
	inv := draftWith(
		line("1", "100.00", VATRate22),
		line("1", "200.00", VATRate10),
		line("1", "50.00", VATRate4),
		line("1", "30.00", VATRate0),
	)
	NewCalculator().ComputeTotals(inv, plainClient())

	assert.True(t, inv.TaxableBase.Equal(dec("380.00")))
	assert.True(t, inv.TaxTotal.Equal(dec("44.00"))) // 22 + 20 + 2 + 0
	require.Len(t, inv.TaxByRate, 4)
	assert.True(t, inv.TaxByRate[VATRate22].Equal(dec("22.00")))
	assert.True(t, inv.TaxByRate[VATRate10].Equal(dec("20.00")))
	assert.True(t, inv.TaxByRate[VATRate4].Equal(dec("2.00")))
	assert.True(t, inv.TaxByRate[VATRate0].IsZero())
}

func TestComputeTotals_LineDiscountOrder(t *testing.T) {
	// 10 * 100 = 1000, minus 10% = 900, minus fixed 50 = 850.
	l := line("10", "100.00", VATRate22)
	l.DiscountPercent = dec("10")
	l.DiscountAmount = dec("50.00")
	inv := draftWith(l)
	NewCalculator().ComputeTotals(inv, plainClient())

	assert.True(t, inv.Lines[0].TaxableBase.Equal(dec("850.00")), "base: %s", inv.Lines[0].TaxableBase)
	assert.True(t, inv.Lines[0].TaxAmount.Equal(dec("187.00")))
	assert.True(t, inv.Lines[0].Total.Equal(dec("1037.00")))
}

func TestComputeTotals_DocumentPercentDiscount(t *testing.T) {
	// Applied after line discounts: 200 minus 5% = 190 per line.
	inv := draftWith(
		line("1", "200.00", VATRate22),
		line("1", "200.00", VATRate22),
	)
	inv.DiscountPercent = dec("5")
	NewCalculator().ComputeTotals(inv, plainClient())

	assert.True(t, inv.TaxableBase.Equal(dec("380.00")))
	assert.True(t, inv.Lines[0].TaxableBase.Equal(dec("190.00")))
}

func TestComputeTotals_DocumentAmountDiscountAllocation(t *testing.T) {
	// Fixed 30 allocated proportionally: 20 to the 200 line, 10 to the 100 line.
	inv := draftWith(
		line("1", "200.00", VATRate22),
		line("1", "100.00", VATRate22),
	)
	inv.DiscountAmount = dec("30.00")
	NewCalculator().ComputeTotals(inv, plainClient())

	assert.True(t, inv.Lines[0].TaxableBase.Equal(dec("180.00")), "line 1 base: %s", inv.Lines[0].TaxableBase)
	assert.True(t, inv.Lines[1].TaxableBase.Equal(dec("90.00")), "line 2 base: %s", inv.Lines[1].TaxableBase)
	assert.True(t, inv.TaxableBase.Equal(dec("270.00")))
}

func TestComputeTotals_WithholdingFromTaxableBase(t *testing.T) {
	// 1000 base, 22% VAT, 20% withholding on 100% of the base:
	// withholding must be 200.00 (from the base), never 244.00 (from the
	// subtotal), and payable is 1220 - 200 = 1020.
	inv := draftWith(line("1", "1000.00", VATRate22))
	NewCalculator().ComputeTotals(inv, withholdingClient())

	assert.True(t, inv.Withholding.Equal(dec("200.00")), "withholding: %s", inv.Withholding)
	assert.True(t, inv.Payable.Equal(dec("1020.00")), "payable: %s", inv.Payable)
}

func TestComputeTotals_WithholdingReducedTaxBase(t *testing.T) {
	// Only half the base subject to withholding: 1000 * 50% * 20% = 100.
	cl := withholdingClient()
	cl.WithholdingTaxBase = dec("50")
	inv := draftWith(line("1", "1000.00", VATRate22))
	NewCalculator().ComputeTotals(inv, cl)

	assert.True(t, inv.Withholding.Equal(dec("100.00")), "withholding: %s", inv.Withholding)
	assert.True(t, inv.Payable.Equal(dec("1120.00")))
}

func TestComputeTotals_SplitPaymentSuppressesWithholding(t *testing.T) {
	cl := withholdingClient()
	cl.SplitPayment = true
	inv := draftWith(line("1", "1000.00", VATRate22))
	NewCalculator().ComputeTotals(inv, cl)

	assert.True(t, inv.Withholding.IsZero())
	// VAT is still computed and shown on the document.
	assert.True(t, inv.TaxTotal.Equal(dec("220.00")))
	assert.True(t, inv.Payable.Equal(dec("1220.00")))
}

func TestComputeTotals_FlatRateRegime(t *testing.T) {
	cl := flatRateClient()
	cl.Withholding = true
	cl.WithholdingRate = dec("20")
	cl.WithholdingTaxBase = dec("100")

	inv := draftWith(line("1", "500.00", VATRate22))
	NewCalculator().ComputeTotals(inv, cl)

	// No VAT, no withholding, stamp duty because 500 > 77.47.
	assert.True(t, inv.TaxTotal.IsZero())
	assert.True(t, inv.Withholding.IsZero())
	assert.True(t, inv.StampDuty.Equal(dec("2.00")))
	assert.True(t, inv.Payable.Equal(dec("502.00")), "payable: %s", inv.Payable)
}

func TestComputeTotals_StampDutyThreshold(t *testing.T) {
	// Exactly at the threshold: no stamp. One cent above: stamp applies.
	inv := draftWith(line("1", "77.47", VATRate0))
	NewCalculator().ComputeTotals(inv, flatRateClient())
	assert.True(t, inv.StampDuty.IsZero())

	inv = draftWith(line("1", "77.48", VATRate0))
	NewCalculator().ComputeTotals(inv, flatRateClient())
	assert.True(t, inv.StampDuty.Equal(dec("2.00")))
}

func TestComputeTotals_RoundingHalfAwayFromZero(t *testing.T) {
	// 3 * 33.335 = 100.005, rounds to 100.01; tax 100.01 * 22% = 22.0022
	// rounds to 22.00.
	inv := draftWith(line("3", "33.335", VATRate22))
	NewCalculator().ComputeTotals(inv, plainClient())

	assert.True(t, inv.Lines[0].TaxableBase.Equal(dec("100.01")), "base: %s", inv.Lines[0].TaxableBase)
	assert.True(t, inv.Lines[0].TaxAmount.Equal(dec("22.00")))
	assert.True(t, inv.Lines[0].Total.Equal(dec("122.01")))
}

func TestComputeTotals_Idempotent(t *testing.T) {
	inv := draftWith(
		line("3", "19.99", VATRate22),
		line("7", "4.333", VATRate10),
	)
	inv.DiscountPercent = dec("3")

	calc := NewCalculator()
	calc.ComputeTotals(inv, withholdingClient())
	first := inv.Totals

	calc.ComputeTotals(inv, withholdingClient())

	assert.True(t, inv.TaxableBase.Equal(first.TaxableBase))
	assert.True(t, inv.TaxTotal.Equal(first.TaxTotal))
	assert.True(t, inv.Withholding.Equal(first.Withholding))
	assert.True(t, inv.Payable.Equal(first.Payable))
}

func TestComputeTotals_LineInvariants(t *testing.T) {
	inv := draftWith(
		line("3", "19.99", VATRate22),
		line("1", "0.01", VATRate10),
		line("12", "7.777", VATRate4),
	)
	NewCalculator().ComputeTotals(inv, plainClient())

	for i, l := range inv.Lines {
		expectedTax := l.TaxableBase.Mul(l.VATRate.Percent()).Div(dec("100")).Round(2)
		assert.True(t, l.TaxAmount.Equal(expectedTax), "line %d tax: %s != %s", i+1, l.TaxAmount, expectedTax)
		assert.True(t, l.Total.Equal(l.TaxableBase.Add(l.TaxAmount)), "line %d total", i+1)
	}
	assert.True(t, inv.Subtotal.Equal(inv.TaxableBase.Add(inv.TaxTotal)))
}
