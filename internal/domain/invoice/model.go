// Package invoice provides the fiscal document engine: invoices, credit and
// debit notes, their totals computation, lifecycle and derivation rules.
package invoice

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fatture/internal/core/apperror"
	"fatture/internal/core/entity"
	"fatture/internal/core/id"
)

// Status is the document lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// DocType distinguishes invoices from their counter-documents.
type DocType string

const (
	TypeInvoice    DocType = "invoice"
	TypeCreditNote DocType = "credit_note"
	TypeDebitNote  DocType = "debit_note"
)

// IsNote reports whether t is a credit or debit note.
func (t DocType) IsNote() bool {
	return t == TypeCreditNote || t == TypeDebitNote
}

// VATRate is one of the statutory Italian VAT rates.
type VATRate string

const (
	VATRate22 VATRate = "22"
	VATRate10 VATRate = "10"
	VATRate5  VATRate = "5"
	VATRate4  VATRate = "4"
	VATRate0  VATRate = "0"
)

// Valid reports whether r belongs to the enumerated rate set.
func (r VATRate) Valid() bool {
	switch r {
	case VATRate22, VATRate10, VATRate5, VATRate4, VATRate0:
		return true
	}
	return false
}

// Percent returns the rate as a decimal percentage (e.g. 22).
func (r VATRate) Percent() decimal.Decimal {
	d, err := decimal.NewFromString(string(r))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LineItem is a single invoice line. Lines are owned by their document and
// have no independent lifecycle.
type LineItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unitPrice"`
	VATRate     VATRate         `db:"vat_rate" json:"vatRate"`

	// Line-level discount: percentage applied first, then fixed amount.
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discountAmount"`

	// Computed by the line calculator; never set by callers.
	TaxableBase decimal.Decimal `db:"taxable_base" json:"taxableBase"`
	TaxAmount   decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

// Totals holds the document-level computed amounts.
// Totals are always a pure function of items + client fiscal attributes +
// document discount + regime flags. They are never mutated independently.
type Totals struct {
	// TaxableBase is the sum of line taxable bases (imponibile).
	TaxableBase decimal.Decimal `db:"taxable_base" json:"taxableBase"`

	// TaxTotal is the sum of line tax amounts.
	TaxTotal decimal.Decimal `db:"tax_total" json:"taxTotal"`

	// Subtotal is taxable base + tax, before withholding.
	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`

	// Withholding (ritenuta d'acconto), computed from TaxableBase.
	Withholding decimal.Decimal `db:"withholding_amount" json:"withholdingAmount"`

	// StampDuty (bollo), fixed amount for exempt documents above threshold.
	StampDuty decimal.Decimal `db:"stamp_duty" json:"stampDuty"`

	// Payable is the final amount due: Subtotal - Withholding + StampDuty.
	Payable decimal.Decimal `db:"payable" json:"payable"`

	// TaxByRate maps each VAT rate present on the document to its summed tax.
	// Rebuilt from lines, not persisted as a column.
	TaxByRate map[VATRate]decimal.Decimal `db:"-" json:"taxByRate"`
}

// Invoice represents a fiscal document: an invoice, a credit note or a
// debit note (distinguished by Type).
type Invoice struct {
	entity.BaseDocument

	// Number is the progressive document number ("YYYY/NNN").
	// Empty until issuance; assigned exactly once.
	Number string `db:"number" json:"number"`

	Date    time.Time  `db:"date" json:"date"`
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	ClientID id.ID `db:"client_id" json:"clientId"`

	Status Status  `db:"status" json:"status"`
	Type   DocType `db:"doc_type" json:"type"`

	// Document-level discount, allocated proportionally across lines.
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discountAmount"`

	// Linkage to the original document for credit/debit notes.
	OriginalID     *id.ID `db:"original_id" json:"originalId,omitempty"`
	OriginalNumber string `db:"original_number" json:"originalNumber,omitempty"`

	// Reason for issuing a note (free text).
	Reason string `db:"reason" json:"reason,omitempty"`

	Totals

	// Lines is the ordered table part.
	Lines []LineItem `db:"-" json:"lines"`
}

// NewInvoice creates a new draft invoice for a client.
func NewInvoice(clientID id.ID) *Invoice {
	return &Invoice{
		BaseDocument: entity.NewBaseDocument(),
		Date:         time.Now().UTC(),
		ClientID:     clientID,
		Status:       StatusDraft,
		Type:         TypeInvoice,
		Lines:        make([]LineItem, 0),
	}
}

// AddLine appends a line. Totals are NOT recalculated here: computation
// requires the client's fiscal attributes and belongs to the aggregator.
func (inv *Invoice) AddLine(description string, quantity, unitPrice decimal.Decimal, rate VATRate) {
	inv.Lines = append(inv.Lines, LineItem{
		LineID:      id.New(),
		LineNo:      len(inv.Lines) + 1,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     rate,
	})
}

// IsDraft reports whether the document is still editable.
func (inv *Invoice) IsDraft() bool {
	return inv.Status == StatusDraft
}

// CanModify checks whether substantive fields may still change.
// Everything past draft is immutable for its remaining lifetime.
func (inv *Invoice) CanModify() error {
	if !inv.IsDraft() {
		return apperror.NewForbiddenOperation("cannot modify a finalized document").
			WithDetail("document_id", inv.ID.String()).
			WithDetail("status", string(inv.Status))
	}
	return nil
}

// RebuildTaxBreakdown regroups line tax amounts by rate.
// Used after loading lines from storage; the aggregator fills the same map
// during computation.
func (inv *Invoice) RebuildTaxBreakdown() {
	breakdown := make(map[VATRate]decimal.Decimal)
	for _, line := range inv.Lines {
		breakdown[line.VATRate] = breakdown[line.VATRate].Add(line.TaxAmount)
	}
	inv.TaxByRate = breakdown
}

// Validate implements entity.Validatable.
// All violated rules are collected and reported together, never just the first.
func (inv *Invoice) Validate(ctx context.Context) error {
	var violations []string

	if id.IsNil(inv.ClientID) {
		violations = append(violations, "client is required")
	}
	if inv.Date.IsZero() {
		violations = append(violations, "date is required")
	}

	switch inv.Type {
	case TypeInvoice, TypeCreditNote, TypeDebitNote:
	default:
		violations = append(violations, "invalid document type")
	}

	if inv.DiscountPercent.IsNegative() || inv.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		violations = append(violations, "document discount percent must be between 0 and 100")
	}
	if inv.DiscountAmount.IsNegative() {
		violations = append(violations, "document discount amount must not be negative")
	}

	if len(inv.Lines) == 0 {
		violations = append(violations, "at least one line is required")
	}

	for i, line := range inv.Lines {
		violations = append(violations, line.violations(i+1, inv.Type)...)
	}

	if inv.Type.IsNote() {
		if inv.OriginalID == nil || id.IsNil(*inv.OriginalID) || inv.OriginalNumber == "" {
			violations = append(violations, "note must reference the original document id and number")
		}
	}

	if len(violations) > 0 {
		return apperror.NewInvalidInput(violations...)
	}
	return nil
}

// violations collects per-line rule violations.
// Credit notes carry negated quantities, so the positivity rule flips there.
func (l *LineItem) violations(lineNo int, docType DocType) []string {
	var out []string
	prefix := "line " + strconv.Itoa(lineNo) + ": "

	if l.Description == "" {
		out = append(out, prefix+"description is required")
	}
	if docType == TypeCreditNote {
		if l.Quantity.IsZero() {
			out = append(out, prefix+"quantity must not be zero")
		}
	} else if l.Quantity.LessThanOrEqual(decimal.Zero) {
		out = append(out, prefix+"quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		out = append(out, prefix+"unit price must not be negative")
	}
	if !l.VATRate.Valid() {
		out = append(out, prefix+"VAT rate must be one of 22, 10, 5, 4, 0")
	}
	if l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		out = append(out, prefix+"discount percent must be between 0 and 100")
	}
	if l.DiscountAmount.IsNegative() {
		out = append(out, prefix+"discount amount must not be negative")
	}
	return out
}
