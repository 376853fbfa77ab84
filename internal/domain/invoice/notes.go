package invoice

import (
	"github.com/shopspring/decimal"

	"fatture/internal/core/apperror"
	"fatture/internal/core/entity"
	"fatture/internal/core/id"
)

// DeriveCreditNote builds a draft credit note from an issued document.
// Every original line is copied with its quantity negated, so the note's
// amounts mirror the original with the opposite sign. The note links back to
// the original by id and number.
func DeriveCreditNote(original *Invoice, reason string) *Invoice {
	note := &Invoice{
		BaseDocument:    entity.NewBaseDocument(),
		ClientID:        original.ClientID,
		Status:          StatusDraft,
		Type:            TypeCreditNote,
		DiscountPercent: original.DiscountPercent,
		DiscountAmount:  original.DiscountAmount,
		OriginalID:      &original.ID,
		OriginalNumber:  original.Number,
		Reason:          reason,
		Lines:           make([]LineItem, 0, len(original.Lines)),
	}
	note.Date = note.CreatedAt

	for _, line := range original.Lines {
		note.Lines = append(note.Lines, LineItem{
			LineID:          id.New(),
			LineNo:          line.LineNo,
			Description:     line.Description,
			Quantity:        line.Quantity.Neg(),
			UnitPrice:       line.UnitPrice,
			VATRate:         line.VATRate,
			DiscountPercent: line.DiscountPercent,
			DiscountAmount:  line.DiscountAmount,
		})
	}
	return note
}

// DeriveDebitNote builds a draft debit note against an issued document.
// Unlike a credit note, no original lines are copied: the note carries only
// the caller-supplied additional charges.
func DeriveDebitNote(original *Invoice, items []LineItem, reason string) *Invoice {
	note := &Invoice{
		BaseDocument:   entity.NewBaseDocument(),
		ClientID:       original.ClientID,
		Status:         StatusDraft,
		Type:           TypeDebitNote,
		OriginalID:     &original.ID,
		OriginalNumber: original.Number,
		Reason:         reason,
		Lines:          make([]LineItem, 0, len(items)),
	}
	note.Date = note.CreatedAt

	for i, item := range items {
		item.LineID = id.New()
		item.LineNo = i + 1
		// Computed fields are filled by the aggregator.
		item.TaxableBase = decimal.Zero
		item.TaxAmount = decimal.Zero
		item.Total = decimal.Zero
		note.Lines = append(note.Lines, item)
	}
	return note
}

// ValidateNote checks a derived note against its original before persistence.
// All violated rules are reported together. Totals on both documents must
// already be computed.
func ValidateNote(note, original *Invoice) error {
	var violations []string

	if !note.Type.IsNote() {
		violations = append(violations, "document type must be credit note or debit note")
	}

	if note.OriginalID == nil || id.IsNil(*note.OriginalID) || note.OriginalNumber == "" {
		violations = append(violations, "note must reference the original document id and number")
	} else if original != nil {
		if *note.OriginalID != original.ID {
			violations = append(violations, "note reference does not match the original document")
		}
		if original.IsDraft() {
			// A draft was never finalized: amend it directly instead.
			violations = append(violations, "cannot derive a note from a draft document")
		}
		if note.Type == TypeCreditNote {
			// A credit note cannot refund more than was charged.
			if note.Payable.Abs().GreaterThan(original.Payable.Abs()) {
				violations = append(violations, "credit note total exceeds the original document total")
			}
		}
	}

	if len(violations) > 0 {
		return apperror.NewInvalidInput(violations...).
			WithDetail("document_id", note.ID.String())
	}
	return nil
}
