package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"fatture/internal/core/id"
	"fatture/internal/domain/invoice"
)

// LineItemRequest is an invoice line as submitted by the caller.
// Computed amounts are never accepted from outside.
type LineItemRequest struct {
	Description     string          `json:"description" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	VATRate         string          `json:"vatRate" binding:"required"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
}

// ToEntity converts the request line to a domain line.
func (r LineItemRequest) ToEntity(lineNo int) invoice.LineItem {
	return invoice.LineItem{
		LineID:          id.New(),
		LineNo:          lineNo,
		Description:     r.Description,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		VATRate:         invoice.VATRate(r.VATRate),
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
	}
}

// LineItemResponse is an invoice line with its computed amounts.
type LineItemResponse struct {
	LineID          string          `json:"lineId"`
	LineNo          int             `json:"lineNo"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	VATRate         string          `json:"vatRate"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxableBase     decimal.Decimal `json:"taxableBase"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	Total           decimal.Decimal `json:"total"`
}

func fromLine(l invoice.LineItem) LineItemResponse {
	return LineItemResponse{
		LineID:          l.LineID.String(),
		LineNo:          l.LineNo,
		Description:     l.Description,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		VATRate:         string(l.VATRate),
		DiscountPercent: l.DiscountPercent,
		DiscountAmount:  l.DiscountAmount,
		TaxableBase:     l.TaxableBase,
		TaxAmount:       l.TaxAmount,
		Total:           l.Total,
	}
}

// CreateInvoiceRequest for creating draft documents.
type CreateInvoiceRequest struct {
	ClientID string            `json:"clientId" binding:"required"`
	Date     *time.Time        `json:"date"`
	DueDate  *time.Time        `json:"dueDate"`
	Lines    []LineItemRequest `json:"lines" binding:"required"`

	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
}

// ToEntity converts the request to a draft document.
// An unparseable client id yields a nil-ID document that fails validation
// with the rest of the violations.
func (r CreateInvoiceRequest) ToEntity() *invoice.Invoice {
	clientID, _ := id.Parse(r.ClientID)
	doc := invoice.NewInvoice(clientID)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.DueDate = r.DueDate
	doc.DiscountPercent = r.DiscountPercent
	doc.DiscountAmount = r.DiscountAmount
	for i, line := range r.Lines {
		doc.Lines = append(doc.Lines, line.ToEntity(i+1))
	}
	return doc
}

// UpdateInvoiceRequest replaces a draft's substantive fields.
// Lines are always replaced wholesale; partial line edits are not supported.
type UpdateInvoiceRequest struct {
	ClientID string            `json:"clientId" binding:"required"`
	Date     *time.Time        `json:"date"`
	DueDate  *time.Time        `json:"dueDate"`
	Lines    []LineItemRequest `json:"lines" binding:"required"`

	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`

	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the request to an existing document.
func (r UpdateInvoiceRequest) ApplyTo(doc *invoice.Invoice) {
	if clientID, err := id.Parse(r.ClientID); err == nil {
		doc.ClientID = clientID
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.DueDate = r.DueDate
	doc.DiscountPercent = r.DiscountPercent
	doc.DiscountAmount = r.DiscountAmount
	doc.Lines = doc.Lines[:0]
	for i, line := range r.Lines {
		doc.Lines = append(doc.Lines, line.ToEntity(i+1))
	}
	doc.SetVersion(r.Version)
}

// CreateNoteRequest for deriving credit notes.
type CreateNoteRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateDebitNoteRequest for deriving debit notes with additional charges.
type CreateDebitNoteRequest struct {
	Reason string            `json:"reason" binding:"required"`
	Lines  []LineItemRequest `json:"lines" binding:"required"`
}

// ToLines converts the request lines to domain lines.
func (r CreateDebitNoteRequest) ToLines() []invoice.LineItem {
	lines := make([]invoice.LineItem, 0, len(r.Lines))
	for i, line := range r.Lines {
		lines = append(lines, line.ToEntity(i+1))
	}
	return lines
}

// TotalsResponse carries the document-level computed amounts.
type TotalsResponse struct {
	TaxableBase decimal.Decimal            `json:"taxableBase"`
	TaxTotal    decimal.Decimal            `json:"taxTotal"`
	Subtotal    decimal.Decimal            `json:"subtotal"`
	Withholding decimal.Decimal            `json:"withholdingAmount"`
	StampDuty   decimal.Decimal            `json:"stampDuty"`
	Payable     decimal.Decimal            `json:"payable"`
	TaxByRate   map[string]decimal.Decimal `json:"taxByRate"`
}

// InvoiceResponse contains document fields.
type InvoiceResponse struct {
	BaseResponse
	Number   string     `json:"number,omitempty"`
	Date     time.Time  `json:"date"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	ClientID string     `json:"clientId"`
	Status   string     `json:"status"`
	Type     string     `json:"type"`

	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`

	OriginalID     string `json:"originalId,omitempty"`
	OriginalNumber string `json:"originalNumber,omitempty"`
	Reason         string `json:"reason,omitempty"`

	Totals TotalsResponse     `json:"totals"`
	Lines  []LineItemResponse `json:"lines"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// FromInvoice creates InvoiceResponse from a domain document.
func FromInvoice(doc *invoice.Invoice) *InvoiceResponse {
	taxByRate := make(map[string]decimal.Decimal, len(doc.TaxByRate))
	for rate, tax := range doc.TaxByRate {
		taxByRate[string(rate)] = tax
	}

	lines := make([]LineItemResponse, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, fromLine(l))
	}

	resp := &InvoiceResponse{
		BaseResponse:    FromBaseEntity(doc.BaseEntity),
		Number:          doc.Number,
		Date:            doc.Date,
		DueDate:         doc.DueDate,
		ClientID:        doc.ClientID.String(),
		Status:          string(doc.Status),
		Type:            string(doc.Type),
		DiscountPercent: doc.DiscountPercent,
		DiscountAmount:  doc.DiscountAmount,
		OriginalNumber:  doc.OriginalNumber,
		Reason:          doc.Reason,
		Totals: TotalsResponse{
			TaxableBase: doc.TaxableBase,
			TaxTotal:    doc.TaxTotal,
			Subtotal:    doc.Subtotal,
			Withholding: doc.Withholding,
			StampDuty:   doc.StampDuty,
			Payable:     doc.Payable,
			TaxByRate:   taxByRate,
		},
		Lines:     lines,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		CreatedBy: doc.CreatedBy,
		UpdatedBy: doc.UpdatedBy,
	}
	if doc.OriginalID != nil {
		resp.OriginalID = doc.OriginalID.String()
	}
	return resp
}

// InvoiceListResponse for document lists.
type InvoiceListResponse struct {
	Items      []*InvoiceResponse `json:"items"`
	TotalCount int                `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}
