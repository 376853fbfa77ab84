package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/domain"
	"fatture/internal/domain/invoice"
	"fatture/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for fiscal documents.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new document handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers document routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)

	// Lifecycle operations
	rg.POST("/:id/issue", h.Issue)
	rg.POST("/:id/send", h.MarkSent)
	rg.POST("/:id/pay", h.MarkPaid)
	rg.POST("/:id/overdue", h.MarkOverdue)
	rg.POST("/:id/cancel", h.Cancel)

	// Note derivation
	rg.POST("/:id/credit-note", h.CreateCreditNote)
	rg.POST("/:id/debit-note", h.CreateDebitNote)
}

func (h *InvoiceHandler) docID(c *gin.Context) (id.ID, bool) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid id format"))
		return id.Nil(), false
	}
	return docID, true
}

// Create handles POST /invoices - creates a draft with computed totals.
func (h *InvoiceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity()
	if err := h.service.Create(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromInvoice(doc))
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	docID, ok := h.docID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(doc))
}

// Update handles PUT /invoices/:id - drafts only.
func (h *InvoiceHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.docID(c)
	if !ok {
		return
	}

	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(doc)

	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(doc))
}

// Delete handles DELETE /invoices/:id - drafts only.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	docID, ok := h.docID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Issue handles POST /invoices/:id/issue - finalizes the draft and assigns
// the progressive number.
func (h *InvoiceHandler) Issue(c *gin.Context) {
	h.transition(c, h.service.Issue)
}

// MarkSent handles POST /invoices/:id/send.
func (h *InvoiceHandler) MarkSent(c *gin.Context) {
	h.transition(c, h.service.MarkSent)
}

// MarkPaid handles POST /invoices/:id/pay.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.service.MarkPaid)
}

// MarkOverdue handles POST /invoices/:id/overdue.
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	h.transition(c, h.service.MarkOverdue)
}

// Cancel handles POST /invoices/:id/cancel.
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *InvoiceHandler) transition(c *gin.Context, op func(ctx context.Context, docID id.ID) (*invoice.Invoice, error)) {
	docID, ok := h.docID(c)
	if !ok {
		return
	}

	doc, err := op(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(doc))
}

// CreateCreditNote handles POST /invoices/:id/credit-note.
func (h *InvoiceHandler) CreateCreditNote(c *gin.Context) {
	docID, ok := h.docID(c)
	if !ok {
		return
	}

	var req dto.CreateNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.service.CreateCreditNote(c.Request.Context(), docID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromInvoice(note))
}

// CreateDebitNote handles POST /invoices/:id/debit-note.
func (h *InvoiceHandler) CreateDebitNote(c *gin.Context) {
	docID, ok := h.docID(c)
	if !ok {
		return
	}

	var req dto.CreateDebitNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.service.CreateDebitNote(c.Request.Context(), docID, req.ToLines(), req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromInvoice(note))
}

// List handles GET /invoices with filtering.
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if clientID := c.Query("clientId"); clientID != "" {
		if parsed, err := id.Parse(clientID); err == nil {
			filter.ClientID = &parsed
		}
	}
	if status := c.Query("status"); status != "" {
		val := invoice.Status(status)
		filter.Status = &val
	}
	if docType := c.Query("type"); docType != "" {
		val := invoice.DocType(docType)
		filter.Type = &val
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.InvoiceResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromInvoice(doc)
	}

	h.OK(c, dto.InvoiceListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
