package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/domain"
	"fatture/internal/domain/client"
	"fatture/internal/domain/fiscal"
	"fatture/internal/infrastructure/http/v1/dto"
)

// ClientHandler handles HTTP requests for the client catalog.
type ClientHandler struct {
	*BaseHandler
	service *client.Service
}

// NewClientHandler creates a new client handler.
func NewClientHandler(base *BaseHandler, service *client.Service) *ClientHandler {
	return &ClientHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers client routes.
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/validate-codes", h.ValidateCodes)
}

// Create handles POST /clients.
func (h *ClientHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entity := req.ToEntity()
	if err := h.service.Create(ctx, entity); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromClient(entity))
}

// Get handles GET /clients/:id.
func (h *ClientHandler) Get(c *gin.Context) {
	clientID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid id format"))
		return
	}

	entity, err := h.service.GetByID(c.Request.Context(), clientID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromClient(entity))
}

// Update handles PUT /clients/:id.
func (h *ClientHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	clientID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid id format"))
		return
	}

	var req dto.UpdateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entity, err := h.service.GetByID(ctx, clientID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(entity)

	if err := h.service.Update(ctx, entity); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromClient(entity))
}

// Delete handles DELETE /clients/:id (soft delete).
func (h *ClientHandler) Delete(c *gin.Context) {
	clientID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), clientID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /clients with filtering.
func (h *ClientHandler) List(c *gin.Context) {
	filter := client.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if category := c.Query("category"); category != "" {
		val := client.Category(category)
		filter.Category = &val
	}
	if split := c.Query("splitPayment"); split != "" {
		val := split == "true"
		filter.SplitPayment = &val
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.ClientResponse, len(result.Items))
	for i, entity := range result.Items {
		items[i] = dto.FromClient(entity)
	}

	h.OK(c, dto.ClientListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// ValidateCodes handles POST /clients/validate-codes: standalone checksum
// validation without persisting anything.
func (h *ClientHandler) ValidateCodes(c *gin.Context) {
	var req dto.ValidateFiscalCodeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if req.VATNumber == "" && req.TaxCode == "" {
		h.Error(c, apperror.NewInvalidInput("at least one of vatNumber and taxCode is required"))
		return
	}

	resp := dto.ValidateFiscalCodeResponse{CheckedAt: time.Now().UTC()}
	if req.VATNumber != "" {
		valid := fiscal.IsValidVATNumber(req.VATNumber)
		resp.VATNumberValid = &valid
	}
	if req.TaxCode != "" {
		valid := fiscal.IsValidTaxCode(req.TaxCode)
		resp.TaxCodeValid = &valid
	}

	h.OK(c, resp)
}
