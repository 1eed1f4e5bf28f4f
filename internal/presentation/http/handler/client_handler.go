package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/invoicely-api/internal/application/service"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/response"
	"github.com/sangkips/invoicely-api/pkg/pagination"
)

// ClientHandler handles client-related HTTP requests
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

func toClientInput(req *request.ClientRequest) *service.ClientInput {
	return &service.ClientInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Address:   req.Address,
		TaxNumber: req.TaxNumber,
	}
}

// List handles listing clients (page-based, or cursor-based when cursor or limit is given)
func (h *ClientHandler) List(c *gin.Context) {
	var filter request.ClientFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}

	if filter.Cursor != "" || filter.Limit > 0 {
		params := &pagination.CursorParams{Cursor: filter.Cursor, Limit: filter.Limit}
		result, err := h.clientService.ListClientsWithCursor(c.Request.Context(), params, filter.Search)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.SuccessWithCursor(c, "Clients retrieved successfully", result)
		return
	}

	params := &pagination.PaginationParams{Page: filter.Page, PerPage: filter.PerPage}
	result, err := h.clientService.ListClients(c.Request.Context(), params, filter.Search)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, "Clients retrieved successfully", result)
}

// Get handles getting a client by ID
func (h *ClientHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Client retrieved successfully", client)
}

// Create handles client creation
func (h *ClientHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), userID, toClientInput(&req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Client created successfully", client)
}

// Update handles client updates
func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req request.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), id, toClientInput(&req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Client updated successfully", client)
}

// Delete handles client deletion
func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Client deleted successfully", nil)
}
