package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/application/service"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/response"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/pagination"
)

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func toItemInputs(items []request.InvoiceItemRequest) []service.InvoiceItemInput {
	out := make([]service.InvoiceItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, service.InvoiceItemInput{
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Currency:      item.Currency,
			ExchangeRate:  item.ExchangeRate,
			DiscountType:  item.DiscountType,
			DiscountValue: item.DiscountValue,
		})
	}
	return out
}

// toCreateInput maps the request body. Malformed dates are reported as field errors.
func toCreateInput(userID uuid.UUID, req *request.CreateInvoiceRequest) (*service.CreateInvoiceInput, []apperror.FieldError) {
	var errs []apperror.FieldError
	input := &service.CreateInvoiceInput{
		UserID:                         userID,
		ClientID:                       req.ClientID,
		InvoiceNumber:                  req.InvoiceNumber,
		Status:                         req.Status,
		IssueDate:                      parseDate("issue_date", req.IssueDate, &errs),
		DueDate:                        parseDate("due_date", req.DueDate, &errs),
		Currency:                       req.Currency,
		TaxRate:                        req.TaxRate,
		DiscountType:                   req.DiscountType,
		DiscountValue:                  req.DiscountValue,
		ApplyDiscountToDiscountedItems: req.ApplyDiscountToDiscountedItems,
		Notes:                          req.Notes,
		Items:                          toItemInputs(req.Items),
	}
	return input, errs
}

// Create handles invoice creation
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	input, errs := toCreateInput(userID, &req)
	if len(errs) > 0 {
		response.ValidationError(c, errs)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Invoice created successfully", invoice)
}

// Preview prices an invoice payload without saving it
func (h *InvoiceHandler) Preview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	input, errs := toCreateInput(userID, &req)
	if len(errs) > 0 {
		response.ValidationError(c, errs)
		return
	}

	preview, err := h.invoiceService.PreviewInvoice(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice preview calculated", response.NewInvoicePreviewResponse(preview))
}

// Get handles getting an invoice by ID
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice retrieved successfully", invoice)
}

// List handles listing invoices of the current tenant
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter request.InvoiceFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}

	input := &service.ListInvoicesInput{
		Pagination: &pagination.PaginationParams{Page: filter.Page, PerPage: filter.PerPage},
		Search:     filter.Search,
		Status:     filter.Status,
		SortBy:     filter.SortBy,
		SortOrder:  filter.SortOrder,
	}
	if filter.ClientID != "" {
		clientID, err := uuid.Parse(filter.ClientID)
		if err != nil {
			response.BadRequest(c, "Invalid client_id")
			return
		}
		input.ClientID = &clientID
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, "Invoices retrieved successfully", result)
}

// Update handles partial invoice updates
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req request.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var errs []apperror.FieldError
	input := &service.UpdateInvoiceInput{
		ClientID:                       req.ClientID,
		InvoiceNumber:                  req.InvoiceNumber,
		Status:                         req.Status,
		IssueDate:                      parseDate("issue_date", req.IssueDate, &errs),
		DueDate:                        parseDate("due_date", req.DueDate, &errs),
		Currency:                       req.Currency,
		TaxRate:                        req.TaxRate,
		DiscountType:                   req.DiscountType,
		DiscountValue:                  req.DiscountValue,
		ApplyDiscountToDiscountedItems: req.ApplyDiscountToDiscountedItems,
		Notes:                          req.Notes,
	}
	if len(errs) > 0 {
		response.ValidationError(c, errs)
		return
	}
	if req.Items != nil {
		items := toItemInputs(*req.Items)
		input.Items = &items
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice updated successfully", invoice)
}

// UpdateStatus changes the status of an invoice
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req request.UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice status updated successfully", invoice)
}

// Send emails the invoice to its client
func (h *InvoiceHandler) Send(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.SendInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice sent successfully", invoice)
}

// Delete handles invoice deletion
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice deleted successfully", nil)
}
