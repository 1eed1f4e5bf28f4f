package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/invoicely-api/internal/application/service"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/response"
	"github.com/sangkips/invoicely-api/pkg/apperror"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves spreadsheet exports
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ExportInvoices streams an XLSX of invoices issued between from and to, inclusive.
func (h *ReportHandler) ExportInvoices(c *gin.Context) {
	var req request.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	var errs []apperror.FieldError
	from := parseDate("from", &req.From, &errs)
	to := parseDate("to", &req.To, &errs)
	if len(errs) > 0 {
		response.ValidationError(c, errs)
		return
	}
	if from == nil || to == nil {
		response.Error(c, apperror.NewMissingFieldsError([]string{"from", "to"}))
		return
	}

	report, err := h.reportService.ExportInvoices(c.Request.Context(), *from, to.AddDate(0, 0, 1))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, xlsxContentType, report.Content)
}
