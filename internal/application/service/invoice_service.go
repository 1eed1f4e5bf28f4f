package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/config"
	"github.com/sangkips/invoicely-api/internal/domain/billing"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/internal/infrastructure/cache"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/internal/observability/logger"
	"github.com/sangkips/invoicely-api/internal/observability/metrics"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/email"
	"github.com/sangkips/invoicely-api/pkg/pagination"
	"github.com/sangkips/invoicely-api/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService validates, prices and persists invoices. Every write keeps
// the item rows and the stored financial snapshot consistent.
type InvoiceService struct {
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	tenantRepo  repository.TenantRepository
	notifier    email.InvoiceSender
	dashboard   *cache.DashboardCache
	metrics     *metrics.Metrics
	billing     config.BillingConfig
	now         func() time.Time
}

// NewInvoiceService creates a new invoice service. notifier, dashboard and m may be nil.
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	tenantRepo repository.TenantRepository,
	notifier email.InvoiceSender,
	dashboard *cache.DashboardCache,
	m *metrics.Metrics,
	billingCfg config.BillingConfig,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		tenantRepo:  tenantRepo,
		notifier:    notifier,
		dashboard:   dashboard,
		metrics:     m,
		billing:     billingCfg,
		now:         time.Now,
	}
}

// UpdateInvoiceInput is a partial update. Nil fields keep their stored value;
// a non-nil Items replaces every stored line.
type UpdateInvoiceInput struct {
	ClientID                       *uuid.UUID
	InvoiceNumber                  *string
	Status                         *string
	IssueDate                      *time.Time
	DueDate                        *time.Time
	Currency                       *string
	TaxRate                        *decimal.Decimal
	DiscountType                   *string
	DiscountValue                  *decimal.Decimal
	ApplyDiscountToDiscountedItems *bool
	Notes                          *string
	Items                          *[]InvoiceItemInput
}

// termsChanged reports whether any input of the financial snapshot was supplied.
func (in *UpdateInvoiceInput) termsChanged() bool {
	return in.TaxRate != nil ||
		in.DiscountType != nil ||
		in.DiscountValue != nil ||
		in.ApplyDiscountToDiscountedItems != nil ||
		in.Currency != nil
}

// ListInvoicesInput represents the input for listing invoices
type ListInvoicesInput struct {
	Pagination *pagination.PaginationParams
	Search     string
	Status     string
	ClientID   *uuid.UUID
	UserID     *uuid.UUID
	SortBy     string
	SortOrder  string
}

// InvoicePreview is the result of pricing an invoice without saving it.
type InvoicePreview struct {
	Currency               string
	Financials             billing.Financials
	SuggestedDueDate       *time.Time
	SuggestedInvoiceNumber string
}

// tenantDefaults resolves request defaults from the tenant settings, falling
// back to the service configuration.
func (s *InvoiceService) tenantDefaults(ctx context.Context) (invoiceDefaults, *entity.Tenant) {
	defaults := invoiceDefaults{
		Currency:               s.billing.DefaultCurrency,
		TaxRate:                decimal.Zero,
		ApplyToDiscountedItems: s.billing.ApplyDiscountToDiscountedItems,
	}
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok || s.tenantRepo == nil {
		return defaults, nil
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to load tenant settings", zap.Error(err))
		return defaults, nil
	}
	if tenant == nil {
		return defaults, nil
	}
	if tenant.Settings.Currency != "" {
		defaults.Currency = strings.ToUpper(tenant.Settings.Currency)
	}
	if tenant.Settings.DefaultTaxRate > 0 {
		defaults.TaxRate = billing.Money(tenant.Settings.DefaultTaxRate)
	}
	return defaults, tenant
}

func (s *InvoiceService) requireClient(ctx context.Context, id uuid.UUID) error {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.NewPersistenceError("load client", err)
	}
	if client == nil {
		return apperror.NewNotFoundError("Client")
	}
	return nil
}

// CreateInvoice validates the input, computes the financial snapshot and
// stores the invoice with its items. A failed item insert never leaves the
// invoice row behind.
func (s *InvoiceService) CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*entity.Invoice, error) {
	log := logger.FromContext(ctx)

	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	defaults, _ := s.tenantDefaults(ctx)
	valid, err := validateInvoice(input, defaults, gateCreate)
	if err != nil {
		s.metrics.InvoiceCreated("invalid")
		return nil, err
	}
	if err := s.requireClient(ctx, valid.ClientID); err != nil {
		s.metrics.InvoiceCreated("invalid")
		return nil, err
	}

	financials := billing.Aggregate(valid.Items, valid.Terms)
	s.metrics.Recalculated("create")

	invoice := &entity.Invoice{
		ID:                             uuid.New(),
		TenantID:                       tenantID,
		UserID:                         input.UserID,
		ClientID:                       valid.ClientID,
		InvoiceNumber:                  valid.InvoiceNumber,
		Status:                         valid.Status,
		IssueDate:                      valid.IssueDate,
		DueDate:                        valid.DueDate,
		Currency:                       valid.Terms.Currency,
		TaxRate:                        billing.ToFloat(valid.Terms.TaxRate),
		DiscountType:                   valid.Terms.DiscountType,
		DiscountValue:                  billing.ToFloat(valid.Terms.DiscountValue),
		ApplyDiscountToDiscountedItems: valid.Terms.ApplyToDiscountedItems,
		Notes:                          valid.Notes,
	}
	invoice.ApplyFinancials(financials)
	stampStatus(invoice, s.now())
	items := buildItems(invoice.ID, valid.Items)

	inserted := false
	err = s.invoiceRepo.Transaction(ctx, func(repo repository.InvoiceRepository) error {
		if err := repo.Create(ctx, invoice); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		inserted = true
		if err := repo.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("insert invoice items: %w", err)
		}
		return nil
	})
	if err != nil {
		if inserted {
			s.compensateCreate(ctx, invoice.ID)
		}
		s.metrics.InvoiceCreated("error")
		log.Error("failed to create invoice",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
		return nil, apperror.NewPersistenceError("create invoice", err)
	}

	s.metrics.InvoiceCreated("success")
	s.invalidateDashboard(ctx, tenantID)
	log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("total", financials.Total.StringFixed(2)),
		zap.String("currency", invoice.Currency),
	)

	return s.GetInvoice(ctx, invoice.ID)
}

// compensateCreate removes an invoice whose items could not be written, for
// stores where the transaction did not roll the row back.
func (s *InvoiceService) compensateCreate(ctx context.Context, id uuid.UUID) {
	s.metrics.CreateRolledBack()
	log := logger.FromContext(ctx).With(zap.String("invoice_id", id.String()))

	existing, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		log.Error("failed to check invoice after failed create", zap.Error(err))
		return
	}
	if existing == nil {
		return
	}
	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		log.Error("compensating delete failed", zap.Error(err))
		return
	}
	log.Warn("removed invoice left behind by failed create")
}

// GetInvoice retrieves an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NewPersistenceError("load invoice", err)
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return invoice, nil
}

// ListInvoices lists invoices of the current tenant
func (s *InvoiceService) ListInvoices(ctx context.Context, input *ListInvoicesInput) (*pagination.PaginatedResult[entity.Invoice], error) {
	if input.Pagination == nil {
		input.Pagination = &pagination.PaginationParams{}
	}
	input.Pagination.Validate()

	params := &repository.InvoiceFilterParams{
		Pagination: input.Pagination,
		Search:     input.Search,
		ClientID:   input.ClientID,
		UserID:     input.UserID,
		SortBy:     input.SortBy,
		SortOrder:  input.SortOrder,
	}
	if input.Status != "" {
		status, err := enum.ParseInvoiceStatus(input.Status)
		if err != nil {
			return nil, apperror.NewValidationError([]apperror.FieldError{
				{Field: "status", Message: err.Error()},
			})
		}
		params.Status = &status
	}

	invoices, total, err := s.invoiceRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.NewPersistenceError("list invoices", err)
	}

	pag := pagination.NewPagination(input.Pagination.Page, input.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(invoices, pag), nil
}

// UpdateInvoice applies a partial update. Supplying items replaces every
// stored line. Supplying items or any term recomputes the whole financial
// snapshot, using the stored items when none are supplied. Item replacement
// and the snapshot write share one transaction.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, input *UpdateInvoiceInput) (*entity.Invoice, error) {
	current, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Items == nil && input.Currency != nil {
		newCurrency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if !billing.SameCurrency(newCurrency, current.Currency) {
			return nil, apperror.NewValidationError([]apperror.FieldError{
				{Field: "items", Message: "must be resupplied when the invoice currency changes"},
			})
		}
	}

	merged := mergeUpdate(current, input)
	valid, err := validateInvoice(merged, invoiceDefaults{
		Currency:               current.Currency,
		TaxRate:                billing.Money(current.TaxRate),
		ApplyToDiscountedItems: current.ApplyDiscountToDiscountedItems,
	}, gateCreate)
	if err != nil {
		return nil, err
	}

	if valid.ClientID != current.ClientID {
		if err := s.requireClient(ctx, valid.ClientID); err != nil {
			return nil, err
		}
	}

	previousStatus := current.Status
	current.ClientID = valid.ClientID
	current.InvoiceNumber = valid.InvoiceNumber
	current.Status = valid.Status
	current.IssueDate = valid.IssueDate
	current.DueDate = valid.DueDate
	current.Currency = valid.Terms.Currency
	current.TaxRate = billing.ToFloat(valid.Terms.TaxRate)
	current.DiscountType = valid.Terms.DiscountType
	current.DiscountValue = billing.ToFloat(valid.Terms.DiscountValue)
	current.ApplyDiscountToDiscountedItems = valid.Terms.ApplyToDiscountedItems
	current.Notes = valid.Notes
	if current.Status != previousStatus {
		stampStatus(current, s.now())
	}

	var items []entity.InvoiceItem
	switch {
	case input.Items != nil:
		items = buildItems(current.ID, valid.Items)
		current.ApplyFinancials(billing.Aggregate(valid.Items, valid.Terms))
		s.metrics.Recalculated("items")
	case input.termsChanged():
		current.ApplyFinancials(billing.Aggregate(valid.Items, valid.Terms))
		s.metrics.Recalculated("terms")
	}

	current.Items = nil
	current.Client = nil
	err = s.invoiceRepo.Transaction(ctx, func(repo repository.InvoiceRepository) error {
		if items != nil {
			if err := repo.ReplaceItems(ctx, current.ID, items); err != nil {
				return fmt.Errorf("replace invoice items: %w", err)
			}
		}
		if err := repo.Save(ctx, current); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to update invoice", zap.String("invoice_id", id.String()), zap.Error(err))
		return nil, apperror.NewPersistenceError("update invoice", err)
	}

	s.invalidateDashboard(ctx, current.TenantID)
	return s.GetInvoice(ctx, id)
}

// mergeUpdate overlays the supplied fields on the stored invoice so the
// result can pass through the same gate as a new invoice.
func mergeUpdate(current *entity.Invoice, in *UpdateInvoiceInput) *CreateInvoiceInput {
	clientID := current.ClientID
	issue := current.IssueDate
	due := current.DueDate
	taxRate := billing.Money(current.TaxRate)
	discountValue := billing.Money(current.DiscountValue)
	apply := current.ApplyDiscountToDiscountedItems

	merged := &CreateInvoiceInput{
		UserID:                         current.UserID,
		ClientID:                       &clientID,
		InvoiceNumber:                  current.InvoiceNumber,
		Status:                         string(current.Status),
		IssueDate:                      &issue,
		DueDate:                        &due,
		Currency:                       current.Currency,
		TaxRate:                        &taxRate,
		DiscountType:                   string(current.DiscountType),
		DiscountValue:                  &discountValue,
		ApplyDiscountToDiscountedItems: &apply,
		Notes:                          current.Notes,
		Items:                          itemInputs(current.Items),
	}

	if in.ClientID != nil {
		merged.ClientID = in.ClientID
	}
	if in.InvoiceNumber != nil {
		merged.InvoiceNumber = *in.InvoiceNumber
	}
	if in.Status != nil {
		merged.Status = *in.Status
	}
	if in.IssueDate != nil {
		merged.IssueDate = in.IssueDate
	}
	if in.DueDate != nil {
		merged.DueDate = in.DueDate
	}
	if in.Currency != nil {
		merged.Currency = *in.Currency
	}
	if in.TaxRate != nil {
		merged.TaxRate = in.TaxRate
	}
	if in.DiscountType != nil {
		merged.DiscountType = *in.DiscountType
	}
	if in.DiscountValue != nil {
		merged.DiscountValue = in.DiscountValue
	}
	if in.ApplyDiscountToDiscountedItems != nil {
		merged.ApplyDiscountToDiscountedItems = in.ApplyDiscountToDiscountedItems
	}
	if in.Notes != nil {
		merged.Notes = in.Notes
	}
	if in.Items != nil {
		merged.Items = *in.Items
	}
	return merged
}

// DeleteInvoice hard-deletes the invoice and its items in one transaction.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	err = s.invoiceRepo.Transaction(ctx, func(repo repository.InvoiceRepository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to delete invoice", zap.String("invoice_id", id.String()), zap.Error(err))
		return apperror.NewPersistenceError("delete invoice", err)
	}

	s.invalidateDashboard(ctx, invoice.TenantID)
	return nil
}

// UpdateStatus moves an invoice to any status. The financial snapshot is untouched.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (*entity.Invoice, error) {
	status, err := enum.ParseInvoiceStatus(raw)
	if err != nil {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "status", Message: "must be one of draft, sent, paid, overdue, cancelled"},
		})
	}

	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, status, s.now()); err != nil {
		return nil, apperror.NewPersistenceError("update invoice status", err)
	}
	s.metrics.StatusChanged(string(status))
	s.invalidateDashboard(ctx, invoice.TenantID)

	return s.GetInvoice(ctx, id)
}

// PreviewInvoice prices an invoice without storing it. Header fields are
// optional; when no due date is given one is suggested from the tenant's
// payment terms.
func (s *InvoiceService) PreviewInvoice(ctx context.Context, input *CreateInvoiceInput) (*InvoicePreview, error) {
	defaults, tenant := s.tenantDefaults(ctx)
	valid, err := validateInvoice(input, defaults, gatePreview)
	if err != nil {
		return nil, err
	}

	settings := entity.DefaultTenantSettings()
	if tenant != nil {
		settings = tenant.Settings
	}

	preview := &InvoicePreview{
		Currency:   valid.Terms.Currency,
		Financials: billing.Aggregate(valid.Items, valid.Terms),
	}
	if input.DueDate == nil {
		issue := truncateDate(s.now())
		if input.IssueDate != nil {
			issue = valid.IssueDate
		}
		due := billing.AddBusinessDays(issue, settings.PaymentTermsDays)
		preview.SuggestedDueDate = &due
	}
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		prefix := settings.InvoicePrefix
		if prefix == "" {
			prefix = "INV-"
		}
		preview.SuggestedInvoiceNumber = utils.GenerateInvoiceNo(prefix, s.now())
	}
	return preview, nil
}

// SendInvoice emails the invoice to its client. Draft invoices become sent.
func (s *InvoiceService) SendInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return nil, apperror.NewAppError(http.StatusServiceUnavailable, "Email delivery is not configured")
	}
	if invoice.Client == nil || invoice.Client.Email == nil || *invoice.Client.Email == "" {
		return nil, apperror.NewBadRequestError("Client has no email address")
	}
	if invoice.Status == enum.InvoiceStatusCancelled {
		return nil, apperror.NewBadRequestError("Cancelled invoices cannot be sent")
	}

	_, tenant := s.tenantDefaults(ctx)
	msg := invoiceMessage(invoice, tenant)
	if err := s.notifier.SendInvoice(ctx, msg); err != nil {
		logger.FromContext(ctx).Error("failed to send invoice email",
			zap.String("invoice_id", id.String()),
			zap.Error(err),
		)
		return nil, apperror.NewAppError(http.StatusBadGateway, "Failed to send invoice email")
	}

	if invoice.Status == enum.InvoiceStatusDraft || invoice.Status == enum.InvoiceStatusSent {
		if err := s.invoiceRepo.UpdateStatus(ctx, id, enum.InvoiceStatusSent, s.now()); err != nil {
			return nil, apperror.NewPersistenceError("mark invoice sent", err)
		}
		s.metrics.StatusChanged(string(enum.InvoiceStatusSent))
		s.invalidateDashboard(ctx, invoice.TenantID)
	}

	return s.GetInvoice(ctx, id)
}

func invoiceMessage(invoice *entity.Invoice, tenant *entity.Tenant) email.InvoiceMessage {
	tenantName := "Invoicely"
	taxLabel := "Tax"
	if tenant != nil {
		tenantName = tenant.Name
		if tenant.Settings.TaxLabel != "" {
			taxLabel = tenant.Settings.TaxLabel
		}
	}

	lines := make([]email.InvoiceLine, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, email.InvoiceLine{
			Description: item.Description,
			Quantity:    billing.Money(item.Quantity).String(),
			UnitPrice:   item.Currency + " " + billing.Money(item.UnitPrice).StringFixed(2),
			Amount:      billing.Money(item.Amount).StringFixed(2),
		})
	}

	msg := email.InvoiceMessage{
		To:            *invoice.Client.Email,
		ClientName:    invoice.Client.Name,
		TenantName:    tenantName,
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceID:     invoice.ID.String(),
		Currency:      invoice.Currency,
		IssueDate:     invoice.IssueDate.Format("2006-01-02"),
		DueDate:       invoice.DueDate.Format("2006-01-02"),
		Subtotal:      billing.Money(invoice.Subtotal).StringFixed(2),
		Discount:      billing.Money(invoice.DiscountAmount).StringFixed(2),
		TaxLabel:      taxLabel,
		Tax:           billing.Money(invoice.TaxAmount).StringFixed(2),
		Total:         billing.Money(invoice.Total).StringFixed(2),
		Lines:         lines,
	}
	if invoice.Notes != nil {
		msg.Notes = *invoice.Notes
	}
	return msg
}

// stampStatus records when an invoice first became sent or paid.
func stampStatus(invoice *entity.Invoice, now time.Time) {
	switch invoice.Status {
	case enum.InvoiceStatusSent:
		if invoice.SentAt == nil {
			invoice.SentAt = &now
		}
	case enum.InvoiceStatusPaid:
		if invoice.PaidAt == nil {
			invoice.PaidAt = &now
		}
	}
}

func (s *InvoiceService) invalidateDashboard(ctx context.Context, tenantID uuid.UUID) {
	if err := s.dashboard.Invalidate(ctx, tenantID); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
