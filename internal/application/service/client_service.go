package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/pagination"
)

// ClientService handles client-related operations
type ClientService struct {
	clientRepo  repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
}

// NewClientService creates a new client service
func NewClientService(clientRepo repository.ClientRepository, invoiceRepo repository.InvoiceRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo, invoiceRepo: invoiceRepo}
}

// ClientInput carries the writable client fields. On update nil fields keep
// their stored value.
type ClientInput struct {
	Name      *string
	Email     *string
	Phone     *string
	Company   *string
	Address   *string
	TaxNumber *string
}

// CreateClient creates a new client in the current tenant
func (s *ClientService) CreateClient(ctx context.Context, userID uuid.UUID, input *ClientInput) (*entity.Client, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperror.NewMissingFieldsError([]string{"name"})
	}
	if err := s.ensureEmailFree(ctx, input.Email, uuid.Nil); err != nil {
		return nil, err
	}

	client := &entity.Client{
		TenantID: tenantID,
		UserID:   userID,
	}
	applyClientInput(client, input)

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, apperror.NewPersistenceError("create client", err)
	}
	return client, nil
}

// ensureEmailFree rejects an email already used by another client of the tenant.
func (s *ClientService) ensureEmailFree(ctx context.Context, email *string, self uuid.UUID) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	existing, err := s.clientRepo.GetByEmail(ctx, strings.TrimSpace(*email))
	if err != nil {
		return apperror.NewPersistenceError("load client", err)
	}
	if existing != nil && existing.ID != self {
		return apperror.NewConflictError("A client with this email already exists")
	}
	return nil
}

func applyClientInput(client *entity.Client, input *ClientInput) {
	if input.Name != nil {
		client.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		client.Email = &email
	}
	if input.Phone != nil {
		client.Phone = input.Phone
	}
	if input.Company != nil {
		client.Company = input.Company
	}
	if input.Address != nil {
		client.Address = input.Address
	}
	if input.TaxNumber != nil {
		client.TaxNumber = input.TaxNumber
	}
}

// GetClient retrieves a client by ID
func (s *ClientService) GetClient(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NewPersistenceError("load client", err)
	}
	if client == nil {
		return nil, apperror.NewNotFoundError("Client")
	}
	return client, nil
}

// ListClients lists the clients of the current tenant
func (s *ClientService) ListClients(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.Client], error) {
	if params == nil {
		params = pagination.DefaultPagination()
	}
	clients, total, err := s.clientRepo.List(ctx, params, strings.TrimSpace(search))
	if err != nil {
		return nil, apperror.NewPersistenceError("list clients", err)
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(clients, pag), nil
}

// ListClientsWithCursor lists clients newest first using keyset pagination
func (s *ClientService) ListClientsWithCursor(ctx context.Context, params *pagination.CursorParams, search string) (*pagination.CursorResult[entity.Client], error) {
	clients, err := s.clientRepo.ListWithCursor(ctx, params, strings.TrimSpace(search))
	if err != nil {
		return nil, apperror.NewBadRequestError(err.Error())
	}
	return pagination.NewCursorResult(clients, params.Limit, func(c entity.Client) (string, time.Time) {
		return c.ID.String(), c.CreatedAt
	}), nil
}

// UpdateClient updates a client
func (s *ClientService) UpdateClient(ctx context.Context, id uuid.UUID, input *ClientInput) (*entity.Client, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "name", Message: "must not be empty"},
		})
	}
	if err := s.ensureEmailFree(ctx, input.Email, client.ID); err != nil {
		return nil, err
	}

	applyClientInput(client, input)
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, apperror.NewPersistenceError("update client", err)
	}
	return client, nil
}

// DeleteClient removes a client that has no invoices
func (s *ClientService) DeleteClient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetClient(ctx, id); err != nil {
		return err
	}

	count, err := s.invoiceRepo.CountByClient(ctx, id)
	if err != nil {
		return apperror.NewPersistenceError("count client invoices", err)
	}
	if count > 0 {
		return apperror.NewConflictError("Client has invoices and cannot be deleted")
	}

	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return apperror.NewPersistenceError("delete client", err)
	}
	return nil
}
