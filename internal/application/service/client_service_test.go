package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientFixture() (*ClientService, *fakeClientRepo, *fakeInvoiceRepo, context.Context) {
	clients := newFakeClientRepo()
	invoices := newFakeInvoiceRepo(clients)
	ctx := infraRepo.WithTenant(context.Background(), uuid.New())
	return NewClientService(clients, invoices), clients, invoices, ctx
}

func TestCreateClient(t *testing.T) {
	svc, _, _, ctx := newClientFixture()
	tenantID, _ := infraRepo.GetTenantID(ctx)

	client, err := svc.CreateClient(ctx, uuid.New(), &ClientInput{
		Name:  strPtr("  Globex  "),
		Email: strPtr("ap@globex.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", client.Name)
	assert.Equal(t, tenantID, client.TenantID)

	_, err = svc.CreateClient(ctx, uuid.New(), &ClientInput{Name: strPtr("Other"), Email: strPtr("ap@globex.test")})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperror.GetAppError(err).Code)

	_, err = svc.CreateClient(ctx, uuid.New(), &ClientInput{Email: strPtr("x@y.test")})
	requireAppError(t, err, http.StatusBadRequest, apperror.TypeMissingRequiredFields)

	_, err = svc.CreateClient(context.Background(), uuid.New(), &ClientInput{Name: strPtr("No tenant")})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.GetAppError(err).Code)
}

func TestUpdateClient(t *testing.T) {
	svc, _, _, ctx := newClientFixture()
	client, err := svc.CreateClient(ctx, uuid.New(), &ClientInput{Name: strPtr("Globex"), Phone: strPtr("555")})
	require.NoError(t, err)

	updated, err := svc.UpdateClient(ctx, client.ID, &ClientInput{Company: strPtr("Globex Corp")})
	require.NoError(t, err)
	assert.Equal(t, "Globex", updated.Name)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "555", *updated.Phone)
	assert.Equal(t, "Globex Corp", *updated.Company)

	_, err = svc.UpdateClient(ctx, client.ID, &ClientInput{Name: strPtr("")})
	requireAppError(t, err, http.StatusUnprocessableEntity, apperror.TypeValidation)

	_, err = svc.UpdateClient(ctx, uuid.New(), &ClientInput{Name: strPtr("x")})
	requireAppError(t, err, http.StatusNotFound, apperror.TypeNotFound)
}

func TestClientsAreTenantScoped(t *testing.T) {
	svc, _, _, ctx := newClientFixture()
	client, err := svc.CreateClient(ctx, uuid.New(), &ClientInput{Name: strPtr("Globex")})
	require.NoError(t, err)

	other := infraRepo.WithTenant(context.Background(), uuid.New())
	_, err = svc.GetClient(other, client.ID)
	requireAppError(t, err, http.StatusNotFound, apperror.TypeNotFound)
}

func TestDeleteClientWithInvoicesConflicts(t *testing.T) {
	svc, _, invoices, ctx := newClientFixture()
	tenantID, _ := infraRepo.GetTenantID(ctx)
	client, err := svc.CreateClient(ctx, uuid.New(), &ClientInput{Name: strPtr("Globex")})
	require.NoError(t, err)

	require.NoError(t, invoices.Create(ctx, &entity.Invoice{TenantID: tenantID, ClientID: client.ID, InvoiceNumber: "INV-1"}))

	err = svc.DeleteClient(ctx, client.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperror.GetAppError(err).Code)

	empty, err := svc.CreateClient(ctx, uuid.New(), &ClientInput{Name: strPtr("Initech")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteClient(ctx, empty.ID))
	_, err = svc.GetClient(ctx, empty.ID)
	requireAppError(t, err, http.StatusNotFound, apperror.TypeNotFound)
}

func TestListClients(t *testing.T) {
	svc, _, _, ctx := newClientFixture()
	for _, name := range []string{"Globex", "Initech", "Hooli"} {
		_, err := svc.CreateClient(ctx, uuid.New(), &ClientInput{Name: strPtr(name)})
		require.NoError(t, err)
	}

	result, err := svc.ListClients(ctx, &pagination.PaginationParams{Page: 1, PerPage: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.TotalPages)

	filtered, err := svc.ListClients(ctx, nil, "hoo")
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "Hooli", filtered.Items[0].Name)

	page, err := svc.ListClientsWithCursor(ctx, &pagination.CursorParams{Limit: 2}, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.NotNil(t, page.NextCursor)
}
