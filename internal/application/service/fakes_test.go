package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/pkg/email"
	"github.com/sangkips/invoicely-api/pkg/pagination"
)

var errStore = errors.New("store unavailable")

// fakeInvoiceRepo keeps invoices in memory. Transaction does not roll back,
// like a store without transactions.
type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]entity.Invoice
	items    map[uuid.UUID][]entity.InvoiceItem
	clients  *fakeClientRepo

	failCreateItems error
	failReplace     error
	failSave        error
	transactions    int
	saves           int
}

func newFakeInvoiceRepo(clients *fakeClientRepo) *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]entity.Invoice),
		items:    make(map[uuid.UUID][]entity.InvoiceItem),
		clients:  clients,
	}
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	stored := *invoice
	stored.Items = nil
	stored.Client = nil
	r.invoices[invoice.ID] = stored
	return nil
}

func (r *fakeInvoiceRepo) CreateItems(ctx context.Context, items []entity.InvoiceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateItems != nil {
		return r.failCreateItems
	}
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		r.items[item.InvoiceID] = append(r.items[item.InvoiceID], item)
	}
	return nil
}

func (r *fakeInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	if tenantID, ok := infraRepo.GetTenantID(ctx); ok && tenantID != stored.TenantID {
		return nil, nil
	}
	invoice := stored
	invoice.Items = append([]entity.InvoiceItem(nil), r.items[id]...)
	sort.Slice(invoice.Items, func(i, j int) bool { return invoice.Items[i].Position < invoice.Items[j].Position })
	if r.clients != nil {
		invoice.Client = r.clients.get(invoice.ClientID)
	}
	return &invoice, nil
}

func (r *fakeInvoiceRepo) Save(ctx context.Context, invoice *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.saves++
	stored := *invoice
	stored.Items = nil
	stored.Client = nil
	r.invoices[invoice.ID] = stored
	return nil
}

func (r *fakeInvoiceRepo) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []entity.InvoiceItem) error {
	if r.failReplace != nil {
		return r.failReplace
	}
	r.mu.Lock()
	delete(r.items, invoiceID)
	r.mu.Unlock()
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	return r.CreateItems(ctx, items)
}

func (r *fakeInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	delete(r.invoices, id)
	return nil
}

func (r *fakeInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return errors.New("record not found")
	}
	invoice.Status = status
	switch status {
	case enum.InvoiceStatusSent:
		if invoice.SentAt == nil {
			invoice.SentAt = &at
		}
	case enum.InvoiceStatusPaid:
		if invoice.PaidAt == nil {
			invoice.PaidAt = &at
		}
	}
	r.invoices[id] = invoice
	return nil
}

func (r *fakeInvoiceRepo) List(ctx context.Context, params *repository.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Invoice
	for _, invoice := range r.invoices {
		if params.Status != nil && invoice.Status != *params.Status {
			continue
		}
		if params.ClientID != nil && invoice.ClientID != *params.ClientID {
			continue
		}
		if params.Search != "" && !strings.Contains(strings.ToLower(invoice.InvoiceNumber), strings.ToLower(params.Search)) {
			continue
		}
		out = append(out, invoice)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueDate.After(out[j].IssueDate) })
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) ListForPeriod(ctx context.Context, from, to time.Time) ([]entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Invoice
	for _, invoice := range r.invoices {
		if !invoice.IssueDate.Before(from) && invoice.IssueDate.Before(to) {
			if r.clients != nil {
				invoice.Client = r.clients.get(invoice.ClientID)
			}
			out = append(out, invoice)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueDate.Before(out[j].IssueDate) })
	return out, nil
}

func (r *fakeInvoiceRepo) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, invoice := range r.invoices {
		if invoice.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *fakeInvoiceRepo) Transaction(ctx context.Context, fn func(repo repository.InvoiceRepository) error) error {
	r.mu.Lock()
	r.transactions++
	r.mu.Unlock()
	return fn(r)
}

func (r *fakeInvoiceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invoices)
}

func (r *fakeInvoiceRepo) storedItems(id uuid.UUID) []entity.InvoiceItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.InvoiceItem(nil), r.items[id]...)
}

type fakeClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]entity.Client
}

func newFakeClientRepo(clients ...entity.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: make(map[uuid.UUID]entity.Client)}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	return r
}

func (r *fakeClientRepo) get(id uuid.UUID) *entity.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil
	}
	return &c
}

func (r *fakeClientRepo) Create(ctx context.Context, client *entity.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	r.clients[client.ID] = *client
	return nil
}

func (r *fakeClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	c := r.get(id)
	if c == nil {
		return nil, nil
	}
	if tenantID, ok := infraRepo.GetTenantID(ctx); ok && tenantID != c.TenantID {
		return nil, nil
	}
	return c, nil
}

func (r *fakeClientRepo) GetByEmail(ctx context.Context, address string) (*entity.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.Email != nil && strings.EqualFold(*c.Email, address) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeClientRepo) Update(ctx context.Context, client *entity.Client) error {
	return r.Create(ctx, client)
}

func (r *fakeClientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	return nil
}

func (r *fakeClientRepo) List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Client, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Client
	for _, c := range r.clients {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *fakeClientRepo) ListWithCursor(ctx context.Context, params *pagination.CursorParams, search string) ([]entity.Client, error) {
	out, _, err := r.List(ctx, nil, search)
	if len(out) > params.Limit+1 {
		out = out[:params.Limit+1]
	}
	return out, err
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]entity.Tenant
	members map[uuid.UUID][]entity.TenantMembership
}

func newFakeTenantRepo(tenants ...entity.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{
		tenants: make(map[uuid.UUID]entity.Tenant),
		members: make(map[uuid.UUID][]entity.TenantMembership),
	}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeTenantRepo) Create(ctx context.Context, tenant *entity.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	r.tenants[tenant.ID] = *tenant
	return nil
}

func (r *fakeTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTenantRepo) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTenantRepo) Update(ctx context.Context, tenant *entity.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[tenant.ID] = *tenant
	return nil
}

func (r *fakeTenantRepo) GetUserTenants(ctx context.Context, userID uuid.UUID) ([]entity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Tenant
	for tenantID, members := range r.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, r.tenants[tenantID])
			}
		}
	}
	return out, nil
}

func (r *fakeTenantRepo) AddMember(ctx context.Context, membership *entity.TenantMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[membership.TenantID] = append(r.members[membership.TenantID], *membership)
	return nil
}

func (r *fakeTenantRepo) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.members[tenantID][:0]
	for _, m := range r.members[tenantID] {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.members[tenantID] = kept
	return nil
}

func (r *fakeTenantRepo) GetMembers(ctx context.Context, tenantID uuid.UUID) ([]entity.TenantMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.TenantMembership(nil), r.members[tenantID]...), nil
}

func (r *fakeTenantRepo) IsMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	members, _ := r.GetMembers(ctx, tenantID)
	for _, m := range members {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	t, _ := r.GetBySlug(ctx, slug)
	return t != nil, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
	roles map[string]entity.Role
}

func newFakeUserRepo(roles ...entity.Role) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]entity.User), roles: make(map[string]entity.Role)}
	for _, role := range roles {
		r.roles[role.Name] = role
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, address string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, address) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByProviderID(ctx context.Context, provider, providerID string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Provider == provider && u.ProviderID != nil && *u.ProviderID == providerID {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetWithRoles(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleName]
	if !ok {
		return errors.New("role not found")
	}
	u := r.users[userID]
	u.Roles = append(u.Roles, role)
	r.users[userID] = u
	return nil
}

type fakeSender struct {
	sent []email.InvoiceMessage
	err  error
}

func (f *fakeSender) SendInvoice(ctx context.Context, msg email.InvoiceMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
