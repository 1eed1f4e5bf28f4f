package request

// CreateTenantRequest creates an additional tenant owned by the caller
type CreateTenantRequest struct {
	Name  string  `json:"name" binding:"required,min=2,max=255"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// UpdateTenantRequest updates the current tenant
type UpdateTenantRequest struct {
	Name     string                 `json:"name" binding:"omitempty,min=2,max=255"`
	Email    *string                `json:"email" binding:"omitempty,email"`
	Address  *string                `json:"address"`
	Settings *TenantSettingsRequest `json:"settings"`
}

// TenantSettingsRequest carries the invoicing preferences of a tenant
type TenantSettingsRequest struct {
	Currency           string  `json:"currency" binding:"omitempty,len=3,alpha"`
	Timezone           string  `json:"timezone" binding:"omitempty,timezone"`
	InvoicePrefix      string  `json:"invoice_prefix" binding:"omitempty,max=20"`
	PaymentTermsDays   int     `json:"payment_terms_days" binding:"min=0,max=365"`
	DefaultTaxRate     float64 `json:"default_tax_rate" binding:"min=0,max=100"`
	TaxLabel           string  `json:"tax_label" binding:"omitempty,max=50"`
	EmailNotifications bool    `json:"email_notifications"`
}

// InviteMemberRequest adds a registered user to the current tenant
type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,oneof=admin member"`
}
