package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a business that issues invoices. All clients and invoices belong to one.
type Tenant struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Slug      string         `gorm:"size:255;unique;not null" json:"slug"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Email     *string        `gorm:"size:255" json:"email,omitempty"`
	Address   *string        `gorm:"type:text" json:"address,omitempty"`
	Settings  TenantSettings `gorm:"type:text;serializer:json" json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Members []TenantMembership `gorm:"foreignKey:TenantID" json:"-"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (Tenant) TableName() string {
	return "tenants"
}

// Membership roles inside a tenant.
const (
	MembershipOwner  = "owner"
	MembershipAdmin  = "admin"
	MembershipMember = "member"
)

// MemberUser represents a subset of user fields for membership responses
type MemberUser struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

// TenantMembership links a user to a tenant with a tenant-level role.
type TenantMembership struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"size:50;default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	User       User        `gorm:"foreignKey:UserID" json:"-"`
	MemberUser *MemberUser `gorm:"-" json:"user,omitempty"`
}

// PopulateUserDetails copies the preloaded user into the response field.
func (tm *TenantMembership) PopulateUserDetails() {
	if tm.User.ID != uuid.Nil {
		tm.MemberUser = &MemberUser{
			ID:        tm.User.ID,
			FirstName: tm.User.FirstName,
			LastName:  tm.User.LastName,
			Email:     tm.User.Email,
		}
	}
}

func (TenantMembership) TableName() string {
	return "tenant_memberships"
}

// TenantSettings holds the invoicing preferences of a tenant.
type TenantSettings struct {
	Currency      string `json:"currency,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	InvoicePrefix string `json:"invoice_prefix,omitempty"`
	// PaymentTermsDays is the number of business days between issue and due date.
	PaymentTermsDays int `json:"payment_terms_days,omitempty"`
	// DefaultTaxRate is applied to new invoices that omit tax_rate.
	DefaultTaxRate     float64 `json:"default_tax_rate"`
	TaxLabel           string  `json:"tax_label,omitempty"`
	EmailNotifications bool    `json:"email_notifications"`
}

// DefaultTenantSettings returns default settings for new tenants
func DefaultTenantSettings() TenantSettings {
	return TenantSettings{
		Currency:           "USD",
		Timezone:           "UTC",
		InvoicePrefix:      "INV-",
		PaymentTermsDays:   14,
		TaxLabel:           "Tax",
		EmailNotifications: true,
	}
}
