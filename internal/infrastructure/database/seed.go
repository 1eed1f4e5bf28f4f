package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sangkips/invoicely-api/internal/config"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rolePermissions = map[string][]string{
	entity.RoleSuperAdmin: {entity.PermViewDashboard, entity.PermManageInvoices, entity.PermManageClients, entity.PermViewReports, entity.PermManageTenant},
	entity.RoleAdmin:      {entity.PermViewDashboard, entity.PermManageInvoices, entity.PermManageClients, entity.PermViewReports, entity.PermManageTenant},
	entity.RoleAccountant: {entity.PermViewDashboard, entity.PermManageInvoices, entity.PermManageClients, entity.PermViewReports},
	entity.RoleViewer:     {entity.PermViewDashboard, entity.PermViewReports},
}

// SeedDefaultData creates permissions, roles and, when configured, a super admin.
// It is safe to run on every start.
func SeedDefaultData(db *gorm.DB, admin config.AdminConfig) error {
	perms := make(map[string]entity.Permission)
	for _, name := range []string{entity.PermViewDashboard, entity.PermManageInvoices, entity.PermManageClients, entity.PermViewReports, entity.PermManageTenant} {
		p := entity.Permission{Name: name}
		if err := db.Where(entity.Permission{Name: name}).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
		perms[name] = p
	}

	for roleName, names := range rolePermissions {
		role := entity.Role{Name: roleName}
		if err := db.Where(entity.Role{Name: roleName}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", roleName, err)
		}
		granted := make([]entity.Permission, 0, len(names))
		for _, n := range names {
			granted = append(granted, perms[n])
		}
		if err := db.Model(&role).Association("Permissions").Replace(granted); err != nil {
			return fmt.Errorf("grant permissions to %s: %w", roleName, err)
		}
	}

	if admin.Email == "" || admin.Password == "" {
		return nil
	}

	var existing entity.User
	err := db.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	hashed, err := utils.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	var superAdmin entity.Role
	if err := db.Where("name = ?", entity.RoleSuperAdmin).First(&superAdmin).Error; err != nil {
		return fmt.Errorf("load super-admin role: %w", err)
	}

	name := admin.Name
	if name == "" {
		name = "Super Admin"
	}
	first, last, _ := strings.Cut(name, " ")
	user := entity.User{
		FirstName: first,
		LastName:  last,
		Email:     admin.Email,
		Password:  hashed,
		Roles:     []entity.Role{superAdmin},
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	zap.L().Info("super admin created", zap.String("email", admin.Email))
	return nil
}
