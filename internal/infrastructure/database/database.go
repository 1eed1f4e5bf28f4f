package database

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sangkips/invoicely-api/internal/config"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	applog "github.com/sangkips/invoicely-api/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to the configured database driver.
func Open(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=foreign_keys(1)")
	default:
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN(),
			PreferSimpleProtocol: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: applog.NewGormLogger(cfg.SlowThreshold, debug),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	zap.L().Info("database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&entity.Permission{},
		&entity.Role{},
		&entity.User{},
		&entity.Tenant{},
		&entity.TenantMembership{},
		&entity.Client{},
		&entity.Invoice{},
		&entity.InvoiceItem{},
		&entity.IdempotencyKey{},
	}
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	// idempotency keys used to be unique per user only
	if m := db.Migrator(); m.HasTable(&entity.IdempotencyKey{}) && m.HasIndex(&entity.IdempotencyKey{}, "idx_idempotency_scope") {
		if err := m.DropIndex(&entity.IdempotencyKey{}, "idx_idempotency_scope"); err != nil {
			return fmt.Errorf("drop idempotency index: %w", err)
		}
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	zap.L().Info("database migrations completed")
	return nil
}

// Close releases the connection pool.
func Close(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.WithContext(ctx).DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
