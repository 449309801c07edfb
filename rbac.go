// Package rbac implements the access-control core of the ERP: the permission
// registry, per-role action grants, user role membership and the access
// decision that unions grants across a user's active roles.
package rbac

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config holds the configuration for the RBAC service
type Config struct {
	DB                 *gorm.DB
	Logger             *zap.Logger
	AutoMigrate        bool
	EnableAuditLogging bool
}

// RBAC is the main service struct. It keeps no authorization state between
// calls; every decision reads the store.
type RBAC struct {
	db           *gorm.DB
	log          *zap.Logger
	auditEnabled bool
	now          func() time.Time
}

// NewRBAC initializes a new RBAC service
func NewRBAC(cfg Config) (*RBAC, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("%w: database is required", ErrInvalidInput)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if cfg.AutoMigrate {
		if err := cfg.DB.AutoMigrate(Models()...); err != nil {
			return nil, storageErr("auto-migrate", err)
		}
	}

	return &RBAC{
		db:           cfg.DB,
		log:          cfg.Logger.Named("rbac"),
		auditEnabled: cfg.EnableAuditLogging,
		now:          time.Now,
	}, nil
}

// Models lists the tables owned by this package, in migration order.
func Models() []interface{} {
	return []interface{}{&Role{}, &Permission{}, &RolePermission{}, &UserRole{}, &AuditLog{}}
}
