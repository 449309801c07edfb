package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// CreateRole creates a new active role.
func (r *RBAC) CreateRole(ctx context.Context, name string, isSystemRole bool, actorID uint) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}

	role := &Role{
		Name:         name,
		Status:       RoleActive,
		IsSystemRole: isSystemRole,
	}
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		return nil, storageErr("create role", err)
	}

	r.logAudit(ctx, nil, actorID, "create_role", "role", role.ID, "Created role: "+name)
	return role, nil
}

// GetRole retrieves a role by ID.
func (r *RBAC) GetRole(ctx context.Context, id uint) (*Role, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var role Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %d", ErrNotFound, id)
		}
		return nil, storageErr("get role", err)
	}
	return &role, nil
}

// SetRoleStatus activates or deactivates a role. Identity is immutable; only
// the status changes.
func (r *RBAC) SetRoleStatus(ctx context.Context, id uint, status RoleStatus, actorID uint) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown role status %q", ErrValidation, status)
	}

	res := r.db.WithContext(ctx).Model(&Role{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return storageErr("update role status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: role %d", ErrNotFound, id)
	}

	r.logAudit(ctx, nil, actorID, "set_role_status", "role", id, "Status: "+string(status))
	return nil
}

// ListRoles retrieves all roles, optionally only the active ones.
func (r *RBAC) ListRoles(ctx context.Context, activeOnly bool) ([]Role, error) {
	var roles []Role
	query := r.db.WithContext(ctx).Order("name")
	if activeOnly {
		query = query.Where("status = ?", RoleActive)
	}
	if err := query.Find(&roles).Error; err != nil {
		return nil, storageErr("list roles", err)
	}
	return roles, nil
}
