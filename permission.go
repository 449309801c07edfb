package rbac

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GetPermission retrieves a permission record by ID, active or not.
func (r *RBAC) GetPermission(ctx context.Context, id uint) (*Permission, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var perm Permission
	if err := r.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: permission %d", ErrNotFound, id)
		}
		return nil, storageErr("get permission", err)
	}
	return &perm, nil
}

// GetPermissionByKey retrieves a permission record by its resource key.
func (r *RBAC) GetPermissionByKey(ctx context.Context, key string) (*Permission, error) {
	var perm Permission
	if err := r.db.WithContext(ctx).Where("resource_key = ?", key).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: permission %q", ErrNotFound, key)
		}
		return nil, storageErr("get permission", err)
	}
	return &perm, nil
}

// ListPermissions retrieves permission records ordered for the admin matrix.
func (r *RBAC) ListPermissions(ctx context.Context, activeOnly bool) ([]Permission, error) {
	var perms []Permission
	query := r.db.WithContext(ctx).Order("module, submodule, display_name")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&perms).Error; err != nil {
		return nil, storageErr("list permissions", err)
	}
	return perms, nil
}
