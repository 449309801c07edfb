package rbac

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetCell sets one action flag for a role on a resource.
//
// The write is a single upsert keyed on (role_id, permission_id): an existing
// row only has the named column updated, a missing row is inserted with every
// other flag false. Concurrent edits of different cells on the same row
// therefore never overwrite each other.
func (r *RBAC) SetCell(ctx context.Context, roleID, resourceID uint, actionName string, value bool, actorID uint) error {
	action, err := ParseAction(actionName)
	if err != nil {
		return err
	}
	if roleID == 0 || resourceID == 0 {
		return fmt.Errorf("%w: role and resource ids are required", ErrValidation)
	}

	if _, err := r.GetRole(ctx, roleID); err != nil {
		return err
	}
	if _, err := r.GetPermission(ctx, resourceID); err != nil {
		return err
	}

	row := RolePermission{RoleID: roleID, PermissionID: resourceID}
	row.Set(action, value)

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			action.Column(): value,
			"updated_at":    r.now(),
		}),
	}).Create(&row).Error
	if err != nil {
		r.log.Error("set permission cell failed",
			zap.Uint("role_id", roleID),
			zap.Uint("resource_id", resourceID),
			zap.Stringer("action", action),
			zap.Error(err))
		return storageErr("set permission cell", err)
	}

	r.logAudit(ctx, nil, actorID, "set_permission_cell", "role", roleID,
		fmt.Sprintf("resource=%d %s=%t", resourceID, action, value))
	return nil
}

// GetRolePermission returns the grant row for (roleID, resourceID). A missing
// row is returned as an all-false row, not an error.
func (r *RBAC) GetRolePermission(ctx context.Context, roleID, resourceID uint) (*RolePermission, error) {
	var rp RolePermission
	err := r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, resourceID).
		First(&rp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &RolePermission{RoleID: roleID, PermissionID: resourceID}, nil
	}
	if err != nil {
		return nil, storageErr("get role permission", err)
	}
	return &rp, nil
}

// ListRolePermissions retrieves every grant row of a role.
func (r *RBAC) ListRolePermissions(ctx context.Context, roleID uint) ([]RolePermission, error) {
	var rows []RolePermission
	if err := r.db.WithContext(ctx).Where("role_id = ?", roleID).Order("permission_id").Find(&rows).Error; err != nil {
		return nil, storageErr("list role permissions", err)
	}
	return rows, nil
}
