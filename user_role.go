package rbac

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ReplaceUserRoles replaces the user's role set with roleIDs: every existing
// mapping is deleted and the new set inserted, in one transaction.
func (r *RBAC) ReplaceUserRoles(ctx context.Context, userID uint, roleIDs []uint, actorID uint) error {
	if userID == 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}

	ids := uniqueIDs(roleIDs)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			var count int64
			if err := tx.Model(&Role{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
				return storageErr("count roles", err)
			}
			if count != int64(len(ids)) {
				return fmt.Errorf("%w: one or more roles in %v", ErrNotFound, ids)
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&UserRole{}).Error; err != nil {
			return storageErr("clear user roles", err)
		}

		if len(ids) > 0 {
			now := r.now()
			rows := make([]UserRole, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, UserRole{UserID: userID, RoleID: id, AssignedBy: actorID, AssignedAt: now})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return storageErr("assign user roles", err)
			}
		}

		r.logAudit(ctx, tx, actorID, "replace_user_roles", "user", userID, fmt.Sprintf("Roles: %v", ids))
		return nil
	})
}

// ListUserRoles retrieves all role mappings for a user, regardless of status.
func (r *RBAC) ListUserRoles(ctx context.Context, userID uint) ([]UserRole, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	var userRoles []UserRole
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("role_id").Find(&userRoles).Error; err != nil {
		return nil, storageErr("list user roles", err)
	}
	return userRoles, nil
}

// ActiveRoleIDs returns the IDs of the user's roles whose status is active.
func (r *RBAC) ActiveRoleIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.status = ?", userID, RoleActive).
		Order("user_roles.role_id").
		Pluck("user_roles.role_id", &ids).Error
	if err != nil {
		return nil, storageErr("active roles", err)
	}
	return ids, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
