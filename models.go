package rbac

import (
	"time"
)

// RoleStatus toggles whether a role contributes to access decisions.
type RoleStatus string

const (
	RoleActive   RoleStatus = "active"
	RoleInactive RoleStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s RoleStatus) Valid() bool {
	return s == RoleActive || s == RoleInactive
}

// Role is a named bundle of per-resource grants.
type Role struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"uniqueIndex;size:120;not null" json:"name"`
	Status       RoleStatus `gorm:"size:16;not null;index" json:"status"`
	IsSystemRole bool       `gorm:"not null" json:"is_system_role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Permission is a protectable resource: a table name or a route path.
// Records are deactivated, never deleted, so grants survive a removal.
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ResourceKey string    `gorm:"uniqueIndex;size:191;not null" json:"resource_key"`
	Module      string    `gorm:"size:80;not null;index" json:"module"`
	Submodule   *string   `gorm:"size:80" json:"submodule,omitempty"`
	DisplayName string    `gorm:"size:180;not null" json:"display_name"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission holds the eleven action flags one role has on one resource.
// A missing row means every flag is false.
type RolePermission struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	RoleID            uint      `gorm:"not null;uniqueIndex:idx_role_permission,priority:1" json:"role_id"`
	PermissionID      uint      `gorm:"not null;uniqueIndex:idx_role_permission,priority:2;index" json:"permission_id"`
	CanCreate         bool      `gorm:"column:can_create;not null" json:"create"`
	CanViewAll        bool      `gorm:"column:can_view_all;not null" json:"view_all"`
	CanViewAssigned   bool      `gorm:"column:can_view_assigned;not null" json:"view_assigned"`
	CanViewOwn        bool      `gorm:"column:can_view_own;not null" json:"view_own"`
	CanEditAll        bool      `gorm:"column:can_edit_all;not null" json:"edit_all"`
	CanEditAssigned   bool      `gorm:"column:can_edit_assigned;not null" json:"edit_assigned"`
	CanEditOwn        bool      `gorm:"column:can_edit_own;not null" json:"edit_own"`
	CanDeleteAll      bool      `gorm:"column:can_delete_all;not null" json:"delete_all"`
	CanDeleteAssigned bool      `gorm:"column:can_delete_assigned;not null" json:"delete_assigned"`
	CanDeleteOwn      bool      `gorm:"column:can_delete_own;not null" json:"delete_own"`
	CanExport         bool      `gorm:"column:can_export;not null" json:"export"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Actions returns the row's flags as a set.
func (rp *RolePermission) Actions() ActionSet {
	var s ActionSet
	for _, a := range Actions() {
		s[a] = *rp.flag(a)
	}
	return s
}

// Set flips the flag for a. Out-of-range actions are ignored.
func (rp *RolePermission) Set(a Action, value bool) {
	if f := rp.flag(a); f != nil {
		*f = value
	}
}

func (rp *RolePermission) flag(a Action) *bool {
	switch a {
	case ActionCreate:
		return &rp.CanCreate
	case ActionViewAll:
		return &rp.CanViewAll
	case ActionViewAssigned:
		return &rp.CanViewAssigned
	case ActionViewOwn:
		return &rp.CanViewOwn
	case ActionEditAll:
		return &rp.CanEditAll
	case ActionEditAssigned:
		return &rp.CanEditAssigned
	case ActionEditOwn:
		return &rp.CanEditOwn
	case ActionDeleteAll:
		return &rp.CanDeleteAll
	case ActionDeleteAssigned:
		return &rp.CanDeleteAssigned
	case ActionDeleteOwn:
		return &rp.CanDeleteOwn
	case ActionExport:
		return &rp.CanExport
	}
	return nil
}

// UserRole maps a user to a role.
type UserRole struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RoleID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"role_id"`
	AssignedBy uint      `gorm:"not null" json:"assigned_by"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
}

// AuditLog tracks role, grant and registry changes.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    uint      `gorm:"index;not null" json:"actor_id"`
	Action     string    `gorm:"size:64;not null" json:"action"`
	TargetType string    `gorm:"size:64;not null;index" json:"target_type"`
	TargetID   uint      `gorm:"index;not null" json:"target_id"`
	Details    string    `json:"details"`
	RequestID  string    `gorm:"size:36;index" json:"request_id"`
	CreatedAt  time.Time `json:"created_at"`
}
