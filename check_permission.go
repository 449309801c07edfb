package rbac

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Grant names one action on one resource.
type Grant struct {
	Resource string `json:"resource"`
	Action   Action `json:"action"`
}

// Can reports whether the user holds action on resourceKey through any of
// their active roles. It answers entitlement at the declared scope only; the
// caller still owns the per-record check for *_own and *_assigned actions.
// Storage failures deny.
func (r *RBAC) Can(ctx context.Context, userID uint, resourceKey string, action Action) bool {
	return r.NewEvaluator().Can(ctx, userID, resourceKey, action)
}

// CanAny reports whether at least one of the grants holds. An empty list
// never holds.
func (r *RBAC) CanAny(ctx context.Context, userID uint, grants []Grant) bool {
	return r.NewEvaluator().CanAny(ctx, userID, grants)
}

type rowKey struct {
	userID       uint
	permissionID uint
}

// Evaluator answers access questions with a cache scoped to its own
// lifetime. Create one per request and drop it afterwards so grant changes
// are visible to the next request.
type Evaluator struct {
	r     *RBAC
	roles map[uint][]uint
	perms map[string]*Permission
	sets  map[rowKey]ActionSet
}

// NewEvaluator returns an empty request-scoped evaluator.
func (r *RBAC) NewEvaluator() *Evaluator {
	return &Evaluator{
		r:     r,
		roles: make(map[uint][]uint),
		perms: make(map[string]*Permission),
		sets:  make(map[rowKey]ActionSet),
	}
}

// Can is RBAC.Can through the evaluator's cache.
func (e *Evaluator) Can(ctx context.Context, userID uint, resourceKey string, action Action) bool {
	if !action.Valid() {
		return false
	}
	set, ok := e.Effective(ctx, userID, resourceKey)
	if !ok {
		return false
	}
	return set.Has(action)
}

// CanAny is RBAC.CanAny through the evaluator's cache.
func (e *Evaluator) CanAny(ctx context.Context, userID uint, grants []Grant) bool {
	for _, g := range grants {
		if e.Can(ctx, userID, g.Resource, g.Action) {
			return true
		}
	}
	return false
}

// Effective returns the union of the user's flags on resourceKey. ok is
// false when the lookup failed or there is nothing to grant: no active role,
// an unknown or inactive resource.
func (e *Evaluator) Effective(ctx context.Context, userID uint, resourceKey string) (ActionSet, bool) {
	roleIDs, err := e.activeRoles(ctx, userID)
	if err != nil || len(roleIDs) == 0 {
		return ActionSet{}, false
	}

	perm, err := e.permission(ctx, resourceKey)
	if err != nil || perm == nil {
		return ActionSet{}, false
	}

	key := rowKey{userID: userID, permissionID: perm.ID}
	if set, ok := e.sets[key]; ok {
		return set, true
	}

	var rows []RolePermission
	err = e.r.db.WithContext(ctx).
		Where("role_id IN ? AND permission_id = ?", roleIDs, perm.ID).
		Find(&rows).Error
	if err != nil {
		e.r.log.Error("access decision failed, denying",
			zap.Uint("user_id", userID),
			zap.String("resource", resourceKey),
			zap.Error(err))
		return ActionSet{}, false
	}

	var set ActionSet
	for i := range rows {
		set = set.Union(rows[i].Actions())
	}
	e.sets[key] = set
	return set, true
}

func (e *Evaluator) activeRoles(ctx context.Context, userID uint) ([]uint, error) {
	if ids, ok := e.roles[userID]; ok {
		return ids, nil
	}
	ids, err := e.r.ActiveRoleIDs(ctx, userID)
	if err != nil {
		e.r.log.Error("role lookup failed, denying", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	e.roles[userID] = ids
	return ids, nil
}

// permission returns the active record for key, or nil if there is none.
func (e *Evaluator) permission(ctx context.Context, key string) (*Permission, error) {
	if perm, ok := e.perms[key]; ok {
		return perm, nil
	}
	var perm Permission
	err := e.r.db.WithContext(ctx).
		Where("resource_key = ? AND is_active = ?", key, true).
		First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.perms[key] = nil
		return nil, nil
	}
	if err != nil {
		e.r.log.Error("resource lookup failed, denying", zap.String("resource", key), zap.Error(err))
		return nil, err
	}
	e.perms[key] = &perm
	return &perm, nil
}
