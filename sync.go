package rbac

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Candidate is a protectable resource produced by discovery.
type Candidate struct {
	ResourceKey string `json:"resource_key"`
	Module      string `json:"module"`
	Submodule   string `json:"submodule,omitempty"`
	DisplayName string `json:"display_name"`
}

// SyncResult counts what a reconciliation pass changed.
type SyncResult struct {
	New         int `json:"new"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
	Reactivated int `json:"reactivated"`
}

const syncBatchSize = 200

// Sync reconciles the stored permission records with candidates:
//
//  1. unknown keys are inserted active,
//  2. inactive keys are reactivated with fresh metadata,
//  3. active keys get their metadata refreshed,
//  4. active records whose key is not among candidates are deactivated.
//
// Steps 1-3 are upserts keyed on the unique resource key and step 4 only
// flips is_active, so the pass is idempotent and concurrent passes are safe.
// Grants on deactivated records are kept and apply again on reactivation.
func (r *RBAC) Sync(ctx context.Context, candidates []Candidate, actorID uint) (SyncResult, error) {
	var result SyncResult

	wanted, keys, err := normalizeCandidates(candidates)
	if err != nil {
		return result, err
	}
	if len(keys) == 0 {
		r.log.Warn("permission sync received no candidates; every active record will be deactivated")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Permission
		if err := tx.Where("resource_key IN ?", keysOrEmpty(keys)).Find(&existing).Error; err != nil {
			return storageErr("load permissions", err)
		}
		stored := make(map[string]Permission, len(existing))
		for _, p := range existing {
			stored[p.ResourceKey] = p
		}

		now := r.now()
		rows := make([]Permission, 0, len(keys))
		for _, key := range keys {
			c := wanted[key]
			row := Permission{
				ResourceKey: c.ResourceKey,
				Module:      c.Module,
				Submodule:   optional(c.Submodule),
				DisplayName: c.DisplayName,
				IsActive:    true,
				UpdatedAt:   now,
			}
			prev, found := stored[key]
			switch {
			case !found:
				result.New++
			case !prev.IsActive:
				result.Reactivated++
			case metadataChanged(prev, row):
				result.Updated++
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "resource_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"module", "submodule", "display_name", "is_active", "updated_at"}),
			}).CreateInBatches(&rows, syncBatchSize).Error
			if err != nil {
				return storageErr("upsert permissions", err)
			}
		}

		deactivate := tx.Model(&Permission{}).Where("is_active = ?", true)
		if len(keys) > 0 {
			deactivate = deactivate.Where("resource_key NOT IN ?", keys)
		}
		res := deactivate.Updates(map[string]interface{}{"is_active": false, "updated_at": now})
		if res.Error != nil {
			return storageErr("deactivate permissions", res.Error)
		}
		result.Deactivated = int(res.RowsAffected)

		r.logAudit(ctx, tx, actorID, "sync_permissions", "permission", 0,
			fmt.Sprintf("new=%d updated=%d deactivated=%d reactivated=%d",
				result.New, result.Updated, result.Deactivated, result.Reactivated))
		return nil
	})
	if err != nil {
		r.log.Error("permission sync failed", zap.Error(err))
		return SyncResult{}, err
	}

	r.log.Info("permission sync complete",
		zap.String("request_id", RequestIDFromContext(ctx)),
		zap.Int("candidates", len(keys)),
		zap.Int("new", result.New),
		zap.Int("updated", result.Updated),
		zap.Int("deactivated", result.Deactivated),
		zap.Int("reactivated", result.Reactivated))
	return result, nil
}

// normalizeCandidates drops duplicate keys (first wins) and returns the
// candidates by key together with the keys in input order.
func normalizeCandidates(candidates []Candidate) (map[string]Candidate, []string, error) {
	wanted := make(map[string]Candidate, len(candidates))
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c.ResourceKey = strings.TrimSpace(c.ResourceKey)
		if c.ResourceKey == "" {
			return nil, nil, fmt.Errorf("%w: candidate with empty resource key", ErrValidation)
		}
		if _, dup := wanted[c.ResourceKey]; dup {
			continue
		}
		if c.DisplayName == "" {
			c.DisplayName = c.ResourceKey
		}
		wanted[c.ResourceKey] = c
		keys = append(keys, c.ResourceKey)
	}
	return wanted, keys, nil
}

func metadataChanged(prev, next Permission) bool {
	return prev.Module != next.Module ||
		prev.DisplayName != next.DisplayName ||
		derefString(prev.Submodule) != derefString(next.Submodule)
}

func keysOrEmpty(keys []string) []string {
	if len(keys) == 0 {
		return []string{""}
	}
	return keys
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
