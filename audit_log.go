package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type requestIDKey struct{}

// WithRequestID tags ctx so audit rows written under it can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or a fresh one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// logAudit creates an audit log entry. Failures are logged and swallowed.
func (r *RBAC) logAudit(ctx context.Context, db *gorm.DB, actorID uint, action, targetType string, targetID uint, details string) {
	if !r.auditEnabled {
		return
	}
	if db == nil {
		db = r.db
	}
	audit := &AuditLog{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		RequestID:  RequestIDFromContext(ctx),
		CreatedAt:  r.now(),
	}
	if err := db.WithContext(ctx).Create(audit).Error; err != nil {
		r.log.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Uint("target_id", targetID),
			zap.Error(err))
	}
}

// GetAuditLog retrieves an audit log by ID.
func (r *RBAC) GetAuditLog(ctx context.Context, id uint) (*AuditLog, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var audit AuditLog
	if err := r.db.WithContext(ctx).First(&audit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get audit log", err)
	}
	return &audit, nil
}

// ListAuditLogs retrieves audit logs, newest first, optionally filtered by
// actor or target type.
func (r *RBAC) ListAuditLogs(ctx context.Context, actorID *uint, targetType string) ([]AuditLog, error) {
	var audits []AuditLog
	query := r.db.WithContext(ctx).Order("id DESC")
	if actorID != nil {
		query = query.Where("actor_id = ?", *actorID)
	}
	if targetType != "" {
		query = query.Where("target_type = ?", targetType)
	}
	if err := query.Find(&audits).Error; err != nil {
		return nil, storageErr("list audit logs", err)
	}
	return audits, nil
}
