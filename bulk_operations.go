package rbac

import "context"

// BulkPermissionResult represents the result of one check in a bulk request
type BulkPermissionResult struct {
	Grant
	Allowed bool `json:"allowed"`
}

// CheckBulk evaluates many grants for one user, e.g. to decide which menu
// entries to render. The checks share one evaluator so roles and resources
// are read once.
func (r *RBAC) CheckBulk(ctx context.Context, userID uint, grants []Grant) []BulkPermissionResult {
	e := r.NewEvaluator()
	results := make([]BulkPermissionResult, len(grants))
	for i, g := range grants {
		results[i] = BulkPermissionResult{
			Grant:   g,
			Allowed: e.Can(ctx, userID, g.Resource, g.Action),
		}
	}
	return results
}
