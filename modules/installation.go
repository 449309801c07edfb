package modules

import (
	"context"
	"database/sql"
	"fmt"

	rbac "github.com/bohemiyan/erp-rbac"
	"gorm.io/gorm"
)

// SchemaInspector answers "does this table exist".
type SchemaInspector interface {
	HasTable(ctx context.Context, table string) (bool, error)
}

// InstallationState answers "is this module installed". It is the business
// signal; schema presence is only one way to back it.
type InstallationState interface {
	IsInstalled(ctx context.Context, moduleKey string) (bool, error)
}

// TableState treats a module as installed when its backing table exists.
type TableState struct {
	graph     *Graph
	inspector SchemaInspector
}

// NewTableState builds a TableState over graph.
func NewTableState(graph *Graph, inspector SchemaInspector) *TableState {
	return &TableState{graph: graph, inspector: inspector}
}

// IsInstalled implements InstallationState.
func (s *TableState) IsInstalled(ctx context.Context, moduleKey string) (bool, error) {
	m, ok := s.graph.Module(moduleKey)
	if !ok {
		return false, fmt.Errorf("%w: module %q", rbac.ErrNotFound, moduleKey)
	}
	if m.Table == "" {
		return true, nil
	}
	exists, err := s.inspector.HasTable(ctx, m.Table)
	if err != nil {
		return false, fmt.Errorf("%w: inspect table %q: %w", rbac.ErrStorage, m.Table, err)
	}
	return exists, nil
}

// GormInspector inspects the schema through gorm's migrator, which works for
// every dialect gorm supports.
type GormInspector struct {
	db *gorm.DB
}

// NewGormInspector wraps db.
func NewGormInspector(db *gorm.DB) *GormInspector {
	return &GormInspector{db: db}
}

// HasTable implements SchemaInspector. The migrator reports lookup failures
// as "absent", so the connection is pinged first to surface them.
func (i *GormInspector) HasTable(ctx context.Context, table string) (bool, error) {
	sqlDB, err := i.db.DB()
	if err != nil {
		return false, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return false, err
	}
	return i.db.WithContext(ctx).Migrator().HasTable(table), nil
}

// PostgresInspector queries information_schema directly.
type PostgresInspector struct {
	db     *sql.DB
	schema string
}

// NewPostgresInspector inspects schema, "public" when empty.
func NewPostgresInspector(db *sql.DB, schema string) *PostgresInspector {
	if schema == "" {
		schema = "public"
	}
	return &PostgresInspector{db: db, schema: schema}
}

// HasTable implements SchemaInspector.
func (i *PostgresInspector) HasTable(ctx context.Context, table string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`
	var exists bool
	if err := i.db.QueryRowContext(ctx, query, i.schema, table).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
