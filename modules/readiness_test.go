package modules

import (
	"context"
	"errors"
	"testing"

	rbac "github.com/bohemiyan/erp-rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeInspector struct {
	tables map[string]bool
	err    error
	calls  int
}

func (f *fakeInspector) HasTable(_ context.Context, table string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.tables[table], nil
}

func newTestChecker(tables ...string) (*Checker, *fakeInspector) {
	insp := &fakeInspector{tables: map[string]bool{}}
	for _, t := range tables {
		insp.tables[t] = true
	}
	g := DefaultGraph()
	return NewChecker(g, NewTableState(g, insp), zap.NewNop()), insp
}

func TestChecker_CheckPrerequisites(t *testing.T) {
	ctx := context.Background()

	t.Run("payroll with only salary installed", func(t *testing.T) {
		c, _ := newTestChecker("salary_records")
		res := c.CheckPrerequisites(ctx, "payroll")
		assert.False(t, res.Met)
		assert.Equal(t, "payroll", res.Module)
		assert.Equal(t, []string{"employees"}, res.MissingKeys())
		assert.Equal(t, Missing{Key: "employees", DisplayName: "Employees", SetupHint: "/setup/employees"}, res.Missing[0])
	})

	t.Run("all installed", func(t *testing.T) {
		c, _ := newTestChecker("employees", "salary_records")
		res := c.CheckPrerequisites(ctx, "payroll")
		assert.True(t, res.Met)
		assert.NotNil(t, res.Missing)
		assert.Empty(t, res.Missing)
	})

	t.Run("own table is not a prerequisite", func(t *testing.T) {
		c, _ := newTestChecker("employees", "salary_records")
		assert.True(t, c.CheckPrerequisites(ctx, "payroll").Met, "payroll_runs itself is absent")
	})

	t.Run("module without prerequisites", func(t *testing.T) {
		c, insp := newTestChecker()
		assert.True(t, c.CheckPrerequisites(ctx, "assets").Met)
		assert.True(t, c.CheckPrerequisites(ctx, "employees").Met)
		assert.Zero(t, insp.calls)
	})

	t.Run("unknown module", func(t *testing.T) {
		c, _ := newTestChecker()
		res := c.CheckPrerequisites(ctx, "spaceship")
		assert.True(t, res.Met)
		assert.Equal(t, "spaceship", res.Module)
	})

	t.Run("prerequisites are not expanded", func(t *testing.T) {
		// inventory is present but catalog, which inventory needs, is not.
		c, _ := newTestChecker("stock_items")
		res := c.CheckPrerequisites(ctx, "purchasing")
		assert.Equal(t, []string{"catalog"}, res.MissingKeys())
	})

	t.Run("inspector failure fails closed", func(t *testing.T) {
		c, insp := newTestChecker("employees", "salary_records")
		insp.err = errors.New("connection refused")
		res := c.CheckPrerequisites(ctx, "payroll")
		assert.False(t, res.Met)
		assert.Equal(t, []string{"employees", "salary"}, res.MissingKeys())
	})
}

func TestChecker_CheckMandatory(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestChecker("employees")
	res := c.CheckMandatory(ctx)
	assert.False(t, res.Met)
	assert.Equal(t, []string{"catalog"}, res.MissingKeys())

	c, _ = newTestChecker("employees", "products")
	assert.True(t, c.CheckMandatory(ctx).Met)
}

func TestTableState(t *testing.T) {
	ctx := context.Background()
	g := MustGraph([]Module{{Key: "notes"}, {Key: "crm", Table: "crm_leads"}}, nil)
	insp := &fakeInspector{tables: map[string]bool{}}
	s := NewTableState(g, insp)

	ok, err := s.IsInstalled(ctx, "notes")
	require.NoError(t, err)
	assert.True(t, ok, "a module without tables is always installed")

	ok, err = s.IsInstalled(ctx, "crm")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.IsInstalled(ctx, "nope")
	assert.ErrorIs(t, err, rbac.ErrNotFound)

	insp.err = errors.New("boom")
	_, err = s.IsInstalled(ctx, "crm")
	assert.ErrorIs(t, err, rbac.ErrStorage)
}

func TestGormInspector(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("CREATE TABLE employees (id INTEGER PRIMARY KEY)").Error)

	insp := NewGormInspector(db)
	ok, err := insp.HasTable(ctx, "employees")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = insp.HasTable(ctx, "salary_records")
	require.NoError(t, err)
	assert.False(t, ok)

	g := DefaultGraph()
	c := NewChecker(g, NewTableState(g, insp), nil)
	assert.Equal(t, []string{"salary"}, c.CheckPrerequisites(ctx, "payroll").MissingKeys())

	require.NoError(t, sqlDB.Close())
	_, err = insp.HasTable(ctx, "employees")
	assert.Error(t, err)
	assert.False(t, c.CheckPrerequisites(ctx, "salary").Met)
}
