package routing

import (
	"testing"

	rbac "github.com/bohemiyan/erp-rbac"
	"github.com/stretchr/testify/assert"
)

func TestGates_ModuleFor(t *testing.T) {
	g := MustCompileGates(DefaultGates())

	tests := []struct {
		path   string
		module string
		ok     bool
	}{
		{"/hr/payroll/run_payroll.php", "payroll", true},
		{"/hr/salary", "salary", true},
		{"/inventory/purchasing/po_add.php", "purchasing", true},
		{"/inventory/stock.php", "inventory", true},
		{"/hr/employees.php", "", false},
		{"/crmx/leads.php", "", false},
		{"/dashboard", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			module, ok := g.ModuleFor(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.module, module)
		})
	}
}

func TestCompileGates_Errors(t *testing.T) {
	_, err := CompileGates([]ModuleGate{{Pattern: "/crm", Module: "crm"}, {Pattern: "/crm/", Module: "sales"}})
	assert.ErrorIs(t, err, rbac.ErrConfiguration)

	_, err = CompileGates([]ModuleGate{{Pattern: "/crm"}})
	assert.ErrorIs(t, err, rbac.ErrConfiguration)

	assert.Panics(t, func() { MustCompileGates([]ModuleGate{{Pattern: "/x"}}) })
}
