// Package modules decides whether an optional ERP feature area may be used:
// a static graph of direct prerequisites, checked against which modules are
// installed in the store.
package modules

import (
	"fmt"
	"sort"

	rbac "github.com/bohemiyan/erp-rbac"
)

// Module is one optional feature area.
type Module struct {
	Key         string
	DisplayName string
	// Table backs the module; its presence means the module is installed.
	// Empty means the module needs no tables of its own.
	Table     string
	SetupHint string
	// Prerequisites is the full effective chain the module needs, listed
	// explicitly. It is never expanded transitively.
	Prerequisites []string
}

// Graph maps modules to their direct prerequisites.
type Graph struct {
	modules   map[string]Module
	mandatory []string
}

// NewGraph validates and builds a graph. Every prerequisite and mandatory
// key must name a declared module.
func NewGraph(mods []Module, mandatory []string) (*Graph, error) {
	g := &Graph{modules: make(map[string]Module, len(mods))}
	for _, m := range mods {
		if m.Key == "" {
			return nil, fmt.Errorf("%w: module with empty key", rbac.ErrConfiguration)
		}
		if _, dup := g.modules[m.Key]; dup {
			return nil, fmt.Errorf("%w: module %q declared twice", rbac.ErrConfiguration, m.Key)
		}
		m.Prerequisites = append([]string(nil), m.Prerequisites...)
		g.modules[m.Key] = m
	}
	for _, m := range g.modules {
		for _, p := range m.Prerequisites {
			if p == m.Key {
				return nil, fmt.Errorf("%w: module %q lists itself as prerequisite", rbac.ErrConfiguration, m.Key)
			}
			if _, ok := g.modules[p]; !ok {
				return nil, fmt.Errorf("%w: module %q requires undeclared module %q", rbac.ErrConfiguration, m.Key, p)
			}
		}
	}
	for _, k := range mandatory {
		if _, ok := g.modules[k]; !ok {
			return nil, fmt.Errorf("%w: mandatory module %q is not declared", rbac.ErrConfiguration, k)
		}
	}
	g.mandatory = append([]string(nil), mandatory...)
	return g, nil
}

// MustGraph is NewGraph that panics on error, for package-level tables.
func MustGraph(mods []Module, mandatory []string) *Graph {
	g, err := NewGraph(mods, mandatory)
	if err != nil {
		panic(err)
	}
	return g
}

// Module returns the declaration for key.
func (g *Graph) Module(key string) (Module, bool) {
	m, ok := g.modules[key]
	return m, ok
}

// Prerequisites returns the direct prerequisite list of key, nil for
// unknown modules.
func (g *Graph) Prerequisites(key string) []string {
	m, ok := g.modules[key]
	if !ok {
		return nil
	}
	return append([]string(nil), m.Prerequisites...)
}

// Mandatory lists the modules every installation is expected to have.
func (g *Graph) Mandatory() []string {
	return append([]string(nil), g.mandatory...)
}

// Keys returns every declared module key, sorted.
func (g *Graph) Keys() []string {
	keys := make([]string, 0, len(g.modules))
	for k := range g.modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultGraph is the ERP's module table.
func DefaultGraph() *Graph {
	return MustGraph([]Module{
		{Key: "employees", DisplayName: "Employees", Table: "employees", SetupHint: "/setup/employees"},
		{Key: "catalog", DisplayName: "Product Catalog", Table: "products", SetupHint: "/setup/catalog"},
		{Key: "salary", DisplayName: "Salary", Table: "salary_records", SetupHint: "/setup/salary",
			Prerequisites: []string{"employees"}},
		{Key: "payroll", DisplayName: "Payroll", Table: "payroll_runs", SetupHint: "/setup/payroll",
			Prerequisites: []string{"employees", "salary"}},
		{Key: "attendance", DisplayName: "Attendance", Table: "attendance_logs", SetupHint: "/setup/attendance",
			Prerequisites: []string{"employees"}},
		{Key: "leave", DisplayName: "Leave Management", Table: "leave_requests", SetupHint: "/setup/leave",
			Prerequisites: []string{"employees", "attendance"}},
		{Key: "crm", DisplayName: "CRM", Table: "crm_leads", SetupHint: "/setup/crm",
			Prerequisites: []string{"employees"}},
		{Key: "projects", DisplayName: "Projects", Table: "projects", SetupHint: "/setup/projects",
			Prerequisites: []string{"employees", "crm"}},
		{Key: "inventory", DisplayName: "Inventory", Table: "stock_items", SetupHint: "/setup/inventory",
			Prerequisites: []string{"catalog"}},
		{Key: "purchasing", DisplayName: "Purchasing", Table: "purchase_orders", SetupHint: "/setup/purchasing",
			Prerequisites: []string{"catalog", "inventory"}},
		{Key: "invoices", DisplayName: "Invoices", Table: "invoices", SetupHint: "/setup/invoices",
			Prerequisites: []string{"catalog", "employees", "crm"}},
		{Key: "assets", DisplayName: "Asset Register", Table: "assets", SetupHint: "/setup/assets"},
	}, []string{"employees", "catalog"})
}
