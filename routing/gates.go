package routing

import (
	"fmt"
	"sort"

	rbac "github.com/bohemiyan/erp-rbac"
)

// ModuleGate marks every path under Pattern as belonging to Module.
type ModuleGate struct {
	Pattern string
	Module  string
}

// Gates finds the module a path belongs to, most specific pattern first.
type Gates struct {
	gates []ModuleGate
}

// CompileGates validates and ranks gates.
func CompileGates(gates []ModuleGate) (*Gates, error) {
	seen := make(map[string]bool, len(gates))
	out := make([]ModuleGate, 0, len(gates))
	for _, g := range gates {
		p := normalizePath(g.Pattern)
		if seen[p] {
			return nil, fmt.Errorf("%w: module gate %q declared more than once", rbac.ErrConfiguration, p)
		}
		if g.Module == "" {
			return nil, fmt.Errorf("%w: module gate %q has no module", rbac.ErrConfiguration, p)
		}
		seen[p] = true
		out = append(out, ModuleGate{Pattern: p, Module: g.Module})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Pattern) != len(out[j].Pattern) {
			return len(out[i].Pattern) > len(out[j].Pattern)
		}
		return out[i].Pattern < out[j].Pattern
	})
	return &Gates{gates: out}, nil
}

// MustCompileGates is CompileGates for static tables.
func MustCompileGates(gates []ModuleGate) *Gates {
	g, err := CompileGates(gates)
	if err != nil {
		panic(err)
	}
	return g
}

// ModuleFor returns the module gating p.
func (g *Gates) ModuleFor(p string) (string, bool) {
	p = normalizePath(p)
	for _, gate := range g.gates {
		r := compiledRule{pattern: gate.Pattern}
		if r.matches(p) {
			return gate.Module, true
		}
	}
	return "", false
}

// DefaultGates assigns the ERP's optional page trees to their modules.
func DefaultGates() []ModuleGate {
	return []ModuleGate{
		{Pattern: "/hr/salary", Module: "salary"},
		{Pattern: "/hr/payroll", Module: "payroll"},
		{Pattern: "/hr/attendance", Module: "attendance"},
		{Pattern: "/hr/leave", Module: "leave"},
		{Pattern: "/crm", Module: "crm"},
		{Pattern: "/projects", Module: "projects"},
		{Pattern: "/inventory", Module: "inventory"},
		{Pattern: "/inventory/purchasing", Module: "purchasing"},
		{Pattern: "/sales/invoices", Module: "invoices"},
	}
}
