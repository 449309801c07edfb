// Package routing maps request paths to the resource and action that guard
// them.
package routing

import (
	rbac "github.com/bohemiyan/erp-rbac"
)

// OverrideKind says how a file inside a rule is guarded.
type OverrideKind int

const (
	// OverrideAction uses a different action on the rule's resource.
	OverrideAction OverrideKind = iota + 1
	// OverrideSkip exempts the file from authorization and discovery.
	OverrideSkip
	// OverrideRequiresAny grants access when any alternative holds.
	OverrideRequiresAny
)

// RequiresAny grants access when at least one alternative holds. Then is the
// action reported for the route, for handlers that still need a stricter
// check once access is established.
type RequiresAny struct {
	Alternatives []rbac.Grant `json:"alternatives"`
	Then         rbac.Action  `json:"then"`
}

// Override is the per-file exception of a Rule.
type Override struct {
	Kind   OverrideKind
	Action rbac.Action
	Any    *RequiresAny
}

// Use overrides the action of a file.
func Use(a rbac.Action) Override {
	return Override{Kind: OverrideAction, Action: a}
}

// Skip exempts a file.
func Skip() Override {
	return Override{Kind: OverrideSkip}
}

// AnyOf guards a file with alternatives and reports then as its action.
func AnyOf(then rbac.Action, alternatives ...rbac.Grant) Override {
	return Override{
		Kind: OverrideRequiresAny,
		Any:  &RequiresAny{Alternatives: alternatives, Then: then},
	}
}

// Rule guards every path under Pattern with Action on Resource, except for
// the files listed in Files. Files are keyed by base name; the extension is
// ignored.
type Rule struct {
	Pattern  string
	Resource string
	Action   rbac.Action
	Files    map[string]Override
}

func g(resource string, a rbac.Action) rbac.Grant {
	return rbac.Grant{Resource: resource, Action: a}
}

// DefaultRules is the ERP's route table. Order does not matter; the longest
// matching pattern wins.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/auth", Resource: "auth", Action: rbac.ActionViewAll, Files: map[string]Override{
			"login":           Skip(),
			"logout":          Skip(),
			"forgot_password": Skip(),
			"reset_password":  Skip(),
		}},
		{Pattern: "/dashboard", Resource: "dashboard", Action: rbac.ActionViewAll},
		{Pattern: "/hr", Resource: "employees", Action: rbac.ActionViewAll, Files: map[string]Override{
			"employee_add":    Use(rbac.ActionCreate),
			"employee_edit":   Use(rbac.ActionEditAll),
			"employee_delete": Use(rbac.ActionDeleteAll),
			"employee_export": Use(rbac.ActionExport),
			"my_profile": AnyOf(rbac.ActionEditOwn,
				g("employees", rbac.ActionViewAll),
				g("employees", rbac.ActionViewOwn)),
		}},
		{Pattern: "/hr/salary", Resource: "salary_records", Action: rbac.ActionViewAll, Files: map[string]Override{
			"salary_add":    Use(rbac.ActionCreate),
			"salary_edit":   Use(rbac.ActionEditAll),
			"salary_delete": Use(rbac.ActionDeleteAll),
			"salary_export": Use(rbac.ActionExport),
			"salary_slip": AnyOf(rbac.ActionViewOwn,
				g("salary_records", rbac.ActionViewAll),
				g("salary_records", rbac.ActionViewOwn)),
			"salary_print_styles": Skip(),
		}},
		{Pattern: "/hr/payroll", Resource: "payroll_runs", Action: rbac.ActionViewAll, Files: map[string]Override{
			"run_payroll":    Use(rbac.ActionCreate),
			"payroll_export": Use(rbac.ActionExport),
		}},
		{Pattern: "/hr/attendance", Resource: "attendance_logs", Action: rbac.ActionViewAll, Files: map[string]Override{
			"clock_in":  AnyOf(rbac.ActionCreate, g("attendance_logs", rbac.ActionCreate), g("attendance_logs", rbac.ActionEditOwn)),
			"timesheet": AnyOf(rbac.ActionViewOwn, g("attendance_logs", rbac.ActionViewAll), g("attendance_logs", rbac.ActionViewOwn)),
		}},
		{Pattern: "/hr/leave", Resource: "leave_requests", Action: rbac.ActionViewAll, Files: map[string]Override{
			"leave_apply":   Use(rbac.ActionCreate),
			"leave_approve": Use(rbac.ActionEditAssigned),
		}},
		{Pattern: "/crm", Resource: "crm_leads", Action: rbac.ActionViewAll, Files: map[string]Override{
			"lead_add":    Use(rbac.ActionCreate),
			"lead_delete": Use(rbac.ActionDeleteAll),
			"lead_export": Use(rbac.ActionExport),
			"lead_view": AnyOf(rbac.ActionEditAssigned,
				g("crm_leads", rbac.ActionViewAll),
				g("crm_leads", rbac.ActionViewAssigned),
				g("crm_leads", rbac.ActionViewOwn)),
			"lead_edit": AnyOf(rbac.ActionEditAll,
				g("crm_leads", rbac.ActionEditAll),
				g("crm_leads", rbac.ActionEditAssigned),
				g("crm_leads", rbac.ActionEditOwn)),
		}},
		{Pattern: "/crm/reports", Resource: "crm_reports", Action: rbac.ActionViewAll, Files: map[string]Override{
			"export_csv": Use(rbac.ActionExport),
		}},
		{Pattern: "/projects", Resource: "projects", Action: rbac.ActionViewAll, Files: map[string]Override{
			"project_add":  Use(rbac.ActionCreate),
			"project_edit": AnyOf(rbac.ActionEditAll, g("projects", rbac.ActionEditAll), g("projects", rbac.ActionEditAssigned)),
		}},
		{Pattern: "/sales/invoices", Resource: "invoices", Action: rbac.ActionViewAll, Files: map[string]Override{
			"invoice_add":    Use(rbac.ActionCreate),
			"invoice_edit":   Use(rbac.ActionEditAll),
			"invoice_void":   Use(rbac.ActionDeleteAll),
			"invoice_export": Use(rbac.ActionExport),
			"invoice_pdf": AnyOf(rbac.ActionViewAll,
				g("invoices", rbac.ActionViewAll),
				g("crm_leads", rbac.ActionViewAssigned)),
		}},
		{Pattern: "/inventory", Resource: "stock_items", Action: rbac.ActionViewAll, Files: map[string]Override{
			"stock_adjust": Use(rbac.ActionEditAll),
			"stock_export": Use(rbac.ActionExport),
		}},
		{Pattern: "/inventory/purchasing", Resource: "purchase_orders", Action: rbac.ActionViewAll, Files: map[string]Override{
			"po_add":     Use(rbac.ActionCreate),
			"po_approve": Use(rbac.ActionEditAll),
		}},
		{Pattern: "/catalog", Resource: "products", Action: rbac.ActionViewAll, Files: map[string]Override{
			"product_add":  Use(rbac.ActionCreate),
			"product_edit": Use(rbac.ActionEditAll),
		}},
		{Pattern: "/admin", Resource: "admin_permissions", Action: rbac.ActionEditAll},
	}
}
