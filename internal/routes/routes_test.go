package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/bohemiyan/erp-rbac/discovery"
	"github.com/bohemiyan/erp-rbac/internal/config"
	"github.com/bohemiyan/erp-rbac/modules"
	"github.com/bohemiyan/erp-rbac/routing"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	rbac "github.com/bohemiyan/erp-rbac"
)

const (
	adminUser   = 1
	managerUser = 2
	staffUser   = 3
)

type tableSet map[string]bool

func (s tableSet) HasTable(_ context.Context, table string) (bool, error) {
	return s[table], nil
}

func headerPrincipal(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Get("X-User-ID"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type testEnv struct {
	app    *fiber.App
	engine *rbac.RBAC
	ids    map[string]uint
	roles  map[string]uint
}

func setupTestApp(t *testing.T, pages ...fiber.Handler) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	engine, err := rbac.NewRBAC(rbac.Config{DB: db, Logger: zap.NewNop(), AutoMigrate: true, EnableAuditLogging: true})
	require.NoError(t, err)

	mapper := routing.MustCompile(routing.DefaultRules())
	registry := discovery.NewRegistry(fstest.MapFS{
		"dashboard.php":         {},
		"reports/quarterly.php": {},
	}, mapper, engine, discovery.Options{})
	_, err = registry.Sync(ctx, adminUser)
	require.NoError(t, err)

	graph := modules.DefaultGraph()
	checker := modules.NewChecker(graph, modules.NewTableState(graph, tableSet{"employees": true}), nil)

	env := &testEnv{engine: engine, ids: map[string]uint{}, roles: map[string]uint{}}
	for _, key := range []string{"employees", "salary_records", "admin_permissions", "reports/quarterly"} {
		p, err := engine.GetPermissionByKey(ctx, key)
		require.NoError(t, err)
		env.ids[key] = p.ID
	}

	setRole := func(user uint, name string, grants ...rbac.Grant) {
		role, err := engine.CreateRole(ctx, name, false, adminUser)
		require.NoError(t, err)
		env.roles[name] = role.ID
		for _, g := range grants {
			require.NoError(t, engine.SetCell(ctx, role.ID, env.ids[g.Resource], g.Action.String(), true, adminUser))
		}
		require.NoError(t, engine.ReplaceUserRoles(ctx, user, []uint{role.ID}, adminUser))
	}
	setRole(adminUser, "Administrator", rbac.Grant{Resource: "admin_permissions", Action: rbac.ActionEditAll})
	setRole(managerUser, "Manager",
		rbac.Grant{Resource: "employees", Action: rbac.ActionViewAll},
		rbac.Grant{Resource: "employees", Action: rbac.ActionEditAll})
	setRole(staffUser, "Staff", rbac.Grant{Resource: "salary_records", Action: rbac.ActionViewOwn})

	env.app = fiber.New()
	deps := Deps{
		RBAC:      engine,
		Mapper:    mapper,
		Gates:     routing.MustCompileGates(routing.DefaultGates()),
		Modules:   checker,
		Registry:  registry,
		Env:       config.Environment{Name: "test", Hostname: "localhost", BaseURL: "http://erp.test"},
		Log:       zap.NewNop(),
		Principal: headerPrincipal,
	}
	if len(pages) > 0 {
		deps.Pages = pages[0]
	}
	Setup(env.app, deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, user uint, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != 0 {
		req.Header.Set("X-User-ID", strconv.Itoa(int(user)))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestGuard(t *testing.T) {
	env := setupTestApp(t)

	tests := []struct {
		name   string
		path   string
		user   uint
		status int
	}{
		{"skip route needs no login", "/auth/login.php", 0, http.StatusOK},
		{"login required", "/hr/employees.php", 0, http.StatusUnauthorized},
		{"granted", "/hr/employees.php", managerUser, http.StatusOK},
		{"file override granted", "/hr/employee_edit.php", managerUser, http.StatusOK},
		{"file override denied", "/hr/employee_delete.php", managerUser, http.StatusForbidden},
		{"no role", "/hr/employees.php", 99, http.StatusForbidden},
		{"requires any", "/hr/salary/salary_slip.php", staffUser, http.StatusOK},
		{"requires any denied", "/hr/salary/salary_slip.php", managerUser, http.StatusForbidden},
		{"page resource without grant", "/reports/quarterly.php", managerUser, http.StatusForbidden},
		{"admin without grant", "/admin/modules/payroll/readiness", managerUser, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, tt.path, tt.user, "")
			assert.Equal(t, tt.status, status)
			if status >= 400 {
				assert.Equal(t, false, body["success"])
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestGuard_ResolvedAccess(t *testing.T) {
	env := setupTestApp(t)
	status, body := env.do(t, http.MethodGet, "/hr/salary/salary_slip.php", staffUser, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "salary_records", body["resource"])
	assert.Equal(t, "view_own", body["action"])
	assert.NotNil(t, body["requires_any"])
}

func TestModuleGate(t *testing.T) {
	env := setupTestApp(t)

	// payroll needs employees and salary; only employees is installed.
	status, body := env.do(t, http.MethodGet, "/hr/payroll/run_payroll.php", 0, "")
	require.Equal(t, http.StatusOK, status, "blocked modules render a normal page")
	assert.Equal(t, "payroll", body["module"])
	assert.Equal(t, false, body["available"])
	missing, ok := body["missing"].([]interface{})
	require.True(t, ok)
	require.Len(t, missing, 1)
	m := missing[0].(map[string]interface{})
	assert.Equal(t, "salary", m["key"])
	assert.Equal(t, "Salary", m["display_name"])
	assert.Equal(t, "http://erp.test/setup/salary", m["setup_hint"])

	// salary only needs employees, so the request reaches authorization.
	status, _ = env.do(t, http.MethodGet, "/hr/salary/salary_slip.php", 0, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSetPermissionCell(t *testing.T) {
	env := setupTestApp(t)
	cell := func(action string, value int) string {
		b, _ := json.Marshal(map[string]interface{}{
			"role_id":     env.roles["Manager"],
			"resource_id": env.ids["reports/quarterly"],
			"action":      action,
			"value":       value,
		})
		return string(b)
	}

	status, body := env.do(t, http.MethodPost, "/admin/permissions/cell", adminUser, cell("view_all", 1))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.True(t, env.engine.Can(context.Background(), managerUser, "reports/quarterly", rbac.ActionViewAll))

	status, _ = env.do(t, http.MethodGet, "/reports/quarterly.php", managerUser, "")
	assert.Equal(t, http.StatusOK, status, "the next request sees the grant")

	status, body = env.do(t, http.MethodPost, "/admin/permissions/cell", adminUser, cell("approve", 1))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	status, _ = env.do(t, http.MethodPost, "/admin/permissions/cell", adminUser, cell("view_all", 2))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/admin/permissions/cell", managerUser, cell("export", 1))
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.engine.Can(context.Background(), managerUser, "reports/quarterly", rbac.ActionExport))

	status, _ = env.do(t, http.MethodPost, "/admin/permissions/cell", adminUser, `{"role_id":999,"resource_id":1,"action":"view_all","value":1}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRolePermissions(t *testing.T) {
	env := setupTestApp(t)
	status, body := env.do(t, http.MethodGet, "/admin/roles/"+strconv.Itoa(int(env.roles["Manager"]))+"/permissions", adminUser, "")
	require.Equal(t, http.StatusOK, status)
	rows := body["permissions"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{"view_all", "edit_all"}, rows[0].(map[string]interface{})["actions"])

	status, _ = env.do(t, http.MethodGet, "/admin/roles/999/permissions", adminUser, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReplaceUserRoles(t *testing.T) {
	env := setupTestApp(t)
	body := `{"role_ids":[` + strconv.Itoa(int(env.roles["Manager"])) + `]}`

	status, _ := env.do(t, http.MethodPut, "/admin/users/42/roles", adminUser, body)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/hr/employees.php", 42, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPut, "/admin/users/42/roles", adminUser, `{"role_ids":[999]}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPut, "/admin/users/abc/roles", adminUser, body)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSyncPermissions(t *testing.T) {
	env := setupTestApp(t)
	status, body := env.do(t, http.MethodPost, "/admin/permissions/sync", adminUser, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, float64(0), result["new"])
	assert.Equal(t, float64(0), result["deactivated"])
}

func TestModuleReadiness(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.do(t, http.MethodGet, "/admin/modules/payroll/readiness", adminUser, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["met"])

	status, body = env.do(t, http.MethodGet, "/admin/modules/assets/readiness", adminUser, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["met"])

	status, _ = env.do(t, http.MethodGet, "/admin/modules/spaceship/readiness", adminUser, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMeCan(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.do(t, http.MethodGet, "/me/can?resource=employees&action=edit_all", managerUser, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["allowed"])

	_, body = env.do(t, http.MethodGet, "/me/can?resource=employees&action=delete_all", managerUser, "")
	assert.Equal(t, false, body["allowed"])

	status, _ = env.do(t, http.MethodGet, "/me/can?resource=employees&action=fly", managerUser, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/me/can?action=view_all", managerUser, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/me/can?resource=employees&action=view_all", 0, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLocalsPrincipal(t *testing.T) {
	app := fiber.New()
	var got uint
	var ok bool
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-Session"); v != "" {
			n, _ := strconv.Atoi(v)
			c.Locals("employee_id", n)
		}
		return c.Next()
	})
	app.Get("/", func(c *fiber.Ctx) error {
		got, ok = LocalsPrincipal(c)
		return c.SendStatus(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session", "123")
	_, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(123), got)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPages_FollowUpCheck(t *testing.T) {
	// Pages behind a RequiresAny route narrow the answer themselves.
	env := setupTestApp(t, func(c *fiber.Ctx) error {
		res, ok := Access(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		ev := Evaluator(c)
		if ev == nil {
			return c.JSON(fiber.Map{"scope": "public"})
		}
		user, _ := headerPrincipal(c)
		scope := "own"
		if ev.Can(c.UserContext(), user, res.Resource, rbac.ActionViewAll) {
			scope = "all"
		}
		return c.JSON(fiber.Map{"scope": scope})
	})

	_, body := env.do(t, http.MethodGet, "/hr/salary/salary_slip.php", staffUser, "")
	assert.Equal(t, "own", body["scope"])

	_, body = env.do(t, http.MethodGet, "/auth/login.php", 0, "")
	assert.Equal(t, "public", body["scope"])
}

func TestRequireModule(t *testing.T) {
	graph := modules.DefaultGraph()
	h := New(Deps{
		Modules: modules.NewChecker(graph, modules.NewTableState(graph, tableSet{"products": true}), nil),
		Env:     config.Environment{BaseURL: "http://erp.test"},
	})
	app := fiber.New()
	app.Get("/stock", h.RequireModule("inventory"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/leave", h.RequireModule("leave"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	env := &testEnv{app: app}
	_, body := env.do(t, http.MethodGet, "/stock", 0, "")
	assert.Equal(t, true, body["ok"])

	status, body := env.do(t, http.MethodGet, "/leave", 0, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["available"])
	assert.Len(t, body["missing"], 2)
}
