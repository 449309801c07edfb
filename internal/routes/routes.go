package routes

import (
	"github.com/bohemiyan/erp-rbac/internal/config"
	"github.com/bohemiyan/erp-rbac/discovery"
	"github.com/bohemiyan/erp-rbac/modules"
	"github.com/bohemiyan/erp-rbac/routing"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	rbac "github.com/bohemiyan/erp-rbac"
)

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	RBAC     *rbac.RBAC
	Mapper   *routing.Mapper
	Gates    *routing.Gates
	Modules  *modules.Checker
	Registry *discovery.Registry
	Env      config.Environment
	Log      *zap.Logger
	// Principal identifies the caller. Nil means LocalsPrincipal.
	Principal PrincipalFunc
	// Pages serves every guarded path that is not an admin endpoint. Nil
	// means a handler that reports what guarded the request.
	Pages fiber.Handler
}

// Setup registers the engine on app. Order matters: the module gate runs
// before authorization, and the self-service check runs before the guard.
func Setup(app *fiber.App, d Deps) *Handler {
	h := New(d)

	app.Get("/me/can", h.MeCan)

	app.Use(h.ModuleGate())
	app.Use(h.Guard())

	admin := app.Group("/admin")
	admin.Post("/permissions/cell", h.SetPermissionCell)
	admin.Post("/permissions/sync", h.SyncPermissions)
	admin.Get("/roles/:id/permissions", h.RolePermissions)
	admin.Put("/users/:id/roles", h.ReplaceUserRoles)
	admin.Get("/modules/:key/readiness", h.ModuleReadiness)

	app.All("/*", h.pages)
	return h
}
