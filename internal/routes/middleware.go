package routes

import (
	"github.com/bohemiyan/erp-rbac/modules"
	"github.com/bohemiyan/erp-rbac/routing"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	rbac "github.com/bohemiyan/erp-rbac"
)

const (
	localEmployeeID = "employee_id"
	localAccess     = "rbac_access"
	localEvaluator  = "rbac_evaluator"
	localRequestID  = "request_id"
)

// PrincipalFunc returns the authenticated user of the request.
type PrincipalFunc func(c *fiber.Ctx) (uint, bool)

// LocalsPrincipal reads the user id the session layer stored in
// Locals("employee_id").
func LocalsPrincipal(c *fiber.Ctx) (uint, bool) {
	switch v := c.Locals(localEmployeeID).(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	}
	return 0, false
}

// Handler serves the access-control endpoints and middleware.
type Handler struct {
	d Deps
}

// New builds a Handler, filling defaults.
func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Principal == nil {
		d.Principal = LocalsPrincipal
	}
	d.Log = d.Log.Named("http")
	return &Handler{d: d}
}

// Access returns what the guard resolved for the request.
func Access(c *fiber.Ctx) (routing.Resolved, bool) {
	res, ok := c.Locals(localAccess).(routing.Resolved)
	return res, ok
}

// Evaluator returns the request-scoped evaluator the guard used, for
// handlers that need a stricter follow-up check. Nil on skipped routes.
func Evaluator(c *fiber.Ctx) *rbac.Evaluator {
	e, _ := c.Locals(localEvaluator).(*rbac.Evaluator)
	return e
}

func (h *Handler) withRequestID(c *fiber.Ctx) {
	if _, ok := c.Locals(localRequestID).(string); ok {
		return
	}
	id := uuid.NewString()
	c.Locals(localRequestID, id)
	c.SetUserContext(rbac.WithRequestID(c.UserContext(), id))
}

// ModuleGate blocks pages of a module whose prerequisites are not
// installed, before any authorization runs. The blocked page is a normal
// response listing what to set up.
func (h *Handler) ModuleGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.d.Gates == nil || h.d.Modules == nil {
			return c.Next()
		}
		module, ok := h.d.Gates.ModuleFor(c.Path())
		if !ok {
			return c.Next()
		}
		return h.gate(c, module)
	}
}

// RequireModule gates a route group on one module regardless of its path,
// e.g. app.Group("/reports/payroll", h.RequireModule("payroll")).
func (h *Handler) RequireModule(module string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.d.Modules == nil {
			return c.Next()
		}
		return h.gate(c, module)
	}
}

func (h *Handler) gate(c *fiber.Ctx, module string) error {
	h.withRequestID(c)
	res := h.d.Modules.CheckPrerequisites(c.UserContext(), module)
	if res.Met {
		return c.Next()
	}
	return c.Status(fiber.StatusOK).JSON(h.unavailable(res))
}

type moduleUnavailable struct {
	Module    string            `json:"module"`
	Available bool              `json:"available"`
	Missing   []modules.Missing `json:"missing"`
}

func (h *Handler) unavailable(res modules.Result) moduleUnavailable {
	out := moduleUnavailable{Module: res.Module, Available: res.Met, Missing: make([]modules.Missing, 0, len(res.Missing))}
	for _, m := range res.Missing {
		m.SetupHint = h.d.Env.URL(m.SetupHint)
		out.Missing = append(out.Missing, m)
	}
	return out
}

// Guard resolves the request path and lets it through only when the
// caller holds the resolved action, or any alternative of a RequiresAny
// route. Skip routes pass untouched.
func (h *Handler) Guard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		h.withRequestID(c)
		res := h.d.Mapper.Resolve(c.Path())
		c.Locals(localAccess, res)
		if res.Skip {
			return c.Next()
		}

		userID, ok := h.d.Principal(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(response{Error: "authentication required"})
		}

		ev := h.d.RBAC.NewEvaluator()
		c.Locals(localEvaluator, ev)

		ctx := c.UserContext()
		var allowed bool
		if res.Any != nil {
			allowed = ev.CanAny(ctx, userID, res.Any.Alternatives)
		} else {
			allowed = ev.Can(ctx, userID, res.Resource, res.Action)
		}
		if !allowed {
			h.d.Log.Debug("access denied",
				zap.Uint("user_id", userID),
				zap.String("path", res.Path),
				zap.String("resource", res.Resource),
				zap.Stringer("action", res.Action))
			return c.Status(fiber.StatusForbidden).JSON(response{Error: "access denied"})
		}
		return c.Next()
	}
}

func (h *Handler) pages(c *fiber.Ctx) error {
	if h.d.Pages != nil {
		return h.d.Pages(c)
	}
	res, _ := Access(c)
	return c.JSON(res)
}
