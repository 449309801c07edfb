package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	rbac "github.com/bohemiyan/erp-rbac"
)

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// fail maps engine errors to statuses. Storage details stay in the log.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rbac.ErrValidation), errors.Is(err, rbac.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: err.Error()})
	case errors.Is(err, rbac.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(response{Error: err.Error()})
	case errors.Is(err, rbac.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(response{Error: err.Error()})
	}
	h.d.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(response{Error: "internal error"})
}

func (h *Handler) actor(c *fiber.Ctx) uint {
	id, _ := h.d.Principal(c)
	return id
}

type cellRequest struct {
	RoleID     uint   `json:"role_id"`
	ResourceID uint   `json:"resource_id"`
	Action     string `json:"action"`
	Value      int    `json:"value"`
}

// SetPermissionCell flips one checkbox of the role/resource matrix.
func (h *Handler) SetPermissionCell(c *fiber.Ctx) error {
	var req cellRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "invalid request body"})
	}
	if req.Value != 0 && req.Value != 1 {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "value must be 0 or 1"})
	}
	err := h.d.RBAC.SetCell(c.UserContext(), req.RoleID, req.ResourceID, req.Action, req.Value == 1, h.actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(response{Success: true})
}

// SyncPermissions reconciles the resource registry with the pages on disk
// and the route rules.
func (h *Handler) SyncPermissions(c *fiber.Ctx) error {
	if h.d.Registry == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response{Error: "resource discovery is not configured"})
	}
	res, err := h.d.Registry.Sync(c.UserContext(), h.actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "result": res})
}

type matrixRow struct {
	ResourceID uint          `json:"resource_id"`
	Actions    []rbac.Action `json:"actions"`
}

// RolePermissions lists the granted actions of a role per resource.
func (h *Handler) RolePermissions(c *fiber.Ctx) error {
	roleID, err := c.ParamsInt("id")
	if err != nil || roleID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "invalid role id"})
	}
	ctx := c.UserContext()
	if _, err := h.d.RBAC.GetRole(ctx, uint(roleID)); err != nil {
		return h.fail(c, err)
	}
	rows, err := h.d.RBAC.ListRolePermissions(ctx, uint(roleID))
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]matrixRow, 0, len(rows))
	for i := range rows {
		out = append(out, matrixRow{ResourceID: rows[i].PermissionID, Actions: rows[i].Actions().List()})
	}
	return c.JSON(fiber.Map{"success": true, "permissions": out})
}

type userRolesRequest struct {
	RoleIDs []uint `json:"role_ids"`
}

// ReplaceUserRoles sets the complete role list of a user.
func (h *Handler) ReplaceUserRoles(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "invalid user id"})
	}
	var req userRolesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "invalid request body"})
	}
	if err := h.d.RBAC.ReplaceUserRoles(c.UserContext(), uint(userID), req.RoleIDs, h.actor(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(response{Success: true})
}

// ModuleReadiness reports whether a module's prerequisites are installed.
func (h *Handler) ModuleReadiness(c *fiber.Ctx) error {
	if h.d.Modules == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response{Error: "module checks are not configured"})
	}
	key := c.Params("key")
	if _, ok := h.d.Modules.Graph().Module(key); !ok {
		return c.Status(fiber.StatusNotFound).JSON(response{Error: "unknown module"})
	}
	res := h.d.Modules.CheckPrerequisites(c.UserContext(), key)
	for i := range res.Missing {
		res.Missing[i].SetupHint = h.d.Env.URL(res.Missing[i].SetupHint)
	}
	return c.JSON(res)
}

// MeCan answers a single access question for the caller, e.g. to decide
// whether a button is rendered.
func (h *Handler) MeCan(c *fiber.Ctx) error {
	h.withRequestID(c)
	userID, ok := h.d.Principal(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(response{Error: "authentication required"})
	}
	resource := c.Query("resource")
	if resource == "" {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "resource is required"})
	}
	action, err := rbac.ParseAction(c.Query("action"))
	if err != nil {
		return h.fail(c, err)
	}
	allowed := h.d.RBAC.Can(c.UserContext(), userID, resource, action)
	return c.JSON(fiber.Map{"success": true, "allowed": allowed})
}
