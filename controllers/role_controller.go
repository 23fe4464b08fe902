package controller

import (
	"strings"

	"boardroom/models"
	"boardroom/services"

	"github.com/gofiber/fiber/v2"
)

type RoleController struct {
	Roles *services.RoleService
	Perms *services.PermissionService
}

func NewRoleController(roles *services.RoleService, perms *services.PermissionService) *RoleController {
	return &RoleController{Roles: roles, Perms: perms}
}

type grantsInput struct {
	Permissions []string `json:"permissions"`
}

func (rc *RoleController) ListRoles(c *fiber.Ctx) error {
	roles, err := rc.Roles.List(c.UserContext(), c.Params("companyId"))
	if err != nil {
		return err
	}
	return ok(c, roles)
}

func (rc *RoleController) CreateRole(c *fiber.Ctx) error {
	var input services.RoleInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	role, err := rc.Roles.Create(c.UserContext(), c.Params("companyId"), input)
	if err != nil {
		return err
	}
	return created(c, role)
}

func (rc *RoleController) UpdateRole(c *fiber.Ctx) error {
	var input services.RoleInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	role, err := rc.Roles.Update(c.UserContext(), c.Params("companyId"), c.Params("roleId"), input)
	if err != nil {
		return err
	}
	return ok(c, role)
}

func (rc *RoleController) DeleteRole(c *fiber.Ctx) error {
	if err := rc.Roles.Delete(c.UserContext(), c.Params("companyId"), c.Params("roleId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetRoleGrants replaces the granted codes of a custom role
func (rc *RoleController) SetRoleGrants(c *fiber.Ctx) error {
	var input grantsInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	if err := rc.Roles.SetGrants(c.UserContext(), c.Params("companyId"), c.Params("roleId"), input.Permissions); err != nil {
		return err
	}
	return ok(c, fiber.Map{"permissions": input.Permissions})
}

// SetSystemRoleGrants overrides a system role's grants for one company
func (rc *RoleController) SetSystemRoleGrants(c *fiber.Ctx) error {
	var input grantsInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	role := models.Role(strings.ToUpper(c.Params("role")))
	if err := rc.Roles.SetSystemRoleGrants(c.UserContext(), c.Params("companyId"), role, input.Permissions); err != nil {
		return err
	}
	return ok(c, fiber.Map{"role": role, "permissions": input.Permissions})
}

func (rc *RoleController) Catalog(c *fiber.Ctx) error {
	catalog, err := rc.Roles.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, catalog)
}

// MyPermissions lists the codes the caller holds in the company
func (rc *RoleController) MyPermissions(c *fiber.Ctx) error {
	codes, err := rc.Perms.GetUserPermissions(c.UserContext(), currentUserID(c), c.Params("companyId"))
	if err != nil {
		return err
	}
	return ok(c, codes)
}
