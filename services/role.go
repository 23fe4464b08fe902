package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"
)

// RoleService manages custom roles and per-company grant overrides.
type RoleService struct {
	store repository.Store
	perms *PermissionService
}

func NewRoleService(store repository.Store, perms *PermissionService) *RoleService {
	return &RoleService{store: store, perms: perms}
}

type RoleInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

func normalizeRoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return "", utils.Validation("role name must be between 2 and 50 characters")
	}
	return name, nil
}

func (s *RoleService) List(ctx context.Context, companyID string) ([]models.CustomRole, error) {
	roles, err := s.store.ListCustomRoles(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "custom roles")
	}
	return roles, nil
}

// Create adds a custom role. The per-company cap is enforced by the store
// atomically with the insert.
func (s *RoleService) Create(ctx context.Context, companyID string, in RoleInput) (*models.CustomRole, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	name, err := normalizeRoleName(in.Name)
	if err != nil {
		return nil, err
	}
	role := &models.CustomRole{CompanyID: companyID, Name: name, Description: in.Description}
	if err := s.store.CreateCustomRole(ctx, role, models.MaxCustomRolesPerCompany); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacity):
			return nil, utils.CapacityExceeded("a company can define at most 5 custom roles")
		case errors.Is(err, repository.ErrConflict):
			return nil, utils.Conflict("a custom role named " + name + " already exists")
		}
		return nil, storeErr(err, "custom role")
	}
	return role, nil
}

func (s *RoleService) Update(ctx context.Context, companyID, roleID string, in RoleInput) (*models.CustomRole, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	name, err := normalizeRoleName(in.Name)
	if err != nil {
		return nil, err
	}
	role, err := s.store.GetCustomRole(ctx, companyID, roleID)
	if err != nil {
		return nil, storeErr(err, "custom role")
	}
	role.Name = name
	role.Description = in.Description
	if err := s.store.UpdateCustomRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, utils.Conflict("a custom role named " + name + " already exists")
		}
		return nil, storeErr(err, "custom role")
	}
	return role, nil
}

// Delete refuses while any membership still references the role.
func (s *RoleService) Delete(ctx context.Context, companyID, roleID string) error {
	if _, err := s.store.GetCustomRole(ctx, companyID, roleID); err != nil {
		return storeErr(err, "custom role")
	}
	n, err := s.store.CountMembershipsWithCustomRole(ctx, roleID)
	if err != nil {
		return storeErr(err, "memberships")
	}
	if n > 0 {
		return utils.Conflict("custom role is still assigned to members")
	}
	return storeErr(s.store.DeleteCustomRole(ctx, roleID), "custom role")
}

func (s *RoleService) Catalog(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, storeErr(err, "permission catalog")
	}
	return perms, nil
}

// grantRows builds one row per catalog entry; codes lists the granted ones.
// Unknown codes are rejected.
func (s *RoleService) grantRows(ctx context.Context, codes []string, row func(perm models.Permission, granted bool) models.RolePermission) ([]models.RolePermission, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(catalog))
	for _, p := range catalog {
		known[p.Code] = true
	}
	granted := make(map[string]bool, len(codes))
	for _, code := range codes {
		if !known[code] {
			return nil, utils.Validation("unknown permission code " + code)
		}
		granted[code] = true
	}
	rows := make([]models.RolePermission, 0, len(catalog))
	for _, p := range catalog {
		rows = append(rows, row(p, granted[p.Code]))
	}
	return rows, nil
}

// SetGrants replaces the grant set of a custom role.
func (s *RoleService) SetGrants(ctx context.Context, companyID, roleID string, codes []string) error {
	if _, err := s.store.GetCustomRole(ctx, companyID, roleID); err != nil {
		return storeErr(err, "custom role")
	}
	rows, err := s.grantRows(ctx, codes, func(p models.Permission, granted bool) models.RolePermission {
		id := roleID
		return models.RolePermission{CompanyID: companyID, CustomRoleID: &id, PermissionID: p.ID, Granted: granted}
	})
	if err != nil {
		return err
	}
	return storeErr(s.store.UpsertRolePermissions(ctx, rows), "role permissions")
}

// SetSystemRoleGrants overrides a system role's defaults for one company.
// OWNER has no grant rows and cannot be overridden.
func (s *RoleService) SetSystemRoleGrants(ctx context.Context, companyID string, role models.Role, codes []string) error {
	if !role.Valid() || role == models.RoleOwner {
		return utils.Validation("role must be ADMIN, BOARD_MEMBER or OBSERVER")
	}
	if err := s.perms.EnsureInitialized(ctx, companyID); err != nil {
		return err
	}
	rows, err := s.grantRows(ctx, codes, func(p models.Permission, granted bool) models.RolePermission {
		r := role
		return models.RolePermission{CompanyID: companyID, Role: &r, PermissionID: p.ID, Granted: granted}
	})
	if err != nil {
		return err
	}
	return storeErr(s.store.UpsertRolePermissions(ctx, rows), "role permissions")
}
