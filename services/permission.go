package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// PermissionService resolves (user, company, code) to allow or deny. Every
// authorization decision in the process goes through it, including the
// realtime gateway's.
type PermissionService struct {
	store repository.Store
	log   *logrus.Entry

	inits       singleflight.Group
	initialized sync.Map
}

func NewPermissionService(store repository.Store) *PermissionService {
	return &PermissionService{
		store: store,
		log:   utils.Component("permissions"),
	}
}

// SeedCatalog inserts the static permission catalog. Safe to run on every boot.
func (s *PermissionService) SeedCatalog(ctx context.Context) error {
	if err := s.store.SeedPermissions(ctx, models.CatalogPermissions()); err != nil {
		return storeErr(err, "permission catalog")
	}
	return nil
}

// EnsureInitialized writes the default grant rows of companyID once.
// Concurrent callers for the same company share one in-flight
// initialization; the insert itself is idempotent so a second process
// racing this one cannot duplicate rows either.
func (s *PermissionService) EnsureInitialized(ctx context.Context, companyID string) error {
	if _, ok := s.initialized.Load(companyID); ok {
		return nil
	}
	_, err, _ := s.inits.Do(companyID, func() (interface{}, error) {
		if _, ok := s.initialized.Load(companyID); ok {
			return nil, nil
		}
		has, err := s.store.HasRolePermissions(ctx, companyID)
		if err != nil {
			return nil, err
		}
		if !has {
			catalog, err := s.store.ListPermissions(ctx)
			if err != nil {
				return nil, err
			}
			if len(catalog) == 0 {
				if err := s.SeedCatalog(ctx); err != nil {
					return nil, err
				}
				if catalog, err = s.store.ListPermissions(ctx); err != nil {
					return nil, err
				}
			}
			if err := s.store.InsertRolePermissions(ctx, models.DefaultGrantsFor(companyID, catalog)); err != nil {
				return nil, err
			}
			s.log.WithField("company_id", companyID).Info("Initialized default role permissions")
		}
		s.initialized.Store(companyID, struct{}{})
		return nil, nil
	})
	if err != nil {
		return storeErr(err, "role permissions")
	}
	return nil
}

// ActiveMembership returns the caller's ACTIVE membership or an
// authorization error. Storage failures are returned as internal errors.
func (s *PermissionService) ActiveMembership(ctx context.Context, userID, companyID string) (*models.Membership, error) {
	m, err := s.store.GetMembership(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.Forbidden("not a member of this company")
		}
		return nil, storeErr(err, "membership")
	}
	if !m.IsActive() {
		return nil, utils.Forbidden("not a member of this company")
	}
	return m, nil
}

// MemberOf is ActiveMembership for resources addressed by their own id.
// Outsiders get a not-found error naming what, so a foreign id reads the
// same as an unknown one.
func (s *PermissionService) MemberOf(ctx context.Context, userID, companyID, what string) (*models.Membership, error) {
	m, err := s.ActiveMembership(ctx, userID, companyID)
	if utils.KindOf(err) == utils.KindAuthorization {
		return nil, utils.NotFound(what + " not found")
	}
	return m, err
}

func (s *PermissionService) IsMember(ctx context.Context, userID, companyID string) bool {
	_, err := s.ActiveMembership(ctx, userID, companyID)
	return err == nil
}

// HasRole reports whether the caller's active membership carries one of roles.
func (s *PermissionService) HasRole(ctx context.Context, userID, companyID string, roles ...models.Role) bool {
	m, err := s.ActiveMembership(ctx, userID, companyID)
	if err != nil {
		s.logLookupFailure(err, userID, companyID)
		return false
	}
	for _, r := range roles {
		if m.Role == r {
			return true
		}
	}
	return false
}

// HasPermission never returns an error: unknown codes, missing memberships
// and storage failures all deny.
func (s *PermissionService) HasPermission(ctx context.Context, userID, companyID, code string) bool {
	m, err := s.ActiveMembership(ctx, userID, companyID)
	if err != nil {
		s.logLookupFailure(err, userID, companyID)
		return false
	}
	if m.Role == models.RoleOwner {
		return true
	}
	allowed, err := s.resolve(ctx, m, code)
	if err != nil {
		utils.LogError("permission_resolution_failed", err, map[string]interface{}{
			"user_id":    userID,
			"company_id": companyID,
			"code":       code,
		})
		return false
	}
	return allowed
}

// HasAnyPermission short-circuits on the first allowed code.
func (s *PermissionService) HasAnyPermission(ctx context.Context, userID, companyID string, codes ...string) bool {
	m, err := s.ActiveMembership(ctx, userID, companyID)
	if err != nil {
		s.logLookupFailure(err, userID, companyID)
		return false
	}
	if m.Role == models.RoleOwner {
		return true
	}
	for _, code := range codes {
		allowed, err := s.resolve(ctx, m, code)
		if err != nil {
			utils.LogError("permission_resolution_failed", err, map[string]interface{}{
				"user_id":    userID,
				"company_id": companyID,
				"code":       code,
			})
			continue
		}
		if allowed {
			return true
		}
	}
	return false
}

// resolve applies the grant rows of membership's roles to code. A custom
// role row, when present, overrides the system role row.
func (s *PermissionService) resolve(ctx context.Context, m *models.Membership, code string) (bool, error) {
	if err := s.EnsureInitialized(ctx, m.CompanyID); err != nil {
		return false, err
	}
	perm, err := s.store.GetPermissionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	rows, err := s.store.FindRolePermissions(ctx, m.CompanyID, perm.ID, m.Role, m.CustomRoleID)
	if err != nil {
		return false, err
	}
	return pickGrant(rows), nil
}

func pickGrant(rows []models.RolePermission) bool {
	var system *models.RolePermission
	for i := range rows {
		if rows[i].CustomRoleID != nil {
			return rows[i].Granted
		}
		if system == nil {
			system = &rows[i]
		}
	}
	return system != nil && system.Granted
}

// GetUserPermissions lists the granted codes of the caller, sorted.
// Owners receive the whole catalog.
func (s *PermissionService) GetUserPermissions(ctx context.Context, userID, companyID string) ([]string, error) {
	m, err := s.ActiveMembership(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	if m.Role == models.RoleOwner {
		catalog, err := s.store.ListPermissions(ctx)
		if err != nil {
			return nil, storeErr(err, "permission catalog")
		}
		codes := make([]string, 0, len(catalog))
		for _, p := range catalog {
			codes = append(codes, p.Code)
		}
		sort.Strings(codes)
		return codes, nil
	}

	if err := s.EnsureInitialized(ctx, companyID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListRolePermissions(ctx, companyID, m.Role, m.CustomRoleID)
	if err != nil {
		return nil, storeErr(err, "role permissions")
	}

	byCode := make(map[string][]models.RolePermission)
	for _, rp := range rows {
		if rp.Permission == nil {
			continue
		}
		byCode[rp.Permission.Code] = append(byCode[rp.Permission.Code], rp)
	}
	codes := make([]string, 0, len(byCode))
	for code, grants := range byCode {
		if pickGrant(grants) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *PermissionService) logLookupFailure(err error, userID, companyID string) {
	if utils.KindOf(err) == utils.KindInternal {
		utils.LogError("membership_lookup_failed", err, map[string]interface{}{
			"user_id":    userID,
			"company_id": companyID,
		})
	}
}
