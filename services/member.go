package services

import (
	"context"
	"errors"
	"strings"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"

	"github.com/sirupsen/logrus"
)

// MemberService manages companies and the memberships inside them.
type MemberService struct {
	store repository.Store
	perms *PermissionService
	log   *logrus.Entry
}

func NewMemberService(store repository.Store, perms *PermissionService) *MemberService {
	return &MemberService{store: store, perms: perms, log: utils.Component("members")}
}

type CompanyInput struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=1000"`
}

type AddMemberInput struct {
	UserID       string      `json:"userId" validate:"required"`
	Role         models.Role `json:"role" validate:"required,oneof=ADMIN BOARD_MEMBER OBSERVER"`
	CustomRoleID *string     `json:"customRoleId" validate:"omitempty,uuid"`
}

type UpdateMemberInput struct {
	Role *models.Role `json:"role" validate:"omitempty,oneof=OWNER ADMIN BOARD_MEMBER OBSERVER"`
	// CustomRoleID set to an empty string clears the custom role.
	CustomRoleID *string `json:"customRoleId"`
}

// CreateCompany creates the company with actorID as its first OWNER and
// writes the default grants.
func (s *MemberService) CreateCompany(ctx context.Context, actorID string, in CompanyInput) (*models.Company, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	company := &models.Company{Name: in.Name, Description: in.Description}
	owner := &models.Membership{UserID: actorID, Role: models.RoleOwner, Status: models.MembershipActive}
	if err := s.store.CreateCompany(ctx, company, owner); err != nil {
		return nil, storeErr(err, "company")
	}
	if err := s.perms.EnsureInitialized(ctx, company.ID); err != nil {
		// Initialization retries lazily on the first permission check.
		utils.Suppress("permission_init", err, map[string]interface{}{"company_id": company.ID})
	}
	s.log.WithFields(logrus.Fields{"company_id": company.ID, "owner": actorID}).Info("Company created")
	return company, nil
}

func (s *MemberService) ListCompanies(ctx context.Context, userID string) ([]models.Company, error) {
	companies, err := s.store.ListCompaniesForUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "companies")
	}
	return companies, nil
}

func (s *MemberService) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "company")
	}
	return company, nil
}

func (s *MemberService) ListMembers(ctx context.Context, companyID string) ([]models.Membership, error) {
	members, err := s.store.ListMemberships(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "members")
	}
	return members, nil
}

func (s *MemberService) checkCustomRole(ctx context.Context, companyID string, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	if _, err := s.store.GetCustomRole(ctx, companyID, *id); err != nil {
		return storeErr(err, "custom role")
	}
	return nil
}

// AddMember grants a known user a membership. A FORMER membership is
// reactivated in place since rows are never deleted.
func (s *MemberService) AddMember(ctx context.Context, companyID string, in AddMemberInput) (*models.Membership, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	users, err := s.store.GetUsers(ctx, []string{in.UserID})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if len(users) == 0 {
		return nil, utils.NotFound("user not found")
	}
	if err := s.checkCustomRole(ctx, companyID, in.CustomRoleID); err != nil {
		return nil, err
	}

	existing, err := s.store.GetMembership(ctx, in.UserID, companyID)
	switch {
	case err == nil && existing.IsActive():
		return nil, utils.Conflict("user is already a member")
	case err == nil:
		existing.Role = in.Role
		existing.CustomRoleID = in.CustomRoleID
		existing.Status = models.MembershipActive
		if err := s.store.UpdateMembership(ctx, existing); err != nil {
			return nil, storeErr(err, "membership")
		}
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr(err, "membership")
	}

	m := &models.Membership{
		UserID:       in.UserID,
		CompanyID:    companyID,
		Role:         in.Role,
		CustomRoleID: in.CustomRoleID,
		Status:       models.MembershipActive,
	}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, storeErr(err, "membership")
	}
	return m, nil
}

// UpdateMember changes a member's role or custom role. Only an OWNER may
// promote to OWNER and the last OWNER cannot be demoted.
func (s *MemberService) UpdateMember(ctx context.Context, actorID, companyID, userID string, in UpdateMemberInput) (*models.Membership, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	m, err := s.store.GetMembership(ctx, userID, companyID)
	if err != nil {
		return nil, storeErr(err, "member")
	}
	if !m.IsActive() {
		return nil, utils.NotFound("member not found")
	}

	if in.Role != nil && *in.Role != m.Role {
		if *in.Role == models.RoleOwner && !s.perms.HasRole(ctx, actorID, companyID, models.RoleOwner) {
			return nil, utils.Forbidden("only an owner can grant ownership")
		}
		if m.Role == models.RoleOwner {
			if err := s.ensureAnotherOwner(ctx, companyID); err != nil {
				return nil, err
			}
		}
		m.Role = *in.Role
	}
	if in.CustomRoleID != nil {
		if *in.CustomRoleID == "" {
			m.CustomRoleID = nil
		} else {
			if err := s.checkCustomRole(ctx, companyID, in.CustomRoleID); err != nil {
				return nil, err
			}
			id := *in.CustomRoleID
			m.CustomRoleID = &id
		}
	}
	if err := s.store.UpdateMembership(ctx, m); err != nil {
		return nil, storeErr(err, "membership")
	}
	return m, nil
}

// RemoveMember flips the membership to FORMER.
func (s *MemberService) RemoveMember(ctx context.Context, companyID, userID string) error {
	m, err := s.store.GetMembership(ctx, userID, companyID)
	if err != nil {
		return storeErr(err, "member")
	}
	if !m.IsActive() {
		return utils.NotFound("member not found")
	}
	if m.Role == models.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, companyID); err != nil {
			return err
		}
	}
	m.Status = models.MembershipFormer
	return storeErr(s.store.UpdateMembership(ctx, m), "membership")
}

func (s *MemberService) ensureAnotherOwner(ctx context.Context, companyID string) error {
	n, err := s.store.CountActiveOwners(ctx, companyID)
	if err != nil {
		return storeErr(err, "memberships")
	}
	if n <= 1 {
		return utils.InvalidState("a company must keep at least one owner")
	}
	return nil
}

// SyncUser upserts the local projection of an identity-provider user.
func (s *MemberService) SyncUser(ctx context.Context, user *models.User) error {
	return storeErr(s.store.UpsertUser(ctx, user), "user")
}

// DeactivateUser marks every membership of a deleted identity as FORMER.
func (s *MemberService) DeactivateUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeactivateUserMemberships(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "memberships")
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "memberships": n}).Info("Deactivated user memberships")
	return n, nil
}
