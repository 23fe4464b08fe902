package controller

import (
	"boardroom/services"

	"github.com/gofiber/fiber/v2"
)

type CompanyController struct {
	Members *services.MemberService
}

func NewCompanyController(members *services.MemberService) *CompanyController {
	return &CompanyController{Members: members}
}

// CreateCompany creates a company owned by the caller
func (cc *CompanyController) CreateCompany(c *fiber.Ctx) error {
	var input services.CompanyInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	company, err := cc.Members.CreateCompany(c.UserContext(), currentUserID(c), input)
	if err != nil {
		return err
	}
	return created(c, company)
}

// ListCompanies returns the companies the caller actively belongs to
func (cc *CompanyController) ListCompanies(c *fiber.Ctx) error {
	companies, err := cc.Members.ListCompanies(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}
	return ok(c, companies)
}

func (cc *CompanyController) GetCompany(c *fiber.Ctx) error {
	company, err := cc.Members.GetCompany(c.UserContext(), c.Params("companyId"))
	if err != nil {
		return err
	}
	return ok(c, company)
}

func (cc *CompanyController) ListMembers(c *fiber.Ctx) error {
	members, err := cc.Members.ListMembers(c.UserContext(), c.Params("companyId"))
	if err != nil {
		return err
	}
	return ok(c, members)
}

func (cc *CompanyController) AddMember(c *fiber.Ctx) error {
	var input services.AddMemberInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	member, err := cc.Members.AddMember(c.UserContext(), c.Params("companyId"), input)
	if err != nil {
		return err
	}
	return created(c, member)
}

func (cc *CompanyController) UpdateMember(c *fiber.Ctx) error {
	var input services.UpdateMemberInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	member, err := cc.Members.UpdateMember(c.UserContext(), currentUserID(c), c.Params("companyId"), c.Params("userId"), input)
	if err != nil {
		return err
	}
	return ok(c, member)
}

// RemoveMember flips the membership to FORMER; history stays attributable
func (cc *CompanyController) RemoveMember(c *fiber.Ctx) error {
	if err := cc.Members.RemoveMember(c.UserContext(), c.Params("companyId"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
