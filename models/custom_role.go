package models

// MaxCustomRolesPerCompany caps how many custom roles a company may define.
const MaxCustomRolesPerCompany = 5

// CustomRole is a company-defined role with its own grant set.
type CustomRole struct {
	Base
	CompanyID   string `gorm:"type:uuid;not null;uniqueIndex:idx_custom_role_company_name" json:"companyId"`
	Name        string `gorm:"size:50;not null;uniqueIndex:idx_custom_role_company_name" json:"name"`
	Description string `json:"description,omitempty"`
}
