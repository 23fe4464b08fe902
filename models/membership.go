package models

// Role is one of the four system roles.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleAdmin       Role = "ADMIN"
	RoleBoardMember Role = "BOARD_MEMBER"
	RoleObserver    Role = "OBSERVER"
)

// SystemRoles lists every system role in descending privilege.
var SystemRoles = []Role{RoleOwner, RoleAdmin, RoleBoardMember, RoleObserver}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleBoardMember, RoleObserver:
		return true
	}
	return false
}

type MembershipStatus string

const (
	MembershipActive MembershipStatus = "ACTIVE"
	MembershipFormer MembershipStatus = "FORMER"
)

// Membership binds a user to a company. One row per (user, company); rows
// are never hard-deleted, leaving flips Status to FORMER.
type Membership struct {
	Base
	UserID       string           `gorm:"not null;uniqueIndex:idx_membership_user_company" json:"userId"`
	CompanyID    string           `gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_company;index" json:"companyId"`
	Role         Role             `gorm:"type:varchar(20);not null" json:"role"`
	CustomRoleID *string          `gorm:"type:uuid;index" json:"customRoleId,omitempty"`
	Status       MembershipStatus `gorm:"type:varchar(10);not null;default:'ACTIVE'" json:"status"`

	// Relations
	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CustomRole *CustomRole `gorm:"foreignKey:CustomRoleID" json:"customRole,omitempty"`
}

func (m *Membership) IsActive() bool {
	return m != nil && m.Status == MembershipActive
}
