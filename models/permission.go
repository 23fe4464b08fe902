package models

import "strings"

// Permission is one entry of the static catalog, e.g. "meetings.edit".
type Permission struct {
	Base
	Code   string `gorm:"uniqueIndex;not null" json:"code"`
	Area   string `gorm:"not null" json:"area"`
	Action string `gorm:"not null" json:"action"`
}

// RolePermission grants (or explicitly denies) a permission to either a
// system role or a custom role inside one company. Exactly one of Role and
// CustomRoleID is set.
type RolePermission struct {
	Base
	CompanyID    string  `gorm:"type:uuid;not null;uniqueIndex:idx_role_perm_system;uniqueIndex:idx_role_perm_custom" json:"companyId"`
	Role         *Role   `gorm:"type:varchar(20);uniqueIndex:idx_role_perm_system" json:"role,omitempty"`
	CustomRoleID *string `gorm:"type:uuid;uniqueIndex:idx_role_perm_custom" json:"customRoleId,omitempty"`
	PermissionID string  `gorm:"type:uuid;not null;uniqueIndex:idx_role_perm_system;uniqueIndex:idx_role_perm_custom" json:"permissionId"`
	Granted      bool    `gorm:"not null;default:false" json:"granted"`

	// Relations
	Permission *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

// Permission codes.
const (
	PermMeetingsView   = "meetings.view"
	PermMeetingsCreate = "meetings.create"
	PermMeetingsEdit   = "meetings.edit"
	PermMeetingsDelete = "meetings.delete"
	PermMeetingsManage = "meetings.manage"

	PermAgendaView   = "agenda.view"
	PermAgendaCreate = "agenda.create"
	PermAgendaEdit   = "agenda.edit"
	PermAgendaDelete = "agenda.delete"

	PermDecisionsView   = "decisions.view"
	PermDecisionsCreate = "decisions.create"
	PermDecisionsEdit   = "decisions.edit"
	PermDecisionsDelete = "decisions.delete"

	PermVotesView = "votes.view"
	PermVotesCast = "votes.cast"

	PermActionItemsView   = "action_items.view"
	PermActionItemsCreate = "action_items.create"
	PermActionItemsEdit   = "action_items.edit"
	PermActionItemsDelete = "action_items.delete"

	PermNotesView   = "notes.view"
	PermNotesCreate = "notes.create"
	PermNotesEdit   = "notes.edit"
	PermNotesDelete = "notes.delete"

	PermMembersView   = "members.view"
	PermMembersManage = "members.manage"

	PermRolesView   = "roles.view"
	PermRolesManage = "roles.manage"

	PermDocumentsView   = "documents.view"
	PermDocumentsCreate = "documents.create"
	PermDocumentsEdit   = "documents.edit"
	PermDocumentsDelete = "documents.delete"

	PermOKRsView          = "okrs.view"
	PermOKRsManage        = "okrs.manage"
	PermFinancialsView    = "financials.view"
	PermFinancialsManage  = "financials.manage"
	PermResolutionsView   = "resolutions.view"
	PermResolutionsManage = "resolutions.manage"
)

// PermissionCatalog is seeded once into the permissions table.
var PermissionCatalog = []string{
	PermMeetingsView, PermMeetingsCreate, PermMeetingsEdit, PermMeetingsDelete, PermMeetingsManage,
	PermAgendaView, PermAgendaCreate, PermAgendaEdit, PermAgendaDelete,
	PermDecisionsView, PermDecisionsCreate, PermDecisionsEdit, PermDecisionsDelete,
	PermVotesView, PermVotesCast,
	PermActionItemsView, PermActionItemsCreate, PermActionItemsEdit, PermActionItemsDelete,
	PermNotesView, PermNotesCreate, PermNotesEdit, PermNotesDelete,
	PermMembersView, PermMembersManage,
	PermRolesView, PermRolesManage,
	PermDocumentsView, PermDocumentsCreate, PermDocumentsEdit, PermDocumentsDelete,
	PermOKRsView, PermOKRsManage,
	PermFinancialsView, PermFinancialsManage,
	PermResolutionsView, PermResolutionsManage,
}

// CatalogPermissions expands the catalog into rows ready to seed.
func CatalogPermissions() []Permission {
	perms := make([]Permission, 0, len(PermissionCatalog))
	for _, code := range PermissionCatalog {
		area, action, _ := strings.Cut(code, ".")
		perms = append(perms, Permission{Code: code, Area: area, Action: action})
	}
	return perms
}

// DefaultRolePermissions is the grant table every company starts from.
// OWNER is absent on purpose: owners bypass the lookup entirely.
var DefaultRolePermissions = map[Role][]string{
	RoleAdmin: PermissionCatalog,
	RoleBoardMember: {
		PermMeetingsView, PermMeetingsCreate, PermMeetingsEdit,
		PermAgendaView, PermAgendaCreate, PermAgendaEdit,
		PermDecisionsView, PermDecisionsCreate, PermDecisionsEdit,
		PermVotesView, PermVotesCast,
		PermActionItemsView, PermActionItemsCreate, PermActionItemsEdit,
		PermNotesView, PermNotesCreate, PermNotesEdit, PermNotesDelete,
		PermMembersView, PermRolesView,
		PermDocumentsView, PermDocumentsCreate,
		PermOKRsView, PermFinancialsView, PermResolutionsView,
	},
	RoleObserver: {
		PermMeetingsView, PermAgendaView, PermDecisionsView, PermVotesView,
		PermActionItemsView, PermNotesView, PermMembersView,
		PermDocumentsView, PermOKRsView, PermFinancialsView, PermResolutionsView,
	},
}

// DefaultGrantsFor builds the initial RolePermission rows for one company.
// Every (system role, permission) pair gets a row so that later overrides
// are plain updates.
func DefaultGrantsFor(companyID string, catalog []Permission) []RolePermission {
	rows := make([]RolePermission, 0, len(catalog)*3)
	for _, role := range []Role{RoleAdmin, RoleBoardMember, RoleObserver} {
		granted := make(map[string]bool, len(DefaultRolePermissions[role]))
		for _, code := range DefaultRolePermissions[role] {
			granted[code] = true
		}
		for _, perm := range catalog {
			r := role
			rows = append(rows, RolePermission{
				CompanyID:    companyID,
				Role:         &r,
				PermissionID: perm.ID,
				Granted:      granted[perm.Code],
			})
		}
	}
	return rows
}
