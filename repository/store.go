// Package repository is the relational store behind every module. Callers
// depend on Store; GormStore backs it with Postgres and MemoryStore keeps
// everything in process for tests and local runs.
package repository

import (
	"context"
	"errors"
	"time"

	"boardroom/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("record conflicts with an existing one")
	// ErrStaleState is returned by compare-and-set writes whose expected
	// state no longer holds.
	ErrStaleState = errors.New("record state changed concurrently")
	// ErrCapacity is returned when a capped collection is full.
	ErrCapacity = errors.New("capacity exceeded")
)

type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
}

type CompanyStore interface {
	// CreateCompany persists the company and its first owner membership together.
	CreateCompany(ctx context.Context, company *models.Company, owner *models.Membership) error
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	ListCompaniesForUser(ctx context.Context, userID string) ([]models.Company, error)
}

type MembershipStore interface {
	// GetMembership returns the membership regardless of status.
	GetMembership(ctx context.Context, userID, companyID string) (*models.Membership, error)
	GetMembershipByID(ctx context.Context, id string) (*models.Membership, error)
	ListMemberships(ctx context.Context, companyID string) ([]models.Membership, error)
	CreateMembership(ctx context.Context, membership *models.Membership) error
	UpdateMembership(ctx context.Context, membership *models.Membership) error
	// DeactivateUserMemberships flips every membership of the user to FORMER.
	DeactivateUserMemberships(ctx context.Context, userID string) (int64, error)
	CountActiveOwners(ctx context.Context, companyID string) (int64, error)
	CountMembershipsWithCustomRole(ctx context.Context, customRoleID string) (int64, error)
}

type CustomRoleStore interface {
	// CreateCustomRole inserts the role unless the company already holds max roles.
	CreateCustomRole(ctx context.Context, role *models.CustomRole, max int) error
	GetCustomRole(ctx context.Context, companyID, id string) (*models.CustomRole, error)
	ListCustomRoles(ctx context.Context, companyID string) ([]models.CustomRole, error)
	UpdateCustomRole(ctx context.Context, role *models.CustomRole) error
	// DeleteCustomRole removes the role and its grants.
	DeleteCustomRole(ctx context.Context, id string) error
}

type PermissionStore interface {
	// SeedPermissions inserts catalog entries that do not exist yet.
	SeedPermissions(ctx context.Context, perms []models.Permission) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error)
	HasRolePermissions(ctx context.Context, companyID string) (bool, error)
	// InsertRolePermissions is idempotent: rows hitting a uniqueness key are skipped.
	InsertRolePermissions(ctx context.Context, rows []models.RolePermission) error
	// UpsertRolePermissions inserts rows or overwrites Granted on conflict.
	UpsertRolePermissions(ctx context.Context, rows []models.RolePermission) error
	// FindRolePermissions returns the rows of companyID/permissionID matching
	// either the system role (custom role unset) or the custom role.
	FindRolePermissions(ctx context.Context, companyID, permissionID string, role models.Role, customRoleID *string) ([]models.RolePermission, error)
	// ListRolePermissions returns every row of the company matching either
	// the system role or the custom role.
	ListRolePermissions(ctx context.Context, companyID string, role models.Role, customRoleID *string) ([]models.RolePermission, error)
}

// MeetingTransition is a compare-and-set status write.
type MeetingTransition struct {
	From      []models.MeetingStatus
	To        models.MeetingStatus
	StartedAt *time.Time
	EndedAt   *time.Time
}

type MeetingStore interface {
	// CreateMeeting persists the meeting and its initial attendees together.
	CreateMeeting(ctx context.Context, meeting *models.Meeting, attendees []models.MeetingAttendee) error
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	ListMeetings(ctx context.Context, companyID string) ([]models.Meeting, error)
	// UpdateMeeting writes title, schedule, duration and notes only while
	// the stored meeting is SCHEDULED, then reloads meeting. Returns
	// ErrStaleState when the meeting has left SCHEDULED.
	UpdateMeeting(ctx context.Context, meeting *models.Meeting) error
	// DeleteMeeting removes a SCHEDULED meeting and everything under it.
	// Returns ErrStaleState when the meeting has left SCHEDULED.
	DeleteMeeting(ctx context.Context, id string) error
	// TransitionMeeting applies t only if the stored status is one of t.From,
	// evaluated atomically with the write. Returns ErrStaleState otherwise.
	TransitionMeeting(ctx context.Context, id string, t MeetingTransition) (*models.Meeting, error)
}

type AttendeeStore interface {
	// ListAttendees returns attendees with Member populated.
	ListAttendees(ctx context.Context, meetingID string) ([]models.MeetingAttendee, error)
	// AddAttendees is idempotent per (meeting, member).
	AddAttendees(ctx context.Context, attendees []models.MeetingAttendee) error
	RemoveAttendee(ctx context.Context, meetingID, memberID string) error
	GetAttendee(ctx context.Context, meetingID, memberID string) (*models.MeetingAttendee, error)
	UpsertAttendance(ctx context.Context, meetingID, memberID string, isPresent bool) (*models.MeetingAttendee, error)
	MarkAllPresent(ctx context.Context, meetingID string) error
}

// Updates and deletes of meeting children are conditional on the owning
// meeting not being COMPLETED or CANCELLED at write time, and fail with
// ErrStaleState otherwise. Updates never write the meeting link, the sort
// order or a decision outcome, and reload the stored row into the argument.

type AgendaStore interface {
	CreateAgendaItem(ctx context.Context, item *models.AgendaItem) error
	GetAgendaItem(ctx context.Context, id string) (*models.AgendaItem, error)
	ListAgendaItems(ctx context.Context, meetingID string) ([]models.AgendaItem, error)
	UpdateAgendaItem(ctx context.Context, item *models.AgendaItem) error
	DeleteAgendaItem(ctx context.Context, id string) error
	ReorderAgendaItems(ctx context.Context, meetingID string, ids []string) error
}

type DecisionStore interface {
	CreateDecision(ctx context.Context, decision *models.Decision) error
	GetDecision(ctx context.Context, id string) (*models.Decision, error)
	ListDecisions(ctx context.Context, meetingID string) ([]models.Decision, error)
	UpdateDecision(ctx context.Context, decision *models.Decision) error
	DeleteDecision(ctx context.Context, id string) error
	ReorderDecisions(ctx context.Context, meetingID string, ids []string) error
	SetDecisionOutcome(ctx context.Context, id string, outcome models.DecisionOutcome) error
}

type VoteStore interface {
	// UpsertVote keeps exactly one vote per (decision, user), the latest one.
	UpsertVote(ctx context.Context, vote *models.Vote) error
	ListVotes(ctx context.Context, decisionID string) ([]models.Vote, error)
	TallyVotes(ctx context.Context, decisionID string) (models.Tally, error)
}

type ActionItemStore interface {
	CreateActionItem(ctx context.Context, item *models.ActionItem) error
	GetActionItem(ctx context.Context, id string) (*models.ActionItem, error)
	ListActionItems(ctx context.Context, meetingID string) ([]models.ActionItem, error)
	UpdateActionItem(ctx context.Context, item *models.ActionItem) error
	DeleteActionItem(ctx context.Context, id string) error
	ReorderActionItems(ctx context.Context, meetingID string, ids []string) error
}

type NoteStore interface {
	CreateNote(ctx context.Context, note *models.MeetingNote) error
	GetNote(ctx context.Context, id string) (*models.MeetingNote, error)
	ListNotes(ctx context.Context, meetingID string) ([]models.MeetingNote, error)
	UpdateNote(ctx context.Context, note *models.MeetingNote) error
	DeleteNote(ctx context.Context, id string) error
	ReorderNotes(ctx context.Context, meetingID string, ids []string) error
}

type SummaryStore interface {
	// SaveSummary replaces any previous summary of the same meeting.
	SaveSummary(ctx context.Context, summary *models.MeetingSummary) error
	GetSummary(ctx context.Context, meetingID string) (*models.MeetingSummary, error)
}

// Store is the full repository surface.
type Store interface {
	UserStore
	CompanyStore
	MembershipStore
	CustomRoleStore
	PermissionStore
	MeetingStore
	AttendeeStore
	AgendaStore
	DecisionStore
	VoteStore
	ActionItemStore
	NoteStore
	SummaryStore

	// Transaction runs fn against a store bound to one transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
