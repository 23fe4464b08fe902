package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardroom/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm. The *gorm.DB must be opened
// with TranslateError so uniqueness violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormStore wraps db. Every call is bounded by timeout when it is positive.
func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	return &GormStore{db: db, timeout: timeout}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.timeout <= 0 {
		return s.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func first[T any](ctx context.Context, s *GormStore, query string, args ...interface{}) (*T, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var out T
	if err := db.Where(query, args...).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func save(ctx context.Context, s *GormStore, value interface{}) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Model(value).Select("*").Omit("id", "created_at", clause.Associations).Updates(value)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// liveMeetings selects the ids of meetings whose content may still change.
func liveMeetings(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Meeting{}).
		Select("id").
		Where("status NOT IN ?", []models.MeetingStatus{models.MeetingCompleted, models.MeetingCancelled})
}

// missingOrStale explains a conditional write that matched no row.
func missingOrStale[T any](db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(new(T)).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStaleState
}

// updateLive writes columns of a meeting child only while its meeting is
// not terminal, then reloads value from storage.
func updateLive[T any](ctx context.Context, s *GormStore, value *T, id string, columns ...string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Model(value).
		Where("meeting_id IN (?)", liveMeetings(db)).
		Select(append(columns, "updated_at")).
		Updates(value)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrStale[T](db, id)
	}
	return translate(db.Where("id = ?", id).First(value).Error)
}

// deleteLive removes a meeting child unless its meeting is terminal.
func deleteLive[T any](db *gorm.DB, id string) error {
	result := db.Where("id = ? AND meeting_id IN (?)", id, liveMeetings(db)).Delete(new(T))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrStale[T](db, id)
	}
	return nil
}

func listOrdered[T any](ctx context.Context, s *GormStore, meetingID string) ([]T, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var out []T
	err := db.Where("meeting_id = ?", meetingID).Order("sort_order ASC, created_at ASC").Find(&out).Error
	return out, translate(err)
}

// nextSortOrder returns one past the highest sort_order of the meeting.
func nextSortOrder[T any](db *gorm.DB, meetingID string) (int, error) {
	var next int
	err := db.Model(new(T)).
		Where("meeting_id = ?", meetingID).
		Select("COALESCE(MAX(sort_order) + 1, 0)").
		Scan(&next).Error
	return next, err
}

func createOrdered[T any](ctx context.Context, s *GormStore, value *T, meetingID string, order *int) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	if *order == 0 {
		next, err := nextSortOrder[T](db, meetingID)
		if err != nil {
			return translate(err)
		}
		*order = next
	}
	return translate(db.Create(value).Error)
}

func reorderRows[T any](ctx context.Context, s *GormStore, meetingID string, ids []string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			result := tx.Model(new(T)).
				Where("id = ? AND meeting_id = ?", id, meetingID).
				Update("sort_order", i)
			if result.Error != nil {
				return translate(result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

// ---- users

func (s *GormStore) UpsertUser(ctx context.Context, user *models.User) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(user).Error)
}

func (s *GormStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	var users []models.User
	return users, translate(db.Where("id IN ?", ids).Find(&users).Error)
}

// ---- companies

func (s *GormStore) CreateCompany(ctx context.Context, company *models.Company, owner *models.Membership) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(company).Error; err != nil {
			return err
		}
		if owner == nil {
			return nil
		}
		owner.CompanyID = company.ID
		return tx.Omit(clause.Associations).Create(owner).Error
	}))
}

func (s *GormStore) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	return first[models.Company](ctx, s, "id = ?", id)
}

func (s *GormStore) ListCompaniesForUser(ctx context.Context, userID string) ([]models.Company, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var companies []models.Company
	err := db.
		Joins("JOIN memberships ON memberships.company_id = companies.id").
		Where("memberships.user_id = ? AND memberships.status = ?", userID, models.MembershipActive).
		Order("companies.created_at ASC").
		Find(&companies).Error
	return companies, translate(err)
}

// ---- memberships

func (s *GormStore) GetMembership(ctx context.Context, userID, companyID string) (*models.Membership, error) {
	return first[models.Membership](ctx, s, "user_id = ? AND company_id = ?", userID, companyID)
}

func (s *GormStore) GetMembershipByID(ctx context.Context, id string) (*models.Membership, error) {
	return first[models.Membership](ctx, s, "id = ?", id)
}

func (s *GormStore) ListMemberships(ctx context.Context, companyID string) ([]models.Membership, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var memberships []models.Membership
	err := db.Preload("User").
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&memberships).Error
	return memberships, translate(err)
}

func (s *GormStore) CreateMembership(ctx context.Context, membership *models.Membership) error {
	if membership.Status == "" {
		membership.Status = models.MembershipActive
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Omit(clause.Associations).Create(membership).Error)
}

func (s *GormStore) UpdateMembership(ctx context.Context, membership *models.Membership) error {
	return save(ctx, s, membership)
}

func (s *GormStore) DeactivateUserMemberships(ctx context.Context, userID string) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Model(&models.Membership{}).
		Where("user_id = ? AND status <> ?", userID, models.MembershipFormer).
		Update("status", models.MembershipFormer)
	return result.RowsAffected, translate(result.Error)
}

func (s *GormStore) CountActiveOwners(ctx context.Context, companyID string) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var n int64
	err := db.Model(&models.Membership{}).
		Where("company_id = ? AND role = ? AND status = ?", companyID, models.RoleOwner, models.MembershipActive).
		Count(&n).Error
	return n, translate(err)
}

func (s *GormStore) CountMembershipsWithCustomRole(ctx context.Context, customRoleID string) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var n int64
	err := db.Model(&models.Membership{}).Where("custom_role_id = ?", customRoleID).Count(&n).Error
	return n, translate(err)
}

// ---- custom roles

// CreateCustomRole locks the company row so concurrent creates cannot both
// pass the count check.
func (s *GormStore) CreateCustomRole(ctx context.Context, role *models.CustomRole, max int) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", role.CompanyID).First(&company).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.CustomRole{}).Where("company_id = ?", role.CompanyID).Count(&n).Error; err != nil {
			return err
		}
		if n >= int64(max) {
			return ErrCapacity
		}
		return tx.Create(role).Error
	}))
}

func (s *GormStore) GetCustomRole(ctx context.Context, companyID, id string) (*models.CustomRole, error) {
	return first[models.CustomRole](ctx, s, "id = ? AND company_id = ?", id, companyID)
}

func (s *GormStore) ListCustomRoles(ctx context.Context, companyID string) ([]models.CustomRole, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var roles []models.CustomRole
	return roles, translate(db.Where("company_id = ?", companyID).Order("name ASC").Find(&roles).Error)
}

func (s *GormStore) UpdateCustomRole(ctx context.Context, role *models.CustomRole) error {
	return save(ctx, s, role)
}

func (s *GormStore) DeleteCustomRole(ctx context.Context, id string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("custom_role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.CustomRole{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

// ---- permissions

func (s *GormStore) SeedPermissions(ctx context.Context, perms []models.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&perms).Error)
}

func (s *GormStore) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var perms []models.Permission
	return perms, translate(db.Order("code ASC").Find(&perms).Error)
}

func (s *GormStore) GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error) {
	return first[models.Permission](ctx, s, "code = ?", code)
}

func (s *GormStore) HasRolePermissions(ctx context.Context, companyID string) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var n int64
	err := db.Model(&models.RolePermission{}).
		Where("company_id = ? AND role IS NOT NULL", companyID).
		Limit(1).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *GormStore) InsertRolePermissions(ctx context.Context, rows []models.RolePermission) error {
	if len(rows) == 0 {
		return nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, 100).Error)
}

// UpsertRolePermissions splits rows by target so each batch carries the
// conflict columns of its own unique index.
func (s *GormStore) UpsertRolePermissions(ctx context.Context, rows []models.RolePermission) error {
	var system, custom []models.RolePermission
	for _, rp := range rows {
		if rp.CustomRoleID != nil {
			custom = append(custom, rp)
		} else {
			system = append(system, rp)
		}
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		batches := []struct {
			rows []models.RolePermission
			key  string
		}{{system, "role"}, {custom, "custom_role_id"}}
		for _, b := range batches {
			if len(b.rows) == 0 {
				continue
			}
			err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "company_id"}, {Name: b.key}, {Name: "permission_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"granted", "updated_at"}),
			}).Create(&b.rows).Error
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

// roleFilter matches rows of the system role or of the custom role.
func roleFilter(role models.Role, customRoleID *string) (string, []interface{}) {
	if customRoleID == nil {
		return "role = ? AND custom_role_id IS NULL", []interface{}{role}
	}
	return "((role = ? AND custom_role_id IS NULL) OR custom_role_id = ?)", []interface{}{role, *customRoleID}
}

func (s *GormStore) FindRolePermissions(ctx context.Context, companyID, permissionID string, role models.Role, customRoleID *string) ([]models.RolePermission, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var rows []models.RolePermission
	filter, args := roleFilter(role, customRoleID)
	err := db.Where("company_id = ? AND permission_id = ?", companyID, permissionID).
		Where(filter, args...).
		Find(&rows).Error
	return rows, translate(err)
}

func (s *GormStore) ListRolePermissions(ctx context.Context, companyID string, role models.Role, customRoleID *string) ([]models.RolePermission, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var rows []models.RolePermission
	filter, args := roleFilter(role, customRoleID)
	err := db.Preload("Permission").
		Where("company_id = ?", companyID).
		Where(filter, args...).
		Find(&rows).Error
	return rows, translate(err)
}

// ---- meetings

func (s *GormStore) CreateMeeting(ctx context.Context, meeting *models.Meeting, attendees []models.MeetingAttendee) error {
	if meeting.Status == "" {
		meeting.Status = models.MeetingScheduled
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(meeting).Error; err != nil {
			return err
		}
		if len(attendees) == 0 {
			return nil
		}
		for i := range attendees {
			attendees[i].MeetingID = meeting.ID
		}
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&attendees).Error
	}))
}

func (s *GormStore) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	return first[models.Meeting](ctx, s, "id = ?", id)
}

func (s *GormStore) ListMeetings(ctx context.Context, companyID string) ([]models.Meeting, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var meetings []models.Meeting
	err := db.Where("company_id = ?", companyID).Order("scheduled_at DESC").Find(&meetings).Error
	return meetings, translate(err)
}

func (s *GormStore) UpdateMeeting(ctx context.Context, meeting *models.Meeting) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Model(meeting).
		Where("status = ?", models.MeetingScheduled).
		Select("title", "scheduled_at", "duration", "notes", "updated_at").
		Updates(meeting)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrStale[models.Meeting](db, meeting.ID)
	}
	return translate(db.Where("id = ?", meeting.ID).First(meeting).Error)
}

func (s *GormStore) DeleteMeeting(ctx context.Context, id string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		// Touching the row first locks it against a concurrent transition.
		claim := tx.Model(&models.Meeting{}).
			Where("id = ? AND status = ?", id, models.MeetingScheduled).
			Update("updated_at", time.Now())
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return missingOrStale[models.Meeting](tx, id)
		}
		decisionIDs := tx.Model(&models.Decision{}).Select("id").Where("meeting_id = ?", id)
		if err := tx.Where("decision_id IN (?)", decisionIDs).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		for _, child := range []interface{}{
			&models.Decision{}, &models.AgendaItem{}, &models.ActionItem{},
			&models.MeetingNote{}, &models.MeetingAttendee{},
		} {
			if err := tx.Where("meeting_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&models.Meeting{}).Error
	}))
}

func (s *GormStore) TransitionMeeting(ctx context.Context, id string, t MeetingTransition) (*models.Meeting, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	updates := map[string]interface{}{"status": t.To, "updated_at": time.Now()}
	if t.StartedAt != nil {
		updates["started_at"] = *t.StartedAt
	}
	if t.EndedAt != nil {
		updates["ended_at"] = *t.EndedAt
	}
	result := db.Model(&models.Meeting{}).
		Where("id = ? AND status IN ?", id, t.From).
		Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}

	var meeting models.Meeting
	if err := db.Where("id = ?", id).First(&meeting).Error; err != nil {
		return nil, translate(err)
	}
	if result.RowsAffected == 0 {
		return nil, ErrStaleState
	}
	return &meeting, nil
}

// ---- attendees

func (s *GormStore) ListAttendees(ctx context.Context, meetingID string) ([]models.MeetingAttendee, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var attendees []models.MeetingAttendee
	err := db.Preload("Member.User").
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&attendees).Error
	return attendees, translate(err)
}

func (s *GormStore) AddAttendees(ctx context.Context, attendees []models.MeetingAttendee) error {
	if len(attendees) == 0 {
		return nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&attendees).Error)
}

func (s *GormStore) RemoveAttendee(ctx context.Context, meetingID, memberID string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Where("meeting_id = ? AND member_id = ?", meetingID, memberID).Delete(&models.MeetingAttendee{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetAttendee(ctx context.Context, meetingID, memberID string) (*models.MeetingAttendee, error) {
	return first[models.MeetingAttendee](ctx, s, "meeting_id = ? AND member_id = ?", meetingID, memberID)
}

func (s *GormStore) UpsertAttendance(ctx context.Context, meetingID, memberID string, isPresent bool) (*models.MeetingAttendee, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	row := models.MeetingAttendee{MeetingID: meetingID, MemberID: memberID, IsPresent: isPresent}
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_present", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	var stored models.MeetingAttendee
	if err := db.Where("meeting_id = ? AND member_id = ?", meetingID, memberID).First(&stored).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

func (s *GormStore) MarkAllPresent(ctx context.Context, meetingID string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Model(&models.MeetingAttendee{}).
		Where("meeting_id = ?", meetingID).
		Update("is_present", true).Error)
}

// ---- agenda

func (s *GormStore) CreateAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	return createOrdered(ctx, s, item, item.MeetingID, &item.Order)
}

func (s *GormStore) GetAgendaItem(ctx context.Context, id string) (*models.AgendaItem, error) {
	return first[models.AgendaItem](ctx, s, "id = ?", id)
}

func (s *GormStore) ListAgendaItems(ctx context.Context, meetingID string) ([]models.AgendaItem, error) {
	return listOrdered[models.AgendaItem](ctx, s, meetingID)
}

func (s *GormStore) UpdateAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	return updateLive(ctx, s, item, item.ID, "title", "description", "duration", "presenter_id")
}

func (s *GormStore) DeleteAgendaItem(ctx context.Context, id string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return deleteLive[models.AgendaItem](db, id)
}

func (s *GormStore) ReorderAgendaItems(ctx context.Context, meetingID string, ids []string) error {
	return reorderRows[models.AgendaItem](ctx, s, meetingID, ids)
}

// ---- decisions

func (s *GormStore) CreateDecision(ctx context.Context, decision *models.Decision) error {
	return createOrdered(ctx, s, decision, decision.MeetingID, &decision.Order)
}

func (s *GormStore) GetDecision(ctx context.Context, id string) (*models.Decision, error) {
	return first[models.Decision](ctx, s, "id = ?", id)
}

func (s *GormStore) ListDecisions(ctx context.Context, meetingID string) ([]models.Decision, error) {
	return listOrdered[models.Decision](ctx, s, meetingID)
}

// UpdateDecision never writes the outcome; SetDecisionOutcome owns it.
func (s *GormStore) UpdateDecision(ctx context.Context, decision *models.Decision) error {
	return updateLive(ctx, s, decision, decision.ID, "agenda_item_id", "title", "description")
}

func (s *GormStore) DeleteDecision(ctx context.Context, id string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Transaction(func(tx *gorm.DB) error {
		if err := deleteLive[models.Decision](tx, id); err != nil {
			return err
		}
		return tx.Where("decision_id = ?", id).Delete(&models.Vote{}).Error
	}))
}

func (s *GormStore) ReorderDecisions(ctx context.Context, meetingID string, ids []string) error {
	return reorderRows[models.Decision](ctx, s, meetingID, ids)
}

func (s *GormStore) SetDecisionOutcome(ctx context.Context, id string, outcome models.DecisionOutcome) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	result := db.Model(&models.Decision{}).Where("id = ?", id).Update("outcome", outcome)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- votes

func (s *GormStore) UpsertVote(ctx context.Context, vote *models.Vote) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "decision_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vote", "updated_at"}),
	}).Create(vote).Error
	if err != nil {
		return translate(err)
	}
	var stored models.Vote
	if err := db.Where("decision_id = ? AND user_id = ?", vote.DecisionID, vote.UserID).First(&stored).Error; err != nil {
		return translate(err)
	}
	*vote = stored
	return nil
}

func (s *GormStore) ListVotes(ctx context.Context, decisionID string) ([]models.Vote, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var votes []models.Vote
	err := db.Where("decision_id = ?", decisionID).Order("created_at ASC").Find(&votes).Error
	return votes, translate(err)
}

func (s *GormStore) TallyVotes(ctx context.Context, decisionID string) (models.Tally, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var rows []struct {
		Vote  models.VoteChoice
		Count int
	}
	err := db.Model(&models.Vote{}).
		Select("vote, COUNT(*) AS count").
		Where("decision_id = ?", decisionID).
		Group("vote").
		Scan(&rows).Error
	if err != nil {
		return models.Tally{}, translate(err)
	}
	var t models.Tally
	for _, r := range rows {
		switch r.Vote {
		case models.VoteFor:
			t.For = r.Count
		case models.VoteAgainst:
			t.Against = r.Count
		case models.VoteAbstain:
			t.Abstain = r.Count
		default:
			return t, fmt.Errorf("unexpected vote value %q", r.Vote)
		}
	}
	return t, nil
}

// ---- action items

func (s *GormStore) CreateActionItem(ctx context.Context, item *models.ActionItem) error {
	if item.Status == "" {
		item.Status = models.ActionItemPending
	}
	return createOrdered(ctx, s, item, item.MeetingID, &item.Order)
}

func (s *GormStore) GetActionItem(ctx context.Context, id string) (*models.ActionItem, error) {
	return first[models.ActionItem](ctx, s, "id = ?", id)
}

func (s *GormStore) ListActionItems(ctx context.Context, meetingID string) ([]models.ActionItem, error) {
	return listOrdered[models.ActionItem](ctx, s, meetingID)
}

func (s *GormStore) UpdateActionItem(ctx context.Context, item *models.ActionItem) error {
	return updateLive(ctx, s, item, item.ID, "title", "description", "assignee_id", "due_date", "status")
}

func (s *GormStore) DeleteActionItem(ctx context.Context, id string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return deleteLive[models.ActionItem](db, id)
}

func (s *GormStore) ReorderActionItems(ctx context.Context, meetingID string, ids []string) error {
	return reorderRows[models.ActionItem](ctx, s, meetingID, ids)
}

// ---- notes

func (s *GormStore) CreateNote(ctx context.Context, note *models.MeetingNote) error {
	return createOrdered(ctx, s, note, note.MeetingID, &note.Order)
}

func (s *GormStore) GetNote(ctx context.Context, id string) (*models.MeetingNote, error) {
	return first[models.MeetingNote](ctx, s, "id = ?", id)
}

func (s *GormStore) ListNotes(ctx context.Context, meetingID string) ([]models.MeetingNote, error) {
	return listOrdered[models.MeetingNote](ctx, s, meetingID)
}

func (s *GormStore) UpdateNote(ctx context.Context, note *models.MeetingNote) error {
	return updateLive(ctx, s, note, note.ID, "content")
}

func (s *GormStore) DeleteNote(ctx context.Context, id string) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return deleteLive[models.MeetingNote](db, id)
}

func (s *GormStore) ReorderNotes(ctx context.Context, meetingID string, ids []string) error {
	return reorderRows[models.MeetingNote](ctx, s, meetingID, ids)
}

// ---- summaries

func (s *GormStore) SaveSummary(ctx context.Context, summary *models.MeetingSummary) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "meeting_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "started_at", "ended_at", "attendees", "decisions", "action_items", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return translate(err)
	}
	var stored models.MeetingSummary
	if err := db.Where("meeting_id = ?", summary.MeetingID).First(&stored).Error; err != nil {
		return translate(err)
	}
	*summary = stored
	return nil
}

func (s *GormStore) GetSummary(ctx context.Context, meetingID string) (*models.MeetingSummary, error) {
	return first[models.MeetingSummary](ctx, s, "meeting_id = ?", meetingID)
}
