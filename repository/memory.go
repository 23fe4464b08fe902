package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"boardroom/models"
)

// MemoryStore keeps every table in maps behind one lock. Values are stored
// and returned by copy so callers never alias stored rows.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]models.User
	companies   map[string]models.Company
	memberships map[string]models.Membership
	customRoles map[string]models.CustomRole
	permissions map[string]models.Permission
	rolePerms   map[string]models.RolePermission
	meetings    map[string]models.Meeting
	attendees   map[string]models.MeetingAttendee
	agenda      map[string]models.AgendaItem
	decisions   map[string]models.Decision
	votes       map[string]models.Vote
	actionItems map[string]models.ActionItem
	notes       map[string]models.MeetingNote
	summaries   map[string]models.MeetingSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]models.User),
		companies:   make(map[string]models.Company),
		memberships: make(map[string]models.Membership),
		customRoles: make(map[string]models.CustomRole),
		permissions: make(map[string]models.Permission),
		rolePerms:   make(map[string]models.RolePermission),
		meetings:    make(map[string]models.Meeting),
		attendees:   make(map[string]models.MeetingAttendee),
		agenda:      make(map[string]models.AgendaItem),
		decisions:   make(map[string]models.Decision),
		votes:       make(map[string]models.Vote),
		actionItems: make(map[string]models.ActionItem),
		notes:       make(map[string]models.MeetingNote),
		summaries:   make(map[string]models.MeetingSummary),
	}
}

var _ Store = (*MemoryStore)(nil)

func stamp(b *models.Base) {
	now := time.Now()
	if b.ID == "" {
		b.ID = models.NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Transaction runs fn directly; every MemoryStore call is already atomic.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(s)
}

// ---- users

func (s *MemoryStore) UpsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ---- companies

func (s *MemoryStore) CreateCompany(ctx context.Context, company *models.Company, owner *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&company.Base)
	s.companies[company.ID] = *company
	if owner != nil {
		owner.CompanyID = company.ID
		stamp(&owner.Base)
		s.memberships[owner.ID] = *owner
	}
	return nil
}

func (s *MemoryStore) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListCompaniesForUser(ctx context.Context, userID string) ([]models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Company
	for _, m := range s.memberships {
		if m.UserID == userID && m.Status == models.MembershipActive {
			if c, ok := s.companies[m.CompanyID]; ok {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- memberships

func (s *MemoryStore) GetMembership(ctx context.Context, userID, companyID string) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.UserID == userID && m.CompanyID == companyID {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetMembershipByID(ctx context.Context, id string) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMemberships(ctx context.Context, companyID string) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Membership
	for _, m := range s.memberships {
		if m.CompanyID == companyID {
			if u, ok := s.users[m.UserID]; ok {
				m.User = &u
			}
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateMembership(ctx context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.UserID == membership.UserID && m.CompanyID == membership.CompanyID {
			return ErrConflict
		}
	}
	stamp(&membership.Base)
	if membership.Status == "" {
		membership.Status = models.MembershipActive
	}
	s.memberships[membership.ID] = *membership
	return nil
}

func (s *MemoryStore) UpdateMembership(ctx context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[membership.ID]; !ok {
		return ErrNotFound
	}
	membership.UpdatedAt = time.Now()
	stored := *membership
	stored.User, stored.CustomRole = nil, nil
	s.memberships[membership.ID] = stored
	return nil
}

func (s *MemoryStore) DeactivateUserMemberships(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.memberships {
		if m.UserID == userID && m.Status != models.MembershipFormer {
			m.Status = models.MembershipFormer
			m.UpdatedAt = time.Now()
			s.memberships[id] = m
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountActiveOwners(ctx context.Context, companyID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.memberships {
		if m.CompanyID == companyID && m.Role == models.RoleOwner && m.Status == models.MembershipActive {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountMembershipsWithCustomRole(ctx context.Context, customRoleID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.memberships {
		if m.CustomRoleID != nil && *m.CustomRoleID == customRoleID {
			n++
		}
	}
	return n, nil
}

// ---- custom roles

func (s *MemoryStore) CreateCustomRole(ctx context.Context, role *models.CustomRole, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.customRoles {
		if r.CompanyID != role.CompanyID {
			continue
		}
		count++
		if strings.EqualFold(r.Name, role.Name) {
			return ErrConflict
		}
	}
	if count >= max {
		return ErrCapacity
	}
	stamp(&role.Base)
	s.customRoles[role.ID] = *role
	return nil
}

func (s *MemoryStore) GetCustomRole(ctx context.Context, companyID, id string) (*models.CustomRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.customRoles[id]
	if !ok || r.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListCustomRoles(ctx context.Context, companyID string) ([]models.CustomRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CustomRole
	for _, r := range s.customRoles {
		if r.CompanyID == companyID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdateCustomRole(ctx context.Context, role *models.CustomRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customRoles[role.ID]; !ok {
		return ErrNotFound
	}
	for _, r := range s.customRoles {
		if r.ID != role.ID && r.CompanyID == role.CompanyID && strings.EqualFold(r.Name, role.Name) {
			return ErrConflict
		}
	}
	role.UpdatedAt = time.Now()
	s.customRoles[role.ID] = *role
	return nil
}

func (s *MemoryStore) DeleteCustomRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customRoles[id]; !ok {
		return ErrNotFound
	}
	delete(s.customRoles, id)
	for rid, rp := range s.rolePerms {
		if rp.CustomRoleID != nil && *rp.CustomRoleID == id {
			delete(s.rolePerms, rid)
		}
	}
	return nil
}

// ---- permissions

func (s *MemoryStore) SeedPermissions(ctx context.Context, perms []models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]bool, len(s.permissions))
	for _, p := range s.permissions {
		existing[p.Code] = true
	}
	for _, p := range perms {
		if existing[p.Code] {
			continue
		}
		stamp(&p.Base)
		s.permissions[p.ID] = p
		existing[p.Code] = true
	}
	return nil
}

func (s *MemoryStore) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) HasRolePermissions(ctx context.Context, companyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rp := range s.rolePerms {
		if rp.CompanyID == companyID && rp.Role != nil {
			return true, nil
		}
	}
	return false, nil
}

// rolePermKey is the uniqueness key of a RolePermission row.
func rolePermKey(rp models.RolePermission) string {
	if rp.CustomRoleID != nil {
		return rp.CompanyID + "|custom|" + *rp.CustomRoleID + "|" + rp.PermissionID
	}
	role := ""
	if rp.Role != nil {
		role = string(*rp.Role)
	}
	return rp.CompanyID + "|role|" + role + "|" + rp.PermissionID
}

func (s *MemoryStore) rolePermIndex() map[string]string {
	idx := make(map[string]string, len(s.rolePerms))
	for id, rp := range s.rolePerms {
		idx[rolePermKey(rp)] = id
	}
	return idx
}

func (s *MemoryStore) InsertRolePermissions(ctx context.Context, rows []models.RolePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.rolePermIndex()
	for _, rp := range rows {
		key := rolePermKey(rp)
		if _, ok := idx[key]; ok {
			continue
		}
		stamp(&rp.Base)
		rp.Permission = nil
		s.rolePerms[rp.ID] = rp
		idx[key] = rp.ID
	}
	return nil
}

func (s *MemoryStore) UpsertRolePermissions(ctx context.Context, rows []models.RolePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.rolePermIndex()
	for _, rp := range rows {
		key := rolePermKey(rp)
		if id, ok := idx[key]; ok {
			existing := s.rolePerms[id]
			existing.Granted = rp.Granted
			existing.UpdatedAt = time.Now()
			s.rolePerms[id] = existing
			continue
		}
		stamp(&rp.Base)
		rp.Permission = nil
		s.rolePerms[rp.ID] = rp
		idx[key] = rp.ID
	}
	return nil
}

func matchesRole(rp models.RolePermission, role models.Role, customRoleID *string) bool {
	if rp.CustomRoleID == nil && rp.Role != nil && *rp.Role == role {
		return true
	}
	return customRoleID != nil && rp.CustomRoleID != nil && *rp.CustomRoleID == *customRoleID
}

func (s *MemoryStore) FindRolePermissions(ctx context.Context, companyID, permissionID string, role models.Role, customRoleID *string) ([]models.RolePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RolePermission
	for _, rp := range s.rolePerms {
		if rp.CompanyID == companyID && rp.PermissionID == permissionID && matchesRole(rp, role, customRoleID) {
			out = append(out, rp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRolePermissions(ctx context.Context, companyID string, role models.Role, customRoleID *string) ([]models.RolePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RolePermission
	for _, rp := range s.rolePerms {
		if rp.CompanyID == companyID && matchesRole(rp, role, customRoleID) {
			if p, ok := s.permissions[rp.PermissionID]; ok {
				rp.Permission = &p
			}
			out = append(out, rp)
		}
	}
	return out, nil
}

// ---- meetings

func (s *MemoryStore) CreateMeeting(ctx context.Context, meeting *models.Meeting, attendees []models.MeetingAttendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&meeting.Base)
	if meeting.Status == "" {
		meeting.Status = models.MeetingScheduled
	}
	stored := *meeting
	stored.Attendees = nil
	s.meetings[meeting.ID] = stored
	for i := range attendees {
		attendees[i].MeetingID = meeting.ID
		s.addAttendeeLocked(&attendees[i])
	}
	return nil
}

func (s *MemoryStore) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMeetings(ctx context.Context, companyID string) ([]models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Meeting
	for _, m := range s.meetings {
		if m.CompanyID == companyID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out, nil
}

// UpdateMeeting writes the editable fields while the meeting is still
// scheduled. Lifecycle fields keep their stored values.
func (s *MemoryStore) UpdateMeeting(ctx context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.meetings[meeting.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != models.MeetingScheduled {
		return ErrStaleState
	}
	stored.Title = meeting.Title
	stored.ScheduledAt = meeting.ScheduledAt
	stored.Duration = meeting.Duration
	stored.Notes = meeting.Notes
	stored.UpdatedAt = time.Now()
	s.meetings[meeting.ID] = stored
	*meeting = stored
	return nil
}

func (s *MemoryStore) DeleteMeeting(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status != models.MeetingScheduled {
		return ErrStaleState
	}
	delete(s.meetings, id)
	for aid, a := range s.attendees {
		if a.MeetingID == id {
			delete(s.attendees, aid)
		}
	}
	deleteByMeeting(s.agenda, id, func(v models.AgendaItem) string { return v.MeetingID })
	deleteByMeeting(s.actionItems, id, func(v models.ActionItem) string { return v.MeetingID })
	deleteByMeeting(s.notes, id, func(v models.MeetingNote) string { return v.MeetingID })
	for did, d := range s.decisions {
		if d.MeetingID == id {
			delete(s.decisions, did)
			deleteByMeeting(s.votes, did, func(v models.Vote) string { return v.DecisionID })
		}
	}
	return nil
}

func (s *MemoryStore) TransitionMeeting(ctx context.Context, id string, t MeetingTransition) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	allowed := false
	for _, from := range t.From {
		if m.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrStaleState
	}
	m.Status = t.To
	if t.StartedAt != nil {
		m.StartedAt = t.StartedAt
	}
	if t.EndedAt != nil {
		m.EndedAt = t.EndedAt
	}
	m.UpdatedAt = time.Now()
	s.meetings[id] = m
	return &m, nil
}

// ---- attendees

func (s *MemoryStore) addAttendeeLocked(a *models.MeetingAttendee) {
	for _, existing := range s.attendees {
		if existing.MeetingID == a.MeetingID && existing.MemberID == a.MemberID {
			*a = existing
			return
		}
	}
	stamp(&a.Base)
	stored := *a
	stored.Member = nil
	s.attendees[a.ID] = stored
}

func (s *MemoryStore) ListAttendees(ctx context.Context, meetingID string) ([]models.MeetingAttendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MeetingAttendee
	for _, a := range s.attendees {
		if a.MeetingID != meetingID {
			continue
		}
		if m, ok := s.memberships[a.MemberID]; ok {
			if u, ok := s.users[m.UserID]; ok {
				m.User = &u
			}
			a.Member = &m
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) AddAttendees(ctx context.Context, attendees []models.MeetingAttendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range attendees {
		s.addAttendeeLocked(&attendees[i])
	}
	return nil
}

func (s *MemoryStore) RemoveAttendee(ctx context.Context, meetingID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.attendees {
		if a.MeetingID == meetingID && a.MemberID == memberID {
			delete(s.attendees, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) GetAttendee(ctx context.Context, meetingID, memberID string) (*models.MeetingAttendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attendees {
		if a.MeetingID == meetingID && a.MemberID == memberID {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpsertAttendance(ctx context.Context, meetingID, memberID string, isPresent bool) (*models.MeetingAttendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := models.MeetingAttendee{MeetingID: meetingID, MemberID: memberID}
	s.addAttendeeLocked(&a)
	a.IsPresent = isPresent
	a.UpdatedAt = time.Now()
	s.attendees[a.ID] = a
	return &a, nil
}

func (s *MemoryStore) MarkAllPresent(ctx context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.attendees {
		if a.MeetingID == meetingID {
			a.IsPresent = true
			a.UpdatedAt = time.Now()
			s.attendees[id] = a
		}
	}
	return nil
}

// ---- ordered meeting children

// liveLocked fails with ErrStaleState once the meeting can no longer change.
func (s *MemoryStore) liveLocked(meetingID string) error {
	m, ok := s.meetings[meetingID]
	if !ok || m.Status.Terminal() {
		return ErrStaleState
	}
	return nil
}

// updateChild stores next over the row id, keeping the fields keep copies
// from the stored row. Writes are refused once the meeting is terminal.
func updateChild[T any](s *MemoryStore, table map[string]T, id string, next *T, meetingOf func(T) string, keep func(stored T, next *T)) error {
	stored, ok := table[id]
	if !ok {
		return ErrNotFound
	}
	if err := s.liveLocked(meetingOf(stored)); err != nil {
		return err
	}
	keep(stored, next)
	table[id] = *next
	return nil
}

func deleteChild[T any](s *MemoryStore, table map[string]T, id string, meetingOf func(T) string) error {
	stored, ok := table[id]
	if !ok {
		return ErrNotFound
	}
	if err := s.liveLocked(meetingOf(stored)); err != nil {
		return err
	}
	delete(table, id)
	return nil
}

func deleteByMeeting[T any](table map[string]T, meetingID string, meetingOf func(T) string) {
	for id, v := range table {
		if meetingOf(v) == meetingID {
			delete(table, id)
		}
	}
}

func listByMeeting[T any](table map[string]T, meetingID string, meetingOf func(T) string, orderOf func(T) int) []T {
	var out []T
	for _, v := range table {
		if meetingOf(v) == meetingID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return orderOf(out[i]) < orderOf(out[j]) })
	return out
}

func nextOrder[T any](table map[string]T, meetingID string, meetingOf func(T) string, orderOf func(T) int) int {
	next := 0
	for _, v := range table {
		if meetingOf(v) == meetingID && orderOf(v) >= next {
			next = orderOf(v) + 1
		}
	}
	return next
}

// reorder assigns positions by index; every id must belong to meetingID.
func reorder[T any](table map[string]T, meetingID string, ids []string, meetingOf func(T) string, setOrder func(*T, int)) error {
	for _, id := range ids {
		v, ok := table[id]
		if !ok || meetingOf(v) != meetingID {
			return ErrNotFound
		}
	}
	for i, id := range ids {
		v := table[id]
		setOrder(&v, i)
		table[id] = v
	}
	return nil
}

func agendaMeeting(v models.AgendaItem) string     { return v.MeetingID }
func agendaOrder(v models.AgendaItem) int          { return v.Order }
func decisionMeeting(v models.Decision) string     { return v.MeetingID }
func decisionOrder(v models.Decision) int          { return v.Order }
func actionItemMeeting(v models.ActionItem) string { return v.MeetingID }
func actionItemOrder(v models.ActionItem) int      { return v.Order }
func noteMeeting(v models.MeetingNote) string      { return v.MeetingID }
func noteOrder(v models.MeetingNote) int           { return v.Order }

// ---- agenda

func (s *MemoryStore) CreateAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&item.Base)
	if item.Order == 0 {
		item.Order = nextOrder(s.agenda, item.MeetingID, agendaMeeting, agendaOrder)
	}
	s.agenda[item.ID] = *item
	return nil
}

func (s *MemoryStore) GetAgendaItem(ctx context.Context, id string) (*models.AgendaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.agenda[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) ListAgendaItems(ctx context.Context, meetingID string) ([]models.AgendaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByMeeting(s.agenda, meetingID, agendaMeeting, agendaOrder), nil
}

func (s *MemoryStore) UpdateAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateChild(s, s.agenda, item.ID, item, agendaMeeting, func(stored models.AgendaItem, next *models.AgendaItem) {
		next.MeetingID, next.Order, next.CreatedAt = stored.MeetingID, stored.Order, stored.CreatedAt
		next.UpdatedAt = time.Now()
	})
}

func (s *MemoryStore) DeleteAgendaItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteChild(s, s.agenda, id, agendaMeeting)
}

func (s *MemoryStore) ReorderAgendaItems(ctx context.Context, meetingID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reorder(s.agenda, meetingID, ids, agendaMeeting, func(v *models.AgendaItem, i int) { v.Order = i })
}

// ---- decisions

func (s *MemoryStore) CreateDecision(ctx context.Context, decision *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&decision.Base)
	if decision.Order == 0 {
		decision.Order = nextOrder(s.decisions, decision.MeetingID, decisionMeeting, decisionOrder)
	}
	s.decisions[decision.ID] = *decision
	return nil
}

func (s *MemoryStore) GetDecision(ctx context.Context, id string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.decisions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) ListDecisions(ctx context.Context, meetingID string) ([]models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByMeeting(s.decisions, meetingID, decisionMeeting, decisionOrder), nil
}

// UpdateDecision never writes the outcome; SetDecisionOutcome owns it.
func (s *MemoryStore) UpdateDecision(ctx context.Context, decision *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateChild(s, s.decisions, decision.ID, decision, decisionMeeting, func(stored models.Decision, next *models.Decision) {
		next.MeetingID, next.Order, next.CreatedAt = stored.MeetingID, stored.Order, stored.CreatedAt
		next.Outcome = stored.Outcome
		next.UpdatedAt = time.Now()
	})
}

func (s *MemoryStore) DeleteDecision(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := deleteChild(s, s.decisions, id, decisionMeeting); err != nil {
		return err
	}
	deleteByMeeting(s.votes, id, func(v models.Vote) string { return v.DecisionID })
	return nil
}

func (s *MemoryStore) ReorderDecisions(ctx context.Context, meetingID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reorder(s.decisions, meetingID, ids, decisionMeeting, func(v *models.Decision, i int) { v.Order = i })
}

func (s *MemoryStore) SetDecisionOutcome(ctx context.Context, id string, outcome models.DecisionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.decisions[id]
	if !ok {
		return ErrNotFound
	}
	d.Outcome = &outcome
	d.UpdatedAt = time.Now()
	s.decisions[id] = d
	return nil
}

// ---- votes

func (s *MemoryStore) UpsertVote(ctx context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.votes {
		if v.DecisionID == vote.DecisionID && v.UserID == vote.UserID {
			v.Vote = vote.Vote
			v.UpdatedAt = time.Now()
			s.votes[id] = v
			*vote = v
			return nil
		}
	}
	stamp(&vote.Base)
	s.votes[vote.ID] = *vote
	return nil
}

func (s *MemoryStore) ListVotes(ctx context.Context, decisionID string) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Vote
	for _, v := range s.votes {
		if v.DecisionID == decisionID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) TallyVotes(ctx context.Context, decisionID string) (models.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t models.Tally
	for _, v := range s.votes {
		if v.DecisionID == decisionID {
			t.Add(v.Vote)
		}
	}
	return t, nil
}

// ---- action items

func (s *MemoryStore) CreateActionItem(ctx context.Context, item *models.ActionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&item.Base)
	if item.Status == "" {
		item.Status = models.ActionItemPending
	}
	if item.Order == 0 {
		item.Order = nextOrder(s.actionItems, item.MeetingID, actionItemMeeting, actionItemOrder)
	}
	s.actionItems[item.ID] = *item
	return nil
}

func (s *MemoryStore) GetActionItem(ctx context.Context, id string) (*models.ActionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.actionItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) ListActionItems(ctx context.Context, meetingID string) ([]models.ActionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByMeeting(s.actionItems, meetingID, actionItemMeeting, actionItemOrder), nil
}

func (s *MemoryStore) UpdateActionItem(ctx context.Context, item *models.ActionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateChild(s, s.actionItems, item.ID, item, actionItemMeeting, func(stored models.ActionItem, next *models.ActionItem) {
		next.MeetingID, next.Order, next.CreatedAt = stored.MeetingID, stored.Order, stored.CreatedAt
		next.UpdatedAt = time.Now()
	})
}

func (s *MemoryStore) DeleteActionItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteChild(s, s.actionItems, id, actionItemMeeting)
}

func (s *MemoryStore) ReorderActionItems(ctx context.Context, meetingID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reorder(s.actionItems, meetingID, ids, actionItemMeeting, func(v *models.ActionItem, i int) { v.Order = i })
}

// ---- notes

func (s *MemoryStore) CreateNote(ctx context.Context, note *models.MeetingNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&note.Base)
	if note.Order == 0 {
		note.Order = nextOrder(s.notes, note.MeetingID, noteMeeting, noteOrder)
	}
	s.notes[note.ID] = *note
	return nil
}

func (s *MemoryStore) GetNote(ctx context.Context, id string) (*models.MeetingNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) ListNotes(ctx context.Context, meetingID string) ([]models.MeetingNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByMeeting(s.notes, meetingID, noteMeeting, noteOrder), nil
}

func (s *MemoryStore) UpdateNote(ctx context.Context, note *models.MeetingNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateChild(s, s.notes, note.ID, note, noteMeeting, func(stored models.MeetingNote, next *models.MeetingNote) {
		next.MeetingID, next.AuthorID, next.Order, next.CreatedAt = stored.MeetingID, stored.AuthorID, stored.Order, stored.CreatedAt
		next.UpdatedAt = time.Now()
	})
}

func (s *MemoryStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteChild(s, s.notes, id, noteMeeting)
}

func (s *MemoryStore) ReorderNotes(ctx context.Context, meetingID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reorder(s.notes, meetingID, ids, noteMeeting, func(v *models.MeetingNote, i int) { v.Order = i })
}

// ---- summaries

func (s *MemoryStore) SaveSummary(ctx context.Context, summary *models.MeetingSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.summaries[summary.MeetingID]; ok {
		summary.ID = existing.ID
		summary.CreatedAt = existing.CreatedAt
	}
	stamp(&summary.Base)
	s.summaries[summary.MeetingID] = *summary
	return nil
}

func (s *MemoryStore) GetSummary(ctx context.Context, meetingID string) (*models.MeetingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.summaries[meetingID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}
