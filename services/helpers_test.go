package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"
)

type emitted struct {
	meetingID string
	event     string
	payload   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (n *recordingNotifier) EmitToRoom(meetingID, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{meetingID: meetingID, event: event, payload: payload})
}

func (n *recordingNotifier) named(event string) []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []emitted
	for _, e := range n.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []SummaryJob
}

func (q *recordingQueue) Enqueue(job SummaryJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

type fixture struct {
	ctx      context.Context
	store    *repository.MemoryStore
	perms    *PermissionService
	members  *MemberService
	roles    *RoleService
	meetings *MeetingService
	votes    *VoteService
	content  *ContentService
	notifier *recordingNotifier
	queue    *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	return newFixtureWithStore(t, store, store)
}

// newFixtureWithStore lets a test wrap the memory store with a fake.
func newFixtureWithStore(t *testing.T, mem *repository.MemoryStore, store repository.Store) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    mem,
		notifier: &recordingNotifier{},
		queue:    &recordingQueue{},
	}
	f.perms = NewPermissionService(store)
	if err := f.perms.SeedCatalog(f.ctx); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	f.members = NewMemberService(store, f.perms)
	f.roles = NewRoleService(store, f.perms)
	f.meetings = NewMeetingService(store, f.perms, f.notifier, f.queue)
	f.votes = NewVoteService(store, f.perms, f.notifier)
	f.content = NewContentService(store, f.meetings, f.notifier)
	return f
}

func (f *fixture) user(t *testing.T, id string) {
	t.Helper()
	if err := f.store.UpsertUser(f.ctx, &models.User{ID: id, Email: id + "@example.com", Name: id}); err != nil {
		t.Fatalf("upsert user %s: %v", id, err)
	}
}

func (f *fixture) company(t *testing.T, ownerID string) *models.Company {
	t.Helper()
	f.user(t, ownerID)
	c, err := f.members.CreateCompany(f.ctx, ownerID, CompanyInput{Name: "Acme Holdings"})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c
}

func (f *fixture) member(t *testing.T, companyID, userID string, role models.Role) *models.Membership {
	t.Helper()
	f.user(t, userID)
	m, err := f.members.AddMember(f.ctx, companyID, AddMemberInput{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("add member %s: %v", userID, err)
	}
	return m
}

func (f *fixture) meeting(t *testing.T, actorID, companyID string, memberIDs ...string) *models.Meeting {
	t.Helper()
	m, err := f.meetings.Create(f.ctx, actorID, companyID, CreateMeetingInput{
		Title:       "Quarterly board meeting",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		MemberIDs:   memberIDs,
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	return m
}

func (f *fixture) decision(t *testing.T, companyID, meetingID, title string) *models.Decision {
	t.Helper()
	d, err := f.content.CreateDecision(f.ctx, companyID, meetingID, DecisionInput{Title: utils.Pointer(title)})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	return d
}

func (f *fixture) transition(t *testing.T, meetingID string, op LifecycleOp) *models.Meeting {
	t.Helper()
	m, err := f.meetings.Transition(f.ctx, meetingID, op)
	if err != nil {
		t.Fatalf("%s meeting: %v", op, err)
	}
	return m
}

func wantKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := utils.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

var errStorageDown = errors.New("storage unavailable")
