package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardroom/models"
)

// storeCase is one behaviour every Store implementation must share.
type storeCase struct {
	name string
	run  func(t *testing.T, s Store)
}

// runStoreCases runs every shared case against a fresh store from open.
func runStoreCases(t *testing.T, open func(t *testing.T) Store) {
	for _, tc := range storeCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, open(t))
		})
	}
}

var storeCases = []storeCase{
	{"TransitionIsCompareAndSet", testTransitionIsCompareAndSet},
	{"OrderedChildren", testOrderedChildren},
	{"UpsertVoteKeepsOneRowPerVoter", testUpsertVoteKeepsOneRowPerVoter},
	{"UpsertAttendance", testUpsertAttendance},
	{"CustomRoleLimits", testCustomRoleLimits},
	{"DeleteMeetingCascades", testDeleteMeetingCascades},
	{"SaveSummaryOverwrites", testSaveSummaryOverwrites},
	{"UpdateMeetingOnlyWhileScheduled", testUpdateMeetingOnlyWhileScheduled},
	{"TerminalMeetingFreezesChildren", testTerminalMeetingFreezesChildren},
	{"UpdateDecisionKeepsOutcome", testUpdateDecisionKeepsOutcome},
	{"RolePermissionUpserts", testRolePermissionUpserts},
	{"DeactivateUserMemberships", testDeactivateUserMemberships},
}

func seedMeeting(t *testing.T, s Store) *models.Meeting {
	t.Helper()
	m := &models.Meeting{CompanyID: models.NewID(), Title: "Board", ScheduledAt: time.Now(), Duration: 60}
	if err := s.CreateMeeting(context.Background(), m, nil); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	return m
}

func seedCompany(t *testing.T, s Store, name string) *models.Company {
	t.Helper()
	c := &models.Company{Name: name}
	if err := s.CreateCompany(context.Background(), c, nil); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	return c
}

func mustTransition(t *testing.T, s Store, id string, from, to models.MeetingStatus) {
	t.Helper()
	now := time.Now()
	tr := MeetingTransition{From: []models.MeetingStatus{from}, To: to}
	if to.Terminal() {
		tr.EndedAt = &now
	}
	if _, err := s.TransitionMeeting(context.Background(), id, tr); err != nil {
		t.Fatalf("transition %s -> %s: %v", from, to, err)
	}
}

func testTransitionIsCompareAndSet(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)
	if m.Status != models.MeetingScheduled {
		t.Fatalf("default status = %s", m.Status)
	}

	now := time.Now()
	start := MeetingTransition{From: []models.MeetingStatus{models.MeetingScheduled}, To: models.MeetingInProgress, StartedAt: &now}
	got, err := s.TransitionMeeting(ctx, m.ID, start)
	if err != nil {
		t.Fatalf("TransitionMeeting: %v", err)
	}
	if got.Status != models.MeetingInProgress || got.StartedAt == nil {
		t.Fatalf("meeting = %+v", got)
	}

	if _, err := s.TransitionMeeting(ctx, m.ID, start); !errors.Is(err, ErrStaleState) {
		t.Fatalf("second transition from SCHEDULED: %v", err)
	}
	if _, err := s.TransitionMeeting(ctx, models.NewID(), start); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown meeting: %v", err)
	}

	pause := MeetingTransition{From: []models.MeetingStatus{models.MeetingInProgress}, To: models.MeetingPaused}
	got, err = s.TransitionMeeting(ctx, m.ID, pause)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got.StartedAt == nil {
		t.Fatal("pause cleared StartedAt")
	}
}

func testOrderedChildren(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		d := &models.Decision{MeetingID: m.ID, Title: title}
		if err := s.CreateDecision(ctx, d); err != nil {
			t.Fatalf("CreateDecision: %v", err)
		}
		ids = append(ids, d.ID)
	}
	list, err := s.ListDecisions(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	for i, d := range list {
		if d.Order != i {
			t.Fatalf("decision %s order = %d, want %d", d.Title, d.Order, i)
		}
	}

	if err := s.ReorderDecisions(ctx, m.ID, []string{ids[1], ids[2], ids[0]}); err != nil {
		t.Fatalf("ReorderDecisions: %v", err)
	}
	list, _ = s.ListDecisions(ctx, m.ID)
	if len(list) != 3 || list[0].Title != "b" || list[1].Title != "c" || list[2].Title != "a" {
		t.Fatalf("order after reorder = %+v", list)
	}

	other := seedMeeting(t, s)
	if err := s.ReorderDecisions(ctx, other.ID, ids); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reorder with foreign ids: %v", err)
	}
}

func testUpsertVoteKeepsOneRowPerVoter(t *testing.T, s Store) {
	ctx := context.Background()
	d1, d2 := models.NewID(), models.NewID()

	first := &models.Vote{DecisionID: d1, UserID: "u1", Vote: models.VoteFor}
	if err := s.UpsertVote(ctx, first); err != nil {
		t.Fatalf("UpsertVote: %v", err)
	}
	for _, v := range []models.Vote{
		{DecisionID: d1, UserID: "u2", Vote: models.VoteAgainst},
		{DecisionID: d2, UserID: "u1", Vote: models.VoteFor},
	} {
		v := v
		if err := s.UpsertVote(ctx, &v); err != nil {
			t.Fatalf("UpsertVote: %v", err)
		}
	}

	recast := &models.Vote{DecisionID: d1, UserID: "u1", Vote: models.VoteAbstain}
	if err := s.UpsertVote(ctx, recast); err != nil {
		t.Fatalf("re-cast: %v", err)
	}
	if recast.ID != first.ID || recast.Vote != models.VoteAbstain {
		t.Fatalf("re-cast returned %+v, want id %s", recast, first.ID)
	}

	votes, err := s.ListVotes(ctx, d1)
	if err != nil || len(votes) != 2 {
		t.Fatalf("d1 votes = %v, %v", votes, err)
	}
	tally, err := s.TallyVotes(ctx, d1)
	if err != nil {
		t.Fatalf("TallyVotes: %v", err)
	}
	if tally != (models.Tally{Against: 1, Abstain: 1}) {
		t.Fatalf("tally = %+v", tally)
	}
}

func testUpsertAttendance(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)
	memberID := models.NewID()

	created, err := s.UpsertAttendance(ctx, m.ID, memberID, false)
	if err != nil {
		t.Fatalf("UpsertAttendance: %v", err)
	}
	updated, err := s.UpsertAttendance(ctx, m.ID, memberID, true)
	if err != nil {
		t.Fatalf("UpsertAttendance: %v", err)
	}
	if updated.ID != created.ID || !updated.IsPresent {
		t.Fatalf("attendance = %+v, created %+v", updated, created)
	}
	got, err := s.GetAttendee(ctx, m.ID, memberID)
	if err != nil || !got.IsPresent {
		t.Fatalf("GetAttendee = %+v, %v", got, err)
	}
}

func testCustomRoleLimits(t *testing.T, s Store) {
	ctx := context.Background()
	c1 := seedCompany(t, s, "Acme")
	c2 := seedCompany(t, s, "Globex")

	create := func(companyID, name string) error {
		return s.CreateCustomRole(ctx, &models.CustomRole{CompanyID: companyID, Name: name}, 2)
	}
	if err := create(c1.ID, "Treasurer"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := create(c1.ID, "Treasurer"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate name: %v", err)
	}
	if err := create(c1.ID, "Clerk"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := create(c1.ID, "Scribe"); !errors.Is(err, ErrCapacity) {
		t.Fatalf("over capacity: %v", err)
	}
	if err := create(c2.ID, "Scribe"); err != nil {
		t.Fatalf("other company: %v", err)
	}
	roles, _ := s.ListCustomRoles(ctx, c1.ID)
	if len(roles) != 2 {
		t.Fatalf("c1 has %d roles", len(roles))
	}
}

func testDeleteMeetingCascades(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)
	memberID := models.NewID()

	d := &models.Decision{MeetingID: m.ID, Title: "x"}
	if err := s.CreateDecision(ctx, d); err != nil {
		t.Fatalf("CreateDecision: %v", err)
	}
	if err := s.UpsertVote(ctx, &models.Vote{DecisionID: d.ID, UserID: "u1", Vote: models.VoteFor}); err != nil {
		t.Fatalf("UpsertVote: %v", err)
	}
	if err := s.CreateNote(ctx, &models.MeetingNote{MeetingID: m.ID, Content: "n"}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := s.UpsertAttendance(ctx, m.ID, memberID, true); err != nil {
		t.Fatalf("UpsertAttendance: %v", err)
	}

	if err := s.DeleteMeeting(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMeeting: %v", err)
	}
	if _, err := s.GetMeeting(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("meeting survived: %v", err)
	}
	if _, err := s.GetDecision(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("decision survived: %v", err)
	}
	if votes, _ := s.ListVotes(ctx, d.ID); len(votes) != 0 {
		t.Fatal("votes survived")
	}
	if notes, _ := s.ListNotes(ctx, m.ID); len(notes) != 0 {
		t.Fatal("notes survived")
	}
	if _, err := s.GetAttendee(ctx, m.ID, memberID); !errors.Is(err, ErrNotFound) {
		t.Fatal("attendee survived")
	}
	if err := s.DeleteMeeting(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func testSaveSummaryOverwrites(t *testing.T, s Store) {
	ctx := context.Background()
	meetingID := models.NewID()

	first := &models.MeetingSummary{MeetingID: meetingID, Title: "draft"}
	if err := s.SaveSummary(ctx, first); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	second := &models.MeetingSummary{MeetingID: meetingID, Title: "final"}
	if err := s.SaveSummary(ctx, second); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("summary id changed from %s to %s", first.ID, second.ID)
	}
	got, err := s.GetSummary(ctx, meetingID)
	if err != nil || got.Title != "final" {
		t.Fatalf("summary = %+v, %v", got, err)
	}
}

func testUpdateMeetingOnlyWhileScheduled(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)

	edit := *m
	edit.Title = "Renamed"
	edit.Status = models.MeetingCancelled
	if err := s.UpdateMeeting(ctx, &edit); err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}
	if edit.Title != "Renamed" || edit.Status != models.MeetingScheduled {
		t.Fatalf("reloaded meeting = %+v", edit)
	}

	mustTransition(t, s, m.ID, models.MeetingScheduled, models.MeetingCompleted)

	stale := *m
	stale.Title = "Too late"
	if err := s.UpdateMeeting(ctx, &stale); !errors.Is(err, ErrStaleState) {
		t.Fatalf("update after completion: %v", err)
	}
	if err := s.DeleteMeeting(ctx, m.ID); !errors.Is(err, ErrStaleState) {
		t.Fatalf("delete after completion: %v", err)
	}
	got, _ := s.GetMeeting(ctx, m.ID)
	if got.Status != models.MeetingCompleted || got.EndedAt == nil || got.Title != "Renamed" {
		t.Fatalf("meeting = %+v", got)
	}

	ghost := models.Meeting{Title: "ghost"}
	ghost.ID = models.NewID()
	if err := s.UpdateMeeting(ctx, &ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown meeting: %v", err)
	}
}

func testTerminalMeetingFreezesChildren(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)

	item := &models.AgendaItem{MeetingID: m.ID, Title: "Opening"}
	d := &models.Decision{MeetingID: m.ID, Title: "Budget"}
	a := &models.ActionItem{MeetingID: m.ID, Title: "Minutes"}
	n := &models.MeetingNote{MeetingID: m.ID, Content: "draft"}
	for _, err := range []error{
		s.CreateAgendaItem(ctx, item), s.CreateDecision(ctx, d),
		s.CreateActionItem(ctx, a), s.CreateNote(ctx, n),
	} {
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	mustTransition(t, s, m.ID, models.MeetingScheduled, models.MeetingCancelled)

	item.Title, d.Title, a.Title, n.Content = "x", "x", "x", "x"
	writes := map[string]error{
		"update agenda item": s.UpdateAgendaItem(ctx, item),
		"delete agenda item": s.DeleteAgendaItem(ctx, item.ID),
		"update decision":    s.UpdateDecision(ctx, d),
		"delete decision":    s.DeleteDecision(ctx, d.ID),
		"update action item": s.UpdateActionItem(ctx, a),
		"delete action item": s.DeleteActionItem(ctx, a.ID),
		"update note":        s.UpdateNote(ctx, n),
		"delete note":        s.DeleteNote(ctx, n.ID),
	}
	for name, err := range writes {
		if !errors.Is(err, ErrStaleState) {
			t.Errorf("%s on cancelled meeting: %v", name, err)
		}
	}

	notes, _ := s.ListNotes(ctx, m.ID)
	if len(notes) != 1 || notes[0].Content != "draft" {
		t.Fatalf("notes = %+v", notes)
	}

	ghost := &models.Decision{Title: "ghost"}
	ghost.ID = models.NewID()
	if err := s.UpdateDecision(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown decision: %v", err)
	}
}

func testUpdateDecisionKeepsOutcome(t *testing.T, s Store) {
	ctx := context.Background()
	m := seedMeeting(t, s)
	other := seedMeeting(t, s)
	d := &models.Decision{MeetingID: m.ID, Title: "Budget"}
	if err := s.CreateDecision(ctx, d); err != nil {
		t.Fatalf("CreateDecision: %v", err)
	}
	if err := s.SetDecisionOutcome(ctx, d.ID, models.OutcomePassed); err != nil {
		t.Fatalf("SetDecisionOutcome: %v", err)
	}

	edit := &models.Decision{MeetingID: other.ID, Title: "Budget 2025", Description: "revised"}
	edit.ID = d.ID
	if err := s.UpdateDecision(ctx, edit); err != nil {
		t.Fatalf("UpdateDecision: %v", err)
	}
	got, err := s.GetDecision(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if got.Outcome == nil || *got.Outcome != models.OutcomePassed {
		t.Fatalf("outcome = %v, want PASSED", got.Outcome)
	}
	if got.MeetingID != m.ID || got.Title != "Budget 2025" || got.Description != "revised" {
		t.Fatalf("decision = %+v", got)
	}
	if edit.Outcome == nil || edit.MeetingID != m.ID {
		t.Fatalf("argument not reloaded: %+v", edit)
	}
}

func testRolePermissionUpserts(t *testing.T, s Store) {
	ctx := context.Background()
	c := seedCompany(t, s, "Acme")
	permID := models.NewID()
	admin := models.RoleAdmin
	row := func(granted bool) models.RolePermission {
		return models.RolePermission{CompanyID: c.ID, Role: &admin, PermissionID: permID, Granted: granted}
	}

	seed := []models.RolePermission{row(false)}
	for i := 0; i < 2; i++ {
		if err := s.InsertRolePermissions(ctx, seed); err != nil {
			t.Fatalf("InsertRolePermissions: %v", err)
		}
	}
	if err := s.InsertRolePermissions(ctx, []models.RolePermission{row(true)}); err != nil {
		t.Fatalf("InsertRolePermissions: %v", err)
	}
	rows, err := s.FindRolePermissions(ctx, c.ID, permID, admin, nil)
	if err != nil || len(rows) != 1 || rows[0].Granted {
		t.Fatalf("after inserts = %+v, %v", rows, err)
	}

	if err := s.UpsertRolePermissions(ctx, []models.RolePermission{row(true)}); err != nil {
		t.Fatalf("UpsertRolePermissions: %v", err)
	}
	rows, _ = s.FindRolePermissions(ctx, c.ID, permID, admin, nil)
	if len(rows) != 1 || !rows[0].Granted {
		t.Fatalf("after upsert = %+v", rows)
	}
	if ok, _ := s.HasRolePermissions(ctx, c.ID); !ok {
		t.Fatal("HasRolePermissions = false")
	}
}

func testDeactivateUserMemberships(t *testing.T, s Store) {
	ctx := context.Background()
	for i, status := range []models.MembershipStatus{models.MembershipActive, models.MembershipActive, models.MembershipFormer} {
		c := seedCompany(t, s, "Company")
		m := &models.Membership{UserID: "leaver", CompanyID: c.ID, Role: models.RoleBoardMember, Status: status}
		if err := s.CreateMembership(ctx, m); err != nil {
			t.Fatalf("membership %d: %v", i, err)
		}
		if i == 0 {
			dup := &models.Membership{UserID: "leaver", CompanyID: c.ID, Role: models.RoleObserver}
			if err := s.CreateMembership(ctx, dup); !errors.Is(err, ErrConflict) {
				t.Fatalf("duplicate membership: %v", err)
			}
		}
	}

	n, err := s.DeactivateUserMemberships(ctx, "leaver")
	if err != nil || n != 2 {
		t.Fatalf("deactivated %d, %v; want 2", n, err)
	}
	if n, _ = s.DeactivateUserMemberships(ctx, "leaver"); n != 0 {
		t.Fatalf("second pass deactivated %d", n)
	}
}
