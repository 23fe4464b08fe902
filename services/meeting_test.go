package services

import (
	"sync"
	"testing"
	"time"

	"boardroom/models"
	"boardroom/utils"
)

func TestLifecycleTransitions(t *testing.T) {
	// path drives a fresh meeting into the starting status.
	paths := map[models.MeetingStatus][]LifecycleOp{
		models.MeetingScheduled:  nil,
		models.MeetingInProgress: {OpStart},
		models.MeetingPaused:     {OpStart, OpPause},
		models.MeetingCompleted:  {OpStart, OpComplete},
		models.MeetingCancelled:  {OpCancel},
	}

	tests := []struct {
		from models.MeetingStatus
		op   LifecycleOp
		want models.MeetingStatus // empty means INVALID_STATE
	}{
		{models.MeetingScheduled, OpStart, models.MeetingInProgress},
		{models.MeetingScheduled, OpPause, ""},
		{models.MeetingScheduled, OpResume, ""},
		{models.MeetingScheduled, OpComplete, models.MeetingCompleted},
		{models.MeetingScheduled, OpCancel, models.MeetingCancelled},
		{models.MeetingInProgress, OpStart, ""},
		{models.MeetingInProgress, OpPause, models.MeetingPaused},
		{models.MeetingInProgress, OpResume, ""},
		{models.MeetingInProgress, OpComplete, models.MeetingCompleted},
		{models.MeetingInProgress, OpCancel, models.MeetingCancelled},
		{models.MeetingPaused, OpStart, models.MeetingInProgress},
		{models.MeetingPaused, OpResume, models.MeetingInProgress},
		{models.MeetingPaused, OpPause, ""},
		{models.MeetingPaused, OpComplete, models.MeetingCompleted},
		{models.MeetingCompleted, OpStart, ""},
		{models.MeetingCompleted, OpCancel, ""},
		{models.MeetingCompleted, OpComplete, ""},
		{models.MeetingCancelled, OpStart, ""},
		{models.MeetingCancelled, OpResume, ""},
		{models.MeetingCancelled, OpComplete, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.op), func(t *testing.T) {
			f := newFixture(t)
			c := f.company(t, "owner")
			m := f.meeting(t, "owner", c.ID)
			for _, op := range paths[tt.from] {
				f.transition(t, m.ID, op)
			}

			got, err := f.meetings.Transition(f.ctx, m.ID, tt.op)
			if tt.want == "" {
				wantKind(t, err, utils.KindInvalidState)
				stored, _ := f.meetings.Get(f.ctx, c.ID, m.ID)
				if stored.Status != tt.from {
					t.Fatalf("rejected transition changed status to %s", stored.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("status = %s, want %s", got.Status, tt.want)
			}
		})
	}
}

func TestTransitionTimestampsAndEvents(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)

	started := f.transition(t, m.ID, OpStart)
	if started.StartedAt == nil {
		t.Fatal("start should stamp StartedAt")
	}
	first := *started.StartedAt
	f.transition(t, m.ID, OpPause)
	resumed := f.transition(t, m.ID, OpStart)
	if !resumed.StartedAt.Equal(first) {
		t.Fatal("restarting a paused meeting must keep the original StartedAt")
	}
	done := f.transition(t, m.ID, OpComplete)
	if done.EndedAt == nil {
		t.Fatal("complete should stamp EndedAt")
	}

	events := f.notifier.named(EventMeetingStatus)
	want := []models.MeetingStatus{
		models.MeetingInProgress, models.MeetingPaused, models.MeetingInProgress, models.MeetingCompleted,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d status events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.meetingID != m.ID {
			t.Errorf("event %d sent to room %s", i, e.meetingID)
		}
		if got := e.payload.(StatusUpdate).Status; got != want[i] {
			t.Errorf("event %d status = %s, want %s", i, got, want[i])
		}
	}
}

func TestConcurrentTransitionsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)

	const racers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			op := OpStart
			if i%2 == 1 {
				op = OpCancel
			}
			_, err := f.meetings.Transition(f.ctx, m.ID, op)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			if utils.KindOf(err) != utils.KindInvalidState {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	// A start may be followed by a cancel, never by another start, and
	// nothing follows a cancel.
	stored, err := f.meetings.Get(f.ctx, c.ID, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	switch stored.Status {
	case models.MeetingCancelled:
		if success < 1 || success > 2 {
			t.Fatalf("%d transitions succeeded", success)
		}
	case models.MeetingInProgress:
		if success != 1 {
			t.Fatalf("%d transitions succeeded", success)
		}
	default:
		t.Fatalf("unexpected final status %s", stored.Status)
	}
	if got := len(f.notifier.named(EventMeetingStatus)); got != success {
		t.Fatalf("%d status events for %d transitions", got, success)
	}
}

func TestStartMarksAttendeesPresent(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	a := f.member(t, c.ID, "alice", models.RoleBoardMember)
	b := f.member(t, c.ID, "bob", models.RoleBoardMember)
	m := f.meeting(t, "owner", c.ID, a.ID, b.ID)

	attendees, err := f.meetings.ListAttendees(f.ctx, c.ID, m.ID)
	if err != nil {
		t.Fatalf("ListAttendees: %v", err)
	}
	for _, at := range attendees {
		if at.IsPresent {
			t.Fatal("attendees start absent")
		}
	}

	f.transition(t, m.ID, OpStart)
	attendees, _ = f.meetings.ListAttendees(f.ctx, c.ID, m.ID)
	if len(attendees) != 2 {
		t.Fatalf("got %d attendees", len(attendees))
	}
	for _, at := range attendees {
		if !at.IsPresent {
			t.Fatalf("attendee %s not marked present", at.MemberID)
		}
	}
}

func TestCompleteDerivesOutcomesAndSummary(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	voters := []string{"v1", "v2", "v3", "v4"}
	var memberIDs []string
	for _, v := range voters {
		memberIDs = append(memberIDs, f.member(t, c.ID, v, models.RoleBoardMember).ID)
	}
	m := f.meeting(t, "owner", c.ID, memberIDs...)

	passed := f.decision(t, c.ID, m.ID, "Approve budget")
	rejected := f.decision(t, c.ID, m.ID, "Acquire competitor")
	tabled := f.decision(t, c.ID, m.ID, "Rename company")
	if _, err := f.content.CreateActionItem(f.ctx, c.ID, m.ID, ActionItemInput{Title: utils.Pointer("Circulate minutes")}); err != nil {
		t.Fatalf("action item: %v", err)
	}

	f.transition(t, m.ID, OpStart)

	ballots := map[string][]models.VoteChoice{
		passed.ID:   {models.VoteFor, models.VoteFor, models.VoteFor, models.VoteAgainst},
		rejected.ID: {models.VoteFor, models.VoteAgainst, models.VoteAgainst, models.VoteAgainst},
		tabled.ID:   {models.VoteFor, models.VoteFor, models.VoteAgainst, models.VoteAgainst},
	}
	for decisionID, choices := range ballots {
		for i, choice := range choices {
			if _, err := f.votes.Cast(f.ctx, voters[i], decisionID, choice); err != nil {
				t.Fatalf("cast: %v", err)
			}
		}
	}

	f.transition(t, m.ID, OpComplete)

	want := map[string]models.DecisionOutcome{
		passed.ID:   models.OutcomePassed,
		rejected.ID: models.OutcomeRejected,
		tabled.ID:   models.OutcomeTabled,
	}
	for id, outcome := range want {
		d, err := f.content.GetDecision(f.ctx, c.ID, m.ID, id)
		if err != nil {
			t.Fatalf("GetDecision: %v", err)
		}
		if d.Outcome == nil || *d.Outcome != outcome {
			t.Errorf("decision %s outcome = %v, want %s", d.Title, d.Outcome, outcome)
		}
	}

	summary, err := f.meetings.GetSummary(f.ctx, c.ID, m.ID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if len(summary.Decisions) != 3 || len(summary.ActionItems) != 1 || len(summary.Attendees) != 4 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, d := range summary.Decisions {
		if d.Outcome != want[d.DecisionID] {
			t.Errorf("summary outcome of %s = %s", d.Title, d.Outcome)
		}
	}

	if len(f.queue.jobs) != 1 {
		t.Fatalf("enqueued %d summary jobs", len(f.queue.jobs))
	}
	if got := len(f.queue.jobs[0].Recipients); got != 4 {
		t.Fatalf("summary goes to %d recipients, want 4", got)
	}
}

func TestCancelWritesNoSummary(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)

	f.transition(t, m.ID, OpCancel)
	_, err := f.meetings.GetSummary(f.ctx, c.ID, m.ID)
	wantKind(t, err, utils.KindNotFound)
	if len(f.queue.jobs) != 0 {
		t.Fatal("cancelled meetings are not mailed")
	}
}

func TestApplyStatus(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)

	_, err := f.meetings.ApplyStatus(f.ctx, m.ID, models.MeetingScheduled)
	wantKind(t, err, utils.KindInvalidState)
	_, err = f.meetings.ApplyStatus(f.ctx, m.ID, "ADJOURNED")
	wantKind(t, err, utils.KindValidation)

	steps := []models.MeetingStatus{
		models.MeetingInProgress, models.MeetingPaused, models.MeetingInProgress, models.MeetingCompleted,
	}
	for _, status := range steps {
		got, err := f.meetings.ApplyStatus(f.ctx, m.ID, status)
		if err != nil {
			t.Fatalf("ApplyStatus(%s): %v", status, err)
		}
		if got.Status != status {
			t.Fatalf("status = %s, want %s", got.Status, status)
		}
	}
	_, err = f.meetings.ApplyStatus(f.ctx, m.ID, models.MeetingInProgress)
	wantKind(t, err, utils.KindInvalidState)
}

func TestMeetingEditsOnlyWhileScheduled(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)

	updated, err := f.meetings.Update(f.ctx, c.ID, m.ID, UpdateMeetingInput{Title: utils.Pointer("Extraordinary meeting")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Extraordinary meeting" {
		t.Fatalf("title = %q", updated.Title)
	}

	f.transition(t, m.ID, OpStart)
	_, err = f.meetings.Update(f.ctx, c.ID, m.ID, UpdateMeetingInput{Title: utils.Pointer("Too late")})
	wantKind(t, err, utils.KindInvalidState)
	wantKind(t, f.meetings.Delete(f.ctx, c.ID, m.ID), utils.KindInvalidState)
}

func TestMeetingIsScopedToCompany(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	other := f.company(t, "rival")
	m := f.meeting(t, "owner", c.ID)

	_, err := f.meetings.Get(f.ctx, other.ID, m.ID)
	wantKind(t, err, utils.KindNotFound)
	_, err = f.content.ListDecisions(f.ctx, other.ID, m.ID)
	wantKind(t, err, utils.KindNotFound)
}

func TestAttendeesMustBeActiveMembers(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	other := f.company(t, "rival")
	outsider := f.member(t, other.ID, "outsider", models.RoleBoardMember)
	former := f.member(t, c.ID, "former", models.RoleBoardMember)
	if err := f.members.RemoveMember(f.ctx, c.ID, "former"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	for _, id := range []string{outsider.ID, former.ID} {
		_, err := f.meetings.Create(f.ctx, "owner", c.ID, CreateMeetingInput{
			Title:       "Board",
			ScheduledAt: time.Now().Add(time.Hour),
			MemberIDs:   []string{id},
		})
		wantKind(t, err, utils.KindNotFound)
	}
}

func TestUpdateAttendance(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "owner")
	a := f.member(t, c.ID, "alice", models.RoleObserver)
	m := f.meeting(t, "owner", c.ID)

	// The attendee row is created on demand.
	at, err := f.meetings.UpdateAttendance(f.ctx, "alice", m.ID, true)
	if err != nil {
		t.Fatalf("UpdateAttendance: %v", err)
	}
	if !at.IsPresent || at.MemberID != a.ID {
		t.Fatalf("attendee = %+v", at)
	}
	events := f.notifier.named(EventAttendanceUpdated)
	if len(events) != 1 || events[0].payload.(AttendanceUpdate).UserID != "alice" {
		t.Fatalf("events = %+v", events)
	}

	_, err = f.meetings.UpdateAttendance(f.ctx, "stranger", m.ID, true)
	wantKind(t, err, utils.KindNotFound)

	f.transition(t, m.ID, OpCancel)
	_, err = f.meetings.UpdateAttendance(f.ctx, "alice", m.ID, false)
	wantKind(t, err, utils.KindInvalidState)
}
