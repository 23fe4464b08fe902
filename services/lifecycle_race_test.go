package services

import (
	"context"
	"testing"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"
)

// interleavingStore runs between once, right before the next guarded write
// reaches storage, so a transition lands after the service's own read.
type interleavingStore struct {
	repository.Store
	between func()
}

func (s *interleavingStore) interleave() {
	if fn := s.between; fn != nil {
		s.between = nil
		fn()
	}
}

func (s *interleavingStore) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	s.interleave()
	return s.Store.UpdateMeeting(ctx, m)
}

func (s *interleavingStore) DeleteMeeting(ctx context.Context, id string) error {
	s.interleave()
	return s.Store.DeleteMeeting(ctx, id)
}

func (s *interleavingStore) UpdateDecision(ctx context.Context, d *models.Decision) error {
	s.interleave()
	return s.Store.UpdateDecision(ctx, d)
}

func (s *interleavingStore) UpdateNote(ctx context.Context, n *models.MeetingNote) error {
	s.interleave()
	return s.Store.UpdateNote(ctx, n)
}

func (s *interleavingStore) DeleteAgendaItem(ctx context.Context, id string) error {
	s.interleave()
	return s.Store.DeleteAgendaItem(ctx, id)
}

func newInterleavingFixture(t *testing.T) (*fixture, *interleavingStore) {
	t.Helper()
	mem := repository.NewMemoryStore()
	store := &interleavingStore{Store: mem}
	return newFixtureWithStore(t, mem, store), store
}

func TestEditLosingToCompleteKeepsMeetingCompleted(t *testing.T) {
	f, store := newInterleavingFixture(t)
	c := f.company(t, "owner")
	director := f.member(t, c.ID, "director", models.RoleBoardMember)
	m := f.meeting(t, "owner", c.ID, director.ID)
	store.between = func() { f.transition(t, m.ID, OpComplete) }

	_, err := f.meetings.Update(f.ctx, c.ID, m.ID, UpdateMeetingInput{Title: utils.Pointer("Renamed")})
	wantKind(t, err, utils.KindInvalidState)

	got, err := f.store.GetMeeting(f.ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if got.Status != models.MeetingCompleted || got.EndedAt == nil {
		t.Fatalf("meeting reverted: status=%s endedAt=%v", got.Status, got.EndedAt)
	}
	if got.Title == "Renamed" {
		t.Fatal("edit was written after completion")
	}

	_, err = f.meetings.Transition(f.ctx, m.ID, OpComplete)
	wantKind(t, err, utils.KindInvalidState)
	if n := len(f.queue.jobs); n != 1 {
		t.Fatalf("got %d summary jobs, want 1", n)
	}
}

func TestDeleteLosingToStartKeepsMeeting(t *testing.T) {
	f, store := newInterleavingFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)
	store.between = func() { f.transition(t, m.ID, OpStart) }

	wantKind(t, f.meetings.Delete(f.ctx, c.ID, m.ID), utils.KindInvalidState)

	got, err := f.store.GetMeeting(f.ctx, m.ID)
	if err != nil {
		t.Fatalf("running meeting was deleted: %v", err)
	}
	if got.Status != models.MeetingInProgress {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestDecisionEditLosingToCompleteKeepsOutcome(t *testing.T) {
	f, store := newInterleavingFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)
	d := f.decision(t, c.ID, m.ID, "Approve budget")
	f.transition(t, m.ID, OpStart)
	store.between = func() { f.transition(t, m.ID, OpComplete) }

	_, err := f.content.UpdateDecision(f.ctx, c.ID, m.ID, d.ID, DecisionInput{Title: utils.Pointer("Rewritten")})
	wantKind(t, err, utils.KindInvalidState)

	got, err := f.store.GetDecision(f.ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if got.Outcome == nil || *got.Outcome != models.OutcomeTabled {
		t.Fatalf("outcome = %v, want TABLED", got.Outcome)
	}
	if got.Title != "Approve budget" {
		t.Fatalf("title = %q", got.Title)
	}
	if n := len(f.notifier.named(EventDecisionUpdated)); n != 0 {
		t.Fatalf("got %d decision update events", n)
	}
}

func TestContentWritesLosingToCancel(t *testing.T) {
	f, store := newInterleavingFixture(t)
	c := f.company(t, "owner")
	m := f.meeting(t, "owner", c.ID)
	note, err := f.content.CreateNote(f.ctx, "owner", c.ID, m.ID, NoteInput{Content: "draft"})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	item, err := f.content.CreateAgendaItem(f.ctx, c.ID, m.ID, AgendaItemInput{Title: utils.Pointer("Opening")})
	if err != nil {
		t.Fatalf("CreateAgendaItem: %v", err)
	}

	store.between = func() { f.transition(t, m.ID, OpCancel) }
	_, err = f.content.UpdateNote(f.ctx, c.ID, m.ID, note.ID, NoteInput{Content: "edited"})
	wantKind(t, err, utils.KindInvalidState)

	wantKind(t, f.content.DeleteAgendaItem(f.ctx, c.ID, m.ID, item.ID), utils.KindInvalidState)
	if _, err := f.store.GetAgendaItem(f.ctx, item.ID); err != nil {
		t.Fatalf("agenda item of a cancelled meeting was deleted: %v", err)
	}
	stored, _ := f.store.GetNote(f.ctx, note.ID)
	if stored.Content != "draft" {
		t.Fatalf("note content = %q", stored.Content)
	}
}
