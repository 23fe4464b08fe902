package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"

	"github.com/sirupsen/logrus"
)

// LifecycleOp names one transition of the meeting state machine.
type LifecycleOp string

const (
	OpStart    LifecycleOp = "start"
	OpPause    LifecycleOp = "pause"
	OpResume   LifecycleOp = "resume"
	OpComplete LifecycleOp = "complete"
	OpCancel   LifecycleOp = "cancel"
)

type transitionRule struct {
	from []models.MeetingStatus
	to   models.MeetingStatus
}

func (r transitionRule) allows(s models.MeetingStatus) bool {
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

var lifecycle = map[LifecycleOp]transitionRule{
	OpStart: {
		from: []models.MeetingStatus{models.MeetingScheduled, models.MeetingPaused},
		to:   models.MeetingInProgress,
	},
	OpPause: {
		from: []models.MeetingStatus{models.MeetingInProgress},
		to:   models.MeetingPaused,
	},
	OpResume: {
		from: []models.MeetingStatus{models.MeetingPaused},
		to:   models.MeetingInProgress,
	},
	OpComplete: {
		from: []models.MeetingStatus{models.MeetingScheduled, models.MeetingInProgress, models.MeetingPaused},
		to:   models.MeetingCompleted,
	},
	OpCancel: {
		from: []models.MeetingStatus{models.MeetingScheduled, models.MeetingInProgress, models.MeetingPaused},
		to:   models.MeetingCancelled,
	},
}

// ParseLifecycleOp validates an op taken from a URL segment.
func ParseLifecycleOp(s string) (LifecycleOp, error) {
	op := LifecycleOp(strings.ToLower(s))
	if _, ok := lifecycle[op]; !ok {
		return "", utils.Validation("unknown lifecycle operation " + s)
	}
	return op, nil
}

// MeetingService owns meetings, their attendees and the lifecycle state
// machine.
type MeetingService struct {
	store    repository.Store
	perms    *PermissionService
	notifier RoomNotifier
	queue    SummaryQueue
	log      *logrus.Entry
}

func NewMeetingService(store repository.Store, perms *PermissionService, notifier RoomNotifier, queue SummaryQueue) *MeetingService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if queue == nil {
		queue = noopQueue{}
	}
	return &MeetingService{
		store:    store,
		perms:    perms,
		notifier: notifier,
		queue:    queue,
		log:      utils.Component("meetings"),
	}
}

type CreateMeetingInput struct {
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Duration    int       `json:"duration" validate:"omitempty,min=1,max=1440"`
	Notes       string    `json:"notes"`
	MemberIDs   []string  `json:"attendeeIds" validate:"omitempty,dive,uuid"`
}

type UpdateMeetingInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	Duration    *int       `json:"duration" validate:"omitempty,min=1,max=1440"`
	Notes       *string    `json:"notes"`
}

// Get returns the meeting only when it belongs to companyID; other
// companies' meetings are reported as not found.
func (s *MeetingService) Get(ctx context.Context, companyID, meetingID string) (*models.Meeting, error) {
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "meeting")
	}
	if companyID != "" && m.CompanyID != companyID {
		return nil, utils.NotFound("meeting not found")
	}
	return m, nil
}

func (s *MeetingService) List(ctx context.Context, companyID string) ([]models.Meeting, error) {
	meetings, err := s.store.ListMeetings(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "meetings")
	}
	return meetings, nil
}

func (s *MeetingService) Create(ctx context.Context, actorID, companyID string, in CreateMeetingInput) (*models.Meeting, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	attendees, err := s.attendeeRows(ctx, companyID, "", in.MemberIDs)
	if err != nil {
		return nil, err
	}
	duration := in.Duration
	if duration == 0 {
		duration = 60
	}
	meeting := &models.Meeting{
		CompanyID:   companyID,
		Title:       strings.TrimSpace(in.Title),
		ScheduledAt: in.ScheduledAt,
		Duration:    duration,
		Status:      models.MeetingScheduled,
		Notes:       in.Notes,
		CreatedBy:   actorID,
	}
	if err := s.store.CreateMeeting(ctx, meeting, attendees); err != nil {
		return nil, storeErr(err, "meeting")
	}
	utils.LogEvent("meeting_created", map[string]interface{}{
		"meeting_id": meeting.ID,
		"company_id": companyID,
		"attendees":  len(attendees),
	})
	return meeting, nil
}

func (s *MeetingService) Update(ctx context.Context, companyID, meetingID string, in UpdateMeetingInput) (*models.Meeting, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	m, err := s.Get(ctx, companyID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingScheduled {
		return nil, utils.InvalidState("only scheduled meetings can be edited")
	}
	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.ScheduledAt != nil {
		m.ScheduledAt = *in.ScheduledAt
	}
	if in.Duration != nil {
		m.Duration = *in.Duration
	}
	if in.Notes != nil {
		m.Notes = *in.Notes
	}
	// The store re-checks SCHEDULED at write time; a transition that won
	// the race surfaces here as ErrStaleState.
	if err := s.store.UpdateMeeting(ctx, m); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, utils.InvalidState("only scheduled meetings can be edited")
		}
		return nil, storeErr(err, "meeting")
	}
	return m, nil
}

func (s *MeetingService) Delete(ctx context.Context, companyID, meetingID string) error {
	m, err := s.Get(ctx, companyID, meetingID)
	if err != nil {
		return err
	}
	if m.Status != models.MeetingScheduled {
		return utils.InvalidState("only scheduled meetings can be deleted")
	}
	err = s.store.DeleteMeeting(ctx, meetingID)
	if errors.Is(err, repository.ErrStaleState) {
		return utils.InvalidState("only scheduled meetings can be deleted")
	}
	return storeErr(err, "meeting")
}

// ---- lifecycle

// Transition applies op to the meeting. The guard is checked against a
// fresh read and the write is a compare-and-set on that status, so two
// concurrent transitions cannot both succeed.
func (s *MeetingService) Transition(ctx context.Context, meetingID string, op LifecycleOp) (*models.Meeting, error) {
	rule, ok := lifecycle[op]
	if !ok {
		return nil, utils.Validation("unknown lifecycle operation " + string(op))
	}
	current, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "meeting")
	}
	if !rule.allows(current.Status) {
		return nil, utils.InvalidState(fmt.Sprintf("cannot %s a meeting that is %s", op, current.Status))
	}

	now := time.Now()
	t := repository.MeetingTransition{
		From: []models.MeetingStatus{current.Status},
		To:   rule.to,
	}
	switch op {
	case OpStart:
		if current.StartedAt == nil {
			t.StartedAt = &now
		}
	case OpComplete, OpCancel:
		t.EndedAt = &now
	}

	var (
		updated *models.Meeting
		job     *SummaryJob
	)
	transition := func(tx repository.Store) error {
		m, err := tx.TransitionMeeting(ctx, meetingID, t)
		if err != nil {
			return err
		}
		updated = m
		return nil
	}

	switch op {
	case OpStart:
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := transition(tx); err != nil {
				return err
			}
			return tx.MarkAllPresent(ctx, meetingID)
		})
	case OpComplete:
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := transition(tx); err != nil {
				return err
			}
			summary, recipients, err := s.finalize(ctx, tx, updated)
			if err != nil {
				return err
			}
			job = &SummaryJob{Summary: summary, Recipients: recipients}
			return nil
		})
	default:
		err = transition(s.store)
	}
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, utils.InvalidState(fmt.Sprintf("cannot %s a meeting whose status changed concurrently", op))
		}
		return nil, storeErr(err, "meeting")
	}

	s.log.WithFields(logrus.Fields{
		"meeting_id": meetingID,
		"from":       current.Status,
		"to":         updated.Status,
	}).Info("Meeting transitioned")

	if job != nil {
		if !s.queue.Enqueue(*job) {
			utils.Suppress("summary_mail", fmt.Errorf("summary queue rejected meeting %s", meetingID), map[string]interface{}{
				"meeting_id": meetingID,
			})
		}
	}

	s.notifier.EmitToRoom(meetingID, EventMeetingStatus, StatusUpdate{
		MeetingID: meetingID,
		Status:    updated.Status,
		UpdatedAt: updated.UpdatedAt,
	})
	return updated, nil
}

// finalize derives every decision's outcome from its votes and persists
// the meeting summary.
func (s *MeetingService) finalize(ctx context.Context, tx repository.Store, meeting *models.Meeting) (*models.MeetingSummary, []string, error) {
	decisions, err := tx.ListDecisions(ctx, meeting.ID)
	if err != nil {
		return nil, nil, err
	}
	tallies := make(map[string]models.Tally, len(decisions))
	for _, d := range decisions {
		tally, err := tx.TallyVotes(ctx, d.ID)
		if err != nil {
			return nil, nil, err
		}
		tallies[d.ID] = tally
		if err := tx.SetDecisionOutcome(ctx, d.ID, tally.Outcome()); err != nil {
			return nil, nil, err
		}
	}
	summary, recipients, err := buildSummary(ctx, tx, meeting, decisions, tallies)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.SaveSummary(ctx, summary); err != nil {
		return nil, nil, err
	}
	return summary, recipients, nil
}

// ApplyStatus maps a requested status onto the lifecycle operation that
// reaches it from the meeting's current status.
func (s *MeetingService) ApplyStatus(ctx context.Context, meetingID string, status models.MeetingStatus) (*models.Meeting, error) {
	if !status.Valid() {
		return nil, utils.Validation("unknown meeting status " + string(status))
	}
	var op LifecycleOp
	switch status {
	case models.MeetingInProgress:
		op = OpStart
		if m, err := s.store.GetMeeting(ctx, meetingID); err == nil && m.Status == models.MeetingPaused {
			op = OpResume
		}
	case models.MeetingPaused:
		op = OpPause
	case models.MeetingCompleted:
		op = OpComplete
	case models.MeetingCancelled:
		op = OpCancel
	default:
		return nil, utils.InvalidState("a meeting cannot return to " + string(status))
	}
	return s.Transition(ctx, meetingID, op)
}

// GetSummary returns the summary persisted at completion.
func (s *MeetingService) GetSummary(ctx context.Context, companyID, meetingID string) (*models.MeetingSummary, error) {
	if _, err := s.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	summary, err := s.store.GetSummary(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "meeting summary")
	}
	return summary, nil
}

// ---- attendees

// attendeeRows validates that every member id is an active membership of
// companyID and builds the link rows.
func (s *MeetingService) attendeeRows(ctx context.Context, companyID, meetingID string, memberIDs []string) ([]models.MeetingAttendee, error) {
	rows := make([]models.MeetingAttendee, 0, len(memberIDs))
	seen := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, err := s.store.GetMembershipByID(ctx, id)
		if err != nil {
			return nil, storeErr(err, "member")
		}
		if m.CompanyID != companyID || !m.IsActive() {
			return nil, utils.NotFound("member not found")
		}
		rows = append(rows, models.MeetingAttendee{MeetingID: meetingID, MemberID: id})
	}
	return rows, nil
}

func (s *MeetingService) ListAttendees(ctx context.Context, companyID, meetingID string) ([]models.MeetingAttendee, error) {
	if _, err := s.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	attendees, err := s.store.ListAttendees(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "attendees")
	}
	return attendees, nil
}

func (s *MeetingService) AddAttendees(ctx context.Context, companyID, meetingID string, memberIDs []string) ([]models.MeetingAttendee, error) {
	m, err := s.Get(ctx, companyID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() {
		return nil, utils.InvalidState("meeting is " + string(m.Status))
	}
	rows, err := s.attendeeRows(ctx, companyID, meetingID, memberIDs)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddAttendees(ctx, rows); err != nil {
		return nil, storeErr(err, "attendees")
	}
	return s.ListAttendees(ctx, companyID, meetingID)
}

func (s *MeetingService) RemoveAttendee(ctx context.Context, companyID, meetingID, memberID string) error {
	m, err := s.Get(ctx, companyID, meetingID)
	if err != nil {
		return err
	}
	if m.Status.Terminal() {
		return utils.InvalidState("meeting is " + string(m.Status))
	}
	return storeErr(s.store.RemoveAttendee(ctx, meetingID, memberID), "attendee")
}

// UpdateAttendance sets the caller's own presence flag. The attendee link is
// created on demand but requires an active membership.
func (s *MeetingService) UpdateAttendance(ctx context.Context, userID, meetingID string, isPresent bool) (*models.MeetingAttendee, error) {
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "meeting")
	}
	member, err := s.perms.MemberOf(ctx, userID, m.CompanyID, "meeting")
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() {
		return nil, utils.InvalidState("meeting is " + string(m.Status))
	}
	attendee, err := s.store.UpsertAttendance(ctx, meetingID, member.ID, isPresent)
	if err != nil {
		return nil, storeErr(err, "attendee")
	}
	s.notifier.EmitToRoom(meetingID, EventAttendanceUpdated, AttendanceUpdate{
		MeetingID: meetingID,
		UserID:    userID,
		IsPresent: attendee.IsPresent,
	})
	return attendee, nil
}
