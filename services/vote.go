package services

import (
	"context"
	"errors"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"
)

// VoteService casts votes and recomputes tallies.
type VoteService struct {
	store    repository.Store
	perms    *PermissionService
	notifier RoomNotifier
}

func NewVoteService(store repository.Store, perms *PermissionService, notifier RoomNotifier) *VoteService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &VoteService{store: store, perms: perms, notifier: notifier}
}

// VoteResult is the stored vote plus the tally read right after it.
type VoteResult struct {
	MeetingID  string            `json:"meetingId"`
	DecisionID string            `json:"decisionId"`
	VoterID    string            `json:"voterId"`
	Vote       models.VoteChoice `json:"vote"`
	Tally      models.Tally      `json:"tally"`
}

// Cast records userID's vote on decisionID. Legality is re-checked against
// stored state on every call: the meeting must be IN_PROGRESS and the voter
// a present attendee holding votes.cast. The tally is read after the
// upsert and may already include later votes.
func (s *VoteService) Cast(ctx context.Context, userID, decisionID string, choice models.VoteChoice) (*VoteResult, error) {
	if !choice.Valid() {
		return nil, utils.Validation("vote must be FOR, AGAINST or ABSTAIN")
	}
	decision, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, storeErr(err, "decision")
	}
	meeting, err := s.store.GetMeeting(ctx, decision.MeetingID)
	if err != nil {
		return nil, storeErr(err, "meeting")
	}
	member, err := s.perms.MemberOf(ctx, userID, meeting.CompanyID, "decision")
	if err != nil {
		return nil, err
	}
	if !s.perms.HasPermission(ctx, userID, meeting.CompanyID, models.PermVotesCast) {
		return nil, utils.Forbidden("missing permission " + models.PermVotesCast)
	}
	if meeting.Status != models.MeetingInProgress {
		return nil, utils.InvalidState("voting is only open while the meeting is IN_PROGRESS")
	}
	attendee, err := s.store.GetAttendee(ctx, meeting.ID, member.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "attendee")
	}
	if attendee == nil || !attendee.IsPresent {
		return nil, utils.Forbidden("only present attendees may vote")
	}

	vote := &models.Vote{DecisionID: decisionID, UserID: userID, Vote: choice}
	if err := s.store.UpsertVote(ctx, vote); err != nil {
		return nil, storeErr(err, "vote")
	}
	tally, err := s.store.TallyVotes(ctx, decisionID)
	if err != nil {
		return nil, storeErr(err, "vote tally")
	}

	result := &VoteResult{
		MeetingID:  meeting.ID,
		DecisionID: decisionID,
		VoterID:    userID,
		Vote:       vote.Vote,
		Tally:      tally,
	}
	s.notifier.EmitToRoom(meeting.ID, EventVoteUpdated, VoteUpdate{
		DecisionID: decisionID,
		VoterID:    userID,
		Vote:       vote.Vote,
		Tally:      tally,
	})
	return result, nil
}

// DecisionVotes is the read model served by the votes endpoint.
type DecisionVotes struct {
	DecisionID string        `json:"decisionId"`
	Votes      []models.Vote `json:"votes"`
	Tally      models.Tally  `json:"tally"`
}

// List returns the votes of a decision in companyID.
func (s *VoteService) List(ctx context.Context, companyID, decisionID string) (*DecisionVotes, error) {
	decision, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, storeErr(err, "decision")
	}
	meeting, err := s.store.GetMeeting(ctx, decision.MeetingID)
	if err != nil {
		return nil, storeErr(err, "decision")
	}
	if meeting.CompanyID != companyID {
		return nil, utils.NotFound("decision not found")
	}
	votes, err := s.store.ListVotes(ctx, decisionID)
	if err != nil {
		return nil, storeErr(err, "votes")
	}
	var tally models.Tally
	for _, v := range votes {
		tally.Add(v.Vote)
	}
	return &DecisionVotes{DecisionID: decisionID, Votes: votes, Tally: tally}, nil
}
