package services

import (
	"context"

	"boardroom/models"
	"boardroom/repository"
)

// SummaryJob asks the mail worker to deliver a completed meeting's summary.
type SummaryJob struct {
	Summary    *models.MeetingSummary
	Recipients []string
}

// SummaryQueue accepts summary jobs without blocking. Enqueue reports
// whether the job was accepted.
type SummaryQueue interface {
	Enqueue(job SummaryJob) bool
}

type noopQueue struct{}

func (noopQueue) Enqueue(SummaryJob) bool { return false }

// buildSummary assembles the structured summary of meeting from tx. tallies
// carries the tally computed for each decision during completion.
func buildSummary(ctx context.Context, tx repository.Store, meeting *models.Meeting, decisions []models.Decision, tallies map[string]models.Tally) (*models.MeetingSummary, []string, error) {
	attendees, err := tx.ListAttendees(ctx, meeting.ID)
	if err != nil {
		return nil, nil, err
	}
	items, err := tx.ListActionItems(ctx, meeting.ID)
	if err != nil {
		return nil, nil, err
	}

	summary := &models.MeetingSummary{
		MeetingID:   meeting.ID,
		CompanyID:   meeting.CompanyID,
		Title:       meeting.Title,
		StartedAt:   meeting.StartedAt,
		EndedAt:     meeting.EndedAt,
		Attendees:   make([]models.SummaryAttendee, 0, len(attendees)),
		Decisions:   make([]models.SummaryDecision, 0, len(decisions)),
		ActionItems: make([]models.SummaryActionItem, 0, len(items)),
	}

	var recipients []string
	for _, a := range attendees {
		entry := models.SummaryAttendee{IsPresent: a.IsPresent}
		if a.Member != nil {
			entry.UserID = a.Member.UserID
			if a.Member.User != nil {
				entry.Name = a.Member.User.Name
				entry.Email = a.Member.User.Email
				if entry.Email != "" {
					recipients = append(recipients, entry.Email)
				}
			}
		}
		summary.Attendees = append(summary.Attendees, entry)
	}

	for _, d := range decisions {
		tally := tallies[d.ID]
		summary.Decisions = append(summary.Decisions, models.SummaryDecision{
			DecisionID: d.ID,
			Title:      d.Title,
			Outcome:    tally.Outcome(),
			Tally:      tally,
		})
	}

	for _, it := range items {
		summary.ActionItems = append(summary.ActionItems, models.SummaryActionItem{
			ActionItemID: it.ID,
			Title:        it.Title,
			AssigneeID:   it.AssigneeID,
			DueDate:      it.DueDate,
		})
	}

	return summary, recipients, nil
}
