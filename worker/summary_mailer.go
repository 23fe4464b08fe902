package worker

import (
	"context"
	"fmt"
	"time"

	"boardroom/services"
	"boardroom/utils"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SummaryMailer delivers meeting summaries in the background. Jobs that do
// not fit in the queue are rejected rather than blocking the caller.
type SummaryMailer struct {
	mailer  utils.Mailer
	jobs    chan services.SummaryJob
	workers int
	Logger  *logrus.Entry
}

var _ services.SummaryQueue = (*SummaryMailer)(nil)

func NewSummaryMailer(mailer utils.Mailer, queueSize, workers int) *SummaryMailer {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workers <= 0 {
		workers = 2
	}
	return &SummaryMailer{
		mailer:  mailer,
		jobs:    make(chan services.SummaryJob, queueSize),
		workers: workers,
		Logger:  utils.Component("summary_mailer"),
	}
}

func (sm *SummaryMailer) Enqueue(job services.SummaryJob) bool {
	if job.Summary == nil {
		return false
	}
	select {
	case sm.jobs <- job:
		return true
	default:
		return false
	}
}

// Start runs the workers until ctx is cancelled. Jobs still queued at that
// point are dropped.
func (sm *SummaryMailer) Start(ctx context.Context) {
	sm.Logger.WithField("workers", sm.workers).Info("Summary mailer started")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < sm.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-sm.jobs:
					if err := sm.deliver(job); err != nil {
						utils.Suppress("summary_mail", err, map[string]interface{}{
							"meeting_id": job.Summary.MeetingID,
						})
					}
				}
			}
		})
	}
	_ = g.Wait()
	sm.Logger.Info("Summary mailer shutting down...")
}

func (sm *SummaryMailer) deliver(job services.SummaryJob) error {
	recipients := validRecipients(job.Recipients)
	if len(recipients) == 0 {
		sm.Logger.WithField("meeting_id", job.Summary.MeetingID).Debug("No deliverable recipients for summary")
		return nil
	}

	subject := fmt.Sprintf("Meeting summary: %s", job.Summary.Title)
	body, err := utils.RenderEmail("meeting_summary", summaryView(job, subject))
	if err != nil {
		return err
	}
	sent := 0
	var firstErr error
	for _, to := range recipients {
		if err := sm.mailer.Send([]string{to}, subject, body); err != nil {
			sm.Logger.WithError(err).WithField("meeting_id", job.Summary.MeetingID).Warn("Summary mail failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}

	utils.LogEvent("summary_mailed", map[string]interface{}{
		"meeting_id": job.Summary.MeetingID,
		"recipients": len(recipients),
		"sent":       sent,
	})
	return firstErr
}

type summaryTemplateData struct {
	Subject     string
	Title       string
	EndedAt     string
	Attendees   interface{}
	Decisions   interface{}
	ActionItems interface{}
	Year        int
}

func summaryView(job services.SummaryJob, subject string) summaryTemplateData {
	s := job.Summary
	data := summaryTemplateData{
		Subject:     subject,
		Title:       s.Title,
		Attendees:   s.Attendees,
		Decisions:   s.Decisions,
		ActionItems: s.ActionItems,
		Year:        utils.CurrentYear(),
	}
	if s.EndedAt != nil {
		data.EndedAt = s.EndedAt.UTC().Format(time.RFC1123)
	}
	return data
}

// validRecipients drops malformed addresses and duplicates.
func validRecipients(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		if err := checkmail.ValidateFormat(email); err != nil {
			continue
		}
		out = append(out, email)
	}
	return out
}
