package models

import "time"

// MeetingSummary is generated once when a meeting completes.
type MeetingSummary struct {
	Base
	MeetingID   string              `gorm:"type:uuid;not null;uniqueIndex" json:"meetingId"`
	CompanyID   string              `gorm:"type:uuid;not null;index" json:"companyId"`
	Title       string              `json:"title"`
	StartedAt   *time.Time          `json:"startedAt,omitempty"`
	EndedAt     *time.Time          `json:"endedAt,omitempty"`
	Attendees   []SummaryAttendee   `gorm:"type:jsonb;serializer:json" json:"attendees"`
	Decisions   []SummaryDecision   `gorm:"type:jsonb;serializer:json" json:"decisions"`
	ActionItems []SummaryActionItem `gorm:"type:jsonb;serializer:json" json:"actionItems"`
}

type SummaryAttendee struct {
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	IsPresent bool   `json:"isPresent"`
}

type SummaryDecision struct {
	DecisionID string          `json:"decisionId"`
	Title      string          `json:"title"`
	Outcome    DecisionOutcome `json:"outcome"`
	Tally      Tally           `json:"tally"`
}

type SummaryActionItem struct {
	ActionItemID string     `json:"actionItemId"`
	Title        string     `json:"title"`
	AssigneeID   *string    `json:"assigneeId,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}
