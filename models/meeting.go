package models

import "time"

type MeetingStatus string

const (
	MeetingScheduled  MeetingStatus = "SCHEDULED"
	MeetingInProgress MeetingStatus = "IN_PROGRESS"
	MeetingPaused     MeetingStatus = "PAUSED"
	MeetingCompleted  MeetingStatus = "COMPLETED"
	MeetingCancelled  MeetingStatus = "CANCELLED"
)

func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingScheduled, MeetingInProgress, MeetingPaused, MeetingCompleted, MeetingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition or mutation is allowed.
func (s MeetingStatus) Terminal() bool {
	return s == MeetingCompleted || s == MeetingCancelled
}

// Meeting is a board meeting. Duration is in minutes.
type Meeting struct {
	Base
	CompanyID   string        `gorm:"type:uuid;not null;index" json:"companyId"`
	Title       string        `gorm:"not null" json:"title"`
	ScheduledAt time.Time     `gorm:"not null" json:"scheduledAt"`
	Duration    int           `gorm:"not null;default:60" json:"duration"`
	Status      MeetingStatus `gorm:"type:varchar(20);not null;default:'SCHEDULED';index" json:"status"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	EndedAt     *time.Time    `json:"endedAt,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	CreatedBy   string        `json:"createdBy"`

	// Relations
	Attendees []MeetingAttendee `gorm:"foreignKey:MeetingID" json:"attendees,omitempty"`
}

// MeetingAttendee links a company member to a meeting. MemberID is the
// Membership id, not the user id.
type MeetingAttendee struct {
	Base
	MeetingID string `gorm:"type:uuid;not null;uniqueIndex:idx_attendee_meeting_member" json:"meetingId"`
	MemberID  string `gorm:"type:uuid;not null;uniqueIndex:idx_attendee_meeting_member" json:"memberId"`
	IsPresent bool   `gorm:"not null;default:false" json:"isPresent"`

	// Relations
	Member *Membership `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}
