package models

import "time"

type ActionItemStatus string

const (
	ActionItemPending    ActionItemStatus = "PENDING"
	ActionItemInProgress ActionItemStatus = "IN_PROGRESS"
	ActionItemDone       ActionItemStatus = "COMPLETED"
)

// ActionItem is a follow-up task captured in a meeting.
type ActionItem struct {
	Base
	MeetingID   string           `gorm:"type:uuid;not null;index" json:"meetingId"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `json:"description,omitempty"`
	AssigneeID  *string          `json:"assigneeId,omitempty"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	Status      ActionItemStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Order       int              `gorm:"column:sort_order;not null;default:0" json:"order"`
}
