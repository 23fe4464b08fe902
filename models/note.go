package models

// MeetingNote is a free-form note attached to a meeting.
type MeetingNote struct {
	Base
	MeetingID string `gorm:"type:uuid;not null;index" json:"meetingId"`
	AuthorID  string `gorm:"not null" json:"authorId"`
	Content   string `gorm:"type:text;not null" json:"content"`
	Order     int    `gorm:"column:sort_order;not null;default:0" json:"order"`
}
