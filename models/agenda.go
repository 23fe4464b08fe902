package models

// AgendaItem is one slot of a meeting agenda. Duration is in minutes.
type AgendaItem struct {
	Base
	MeetingID   string  `gorm:"type:uuid;not null;index" json:"meetingId"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description,omitempty"`
	Duration    int     `gorm:"default:0" json:"duration"`
	PresenterID *string `json:"presenterId,omitempty"`
	Order       int     `gorm:"column:sort_order;not null;default:0" json:"order"`
}
