package services

import (
	"time"

	"boardroom/models"
)

// Room events pushed to meeting participants.
const (
	EventAttendeeJoined    = "attendee:joined"
	EventAttendeeLeft      = "attendee:left"
	EventVoteUpdated       = "vote:updated"
	EventAttendanceUpdated = "attendance:updated"
	EventMeetingStatus     = "meeting:status:updated"

	EventAgendaCreated   = "agenda:created"
	EventAgendaUpdated   = "agenda:updated"
	EventAgendaDeleted   = "agenda:deleted"
	EventAgendaReordered = "agenda:reordered"

	EventDecisionCreated   = "decision:created"
	EventDecisionUpdated   = "decision:updated"
	EventDecisionDeleted   = "decision:deleted"
	EventDecisionReordered = "decision:reordered"

	EventActionItemCreated   = "actionItem:created"
	EventActionItemUpdated   = "actionItem:updated"
	EventActionItemDeleted   = "actionItem:deleted"
	EventActionItemReordered = "actionItem:reordered"

	EventNoteCreated    = "note:created"
	EventNoteUpdated    = "note:updated"
	EventNoteDeleted    = "note:deleted"
	EventNotesReordered = "notes:reordered"
)

type AttendeePresence struct {
	UserID    string `json:"userId"`
	MeetingID string `json:"meetingId"`
}

type VoteUpdate struct {
	DecisionID string            `json:"decisionId"`
	VoterID    string            `json:"voterId"`
	Vote       models.VoteChoice `json:"vote"`
	Tally      models.Tally      `json:"tally"`
}

type AttendanceUpdate struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
	IsPresent bool   `json:"isPresent"`
}

type StatusUpdate struct {
	MeetingID string               `json:"meetingId"`
	Status    models.MeetingStatus `json:"status"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Deleted is the id-only payload of deletion events.
type Deleted struct {
	ID        string `json:"id"`
	MeetingID string `json:"meetingId"`
}

type Reordered struct {
	MeetingID string   `json:"meetingId"`
	IDs       []string `json:"ids"`
}
