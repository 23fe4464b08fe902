// Package realtime is the live-meeting layer: a room registry tracking who
// is connected to which meeting, and a gateway that authenticates
// websocket connections and dispatches their events.
package realtime

import (
	"encoding/json"

	"boardroom/models"
	"boardroom/utils"
)

// Inbound event types.
const (
	EventJoin       = "meeting:join"
	EventLeave      = "meeting:leave"
	EventVoteCast   = "vote:cast"
	EventAttendance = "attendance:update"
	EventStatus     = "meeting:status"
)

// Outbound control frame types.
const (
	FrameAck   = "ack"
	FrameError = "error"
)

// Frame is the envelope of every websocket message in both directions.
// RequestID correlates an ack or error with the inbound frame.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	MeetingID string `json:"meetingId"`
}

type votePayload struct {
	DecisionID string            `json:"decisionId"`
	Vote       models.VoteChoice `json:"vote"`
}

type attendancePayload struct {
	MeetingID string `json:"meetingId"`
	IsPresent *bool  `json:"isPresent"`
}

type statusPayload struct {
	MeetingID string               `json:"meetingId"`
	Status    models.MeetingStatus `json:"status"`
}

type joinAck struct {
	Success          bool     `json:"success"`
	MeetingID        string   `json:"meetingId"`
	CurrentAttendees []string `json:"currentAttendees"`
}

type successAck struct {
	Success bool `json:"success"`
}

type voteAck struct {
	Success bool              `json:"success"`
	Vote    models.VoteChoice `json:"vote"`
	Tally   models.Tally      `json:"tally"`
}

type statusAck struct {
	Success bool            `json:"success"`
	Meeting *models.Meeting `json:"meeting"`
}

// ErrorPayload lets clients tell retryable state errors apart from
// authorization and not-found failures.
type ErrorPayload struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func encodeFrame(frameType, requestID string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, RequestID: requestID, Payload: raw})
}

func errorFrame(requestID string, err error) []byte {
	msg, encErr := encodeFrame(FrameError, requestID, ErrorPayload{
		Category: utils.KindOf(err).Category(),
		Message:  utils.PublicMessage(err),
	})
	if encErr != nil {
		return nil
	}
	return msg
}
