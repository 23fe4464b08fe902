package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"boardroom/models"
	"boardroom/services"
	"boardroom/utils"

	"github.com/sirupsen/logrus"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 20
	maxDecodeErrorsPerConn = 5
)

// GatewayConfig tunes per-connection limits.
type GatewayConfig struct {
	// EventTimeout bounds the storage work of one inbound event.
	EventTimeout time.Duration
	SendBuffer   int
}

// Gateway is the single place where connected clients affect meeting
// state. Authorization goes through the PermissionService like every HTTP
// handler.
type Gateway struct {
	hub      *Hub
	perms    *services.PermissionService
	meetings *services.MeetingService
	votes    *services.VoteService
	cfg      GatewayConfig
	log      *logrus.Entry
}

func NewGateway(hub *Hub, perms *services.PermissionService, meetings *services.MeetingService, votes *services.VoteService, cfg GatewayConfig) *Gateway {
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 10 * time.Second
	}
	return &Gateway{
		hub:      hub,
		perms:    perms,
		meetings: meetings,
		votes:    votes,
		cfg:      cfg,
		log:      utils.Component("gateway"),
	}
}

// Connect binds a verified identity to a new client.
func (g *Gateway) Connect(identity *utils.Identity) *Client {
	c := newClient(identity.UserID, identity.SessionID, g.cfg.SendBuffer)
	g.log.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.userID,
	}).Debug("Client connected")
	return c
}

// Disconnect removes the client from every room and tells each room the
// user left, once per room. It is safe on unclean disconnects and safe to
// call twice.
func (g *Gateway) Disconnect(c *Client) {
	for _, meetingID := range g.hub.registry.Disconnect(c) {
		g.hub.publish(meetingID, services.EventAttendeeLeft, services.AttendeePresence{
			UserID:    c.userID,
			MeetingID: meetingID,
		}, "")
	}
	g.log.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.userID,
	}).Debug("Client disconnected")
}

// Handle processes one inbound frame and queues its ack or error on c.
func (g *Gateway) Handle(ctx context.Context, c *Client, frame Frame) {
	ack, err := g.dispatch(ctx, c, frame)
	if err != nil {
		if utils.KindOf(err) == utils.KindInternal {
			utils.LogError("realtime_event_failed", err, map[string]interface{}{
				"event":   frame.Type,
				"user_id": c.userID,
				"conn_id": c.id,
			})
		}
		c.enqueue(errorFrame(frame.RequestID, err))
		return
	}
	msg, err := encodeFrame(FrameAck, frame.RequestID, ack)
	if err != nil {
		c.enqueue(errorFrame(frame.RequestID, utils.Internal("failed to encode reply", err)))
		return
	}
	c.enqueue(msg)
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, frame Frame) (interface{}, error) {
	switch frame.Type {
	case EventJoin:
		var p joinPayload
		if err := decodePayload(frame, &p); err != nil {
			return nil, err
		}
		return g.join(ctx, c, strings.TrimSpace(p.MeetingID))
	case EventLeave:
		var p joinPayload
		if err := decodePayload(frame, &p); err != nil {
			return nil, err
		}
		return g.leave(c, strings.TrimSpace(p.MeetingID))
	case EventVoteCast:
		var p votePayload
		if err := decodePayload(frame, &p); err != nil {
			return nil, err
		}
		return g.castVote(ctx, c, p)
	case EventAttendance:
		var p attendancePayload
		if err := decodePayload(frame, &p); err != nil {
			return nil, err
		}
		return g.updateAttendance(ctx, c, p)
	case EventStatus:
		var p statusPayload
		if err := decodePayload(frame, &p); err != nil {
			return nil, err
		}
		return g.updateStatus(ctx, c, p)
	}
	return nil, utils.Validation("unsupported event " + frame.Type)
}

func decodePayload(frame Frame, v interface{}) error {
	if len(frame.Payload) == 0 {
		return utils.Validation("payload is required")
	}
	if len(frame.Payload) > maxFramePayloadBytes {
		return utils.Validation("payload too large")
	}
	if err := json.Unmarshal(frame.Payload, v); err != nil {
		return utils.Validation("invalid " + frame.Type + " payload")
	}
	return nil
}

func (g *Gateway) join(ctx context.Context, c *Client, meetingID string) (interface{}, error) {
	if meetingID == "" {
		return nil, utils.Validation("meetingId is required")
	}
	meeting, err := g.meetings.Get(ctx, "", meetingID)
	if err != nil {
		return nil, err
	}
	if _, err := g.perms.MemberOf(ctx, c.userID, meeting.CompanyID, "meeting"); err != nil {
		return nil, err
	}
	occupants, first, err := g.hub.registry.Join(meetingID, c)
	if err != nil {
		return nil, utils.InvalidState("connection is closing")
	}
	if first {
		g.hub.publish(meetingID, services.EventAttendeeJoined, services.AttendeePresence{
			UserID:    c.userID,
			MeetingID: meetingID,
		}, c.id)
	}
	return joinAck{Success: true, MeetingID: meetingID, CurrentAttendees: occupants}, nil
}

func (g *Gateway) leave(c *Client, meetingID string) (interface{}, error) {
	if meetingID == "" {
		return nil, utils.Validation("meetingId is required")
	}
	if g.hub.registry.Leave(meetingID, c) {
		g.hub.publish(meetingID, services.EventAttendeeLeft, services.AttendeePresence{
			UserID:    c.userID,
			MeetingID: meetingID,
		}, "")
	}
	return successAck{Success: true}, nil
}

// castVote relies on the vote service to broadcast vote:updated to the
// whole room, voter included.
func (g *Gateway) castVote(ctx context.Context, c *Client, p votePayload) (interface{}, error) {
	if strings.TrimSpace(p.DecisionID) == "" {
		return nil, utils.Validation("decisionId is required")
	}
	res, err := g.votes.Cast(ctx, c.userID, p.DecisionID, p.Vote)
	if err != nil {
		return nil, err
	}
	return voteAck{Success: true, Vote: res.Vote, Tally: res.Tally}, nil
}

func (g *Gateway) updateAttendance(ctx context.Context, c *Client, p attendancePayload) (interface{}, error) {
	if strings.TrimSpace(p.MeetingID) == "" {
		return nil, utils.Validation("meetingId is required")
	}
	if p.IsPresent == nil {
		return nil, utils.Validation("isPresent is required")
	}
	if _, err := g.meetings.UpdateAttendance(ctx, c.userID, p.MeetingID, *p.IsPresent); err != nil {
		return nil, err
	}
	return successAck{Success: true}, nil
}

// updateStatus is restricted to OWNER and ADMIN of the meeting's company.
func (g *Gateway) updateStatus(ctx context.Context, c *Client, p statusPayload) (interface{}, error) {
	if strings.TrimSpace(p.MeetingID) == "" {
		return nil, utils.Validation("meetingId is required")
	}
	meeting, err := g.meetings.Get(ctx, "", p.MeetingID)
	if err != nil {
		return nil, err
	}
	if _, err := g.perms.MemberOf(ctx, c.userID, meeting.CompanyID, "meeting"); err != nil {
		return nil, err
	}
	if !g.perms.HasRole(ctx, c.userID, meeting.CompanyID, models.RoleOwner, models.RoleAdmin) {
		return nil, utils.Forbidden("only owners and admins can change meeting status")
	}
	updated, err := g.meetings.ApplyStatus(ctx, p.MeetingID, p.Status)
	if err != nil {
		return nil, err
	}
	return statusAck{Success: true, Meeting: updated}, nil
}
