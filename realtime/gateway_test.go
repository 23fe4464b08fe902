package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/services"
	"boardroom/utils"
)

type gatewayFixture struct {
	ctx      context.Context
	gateway  *Gateway
	hub      *Hub
	members  *services.MemberService
	meetings *services.MeetingService
	content  *services.ContentService
	company  *models.Company
	meeting  *models.Meeting
}

// newGatewayFixture wires the gateway to memory-backed services. "owner"
// owns the company; "director" is an invited board member; "observer" is a
// member who was not invited.
func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	hub := NewHub(nil)

	perms := services.NewPermissionService(store)
	if err := perms.SeedCatalog(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	members := services.NewMemberService(store, perms)
	meetings := services.NewMeetingService(store, perms, hub, nil)
	votes := services.NewVoteService(store, perms, hub)
	content := services.NewContentService(store, meetings, hub)

	for _, id := range []string{"owner", "director", "observer", "stranger"} {
		if err := members.SyncUser(ctx, &models.User{ID: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("sync user: %v", err)
		}
	}
	company, err := members.CreateCompany(ctx, "owner", services.CompanyInput{Name: "Northwind Board"})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	director, err := members.AddMember(ctx, company.ID, services.AddMemberInput{UserID: "director", Role: models.RoleBoardMember})
	if err != nil {
		t.Fatalf("add director: %v", err)
	}
	if _, err := members.AddMember(ctx, company.ID, services.AddMemberInput{UserID: "observer", Role: models.RoleObserver}); err != nil {
		t.Fatalf("add observer: %v", err)
	}
	meeting, err := meetings.Create(ctx, "owner", company.ID, services.CreateMeetingInput{
		Title:       "Annual general meeting",
		ScheduledAt: time.Now().Add(time.Hour),
		MemberIDs:   []string{director.ID},
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	return &gatewayFixture{
		ctx:      ctx,
		gateway:  NewGateway(hub, perms, meetings, votes, GatewayConfig{}),
		hub:      hub,
		members:  members,
		meetings: meetings,
		content:  content,
		company:  company,
		meeting:  meeting,
	}
}

func (f *gatewayFixture) connect(userID string) *Client {
	return f.gateway.Connect(&utils.Identity{UserID: userID})
}

func (f *gatewayFixture) send(c *Client, frameType, requestID string, payload interface{}) {
	raw, _ := json.Marshal(payload)
	f.gateway.Handle(f.ctx, c, Frame{Type: frameType, RequestID: requestID, Payload: raw})
}

func received(t *testing.T, c *Client) []Frame {
	t.Helper()
	var frames []Frame
	for _, msg := range drain(c) {
		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("undecodable frame %s: %v", msg, err)
		}
		frames = append(frames, f)
	}
	return frames
}

func only(t *testing.T, frames []Frame, frameType string) []Frame {
	t.Helper()
	var out []Frame
	for _, f := range frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

func wantError(t *testing.T, c *Client, requestID, category string) {
	t.Helper()
	frames := received(t, c)
	if len(frames) != 1 || frames[0].Type != FrameError {
		t.Fatalf("frames = %+v, want one error", frames)
	}
	if frames[0].RequestID != requestID {
		t.Fatalf("request_id = %q, want %q", frames[0].RequestID, requestID)
	}
	var p ErrorPayload
	if err := json.Unmarshal(frames[0].Payload, &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if p.Category != category {
		t.Fatalf("category = %s (%s), want %s", p.Category, p.Message, category)
	}
}

func TestJoinAnnouncesFirstConnectionOnly(t *testing.T) {
	f := newGatewayFixture(t)
	owner := f.connect("owner")
	laptop := f.connect("director")
	phone := f.connect("director")

	f.send(owner, EventJoin, "r1", map[string]string{"meetingId": f.meeting.ID})
	frames := received(t, owner)
	if len(frames) != 1 || frames[0].Type != FrameAck || frames[0].RequestID != "r1" {
		t.Fatalf("owner frames = %+v", frames)
	}

	f.send(laptop, EventJoin, "r2", map[string]string{"meetingId": f.meeting.ID})
	var ack joinAck
	frames = received(t, laptop)
	if len(frames) != 1 {
		t.Fatalf("director got %d frames, want only the ack", len(frames))
	}
	if err := json.Unmarshal(frames[0].Payload, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Success || len(ack.CurrentAttendees) != 2 || ack.CurrentAttendees[0] != "director" {
		t.Fatalf("ack = %+v", ack)
	}

	joined := only(t, received(t, owner), services.EventAttendeeJoined)
	if len(joined) != 1 {
		t.Fatalf("owner saw %d join events", len(joined))
	}
	var presence services.AttendeePresence
	json.Unmarshal(joined[0].Payload, &presence)
	if presence.UserID != "director" || presence.MeetingID != f.meeting.ID {
		t.Fatalf("presence = %+v", presence)
	}

	f.send(phone, EventJoin, "r3", map[string]string{"meetingId": f.meeting.ID})
	if n := len(only(t, received(t, owner), services.EventAttendeeJoined)); n != 0 {
		t.Fatal("a second connection must not announce the user again")
	}
}

func TestGatewayRejections(t *testing.T) {
	f := newGatewayFixture(t)

	tests := []struct {
		name     string
		user     string
		frame    string
		payload  interface{}
		category string
	}{
		{"outsider", "stranger", EventJoin, map[string]string{"meetingId": f.meeting.ID}, "NOT_FOUND"},
		{"unknown meeting", "owner", EventJoin, map[string]string{"meetingId": models.NewID()}, "NOT_FOUND"},
		{"outsider status change", "stranger", EventStatus, map[string]string{"meetingId": f.meeting.ID, "status": "IN_PROGRESS"}, "NOT_FOUND"},
		{"status change of unknown meeting", "owner", EventStatus, map[string]string{"meetingId": models.NewID(), "status": "IN_PROGRESS"}, "NOT_FOUND"},
		{"blank meeting", "owner", EventJoin, map[string]string{"meetingId": " "}, "VALIDATION"},
		{"missing payload", "owner", EventJoin, nil, "VALIDATION"},
		{"wrong payload shape", "owner", EventJoin, []int{1, 2}, "VALIDATION"},
		{"unsupported event", "owner", "meeting:explode", map[string]string{}, "VALIDATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.connect(tt.user)
			if tt.payload == nil {
				f.gateway.Handle(f.ctx, c, Frame{Type: tt.frame, RequestID: "req"})
			} else {
				f.send(c, tt.frame, "req", tt.payload)
			}
			wantError(t, c, "req", tt.category)
			if rooms := f.hub.Registry().Rooms(c); len(rooms) != 0 {
				t.Fatalf("rejected client joined %v", rooms)
			}
		})
	}
}

func TestStatusChangeRequiresOwnerOrAdmin(t *testing.T) {
	f := newGatewayFixture(t)
	owner := f.connect("owner")
	director := f.connect("director")
	f.send(owner, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	f.send(director, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	received(t, owner)
	received(t, director)

	f.send(director, EventStatus, "s1", map[string]string{"meetingId": f.meeting.ID, "status": "IN_PROGRESS"})
	wantError(t, director, "s1", "NOT_AUTHORIZED")

	f.send(owner, EventStatus, "s2", map[string]string{"meetingId": f.meeting.ID, "status": "SCHEDULED"})
	wantError(t, owner, "s2", "INVALID_STATE")

	f.send(owner, EventStatus, "s3", map[string]string{"meetingId": f.meeting.ID, "status": "IN_PROGRESS"})
	frames := received(t, owner)
	acks := only(t, frames, FrameAck)
	if len(acks) != 1 {
		t.Fatalf("owner frames = %+v", frames)
	}
	var ack statusAck
	json.Unmarshal(acks[0].Payload, &ack)
	if ack.Meeting == nil || ack.Meeting.Status != models.MeetingInProgress {
		t.Fatalf("ack = %+v", ack)
	}
	if n := len(only(t, frames, services.EventMeetingStatus)); n != 1 {
		t.Fatalf("owner saw %d status events", n)
	}
	if n := len(only(t, received(t, director), services.EventMeetingStatus)); n != 1 {
		t.Fatalf("director saw %d status events", n)
	}
}

func TestVoteOverGateway(t *testing.T) {
	f := newGatewayFixture(t)
	decision, err := f.content.CreateDecision(f.ctx, f.company.ID, f.meeting.ID, services.DecisionInput{Title: utils.Pointer("Approve dividend")})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	owner := f.connect("owner")
	director := f.connect("director")
	observer := f.connect("observer")
	for _, c := range []*Client{owner, director, observer} {
		f.send(c, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	}
	for _, c := range []*Client{owner, director, observer} {
		received(t, c)
	}

	vote := map[string]string{"decisionId": decision.ID, "vote": "FOR"}
	f.send(director, EventVoteCast, "v0", vote)
	wantError(t, director, "v0", "INVALID_STATE")

	f.send(owner, EventStatus, "", map[string]string{"meetingId": f.meeting.ID, "status": "IN_PROGRESS"})
	for _, c := range []*Client{owner, director, observer} {
		received(t, c)
	}

	f.send(observer, EventVoteCast, "v1", vote)
	wantError(t, observer, "v1", "NOT_AUTHORIZED")

	f.send(director, EventVoteCast, "v2", vote)
	frames := received(t, director)
	acks := only(t, frames, FrameAck)
	if len(acks) != 1 || acks[0].RequestID != "v2" {
		t.Fatalf("director frames = %+v", frames)
	}
	var ack voteAck
	json.Unmarshal(acks[0].Payload, &ack)
	if ack.Vote != models.VoteFor || ack.Tally.For != 1 {
		t.Fatalf("ack = %+v", ack)
	}
	// The voter is part of the room broadcast too.
	if n := len(only(t, frames, services.EventVoteUpdated)); n != 1 {
		t.Fatalf("director saw %d vote events", n)
	}
	updates := only(t, received(t, owner), services.EventVoteUpdated)
	if len(updates) != 1 {
		t.Fatalf("owner saw %d vote events", len(updates))
	}
	var update services.VoteUpdate
	json.Unmarshal(updates[0].Payload, &update)
	if update.DecisionID != decision.ID || update.Tally.For != 1 {
		t.Fatalf("update = %+v", update)
	}
}

func TestAttendanceOverGateway(t *testing.T) {
	f := newGatewayFixture(t)
	director := f.connect("director")

	f.send(director, EventAttendance, "a1", map[string]string{"meetingId": f.meeting.ID})
	wantError(t, director, "a1", "VALIDATION")

	f.send(director, EventAttendance, "a2", map[string]interface{}{"meetingId": f.meeting.ID, "isPresent": true})
	acks := only(t, received(t, director), FrameAck)
	if len(acks) != 1 {
		t.Fatal("expected an ack")
	}

	stranger := f.connect("stranger")
	f.send(stranger, EventAttendance, "a3", map[string]interface{}{"meetingId": f.meeting.ID, "isPresent": true})
	wantError(t, stranger, "a3", "NOT_FOUND")
}

func TestDisconnectAnnouncesDepartureOncePerRoom(t *testing.T) {
	f := newGatewayFixture(t)
	other, err := f.meetings.Create(f.ctx, "owner", f.company.ID, services.CreateMeetingInput{
		Title:       "Audit committee",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	owner := f.connect("owner")
	laptop := f.connect("director")
	phone := f.connect("director")
	for _, id := range []string{f.meeting.ID, other.ID} {
		f.send(owner, EventJoin, "", map[string]string{"meetingId": id})
		f.send(laptop, EventJoin, "", map[string]string{"meetingId": id})
	}
	f.send(phone, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	received(t, owner)

	f.gateway.Disconnect(laptop)
	left := only(t, received(t, owner), services.EventAttendeeLeft)
	if len(left) != 1 {
		t.Fatalf("owner saw %d departures, want 1 (only the room the director fully left)", len(left))
	}
	var presence services.AttendeePresence
	json.Unmarshal(left[0].Payload, &presence)
	if presence.MeetingID != other.ID {
		t.Fatalf("departure from %s, want %s", presence.MeetingID, other.ID)
	}

	f.gateway.Disconnect(laptop)
	if n := len(received(t, owner)); n != 0 {
		t.Fatalf("repeated disconnect sent %d frames", n)
	}

	f.gateway.Disconnect(phone)
	if n := len(only(t, received(t, owner), services.EventAttendeeLeft)); n != 1 {
		t.Fatalf("last connection departure sent %d events", n)
	}
	if got := f.hub.Registry().Occupants(f.meeting.ID); len(got) != 1 || got[0] != "owner" {
		t.Fatalf("occupants = %v", got)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	f := newGatewayFixture(t)
	owner := f.connect("owner")
	director := f.connect("director")
	f.send(owner, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	f.send(director, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	received(t, owner)
	received(t, director)

	for i := 0; i < 2; i++ {
		f.send(director, EventLeave, "l", map[string]string{"meetingId": f.meeting.ID})
	}
	if n := len(only(t, received(t, director), FrameAck)); n != 2 {
		t.Fatalf("got %d acks", n)
	}
	if n := len(only(t, received(t, owner), services.EventAttendeeLeft)); n != 1 {
		t.Fatalf("owner saw %d departures", n)
	}
}

// fakeConn feeds queued inbound messages and records what is written.
type fakeConn struct {
	inbound chan []byte

	mu      sync.Mutex
	written [][]byte
	wrote   chan struct{}
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 64), wrote: make(chan struct{}, 256)}
}

var errPeerGone = errors.New("peer gone")

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-c.inbound
	if !ok {
		return 0, nil, errPeerGone
	}
	return 1, msg, nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errPeerGone
	}
	c.written = append(c.written, data)
	c.wrote <- struct{}{}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frames(t *testing.T) []Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Frame
	for _, msg := range c.written {
		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("undecodable frame: %v", err)
		}
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) waitWrites(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.wrote:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d writes", i, n)
		}
	}
}

func serve(f *gatewayFixture, conn *fakeConn, userID string) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.gateway.Serve(conn, &utils.Identity{UserID: userID}, 1)
	}()
	return done
}

func TestServeRoundTrip(t *testing.T) {
	f := newGatewayFixture(t)
	watcher := f.connect("owner")
	f.send(watcher, EventJoin, "", map[string]string{"meetingId": f.meeting.ID})
	received(t, watcher)

	conn := newFakeConn()
	done := serve(f, conn, "director")

	conn.inbound <- []byte(`{"type":"meeting:join","request_id":"j1","payload":{"meetingId":"` + f.meeting.ID + `"}}`)
	conn.waitWrites(t, 1)
	frames := conn.frames(t)
	if frames[0].Type != FrameAck || frames[0].RequestID != "j1" {
		t.Fatalf("first frame = %+v", frames[0])
	}

	close(conn.inbound)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the peer went away")
	}

	left := only(t, received(t, watcher), services.EventAttendeeLeft)
	if len(left) != 1 {
		t.Fatalf("watcher saw %d departures", len(left))
	}
	if got := f.hub.Registry().Occupants(f.meeting.ID); len(got) != 1 {
		t.Fatalf("occupants after disconnect = %v", got)
	}
}

func TestServeClosesAfterRepeatedGarbage(t *testing.T) {
	f := newGatewayFixture(t)
	conn := newFakeConn()
	done := serve(f, conn, "director")

	for i := 0; i < maxDecodeErrorsPerConn; i++ {
		conn.inbound <- []byte("not json")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept a connection sending garbage")
	}
	frames := conn.frames(t)
	if len(frames) != maxDecodeErrorsPerConn {
		t.Fatalf("got %d frames, want one error per malformed frame", len(frames))
	}
	for _, fr := range frames {
		if fr.Type != FrameError {
			t.Fatalf("frame = %+v", fr)
		}
	}
}
