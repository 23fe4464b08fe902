package realtime

import (
	"errors"
	"sort"
	"sync"
)

// ErrConnectionClosed is returned when joining with a disconnected client.
var ErrConnectionClosed = errors.New("connection closed")

// RoomRegistry maps meetings to the users connected to them. A user is an
// occupant while at least one of their connections is in the room. The
// registry is also the delivery list for room broadcasts, so occupancy and
// delivery can never diverge.
type RoomRegistry struct {
	mu     sync.Mutex
	rooms  map[string]map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to the meeting room. It returns the occupants after the join
// and whether c is the user's first connection in the room.
func (r *RoomRegistry) Join(meetingID string, c *Client) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.isClosed() {
		return nil, false, ErrConnectionClosed
	}

	room, ok := r.rooms[meetingID]
	if !ok {
		room = make(map[string]map[*Client]struct{})
		r.rooms[meetingID] = room
	}
	conns, ok := room[c.userID]
	first := !ok || len(conns) == 0
	if !ok {
		conns = make(map[*Client]struct{})
		room[c.userID] = conns
	}
	conns[c] = struct{}{}

	joined, ok := r.byConn[c]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[c] = joined
	}
	joined[meetingID] = struct{}{}

	return occupantsLocked(room), first, nil
}

// Leave removes c from the room. It reports whether the user has no other
// connection left in it.
func (r *RoomRegistry) Leave(meetingID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(meetingID, c)
}

func (r *RoomRegistry) leaveLocked(meetingID string, c *Client) bool {
	if joined, ok := r.byConn[c]; ok {
		delete(joined, meetingID)
	}
	room, ok := r.rooms[meetingID]
	if !ok {
		return false
	}
	conns, ok := room[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if len(conns) > 0 {
		return false
	}
	delete(room, c.userID)
	if len(room) == 0 {
		delete(r.rooms, meetingID)
	}
	return true
}

// Disconnect closes c, removes it from every room and forgets it. It
// returns the meetings the user fully left, sorted, so each gets one
// departure notice. A join racing the disconnect fails with
// ErrConnectionClosed.
func (r *RoomRegistry) Disconnect(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.close()

	var left []string
	for meetingID := range r.byConn[c] {
		if r.leaveLocked(meetingID, c) {
			left = append(left, meetingID)
		}
	}
	delete(r.byConn, c)
	sort.Strings(left)
	return left
}

// Occupants returns the sorted user ids connected to the meeting.
func (r *RoomRegistry) Occupants(meetingID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return occupantsLocked(r.rooms[meetingID])
}

// Rooms returns the meetings c has joined, sorted.
func (r *RoomRegistry) Rooms(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]string, 0, len(r.byConn[c]))
	for id := range r.byConn[c] {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms
}

// Deliver queues msg on every connection in the room except the one whose
// id is exceptID. Delivery runs under the registry lock so all occupants
// observe room frames in the same order.
func (r *RoomRegistry) Deliver(meetingID string, msg []byte, exceptID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, conns := range r.rooms[meetingID] {
		for c := range conns {
			if c.id == exceptID {
				continue
			}
			if c.enqueue(msg) {
				n++
			}
		}
	}
	return n
}

func occupantsLocked(room map[string]map[*Client]struct{}) []string {
	users := make([]string, 0, len(room))
	for userID, conns := range room {
		if len(conns) > 0 {
			users = append(users, userID)
		}
	}
	sort.Strings(users)
	return users
}
