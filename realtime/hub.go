package realtime

import (
	"context"
	"time"

	"boardroom/services"
	"boardroom/utils"
)

// Hub owns the room registry and routes room frames through the
// broadcaster. It is the RoomNotifier handed to the services.
type Hub struct {
	registry *RoomRegistry
	bus      Broadcaster
	timeout  time.Duration
}

var _ services.RoomNotifier = (*Hub)(nil)

// NewHub builds a hub delivering in process. Use SetBroadcaster to fan out
// across instances.
func NewHub(registry *RoomRegistry) *Hub {
	if registry == nil {
		registry = NewRoomRegistry()
	}
	return &Hub{
		registry: registry,
		bus:      NewLocalBroadcaster(registry.Deliver),
		timeout:  2 * time.Second,
	}
}

func (h *Hub) Registry() *RoomRegistry { return h.registry }

// Deliver is the DeliverFunc for broadcasters feeding this hub.
func (h *Hub) Deliver(meetingID string, msg []byte, exceptID string) int {
	return h.registry.Deliver(meetingID, msg, exceptID)
}

func (h *Hub) SetBroadcaster(b Broadcaster) {
	if b != nil {
		h.bus = b
	}
}

// EmitToRoom pushes an event to everyone in the meeting room. Failures are
// logged and swallowed.
func (h *Hub) EmitToRoom(meetingID, event string, payload interface{}) {
	h.publish(meetingID, event, payload, "")
}

func (h *Hub) publish(meetingID, event string, payload interface{}, exceptID string) {
	msg, err := encodeFrame(event, "", payload)
	if err != nil {
		utils.Suppress("room_emit", err, map[string]interface{}{"meeting_id": meetingID, "event": event})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.bus.Publish(ctx, meetingID, msg, exceptID); err != nil {
		utils.Suppress("room_emit", err, map[string]interface{}{"meeting_id": meetingID, "event": event})
		// Local participants still get the frame.
		h.registry.Deliver(meetingID, msg, exceptID)
	}
}
