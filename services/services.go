// Package services holds the domain logic shared by the HTTP controllers
// and the realtime gateway: permission resolution, the meeting lifecycle,
// vote tallying, roles, memberships and meeting content.
package services

import (
	"errors"

	"boardroom/repository"
	"boardroom/utils"
)

// RoomNotifier pushes fire-and-forget events to everyone connected to a
// meeting room. Implementations must not block on slow receivers.
type RoomNotifier interface {
	EmitToRoom(meetingID, event string, payload interface{})
}

// NoopNotifier is used where no realtime transport is wired.
type NoopNotifier struct{}

func (NoopNotifier) EmitToRoom(string, string, interface{}) {}

// storeErr translates repository failures into typed application errors.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return utils.NotFound(what + " not found")
	case errors.Is(err, repository.ErrConflict):
		return utils.Conflict(what + " already exists")
	case errors.Is(err, repository.ErrStaleState):
		return utils.InvalidState(what + " changed concurrently")
	case errors.Is(err, repository.ErrCapacity):
		return utils.CapacityExceeded(what + " limit reached")
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return utils.Internal("failed to access "+what, err)
}
