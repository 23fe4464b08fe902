package controller

import (
	"boardroom/services"
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
)

type MeetingController struct {
	Meetings *services.MeetingService
}

func NewMeetingController(meetings *services.MeetingService) *MeetingController {
	return &MeetingController{Meetings: meetings}
}

type attendeesInput struct {
	AttendeeIDs []string `json:"attendeeIds" validate:"required,min=1,dive,uuid"`
}

func (mc *MeetingController) ListMeetings(c *fiber.Ctx) error {
	meetings, err := mc.Meetings.List(c.UserContext(), c.Params("companyId"))
	if err != nil {
		return err
	}
	return ok(c, meetings)
}

func (mc *MeetingController) CreateMeeting(c *fiber.Ctx) error {
	var input services.CreateMeetingInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	meeting, err := mc.Meetings.Create(c.UserContext(), currentUserID(c), c.Params("companyId"), input)
	if err != nil {
		return err
	}
	return created(c, meeting)
}

func (mc *MeetingController) GetMeeting(c *fiber.Ctx) error {
	meeting, err := mc.Meetings.Get(c.UserContext(), c.Params("companyId"), c.Params("meetingId"))
	if err != nil {
		return err
	}
	return ok(c, meeting)
}

func (mc *MeetingController) UpdateMeeting(c *fiber.Ctx) error {
	var input services.UpdateMeetingInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	meeting, err := mc.Meetings.Update(c.UserContext(), c.Params("companyId"), c.Params("meetingId"), input)
	if err != nil {
		return err
	}
	return ok(c, meeting)
}

func (mc *MeetingController) DeleteMeeting(c *fiber.Ctx) error {
	if err := mc.Meetings.Delete(c.UserContext(), c.Params("companyId"), c.Params("meetingId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Transition returns the handler for one lifecycle operation. It runs the
// same state machine the realtime gateway uses.
func (mc *MeetingController) Transition(op services.LifecycleOp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if _, err := mc.Meetings.Get(ctx, c.Params("companyId"), c.Params("meetingId")); err != nil {
			return err
		}
		meeting, err := mc.Meetings.Transition(ctx, c.Params("meetingId"), op)
		if err != nil {
			return err
		}
		return ok(c, meeting)
	}
}

func (mc *MeetingController) GetSummary(c *fiber.Ctx) error {
	summary, err := mc.Meetings.GetSummary(c.UserContext(), c.Params("companyId"), c.Params("meetingId"))
	if err != nil {
		return err
	}
	return ok(c, summary)
}

func (mc *MeetingController) ListAttendees(c *fiber.Ctx) error {
	attendees, err := mc.Meetings.ListAttendees(c.UserContext(), c.Params("companyId"), c.Params("meetingId"))
	if err != nil {
		return err
	}
	return ok(c, attendees)
}

func (mc *MeetingController) AddAttendees(c *fiber.Ctx) error {
	var input attendeesInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	attendees, err := mc.Meetings.AddAttendees(c.UserContext(), c.Params("companyId"), c.Params("meetingId"), input.AttendeeIDs)
	if err != nil {
		return err
	}
	return created(c, attendees)
}

func (mc *MeetingController) RemoveAttendee(c *fiber.Ctx) error {
	if err := mc.Meetings.RemoveAttendee(c.UserContext(), c.Params("companyId"), c.Params("meetingId"), c.Params("memberId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type attendanceInput struct {
	IsPresent *bool `json:"isPresent" validate:"required"`
}

// UpdateAttendance sets the caller's own presence flag
func (mc *MeetingController) UpdateAttendance(c *fiber.Ctx) error {
	var input attendanceInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := mc.Meetings.Get(ctx, c.Params("companyId"), c.Params("meetingId")); err != nil {
		return err
	}
	attendee, err := mc.Meetings.UpdateAttendance(ctx, currentUserID(c), c.Params("meetingId"), *input.IsPresent)
	if err != nil {
		return err
	}
	return ok(c, attendee)
}
