package controller

import (
	"boardroom/models"
	"boardroom/services"

	"github.com/gofiber/fiber/v2"
)

// ContentController serves what hangs off a meeting: agenda items,
// decisions and their votes, action items and notes.
type ContentController struct {
	Content *services.ContentService
	Votes   *services.VoteService
}

func NewContentController(content *services.ContentService, votes *services.VoteService) *ContentController {
	return &ContentController{Content: content, Votes: votes}
}

func scope(c *fiber.Ctx) (companyID, meetingID string) {
	return c.Params("companyId"), c.Params("meetingId")
}

// ---- agenda

func (cc *ContentController) ListAgenda(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	items, err := cc.Content.ListAgenda(c.UserContext(), companyID, meetingID)
	if err != nil {
		return err
	}
	return ok(c, items)
}

func (cc *ContentController) CreateAgendaItem(c *fiber.Ctx) error {
	var input services.AgendaItemInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	item, err := cc.Content.CreateAgendaItem(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return created(c, item)
}

func (cc *ContentController) UpdateAgendaItem(c *fiber.Ctx) error {
	var input services.AgendaItemInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	item, err := cc.Content.UpdateAgendaItem(c.UserContext(), companyID, meetingID, c.Params("itemId"), input)
	if err != nil {
		return err
	}
	return ok(c, item)
}

func (cc *ContentController) DeleteAgendaItem(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	if err := cc.Content.DeleteAgendaItem(c.UserContext(), companyID, meetingID, c.Params("itemId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (cc *ContentController) ReorderAgenda(c *fiber.Ctx) error {
	var input services.ReorderInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	items, err := cc.Content.ReorderAgenda(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return ok(c, items)
}

// ---- decisions

func (cc *ContentController) ListDecisions(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	decisions, err := cc.Content.ListDecisions(c.UserContext(), companyID, meetingID)
	if err != nil {
		return err
	}
	return ok(c, decisions)
}

func (cc *ContentController) GetDecision(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	decision, err := cc.Content.GetDecision(c.UserContext(), companyID, meetingID, c.Params("decisionId"))
	if err != nil {
		return err
	}
	return ok(c, decision)
}

func (cc *ContentController) CreateDecision(c *fiber.Ctx) error {
	var input services.DecisionInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	decision, err := cc.Content.CreateDecision(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return created(c, decision)
}

func (cc *ContentController) UpdateDecision(c *fiber.Ctx) error {
	var input services.DecisionInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	decision, err := cc.Content.UpdateDecision(c.UserContext(), companyID, meetingID, c.Params("decisionId"), input)
	if err != nil {
		return err
	}
	return ok(c, decision)
}

func (cc *ContentController) DeleteDecision(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	if err := cc.Content.DeleteDecision(c.UserContext(), companyID, meetingID, c.Params("decisionId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (cc *ContentController) ReorderDecisions(c *fiber.Ctx) error {
	var input services.ReorderInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	decisions, err := cc.Content.ReorderDecisions(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return ok(c, decisions)
}

// ---- votes

func (cc *ContentController) ListVotes(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	ctx := c.UserContext()
	if _, err := cc.Content.GetDecision(ctx, companyID, meetingID, c.Params("decisionId")); err != nil {
		return err
	}
	votes, err := cc.Votes.List(ctx, companyID, c.Params("decisionId"))
	if err != nil {
		return err
	}
	return ok(c, votes)
}

type castVoteInput struct {
	Vote models.VoteChoice `json:"vote"`
}

// CastVote applies the same legality rules as the realtime vote:cast event
func (cc *ContentController) CastVote(c *fiber.Ctx) error {
	var input castVoteInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	ctx := c.UserContext()
	if _, err := cc.Content.GetDecision(ctx, companyID, meetingID, c.Params("decisionId")); err != nil {
		return err
	}
	result, err := cc.Votes.Cast(ctx, currentUserID(c), c.Params("decisionId"), input.Vote)
	if err != nil {
		return err
	}
	return ok(c, result)
}

// ---- action items

func (cc *ContentController) ListActionItems(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	items, err := cc.Content.ListActionItems(c.UserContext(), companyID, meetingID)
	if err != nil {
		return err
	}
	return ok(c, items)
}

func (cc *ContentController) CreateActionItem(c *fiber.Ctx) error {
	var input services.ActionItemInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	item, err := cc.Content.CreateActionItem(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return created(c, item)
}

func (cc *ContentController) UpdateActionItem(c *fiber.Ctx) error {
	var input services.ActionItemInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	item, err := cc.Content.UpdateActionItem(c.UserContext(), companyID, meetingID, c.Params("itemId"), input)
	if err != nil {
		return err
	}
	return ok(c, item)
}

func (cc *ContentController) DeleteActionItem(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	if err := cc.Content.DeleteActionItem(c.UserContext(), companyID, meetingID, c.Params("itemId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (cc *ContentController) ReorderActionItems(c *fiber.Ctx) error {
	var input services.ReorderInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	items, err := cc.Content.ReorderActionItems(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return ok(c, items)
}

// ---- notes

func (cc *ContentController) ListNotes(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	notes, err := cc.Content.ListNotes(c.UserContext(), companyID, meetingID)
	if err != nil {
		return err
	}
	return ok(c, notes)
}

func (cc *ContentController) CreateNote(c *fiber.Ctx) error {
	var input services.NoteInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	note, err := cc.Content.CreateNote(c.UserContext(), currentUserID(c), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return created(c, note)
}

func (cc *ContentController) UpdateNote(c *fiber.Ctx) error {
	var input services.NoteInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	note, err := cc.Content.UpdateNote(c.UserContext(), companyID, meetingID, c.Params("noteId"), input)
	if err != nil {
		return err
	}
	return ok(c, note)
}

func (cc *ContentController) DeleteNote(c *fiber.Ctx) error {
	companyID, meetingID := scope(c)
	if err := cc.Content.DeleteNote(c.UserContext(), companyID, meetingID, c.Params("noteId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (cc *ContentController) ReorderNotes(c *fiber.Ctx) error {
	var input services.ReorderInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	companyID, meetingID := scope(c)
	notes, err := cc.Content.ReorderNotes(c.UserContext(), companyID, meetingID, input)
	if err != nil {
		return err
	}
	return ok(c, notes)
}
