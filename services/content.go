package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"boardroom/models"
	"boardroom/repository"
	"boardroom/utils"
)

// ContentService manages what hangs off a meeting: agenda items,
// decisions, action items and notes. Every mutation is rejected once the
// meeting is terminal and pushes an event to the meeting room.
type ContentService struct {
	store    repository.Store
	meetings *MeetingService
	notifier RoomNotifier
}

func NewContentService(store repository.Store, meetings *MeetingService, notifier RoomNotifier) *ContentService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &ContentService{store: store, meetings: meetings, notifier: notifier}
}

// mutable returns the meeting if its content may still change.
func (s *ContentService) mutable(ctx context.Context, companyID, meetingID string) (*models.Meeting, error) {
	m, err := s.meetings.Get(ctx, companyID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() {
		return nil, utils.InvalidState("meeting is " + string(m.Status) + " and can no longer change")
	}
	return m, nil
}

// contentErr reports a meeting that ended between the mutable check and
// the write the same way mutable does.
func contentErr(err error, what string) error {
	if errors.Is(err, repository.ErrStaleState) {
		return utils.InvalidState("meeting has ended and can no longer change")
	}
	return storeErr(err, what)
}

// ReorderInput lists ids in their new order.
type ReorderInput struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// ---- agenda

type AgendaItemInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Duration    *int    `json:"duration" validate:"omitempty,min=0,max=1440"`
	PresenterID *string `json:"presenterId" validate:"omitempty"`
}

func (s *ContentService) ListAgenda(ctx context.Context, companyID, meetingID string) ([]models.AgendaItem, error) {
	if _, err := s.meetings.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	items, err := s.store.ListAgendaItems(ctx, meetingID)
	return items, storeErr(err, "agenda items")
}

func (s *ContentService) agendaItem(ctx context.Context, meetingID, id string) (*models.AgendaItem, error) {
	item, err := s.store.GetAgendaItem(ctx, id)
	if err != nil {
		return nil, storeErr(err, "agenda item")
	}
	if item.MeetingID != meetingID {
		return nil, utils.NotFound("agenda item not found")
	}
	return item, nil
}

func (s *ContentService) CreateAgendaItem(ctx context.Context, companyID, meetingID string, in AgendaItemInput) (*models.AgendaItem, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, utils.Validation("title is required")
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	item := &models.AgendaItem{MeetingID: meetingID}
	applyAgenda(item, in)
	if err := s.store.CreateAgendaItem(ctx, item); err != nil {
		return nil, contentErr(err, "agenda item")
	}
	s.notifier.EmitToRoom(meetingID, EventAgendaCreated, item)
	return item, nil
}

func (s *ContentService) UpdateAgendaItem(ctx context.Context, companyID, meetingID, id string, in AgendaItemInput) (*models.AgendaItem, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	item, err := s.agendaItem(ctx, meetingID, id)
	if err != nil {
		return nil, err
	}
	applyAgenda(item, in)
	if err := s.store.UpdateAgendaItem(ctx, item); err != nil {
		return nil, contentErr(err, "agenda item")
	}
	s.notifier.EmitToRoom(meetingID, EventAgendaUpdated, item)
	return item, nil
}

func applyAgenda(item *models.AgendaItem, in AgendaItemInput) {
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Duration != nil {
		item.Duration = *in.Duration
	}
	if in.PresenterID != nil {
		item.PresenterID = in.PresenterID
	}
}

func (s *ContentService) DeleteAgendaItem(ctx context.Context, companyID, meetingID, id string) error {
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return err
	}
	if _, err := s.agendaItem(ctx, meetingID, id); err != nil {
		return err
	}
	if err := s.store.DeleteAgendaItem(ctx, id); err != nil {
		return contentErr(err, "agenda item")
	}
	s.notifier.EmitToRoom(meetingID, EventAgendaDeleted, Deleted{ID: id, MeetingID: meetingID})
	return nil
}

func (s *ContentService) ReorderAgenda(ctx context.Context, companyID, meetingID string, in ReorderInput) ([]models.AgendaItem, error) {
	if err := s.reorder(ctx, companyID, meetingID, in, s.store.ReorderAgendaItems, "agenda items"); err != nil {
		return nil, err
	}
	items, err := s.store.ListAgendaItems(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "agenda items")
	}
	s.notifier.EmitToRoom(meetingID, EventAgendaReordered, items)
	return items, nil
}

func (s *ContentService) reorder(ctx context.Context, companyID, meetingID string, in ReorderInput, apply func(context.Context, string, []string) error, what string) error {
	if err := utils.ValidateStruct(in); err != nil {
		return err
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return err
	}
	return storeErr(apply(ctx, meetingID, in.IDs), what)
}

// ---- decisions

type DecisionInput struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	AgendaItemID *string `json:"agendaItemId" validate:"omitempty,uuid"`
}

func (s *ContentService) ListDecisions(ctx context.Context, companyID, meetingID string) ([]models.Decision, error) {
	if _, err := s.meetings.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	decisions, err := s.store.ListDecisions(ctx, meetingID)
	return decisions, storeErr(err, "decisions")
}

// GetDecision returns a decision scoped to its meeting and company.
func (s *ContentService) GetDecision(ctx context.Context, companyID, meetingID, id string) (*models.Decision, error) {
	if _, err := s.meetings.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	return s.decision(ctx, meetingID, id)
}

func (s *ContentService) decision(ctx context.Context, meetingID, id string) (*models.Decision, error) {
	d, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return nil, storeErr(err, "decision")
	}
	if d.MeetingID != meetingID {
		return nil, utils.NotFound("decision not found")
	}
	return d, nil
}

func (s *ContentService) checkAgendaRef(ctx context.Context, meetingID string, id *string) error {
	if id == nil {
		return nil
	}
	_, err := s.agendaItem(ctx, meetingID, *id)
	return err
}

func (s *ContentService) CreateDecision(ctx context.Context, companyID, meetingID string, in DecisionInput) (*models.Decision, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, utils.Validation("title is required")
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	if err := s.checkAgendaRef(ctx, meetingID, in.AgendaItemID); err != nil {
		return nil, err
	}
	d := &models.Decision{MeetingID: meetingID}
	applyDecision(d, in)
	if err := s.store.CreateDecision(ctx, d); err != nil {
		return nil, contentErr(err, "decision")
	}
	s.notifier.EmitToRoom(meetingID, EventDecisionCreated, d)
	return d, nil
}

func (s *ContentService) UpdateDecision(ctx context.Context, companyID, meetingID, id string, in DecisionInput) (*models.Decision, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	d, err := s.decision(ctx, meetingID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAgendaRef(ctx, meetingID, in.AgendaItemID); err != nil {
		return nil, err
	}
	applyDecision(d, in)
	if err := s.store.UpdateDecision(ctx, d); err != nil {
		return nil, contentErr(err, "decision")
	}
	s.notifier.EmitToRoom(meetingID, EventDecisionUpdated, d)
	return d, nil
}

func applyDecision(d *models.Decision, in DecisionInput) {
	if in.Title != nil {
		d.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.AgendaItemID != nil {
		d.AgendaItemID = in.AgendaItemID
	}
}

func (s *ContentService) DeleteDecision(ctx context.Context, companyID, meetingID, id string) error {
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return err
	}
	if _, err := s.decision(ctx, meetingID, id); err != nil {
		return err
	}
	if err := s.store.DeleteDecision(ctx, id); err != nil {
		return contentErr(err, "decision")
	}
	s.notifier.EmitToRoom(meetingID, EventDecisionDeleted, Deleted{ID: id, MeetingID: meetingID})
	return nil
}

func (s *ContentService) ReorderDecisions(ctx context.Context, companyID, meetingID string, in ReorderInput) ([]models.Decision, error) {
	if err := s.reorder(ctx, companyID, meetingID, in, s.store.ReorderDecisions, "decisions"); err != nil {
		return nil, err
	}
	decisions, err := s.store.ListDecisions(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "decisions")
	}
	s.notifier.EmitToRoom(meetingID, EventDecisionReordered, decisions)
	return decisions, nil
}

// ---- action items

type ActionItemInput struct {
	Title       *string                  `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string                  `json:"description" validate:"omitempty,max=5000"`
	AssigneeID  *string                  `json:"assigneeId"`
	DueDate     *time.Time               `json:"dueDate"`
	Status      *models.ActionItemStatus `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

func (s *ContentService) ListActionItems(ctx context.Context, companyID, meetingID string) ([]models.ActionItem, error) {
	if _, err := s.meetings.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	items, err := s.store.ListActionItems(ctx, meetingID)
	return items, storeErr(err, "action items")
}

func (s *ContentService) actionItem(ctx context.Context, meetingID, id string) (*models.ActionItem, error) {
	item, err := s.store.GetActionItem(ctx, id)
	if err != nil {
		return nil, storeErr(err, "action item")
	}
	if item.MeetingID != meetingID {
		return nil, utils.NotFound("action item not found")
	}
	return item, nil
}

func (s *ContentService) CreateActionItem(ctx context.Context, companyID, meetingID string, in ActionItemInput) (*models.ActionItem, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, utils.Validation("title is required")
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	item := &models.ActionItem{MeetingID: meetingID, Status: models.ActionItemPending}
	applyActionItem(item, in)
	if err := s.store.CreateActionItem(ctx, item); err != nil {
		return nil, contentErr(err, "action item")
	}
	s.notifier.EmitToRoom(meetingID, EventActionItemCreated, item)
	return item, nil
}

func (s *ContentService) UpdateActionItem(ctx context.Context, companyID, meetingID, id string, in ActionItemInput) (*models.ActionItem, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	item, err := s.actionItem(ctx, meetingID, id)
	if err != nil {
		return nil, err
	}
	applyActionItem(item, in)
	if err := s.store.UpdateActionItem(ctx, item); err != nil {
		return nil, contentErr(err, "action item")
	}
	s.notifier.EmitToRoom(meetingID, EventActionItemUpdated, item)
	return item, nil
}

func applyActionItem(item *models.ActionItem, in ActionItemInput) {
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.AssigneeID != nil {
		item.AssigneeID = in.AssigneeID
	}
	if in.DueDate != nil {
		item.DueDate = in.DueDate
	}
	if in.Status != nil {
		item.Status = *in.Status
	}
}

func (s *ContentService) DeleteActionItem(ctx context.Context, companyID, meetingID, id string) error {
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return err
	}
	if _, err := s.actionItem(ctx, meetingID, id); err != nil {
		return err
	}
	if err := s.store.DeleteActionItem(ctx, id); err != nil {
		return contentErr(err, "action item")
	}
	s.notifier.EmitToRoom(meetingID, EventActionItemDeleted, Deleted{ID: id, MeetingID: meetingID})
	return nil
}

func (s *ContentService) ReorderActionItems(ctx context.Context, companyID, meetingID string, in ReorderInput) ([]models.ActionItem, error) {
	if err := s.reorder(ctx, companyID, meetingID, in, s.store.ReorderActionItems, "action items"); err != nil {
		return nil, err
	}
	items, err := s.store.ListActionItems(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "action items")
	}
	s.notifier.EmitToRoom(meetingID, EventActionItemReordered, items)
	return items, nil
}

// ---- notes

type NoteInput struct {
	Content string `json:"content" validate:"required,max=20000"`
}

func (s *ContentService) ListNotes(ctx context.Context, companyID, meetingID string) ([]models.MeetingNote, error) {
	if _, err := s.meetings.Get(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, meetingID)
	return notes, storeErr(err, "notes")
}

func (s *ContentService) note(ctx context.Context, meetingID, id string) (*models.MeetingNote, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, storeErr(err, "note")
	}
	if n.MeetingID != meetingID {
		return nil, utils.NotFound("note not found")
	}
	return n, nil
}

func (s *ContentService) CreateNote(ctx context.Context, authorID, companyID, meetingID string, in NoteInput) (*models.MeetingNote, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	n := &models.MeetingNote{MeetingID: meetingID, AuthorID: authorID, Content: in.Content}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, contentErr(err, "note")
	}
	s.notifier.EmitToRoom(meetingID, EventNoteCreated, n)
	return n, nil
}

func (s *ContentService) UpdateNote(ctx context.Context, companyID, meetingID, id string, in NoteInput) (*models.MeetingNote, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return nil, err
	}
	n, err := s.note(ctx, meetingID, id)
	if err != nil {
		return nil, err
	}
	n.Content = in.Content
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, contentErr(err, "note")
	}
	s.notifier.EmitToRoom(meetingID, EventNoteUpdated, n)
	return n, nil
}

func (s *ContentService) DeleteNote(ctx context.Context, companyID, meetingID, id string) error {
	if _, err := s.mutable(ctx, companyID, meetingID); err != nil {
		return err
	}
	if _, err := s.note(ctx, meetingID, id); err != nil {
		return err
	}
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return contentErr(err, "note")
	}
	s.notifier.EmitToRoom(meetingID, EventNoteDeleted, Deleted{ID: id, MeetingID: meetingID})
	return nil
}

func (s *ContentService) ReorderNotes(ctx context.Context, companyID, meetingID string, in ReorderInput) ([]models.MeetingNote, error) {
	if err := s.reorder(ctx, companyID, meetingID, in, s.store.ReorderNotes, "notes"); err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, meetingID)
	if err != nil {
		return nil, storeErr(err, "notes")
	}
	s.notifier.EmitToRoom(meetingID, EventNotesReordered, notes)
	return notes, nil
}
