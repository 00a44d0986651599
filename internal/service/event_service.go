package service

import (
	"context"
	"errors"
	"time"

	"eventstage/internal/model"
	"eventstage/internal/notify"
	"eventstage/internal/repository"
	apperrors "eventstage/pkg/app_errors"
	"eventstage/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	CreateEvent(ctx context.Context, params model.CreateEventParams) (*model.EventView, error)
	GetEvent(ctx context.Context, eventID, viewerID string) (*model.EventView, error)
	ListPublicEvents(ctx context.Context, filter model.EventFilter) ([]*model.EventView, error)
	ListGroupEvents(ctx context.Context, groupID, viewerID string) ([]*model.EventView, error)
	EditEvent(ctx context.Context, eventID, userID string, patch model.EventPatch) (*model.EventView, error)
	SoftDeleteEvent(ctx context.Context, eventID, userID string) error
	CancelEvent(ctx context.Context, eventID, userID string) (*model.EventView, error)

	LikeEvent(ctx context.Context, eventID, userID string) (*model.LikeStatus, error)
	UnlikeEvent(ctx context.Context, eventID, userID string) (*model.LikeStatus, error)
	Vote(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex) (model.VoteTally, error)
	Unvote(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex) (model.VoteTally, error)

	InviteUsers(ctx context.Context, eventID, inviterID string, userIDs []string) ([]string, error)
	RespondToInvite(ctx context.Context, eventID, userID string, status model.RSVPStatus) (*model.RSVP, error)

	SetTeamMember(ctx context.Context, eventID, organizerID, userID string, role model.TeamRole) ([]model.TeamMember, error)
	RemoveTeamMember(ctx context.Context, eventID, organizerID, userID string) ([]model.TeamMember, error)
}

type EventServiceImpl struct {
	events    repository.EventRepository
	tiers     repository.TicketTierRepository
	purchases repository.PurchaseRepository
	users     repository.UserRepository
	groups    repository.GroupRepository
	tickets   TicketService
	sink      notify.Sink
	now       func() time.Time
}

func NewEventService(
	events repository.EventRepository,
	tiers repository.TicketTierRepository,
	purchases repository.PurchaseRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	tickets TicketService,
	sink notify.Sink,
) EventService {
	return &EventServiceImpl{
		events:    events,
		tiers:     tiers,
		purchases: purchases,
		users:     users,
		groups:    groups,
		tickets:   tickets,
		sink:      sink,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent writes the event, the group link, the tiers and the creator
// index in that order. Each write is idempotent, so a failed step can be
// retried without duplicating earlier ones.
func (s *EventServiceImpl) CreateEvent(ctx context.Context, params model.CreateEventParams) (*model.EventView, error) {
	event, err := model.NewEvent(uuid.New().String(), params, s.now())
	if err != nil {
		return nil, err
	}
	for _, spec := range params.Tiers {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	if event.IsLinkedWithGroup() {
		group, err := s.groups.FindByID(ctx, *event.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.IsAdmin(params.OrganizerID) {
			return nil, apperrors.ErrNotGroupAdmin
		}
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	log := logger.WithComponent("service").With(zap.String("event_id", event.ID))

	if event.IsLinkedWithGroup() {
		if err := s.groups.LinkEvent(ctx, *event.GroupID, event.ID, model.EventStatusUpcoming); err != nil {
			log.Error("failed to link event to group", zap.String("group_id", *event.GroupID), zap.Error(err))
			return nil, err
		}
	}

	for _, spec := range params.Tiers {
		if _, err := s.tickets.AddTier(ctx, event.ID, params.OrganizerID, spec); err != nil {
			log.Error("failed to add ticket tier", zap.String("tier", spec.Title), zap.Error(err))
			return nil, err
		}
	}

	if err := s.users.AddEvent(ctx, params.OrganizerID, event.ID); err != nil {
		log.Error("failed to index event for organizer", zap.String("user_id", params.OrganizerID), zap.Error(err))
		return nil, err
	}

	return s.GetEvent(ctx, event.ID, params.OrganizerID)
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, eventID, viewerID string) (*model.EventView, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.attachTiers(ctx, event); err != nil {
		return nil, err
	}
	return event.View(viewerID), nil
}

func (s *EventServiceImpl) ListPublicEvents(ctx context.Context, filter model.EventFilter) ([]*model.EventView, error) {
	events, err := s.events.ListPublic(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, events, "")
}

func (s *EventServiceImpl) ListGroupEvents(ctx context.Context, groupID, viewerID string) ([]*model.EventView, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByGroupID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, events, viewerID)
}

func (s *EventServiceImpl) views(ctx context.Context, events []*model.Event, viewerID string) ([]*model.EventView, error) {
	views := make([]*model.EventView, 0, len(events))
	for _, e := range events {
		if err := s.attachTiers(ctx, e); err != nil {
			return nil, err
		}
		views = append(views, e.View(viewerID))
	}
	return views, nil
}

// attachTiers loads the tiers and derives maxAttendees from them.
func (s *EventServiceImpl) attachTiers(ctx context.Context, event *model.Event) error {
	tiers, err := s.tiers.ListByEventID(ctx, event.ID)
	if err != nil {
		return err
	}
	event.Tiers = tiers
	event.RecomputeMaxAttendees()
	return nil
}

func (s *EventServiceImpl) EditEvent(ctx context.Context, eventID, userID string, patch model.EventPatch) (*model.EventView, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(userID) {
		return nil, apperrors.ErrUnauthorized
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkTierPatches(ctx, eventID, patch.Price); err != nil {
		return nil, err
	}

	for _, tp := range patch.Price {
		if _, err := s.tickets.UpdateTier(ctx, eventID, userID, tp.TierID, tp.UpdateTierParams); err != nil {
			return nil, err
		}
	}

	event.Apply(patch, s.now())
	if err := s.attachTiers(ctx, event); err != nil {
		return nil, err
	}
	updated, err := s.events.Update(ctx, eventID, repository.PatchUpdate(event, patch))
	if err != nil {
		return nil, err
	}
	updated.Tiers = event.Tiers

	for _, m := range updated.Team {
		if m.UserID == userID {
			continue
		}
		s.sink.Notify(ctx, model.Notification{
			Type:       model.NotificationEventUpdated,
			Title:      "Event updated",
			Message:    updated.Title + " was updated",
			ReceiverID: m.UserID,
			SenderID:   userID,
			Metadata:   map[string]string{"event_id": updated.ID},
		})
	}

	return updated.View(userID), nil
}

// checkTierPatches dry-runs every tier patch so that no tier is written
// when any of them would be rejected.
func (s *EventServiceImpl) checkTierPatches(ctx context.Context, eventID string, patches []model.TierPatch) error {
	if len(patches) == 0 {
		return nil
	}
	tiers, err := s.tiers.ListByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	byID := make(map[string]model.TicketTier, len(tiers))
	for _, t := range tiers {
		byID[t.ID] = *t
	}
	for _, tp := range patches {
		t, ok := byID[tp.TierID]
		if !ok {
			return apperrors.ErrTierNotFound
		}
		if err := tp.UpdateTierParams.Apply(&t, s.now()); err != nil {
			return err
		}
		// later patches to the same tier see this one
		byID[tp.TierID] = t
	}
	return nil
}

// SoftDeleteEvent hides the event. Tiers and purchases stay as history.
func (s *EventServiceImpl) SoftDeleteEvent(ctx context.Context, eventID, userID string) error {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.IsOrganizer(userID) {
		return apperrors.ErrUnauthorized
	}

	if _, err := s.events.Update(ctx, eventID, repository.DeleteUpdate(s.now())); err != nil {
		return err
	}
	s.setGroupStatus(ctx, event, model.EventStatusDeleted)
	return nil
}

// CancelEvent stops sales and tells every ticket holder. Purchases remain
// valid records. Cancelling twice is a no-op and notifies nobody.
func (s *EventServiceImpl) CancelEvent(ctx context.Context, eventID, userID string) (*model.EventView, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(userID) {
		return nil, apperrors.ErrUnauthorized
	}

	updated, err := s.events.Update(ctx, eventID, repository.CancelUpdate(s.now()))
	if errors.Is(err, apperrors.ErrEventCancelled) {
		return s.GetEvent(ctx, eventID, userID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachTiers(ctx, updated); err != nil {
		return nil, err
	}
	s.setGroupStatus(ctx, updated, model.EventStatusCancelled)

	buyers, err := s.purchases.ListBuyerIDsByEventID(ctx, eventID)
	if err != nil {
		logger.WithComponent("service").Warn("failed to list ticket holders",
			zap.String("event_id", eventID), zap.Error(err))
	}
	for _, buyerID := range buyers {
		s.sink.Notify(ctx, model.Notification{
			Type:       model.NotificationEventCancelled,
			Title:      "Event cancelled",
			Message:    updated.Title + " has been cancelled",
			ReceiverID: buyerID,
			SenderID:   userID,
			Metadata:   map[string]string{"event_id": updated.ID},
		})
	}

	return updated.View(userID), nil
}

func (s *EventServiceImpl) setGroupStatus(ctx context.Context, event *model.Event, status string) {
	if !event.IsLinkedWithGroup() {
		return
	}
	if err := s.groups.SetEventStatus(ctx, *event.GroupID, event.ID, status); err != nil {
		logger.WithComponent("service").Warn("failed to update group event status",
			zap.String("event_id", event.ID),
			zap.String("group_id", *event.GroupID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func (s *EventServiceImpl) LikeEvent(ctx context.Context, eventID, userID string) (*model.LikeStatus, error) {
	return s.setLike(ctx, eventID, userID, true)
}

func (s *EventServiceImpl) UnlikeEvent(ctx context.Context, eventID, userID string) (*model.LikeStatus, error) {
	return s.setLike(ctx, eventID, userID, false)
}

func (s *EventServiceImpl) setLike(ctx context.Context, eventID, userID string, like bool) (*model.LikeStatus, error) {
	if userID == "" {
		return nil, apperrors.ErrInvalidInput
	}
	event, err := s.events.Update(ctx, eventID, repository.LikeUpdate(userID, like))
	if err != nil {
		return nil, err
	}
	return &model.LikeStatus{
		LikesCount:      event.LikesCount(),
		IsLikedByViewer: event.IsLikedBy(userID),
	}, nil
}

func (s *EventServiceImpl) Vote(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex) (model.VoteTally, error) {
	return s.updatePoll(ctx, eventID, userID, voteType, index, true)
}

func (s *EventServiceImpl) Unvote(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex) (model.VoteTally, error) {
	return s.updatePoll(ctx, eventID, userID, voteType, index, false)
}

func (s *EventServiceImpl) updatePoll(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex, add bool) (model.VoteTally, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return model.VoteTally{}, err
	}
	// validates type and index against the current polls
	check := event.Unvote
	if add {
		check = event.Vote
	}
	if err := check(voteType, index, userID); err != nil {
		return model.VoteTally{}, err
	}

	updated, err := s.events.Update(ctx, eventID, repository.VoteUpdate(voteType, index, userID, add))
	if err != nil {
		return model.VoteTally{}, err
	}
	return updated.Tally(), nil
}

// InviteUsers returns the users invited by this call; anyone already
// invited is skipped silently.
func (s *EventServiceImpl) InviteUsers(ctx context.Context, eventID, inviterID string, userIDs []string) ([]string, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanManage(inviterID) {
		return nil, apperrors.ErrUnauthorized
	}

	now := s.now()
	added := make([]string, 0, len(userIDs))
	for _, userID := range event.Invite(inviterID, userIDs, now) {
		inv := model.Invitation{UserID: userID, InvitedBy: inviterID, InvitedAt: now}
		if _, err := s.events.Update(ctx, eventID, repository.InviteUpdate(inv)); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyInvited) {
				continue
			}
			return nil, err
		}
		added = append(added, userID)
	}

	for _, userID := range added {
		s.sink.Notify(ctx, model.Notification{
			Type:       model.NotificationEventInvite,
			Title:      "You're invited",
			Message:    "You have been invited to " + event.Title,
			ReceiverID: userID,
			SenderID:   inviterID,
			Metadata:   map[string]string{"event_id": event.ID},
		})
	}
	return added, nil
}

func (s *EventServiceImpl) RespondToInvite(ctx context.Context, eventID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := event.Respond(userID, status, s.now()); err != nil {
		return nil, err
	}
	rsvp := event.RSVPs[userID]
	if _, err := s.events.Update(ctx, eventID, repository.RSVPUpdate(userID, rsvp)); err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (s *EventServiceImpl) SetTeamMember(ctx context.Context, eventID, organizerID, userID string, role model.TeamRole) ([]model.TeamMember, error) {
	return s.updateTeam(ctx, eventID, organizerID, func(e *model.Event) error {
		return e.SetTeamMember(userID, role)
	})
}

func (s *EventServiceImpl) RemoveTeamMember(ctx context.Context, eventID, organizerID, userID string) ([]model.TeamMember, error) {
	return s.updateTeam(ctx, eventID, organizerID, func(e *model.Event) error {
		return e.RemoveTeamMember(userID)
	})
}

// updateTeam rewrites the team list only. The organizer is its sole writer.
func (s *EventServiceImpl) updateTeam(ctx context.Context, eventID, organizerID string, apply func(*model.Event) error) ([]model.TeamMember, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(organizerID) {
		return nil, apperrors.ErrUnauthorized
	}
	if err := apply(event); err != nil {
		return nil, err
	}
	updated, err := s.events.Update(ctx, eventID, repository.TeamUpdate(event.Team, s.now()))
	if err != nil {
		return nil, err
	}
	return updated.Team, nil
}
