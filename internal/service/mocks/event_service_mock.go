package mocks

import (
	"context"

	"eventstage/internal/model"

	"github.com/stretchr/testify/mock"
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) view(args mock.Arguments) (*model.EventView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventView), args.Error(1)
}

func (m *EventServiceMock) views(args mock.Arguments) ([]*model.EventView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.EventView), args.Error(1)
}

func (m *EventServiceMock) team(args mock.Arguments) ([]model.TeamMember, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TeamMember), args.Error(1)
}

func (m *EventServiceMock) CreateEvent(ctx context.Context, params model.CreateEventParams) (*model.EventView, error) {
	return m.view(m.Called(ctx, params))
}

func (m *EventServiceMock) GetEvent(ctx context.Context, eventID, viewerID string) (*model.EventView, error) {
	return m.view(m.Called(ctx, eventID, viewerID))
}

func (m *EventServiceMock) ListPublicEvents(ctx context.Context, filter model.EventFilter) ([]*model.EventView, error) {
	return m.views(m.Called(ctx, filter))
}

func (m *EventServiceMock) ListGroupEvents(ctx context.Context, groupID, viewerID string) ([]*model.EventView, error) {
	return m.views(m.Called(ctx, groupID, viewerID))
}

func (m *EventServiceMock) EditEvent(ctx context.Context, eventID, userID string, patch model.EventPatch) (*model.EventView, error) {
	return m.view(m.Called(ctx, eventID, userID, patch))
}

func (m *EventServiceMock) SoftDeleteEvent(ctx context.Context, eventID, userID string) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

func (m *EventServiceMock) CancelEvent(ctx context.Context, eventID, userID string) (*model.EventView, error) {
	return m.view(m.Called(ctx, eventID, userID))
}

func (m *EventServiceMock) LikeEvent(ctx context.Context, eventID, userID string) (*model.LikeStatus, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LikeStatus), args.Error(1)
}

func (m *EventServiceMock) UnlikeEvent(ctx context.Context, eventID, userID string) (*model.LikeStatus, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LikeStatus), args.Error(1)
}

func (m *EventServiceMock) Vote(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex) (model.VoteTally, error) {
	args := m.Called(ctx, eventID, userID, voteType, index)
	return args.Get(0).(model.VoteTally), args.Error(1)
}

func (m *EventServiceMock) Unvote(ctx context.Context, eventID, userID string, voteType model.VoteType, index model.PollIndex) (model.VoteTally, error) {
	args := m.Called(ctx, eventID, userID, voteType, index)
	return args.Get(0).(model.VoteTally), args.Error(1)
}

func (m *EventServiceMock) InviteUsers(ctx context.Context, eventID, inviterID string, userIDs []string) ([]string, error) {
	args := m.Called(ctx, eventID, inviterID, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *EventServiceMock) RespondToInvite(ctx context.Context, eventID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	args := m.Called(ctx, eventID, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RSVP), args.Error(1)
}

func (m *EventServiceMock) SetTeamMember(ctx context.Context, eventID, organizerID, userID string, role model.TeamRole) ([]model.TeamMember, error) {
	return m.team(m.Called(ctx, eventID, organizerID, userID, role))
}

func (m *EventServiceMock) RemoveTeamMember(ctx context.Context, eventID, organizerID, userID string) ([]model.TeamMember, error) {
	return m.team(m.Called(ctx, eventID, organizerID, userID))
}
