package mocks

import (
	"context"

	"eventstage/internal/model"

	"github.com/stretchr/testify/mock"
)

type TicketServiceMock struct {
	mock.Mock
}

func NewTicketServiceMock() *TicketServiceMock {
	return &TicketServiceMock{}
}

func (m *TicketServiceMock) ListTiers(ctx context.Context, eventID string) ([]*model.TicketTier, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketTier), args.Error(1)
}

func (m *TicketServiceMock) AddTier(ctx context.Context, eventID, requesterID string, spec model.TierSpec) (*model.TicketTier, error) {
	args := m.Called(ctx, eventID, requesterID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketTier), args.Error(1)
}

func (m *TicketServiceMock) UpdateTier(ctx context.Context, eventID, requesterID, tierID string, params model.UpdateTierParams) (*model.TicketTier, error) {
	args := m.Called(ctx, eventID, requesterID, tierID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketTier), args.Error(1)
}

func (m *TicketServiceMock) DeleteTier(ctx context.Context, eventID, requesterID, tierID string) error {
	args := m.Called(ctx, eventID, requesterID, tierID)
	return args.Error(0)
}
